package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfellowship/commons/backend/internal/messaging"
)

var messageErrorTable = []errorStatus{
	{messaging.ErrMessageNotFound, http.StatusNotFound},
	{messaging.ErrRecipientNotFound, http.StatusNotFound},
	{messaging.ErrSelfMessage, http.StatusBadRequest},
	{messaging.ErrEmptyBody, http.StatusBadRequest},
	{messaging.ErrBodyTooLong, http.StatusBadRequest},
	{messaging.ErrNotRecipient, http.StatusForbidden},
}

func (h *httpHandler) mountMessageRoutes(router *gin.Engine) {
	if h.messaging == nil {
		return
	}
	group := router.Group("/messages", h.requireAuth)

	group.POST("", h.handleSendMessage)
	group.GET("/conversations", h.handleListConversations)
	group.GET("/with/:userID", h.handleMessageThread)
	group.POST("/with/:userID/read", h.handleMarkThreadRead)
	group.POST("/:messageID/read", h.handleMarkMessageRead)
	group.GET("/unread-count", h.handleUnreadCount)
}

type messageSendPayload struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	var payload messageSendPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.RecipientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	message, err := h.messaging.Send(c.Request.Context(), principal.UserID, payload.RecipientID, payload.Content)
	if err != nil {
		h.respondDomainError(c, err, messageErrorTable)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (h *httpHandler) handleListConversations(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	conversations, err := h.messaging.Conversations(c.Request.Context(), principal.UserID)
	if err != nil {
		h.respondDomainError(c, err, messageErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (h *httpHandler) handleMessageThread(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	messages, err := h.messaging.Thread(c.Request.Context(), principal.UserID, c.Param("userID"))
	if err != nil {
		h.respondDomainError(c, err, messageErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *httpHandler) handleMarkThreadRead(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	updated, err := h.messaging.MarkThreadRead(c.Request.Context(), principal.UserID, c.Param("userID"))
	if err != nil {
		h.respondDomainError(c, err, messageErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_read": updated})
}

func (h *httpHandler) handleMarkMessageRead(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	message, err := h.messaging.MarkRead(c.Request.Context(), c.Param("messageID"), principal.UserID)
	if err != nil {
		h.respondDomainError(c, err, messageErrorTable)
		return
	}
	c.JSON(http.StatusOK, message)
}

func (h *httpHandler) handleUnreadCount(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	count, err := h.messaging.UnreadCount(c.Request.Context(), principal.UserID)
	if err != nil {
		h.respondDomainError(c, err, messageErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}
