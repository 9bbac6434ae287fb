package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfellowship/commons/backend/internal/forum"
)

var forumErrorTable = []errorStatus{
	{forum.ErrCategoryNotFound, http.StatusNotFound},
	{forum.ErrThreadNotFound, http.StatusNotFound},
	{forum.ErrReplyNotFound, http.StatusNotFound},
	{forum.ErrParentReplyNotFound, http.StatusNotFound},
	{forum.ErrNotAuthor, http.StatusForbidden},
	{forum.ErrInvalidVote, http.StatusBadRequest},
	{forum.ErrEmptyContent, http.StatusBadRequest},
}

func (h *httpHandler) mountForumRoutes(router *gin.Engine) {
	if h.forum == nil {
		return
	}
	group := router.Group("/forum")

	group.GET("/categories", h.handleListCategories)
	group.POST("/categories", h.requireAuth, h.requireAdmin, h.handleCreateCategory)
	group.DELETE("/categories/:categoryID", h.requireAuth, h.requireAdmin, h.handleDeleteCategory)
	group.GET("/categories/:categoryID/threads", h.handleListThreads)

	group.POST("/threads", h.requireAuth, h.handleCreateThread)
	group.GET("/threads/:threadID", h.handleGetThread)
	group.PUT("/threads/:threadID", h.requireAuth, h.handleUpdateThread)
	group.DELETE("/threads/:threadID", h.requireAuth, h.handleDeleteThread)
	group.POST("/threads/:threadID/vote", h.requireAuth, h.handleVoteThread)

	group.GET("/threads/:threadID/replies", h.handleListForumReplies)
	group.POST("/threads/:threadID/replies", h.requireAuth, h.handleCreateForumReply)
	group.DELETE("/replies/:replyID", h.requireAuth, h.handleDeleteForumReply)
	group.POST("/replies/:replyID/vote", h.requireAuth, h.handleVoteReply)
}

func (h *httpHandler) handleListCategories(c *gin.Context) {
	categories, err := h.forum.ListCategories(c.Request.Context())
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type categoryCreatePayload struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

func (h *httpHandler) handleCreateCategory(c *gin.Context) {
	var payload categoryCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	category, err := h.forum.CreateCategory(c.Request.Context(), payload.Name, payload.Description, payload.DisplayOrder)
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *httpHandler) handleDeleteCategory(c *gin.Context) {
	if err := h.forum.DeleteCategory(c.Request.Context(), c.Param("categoryID")); err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListThreads(c *gin.Context) {
	threads, err := h.forum.ListThreads(c.Request.Context(), c.Param("categoryID"))
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

type threadCreatePayload struct {
	CategoryID string `json:"category_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

func (h *httpHandler) handleCreateThread(c *gin.Context) {
	var payload threadCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.CategoryID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	thread, err := h.forum.CreateThread(c.Request.Context(), forum.ThreadInput{
		CategoryID: payload.CategoryID,
		AuthorID:   principal.UserID,
		Title:      payload.Title,
		Content:    payload.Content,
	})
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

func (h *httpHandler) handleGetThread(c *gin.Context) {
	thread, err := h.forum.GetThread(c.Request.Context(), c.Param("threadID"))
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusOK, thread)
}

type threadUpdatePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *httpHandler) handleUpdateThread(c *gin.Context) {
	var payload threadUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	thread, err := h.forum.UpdateThread(c.Request.Context(), c.Param("threadID"), principal.UserID, payload.Title, payload.Content)
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *httpHandler) handleDeleteThread(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	err := h.forum.DeleteThread(c.Request.Context(), c.Param("threadID"), principal.UserID, principal.IsAdmin)
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListForumReplies(c *gin.Context) {
	replies, err := h.forum.ListReplies(c.Request.Context(), c.Param("threadID"))
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

type forumReplyPayload struct {
	Content       string  `json:"content"`
	ParentReplyID *string `json:"parent_reply_id"`
}

func (h *httpHandler) handleCreateForumReply(c *gin.Context) {
	var payload forumReplyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	reply, err := h.forum.CreateReply(c.Request.Context(), forum.ReplyInput{
		ThreadID:      c.Param("threadID"),
		AuthorID:      principal.UserID,
		Content:       payload.Content,
		ParentReplyID: payload.ParentReplyID,
	})
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (h *httpHandler) handleDeleteForumReply(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	err := h.forum.DeleteReply(c.Request.Context(), c.Param("replyID"), principal.UserID, principal.IsAdmin)
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.Status(http.StatusNoContent)
}

type votePayload struct {
	Vote string `json:"vote"`
}

func (h *httpHandler) handleVoteThread(c *gin.Context) {
	var payload votePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	thread, err := h.forum.VoteThread(c.Request.Context(), c.Param("threadID"), forum.VoteType(payload.Vote))
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *httpHandler) handleVoteReply(c *gin.Context) {
	var payload votePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	reply, err := h.forum.VoteReply(c.Request.Context(), c.Param("replyID"), forum.VoteType(payload.Vote))
	if err != nil {
		h.respondDomainError(c, err, forumErrorTable)
		return
	}
	c.JSON(http.StatusOK, reply)
}
