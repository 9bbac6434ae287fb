package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfellowship/commons/backend/internal/review"
)

func (h *httpHandler) mountAboutRoutes(router *gin.Engine) {
	about := router.Group("/about")

	about.GET("/content", h.optionalAuth, h.handleListContent)
	about.PUT("/content/:blockID", h.requireAuth, h.requireAdmin, h.handleUpdateBlock)
	about.GET("/content/:blockID/history", h.requireAuth, h.requireAdmin, h.handleBlockHistory)

	about.GET("/comments", h.requireAuth, h.handleListComments)
	about.POST("/comments", h.requireAuth, h.handleCreateComment)
	about.DELETE("/comments/:commentID", h.requireAuth, h.handleDeleteComment)
	about.POST("/comments/:commentID/resolve", h.requireAuth, h.requireAdmin, h.handleResolveComment)
	about.POST("/comments/:commentID/replies", h.requireAuth, h.handleCreateReply)

	about.GET("/suggestions", h.requireAuth, h.handleListSuggestions)
	about.POST("/suggestions", h.requireAuth, h.handleCreateSuggestion)
	about.DELETE("/suggestions/:suggestionID", h.requireAuth, h.handleDeleteSuggestion)
	about.POST("/suggestions/:suggestionID/accept", h.requireAuth, h.requireAdmin, h.handleAcceptSuggestion)
	about.POST("/suggestions/:suggestionID/reject", h.requireAuth, h.requireAdmin, h.handleRejectSuggestion)

	about.GET("/pending-review", h.requireAuth, h.requireAdmin, h.handlePendingReview)
}

func (h *httpHandler) handleListContent(c *gin.Context) {
	page, err := h.review.ListContent(c.Request.Context(), viewerFrom(c))
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type blockUpdatePayload struct {
	Content      *string `json:"content"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
}

func (h *httpHandler) handleUpdateBlock(c *gin.Context) {
	var payload blockUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	block, err := h.review.UpdateBlock(c.Request.Context(), c.Param("blockID"), review.BlockUpdate{
		Content:      payload.Content,
		DisplayOrder: payload.DisplayOrder,
		IsActive:     payload.IsActive,
	}, principal.UserID)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (h *httpHandler) handleBlockHistory(c *gin.Context) {
	entries, err := h.review.BlockHistory(c.Request.Context(), c.Param("blockID"))
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	includeResolved := c.Query("include_resolved") == "true"
	comments, err := h.review.ListComments(c.Request.Context(), viewerFrom(c), c.Query("block_id"), includeResolved)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

type commentCreatePayload struct {
	BlockID      string `json:"block_id"`
	StartOffset  int    `json:"start_offset"`
	EndOffset    int    `json:"end_offset"`
	SelectedText string `json:"selected_text"`
	Content      string `json:"content"`
}

func (h *httpHandler) handleCreateComment(c *gin.Context) {
	var payload commentCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.BlockID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	comment, err := h.review.CreateComment(c.Request.Context(), review.CommentInput{
		BlockID:      payload.BlockID,
		StartOffset:  payload.StartOffset,
		EndOffset:    payload.EndOffset,
		SelectedText: payload.SelectedText,
		Body:         payload.Content,
		AuthorID:     principal.UserID,
	})
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *httpHandler) handleDeleteComment(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	err := h.review.DeleteComment(c.Request.Context(), c.Param("commentID"), principal.UserID, principal.IsAdmin)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleResolveComment(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	comment, err := h.review.ResolveComment(c.Request.Context(), c.Param("commentID"), principal.UserID)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

type replyCreatePayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleCreateReply(c *gin.Context) {
	var payload replyCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	reply, err := h.review.CreateReply(c.Request.Context(), c.Param("commentID"), payload.Content, principal.UserID)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (h *httpHandler) handleListSuggestions(c *gin.Context) {
	status := review.SuggestionStatus(c.Query("status"))
	suggestions, err := h.review.ListSuggestions(c.Request.Context(), viewerFrom(c), c.Query("block_id"), status)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

type suggestionCreatePayload struct {
	BlockID       string `json:"block_id"`
	StartOffset   int    `json:"start_offset"`
	EndOffset     int    `json:"end_offset"`
	OriginalText  string `json:"original_text"`
	SuggestedText string `json:"suggested_text"`
}

func (h *httpHandler) handleCreateSuggestion(c *gin.Context) {
	var payload suggestionCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.BlockID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	suggestion, err := h.review.CreateSuggestion(c.Request.Context(), review.SuggestionInput{
		BlockID:       payload.BlockID,
		StartOffset:   payload.StartOffset,
		EndOffset:     payload.EndOffset,
		OriginalText:  payload.OriginalText,
		SuggestedText: payload.SuggestedText,
		AuthorID:      principal.UserID,
	})
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusCreated, suggestion)
}

func (h *httpHandler) handleDeleteSuggestion(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	err := h.review.DeleteSuggestion(c.Request.Context(), c.Param("suggestionID"), principal.UserID)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reviewDecisionPayload struct {
	Note string `json:"note"`
}

func (h *httpHandler) handleAcceptSuggestion(c *gin.Context) {
	var payload reviewDecisionPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}

	principal, _ := currentPrincipal(c)
	suggestion, err := h.review.AcceptSuggestion(c.Request.Context(), c.Param("suggestionID"), principal.UserID, payload.Note)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

func (h *httpHandler) handleRejectSuggestion(c *gin.Context) {
	var payload reviewDecisionPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}

	principal, _ := currentPrincipal(c)
	suggestion, err := h.review.RejectSuggestion(c.Request.Context(), c.Param("suggestionID"), principal.UserID, payload.Note)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

func (h *httpHandler) handlePendingReview(c *gin.Context) {
	page, err := h.review.PendingReview(c.Request.Context())
	if err != nil {
		h.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
