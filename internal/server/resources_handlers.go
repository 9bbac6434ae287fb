package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfellowship/commons/backend/internal/resources"
)

var resourceErrorTable = []errorStatus{
	{resources.ErrResourceNotFound, http.StatusNotFound},
	{resources.ErrNotSubmitter, http.StatusForbidden},
	{resources.ErrInvalidType, http.StatusBadRequest},
	{resources.ErrEmptyFields, http.StatusBadRequest},
}

func (h *httpHandler) mountResourceRoutes(router *gin.Engine) {
	if h.resources == nil {
		return
	}
	group := router.Group("/resources")

	group.GET("", h.optionalAuth, h.handleListResources)
	group.POST("", h.requireAuth, h.handleSubmitResource)
	group.GET("/:resourceID", h.handleGetResource)
	group.PUT("/:resourceID", h.requireAuth, h.handleUpdateResource)
	group.DELETE("/:resourceID", h.requireAuth, h.handleDeleteResource)
	group.POST("/:resourceID/vote", h.requireAuth, h.handleUpvoteResource)
	group.POST("/:resourceID/approve", h.requireAuth, h.requireAdmin, h.handleApproveResource)
}

func (h *httpHandler) handleListResources(c *gin.Context) {
	viewerID := ""
	viewerIsAdmin := false
	if principal, ok := currentPrincipal(c); ok {
		viewerID = principal.UserID
		viewerIsAdmin = principal.IsAdmin
	}

	list, err := h.resources.List(c.Request.Context(), viewerID, viewerIsAdmin, resources.ResourceType(c.Query("type")))
	if err != nil {
		h.respondDomainError(c, err, resourceErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": list})
}

type resourceSubmitPayload struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	ResourceType string `json:"resource_type"`
}

func (h *httpHandler) handleSubmitResource(c *gin.Context) {
	var payload resourceSubmitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	resource, err := h.resources.Submit(c.Request.Context(), resources.ResourceInput{
		SubmitterID:  principal.UserID,
		Title:        payload.Title,
		Description:  payload.Description,
		URL:          payload.URL,
		ResourceType: resources.ResourceType(payload.ResourceType),
	})
	if err != nil {
		h.respondDomainError(c, err, resourceErrorTable)
		return
	}
	c.JSON(http.StatusCreated, resource)
}

func (h *httpHandler) handleGetResource(c *gin.Context) {
	resource, err := h.resources.Get(c.Request.Context(), c.Param("resourceID"))
	if err != nil {
		h.respondDomainError(c, err, resourceErrorTable)
		return
	}
	c.JSON(http.StatusOK, resource)
}

type resourceUpdatePayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
}

func (h *httpHandler) handleUpdateResource(c *gin.Context) {
	var payload resourceUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	resource, err := h.resources.Update(c.Request.Context(), c.Param("resourceID"), principal.UserID, resources.ResourceUpdate{
		Title:       payload.Title,
		Description: payload.Description,
		URL:         payload.URL,
	})
	if err != nil {
		h.respondDomainError(c, err, resourceErrorTable)
		return
	}
	c.JSON(http.StatusOK, resource)
}

func (h *httpHandler) handleDeleteResource(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	err := h.resources.Delete(c.Request.Context(), c.Param("resourceID"), principal.UserID, principal.IsAdmin)
	if err != nil {
		h.respondDomainError(c, err, resourceErrorTable)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleUpvoteResource(c *gin.Context) {
	resource, err := h.resources.Upvote(c.Request.Context(), c.Param("resourceID"))
	if err != nil {
		h.respondDomainError(c, err, resourceErrorTable)
		return
	}
	c.JSON(http.StatusOK, resource)
}

func (h *httpHandler) handleApproveResource(c *gin.Context) {
	resource, err := h.resources.Approve(c.Request.Context(), c.Param("resourceID"))
	if err != nil {
		h.respondDomainError(c, err, resourceErrorTable)
		return
	}
	c.JSON(http.StatusOK, resource)
}
