package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfellowship/commons/backend/internal/groups"
)

var groupErrorTable = []errorStatus{
	{groups.ErrGroupNotFound, http.StatusNotFound},
	{groups.ErrMemberNotFound, http.StatusNotFound},
	{groups.ErrAlreadyMember, http.StatusConflict},
	{groups.ErrGroupFull, http.StatusConflict},
	{groups.ErrNotPermitted, http.StatusForbidden},
	{groups.ErrNotCreator, http.StatusForbidden},
	{groups.ErrSelfRoleChange, http.StatusForbidden},
	{groups.ErrInvalidRole, http.StatusBadRequest},
	{groups.ErrEmptyName, http.StatusBadRequest},
	{groups.ErrInvalidCapacity, http.StatusBadRequest},
}

func (h *httpHandler) mountGroupRoutes(router *gin.Engine) {
	if h.groups == nil {
		return
	}
	group := router.Group("/groups")

	group.GET("", h.optionalAuth, h.handleListGroups)
	group.POST("", h.requireAuth, h.handleCreateGroup)
	group.GET("/:groupID", h.handleGetGroup)
	group.PUT("/:groupID", h.requireAuth, h.handleUpdateGroup)
	group.DELETE("/:groupID", h.requireAuth, h.handleDeleteGroup)
	group.POST("/:groupID/join", h.requireAuth, h.handleJoinGroup)
	group.GET("/:groupID/members", h.handleListMembers)
	group.PUT("/:groupID/members/:userID", h.requireAuth, h.handleSetMemberRole)
	group.DELETE("/:groupID/members/:userID", h.requireAuth, h.handleRemoveMember)
}

func (h *httpHandler) handleListGroups(c *gin.Context) {
	viewerID := ""
	if principal, ok := currentPrincipal(c); ok {
		viewerID = principal.UserID
	}
	list, err := h.groups.ListGroups(c.Request.Context(), viewerID)
	if err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": list})
}

type groupCreatePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxMembers  int    `json:"max_members"`
	IsPrivate   bool   `json:"is_private"`
}

func (h *httpHandler) handleCreateGroup(c *gin.Context) {
	var payload groupCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if payload.MaxMembers == 0 {
		payload.MaxMembers = 20
	}

	principal, _ := currentPrincipal(c)
	group, err := h.groups.CreateGroup(c.Request.Context(), groups.GroupInput{
		Name:        payload.Name,
		Description: payload.Description,
		CreatorID:   principal.UserID,
		MaxMembers:  payload.MaxMembers,
		IsPrivate:   payload.IsPrivate,
	})
	if err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (h *httpHandler) handleGetGroup(c *gin.Context) {
	group, err := h.groups.GetGroup(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.JSON(http.StatusOK, group)
}

type groupUpdatePayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MaxMembers  *int    `json:"max_members"`
	IsPrivate   *bool   `json:"is_private"`
}

func (h *httpHandler) handleUpdateGroup(c *gin.Context) {
	var payload groupUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	group, err := h.groups.UpdateGroup(c.Request.Context(), c.Param("groupID"), principal.UserID, groups.GroupUpdate{
		Name:        payload.Name,
		Description: payload.Description,
		MaxMembers:  payload.MaxMembers,
		IsPrivate:   payload.IsPrivate,
	})
	if err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *httpHandler) handleDeleteGroup(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	if err := h.groups.DeleteGroup(c.Request.Context(), c.Param("groupID"), principal.UserID); err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleJoinGroup(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	member, err := h.groups.Join(c.Request.Context(), c.Param("groupID"), principal.UserID)
	if err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *httpHandler) handleListMembers(c *gin.Context) {
	members, err := h.groups.Members(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

type memberRolePayload struct {
	Role string `json:"role"`
}

func (h *httpHandler) handleSetMemberRole(c *gin.Context) {
	var payload memberRolePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	principal, _ := currentPrincipal(c)
	member, err := h.groups.SetMemberRole(
		c.Request.Context(),
		c.Param("groupID"),
		principal.UserID,
		c.Param("userID"),
		groups.MemberRole(payload.Role),
	)
	if err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *httpHandler) handleRemoveMember(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	err := h.groups.RemoveMember(c.Request.Context(), c.Param("groupID"), principal.UserID, c.Param("userID"))
	if err != nil {
		h.respondDomainError(c, err, groupErrorTable)
		return
	}
	c.Status(http.StatusNoContent)
}
