package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openfellowship/commons/backend/internal/geo"
)

var mapErrorTable = []errorStatus{
	{geo.ErrLocationNotFound, http.StatusNotFound},
	{geo.ErrInvalidCoordinate, http.StatusBadRequest},
	{geo.ErrInvalidStatus, http.StatusBadRequest},
}

func (h *httpHandler) mountMapRoutes(router *gin.Engine) {
	if h.geo == nil {
		return
	}
	group := router.Group("/map")

	group.PUT("/location", h.requireAuth, h.handleUpsertLocation)
	group.GET("/location", h.requireAuth, h.handleOwnLocation)
	group.DELETE("/location", h.requireAuth, h.handleDeleteLocation)
	group.GET("/locations", h.requireAuth, h.handleNearbyLocations)
	group.GET("/locations/public", h.handlePublicLocations)
	group.GET("/stats", h.handleMapStats)
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsPublic  *bool   `json:"is_public"`
	Status    string  `json:"status"`
}

func (h *httpHandler) handleUpsertLocation(c *gin.Context) {
	var payload locationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	isPublic := true
	if payload.IsPublic != nil {
		isPublic = *payload.IsPublic
	}

	principal, _ := currentPrincipal(c)
	location, err := h.geo.UpsertLocation(c.Request.Context(), principal.UserID, geo.LocationInput{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		IsPublic:  isPublic,
		Status:    geo.LocationStatus(payload.Status),
	})
	if err != nil {
		h.respondDomainError(c, err, mapErrorTable)
		return
	}
	c.JSON(http.StatusOK, location)
}

func (h *httpHandler) handleOwnLocation(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	location, err := h.geo.OwnLocation(c.Request.Context(), principal.UserID)
	if err != nil {
		h.respondDomainError(c, err, mapErrorTable)
		return
	}
	c.JSON(http.StatusOK, location)
}

func (h *httpHandler) handleDeleteLocation(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	if err := h.geo.DeleteLocation(c.Request.Context(), principal.UserID); err != nil {
		h.respondDomainError(c, err, mapErrorTable)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleNearbyLocations(c *gin.Context) {
	radiusKm := 0.0
	if raw := c.Query("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_radius"})
			return
		}
		radiusKm = parsed
	}

	principal, _ := currentPrincipal(c)
	locations, err := h.geo.Nearby(c.Request.Context(), principal.UserID, radiusKm)
	if err != nil {
		h.respondDomainError(c, err, mapErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

func (h *httpHandler) handlePublicLocations(c *gin.Context) {
	locations, err := h.geo.PublicLocations(c.Request.Context())
	if err != nil {
		h.respondDomainError(c, err, mapErrorTable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

func (h *httpHandler) handleMapStats(c *gin.Context) {
	stats, err := h.geo.MapStats(c.Request.Context())
	if err != nil {
		h.respondDomainError(c, err, mapErrorTable)
		return
	}
	c.JSON(http.StatusOK, stats)
}
