package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	engagement *services.EngagementService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(engagement *services.EngagementService) *LikeHandler {
	return &LikeHandler{engagement: engagement}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/like", h.ToggleLike)
	g.GET("/posts/:id/like", h.GetLikeStatus)
}

// ToggleLike flips the caller's like. The body carries the state the client
// last showed, so a double tap never counts twice.
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	var req models.ToggleLikeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	state, err := h.engagement.ToggleLike(c.Request().Context(), c.Param("id"), middleware.UID(c), req.Liked)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// GetLikeStatus reports whether the caller likes the post
func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	liked, err := h.engagement.HasLiked(c.Request().Context(), c.Param("id"), middleware.UID(c))
	if err != nil {
		return respondError(c, err)
	}
	reposted, err := h.engagement.HasReposted(c.Request().Context(), c.Param("id"), middleware.UID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"contentId": c.Param("id"), "liked": liked, "reposted": reposted})
}
