package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	graph *services.GraphService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(graph *services.GraphService) *FollowHandler {
	return &FollowHandler{graph: graph}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.DELETE("/profile/followers/:id", h.RemoveFollower)
}

// FollowUser makes the authenticated user follow :id
func (h *FollowHandler) FollowUser(c echo.Context) error {
	targetID := c.Param("id")
	if err := h.graph.Follow(c.Request().Context(), middleware.UID(c), targetID); err != nil {
		return respondPartial(c, err, models.FollowState{AccountID: targetID, Following: true, Partial: true})
	}
	return c.JSON(http.StatusOK, models.FollowState{AccountID: targetID, Following: true})
}

// UnfollowUser undoes FollowUser. Unfollowing someone not followed succeeds.
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	targetID := c.Param("id")
	if err := h.graph.Unfollow(c.Request().Context(), middleware.UID(c), targetID); err != nil {
		return respondPartial(c, err, models.FollowState{AccountID: targetID, Following: false, Partial: true})
	}
	return c.JSON(http.StatusOK, models.FollowState{AccountID: targetID, Following: false})
}

// RemoveFollower drops :id from the authenticated user's followers
func (h *FollowHandler) RemoveFollower(c echo.Context) error {
	followerID := c.Param("id")
	if err := h.graph.RemoveFollower(c.Request().Context(), middleware.UID(c), followerID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
