package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	timeline *services.TimelineService
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(timeline *services.TimelineService) *FeedHandler {
	return &FeedHandler{timeline: timeline}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/explore", h.GetExplore)
}

// FeedItem is a post with the viewer's like and repost flags
type FeedItem struct {
	*models.Post
	Liked    bool `json:"liked"`
	Reposted bool `json:"reposted"`
}

// enrich sets the viewer flags from the stored sets. Repost items carry
// empty sets, so clients read the flags of the original for them.
func enrich(posts []*models.Post, viewerID string) []FeedItem {
	items := make([]FeedItem, len(posts))
	for i, p := range posts {
		items[i] = FeedItem{Post: p, Liked: p.LikedBy(viewerID), Reposted: p.RepostedBy(viewerID)}
	}
	return items
}

// GetFeed returns the caller's root feed, newest first
func (h *FeedHandler) GetFeed(c echo.Context) error {
	uid := middleware.UID(c)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	posts, err := h.timeline.HomeFeed(c.Request().Context(), uid, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, enrich(posts, uid))
}

// GetExplore returns the latest root posts of everyone
func (h *FeedHandler) GetExplore(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	posts, err := h.timeline.RecentPosts(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, enrich(posts, middleware.UID(c)))
}
