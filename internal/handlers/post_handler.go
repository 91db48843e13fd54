package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
)

// PostHandler handles HTTP requests related to posts, replies and reposts
type PostHandler struct {
	timeline *services.TimelineService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(timeline *services.TimelineService) *PostHandler {
	return &PostHandler{timeline: timeline}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/posts/:id/replies", h.GetReplies)
	g.POST("/posts/:id/repost", h.Repost)
	g.DELETE("/posts/:id/repost", h.UndoRepost)
	g.GET("/users/:id/posts", h.GetPostsByAuthor)
}

// CreatePost creates a new root post or, with parentId, a reply
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.timeline.CreatePost(c.Request().Context(), middleware.UID(c), services.CreatePostInput{
		Body:     req.Body,
		ImageRef: req.ImageRef,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.timeline.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if post == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost soft-deletes one of the caller's posts
func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.timeline.DeletePost(c.Request().Context(), c.Param("id"), middleware.UID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetReplies lists the replies of a post, oldest first
func (h *PostHandler) GetReplies(c echo.Context) error {
	replies, err := h.timeline.Replies(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, replies)
}

// GetPostsByAuthor lists the root posts of one account, newest first
func (h *PostHandler) GetPostsByAuthor(c echo.Context) error {
	posts, err := h.timeline.AuthorFeed(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) Repost(c echo.Context) error {
	repost, err := h.timeline.Repost(c.Request().Context(), c.Param("id"), middleware.UID(c))
	if err != nil {
		return respondPartial(c, err, repost)
	}
	return c.JSON(http.StatusCreated, repost)
}

func (h *PostHandler) UndoRepost(c echo.Context) error {
	if err := h.timeline.UndoRepost(c.Request().Context(), c.Param("id"), middleware.UID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
