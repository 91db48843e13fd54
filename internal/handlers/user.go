package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
)

// UserHandler handles HTTP requests related to accounts and profiles
type UserHandler struct {
	identity *services.IdentityService
	graph    *services.GraphService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(identitySvc *services.IdentityService, graph *services.GraphService) *UserHandler {
	return &UserHandler{identity: identitySvc, graph: graph}
}

// RegisterProfileRoutes registers account and profile routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PATCH("/profile", h.UpdateProfile)
	g.GET("/users", h.ListUsers)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/handle/:handle", h.GetUserByHandle)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/followers", h.Followers)
	g.GET("/users/:id/following", h.Following)
}

// GetProfile retrieves the authenticated user's account
func (h *UserHandler) GetProfile(c echo.Context) error {
	account, err := h.identity.Get(c.Request().Context(), middleware.UID(c))
	if err != nil {
		return respondError(c, err)
	}
	if account == nil {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	return c.JSON(http.StatusOK, account)
}

// UpdateProfile merges the given fields into the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var patch models.ProfilePatch
	if err := bindAndValidate(c, &patch); err != nil {
		return err
	}
	uid := middleware.UID(c)
	if err := h.identity.UpdateProfile(c.Request().Context(), uid, patch); err != nil {
		return respondError(c, err)
	}
	return h.GetProfile(c)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	account, err := h.identity.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if account == nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, account)
}

func (h *UserHandler) GetUserByHandle(c echo.Context) error {
	account, err := h.identity.LookupByHandle(c.Request().Context(), c.Param("handle"))
	if err != nil {
		return respondError(c, err)
	}
	if account == nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, account)
}

// ListUsers lists accounts, newest first
func (h *UserHandler) ListUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}
	accounts, err := h.identity.ListAccounts(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, accounts)
}

// SearchUsers runs a prefix search on handles and display names
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	accounts, err := h.identity.Search(c.Request().Context(), query, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *UserHandler) Followers(c echo.Context) error {
	accounts, err := h.graph.Followers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *UserHandler) Following(c echo.Context) error {
	accounts, err := h.graph.Following(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, accounts)
}
