package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
)

// AdminHandler handles reports and the admin console. Every admin route
// checks the role in the service layer.
type AdminHandler struct {
	moderation *services.ModerationService
	identity   *services.IdentityService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(moderation *services.ModerationService, identitySvc *services.IdentityService) *AdminHandler {
	return &AdminHandler{moderation: moderation, identity: identitySvc}
}

// RegisterReportRoutes registers the member-facing report route
func (h *AdminHandler) RegisterReportRoutes(g *echo.Group) {
	g.POST("/reports", h.CreateReport)
}

// RegisterAdminRoutes registers admin console routes
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.GET("/reports", h.ListReports)
	g.GET("/reports/stale", h.StaleReports)
	g.POST("/reports/:id/resolve", h.ResolveReport)
	g.POST("/reports/:id/dismiss", h.DismissReport)
	g.GET("/posts", h.ListPosts)
	g.DELETE("/posts/:id", h.DeleteThread)
	g.PUT("/users/:id/blocked", h.SetBlocked)
	g.PUT("/users/:id/role", h.SetRole)
	g.GET("/audit", h.AuditLog)
}

// CreateReport flags a post for review
func (h *AdminHandler) CreateReport(c echo.Context) error {
	var req models.CreateReportRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	report, err := h.moderation.CreateReport(c.Request().Context(), middleware.UID(c), req.ContentID, req.Reason, req.Details)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, report)
}

// ListReports lists pending reports, or every report with ?status=all
func (h *AdminHandler) ListReports(c echo.Context) error {
	var (
		reports []*models.Report
		err     error
	)
	if c.QueryParam("status") == "all" {
		reports, err = h.moderation.AllReports(c.Request().Context(), middleware.UID(c))
	} else {
		reports, err = h.moderation.PendingReports(c.Request().Context(), middleware.UID(c))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *AdminHandler) StaleReports(c echo.Context) error {
	reports, err := h.moderation.StaleReports(c.Request().Context(), middleware.UID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *AdminHandler) ResolveReport(c echo.Context) error {
	if err := h.moderation.ResolveReport(c.Request().Context(), c.Param("id"), middleware.UID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) DismissReport(c echo.Context) error {
	if err := h.moderation.DismissReport(c.Request().Context(), c.Param("id"), middleware.UID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPosts lists posts of every kind, deleted ones included
func (h *AdminHandler) ListPosts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	posts, err := h.moderation.AllPosts(c.Request().Context(), middleware.UID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

// DeleteThread removes a post and its direct replies
func (h *AdminHandler) DeleteThread(c echo.Context) error {
	if err := h.moderation.AdminDeleteThread(c.Request().Context(), c.Param("id"), middleware.UID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) SetBlocked(c echo.Context) error {
	var req models.SetBlockedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.identity.SetBlocked(c.Request().Context(), middleware.UID(c), c.Param("id"), req.Blocked); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) SetRole(c echo.Context) error {
	var req models.SetRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.identity.SetRole(c.Request().Context(), middleware.UID(c), c.Param("id"), req.Role); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) AuditLog(c echo.Context) error {
	actions, err := h.moderation.AuditLog(c.Request().Context(), middleware.UID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, actions)
}
