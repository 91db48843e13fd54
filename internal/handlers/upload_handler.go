package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
	"github.com/anonto42/chirp/backend/internal/storage"
)

// UploadHandler stores avatar and post images
type UploadHandler struct {
	uploader *storage.Uploader
	identity *services.IdentityService
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploader *storage.Uploader, identitySvc *services.IdentityService) *UploadHandler {
	return &UploadHandler{uploader: uploader, identity: identitySvc}
}

// RegisterUploadRoutes registers upload routes
func (h *UploadHandler) RegisterUploadRoutes(g *echo.Group) {
	g.POST("/uploads/:kind", h.Upload)
}

// Upload stores the multipart field "file" and returns its URL. A blocked
// caller stores nothing. An avatar upload also updates the caller's profile.
func (h *UploadHandler) Upload(c echo.Context) error {
	kind := storage.Kind(c.Param("kind"))
	if kind != storage.KindAvatar && kind != storage.KindPost {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown upload kind")
	}
	uid := middleware.UID(c)
	if _, err := h.identity.CheckLogin(c.Request().Context(), uid); err != nil {
		return respondError(c, err)
	}
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Multipart field 'file' is required")
	}
	if file.Size > storage.MaxUploadBytes {
		return respondError(c, services.New(services.ErrInvalidUpload, "file exceeds 5 MB"))
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot read upload")
	}
	defer src.Close()

	url, err := h.uploader.Upload(c.Request().Context(), uid, kind, src)
	if err != nil {
		return respondError(c, err)
	}
	if kind == storage.KindAvatar {
		// the object is stored, so a failed profile write leaves a usable URL
		if err := h.identity.UpdateProfile(c.Request().Context(), uid, models.ProfilePatch{AvatarRef: &url}); err != nil {
			return respondPartial(c, services.Partial("profile avatar update", err), echo.Map{"url": url})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"url": url})
}
