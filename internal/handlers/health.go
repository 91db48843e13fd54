package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness and the configured backends
type HealthHandler struct {
	env   string
	store string
	auth  string
}

func NewHealthHandler(env, store, auth string) *HealthHandler {
	return &HealthHandler{env: env, store: store, auth: auth}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "healthy",
		"service":  "chirp-api",
		"env":      h.env,
		"store":    h.store,
		"identity": h.auth,
	})
}
