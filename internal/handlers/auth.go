package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/identity"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
)

// AuthHandler handles registration and sign-in
type AuthHandler struct {
	identity *services.IdentityService
	// local is nil when Firebase Auth issues the tokens
	local *identity.LocalProvider
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(identitySvc *services.IdentityService, local *identity.LocalProvider) *AuthHandler {
	return &AuthHandler{identity: identitySvc, local: local}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.GET("/handles/:handle", h.HandleAvailable)
	if h.local != nil {
		g.POST("/signin", h.SignIn)
	}
}

// Register opens an account. With the local provider the response carries a
// token; Firebase clients sign in with the Firebase SDK afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	uid, err := h.identity.Register(c.Request().Context(), services.RegisterInput{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		return respondPartial(c, err, echo.Map{"uid": uid})
	}

	resp := echo.Map{"uid": uid}
	if h.local != nil {
		token, err := h.local.IssueToken(uid, req.Email)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
		}
		resp["token"] = token
	}
	return c.JSON(http.StatusCreated, resp)
}

// SignIn handles local authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, uid, err := h.local.SignIn(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrBadLogin) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to sign in")
	}

	account, err := h.identity.CheckLogin(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "account": account})
}

// HandleAvailable reports whether a handle can still be registered
func (h *AuthHandler) HandleAvailable(c echo.Context) error {
	handle := c.Param("handle")
	if !services.HandlePattern.MatchString(handle) {
		return c.JSON(http.StatusOK, echo.Map{"handle": handle, "available": false, "valid": false})
	}
	account, err := h.identity.LookupByHandle(c.Request().Context(), handle)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"handle": handle, "available": account == nil, "valid": true})
}
