package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/identity"
)

// UIDKey is the echo context key holding the authenticated account id.
const UIDKey = "uid"

// AuthMiddleware verifies the bearer token with verifier and stores the
// account id in the context. Streams cannot set headers from a browser, so
// an access_token query parameter is accepted too.
func AuthMiddleware(verifier identity.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return err
			}

			uid, err := verifier.Principal(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(UIDKey, uid)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("access_token"); token != "" {
			return token, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], nil
}

// UID returns the authenticated account id, empty outside AuthMiddleware.
func UID(c echo.Context) string {
	uid, _ := c.Get(UIDKey).(string)
	return uid
}
