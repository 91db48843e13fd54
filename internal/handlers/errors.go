package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/services"
	"github.com/anonto42/chirp/backend/pkg/logger"
	"github.com/anonto42/chirp/backend/validators"
)

// PartialResponse is written with 207 when an operation stopped after some
// of its writes committed. Retrying the same request finishes it.
type PartialResponse struct {
	Partial bool        `json:"partial"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func statusOf(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindPartialFailure:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service error to an HTTP response.
func respondError(c echo.Context, err error) error {
	return respondPartial(c, err, nil)
}

// respondPartial is respondError that attaches data to a 207 body.
func respondPartial(c echo.Context, err error, data interface{}) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		logger.L().Error("unexpected handler error", zap.String("path", c.Path()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	switch svcErr.Kind {
	case services.KindPartialFailure:
		return c.JSON(http.StatusMultiStatus, PartialResponse{
			Partial: true,
			Code:    svcErr.Code,
			Message: svcErr.Message,
			Data:    data,
		})
	case services.KindInternal:
		logger.L().Error("service failure", zap.String("path", c.Path()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	default:
		return echo.NewHTTPError(statusOf(svcErr.Kind), echo.Map{"code": svcErr.Code, "message": svcErr.Message})
	}
}

// bindAndValidate decodes the request body into req and runs the validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"code": "invalid_request", "fields": validators.Messages(err)})
	}
	return nil
}
