package http

import (
	"errors"
	"net/http"

	"orders/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// statusFor maps an application error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(ctx echo.Context, err error) error {
	status := statusFor(err)
	message := err.Error()

	switch status {
	case http.StatusInternalServerError:
		s.logger.ErrorContext(ctx.Request().Context(), "request failed", "path", ctx.Path(), "error", err)
		message = http.StatusText(status)
	case http.StatusServiceUnavailable:
		s.logger.WarnContext(ctx.Request().Context(), "request failed, retry later", "path", ctx.Path(), "error", err)
	}

	return ctx.JSON(status, Error{Code: status, Message: message})
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}
