package handler

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/auth-service/internal/auth"
)

// StatusFor maps an engine error kind to the HTTP status clients see.
func StatusFor(k auth.Kind) int {
	switch k {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindInvalidCredentials, auth.KindTokenInvalid:
		return http.StatusUnauthorized
	case auth.KindAccountDisabled:
		return http.StatusForbidden
	case auth.KindAccountLocked:
		return http.StatusLocked
	case auth.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {success:false, message}. Internal
// errors are logged and sent to Sentry; their cause never reaches the
// client.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := http.StatusInternalServerError, auth.ErrInternal.Message
		var he *echo.HTTPError
		var ae *auth.Error
		switch {
		case errors.As(err, &ae):
			status, msg = StatusFor(ae.Kind), ae.Message
			if ae.Kind == auth.KindInternal {
				report(log, c, err)
			}
		case errors.As(err, &he):
			status = he.Code
			if m, ok := he.Message.(string); ok && status < http.StatusInternalServerError {
				msg = m
			}
		default:
			report(log, c, err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"success": false, "message": msg})
		}
		if err != nil {
			log.Error("write error response", zap.Error(err))
		}
	}
}

func report(log *zap.Logger, c echo.Context, err error) {
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	if hub := sentry.CurrentHub().Clone(); hub.Client() != nil {
		hub.Scope().SetRequest(c.Request())
		hub.CaptureException(err)
	}
}
