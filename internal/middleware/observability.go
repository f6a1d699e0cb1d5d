package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/auth-service/internal/logger"
)

// RequestLogger writes one entry per request after the handler and the
// error handler have run.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			l := logger.WithRequestID(log, res.Header().Get(echo.HeaderXRequestID))
			switch {
			case res.Status >= http.StatusInternalServerError:
				l.Error("http_request", append(fields, zap.Error(err))...)
			case res.Status >= http.StatusBadRequest:
				l.Warn("http_request", fields...)
			default:
				l.Info("http_request", fields...)
			}
			return nil
		}
	}
}

// Recover turns a panic into a 500, reporting it to Sentry with the
// stack attached.
func Recover(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				stack := string(debug.Stack())
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetRequest(c.Request())
					scope.SetExtra("panic", fmt.Sprint(rec))
					scope.SetExtra("stack", stack)
					sentry.CaptureMessage("panic in request")
				})
				log.Error("panic_recovered",
					zap.String("method", c.Request().Method),
					zap.String("path", c.Request().URL.Path),
					zap.Any("panic", rec),
					zap.String("stack", stack))
				// already reported; the error handler only writes the 500
				err = echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").
					SetInternal(fmt.Errorf("panic: %v", rec))
			}()
			return next(c)
		}
	}
}
