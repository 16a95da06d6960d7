package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/logger"
)

// RequestLogger emits one structured log line per request.
func RequestLogger(lg *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			lg.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Str("ip", c.RealIP()).
				Dur("latency", time.Since(start)).
				Msg("request")
			return err
		}
	}
}
