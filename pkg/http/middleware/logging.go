package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "WindowOpt/pkg/logger"
)

// RequestLogging logs one line per HTTP request.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			if l == nil {
				return nil
			}

			req := c.Request()
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("route", c.Path()),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, applogger.Error(err))
			}
			if c.Response().Status >= 500 {
				l.Error("http request", fields...)
			} else {
				l.Info("http request", fields...)
			}
			return nil
		}
	}
}
