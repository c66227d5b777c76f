package main

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	authmw "noteflow/internal/middleware"
)

// zapLoggerMiddleware logs every request with its outcome.
func zapLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			err := next(c)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", res.Status),
				zap.Int64("bytes_out", res.Size),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if reqID := res.Header().Get(echo.HeaderXRequestID); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
			if uid := authmw.UserID(c); uid != "" {
				fields = append(fields, zap.String("user_id", uid))
			}

			switch {
			case err != nil:
				fields = append(fields, zap.Error(err))
				zap.L().Error("Request failed", fields...)
			case res.Status >= 500:
				zap.L().Error("Server error", fields...)
			case res.Status >= 400:
				zap.L().Warn("Client error", fields...)
			default:
				zap.L().Debug("Request completed", fields...)
			}
			return err
		}
	}
}
