package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// BodyLimit rejects request bodies larger than limit bytes. Bodies with a
// declared length are rejected up front; others fail on read.
func BodyLimit(limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.ContentLength > limit {
				return echo.ErrStatusRequestEntityTooLarge
			}
			if req.Body != nil {
				req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)
			}
			return next(c)
		}
	}
}
