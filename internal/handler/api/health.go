package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "Moatline/pkg/http"
)

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves /health. Every registered check must pass for a 200.
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

var _ xhttp.Handler = (*HealthHandler)(nil)

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	out := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			out[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}
	return xhttp.DataResponse(c, status, out)
}
