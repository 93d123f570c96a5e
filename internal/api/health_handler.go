package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger probes one backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to the Pinger interface.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports service liveness with backend checks.
type HealthHandler struct {
	version string
	db      Pinger
	redis   Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, db, redis Pinger) *HealthHandler {
	return &HealthHandler{
		version: version,
		db:      db,
		redis:   redis,
	}
}

// healthResponse is the GET /health payload.
type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// Health handles GET /health. Any failing backend degrades the overall
// status and the response code.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	checks := map[string]string{
		"database": checkStatus(ctx, h.db),
		"redis":    checkStatus(ctx, h.redis),
	}

	status := "ok"
	code := http.StatusOK

	for _, check := range checks {
		if check != "ok" {
			status = "degraded"
			code = http.StatusServiceUnavailable

			break
		}
	}

	c.JSON(code, healthResponse{
		Status:  status,
		Version: h.version,
		Checks:  checks,
	})
}

func checkStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "not configured"
	}

	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}

	return "ok"
}
