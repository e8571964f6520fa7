package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Pinger reports whether a backing service answers
type Pinger interface {
	Ping() error
}

// PingerFunc adapts a context-aware check, such as a Redis client's Ping
type PingerFunc func() error

// Ping calls f
func (f PingerFunc) Ping() error { return f() }

// HealthHandler reports the health of the database and optional services
type HealthHandler struct {
	database Pinger
	checks   map[string]Pinger
	now      func() time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(database Pinger) *HealthHandler {
	return &HealthHandler{
		database: database,
		checks:   make(map[string]Pinger),
		now:      time.Now,
	}
}

// WithCheck adds a named dependency to the report. A failing extra check
// marks the service degraded without failing the probe.
func (h *HealthHandler) WithCheck(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	return h
}

// Check answers 200 while the database is reachable and 503 otherwise
func (h *HealthHandler) Check(c *gin.Context) {
	reqLog := logger.GetGinLogger(c)
	body := gin.H{"time": h.now().Format(time.RFC3339)}

	status := "healthy"
	code := http.StatusOK
	if err := h.database.Ping(); err != nil {
		reqLog.Warn("Health check failed", zap.Error(err))
		body["database"] = "error"
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		body["database"] = "ok"
	}

	for name, p := range h.checks {
		if err := p.Ping(); err != nil {
			reqLog.Warn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
			body[name] = "error"
			if code == http.StatusOK {
				status = "degraded"
			}
			continue
		}
		body[name] = "ok"
	}

	body["status"] = status
	c.JSON(code, body)
}

// ContextPinger bounds a context-aware check with a timeout
func ContextPinger(timeout time.Duration, ping func(ctx context.Context) error) Pinger {
	return PingerFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ping(ctx)
	})
}
