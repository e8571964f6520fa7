package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthRequest(t *testing.T, h *HealthHandler) (int, map[string]any) {
	t.Helper()
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	h.Check(c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthHandler_Check(t *testing.T) {
	ok := PingerFunc(func() error { return nil })
	down := PingerFunc(func() error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		database   Pinger
		redis      Pinger
		wantCode   int
		wantStatus string
		wantRedis  any
	}{
		{"all up", ok, ok, http.StatusOK, "healthy", "ok"},
		{"database down", down, ok, http.StatusServiceUnavailable, "unhealthy", "ok"},
		{"redis down", ok, down, http.StatusOK, "degraded", "error"},
		{"no redis", ok, nil, http.StatusOK, "healthy", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.database)
			if tt.redis != nil {
				h.WithCheck("redis", tt.redis)
			}

			code, body := healthRequest(t, h)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, "2026-03-01T12:00:00Z", body["time"])
			assert.Equal(t, tt.wantRedis, body["redis"])
		})
	}
}

func TestContextPinger_AppliesDeadline(t *testing.T) {
	p := ContextPinger(time.Second, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		return nil
	})
	assert.NoError(t, p.Ping())
}
