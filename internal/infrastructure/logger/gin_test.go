package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func findHTTPLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1, "HTTP Request log should exist")
	return entries[0]
}

func newLoggedRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-123")
		c.Next()
	})
	router.Use(GinMiddleware(logger))
	return router
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"ok", http.StatusOK, zapcore.InfoLevel},
		{"client error", http.StatusBadRequest, zapcore.WarnLevel},
		{"server error", http.StatusBadGateway, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := newLoggedRouter(zap.New(core))
			router.GET("/orders", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))

			entry := findHTTPLog(t, recorded)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, int64(tt.status), entry.ContextMap()["status"])
		})
	}
}

func TestGinMiddleware_FieldsAndContext(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	router := newLoggedRouter(zap.New(core))

	var ctxRequestID string
	router.GET("/orders/history", func(c *gin.Context) {
		ctxRequestID = GetRequestID(c.Request.Context())
		c.Set(GinUserIDKey, "user-7")
		GetGinLogger(c).Info("handler ran")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/history?limit=10", nil))

	assert.Equal(t, "req-123", ctxRequestID)

	handlerLogs := recorded.FilterMessage("handler ran").All()
	require.Len(t, handlerLogs, 1)
	assert.Equal(t, "req-123", handlerLogs[0].ContextMap()["request_id"])

	fields := findHTTPLog(t, recorded).ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/orders/history", fields["path"])
	assert.Equal(t, "limit=10", fields["query"])
	assert.Equal(t, "user-7", fields["user_id"])
	assert.Contains(t, fields, "latency")
	assert.Contains(t, fields, "client_ip")
}

func TestGinMiddleware_RedactsSecretsInQuery(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	router := newLoggedRouter(zap.New(core))
	router.GET("/account/connect", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/account/connect?app_key=abc&app_secret=s3cr3t&auth_code=xyz", nil))

	query := findHTTPLog(t, recorded).ContextMap()["query"]
	assert.Equal(t, "app_key=abc&app_secret=REDACTED&auth_code=REDACTED", query)
	assert.NotContains(t, query, "s3cr3t")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	require.Len(t, recorded.FilterMessage("Panic recovered").All(), 1)
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	l := GetGinLogger(c)
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("ignored") })
}
