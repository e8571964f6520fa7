package router

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardRoutes(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(AccountRoutes(handler.NewAccountHandler(nil))).
		Register(OrderRoutes(handler.NewOrderHandler(nil))).
		Register(FulfillmentRoutes(handler.NewFulfillmentHandler(nil, nil, nil))).
		Register(AdsRoutes(handler.NewAdsHandler(nil))).
		Setup()
	RegisterProxy(engine, handler.NewProxyHandler(nil))

	var got []string
	for _, route := range engine.Routes() {
		got = append(got, route.Method+" "+route.Path)
	}
	sort.Strings(got)

	want := []string{
		"GET /api/v1/account/credentials",
		"GET /api/v1/account/shops",
		"GET /api/v1/ads/summary",
		"GET /api/v1/orders/details",
		"GET /api/v1/orders/history",
		"OPTIONS /api/tiktok/proxy",
		"POST /api/tiktok/proxy",
		"POST /api/v1/account/connect",
		"POST /api/v1/account/credentials",
		"POST /api/v1/account/refresh",
		"POST /api/v1/fulfillment/packages/search",
		"POST /api/v1/fulfillment/ship",
		"POST /api/v1/fulfillment/waybills",
		"POST /api/v1/orders/search",
		"PUT /api/v1/account/shop",
	}
	assert.Equal(t, want, got)
}

func TestRegisterProxy_CORS(t *testing.T) {
	engine := gin.New()
	RegisterProxy(engine, handler.NewProxyHandler(nil))

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/tiktok/proxy", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{}`, w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("errors carry CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/tiktok/proxy", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
