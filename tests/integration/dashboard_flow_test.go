package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	accountapp "github.com/shopdesk/backend/internal/application/account"
	ordersapp "github.com/shopdesk/backend/internal/application/orders"
	"github.com/shopdesk/backend/internal/infrastructure/auth"
	"github.com/shopdesk/backend/internal/infrastructure/config"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
	"github.com/shopdesk/backend/internal/infrastructure/persistence"
	"github.com/shopdesk/backend/internal/interfaces/http/handler"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
	"github.com/shopdesk/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	flowAppKey    = "6abc1def"
	flowAppSecret = "flow-app-secret"
	flowCipher    = "ROW_flow_cipher"
)

// fakeShopAPI plays the marketplace open API. Every call must carry a valid
// signature; otherwise it answers with the upstream signature error.
type fakeShopAPI struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeShopAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	if !f.signatureValid(r) {
		writeEnvelope(w, 106001, "Invalid signature", nil)
		return
	}
	if r.Header.Get(ecommerce.HeaderAccessToken) != "ROW_flow_token" {
		writeEnvelope(w, 105002, "Expired credentials", nil)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == ecommerce.PathAuthorizedShops:
		writeEnvelope(w, 0, "Success", map[string]any{
			"shops": []map[string]any{
				{"id": "7495213", "name": "Kedai Demo", "region": "MY", "seller_type": "LOCAL", "cipher": flowCipher, "code": "MYLCX"},
			},
		})
	case r.Method == http.MethodPost && r.URL.Path == ecommerce.PathOrderSearch:
		writeEnvelope(w, 0, "Success", map[string]any{
			"orders":      []map[string]any{{"id": "576469615385382345"}, {"id": "576469615385382346"}},
			"total_count": 2,
		})
	case r.Method == http.MethodGet && r.URL.Path == ecommerce.PathOrderDetails:
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		orders := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			orders = append(orders, map[string]any{
				"id":          id,
				"status":      "AWAITING_SHIPMENT",
				"create_time": 1775000000,
				"update_time": 1775000100,
				"recipient_address": map[string]any{
					"name":         "Aisyah",
					"phone_number": "(+60)12****89",
					"full_address": "Jalan Ampang, Kuala Lumpur",
				},
				"payment": map[string]any{"currency": "MYR", "total_amount": "19.99"},
			})
		}
		writeEnvelope(w, 0, "Success", map[string]any{"orders": orders})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"message":"not found"}`))
	}
}

// signatureValid recomputes the signature the way the open platform does
func (f *fakeShopAPI) signatureValid(r *http.Request) bool {
	query := r.URL.Query()
	params := make(map[string]any, len(query))
	for k := range query {
		if k == ecommerce.ParamSign || k == ecommerce.ParamAccessToken {
			continue
		}
		params[k] = query.Get(k)
	}

	var body map[string]any
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	if len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return false
		}
	}

	want, err := ecommerce.SignRequest(flowAppSecret, r.URL.Path, params, body)
	return err == nil && want == query.Get(ecommerce.ParamSign)
}

func (f *fakeShopAPI) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	payload := map[string]any{"code": code, "message": message, "request_id": "2026041609301234"}
	if data != nil {
		payload["data"] = data
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

type dashboard struct {
	engine *gin.Engine
	token  string
}

func newDashboard(t *testing.T, testDB *TestDB, upstreamURL string) *dashboard {
	t.Helper()

	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.SetupValidator())

	log := zap.NewNop()
	dispatcher, err := ecommerce.NewDispatcher(&ecommerce.TikTokConfig{
		APIBaseURL:     upstreamURL,
		AuthBaseURL:    upstreamURL,
		TimeoutSeconds: 5,
	}, ecommerce.WithDispatcherLogger(log))
	require.NoError(t, err)
	client := ecommerce.NewClient(dispatcher)

	credentialRepo := persistence.NewGormCredentialRepository(testDB.DB, newIntegrationSealer(t, 8))
	orderRecordRepo := persistence.NewGormOrderRecordRepository(testDB.DB)

	accountService := accountapp.NewService(credentialRepo, client, log)
	orderService := ordersapp.NewService(accountService, client, orderRecordRepo, log)

	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "flow-jwt-secret"})
	token, _, err := jwtService.GenerateAccessToken("seller-flow", "seller@example.com", time.Hour)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.RegisterProxy(engine, handler.NewProxyHandler(dispatcher))
	router.NewRouter(engine,
		router.WithMiddleware(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator: jwtService,
			Logger:    log,
		})),
	).
		Register(router.AccountRoutes(handler.NewAccountHandler(accountService))).
		Register(router.OrderRoutes(handler.NewOrderHandler(orderService))).
		Setup()

	return &dashboard{engine: engine, token: token}
}

func (d *dashboard) do(t *testing.T, method, path string, body any, authorized bool) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	w := httptest.NewRecorder()
	d.engine.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	return w.Code, decoded
}

func TestDashboardFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	api := &fakeShopAPI{}
	upstream := httptest.NewServer(api)
	defer upstream.Close()

	d := newDashboard(t, testDB, upstream.URL)

	t.Run("Requests without a token are rejected", func(t *testing.T) {
		status, _ := d.do(t, http.MethodGet, "/api/v1/account/credentials", nil, false)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("Not connected before credentials are saved", func(t *testing.T) {
		status, body := d.do(t, http.MethodGet, "/api/v1/account/credentials", nil, true)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, false, body["success"])
	})

	t.Run("Saving credentials verifies them upstream", func(t *testing.T) {
		status, body := d.do(t, http.MethodPost, "/api/v1/account/credentials", map[string]any{
			"app_key":      flowAppKey,
			"app_secret":   flowAppSecret,
			"access_token": "ROW_flow_token",
			"shop_cipher":  flowCipher,
		}, true)
		require.Equal(t, http.StatusOK, status, body)

		data := body["data"].(map[string]any)
		creds := data["credentials"].(map[string]any)
		assert.Equal(t, "7495213", creds["shop_id"])
		assert.Equal(t, "Kedai Demo", creds["shop_name"])
		assert.Equal(t, true, creds["has_app_secret"])
		assert.NotContains(t, creds, "app_secret")
	})

	t.Run("A wrong secret surfaces the upstream signature error", func(t *testing.T) {
		status, body := d.do(t, http.MethodPost, "/api/v1/account/credentials", map[string]any{
			"app_key":      flowAppKey,
			"app_secret":   "not-the-secret",
			"access_token": "ROW_flow_token",
			"shop_cipher":  flowCipher,
		}, true)
		assert.Equal(t, http.StatusBadGateway, status)
		errInfo := body["error"].(map[string]any)
		assert.Equal(t, "signature_mismatch", errInfo["kind"])
		assert.EqualValues(t, 106001, errInfo["upstream_code"])
	})

	t.Run("Order search expands details and records history", func(t *testing.T) {
		status, body := d.do(t, http.MethodPost, "/api/v1/orders/search", map[string]any{
			"order_status": "AWAITING_SHIPMENT",
			"page_size":    20,
		}, true)
		require.Equal(t, http.StatusOK, status, body)

		data := body["data"].(map[string]any)
		orders := data["orders"].([]any)
		require.Len(t, orders, 2)
		first := orders[0].(map[string]any)
		assert.Equal(t, "576469615385382345", first["id"])

		status, body = d.do(t, http.MethodGet, "/api/v1/orders/history?page_size=10", nil, true)
		require.Equal(t, http.StatusOK, status, body)
		records := body["data"].([]any)
		assert.Len(t, records, 2)
		record := records[0].(map[string]any)
		assert.Equal(t, "19.99", record["total_amount"])
		assert.Equal(t, "MYR", record["currency"])
		assert.Equal(t, "Aisyah", record["customer_name"])
		meta := body["meta"].(map[string]any)
		assert.EqualValues(t, 2, meta["total"])
	})

	t.Run("Proxy relays a signed call unchanged", func(t *testing.T) {
		status, body := d.do(t, http.MethodPost, "/api/tiktok/proxy", map[string]any{
			"method":      http.MethodGet,
			"endpoint":    ecommerce.PathAuthorizedShops,
			"params":      map[string]any{"app_key": flowAppKey},
			"appSecret":   flowAppSecret,
			"accessToken": "ROW_flow_token",
		}, false)
		require.Equal(t, http.StatusOK, status, body)
		assert.EqualValues(t, 0, body["code"])
		shops := body["data"].(map[string]any)["shops"].([]any)
		assert.Len(t, shops, 1)
	})

	calls := api.seen()
	assert.Contains(t, calls, http.MethodGet+" "+ecommerce.PathAuthorizedShops)
	assert.Contains(t, calls, http.MethodPost+" "+ecommerce.PathOrderSearch)
	assert.Contains(t, calls, http.MethodGet+" "+ecommerce.PathOrderDetails)
}
