package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/application/account"
	"github.com/shopdesk/backend/internal/application/ads"
	"github.com/shopdesk/backend/internal/application/fulfillment"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/logger"
	"github.com/shopdesk/backend/internal/interfaces/http/dto"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-7f3a"

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// setUser simulates the JWT middleware having authenticated userID
func setUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(logger.GinUserIDKey, userID)
		c.Set(logger.GinRequestIDKey, "req-test")
		c.Next()
	}
}

// serve runs one request through a router with h mounted at method/path
func serve(method, path, target string, body any, h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, path, setUser(testUserID), h)

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerSuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.SuccessWithMeta(c, []string{"a", "b"}, 45, 2, 20)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandler_UserIDMissing(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	id, ok := h.userID(c)

	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decodeResponse(t, w).Error.Code)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantCode     string
		wantKind     string
		wantUpstream int
	}{
		{
			name:       "configuration",
			err:        marketplace.NewConfigurationError(marketplace.ErrMissingShopCipher),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeConfiguration,
			wantKind:   "configuration",
		},
		{
			name:       "transport",
			err:        marketplace.NewTransportError("dial tcp: timeout", errors.New("i/o timeout")),
			wantStatus: http.StatusBadGateway,
			wantCode:   dto.ErrCodeUpstreamUnavailable,
			wantKind:   "transport",
		},
		{
			name:       "upstream http",
			err:        marketplace.NewUpstreamHTTPError(http.StatusServiceUnavailable, []byte("down")),
			wantStatus: http.StatusBadGateway,
			wantCode:   dto.ErrCodeUpstreamHTTP,
			wantKind:   "upstream_http",
		},
		{
			name:         "business",
			err:          fmt.Errorf("ship order: %w", marketplace.NewBusinessError(21011001, "order is not ready to ship", "req-up-1")),
			wantStatus:   http.StatusUnprocessableEntity,
			wantCode:     dto.ErrCodeUpstreamBusiness,
			wantKind:     "business",
			wantUpstream: 21011001,
		},
		{
			name:         "signature mismatch",
			err:          marketplace.NewBusinessError(106001, "Invalid signature", "req-up-2"),
			wantStatus:   http.StatusBadGateway,
			wantCode:     dto.ErrCodeSignatureMismatch,
			wantKind:     "signature_mismatch",
			wantUpstream: 106001,
		},
		{
			name:       "not connected",
			err:        marketplace.ErrCredentialsNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotConnected,
		},
		{
			name:       "order record missing",
			err:        marketplace.ErrOrderRecordNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:       "shop not authorized",
			err:        account.ErrShopNotAuthorized,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeShopNotFound,
		},
		{
			name:       "no waybills",
			err:        fulfillment.ErrNoWaybills,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeNoWaybills,
		},
		{
			name:       "bad date range",
			err:        ads.ErrInvalidDateRange,
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeInvalidRange,
		},
		{
			name:       "validation",
			err:        fmt.Errorf("ship: %w", marketplace.ErrInvalidHandoverMethod),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   dto.ErrCodeTimeout,
		},
		{
			name:       "unknown",
			err:        errors.New("pq: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(logger.GinRequestIDKey, "req-42")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantKind, resp.Error.Kind)
			assert.Equal(t, tt.wantUpstream, resp.Error.UpstreamCode)
			assert.Equal(t, "req-42", resp.Error.RequestID)
		})
	}
}

func TestBaseHandler_HandleErrorHidesInternalDetails(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(c, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestBaseHandler_TransportDropsUpstreamFields(t *testing.T) {
	info := classify(&marketplace.Error{Kind: marketplace.KindTransport, Message: "unexpected EOF", Code: 5, RequestID: "x"})

	assert.Equal(t, "Marketplace API is unreachable", info.Message)
	assert.Zero(t, info.UpstreamCode)
	assert.Empty(t, info.UpstreamRequestID)
}
