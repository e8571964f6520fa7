package ecommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

const (
	goldenSecret = "s3cr3t"
	goldenPath   = "/order/202309/orders/search"
)

func goldenParams() map[string]any {
	return map[string]any{
		"app_key":     "abc",
		"timestamp":   1700000000,
		"shop_cipher": "xyz",
	}
}

// ---------------------------------------------------------------------------
// Golden Vector
// ---------------------------------------------------------------------------

func TestCanonicalize_GoldenVector(t *testing.T) {
	canonical, err := Canonicalize(goldenParams(), map[string]any{"order_status": "UNPAID"})
	require.NoError(t, err)
	assert.Equal(t, `app_keyabcshop_cipherxyztimestamp1700000000{"order_status":"UNPAID"}`, canonical)

	assert.Equal(t,
		`s3cr3t/order/202309/orders/searchapp_keyabcshop_cipherxyztimestamp1700000000{"order_status":"UNPAID"}s3cr3t`,
		buildSignString(goldenSecret, goldenPath, canonical))
}

func TestSign_GoldenVector(t *testing.T) {
	sign, err := SignRequest(goldenSecret, goldenPath, goldenParams(), map[string]any{"order_status": "UNPAID"})
	require.NoError(t, err)
	assert.Equal(t, "069672299fb6fcb69c808baf4076505c462a9f8f8dea99b0532ce65e568384e5", sign)

	// Independent computation over the literal signable string
	mac := hmac.New(sha256.New, []byte(goldenSecret))
	mac.Write([]byte(`s3cr3t/order/202309/orders/searchapp_keyabcshop_cipherxyztimestamp1700000000{"order_status":"UNPAID"}s3cr3t`))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sign)
}

func TestSign_GoldenVectorWithoutBody(t *testing.T) {
	sign, err := SignRequest(goldenSecret, goldenPath, goldenParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ba4f2a67e2d989181c0f6525dfe033f2e248a42d305f5b5018eb5ce1cd5d1a1a", sign)
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestSign_Deterministic(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 50; i++ {
		secret := f.LetterN(16)
		params := randomParams(f, 8)
		body := map[string]any{"order_status": f.Word(), "page": f.Number(1, 9)}

		first, err := SignRequest(secret, goldenPath, params, body)
		require.NoError(t, err)
		second, err := SignRequest(secret, goldenPath, params, body)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
	}
}

func TestCanonicalize_ExcludesSignAndAccessToken(t *testing.T) {
	f := gofakeit.New(7)
	for i := 0; i < 50; i++ {
		params := randomParams(f, 6)
		want, err := Canonicalize(params, nil)
		require.NoError(t, err)

		polluted := copyParams(params)
		polluted[ParamSign] = f.LetterN(64)
		polluted[ParamAccessToken] = f.LetterN(32)

		got, err := Canonicalize(polluted, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NotContains(t, got, ParamAccessToken)
	}
}

func TestCanonicalize_InsensitiveToInsertionOrder(t *testing.T) {
	f := gofakeit.New(99)
	for i := 0; i < 50; i++ {
		keys := make([]string, 0, 10)
		values := make(map[string]string, 10)
		for len(keys) < 10 {
			k := f.LetterN(uint(f.Number(1, 8)))
			if _, dup := values[k]; dup {
				continue
			}
			keys = append(keys, k)
			values[k] = f.Word()
		}

		build := func(order []string) map[string]any {
			m := make(map[string]any, len(order))
			for _, k := range order {
				m[k] = values[k]
			}
			return m
		}

		want, err := Canonicalize(build(keys), nil)
		require.NoError(t, err)

		shuffled := append([]string(nil), keys...)
		f.ShuffleStrings(shuffled)
		got, err := Canonicalize(build(shuffled), nil)
		require.NoError(t, err)

		assert.Equal(t, want, got)
	}
}

func TestCanonicalize_SortsByteWise(t *testing.T) {
	canonical, err := Canonicalize(map[string]any{
		"b":       "2",
		"a":       "1",
		"B":       "0",
		"a_":      "3",
		"aa":      "4",
		"app_key": "k",
	}, nil)
	require.NoError(t, err)
	// Upper case sorts before lower case, '_' (0x5f) before 'a' (0x61)
	assert.Equal(t, "B0a1a_3aa4app_keykb2", canonical)
}

func TestCanonicalize_EmptyBodyEquivalence(t *testing.T) {
	withNil, err := Canonicalize(goldenParams(), nil)
	require.NoError(t, err)
	withEmpty, err := Canonicalize(goldenParams(), map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, withNil, withEmpty)
	assert.NotContains(t, withEmpty, "{}")
}

func TestCanonicalize_DropsStructuredValues(t *testing.T) {
	base := goldenParams()
	want, err := Canonicalize(base, nil)
	require.NoError(t, err)

	structured := []any{
		map[string]any{"nested": "value"},
		[]string{"a", "b"},
		[2]int{1, 2},
		struct{ X int }{X: 1},
		&struct{ X int }{X: 1},
		json.RawMessage(`{"a":1}`),
		nil,
	}
	for _, v := range structured {
		withNested := copyParams(base)
		withNested["filters"] = v

		got, err := Canonicalize(withNested, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got, "value %#v must not be signed", v)
	}
}

func TestCanonicalize_ScalarFormatting(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "abc", "abc"},
		{"int", 1700000000, "1700000000"},
		{"int64", int64(-5), "-5"},
		{"uint", uint(7), "7"},
		{"float whole", float64(20), "20"},
		{"float fraction", 0.5, "0.5"},
		{"large float", float64(1700000000), "1700000000"},
		{"bool", true, "true"},
		{"json number", json.Number("12.50"), "12.50"},
		{"named string", marketplace.OrderStatusUnpaid, "UNPAID"},
		{"decimal", decimal.RequireFromString("19.90"), "19.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canonical, err := Canonicalize(map[string]any{"k": tt.value}, nil)
			require.NoError(t, err)
			assert.Equal(t, "k"+tt.want, canonical)
		})
	}
}

func TestEncodeBody_CompactAndUnescaped(t *testing.T) {
	encoded, err := EncodeBody(map[string]any{
		"order_status":   "AWAITING_SHIPMENT",
		"create_time_ge": 1700000000,
		"note":           "<b>&</b>",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"create_time_ge":1700000000,"note":"<b>&</b>","order_status":"AWAITING_SHIPMENT"}`, string(encoded))

	empty, err := EncodeBody(map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = EncodeBody(map[string]any{"ch": make(chan int)})
	assert.ErrorIs(t, err, marketplace.ErrConfiguration)
}

// ---------------------------------------------------------------------------
// Sign Input Validation
// ---------------------------------------------------------------------------

func TestSign_RejectsMissingMaterial(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		path    string
		wantErr error
	}{
		{"empty secret", "", goldenPath, marketplace.ErrMissingAppSecret},
		{"empty path", goldenSecret, "", marketplace.ErrMissingEndpoint},
		{"path with query", goldenSecret, goldenPath + "?a=1", marketplace.ErrInvalidEndpoint},
		{"path with host", goldenSecret, "https://open-api.tiktokglobalshop.com" + goldenPath, marketplace.ErrInvalidEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sign, err := Sign(tt.secret, tt.path, "app_keyabc")
			assert.Empty(t, sign)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, marketplace.ErrConfiguration)
		})
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

func randomParams(f *gofakeit.Faker, n int) map[string]any {
	params := make(map[string]any, n)
	for len(params) < n {
		key := f.LetterN(uint(f.Number(2, 10)))
		switch f.Number(0, 2) {
		case 0:
			params[key] = f.Word()
		case 1:
			params[key] = f.Number(0, 1<<30)
		default:
			params[key] = f.Bool()
		}
	}
	return params
}

func copyParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}
