package ecommerce

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

// Well-known parameter names of the TikTok Shop open platform
const (
	ParamSign        = "sign"
	ParamAccessToken = "access_token"
	ParamTimestamp   = "timestamp"
	ParamAppKey      = "app_key"
	ParamAppSecret   = "app_secret"
	ParamShopCipher  = "shop_cipher"
)

// Canonicalize reduces params and body to the string that is signed.
//
// sign and access_token never take part. Structured and nil values are
// skipped. Remaining keys are sorted byte-wise and written as key+value
// without separators, followed by the compact JSON body when the body has at
// least one key.
func Canonicalize(params map[string]any, body map[string]any) (string, error) {
	scalars := scalarParams(params)

	keys := make([]string, 0, len(scalars))
	for k := range scalars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(scalars[k])
	}

	encoded, err := EncodeBody(body)
	if err != nil {
		return "", err
	}
	builder.Write(encoded)

	return builder.String(), nil
}

// Sign computes the lowercase hex HMAC-SHA256 of secret+path+canonical+secret keyed by secret.
func Sign(secret, path, canonical string) (string, error) {
	if secret == "" {
		return "", marketplace.NewConfigurationError(marketplace.ErrMissingAppSecret)
	}
	if path == "" {
		return "", marketplace.NewConfigurationError(marketplace.ErrMissingEndpoint)
	}
	if !strings.HasPrefix(path, "/") || strings.ContainsAny(path, "?#") {
		return "", marketplace.NewConfigurationError(marketplace.ErrInvalidEndpoint)
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(buildSignString(secret, path, canonical)))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SignRequest canonicalizes params and body, then signs them for path
func SignRequest(secret, path string, params map[string]any, body map[string]any) (string, error) {
	canonical, err := Canonicalize(params, body)
	if err != nil {
		return "", err
	}
	return Sign(secret, path, canonical)
}

// EncodeBody returns the compact JSON sent on the wire, or nil for an empty body.
// The same bytes are appended to the canonical string.
func EncodeBody(body map[string]any) ([]byte, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, marketplace.NewConfigurationError(fmt.Errorf("tiktok: body is not JSON encodable: %w", err))
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func buildSignString(secret, path, canonical string) string {
	var builder strings.Builder
	builder.Grow(2*len(secret) + len(path) + len(canonical))
	builder.WriteString(secret)
	builder.WriteString(path)
	builder.WriteString(canonical)
	builder.WriteString(secret)
	return builder.String()
}

// scalarParams returns the signable subset of params rendered as strings
func scalarParams(params map[string]any) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if k == ParamSign || k == ParamAccessToken {
			continue
		}
		if s, ok := formatScalar(v); ok {
			out[k] = s
		}
	}
	return out
}

// formatScalar renders v the way it appears in both the query string and the
// signed string. Numbers never use exponent notation.
func formatScalar(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case json.RawMessage:
		return "", false
	case fmt.Stringer:
		return val.String(), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	default:
		return "", false
	}
}
