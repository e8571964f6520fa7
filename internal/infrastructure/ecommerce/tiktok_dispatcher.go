package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/telemetry"
)

const (
	// maxTikTokResponseSize limits the response body size to prevent memory exhaustion
	maxTikTokResponseSize = 10 * 1024 * 1024 // 10MB max response

	// HeaderAccessToken carries the seller access token on non-auth endpoints
	HeaderAccessToken = "x-tts-access-token"
)

// EndpointFamily groups endpoints served by the same upstream host
type EndpointFamily string

const (
	// FamilyAuth covers token exchange and refresh, served by the auth host
	FamilyAuth EndpointFamily = "auth"
	// FamilyCommerce covers every other endpoint, served by the commerce API host
	FamilyCommerce EndpointFamily = "commerce"
)

// authPathPrefixes is the static routing table for the auth host
var authPathPrefixes = []string{"/api/v2/token/"}

// ClassifyEndpoint returns the family an endpoint path belongs to
func ClassifyEndpoint(endpoint string) EndpointFamily {
	for _, prefix := range authPathPrefixes {
		if strings.HasPrefix(endpoint, prefix) {
			return FamilyAuth
		}
	}
	return FamilyCommerce
}

// Observer receives one callback per upstream call. family is an EndpointFamily
// value and outcome is "ok" or an error kind.
type Observer interface {
	ObserveCall(ctx context.Context, family, method, outcome string, elapsed time.Duration)
}

// Dispatcher signs and relays requests to the TikTok Shop open platform.
//
// It holds only immutable configuration and an HTTP client; every call is
// parameterised by its own request, so one Dispatcher serves any number of
// sellers concurrently.
type Dispatcher struct {
	config     *TikTokConfig
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
	observer   Observer
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithClock replaces the wall clock used for timestamps
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDispatcherLogger sets the logger used for per-call debug logs
func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver registers a per-call observer, typically metrics
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// NewDispatcher creates a dispatcher for the given environment
func NewDispatcher(config *TikTokConfig, opts ...DispatcherOption) (*Dispatcher, error) {
	if config == nil {
		config = NewTikTokConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ResolveBaseURL returns the upstream host serving endpoint
func (d *Dispatcher) ResolveBaseURL(endpoint string) string {
	if ClassifyEndpoint(endpoint) == FamilyAuth {
		return d.config.AuthBaseURL
	}
	return d.config.APIBaseURL
}

// Timestamp returns the Unix timestamp that is signed, adjusted by the clock skew
func (d *Dispatcher) Timestamp() int64 {
	return d.now().Add(-d.config.ClockSkew).Unix()
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// Dispatch signs req, sends it to the matching upstream host and relays the answer.
//
// The returned Response is non-nil whenever the upstream answered, even when
// the error is non-nil (upstream HTTP and business failures), so callers can
// relay the upstream payload unchanged. Every error is a *marketplace.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req marketplace.Request) (*marketplace.Response, error) {
	method := req.NormalizedMethod()
	family := ClassifyEndpoint(req.Endpoint)
	start := d.now()

	ctx, span := telemetry.StartSpan(ctx, "tiktok.dispatch",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrEndpointFamily, string(family)),
		telemetry.WithAttribute(telemetry.SpanAttrHTTPMethod, method),
	)
	defer span.End()

	resp, err := d.dispatch(ctx, method, family, req)

	outcome := "ok"
	if err != nil {
		outcome = marketplace.KindOf(err).String()
		telemetry.RecordError(span, err)
	}
	if resp != nil {
		telemetry.SetAttributes(span,
			telemetry.SpanAttrHTTPStatus, resp.HTTPStatus,
			telemetry.SpanAttrResultCode, resp.Code,
		)
	}
	elapsed := d.now().Sub(start)
	if d.observer != nil {
		d.observer.ObserveCall(ctx, string(family), method, outcome, elapsed)
	}
	d.logger.Debug("TikTok API call completed",
		zap.String("endpoint", req.Endpoint),
		zap.String("family", string(family)),
		zap.String("method", method),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	)

	return resp, err
}

func (d *Dispatcher) dispatch(ctx context.Context, method string, family EndpointFamily, req marketplace.Request) (*marketplace.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}

	query, body, err := d.buildQuery(method, family, req)
	if err != nil {
		return nil, err
	}

	target := d.ResolveBaseURL(req.Endpoint) + req.Endpoint + "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, marketplace.NewConfigurationError(fmt.Errorf("tiktok: failed to create request: %w", unwrapURLError(err)))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if family != FamilyAuth && req.AccessToken != "" {
		httpReq.Header.Set(HeaderAccessToken, req.AccessToken)
	}

	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		cause := unwrapURLError(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ctxErr
		}
		return nil, marketplace.NewTransportError(
			fmt.Sprintf("%s %s%s failed: %v", method, d.ResolveBaseURL(req.Endpoint), req.Endpoint, cause),
			cause,
		)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxTikTokResponseSize))
	if err != nil {
		return nil, marketplace.NewTransportError("failed to read upstream response", err)
	}

	return relay(httpResp.StatusCode, payload)
}

// buildQuery assembles the outgoing query string and body.
// Only scalar parameters travel in the query; the same set is signed.
func (d *Dispatcher) buildQuery(method string, family EndpointFamily, req marketplace.Request) (url.Values, []byte, error) {
	scalars := scalarParams(req.Params)
	query := make(url.Values, len(scalars)+2)
	for k, v := range scalars {
		query.Set(k, v)
	}

	var body []byte
	var bodyMap map[string]any
	if method != http.MethodGet {
		encoded, err := EncodeBody(req.Body)
		if err != nil {
			return nil, nil, err
		}
		body = encoded
		bodyMap = req.Body
	}

	if family == FamilyAuth {
		// Token calls authenticate with the secret as a parameter, not a signature
		if query.Get(ParamAppSecret) == "" {
			query.Set(ParamAppSecret, req.AppSecret)
		}
		return query, body, nil
	}

	signed := make(map[string]any, len(scalars)+1)
	for k, v := range scalars {
		signed[k] = v
	}
	if _, ok := signed[ParamTimestamp]; !ok {
		ts := strconv.FormatInt(d.Timestamp(), 10)
		signed[ParamTimestamp] = ts
		query.Set(ParamTimestamp, ts)
	}

	sign, err := SignRequest(req.AppSecret, req.Endpoint, signed, bodyMap)
	if err != nil {
		return nil, nil, err
	}
	query.Set(ParamSign, sign)

	return query, body, nil
}

// relay turns the upstream status and payload into a Response and, when the
// call failed, the matching tagged error
func relay(status int, payload []byte) (*marketplace.Response, error) {
	resp := &marketplace.Response{
		HTTPStatus: status,
		Payload:    json.RawMessage(payload),
	}

	var envelope TikTokResponse
	parseErr := json.Unmarshal(payload, &envelope)
	if parseErr == nil {
		resp.Code = envelope.Code
		resp.Message = envelope.Message
		resp.RequestID = envelope.RequestID
		resp.Data = envelope.Data
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		upstreamErr := marketplace.NewUpstreamHTTPError(status, payload)
		if parseErr == nil {
			upstreamErr.Code = envelope.Code
			upstreamErr.RequestID = envelope.RequestID
			if envelope.Message != "" {
				upstreamErr.Message = envelope.Message
			}
		}
		return resp, upstreamErr
	}

	if parseErr != nil {
		e := marketplace.NewTransportError("upstream returned invalid JSON", parseErr)
		e.HTTPStatus = status
		return nil, e
	}

	if !envelope.IsSuccess() {
		return resp, marketplace.NewBusinessError(envelope.Code, envelope.Message, envelope.RequestID)
	}
	return resp, nil
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the full
// URL including app_secret and sign
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
