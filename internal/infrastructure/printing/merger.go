package printing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultMergeTimeout = 2 * time.Minute
	// maxMergedSize bounds the merged document read into memory
	maxMergedSize = 10 << 20

	headerSuccessCount = "X-Success-Count"
	headerFailedCount  = "X-Failed-Count"
)

// Ensure HTTPMerger implements DocumentMerger
var _ marketplace.DocumentMerger = (*HTTPMerger)(nil)

// MergeResult is the outcome of a merge call that produced a document
type MergeResult struct {
	PDF       []byte
	Succeeded int
	Failed    int
}

// HTTPMerger posts label URLs to the merge function and returns the combined PDF
type HTTPMerger struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// HTTPMergerOption is a functional option for configuring HTTPMerger
type HTTPMergerOption func(*HTTPMerger)

// WithMergerLogger sets a custom logger
func WithMergerLogger(logger *zap.Logger) HTTPMergerOption {
	return func(m *HTTPMerger) {
		m.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client used for merge calls
func WithHTTPClient(client *http.Client) HTTPMergerOption {
	return func(m *HTTPMerger) {
		m.client = client
	}
}

// NewHTTPMerger creates a merger for the configured merge function
func NewHTTPMerger(cfg config.MergeConfig, opts ...HTTPMergerOption) (*HTTPMerger, error) {
	if cfg.ServiceURL == "" {
		return nil, errors.New("merge service url is required")
	}
	u, err := url.Parse(cfg.ServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid merge service url: %q", cfg.ServiceURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMergeTimeout
	}

	m := &HTTPMerger{
		endpoint: cfg.ServiceURL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Merge implements marketplace.DocumentMerger. Any failure of the merge function
// yields a nil document so callers fall back to the individual URLs; only a
// cancelled context is returned as an error.
func (m *HTTPMerger) Merge(ctx context.Context, documentURLs []string) ([]byte, error) {
	result, err := m.MergeWithStats(ctx, documentURLs)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.Warn("Waybill merge unavailable, falling back to individual labels",
			zap.Int("documents", len(documentURLs)),
			zap.Error(err),
		)
		return nil, nil
	}
	return result.PDF, nil
}

// MergeWithStats calls the merge function and reports how many documents made it in
func (m *HTTPMerger) MergeWithStats(ctx context.Context, documentURLs []string) (*MergeResult, error) {
	if len(documentURLs) == 0 {
		return nil, errors.New("at least one document url is required")
	}

	payload, err := json.Marshal(struct {
		WaybillURLs []string `json:"waybillUrls"`
	}{WaybillURLs: documentURLs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode merge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build merge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
		req.Header.Set("apikey", m.apiKey)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("merge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("merge function returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/pdf" {
		return nil, fmt.Errorf("merge function returned content type %q", resp.Header.Get("Content-Type"))
	}

	pdf, err := io.ReadAll(io.LimitReader(resp.Body, maxMergedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read merged document: %w", err)
	}
	if len(pdf) > maxMergedSize {
		return nil, fmt.Errorf("merged document exceeds %d bytes", maxMergedSize)
	}
	if len(pdf) == 0 {
		return nil, errors.New("merge function returned an empty document")
	}

	result := &MergeResult{
		PDF:       pdf,
		Succeeded: headerCount(resp.Header, headerSuccessCount, len(documentURLs)),
		Failed:    headerCount(resp.Header, headerFailedCount, 0),
	}

	m.logger.Info("Merged waybills",
		zap.Int("requested", len(documentURLs)),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("size", len(pdf)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func headerCount(h http.Header, key string, fallback int) int {
	v := h.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
