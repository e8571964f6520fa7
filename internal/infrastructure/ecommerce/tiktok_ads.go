package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

const (
	// TikTokAdsAPIURL is the Marketing API endpoint
	TikTokAdsAPIURL = "https://business-api.tiktok.com/open_api/v1.3"

	pathAdsIntegratedReport = "/reports/integrated/get/"
	adsDateLayout           = "2006-01-02"
	adsReportPageSize       = 1000
)

// Errors for ads reporting
var (
	ErrAdsConfigInvalidURL = errors.New("tiktok ads: base URL must be an absolute http(s) URL")
	ErrAdsInvalidDateRange = errors.New("tiktok ads: dates must be YYYY-MM-DD with start <= end")
)

// adsReportMetrics is the metric set requested for spend reports
var adsReportMetrics = []string{
	"spend",
	"impressions",
	"clicks",
	"conversion",
	"cost_per_conversion",
	"conversion_rate",
}

// AdsConfig holds configuration for the Marketing API
type AdsConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// Validate fills defaults and checks the base URL
func (c *AdsConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = TikTokAdsAPIURL
	}
	if !isAbsoluteHTTPURL(c.BaseURL) {
		return ErrAdsConfigInvalidURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTikTokTimeoutSeconds
	}
	return nil
}

// AdsClient reads ad spend reports. The Marketing API is not signed; the
// advertiser access token travels as a query parameter.
type AdsClient struct {
	config     *AdsConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdsClient creates a Marketing API client
func NewAdsClient(config *AdsConfig, logger *zap.Logger, httpClient *http.Client) (*AdsClient, error) {
	if config == nil {
		config = &AdsConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}
	}
	return &AdsClient{config: config, httpClient: httpClient, logger: logger}, nil
}

type adsReportData struct {
	List []struct {
		Metrics map[string]json.RawMessage `json:"metrics"`
	} `json:"list"`
}

// AdSpendReport returns one metrics row per report entry for [startDate, endDate]
func (c *AdsClient) AdSpendReport(ctx context.Context, creds *marketplace.Credentials, startDate, endDate string) ([]marketplace.AdMetrics, error) {
	if creds == nil || !creds.HasAdsAccess() {
		return nil, marketplace.NewConfigurationError(marketplace.ErrAdsNotConfigured)
	}
	if err := validateDateRange(startDate, endDate); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}

	dimensions, _ := json.Marshal([]string{"advertiser_id"})
	metrics, _ := json.Marshal(adsReportMetrics)

	query := url.Values{}
	query.Set(ParamAccessToken, creds.AdsAccessToken)
	query.Set("advertiser_id", creds.AdsAdvertiserID)
	query.Set("report_type", "BASIC")
	query.Set("data_level", "AUCTION_ADVERTISER")
	query.Set("dimensions", string(dimensions))
	query.Set("metrics", string(metrics))
	query.Set("start_date", startDate)
	query.Set("end_date", endDate)
	query.Set("page", "1")
	query.Set("page_size", strconv.Itoa(adsReportPageSize))

	target := c.config.BaseURL + pathAdsIntegratedReport + "?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, marketplace.NewConfigurationError(fmt.Errorf("tiktok ads: failed to create request: %w", unwrapURLError(err)))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cause := unwrapURLError(err)
		return nil, marketplace.NewTransportError(fmt.Sprintf("GET %s%s failed: %v", c.config.BaseURL, pathAdsIntegratedReport, cause), cause)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxTikTokResponseSize))
	if err != nil {
		return nil, marketplace.NewTransportError("failed to read ads response", err)
	}

	resp, err := relay(httpResp.StatusCode, payload)
	if err != nil {
		c.logger.Warn("TikTok Ads API request failed",
			zap.Int("status", httpResp.StatusCode),
			zap.String("advertiser_id", creds.AdsAdvertiserID),
			zap.Error(err),
		)
		return nil, err
	}

	var data adsReportData
	if err := resp.Decode(&data); err != nil {
		return nil, err
	}

	rows := make([]marketplace.AdMetrics, 0, len(data.List))
	for _, item := range data.List {
		rows = append(rows, marketplace.AdMetrics{
			Spend:             metricDecimal(item.Metrics["spend"]),
			Impressions:       metricInt(item.Metrics["impressions"]),
			Clicks:            metricInt(item.Metrics["clicks"]),
			Conversions:       metricInt(item.Metrics["conversion"]),
			CostPerConversion: metricDecimal(item.Metrics["cost_per_conversion"]),
			ConversionRate:    metricDecimal(item.Metrics["conversion_rate"]),
		})
	}
	return rows, nil
}

func validateDateRange(startDate, endDate string) error {
	start, err := time.Parse(adsDateLayout, startDate)
	if err != nil {
		return ErrAdsInvalidDateRange
	}
	end, err := time.Parse(adsDateLayout, endDate)
	if err != nil {
		return ErrAdsInvalidDateRange
	}
	if end.Before(start) {
		return ErrAdsInvalidDateRange
	}
	return nil
}

// metricDecimal reads a metric that may arrive as a JSON string or number
func metricDecimal(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func metricInt(raw json.RawMessage) int64 {
	return metricDecimal(raw).IntPart()
}
