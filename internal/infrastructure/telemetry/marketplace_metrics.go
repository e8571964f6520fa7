package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// MarketplaceMetrics records upstream call and fulfillment metrics.
// It satisfies ecommerce.Observer so the dispatcher can report every call.
type MarketplaceMetrics struct {
	logger *zap.Logger

	requestsTotal   *Counter
	requestDuration *Histogram
	shipmentsTotal  *Counter
	printsTotal     *Counter
}

// NewMarketplaceMetrics creates the instruments on meter
func NewMarketplaceMetrics(meter metric.Meter, logger *zap.Logger) (*MarketplaceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &MarketplaceMetrics{logger: logger}

	var err error
	m.requestsTotal, err = NewCounter(meter,
		"tiktok_requests_total",
		"Total number of TikTok Shop API calls by endpoint family and outcome",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	m.requestDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "tiktok_request_duration_seconds",
		Description: "TikTok Shop API call latency",
		Unit:        "s",
		Boundaries:  UpstreamDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.shipmentsTotal, err = NewCounter(meter,
		"shopdesk_shipments_total",
		"Orders processed by bulk ship, by outcome",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	m.printsTotal, err = NewCounter(meter,
		"shopdesk_waybill_prints_total",
		"Waybill print requests, by print mode",
		"{prints}",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveCall records one upstream call
func (m *MarketplaceMetrics) ObserveCall(ctx context.Context, family, method, outcome string, elapsed time.Duration) {
	m.requestsTotal.Inc(ctx,
		AttrEndpointFamily.String(family),
		AttrHTTPMethod.String(method),
		AttrOutcome.String(outcome),
	)
	m.requestDuration.RecordDuration(ctx, elapsed,
		AttrEndpointFamily.String(family),
		AttrOutcome.String(outcome),
	)
}

// RecordShipment records the outcome of one order in a bulk ship batch
// ("shipped", "failed" or "skipped")
func (m *MarketplaceMetrics) RecordShipment(ctx context.Context, outcome string) {
	m.shipmentsTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordWaybillPrint records a print request by mode ("single", "merged" or "fallback")
func (m *MarketplaceMetrics) RecordWaybillPrint(ctx context.Context, mode string) {
	m.printsTotal.Inc(ctx, AttrPrintMode.String(mode))
}
