package marketplace

import (
	"github.com/shopspring/decimal"
)

// AdMetrics is one row of a Marketing API report
type AdMetrics struct {
	Spend             decimal.Decimal `json:"spend"`
	Impressions       int64           `json:"impressions"`
	Clicks            int64           `json:"clicks"`
	Conversions       int64           `json:"conversions"`
	CostPerConversion decimal.Decimal `json:"cost_per_conversion"`
	ConversionRate    decimal.Decimal `json:"conversion_rate"`
}

// Add accumulates another row into m
func (m AdMetrics) Add(o AdMetrics) AdMetrics {
	return AdMetrics{
		Spend:       m.Spend.Add(o.Spend),
		Impressions: m.Impressions + o.Impressions,
		Clicks:      m.Clicks + o.Clicks,
		Conversions: m.Conversions + o.Conversions,
	}
}

// AdSpendSummary aggregates ad metrics over a date range and relates them to revenue
type AdSpendSummary struct {
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Metrics   AdMetrics       `json:"metrics"`
	Revenue   decimal.Decimal `json:"revenue"`
	ROAS      decimal.Decimal `json:"roas"`
}

// CalculateROAS returns revenue / spend rounded to 4 places, zero when nothing was spent
func CalculateROAS(revenue, spend decimal.Decimal) decimal.Decimal {
	if spend.IsZero() {
		return decimal.Zero
	}
	return revenue.DivRound(spend, 4)
}
