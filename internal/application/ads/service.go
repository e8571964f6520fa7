// Package ads summarizes advertising spend and relates it to shipped revenue.
package ads

import (
	"context"
	"errors"
	"time"

	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ErrInvalidDateRange is returned for malformed or reversed report dates
var ErrInvalidDateRange = errors.New("ads: start and end must be YYYY-MM-DD with start <= end")

// ReportAPI is the part of the Marketing API client used for summaries
type ReportAPI interface {
	AdSpendReport(ctx context.Context, creds *marketplace.Credentials, startDate, endDate string) ([]marketplace.AdMetrics, error)
}

// Service builds ad spend summaries
type Service struct {
	store   marketplace.CredentialStore
	api     ReportAPI
	history marketplace.OrderHistory
	logger  *zap.Logger
}

// NewService creates an ads service
func NewService(store marketplace.CredentialStore, api ReportAPI, history marketplace.OrderHistory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, api: api, history: history, logger: logger}
}

// Summary aggregates the report rows of [start, end] and computes ROAS
// against the revenue of orders shipped in the same days.
func (s *Service) Summary(ctx context.Context, userID, start, end string) (*marketplace.AdSpendSummary, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	creds, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, marketplace.ErrCredentialsNotFound
	}
	if !creds.HasAdsAccess() {
		return nil, marketplace.NewConfigurationError(marketplace.ErrAdsNotConfigured)
	}

	rows, err := s.api.AdSpendReport(ctx, creds, start, end)
	if err != nil {
		return nil, err
	}

	var total marketplace.AdMetrics
	for _, row := range rows {
		total = total.Add(row)
	}
	if total.Conversions > 0 {
		total.CostPerConversion = total.Spend.DivRound(decimal.NewFromInt(total.Conversions), 2)
	}
	if total.Clicks > 0 {
		total.ConversionRate = decimal.NewFromInt(total.Conversions * 100).DivRound(decimal.NewFromInt(total.Clicks), 2)
	}

	revenue, err := s.history.ShippedRevenue(ctx, creds.ID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Ad spend summary",
		zap.String("user_id", userID),
		zap.Int("rows", len(rows)),
		zap.String("spend", total.Spend.String()),
		zap.String("revenue", revenue.String()),
	)

	return &marketplace.AdSpendSummary{
		StartDate: start,
		EndDate:   end,
		Metrics:   total,
		Revenue:   revenue,
		ROAS:      marketplace.CalculateROAS(revenue, total.Spend),
	}, nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return from, to, nil
}
