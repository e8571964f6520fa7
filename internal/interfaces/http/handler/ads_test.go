package handler

import (
	"net/http"
	"testing"

	"github.com/shopdesk/backend/internal/application/ads"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdsHandler_Summary(t *testing.T) {
	reporter := new(MockAdsReporter)
	reporter.On("Summary", mock.Anything, testUserID, "2026-01-01", "2026-01-31").Return(&marketplace.AdSpendSummary{
		StartDate: "2026-01-01",
		EndDate:   "2026-01-31",
		Revenue:   decimal.RequireFromString("500"),
		ROAS:      decimal.RequireFromString("2.5"),
	}, nil)

	h := NewAdsHandler(reporter)
	w := serve(http.MethodGet, "/ads/summary", "/ads/summary?start=2026-01-01&end=2026-01-31", nil, h.Summary)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "2.5", data["roas"])
	reporter.AssertExpectations(t)
}

func TestAdsHandler_SummaryErrors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"missing end", "?start=2026-01-01", nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad date", "?start=01/01/2026&end=2026-01-31", nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"reversed range", "?start=2026-02-01&end=2026-01-01", ads.ErrInvalidDateRange, http.StatusBadRequest, dto.ErrCodeInvalidRange},
		{"ads not configured", "?start=2026-01-01&end=2026-01-02",
			marketplace.NewConfigurationError(marketplace.ErrAdsNotConfigured), http.StatusUnprocessableEntity, dto.ErrCodeConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter := new(MockAdsReporter)
			if tt.serviceErr != nil {
				reporter.On("Summary", mock.Anything, testUserID, mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}

			h := NewAdsHandler(reporter)
			w := serve(http.MethodGet, "/ads/summary", "/ads/summary"+tt.query, nil, h.Summary)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
		})
	}
}
