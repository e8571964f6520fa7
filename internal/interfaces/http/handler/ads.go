package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
)

// AdsReporter summarizes ad spend
type AdsReporter interface {
	Summary(ctx context.Context, userID, startDate, endDate string) (*marketplace.AdSpendSummary, error)
}

// AdsHandler handles ads reporting endpoints
type AdsHandler struct {
	BaseHandler
	reporter AdsReporter
}

// NewAdsHandler creates a new AdsHandler
func NewAdsHandler(reporter AdsReporter) *AdsHandler {
	return &AdsHandler{reporter: reporter}
}

// AdsSummaryRequest selects the report window, both dates inclusive
type AdsSummaryRequest struct {
	Start string `form:"start" binding:"required,datetime=2006-01-02"`
	End   string `form:"end" binding:"required,datetime=2006-01-02"`
}

// Summary returns spend, conversions and ROAS for the window
func (h *AdsHandler) Summary(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req AdsSummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	summary, err := h.reporter.Summary(c.Request.Context(), userID, req.Start, req.End)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
