package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/application/fulfillment"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
)

// ShipmentService ships batches of orders
type ShipmentService interface {
	Ship(ctx context.Context, userID string, input fulfillment.BulkShipInput) (*fulfillment.BatchResult, error)
}

// WaybillPrinter gathers shipping labels for printing
type WaybillPrinter interface {
	Print(ctx context.Context, userID string, orderIDs []string) (*fulfillment.PrintResult, error)
}

// PackageSearcher searches fulfillment packages
type PackageSearcher interface {
	Search(ctx context.Context, userID string, filter ecommerce.PackageSearchFilter) (*ecommerce.PackageSearchResult, error)
}

// FulfillmentHandler handles shipping and waybill endpoints
type FulfillmentHandler struct {
	BaseHandler
	shipments ShipmentService
	waybills  WaybillPrinter
	packages  PackageSearcher
	now       func() time.Time
}

// NewFulfillmentHandler creates a new FulfillmentHandler
func NewFulfillmentHandler(shipments ShipmentService, waybills WaybillPrinter, packages PackageSearcher) *FulfillmentHandler {
	return &FulfillmentHandler{
		shipments: shipments,
		waybills:  waybills,
		packages:  packages,
		now:       time.Now,
	}
}

// SearchPackagesRequest filters a package search. Times are Unix seconds.
type SearchPackagesRequest struct {
	PackageStatus string `json:"package_status" binding:"omitempty,max=64"`
	CreateTimeGE  int64  `json:"create_time_ge" binding:"omitempty,min=0"`
	CreateTimeLT  int64  `json:"create_time_lt" binding:"omitempty,min=0"`
	UpdateTimeGE  int64  `json:"update_time_ge" binding:"omitempty,min=0"`
	UpdateTimeLT  int64  `json:"update_time_lt" binding:"omitempty,min=0"`
	PageSize      int    `json:"page_size" binding:"omitempty,min=1,max=100"`
	PageToken     string `json:"page_token" binding:"omitempty,max=512"`
}

// Ship ships the selected orders one after another
func (h *FulfillmentHandler) Ship(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req fulfillment.BulkShipInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	batch, err := h.shipments.Ship(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// PrintWaybills returns the labels of the selected orders. A merged document
// that could not be archived is streamed back as a PDF; every other outcome
// is a JSON envelope with the URLs to open.
func (h *FulfillmentHandler) PrintWaybills(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req fulfillment.WaybillsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.waybills.Print(c.Request.Context(), userID, req.OrderIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.PDF != nil {
		filename := fmt.Sprintf("waybills-%s.pdf", h.now().UTC().Format("20060102-150405"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Header("X-Waybill-Count", strconv.Itoa(len(result.Waybills)))
		c.Header("X-Missing-Count", strconv.Itoa(len(result.Missing)))
		c.Data(http.StatusOK, "application/pdf", result.PDF)
		return
	}
	h.Success(c, result)
}

// SearchPackages returns one page of packages
func (h *FulfillmentHandler) SearchPackages(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req SearchPackagesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.packages.Search(c.Request.Context(), userID, ecommerce.PackageSearchFilter{
		PackageStatus: req.PackageStatus,
		CreateTimeGE:  req.CreateTimeGE,
		CreateTimeLT:  req.CreateTimeLT,
		UpdateTimeGE:  req.UpdateTimeGE,
		UpdateTimeLT:  req.UpdateTimeLT,
		PageSize:      req.PageSize,
		PageToken:     req.PageToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
