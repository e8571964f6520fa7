package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/application/orders"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// OrderService reads marketplace orders and the order history
type OrderService interface {
	Search(ctx context.Context, userID string, filter ecommerce.OrderSearchFilter) (*orders.SearchResult, error)
	Details(ctx context.Context, userID string, orderIDs []string) ([]ecommerce.Order, error)
	History(ctx context.Context, userID string, filter marketplace.HistoryFilter) (*orders.HistoryPage, error)
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	service OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// SearchOrdersRequest filters an order search. Times are Unix seconds.
type SearchOrdersRequest struct {
	OrderStatus  marketplace.OrderStatus `json:"order_status" binding:"omitempty,order_status"`
	CreateTimeGE int64                   `json:"create_time_ge" binding:"omitempty,min=0"`
	CreateTimeLT int64                   `json:"create_time_lt" binding:"omitempty,min=0"`
	UpdateTimeGE int64                   `json:"update_time_ge" binding:"omitempty,min=0"`
	UpdateTimeLT int64                   `json:"update_time_lt" binding:"omitempty,min=0"`
	PageSize     int                     `json:"page_size" binding:"omitempty,min=1,max=100"`
	PageToken    string                  `json:"page_token" binding:"omitempty,max=512"`
}

func (r SearchOrdersRequest) toFilter() ecommerce.OrderSearchFilter {
	return ecommerce.OrderSearchFilter{
		OrderStatus:  r.OrderStatus,
		CreateTimeGE: r.CreateTimeGE,
		CreateTimeLT: r.CreateTimeLT,
		UpdateTimeGE: r.UpdateTimeGE,
		UpdateTimeLT: r.UpdateTimeLT,
		PageSize:     r.PageSize,
		PageToken:    r.PageToken,
	}
}

// OrderHistoryRequest pages through the stored orders
type OrderHistoryRequest struct {
	Page     int                     `form:"page" binding:"omitempty,min=1"`
	PageSize int                     `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   marketplace.OrderStatus `form:"status" binding:"omitempty,order_status"`
	SortBy   string                  `form:"sort_by" binding:"omitempty,oneof=updated_at created_at shipped_at total_amount order_id status"`
	SortDir  string                  `form:"sort_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// OrderRecordResponse is one stored order
type OrderRecordResponse struct {
	ID              uuid.UUID               `json:"id"`
	OrderID         string                  `json:"order_id"`
	Status          marketplace.OrderStatus `json:"status"`
	CustomerName    string                  `json:"customer_name"`
	CustomerPhone   string                  `json:"customer_phone"`
	CustomerAddress string                  `json:"customer_address"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	Currency        string                  `json:"currency"`
	ShippedAt       *time.Time              `json:"shipped_at,omitempty"`
	WaybillURL      string                  `json:"waybill_url,omitempty"`
	OrderData       json.RawMessage         `json:"order_data,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// ToOrderRecordResponse converts a stored record
func ToOrderRecordResponse(r marketplace.OrderRecord) OrderRecordResponse {
	return OrderRecordResponse{
		ID:              r.ID,
		OrderID:         r.OrderID,
		Status:          r.Status,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerAddress: r.CustomerAddress,
		TotalAmount:     r.TotalAmount,
		Currency:        r.Currency,
		ShippedAt:       r.ShippedAt,
		WaybillURL:      r.WaybillURL,
		OrderData:       r.OrderData,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// Search runs an order search and records the hits in the history
func (h *OrderHandler) Search(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	// An empty body searches without filters
	var req SearchOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.Search(c.Request.Context(), userID, req.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Details returns the orders named by the comma separated ids parameter
func (h *OrderHandler) Details(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	ids := splitIDs(c.Query("ids"))
	if len(ids) == 0 {
		h.BadRequest(c, "ids is required")
		return
	}

	list, err := h.service.Details(c.Request.Context(), userID, ids)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// History lists stored orders, newest first
func (h *OrderHandler) History(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req OrderHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.service.History(c.Request.Context(), userID, marketplace.HistoryFilter{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
		SortBy:   req.SortBy,
		SortDir:  req.SortDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	records := make([]OrderRecordResponse, len(page.Records))
	for i, r := range page.Records {
		records[i] = ToOrderRecordResponse(r)
	}
	h.SuccessWithMeta(c, records, page.Total, page.Page, page.PageSize)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
