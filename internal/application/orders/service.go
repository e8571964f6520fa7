// Package orders lists marketplace orders and the local order history.
package orders

import (
	"context"
	"errors"

	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
	"go.uber.org/zap"
)

// CredentialResolver returns credentials ready for shop-scoped calls
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string) (*marketplace.Credentials, error)
}

// OrderAPI is the part of the marketplace client used for orders
type OrderAPI interface {
	SearchOrders(ctx context.Context, creds *marketplace.Credentials, filter ecommerce.OrderSearchFilter) (*ecommerce.OrderSearchResult, error)
	GetOrderDetails(ctx context.Context, creds *marketplace.Credentials, orderIDs []string) ([]ecommerce.Order, error)
}

// SearchResult is one page of orders with their full details
type SearchResult struct {
	Orders        []ecommerce.Order `json:"orders"`
	NextPageToken string            `json:"next_page_token,omitempty"`
	TotalCount    int64             `json:"total_count"`
}

// HistoryPage is one page of stored order records
type HistoryPage struct {
	Records  []marketplace.OrderRecord
	Total    int64
	Page     int
	PageSize int
}

// Service reads orders from the marketplace and the order history
type Service struct {
	creds   CredentialResolver
	api     OrderAPI
	history marketplace.OrderHistory
	logger  *zap.Logger
}

// NewService creates an orders service
func NewService(creds CredentialResolver, api OrderAPI, history marketplace.OrderHistory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{creds: creds, api: api, history: history, logger: logger}
}

// Search runs an order search, expands the hits to full order details and
// records them in the history. Recording failures are logged, not returned.
func (s *Service) Search(ctx context.Context, userID string, filter ecommerce.OrderSearchFilter) (*SearchResult, error) {
	creds, err := s.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	found, err := s.api.SearchOrders(ctx, creds, filter)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Orders:        found.Orders,
		NextPageToken: found.NextPageToken,
		TotalCount:    found.TotalCount,
	}
	if len(found.Orders) == 0 {
		result.Orders = []ecommerce.Order{}
		return result, nil
	}

	ids := make([]string, len(found.Orders))
	for i, o := range found.Orders {
		ids[i] = o.ID
	}
	details, err := s.details(ctx, creds, ids)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		result.Orders = details
	}

	s.record(ctx, creds, result.Orders)
	return result, nil
}

// Details returns the full details of up to 50 orders
func (s *Service) Details(ctx context.Context, userID string, orderIDs []string) ([]ecommerce.Order, error) {
	if err := marketplace.ValidateOrderIDs(orderIDs); err != nil {
		return nil, err
	}
	creds, err := s.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.api.GetOrderDetails(ctx, creds, orderIDs)
}

// History pages through the orders recorded for the user's current credentials
func (s *Service) History(ctx context.Context, userID string, filter marketplace.HistoryFilter) (*HistoryPage, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, marketplace.ErrInvalidOrderStatus
	}
	filter.Normalize()

	creds, err := s.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, total, err := s.history.ListByCredential(ctx, creds.ID, filter)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{
		Records:  records,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// details fetches order details in batches the upstream accepts
func (s *Service) details(ctx context.Context, creds *marketplace.Credentials, ids []string) ([]ecommerce.Order, error) {
	out := make([]ecommerce.Order, 0, len(ids))
	for start := 0; start < len(ids); start += marketplace.MaxOrderDetailIDs {
		end := min(start+marketplace.MaxOrderDetailIDs, len(ids))
		batch, err := s.api.GetOrderDetails(ctx, creds, ids[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// record upserts fetched orders into the history while keeping shipment data
// the dashboard recorded earlier.
func (s *Service) record(ctx context.Context, creds *marketplace.Credentials, orders []ecommerce.Order) {
	saved := 0
	for i := range orders {
		rec := orders[i].ToRecord(creds.ID)

		existing, err := s.history.FindByOrderID(ctx, rec.OrderID)
		switch {
		case err == nil:
			rec.ShippedAt = existing.ShippedAt
			rec.WaybillURL = existing.WaybillURL
		case !errors.Is(err, marketplace.ErrOrderRecordNotFound):
			s.logger.Warn("Failed to read order history", zap.String("order_id", rec.OrderID), zap.Error(err))
			continue
		}

		if err := s.history.Upsert(ctx, rec); err != nil {
			s.logger.Warn("Failed to record order", zap.String("order_id", rec.OrderID), zap.Error(err))
			continue
		}
		saved++
	}
	s.logger.Debug("Recorded searched orders", zap.Int("orders", len(orders)), zap.Int("saved", saved))
}
