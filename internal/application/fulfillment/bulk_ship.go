package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultShipInterval paces consecutive ship calls of one batch
const DefaultShipInterval = 500 * time.Millisecond

// Skip reasons
const (
	ReasonNotFound       = "order not found"
	ReasonNoPackage      = "order has no package"
	ReasonAlreadyHandled = "package is already shipped or being shipped"
	ReasonCancelled      = "batch cancelled"
)

// BulkShipInput selects the orders of a batch
type BulkShipInput struct {
	OrderIDs       []string                   `json:"order_ids" binding:"required,min=1,max=50,dive,required"`
	HandoverMethod marketplace.HandoverMethod `json:"handover_method" binding:"omitempty,handover_method"`
}

// ShipmentOutcome describes one shipped package
type ShipmentOutcome struct {
	OrderID    string    `json:"order_id"`
	PackageID  string    `json:"package_id"`
	WaybillURL string    `json:"waybill_url,omitempty"`
	ShippedAt  time.Time `json:"shipped_at"`
}

// ShipmentItem is the result of one attempted shipment
type ShipmentItem struct {
	OrderID string                              `json:"order_id"`
	Result  marketplace.Result[ShipmentOutcome] `json:"result"`
}

// BatchResult summarizes a bulk ship run
type BatchResult struct {
	BatchID   uuid.UUID      `json:"batch_id"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Cancelled bool           `json:"cancelled,omitempty"`
	Items     []ShipmentItem `json:"items"`
	Skips     []SkippedOrder `json:"skips"`
}

func (b *BatchResult) skip(orderID, reason string) {
	b.Skipped++
	b.Skips = append(b.Skips, SkippedOrder{OrderID: orderID, Reason: reason})
}

// BulkShipService ships the packages of many orders one after another
type BulkShipService struct {
	creds    CredentialResolver
	api      FulfillmentAPI
	history  marketplace.OrderHistory
	guard    marketplace.ShipmentGuard
	recorder Recorder
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// BulkShipOption is a functional option for BulkShipService
type BulkShipOption func(*BulkShipService)

// WithShipInterval sets the pause between ship calls; zero disables pacing
func WithShipInterval(d time.Duration) BulkShipOption {
	return func(s *BulkShipService) {
		s.interval = d
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) BulkShipOption {
	return func(s *BulkShipService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithShipClock replaces the time source
func WithShipClock(now func() time.Time) BulkShipOption {
	return func(s *BulkShipService) {
		s.now = now
	}
}

// NewBulkShipService creates a bulk ship service
func NewBulkShipService(
	creds CredentialResolver,
	api FulfillmentAPI,
	history marketplace.OrderHistory,
	guard marketplace.ShipmentGuard,
	logger *zap.Logger,
	opts ...BulkShipOption,
) *BulkShipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &BulkShipService{
		creds:    creds,
		api:      api,
		history:  history,
		guard:    guard,
		recorder: nopRecorder{},
		interval: DefaultShipInterval,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ship ships every selected order that is awaiting shipment. A failed order
// never aborts the batch; a cancelled context stops it and the remaining
// orders are reported as skipped.
func (s *BulkShipService) Ship(ctx context.Context, userID string, input BulkShipInput) (*BatchResult, error) {
	if err := marketplace.ValidateOrderIDs(input.OrderIDs); err != nil {
		return nil, err
	}
	method := input.HandoverMethod.OrDefault()
	if !method.IsValid() {
		return nil, marketplace.ErrInvalidHandoverMethod
	}

	creds, err := s.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(input.OrderIDs)
	details, err := s.api.GetOrderDetails(ctx, creds, ids)
	if err != nil {
		return nil, err
	}
	byID := orderIndex(details)

	batch := &BatchResult{
		BatchID: uuid.New(),
		Items:   []ShipmentItem{},
		Skips:   []SkippedOrder{},
	}
	log := s.logger.With(zap.String("batch_id", batch.BatchID.String()), zap.String("user_id", userID))

	var shippable []*ecommerce.Order
	for _, id := range ids {
		order, ok := byID[id]
		switch {
		case !ok:
			batch.skip(id, ReasonNotFound)
		case !order.Status.CanShip():
			batch.skip(id, fmt.Sprintf("order status is %s", order.Status))
		case order.FirstPackageID() == "":
			batch.skip(id, ReasonNoPackage)
		default:
			shippable = append(shippable, order)
			continue
		}
		s.recorder.RecordShipment(ctx, OutcomeSkipped)
	}

	limit := rate.Inf
	if s.interval > 0 {
		limit = rate.Every(s.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for i, order := range shippable {
		if err := limiter.Wait(ctx); err != nil {
			batch.Cancelled = true
			for _, rest := range shippable[i:] {
				batch.skip(rest.ID, ReasonCancelled)
			}
			log.Warn("Bulk ship cancelled", zap.Int("remaining", len(shippable)-i), zap.Error(err))
			break
		}
		s.shipOne(ctx, log, creds, order, method, batch)
	}

	log.Info("Bulk ship finished",
		zap.Int("requested", len(ids)),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed),
		zap.Int("skipped", batch.Skipped),
	)
	return batch, nil
}

func (s *BulkShipService) shipOne(
	ctx context.Context,
	log *zap.Logger,
	creds *marketplace.Credentials,
	order *ecommerce.Order,
	method marketplace.HandoverMethod,
	batch *BatchResult,
) {
	packageID := order.FirstPackageID()
	key := creds.ShopCipher + ":" + packageID

	acquired, err := s.guard.Acquire(ctx, key)
	if err != nil {
		s.fail(ctx, log, batch, order.ID, err)
		return
	}
	if !acquired {
		batch.skip(order.ID, ReasonAlreadyHandled)
		s.recorder.RecordShipment(ctx, OutcomeSkipped)
		return
	}

	if err := s.api.ShipPackage(ctx, creds, packageID, method); err != nil {
		if relErr := s.guard.Release(context.WithoutCancel(ctx), key); relErr != nil {
			log.Warn("Failed to release shipment guard", zap.String("package_id", packageID), zap.Error(relErr))
		}
		s.fail(ctx, log, batch, order.ID, err)
		return
	}

	outcome := ShipmentOutcome{
		OrderID:   order.ID,
		PackageID: packageID,
		ShippedAt: s.now().UTC(),
	}

	// The label is best effort; the package is shipped either way
	doc, err := s.api.GetShippingDocument(ctx, creds, packageID, marketplace.DocumentTypeShippingLabel)
	if err != nil {
		log.Warn("Shipping label unavailable", zap.String("order_id", order.ID), zap.Error(err))
	} else if doc != nil {
		outcome.WaybillURL = doc.DocURL
	}

	rec := order.ToRecord(creds.ID)
	rec.Status = marketplace.OrderStatusShipped
	shippedAt := outcome.ShippedAt
	rec.ShippedAt = &shippedAt
	rec.WaybillURL = outcome.WaybillURL
	if err := s.history.Upsert(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("Failed to record shipped order", zap.String("order_id", order.ID), zap.Error(err))
	}

	batch.Succeeded++
	batch.Items = append(batch.Items, ShipmentItem{OrderID: order.ID, Result: marketplace.Ok(outcome)})
	s.recorder.RecordShipment(ctx, OutcomeShipped)
}

func (s *BulkShipService) fail(ctx context.Context, log *zap.Logger, batch *BatchResult, orderID string, err error) {
	log.Warn("Shipment failed",
		zap.String("order_id", orderID),
		zap.String("kind", marketplace.KindOf(err).String()),
		zap.Error(err),
	)
	batch.Failed++
	batch.Items = append(batch.Items, ShipmentItem{OrderID: orderID, Result: marketplace.Fail[ShipmentOutcome](err)})
	s.recorder.RecordShipment(ctx, OutcomeFailed)
}
