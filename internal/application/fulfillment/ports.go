// Package fulfillment ships packages in bulk and prints their shipping labels.
package fulfillment

import (
	"context"

	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
)

// CredentialResolver returns credentials ready for shop-scoped calls
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string) (*marketplace.Credentials, error)
}

// FulfillmentAPI is the part of the marketplace client used to ship and print
type FulfillmentAPI interface {
	GetOrderDetails(ctx context.Context, creds *marketplace.Credentials, orderIDs []string) ([]ecommerce.Order, error)
	ShipPackage(ctx context.Context, creds *marketplace.Credentials, packageID string, method marketplace.HandoverMethod) error
	GetShippingDocument(ctx context.Context, creds *marketplace.Credentials, packageID string, docType marketplace.DocumentType) (*ecommerce.ShippingDocument, error)
	SearchPackages(ctx context.Context, creds *marketplace.Credentials, filter ecommerce.PackageSearchFilter) (*ecommerce.PackageSearchResult, error)
}

// Recorder receives fulfillment counters
type Recorder interface {
	RecordShipment(ctx context.Context, outcome string)
	RecordWaybillPrint(ctx context.Context, mode string)
}

type nopRecorder struct{}

func (nopRecorder) RecordShipment(context.Context, string)     {}
func (nopRecorder) RecordWaybillPrint(context.Context, string) {}

// Shipment outcomes reported to the Recorder
const (
	OutcomeShipped = "shipped"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// SkippedOrder is an order the batch did not act on, with the reason why
type SkippedOrder struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// orderIndex maps order ID to order for a details response
func orderIndex(orders []ecommerce.Order) map[string]*ecommerce.Order {
	idx := make(map[string]*ecommerce.Order, len(orders))
	for i := range orders {
		idx[orders[i].ID] = &orders[i]
	}
	return idx
}

// uniqueIDs drops repeated order IDs and keeps the first-seen order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
