package marketplace

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// OrderStatus represents the status of an order on the marketplace
// ---------------------------------------------------------------------------

// OrderStatus represents the status of an order on the marketplace
type OrderStatus string

const (
	OrderStatusUnpaid             OrderStatus = "UNPAID"
	OrderStatusOnHold             OrderStatus = "ON_HOLD"
	OrderStatusAwaitingShipment   OrderStatus = "AWAITING_SHIPMENT"
	OrderStatusPartiallyShipping  OrderStatus = "PARTIALLY_SHIPPING"
	OrderStatusAwaitingCollection OrderStatus = "AWAITING_COLLECTION"
	OrderStatusInTransit          OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered          OrderStatus = "DELIVERED"
	OrderStatusCompleted          OrderStatus = "COMPLETED"
	OrderStatusCancelled          OrderStatus = "CANCELLED"
	// OrderStatusShipped is recorded locally once the dashboard shipped the package
	OrderStatusShipped OrderStatus = "SHIPPED"
)

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusUnpaid, OrderStatusOnHold, OrderStatusAwaitingShipment,
		OrderStatusPartiallyShipping, OrderStatusAwaitingCollection, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusShipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanShip returns true if the package of an order in this status may be shipped
func (s OrderStatus) CanShip() bool {
	return s == OrderStatusAwaitingShipment
}

// ---------------------------------------------------------------------------
// HandoverMethod is the logistics mode chosen when shipping a package
// ---------------------------------------------------------------------------

// HandoverMethod is the logistics mode chosen when shipping a package
type HandoverMethod string

const (
	HandoverMethodPickup  HandoverMethod = "PICKUP"
	HandoverMethodDropOff HandoverMethod = "DROP_OFF"
)

// IsValid returns true if the handover method is valid
func (m HandoverMethod) IsValid() bool {
	return m == HandoverMethodPickup || m == HandoverMethodDropOff
}

// OrDefault returns PICKUP for an empty method
func (m HandoverMethod) OrDefault() HandoverMethod {
	if m == "" {
		return HandoverMethodPickup
	}
	return HandoverMethod(strings.ToUpper(string(m)))
}

// DocumentType selects which shipping document is generated
type DocumentType string

const (
	DocumentTypeShippingLabel       DocumentType = "SHIPPING_LABEL"
	DocumentTypePackingSlip         DocumentType = "PACKING_SLIP"
	DocumentTypeLabelAndPackingSlip DocumentType = "SHIPPING_LABEL_AND_PACKING_SLIP"
)

// IsValid returns true if the document type is valid
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentTypeShippingLabel, DocumentTypePackingSlip, DocumentTypeLabelAndPackingSlip:
		return true
	default:
		return false
	}
}

// OrDefault returns SHIPPING_LABEL for an empty type
func (d DocumentType) OrDefault() DocumentType {
	if d == "" {
		return DocumentTypeShippingLabel
	}
	return d
}

// ---------------------------------------------------------------------------
// OrderRecord is the local history of an order handled through the dashboard
// ---------------------------------------------------------------------------

// OrderRecord is the local history of an order handled through the dashboard.
// OrderID is the marketplace order ID and is unique across records.
type OrderRecord struct {
	ID              uuid.UUID
	CredentialID    uuid.UUID
	OrderID         string
	Status          OrderStatus
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	TotalAmount     decimal.Decimal
	Currency        string
	ShippedAt       *time.Time
	WaybillURL      string
	// OrderData is the full upstream order payload, stored unmodified
	OrderData json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the record before it is stored
func (r *OrderRecord) Validate() error {
	if r.OrderID == "" {
		return ErrInvalidOrderIDs
	}
	if r.CredentialID == uuid.Nil {
		return ErrCredentialsNotFound
	}
	if r.Status != "" && !r.Status.IsValid() {
		return ErrInvalidOrderStatus
	}
	return nil
}

// HistoryFilter pages through stored order records.
// SortBy and SortDir are checked against a whitelist by the store;
// unknown values fall back to newest first.
type HistoryFilter struct {
	Status   OrderStatus
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
}

// Normalize applies paging defaults
func (f *HistoryFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

// Offset returns the row offset for the current page
func (f HistoryFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// MaxOrderDetailIDs is the upstream limit for one order details call
const MaxOrderDetailIDs = 50

// ValidateOrderIDs checks an ID batch for order detail lookups
func ValidateOrderIDs(ids []string) error {
	if len(ids) == 0 || len(ids) > MaxOrderDetailIDs {
		return ErrInvalidOrderIDs
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidOrderIDs
		}
	}
	return nil
}
