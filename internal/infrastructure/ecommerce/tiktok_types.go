package ecommerce

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

// ---------------------------------------------------------------------------
// Common TikTok API Response Types
// ---------------------------------------------------------------------------

// TikTokResponse is the envelope of every TikTok Shop API answer
type TikTokResponse struct {
	// Code is the business result code (0 for success)
	Code int `json:"code"`
	// Message is the upstream message
	Message string `json:"message"`
	// RequestID is the upstream trace ID for support tickets
	RequestID string `json:"request_id,omitempty"`
	// Data is the operation payload, passed through unmodified
	Data json.RawMessage `json:"data,omitempty"`
}

// IsSuccess returns true if the response indicates success
func (r *TikTokResponse) IsSuccess() bool {
	return r.Code == 0
}

// ---------------------------------------------------------------------------
// Authorization Types
// ---------------------------------------------------------------------------

// AuthorizedShopsData is the payload of /authorization/202309/shops
type AuthorizedShopsData struct {
	Shops []marketplace.Shop `json:"shops"`
}

// ---------------------------------------------------------------------------
// Order Types
// ---------------------------------------------------------------------------

// OrderSearchFilter narrows an order search. Zero values are omitted.
type OrderSearchFilter struct {
	OrderStatus  marketplace.OrderStatus `json:"order_status,omitempty"`
	CreateTimeGE int64                   `json:"create_time_ge,omitempty"`
	CreateTimeLT int64                   `json:"create_time_lt,omitempty"`
	UpdateTimeGE int64                   `json:"update_time_ge,omitempty"`
	UpdateTimeLT int64                   `json:"update_time_lt,omitempty"`
	PageSize     int                     `json:"page_size,omitempty"`
	PageToken    string                  `json:"page_token,omitempty"`
}

// OrderSearchResult is the payload of /order/202309/orders/search
type OrderSearchResult struct {
	Orders        []Order `json:"orders"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	TotalCount    int64   `json:"total_count"`
}

// OrderDetailsResult is the payload of /order/202309/orders
type OrderDetailsResult struct {
	Orders []Order `json:"orders"`
}

// Order is the subset of an upstream order the dashboard acts on.
// Raw keeps the full upstream object so it can be stored unmodified.
type Order struct {
	ID               string                  `json:"id"`
	Status           marketplace.OrderStatus `json:"status"`
	CreateTime       int64                   `json:"create_time"`
	UpdateTime       int64                   `json:"update_time"`
	Packages         []OrderPackage          `json:"packages,omitempty"`
	RecipientAddress *RecipientAddress       `json:"recipient_address,omitempty"`
	Payment          *OrderPayment           `json:"payment,omitempty"`
	Raw              json.RawMessage         `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object
func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Order(p)
	o.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the raw object so the order passes through unchanged
func (o Order) MarshalJSON() ([]byte, error) {
	if len(o.Raw) > 0 {
		return o.Raw, nil
	}
	type plain Order
	return json.Marshal(plain(o))
}

// FirstPackageID returns the package shipped for the order, empty if none
func (o *Order) FirstPackageID() string {
	if len(o.Packages) == 0 {
		return ""
	}
	return o.Packages[0].ID
}

// ToRecord projects the order onto a history record owned by credentialID.
// The full upstream object is kept as OrderData.
func (o *Order) ToRecord(credentialID uuid.UUID) *marketplace.OrderRecord {
	rec := &marketplace.OrderRecord{
		CredentialID: credentialID,
		OrderID:      o.ID,
		Status:       o.Status,
		TotalAmount:  o.Payment.Total(),
		OrderData:    o.Raw,
	}
	if o.Payment != nil {
		rec.Currency = o.Payment.Currency
	}
	if a := o.RecipientAddress; a != nil {
		rec.CustomerName = a.Name
		rec.CustomerPhone = a.PhoneNumber
		rec.CustomerAddress = a.FullAddress
	}
	if len(rec.OrderData) == 0 {
		rec.OrderData, _ = json.Marshal(o)
	}
	if o.CreateTime > 0 {
		rec.CreatedAt = time.Unix(o.CreateTime, 0).UTC()
	}
	return rec
}

// OrderPackage references a fulfillment package of an order
type OrderPackage struct {
	ID string `json:"id"`
}

// RecipientAddress is the buyer's shipping address
type RecipientAddress struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	FullAddress string `json:"full_address"`
	PostalCode  string `json:"postal_code,omitempty"`
	RegionCode  string `json:"region_code,omitempty"`
}

// OrderPayment carries the order totals. Amounts arrive as decimal strings.
type OrderPayment struct {
	Currency    string `json:"currency"`
	TotalAmount string `json:"total_amount"`
	SubTotal    string `json:"sub_total,omitempty"`
	ShippingFee string `json:"shipping_fee,omitempty"`
}

// Total parses TotalAmount, zero when absent or malformed
func (p *OrderPayment) Total() decimal.Decimal {
	if p == nil || p.TotalAmount == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(p.TotalAmount)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ---------------------------------------------------------------------------
// Fulfillment Types
// ---------------------------------------------------------------------------

// ShippingDocument is the payload of the shipping_documents endpoint
type ShippingDocument struct {
	DocURL         string `json:"doc_url"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// PackageSearchFilter narrows a package search. Zero values are omitted.
type PackageSearchFilter struct {
	PackageStatus string `json:"package_status,omitempty"`
	CreateTimeGE  int64  `json:"create_time_ge,omitempty"`
	CreateTimeLT  int64  `json:"create_time_lt,omitempty"`
	UpdateTimeGE  int64  `json:"update_time_ge,omitempty"`
	UpdateTimeLT  int64  `json:"update_time_lt,omitempty"`
	PageSize      int    `json:"page_size,omitempty"`
	PageToken     string `json:"page_token,omitempty"`
}

// PackageSearchResult is the payload of /fulfillment/202309/packages/search
type PackageSearchResult struct {
	Packages      []PackageSummary `json:"packages"`
	NextPageToken string           `json:"next_page_token,omitempty"`
	TotalCount    int64            `json:"total_count"`
}

// PackageSummary is one package returned by a package search
type PackageSummary struct {
	ID                   string         `json:"id"`
	Status               string         `json:"status"`
	TrackingNumber       string         `json:"tracking_number,omitempty"`
	ShippingProviderID   string         `json:"shipping_provider_id,omitempty"`
	ShippingProviderName string         `json:"shipping_provider_name,omitempty"`
	Orders               []OrderPackage `json:"orders,omitempty"`
	CreateTime           int64          `json:"create_time"`
	UpdateTime           int64          `json:"update_time"`
}
