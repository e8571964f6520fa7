package marketplace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CredentialStore persists seller credentials
type CredentialStore interface {
	// Load returns the most recent credentials of a user, nil when none exist
	Load(ctx context.Context, userID string) (*Credentials, error)
	// Save inserts new credentials; an ID is assigned when missing
	Save(ctx context.Context, creds *Credentials) error
	// Get returns credentials by ID or ErrCredentialsNotFound
	Get(ctx context.Context, id uuid.UUID) (*Credentials, error)
	// Update overwrites stored credentials or returns ErrCredentialsNotFound
	Update(ctx context.Context, creds *Credentials) error
}

// OrderHistory persists order records handled through the dashboard
type OrderHistory interface {
	// Upsert inserts or replaces the record with the same OrderID
	Upsert(ctx context.Context, record *OrderRecord) error
	// FindByOrderID returns the record or ErrOrderRecordNotFound
	FindByOrderID(ctx context.Context, orderID string) (*OrderRecord, error)
	// ListByCredential returns records newest first and the total count
	ListByCredential(ctx context.Context, credentialID uuid.UUID, filter HistoryFilter) ([]OrderRecord, int64, error)
	// ShippedRevenue sums TotalAmount of records shipped in [from, to)
	ShippedRevenue(ctx context.Context, credentialID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}

// DocumentMerger combines shipping documents into one file.
// A nil blob with a nil error means the documents could not be merged and the
// caller should fall back to the individual URLs.
type DocumentMerger interface {
	Merge(ctx context.Context, documentURLs []string) ([]byte, error)
}

// LabelArchive stores merged label files and returns a download URL
type LabelArchive interface {
	Store(ctx context.Context, key string, pdf []byte) (string, error)
}

// ShipmentGuard prevents a package from being shipped twice by concurrent batches
type ShipmentGuard interface {
	// Acquire returns false if the key is already held
	Acquire(ctx context.Context, key string) (bool, error)
	// Release frees the key so the shipment may be retried
	Release(ctx context.Context, key string) error
}
