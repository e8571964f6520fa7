package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRecordRepository implements marketplace.OrderHistory using GORM
type GormOrderRecordRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderRecordRepository creates a new GormOrderRecordRepository
func NewGormOrderRecordRepository(db *gorm.DB) *GormOrderRecordRepository {
	return &GormOrderRecordRepository{db: db, now: time.Now}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormOrderRecordRepository) WithTx(tx *gorm.DB) *GormOrderRecordRepository {
	return &GormOrderRecordRepository{db: tx, now: r.now}
}

// orderRecordUpsertColumns are replaced when a record with the same order_id exists.
// id and created_at keep their original values.
var orderRecordUpsertColumns = []string{
	"credential_id", "status", "customer_name", "customer_phone", "customer_address",
	"total_amount", "currency", "shipped_at", "waybill_url", "order_data", "updated_at",
}

// Upsert inserts the record or replaces the one with the same OrderID
func (r *GormOrderRecordRepository) Upsert(ctx context.Context, record *marketplace.OrderRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	now := r.now().UTC()
	record.UpdatedAt = now
	model := models.OrderRecordModelFromDomain(record, now)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns(orderRecordUpsertColumns),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = model.CreatedAt
	}
	return nil
}

// FindByOrderID returns the record of a marketplace order
func (r *GormOrderRecordRepository) FindByOrderID(ctx context.Context, orderID string) (*marketplace.OrderRecord, error) {
	var model models.OrderRecordModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketplace.ErrOrderRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByCredential pages through records of one credential set, newest first
// unless the filter asks for another whitelisted order
func (r *GormOrderRecordRepository) ListByCredential(
	ctx context.Context,
	credentialID uuid.UUID,
	filter marketplace.HistoryFilter,
) ([]marketplace.OrderRecord, int64, error) {
	filter.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.OrderRecordModel{}).
		Where("credential_id = ?", credentialID)
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []marketplace.OrderRecord{}, 0, nil
	}

	sortField := ValidateSortField(filter.SortBy, OrderRecordSortFields, "updated_at")
	sortOrder := ValidateSortOrder(filter.SortDir)

	var rows []models.OrderRecordModel
	err := query.
		Order(sortField + " " + sortOrder).
		Order("order_id " + sortOrder).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	records := make([]marketplace.OrderRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, total, nil
}

// ShippedRevenue sums the totals of records shipped in [from, to)
func (r *GormOrderRecordRepository) ShippedRevenue(
	ctx context.Context,
	credentialID uuid.UUID,
	from, to time.Time,
) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.OrderRecordModel{}).
		Select("SUM(total_amount)").
		Where("credential_id = ?", credentialID).
		Where("status = ?", string(marketplace.OrderStatusShipped)).
		Where("shipped_at >= ? AND shipped_at < ?", from.UTC(), to.UTC()).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Ensure GormOrderRecordRepository implements marketplace.OrderHistory
var _ marketplace.OrderHistory = (*GormOrderRecordRepository)(nil)
