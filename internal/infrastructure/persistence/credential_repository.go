package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCredentialRepository implements marketplace.CredentialStore using GORM.
// Secrets and tokens are sealed before they reach the database.
type GormCredentialRepository struct {
	db     *gorm.DB
	sealer *SecretSealer
	now    func() time.Time
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB, sealer *SecretSealer) *GormCredentialRepository {
	if sealer == nil {
		sealer = &SecretSealer{}
	}
	return &GormCredentialRepository{db: db, sealer: sealer, now: time.Now}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormCredentialRepository) WithTx(tx *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: tx, sealer: r.sealer, now: r.now}
}

// Load returns the most recently updated credentials of a user, nil when none exist
func (r *GormCredentialRepository) Load(ctx context.Context, userID string) (*marketplace.Credentials, error) {
	var model models.TikTokCredentialModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.unseal(&model)
}

// Get returns credentials by ID
func (r *GormCredentialRepository) Get(ctx context.Context, id uuid.UUID) (*marketplace.Credentials, error) {
	var model models.TikTokCredentialModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketplace.ErrCredentialsNotFound
		}
		return nil, err
	}
	return r.unseal(&model)
}

// Save inserts the credentials, or replaces the row with the same ID.
// The assigned ID and timestamps are written back to creds.
func (r *GormCredentialRepository) Save(ctx context.Context, creds *marketplace.Credentials) error {
	now := r.now().UTC()
	creds.UpdatedAt = now
	model, err := r.seal(creds, now)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(credentialMutableColumns),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	creds.ID = model.ID
	creds.CreatedAt = model.CreatedAt
	return nil
}

// Update overwrites an existing row
func (r *GormCredentialRepository) Update(ctx context.Context, creds *marketplace.Credentials) error {
	if creds.ID == uuid.Nil {
		return marketplace.ErrCredentialsNotFound
	}
	now := r.now().UTC()
	creds.UpdatedAt = now
	model, err := r.seal(creds, now)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.TikTokCredentialModel{}).
		Where("id = ?", creds.ID).
		Select(credentialMutableColumns).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return marketplace.ErrCredentialsNotFound
	}
	return nil
}

// ListExpiring returns credentials whose access token expires before the
// given time and that still hold a usable refresh token, soonest first
func (r *GormCredentialRepository) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*marketplace.Credentials, error) {
	if limit <= 0 {
		limit = 100
	}
	now := r.now().UTC()

	var rows []models.TikTokCredentialModel
	err := r.db.WithContext(ctx).
		Where("refresh_token IS NOT NULL AND refresh_token <> ''").
		Where("access_token_expires_at IS NOT NULL AND access_token_expires_at < ?", before.UTC()).
		Where("refresh_token_expires_at IS NULL OR refresh_token_expires_at > ?", now).
		Order("access_token_expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*marketplace.Credentials, 0, len(rows))
	for i := range rows {
		creds, err := r.unseal(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, creds)
	}
	return out, nil
}

// credentialMutableColumns lists every column a save may change
var credentialMutableColumns = []string{
	"user_id", "app_key", "app_secret", "access_token", "refresh_token",
	"access_token_expires_at", "refresh_token_expires_at",
	"shop_id", "shop_name", "shop_cipher", "shop_region",
	"ads_access_token", "ads_advertiser_id", "updated_at",
}

func (r *GormCredentialRepository) seal(creds *marketplace.Credentials, now time.Time) (*models.TikTokCredentialModel, error) {
	if creds.ID == uuid.Nil {
		creds.ID = uuid.New()
	}
	model := models.TikTokCredentialModelFromDomain(creds, now)
	rowID := model.ID.String()

	for _, field := range []*string{&model.AppSecret, &model.AccessToken, &model.RefreshToken, &model.AdsAccessToken} {
		sealed, err := r.sealer.Seal(rowID, *field)
		if err != nil {
			return nil, fmt.Errorf("seal credentials: %w", err)
		}
		*field = sealed
	}
	return model, nil
}

func (r *GormCredentialRepository) unseal(model *models.TikTokCredentialModel) (*marketplace.Credentials, error) {
	creds := model.ToDomain()
	rowID := model.ID.String()

	for _, field := range []*string{&creds.AppSecret, &creds.AccessToken, &creds.RefreshToken, &creds.AdsAccessToken} {
		plain, err := r.sealer.Open(rowID, *field)
		if err != nil {
			return nil, fmt.Errorf("open credentials %s: %w", rowID, err)
		}
		*field = plain
	}
	return creds, nil
}

// Ensure GormCredentialRepository implements marketplace.CredentialStore
var _ marketplace.CredentialStore = (*GormCredentialRepository)(nil)
