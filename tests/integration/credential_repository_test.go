package integration

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationSealer(t *testing.T, fill byte) *persistence.SecretSealer {
	t.Helper()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{fill}, 32))
	sealer, err := persistence.NewSecretSealer(key)
	require.NoError(t, err)
	return sealer
}

func newSellerCredentials(userID string) *marketplace.Credentials {
	expires := time.Date(2031, 3, 1, 12, 0, 0, 0, time.UTC)
	return &marketplace.Credentials{
		UserID:               userID,
		AppKey:               "6abc1def",
		AppSecret:            "app-secret-value",
		AccessToken:          "ROW_access_token",
		RefreshToken:         "ROW_refresh_token",
		AccessTokenExpiresAt: &expires,
		ShopID:               "7495213",
		ShopName:             "Kedai Demo",
		ShopCipher:           "ROW_cipher",
		ShopRegion:           "MY",
	}
}

func TestCredentialRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormCredentialRepository(testDB.DB, newIntegrationSealer(t, 3))
	ctx := context.Background()

	t.Run("Save and Load round trip", func(t *testing.T) {
		creds := newSellerCredentials("seller-1")
		require.NoError(t, repo.Save(ctx, creds))
		require.NotEqual(t, uuid.Nil, creds.ID)

		loaded, err := repo.Load(ctx, "seller-1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, creds.ID, loaded.ID)
		assert.Equal(t, "app-secret-value", loaded.AppSecret)
		assert.Equal(t, "ROW_access_token", loaded.AccessToken)
		assert.Equal(t, "ROW_refresh_token", loaded.RefreshToken)
		assert.Equal(t, "ROW_cipher", loaded.ShopCipher)
		require.NotNil(t, loaded.AccessTokenExpiresAt)
		assert.True(t, creds.AccessTokenExpiresAt.Equal(*loaded.AccessTokenExpiresAt))
	})

	t.Run("Secrets are not stored in plain text", func(t *testing.T) {
		creds := newSellerCredentials("seller-2")
		require.NoError(t, repo.Save(ctx, creds))

		var row struct {
			AppSecret    string
			AccessToken  string
			RefreshToken string
		}
		err := testDB.DB.Raw(
			"SELECT app_secret, access_token, refresh_token FROM tiktok_credentials WHERE id = ?",
			creds.ID,
		).Scan(&row).Error
		require.NoError(t, err)

		for _, stored := range []string{row.AppSecret, row.AccessToken, row.RefreshToken} {
			assert.True(t, strings.HasPrefix(stored, "sealed:v1:"), stored)
			assert.NotContains(t, stored, "secret-value")
			assert.NotContains(t, stored, "ROW_")
		}
	})

	t.Run("Save with an existing ID replaces the row", func(t *testing.T) {
		creds := newSellerCredentials("seller-3")
		require.NoError(t, repo.Save(ctx, creds))
		firstID := creds.ID

		creds.AccessToken = "ROW_rotated"
		creds.ShopName = "Renamed Shop"
		require.NoError(t, repo.Save(ctx, creds))
		assert.Equal(t, firstID, creds.ID)

		var count int64
		require.NoError(t, testDB.DB.Table("tiktok_credentials").
			Where("user_id = ?", "seller-3").Count(&count).Error)
		assert.Equal(t, int64(1), count)

		loaded, err := repo.Get(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, "ROW_rotated", loaded.AccessToken)
		assert.Equal(t, "Renamed Shop", loaded.ShopName)
	})

	t.Run("Load returns the most recently updated set", func(t *testing.T) {
		older := newSellerCredentials("seller-4")
		older.ShopName = "Old"
		require.NoError(t, repo.Save(ctx, older))

		time.Sleep(10 * time.Millisecond)
		newer := newSellerCredentials("seller-4")
		newer.ShopName = "New"
		require.NoError(t, repo.Save(ctx, newer))

		loaded, err := repo.Load(ctx, "seller-4")
		require.NoError(t, err)
		assert.Equal(t, newer.ID, loaded.ID)
		assert.Equal(t, "New", loaded.ShopName)
	})

	t.Run("Load without credentials returns nil", func(t *testing.T) {
		loaded, err := repo.Load(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("Get unknown ID", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, marketplace.ErrCredentialsNotFound)
	})

	t.Run("Update unknown ID", func(t *testing.T) {
		creds := newSellerCredentials("seller-5")
		creds.ID = uuid.New()
		err := repo.Update(ctx, creds)
		assert.ErrorIs(t, err, marketplace.ErrCredentialsNotFound)
	})

	t.Run("Another key cannot open stored secrets", func(t *testing.T) {
		creds := newSellerCredentials("seller-6")
		require.NoError(t, repo.Save(ctx, creds))

		other := persistence.NewGormCredentialRepository(testDB.DB, newIntegrationSealer(t, 4))
		_, err := other.Get(ctx, creds.ID)
		assert.ErrorIs(t, err, persistence.ErrSealedValueCorrupt)
	})
}
