// Package account connects a dashboard user to their TikTok Shop and keeps the
// stored credentials usable.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"go.uber.org/zap"
)

var (
	// ErrNoAuthorizedShops is returned when the seller authorized no shop for the app
	ErrNoAuthorizedShops = errors.New("account: no authorized shops found")
	// ErrShopNotAuthorized is returned when the requested shop is not among the authorized ones
	ErrShopNotAuthorized = errors.New("account: shop is not authorized for this app")
	// ErrInvalidCallbackURL is returned when the callback URL lacks app_key or code
	ErrInvalidCallbackURL = errors.New("account: callback url must contain app_key and code")
)

// refreshLeeway renews access tokens shortly before they expire
const refreshLeeway = 5 * time.Minute

// ShopAuthorizer is the part of the marketplace client used for authorization
type ShopAuthorizer interface {
	GetAccessToken(ctx context.Context, appKey, appSecret, authCode string) (*marketplace.TokenGrant, error)
	RefreshAccessToken(ctx context.Context, appKey, appSecret, refreshToken string) (*marketplace.TokenGrant, error)
	GetAuthorizedShops(ctx context.Context, creds *marketplace.Credentials) ([]marketplace.Shop, error)
}

// Service manages the seller credentials of dashboard users
type Service struct {
	store  marketplace.CredentialStore
	api    ShopAuthorizer
	now    func() time.Time
	logger *zap.Logger
}

// ServiceOption is a functional option for Service
type ServiceOption func(*Service)

// WithClock replaces the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an account service
func NewService(store marketplace.CredentialStore, api ShopAuthorizer, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		api:    api,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Connecting
// ---------------------------------------------------------------------------

// Connect exchanges the authorization code, looks up the authorized shops and
// stores a new credentials record bound to the selected shop.
func (s *Service) Connect(ctx context.Context, userID string, input ConnectInput) (*ConnectResult, error) {
	if err := input.resolve(); err != nil {
		return nil, err
	}

	grant, err := s.api.GetAccessToken(ctx, input.AppKey, input.AppSecret, input.AuthCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	creds := &marketplace.Credentials{
		ID:        uuid.New(),
		UserID:    userID,
		AppKey:    input.AppKey,
		AppSecret: input.AppSecret,
		CreatedAt: now,
	}
	creds.ApplyToken(*grant, now)

	shops, err := s.api.GetAuthorizedShops(ctx, creds)
	if err != nil {
		return nil, err
	}
	shop, err := pickShop(shops, input.ShopID)
	if err != nil {
		return nil, err
	}
	creds.ApplyShop(shop)

	if err := s.store.Save(ctx, creds); err != nil {
		return nil, err
	}

	s.logger.Info("Seller connected", zap.Object("credentials", creds), zap.Int("shops", len(shops)))
	return &ConnectResult{Credentials: creds.View(), Shops: publicShops(shops)}, nil
}

// SaveManual verifies hand-entered credentials against the authorization API
// and stores them as a new record.
func (s *Service) SaveManual(ctx context.Context, userID string, input ManualInput) (*ConnectResult, error) {
	now := s.now()
	creds := &marketplace.Credentials{
		ID:              uuid.New(),
		UserID:          userID,
		AppKey:          input.AppKey,
		AppSecret:       input.AppSecret,
		AccessToken:     input.AccessToken,
		RefreshToken:    input.RefreshToken,
		ShopCipher:      input.ShopCipher,
		AdsAccessToken:  input.AdsAccessToken,
		AdsAdvertiserID: input.AdsAdvertiserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := creds.ValidateShopScope(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}

	shops, err := s.api.GetAuthorizedShops(ctx, creds)
	if err != nil {
		return nil, err
	}
	if len(shops) == 0 {
		return nil, ErrNoAuthorizedShops
	}

	// Keep the entered cipher; take the shop whose cipher matches, else the first one
	shop := shops[0]
	for _, sh := range shops {
		if sh.Cipher == input.ShopCipher {
			shop = sh
			break
		}
	}
	creds.ShopID = shop.ID
	creds.ShopName = shop.Name
	creds.ShopRegion = shop.Region

	if err := s.store.Save(ctx, creds); err != nil {
		return nil, err
	}

	s.logger.Info("Manual credentials saved", zap.Object("credentials", creds))
	return &ConnectResult{Credentials: creds.View(), Shops: publicShops(shops)}, nil
}

// ---------------------------------------------------------------------------
// Token lifecycle
// ---------------------------------------------------------------------------

// Refresh renews the access token of the user's current credentials
func (s *Service) Refresh(ctx context.Context, userID string) (*marketplace.CredentialsView, error) {
	creds, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, creds); err != nil {
		return nil, err
	}
	view := creds.View()
	return &view, nil
}

// RefreshCredentials renews the access token of an already loaded credential
// set. The background token refresher calls it for every expiring record.
func (s *Service) RefreshCredentials(ctx context.Context, creds *marketplace.Credentials) error {
	return s.refresh(ctx, creds)
}

func (s *Service) refresh(ctx context.Context, creds *marketplace.Credentials) error {
	if creds.RefreshToken == "" {
		return marketplace.NewConfigurationError(marketplace.ErrMissingRefresh)
	}

	grant, err := s.api.RefreshAccessToken(ctx, creds.AppKey, creds.AppSecret, creds.RefreshToken)
	if err != nil {
		return err
	}
	creds.ApplyToken(*grant, s.now())

	if err := s.store.Update(ctx, creds); err != nil {
		return err
	}

	s.logger.Info("Access token refreshed", zap.Object("credentials", creds))
	return nil
}

// Resolve returns the user's credentials ready for shop-scoped calls.
// An access token that is about to expire is refreshed first when possible.
func (s *Service) Resolve(ctx context.Context, userID string) (*marketplace.Credentials, error) {
	creds, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if creds.RefreshToken != "" && creds.AccessTokenExpired(s.now().Add(refreshLeeway)) {
		if err := s.refresh(ctx, creds); err != nil {
			// The old token may still be accepted; let the call decide
			s.logger.Warn("Access token refresh failed", zap.Object("credentials", creds), zap.Error(err))
		}
	}

	if err := creds.ValidateShopScope(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}
	return creds, nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Current returns the redacted view of the user's latest credentials
func (s *Service) Current(ctx context.Context, userID string) (*marketplace.CredentialsView, error) {
	creds, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := creds.View()
	return &view, nil
}

// Shops lists the shops authorized for the user's current credentials
func (s *Service) Shops(ctx context.Context, userID string) ([]marketplace.Shop, error) {
	creds, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !creds.HasAccessToken() {
		return nil, marketplace.NewConfigurationError(marketplace.ErrMissingAccessToken)
	}
	shops, err := s.api.GetAuthorizedShops(ctx, creds)
	if err != nil {
		return nil, err
	}
	return publicShops(shops), nil
}

// SelectShop switches the current credentials to another authorized shop
func (s *Service) SelectShop(ctx context.Context, userID, shopID string) (*marketplace.CredentialsView, error) {
	creds, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	shops, err := s.api.GetAuthorizedShops(ctx, creds)
	if err != nil {
		return nil, err
	}
	shop, err := pickShop(shops, shopID)
	if err != nil {
		return nil, err
	}

	creds.ApplyShop(shop)
	creds.UpdatedAt = s.now()
	if err := s.store.Update(ctx, creds); err != nil {
		return nil, err
	}

	view := creds.View()
	return &view, nil
}

func (s *Service) load(ctx context.Context, userID string) (*marketplace.Credentials, error) {
	creds, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, marketplace.ErrCredentialsNotFound
	}
	return creds, nil
}

func pickShop(shops []marketplace.Shop, shopID string) (marketplace.Shop, error) {
	if len(shops) == 0 {
		return marketplace.Shop{}, ErrNoAuthorizedShops
	}
	if shopID == "" {
		return shops[0], nil
	}
	for _, shop := range shops {
		if shop.ID == shopID {
			return shop, nil
		}
	}
	return marketplace.Shop{}, ErrShopNotAuthorized
}

// publicShops strips the shop ciphers before shops are handed to the dashboard
func publicShops(shops []marketplace.Shop) []marketplace.Shop {
	out := make([]marketplace.Shop, len(shops))
	for i, shop := range shops {
		shop.Cipher = ""
		out[i] = shop
	}
	return out
}
