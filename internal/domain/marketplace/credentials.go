package marketplace

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

// Credentials holds one seller's access material for a connected shop.
// AppSecret and the tokens never leave the trusted boundary and are never logged.
type Credentials struct {
	ID     uuid.UUID
	UserID string

	AppKey    string
	AppSecret string

	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  *time.Time
	RefreshTokenExpiresAt *time.Time

	ShopID     string
	ShopName   string
	ShopCipher string
	ShopRegion string

	// Marketing API access for ad spend reporting
	AdsAccessToken  string
	AdsAdvertiserID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the material needed for any signed call
func (c *Credentials) Validate() error {
	if c == nil || c.AppKey == "" {
		return ErrMissingAppKey
	}
	if c.AppSecret == "" {
		return ErrMissingAppSecret
	}
	return nil
}

// ValidateShopScope checks the material needed for shop-scoped calls
func (c *Credentials) ValidateShopScope() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AccessToken == "" {
		return ErrMissingAccessToken
	}
	if c.ShopCipher == "" {
		return ErrMissingShopCipher
	}
	return nil
}

// HasAccessToken returns true once the OAuth exchange has happened
func (c *Credentials) HasAccessToken() bool {
	return c.AccessToken != ""
}

// HasAdsAccess returns true if the Marketing API can be queried
func (c *Credentials) HasAdsAccess() bool {
	return c.AdsAccessToken != "" && c.AdsAdvertiserID != ""
}

// AccessTokenExpired reports whether the access token is past its expiry.
// Unknown expiry counts as not expired.
func (c *Credentials) AccessTokenExpired(now time.Time) bool {
	return c.AccessTokenExpiresAt != nil && !now.Before(*c.AccessTokenExpiresAt)
}

// ApplyToken stores the result of a token exchange or refresh
func (c *Credentials) ApplyToken(tok TokenGrant, now time.Time) {
	c.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	if tok.AccessTokenExpireIn > 0 {
		exp := time.Unix(tok.AccessTokenExpireIn, 0)
		c.AccessTokenExpiresAt = &exp
	}
	if tok.RefreshTokenExpireIn > 0 {
		exp := time.Unix(tok.RefreshTokenExpireIn, 0)
		c.RefreshTokenExpiresAt = &exp
	}
	c.UpdatedAt = now
}

// ApplyShop selects the shop the credentials operate on
func (c *Credentials) ApplyShop(shop Shop) {
	c.ShopID = shop.ID
	c.ShopName = shop.Name
	c.ShopCipher = shop.Cipher
	c.ShopRegion = shop.Region
}

// View returns a copy safe to log or return to the dashboard
func (c *Credentials) View() CredentialsView {
	return CredentialsView{
		ID:                   c.ID,
		AppKey:               c.AppKey,
		HasAppSecret:         c.AppSecret != "",
		HasAccessToken:       c.AccessToken != "",
		HasRefreshToken:      c.RefreshToken != "",
		AccessTokenExpiresAt: c.AccessTokenExpiresAt,
		ShopID:               c.ShopID,
		ShopName:             c.ShopName,
		ShopRegion:           c.ShopRegion,
		HasShopCipher:        c.ShopCipher != "",
		HasAdsAccess:         c.HasAdsAccess(),
		UpdatedAt:            c.UpdatedAt,
	}
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
// Only identifiers and presence flags are written.
func (c *Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if c == nil {
		return nil
	}
	enc.AddString("id", c.ID.String())
	enc.AddString("user_id", c.UserID)
	enc.AddString("app_key", c.AppKey)
	enc.AddBool("has_access_token", c.AccessToken != "")
	enc.AddBool("has_refresh_token", c.RefreshToken != "")
	if c.ShopID != "" {
		enc.AddString("shop_id", c.ShopID)
	}
	if c.ShopRegion != "" {
		enc.AddString("shop_region", c.ShopRegion)
	}
	return nil
}

// CredentialsView is the redacted projection of Credentials
type CredentialsView struct {
	ID                   uuid.UUID  `json:"id"`
	AppKey               string     `json:"app_key"`
	HasAppSecret         bool       `json:"has_app_secret"`
	HasAccessToken       bool       `json:"has_access_token"`
	HasRefreshToken      bool       `json:"has_refresh_token"`
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at,omitempty"`
	ShopID               string     `json:"shop_id,omitempty"`
	ShopName             string     `json:"shop_name,omitempty"`
	ShopRegion           string     `json:"shop_region,omitempty"`
	HasShopCipher        bool       `json:"has_shop_cipher"`
	HasAdsAccess         bool       `json:"has_ads_access"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TokenGrant is the payload of a token exchange or refresh.
// Expiry fields are absolute Unix timestamps as returned by the auth host.
type TokenGrant struct {
	AccessToken          string   `json:"access_token"`
	AccessTokenExpireIn  int64    `json:"access_token_expire_in"`
	RefreshToken         string   `json:"refresh_token"`
	RefreshTokenExpireIn int64    `json:"refresh_token_expire_in"`
	OpenID               string   `json:"open_id"`
	SellerName           string   `json:"seller_name"`
	SellerBaseRegion     string   `json:"seller_base_region"`
	UserType             int      `json:"user_type"`
	GrantedScopes        []string `json:"granted_scopes,omitempty"`
}

// Shop is one authorized shop as returned by the authorization API
type Shop struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Region     string `json:"region"`
	SellerType string `json:"seller_type"`
	Cipher     string `json:"cipher"`
	Code       string `json:"code"`
}
