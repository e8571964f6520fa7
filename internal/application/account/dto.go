package account

import (
	"net/url"
	"strings"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

// ConnectInput carries the result of the seller's authorization redirect.
// Either CallbackURL or AppKey plus AuthCode must be set.
type ConnectInput struct {
	AppKey      string `json:"app_key"`
	AppSecret   string `json:"app_secret" binding:"required"`
	AuthCode    string `json:"auth_code"`
	CallbackURL string `json:"callback_url"`
	// ShopID selects one of the authorized shops; the first one is used when empty
	ShopID string `json:"shop_id"`
}

// resolve fills AppKey and AuthCode from the callback URL when they are missing
func (in *ConnectInput) resolve() error {
	if in.CallbackURL != "" && (in.AppKey == "" || in.AuthCode == "") {
		u, err := url.Parse(strings.TrimSpace(in.CallbackURL))
		if err != nil {
			return ErrInvalidCallbackURL
		}
		q := u.Query()
		if in.AppKey == "" {
			in.AppKey = q.Get("app_key")
		}
		if in.AuthCode == "" {
			in.AuthCode = q.Get("code")
		}
	}
	if in.AppKey == "" || in.AuthCode == "" {
		if in.CallbackURL != "" {
			return ErrInvalidCallbackURL
		}
		if in.AppKey == "" {
			return marketplace.ErrMissingAppKey
		}
		return marketplace.ErrMissingAuthCode
	}
	if in.AppSecret == "" {
		return marketplace.ErrMissingAppSecret
	}
	return nil
}

// ManualInput is credential material entered by hand
type ManualInput struct {
	AppKey          string `json:"app_key" binding:"required"`
	AppSecret       string `json:"app_secret" binding:"required"`
	AccessToken     string `json:"access_token" binding:"required"`
	RefreshToken    string `json:"refresh_token"`
	ShopCipher      string `json:"shop_cipher" binding:"required"`
	AdsAccessToken  string `json:"ads_access_token"`
	AdsAdvertiserID string `json:"ads_advertiser_id"`
}

// ConnectResult is returned after credentials were stored
type ConnectResult struct {
	Credentials marketplace.CredentialsView `json:"credentials"`
	Shops       []marketplace.Shop          `json:"shops"`
}
