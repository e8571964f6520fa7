package ecommerce

import (
	"errors"
	"net/url"
	"time"
)

// TikTokConfig holds the environment surface of the TikTok Shop open platform.
// Seller credentials are not part of it; every call carries its own.
type TikTokConfig struct {
	// APIBaseURL is the commerce API host (orders, fulfillment, authorization)
	APIBaseURL string
	// AuthBaseURL is the host serving token exchange and refresh
	AuthBaseURL string
	// IsSandbox selects sandbox hosts when the base URLs are empty
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// ClockSkew is subtracted from the local clock before the timestamp is signed.
	// Zero disables the adjustment.
	ClockSkew time.Duration
}

const (
	// TikTokProductionAPIURL is the production commerce API endpoint
	TikTokProductionAPIURL = "https://open-api.tiktokglobalshop.com"
	// TikTokProductionAuthURL is the production token endpoint
	TikTokProductionAuthURL = "https://auth.tiktok-shops.com"
	// TikTokSandboxAPIURL is the sandbox commerce API endpoint
	TikTokSandboxAPIURL = "https://open-api-sandbox.tiktokglobalshop.com"
	// TikTokSandboxAuthURL is the sandbox token endpoint
	TikTokSandboxAuthURL = "https://auth-sandbox.tiktok-shops.com"

	// DefaultClockSkew tolerates the upstream clock running behind ours
	DefaultClockSkew = 320 * time.Second
	// DefaultTikTokTimeoutSeconds is used when TimeoutSeconds is not positive
	DefaultTikTokTimeoutSeconds = 30
)

// Errors for TikTok configuration
var (
	ErrTikTokConfigInvalidAPIURL  = errors.New("tiktok: api base URL must be an absolute http(s) URL")
	ErrTikTokConfigInvalidAuthURL = errors.New("tiktok: auth base URL must be an absolute http(s) URL")
	ErrTikTokConfigNegativeSkew   = errors.New("tiktok: clock skew must not be negative")
)

// NewTikTokConfig creates a production configuration with defaults
func NewTikTokConfig() *TikTokConfig {
	return &TikTokConfig{
		APIBaseURL:     TikTokProductionAPIURL,
		AuthBaseURL:    TikTokProductionAuthURL,
		TimeoutSeconds: DefaultTikTokTimeoutSeconds,
		ClockSkew:      DefaultClockSkew,
	}
}

// NewSandboxTikTokConfig creates a sandbox configuration with defaults
func NewSandboxTikTokConfig() *TikTokConfig {
	return &TikTokConfig{
		APIBaseURL:     TikTokSandboxAPIURL,
		AuthBaseURL:    TikTokSandboxAuthURL,
		IsSandbox:      true,
		TimeoutSeconds: DefaultTikTokTimeoutSeconds,
		ClockSkew:      DefaultClockSkew,
	}
}

// Validate fills empty hosts from the environment preset and checks the rest
func (c *TikTokConfig) Validate() error {
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = TikTokSandboxAPIURL
		} else {
			c.APIBaseURL = TikTokProductionAPIURL
		}
	}
	if c.AuthBaseURL == "" {
		if c.IsSandbox {
			c.AuthBaseURL = TikTokSandboxAuthURL
		} else {
			c.AuthBaseURL = TikTokProductionAuthURL
		}
	}
	if !isAbsoluteHTTPURL(c.APIBaseURL) {
		return ErrTikTokConfigInvalidAPIURL
	}
	if !isAbsoluteHTTPURL(c.AuthBaseURL) {
		return ErrTikTokConfigInvalidAuthURL
	}
	if c.ClockSkew < 0 {
		return ErrTikTokConfigNegativeSkew
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTikTokTimeoutSeconds
	}
	return nil
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
