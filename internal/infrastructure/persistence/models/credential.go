package models

import (
	"time"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

// TikTokCredentialModel is the persistence model for seller credentials.
// AppSecret, AccessToken, RefreshToken and AdsAccessToken hold sealed values;
// sealing happens in the repository, not here.
type TikTokCredentialModel struct {
	BaseModel
	UserID                string     `gorm:"type:varchar(100);not null;index"`
	AppKey                string     `gorm:"type:varchar(100);not null"`
	AppSecret             string     `gorm:"type:text;not null"`
	AccessToken           string     `gorm:"type:text"`
	RefreshToken          string     `gorm:"type:text"`
	AccessTokenExpiresAt  *time.Time
	RefreshTokenExpiresAt *time.Time
	ShopID                string     `gorm:"type:varchar(64)"`
	ShopName              string     `gorm:"type:varchar(255)"`
	ShopCipher            string     `gorm:"type:varchar(255)"`
	ShopRegion            string     `gorm:"type:varchar(16)"`
	AdsAccessToken        string     `gorm:"type:text"`
	AdsAdvertiserID       string     `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (TikTokCredentialModel) TableName() string {
	return "tiktok_credentials"
}

// ToDomain converts the model to domain Credentials without unsealing
func (m *TikTokCredentialModel) ToDomain() *marketplace.Credentials {
	return &marketplace.Credentials{
		ID:                    m.ID,
		UserID:                m.UserID,
		AppKey:                m.AppKey,
		AppSecret:             m.AppSecret,
		AccessToken:           m.AccessToken,
		RefreshToken:          m.RefreshToken,
		AccessTokenExpiresAt:  m.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: m.RefreshTokenExpiresAt,
		ShopID:                m.ShopID,
		ShopName:              m.ShopName,
		ShopCipher:            m.ShopCipher,
		ShopRegion:            m.ShopRegion,
		AdsAccessToken:        m.AdsAccessToken,
		AdsAdvertiserID:       m.AdsAdvertiserID,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// TikTokCredentialModelFromDomain creates a model from domain Credentials.
// A missing ID or timestamp is filled in.
func TikTokCredentialModelFromDomain(c *marketplace.Credentials, now time.Time) *TikTokCredentialModel {
	m := &TikTokCredentialModel{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		UserID:                c.UserID,
		AppKey:                c.AppKey,
		AppSecret:             c.AppSecret,
		AccessToken:           c.AccessToken,
		RefreshToken:          c.RefreshToken,
		AccessTokenExpiresAt:  c.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: c.RefreshTokenExpiresAt,
		ShopID:                c.ShopID,
		ShopName:              c.ShopName,
		ShopCipher:            c.ShopCipher,
		ShopRegion:            c.ShopRegion,
		AdsAccessToken:        c.AdsAccessToken,
		AdsAdvertiserID:       c.AdsAdvertiserID,
	}
	m.touch(now)
	return m
}
