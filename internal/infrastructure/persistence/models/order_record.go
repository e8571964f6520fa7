package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopspring/decimal"
)

// OrderRecordModel is the persistence model for the local order history
type OrderRecordModel struct {
	BaseModel
	CredentialID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID         string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status          string          `gorm:"type:varchar(32);not null;index"`
	CustomerName    string          `gorm:"type:varchar(255)"`
	CustomerPhone   string          `gorm:"type:varchar(64)"`
	CustomerAddress string          `gorm:"type:text"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency        string          `gorm:"type:varchar(8)"`
	ShippedAt       *time.Time      `gorm:"index"`
	WaybillURL      string          `gorm:"type:text"`
	OrderData       string          `gorm:"type:jsonb;not null;default:'{}'"`
}

// TableName returns the table name for GORM
func (OrderRecordModel) TableName() string {
	return "order_records"
}

// ToDomain converts the model to a domain OrderRecord
func (m *OrderRecordModel) ToDomain() *marketplace.OrderRecord {
	r := &marketplace.OrderRecord{
		ID:              m.ID,
		CredentialID:    m.CredentialID,
		OrderID:         m.OrderID,
		Status:          marketplace.OrderStatus(m.Status),
		CustomerName:    m.CustomerName,
		CustomerPhone:   m.CustomerPhone,
		CustomerAddress: m.CustomerAddress,
		TotalAmount:     m.TotalAmount,
		Currency:        m.Currency,
		ShippedAt:       m.ShippedAt,
		WaybillURL:      m.WaybillURL,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.OrderData != "" {
		r.OrderData = json.RawMessage(m.OrderData)
	}
	return r
}

// OrderRecordModelFromDomain creates a model from a domain OrderRecord
func OrderRecordModelFromDomain(r *marketplace.OrderRecord, now time.Time) *OrderRecordModel {
	m := &OrderRecordModel{
		BaseModel: BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		CredentialID:    r.CredentialID,
		OrderID:         r.OrderID,
		Status:          string(r.Status),
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerAddress: r.CustomerAddress,
		TotalAmount:     r.TotalAmount,
		Currency:        r.Currency,
		ShippedAt:       r.ShippedAt,
		WaybillURL:      r.WaybillURL,
		OrderData:       string(r.OrderData),
	}
	if m.OrderData == "" {
		m.OrderData = "{}"
	}
	if r.ShippedAt != nil {
		shipped := r.ShippedAt.UTC()
		m.ShippedAt = &shipped
	}
	m.touch(now)
	return m
}
