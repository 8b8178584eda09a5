// Package domain contains persistence models for rating outputs.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Charge is the aggregate of one (order, vendor, service) for a period.
type Charge struct {
	ID            int64           `gorm:"primaryKey;autoIncrement:false"`
	Period        string          `gorm:"type:text;not null;index:idx_order_charges_scope,priority:1"`
	ClientID      int64           `gorm:"not null;index:idx_order_charges_scope,priority:2"`
	OrderID       int64           `gorm:"not null;index"`
	ChargeDate    time.Time       `gorm:"not null"`
	PaymentTypeID int             `gorm:"column:payment_type;not null"`
	VendorID      int64           `gorm:"not null"`
	ServiceID     int64           `gorm:"not null"`
	ServiceCount  int64           `gorm:"not null"`
	ChargedUnits  decimal.Decimal `gorm:"type:numeric(14,5);not null"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Charge) TableName() string { return "order_charges" }

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusIssued  InvoiceStatus = "ISSUED"
)

// Invoice is the period total billed for one order.
type Invoice struct {
	ID           int64           `gorm:"primaryKey;autoIncrement:false"`
	Period       string          `gorm:"type:text;not null;index:idx_invoices_scope,priority:1"`
	ClientID     int64           `gorm:"not null;index:idx_invoices_scope,priority:2"`
	OrderID      int64           `gorm:"not null;index"`
	InvoiceDate  time.Time       `gorm:"not null"`
	Currency     string          `gorm:"column:ccy_type;type:text;not null"`
	ChargedUnits decimal.Decimal `gorm:"type:numeric(14,5);not null"`
	Status       InvoiceStatus   `gorm:"type:text;not null"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
