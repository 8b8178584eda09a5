// Package domain contains persistence models for raw signing usage.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UsageEvent is one raw record of signing service consumption as extracted
// from a vendor usage report. The rating engine only reads these rows.
type UsageEvent struct {
	ID                int64               `gorm:"primaryKey;autoIncrement"`
	VendorID          int64               `gorm:"not null;index:idx_usage_vendor_ts,priority:1"`
	Timestamp         time.Time           `gorm:"not null;index:idx_usage_vendor_ts,priority:2"`
	ThreadID          string              `gorm:"type:text;not null;default:''"`
	TransactionID     string              `gorm:"type:text"`
	TransactionType   string              `gorm:"type:text"`
	TransactionStatus int64               `gorm:"not null;default:0"`
	Description       string              `gorm:"type:text"`
	SigningType       string              `gorm:"type:text"`
	ReceiverPID       string              `gorm:"column:receiver_pid;type:text"`
	Payer             string              `gorm:"type:text"`
	BioPin            bool                `gorm:"not null;default:false"`
	Cost              decimal.NullDecimal `gorm:"type:numeric(12,5)"`
	CreatedAt         time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageEvent) TableName() string { return "usage_transactions" }
