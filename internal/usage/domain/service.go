package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RecordEventRequest struct {
	VendorID          int64               `json:"vendor_id"`
	Timestamp         time.Time           `json:"timestamp"`
	ThreadID          string              `json:"thread_id"`
	TransactionID     string              `json:"transaction_id"`
	TransactionType   string              `json:"transaction_type"`
	TransactionStatus int64               `json:"transaction_status"`
	Description       string              `json:"description"`
	SigningType       string              `json:"signing_type"`
	ReceiverPID       string              `json:"receiver_pid"`
	Payer             string              `json:"payer"`
	BioPin            bool                `json:"bio_pin"`
	Cost              decimal.NullDecimal `json:"cost"`
}

// Repository reads and writes usage rows on the supplied handle so callers
// can run inside their own transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, events []UsageEvent) error
	ListByVendors(ctx context.Context, db *gorm.DB, vendorIDs []int64, from, to time.Time) ([]UsageEvent, error)
}

type Service interface {
	Record(ctx context.Context, reqs []RecordEventRequest) ([]UsageEvent, error)
}

var (
	ErrInvalidVendor    = errors.New("invalid_vendor")
	ErrInvalidTimestamp = errors.New("invalid_timestamp")
	ErrInvalidCost      = errors.New("invalid_cost")
	ErrEmptyBatch       = errors.New("empty_batch")
)
