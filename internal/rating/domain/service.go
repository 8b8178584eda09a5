package domain

import (
	"context"
	"strconv"
	"time"

	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	"gorm.io/gorm"
)

// Query selects persisted rows. Zero fields are ignored except Period and ClientID.
type Query struct {
	Period   string
	ClientID int64
	OrderID  int64
}

type Repository interface {
	DeleteCharges(ctx context.Context, db *gorm.DB, clientID int64, period string) (int64, error)
	DeleteInvoices(ctx context.Context, db *gorm.DB, clientID int64, period string) (int64, error)
	InsertCharges(ctx context.Context, db *gorm.DB, charges []Charge) error
	InsertInvoices(ctx context.Context, db *gorm.DB, invoices []Invoice) error
}

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks . Service
type Service interface {
	Rate(ctx context.Context, period string, clientID int64) (*RunResult, error)
	ListCharges(ctx context.Context, q Query) ([]Charge, error)
	ListInvoices(ctx context.Context, q Query) ([]Invoice, error)
	ListPackageCharges(ctx context.Context, q Query) ([]ledgerdomain.PrepaidPackageCharge, error)
}

// LockKey is the per-client lock held for a run.
func LockKey(clientID int64) string {
	return "rating:client:" + strconv.FormatInt(clientID, 10)
}

// DefaultLockTTL bounds how long a crashed run can block its client.
const DefaultLockTTL = 15 * time.Minute
