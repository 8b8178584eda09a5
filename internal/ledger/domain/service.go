package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransferRequest struct {
	FromPackageID   int64
	ToPackageID     int64
	PostImmediately bool
	// TransferDate defaults to today.
	TransferDate time.Time
}

type TransferResult struct {
	Transferred bool
	Amount      decimal.Decimal
	NewRate     decimal.Decimal
	// Reason names the failed precondition when Transferred is false.
	Reason error
}

type RenewRequest struct {
	PackageID int64
	RenewDate time.Time
	// Period labels the rating period that triggered the renewal, if any.
	Period string
}

type Repository interface {
	FindPackage(ctx context.Context, db *gorm.DB, id int64) (*PrepaidPackage, error)
	ListCharges(ctx context.Context, db *gorm.DB, packageID int64) ([]PrepaidPackageCharge, error)
	CreatePackage(ctx context.Context, db *gorm.DB, pkg *PrepaidPackage) error
	CreateCharges(ctx context.Context, db *gorm.DB, charges []PrepaidPackageCharge) error
	UpdatePackage(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error
	DeletePackage(ctx context.Context, db *gorm.DB, id int64) error
	// ListRenewals returns packages renewed from any of sourceIDs during period.
	ListRenewals(ctx context.Context, db *gorm.DB, sourceIDs []int64, period string) ([]PrepaidPackage, error)
	DeleteCharges(ctx context.Context, db *gorm.DB, packageID int64) error
	DeleteTransferLeg(ctx context.Context, db *gorm.DB, packageID, counterpartyID int64) error
	// DeletePendingDrawDowns removes PENDING debits without a counterparty dated in [from, to).
	DeletePendingDrawDowns(ctx context.Context, db *gorm.DB, packageIDs []int64, from, to time.Time) error
}

// Service is the prepaid package ledger. The *Tx variants join the caller's transaction.
type Service interface {
	Balances(ctx context.Context, packageID int64) (Balances, error)
	BalancesTx(ctx context.Context, tx *gorm.DB, packageID int64) (Balances, error)
	TransferBalance(ctx context.Context, req TransferRequest) (TransferResult, error)
	TransferBalanceTx(ctx context.Context, tx *gorm.DB, req TransferRequest) (TransferResult, error)
	Renew(ctx context.Context, req RenewRequest) (*PrepaidPackage, error)
	RenewTx(ctx context.Context, tx *gorm.DB, req RenewRequest) (*PrepaidPackage, error)
	PendingRenewalsTx(ctx context.Context, tx *gorm.DB, sourceIDs []int64, period string) ([]PrepaidPackage, error)
	// RevertRenewalTx undoes an unsettled renewal and reopens its source package.
	RevertRenewalTx(ctx context.Context, tx *gorm.DB, renewed PrepaidPackage) error
}

var (
	ErrPackageNotFound = errors.New("prepaid_package_not_found")
	ErrInvalidTransfer = errors.New("invalid_transfer")
	ErrRenewalSettled  = errors.New("renewal_settled")

	// transfer preconditions
	ErrCurrencyMismatch   = errors.New("currency_mismatch")
	ErrSourceNotActive    = errors.New("source_package_not_active")
	ErrTargetNotEligible  = errors.New("target_package_not_eligible")
	ErrNoPostedBalance    = errors.New("no_posted_balance")
	ErrNoAvailableBalance = errors.New("no_available_balance")
)
