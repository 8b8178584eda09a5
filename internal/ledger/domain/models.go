package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PackageStatus is the lifecycle state of a prepaid package.
type PackageStatus string

const (
	PackageStatusPreActive PackageStatus = "PRE_ACTIVE"
	PackageStatusActive    PackageStatus = "ACTIVE"
	PackageStatusPreClosed PackageStatus = "PRE_CLOSED"
	PackageStatusClosed    PackageStatus = "CLOSED"
)

// ChargeStatus marks a package charge as settled or replaceable.
type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "PENDING"
	ChargeStatusPosted  ChargeStatus = "POSTED"
)

// PrepaidPackage is a drawn-down balance of signing units bought up front.
type PrepaidPackage struct {
	ID              int64           `gorm:"primaryKey;autoIncrement:false"`
	Description     string          `gorm:"type:text;not null"`
	StartDate       time.Time       `gorm:"not null"`
	ExpiryDate      time.Time       `gorm:"not null"`
	ClosingDate     *time.Time      `gorm:"index"`
	OriginalBalance decimal.Decimal `gorm:"type:numeric(14,5);not null"`
	Currency        string          `gorm:"column:ccy_type;type:text;not null"`
	OriginalRate    decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	AverageRate     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Status          PackageStatus   `gorm:"type:text;not null;index"`
	AutoRenew       bool            `gorm:"not null"`
	RenewedFromID   *int64          `gorm:"index"`
	RenewalPeriod   string          `gorm:"type:text;not null;default:''"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PrepaidPackage) TableName() string { return "prepaid_packages" }

// PrepaidPackageCharge is one signed movement on a package. ChargedUnits is
// always a magnitude; IsCredit carries the sign.
type PrepaidPackageCharge struct {
	ID               int64           `gorm:"primaryKey;autoIncrement:false"`
	PrepaidPackageID int64           `gorm:"not null;index"`
	ChargeDate       time.Time       `gorm:"not null;index"`
	ChargedUnits     decimal.Decimal `gorm:"type:numeric(14,5);not null"`
	IsCredit         bool            `gorm:"not null"`
	Status           ChargeStatus    `gorm:"type:text;not null"`
	// CounterpartyID links the two legs of a transfer.
	CounterpartyID *int64    `gorm:"index"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PrepaidPackageCharge) TableName() string { return "prepaid_package_charges" }

// Signed returns the charge as a balance delta.
func (c PrepaidPackageCharge) Signed() decimal.Decimal {
	if c.IsCredit {
		return c.ChargedUnits
	}
	return c.ChargedUnits.Neg()
}

// Balances is a read projection of a package and its charges.
type Balances struct {
	Available   decimal.Decimal
	Posted      decimal.Decimal
	AverageRate decimal.Decimal
}

// Value is the currency value of the posted balance.
func (b Balances) Value() decimal.Decimal {
	return b.Posted.Mul(b.AverageRate)
}

// ComputeBalances folds charges onto the package's original balance.
func ComputeBalances(pkg PrepaidPackage, charges []PrepaidPackageCharge) Balances {
	available := pkg.OriginalBalance
	posted := pkg.OriginalBalance
	for _, c := range charges {
		delta := c.Signed()
		available = available.Add(delta)
		if c.Status == ChargeStatusPosted {
			posted = posted.Add(delta)
		}
	}
	return Balances{Available: available, Posted: posted, AverageRate: pkg.AverageRate}
}

// CheckTransfer validates the preconditions of moving from's available
// balance into to. It performs no reads.
func CheckTransfer(from, to PrepaidPackage, fromBalances Balances, postImmediately bool) error {
	if from.Currency != to.Currency {
		return ErrCurrencyMismatch
	}
	if from.Status != PackageStatusActive {
		return ErrSourceNotActive
	}
	if postImmediately {
		if to.Status != PackageStatusActive {
			return ErrTargetNotEligible
		}
	} else if to.Status != PackageStatusPreActive && to.Status != PackageStatusActive {
		return ErrTargetNotEligible
	}
	if !fromBalances.Posted.IsPositive() {
		return ErrNoPostedBalance
	}
	if !fromBalances.Available.IsPositive() {
		return ErrNoAvailableBalance
	}
	return nil
}

// WeightedRate blends two balances so their combined value is preserved.
func WeightedRate(fromAmount, fromRate, toAmount, toRate decimal.Decimal) (decimal.Decimal, bool) {
	total := fromAmount.Add(toAmount)
	if !total.IsPositive() {
		return decimal.Zero, false
	}
	value := fromAmount.Mul(fromRate).Add(toAmount.Mul(toRate))
	return value.Div(total), true
}

// RenewalDraft is the successor package a renewal would create, without an id.
func RenewalDraft(pkg PrepaidPackage, renewDate time.Time, period string) PrepaidPackage {
	sourceID := pkg.ID
	return PrepaidPackage{
		Description:     strings.TrimSpace(pkg.Description + " RENEWED"),
		StartDate:       renewDate,
		ExpiryDate:      renewDate.AddDate(0, 1, 0),
		OriginalBalance: pkg.OriginalBalance,
		Currency:        pkg.Currency,
		OriginalRate:    pkg.OriginalRate,
		AverageRate:     pkg.OriginalRate,
		Status:          PackageStatusPreActive,
		AutoRenew:       pkg.AutoRenew,
		RenewedFromID:   &sourceID,
		RenewalPeriod:   period,
	}
}
