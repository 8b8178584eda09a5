// Package domain contains the commercial configuration a client is rated
// against. Rows are owned by the admin layer and read-only here.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
)

type Client struct {
	ClientID      int64    `gorm:"primaryKey;autoIncrement:false"`
	ReportingName string   `gorm:"type:text;not null"`
	IsBillable    bool     `gorm:"not null;index"`
	Vendors       []Vendor `gorm:"foreignKey:ClientID;references:ClientID"`
}

func (Client) TableName() string { return "clients" }

func (c Client) VendorIDs() []int64 {
	ids := make([]int64, 0, len(c.Vendors))
	for _, v := range c.Vendors {
		ids = append(ids, v.VendorID)
	}
	return ids
}

// UnreconciledVendorIDs lists vendors whose earlier usage did not fully classify.
func (c Client) UnreconciledVendorIDs() []int64 {
	var ids []int64
	for _, v := range c.Vendors {
		if !v.IsReconciled {
			ids = append(ids, v.VendorID)
		}
	}
	return ids
}

// Vendor is a client account at the signing provider. Usage rows carry its id.
type Vendor struct {
	VendorID     int64  `gorm:"primaryKey;autoIncrement:false"`
	ClientID     int64  `gorm:"not null;index"`
	Description  string `gorm:"type:text"`
	IsReconciled bool   `gorm:"not null"`
}

func (Vendor) TableName() string { return "vendors" }

type Contract struct {
	ContractID int64     `gorm:"primaryKey;autoIncrement:false"`
	ClientID   int64     `gorm:"not null;index"`
	StartDate  time.Time `gorm:"not null"`
	IsActive   bool      `gorm:"not null"`
}

func (Contract) TableName() string { return "contracts" }

// Order is one commercial order under a contract.
type Order struct {
	OrderID       int64      `gorm:"primaryKey;autoIncrement:false"`
	ContractID    int64      `gorm:"not null;index"`
	Description   string     `gorm:"type:text"`
	StartDate     time.Time  `gorm:"not null"`
	EndDate       *time.Time `gorm:"index"`
	Currency      string     `gorm:"column:ccy_type;type:text;not null"`
	PaymentTypeID int        `gorm:"column:payment_type;not null"`
	IsActive      bool       `gorm:"not null"`

	Services []OrderService `gorm:"foreignKey:OrderID;references:OrderID"`
	Prices   []OrderPrice   `gorm:"foreignKey:OrderID;references:OrderID"`
	Packages []OrderPackage `gorm:"foreignKey:OrderID;references:OrderID"`
}

func (Order) TableName() string { return "orders" }

func (o Order) PaymentType() (PaymentType, error) {
	return ParsePaymentType(o.PaymentTypeID)
}

// VendorServiceIDs lists the vs ids assigned to the order.
func (o Order) VendorServiceIDs() []int64 {
	ids := make([]int64, 0, len(o.Services))
	for _, s := range o.Services {
		ids = append(ids, s.VendorServiceID)
	}
	return ids
}

// UnitPrices maps service id to unit price.
func (o Order) UnitPrices() map[int64]decimal.Decimal {
	prices := make(map[int64]decimal.Decimal, len(o.Prices))
	for _, p := range o.Prices {
		prices[p.ServiceID] = p.UnitPrice
	}
	return prices
}

// OrderService assigns a vendor service to an order.
type OrderService struct {
	ID              int64 `gorm:"primaryKey;autoIncrement"`
	OrderID         int64 `gorm:"not null;index"`
	VendorServiceID int64 `gorm:"not null"`
}

func (OrderService) TableName() string { return "order_services" }

type OrderPrice struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"not null;index"`
	ServiceID int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,5);not null"`
}

func (OrderPrice) TableName() string { return "order_prices" }

// OrderPackage attaches a prepaid package to an order.
type OrderPackage struct {
	ID               int64                        `gorm:"primaryKey;autoIncrement:false"`
	OrderID          int64                        `gorm:"not null;index"`
	PrepaidPackageID int64                        `gorm:"not null;index"`
	PrepaidPackage   *ledgerdomain.PrepaidPackage `gorm:"foreignKey:PrepaidPackageID"`
}

func (OrderPackage) TableName() string { return "order_packages" }
