// Package domain contains the service catalogue and filter configuration
// used to classify raw usage.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
)

// Filter names a stored group of rules.
type Filter struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	FilterName  string `gorm:"type:text;not null"`
	Description string `gorm:"type:text"`
}

func (Filter) TableName() string { return "service_filters" }

// FilterConfig is one rule of a filter, keyed as "field__func".
type FilterConfig struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	FilterID int64  `gorm:"not null;index"`
	Key      string `gorm:"column:field_func;type:text;not null"`
	Value    string `gorm:"type:text;not null"`
}

func (FilterConfig) TableName() string { return "service_filter_configs" }

// BillableService is a billable service category.
type BillableService struct {
	ServiceID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Service      string `gorm:"type:text;not null"`
	Stype        string `gorm:"type:text"`
	UsageBased   bool   `gorm:"not null"`
	FilterID     *int64
	ServiceOrder int `gorm:"not null;default:0"`
}

func (BillableService) TableName() string { return "services" }

// VendorService assigns a service to a vendor; its id is the vs id orders refer to.
type VendorService struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	VendorID  int64 `gorm:"not null;uniqueIndex:ux_vendor_service,priority:1"`
	ServiceID int64 `gorm:"not null;uniqueIndex:ux_vendor_service,priority:2"`
}

func (VendorService) TableName() string { return "vendor_services" }

// VendorFilterOverride replaces a service's default filter for one vendor.
type VendorFilterOverride struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	VendorID  int64 `gorm:"not null;uniqueIndex:ux_vendor_filter_override,priority:1"`
	ServiceID int64 `gorm:"not null;uniqueIndex:ux_vendor_filter_override,priority:2"`
	FilterID  int64 `gorm:"not null"`
}

func (VendorFilterOverride) TableName() string { return "vendor_filters_overrides" }

// ServiceRules is the raw rule set of one service for one vendor, in evaluation order.
type ServiceRules struct {
	ServiceID int64
	FilterID  int64
	Rules     []FilterConfig
}

// ClassifiedTransaction is a usage event tagged with its service and vs id.
type ClassifiedTransaction struct {
	Event     *usagedomain.UsageEvent
	ServiceID *int64
	VSID      *int64
	// Charge is set by the strategy that consumed the transaction.
	Charge decimal.Decimal
}

func (t *ClassifiedTransaction) VendorID() int64 { return t.Event.VendorID }
func (t *ClassifiedTransaction) ThreadID() string { return t.Event.ThreadID }
func (t *ClassifiedTransaction) Timestamp() time.Time { return t.Event.Timestamp }
func (t *ClassifiedTransaction) BioPin() bool { return t.Event.BioPin }

// Date is the UTC calendar date of the event.
func (t *ClassifiedTransaction) Date() time.Time {
	ts := t.Event.Timestamp.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

func (t *ClassifiedTransaction) Classified() bool { return t.ServiceID != nil }
func (t *ClassifiedTransaction) Resolved() bool { return t.VSID != nil }
