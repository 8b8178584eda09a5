package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/signbilling/internal/filter"
	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"gorm.io/gorm"
)

// ServiceFilter pairs a service with its compiled group.
type ServiceFilter struct {
	ServiceID int64
	Group     filter.Group
}

// FilterSet holds the compiled filters of every vendor, each in evaluation order.
type FilterSet struct {
	ByVendor map[int64][]ServiceFilter
	// Dropped counts malformed rules skipped in permissive mode.
	Dropped int
}

// Result is the outcome of classifying one batch.
type Result struct {
	Transactions []ClassifiedTransaction
	// FullyClassified ignores rows in an ignorable status.
	FullyClassified bool
	Unclassified    []int64
	// Unmapped lists events whose (vendor, service) pair has no vs id.
	Unmapped []int64
}

type Repository interface {
	ListVendorServiceRules(ctx context.Context, db *gorm.DB, vendorIDs []int64) (map[int64][]ServiceRules, error)
	ListVendorServices(ctx context.Context, db *gorm.DB, vendorIDs []int64) ([]VendorService, error)
}

type Service interface {
	LoadFilters(ctx context.Context, db *gorm.DB, vendorIDs []int64) (FilterSet, error)
	Classify(events []usagedomain.UsageEvent, filters FilterSet) Result
	ResolveVendorServices(ctx context.Context, db *gorm.DB, result *Result) error
}

var (
	ErrInvalidFilterConfig = errors.New("invalid_filter_config")
)
