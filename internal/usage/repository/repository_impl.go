package repository

import (
	"context"
	"time"

	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, events []usagedomain.UsageEvent) error {
	if len(events) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(events, 500).Error
}

// ListByVendors returns events in [from, to) ordered by timestamp, then thread id.
func (r *repo) ListByVendors(ctx context.Context, db *gorm.DB, vendorIDs []int64, from, to time.Time) ([]usagedomain.UsageEvent, error) {
	if len(vendorIDs) == 0 {
		return nil, nil
	}
	var rows []usagedomain.UsageEvent
	err := db.WithContext(ctx).
		Where("vendor_id IN ?", vendorIDs).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Order("timestamp ASC").
		Order("thread_id ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
