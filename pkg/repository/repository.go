package repository

import (
	"context"

	"github.com/smallbiznis/signbilling/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a thin generic reader over a single gorm model.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	// Find matches the non-zero fields of query; a nil query matches every row.
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
}
