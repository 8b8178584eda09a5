package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindClient(ctx context.Context, db *gorm.DB, clientID int64) (*Client, error)
	ListBillableClientIDs(ctx context.Context, db *gorm.DB) ([]int64, error)
	// ListRatingOrders returns the client's orders overlapping [from, to) plus
	// any order holding an ACTIVE prepaid package.
	ListRatingOrders(ctx context.Context, db *gorm.DB, clientID int64, from, to time.Time) ([]Order, error)
	ListClientPackageIDs(ctx context.Context, db *gorm.DB, clientID int64) ([]int64, error)
	AttachPackage(ctx context.Context, db *gorm.DB, link *OrderPackage) error
	DetachPackage(ctx context.Context, db *gorm.DB, packageID int64) error
}

var ErrClientNotFound = errors.New("client_not_found")
