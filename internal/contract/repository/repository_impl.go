package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() contractdomain.Repository {
	return &repo{}
}

func (r *repo) FindClient(ctx context.Context, db *gorm.DB, clientID int64) (*contractdomain.Client, error) {
	var client contractdomain.Client
	err := db.WithContext(ctx).
		Preload("Vendors", func(tx *gorm.DB) *gorm.DB { return tx.Order("vendor_id ASC") }).
		Where("client_id = ?", clientID).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contractdomain.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (r *repo) ListBillableClientIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&contractdomain.Client{}).
		Where("is_billable = ?", true).
		Order("client_id ASC").
		Pluck("client_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ListRatingOrders(ctx context.Context, db *gorm.DB, clientID int64, from, to time.Time) ([]contractdomain.Order, error) {
	var orders []contractdomain.Order
	err := db.WithContext(ctx).
		Select("orders.*").
		Joins("JOIN contracts ON contracts.contract_id = orders.contract_id").
		Where("contracts.client_id = ?", clientID).
		Where(
			`((orders.start_date < ? AND (orders.end_date IS NULL OR orders.end_date >= ?))
			 OR orders.order_id IN (
			   SELECT op.order_id FROM order_packages op
			   JOIN prepaid_packages pp ON pp.id = op.prepaid_package_id
			   WHERE pp.status = ?))`,
			to, from, ledgerdomain.PackageStatusActive,
		).
		Preload("Services", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Prices", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Packages", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Packages.PrepaidPackage").
		Order("orders.is_active DESC").
		Order("orders.start_date DESC").
		Order("orders.order_id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	// older packages are drawn down first
	for i := range orders {
		pkgs := orders[i].Packages
		sort.SliceStable(pkgs, func(a, b int) bool {
			pa, pb := pkgs[a].PrepaidPackage, pkgs[b].PrepaidPackage
			if pa == nil || pb == nil {
				return pa != nil
			}
			if !pa.StartDate.Equal(pb.StartDate) {
				return pa.StartDate.Before(pb.StartDate)
			}
			return pa.ID < pb.ID
		})
	}
	return orders, nil
}

func (r *repo) ListClientPackageIDs(ctx context.Context, db *gorm.DB, clientID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&contractdomain.OrderPackage{}).
		Distinct("order_packages.prepaid_package_id").
		Joins("JOIN orders ON orders.order_id = order_packages.order_id").
		Joins("JOIN contracts ON contracts.contract_id = orders.contract_id").
		Where("contracts.client_id = ?", clientID).
		Order("order_packages.prepaid_package_id ASC").
		Pluck("order_packages.prepaid_package_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) AttachPackage(ctx context.Context, db *gorm.DB, link *contractdomain.OrderPackage) error {
	return db.WithContext(ctx).Omit("PrepaidPackage").Create(link).Error
}

func (r *repo) DetachPackage(ctx context.Context, db *gorm.DB, packageID int64) error {
	return db.WithContext(ctx).
		Where("prepaid_package_id = ?", packageID).
		Delete(&contractdomain.OrderPackage{}).Error
}
