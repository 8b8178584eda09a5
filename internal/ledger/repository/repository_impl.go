package repository

import (
	"context"
	"errors"
	"time"

	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) FindPackage(ctx context.Context, db *gorm.DB, id int64) (*ledgerdomain.PrepaidPackage, error) {
	var pkg ledgerdomain.PrepaidPackage
	err := db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrPackageNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *repo) ListCharges(ctx context.Context, db *gorm.DB, packageID int64) ([]ledgerdomain.PrepaidPackageCharge, error) {
	var charges []ledgerdomain.PrepaidPackageCharge
	err := db.WithContext(ctx).
		Where("prepaid_package_id = ?", packageID).
		Order("charge_date ASC").
		Order("id ASC").
		Find(&charges).Error
	if err != nil {
		return nil, err
	}
	return charges, nil
}

func (r *repo) CreatePackage(ctx context.Context, db *gorm.DB, pkg *ledgerdomain.PrepaidPackage) error {
	return db.WithContext(ctx).Create(pkg).Error
}

func (r *repo) CreateCharges(ctx context.Context, db *gorm.DB, charges []ledgerdomain.PrepaidPackageCharge) error {
	if len(charges) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&charges).Error
}

func (r *repo) UpdatePackage(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&ledgerdomain.PrepaidPackage{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) DeletePackage(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&ledgerdomain.PrepaidPackage{}).Error
}

func (r *repo) ListRenewals(ctx context.Context, db *gorm.DB, sourceIDs []int64, period string) ([]ledgerdomain.PrepaidPackage, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	var pkgs []ledgerdomain.PrepaidPackage
	err := db.WithContext(ctx).
		Where("renewed_from_id IN ?", sourceIDs).
		Where("renewal_period = ?", period).
		Order("id ASC").
		Find(&pkgs).Error
	if err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (r *repo) DeleteCharges(ctx context.Context, db *gorm.DB, packageID int64) error {
	return db.WithContext(ctx).
		Where("prepaid_package_id = ?", packageID).
		Delete(&ledgerdomain.PrepaidPackageCharge{}).Error
}

func (r *repo) DeleteTransferLeg(ctx context.Context, db *gorm.DB, packageID, counterpartyID int64) error {
	return db.WithContext(ctx).
		Where("prepaid_package_id = ? AND counterparty_id = ? AND status = ?",
			packageID, counterpartyID, ledgerdomain.ChargeStatusPending).
		Delete(&ledgerdomain.PrepaidPackageCharge{}).Error
}

func (r *repo) DeletePendingDrawDowns(ctx context.Context, db *gorm.DB, packageIDs []int64, from, to time.Time) error {
	if len(packageIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("prepaid_package_id IN ?", packageIDs).
		Where("counterparty_id IS NULL AND is_credit = ? AND status = ?", false, ledgerdomain.ChargeStatusPending).
		Where("charge_date >= ? AND charge_date < ?", from, to).
		Delete(&ledgerdomain.PrepaidPackageCharge{}).Error
}
