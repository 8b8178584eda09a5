package repository

import (
	"context"

	ratingdomain "github.com/smallbiznis/signbilling/internal/rating/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ratingdomain.Repository {
	return &repo{}
}

func (r *repo) DeleteCharges(ctx context.Context, db *gorm.DB, clientID int64, period string) (int64, error) {
	res := db.WithContext(ctx).
		Where("client_id = ? AND period = ?", clientID, period).
		Delete(&ratingdomain.Charge{})
	return res.RowsAffected, res.Error
}

// DeleteInvoices only removes pending invoices; issued ones are final.
func (r *repo) DeleteInvoices(ctx context.Context, db *gorm.DB, clientID int64, period string) (int64, error) {
	res := db.WithContext(ctx).
		Where("client_id = ? AND period = ? AND status = ?", clientID, period, ratingdomain.InvoiceStatusPending).
		Delete(&ratingdomain.Invoice{})
	return res.RowsAffected, res.Error
}

func (r *repo) InsertCharges(ctx context.Context, db *gorm.DB, charges []ratingdomain.Charge) error {
	if len(charges) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(charges, 500).Error
}

func (r *repo) InsertInvoices(ctx context.Context, db *gorm.DB, invoices []ratingdomain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&invoices).Error
}
