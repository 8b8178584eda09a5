package service

import (
	"context"
	"strings"

	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo usagedomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo usagedomain.Repository
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("usage.service"),
		repo: p.Repo,
	}
}

// Record validates and stores a batch of extracted usage rows atomically.
func (s *Service) Record(ctx context.Context, reqs []usagedomain.RecordEventRequest) ([]usagedomain.UsageEvent, error) {
	if len(reqs) == 0 {
		return nil, usagedomain.ErrEmptyBatch
	}

	events := make([]usagedomain.UsageEvent, 0, len(reqs))
	for _, req := range reqs {
		if err := validateRecordRequest(req); err != nil {
			return nil, err
		}
		events = append(events, usagedomain.UsageEvent{
			VendorID:          req.VendorID,
			Timestamp:         req.Timestamp.UTC(),
			ThreadID:          strings.TrimSpace(req.ThreadID),
			TransactionID:     strings.TrimSpace(req.TransactionID),
			TransactionType:   strings.TrimSpace(req.TransactionType),
			TransactionStatus: req.TransactionStatus,
			Description:       strings.TrimSpace(req.Description),
			SigningType:       strings.TrimSpace(req.SigningType),
			ReceiverPID:       strings.TrimSpace(req.ReceiverPID),
			Payer:             strings.TrimSpace(req.Payer),
			BioPin:            req.BioPin,
			Cost:              req.Cost,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, events)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("usage recorded", zap.Int("events", len(events)))
	return events, nil
}

func validateRecordRequest(req usagedomain.RecordEventRequest) error {
	if req.VendorID <= 0 {
		return usagedomain.ErrInvalidVendor
	}
	if req.Timestamp.IsZero() {
		return usagedomain.ErrInvalidTimestamp
	}
	if req.Cost.Valid && req.Cost.Decimal.IsNegative() {
		return usagedomain.ErrInvalidCost
	}
	return nil
}
