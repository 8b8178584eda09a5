package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/signbilling/internal/clock"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  ledgerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  ledgerdomain.Repository
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Balances(ctx context.Context, packageID int64) (ledgerdomain.Balances, error) {
	return s.BalancesTx(ctx, s.db, packageID)
}

func (s *Service) BalancesTx(ctx context.Context, tx *gorm.DB, packageID int64) (ledgerdomain.Balances, error) {
	pkg, err := s.repo.FindPackage(ctx, tx, packageID)
	if err != nil {
		return ledgerdomain.Balances{}, err
	}
	return s.balancesOf(ctx, tx, pkg)
}

func (s *Service) balancesOf(ctx context.Context, tx *gorm.DB, pkg *ledgerdomain.PrepaidPackage) (ledgerdomain.Balances, error) {
	charges, err := s.repo.ListCharges(ctx, tx, pkg.ID)
	if err != nil {
		return ledgerdomain.Balances{}, err
	}
	return ledgerdomain.ComputeBalances(*pkg, charges), nil
}

func (s *Service) TransferBalance(ctx context.Context, req ledgerdomain.TransferRequest) (ledgerdomain.TransferResult, error) {
	var result ledgerdomain.TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.TransferBalanceTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return ledgerdomain.TransferResult{}, err
	}
	return result, nil
}

func (s *Service) TransferBalanceTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.TransferRequest) (ledgerdomain.TransferResult, error) {
	if req.FromPackageID == 0 || req.ToPackageID == 0 || req.FromPackageID == req.ToPackageID {
		return ledgerdomain.TransferResult{}, ledgerdomain.ErrInvalidTransfer
	}

	from, err := s.repo.FindPackage(ctx, tx, req.FromPackageID)
	if err != nil {
		return ledgerdomain.TransferResult{}, err
	}
	to, err := s.repo.FindPackage(ctx, tx, req.ToPackageID)
	if err != nil {
		return ledgerdomain.TransferResult{}, err
	}

	date := req.TransferDate
	if date.IsZero() {
		date = clock.Today(s.clock)
	}
	return s.transfer(ctx, tx, from, to, req.PostImmediately, date)
}

// transfer moves from's whole available balance into to and reweights to's rate.
func (s *Service) transfer(
	ctx context.Context,
	tx *gorm.DB,
	from, to *ledgerdomain.PrepaidPackage,
	postImmediately bool,
	date time.Time,
) (ledgerdomain.TransferResult, error) {
	fromBalances, err := s.balancesOf(ctx, tx, from)
	if err != nil {
		return ledgerdomain.TransferResult{}, err
	}
	if reason := ledgerdomain.CheckTransfer(*from, *to, fromBalances, postImmediately); reason != nil {
		s.log.Info("transfer rejected",
			zap.Int64("from_package_id", from.ID),
			zap.Int64("to_package_id", to.ID),
			zap.Error(reason),
		)
		return ledgerdomain.TransferResult{Reason: reason}, nil
	}

	toBalances, err := s.balancesOf(ctx, tx, to)
	if err != nil {
		return ledgerdomain.TransferResult{}, err
	}

	amount := fromBalances.Available
	newRate, ok := ledgerdomain.WeightedRate(amount, from.AverageRate, toBalances.Available, to.AverageRate)
	if !ok {
		return ledgerdomain.TransferResult{Reason: ledgerdomain.ErrNoAvailableBalance}, nil
	}

	status := ledgerdomain.ChargeStatusPending
	closedStatus := ledgerdomain.PackageStatusPreClosed
	if postImmediately {
		status = ledgerdomain.ChargeStatusPosted
		closedStatus = ledgerdomain.PackageStatusClosed
	}

	fromID, toID := from.ID, to.ID
	charges := []ledgerdomain.PrepaidPackageCharge{
		{
			ID:               s.genID.Generate().Int64(),
			PrepaidPackageID: from.ID,
			ChargeDate:       date,
			ChargedUnits:     amount,
			IsCredit:         false,
			Status:           status,
			CounterpartyID:   &toID,
		},
		{
			ID:               s.genID.Generate().Int64(),
			PrepaidPackageID: to.ID,
			ChargeDate:       date,
			ChargedUnits:     amount,
			IsCredit:         true,
			Status:           status,
			CounterpartyID:   &fromID,
		},
	}
	if err := s.repo.CreateCharges(ctx, tx, charges); err != nil {
		return ledgerdomain.TransferResult{}, err
	}

	if err := s.repo.UpdatePackage(ctx, tx, to.ID, map[string]any{
		"average_rate": newRate,
		"updated_at":   s.clock.Now(),
	}); err != nil {
		return ledgerdomain.TransferResult{}, err
	}
	if err := s.repo.UpdatePackage(ctx, tx, from.ID, map[string]any{
		"closing_date": date,
		"status":       closedStatus,
		"updated_at":   s.clock.Now(),
	}); err != nil {
		return ledgerdomain.TransferResult{}, err
	}

	to.AverageRate = newRate
	from.ClosingDate = &date
	from.Status = closedStatus

	s.log.Info("balance transferred",
		zap.Int64("from_package_id", from.ID),
		zap.Int64("to_package_id", to.ID),
		zap.String("amount", amount.String()),
		zap.String("new_rate", newRate.String()),
		zap.Bool("posted", postImmediately),
	)

	return ledgerdomain.TransferResult{Transferred: true, Amount: amount, NewRate: newRate}, nil
}

func (s *Service) Renew(ctx context.Context, req ledgerdomain.RenewRequest) (*ledgerdomain.PrepaidPackage, error) {
	var renewed *ledgerdomain.PrepaidPackage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		renewed, err = s.RenewTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return renewed, nil
}

// RenewTx creates a successor package and carries the balance over. It
// returns nil without writing when the transfer would be rejected.
func (s *Service) RenewTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.RenewRequest) (*ledgerdomain.PrepaidPackage, error) {
	pkg, err := s.repo.FindPackage(ctx, tx, req.PackageID)
	if err != nil {
		return nil, err
	}

	renewDate := req.RenewDate
	if renewDate.IsZero() {
		renewDate = clock.Today(s.clock)
	}

	draft := ledgerdomain.RenewalDraft(*pkg, renewDate, req.Period)
	draft.ID = s.genID.Generate().Int64()
	next := &draft

	fromBalances, err := s.balancesOf(ctx, tx, pkg)
	if err != nil {
		return nil, err
	}
	if reason := ledgerdomain.CheckTransfer(*pkg, *next, fromBalances, false); reason != nil {
		s.log.Info("renewal skipped", zap.Int64("package_id", pkg.ID), zap.Error(reason))
		return nil, nil
	}

	if err := s.repo.CreatePackage(ctx, tx, next); err != nil {
		return nil, err
	}
	result, err := s.transfer(ctx, tx, pkg, next, false, renewDate)
	if err != nil {
		return nil, err
	}
	if !result.Transferred {
		return nil, errors.Join(ledgerdomain.ErrInvalidTransfer, result.Reason)
	}

	s.log.Info("package renewed",
		zap.Int64("package_id", pkg.ID),
		zap.Int64("renewed_package_id", next.ID),
		zap.Time("renew_date", renewDate),
	)
	return next, nil
}

func (s *Service) PendingRenewalsTx(ctx context.Context, tx *gorm.DB, sourceIDs []int64, period string) ([]ledgerdomain.PrepaidPackage, error) {
	return s.repo.ListRenewals(ctx, tx, sourceIDs, period)
}

// RevertRenewalTx deletes renewed with its charges, drops the source's pending
// transfer debit and reopens the source. Settled renewals are left untouched.
func (s *Service) RevertRenewalTx(ctx context.Context, tx *gorm.DB, renewed ledgerdomain.PrepaidPackage) error {
	if renewed.Status != ledgerdomain.PackageStatusPreActive {
		return fmt.Errorf("%w: package %d is %s", ledgerdomain.ErrRenewalSettled, renewed.ID, renewed.Status)
	}
	charges, err := s.repo.ListCharges(ctx, tx, renewed.ID)
	if err != nil {
		return err
	}
	for _, c := range charges {
		if c.Status == ledgerdomain.ChargeStatusPosted {
			return fmt.Errorf("%w: package %d has posted charge %d", ledgerdomain.ErrRenewalSettled, renewed.ID, c.ID)
		}
	}

	if renewed.RenewedFromID != nil {
		source, err := s.repo.FindPackage(ctx, tx, *renewed.RenewedFromID)
		if err != nil {
			return err
		}
		if source.Status != ledgerdomain.PackageStatusPreClosed {
			return fmt.Errorf("%w: source package %d is %s", ledgerdomain.ErrRenewalSettled, source.ID, source.Status)
		}
		if err := s.repo.DeleteTransferLeg(ctx, tx, source.ID, renewed.ID); err != nil {
			return err
		}
		if err := s.repo.UpdatePackage(ctx, tx, source.ID, map[string]any{
			"closing_date": nil,
			"status":       ledgerdomain.PackageStatusActive,
			"updated_at":   s.clock.Now(),
		}); err != nil {
			return err
		}
	}

	if err := s.repo.DeleteCharges(ctx, tx, renewed.ID); err != nil {
		return err
	}
	if err := s.repo.DeletePackage(ctx, tx, renewed.ID); err != nil {
		return err
	}

	s.log.Info("renewal reverted",
		zap.Int64("renewed_package_id", renewed.ID),
		zap.Int("charges", len(charges)),
	)
	return nil
}
