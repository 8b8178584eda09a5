package service

import (
	"context"
	"fmt"

	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	"github.com/smallbiznis/signbilling/internal/config"
	"github.com/smallbiznis/signbilling/internal/filter"
	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Repo         classifierdomain.Repository
	RatingConfig *config.RatingConfigHolder
}

type Service struct {
	log       *zap.Logger
	repo      classifierdomain.Repository
	ratingCfg *config.RatingConfigHolder
}

func NewService(p Params) classifierdomain.Service {
	return &Service{
		log:       p.Log.Named("classifier.service"),
		repo:      p.Repo,
		ratingCfg: p.RatingConfig,
	}
}

// LoadFilters compiles every vendor's filters. Strictness follows rating.strictFilters.
func (s *Service) LoadFilters(ctx context.Context, db *gorm.DB, vendorIDs []int64) (classifierdomain.FilterSet, error) {
	strict := s.ratingCfg.Get().StrictFilters

	rulesByVendor, err := s.repo.ListVendorServiceRules(ctx, db, vendorIDs)
	if err != nil {
		return classifierdomain.FilterSet{}, err
	}

	set := classifierdomain.FilterSet{ByVendor: make(map[int64][]classifierdomain.ServiceFilter, len(rulesByVendor))}
	for _, vendorID := range vendorIDs {
		for _, svc := range rulesByVendor[vendorID] {
			cfgs := make([]filter.RuleConfig, 0, len(svc.Rules))
			for _, rule := range svc.Rules {
				cfgs = append(cfgs, filter.ParseKey(rule.Key, rule.Value))
			}

			group, dropped, err := filter.NewGroup(cfgs, strict)
			if err != nil {
				return classifierdomain.FilterSet{}, fmt.Errorf("%w: vendor %d service %d filter %d: %w",
					classifierdomain.ErrInvalidFilterConfig, vendorID, svc.ServiceID, svc.FilterID, err)
			}
			if dropped > 0 {
				s.log.Warn("dropped malformed filter rules",
					zap.Int64("vendor_id", vendorID),
					zap.Int64("service_id", svc.ServiceID),
					zap.Int64("filter_id", svc.FilterID),
					zap.Int("dropped", dropped),
				)
				set.Dropped += dropped
			}

			set.ByVendor[vendorID] = append(set.ByVendor[vendorID], classifierdomain.ServiceFilter{
				ServiceID: svc.ServiceID,
				Group:     group,
			})
		}
	}
	return set, nil
}

// Classify tags each event with the first service whose group matches.
func (s *Service) Classify(events []usagedomain.UsageEvent, filters classifierdomain.FilterSet) classifierdomain.Result {
	cfg := s.ratingCfg.Get()

	result := classifierdomain.Result{
		Transactions:    make([]classifierdomain.ClassifiedTransaction, len(events)),
		FullyClassified: true,
	}
	for i := range events {
		ev := &events[i]
		tx := classifierdomain.ClassifiedTransaction{Event: ev}
		for _, sf := range filters.ByVendor[ev.VendorID] {
			if sf.Group.ApplyAll(ev) {
				serviceID := sf.ServiceID
				tx.ServiceID = &serviceID
				break
			}
		}
		result.Transactions[i] = tx

		if tx.ServiceID == nil && !cfg.IsFailedStatus(ev.TransactionStatus) {
			result.FullyClassified = false
			result.Unclassified = append(result.Unclassified, ev.ID)
		}
	}
	return result
}

type vendorServiceKey struct {
	vendorID  int64
	serviceID int64
}

// ResolveVendorServices sets the vs id of every classified, non-failed transaction.
func (s *Service) ResolveVendorServices(ctx context.Context, db *gorm.DB, result *classifierdomain.Result) error {
	cfg := s.ratingCfg.Get()

	vendorIDs := make([]int64, 0)
	seen := make(map[int64]struct{})
	for i := range result.Transactions {
		vendorID := result.Transactions[i].VendorID()
		if _, ok := seen[vendorID]; ok {
			continue
		}
		seen[vendorID] = struct{}{}
		vendorIDs = append(vendorIDs, vendorID)
	}

	rows, err := s.repo.ListVendorServices(ctx, db, vendorIDs)
	if err != nil {
		return err
	}
	index := make(map[vendorServiceKey]int64, len(rows))
	for _, row := range rows {
		index[vendorServiceKey{vendorID: row.VendorID, serviceID: row.ServiceID}] = row.ID
	}

	result.Unmapped = result.Unmapped[:0]
	for i := range result.Transactions {
		tx := &result.Transactions[i]
		tx.VSID = nil
		if tx.ServiceID == nil || cfg.IsFailedStatus(tx.Event.TransactionStatus) {
			continue
		}
		vsID, ok := index[vendorServiceKey{vendorID: tx.VendorID(), serviceID: *tx.ServiceID}]
		if !ok {
			result.Unmapped = append(result.Unmapped, tx.Event.ID)
			continue
		}
		tx.VSID = &vsID
	}
	return nil
}
