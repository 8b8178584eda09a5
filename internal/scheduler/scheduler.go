package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/signbilling/internal/clock"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	"github.com/smallbiznis/signbilling/internal/period"
	ratingdomain "github.com/smallbiznis/signbilling/internal/rating/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	RatingSvc    ratingdomain.Service
	ContractRepo contractdomain.Repository
	Config       Config `optional:"true"`
}

// Scheduler rates every billable client for a period.
type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	cfg          Config
	ratingSvc    ratingdomain.Service
	contractRepo contractdomain.Repository
}

// BatchResult counts client outcomes of one batch. Errors holds the
// rejected and failed clients.
type BatchResult struct {
	Period    string
	Total     int
	Succeeded int
	Rejected  int
	Locked    int
	Failed    int
	Errors    map[int64]error
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.RatingSvc == nil || p.ContractRepo == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		genID:        p.GenID,
		clock:        p.Clock,
		cfg:          p.Config.withDefaults(),
		ratingSvc:    p.RatingSvc,
		contractRepo: p.ContractRepo,
	}, nil
}

// RunPeriod rates all billable clients, ordered by id.
func (s *Scheduler) RunPeriod(ctx context.Context, label string) (BatchResult, error) {
	if _, err := period.Parse(label); err != nil {
		return BatchResult{Period: label}, &ratingdomain.ConfigurationError{Err: err}
	}
	ids, err := s.contractRepo.ListBillableClientIDs(ctx, s.db)
	if err != nil {
		return BatchResult{Period: label}, fmt.Errorf("list billable clients: %w", err)
	}
	return s.RunClients(ctx, label, ids)
}

// RunClients rates the given clients concurrently. A failing client never
// stops the others; only cancellation of ctx ends the batch early.
func (s *Scheduler) RunClients(ctx context.Context, label string, clientIDs []int64) (BatchResult, error) {
	if _, err := period.Parse(label); err != nil {
		return BatchResult{Period: label}, &ratingdomain.ConfigurationError{Err: err}
	}
	run := s.newJobRun("rating", label)
	s.logJobStart(ctx, run, len(clientIDs))
	defer s.logJobFinish(ctx, run)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	dispatched := 0
	for _, clientID := range clientIDs {
		if gctx.Err() != nil {
			break
		}
		dispatched++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := s.ratingSvc.Rate(gctx, label, clientID)
			run.record(clientID, err)
			if err != nil {
				s.logClientError(gctx, run, clientID, err)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	run.mu.Lock()
	run.result.Total = dispatched
	run.mu.Unlock()

	if waitErr == nil {
		waitErr = ctx.Err()
	}
	return run.snapshot(), waitErr
}

// RunOnce rates the previous closed month under the configured timeout.
func (s *Scheduler) RunOnce(parent context.Context) (BatchResult, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	label := period.Previous(s.clock.Now()).String()
	result, err := s.RunPeriod(ctx, label)
	if errors.Is(err, context.DeadlineExceeded) {
		s.log.Warn("rating batch timed out",
			zap.String("period", label),
			zap.Duration("timeout", s.cfg.RunTimeout),
			zap.Int("rated", result.Total),
		)
		return result, nil
	}
	return result, err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
