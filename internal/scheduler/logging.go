package scheduler

import (
	"context"
	"sync"
	"time"

	obslogger "github.com/smallbiznis/signbilling/internal/observability/logger"
	ratingdomain "github.com/smallbiznis/signbilling/internal/rating/domain"
	"go.uber.org/zap"
)

type jobRun struct {
	job         string
	runID       string
	period      string
	concurrency int
	startedAt   time.Time

	mu     sync.Mutex
	result BatchResult
}

func (s *Scheduler) newJobRun(job, period string) *jobRun {
	return &jobRun{
		job:         job,
		runID:       s.genID.Generate().String(),
		period:      period,
		concurrency: s.cfg.Concurrency,
		startedAt:   s.clock.Now(),
		result: BatchResult{
			Period: period,
			Errors: make(map[int64]error),
		},
	}
}

// record folds one client outcome into the batch counters.
func (r *jobRun) record(clientID int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ratingdomain.Outcome(err) {
	case ratingdomain.OutcomeSuccess:
		r.result.Succeeded++
	case ratingdomain.OutcomeLocked:
		r.result.Locked++
	case ratingdomain.OutcomeRejected:
		r.result.Rejected++
		r.result.Errors[clientID] = err
	default:
		r.result.Failed++
		r.result.Errors[clientID] = err
	}
}

func (r *jobRun) snapshot() BatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.result
	out.Errors = make(map[int64]error, len(r.result.Errors))
	for id, err := range r.result.Errors {
		out.Errors[id] = err
	}
	return out
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun, clients int) {
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.String("period", run.period),
		zap.Int("clients", clients),
		zap.Int("concurrency", run.concurrency),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	result := run.snapshot()
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.String("period", run.period),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("rejected", result.Rejected),
		zap.Int("locked", result.Locked),
		zap.Int("failed", result.Failed),
	}
	log := s.logger(ctx)
	if result.Failed > 0 {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) logClientError(ctx context.Context, run *jobRun, clientID int64, err error) {
	outcome := ratingdomain.Outcome(err)
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("client_id", clientID),
		zap.String("outcome", outcome),
		zap.Error(err),
	}
	switch outcome {
	case ratingdomain.OutcomeFailed:
		s.logger(ctx).Error("scheduler.client.failed", fields...)
	case ratingdomain.OutcomeLocked:
		s.logger(ctx).Info("scheduler.client.locked", fields...)
	default:
		s.logger(ctx).Warn("scheduler.client.rejected", fields...)
	}
}
