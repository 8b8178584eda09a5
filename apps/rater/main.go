package main

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/signbilling/internal/classifier"
	"github.com/smallbiznis/signbilling/internal/clock"
	"github.com/smallbiznis/signbilling/internal/config"
	"github.com/smallbiznis/signbilling/internal/contract"
	"github.com/smallbiznis/signbilling/internal/ledger"
	"github.com/smallbiznis/signbilling/internal/lock"
	"github.com/smallbiznis/signbilling/internal/migration"
	"github.com/smallbiznis/signbilling/internal/observability"
	"github.com/smallbiznis/signbilling/internal/period"
	"github.com/smallbiznis/signbilling/internal/rating"
	"github.com/smallbiznis/signbilling/internal/scheduler"
	"github.com/smallbiznis/signbilling/internal/usage"
	"github.com/smallbiznis/signbilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// rater rates one period and exits. RATING_PERIOD defaults to the previous
// month; RATING_CLIENT_IDS limits the run to the listed clients.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,

		usage.Module,
		classifier.Module,
		contract.Module,
		ledger.Module,
		rating.Module,
		scheduler.Module,

		fx.Invoke(RunBatch),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

func RunBatch(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, c clock.Clock, sched *scheduler.Scheduler, log *zap.Logger) {
	log = log.Named("rater")
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			label := strings.TrimSpace(cfg.RatingPeriod)
			if label == "" {
				label = period.Previous(c.Now()).String()
			}

			go func() {
				var (
					result scheduler.BatchResult
					err    error
				)
				if len(cfg.RatingClientIDs) > 0 {
					result, err = sched.RunClients(ctx, label, cfg.RatingClientIDs)
				} else {
					result, err = sched.RunPeriod(ctx, label)
				}

				code := 0
				if err != nil {
					log.Error("rating batch aborted", zap.String("period", label), zap.Error(err))
					code = 1
				} else if result.Failed > 0 {
					code = 2
				}
				for clientID, clientErr := range result.Errors {
					log.Warn("client not rated", zap.Int64("client_id", clientID), zap.Error(clientErr))
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
