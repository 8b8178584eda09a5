package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/signbilling/internal/classifier"
	"github.com/smallbiznis/signbilling/internal/clock"
	"github.com/smallbiznis/signbilling/internal/config"
	"github.com/smallbiznis/signbilling/internal/contract"
	"github.com/smallbiznis/signbilling/internal/ledger"
	"github.com/smallbiznis/signbilling/internal/lock"
	"github.com/smallbiznis/signbilling/internal/migration"
	"github.com/smallbiznis/signbilling/internal/observability"
	"github.com/smallbiznis/signbilling/internal/rating"
	"github.com/smallbiznis/signbilling/internal/scheduler"
	"github.com/smallbiznis/signbilling/internal/usage"
	"github.com/smallbiznis/signbilling/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,

		// Functional Domains
		usage.Module,
		classifier.Module,
		contract.Module,
		ledger.Module,
		rating.Module,

		scheduler.Module,
		scheduler.Loop,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
