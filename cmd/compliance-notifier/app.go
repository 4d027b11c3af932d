package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nhle/compliance-notifier/internal/credential"
	"github.com/nhle/compliance-notifier/internal/engine"
	"github.com/nhle/compliance-notifier/internal/logging"
	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

// app bundles what every command needs.
type app struct {
	cfg   *model.AppConfig
	log   *logrus.Logger
	store *store.SQLStore
}

// openApp loads configuration, configures logging and opens the store.
func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}

	dsn, err := credential.ResolveDSN(cfg.Database)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, cfg.Database.Driver, dsn, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	log.WithField("driver", s.Driver()).Debug("store opened")
	return &app{cfg: cfg, log: log, store: s}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// engine builds the notification engine from configuration.
func (a *app) engine(pub engine.Publisher) (*engine.Engine, error) {
	strategy, err := engine.ParseStrategy(a.cfg.Engine.EscalationStrategy)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.FromStore(a.store), engine.Options{
		DueSoonDays: a.cfg.Engine.DueSoonDays,
		DedupWindow: a.cfg.Engine.DedupWindow,
		Strategy:    strategy,
		DateLayout:  a.cfg.Engine.DateLayout,
		Publisher:   pub,
		Logger:      a.log,
	}), nil
}
