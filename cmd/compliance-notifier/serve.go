package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/compliance-notifier/internal/api"
	"github.com/nhle/compliance-notifier/internal/cache"
	"github.com/nhle/compliance-notifier/internal/events"
	"github.com/nhle/compliance-notifier/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func cmdServe(ctx context.Context, configPath string, _ []string) error {
	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if cfg.HTTP.Enabled && cfg.HTTP.JWTSecret == "" {
		return errors.New("http.jwt_secret must be set when the API is enabled")
	}

	pub, err := events.New(cfg.Events)
	if err != nil {
		return fmt.Errorf("connecting event publisher: %w", err)
	}
	defer pub.Close()

	eng, err := a.engine(pub)
	if err != nil {
		return err
	}

	var control api.SchedulerControl
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(eng, cfg.Scheduler, a.log)
		if err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
		control = sched
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Enabled {
		var client cache.Client
		if rc := cache.NewClient(cfg.Redis); rc != nil {
			defer rc.Close()
			client = rc
		}

		gin.SetMode(cfg.HTTP.Mode)
		router := api.NewRouter(api.Options{
			Store:     a.store,
			Stats:     cache.NewStats(client, a.store, cfg.Redis.StatsTTL, cfg.Engine.DueSoonDays, a.log),
			Scheduler: control,
			Secret:    []byte(cfg.HTTP.JWTSecret),
			Timeout:   cfg.HTTP.WriteTimeout,
			Logger:    a.log,
		})
		srv := api.NewServer(cfg.HTTP, router)

		g.Go(func() error {
			a.log.WithField("addr", cfg.HTTP.Addr).Info("HTTP API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving HTTP: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	} else {
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	a.log.Info("compliance notifier started")
	err = g.Wait()
	a.log.Info("compliance notifier stopping")
	return err
}
