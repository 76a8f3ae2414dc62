package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/config"
	"github.com/cppla/discourse/events"
	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/gateway/memory"
	"github.com/cppla/discourse/gateway/postgrest"
	"github.com/cppla/discourse/gateway/sqlstore"
	"github.com/cppla/discourse/metrics"
	"github.com/cppla/discourse/utils"
)

// app holds the long-lived services behind every command.
type app struct {
	cfg         config.AppConfig
	gateway     gateway.Gateway
	board       *board.Board
	boot        *board.Bootstrapper
	events      events.Publisher
	redis       *redis.Client
	storageRoot string
	closers     []func() error
}

func newApp(cfg config.AppConfig) (*app, error) {
	a := &app{cfg: cfg}
	a.redis = utils.NewRedis(cfg)
	if a.redis != nil {
		a.closers = append(a.closers, a.redis.Close)
	}

	gw, err := a.openGateway()
	if err != nil {
		a.close()
		return nil, err
	}
	a.gateway = metrics.Instrument(gw)

	a.events = events.Publisher(events.Nop{})
	if cfg.NatsURL != "" {
		pub, err := events.Connect(cfg.NatsURL, cfg.NatsSubjectPrefix)
		if err != nil {
			// the board keeps serving without an activity feed
			utils.Sugar.Warnw("nats unavailable, events disabled", "url", cfg.NatsURL, "error", err)
		} else {
			a.events = pub
		}
	}

	a.board = board.New(a.gateway, board.WithEvents(a.events), board.WithBucket(cfg.StorageBucket))
	a.boot = board.NewBootstrapper(a.gateway, a.events)
	return a, nil
}

func (a *app) openGateway() (gateway.Gateway, error) {
	switch a.cfg.GatewayDriver {
	case config.DriverSupabase:
		client, err := postgrest.New(postgrest.Config{
			URL:     a.cfg.SupabaseURL,
			AnonKey: a.cfg.SupabaseAnonKey,
			Timeout: time.Duration(a.cfg.GatewayTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	case config.DriverSQL:
		db, err := config.InitDatabase(a.cfg)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		store, err := sqlstore.New(db, sqlstore.Options{
			JWTSecret:     a.cfg.JWTSecret,
			SessionTTL:    time.Duration(a.cfg.SessionTTLHours) * time.Hour,
			UploadDir:     a.cfg.UploadDir,
			PublicBaseURL: a.cfg.PublicBaseURL,
			Redis:         a.redis,
		})
		if err != nil {
			return nil, err
		}
		a.storageRoot = store.StorageRoot()
		return store, nil
	case config.DriverMemory:
		utils.Sugar.Warn("using the in-memory gateway, data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported gateway driver %q", a.cfg.GatewayDriver)
	}
}

// close waits for background writes, then releases connections in reverse order.
func (a *app) close() {
	if a.board != nil {
		a.board.Wait()
	}
	if a.events != nil {
		a.events.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		utils.Sugar.Warnw("shutdown", "error", err)
	}
}
