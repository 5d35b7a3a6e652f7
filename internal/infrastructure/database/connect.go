package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/helpers"
)

const (
	defaultConnectRetries = 15
	defaultConnectDelay   = 3 * time.Second
)

// Connect opens the master and replica pools described by cfg and pings the master,
// retrying until ctx is done or the configured attempts run out.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*dbpg.DB, error) {
	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = defaultConnectRetries
	}
	delay := time.Duration(cfg.ConnectRetryDelaySec) * time.Second
	if delay <= 0 {
		delay = defaultConnectDelay
	}

	var slaves []string
	if strings.TrimSpace(cfg.Slaves) != "" {
		slaves = helpers.SplitAndTrim(cfg.Slaves, ",")
	}
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSec) * time.Second,
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		db, err := open(ctx, cfg.DSN, slaves, opts)
		if err == nil {
			zlog.Logger.Info().Int("attempt", attempt).Int("replicas", len(slaves)).Msg("Database connection established")
			return db, nil
		}
		lastErr = err
		zlog.Logger.Warn().Err(err).Msgf("Database connection attempt %d/%d failed", attempt, retries)

		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to database: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", retries, lastErr)
}

func open(ctx context.Context, dsn string, slaves []string, opts *dbpg.Options) (*dbpg.DB, error) {
	db, err := dbpg.New(dsn, slaves, opts)
	if err != nil {
		return nil, err
	}
	if db.Master == nil {
		return nil, fmt.Errorf("database master is nil")
	}
	if err := db.Master.PingContext(ctx); err != nil {
		Close(db)
		return nil, fmt.Errorf("ping master: %w", err)
	}
	return db, nil
}

// Close releases the master and every replica pool. It is safe on a nil db.
func Close(db *dbpg.DB) {
	if db == nil {
		return
	}
	if db.Master != nil {
		if err := db.Master.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("closing db master failed")
		}
	}
	for i, s := range db.Slaves {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			zlog.Logger.Error().Err(err).Int("slave_index", i).Msg("closing db slave failed")
		}
	}
}
