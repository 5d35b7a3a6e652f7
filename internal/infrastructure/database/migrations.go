package database

import (
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// RunMigrations applies every pending goose migration in dir to the master connection.
func RunMigrations(db *dbpg.DB, dir string) error {
	if db == nil || db.Master == nil {
		return fmt.Errorf("run migrations: no master connection")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db.Master, dir); err != nil {
		zlog.Logger.Error().Err(err).Str("dir", dir).Msg("goose up failed")
		return fmt.Errorf("apply migrations from %s: %w", dir, err)
	}
	zlog.Logger.Info().Str("dir", dir).Msg("Migrations applied")
	return nil
}
