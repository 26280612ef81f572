// Package databasetest opens throwaway in-memory databases for tests.
package databasetest

import (
	"testing"

	"github.com/lk2023060901/cat-gallery/internal/pkg/database"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
)

// New returns an in-memory sqlite database that is closed when t finishes.
// The pool is pinned to one connection so every query sees the same memory database.
func New(t testing.TB) *database.DB {
	t.Helper()

	cfg := database.DefaultConfig()
	cfg.Driver = database.DriverSQLite
	cfg.Path = ":memory:"
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.ConnMaxLifetime = 0
	cfg.ConnMaxIdleTime = 0
	cfg.LogLevel = "silent"
	cfg.PrepareStmt = false
	cfg.AutoMigrate = true

	db, err := database.New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
