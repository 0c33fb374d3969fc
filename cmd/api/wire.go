package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bryanwahyu/reqverify/internal/config"
	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
	"github.com/bryanwahyu/reqverify/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/reqverify/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/reqverify/internal/infra/db/postgres"
	"github.com/bryanwahyu/reqverify/internal/middleware"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

// openRepository picks the history backend. The returned *sql.DB is nil for
// the in-memory backend.
func openRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.Repository, *sql.DB, error) {
	var (
		db   *sql.DB
		repo domain.Repository
		err  error
	)
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		repo = mysqlp.NewAnalysisRepository(db)
	case config.DriverPostgres, config.DriverPgx:
		db, err = pgp.Connect(ctx, cfg.Database.Driver, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		repo = pgp.NewAnalysisRepository(db)
	default:
		mem, err := memory.NewAnalysisRepository(cfg.Database.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using in-memory analysis history", "size", cfg.Database.CacheSize)
		return mem, nil, nil
	}

	if m, ok := repo.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	log.Info("analysis history ready", "driver", cfg.Database.Driver)
	return repo, db, nil
}

func healthCheckers(db *sql.DB, ollama middleware.HealthChecker) map[string]middleware.HealthChecker {
	checks := map[string]middleware.HealthChecker{"ollama": ollama}
	if db != nil {
		checks["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}
	return checks
}
