// internal/infrastructure/persistence/postgres/connection.go
package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"respond-dashboard/internal/infrastructure/config"
	"respond-dashboard/pkg/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect открывает пул PostgreSQL журнала циклов и применяет миграции
func Connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.GetPostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.Database.MaxConnIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("✅ Connected to PostgreSQL %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	if cfg.Database.EnableAutoMigrate {
		if err := RunMigrations(ctx, db, migrationsSource(cfg.Database.MigrationsPath)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return db, nil
}

// RunMigrations загружает и применяет миграции из source
func RunMigrations(ctx context.Context, db *sqlx.DB, source fs.FS) error {
	migrator := NewMigrator(db)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init migrations table: %w", err)
	}
	if err := migrator.LoadMigrations(source); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("✅ Database migrations completed successfully")
	return nil
}

// migrationsSource каталог миграций на диске, если он есть, иначе встроенные
func migrationsSource(path string) fs.FS {
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			logger.Debug("📂 Migrations from %s", path)
			return os.DirFS(path)
		}
	}
	return EmbeddedMigrations()
}
