// internal/infrastructure/persistence/postgres/migrator.go
package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"respond-dashboard/pkg/logger"

	"github.com/jmoiron/sqlx"
)

const downMarker = "-- DOWN Migration"

// Migrator применяет SQL миграции журнала циклов
type Migrator struct {
	db         *sqlx.DB
	migrations map[int]*Migration
}

// Migration одна миграция из каталога
type Migration struct {
	ID          int
	Name        string
	Description string
	SQL         string
	Checksum    string
}

// MigrationRecord строка таблицы schema_migrations
type MigrationRecord struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Checksum  string    `db:"checksum"`
	AppliedAt time.Time `db:"applied_at"`
}

// MigrationStatus состояние миграции для вывода в CLI
type MigrationStatus struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Applied     bool       `json:"applied"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
}

// NewMigrator создает мигратор
func NewMigrator(db *sqlx.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: make(map[int]*Migration),
	}
}

// Init создает таблицу учета миграций
func (m *Migrator) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		checksum VARCHAR(64) NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// LoadMigrations читает *.sql из корня source
func (m *Migrator) LoadMigrations(source fs.FS) error {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(source, entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		migration, err := parseMigration(entry.Name(), string(content))
		if err != nil {
			return err
		}
		if prev, exists := m.migrations[migration.ID]; exists {
			return fmt.Errorf("duplicate migration ID %d: %s and %s", migration.ID, prev.Name, migration.Name)
		}
		m.migrations[migration.ID] = migration
		logger.Debug("📄 Loaded migration: %s (%s)", entry.Name(), migration.Description)
	}

	logger.Info("✅ Loaded %d migrations", len(m.migrations))
	return nil
}

// Migrations загруженные миграции по возрастанию ID
func (m *Migrator) Migrations() []*Migration {
	ids := make([]int, 0, len(m.migrations))
	for id := range m.migrations {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]*Migration, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.migrations[id])
	}
	return out
}

// Migrate применяет все еще не примененные миграции по порядку.
// Контрольная сумма уже примененной миграции сверяется с файлом.
func (m *Migrator) Migrate(ctx context.Context) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	count := 0
	for _, migration := range m.Migrations() {
		if record, ok := applied[migration.ID]; ok {
			if record.Checksum != migration.Checksum {
				logger.Warn("⚠️ Checksum mismatch for migration %d: %s", migration.ID, migration.Name)
			}
			continue
		}
		if err := m.apply(ctx, migration); err != nil {
			return err
		}
		count++
	}

	if count > 0 {
		logger.Info("✅ Applied %d new migrations", count)
	} else {
		logger.Info("✅ Database is up to date")
	}
	return nil
}

// Rollback откатывает последнюю примененную миграцию по секции DOWN
func (m *Migrator) Rollback(ctx context.Context) error {
	var record MigrationRecord
	err := m.db.GetContext(ctx, &record,
		`SELECT id, name, checksum, applied_at FROM schema_migrations ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Info("ℹ️ No migrations to rollback")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find last migration: %w", err)
	}

	migration, ok := m.migrations[record.ID]
	if !ok {
		return fmt.Errorf("migration %d is applied but not loaded", record.ID)
	}
	down := extractRollbackSQL(migration.SQL)
	if down == "" {
		return fmt.Errorf("migration %d has no DOWN section", record.ID)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, down); err != nil {
		return fmt.Errorf("failed to rollback migration %d: %w", record.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE id = $1`, record.ID); err != nil {
		return fmt.Errorf("failed to delete migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback: %w", err)
	}

	logger.Info("↩️ Rolled back migration: %s", migration.Name)
	return nil
}

// Status состояние всех загруженных миграций
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var out []MigrationStatus
	for _, migration := range m.Migrations() {
		st := MigrationStatus{
			ID:          migration.ID,
			Name:        migration.Name,
			Description: migration.Description,
		}
		if record, ok := applied[migration.ID]; ok {
			at := record.AppliedAt
			st.Applied = true
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]MigrationRecord, error) {
	var records []MigrationRecord
	err := m.db.SelectContext(ctx, &records,
		`SELECT id, name, checksum, applied_at FROM schema_migrations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	out := make(map[int]MigrationRecord, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out, nil
}

func (m *Migrator) apply(ctx context.Context, migration *Migration) error {
	logger.Info("📤 Applying migration: %s", migration.Name)

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("failed to apply migration %d (%s): %w", migration.ID, migration.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (id, name, checksum) VALUES ($1, $2, $3)`,
		migration.ID, migration.Name, migration.Checksum); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.ID, err)
	}
	return tx.Commit()
}

// ============================================
// РАЗБОР ФАЙЛОВ
// ============================================

func parseMigration(filename, content string) (*Migration, error) {
	id, name, err := parseMigrationFilename(filename)
	if err != nil {
		return nil, err
	}
	return &Migration{
		ID:          id,
		Name:        name,
		Description: extractDescription(content),
		SQL:         content,
		Checksum:    calculateChecksum(content),
	}, nil
}

// parseMigrationFilename 001_create_table.sql -> 1, "create table"
func parseMigrationFilename(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, ".sql")

	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("invalid migration filename format: %s (expected: 001_name.sql)", filename)
	}

	var id int
	if _, err := fmt.Sscanf(parts[0], "%d", &id); err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid migration ID in filename: %s", filename)
	}

	return id, strings.ReplaceAll(parts[1], "_", " "), nil
}

func extractDescription(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-- Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "-- Description:"))
		}
	}
	return "No description"
}

func calculateChecksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// extractRollbackSQL закомментированные операторы после маркера DOWN
func extractRollbackSQL(sql string) string {
	idx := strings.Index(sql, downMarker)
	if idx < 0 {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(sql[idx+len(downMarker):], "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") {
			continue
		}
		stmt := strings.TrimSpace(strings.TrimPrefix(trimmed, "--"))
		if stmt != "" {
			lines = append(lines, stmt)
		}
	}
	return strings.Join(lines, "\n")
}
