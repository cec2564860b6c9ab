// internal/infrastructure/persistence/postgres/repository/refresh_cycle/repository.go
package refresh_cycle

import (
	"context"
	"fmt"

	"respond-dashboard/internal/infrastructure/persistence/postgres/models"
	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// DefaultRecentLimit сколько циклов показывать по умолчанию
const DefaultRecentLimit = 20

// Repository журнал циклов обновления в PostgreSQL
type Repository struct {
	db *sqlx.DB
}

// NewRepository создает репозиторий
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Record сохраняет итог цикла
func (r *Repository) Record(ctx context.Context, report dashboard.CycleReport) error {
	row, err := models.FromReport(report)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO refresh_cycles (
		id, started_at, finished_at, duration_ms,
		succeeded, failed, failed_kinds, tasks
	) VALUES (
		:id, :started_at, :finished_at, :duration_ms,
		:succeeded, :failed, :failed_kinds, :tasks
	)
	ON CONFLICT (id) DO NOTHING`

	// jsonb передаем строкой: []byte lib/pq кодирует как bytea
	args := map[string]interface{}{
		"id":           row.ID,
		"started_at":   row.StartedAt,
		"finished_at":  row.FinishedAt,
		"duration_ms":  row.DurationMs,
		"succeeded":    row.Succeeded,
		"failed":       row.Failed,
		"failed_kinds": row.FailedKinds,
		"tasks":        string(row.Tasks),
	}

	if _, err := r.db.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("failed to record cycle %s: %w", report.ID, err)
	}

	logger.Debug("💾 Cycle %s recorded (%d failed)", report.ID, row.Failed)
	return nil
}

// Recent последние limit циклов, новые первыми
func (r *Repository) Recent(ctx context.Context, limit int) ([]*models.RefreshCycle, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	var rows []*models.RefreshCycle
	query := `
	SELECT id, started_at, finished_at, duration_ms,
	       succeeded, failed, failed_kinds, tasks, created_at
	FROM refresh_cycles
	ORDER BY started_at DESC
	LIMIT $1`

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	return rows, nil
}

// FailureCounts число циклов с ошибками по категории за последние limit циклов
func (r *Repository) FailureCounts(ctx context.Context, limit int) (map[string]int, error) {
	rows, err := r.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, row := range rows {
		report, err := row.Report()
		if err != nil {
			return nil, err
		}
		for _, t := range report.Tasks {
			if !t.OK() {
				counts[string(t.Kind)]++
			}
		}
	}
	return counts, nil
}
