// internal/infrastructure/persistence/postgres/models/refresh_cycle.go
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"respond-dashboard/internal/types/dashboard"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// RefreshCycle строка таблицы refresh_cycles
type RefreshCycle struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	StartedAt   time.Time      `db:"started_at" json:"started_at"`
	FinishedAt  time.Time      `db:"finished_at" json:"finished_at"`
	DurationMs  int64          `db:"duration_ms" json:"duration_ms"`
	Succeeded   int            `db:"succeeded" json:"succeeded"`
	Failed      int            `db:"failed" json:"failed"`
	FailedKinds string         `db:"failed_kinds" json:"failed_kinds"`
	Tasks       types.JSONText `db:"tasks" json:"tasks"`
	CreatedAt   *time.Time     `db:"created_at" json:"created_at,omitempty"`
}

// FromReport переводит итог цикла в строку журнала
func FromReport(r dashboard.CycleReport) (*RefreshCycle, error) {
	tasks, err := json.Marshal(r.Tasks)
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}

	kinds := make(map[string]struct{})
	for _, t := range r.Tasks {
		if !t.OK() {
			kinds[string(t.Kind)] = struct{}{}
		}
	}
	list := make([]string, 0, len(kinds))
	for k := range kinds {
		list = append(list, k)
	}
	sort.Strings(list)

	failed := r.Failed()
	return &RefreshCycle{
		ID:          r.ID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		DurationMs:  r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
		Succeeded:   len(r.Tasks) - failed,
		Failed:      failed,
		FailedKinds: strings.Join(list, ","),
		Tasks:       types.JSONText(tasks),
	}, nil
}

// Report обратное преобразование для CLI
func (c *RefreshCycle) Report() (dashboard.CycleReport, error) {
	var tasks []dashboard.TaskOutcome
	if len(c.Tasks) > 0 {
		if err := c.Tasks.Unmarshal(&tasks); err != nil {
			return dashboard.CycleReport{}, fmt.Errorf("unmarshal tasks of %s: %w", c.ID, err)
		}
	}
	return dashboard.CycleReport{
		ID:         c.ID,
		StartedAt:  c.StartedAt,
		FinishedAt: c.FinishedAt,
		Tasks:      tasks,
	}, nil
}
