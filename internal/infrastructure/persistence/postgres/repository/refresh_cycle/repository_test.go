package refresh_cycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"respond-dashboard/internal/types/dashboard"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestRecord(t *testing.T) {
	repo, mock := newMockRepo(t)

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	report := dashboard.CycleReport{
		ID:         uuid.New(),
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Tasks: []dashboard.TaskOutcome{
			{Task: dashboard.TaskForecast},
			{Task: dashboard.TaskAnomalies, Kind: dashboard.KindTimeout},
			{Task: dashboard.TaskKPI},
		},
	}

	mock.ExpectExec("INSERT INTO refresh_cycles").
		WithArgs(report.ID.String(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1500),
			int64(2), int64(1), "timeout", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordWrapsDriverError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO refresh_cycles").WillReturnError(errors.New("connection reset"))

	err := repo.Record(context.Background(), dashboard.CycleReport{ID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRecentAndFailureCounts(t *testing.T) {
	repo, mock := newMockRepo(t)

	columns := []string{"id", "started_at", "finished_at", "duration_ms", "succeeded", "failed", "failed_kinds", "tasks", "created_at"}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(columns).
			AddRow(uuid.New().String(), now, now.Add(time.Second), 1000, 2, 1, "timeout",
				[]byte(`[{"task":"forecast","kind":"timeout","duration":0},{"task":"kpi","kind":"","duration":0}]`), now).
			AddRow(uuid.New().String(), now.Add(-time.Minute), now, 900, 1, 2, "http_status,timeout",
				[]byte(`[{"task":"forecast","kind":"timeout","duration":0},{"task":"kpi","kind":"http_status","duration":0}]`), now)
	}

	mock.ExpectQuery("SELECT (.+) FROM refresh_cycles").WithArgs(5).WillReturnRows(rows())
	cycles, err := repo.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, int64(1000), cycles[0].DurationMs)
	assert.Equal(t, "timeout", cycles[0].FailedKinds)

	mock.ExpectQuery("SELECT (.+) FROM refresh_cycles").WithArgs(DefaultRecentLimit).WillReturnRows(rows())
	counts, err := repo.FailureCounts(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"timeout": 2, "http_status": 1}, counts)

	assert.NoError(t, mock.ExpectationsWereMet())
}
