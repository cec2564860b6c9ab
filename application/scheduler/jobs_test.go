package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"respond-dashboard/internal/types/dashboard"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	report dashboard.CycleReport
	ran    bool
}

func (s stubRefresher) RefreshCycle(ctx context.Context) (dashboard.CycleReport, bool) {
	return s.report, s.ran
}

func TestRefreshHandler(t *testing.T) {
	ok := dashboard.CycleReport{ID: uuid.New(), Tasks: []dashboard.TaskOutcome{{Task: dashboard.TaskKPI}}}
	assert.NoError(t, refreshHandler(stubRefresher{report: ok, ran: true})(context.Background()))

	assert.NoError(t, refreshHandler(stubRefresher{ran: false})(context.Background()), "skipped cycle is not an error")

	failed := dashboard.CycleReport{ID: uuid.New(), Tasks: []dashboard.TaskOutcome{
		{Task: dashboard.TaskForecast, Kind: dashboard.KindTimeout},
		{Task: dashboard.TaskKPI},
	}}
	err := refreshHandler(stubRefresher{report: failed, ran: true})(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forecast=timeout")
	assert.NotContains(t, err.Error(), "kpi")
}

func TestRegisterAll(t *testing.T) {
	s := New(clock.NewMock())
	RegisterAll(s, Deps{
		Refresher:       stubRefresher{ran: true},
		RefreshInterval: 30 * time.Second,
		Health:          func(context.Context) error { return errors.New("down") },
	})

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobRefresh, jobs[0].Name)
	assert.Equal(t, "30s", jobs[0].Interval)
	assert.Equal(t, JobHealthProbe, jobs[1].Name)
	assert.Equal(t, HealthProbeInterval.String(), jobs[1].Interval)
}

func TestRegisterAllSkipsMissingDeps(t *testing.T) {
	s := New(clock.NewMock())
	RegisterAll(s, Deps{})
	assert.Empty(t, s.Jobs())
}
