package bootstrap

import (
	"context"
	"fmt"
	"testing"
	"time"

	"respond-dashboard/internal/delivery/surface"
	rediscache "respond-dashboard/internal/infrastructure/cache/redis"
	"respond-dashboard/internal/infrastructure/config"
	"respond-dashboard/internal/types/dashboard"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{}

func (stubSource) GetForecast(ctx context.Context, horizonHours, historyHours int) (dashboard.ForecastPayload, error) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var p dashboard.ForecastPayload
	for i := 0; i < 6; i++ {
		p.Actual = append(p.Actual, dashboard.TimePoint{Timestamp: start.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04:05"), Value: float64(i)})
	}
	for i := 6; i < 12; i++ {
		p.Forecast = append(p.Forecast, dashboard.TimePoint{Timestamp: start.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04:05"), Value: 10})
	}
	p.Meta.Model = "stub"
	return p, nil
}

func (stubSource) GetKPI(ctx context.Context, windowHours int) (dashboard.KPIPayload, error) {
	return dashboard.KPIPayload{Leads24h: 42, CPL24h: 7.5, ROI24h: 1.25}, nil
}

func (stubSource) GetAnomalies(ctx context.Context, metric string, k float64) (dashboard.AnomalyReport, error) {
	return dashboard.AnomalyReport{}, fmt.Errorf("anomalies: %w", dashboard.ErrTimeout)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HTTP_ENABLED", "false")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("SURFACE_BACKEND", "memory")
	t.Setenv("CHART_OUTPUT", "")
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestRunOnceFillsWidgets(t *testing.T) {
	app, err := NewAppBuilder().
		WithConfig(testConfig(t)).
		WithOption(WithDataSource(stubSource{})).
		WithOption(WithoutHTTP()).
		Build()
	require.NoError(t, err)

	report, err := app.RunOnce(context.Background())
	require.NoError(t, err)

	out, ok := report.Outcome(dashboard.TaskAnomalies)
	require.True(t, ok)
	assert.Equal(t, dashboard.KindTimeout, out.Kind)
	assert.Equal(t, 1, report.Failed())

	widgets := app.Widgets()
	leads, _ := widgets.Text(surface.WidgetKPILeads)
	assert.Equal(t, "42", leads)

	note, _ := widgets.Text(surface.WidgetKPINote)
	assert.Equal(t, "Прогноз на 24ч: 60 лидов · Факт за 24ч: 42", note)

	png, ok := widgets.Image(surface.WidgetChart)
	require.True(t, ok)
	assert.NotEmpty(t, png)

	assert.Nil(t, app.Journal())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	mock := clock.NewMock()
	app, err := NewAppBuilder().
		WithConfig(testConfig(t)).
		WithOption(WithDataSource(stubSource{})).
		WithOption(WithClock(mock)).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, app.Initialize(ctx))
	orch := app.Orchestrator()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return orch.Stats().Completed >= 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, false, app.Status()["running"])
}

func TestWithSurfaceBackendValidates(t *testing.T) {
	_, err := NewAppBuilder().
		WithConfig(testConfig(t)).
		WithOption(WithSurfaceBackend("slack")).
		Build()
	assert.Error(t, err)
}

func TestStatusReportsRedisHealth(t *testing.T) {
	app, err := NewAppBuilder().
		WithConfig(testConfig(t)).
		WithOption(WithDataSource(stubSource{})).
		Build()
	require.NoError(t, err)

	// сервис не запущен: проверка здоровья обязана вернуть false без сети
	app.redis = rediscache.NewRedisService(app.config)

	redisStatus, ok := app.Status()["redis"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, redisStatus["healthy"])
}
