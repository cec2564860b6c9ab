package respond

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"respond-dashboard/internal/types/dashboard"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, clk clock.Clock) (*Client, *atomic.Int32) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	fired := atomic.NewInt32(0)
	c := New(srv.URL, DefaultTimeout, "", WithClock(clk))
	c.onTimeout = func() { fired.Inc() }
	return c, fired
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func TestFetchJSONTimeoutCancelsRequest(t *testing.T) {
	mock := clock.NewMock()
	arrived := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	fired := atomic.NewInt32(0)
	c := New(srv.URL, DefaultTimeout, "", WithClock(mock))
	c.onTimeout = func() { fired.Inc() }

	errCh := make(chan error, 1)
	go func() {
		var dest map[string]any
		errCh <- c.FetchJSON(context.Background(), PathKPI, nil, 0, &dest)
	}()

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the server")
	}

	mock.Add(DefaultTimeout)

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, errors.Is(err, dashboard.ErrTimeout), "got %v", err)
		assert.Equal(t, dashboard.KindTimeout, dashboard.Kind(err))
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not return after the timeout fired")
	}

	// таймер сработал ровно один раз и больше не срабатывает
	mock.Add(10 * DefaultTimeout)
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestFetchJSONStopsTimerOnEveryExit(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name:    "success",
			handler: jsonHandler(`{"status":"ok"}`),
			check:   func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusServiceUnavailable)
			},
			check: func(t *testing.T, err error) {
				var statusErr *dashboard.HTTPStatusError
				require.True(t, errors.As(err, &statusErr), "got %v", err)
				assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
				assert.Contains(t, statusErr.URL, PathHealth)
			},
		},
		{
			name:    "malformed",
			handler: jsonHandler(`{"status":`),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, dashboard.ErrMalformedPayload), "got %v", err)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := clock.NewMock()
			c, fired := newTestClient(t, tc.handler, mock)

			var dest healthResponse
			err := c.FetchJSON(context.Background(), PathHealth, nil, time.Second, &dest)
			tc.check(t, err)

			mock.Add(time.Hour)
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, int32(0), fired.Load(), "timer must be stopped")
		})
	}
}

func TestFetchJSONTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := New(addr, time.Second, "")
	err := c.FetchJSON(context.Background(), PathHealth, nil, 0, &healthResponse{})
	assert.Equal(t, dashboard.KindTransport, dashboard.Kind(err))
}

func TestGetForecast(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, PathForecast, r.URL.Path)
		fmt.Fprint(w, `{
			"actual_hourly": [{"datetime": "2025-01-01T00:00:00", "leads": 5}],
			"forecast_hourly": [{"datetime": "2025-01-01T01:00:00", "leads_forecast": 7.5}],
			"forecast_monthly": [{"month": "2025-01", "leads_forecast": 812.4}],
			"meta": {"model": "lgbm", "horizon_hours": 168, "history_hours": 336}
		}`)
	}, clock.New())

	payload, err := c.GetForecast(context.Background(), 168, 336)
	require.NoError(t, err)

	assert.Equal(t, "history_hours=336&horizon_hours=168", gotQuery)
	assert.Equal(t, []dashboard.TimePoint{{Timestamp: "2025-01-01T00:00:00", Value: 5}}, payload.Actual)
	assert.Equal(t, []dashboard.TimePoint{{Timestamp: "2025-01-01T01:00:00", Value: 7.5}}, payload.Forecast)
	assert.Equal(t, "lgbm", payload.Meta.Model)
	require.Len(t, payload.Monthly, 1)
	assert.InDelta(t, 812.4, payload.Monthly[0].Leads, 1e-9)
}

func TestGetForecastSchemaViolation(t *testing.T) {
	cases := map[string]string{
		"missing forecast": `{"actual_hourly": []}`,
		"null value":       `{"actual_hourly": [{"datetime": "x", "leads": null}], "forecast_hourly": []}`,
		"wrong type":       `{"actual_hourly": "nope", "forecast_hourly": []}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, jsonHandler(body), clock.New())
			_, err := c.GetForecast(context.Background(), 168, 336)
			assert.Equal(t, dashboard.KindMalformedPayload, dashboard.Kind(err), "got %v", err)
		})
	}
}

func TestGetKPI(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "24", r.URL.Query().Get("window_hours"))
		fmt.Fprint(w, `{"kpi": {"leads_24h": 120, "cpl_24h": 8.25, "roi_24h": null}}`)
	}, clock.New())

	kpi, err := c.GetKPI(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 120.0, kpi.Leads24h)
	assert.Equal(t, 8.25, kpi.CPL24h)
	assert.True(t, kpi.ROI24h != kpi.ROI24h, "null mean decodes as NaN")
}

func TestGetAnomaliesKeyedByMetric(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cpl", r.URL.Query().Get("metric"))
		assert.Equal(t, "2.5", r.URL.Query().Get("k"))
		fmt.Fprint(w, `{
			"metric": "cpl", "k": 2.5, "window_hours": 168, "lookback_hours": 336,
			"anomalies": [
				{"datetime": "2025-02-01T10:00:00", "cpl": 9.5, "z_score": -2.8},
				{"datetime": "2025-02-02T11:00:00", "cpl": null, "z_score": "NaN"}
			]
		}`)
	}, clock.New())

	report, err := c.GetAnomalies(context.Background(), "cpl", 2.5)
	require.NoError(t, err)

	assert.Equal(t, 168, report.WindowHours)
	require.Len(t, report.Anomalies, 2)

	first := report.Anomalies[0]
	assert.Equal(t, "2025-02-01T10:00:00", first.Timestamp)
	require.NotNil(t, first.MetricValue)
	assert.Equal(t, 9.5, *first.MetricValue)
	require.NotNil(t, first.ZScore)
	assert.Equal(t, -2.8, *first.ZScore)

	second := report.Anomalies[1]
	assert.Nil(t, second.MetricValue)
	require.NotNil(t, second.ZScore)
	assert.True(t, *second.ZScore != *second.ZScore)
}

func TestGetMetricsAndHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathMetrics, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("n"))
		fmt.Fprint(w, `{"data": [{"month": "2024-12", "leads": 900, "cpl": 7.1, "roi": 1.4}, {"month": "2025-01", "leads": 950, "cpl": null, "roi": 1.5}]}`)
	})
	mux.HandleFunc(PathHealth, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ok"}`)
	})
	c, _ := newTestClient(t, mux.ServeHTTP, clock.New())

	rows, err := c.GetMetrics(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-01", rows[1].Month)
	assert.Nil(t, rows[1].CPL)

	assert.NoError(t, c.Health(context.Background()))
}
