// internal/infrastructure/api/respond/types.go
package respond

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"respond-dashboard/internal/types/dashboard"
)

// ============================================
// ОТВЕТЫ СЕРВИСА
// ============================================

type actualPoint struct {
	Datetime string   `json:"datetime"`
	Leads    *float64 `json:"leads"`
}

type forecastPoint struct {
	Datetime      string   `json:"datetime"`
	LeadsForecast *float64 `json:"leads_forecast"`
}

// forecastResponse ответ /forecast
type forecastResponse struct {
	ActualHourly    *[]actualPoint              `json:"actual_hourly"`
	ForecastHourly  *[]forecastPoint            `json:"forecast_hourly"`
	ForecastMonthly []dashboard.MonthlyForecast `json:"forecast_monthly"`
	Meta            dashboard.ForecastMeta      `json:"meta"`
}

func (r forecastResponse) toPayload() (dashboard.ForecastPayload, error) {
	if r.ActualHourly == nil || r.ForecastHourly == nil {
		return dashboard.ForecastPayload{}, fmt.Errorf("%w: actual_hourly and forecast_hourly are required", dashboard.ErrMalformedPayload)
	}

	payload := dashboard.ForecastPayload{
		Actual:   make([]dashboard.TimePoint, 0, len(*r.ActualHourly)),
		Forecast: make([]dashboard.TimePoint, 0, len(*r.ForecastHourly)),
		Monthly:  r.ForecastMonthly,
		Meta:     r.Meta,
	}

	for i, p := range *r.ActualHourly {
		if p.Leads == nil {
			return dashboard.ForecastPayload{}, fmt.Errorf("%w: actual_hourly[%d].leads is null", dashboard.ErrMalformedPayload, i)
		}
		payload.Actual = append(payload.Actual, dashboard.TimePoint{Timestamp: p.Datetime, Value: *p.Leads})
	}
	for i, p := range *r.ForecastHourly {
		if p.LeadsForecast == nil {
			return dashboard.ForecastPayload{}, fmt.Errorf("%w: forecast_hourly[%d].leads_forecast is null", dashboard.ErrMalformedPayload, i)
		}
		payload.Forecast = append(payload.Forecast, dashboard.TimePoint{Timestamp: p.Datetime, Value: *p.LeadsForecast})
	}

	return payload, nil
}

// kpiResponse ответ /kpi. null в среднем (пустое окно) превращается в NaN.
type kpiResponse struct {
	KPI *struct {
		Leads24h *float64 `json:"leads_24h"`
		CPL24h   *float64 `json:"cpl_24h"`
		ROI24h   *float64 `json:"roi_24h"`
	} `json:"kpi"`
}

func (r kpiResponse) toPayload() (dashboard.KPIPayload, error) {
	if r.KPI == nil {
		return dashboard.KPIPayload{}, fmt.Errorf("%w: missing \"kpi\"", dashboard.ErrMalformedPayload)
	}
	return dashboard.KPIPayload{
		Leads24h: orNaN(r.KPI.Leads24h),
		CPL24h:   orNaN(r.KPI.CPL24h),
		ROI24h:   orNaN(r.KPI.ROI24h),
	}, nil
}

// anomaliesResponse ответ /anomalies. Колонка значения называется по метрике.
type anomaliesResponse struct {
	Metric        string                       `json:"metric"`
	K             float64                      `json:"k"`
	WindowHours   int                          `json:"window_hours"`
	LookbackHours int                          `json:"lookback_hours"`
	Anomalies     *[]map[string]json.RawMessage `json:"anomalies"`
}

func (r anomaliesResponse) toReport(requested string) (dashboard.AnomalyReport, error) {
	if r.Anomalies == nil {
		return dashboard.AnomalyReport{}, fmt.Errorf("%w: missing \"anomalies\"", dashboard.ErrMalformedPayload)
	}

	metric := r.Metric
	if metric == "" {
		metric = requested
	}

	report := dashboard.AnomalyReport{
		Metric:        metric,
		K:             r.K,
		WindowHours:   r.WindowHours,
		LookbackHours: r.LookbackHours,
		Anomalies:     make([]dashboard.AnomalyRecord, 0, len(*r.Anomalies)),
	}

	for i, row := range *r.Anomalies {
		var ts string
		if raw, ok := row["datetime"]; ok {
			if err := json.Unmarshal(raw, &ts); err != nil {
				return dashboard.AnomalyReport{}, fmt.Errorf("%w: anomalies[%d].datetime: %v", dashboard.ErrMalformedPayload, i, err)
			}
		}

		value, err := lenientNumber(row[metric])
		if err != nil {
			return dashboard.AnomalyReport{}, fmt.Errorf("%w: anomalies[%d].%s: %v", dashboard.ErrMalformedPayload, i, metric, err)
		}
		z, err := lenientNumber(row["z_score"])
		if err != nil {
			return dashboard.AnomalyReport{}, fmt.Errorf("%w: anomalies[%d].z_score: %v", dashboard.ErrMalformedPayload, i, err)
		}

		report.Anomalies = append(report.Anomalies, dashboard.AnomalyRecord{
			Timestamp:   ts,
			MetricValue: value,
			ZScore:      z,
		})
	}

	return report, nil
}

// metricsResponse ответ /metrics
type metricsResponse struct {
	Data *[]dashboard.MonthlyMetrics `json:"data"`
}

// healthResponse ответ /health
type healthResponse struct {
	Status string `json:"status"`
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ ФУНКЦИИ
// ============================================

// lenientNumber число, null/отсутствие -> nil, строки "NaN"/"Infinity" -> соответствующее значение
func lenientNumber(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("not a number: %s", raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &f, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
