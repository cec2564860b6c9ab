// internal/types/dashboard/types.go
package dashboard

import (
	"time"

	"github.com/google/uuid"
)

// TimePoint одна точка ряда (факт или прогноз)
type TimePoint struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// ForecastMeta служебная информация модели прогноза
type ForecastMeta struct {
	Model        string `json:"model"`
	HorizonHours int    `json:"horizon_hours"`
	HistoryHours int    `json:"history_hours"`
}

// MonthlyForecast месячная сумма прогноза
type MonthlyForecast struct {
	Month string  `json:"month"`
	Leads float64 `json:"leads_forecast"`
}

// ForecastPayload факт и прогноз. Actual предшествует Forecast по времени.
type ForecastPayload struct {
	Actual   []TimePoint       `json:"actual"`
	Forecast []TimePoint       `json:"forecast"`
	Monthly  []MonthlyForecast `json:"monthly,omitempty"`
	Meta     ForecastMeta      `json:"meta"`
}

// DisplayTimeline общая ось и два ряда для графика. nil означает пропуск.
type DisplayTimeline struct {
	Labels         []string   `json:"labels"`
	ActualSeries   []*float64 `json:"actual_series"`
	ForecastSeries []*float64 `json:"forecast_series"`
}

// Len количество слотов на оси
func (t DisplayTimeline) Len() int {
	return len(t.Labels)
}

// KPIPayload показатели за окно KPI в том виде, в каком их отдает сервис
type KPIPayload struct {
	Leads24h float64 `json:"leads_24h"`
	CPL24h   float64 `json:"cpl_24h"`
	ROI24h   float64 `json:"roi_24h"`
}

// KPISnapshot сводные цифры карточки KPI
type KPISnapshot struct {
	Leads24h         float64 `json:"leads_24h"`
	CPL24h           float64 `json:"cpl_24h"`
	ROI24h           float64 `json:"roi_24h"`
	Forecast24hLeads float64 `json:"forecast_24h_leads"`
}

// MonthlyMetrics строка помесячных KPI
type MonthlyMetrics struct {
	Month string   `json:"month,omitempty"`
	Leads *float64 `json:"leads"`
	CPL   *float64 `json:"cpl"`
	ROI   *float64 `json:"roi"`
}

// AnomalyRecord одна аномалия; список приходит отсортированным по силе
type AnomalyRecord struct {
	Timestamp   string   `json:"timestamp"`
	MetricValue *float64 `json:"metric_value"`
	ZScore      *float64 `json:"z_score"`
}

// AnomalyReport ответ сервиса аномалий вместе с параметрами запроса
type AnomalyReport struct {
	Metric        string          `json:"metric"`
	K             float64         `json:"k"`
	WindowHours   int             `json:"window_hours"`
	LookbackHours int             `json:"lookback_hours"`
	Anomalies     []AnomalyRecord `json:"anomalies"`
}

// ============================================
// ЦИКЛ ОБНОВЛЕНИЯ
// ============================================

// TaskName имя загрузчика внутри цикла
type TaskName string

const (
	TaskForecast  TaskName = "forecast"
	TaskAnomalies TaskName = "anomalies"
	TaskKPI       TaskName = "kpi"
)

// TaskOutcome итог одной задачи цикла
type TaskOutcome struct {
	Task     TaskName      `json:"task"`
	Kind     ErrorKind     `json:"kind"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK задача завершилась без ошибки
func (o TaskOutcome) OK() bool {
	return o.Kind == KindNone
}

// CycleReport итог одного цикла обновления
type CycleReport struct {
	ID         uuid.UUID     `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Tasks      []TaskOutcome `json:"tasks"`
}

// Failed количество задач с ошибкой
func (r CycleReport) Failed() int {
	n := 0
	for _, t := range r.Tasks {
		if !t.OK() {
			n++
		}
	}
	return n
}

// Outcome итог задачи по имени
func (r CycleReport) Outcome(task TaskName) (TaskOutcome, bool) {
	for _, t := range r.Tasks {
		if t.Task == task {
			return t, true
		}
	}
	return TaskOutcome{}, false
}
