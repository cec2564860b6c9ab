// application/services/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"respond-dashboard/internal/core/domain/anomaly"
	"respond-dashboard/internal/delivery/surface"
	"respond-dashboard/internal/infrastructure/config"
	"respond-dashboard/internal/infrastructure/metrics"
	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// RefreshInterval период обновления дашборда
const RefreshInterval = 30000 * time.Millisecond

// ============================================
// ЗАВИСИМОСТИ
// ============================================

// DataSource удаленный сервис прогнозов
type DataSource interface {
	GetForecast(ctx context.Context, horizonHours, historyHours int) (dashboard.ForecastPayload, error)
	GetKPI(ctx context.Context, windowHours int) (dashboard.KPIPayload, error)
	GetAnomalies(ctx context.Context, metric string, k float64) (dashboard.AnomalyReport, error)
}

// ChartPresenter владелец графика прогноза
type ChartPresenter interface {
	Present(ctx context.Context, tl dashboard.DisplayTimeline) error
}

// Journal журнал завершенных циклов
type Journal interface {
	Record(ctx context.Context, report dashboard.CycleReport) error
}

// Params параметры запросов страницы
type Params struct {
	HorizonHours   int
	HistoryHours   int
	AnomalyMetric  string
	AnomalyK       float64
	KPIWindowHours int
}

// DefaultParams значения по умолчанию страницы дашборда
func DefaultParams() Params {
	return Params{
		HorizonHours:   168,
		HistoryHours:   24 * 14,
		AnomalyMetric:  "cpl",
		AnomalyK:       2.5,
		KPIWindowHours: 24,
	}
}

// ParamsFromConfig параметры из конфигурации
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		HorizonHours:   cfg.Dashboard.ForecastHorizonHours,
		HistoryHours:   cfg.Dashboard.ForecastHistoryHours,
		AnomalyMetric:  cfg.Dashboard.AnomalyMetric,
		AnomalyK:       cfg.Dashboard.AnomalyK,
		KPIWindowHours: cfg.Dashboard.KPIWindowHours,
	}
}

// ============================================
// ORCHESTRATOR
// ============================================

// Orchestrator выполняет циклы обновления: не более одного одновременно
type Orchestrator struct {
	source    DataSource
	surface   surface.Surface
	presenter ChartPresenter
	journal   Journal
	metrics   *metrics.Metrics
	clock     clock.Clock
	params    Params

	// idle=false / running=true
	running   *atomic.Bool
	completed *atomic.Int64
	skipped   *atomic.Int64

	// подпись KPI собирается из двух независимых загрузчиков
	noteMu      sync.Mutex
	forecast24h *float64
	leads24h    *float64

	statsMu sync.RWMutex
	stats   Stats

	onTaskStart func(dashboard.TaskName)
}

// Stats состояние для HTTP статуса
type Stats struct {
	Running         bool                        `json:"running"`
	Completed       int64                       `json:"completed_cycles"`
	Skipped         int64                       `json:"skipped_cycles"`
	LastReport      *dashboard.CycleReport      `json:"last_report,omitempty"`
	ForecastModel   string                      `json:"forecast_model,omitempty"`
	MonthlyForecast []dashboard.MonthlyForecast `json:"monthly_forecast,omitempty"`
	KPI             dashboard.KPISnapshot       `json:"kpi"`
	Anomaly         *anomaly.Interpretation     `json:"anomaly,omitempty"`
}

// Option настройка оркестратора
type Option func(*Orchestrator)

func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithClock(clk clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = clk }
}

// New создает оркестратор
func New(source DataSource, target surface.Surface, presenter ChartPresenter, params Params, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:    source,
		surface:   target,
		presenter: presenter,
		params:    params,
		clock:     clock.New(),
		running:   atomic.NewBool(false),
		completed: atomic.NewInt64(0),
		skipped:   atomic.NewInt64(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Running выполняется ли цикл
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// RefreshCycle запускает загрузчики прогноза, аномалий и KPI и ждет их завершения.
// Если цикл уже идет, вызов ничего не делает и возвращает false.
func (o *Orchestrator) RefreshCycle(ctx context.Context) (dashboard.CycleReport, bool) {
	if !o.running.CompareAndSwap(false, true) {
		o.skipped.Inc()
		o.metrics.CycleSkipped()
		logger.Debug("⏭️ [Orchestrator] Цикл уже выполняется, вызов пропущен")
		return dashboard.CycleReport{}, false
	}
	defer o.running.Store(false)

	report := dashboard.CycleReport{
		ID:        uuid.New(),
		StartedAt: o.clock.Now(),
	}

	tasks := []struct {
		name dashboard.TaskName
		run  func(context.Context) error
	}{
		{dashboard.TaskForecast, o.forecastTask},
		{dashboard.TaskAnomalies, o.anomaliesTask},
		{dashboard.TaskKPI, o.kpiTask},
	}

	// загрузчики стартуют строго по порядку, но ждут ответов независимо:
	// следующий запускается только после того, как предыдущий начал работу
	outcomes := make([]dashboard.TaskOutcome, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		started := make(chan struct{})
		wg.Add(1)
		go func(i int, name dashboard.TaskName, run func(context.Context) error) {
			defer wg.Done()
			outcomes[i] = o.runTask(ctx, name, run, started)
		}(i, task.name, task.run)
		<-started
	}
	wg.Wait()

	report.Tasks = outcomes
	report.FinishedAt = o.clock.Now()

	o.finish(ctx, report)
	return report, true
}

// runTask выполняет загрузчик; ошибки и паники превращаются в исход задачи
func (o *Orchestrator) runTask(ctx context.Context, name dashboard.TaskName, run func(context.Context) error, started chan<- struct{}) (outcome dashboard.TaskOutcome) {
	start := o.clock.Now()
	outcome.Task = name

	if o.onTaskStart != nil {
		o.onTaskStart(name)
	}
	close(started)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s loader: %v", name, r)
			outcome.Kind = dashboard.KindUnknown
			outcome.Error = err.Error()
		}
		outcome.Duration = o.clock.Since(start)
	}()

	if err := run(ctx); err != nil {
		outcome.Kind = dashboard.Kind(err)
		outcome.Error = err.Error()
	}
	return outcome
}

// finish логирует итоги, пишет метрики и журнал
func (o *Orchestrator) finish(ctx context.Context, report dashboard.CycleReport) {
	short := report.ID.String()[:8]

	for _, t := range report.Tasks {
		switch t.Kind {
		case dashboard.KindNone:
		case dashboard.KindMissingDisplayTarget:
			logger.Warn("⚠️ [Orchestrator] %s: %s пропущен: %s", short, t.Task, t.Error)
		default:
			logger.Error("❌ [Orchestrator] %s: %s (%s): %s", short, t.Task, t.Kind, t.Error)
		}
	}

	failed := report.Failed()
	logger.Cycle(short, len(report.Tasks)-failed, failed, report.FinishedAt.Sub(report.StartedAt))

	o.completed.Inc()
	o.metrics.CycleCompleted(report)

	if o.journal != nil {
		if err := o.journal.Record(ctx, report); err != nil {
			logger.Warn("⚠️ [Orchestrator] Не удалось записать цикл %s в журнал: %v", short, err)
		}
	}

	o.statsMu.Lock()
	o.stats.LastReport = &report
	o.statsMu.Unlock()
}

// Stats копия состояния
func (o *Orchestrator) Stats() Stats {
	o.statsMu.RLock()
	defer o.statsMu.RUnlock()

	s := o.stats
	s.Running = o.running.Load()
	s.Completed = o.completed.Load()
	s.Skipped = o.skipped.Load()
	s.MonthlyForecast = append([]dashboard.MonthlyForecast(nil), o.stats.MonthlyForecast...)
	return s
}
