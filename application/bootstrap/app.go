// application/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"respond-dashboard/application/scheduler"
	"respond-dashboard/application/services/orchestrator"
	"respond-dashboard/internal/delivery/chart"
	"respond-dashboard/internal/delivery/surface"
	"respond-dashboard/internal/delivery/web"
	"respond-dashboard/internal/infrastructure/api/respond"
	rediscache "respond-dashboard/internal/infrastructure/cache/redis"
	"respond-dashboard/internal/infrastructure/config"
	"respond-dashboard/internal/infrastructure/metrics"
	"respond-dashboard/internal/infrastructure/persistence/postgres"
	"respond-dashboard/internal/infrastructure/persistence/postgres/repository/refresh_cycle"
	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/jmoiron/sqlx"
)

// ShutdownTimeout бюджет плавной остановки
const ShutdownTimeout = 30 * time.Second

// Application собранный дашборд: источник, поверхности, оркестратор, планировщик и HTTP
type Application struct {
	config *config.Config
	clock  clock.Clock

	source    orchestrator.DataSource
	client    *respond.Client
	widgets   *surface.MemorySurface
	surface   surface.Surface
	presenter *chart.Presenter
	metrics   *metrics.Metrics

	redis   *rediscache.RedisService
	db      *sqlx.DB
	journal *refresh_cycle.Repository

	orchestrator *orchestrator.Orchestrator
	scheduler    *scheduler.Scheduler
	server       *web.Server

	mu        sync.RWMutex
	running   bool
	startTime time.Time
	stopChan  chan os.Signal
}

// NewApplication создает приложение; внешние подключения открываются в Initialize
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return &Application{
		config:   cfg,
		clock:    clock.New(),
		metrics:  metrics.NewMetrics(),
		stopChan: make(chan os.Signal, 1),
	}, nil
}

// Initialize подключает хранилища и собирает оркестратор
func (app *Application) Initialize(ctx context.Context) error {
	cfg := app.config

	if app.source == nil {
		app.client = respond.NewClient(cfg, respond.WithClock(app.clock))
		app.source = app.client
	}

	app.widgets = surface.NewMemorySurface(surface.DefaultWidgets...)
	surfaces := surface.Multi{app.widgets}

	switch cfg.SurfaceBackend {
	case "redis":
		store, err := app.connectRedis(ctx)
		if err != nil {
			return fmt.Errorf("redis surface: %w", err)
		}
		surfaces = append(surfaces, store)
	case "console":
		surfaces = append(surfaces, surface.NewConsoleSurface(os.Stdout, !cfg.Logging.DebugMode, surface.DefaultWidgets...))
	}
	app.surface = surfaces

	app.presenter = chart.NewPresenter(surface.WidgetChart, cfg.Chart.Width, cfg.Chart.Height, app.surface, cfg.Chart.OutputPath)

	opts := []orchestrator.Option{
		orchestrator.WithMetrics(app.metrics),
		orchestrator.WithClock(app.clock),
	}

	if cfg.Database.Enabled {
		db, err := postgres.Connect(ctx, cfg)
		if err != nil {
			// журнал необязателен: дашборд работает и без него
			logger.Warn("⚠️ Журнал циклов отключен: %v", err)
		} else {
			app.db = db
			app.journal = refresh_cycle.NewRepository(db)
			opts = append(opts, orchestrator.WithJournal(app.journal))
		}
	}

	app.orchestrator = orchestrator.New(app.source, app.surface, app.presenter, orchestrator.ParamsFromConfig(cfg), opts...)

	app.scheduler = scheduler.New(app.clock)
	deps := scheduler.Deps{
		Refresher:       app.orchestrator,
		RefreshInterval: orchestrator.RefreshInterval,
	}
	if app.client != nil {
		deps.Health = app.client.Health
	}
	scheduler.RegisterAll(app.scheduler, deps)

	if cfg.Logging.HTTPEnabled {
		webDeps := web.Deps{
			Widgets:   app.widgets,
			Dashboard: app.orchestrator,
			Jobs:      app.scheduler,
			Metrics:   app.metrics,
			Version:   cfg.Version,
		}
		if app.client != nil {
			webDeps.Upstream = app.client.Health
		}
		if app.redis != nil {
			webDeps.Redis = app.redis.HealthCheck
		}
		app.server = web.NewServer(cfg.Logging.HTTPPort, webDeps)
	}

	logger.Info("✅ Приложение собрано: поверхность %s", app.surface.Name())
	return nil
}

func (app *Application) connectRedis(ctx context.Context) (*rediscache.WidgetStore, error) {
	app.redis = rediscache.NewRedisService(app.config)
	if err := app.redis.Start(); err != nil {
		return nil, err
	}

	store := app.redis.WidgetStore()
	if err := store.Register(ctx, surface.DefaultWidgets...); err != nil {
		return nil, err
	}
	return store, nil
}

// Run запускает планировщик и HTTP сервер и ждет сигнала завершения или отмены ctx
func (app *Application) Run(ctx context.Context) error {
	app.mu.Lock()
	if app.running {
		app.mu.Unlock()
		return errors.New("приложение уже запущено")
	}
	if app.orchestrator == nil {
		if err := app.Initialize(ctx); err != nil {
			app.mu.Unlock()
			return fmt.Errorf("инициализация приложения: %w", err)
		}
	}

	if app.server != nil {
		if err := app.server.Start(); err != nil {
			app.mu.Unlock()
			app.closeResources()
			return err
		}
	}

	app.running = true
	app.startTime = app.clock.Now()
	app.mu.Unlock()

	app.scheduler.Start()
	logger.Info("🚀 Дашборд запущен, обновление каждые %v", orchestrator.RefreshInterval)

	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(app.stopChan)

	select {
	case sig := <-app.stopChan:
		logger.Info("🛑 Получен сигнал %v", sig)
	case <-ctx.Done():
		logger.Info("🛑 Контекст отменен")
	}

	app.shutdownWithTimeout(ShutdownTimeout)
	return nil
}

// RunOnce один цикл обновления без планировщика и HTTP
func (app *Application) RunOnce(ctx context.Context) (dashboard.CycleReport, error) {
	if app.orchestrator == nil {
		if err := app.Initialize(ctx); err != nil {
			return dashboard.CycleReport{}, err
		}
	}
	defer app.closeResources()

	report, _ := app.orchestrator.RefreshCycle(ctx)
	return report, nil
}

// Stop просит Run завершиться
func (app *Application) Stop() {
	select {
	case app.stopChan <- syscall.SIGTERM:
	default:
	}
}

func (app *Application) shutdownWithTimeout(timeout time.Duration) {
	logger.Info("⏳ Graceful shutdown (таймаут: %v)...", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		app.shutdown(ctx)
		close(done)
	}()

	select {
	case <-done:
		logger.Info("✅ Graceful shutdown завершен")
	case <-ctx.Done():
		logger.Warn("⚠️ Таймаут graceful shutdown, принудительное завершение")
	}
}

func (app *Application) shutdown(ctx context.Context) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if !app.running {
		return
	}

	// 1. HTTP больше не принимает запросы
	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			logger.Warn("⚠️ Ошибка остановки HTTP сервера: %v", err)
		}
	}

	// 2. Планировщик дожидается текущего цикла
	app.scheduler.Stop()

	// 3. Хранилища
	app.closeResources()

	app.running = false
	logger.Info("✅ Приложение остановлено. Время работы: %v", app.clock.Since(app.startTime).Round(time.Second))
}

func (app *Application) closeResources() {
	if app.redis != nil {
		if err := app.redis.Stop(); err != nil {
			logger.Warn("⚠️ Ошибка остановки Redis: %v", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			logger.Warn("⚠️ Ошибка закрытия БД: %v", err)
		}
		app.db = nil
	}
}

// Status состояние приложения
func (app *Application) Status() map[string]interface{} {
	app.mu.RLock()
	defer app.mu.RUnlock()

	status := map[string]interface{}{
		"running":     app.running,
		"environment": app.config.Environment,
		"surface":     app.config.SurfaceBackend,
		"journal":     app.journal != nil,
	}
	if app.running {
		status["uptime"] = app.clock.Since(app.startTime).Round(time.Second).String()
	}
	if app.redis != nil {
		redisStats := app.redis.GetStats()
		redisStats["healthy"] = app.redis.HealthCheck(context.Background())
		status["redis"] = redisStats
	}
	if app.orchestrator != nil {
		status["dashboard"] = app.orchestrator.Stats()
	}
	return status
}

// Orchestrator собранный оркестратор (nil до Initialize)
func (app *Application) Orchestrator() *orchestrator.Orchestrator {
	return app.orchestrator
}

// Widgets виджеты в памяти (nil до Initialize)
func (app *Application) Widgets() *surface.MemorySurface {
	return app.widgets
}

// Journal журнал циклов; nil если БД выключена
func (app *Application) Journal() *refresh_cycle.Repository {
	return app.journal
}
