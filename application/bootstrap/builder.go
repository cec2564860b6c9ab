// application/bootstrap/builder.go
package bootstrap

import (
	"fmt"

	"respond-dashboard/application/services/orchestrator"
	"respond-dashboard/internal/infrastructure/config"
	"respond-dashboard/pkg/logger"

	"github.com/benbjohnson/clock"
)

// AppBuilder строитель приложения
type AppBuilder struct {
	config  *config.Config
	options []AppOption
}

// AppOption опция для настройки приложения
type AppOption func(*Application) error

// NewAppBuilder создает новый строитель приложений
func NewAppBuilder() *AppBuilder {
	return &AppBuilder{}
}

// WithConfig устанавливает конфигурацию
func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	b.config = cfg
	return b
}

// WithOption добавляет опцию настройки
func (b *AppBuilder) WithOption(option AppOption) *AppBuilder {
	b.options = append(b.options, option)
	return b
}

// Build строит приложение
func (b *AppBuilder) Build() (*Application, error) {
	if b.config == nil {
		cfg, err := config.LoadConfig(".env")
		if err != nil {
			return nil, fmt.Errorf("загрузка конфигурации: %w", err)
		}
		b.config = cfg
	}

	app, err := NewApplication(b.config)
	if err != nil {
		return nil, fmt.Errorf("создание приложения: %w", err)
	}

	for _, option := range b.options {
		if err := option(app); err != nil {
			return nil, fmt.Errorf("применение опции: %w", err)
		}
	}
	return app, nil
}

// ==================== Опции приложения ====================

// WithClock подменяет часы планировщика, таймеров запросов и оркестратора
func WithClock(clk clock.Clock) AppOption {
	return func(app *Application) error {
		app.clock = clk
		return nil
	}
}

// WithDataSource подменяет сервис прогнозов
func WithDataSource(source orchestrator.DataSource) AppOption {
	return func(app *Application) error {
		app.source = source
		return nil
	}
}

// WithSurfaceBackend переопределяет SURFACE_BACKEND
func WithSurfaceBackend(backend string) AppOption {
	return func(app *Application) error {
		switch backend {
		case "", "memory", "redis", "console":
		default:
			return fmt.Errorf("unknown surface backend %q", backend)
		}
		if backend != "" {
			app.config.SurfaceBackend = backend
			logger.Info("📟 Поверхность отображения: %s", backend)
		}
		return nil
	}
}

// WithoutHTTP отключает HTTP сервер
func WithoutHTTP() AppOption {
	return func(app *Application) error {
		app.config.Logging.HTTPEnabled = false
		return nil
	}
}
