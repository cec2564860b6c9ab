// /internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"respond-dashboard/pkg/logger"

	"github.com/joho/godotenv"
)

// ============================================
// КОНФИГУРАЦИЯ БАЗЫ ДАННЫХ (журнал циклов)
// ============================================

// DatabaseConfig - конфигурация базы данных
type DatabaseConfig struct {
	Host     string `mapstructure:"DB_HOST"`
	Port     int    `mapstructure:"DB_PORT"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`

	// Журнал циклов пишется только при включенной БД
	Enabled bool `mapstructure:"DB_ENABLED"`

	MaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	MaxConnLifetime time.Duration `mapstructure:"DB_MAX_CONN_LIFETIME"`
	MaxConnIdleTime time.Duration `mapstructure:"DB_MAX_CONN_IDLE_TIME"`

	MigrationsPath    string `mapstructure:"DB_MIGRATIONS_PATH"`
	EnableAutoMigrate bool   `mapstructure:"DB_ENABLE_AUTO_MIGRATE"`
}

// RedisConfig конфигурация Redis (хранилище виджетов)
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`

	PoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	MaxRetries   int           `mapstructure:"REDIS_MAX_RETRIES"`
	DialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"REDIS_WRITE_TIMEOUT"`

	// Префикс ключей виджетов
	KeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`
}

// APIConfig удаленный сервис прогнозов
type APIConfig struct {
	BaseURL      string        `mapstructure:"RESPOND_API_URL"`
	FetchTimeout time.Duration `mapstructure:"FETCH_TIMEOUT"`
	UserAgent    string        `mapstructure:"USER_AGENT"`
}

// DashboardConfig параметры запросов страницы
type DashboardConfig struct {
	ForecastHorizonHours int     `mapstructure:"FORECAST_HORIZON_HOURS"`
	ForecastHistoryHours int     `mapstructure:"FORECAST_HISTORY_HOURS"`
	AnomalyMetric        string  `mapstructure:"ANOMALY_METRIC"`
	AnomalyK             float64 `mapstructure:"ANOMALY_K"`
	KPIWindowHours       int     `mapstructure:"KPI_WINDOW_HOURS"`
	MetricsMonths        int     `mapstructure:"METRICS_MONTHS"`
}

// ChartConfig размеры и вывод графика
type ChartConfig struct {
	Width      int    `mapstructure:"CHART_WIDTH"`
	Height     int    `mapstructure:"CHART_HEIGHT"`
	OutputPath string `mapstructure:"CHART_OUTPUT"`
}

// ============================================
// ОСНОВНАЯ КОНФИГУРАЦИЯ
// ============================================

// Config - основная структура конфигурации
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	Version     string `mapstructure:"VERSION"`

	API       APIConfig       `mapstructure:",squash"`
	Dashboard DashboardConfig `mapstructure:",squash"`
	Chart     ChartConfig     `mapstructure:",squash"`

	// memory | redis | console
	SurfaceBackend string `mapstructure:"SURFACE_BACKEND"`

	Database DatabaseConfig `mapstructure:"DATABASE"`
	Redis    RedisConfig    `mapstructure:",squash"`

	Logging struct {
		Level       string `mapstructure:"LOG_LEVEL"`
		File        string `mapstructure:"LOG_FILE"`
		DebugMode   bool   `mapstructure:"DEBUG_MODE,omitempty"`
		HTTPEnabled bool   `mapstructure:"HTTP_ENABLED"`
		HTTPPort    int    `mapstructure:"HTTP_PORT"`
	} `mapstructure:",squash"`
}

// ============================================
// ЗАГРУЗКА КОНФИГУРАЦИИ
// ============================================

// LoadConfig загружает конфигурацию из .env файла и окружения
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("⚠️  Config file %s not found, using environment variables\n", path)
		}
	}

	cfg := &Config{}

	cfg.Environment = getEnv("ENVIRONMENT", "production")
	cfg.Version = getEnv("VERSION", "1.0.0")

	// API
	cfg.API.BaseURL = strings.TrimRight(getEnv("RESPOND_API_URL", "http://localhost:8000"), "/")
	cfg.API.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 8*time.Second)
	cfg.API.UserAgent = getEnv("USER_AGENT", "RespondDashboard/1.0")

	// Запросы страницы
	cfg.Dashboard.ForecastHorizonHours = getEnvInt("FORECAST_HORIZON_HOURS", 168)
	cfg.Dashboard.ForecastHistoryHours = getEnvInt("FORECAST_HISTORY_HOURS", 24*14)
	cfg.Dashboard.AnomalyMetric = getEnv("ANOMALY_METRIC", "cpl")
	cfg.Dashboard.AnomalyK = getEnvFloat("ANOMALY_K", 2.5)
	cfg.Dashboard.KPIWindowHours = getEnvInt("KPI_WINDOW_HOURS", 24)
	cfg.Dashboard.MetricsMonths = getEnvInt("METRICS_MONTHS", 12)

	// График
	cfg.Chart.Width = getEnvInt("CHART_WIDTH", 1200)
	cfg.Chart.Height = getEnvInt("CHART_HEIGHT", 420)
	cfg.Chart.OutputPath = getEnv("CHART_OUTPUT", "")

	cfg.SurfaceBackend = strings.ToLower(getEnv("SURFACE_BACKEND", "memory"))

	// База данных
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "")
	cfg.Database.Password = getEnv("DB_PASSWORD", "")
	cfg.Database.Name = getEnv("DB_NAME", "respond_dashboard")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 5)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 2)
	cfg.Database.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	cfg.Database.MaxConnIdleTime = getEnvDuration("DB_MAX_CONN_IDLE_TIME", 10*time.Minute)
	cfg.Database.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "./internal/infrastructure/persistence/postgres/migrations")
	cfg.Database.EnableAutoMigrate = getEnvBool("DB_ENABLE_AUTO_MIGRATE", true)
	cfg.Database.Enabled = getEnvBool("DB_ENABLED", false)

	// Redis
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnvInt("REDIS_PORT", 6379)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", 10)
	cfg.Redis.MinIdleConns = getEnvInt("REDIS_MIN_IDLE_CONNS", 2)
	cfg.Redis.MaxRetries = getEnvInt("REDIS_MAX_RETRIES", 3)
	cfg.Redis.DialTimeout = getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.Redis.ReadTimeout = getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.Redis.WriteTimeout = getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", "respond:")

	// Логирование и HTTP
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Logging.File = getEnv("LOG_FILE", "")
	cfg.Logging.DebugMode = getEnvBool("DEBUG_MODE", false)
	cfg.Logging.HTTPEnabled = getEnvBool("HTTP_ENABLED", true)
	cfg.Logging.HTTPPort = getEnvInt("HTTP_PORT", 8090)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// validate проверяет значения конфигурации
func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("RESPOND_API_URL is required")
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("RESPOND_API_URL is not a valid URL: %w", err)
	}
	if c.API.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %v", c.API.FetchTimeout)
	}

	positive := map[string]int{
		"FORECAST_HORIZON_HOURS": c.Dashboard.ForecastHorizonHours,
		"FORECAST_HISTORY_HOURS": c.Dashboard.ForecastHistoryHours,
		"KPI_WINDOW_HOURS":       c.Dashboard.KPIWindowHours,
		"METRICS_MONTHS":         c.Dashboard.MetricsMonths,
		"CHART_WIDTH":            c.Chart.Width,
		"CHART_HEIGHT":           c.Chart.Height,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, value)
		}
	}

	if c.Dashboard.AnomalyK <= 0 {
		return fmt.Errorf("ANOMALY_K must be positive, got %v", c.Dashboard.AnomalyK)
	}

	switch c.Dashboard.AnomalyMetric {
	case "cpl", "roi", "leads":
	default:
		return fmt.Errorf("ANOMALY_METRIC must be one of cpl, roi, leads, got %q", c.Dashboard.AnomalyMetric)
	}

	switch c.SurfaceBackend {
	case "memory", "redis", "console":
	default:
		return fmt.Errorf("SURFACE_BACKEND must be memory, redis or console, got %q", c.SurfaceBackend)
	}

	return nil
}

// GetPostgresDSN строка подключения к PostgreSQL
func (c *Config) GetPostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode,
	)
}

// GetRedisAddress адрес Redis host:port
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// IsDev окружение разработки
func (c *Config) IsDev() bool {
	return c.Environment == "dev" || c.Environment == "development"
}

// PrintSummary выводит действующую конфигурацию
func (c *Config) PrintSummary() {
	logger.Status("КОНФИГУРАЦИЯ ДАШБОРДА", map[string]string{
		"API":               c.API.BaseURL,
		"Таймаут запроса":   c.API.FetchTimeout.String(),
		"Горизонт прогноза": fmt.Sprintf("%dч", c.Dashboard.ForecastHorizonHours),
		"История":           fmt.Sprintf("%dч", c.Dashboard.ForecastHistoryHours),
		"Аномалии":          fmt.Sprintf("%s, k=%.2f", c.Dashboard.AnomalyMetric, c.Dashboard.AnomalyK),
		"Окно KPI":          fmt.Sprintf("%dч", c.Dashboard.KPIWindowHours),
		"Поверхность":       c.SurfaceBackend,
		"HTTP":              map[bool]string{true: fmt.Sprintf(":%d", c.Logging.HTTPPort), false: "выключен"}[c.Logging.HTTPEnabled],
		"Журнал циклов":     map[bool]string{true: "PostgreSQL", false: "выключен"}[c.Database.Enabled],
	})
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ ФУНКЦИИ
// ============================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration принимает "8s"/"500ms" или число миллисекунд
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
