// internal/infrastructure/api/respond/client.go
package respond

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"respond-dashboard/internal/infrastructure/config"
	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/logger"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

// DefaultTimeout бюджет одного запроса
const DefaultTimeout = 8000 * time.Millisecond

// Пути ресурсов сервиса прогнозов
const (
	PathForecast  = "/forecast"
	PathKPI       = "/kpi"
	PathAnomalies = "/anomalies"
	PathMetrics   = "/metrics"
	PathHealth    = "/health"
)

// ============================================
// RESPOND CLIENT
// ============================================

// Client - клиент сервиса прогнозов, KPI и аномалий
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	timeout    time.Duration
	clock      clock.Clock

	// срабатывает после отмены запроса по таймауту
	onTimeout func()
}

// Option настройка клиента
type Option func(*Client)

// WithClock подменяет часы таймера (тесты)
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithHTTPClient подменяет HTTP клиент
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient создает клиент по конфигурации
func NewClient(cfg *config.Config, opts ...Option) *Client {
	return New(cfg.API.BaseURL, cfg.API.FetchTimeout, cfg.API.UserAgent, opts...)
}

// New создает клиент без полной конфигурации
func New(baseURL string, timeout time.Duration, userAgent string, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = "RespondDashboard/1.0"
	}

	c := &Client{
		// Timeout не задаем: бюджет запроса держит таймер FetchJSON
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   timeout,
		clock:     clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout бюджет запроса по умолчанию
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// ============================================
// BOUNDED FETCH
// ============================================

// FetchJSON выполняет GET и декодирует JSON в dest.
// Если ответа нет за timeout, запрос отменяется и возвращается ErrTimeout.
// Таймер останавливается на любом пути выхода.
func (c *Client) FetchJSON(ctx context.Context, path string, query url.Values, timeout time.Duration, dest any) error {
	if timeout <= 0 {
		timeout = c.timeout
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	timedOut := atomic.NewBool(false)
	timer := c.clock.AfterFunc(timeout, func() {
		timedOut.Store(true)
		cancel()
		if c.onTimeout != nil {
			c.onTimeout()
		}
	})
	defer timer.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build request %s: %v", dashboard.ErrTransport, reqURL, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if timedOut.Load() {
			return fmt.Errorf("%w: GET %s after %v", dashboard.ErrTimeout, reqURL, timeout)
		}
		return fmt.Errorf("%w: GET %s: %v", dashboard.ErrTransport, reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &dashboard.HTTPStatusError{Code: resp.StatusCode, URL: reqURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if timedOut.Load() {
			return fmt.Errorf("%w: reading %s after %v", dashboard.ErrTimeout, reqURL, timeout)
		}
		return fmt.Errorf("%w: reading %s: %v", dashboard.ErrTransport, reqURL, err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", dashboard.ErrMalformedPayload, reqURL, err)
	}

	logger.Debug("🌐 GET %s -> %d (%d bytes)", reqURL, resp.StatusCode, len(body))
	return nil
}

// ============================================
// РЕСУРСЫ
// ============================================

// GetForecast факт и прогноз лидов
func (c *Client) GetForecast(ctx context.Context, horizonHours, historyHours int) (dashboard.ForecastPayload, error) {
	query := url.Values{}
	query.Set("horizon_hours", strconv.Itoa(horizonHours))
	query.Set("history_hours", strconv.Itoa(historyHours))

	var resp forecastResponse
	if err := c.FetchJSON(ctx, PathForecast, query, c.timeout, &resp); err != nil {
		return dashboard.ForecastPayload{}, fmt.Errorf("forecast: %w", err)
	}
	payload, err := resp.toPayload()
	if err != nil {
		return dashboard.ForecastPayload{}, fmt.Errorf("forecast: %w", err)
	}
	return payload, nil
}

// GetKPI показатели за окно windowHours
func (c *Client) GetKPI(ctx context.Context, windowHours int) (dashboard.KPIPayload, error) {
	query := url.Values{}
	query.Set("window_hours", strconv.Itoa(windowHours))

	var resp kpiResponse
	if err := c.FetchJSON(ctx, PathKPI, query, c.timeout, &resp); err != nil {
		return dashboard.KPIPayload{}, fmt.Errorf("kpi: %w", err)
	}
	payload, err := resp.toPayload()
	if err != nil {
		return dashboard.KPIPayload{}, fmt.Errorf("kpi: %w", err)
	}
	return payload, nil
}

// GetAnomalies ранжированный список аномалий метрики
func (c *Client) GetAnomalies(ctx context.Context, metric string, k float64) (dashboard.AnomalyReport, error) {
	query := url.Values{}
	query.Set("metric", metric)
	query.Set("k", strconv.FormatFloat(k, 'f', -1, 64))

	var resp anomaliesResponse
	if err := c.FetchJSON(ctx, PathAnomalies, query, c.timeout, &resp); err != nil {
		return dashboard.AnomalyReport{}, fmt.Errorf("anomalies: %w", err)
	}
	report, err := resp.toReport(metric)
	if err != nil {
		return dashboard.AnomalyReport{}, fmt.Errorf("anomalies: %w", err)
	}
	return report, nil
}

// GetMetrics последние n месяцев KPI
func (c *Client) GetMetrics(ctx context.Context, n int) ([]dashboard.MonthlyMetrics, error) {
	query := url.Values{}
	query.Set("n", strconv.Itoa(n))

	var resp metricsResponse
	if err := c.FetchJSON(ctx, PathMetrics, query, c.timeout, &resp); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("metrics: %w: missing \"data\"", dashboard.ErrMalformedPayload)
	}
	return *resp.Data, nil
}

// Health проверка доступности сервиса
func (c *Client) Health(ctx context.Context) error {
	var resp healthResponse
	if err := c.FetchJSON(ctx, PathHealth, nil, c.timeout, &resp); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("health: %w: status %q", dashboard.ErrMalformedPayload, resp.Status)
	}
	return nil
}
