// internal/delivery/web/server.go
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"respond-dashboard/application/scheduler"
	"respond-dashboard/application/services/orchestrator"
	"respond-dashboard/internal/delivery/surface"
	"respond-dashboard/internal/infrastructure/metrics"
	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/logger"

	"github.com/gorilla/mux"
)

// WidgetReader виджеты, которые отдает сервер
type WidgetReader interface {
	Snapshot() map[string]surface.Widget
	Text(widgetID string) (string, bool)
	Image(widgetID string) ([]byte, bool)
}

// Dashboard состояние оркестратора и ручной запуск цикла
type Dashboard interface {
	Stats() orchestrator.Stats
	RefreshCycle(ctx context.Context) (dashboard.CycleReport, bool)
}

// JobLister задачи планировщика
type JobLister interface {
	Jobs() []scheduler.JobStatus
}

// Deps зависимости сервера
type Deps struct {
	Widgets   WidgetReader
	Dashboard Dashboard
	Jobs      JobLister
	Metrics   *metrics.Metrics
	// Upstream проверка сервиса прогнозов для /health
	Upstream func(ctx context.Context) error
	// Redis проверка хранилища виджетов; nil если бэкенд не redis
	Redis   func(ctx context.Context) bool
	Version string
}

// Server HTTP сервер дашборда
type Server struct {
	deps   Deps
	router *mux.Router
	server *http.Server
}

// NewServer создает сервер и регистрирует маршруты
func NewServer(port int, deps Deps) *Server {
	s := &Server{deps: deps, router: mux.NewRouter()}
	s.routes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	handle := func(path, route string, h http.HandlerFunc, methods ...string) {
		s.router.Handle(path, s.deps.Metrics.WrapHandler(route, h)).Methods(methods...)
	}

	handle("/health", "health", s.handleHealth, http.MethodGet)
	handle("/status", "status", s.handleStatus, http.MethodGet)
	handle("/widgets", "widgets", s.handleWidgets, http.MethodGet)
	handle("/widgets/{id}", "widget", s.handleWidget, http.MethodGet)
	handle("/chart.png", "chart", s.handleChart, http.MethodGet)
	handle("/jobs", "jobs", s.handleJobs, http.MethodGet)
	handle("/refresh", "refresh", s.handleRefresh, http.MethodPost)
	s.router.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
}

// Handler маршрутизатор (тесты)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start слушает порт в фоне; ошибка привязки возвращается сразу
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	logger.Info("🚀 Dashboard HTTP server on %s", s.server.Addr)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ HTTP server error: %v", err)
		}
	}()
	return nil
}

// Shutdown плавная остановка
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ============================================
// ОБРАБОТЧИКИ
// ============================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "version": s.deps.Version}
	code := http.StatusOK

	if s.deps.Upstream != nil {
		if err := s.deps.Upstream(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["upstream"] = string(dashboard.Kind(err))
			resp["error"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			resp["upstream"] = "ok"
		}
	}
	if s.deps.Redis != nil {
		resp["redis"] = "ok"
		if !s.deps.Redis(r.Context()) {
			resp["status"] = "degraded"
			resp["redis"] = "down"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dashboard == nil {
		http.Error(w, "dashboard not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Dashboard.Stats())
}

func (s *Server) handleWidgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Widgets.Snapshot())
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	widget, ok := s.deps.Widgets.Snapshot()[id]
	if !ok {
		http.Error(w, fmt.Sprintf("widget %q not found", id), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, widget)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	png, ok := s.deps.Widgets.Image(surface.WidgetChart)
	if !ok || len(png) == 0 {
		http.Error(w, "chart not rendered yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeJSON(w, http.StatusOK, []scheduler.JobStatus{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Jobs.Jobs())
}

// handleRefresh внеочередной цикл; 409 если цикл уже идет
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dashboard == nil {
		http.Error(w, "dashboard not configured", http.StatusServiceUnavailable)
		return
	}
	report, ran := s.deps.Dashboard.RefreshCycle(context.WithoutCancel(r.Context()))
	if !ran {
		http.Error(w, "refresh cycle already in flight", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("⚠️ Failed to encode response: %v", err)
	}
}
