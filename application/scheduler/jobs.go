// application/scheduler/jobs.go
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/logger"
)

const (
	JobRefresh     = "refresh"
	JobHealthProbe = "health-probe"

	// HealthProbeInterval период проверки сервиса прогнозов
	HealthProbeInterval = 5 * time.Minute
)

// Refresher запускает цикл обновления дашборда
type Refresher interface {
	RefreshCycle(ctx context.Context) (dashboard.CycleReport, bool)
}

// Deps зависимости задач приложения
type Deps struct {
	Refresher       Refresher
	RefreshInterval time.Duration
	// Health проверка сервиса прогнозов; nil отключает задачу
	Health func(ctx context.Context) error
}

// RegisterAll регистрирует задачи дашборда
func RegisterAll(s *Scheduler, deps Deps) {
	if deps.Refresher != nil {
		s.Register(&Job{
			Name:        JobRefresh,
			Description: "Цикл обновления прогноза, аномалий и KPI",
			Schedule:    Every(deps.RefreshInterval).Immediately(),
			Handler:     refreshHandler(deps.Refresher),
		})
	}

	if deps.Health != nil {
		s.Register(&Job{
			Name:        JobHealthProbe,
			Description: "Проверка доступности сервиса прогнозов",
			Schedule:    Every(HealthProbeInterval),
			Handler: func(ctx context.Context) error {
				if err := deps.Health(ctx); err != nil {
					logger.Warn("⚠️ [Scheduler] Сервис прогнозов недоступен: %v", err)
					return err
				}
				return nil
			},
		})
	}
}

// refreshHandler ошибка задачи перечисляет упавшие загрузчики
func refreshHandler(r Refresher) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		report, ran := r.RefreshCycle(ctx)
		if !ran {
			return nil
		}
		if report.Failed() == 0 {
			return nil
		}

		var failed []string
		for _, t := range report.Tasks {
			if !t.OK() {
				failed = append(failed, fmt.Sprintf("%s=%s", t.Task, t.Kind))
			}
		}
		return fmt.Errorf("cycle %s: %s", report.ID, strings.Join(failed, ", "))
	}
}
