// application/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sync"
	"time"

	"respond-dashboard/pkg/logger"

	"github.com/benbjohnson/clock"
)

// Schedule определяет расписание задачи
type Schedule struct {
	interval  time.Duration
	immediate bool
}

// Every задача запускается с заданным интервалом
func Every(d time.Duration) Schedule {
	return Schedule{interval: d}
}

// Immediately дополнительно запускает задачу сразу при старте
func (s Schedule) Immediately() Schedule {
	s.immediate = true
	return s
}

// Interval период расписания
func (s Schedule) Interval() time.Duration {
	return s.interval
}

// Job описывает одну планируемую задачу
type Job struct {
	Name        string
	Description string
	Schedule    Schedule
	Handler     func(ctx context.Context) error

	mu      sync.Mutex
	nextRun time.Time
	lastRun time.Time
	lastErr error
	runs    int
}

// Status возвращает текущее состояние задачи
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := JobStatus{
		Name:        j.Name,
		Description: j.Description,
		Interval:    j.Schedule.interval.String(),
		NextRun:     j.nextRun,
		LastRun:     j.lastRun,
		Runs:        j.runs,
	}
	if j.lastErr != nil {
		status.LastErr = j.lastErr.Error()
	}
	return status
}

// JobStatus снапшот состояния задачи
type JobStatus struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Interval    string    `json:"interval"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastErr     string    `json:"last_error,omitempty"`
	Runs        int       `json:"runs"`
}

// Scheduler запускает периодические задачи приложения.
// Каждый тик запускает обработчик в отдельной горутине; пропуск
// пересекающихся запусков остается на стороне обработчика.
type Scheduler struct {
	clock    clock.Clock
	jobs     []*Job
	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
	loops    sync.WaitGroup
	wg       sync.WaitGroup
}

// New создает новый планировщик
func New(clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		clock:    clk,
		stopChan: make(chan struct{}),
	}
}

// Register добавляет задачу в планировщик.
// Должен вызываться до Start().
func (s *Scheduler) Register(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	job.nextRun = now.Add(job.Schedule.interval)
	if job.Schedule.immediate {
		job.nextRun = now
	}
	s.jobs = append(s.jobs, job)

	logger.Info("📋 [Scheduler] Зарегистрирована задача %q: каждые %v", job.Name, job.Schedule.interval)
}

// Start запускает тикеры задач; задачи с Immediately стартуют сразу
func (s *Scheduler) Start() {
	s.mu.RLock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	for _, job := range jobs {
		// тикер создается до выхода из Start, чтобы не потерять первый тик
		ticker := s.clock.Ticker(job.Schedule.interval)

		if job.Schedule.immediate {
			s.wg.Add(1)
			go s.run(job)
		}

		s.loops.Add(1)
		go s.loop(job, ticker)
	}
	logger.Info("✅ [Scheduler] Запущен (%d задач)", len(jobs))
}

// Stop останавливает тикеры и ждёт завершения текущих запусков
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.loops.Wait()
	s.wg.Wait()
	logger.Info("🛑 [Scheduler] Остановлен")
}

// Jobs возвращает статус всех задач
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	statuses := make([]JobStatus, len(jobs))
	for i, j := range jobs {
		statuses[i] = j.Status()
	}
	return statuses
}

func (s *Scheduler) loop(job *Job, ticker *clock.Ticker) {
	defer s.loops.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-s.stopChan:
				return
			default:
			}
			s.wg.Add(1)
			go s.run(job)
		case <-s.stopChan:
			return
		}
	}
}

// run выполняет одну задачу и обновляет её состояние.
// Остановка планировщика не прерывает уже начатый запуск.
func (s *Scheduler) run(job *Job) {
	defer s.wg.Done()

	logger.Debug("▶️  [Scheduler] Запуск задачи %q", job.Name)
	start := s.clock.Now()

	err := job.Handler(context.Background())

	elapsed := s.clock.Since(start)

	job.mu.Lock()
	job.lastRun = start
	job.lastErr = err
	job.runs++
	job.nextRun = start.Add(job.Schedule.interval)
	job.mu.Unlock()

	if err != nil {
		logger.Error("❌ [Scheduler] Задача %q завершилась с ошибкой за %v: %v", job.Name, elapsed, err)
	} else {
		logger.Debug("✅ [Scheduler] Задача %q выполнена за %v", job.Name, elapsed)
	}
}
