package scheduler

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Reloader re-reads a dataset from its backing store.
type Reloader interface {
	Reload() error
}

// Scheduler periodically reloads the local dataset and runs an optional hook
// after each reload (e.g. purging cached forecasts, counting the result).
type Scheduler struct {
	scheduler *gocron.Scheduler
	dataset   Reloader
	interval  time.Duration
	afterRun  func(error)
	log       zerolog.Logger

	mu   sync.Mutex
	runs int
}

// New creates a new Scheduler. afterRun may be nil.
func New(dataset Reloader, interval time.Duration, afterRun func(error), log zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		dataset:   dataset,
		interval:  interval,
		afterRun:  afterRun,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the reload job and starts the underlying scheduler. The
// first run happens one interval after Start; the dataset loads lazily before
// that. A non-positive interval disables reloading.
func (s *Scheduler) Start() error {
	if s.dataset == nil || s.interval <= 0 {
		s.log.Info().Msg("dataset reload disabled; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.reload)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info().Dur("interval", s.interval).Msg("dataset reload scheduled")
	return nil
}

// reload runs one reload and its hook.
func (s *Scheduler) reload() {
	start := time.Now()
	err := s.dataset.Reload()

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("dataset reload failed; keeping previous snapshot")
	} else {
		s.log.Info().Dur("took", time.Since(start)).Msg("dataset reloaded")
	}
	if s.afterRun != nil {
		s.afterRun(err)
	}
}

// Runs returns how many reloads have completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
