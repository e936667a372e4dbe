package jobs

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
)

// DefaultSweepSchedule runs the job sweep once a minute.
const DefaultSweepSchedule = "@every 1m"

// Janitor runs periodic housekeeping tasks (job TTL sweeps, cache purges) on cron schedules.
type Janitor struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	tasks   []string
	started bool
}

// NewJanitor creates a janitor with no tasks.
func NewJanitor(logger arbor.ILogger) *Janitor {
	return &Janitor{
		cron:   cron.New(),
		logger: logger,
	}
}

// Register adds a named task. fn returns how many items it removed, which is logged
// when non-zero.
func (j *Janitor) Register(name, schedule string, fn func() int) error {
	if err := common.ValidateSchedule(schedule); err != nil {
		return err
	}

	_, err := j.cron.AddFunc(schedule, func() {
		j.run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	j.mu.Lock()
	j.tasks = append(j.tasks, name)
	j.mu.Unlock()

	j.logger.Debug().
		Str("task", name).
		Str("schedule", schedule).
		Msg("Janitor task registered")
	return nil
}

// RegisterStoreSweep schedules the TTL sweep of store.
func (j *Janitor) RegisterStoreSweep(store *Store, schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return j.Register("job_sweep", schedule, store.Sweep)
}

// Start begins running registered tasks.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return
	}
	j.started = true
	j.cron.Start()
	j.logger.Info().Strs("tasks", j.tasks).Msg("Janitor started")
}

// Stop halts the schedule and waits for running tasks to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.started {
		j.mu.Unlock()
		return
	}
	j.started = false
	j.mu.Unlock()

	<-j.cron.Stop().Done()
	j.logger.Info().Msg("Janitor stopped")
}

// RunNow executes every registered task once, synchronously.
func (j *Janitor) RunNow() {
	for _, entry := range j.cron.Entries() {
		entry.Job.Run()
	}
}

func (j *Janitor) run(name string, fn func() int) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error().
				Str("task", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Janitor task panicked")
		}
	}()

	removed := fn()
	if removed > 0 {
		j.logger.Info().
			Str("task", name).
			Int("removed", removed).
			Msg("Janitor task completed")
	}
}
