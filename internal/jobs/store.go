package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
)

var (
	// ErrJobNotFound is returned for ids the store has never seen or has already evicted.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobTerminal is returned when mutating a COMPLETED or FAILED job.
	ErrJobTerminal = errors.New("job is in a terminal state")
	// ErrInvalidTransition is returned for status changes outside PENDING -> PROCESSING -> (COMPLETED | FAILED).
	ErrInvalidTransition = errors.New("invalid job status transition")
)

var _ interfaces.JobStore = (*Store)(nil)

// Default bounds applied when StoreOptions leaves them unset.
const (
	DefaultJobTTL  = time.Hour
	DefaultMaxJobs = 500
)

// StoreOptions bounds the registry. Terminal jobs older than TTL are swept; when the
// registry reaches MaxJobs the oldest terminal jobs are evicted on insert. In-flight jobs
// are never evicted, so MaxJobs is a soft cap.
type StoreOptions struct {
	TTL     time.Duration
	MaxJobs int
	// Now overrides the clock, used by tests.
	Now func() time.Time
}

// Store is the in-memory research job registry. It is safe for concurrent use; each job
// is written only by the pipeline that owns it and read by pollers.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*models.Job
	ttl     time.Duration
	maxJobs int
	now     func() time.Time
	logger  arbor.ILogger
}

// NewStore creates an empty job store.
func NewStore(opts StoreOptions, logger arbor.ILogger) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultJobTTL
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = DefaultMaxJobs
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		jobs:    make(map[string]*models.Job),
		ttl:     opts.TTL,
		maxJobs: opts.MaxJobs,
		now:     opts.Now,
		logger:  logger,
	}
}

// CreateJob inserts a PENDING job with progress 0 and returns its id.
func (s *Store) CreateJob(ctx context.Context) string {
	id := common.NewJobID()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.jobs) >= s.maxJobs {
		evicted := s.evictOldestTerminalLocked(len(s.jobs) - s.maxJobs + 1)
		if evicted > 0 {
			s.logger.Debug().Int("evicted", evicted).Msg("Evicted terminal jobs to stay under max_jobs")
		}
		if len(s.jobs) >= s.maxJobs {
			s.logger.Warn().
				Int("jobs", len(s.jobs)).
				Int("max_jobs", s.maxJobs).
				Msg("Job store above max_jobs; all remaining jobs are in flight")
		}
	}

	s.jobs[id] = &models.Job{
		ID:        id,
		Status:    models.JobStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// GetJob returns a snapshot of the job. The snapshot is safe to retain and modify.
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job.Clone(), nil
}

// UpdateJob merges a partial update into a non-terminal job. Progress never moves
// backwards and is clamped to 0..100. Terminal statuses must go through CompleteJob or
// FailJob.
func (s *Store) UpdateJob(ctx context.Context, id string, update models.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.mutableLocked(id)
	if err != nil {
		return err
	}

	if update.Status != nil {
		next := *update.Status
		if next.IsTerminal() || !job.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, next)
		}
		job.Status = next
	}
	if update.Progress != nil {
		job.Progress = advanceProgress(job.Progress, *update.Progress)
	}
	job.UpdatedAt = s.now()
	return nil
}

// CompleteJob marks a PROCESSING job COMPLETED with progress 100 and attaches result.
func (s *Store) CompleteJob(ctx context.Context, id string, result *models.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.mutableLocked(id)
	if err != nil {
		return err
	}
	if !job.Status.CanTransitionTo(models.JobStatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, models.JobStatusCompleted)
	}

	now := s.now()
	job.Status = models.JobStatusCompleted
	job.Progress = 100
	if result != nil {
		r := *result
		job.Result = &r
	}
	job.UpdatedAt = now
	job.CompletedAt = &now
	return nil
}

// FailJob marks a non-terminal job FAILED with message. Progress is left where it was.
func (s *Store) FailJob(ctx context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.mutableLocked(id)
	if err != nil {
		return err
	}

	now := s.now()
	job.Status = models.JobStatusFailed
	job.Error = message
	job.UpdatedAt = now
	job.CompletedAt = &now
	return nil
}

// CountByStatus returns the number of jobs in each status.
func (s *Store) CountByStatus() map[models.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.JobStatus]int, 4)
	for _, job := range s.jobs {
		out[job.Status]++
	}
	return out
}

// Len returns the number of jobs held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Sweep removes terminal jobs whose completion is older than the TTL and returns how
// many were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (s *Store) mutableLocked(id string) (*models.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobTerminal, id, job.Status)
	}
	return job, nil
}

// evictOldestTerminalLocked removes up to n terminal jobs, oldest completion first.
func (s *Store) evictOldestTerminalLocked(n int) int {
	if n <= 0 {
		return 0
	}

	terminal := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if job.Status.IsTerminal() {
			terminal = append(terminal, job)
		}
	}
	sort.Slice(terminal, func(i, j int) bool {
		return completedAt(terminal[i]).Before(completedAt(terminal[j]))
	})

	if n > len(terminal) {
		n = len(terminal)
	}
	for _, job := range terminal[:n] {
		delete(s.jobs, job.ID)
	}
	return n
}

func completedAt(job *models.Job) time.Time {
	if job.CompletedAt != nil {
		return *job.CompletedAt
	}
	return job.UpdatedAt
}

func advanceProgress(current, next int) int {
	if next < 0 {
		next = 0
	}
	if next > 100 {
		next = 100
	}
	if next < current {
		return current
	}
	return next
}
