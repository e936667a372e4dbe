// -----------------------------------------------------------------------
// Research Job - lifecycle record for one asynchronous research pipeline run
// -----------------------------------------------------------------------

package models

import "time"

// JobStatus is the lifecycle state of a research job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition may leave this state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo enforces PENDING -> PROCESSING -> (COMPLETED | FAILED).
// A pending job may also fail directly (e.g. a panic before the first stage).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return !s.IsTerminal()
	}
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// JobResult is the payload attached to a completed job.
type JobResult struct {
	PDFBase64  string `json:"pdfBase64"`
	Filename   string `json:"filename"`
	SectorName string `json:"sectorName"`
}

// Job is one research pipeline run as seen by pollers.
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Result      *JobResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a copy that shares no mutable state with the receiver.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// JobUpdate is a partial update merged into a job record. Nil fields are left unchanged.
type JobUpdate struct {
	Status   *JobStatus
	Progress *int
}

// ResearchRequest is the submission payload for a research job.
type ResearchRequest struct {
	LookbackDays int                `json:"lookback_days"`
	TopN         int                `json:"top_n"`
	Sector       string             `json:"sector" validate:"max=100"`
	Weights      map[string]float64 `json:"weights,omitempty" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	Filters      *ScreenerFilters   `json:"filters,omitempty"`
}
