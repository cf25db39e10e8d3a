package scheduler

import (
	"errors"
	"time"

	"github.com/voicegraph/voicegraph/services/email"
)

// JobStatus is the lifecycle state of a deferred job.
type JobStatus string

const (
	// StatusPending means the job is armed and waiting for its trigger.
	StatusPending JobStatus = "pending"
	// StatusCompleted means the job fired and its send succeeded.
	StatusCompleted JobStatus = "completed"
	// StatusCancelled means the job was cancelled before it fired.
	StatusCancelled JobStatus = "cancelled"
	// StatusFailed means the job fired and its send failed, or its trigger
	// time passed while the process was down.
	StatusFailed JobStatus = "failed"
)

// Record is the persisted state of a deferred job.
type Record struct {
	ID           string
	Params       email.Params
	ScheduledFor time.Time
	Status       JobStatus
	ExecutedAt   *time.Time
	CreatedAt    time.Time
}

// ErrJobNotFound is returned by Status when no job has the given ID.
var ErrJobNotFound = errors.New("scheduler: job not found")

// ErrDuplicateJobID is returned by Schedule when the ID is already taken.
var ErrDuplicateJobID = errors.New("scheduler: duplicate job id")

// ErrRunAtNotFuture is returned by Schedule when the run time is not
// strictly in the future.
var ErrRunAtNotFuture = errors.New("scheduler: run time must be in the future")
