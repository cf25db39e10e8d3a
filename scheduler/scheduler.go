package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voicegraph/voicegraph/observability"
	"github.com/voicegraph/voicegraph/services/email"
)

// Sender delivers the email of a fired job.
type Sender interface {
	Send(ctx context.Context, params email.Params) (*email.Result, error)
}

// JobInfo is a point-in-time snapshot of a job, safe to hold after the job
// has moved on.
type JobInfo struct {
	JobID        string     `json:"jobId"`
	Status       JobStatus  `json:"status"`
	ScheduledFor time.Time  `json:"scheduledFor"`
	ExecutedAt   *time.Time `json:"executedAt,omitempty"`
}

// Scheduler arms deferred email jobs against an in-process cron runner.
// All methods are safe for concurrent use.
type Scheduler struct {
	sender   Sender
	store    JobStore
	observer observability.Provider
	now      func() time.Time

	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	claimed map[string]struct{}
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithStore swaps the job store. The default is an in-memory store whose
// records die with the process; use a SQLiteJobStore for durable jobs.
func WithStore(store JobStore) SchedulerOption {
	return func(s *Scheduler) {
		s.store = store
	}
}

// WithObserver attaches an observability provider to the scheduler.
func WithObserver(observer observability.Provider) SchedulerOption {
	return func(s *Scheduler) {
		s.observer = observer
	}
}

// WithClock overrides the scheduler's time source.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a Scheduler, restores any pending jobs found in its store,
// and starts the cron runner. Restored jobs whose trigger time already
// passed are marked failed rather than fired late.
func New(sender Sender, opts ...SchedulerOption) (*Scheduler, error) {
	if sender == nil {
		return nil, fmt.Errorf("scheduler: sender is required")
	}
	s := &Scheduler{
		sender:   sender,
		store:    NewMemoryJobStore(),
		observer: observability.NewNoop(),
		now:      time.Now,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		entries:  make(map[string]cron.EntryID),
		claimed:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.restore(context.Background()); err != nil {
		return nil, err
	}
	s.cron.Start()
	return s, nil
}

// Stop halts the cron runner and waits for any in-flight firing to finish.
// Pending jobs stay in the store and no longer fire.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Schedule registers a deferred send for jobID at runAt. runAt must be
// strictly in the future; sub-minute precision is lost, as the trigger
// matches on minute, hour, day-of-month and month only.
func (s *Scheduler) Schedule(ctx context.Context, jobID string, params email.Params, runAt time.Time) error {
	if jobID == "" {
		return fmt.Errorf("scheduler: job id is required")
	}
	if !runAt.After(s.now()) {
		return fmt.Errorf("%w: %s", ErrRunAtNotFuture, runAt.UTC().Format(time.RFC3339))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		ID:           jobID,
		Params:       params,
		ScheduledFor: runAt.UTC(),
		Status:       StatusPending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return err
	}
	if err := s.arm(rec); err != nil {
		rec.Status = StatusFailed
		if updateErr := s.store.Update(ctx, rec); updateErr != nil {
			s.observer.Error(ctx, "failed to mark unarmable job",
				observability.String("job.id", jobID),
				observability.Error(updateErr))
		}
		return err
	}

	s.observer.Info(ctx, "job scheduled",
		observability.String("job.id", jobID),
		observability.String("job.scheduled_for", rec.ScheduledFor.Format(time.RFC3339)))
	return nil
}

// Cancel disarms jobID and marks it cancelled. It is a no-op if the job is
// unknown, already fired, or already cancelled; the caller cannot tell
// which from the result.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Get(ctx, jobID)
	if err != nil || rec.Status != StatusPending {
		return nil
	}
	if _, firing := s.claimed[jobID]; firing {
		return nil
	}

	s.disarm(jobID)
	rec.Status = StatusCancelled
	if err := s.store.Update(ctx, rec); err != nil {
		return err
	}

	s.observer.Info(ctx, "job cancelled",
		observability.String("job.id", jobID))
	return nil
}

// Status returns a snapshot of jobID, or ErrJobNotFound.
func (s *Scheduler) Status(ctx context.Context, jobID string) (JobInfo, error) {
	rec, err := s.store.Get(ctx, jobID)
	if err != nil {
		return JobInfo{}, err
	}
	return JobInfo{
		JobID:        rec.ID,
		Status:       rec.Status,
		ScheduledFor: rec.ScheduledFor,
		ExecutedAt:   rec.ExecutedAt,
	}, nil
}

// arm registers a cron entry for rec. Caller holds s.mu.
func (s *Scheduler) arm(rec Record) error {
	expr := cronExpression(rec.ScheduledFor)
	jobID := rec.ID
	entryID, err := s.cron.AddFunc(expr, func() {
		s.fire(jobID)
	})
	if err != nil {
		return fmt.Errorf("scheduler: arm job %s: %w", jobID, err)
	}
	s.entries[jobID] = entryID
	return nil
}

// disarm removes the cron entry for jobID, if armed. Caller holds s.mu.
func (s *Scheduler) disarm(jobID string) {
	if entryID, armed := s.entries[jobID]; armed {
		s.cron.Remove(entryID)
		delete(s.entries, jobID)
	}
}

// fire runs on the cron goroutine when a job's trigger matches. The job is
// claimed and disarmed under the lock before the send starts, so the same
// job can never send twice and a concurrent Cancel resolves cleanly.
func (s *Scheduler) fire(jobID string) {
	ctx := context.Background()

	s.mu.Lock()
	rec, err := s.store.Get(ctx, jobID)
	if err != nil || rec.Status != StatusPending {
		s.disarm(jobID)
		s.mu.Unlock()
		return
	}
	if _, firing := s.claimed[jobID]; firing {
		s.mu.Unlock()
		return
	}
	s.claimed[jobID] = struct{}{}
	s.disarm(jobID)
	s.mu.Unlock()

	s.observer.Info(ctx, "job firing",
		observability.String("job.id", jobID),
		observability.String("email.to", rec.Params.To))

	result, sendErr := s.sender.Send(ctx, rec.Params)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, jobID)

	if sendErr != nil {
		rec.Status = StatusFailed
		s.observer.Error(ctx, "scheduled send failed",
			observability.String("job.id", jobID),
			observability.Error(sendErr))
	} else {
		executed := s.now().UTC()
		rec.Status = StatusCompleted
		rec.ExecutedAt = &executed
		s.observer.Info(ctx, "job completed",
			observability.String("job.id", jobID),
			observability.String("email.id", result.ID))
	}
	if err := s.store.Update(ctx, rec); err != nil {
		s.observer.Error(ctx, "failed to record job outcome",
			observability.String("job.id", jobID),
			observability.Error(err))
	}
}

// restore re-arms pending jobs left in the store by a previous process.
func (s *Scheduler) restore(ctx context.Context) error {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: restore pending jobs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, rec := range pending {
		if !rec.ScheduledFor.After(now) {
			rec.Status = StatusFailed
			if err := s.store.Update(ctx, rec); err != nil {
				return fmt.Errorf("scheduler: expire job %s: %w", rec.ID, err)
			}
			s.observer.Warn(ctx, "pending job expired while offline",
				observability.String("job.id", rec.ID))
			continue
		}
		if err := s.arm(rec); err != nil {
			return err
		}
	}
	return nil
}

// cronExpression converts an instant into a calendar trigger matching its
// minute, hour, day-of-month and month in UTC. Day-of-week is left open.
func cronExpression(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d %d %d %d *", t.Minute(), t.Hour(), t.Day(), int(t.Month()))
}
