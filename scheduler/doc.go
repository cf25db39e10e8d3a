// Package scheduler defers email sends to a future instant. A job is
// registered with a target time, converted into a minute-granularity
// calendar trigger (minute, hour, day-of-month, month), armed against an
// in-process cron runner, and executed exactly once when the trigger fires.
//
// Jobs can be cancelled while still armed and queried at any point in their
// lifetime. Job records are never deleted, so status queries keep working
// after a job reaches a terminal state; long-lived processes that schedule
// unboundedly many jobs grow the record set without bound.
//
// The job map is process-wide shared state, mutated from both the
// scheduling call path and the cron firing path. All transitions happen
// under one mutex, and a firing job is claimed before its send starts, so a
// cancel racing the trigger instant resolves to exactly one winner: either
// the send never starts, or the cancel is a no-op.
//
// A fired job's send failure is recorded on the record and logged, but not
// retried and not surfaced to any caller; it is only discoverable through
// Status. The calendar trigger cannot express sub-minute precision, so
// callers needing tighter timing need a different primitive.
package scheduler
