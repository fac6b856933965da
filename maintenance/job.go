/*
job.go - Attendance state machine

PURPOSE:
  Owns the lifecycle of one maintenance visit:

      Scheduled ──start──▶ InProgress ──finish──▶ Completed
          │                     │
          └───────cancel────────┴──▶ Cancelled (terminal)

  start stamps check-in, finish stamps check-out and derives the visit
  duration. Transitions are monotonic: there is no way back from Completed,
  and re-invoking start or finish on a job already in the target state is
  rejected with InvalidTransition, never silently absorbed.

CONCURRENCY:
  A second actor (a stale browser tab) may race a transition. The guard is
  the store's conditional update: the write succeeds only if the status it
  read is still current. A guard miss surfaces ErrConcurrentModification so
  the caller reloads before retrying.

SIDE EFFECTS:
  None beyond the job record. Meter and inventory effects belong to the
  Assembler, which runs only after finish succeeds.

SEE ALSO:
  - report.go: runs finish as step one of report assembly
  - store.go: UpdateJobStatus contract
*/
package maintenance

import "context"

// Lifecycle is the attendance state machine service.
type Lifecycle struct {
	Jobs  JobStore
	Clock Clock
}

func NewLifecycle(jobs JobStore, clock Clock) *Lifecycle {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Lifecycle{Jobs: jobs, Clock: clock}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Start moves a Scheduled job to InProgress and stamps check-in.
func (lc *Lifecycle) Start(ctx context.Context, id JobID) (*MaintenanceJob, error) {
	job, err := lc.Jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusScheduled {
		return nil, &InvalidTransitionError{JobID: id, From: job.Status, Action: "start"}
	}

	now := lc.Clock.Now()
	update := JobUpdate{Status: StatusInProgress, StartedAt: &now}
	if err := lc.Jobs.UpdateJobStatus(ctx, id, StatusScheduled, update); err != nil {
		return nil, err
	}

	job.Status = StatusInProgress
	job.StartedAt = &now
	return job, nil
}

// Finish moves an InProgress job to Completed, stamps check-out, and derives
// DurationSeconds = finishedAt - startedAt.
func (lc *Lifecycle) Finish(ctx context.Context, id JobID) (*MaintenanceJob, error) {
	job, err := lc.Jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusInProgress {
		return nil, &InvalidTransitionError{JobID: id, From: job.Status, Action: "finish"}
	}

	now := lc.Clock.Now()
	if job.StartedAt != nil && now.Before(*job.StartedAt) {
		// Clock skew: never record a check-out before check-in.
		now = *job.StartedAt
	}
	duration := int64(0)
	if job.StartedAt != nil {
		duration = int64(now.Sub(*job.StartedAt).Seconds())
	}

	update := JobUpdate{Status: StatusCompleted, FinishedAt: &now, DurationSeconds: &duration}
	if err := lc.Jobs.UpdateJobStatus(ctx, id, StatusInProgress, update); err != nil {
		return nil, err
	}

	job.Status = StatusCompleted
	job.FinishedAt = &now
	job.DurationSeconds = &duration
	return job, nil
}

// Cancel moves a Scheduled or InProgress job to the terminal Cancelled state.
func (lc *Lifecycle) Cancel(ctx context.Context, id JobID) (*MaintenanceJob, error) {
	job, err := lc.Jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusScheduled && job.Status != StatusInProgress {
		return nil, &InvalidTransitionError{JobID: id, From: job.Status, Action: "cancel"}
	}

	update := JobUpdate{Status: StatusCancelled, StartedAt: job.StartedAt}
	if err := lc.Jobs.UpdateJobStatus(ctx, id, job.Status, update); err != nil {
		return nil, err
	}

	job.Status = StatusCancelled
	return job, nil
}
