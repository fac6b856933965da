/*
store.go - Persistence interfaces for the maintenance engine

PURPOSE:
  Defines the contracts between the domain logic and the authoritative
  store. Implementations exist for SQLite (store/sqlite) and in-memory
  (maintenance/store), used in production and tests respectively.

CONDITIONAL UPDATES:
  start/finish/report-creation must be check-status-then-write, never
  unconditional overwrites: the expected-status parameter on UpdateJobStatus
  and the floor guard on AdvanceMeter are the sole concurrency controls.
  A guard miss surfaces ErrConcurrentModification (or a regression error),
  which callers map to "reload and retry".

REPORT IMMUTABILITY:
  ReportStore has SaveReport and AppendAttachment, nothing else that writes.
  Core report fields are frozen once inserted.

SEE ALSO:
  - maintenance/store/memory.go: in-memory implementation
  - store/sqlite/sqlite.go: production implementation
*/
package maintenance

import (
	"context"
	"time"
)

// =============================================================================
// JOB STORE
// =============================================================================

// JobUpdate carries the fields a lifecycle transition writes.
type JobUpdate struct {
	Status          JobStatus
	StartedAt       *time.Time
	FinishedAt      *time.Time
	DurationSeconds *int64
}

type JobStore interface {
	CreateJob(ctx context.Context, job MaintenanceJob) error

	// GetJob returns ErrJobNotFound when the id is unknown.
	GetJob(ctx context.Context, id JobID) (*MaintenanceJob, error)

	// ListJobsBetween returns jobs scheduled in [from, to], ordered by
	// ScheduledFor. Used by the demand calendar.
	ListJobsBetween(ctx context.Context, from, to time.Time) ([]MaintenanceJob, error)

	// UpdateJobStatus applies update iff the job's current status equals
	// expect. Returns ErrConcurrentModification when the guard misses and
	// ErrJobNotFound when the id is unknown.
	UpdateJobStatus(ctx context.Context, id JobID, expect JobStatus, update JobUpdate) error
}

// =============================================================================
// EQUIPMENT STORE
// =============================================================================

type EquipmentStore interface {
	SaveEquipment(ctx context.Context, eq Equipment) error

	// GetEquipment returns ErrEquipmentNotFound when the id is unknown.
	GetEquipment(ctx context.Context, id EquipmentID) (*Equipment, error)

	ListEquipment(ctx context.Context) ([]Equipment, error)

	// AdvanceMeter sets the horimeter to proposed iff proposed >= the stored
	// value at write time (the floor guard re-checks under the store's own
	// serialization, not against the caller's stale read). Wear parts accrue
	// the delta; parts whose linked item id appears in replacedItems reset
	// their accrued hours to zero. Returns MeterRegressionError on a guard
	// miss.
	AdvanceMeter(ctx context.Context, id EquipmentID, proposed Hours, replacedItems []ItemID) error

	AddWearPart(ctx context.Context, part WearPart) error
	ListWearParts(ctx context.Context, id EquipmentID) ([]WearPart, error)
}

// =============================================================================
// INVENTORY STORE
// =============================================================================

type InventoryStore interface {
	SaveItem(ctx context.Context, item InventoryItem) error

	// GetItem returns ErrItemNotFound when the id is unknown.
	GetItem(ctx context.Context, id ItemID) (*InventoryItem, error)

	ListItems(ctx context.Context) ([]InventoryItem, error)

	// AdjustStock adds delta (negative to consume). Returns
	// ErrInsufficientStock when the result would be negative.
	AdjustStock(ctx context.Context, id ItemID, delta int) error
}

// =============================================================================
// REPORT STORE
// =============================================================================

type ReportStore interface {
	// SaveReport inserts the immutable report. Returns ErrReportExists when
	// the job already has one.
	SaveReport(ctx context.Context, report MaintenanceReport) error

	// GetReport returns ErrReportNotFound when the id is unknown.
	GetReport(ctx context.Context, id ReportID) (*MaintenanceReport, error)

	// GetReportByJob returns (nil, nil) when the job has no report yet.
	GetReportByJob(ctx context.Context, jobID JobID) (*MaintenanceReport, error)

	// ListReportsByEquipment returns prior reports, newest first.
	ListReportsByEquipment(ctx context.Context, id EquipmentID) ([]MaintenanceReport, error)

	AppendAttachment(ctx context.Context, att Attachment) error
	ListAttachments(ctx context.Context, reportID ReportID) ([]Attachment, error)
}
