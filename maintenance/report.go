/*
report.go - Report assembly

PURPOSE:
  The orchestrator of a visit's final commit. Validates every precondition,
  freezes the checklist + parts + signatures + timestamps into one immutable
  MaintenanceReport, and then runs the follow-up effects: photo uploads,
  horimeter advance (with wear-part accrual), and stock decrement.

PRECONDITION ORDER (first failure short-circuits):
  1. job transition via the attendance state machine   -> InvalidTransition
  2. description non-empty                             -> MissingDescription
  3. checklist normalizes; horimeter present and passes
     monotonicity against a FRESH equipment read       -> MissingRequiredField /
                                                          UnknownChecklistKey /
                                                          MeterRegression
  4. technician signature present                      -> MissingSignature(technician)
  5. customer signature present                        -> MissingSignature(customer)

  No persistent mutation happens before the report insert, except the finish
  transition itself (see the re-entry note below).

FOLLOW-UP STEPS:
  Once the report row exists it is the source of truth; everything after is
  an ordered list of independently fallible, non-fatal steps. A failing
  photo upload is collected per file and never blocks the other photos. A
  failing meter or stock write is logged and reported in the outcome, but
  the report remains valid and retrievable.

RE-ENTRY:
  If finish succeeded but a later precondition failed, the job is left
  Completed with no report. Assembly therefore accepts a Completed job that
  has no stored report yet and resumes at step 2, so the technician can fix
  the input and resubmit without an unreachable job. A Completed job that
  already has a report is rejected.

SEE ALSO:
  - job.go: the finish transition
  - meter.go / checklist.go: the validators used in step 3
  - store.go: collaborator contracts
*/
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// INPUT / OUTCOME
// =============================================================================

// PhotoInput is one attachment supplied with the report submission.
type PhotoInput struct {
	FileName string
	Data     []byte
}

// ReportInput is everything a technician submits on save.
type ReportInput struct {
	JobID       JobID
	Description string

	SelectedChecks  []string
	ChecklistValues map[string]string

	Parts []PartUsageLine

	TechnicianSignature []byte
	CustomerSignature   []byte

	Photos []PhotoInput
}

// ReportOutcome is the result of a successful assembly. EffectErrors holds
// non-fatal follow-up failures (meter advance, stock decrement); attachment
// failures are listed separately so callers can retry individual files.
type ReportOutcome struct {
	Report             *MaintenanceReport
	AttachmentFailures []*AttachmentUploadError
	EffectErrors       []error
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler validates and commits maintenance reports.
type Assembler struct {
	Jobs      JobStore
	Equipment EquipmentStore
	Inventory InventoryStore
	Reports   ReportStore
	Clock     Clock
	Log       *logrus.Logger

	// AttachmentWindow bounds how long after report creation attachments
	// may still be appended. Zero means no follow-up uploads at all.
	AttachmentWindow time.Duration
}

func NewAssembler(jobs JobStore, equipment EquipmentStore, inventory InventoryStore, reports ReportStore, clock Clock, log *logrus.Logger) *Assembler {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Assembler{
		Jobs:             jobs,
		Equipment:        equipment,
		Inventory:        inventory,
		Reports:          reports,
		Clock:            clock,
		Log:              log,
		AttachmentWindow: 24 * time.Hour,
	}
}

// FinishAndReport runs the full commit: finish the job, validate, persist
// the immutable report, then apply follow-up effects.
func (a *Assembler) FinishAndReport(ctx context.Context, in ReportInput) (*ReportOutcome, error) {
	// --- Step 1: attendance transition -----------------------------------
	job, err := a.finishForReport(ctx, in.JobID)
	if err != nil {
		return nil, err
	}

	// --- Step 2: description ---------------------------------------------
	if strings.TrimSpace(in.Description) == "" {
		return nil, ErrMissingDescription
	}

	// --- Step 3: checklist + authoritative meter check -------------------
	checklist, err := NormalizeChecklist(in.SelectedChecks, in.ChecklistValues)
	if err != nil {
		return nil, err
	}
	eq, err := a.Equipment.GetEquipment(ctx, job.EquipmentID)
	if err != nil {
		return nil, err
	}
	if err := CheckMeter(eq.ID, eq.Horimeter, checklist.Horimeter); err != nil {
		return nil, err
	}

	// --- Steps 4 and 5: signatures ---------------------------------------
	if len(in.TechnicianSignature) == 0 {
		return nil, &MissingSignatureError{Role: RoleTechnician}
	}
	if len(in.CustomerSignature) == 0 {
		return nil, &MissingSignatureError{Role: RoleCustomer}
	}

	// --- Build and persist the immutable report --------------------------
	report := a.buildReport(job, in, checklist)
	if err := a.Reports.SaveReport(ctx, *report); err != nil {
		if IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: saving report: %v", ErrRemote, err)
	}

	a.Log.WithFields(logrus.Fields{
		"job":       job.ID,
		"report":    report.ID,
		"equipment": job.EquipmentID,
		"parts":     len(report.Parts),
	}).Info("maintenance report committed")

	// --- Follow-up effects: ordered, independently fallible --------------
	outcome := &ReportOutcome{Report: report}
	for _, step := range a.followUpSteps(report, checklist, in.Photos) {
		if err := step.run(ctx); err != nil {
			if attErr, ok := err.(*AttachmentUploadError); ok {
				outcome.AttachmentFailures = append(outcome.AttachmentFailures, attErr)
			} else {
				outcome.EffectErrors = append(outcome.EffectErrors, fmt.Errorf("%s: %w", step.name, err))
			}
			a.Log.WithFields(logrus.Fields{
				"report": report.ID,
				"step":   step.name,
			}).WithError(err).Warn("report follow-up step failed")
		}
	}

	return outcome, nil
}

// finishForReport runs the finish transition, or re-enters assembly for a
// job already Completed without a stored report.
func (a *Assembler) finishForReport(ctx context.Context, id JobID) (*MaintenanceJob, error) {
	job, err := a.Jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case StatusInProgress:
		return NewLifecycle(a.Jobs, a.Clock).Finish(ctx, id)
	case StatusCompleted:
		existing, err := a.Reports.GetReportByJob(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: looking up report for job %s: %v", ErrRemote, id, err)
		}
		if existing != nil {
			return nil, ErrReportExists
		}
		// A previous submission finished the job but failed validation.
		return job, nil
	default:
		return nil, &InvalidTransitionError{JobID: id, From: job.Status, Action: "report"}
	}
}

func (a *Assembler) buildReport(job *MaintenanceJob, in ReportInput, checklist ChecklistReport) *MaintenanceReport {
	parts := make([]PartUsageLine, len(in.Parts))
	copy(parts, in.Parts)

	total := ZeroMoney()
	for _, line := range parts {
		total = total.Add(line.LineTotal())
	}

	var checkIn, checkOut time.Time
	if job.StartedAt != nil {
		checkIn = *job.StartedAt
	}
	if job.FinishedAt != nil {
		checkOut = *job.FinishedAt
	}
	var duration int64
	if job.DurationSeconds != nil {
		duration = *job.DurationSeconds
	}

	return &MaintenanceReport{
		ID:                  ReportID(uuid.NewString()),
		JobID:               job.ID,
		EquipmentID:         job.EquipmentID,
		Description:         strings.TrimSpace(in.Description),
		Parts:               parts,
		PartsTotal:          total,
		Checklist:           checklist,
		TechnicianSignature: in.TechnicianSignature,
		CustomerSignature:   in.CustomerSignature,
		CheckIn:             checkIn,
		CheckOut:            checkOut,
		DurationSeconds:     duration,
		CreatedAt:           a.Clock.Now(),
	}
}

// =============================================================================
// FOLLOW-UP STEPS - after the report row exists, nothing here aborts it
// =============================================================================

type followUpStep struct {
	name string
	run  func(ctx context.Context) error
}

func (a *Assembler) followUpSteps(report *MaintenanceReport, checklist ChecklistReport, photos []PhotoInput) []followUpStep {
	var steps []followUpStep

	// Photo uploads: independent, order-insensitive, one step per file so a
	// failure in one never blocks the others.
	for _, photo := range photos {
		p := photo
		steps = append(steps, followUpStep{
			name: "attachment:" + p.FileName,
			run: func(ctx context.Context) error {
				att := Attachment{
					ID:         AttachmentID(uuid.NewString()),
					ReportID:   report.ID,
					FileName:   p.FileName,
					Data:       p.Data,
					UploadedAt: a.Clock.Now(),
				}
				if err := a.Reports.AppendAttachment(ctx, att); err != nil {
					return &AttachmentUploadError{FileName: p.FileName, Err: err}
				}
				return nil
			},
		})
	}

	// Equipment update: advance the horimeter to the validated reading and
	// reset wear counters for parts replaced on this visit.
	replaced := make([]ItemID, 0, len(report.Parts))
	for _, line := range report.Parts {
		replaced = append(replaced, line.ItemID)
	}
	steps = append(steps, followUpStep{
		name: "advance-meter",
		run: func(ctx context.Context) error {
			return a.Equipment.AdvanceMeter(ctx, report.EquipmentID, checklist.Horimeter, replaced)
		},
	})

	// Stock decrement: one step per line, same per-item isolation as photos.
	for _, line := range report.Parts {
		l := line
		steps = append(steps, followUpStep{
			name: fmt.Sprintf("stock:%s", l.ItemID),
			run: func(ctx context.Context) error {
				return a.Inventory.AdjustStock(ctx, l.ItemID, -l.Quantity)
			},
		})
	}

	return steps
}

// =============================================================================
// FOLLOW-UP ATTACHMENTS
// =============================================================================

// AppendAttachment uploads one more photo to an existing report, allowed
// only inside the bounded follow-up window after report creation.
func (a *Assembler) AppendAttachment(ctx context.Context, reportID ReportID, photo PhotoInput) (*Attachment, error) {
	report, err := a.Reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if a.Clock.Now().After(report.CreatedAt.Add(a.AttachmentWindow)) {
		return nil, ErrAttachmentWindowClosed
	}

	att := Attachment{
		ID:         AttachmentID(uuid.NewString()),
		ReportID:   report.ID,
		FileName:   photo.FileName,
		Data:       photo.Data,
		UploadedAt: a.Clock.Now(),
	}
	if err := a.Reports.AppendAttachment(ctx, att); err != nil {
		return nil, &AttachmentUploadError{FileName: photo.FileName, Err: err}
	}
	return &att, nil
}
