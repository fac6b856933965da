/*
errors.go - Centralized error types for the maintenance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers distinguish error kinds with errors.Is / errors.As; every kind
  maps to a distinct message so "meter went backwards" is never confused
  with "signature missing" or "network error".

ERROR CATEGORIES:
  1. Lifecycle errors  - state machine misuse, lost update races
  2. Validation errors - report preconditions (checklist, meter, signatures)
  3. Collaborator errors - store / transport failures, per-file upload faults

SEE ALSO:
  - job.go: InvalidTransition usage
  - report.go: precondition ordering
  - api/handlers.go: HTTP status mapping via IsClientError / IsNotFound
*/
package maintenance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when a lifecycle action is not allowed
	// from the job's current status. Re-invoking start/finish on a job already
	// in the target state is rejected, not silently accepted.
	ErrInvalidTransition = errors.New("invalid job transition")

	// ErrMeterRegression is returned when a proposed horimeter reading is
	// lower than the equipment's current stored value.
	ErrMeterRegression = errors.New("horimeter reading regressed")

	// ErrInvalidMeterReading is returned for unparsable or negative readings.
	ErrInvalidMeterReading = errors.New("invalid meter reading")

	// ErrMissingRequiredField is returned when a mandatory checklist field
	// (the horimeter reading) is absent.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrUnknownChecklistKey is returned when a submitted key is not part of
	// the fixed checklist catalog.
	ErrUnknownChecklistKey = errors.New("unknown checklist key")

	// ErrMissingDescription is returned when the report description is empty.
	ErrMissingDescription = errors.New("missing report description")

	// ErrMissingSignature is returned when a required signature blob is empty.
	ErrMissingSignature = errors.New("missing signature")

	// ErrRemote is a generic transport/collaborator fault. No automatic retry
	// in the core; retry policy belongs to the transport layer.
	ErrRemote = errors.New("remote collaborator failure")

	// ErrConcurrentModification is returned when a conditional status update
	// loses a race with another actor (e.g. a stale browser tab).
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrJobNotFound / ErrEquipmentNotFound / ErrItemNotFound / ErrReportNotFound
	// are returned when a referenced record does not exist.
	ErrJobNotFound       = errors.New("job not found")
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrReportNotFound    = errors.New("report not found")

	// ErrInsufficientStock is returned when a stock decrement would go
	// below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrAttachmentWindowClosed is returned when an attachment is appended
	// after the report's follow-up window has elapsed.
	ErrAttachmentWindowClosed = errors.New("attachment window closed")

	// ErrReportExists is returned when a job already has a committed report.
	ErrReportExists = errors.New("report already exists for job")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError reports which action was attempted from which state.
type InvalidTransitionError struct {
	JobID  JobID
	From   JobStatus
	Action string // "start", "finish", "cancel", "report"
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s job %s: status is %s", e.Action, e.JobID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// MeterRegressionError carries both values so the caller can present them.
type MeterRegressionError struct {
	EquipmentID EquipmentID
	Current     Hours
	Proposed    Hours
}

func (e *MeterRegressionError) Error() string {
	return fmt.Sprintf("horimeter for %s would regress: current %s, proposed %s",
		e.EquipmentID, e.Current, e.Proposed)
}

func (e *MeterRegressionError) Unwrap() error { return ErrMeterRegression }

// MissingFieldError names the absent mandatory field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingRequiredField }

// UnknownChecklistKeyError names the rejected key.
type UnknownChecklistKeyError struct {
	Key string
}

func (e *UnknownChecklistKeyError) Error() string {
	return fmt.Sprintf("unknown checklist key: %q", e.Key)
}

func (e *UnknownChecklistKeyError) Unwrap() error { return ErrUnknownChecklistKey }

// MissingSignatureError names which party has not signed.
type MissingSignatureError struct {
	Role SignatureRole
}

func (e *MissingSignatureError) Error() string {
	return fmt.Sprintf("missing %s signature", e.Role)
}

func (e *MissingSignatureError) Unwrap() error { return ErrMissingSignature }

// AttachmentUploadError is a per-file, non-fatal upload failure. It is
// collected in the report outcome and never aborts the committed report.
type AttachmentUploadError struct {
	FileName string
	Err      error
}

func (e *AttachmentUploadError) Error() string {
	return fmt.Sprintf("attachment upload failed for %q: %v", e.FileName, e.Err)
}

func (e *AttachmentUploadError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an infrastructure fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrMeterRegression) ||
		errors.Is(err, ErrInvalidMeterReading) ||
		errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrUnknownChecklistKey) ||
		errors.Is(err, ErrMissingDescription) ||
		errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrAttachmentWindowClosed) ||
		errors.Is(err, ErrReportExists) ||
		errors.Is(err, ErrInsufficientStock)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrEquipmentNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrReportNotFound)
}

// IsConflict returns true for races and duplicate commits: the caller should
// reload current state before retrying.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrReportExists)
}
