/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers call
  validateRequest after decoding. Domain invariants (status transitions,
  meter monotonicity, checklist keys) stay in the maintenance package -
  the tags only cover shape, not semantics.

BINARY FIELDS:
  Signatures, photos, and attachments travel as base64 strings via
  encoding/json's default []byte handling.

SEE ALSO:
  - handlers.go: Uses these types
  - maintenance/types.go: Domain model these map onto
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/voltano/fieldservice/maintenance"
)

var validate = validator.New()

func validateRequest(req any) error {
	return validate.Struct(req)
}

// =============================================================================
// EQUIPMENT
// =============================================================================

// EquipmentDTO represents a generator unit in API responses.
type EquipmentDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location,omitempty"`
	Status     string `json:"status"`
	Horimeter  string `json:"horimeter"`
	CustomerID string `json:"customer_id,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// CreateEquipmentRequest is the request to register a generator.
type CreateEquipmentRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name" validate:"required"`
	Location   string `json:"location"`
	Status     string `json:"status" validate:"required,oneof=available rented in_maintenance sold third_party"`
	Horimeter  string `json:"horimeter" validate:"required"`
	CustomerID string `json:"customer_id" validate:"required_if=Status sold"`
}

// WearPartDTO represents a tracked consumable on a generator.
type WearPartDTO struct {
	ID            string `json:"id"`
	EquipmentID   string `json:"equipment_id"`
	Name          string `json:"name"`
	ItemID        string `json:"item_id,omitempty"`
	IntervalHours string `json:"interval_hours"`
	AccruedHours  string `json:"accrued_hours"`
	Due           bool   `json:"due"`
}

// AddWearPartRequest registers a consumable to track against the horimeter.
type AddWearPartRequest struct {
	Name          string `json:"name" validate:"required"`
	ItemID        string `json:"item_id"`
	IntervalHours string `json:"interval_hours" validate:"required"`
}

// MeterCheckRequest probes a proposed horimeter reading against the stored
// value without writing anything.
type MeterCheckRequest struct {
	Horimeter string `json:"horimeter" validate:"required"`
}

// MeterCheckDTO is the probe result.
type MeterCheckDTO struct {
	OK      bool   `json:"ok"`
	Current string `json:"current"`
}

// =============================================================================
// INVENTORY
// =============================================================================

type InventoryItemDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Stock     int    `json:"stock"`
}

type CreateItemRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"required"`
	Stock     int    `json:"stock" validate:"gte=0"`
}

// =============================================================================
// JOBS
// =============================================================================

// JobDTO represents a maintenance visit in API responses.
type JobDTO struct {
	ID              string  `json:"id"`
	EquipmentID     string  `json:"equipment_id"`
	TechnicianID    string  `json:"technician_id"`
	CustomerID      string  `json:"customer_id,omitempty"`
	Status          string  `json:"status"`
	ScheduledFor    string  `json:"scheduled_for"`
	StartedAt       *string `json:"started_at,omitempty"`
	FinishedAt      *string `json:"finished_at,omitempty"`
	DurationSeconds *int64  `json:"duration_seconds,omitempty"`
}

// CreateJobRequest schedules a visit.
type CreateJobRequest struct {
	ID           string `json:"id"`
	EquipmentID  string `json:"equipment_id" validate:"required"`
	TechnicianID string `json:"technician_id" validate:"required"`
	CustomerID   string `json:"customer_id"`
	ScheduledFor string `json:"scheduled_for" validate:"required"`
}

// =============================================================================
// DRAFT (in-progress parts ledger)
// =============================================================================

// PartLineDTO is one line of the parts ledger or a frozen report snapshot.
type PartLineDTO struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// DraftDTO is the server-side working state for an in-progress job.
type DraftDTO struct {
	JobID          string        `json:"job_id"`
	Parts          []PartLineDTO `json:"parts"`
	PendingRemoval int           `json:"pending_removal"` // -1 when none
	PartsTotal     string        `json:"parts_total"`
}

type AddDraftPartRequest struct {
	ItemID string `json:"item_id" validate:"required"`
}

// ChangeQuantityRequest carries a signed adjustment; a zero delta is a
// harmless no-op, so no validation beyond decoding applies.
type ChangeQuantityRequest struct {
	Delta int `json:"delta"`
}

// =============================================================================
// REPORTS
// =============================================================================

// PhotoDTO is one photo submitted with a report.
type PhotoDTO struct {
	FileName string `json:"file_name" validate:"required"`
	Data     []byte `json:"data" validate:"required"`
}

// SubmitReportRequest closes out a job. Parts come from the server-side
// draft; everything else is submitted here.
type SubmitReportRequest struct {
	Description         string            `json:"description"`
	SelectedChecks      []string          `json:"selected_checks"`
	ChecklistValues     map[string]string `json:"checklist_values"`
	TechnicianSignature []byte            `json:"technician_signature"`
	CustomerSignature   []byte            `json:"customer_signature"`
	Photos              []PhotoDTO        `json:"photos"`
}

// MeasurementDTO is one recorded gauge reading.
type MeasurementDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ChecklistDTO is the frozen checklist snapshot on a report.
type ChecklistDTO struct {
	Selected     []string         `json:"selected"`
	Measurements []MeasurementDTO `json:"measurements"`
	Horimeter    string           `json:"horimeter"`
}

// ReportDTO represents an immutable maintenance report.
type ReportDTO struct {
	ID              string        `json:"id"`
	JobID           string        `json:"job_id"`
	EquipmentID     string        `json:"equipment_id"`
	Description     string        `json:"description"`
	Parts           []PartLineDTO `json:"parts"`
	PartsTotal      string        `json:"parts_total"`
	Checklist       ChecklistDTO  `json:"checklist"`
	CheckIn         string        `json:"check_in"`
	CheckOut        string        `json:"check_out"`
	DurationSeconds int64         `json:"duration_seconds"`
	CreatedAt       string        `json:"created_at"`
}

// SubmitReportResponse carries the report plus any non-fatal follow-up
// failures so the client can retry individual uploads.
type SubmitReportResponse struct {
	Report             ReportDTO `json:"report"`
	AttachmentFailures []string  `json:"attachment_failures,omitempty"`
	EffectErrors       []string  `json:"effect_errors,omitempty"`
}

// UploadAttachmentRequest appends one photo to an existing report.
type UploadAttachmentRequest struct {
	FileName string `json:"file_name" validate:"required"`
	Data     []byte `json:"data" validate:"required"`
}

type AttachmentDTO struct {
	ID         string `json:"id"`
	ReportID   string `json:"report_id"`
	FileName   string `json:"file_name"`
	Size       int    `json:"size"`
	UploadedAt string `json:"uploaded_at"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DOMAIN -> DTO MAPPERS
// =============================================================================

func toEquipmentDTO(eq maintenance.Equipment) EquipmentDTO {
	return EquipmentDTO{
		ID:         string(eq.ID),
		Name:       eq.Name,
		Location:   eq.Location,
		Status:     string(eq.Status),
		Horimeter:  eq.Horimeter.String(),
		CustomerID: string(eq.CustomerID),
		CreatedAt:  formatTime(eq.CreatedAt),
	}
}

func toWearPartDTO(p maintenance.WearPart) WearPartDTO {
	return WearPartDTO{
		ID:            p.ID,
		EquipmentID:   string(p.EquipmentID),
		Name:          p.Name,
		ItemID:        string(p.ItemID),
		IntervalHours: p.IntervalHours.String(),
		AccruedHours:  p.AccruedHours.String(),
		Due:           p.Due(),
	}
}

func toItemDTO(item maintenance.InventoryItem) InventoryItemDTO {
	return InventoryItemDTO{
		ID:        string(item.ID),
		Name:      item.Name,
		UnitPrice: item.UnitPrice.String(),
		Stock:     item.Stock,
	}
}

func toJobDTO(job maintenance.MaintenanceJob) JobDTO {
	return JobDTO{
		ID:              string(job.ID),
		EquipmentID:     string(job.EquipmentID),
		TechnicianID:    string(job.TechnicianID),
		CustomerID:      string(job.CustomerID),
		Status:          string(job.Status),
		ScheduledFor:    formatTime(job.ScheduledFor),
		StartedAt:       formatTimePtr(job.StartedAt),
		FinishedAt:      formatTimePtr(job.FinishedAt),
		DurationSeconds: job.DurationSeconds,
	}
}

func toPartLineDTOs(lines []maintenance.PartUsageLine) []PartLineDTO {
	out := make([]PartLineDTO, len(lines))
	for i, l := range lines {
		out[i] = PartLineDTO{
			ItemID:    string(l.ItemID),
			Name:      l.Name,
			UnitPrice: l.UnitPrice.String(),
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal().String(),
		}
	}
	return out
}

func toChecklistDTO(cl maintenance.ChecklistReport) ChecklistDTO {
	dto := ChecklistDTO{
		Selected:  cl.Selected,
		Horimeter: cl.Horimeter.String(),
	}
	for _, m := range cl.Measurements {
		dto.Measurements = append(dto.Measurements, MeasurementDTO{Key: m.Key, Value: m.Value})
	}
	return dto
}

func toReportDTO(r maintenance.MaintenanceReport) ReportDTO {
	return ReportDTO{
		ID:              string(r.ID),
		JobID:           string(r.JobID),
		EquipmentID:     string(r.EquipmentID),
		Description:     r.Description,
		Parts:           toPartLineDTOs(r.Parts),
		PartsTotal:      r.PartsTotal.String(),
		Checklist:       toChecklistDTO(r.Checklist),
		CheckIn:         formatTime(r.CheckIn),
		CheckOut:        formatTime(r.CheckOut),
		DurationSeconds: r.DurationSeconds,
		CreatedAt:       formatTime(r.CreatedAt),
	}
}

func toAttachmentDTO(a maintenance.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:         string(a.ID),
		ReportID:   string(a.ReportID),
		FileName:   a.FileName,
		Size:       len(a.Data),
		UploadedAt: formatTime(a.UploadedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
