/*
handlers.go - HTTP API handlers for the field service system

PURPOSE:
  Exposes the maintenance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Equipment:
    GET    /api/equipment                       List generators
    POST   /api/equipment                       Register a generator
    GET    /api/equipment/{id}                  Get one generator
    GET    /api/equipment/{id}/reports          Maintenance history
    GET    /api/equipment/{id}/wear-parts       Tracked consumables
    POST   /api/equipment/{id}/wear-parts       Track a consumable
    POST   /api/equipment/{id}/meter-check      Probe a horimeter reading

  Inventory:
    GET    /api/inventory                       List items
    POST   /api/inventory                       Create or update an item

  Jobs:
    POST   /api/jobs                            Schedule a visit
    GET    /api/jobs?from=&to=                  Calendar range
    GET    /api/jobs/{id}                       Get one job
    POST   /api/jobs/{id}/start                 Check in
    POST   /api/jobs/{id}/finish                Check out without a report
    POST   /api/jobs/{id}/cancel                Cancel

  Draft (parts ledger for an in-progress job):
    GET    /api/jobs/{id}/draft
    POST   /api/jobs/{id}/draft/parts
    POST   /api/jobs/{id}/draft/parts/{idx}/quantity
    POST   /api/jobs/{id}/draft/parts/{idx}/remove
    POST   /api/jobs/{id}/draft/parts/removal/confirm
    POST   /api/jobs/{id}/draft/parts/removal/cancel

  Reports:
    POST   /api/jobs/{id}/report                Finish and file the report
    GET    /api/reports/{id}
    GET    /api/reports/{id}/attachments
    POST   /api/reports/{id}/attachments

ERROR MAPPING:
  Domain sentinels map to HTTP statuses in writeDomainError:
    not found                 404
    invalid transition        409
    concurrent modification   409
    report already exists     409
    insufficient stock        409
    attachment window closed  409
    meter regression          422
    validation sentinels      400
    remote failure            502
  Everything else is a 500.

SEE ALSO:
  - dto.go: Request/response types
  - server.go: Route wiring
  - maintenance/: Domain logic these handlers delegate to
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/voltano/fieldservice/maintenance"
)

// Stores is the persistence surface the handlers need. Satisfied by both
// the SQLite store and the in-memory store.
type Stores interface {
	maintenance.JobStore
	maintenance.EquipmentStore
	maintenance.InventoryStore
	maintenance.ReportStore
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Stores    Stores
	Lifecycle *maintenance.Lifecycle
	Assembler *maintenance.Assembler
	Drafts    *DraftRegistry
	Log       *logrus.Logger
}

// NewHandler creates a handler wired to the given stores. A nil clock
// falls back to the system clock.
func NewHandler(stores Stores, clock maintenance.Clock, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Stores:    stores,
		Lifecycle: maintenance.NewLifecycle(stores, clock),
		Assembler: maintenance.NewAssembler(stores, stores, stores, stores, clock, log),
		Drafts:    NewDraftRegistry(),
		Log:       log,
	}
}

// =============================================================================
// EQUIPMENT ENDPOINTS
// =============================================================================

// ListEquipment returns all registered generators.
// GET /api/equipment
func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	units, err := h.Stores.ListEquipment(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list equipment", err)
		return
	}

	dtos := make([]EquipmentDTO, 0, len(units))
	for _, eq := range units {
		dtos = append(dtos, toEquipmentDTO(eq))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEquipment registers a generator.
// POST /api/equipment
func (h *Handler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req CreateEquipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	horimeter, err := maintenance.ParseHours(req.Horimeter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid horimeter value", err)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	eq := maintenance.Equipment{
		ID:         maintenance.EquipmentID(req.ID),
		Name:       req.Name,
		Location:   req.Location,
		Status:     maintenance.EquipmentStatus(req.Status),
		Horimeter:  horimeter,
		CustomerID: maintenance.CustomerID(req.CustomerID),
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Stores.SaveEquipment(r.Context(), eq); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save equipment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEquipmentDTO(eq))
}

// GetEquipment returns one generator.
// GET /api/equipment/{id}
func (h *Handler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	id := maintenance.EquipmentID(chi.URLParam(r, "id"))
	eq, err := h.Stores.GetEquipment(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get equipment", err)
		return
	}
	writeJSON(w, http.StatusOK, toEquipmentDTO(*eq))
}

// ListEquipmentReports returns the maintenance history, newest first.
// GET /api/equipment/{id}/reports
func (h *Handler) ListEquipmentReports(w http.ResponseWriter, r *http.Request) {
	id := maintenance.EquipmentID(chi.URLParam(r, "id"))
	if _, err := h.Stores.GetEquipment(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get equipment", err)
		return
	}

	reports, err := h.Stores.ListReportsByEquipment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}

	dtos := make([]ReportDTO, 0, len(reports))
	for _, rep := range reports {
		dtos = append(dtos, toReportDTO(rep))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListWearParts returns the tracked consumables for a generator.
// GET /api/equipment/{id}/wear-parts
func (h *Handler) ListWearParts(w http.ResponseWriter, r *http.Request) {
	id := maintenance.EquipmentID(chi.URLParam(r, "id"))
	if _, err := h.Stores.GetEquipment(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get equipment", err)
		return
	}

	parts, err := h.Stores.ListWearParts(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list wear parts", err)
		return
	}

	dtos := make([]WearPartDTO, 0, len(parts))
	for _, p := range parts {
		dtos = append(dtos, toWearPartDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddWearPart starts tracking a consumable against the horimeter.
// POST /api/equipment/{id}/wear-parts
func (h *Handler) AddWearPart(w http.ResponseWriter, r *http.Request) {
	id := maintenance.EquipmentID(chi.URLParam(r, "id"))

	var req AddWearPartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	interval, err := maintenance.ParseHours(req.IntervalHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid interval_hours value", err)
		return
	}

	part := maintenance.WearPart{
		ID:            uuid.NewString(),
		EquipmentID:   id,
		Name:          req.Name,
		ItemID:        maintenance.ItemID(req.ItemID),
		IntervalHours: interval,
		AccruedHours:  maintenance.ZeroHours(),
	}
	if err := h.Stores.AddWearPart(r.Context(), part); err != nil {
		h.writeDomainError(w, "Failed to add wear part", err)
		return
	}

	writeJSON(w, http.StatusCreated, toWearPartDTO(part))
}

// CheckMeterReading probes a proposed horimeter value against the stored
// one. Nothing is written; technicians call this before submitting.
// POST /api/equipment/{id}/meter-check
func (h *Handler) CheckMeterReading(w http.ResponseWriter, r *http.Request) {
	id := maintenance.EquipmentID(chi.URLParam(r, "id"))

	var req MeterCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	eq, err := h.Stores.GetEquipment(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get equipment", err)
		return
	}

	proposed, err := maintenance.ParseHours(req.Horimeter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid horimeter value", err)
		return
	}
	if err := maintenance.CheckMeter(eq.ID, eq.Horimeter, proposed); err != nil {
		h.writeDomainError(w, "Meter check failed", err)
		return
	}

	writeJSON(w, http.StatusOK, MeterCheckDTO{OK: true, Current: eq.Horimeter.String()})
}

// =============================================================================
// INVENTORY ENDPOINTS
// =============================================================================

// ListItems returns the parts catalog.
// GET /api/inventory
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Stores.ListItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list inventory", err)
		return
	}

	dtos := make([]InventoryItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toItemDTO(item))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateItem creates or updates a catalog item.
// POST /api/inventory
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	price, err := maintenance.ParseMoney(req.UnitPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid unit_price value", err)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	item := maintenance.InventoryItem{
		ID:        maintenance.ItemID(req.ID),
		Name:      req.Name,
		UnitPrice: price,
		Stock:     req.Stock,
	}
	if err := h.Stores.SaveItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemDTO(item))
}

// =============================================================================
// JOB ENDPOINTS
// =============================================================================

// CreateJob schedules a maintenance visit.
// POST /api/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	scheduledFor, err := parseTimeParam(req.ScheduledFor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scheduled_for (use RFC3339 or YYYY-MM-DD)", err)
		return
	}

	if _, err := h.Stores.GetEquipment(r.Context(), maintenance.EquipmentID(req.EquipmentID)); err != nil {
		h.writeDomainError(w, "Failed to get equipment", err)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	job := maintenance.MaintenanceJob{
		ID:           maintenance.JobID(req.ID),
		EquipmentID:  maintenance.EquipmentID(req.EquipmentID),
		TechnicianID: maintenance.TechnicianID(req.TechnicianID),
		CustomerID:   maintenance.CustomerID(req.CustomerID),
		Status:       maintenance.StatusScheduled,
		ScheduledFor: scheduledFor,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Stores.CreateJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create job", err)
		return
	}

	writeJSON(w, http.StatusCreated, toJobDTO(job))
}

// ListJobs returns jobs scheduled in [from, to] for the demand calendar.
// GET /api/jobs?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeParam(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from (use RFC3339 or YYYY-MM-DD)", err)
		return
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to (use RFC3339 or YYYY-MM-DD)", err)
		return
	}
	// Date-only "to" means end of that day.
	if len(r.URL.Query().Get("to")) == len("2006-01-02") {
		to = to.Add(24*time.Hour - time.Second)
	}

	jobs, err := h.Stores.ListJobsBetween(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	dtos := make([]JobDTO, 0, len(jobs))
	for _, job := range jobs {
		dtos = append(dtos, toJobDTO(job))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetJob returns one job.
// GET /api/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	job, err := h.Stores.GetJob(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get job", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(*job))
}

// StartJob checks the technician in.
// POST /api/jobs/{id}/start
func (h *Handler) StartJob(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	job, err := h.Lifecycle.Start(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to start job", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(*job))
}

// FinishJob checks out without filing a report.
// POST /api/jobs/{id}/finish
func (h *Handler) FinishJob(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	job, err := h.Lifecycle.Finish(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to finish job", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(*job))
}

// CancelJob cancels a scheduled or in-progress job and drops its draft.
// POST /api/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	job, err := h.Lifecycle.Cancel(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to cancel job", err)
		return
	}
	h.Drafts.discard(id)
	writeJSON(w, http.StatusOK, toJobDTO(*job))
}

// =============================================================================
// DRAFT ENDPOINTS
// =============================================================================

// GetDraft returns the working parts ledger for a job.
// GET /api/jobs/{id}/draft
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	if _, err := h.Stores.GetJob(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get job", err)
		return
	}
	writeJSON(w, http.StatusOK, h.draftDTO(id))
}

// AddDraftPart adds one unit of a catalog item to the draft.
// POST /api/jobs/{id}/draft/parts
func (h *Handler) AddDraftPart(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))

	var req AddDraftPartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	if !h.requireInProgress(w, r, id) {
		return
	}
	item, err := h.Stores.GetItem(r.Context(), maintenance.ItemID(req.ItemID))
	if err != nil {
		h.writeDomainError(w, "Failed to get item", err)
		return
	}

	d := h.Drafts.get(id)
	d.mu.Lock()
	d.ledger.AddPart(*item)
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, h.draftDTO(id))
}

// ChangeDraftQuantity nudges one line's quantity by delta.
// POST /api/jobs/{id}/draft/parts/{idx}/quantity
func (h *Handler) ChangeDraftQuantity(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid line index", err)
		return
	}

	var req ChangeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if !h.requireInProgress(w, r, id) {
		return
	}

	d := h.Drafts.get(id)
	d.mu.Lock()
	d.ledger.ChangeQuantity(idx, req.Delta)
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, h.draftDTO(id))
}

// RequestDraftRemoval marks a line for removal, pending confirmation.
// POST /api/jobs/{id}/draft/parts/{idx}/remove
func (h *Handler) RequestDraftRemoval(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid line index", err)
		return
	}

	if !h.requireInProgress(w, r, id) {
		return
	}

	d := h.Drafts.get(id)
	d.mu.Lock()
	d.ledger.RequestRemoval(idx)
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, h.draftDTO(id))
}

// ConfirmDraftRemoval commits the pending removal.
// POST /api/jobs/{id}/draft/parts/removal/confirm
func (h *Handler) ConfirmDraftRemoval(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	if !h.requireInProgress(w, r, id) {
		return
	}

	d := h.Drafts.get(id)
	d.mu.Lock()
	d.ledger.ConfirmRemoval()
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, h.draftDTO(id))
}

// CancelDraftRemoval drops the pending removal, keeping the line.
// POST /api/jobs/{id}/draft/parts/removal/cancel
func (h *Handler) CancelDraftRemoval(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))
	if !h.requireInProgress(w, r, id) {
		return
	}

	d := h.Drafts.get(id)
	d.mu.Lock()
	d.ledger.CancelRemoval()
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, h.draftDTO(id))
}

// requireInProgress rejects draft mutations unless the job is in progress.
func (h *Handler) requireInProgress(w http.ResponseWriter, r *http.Request, id maintenance.JobID) bool {
	job, err := h.Stores.GetJob(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get job", err)
		return false
	}
	if job.Status != maintenance.StatusInProgress {
		writeError(w, http.StatusConflict, "Job is not in progress", maintenance.ErrInvalidTransition)
		return false
	}
	return true
}

func (h *Handler) draftDTO(id maintenance.JobID) DraftDTO {
	d := h.Drafts.get(id)
	d.mu.Lock()
	defer d.mu.Unlock()

	return DraftDTO{
		JobID:          string(id),
		Parts:          toPartLineDTOs(d.ledger.Lines()),
		PendingRemoval: d.ledger.PendingRemoval(),
		PartsTotal:     d.ledger.TotalCost().String(),
	}
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// SubmitReport finishes the job and files the immutable report. Parts are
// taken from the server-side draft; the draft is discarded on success.
// POST /api/jobs/{id}/report
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	id := maintenance.JobID(chi.URLParam(r, "id"))

	var req SubmitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	photos := make([]maintenance.PhotoInput, 0, len(req.Photos))
	for _, p := range req.Photos {
		photos = append(photos, maintenance.PhotoInput{FileName: p.FileName, Data: p.Data})
	}

	outcome, err := h.Assembler.FinishAndReport(r.Context(), maintenance.ReportInput{
		JobID:               id,
		Description:         req.Description,
		SelectedChecks:      req.SelectedChecks,
		ChecklistValues:     req.ChecklistValues,
		Parts:               h.Drafts.lines(id),
		TechnicianSignature: req.TechnicianSignature,
		CustomerSignature:   req.CustomerSignature,
		Photos:              photos,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to file report", err)
		return
	}

	h.Drafts.discard(id)

	resp := SubmitReportResponse{Report: toReportDTO(*outcome.Report)}
	for _, f := range outcome.AttachmentFailures {
		resp.AttachmentFailures = append(resp.AttachmentFailures, f.Error())
	}
	for _, e := range outcome.EffectErrors {
		resp.EffectErrors = append(resp.EffectErrors, e.Error())
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetReport returns one report.
// GET /api/reports/{id}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := maintenance.ReportID(chi.URLParam(r, "id"))
	report, err := h.Stores.GetReport(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(*report))
}

// ListReportAttachments returns attachment metadata for a report.
// GET /api/reports/{id}/attachments
func (h *Handler) ListReportAttachments(w http.ResponseWriter, r *http.Request) {
	id := maintenance.ReportID(chi.URLParam(r, "id"))
	if _, err := h.Stores.GetReport(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get report", err)
		return
	}

	atts, err := h.Stores.ListAttachments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attachments", err)
		return
	}

	dtos := make([]AttachmentDTO, 0, len(atts))
	for _, a := range atts {
		dtos = append(dtos, toAttachmentDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UploadAttachment appends one photo to an existing report, subject to the
// assembler's upload window.
// POST /api/reports/{id}/attachments
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	id := maintenance.ReportID(chi.URLParam(r, "id"))

	var req UploadAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	att, err := h.Assembler.AppendAttachment(r.Context(), id, maintenance.PhotoInput{
		FileName: req.FileName,
		Data:     req.Data,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to upload attachment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAttachmentDTO(*att))
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTimeParam(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// writeDomainError translates domain sentinels to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case maintenance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, maintenance.ErrMeterRegression):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, maintenance.ErrInvalidTransition),
		errors.Is(err, maintenance.ErrConcurrentModification),
		errors.Is(err, maintenance.ErrReportExists),
		errors.Is(err, maintenance.ErrInsufficientStock),
		errors.Is(err, maintenance.ErrAttachmentWindowClosed):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, maintenance.ErrInvalidMeterReading),
		errors.Is(err, maintenance.ErrMissingRequiredField),
		errors.Is(err, maintenance.ErrUnknownChecklistKey),
		errors.Is(err, maintenance.ErrMissingDescription),
		errors.Is(err, maintenance.ErrMissingSignature):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, maintenance.ErrRemote):
		writeError(w, http.StatusBadGateway, message, err)
	default:
		h.Log.WithError(err).Error("unhandled domain error")
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
