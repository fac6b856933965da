// Package store provides an in-memory implementation of the maintenance
// store interfaces, used by tests and the dev server.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/voltano/fieldservice/maintenance"
)

// =============================================================================
// MEMORY STORE - Implements all maintenance store interfaces
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	jobs        map[maintenance.JobID]maintenance.MaintenanceJob
	equipment   map[maintenance.EquipmentID]maintenance.Equipment
	wearParts   map[maintenance.EquipmentID][]maintenance.WearPart
	items       map[maintenance.ItemID]maintenance.InventoryItem
	reports     map[maintenance.ReportID]maintenance.MaintenanceReport
	reportByJob map[maintenance.JobID]maintenance.ReportID
	attachments map[maintenance.ReportID][]maintenance.Attachment

	// FailAttachments lists file names whose AppendAttachment call fails,
	// for exercising per-file upload fault paths in tests.
	FailAttachments map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		jobs:        make(map[maintenance.JobID]maintenance.MaintenanceJob),
		equipment:   make(map[maintenance.EquipmentID]maintenance.Equipment),
		wearParts:   make(map[maintenance.EquipmentID][]maintenance.WearPart),
		items:       make(map[maintenance.ItemID]maintenance.InventoryItem),
		reports:     make(map[maintenance.ReportID]maintenance.MaintenanceReport),
		reportByJob: make(map[maintenance.JobID]maintenance.ReportID),
		attachments: make(map[maintenance.ReportID][]maintenance.Attachment),
	}
}

// =============================================================================
// JOB STORE
// =============================================================================

func (m *Memory) CreateJob(_ context.Context, job maintenance.MaintenanceJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *Memory) GetJob(_ context.Context, id maintenance.JobID) (*maintenance.MaintenanceJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, maintenance.ErrJobNotFound
	}
	copied := job
	return &copied, nil
}

func (m *Memory) ListJobsBetween(_ context.Context, from, to time.Time) ([]maintenance.MaintenanceJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []maintenance.MaintenanceJob
	for _, job := range m.jobs {
		if job.ScheduledFor.Before(from) || job.ScheduledFor.After(to) {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (m *Memory) UpdateJobStatus(_ context.Context, id maintenance.JobID, expect maintenance.JobStatus, update maintenance.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return maintenance.ErrJobNotFound
	}
	// Conditional write: the guard, not the caller's read, decides.
	if job.Status != expect {
		return maintenance.ErrConcurrentModification
	}

	job.Status = update.Status
	if update.StartedAt != nil {
		job.StartedAt = update.StartedAt
	}
	if update.FinishedAt != nil {
		job.FinishedAt = update.FinishedAt
	}
	if update.DurationSeconds != nil {
		job.DurationSeconds = update.DurationSeconds
	}
	m.jobs[id] = job
	return nil
}

// =============================================================================
// EQUIPMENT STORE
// =============================================================================

func (m *Memory) SaveEquipment(_ context.Context, eq maintenance.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equipment[eq.ID] = eq
	return nil
}

func (m *Memory) GetEquipment(_ context.Context, id maintenance.EquipmentID) (*maintenance.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	eq, ok := m.equipment[id]
	if !ok {
		return nil, maintenance.ErrEquipmentNotFound
	}
	copied := eq
	return &copied, nil
}

func (m *Memory) ListEquipment(_ context.Context) ([]maintenance.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]maintenance.Equipment, 0, len(m.equipment))
	for _, eq := range m.equipment {
		out = append(out, eq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AdvanceMeter(_ context.Context, id maintenance.EquipmentID, proposed maintenance.Hours, replacedItems []maintenance.ItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eq, ok := m.equipment[id]
	if !ok {
		return maintenance.ErrEquipmentNotFound
	}
	// Floor guard under the store lock: authoritative monotonicity check.
	if proposed.LessThan(eq.Horimeter) {
		return &maintenance.MeterRegressionError{EquipmentID: id, Current: eq.Horimeter, Proposed: proposed}
	}

	delta := proposed.Sub(eq.Horimeter)
	eq.Horimeter = proposed
	m.equipment[id] = eq

	replaced := make(map[maintenance.ItemID]bool, len(replacedItems))
	for _, item := range replacedItems {
		replaced[item] = true
	}
	parts := m.wearParts[id]
	for i := range parts {
		if parts[i].ItemID != "" && replaced[parts[i].ItemID] {
			parts[i].AccruedHours = maintenance.ZeroHours()
			continue
		}
		parts[i].AccruedHours = parts[i].AccruedHours.Add(delta)
	}
	m.wearParts[id] = parts
	return nil
}

func (m *Memory) AddWearPart(_ context.Context, part maintenance.WearPart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.equipment[part.EquipmentID]; !ok {
		return maintenance.ErrEquipmentNotFound
	}
	m.wearParts[part.EquipmentID] = append(m.wearParts[part.EquipmentID], part)
	return nil
}

func (m *Memory) ListWearParts(_ context.Context, id maintenance.EquipmentID) ([]maintenance.WearPart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]maintenance.WearPart, len(m.wearParts[id]))
	copy(out, m.wearParts[id])
	return out, nil
}

// =============================================================================
// INVENTORY STORE
// =============================================================================

func (m *Memory) SaveItem(_ context.Context, item maintenance.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *Memory) GetItem(_ context.Context, id maintenance.ItemID) (*maintenance.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, maintenance.ErrItemNotFound
	}
	copied := item
	return &copied, nil
}

func (m *Memory) ListItems(_ context.Context) ([]maintenance.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]maintenance.InventoryItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) AdjustStock(_ context.Context, id maintenance.ItemID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return maintenance.ErrItemNotFound
	}
	next := item.Stock + delta
	if next < 0 {
		return maintenance.ErrInsufficientStock
	}
	item.Stock = next
	m.items[id] = item
	return nil
}

// =============================================================================
// REPORT STORE
// =============================================================================

func (m *Memory) SaveReport(_ context.Context, report maintenance.MaintenanceReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reportByJob[report.JobID]; ok {
		return maintenance.ErrReportExists
	}
	m.reports[report.ID] = report
	m.reportByJob[report.JobID] = report.ID
	return nil
}

func (m *Memory) GetReport(_ context.Context, id maintenance.ReportID) (*maintenance.MaintenanceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[id]
	if !ok {
		return nil, maintenance.ErrReportNotFound
	}
	copied := report
	return &copied, nil
}

func (m *Memory) GetReportByJob(_ context.Context, jobID maintenance.JobID) (*maintenance.MaintenanceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.reportByJob[jobID]
	if !ok {
		return nil, nil
	}
	report := m.reports[id]
	return &report, nil
}

func (m *Memory) ListReportsByEquipment(_ context.Context, id maintenance.EquipmentID) ([]maintenance.MaintenanceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []maintenance.MaintenanceReport
	for _, report := range m.reports {
		if report.EquipmentID == id {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AppendAttachment(_ context.Context, att maintenance.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailAttachments[att.FileName]; ok {
		return err
	}
	if _, ok := m.reports[att.ReportID]; !ok {
		return maintenance.ErrReportNotFound
	}
	m.attachments[att.ReportID] = append(m.attachments[att.ReportID], att)
	return nil
}

func (m *Memory) ListAttachments(_ context.Context, reportID maintenance.ReportID) ([]maintenance.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]maintenance.Attachment, len(m.attachments[reportID]))
	copy(out, m.attachments[reportID])
	return out, nil
}
