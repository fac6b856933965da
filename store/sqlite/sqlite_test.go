package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltano/fieldservice/maintenance"
	"github.com/voltano/fieldservice/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustHours(t *testing.T, v string) maintenance.Hours {
	t.Helper()
	h, err := maintenance.ParseHours(v)
	require.NoError(t, err)
	return h
}

func seedEquipment(t *testing.T, s *sqlite.Store, id string, horimeter string) {
	t.Helper()
	require.NoError(t, s.SaveEquipment(context.Background(), maintenance.Equipment{
		ID:        maintenance.EquipmentID(id),
		Name:      "GEN-" + id,
		Status:    maintenance.EquipmentAvailable,
		Horimeter: mustHours(t, horimeter),
	}))
}

func seedJob(t *testing.T, s *sqlite.Store, id string, status maintenance.JobStatus, scheduledFor time.Time) {
	t.Helper()
	require.NoError(t, s.CreateJob(context.Background(), maintenance.MaintenanceJob{
		ID:           maintenance.JobID(id),
		EquipmentID:  "gen-1",
		TechnicianID: "tech-1",
		Status:       status,
		ScheduledFor: scheduledFor,
	}))
}

// =============================================================================
// JOBS
// =============================================================================

func TestSQLite_JobRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")

	scheduled := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	seedJob(t, s, "job-1", maintenance.StatusScheduled, scheduled)

	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusScheduled, job.Status)
	assert.True(t, job.ScheduledFor.Equal(scheduled))
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.DurationSeconds)

	_, err = s.GetJob(ctx, "nope")
	assert.ErrorIs(t, err, maintenance.ErrJobNotFound)
}

func TestSQLite_ListJobsBetween_OrderedInclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")

	day := func(d int) time.Time {
		return time.Date(2025, time.June, d, 9, 0, 0, 0, time.UTC)
	}
	seedJob(t, s, "job-c", maintenance.StatusScheduled, day(15))
	seedJob(t, s, "job-a", maintenance.StatusScheduled, day(5))
	seedJob(t, s, "job-b", maintenance.StatusScheduled, day(10))
	seedJob(t, s, "job-out", maintenance.StatusScheduled, day(25))

	jobs, err := s.ListJobsBetween(ctx, day(5), day(15))
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, maintenance.JobID("job-a"), jobs[0].ID)
	assert.Equal(t, maintenance.JobID("job-b"), jobs[1].ID)
	assert.Equal(t, maintenance.JobID("job-c"), jobs[2].ID)
}

func TestSQLite_UpdateJobStatus_ConditionalGuard(t *testing.T) {
	// GIVEN: A scheduled job
	// WHEN: Updating with the wrong expected status
	// THEN: The guard misses with ErrConcurrentModification and nothing changes

	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")
	seedJob(t, s, "job-1", maintenance.StatusScheduled, time.Now().UTC())

	now := time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)
	err := s.UpdateJobStatus(ctx, "job-1", maintenance.StatusInProgress,
		maintenance.JobUpdate{Status: maintenance.StatusCompleted, FinishedAt: &now})
	assert.ErrorIs(t, err, maintenance.ErrConcurrentModification)

	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusScheduled, job.Status)

	// Correct expectation succeeds and stamps the timestamp.
	err = s.UpdateJobStatus(ctx, "job-1", maintenance.StatusScheduled,
		maintenance.JobUpdate{Status: maintenance.StatusInProgress, StartedAt: &now})
	require.NoError(t, err)

	job, err = s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusInProgress, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.True(t, job.StartedAt.Equal(now))

	// Unknown id is not-found, not a conflict.
	err = s.UpdateJobStatus(ctx, "nope", maintenance.StatusScheduled,
		maintenance.JobUpdate{Status: maintenance.StatusCancelled})
	assert.ErrorIs(t, err, maintenance.ErrJobNotFound)
}

// =============================================================================
// EQUIPMENT AND METER
// =============================================================================

func TestSQLite_AdvanceMeter_GuardAndAccrual(t *testing.T) {
	// GIVEN: A generator at 1200h with two wear parts
	// WHEN: Advancing to 1250h with the oil filter item replaced
	// THEN: The linked counter resets, the other accrues the 50h delta

	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")

	require.NoError(t, s.AddWearPart(ctx, maintenance.WearPart{
		ID:            "wp-oil",
		EquipmentID:   "gen-1",
		Name:          "Oil filter",
		ItemID:        "item-oil",
		IntervalHours: mustHours(t, "250"),
		AccruedHours:  mustHours(t, "230"),
	}))
	require.NoError(t, s.AddWearPart(ctx, maintenance.WearPart{
		ID:            "wp-belt",
		EquipmentID:   "gen-1",
		Name:          "Belt",
		IntervalHours: mustHours(t, "1000"),
		AccruedHours:  mustHours(t, "400"),
	}))

	err := s.AdvanceMeter(ctx, "gen-1", mustHours(t, "1250"), []maintenance.ItemID{"item-oil"})
	require.NoError(t, err)

	eq, err := s.GetEquipment(ctx, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "1250", eq.Horimeter.String())

	parts, err := s.ListWearParts(ctx, "gen-1")
	require.NoError(t, err)
	byID := map[string]maintenance.WearPart{}
	for _, p := range parts {
		byID[p.ID] = p
	}
	assert.True(t, byID["wp-oil"].AccruedHours.IsZero())
	assert.Equal(t, "450", byID["wp-belt"].AccruedHours.String())
}

func TestSQLite_AdvanceMeter_RegressionRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")

	err := s.AdvanceMeter(ctx, "gen-1", mustHours(t, "1199"), nil)
	assert.ErrorIs(t, err, maintenance.ErrMeterRegression)

	eq, err := s.GetEquipment(ctx, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "1200", eq.Horimeter.String())
}

func TestSQLite_SaveEquipment_UpsertKeepsHorimeter(t *testing.T) {
	// Re-saving equipment metadata must not rewind the meter.
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")
	require.NoError(t, s.AdvanceMeter(ctx, "gen-1", mustHours(t, "1300"), nil))

	seedEquipment(t, s, "gen-1", "1200")

	eq, err := s.GetEquipment(ctx, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "1300", eq.Horimeter.String())
}

// =============================================================================
// INVENTORY
// =============================================================================

func TestSQLite_AdjustStock_FloorsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveItem(ctx, maintenance.InventoryItem{
		ID:        "item-1",
		Name:      "Oil filter",
		UnitPrice: maintenance.MustParseMoney("45.90"),
		Stock:     3,
	}))

	require.NoError(t, s.AdjustStock(ctx, "item-1", -2))

	err := s.AdjustStock(ctx, "item-1", -2)
	assert.ErrorIs(t, err, maintenance.ErrInsufficientStock)

	item, err := s.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Stock)

	err = s.AdjustStock(ctx, "nope", -1)
	assert.ErrorIs(t, err, maintenance.ErrItemNotFound)
}

// =============================================================================
// REPORTS
// =============================================================================

func sampleReport(t *testing.T, id, jobID string) maintenance.MaintenanceReport {
	t.Helper()
	checkIn := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	return maintenance.MaintenanceReport{
		ID:          maintenance.ReportID(id),
		JobID:       maintenance.JobID(jobID),
		EquipmentID: "gen-1",
		Description: "Preventive maintenance",
		Parts: []maintenance.PartUsageLine{
			{ItemID: "item-oil", Name: "Oil filter", UnitPrice: maintenance.MustParseMoney("45.90"), Quantity: 2},
		},
		PartsTotal: maintenance.MustParseMoney("91.80"),
		Checklist: maintenance.ChecklistReport{
			Selected: []string{"coolant_level", "oil_change"},
			Measurements: []maintenance.Measurement{
				{Key: "horimeter", Value: "1250"},
				{Key: "coolant_temp", Value: "82"},
			},
			Horimeter: mustHours(t, "1250"),
		},
		TechnicianSignature: []byte("tech-sig"),
		CustomerSignature:   []byte("customer-sig"),
		CheckIn:             checkIn,
		CheckOut:            checkIn.Add(2 * time.Hour),
		DurationSeconds:     7200,
		CreatedAt:           checkIn.Add(2 * time.Hour),
	}
}

func TestSQLite_ReportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")
	seedJob(t, s, "job-1", maintenance.StatusCompleted, time.Now().UTC())

	require.NoError(t, s.SaveReport(ctx, sampleReport(t, "rep-1", "job-1")))

	got, err := s.GetReport(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, "Preventive maintenance", got.Description)
	assert.Equal(t, "91.80", got.PartsTotal.String())
	require.Len(t, got.Parts, 1)
	assert.Equal(t, 2, got.Parts[0].Quantity)
	assert.Equal(t, "45.90", got.Parts[0].UnitPrice.String())
	assert.Equal(t, []string{"coolant_level", "oil_change"}, got.Checklist.Selected)
	require.Len(t, got.Checklist.Measurements, 2)
	assert.Equal(t, "1250", got.Checklist.Horimeter.String())
	assert.Equal(t, []byte("tech-sig"), got.TechnicianSignature)
	assert.Equal(t, int64(7200), got.DurationSeconds)
}

func TestSQLite_SaveReport_OnePerJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")
	seedJob(t, s, "job-1", maintenance.StatusCompleted, time.Now().UTC())

	require.NoError(t, s.SaveReport(ctx, sampleReport(t, "rep-1", "job-1")))

	err := s.SaveReport(ctx, sampleReport(t, "rep-2", "job-1"))
	assert.ErrorIs(t, err, maintenance.ErrReportExists)
}

func TestSQLite_GetReportByJob_NilWhenAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")
	seedJob(t, s, "job-1", maintenance.StatusCompleted, time.Now().UTC())

	report, err := s.GetReportByJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, report)

	require.NoError(t, s.SaveReport(ctx, sampleReport(t, "rep-1", "job-1")))
	report, err = s.GetReportByJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, maintenance.ReportID("rep-1"), report.ID)
}

func TestSQLite_ListReportsByEquipment_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")
	seedJob(t, s, "job-1", maintenance.StatusCompleted, time.Now().UTC())
	seedJob(t, s, "job-2", maintenance.StatusCompleted, time.Now().UTC())

	older := sampleReport(t, "rep-1", "job-1")
	newer := sampleReport(t, "rep-2", "job-2")
	newer.CreatedAt = older.CreatedAt.Add(48 * time.Hour)
	require.NoError(t, s.SaveReport(ctx, older))
	require.NoError(t, s.SaveReport(ctx, newer))

	reports, err := s.ListReportsByEquipment(ctx, "gen-1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, maintenance.ReportID("rep-2"), reports[0].ID)
	assert.Equal(t, maintenance.ReportID("rep-1"), reports[1].ID)
}

func TestSQLite_Attachments_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedEquipment(t, s, "gen-1", "1200")
	seedJob(t, s, "job-1", maintenance.StatusCompleted, time.Now().UTC())
	require.NoError(t, s.SaveReport(ctx, sampleReport(t, "rep-1", "job-1")))

	uploaded := time.Date(2025, time.June, 10, 11, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendAttachment(ctx, maintenance.Attachment{
		ID:         "att-1",
		ReportID:   "rep-1",
		FileName:   "panel.jpg",
		Data:       []byte{0xFF, 0xD8, 0x01},
		UploadedAt: uploaded,
	}))

	err := s.AppendAttachment(ctx, maintenance.Attachment{
		ID:       "att-2",
		ReportID: "rep-missing",
		FileName: "x.jpg",
		Data:     []byte{0x01},
	})
	assert.ErrorIs(t, err, maintenance.ErrReportNotFound)

	atts, err := s.ListAttachments(ctx, "rep-1")
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, "panel.jpg", atts[0].FileName)
	assert.Equal(t, []byte{0xFF, 0xD8, 0x01}, atts[0].Data)
}
