package maintenance_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltano/fieldservice/maintenance"
	"github.com/voltano/fieldservice/maintenance/store"
)

// =============================================================================
// FIXTURE
// =============================================================================

type assemblerFixture struct {
	assembler *maintenance.Assembler
	lifecycle *maintenance.Lifecycle
	mem       *store.Memory
	clock     *fakeClock
}

// newAssemblerFixture seeds one generator at 1200h, an oil filter item with
// stock, and one in-progress job against the generator.
func newAssemblerFixture(t *testing.T) *assemblerFixture {
	t.Helper()

	mem := store.NewMemory()
	clock := newTestClock()
	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx := context.Background()
	require.NoError(t, mem.SaveEquipment(ctx, maintenance.Equipment{
		ID:        "gen-1",
		Name:      "GEN-150kVA",
		Status:    maintenance.EquipmentRented,
		Horimeter: hours(t, "1200"),
	}))
	require.NoError(t, mem.SaveItem(ctx, oilFilter()))
	require.NoError(t, mem.SaveItem(ctx, fuelFilter()))
	require.NoError(t, mem.CreateJob(ctx, scheduledJob("job-1")))

	lc := maintenance.NewLifecycle(mem, clock)
	_, err := lc.Start(ctx, "job-1")
	require.NoError(t, err)
	clock.advance(2 * time.Hour)

	return &assemblerFixture{
		assembler: maintenance.NewAssembler(mem, mem, mem, mem, clock, log),
		lifecycle: lc,
		mem:       mem,
		clock:     clock,
	}
}

func validInput() maintenance.ReportInput {
	return maintenance.ReportInput{
		JobID:          "job-1",
		Description:    "Preventive maintenance, oil and filter change.",
		SelectedChecks: []string{"oil_change", "coolant_level"},
		ChecklistValues: map[string]string{
			"horimeter":    "1250",
			"coolant_temp": "82",
		},
		Parts: []maintenance.PartUsageLine{
			{ItemID: "item-oil-filter", Name: "Oil filter", UnitPrice: maintenance.MustParseMoney("45.90"), Quantity: 2},
		},
		TechnicianSignature: []byte("tech-sig"),
		CustomerSignature:   []byte("customer-sig"),
		Photos: []maintenance.PhotoInput{
			{FileName: "panel.jpg", Data: []byte{0xFF, 0xD8}},
			{FileName: "engine.jpg", Data: []byte{0xFF, 0xD8}},
		},
	}
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestAssembler_FinishAndReport_HappyPath(t *testing.T) {
	// GIVEN: An in-progress job with valid checklist, parts, and signatures
	// WHEN: The report is filed
	// THEN: Job completes, the report freezes totals, and all follow-up
	//       effects land: attachments, meter advance, stock decrement

	f := newAssemblerFixture(t)
	ctx := context.Background()

	outcome, err := f.assembler.FinishAndReport(ctx, validInput())
	require.NoError(t, err)
	require.Empty(t, outcome.AttachmentFailures)
	require.Empty(t, outcome.EffectErrors)

	report := outcome.Report
	assert.Equal(t, maintenance.JobID("job-1"), report.JobID)
	assert.Equal(t, "91.80", report.PartsTotal.String())
	assert.Equal(t, int64(7200), report.DurationSeconds)
	assert.Equal(t, "1250", report.Checklist.Horimeter.String())

	job, err := f.mem.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusCompleted, job.Status)

	eq, err := f.mem.GetEquipment(ctx, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "1250", eq.Horimeter.String())

	item, err := f.mem.GetItem(ctx, "item-oil-filter")
	require.NoError(t, err)
	assert.Equal(t, 8, item.Stock)

	atts, err := f.mem.ListAttachments(ctx, report.ID)
	require.NoError(t, err)
	assert.Len(t, atts, 2)
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestAssembler_MissingDescription_NoReport(t *testing.T) {
	f := newAssemblerFixture(t)
	in := validInput()
	in.Description = "   "

	_, err := f.assembler.FinishAndReport(context.Background(), in)
	assert.ErrorIs(t, err, maintenance.ErrMissingDescription)

	// The job finished anyway; the failure is in report validation.
	job, err := f.mem.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusCompleted, job.Status)

	report, err := f.mem.GetReportByJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestAssembler_PreconditionOrder_DescriptionBeforeChecklist(t *testing.T) {
	// Both the description and the checklist are invalid; the description
	// check runs first, so that is the error reported.
	f := newAssemblerFixture(t)
	in := validInput()
	in.Description = ""
	in.SelectedChecks = []string{"flux_capacitor"}

	_, err := f.assembler.FinishAndReport(context.Background(), in)
	assert.ErrorIs(t, err, maintenance.ErrMissingDescription)
}

func TestAssembler_UnknownChecklistKey_NoReport(t *testing.T) {
	f := newAssemblerFixture(t)
	in := validInput()
	in.SelectedChecks = append(in.SelectedChecks, "flux_capacitor")

	_, err := f.assembler.FinishAndReport(context.Background(), in)
	assert.ErrorIs(t, err, maintenance.ErrUnknownChecklistKey)
}

func TestAssembler_MeterRegression_NoReport(t *testing.T) {
	// The commit-time meter check runs against a fresh equipment read.
	f := newAssemblerFixture(t)
	in := validInput()
	in.ChecklistValues["horimeter"] = "1100"

	_, err := f.assembler.FinishAndReport(context.Background(), in)
	assert.ErrorIs(t, err, maintenance.ErrMeterRegression)

	// The meter itself is untouched.
	eq, err := f.mem.GetEquipment(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "1200", eq.Horimeter.String())
}

func TestAssembler_MissingSignatures_RoleSpecific(t *testing.T) {
	f := newAssemblerFixture(t)
	in := validInput()
	in.TechnicianSignature = nil

	_, err := f.assembler.FinishAndReport(context.Background(), in)
	assert.ErrorIs(t, err, maintenance.ErrMissingSignature)
	var sigErr *maintenance.MissingSignatureError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, maintenance.RoleTechnician, sigErr.Role)

	in = validInput()
	in.CustomerSignature = []byte{}
	_, err = f.assembler.FinishAndReport(context.Background(), in)
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, maintenance.RoleCustomer, sigErr.Role)
}

// =============================================================================
// STATE GUARDS AND RE-ENTRY
// =============================================================================

func TestAssembler_ScheduledJob_Rejected(t *testing.T) {
	f := newAssemblerFixture(t)
	require.NoError(t, f.mem.CreateJob(context.Background(), scheduledJob("job-2")))

	in := validInput()
	in.JobID = "job-2"
	_, err := f.assembler.FinishAndReport(context.Background(), in)
	assert.ErrorIs(t, err, maintenance.ErrInvalidTransition)
}

func TestAssembler_CancelledJob_Rejected(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()
	_, err := f.lifecycle.Cancel(ctx, "job-1")
	require.NoError(t, err)

	_, err = f.assembler.FinishAndReport(ctx, validInput())
	assert.ErrorIs(t, err, maintenance.ErrInvalidTransition)
}

func TestAssembler_ReEntry_AfterFailedValidation(t *testing.T) {
	// GIVEN: A first submission that finished the job but failed validation
	// WHEN: The technician resubmits with the problem fixed
	// THEN: Assembly re-enters past the finish step and the report commits

	f := newAssemblerFixture(t)
	ctx := context.Background()

	bad := validInput()
	bad.Description = ""
	_, err := f.assembler.FinishAndReport(ctx, bad)
	require.ErrorIs(t, err, maintenance.ErrMissingDescription)

	outcome, err := f.assembler.FinishAndReport(ctx, validInput())
	require.NoError(t, err)
	assert.NotNil(t, outcome.Report)

	// Check-in/check-out come from the lifecycle stamps of the original
	// finish, not from resubmission time.
	assert.Equal(t, int64(7200), outcome.Report.DurationSeconds)
}

func TestAssembler_SecondReport_Rejected(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	_, err := f.assembler.FinishAndReport(ctx, validInput())
	require.NoError(t, err)

	_, err = f.assembler.FinishAndReport(ctx, validInput())
	assert.ErrorIs(t, err, maintenance.ErrReportExists)
}

// =============================================================================
// FOLLOW-UP EFFECTS - failures after the report row exists never abort it
// =============================================================================

func TestAssembler_AttachmentFailure_DoesNotAbort(t *testing.T) {
	// GIVEN: One photo destined to fail upload
	// WHEN: Filing the report
	// THEN: The report commits, the failure is reported per file, and the
	//       other photo still lands

	f := newAssemblerFixture(t)
	f.mem.FailAttachments = map[string]error{"panel.jpg": errors.New("blob store unavailable")}

	outcome, err := f.assembler.FinishAndReport(context.Background(), validInput())
	require.NoError(t, err)

	require.Len(t, outcome.AttachmentFailures, 1)
	assert.Equal(t, "panel.jpg", outcome.AttachmentFailures[0].FileName)

	atts, err := f.mem.ListAttachments(context.Background(), outcome.Report.ID)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, "engine.jpg", atts[0].FileName)
}

func TestAssembler_StockUnderrun_CollectedNotFatal(t *testing.T) {
	// GIVEN: A part line consuming more than the stored stock
	// WHEN: Filing the report
	// THEN: The report commits and the decrement failure is collected

	f := newAssemblerFixture(t)
	in := validInput()
	in.Parts = []maintenance.PartUsageLine{
		{ItemID: "item-fuel-filter", Name: "Fuel filter", UnitPrice: maintenance.MustParseMoney("62.00"), Quantity: 99},
	}

	outcome, err := f.assembler.FinishAndReport(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, outcome.EffectErrors, 1)
	assert.ErrorIs(t, outcome.EffectErrors[0], maintenance.ErrInsufficientStock)

	// Stock is unchanged rather than clamped.
	item, err := f.mem.GetItem(context.Background(), "item-fuel-filter")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Stock)
}

func TestAssembler_WearParts_AccrueAndReset(t *testing.T) {
	// GIVEN: Two wear parts, one linked to the consumed oil filter
	// WHEN: A report consumes the oil filter and advances the meter by 50h
	// THEN: The linked counter resets to zero, the other accrues 50h

	f := newAssemblerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.AddWearPart(ctx, maintenance.WearPart{
		ID:            "wp-oil",
		EquipmentID:   "gen-1",
		Name:          "Oil filter",
		ItemID:        "item-oil-filter",
		IntervalHours: hours(t, "250"),
		AccruedHours:  hours(t, "230"),
	}))
	require.NoError(t, f.mem.AddWearPart(ctx, maintenance.WearPart{
		ID:            "wp-belt",
		EquipmentID:   "gen-1",
		Name:          "Alternator belt",
		IntervalHours: hours(t, "1000"),
		AccruedHours:  hours(t, "400"),
	}))

	_, err := f.assembler.FinishAndReport(ctx, validInput())
	require.NoError(t, err)

	parts, err := f.mem.ListWearParts(ctx, "gen-1")
	require.NoError(t, err)
	byID := map[string]maintenance.WearPart{}
	for _, p := range parts {
		byID[p.ID] = p
	}
	assert.True(t, byID["wp-oil"].AccruedHours.IsZero())
	assert.Equal(t, "450", byID["wp-belt"].AccruedHours.String())
	assert.False(t, byID["wp-belt"].Due())
}

// =============================================================================
// FOLLOW-UP ATTACHMENT WINDOW
// =============================================================================

func TestAssembler_AppendAttachment_WithinWindow(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	outcome, err := f.assembler.FinishAndReport(ctx, validInput())
	require.NoError(t, err)

	f.clock.advance(23 * time.Hour)
	att, err := f.assembler.AppendAttachment(ctx, outcome.Report.ID, maintenance.PhotoInput{
		FileName: "late.jpg",
		Data:     []byte{0x01},
	})
	require.NoError(t, err)
	assert.Equal(t, "late.jpg", att.FileName)

	atts, err := f.mem.ListAttachments(ctx, outcome.Report.ID)
	require.NoError(t, err)
	assert.Len(t, atts, 3)
}

func TestAssembler_AppendAttachment_WindowClosed(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	outcome, err := f.assembler.FinishAndReport(ctx, validInput())
	require.NoError(t, err)

	f.clock.advance(25 * time.Hour)
	_, err = f.assembler.AppendAttachment(ctx, outcome.Report.ID, maintenance.PhotoInput{
		FileName: "too-late.jpg",
		Data:     []byte{0x01},
	})
	assert.ErrorIs(t, err, maintenance.ErrAttachmentWindowClosed)
}

func TestAssembler_AppendAttachment_UnknownReport(t *testing.T) {
	f := newAssemblerFixture(t)
	_, err := f.assembler.AppendAttachment(context.Background(), "nope", maintenance.PhotoInput{
		FileName: "x.jpg",
		Data:     []byte{0x01},
	})
	assert.ErrorIs(t, err, maintenance.ErrReportNotFound)
}
