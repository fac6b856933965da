/*
Package maintenance provides the core field-service engine for generator
equipment.

PURPOSE:
  This package contains the domain types and algorithms for one maintenance
  visit: the attendance lifecycle (scheduled -> in progress -> completed),
  the on-site checklist, the parts-usage ledger, and the assembly of the
  final immutable maintenance report with its dual signatures.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary amount backed by decimal.Decimal
  - Hours: A horimeter (running-hours) reading, fractional hours allowed
  - MaintenanceJob: One scheduled visit with lifecycle timestamps
  - Equipment: A generator with its current horimeter and wear parts
  - MaintenanceReport: The immutable artifact produced after a visit

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for money and meter readings, no float drift
  2. Type Safety: Strong typing for IDs prevents mixing job/equipment IDs
  3. Immutability: Reports are never mutated after creation; only
     attachments may be appended, inside a bounded follow-up window
  4. Explicit state: Job status transitions go through the Lifecycle
     service, never through direct field writes

SEE ALSO:
  - job.go: Attendance state machine
  - checklist.go: Checklist catalogs and normalization
  - parts.go: Parts-usage ledger
  - report.go: Report assembly
  - store.go: Persistence interfaces
*/
package maintenance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type JobID string
type EquipmentID string
type TechnicianID string
type CustomerID string
type ItemID string
type ReportID string
type AttachmentID string

// =============================================================================
// MONEY - Monetary amount with exact arithmetic
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money       { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money  { return Money{Value: decimal.NewFromInt(value)} }
func ZeroMoney() Money                   { return Money{Value: decimal.Zero} }

// ParseMoney parses a user-supplied price. Negative prices are rejected.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money value %q: %w", s, err)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("negative money value %q", s)
	}
	return Money{Value: d}, nil
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(b Money) Money          { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) MulInt(n int) Money         { return Money{Value: m.Value.Mul(decimal.NewFromInt(int64(n)))} }
func (m Money) Equal(b Money) bool         { return m.Value.Equal(b.Value) }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) String() string             { return m.Value.StringFixed(2) }

// =============================================================================
// HOURS - Horimeter reading (cumulative running hours)
// =============================================================================

// Hours is a cumulative running-hours meter value. Fractional hours are
// allowed; comparisons are exact decimal comparisons with no epsilon.
type Hours struct {
	Value decimal.Decimal
}

func NewHours(value float64) Hours { return Hours{Value: decimal.NewFromFloat(value)} }
func ZeroHours() Hours             { return Hours{Value: decimal.Zero} }

// ParseHours parses a user-supplied meter reading.
// Rejects unparsable and negative values.
func ParseHours(s string) (Hours, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Hours{}, ErrInvalidMeterReading
	}
	if d.IsNegative() {
		return Hours{}, ErrInvalidMeterReading
	}
	return Hours{Value: d}, nil
}

func (h Hours) Sub(b Hours) Hours            { return Hours{Value: h.Value.Sub(b.Value)} }
func (h Hours) Add(b Hours) Hours            { return Hours{Value: h.Value.Add(b.Value)} }
func (h Hours) LessThan(b Hours) bool        { return h.Value.LessThan(b.Value) }
func (h Hours) GreaterOrEqual(b Hours) bool  { return h.Value.GreaterThanOrEqual(b.Value) }
func (h Hours) Equal(b Hours) bool           { return h.Value.Equal(b.Value) }
func (h Hours) IsZero() bool                 { return h.Value.IsZero() }
func (h Hours) String() string               { return h.Value.String() }

// =============================================================================
// JOB STATUS - Attendance lifecycle states
// =============================================================================

type JobStatus string

const (
	StatusScheduled  JobStatus = "scheduled"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusCancelled  JobStatus = "cancelled" // terminal, absorbing
)

// MaintenanceJob identifies one scheduled visit against one equipment unit.
// Status and timestamps are mutated only by the Lifecycle service.
type MaintenanceJob struct {
	ID           JobID
	EquipmentID  EquipmentID
	TechnicianID TechnicianID
	CustomerID   CustomerID
	Status       JobStatus
	ScheduledFor time.Time

	// Set by Start / Finish. DurationSeconds is derived on Finish.
	StartedAt       *time.Time
	FinishedAt      *time.Time
	DurationSeconds *int64

	CreatedAt time.Time
}

// =============================================================================
// EQUIPMENT - Generator record with horimeter and wear-part tracking
// =============================================================================

type EquipmentStatus string

const (
	EquipmentAvailable     EquipmentStatus = "available"
	EquipmentRented        EquipmentStatus = "rented"
	EquipmentInMaintenance EquipmentStatus = "in_maintenance"
	EquipmentSold          EquipmentStatus = "sold"
	EquipmentThirdParty    EquipmentStatus = "third_party"
)

type Equipment struct {
	ID         EquipmentID
	Name       string
	Location   string
	Status     EquipmentStatus
	Horimeter  Hours
	CustomerID CustomerID // required when Status is sold
	CreatedAt  time.Time
}

// WearPart tracks one consumable on a generator: how many running hours it
// has accumulated since its last replacement, against a replacement interval.
// AccruedHours advances with the horimeter; it resets to zero when a report
// consumes the linked inventory item.
type WearPart struct {
	ID            string
	EquipmentID   EquipmentID
	Name          string
	ItemID        ItemID // optional link to an inventory item
	IntervalHours Hours
	AccruedHours  Hours
}

// Due reports whether the part has reached its replacement interval.
func (w WearPart) Due() bool {
	return !w.IntervalHours.IsZero() && w.AccruedHours.GreaterOrEqual(w.IntervalHours)
}

// =============================================================================
// INVENTORY
// =============================================================================

type InventoryItem struct {
	ID        ItemID
	Name      string
	UnitPrice Money
	Stock     int
}

// PartUsageLine is one inventory item consumed on a job. The unit price is
// captured at the time the part is added, not at report time.
type PartUsageLine struct {
	ItemID    ItemID
	Name      string
	UnitPrice Money
	Quantity  int // never < 1
}

func (l PartUsageLine) LineTotal() Money { return l.UnitPrice.MulInt(l.Quantity) }

// =============================================================================
// SIGNATURES
// =============================================================================

type SignatureRole string

const (
	RoleTechnician SignatureRole = "technician"
	RoleCustomer   SignatureRole = "customer"
)

// =============================================================================
// MAINTENANCE REPORT - Immutable artifact of a completed visit
// =============================================================================

// MaintenanceReport is constructed only by the Assembler once every
// precondition holds. Core fields are frozen after creation; attachments
// may be appended within the assembler's follow-up window.
type MaintenanceReport struct {
	ID          ReportID
	JobID       JobID
	EquipmentID EquipmentID
	Description string

	Parts      []PartUsageLine
	PartsTotal Money
	Checklist  ChecklistReport

	TechnicianSignature []byte
	CustomerSignature   []byte

	CheckIn         time.Time
	CheckOut        time.Time
	DurationSeconds int64

	CreatedAt time.Time
}

// Attachment is an opaque photo blob appended to a report.
type Attachment struct {
	ID         AttachmentID
	ReportID   ReportID
	FileName   string
	Data       []byte
	UploadedAt time.Time
}

// =============================================================================
// CLOCK - Injectable time source for deterministic lifecycle tests
// =============================================================================

type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
