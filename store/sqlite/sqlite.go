/*
Package sqlite provides a SQLite-backed implementation of the maintenance
storage interfaces.

PURPOSE:
  Implements JobStore, EquipmentStore, InventoryStore, and ReportStore using
  SQLite. In production, the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

CONDITIONAL WRITE ENFORCEMENT:
  Lifecycle guards live in the SQL itself, not in the caller:
  - UpdateJobStatus:  UPDATE ... WHERE id = ? AND status = ?
  - AdjustStock:      UPDATE ... WHERE id = ? AND stock + delta >= 0
  - AdvanceMeter:     read + guard + write under the store lock in one
                      transaction (wear-part accrual rides along)
  Zero rows affected distinguishes a lost race from a missing row.

REPORT IMMUTABILITY:
  There is no UPDATE statement touching the reports table. A unique index
  on job_id rejects a second report for the same job. Attachments are
  insert-only.

KEY TABLES:
  equipment, wear_parts, inventory_items, jobs, reports, attachments.
  Checklist and parts snapshots are stored as JSON columns on reports;
  they are written once and read back whole, never queried into.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/fieldservice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - maintenance/store.go: Interface definitions
  - maintenance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/voltano/fieldservice/maintenance"
)

// Store implements all maintenance storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS equipment (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT,
		status TEXT NOT NULL,
		horimeter TEXT NOT NULL,
		customer_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wear_parts (
		id TEXT PRIMARY KEY,
		equipment_id TEXT NOT NULL REFERENCES equipment(id),
		name TEXT NOT NULL,
		item_id TEXT,
		interval_hours TEXT NOT NULL,
		accrued_hours TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wear_parts_equipment
		ON wear_parts(equipment_id);

	CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		CHECK (stock >= 0)
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		equipment_id TEXT NOT NULL REFERENCES equipment(id),
		technician_id TEXT NOT NULL,
		customer_id TEXT,
		status TEXT NOT NULL,
		scheduled_for TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT,
		duration_seconds INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_scheduled_for
		ON jobs(scheduled_for);
	CREATE INDEX IF NOT EXISTS idx_jobs_equipment
		ON jobs(equipment_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_status
		ON jobs(status);

	-- Reports are append-only. One report per job, enforced here.
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id),
		equipment_id TEXT NOT NULL,
		description TEXT NOT NULL,
		parts_json TEXT NOT NULL,
		parts_total TEXT NOT NULL,
		checklist_json TEXT NOT NULL,
		technician_signature BLOB NOT NULL,
		customer_signature BLOB NOT NULL,
		check_in TEXT NOT NULL,
		check_out TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_job
		ON reports(job_id);
	CREATE INDEX IF NOT EXISTS idx_reports_equipment
		ON reports(equipment_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL REFERENCES reports(id),
		file_name TEXT NOT NULL,
		data BLOB NOT NULL,
		uploaded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attachments_report
		ON attachments(report_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// JOB STORE (maintenance.JobStore interface)
// =============================================================================

func (s *Store) CreateJob(ctx context.Context, job maintenance.MaintenanceJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO jobs
		(id, equipment_id, technician_id, customer_id, status, scheduled_for,
		 started_at, finished_at, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.EquipmentID,
		job.TechnicianID,
		job.CustomerID,
		job.Status,
		job.ScheduledFor.UTC().Format(time.RFC3339),
		nullTime(job.StartedAt),
		nullTime(job.FinishedAt),
		nullInt(job.DurationSeconds),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id maintenance.JobID) (*maintenance.MaintenanceJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, equipment_id, technician_id, customer_id, status, scheduled_for,
		       started_at, finished_at, duration_seconds, created_at
		FROM jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, maintenance.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Store) ListJobsBetween(ctx context.Context, from, to time.Time) ([]maintenance.MaintenanceJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, equipment_id, technician_id, customer_id, status, scheduled_for,
		       started_at, finished_at, duration_seconds, created_at
		FROM jobs
		WHERE scheduled_for >= ? AND scheduled_for <= ?
		ORDER BY scheduled_for ASC
	`, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []maintenance.MaintenanceJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus is the conditional lifecycle write. The status guard sits
// in the WHERE clause, so a stale caller loses cleanly instead of clobbering.
func (s *Store) UpdateJobStatus(ctx context.Context, id maintenance.JobID, expect maintenance.JobStatus, update maintenance.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = ?,
			started_at = COALESCE(?, started_at),
			finished_at = COALESCE(?, finished_at),
			duration_seconds = COALESCE(?, duration_seconds)
		WHERE id = ? AND status = ?
	`,
		update.Status,
		nullTime(update.StartedAt),
		nullTime(update.FinishedAt),
		nullInt(update.DurationSeconds),
		id, expect,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE id = ?", id).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return maintenance.ErrJobNotFound
		}
		return maintenance.ErrConcurrentModification
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*maintenance.MaintenanceJob, error) {
	var (
		job          maintenance.MaintenanceJob
		customerID   sql.NullString
		scheduledFor string
		startedAt    sql.NullString
		finishedAt   sql.NullString
		duration     sql.NullInt64
		createdAt    string
	)

	err := row.Scan(
		&job.ID, &job.EquipmentID, &job.TechnicianID, &customerID, &job.Status,
		&scheduledFor, &startedAt, &finishedAt, &duration, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	job.CustomerID = maintenance.CustomerID(customerID.String)
	job.ScheduledFor, _ = time.Parse(time.RFC3339, scheduledFor)
	job.StartedAt = parseNullTime(startedAt)
	job.FinishedAt = parseNullTime(finishedAt)
	if duration.Valid {
		d := duration.Int64
		job.DurationSeconds = &d
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &job, nil
}

// =============================================================================
// EQUIPMENT STORE (maintenance.EquipmentStore interface)
// =============================================================================

func (s *Store) SaveEquipment(ctx context.Context, eq maintenance.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The upsert deliberately does not touch horimeter on conflict: meter
	// writes go through AdvanceMeter only.
	query := `
		INSERT INTO equipment (id, name, location, status, horimeter, customer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			status = excluded.status,
			customer_id = excluded.customer_id
	`
	_, err := s.db.ExecContext(ctx, query,
		eq.ID, eq.Name, eq.Location, eq.Status,
		eq.Horimeter.Value.String(), eq.CustomerID,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetEquipment(ctx context.Context, id maintenance.EquipmentID) (*maintenance.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEquipment(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getEquipment(ctx context.Context, db queryRower, id maintenance.EquipmentID) (*maintenance.Equipment, error) {
	var (
		eq         maintenance.Equipment
		horimeter  string
		customerID sql.NullString
		createdAt  string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, name, location, status, horimeter, customer_id, created_at
		FROM equipment WHERE id = ?
	`, id).Scan(&eq.ID, &eq.Name, &eq.Location, &eq.Status, &horimeter, &customerID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, maintenance.ErrEquipmentNotFound
	}
	if err != nil {
		return nil, err
	}

	eq.Horimeter, _ = maintenance.ParseHours(horimeter)
	eq.CustomerID = maintenance.CustomerID(customerID.String)
	eq.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &eq, nil
}

func (s *Store) ListEquipment(ctx context.Context) ([]maintenance.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location, status, horimeter, customer_id, created_at
		FROM equipment ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment: %w", err)
	}
	defer rows.Close()

	var out []maintenance.Equipment
	for rows.Next() {
		var (
			eq         maintenance.Equipment
			horimeter  string
			customerID sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.Location, &eq.Status, &horimeter, &customerID, &createdAt); err != nil {
			return nil, err
		}
		eq.Horimeter, _ = maintenance.ParseHours(horimeter)
		eq.CustomerID = maintenance.CustomerID(customerID.String)
		eq.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, eq)
	}
	return out, rows.Err()
}

// AdvanceMeter advances the horimeter and accrues wear-part hours in one
// transaction. The monotonicity guard runs against the value read inside
// the transaction, not the caller's possibly stale snapshot.
func (s *Store) AdvanceMeter(ctx context.Context, id maintenance.EquipmentID, proposed maintenance.Hours, replacedItems []maintenance.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stored string
	err = tx.QueryRowContext(ctx, "SELECT horimeter FROM equipment WHERE id = ?", id).Scan(&stored)
	if err == sql.ErrNoRows {
		return maintenance.ErrEquipmentNotFound
	}
	if err != nil {
		return err
	}

	current, err := maintenance.ParseHours(stored)
	if err != nil {
		return fmt.Errorf("corrupt horimeter value for %s: %q", id, stored)
	}
	if proposed.LessThan(current) {
		return &maintenance.MeterRegressionError{EquipmentID: id, Current: current, Proposed: proposed}
	}
	delta := proposed.Sub(current)

	if _, err := tx.ExecContext(ctx,
		"UPDATE equipment SET horimeter = ? WHERE id = ?",
		proposed.Value.String(), id,
	); err != nil {
		return fmt.Errorf("failed to advance horimeter: %w", err)
	}

	replaced := make(map[maintenance.ItemID]bool, len(replacedItems))
	for _, item := range replacedItems {
		replaced[item] = true
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT id, item_id, accrued_hours FROM wear_parts WHERE equipment_id = ?", id)
	if err != nil {
		return err
	}
	type wearUpdate struct {
		partID  string
		accrued string
	}
	var resets []string
	var accruals []wearUpdate
	for rows.Next() {
		var (
			partID  string
			itemID  sql.NullString
			accrued string
		)
		if err := rows.Scan(&partID, &itemID, &accrued); err != nil {
			rows.Close()
			return err
		}
		if itemID.Valid && replaced[maintenance.ItemID(itemID.String)] {
			resets = append(resets, partID)
		} else {
			accruals = append(accruals, wearUpdate{partID: partID, accrued: accrued})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, partID := range resets {
		if _, err := tx.ExecContext(ctx,
			"UPDATE wear_parts SET accrued_hours = '0' WHERE id = ?", partID); err != nil {
			return err
		}
	}
	for _, wu := range accruals {
		hours, err := maintenance.ParseHours(wu.accrued)
		if err != nil {
			hours = maintenance.ZeroHours()
		}
		next := hours.Add(delta)
		if _, err := tx.ExecContext(ctx,
			"UPDATE wear_parts SET accrued_hours = ? WHERE id = ?",
			next.Value.String(), wu.partID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) AddWearPart(ctx context.Context, part maintenance.WearPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := getEquipment(ctx, s.db, part.EquipmentID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wear_parts (id, equipment_id, name, item_id, interval_hours, accrued_hours)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		part.ID, part.EquipmentID, part.Name, nullString(string(part.ItemID)),
		part.IntervalHours.Value.String(), part.AccruedHours.Value.String(),
	)
	return err
}

func (s *Store) ListWearParts(ctx context.Context, id maintenance.EquipmentID) ([]maintenance.WearPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, equipment_id, name, item_id, interval_hours, accrued_hours
		FROM wear_parts WHERE equipment_id = ? ORDER BY name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query wear parts: %w", err)
	}
	defer rows.Close()

	var out []maintenance.WearPart
	for rows.Next() {
		var (
			part     maintenance.WearPart
			itemID   sql.NullString
			interval string
			accrued  string
		)
		if err := rows.Scan(&part.ID, &part.EquipmentID, &part.Name, &itemID, &interval, &accrued); err != nil {
			return nil, err
		}
		part.ItemID = maintenance.ItemID(itemID.String)
		part.IntervalHours, _ = maintenance.ParseHours(interval)
		part.AccruedHours, _ = maintenance.ParseHours(accrued)
		out = append(out, part)
	}
	return out, rows.Err()
}

// =============================================================================
// INVENTORY STORE (maintenance.InventoryStore interface)
// =============================================================================

func (s *Store) SaveItem(ctx context.Context, item maintenance.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, name, unit_price, stock)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			unit_price = excluded.unit_price,
			stock = excluded.stock
	`, item.ID, item.Name, item.UnitPrice.Value.String(), item.Stock)
	return err
}

func (s *Store) GetItem(ctx context.Context, id maintenance.ItemID) (*maintenance.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		item  maintenance.InventoryItem
		price string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, unit_price, stock FROM inventory_items WHERE id = ?", id,
	).Scan(&item.ID, &item.Name, &price, &item.Stock)
	if err == sql.ErrNoRows {
		return nil, maintenance.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	item.UnitPrice = maintenance.MustParseMoney(price)
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context) ([]maintenance.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, unit_price, stock FROM inventory_items ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var out []maintenance.InventoryItem
	for rows.Next() {
		var (
			item  maintenance.InventoryItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.Name, &price, &item.Stock); err != nil {
			return nil, err
		}
		item.UnitPrice = maintenance.MustParseMoney(price)
		out = append(out, item)
	}
	return out, rows.Err()
}

// AdjustStock applies the delta with the non-negative floor in the WHERE
// clause, so concurrent decrements cannot drive stock below zero.
func (s *Store) AdjustStock(ctx context.Context, id maintenance.ItemID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE inventory_items SET stock = stock + ? WHERE id = ? AND stock + ? >= 0",
		delta, id, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory_items WHERE id = ?", id).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return maintenance.ErrItemNotFound
		}
		return maintenance.ErrInsufficientStock
	}
	return nil
}

// =============================================================================
// REPORT STORE (maintenance.ReportStore interface)
// =============================================================================

// partLineJSON and checklistJSON are the storage shapes for the report's
// frozen snapshots. Written once on SaveReport, read back whole.
type partLineJSON struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type checklistJSON struct {
	Selected     []string          `json:"selected"`
	Measurements []measurementJSON `json:"measurements"`
	Horimeter    string            `json:"horimeter"`
}

type measurementJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Store) SaveReport(ctx context.Context, report maintenance.MaintenanceReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	partsJSON, err := json.Marshal(encodeParts(report.Parts))
	if err != nil {
		return err
	}
	clJSON, err := json.Marshal(encodeChecklist(report.Checklist))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports
		(id, job_id, equipment_id, description, parts_json, parts_total,
		 checklist_json, technician_signature, customer_signature,
		 check_in, check_out, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID, report.JobID, report.EquipmentID, report.Description,
		string(partsJSON), report.PartsTotal.Value.String(), string(clJSON),
		report.TechnicianSignature, report.CustomerSignature,
		report.CheckIn.UTC().Format(time.RFC3339),
		report.CheckOut.UTC().Format(time.RFC3339),
		report.DurationSeconds,
		report.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return maintenance.ErrReportExists
		}
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id maintenance.ReportID) (*maintenance.MaintenanceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, err := s.queryOneReport(ctx, "WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, maintenance.ErrReportNotFound
	}
	return report, err
}

func (s *Store) GetReportByJob(ctx context.Context, jobID maintenance.JobID) (*maintenance.MaintenanceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, err := s.queryOneReport(ctx, "WHERE job_id = ?", jobID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return report, err
}

func (s *Store) queryOneReport(ctx context.Context, where string, arg any) (*maintenance.MaintenanceReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, equipment_id, description, parts_json, parts_total,
		       checklist_json, technician_signature, customer_signature,
		       check_in, check_out, duration_seconds, created_at
		FROM reports `+where, arg)
	return scanReport(row)
}

func (s *Store) ListReportsByEquipment(ctx context.Context, id maintenance.EquipmentID) ([]maintenance.MaintenanceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, equipment_id, description, parts_json, parts_total,
		       checklist_json, technician_signature, customer_signature,
		       check_in, check_out, duration_seconds, created_at
		FROM reports WHERE equipment_id = ?
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var out []maintenance.MaintenanceReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *report)
	}
	return out, rows.Err()
}

func scanReport(row rowScanner) (*maintenance.MaintenanceReport, error) {
	var (
		report     maintenance.MaintenanceReport
		partsRaw   string
		partsTotal string
		clRaw      string
		checkIn    string
		checkOut   string
		createdAt  string
	)
	err := row.Scan(
		&report.ID, &report.JobID, &report.EquipmentID, &report.Description,
		&partsRaw, &partsTotal, &clRaw,
		&report.TechnicianSignature, &report.CustomerSignature,
		&checkIn, &checkOut, &report.DurationSeconds, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	var parts []partLineJSON
	if err := json.Unmarshal([]byte(partsRaw), &parts); err != nil {
		return nil, fmt.Errorf("corrupt parts snapshot on report %s: %w", report.ID, err)
	}
	report.Parts = decodeParts(parts)
	report.PartsTotal = maintenance.MustParseMoney(partsTotal)

	var cl checklistJSON
	if err := json.Unmarshal([]byte(clRaw), &cl); err != nil {
		return nil, fmt.Errorf("corrupt checklist snapshot on report %s: %w", report.ID, err)
	}
	report.Checklist = decodeChecklist(cl)

	report.CheckIn, _ = time.Parse(time.RFC3339, checkIn)
	report.CheckOut, _ = time.Parse(time.RFC3339, checkOut)
	report.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &report, nil
}

func (s *Store) AppendAttachment(ctx context.Context, att maintenance.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports WHERE id = ?", att.ReportID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return maintenance.ErrReportNotFound
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, report_id, file_name, data, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
	`, att.ID, att.ReportID, att.FileName, att.Data, att.UploadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

func (s *Store) ListAttachments(ctx context.Context, reportID maintenance.ReportID) ([]maintenance.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, file_name, data, uploaded_at
		FROM attachments WHERE report_id = ? ORDER BY uploaded_at ASC
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var out []maintenance.Attachment
	for rows.Next() {
		var (
			att        maintenance.Attachment
			uploadedAt string
		)
		if err := rows.Scan(&att.ID, &att.ReportID, &att.FileName, &att.Data, &uploadedAt); err != nil {
			return nil, err
		}
		att.UploadedAt, _ = time.Parse(time.RFC3339, uploadedAt)
		out = append(out, att)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func encodeParts(lines []maintenance.PartUsageLine) []partLineJSON {
	out := make([]partLineJSON, len(lines))
	for i, l := range lines {
		out[i] = partLineJSON{
			ItemID:    string(l.ItemID),
			Name:      l.Name,
			UnitPrice: l.UnitPrice.Value.String(),
			Quantity:  l.Quantity,
		}
	}
	return out
}

func decodeParts(lines []partLineJSON) []maintenance.PartUsageLine {
	out := make([]maintenance.PartUsageLine, len(lines))
	for i, l := range lines {
		out[i] = maintenance.PartUsageLine{
			ItemID:    maintenance.ItemID(l.ItemID),
			Name:      l.Name,
			UnitPrice: maintenance.MustParseMoney(l.UnitPrice),
			Quantity:  l.Quantity,
		}
	}
	return out
}

func encodeChecklist(cl maintenance.ChecklistReport) checklistJSON {
	out := checklistJSON{
		Selected:  cl.Selected,
		Horimeter: cl.Horimeter.Value.String(),
	}
	for _, m := range cl.Measurements {
		out.Measurements = append(out.Measurements, measurementJSON{Key: m.Key, Value: m.Value})
	}
	return out
}

func decodeChecklist(cl checklistJSON) maintenance.ChecklistReport {
	out := maintenance.ChecklistReport{Selected: cl.Selected}
	for _, m := range cl.Measurements {
		out.Measurements = append(out.Measurements, maintenance.Measurement{Key: m.Key, Value: m.Value})
	}
	out.Horimeter, _ = maintenance.ParseHours(cl.Horimeter)
	return out
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
