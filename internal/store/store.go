// Package store provides SQL-backed persistence for the task board: employee
// metadata, daily logs, the audit trail and a local task book.
//
// SQLite (modernc.org/sqlite) is the default; Postgres is reached through
// lib/pq. Queries are written with '?' placeholders and rebound for Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/fentz26/taskboard/internal/models"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrEmptyName is returned when a write names no employee.
var ErrEmptyName = errors.New("employee name is required")

// ErrEmptyDate is returned when a log or task write names no date.
var ErrEmptyDate = errors.New("task date is required")

// Store provides access to the task board database.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// New creates a SQLite-backed Store at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open(DriverSQLite, dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return open(db, DriverSQLite)
}

// Open creates a Store for the named driver. For sqlite the dsn is a file path.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "", DriverSQLite:
		return New(dsn)
	case DriverPostgres:
		db, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
		return open(db, DriverPostgres)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func open(db *sql.DB, driver string) (*Store, error) {
	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Driver returns the name of the underlying database driver.
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations. Timestamps are stored as
// RFC 3339 text so both drivers read them back identically.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name_key TEXT NOT NULL UNIQUE,
		employee_id TEXT NOT NULL DEFAULT '',
		employee_name TEXT NOT NULL,
		project_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT
	);

	CREATE TABLE IF NOT EXISTS daily_logs (
		id TEXT PRIMARY KEY,
		name_key TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		task_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (name_key, task_date)
	);

	CREATE TABLE IF NOT EXISTS audit (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		employee TEXT,
		details TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_rows (
		id TEXT PRIMARY KEY,
		group_name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (group_name, name_key)
	);

	CREATE TABLE IF NOT EXISTS task_columns (
		task_date TEXT PRIMARY KEY,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_days (
		row_id TEXT NOT NULL REFERENCES task_rows(id),
		task_date TEXT NOT NULL,
		tasks TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (row_id, task_date)
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// rebind rewrites '?' placeholders to the driver's positional form.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) timestamp() string {
	return formatTime(s.now())
}

// timeLayout is fixed-width so timestamp columns sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}

// --- Employee Metadata ---

// UpsertMetadata creates or updates an employee's metadata, keyed by the
// normalized name. An existing row keeps its created_at and display name.
func (s *Store) UpsertMetadata(ctx context.Context, req models.MetadataRequest) (*models.EmployeeMetadata, error) {
	name := strings.TrimSpace(req.EmployeeName)
	if name == "" {
		return nil, ErrEmptyName
	}
	key := models.NameKey(name)

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO employees (id, name_key, employee_id, employee_name, project_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL)
		 ON CONFLICT (name_key) DO UPDATE SET
			employee_id = excluded.employee_id,
			project_name = excluded.project_name,
			updated_at = excluded.created_at`),
		uuid.New().String(), key, strings.TrimSpace(req.EmployeeID), name, strings.TrimSpace(req.ProjectName), s.timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert metadata: %w", err)
	}
	return s.getMetadata(ctx, key)
}

// GetMetadata returns the metadata for an employee, or nil if there is none.
func (s *Store) GetMetadata(ctx context.Context, name string) (*models.EmployeeMetadata, error) {
	return s.getMetadata(ctx, models.NameKey(name))
}

func (s *Store) getMetadata(ctx context.Context, key string) (*models.EmployeeMetadata, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, employee_id, employee_name, project_name, created_at, updated_at FROM employees WHERE name_key = ?`),
		key,
	)
	m, err := scanMetadata(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	return m, nil
}

// ListMetadata returns all employee metadata in creation order.
func (s *Store) ListMetadata(ctx context.Context) ([]models.EmployeeMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, employee_id, employee_name, project_name, created_at, updated_at FROM employees ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	out := []models.EmployeeMetadata{}
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMetadata(row scanner) (*models.EmployeeMetadata, error) {
	var (
		m       models.EmployeeMetadata
		created string
		updated sql.NullString
	)
	if err := row.Scan(&m.ID, &m.EmployeeID, &m.EmployeeName, &m.ProjectName, &created, &updated); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = t
	if updated.Valid && updated.String != "" {
		u, err := parseTime(updated.String)
		if err != nil {
			return nil, err
		}
		m.UpdatedAt = &u
	}
	return &m, nil
}

// --- Daily Logs ---

// TouchLog records that an employee's task set for date was written. The first
// touch creates the row; later touches only refresh updated_at.
func (s *Store) TouchLog(ctx context.Context, name string, date models.DayLabel) (*models.DailyLog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	label := strings.TrimSpace(string(date))
	if label == "" {
		return nil, ErrEmptyDate
	}
	key := models.NameKey(name)
	now := s.timestamp()

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO daily_logs (id, name_key, employee_name, task_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name_key, task_date) DO UPDATE SET updated_at = excluded.updated_at`),
		uuid.New().String(), key, name, label, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert daily log: %w", err)
	}

	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT employee_name, task_date, created_at, updated_at FROM daily_logs WHERE name_key = ? AND task_date = ?`),
		key, label,
	)
	l, err := scanLog(row)
	if err != nil {
		return nil, fmt.Errorf("query daily log: %w", err)
	}
	return l, nil
}

// ListLogs returns all daily logs in creation order.
func (s *Store) ListLogs(ctx context.Context) ([]models.DailyLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT employee_name, task_date, created_at, updated_at FROM daily_logs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query daily logs: %w", err)
	}
	defer rows.Close()

	out := []models.DailyLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanLog(row scanner) (*models.DailyLog, error) {
	var (
		l                models.DailyLog
		date             string
		created, updated string
	)
	if err := row.Scan(&l.EmployeeName, &date, &created, &updated); err != nil {
		return nil, err
	}
	l.TaskDate = models.DayLabel(date)
	var err error
	if l.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &l, nil
}

// --- Audit ---

// WriteAudit records a state-mutating action.
func (s *Store) WriteAudit(ctx context.Context, action, inputsHash, outcome, employee, details string) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		Employee:   employee,
		Details:    details,
		Timestamp:  s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO audit (id, action, inputs_hash, outcome, employee, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome, entry.Employee, entry.Details, formatTime(entry.Timestamp),
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

// ListAudit returns the most recent audit entries, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, action, inputs_hash, outcome, employee, details, timestamp FROM audit ORDER BY timestamp DESC, id LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			e                 models.AuditEntry
			employee, details sql.NullString
			ts                string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &employee, &details, &ts); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Employee = employee.String
		e.Details = details.String
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
