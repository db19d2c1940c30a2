package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fentz26/taskboard/internal/models"
)

// The task book mirrors the spreadsheet layout: one row per employee per
// group, one column per date. Column positions grow as new dates are written,
// so "newest first" means highest position first.

// ListHistories returns every employee row with at most window non-empty
// days, newest first, sorted by employee name. A window of zero or less
// returns every day.
func (s *Store) ListHistories(ctx context.Context, window int) ([]models.EmployeeHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.group_name, r.employee_name, d.task_date, d.tasks
		 FROM task_rows r
		 LEFT JOIN task_days d ON d.row_id = r.id
		 LEFT JOIN task_columns c ON c.task_date = d.task_date
		 ORDER BY r.created_at, r.id, c.position DESC`)
	if err != nil {
		return nil, fmt.Errorf("query task book: %w", err)
	}
	defer rows.Close()

	var (
		order []string
		byRow = map[string]*models.EmployeeHistory{}
	)
	for rows.Next() {
		var (
			id, group, name string
			date, tasks     sql.NullString
		)
		if err := rows.Scan(&id, &group, &name, &date, &tasks); err != nil {
			return nil, fmt.Errorf("scan task book: %w", err)
		}
		h, ok := byRow[id]
		if !ok {
			h = &models.EmployeeHistory{
				EmployeeName: name,
				Group:        models.Group(group),
				History:      []models.DayRecord{},
			}
			byRow[id] = h
			order = append(order, id)
		}
		if !date.Valid || (window > 0 && len(h.History) >= window) {
			continue
		}
		day, err := decodeDay(models.DayLabel(date.String), tasks.String)
		if err != nil {
			return nil, err
		}
		if day.Len() > 0 {
			h.History = append(h.History, day)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.EmployeeHistory, 0, len(order))
	for _, id := range order {
		out = append(out, *byRow[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EmployeeName < out[j].EmployeeName
	})
	return out, nil
}

// GetHistory returns the full history of one employee across all groups. The
// display name and group come from the first group holding the employee. It
// returns nil when the employee has no row.
func (s *Store) GetHistory(ctx context.Context, name string) (*models.EmployeeHistory, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT r.group_name, r.employee_name, d.task_date, d.tasks
		 FROM task_rows r
		 LEFT JOIN task_days d ON d.row_id = r.id
		 LEFT JOIN task_columns c ON c.task_date = d.task_date
		 WHERE r.name_key = ?
		 ORDER BY c.position DESC`),
		models.NameKey(name),
	)
	if err != nil {
		return nil, fmt.Errorf("query task book: %w", err)
	}
	defer rows.Close()

	type groupDays struct {
		name string
		days []models.DayRecord
	}
	found := map[models.Group]*groupDays{}
	for rows.Next() {
		var (
			group, display string
			date, tasks    sql.NullString
		)
		if err := rows.Scan(&group, &display, &date, &tasks); err != nil {
			return nil, fmt.Errorf("scan task book: %w", err)
		}
		g := models.Group(group)
		gd, ok := found[g]
		if !ok {
			gd = &groupDays{name: display}
			found[g] = gd
		}
		if !date.Valid {
			continue
		}
		day, err := decodeDay(models.DayLabel(date.String), tasks.String)
		if err != nil {
			return nil, err
		}
		if day.Len() > 0 {
			gd.days = append(gd.days, day)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}

	var h *models.EmployeeHistory
	for _, g := range models.Groups {
		gd, ok := found[g]
		if !ok {
			continue
		}
		if h == nil {
			h = &models.EmployeeHistory{EmployeeName: gd.name, Group: g, History: []models.DayRecord{}}
		}
		h.History = append(h.History, gd.days...)
	}
	return h, nil
}

// WriteDay merges items into an employee's cell for date in the given group.
// The employee row and the date column are created on first use.
func (s *Store) WriteDay(ctx context.Context, group models.Group, employee string, date models.DayLabel, items []models.TaskItem) error {
	employee = strings.TrimSpace(employee)
	if employee == "" {
		return ErrEmptyName
	}
	label := strings.TrimSpace(string(date))
	if label == "" {
		return ErrEmptyDate
	}
	if group == "" {
		group = models.DefaultGroup
	}
	now := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rowID string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM task_rows WHERE group_name = ? AND name_key = ?`),
		string(group), models.NameKey(employee),
	).Scan(&rowID)
	if err == sql.ErrNoRows {
		rowID = uuid.New().String()
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO task_rows (id, group_name, name_key, employee_name, created_at) VALUES (?, ?, ?, ?, ?)`),
			rowID, string(group), models.NameKey(employee), employee, now,
		)
		if err != nil {
			return fmt.Errorf("insert employee row: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("query employee row: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO task_columns (task_date, position)
		 VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM task_columns))
		 ON CONFLICT (task_date) DO NOTHING`),
		label,
	)
	if err != nil {
		return fmt.Errorf("insert date column: %w", err)
	}

	var existing []models.TaskItem
	var raw string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT tasks FROM task_days WHERE row_id = ? AND task_date = ?`),
		rowID, label,
	).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("query task cell: %w", err)
	default:
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return fmt.Errorf("decode task cell: %w", err)
		}
	}

	merged, err := json.Marshal(models.MergeTaskItems(existing, items))
	if err != nil {
		return fmt.Errorf("encode task cell: %w", err)
	}
	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO task_days (row_id, task_date, tasks, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (row_id, task_date) DO UPDATE SET tasks = excluded.tasks, updated_at = excluded.updated_at`),
		rowID, label, string(merged), now,
	)
	if err != nil {
		return fmt.Errorf("upsert task cell: %w", err)
	}

	return tx.Commit()
}

func decodeDay(date models.DayLabel, raw string) (models.DayRecord, error) {
	var items []models.TaskItem
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return models.DayRecord{}, fmt.Errorf("decode task cell %q: %w", date, err)
		}
	}
	return models.DayFromItems(date, items), nil
}
