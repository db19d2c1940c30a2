// Package board runs the dashboard's refresh cycle and edit flow.
//
// Session state is an explicit State value: every operation takes the current
// State and returns the next one. After any accepted edit the whole view is
// re-fetched and re-merged rather than patched locally.
package board

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fentz26/taskboard/internal/client"
	"github.com/fentz26/taskboard/internal/daylabel"
	"github.com/fentz26/taskboard/internal/fault"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/reconcile"
	"github.com/fentz26/taskboard/internal/transition"
)

// Source reads the three collections the board is built from.
type Source interface {
	ListHistories(ctx context.Context) ([]models.EmployeeHistory, error)
	GetHistory(ctx context.Context, name string) (*models.EmployeeHistory, error)
	ListMetadata(ctx context.Context) ([]models.EmployeeMetadata, error)
	ListLogs(ctx context.Context) ([]models.DailyLog, error)
}

// API is everything the board needs from the task board service.
type API interface {
	Source
	transition.Writer
}

// Selection is the task currently opened for editing.
type Selection struct {
	Employee string
	Group    models.Group
	Day      models.DayLabel
	TaskText string
	Bucket   models.TaskBucket
}

// State is one session's view of the board.
type State struct {
	Views       []models.MergedEmployeeView
	Today       models.DayLabel
	Selection   *Selection
	Saving      bool
	Err         error
	RefreshedAt time.Time
}

// Board coordinates refreshes and edits for one session.
type Board struct {
	api      API
	days     *daylabel.Classifier
	engine   *transition.Engine
	logger   *slog.Logger
	inFlight atomic.Bool
}

// New creates a board. A nil logger uses slog.Default().
func New(api API, days *daylabel.Classifier, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		api:    api,
		days:   days,
		engine: transition.New(api, days, logger),
		logger: logger,
	}
}

// Today returns the current day label.
func (b *Board) Today() models.DayLabel {
	return b.days.Today()
}

// Refresh fetches histories, metadata and logs concurrently and merges them.
// Metadata and log failures degrade to empty collections. A history failure
// abandons the refresh: prev is returned unchanged apart from Err.
func (b *Board) Refresh(ctx context.Context, prev State) (State, error) {
	var (
		g         errgroup.Group
		histories []models.EmployeeHistory
		metadata  []models.EmployeeMetadata
		logs      []models.DailyLog
	)

	g.Go(func() error {
		hs, err := b.api.ListHistories(ctx)
		if err != nil {
			return err
		}
		histories = hs
		return nil
	})
	g.Go(func() error {
		m, err := b.api.ListMetadata(ctx)
		if err != nil {
			b.logger.Warn("metadata unavailable, continuing without it", "error", fault.New(fault.AuxiliaryUnavailable, "refresh", err))
			m = nil
		}
		metadata = m
		return nil
	})
	g.Go(func() error {
		l, err := b.api.ListLogs(ctx)
		if err != nil {
			b.logger.Warn("logs unavailable, continuing without them", "error", fault.New(fault.AuxiliaryUnavailable, "refresh", err))
			l = nil
		}
		logs = l
		return nil
	})

	if err := g.Wait(); err != nil {
		ferr := fault.New(fault.SourceUnavailable, "refresh", err)
		b.logger.Error("refresh failed, keeping previous view", "error", err)
		next := prev
		next.Err = ferr
		return next, ferr
	}

	next := prev
	next.Views = reconcile.Merge(histories, metadata, logs)
	next.Today = b.days.Today()
	next.Err = nil
	next.RefreshedAt = time.Now()
	return next, nil
}

// Select opens a task for editing. A record is identified by employee and
// group; an empty group matches the first of the employee's rows holding the
// task. Tasks of any day other than today are read-only: the state is
// returned unchanged with an EditRejected error.
func (b *Board) Select(state State, employee string, group models.Group, day models.DayLabel, text string) (State, error) {
	const op = "select"

	if !b.days.IsMutable(day) {
		return state, fault.Rejected(op, "day %q is read-only", day)
	}
	views := findViews(state.Views, employee, group)
	if len(views) == 0 {
		if group != "" {
			return state, fault.Rejected(op, "employee %q is not on the %s board", employee, group)
		}
		return state, fault.Rejected(op, "employee %q is not on the board", employee)
	}

	var (
		view   models.MergedEmployeeView
		bucket models.TaskBucket
		found  bool
		hasDay bool
	)
	for _, v := range views {
		record, ok := v.Day(day)
		if !ok {
			continue
		}
		hasDay = true
		if bkt, ok := record.Find(text); ok {
			view, bucket, found = v, bkt, true
			break
		}
	}
	if !hasDay {
		return state, fault.Rejected(op, "employee %q has no record for %q", employee, day)
	}
	if !found {
		return state, fault.Rejected(op, "task %q not found on %q", text, day)
	}

	next := state
	next.Selection = &Selection{
		Employee: view.EmployeeName,
		Group:    view.Group,
		Day:      day,
		TaskText: text,
		Bucket:   bucket,
	}
	return next, nil
}

// ClearSelection closes the edit without saving.
func (b *Board) ClearSelection(state State) State {
	next := state
	next.Selection = nil
	return next
}

// Move transitions the selected task to bucket to. Only one edit may be in
// flight per board. On success the board is fully refreshed and the selection
// cleared; on failure the view is left as it was so the user can retry.
func (b *Board) Move(ctx context.Context, state State, to models.TaskBucket) (State, error) {
	const op = "move"

	sel := state.Selection
	if sel == nil {
		return state, fault.Rejected(op, "no task selected")
	}
	if !b.inFlight.CompareAndSwap(false, true) {
		return state, fault.Rejected(op, "another edit is still being saved")
	}
	defer b.inFlight.Store(false)

	_, err := b.engine.Transition(ctx, transition.Request{
		Employee: sel.Employee,
		Group:    sel.Group,
		TaskText: sel.TaskText,
		From:     sel.Bucket,
		To:       to,
		Day:      sel.Day,
	})
	if err != nil {
		next := state
		next.Saving = false
		next.Err = err
		return next, err
	}

	next, err := b.Refresh(ctx, state)
	next.Selection = nil
	next.Saving = false
	return next, err
}

// Submit writes a full day's task set and refreshes the board. An empty Day
// means today.
func (b *Board) Submit(ctx context.Context, state State, s transition.Submission) (State, error) {
	const op = "submit"

	if s.Day == "" {
		s.Day = b.days.Today()
	}
	if !b.inFlight.CompareAndSwap(false, true) {
		return state, fault.Rejected(op, "another edit is still being saved")
	}
	defer b.inFlight.Store(false)

	if _, err := b.engine.Submit(ctx, s); err != nil {
		next := state
		next.Saving = false
		next.Err = err
		return next, err
	}

	next, err := b.Refresh(ctx, state)
	next.Saving = false
	return next, err
}

// TodayEntry is an employee's record for today as loaded into the entry form.
type TodayEntry struct {
	Employee string
	Group    models.Group
	Day      models.DayRecord
	Found    bool
}

// LoadToday fetches one employee's history and picks out today's record.
// An unknown employee is not an error: Found is false.
func (b *Board) LoadToday(ctx context.Context, employee string) (TodayEntry, error) {
	today := b.days.Today()
	entry := TodayEntry{Employee: strings.TrimSpace(employee), Day: models.NewDayRecord(today)}
	if entry.Employee == "" {
		return entry, fault.Rejected("load today", "employee name is required")
	}

	h, err := b.api.GetHistory(ctx, entry.Employee)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return entry, nil
		}
		b.logger.Error("load today failed", "employee", entry.Employee, "error", err)
		return entry, fault.New(fault.SourceUnavailable, "load today", err)
	}

	entry.Employee = h.EmployeeName
	entry.Group = h.Group
	if day, ok := h.Day(today); ok {
		entry.Day = day
		entry.Found = true
	}
	return entry, nil
}

// findViews returns the employee's rows in board order, restricted to group
// when it is set.
func findViews(views []models.MergedEmployeeView, employee string, group models.Group) []models.MergedEmployeeView {
	var out []models.MergedEmployeeView
	for _, v := range views {
		if !models.SameName(v.EmployeeName, employee) {
			continue
		}
		if group != "" && v.Group != group {
			continue
		}
		out = append(out, v)
	}
	return out
}
