// Package transition moves tasks between status buckets on the mutable day.
package transition

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fentz26/taskboard/internal/daylabel"
	"github.com/fentz26/taskboard/internal/fault"
	"github.com/fentz26/taskboard/internal/models"
)

// ErrTaskNotFound is returned by Apply when the task is not in its source bucket.
var ErrTaskNotFound = errors.New("task not found in bucket")

// Writer issues writes against the system of record and the auxiliary stores.
type Writer interface {
	WriteTasks(ctx context.Context, req models.TaskRequest) error
	UpsertMetadata(ctx context.Context, req models.MetadataRequest) error
	TouchLog(ctx context.Context, req models.LogRequest) error
}

// Request asks to move one task of one employee's day to another bucket.
type Request struct {
	Employee string
	Group    models.Group
	TaskText string
	From     models.TaskBucket
	To       models.TaskBucket
	Day      models.DayLabel
}

// Result describes the writes of a transition and how far they got.
type Result struct {
	TaskWrite   models.TaskRequest
	LogTouch    models.LogRequest
	TaskWritten bool
	LogTouched  bool
}

// Engine validates transitions against the day classifier and issues their writes.
type Engine struct {
	writer Writer
	days   *daylabel.Classifier
	logger *slog.Logger
}

// New creates an engine. A nil logger uses slog.Default().
func New(w Writer, days *daylabel.Classifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{writer: w, days: days, logger: logger}
}

// Plan validates req and returns the writes it would issue without issuing them.
func (e *Engine) Plan(req Request) (*Result, error) {
	const op = "transition"

	if !e.days.IsMutable(req.Day) {
		return nil, fault.Rejected(op, "day %q is not today (%s) and is read-only", req.Day, e.days.Today())
	}
	if strings.TrimSpace(req.Employee) == "" {
		return nil, fault.Rejected(op, "employee name is required")
	}
	if strings.TrimSpace(req.TaskText) == "" {
		return nil, fault.Rejected(op, "task text is required")
	}
	if !req.From.Valid() || !req.To.Valid() {
		return nil, fault.Rejected(op, "invalid bucket transition %q -> %q", req.From, req.To)
	}

	return &Result{
		TaskWrite: models.TaskRequest{
			EmployeeName: req.Employee,
			Role:         req.Group,
			Date:         req.Day,
			Tasks:        []models.TaskItem{{Task: req.TaskText, Status: req.To}},
		},
		LogTouch: models.LogRequest{
			EmployeeName: req.Employee,
			TaskDate:     req.Day,
		},
	}, nil
}

// Transition moves req.TaskText from req.From to req.To. The task write is
// issued first, then the log touch; a failed log touch leaves the task write
// in place and is reported as WriteFailed with TaskWritten set. Moving a task
// to its current bucket is legal and still touches the log.
func (e *Engine) Transition(ctx context.Context, req Request) (*Result, error) {
	const op = "transition"

	res, err := e.Plan(req)
	if err != nil {
		e.logger.Info("transition rejected", "employee", req.Employee, "day", req.Day, "error", err)
		return nil, err
	}

	if err := e.writer.WriteTasks(ctx, res.TaskWrite); err != nil {
		e.logger.Error("task write failed", "employee", req.Employee, "task", req.TaskText, "error", err)
		return res, fault.New(fault.WriteFailed, op, err)
	}
	res.TaskWritten = true

	if err := e.writer.TouchLog(ctx, res.LogTouch); err != nil {
		e.logger.Warn("log touch failed after task write", "employee", req.Employee, "day", req.Day, "error", err)
		return res, fault.New(fault.WriteFailed, op, err)
	}
	res.LogTouched = true

	e.logger.Info("task moved", "employee", req.Employee, "task", req.TaskText, "from", req.From, "to", req.To, "day", req.Day)
	return res, nil
}

// Apply projects a transition onto a day record. The task is removed from
// every bucket and appended to to, so it ends up in exactly one bucket.
// Moving a task to the bucket it is already in leaves the record unchanged.
func Apply(day models.DayRecord, text string, from, to models.TaskBucket) (models.DayRecord, error) {
	if !from.Valid() || !to.Valid() {
		return day, fault.Rejected("apply", "invalid bucket transition %q -> %q", from, to)
	}

	found := false
	for _, t := range day.Bucket(from) {
		if t == text {
			found = true
			break
		}
	}
	if !found {
		return day, ErrTaskNotFound
	}

	out := day.Clone()
	if from == to {
		return out, nil
	}
	for _, b := range models.Buckets {
		out.SetBucket(b, without(out.Bucket(b), text))
	}
	out.SetBucket(to, append(out.Bucket(to), text))
	return out, nil
}

func without(tasks []string, text string) []string {
	kept := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t != text {
			kept = append(kept, t)
		}
	}
	return kept
}
