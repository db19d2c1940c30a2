package transition

import (
	"context"
	"strings"

	"github.com/fentz26/taskboard/internal/fault"
	"github.com/fentz26/taskboard/internal/models"
)

// Submission is a full day's task set for one employee, as entered on the
// entry form. Empty buckets are valid.
type Submission struct {
	Employee     string
	EmployeeCode string
	ProjectName  string
	Group        models.Group
	Day          models.DayLabel
	Todo         []string
	Pending      []string
	Complete     []string
}

// SubmitResult describes the writes of a submission and how far they got.
type SubmitResult struct {
	TaskWrite       models.TaskRequest
	Metadata        *models.MetadataRequest
	LogTouch        models.LogRequest
	TaskWritten     bool
	MetadataWritten bool
	LogTouched      bool
}

// PlanSubmit validates s and returns the writes it would issue.
func (e *Engine) PlanSubmit(s Submission) (*SubmitResult, error) {
	const op = "submit"

	if !e.days.IsMutable(s.Day) {
		return nil, fault.Rejected(op, "day %q is not today (%s) and is read-only", s.Day, e.days.Today())
	}
	employee := strings.TrimSpace(s.Employee)
	if employee == "" {
		return nil, fault.Rejected(op, "employee name is required")
	}

	seen := make(map[string]models.TaskBucket)
	var items []models.TaskItem
	for _, b := range models.Buckets {
		var tasks []string
		switch b {
		case models.BucketTodo:
			tasks = s.Todo
		case models.BucketPending:
			tasks = s.Pending
		case models.BucketComplete:
			tasks = s.Complete
		}
		for _, t := range tasks {
			text := strings.TrimSpace(t)
			if text == "" {
				return nil, fault.Rejected(op, "all tasks must have a description")
			}
			if prev, dup := seen[strings.ToLower(text)]; dup {
				return nil, fault.Rejected(op, "task %q listed in both %s and %s", text, prev, b)
			}
			seen[strings.ToLower(text)] = b
			items = append(items, models.TaskItem{Task: text, Status: b})
		}
	}
	if len(items) == 0 {
		return nil, fault.Rejected(op, "at least one task is required")
	}

	res := &SubmitResult{
		TaskWrite: models.TaskRequest{
			EmployeeName: employee,
			EmployeeCode: strings.TrimSpace(s.EmployeeCode),
			Role:         s.Group,
			Date:         s.Day,
			Tasks:        items,
		},
		LogTouch: models.LogRequest{EmployeeName: employee, TaskDate: s.Day},
	}
	if strings.TrimSpace(s.EmployeeCode) != "" || strings.TrimSpace(s.ProjectName) != "" {
		res.Metadata = &models.MetadataRequest{
			EmployeeID:   strings.TrimSpace(s.EmployeeCode),
			EmployeeName: employee,
			ProjectName:  strings.TrimSpace(s.ProjectName),
		}
	}
	return res, nil
}

// Submit writes a full day's task set, then upserts the employee's metadata,
// then touches the day's log. Writes stop at the first failure.
func (e *Engine) Submit(ctx context.Context, s Submission) (*SubmitResult, error) {
	const op = "submit"

	res, err := e.PlanSubmit(s)
	if err != nil {
		e.logger.Info("submission rejected", "employee", s.Employee, "day", s.Day, "error", err)
		return nil, err
	}

	if err := e.writer.WriteTasks(ctx, res.TaskWrite); err != nil {
		e.logger.Error("task write failed", "employee", res.TaskWrite.EmployeeName, "error", err)
		return res, fault.New(fault.WriteFailed, op, err)
	}
	res.TaskWritten = true

	if res.Metadata != nil {
		if err := e.writer.UpsertMetadata(ctx, *res.Metadata); err != nil {
			e.logger.Error("metadata upsert failed", "employee", res.TaskWrite.EmployeeName, "error", err)
			return res, fault.New(fault.WriteFailed, op, err)
		}
		res.MetadataWritten = true
	}

	if err := e.writer.TouchLog(ctx, res.LogTouch); err != nil {
		e.logger.Warn("log touch failed after task write", "employee", res.TaskWrite.EmployeeName, "error", err)
		return res, fault.New(fault.WriteFailed, op, err)
	}
	res.LogTouched = true

	e.logger.Info("tasks submitted", "employee", res.TaskWrite.EmployeeName, "day", s.Day, "tasks", len(res.TaskWrite.Tasks))
	return res, nil
}
