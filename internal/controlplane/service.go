// Package controlplane provides the HTTP API and service layer for the task board.
package controlplane

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fentz26/taskboard/internal/audit"
	"github.com/fentz26/taskboard/internal/daylabel"
	"github.com/fentz26/taskboard/internal/models"
)

// DefaultHistoryWindow is how many recent days the all-histories read returns.
const DefaultHistoryWindow = 7

// TaskBook is the system of record for task histories.
type TaskBook interface {
	ListHistories(ctx context.Context, window int) ([]models.EmployeeHistory, error)
	GetHistory(ctx context.Context, name string) (*models.EmployeeHistory, error)
	WriteDay(ctx context.Context, group models.Group, employee string, date models.DayLabel, items []models.TaskItem) error
	Ping(ctx context.Context) error
}

// RecordStore holds employee metadata, daily logs and the audit trail.
type RecordStore interface {
	ListMetadata(ctx context.Context) ([]models.EmployeeMetadata, error)
	UpsertMetadata(ctx context.Context, req models.MetadataRequest) (*models.EmployeeMetadata, error)
	ListLogs(ctx context.Context) ([]models.DailyLog, error)
	TouchLog(ctx context.Context, name string, date models.DayLabel) (*models.DailyLog, error)
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
	Ping(ctx context.Context) error
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Book          TaskBook
	Records       RecordStore
	Audit         *audit.Writer
	Days          *daylabel.Classifier
	HistoryWindow int
	Version       string
	Logger        *slog.Logger
}

// Service provides the control plane business logic.
type Service struct {
	book    TaskBook
	records RecordStore
	audit   *audit.Writer
	days    *daylabel.Classifier
	window  int
	version string
	logger  *slog.Logger
}

// NewService creates a new control plane service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		book:    cfg.Book,
		records: cfg.Records,
		audit:   cfg.Audit,
		days:    cfg.Days,
		window:  cfg.HistoryWindow,
		version: cfg.Version,
		logger:  cfg.Logger,
	}
	if s.days == nil {
		s.days = daylabel.New()
	}
	if s.window == 0 {
		s.window = DefaultHistoryWindow
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// --- Task Histories ---

// ListHistories returns every employee's recent history.
func (s *Service) ListHistories(ctx context.Context) ([]models.EmployeeHistory, error) {
	hs, err := s.book.ListHistories(ctx, s.window)
	if err != nil {
		return nil, fmt.Errorf("list histories: %w", err)
	}
	if hs == nil {
		hs = []models.EmployeeHistory{}
	}
	return hs, nil
}

// GetHistory returns one employee's full history.
func (s *Service) GetHistory(ctx context.Context, name string) (*models.EmployeeHistory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	h, err := s.book.GetHistory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return h, nil
}

// WriteTasks merges a task set into the employee's cell for today. A request
// naming any other date is rejected: past days are read-only. A missing role
// writes to the default group.
func (s *Service) WriteTasks(ctx context.Context, req models.TaskRequest) error {
	req.EmployeeName = strings.TrimSpace(req.EmployeeName)
	if req.EmployeeName == "" {
		return ErrEmptyName
	}
	if len(req.Tasks) == 0 {
		return ErrNoTasks
	}
	items := make([]models.TaskItem, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		text := strings.TrimSpace(t.Task)
		if text == "" {
			return fmt.Errorf("%w: blank task text", ErrInvalidRequest)
		}
		status := t.Status
		if status == "" {
			status = models.BucketTodo
		}
		if !status.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, t.Status)
		}
		items = append(items, models.TaskItem{Task: text, Status: status})
	}
	if req.Role == "" {
		req.Role = models.DefaultGroup
	}
	today := s.days.Today()
	switch date := models.DayLabel(strings.TrimSpace(string(req.Date))); date {
	case "", today:
		req.Date = today
	default:
		return fmt.Errorf("%w: date %q is not today (%s)", ErrInvalidRequest, date, today)
	}

	err := s.book.WriteDay(ctx, req.Role, req.EmployeeName, req.Date, items)
	s.audit.Record(ctx, audit.ActionTaskWrite, req, req.EmployeeName, err)
	if err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	s.logger.Info("tasks written", "employee", req.EmployeeName, "group", req.Role, "date", req.Date, "count", len(items))
	return nil
}

// --- Metadata ---

// ListMetadata returns all employee metadata.
func (s *Service) ListMetadata(ctx context.Context) ([]models.EmployeeMetadata, error) {
	m, err := s.records.ListMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	if m == nil {
		m = []models.EmployeeMetadata{}
	}
	return m, nil
}

// UpsertMetadata creates or updates an employee's metadata.
func (s *Service) UpsertMetadata(ctx context.Context, req models.MetadataRequest) (*models.EmployeeMetadata, error) {
	if strings.TrimSpace(req.EmployeeName) == "" {
		return nil, ErrEmptyName
	}
	m, err := s.records.UpsertMetadata(ctx, req)
	s.audit.Record(ctx, audit.ActionMetadataUpsert, req, req.EmployeeName, err)
	if err != nil {
		return nil, fmt.Errorf("upsert metadata: %w", err)
	}
	return m, nil
}

// --- Daily Logs ---

// ListLogs returns all daily logs.
func (s *Service) ListLogs(ctx context.Context) ([]models.DailyLog, error) {
	l, err := s.records.ListLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	if l == nil {
		l = []models.DailyLog{}
	}
	return l, nil
}

// TouchLog records a write to an employee's task set for a day.
func (s *Service) TouchLog(ctx context.Context, req models.LogRequest) (*models.DailyLog, error) {
	if strings.TrimSpace(req.EmployeeName) == "" {
		return nil, ErrEmptyName
	}
	if strings.TrimSpace(string(req.TaskDate)) == "" {
		return nil, fmt.Errorf("%w: task_date is required", ErrInvalidRequest)
	}
	l, err := s.records.TouchLog(ctx, req.EmployeeName, req.TaskDate)
	s.audit.Record(ctx, audit.ActionLogTouch, req, req.EmployeeName, err)
	if err != nil {
		return nil, fmt.Errorf("touch log: %w", err)
	}
	return l, nil
}

// --- Audit ---

// ListAudit returns the most recent audit entries.
func (s *Service) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	entries, err := s.records.ListAudit(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}

// --- Health ---

// HealthResponse reports whether the service can reach its backends.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Store   string `json:"store"`
	Book    string `json:"book"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// Health pings the record store and the task book.
func (s *Service) Health(ctx context.Context) HealthResponse {
	h := HealthResponse{
		OK:      true,
		Store:   "ok",
		Book:    "ok",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.records.Ping(ctx); err != nil {
		h.OK = false
		h.Store = "error: " + err.Error()
	}
	if err := s.book.Ping(ctx); err != nil {
		h.OK = false
		h.Book = "error: " + err.Error()
	}
	return h
}
