package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/taskboard/internal/board"
	"github.com/fentz26/taskboard/internal/client"
	"github.com/fentz26/taskboard/internal/daylabel"
	"github.com/fentz26/taskboard/internal/models"
)

// memoryAPI is an in-memory task board service.
type memoryAPI struct {
	mu         sync.Mutex
	histories  []models.EmployeeHistory
	historyErr error
	writeErr   error
	writes     []models.TaskRequest
	metaWrites []models.MetadataRequest
	touches    []models.LogRequest
}

func (m *memoryAPI) ListHistories(ctx context.Context) ([]models.EmployeeHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	out := make([]models.EmployeeHistory, len(m.histories))
	for i, h := range m.histories {
		out[i] = h
		out[i].History = make([]models.DayRecord, len(h.History))
		for j, d := range h.History {
			out[i].History[j] = d.Clone()
		}
	}
	return out, nil
}

func (m *memoryAPI) GetHistory(ctx context.Context, name string) (*models.EmployeeHistory, error) {
	hs, err := m.ListHistories(ctx)
	if err != nil {
		return nil, err
	}
	for _, h := range hs {
		if models.SameName(h.EmployeeName, name) {
			h := h
			return &h, nil
		}
	}
	return nil, &client.APIError{StatusCode: 404, Body: "employee not found"}
}

func (m *memoryAPI) ListMetadata(ctx context.Context) ([]models.EmployeeMetadata, error) {
	return nil, nil
}

func (m *memoryAPI) ListLogs(ctx context.Context) ([]models.DailyLog, error) {
	return nil, nil
}

func (m *memoryAPI) WriteTasks(ctx context.Context, req models.TaskRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, req)
	for i, h := range m.histories {
		if !models.SameName(h.EmployeeName, req.EmployeeName) {
			continue
		}
		if req.Role != "" && h.Group != req.Role {
			continue
		}
		for j, d := range h.History {
			if d.Date == req.Date {
				merged := models.MergeTaskItems(d.Items(), req.Tasks)
				m.histories[i].History[j] = models.DayFromItems(req.Date, merged)
				return nil
			}
		}
		day := models.DayFromItems(req.Date, req.Tasks)
		m.histories[i].History = append([]models.DayRecord{day}, h.History...)
		return nil
	}
	m.histories = append(m.histories, models.EmployeeHistory{
		EmployeeName: req.EmployeeName,
		Group:        req.Role,
		History:      []models.DayRecord{models.DayFromItems(req.Date, req.Tasks)},
	})
	return nil
}

func (m *memoryAPI) UpsertMetadata(ctx context.Context, req models.MetadataRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metaWrites = append(m.metaWrites, req)
	return nil
}

func (m *memoryAPI) TouchLog(ctx context.Context, req models.LogRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches = append(m.touches, req)
	return nil
}

var tuesday = time.Date(2025, time.January, 14, 10, 0, 0, 0, time.UTC)

func newTestAPI() *memoryAPI {
	today := models.NewDayRecord("Tue 14-Jan")
	today.Todo = []string{"Write report", "Review PR"}
	today.Pending = []string{"Deploy"}
	older := models.NewDayRecord("Mon 13-Jan")
	older.Complete = []string{"Plan sprint"}
	return &memoryAPI{
		histories: []models.EmployeeHistory{
			{EmployeeName: "Alice", Group: models.GroupDev, History: []models.DayRecord{today, older}},
		},
	}
}

func newTestApp(t *testing.T, api board.API) *App {
	t.Helper()
	days := daylabel.NewWithClock(func() time.Time { return tuesday }, time.UTC)
	b := board.New(api, days, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a := New(b)
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	drive(t, a, a.Init())
	return a
}

// drive runs cmd to completion, feeding every message back into the app.
// Spinner ticks are dropped so the loop terminates.
func drive(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	for depth := 0; cmd != nil && depth < 10; depth++ {
		msg := cmd()
		switch msg := msg.(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
			return
		case tea.BatchMsg:
			for _, c := range msg {
				drive(t, a, c)
			}
			return
		default:
			_, cmd = a.Update(msg)
		}
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, a *App, s string) {
	t.Helper()
	_, cmd := a.Update(key(s))
	drive(t, a, cmd)
}

func TestAppInitialRefresh(t *testing.T) {
	a := newTestApp(t, newTestAPI())

	if a.loading {
		t.Error("Expected loading to finish")
	}
	if len(a.state.Views) != 1 {
		t.Fatalf("Expected 1 view, got %d", len(a.state.Views))
	}
	if a.cursor < 0 || a.rows[a.cursor].text != "Write report" {
		t.Fatalf("Expected cursor on first task of today, got %d", a.cursor)
	}

	out := a.View()
	for _, want := range []string{"Alice", "Tue 14-Jan", "Plan sprint", "Deploy"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestAppCursorSkipsPastDays(t *testing.T) {
	a := newTestApp(t, newTestAPI())

	for i := 0; i < 10; i++ {
		press(t, a, "j")
	}
	r := a.rows[a.cursor]
	if r.text != "Deploy" || !r.today {
		t.Errorf("Expected cursor to stop on last task of today, got %q on %s", r.text, r.day)
	}

	press(t, a, "k")
	if a.rows[a.cursor].text != "Review PR" {
		t.Errorf("Expected cursor to move up, got %q", a.rows[a.cursor].text)
	}
}

func TestAppMoveTask(t *testing.T) {
	api := newTestAPI()
	a := newTestApp(t, api)

	press(t, a, "enter")
	if a.mode != modeEdit || a.state.Selection == nil {
		t.Fatalf("Expected edit mode with a selection, got mode %d", a.mode)
	}
	if a.state.Selection.TaskText != "Write report" {
		t.Fatalf("Unexpected selection %+v", a.state.Selection)
	}

	press(t, a, "c")

	if len(api.writes) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(api.writes))
	}
	w := api.writes[0]
	if w.EmployeeName != "Alice" || w.Date != "Tue 14-Jan" || w.Tasks[0].Status != models.BucketComplete {
		t.Errorf("Unexpected write %+v", w)
	}
	if len(api.touches) != 1 {
		t.Errorf("Expected log touch, got %d", len(api.touches))
	}
	if a.mode != modeBoard || a.state.Selection != nil {
		t.Errorf("Expected selection cleared after save, mode %d", a.mode)
	}
	if a.isError || a.message != "Moved to complete" {
		t.Errorf("Unexpected message %q", a.message)
	}

	day, _ := a.state.Views[0].Day("Tue 14-Jan")
	if b, _ := day.Find("Write report"); b != models.BucketComplete {
		t.Errorf("Expected refreshed view to show task complete, got %s", b)
	}
	if a.rows[a.cursor].text != "Write report" {
		t.Errorf("Expected cursor to follow the moved task, got %q", a.rows[a.cursor].text)
	}
}

func TestAppMoveToSameBucketTouchesLog(t *testing.T) {
	api := newTestAPI()
	a := newTestApp(t, api)

	press(t, a, "enter")
	press(t, a, "t")

	if len(api.writes) != 1 || api.writes[0].Tasks[0].Status != models.BucketTodo {
		t.Errorf("Expected one unchanged task write, got %+v", api.writes)
	}
	if len(api.touches) != 1 || api.touches[0].TaskDate != "Tue 14-Jan" {
		t.Errorf("Expected one log touch, got %+v", api.touches)
	}
	if a.mode != modeBoard || a.state.Selection != nil {
		t.Errorf("Expected selection cleared after save, mode %d", a.mode)
	}
	if a.isError || a.message != "Saved, task is still todo" {
		t.Errorf("Unexpected message %q", a.message)
	}
}

func TestAppMoveTaskOnSecondGroup(t *testing.T) {
	dev := models.NewDayRecord("Tue 14-Jan")
	dev.Todo = []string{"Dev task"}
	mgr := models.NewDayRecord("Tue 14-Jan")
	mgr.Todo = []string{"Manager task"}
	api := &memoryAPI{
		histories: []models.EmployeeHistory{
			{EmployeeName: "Alice", Group: models.GroupDev, History: []models.DayRecord{dev}},
			{EmployeeName: "Alice", Group: models.GroupManagers, History: []models.DayRecord{mgr}},
		},
	}
	a := newTestApp(t, api)

	press(t, a, "j")
	if r := a.rows[a.cursor]; r.text != "Manager task" || r.view.Group != models.GroupManagers {
		t.Fatalf("Expected cursor on the Managers task, got %q", r.text)
	}
	press(t, a, "enter")
	if a.state.Selection == nil || a.state.Selection.Group != models.GroupManagers {
		t.Fatalf("Expected Managers selection, got %+v (message %q)", a.state.Selection, a.message)
	}
	press(t, a, "c")

	if len(api.writes) != 1 || api.writes[0].Role != models.GroupManagers {
		t.Fatalf("Expected one write to the Managers sheet, got %+v", api.writes)
	}
	r := a.rows[a.cursor]
	if r.text != "Manager task" || r.view.Group != models.GroupManagers || r.bucket != models.BucketComplete {
		t.Errorf("Expected cursor to follow the moved task, got %q in %s", r.text, r.view.Group)
	}
}

func TestAppMoveFailureKeepsSelection(t *testing.T) {
	api := newTestAPI()
	api.writeErr = errors.New("sheet locked")
	a := newTestApp(t, api)

	press(t, a, "enter")
	press(t, a, "p")

	if !a.isError || a.message != "Failed to update task." {
		t.Errorf("Expected write failure message, got %q", a.message)
	}
	if a.mode != modeEdit || a.state.Selection == nil {
		t.Error("Expected selection kept for retry")
	}

	press(t, a, "esc")
	if a.mode != modeBoard || a.state.Selection != nil {
		t.Error("Expected esc to clear the selection")
	}
}

func TestAppRefreshFailureKeepsView(t *testing.T) {
	api := newTestAPI()
	a := newTestApp(t, api)

	api.mu.Lock()
	api.historyErr = errors.New("connection refused")
	api.mu.Unlock()
	press(t, a, "r")

	if len(a.state.Views) != 1 {
		t.Errorf("Expected stale view kept, got %d views", len(a.state.Views))
	}
	if !a.isError || a.message != "Backend error: failed to fetch data" {
		t.Errorf("Expected backend error message, got %q", a.message)
	}
	if strings.Contains(a.message, "connection refused") {
		t.Errorf("Transport detail leaked into %q", a.message)
	}
	if !strings.Contains(a.View(), "(stale)") {
		t.Error("Expected stale marker in header")
	}
}

func TestAppFormSubmit(t *testing.T) {
	api := newTestAPI()
	a := newTestApp(t, api)

	press(t, a, "n")
	if a.mode != modeForm {
		t.Fatalf("Expected form mode, got %d", a.mode)
	}
	if a.form.employee() != "Alice" {
		t.Errorf("Expected form prefilled from cursor, got %q", a.form.employee())
	}

	a.form.inputs[fieldCode].SetValue("EMP-7")
	a.form.inputs[fieldTodo].SetValue("Write tests; ")
	a.form.inputs[fieldComplete].SetValue("Review PR")
	press(t, a, "enter")

	if len(api.writes) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(api.writes))
	}
	if got := len(api.writes[0].Tasks); got != 2 {
		t.Errorf("Expected 2 tasks written, got %d", got)
	}
	if len(api.metaWrites) != 1 || api.metaWrites[0].EmployeeID != "EMP-7" {
		t.Errorf("Expected metadata upsert, got %+v", api.metaWrites)
	}
	if a.mode != modeBoard || a.form != nil {
		t.Error("Expected form closed after submit")
	}

	day, _ := a.state.Views[0].Day("Tue 14-Jan")
	if b, _ := day.Find("Review PR"); b != models.BucketComplete {
		t.Errorf("Expected Review PR complete, got %s", b)
	}
	if b, _ := day.Find("Write tests"); b != models.BucketTodo {
		t.Errorf("Expected new task in todo, got %s", b)
	}
}

func TestAppFormRejectsEmptySubmission(t *testing.T) {
	api := newTestAPI()
	a := newTestApp(t, api)

	press(t, a, "n")
	press(t, a, "enter")

	if len(api.writes) != 0 {
		t.Errorf("Expected no write, got %d", len(api.writes))
	}
	if a.mode != modeForm || !a.isError {
		t.Errorf("Expected form to stay open with an error, got mode %d message %q", a.mode, a.message)
	}
}

func TestAppFormLoadToday(t *testing.T) {
	a := newTestApp(t, newTestAPI())

	press(t, a, "n")
	a.form.inputs[fieldName].SetValue("alice")
	press(t, a, "ctrl+l")

	if got := a.form.inputs[fieldTodo].Value(); got != "Write report; Review PR" {
		t.Errorf("Unexpected todo field %q", got)
	}
	if got := a.form.inputs[fieldPending].Value(); got != "Deploy" {
		t.Errorf("Unexpected pending field %q", got)
	}
	if got := a.form.inputs[fieldName].Value(); got != "Alice" {
		t.Errorf("Expected canonical name, got %q", got)
	}

	a.form.inputs[fieldName].SetValue("Nobody")
	press(t, a, "ctrl+l")
	if a.isError || !strings.Contains(a.message, "No tasks recorded") {
		t.Errorf("Expected not-found notice, got %q", a.message)
	}
}

func TestAppFormEscCancels(t *testing.T) {
	a := newTestApp(t, newTestAPI())

	press(t, a, "n")
	press(t, a, "tab")
	if a.form.focus != fieldCode {
		t.Errorf("Expected focus on code field, got %d", a.form.focus)
	}
	press(t, a, "esc")
	if a.mode != modeBoard || a.form != nil {
		t.Error("Expected esc to close the form")
	}
}

func TestSplitTasks(t *testing.T) {
	got := splitTasks(" one ;; two;three ; ")
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %q at %d, got %q", want[i], i, got[i])
		}
	}
	if splitTasks("  ") != nil {
		t.Error("Expected nil for blank input")
	}
}
