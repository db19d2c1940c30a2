package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/taskboard/internal/audit"
	"github.com/fentz26/taskboard/internal/client"
	"github.com/fentz26/taskboard/internal/daylabel"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/store"
)

var tuesday = time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)

// failingBook is a task book whose every call fails.
type failingBook struct{ err error }

func (b failingBook) ListHistories(context.Context, int) ([]models.EmployeeHistory, error) {
	return nil, b.err
}
func (b failingBook) GetHistory(context.Context, string) (*models.EmployeeHistory, error) {
	return nil, b.err
}
func (b failingBook) WriteDay(context.Context, models.Group, string, models.DayLabel, []models.TaskItem) error {
	return b.err
}
func (b failingBook) Ping(context.Context) error { return b.err }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestServer serves a store-backed task book with the clock fixed on tuesday.
func newTestServer(t *testing.T, book TaskBook) (*Server, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	if book == nil {
		book = st
	}
	service := NewService(ServiceConfig{
		Book:    book,
		Records: st,
		Audit:   audit.NewWriter(st, nil),
		Days:    daylabel.NewWithClock(func() time.Time { return tuesday }, time.UTC),
		Version: "test",
	})
	return NewServer(service, "127.0.0.1:0", nil), st
}

func do(t *testing.T, s *Server, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Result()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return strings.TrimSpace(string(b))
}

func TestHealthEndpoint_OK(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !health.OK {
		t.Error("Expected health.OK to be true")
	}
	if health.Store != "ok" || health.Book != "ok" {
		t.Errorf("Expected store and book ok, got %q / %q", health.Store, health.Book)
	}
	if health.Version != "test" {
		t.Errorf("Expected version 'test', got %q", health.Version)
	}
	if health.Time == "" {
		t.Error("Expected time to be set")
	}
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Result().StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Result().StatusCode)
	}
}

func TestHealthEndpoint_DBError(t *testing.T) {
	s, st := newTestServer(t, nil)
	st.Close()

	resp := do(t, s, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.OK {
		t.Error("Expected health.OK to be false when DB is down")
	}
	if health.Store == "ok" {
		t.Error("Expected store status to indicate error")
	}
}

func TestCORSAndPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := do(t, s, http.MethodOptions, "/task", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected preflight 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS origin header on preflight")
	}

	resp = do(t, s, http.MethodGet, "/employees/tasks", "")
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS origin header on GET")
	}
}

func TestWriteTasksDefaultsDateAndRole(t *testing.T) {
	s, st := newTestServer(t, nil)

	resp := do(t, s, http.MethodPost, "/task", `{"employee_name":"Alice","tasks":[{"task":"Write design doc"},{"task":"Ship","status":"Complete"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if body := readBody(t, resp); body != "Tasks updated successfully" {
		t.Errorf("Unexpected body %q", body)
	}

	h, err := st.GetHistory(context.Background(), "alice")
	if err != nil || h == nil {
		t.Fatalf("GetHistory failed: %v, %v", h, err)
	}
	if h.Group != models.GroupDev {
		t.Errorf("Expected default group DEV, got %q", h.Group)
	}
	day, ok := h.Day("Tue 14-Jan")
	if !ok {
		t.Fatal("Expected today's record")
	}
	if len(day.Todo) != 1 || len(day.Complete) != 1 {
		t.Errorf("Unexpected day %+v", day)
	}

	entries, err := st.ListAudit(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionTaskWrite || entries[0].Outcome != audit.OutcomeSuccess {
		t.Errorf("Unexpected audit trail %+v", entries)
	}
}

func TestWriteTasksRejectsMalformed(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"blank name", `{"employee_name":"  ","tasks":[{"task":"x","status":"todo"}]}`},
		{"no tasks", `{"employee_name":"Alice","tasks":[]}`},
		{"blank task", `{"employee_name":"Alice","tasks":[{"task":" ","status":"todo"}]}`},
		{"unknown status", `{"employee_name":"Alice","tasks":[{"task":"x","status":"done"}]}`},
		{"unknown role", `{"employee_name":"Alice","role":"Sales","tasks":[{"task":"x","status":"todo"}]}`},
		{"bad json", `{"employee_name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, s, http.MethodPost, "/task", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestWriteTasksRejectsPastDate(t *testing.T) {
	s, st := newTestServer(t, nil)

	resp := do(t, s, http.MethodPost, "/task", `{"employee_name":"Alice","date":"Mon 13-Jan","tasks":[{"task":"Backdated","status":"complete"}]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if h, _ := st.GetHistory(context.Background(), "Alice"); h != nil {
		t.Errorf("Expected nothing written, got %+v", h)
	}

	resp = do(t, s, http.MethodPost, "/task", `{"employee_name":"Alice","date":"Tue 14-Jan","tasks":[{"task":"Today","status":"todo"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected today's date to be accepted, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
}

func TestWriteTasksBookFailure(t *testing.T) {
	s, st := newTestServer(t, failingBook{err: errors.New("quota exceeded")})

	resp := do(t, s, http.MethodPost, "/task", `{"employee_name":"Alice","tasks":[{"task":"x","status":"todo"}]}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.HasPrefix(body, "Failed to update task:") {
		t.Errorf("Unexpected body %q", body)
	}

	entries, _ := st.ListAudit(context.Background(), 10)
	if len(entries) != 1 || entries[0].Outcome != audit.OutcomeFailure {
		t.Errorf("Expected failure to be audited, got %+v", entries)
	}
}

func TestGetHistoryNotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := do(t, s, http.MethodGet, "/employee/nobody/tasks", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestListHistoriesEmptyArray(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := do(t, s, http.MethodGet, "/employees/tasks", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); body != "[]" {
		t.Errorf("Expected empty array, got %q", body)
	}
}

func TestListHistoriesBookFailure(t *testing.T) {
	s, _ := newTestServer(t, failingBook{err: errors.New("sheets down")})

	resp := do(t, s, http.MethodGet, "/employees/tasks", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", resp.StatusCode)
	}
}

func TestMetadataAndLogsRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := do(t, s, http.MethodPost, "/metadata", `{"employee_id":"E1","employee_name":"Alice","project_name":"Apollo"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	resp = do(t, s, http.MethodPost, "/logs", `{"employee_name":"Alice","task_date":"Tue 14-Jan"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var meta []models.EmployeeMetadata
	json.NewDecoder(do(t, s, http.MethodGet, "/metadata", "").Body).Decode(&meta)
	if len(meta) != 1 || meta[0].ProjectName != "Apollo" {
		t.Errorf("Unexpected metadata %+v", meta)
	}

	var logs []models.DailyLog
	json.NewDecoder(do(t, s, http.MethodGet, "/logs", "").Body).Decode(&logs)
	if len(logs) != 1 || logs[0].TaskDate != "Tue 14-Jan" {
		t.Errorf("Unexpected logs %+v", logs)
	}

	var entries []models.AuditEntry
	json.NewDecoder(do(t, s, http.MethodGet, "/audit?limit=5", "").Body).Decode(&entries)
	if len(entries) != 2 {
		t.Errorf("Expected 2 audit entries, got %d", len(entries))
	}
}

func TestTouchLogRequiresDate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := do(t, s, http.MethodPost, "/logs", `{"employee_name":"Alice","task_date":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestAuditRejectsBadLimit(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := do(t, s, http.MethodGet, "/audit?limit=abc", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestClientAgainstServer(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	c := client.New(srv.URL)
	ctx := context.Background()

	err := c.WriteTasks(ctx, models.TaskRequest{
		EmployeeName: "Alice Smith",
		Role:         models.GroupManagers,
		Tasks:        []models.TaskItem{{Task: "Plan sprint", Status: models.BucketPending}},
	})
	if err != nil {
		t.Fatalf("WriteTasks failed: %v", err)
	}

	h, err := c.GetHistory(ctx, "alice smith")
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if h.EmployeeName != "Alice Smith" || h.Group != models.GroupManagers {
		t.Errorf("Unexpected history %+v", h)
	}

	_, err = c.GetHistory(ctx, "nobody")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 APIError, got %v", err)
	}

	health, err := c.Health(ctx)
	if err != nil || !health.OK {
		t.Errorf("Expected healthy server, got %+v, %v", health, err)
	}
}
