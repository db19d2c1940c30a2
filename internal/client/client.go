// Package client talks to the task board API over HTTP/JSON.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/taskboard/internal/models"
)

// DefaultTimeout is the default timeout for API requests.
const DefaultTimeout = 10 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// HealthResponse matches the server's health payload.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Store   string `json:"store"`
	Book    string `json:"book"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// Client wraps HTTP calls to the task board API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client with the default timeout.
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: DefaultTimeout})
}

// NewWithHTTPClient creates a client using hc for transport.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// BaseURL returns the API address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ListHistories fetches every employee's task history.
func (c *Client) ListHistories(ctx context.Context) ([]models.EmployeeHistory, error) {
	var out []models.EmployeeHistory
	if err := c.get(ctx, "/employees/tasks", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHistory fetches one employee's task history.
func (c *Client) GetHistory(ctx context.Context, name string) (*models.EmployeeHistory, error) {
	var out models.EmployeeHistory
	if err := c.get(ctx, "/employee/"+url.PathEscape(name)+"/tasks", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WriteTasks writes a task set to the system of record.
func (c *Client) WriteTasks(ctx context.Context, req models.TaskRequest) error {
	return c.post(ctx, "/task", req)
}

// ListMetadata fetches all employee metadata.
func (c *Client) ListMetadata(ctx context.Context) ([]models.EmployeeMetadata, error) {
	var out []models.EmployeeMetadata
	if err := c.get(ctx, "/metadata", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertMetadata creates or updates an employee's metadata.
func (c *Client) UpsertMetadata(ctx context.Context, req models.MetadataRequest) error {
	return c.post(ctx, "/metadata", req)
}

// ListLogs fetches all daily logs.
func (c *Client) ListLogs(ctx context.Context) ([]models.DailyLog, error) {
	var out []models.DailyLog
	if err := c.get(ctx, "/logs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TouchLog creates the daily log for (employee, day) or refreshes its updated_at.
func (c *Client) TouchLog(ctx context.Context, req models.LogRequest) error {
	return c.post(ctx, "/logs", req)
}

// ListAudit fetches the most recent audit entries, newest first. A limit of
// zero uses the server default.
func (c *Client) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	path := "/audit"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.AuditEntry
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health returns the server health payload. The payload is returned alongside
// the error on non-200 responses so callers can inspect it.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("parse health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return &health, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
