// Package models defines the core domain types for the task board.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskBucket is the status of a task within one day.
type TaskBucket string

const (
	BucketTodo     TaskBucket = "todo"
	BucketPending  TaskBucket = "pending"
	BucketComplete TaskBucket = "complete"
)

// Buckets lists every bucket in display order.
var Buckets = []TaskBucket{BucketTodo, BucketPending, BucketComplete}

// Valid reports whether b is one of the three known buckets.
func (b TaskBucket) Valid() bool {
	switch b {
	case BucketTodo, BucketPending, BucketComplete:
		return true
	}
	return false
}

// ParseBucket normalizes a status string from any producer.
func ParseBucket(s string) (TaskBucket, error) {
	b := TaskBucket(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return b, nil
}

// UnmarshalText accepts any casing of the status literals. An empty value
// stays empty so the receiver can apply its default.
func (b *TaskBucket) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*b = ""
		return nil
	}
	parsed, err := ParseBucket(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Group is the organizational group an employee's sheet belongs to.
type Group string

const (
	GroupDev      Group = "DEV"
	GroupManagers Group = "Managers"
)

// DefaultGroup is used when a producer omits the role.
const DefaultGroup = GroupDev

// Groups lists the groups in the order their sheets are read.
var Groups = []Group{GroupDev, GroupManagers}

// ParseGroup maps "Dev", "DEV", "dev", "Managers", ... onto the canonical group.
func ParseGroup(s string) (Group, error) {
	switch NameKey(s) {
	case "dev":
		return GroupDev, nil
	case "managers":
		return GroupManagers, nil
	}
	return "", fmt.Errorf("unknown group %q", s)
}

// UnmarshalText normalizes the group; an empty value stays empty.
func (g *Group) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*g = ""
		return nil
	}
	parsed, err := ParseGroup(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// NameKey is the single canonical form used to compare and key employee names.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameName reports whether two employee names refer to the same employee.
func SameName(a, b string) bool {
	return NameKey(a) == NameKey(b)
}

// DayLabel identifies a day as "Mon 02-Jan". Labels are opaque: two calendar
// dates that format identically are the same day.
type DayLabel string

// DayRecord holds one day's tasks split by bucket.
type DayRecord struct {
	Date     DayLabel `json:"date"`
	Todo     []string `json:"todo"`
	Pending  []string `json:"pending"`
	Complete []string `json:"complete"`
}

// NewDayRecord returns an empty record with non-nil buckets.
func NewDayRecord(date DayLabel) DayRecord {
	return DayRecord{Date: date, Todo: []string{}, Pending: []string{}, Complete: []string{}}
}

// Bucket returns the tasks held in b.
func (d DayRecord) Bucket(b TaskBucket) []string {
	switch b {
	case BucketTodo:
		return d.Todo
	case BucketPending:
		return d.Pending
	case BucketComplete:
		return d.Complete
	}
	return nil
}

// SetBucket replaces the tasks held in b.
func (d *DayRecord) SetBucket(b TaskBucket, tasks []string) {
	if tasks == nil {
		tasks = []string{}
	}
	switch b {
	case BucketTodo:
		d.Todo = tasks
	case BucketPending:
		d.Pending = tasks
	case BucketComplete:
		d.Complete = tasks
	}
}

// Find returns the bucket holding text.
func (d DayRecord) Find(text string) (TaskBucket, bool) {
	for _, b := range Buckets {
		for _, t := range d.Bucket(b) {
			if t == text {
				return b, true
			}
		}
	}
	return "", false
}

// Len returns the number of tasks across all buckets.
func (d DayRecord) Len() int {
	return len(d.Todo) + len(d.Pending) + len(d.Complete)
}

// Clone returns a deep copy of d.
func (d DayRecord) Clone() DayRecord {
	out := NewDayRecord(d.Date)
	out.Todo = append(out.Todo, d.Todo...)
	out.Pending = append(out.Pending, d.Pending...)
	out.Complete = append(out.Complete, d.Complete...)
	return out
}

// Items flattens the record into task items, todo first.
func (d DayRecord) Items() []TaskItem {
	items := make([]TaskItem, 0, d.Len())
	for _, b := range Buckets {
		for _, t := range d.Bucket(b) {
			items = append(items, TaskItem{Task: t, Status: b})
		}
	}
	return items
}

// EmployeeHistory is an employee's task history as read from the system of record.
type EmployeeHistory struct {
	EmployeeName string      `json:"employee_name"`
	Group        Group       `json:"sheet_name,omitempty"`
	History      []DayRecord `json:"history"`
}

// Day returns the record labelled date.
func (h EmployeeHistory) Day(date DayLabel) (DayRecord, bool) {
	for _, d := range h.History {
		if d.Date == date {
			return d, true
		}
	}
	return DayRecord{}, false
}

// EmployeeMetadata is the static information about an employee.
type EmployeeMetadata struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	EmployeeName string     `json:"employee_name"`
	ProjectName  string     `json:"project_name"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// DailyLog records when an employee's task set for a day was first and last touched.
type DailyLog struct {
	EmployeeName string    `json:"employee_name"`
	TaskDate     DayLabel  `json:"task_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TaskItem is a single task with its status, as written to the system of record.
type TaskItem struct {
	Task   string     `json:"task"`
	Status TaskBucket `json:"status"`
}

// TaskRequest is the payload for writing a task set.
type TaskRequest struct {
	EmployeeName string     `json:"employee_name"`
	EmployeeCode string     `json:"employee_code,omitempty"`
	Role         Group      `json:"role,omitempty"`
	Date         DayLabel   `json:"date,omitempty"`
	Tasks        []TaskItem `json:"tasks"`
}

// MetadataRequest is the payload for upserting employee metadata.
type MetadataRequest struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	ProjectName  string `json:"project_name"`
}

// LogRequest is the payload for touching a daily log.
type LogRequest struct {
	EmployeeName string   `json:"employee_name"`
	TaskDate     DayLabel `json:"task_date"`
}

// AuditEntry records a state-mutating action for the audit trail.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	Employee   string    `json:"employee,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
