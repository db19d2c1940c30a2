package models

// Unknown is shown for optional fields when no metadata matched.
const Unknown = "unknown"

// MergedEmployeeView is an employee's history joined with metadata and logs.
// It is rebuilt on every refresh and never persisted.
type MergedEmployeeView struct {
	EmployeeHistory
	Metadata *EmployeeMetadata `json:"metadata,omitempty"`
	Logs     []DailyLog        `json:"logs"`
}

// LogFor returns the log attached for the given day.
func (v MergedEmployeeView) LogFor(date DayLabel) (DailyLog, bool) {
	for _, l := range v.Logs {
		if l.TaskDate == date {
			return l, true
		}
	}
	return DailyLog{}, false
}

// EmployeeID returns the metadata employee id or Unknown.
func (v MergedEmployeeView) EmployeeID() string {
	if v.Metadata == nil || v.Metadata.EmployeeID == "" {
		return Unknown
	}
	return v.Metadata.EmployeeID
}

// ProjectName returns the metadata project or Unknown.
func (v MergedEmployeeView) ProjectName() string {
	if v.Metadata == nil || v.Metadata.ProjectName == "" {
		return Unknown
	}
	return v.Metadata.ProjectName
}
