// Package reconcile joins employee task histories with metadata and daily logs.
package reconcile

import "github.com/fentz26/taskboard/internal/models"

// Merge builds one view per history, in the order given. Metadata is joined on
// the canonical employee name and the first match in metadata order wins.
// Every log for the employee is attached. Missing metadata or logs never drop
// a row; callers pass empty slices when an auxiliary source is unavailable.
func Merge(histories []models.EmployeeHistory, metadata []models.EmployeeMetadata, logs []models.DailyLog) []models.MergedEmployeeView {
	metaByName := make(map[string]int, len(metadata))
	for i, m := range metadata {
		key := models.NameKey(m.EmployeeName)
		if _, seen := metaByName[key]; !seen {
			metaByName[key] = i
		}
	}

	logsByName := make(map[string][]models.DailyLog)
	for _, l := range logs {
		key := models.NameKey(l.EmployeeName)
		logsByName[key] = append(logsByName[key], l)
	}

	views := make([]models.MergedEmployeeView, len(histories))
	for i, h := range histories {
		key := models.NameKey(h.EmployeeName)

		view := models.MergedEmployeeView{
			EmployeeHistory: h,
			Logs:            []models.DailyLog{},
		}
		if idx, ok := metaByName[key]; ok {
			m := metadata[idx]
			view.Metadata = &m
		}
		if matched, ok := logsByName[key]; ok {
			view.Logs = append(view.Logs, matched...)
		}
		views[i] = view
	}
	return views
}
