package tui

import (
	"github.com/fentz26/taskboard/internal/models"
)

type rowKind int

const (
	rowEmployee rowKind = iota
	rowDay
	rowTask
	rowBlank
)

// row is one rendered line of the board. Only task rows on today's date are
// selectable.
type row struct {
	kind       rowKind
	view       *models.MergedEmployeeView
	day        models.DayLabel
	text       string
	bucket     models.TaskBucket
	today      bool
	selectable bool
}

// flatten lays the merged views out as rows: each employee, then each day
// newest first, then that day's tasks grouped todo, pending, complete.
func flatten(views []models.MergedEmployeeView, today models.DayLabel) []row {
	var rows []row
	for i := range views {
		v := &views[i]
		rows = append(rows, row{kind: rowEmployee, view: v})
		if len(v.History) == 0 {
			rows = append(rows, row{kind: rowBlank, view: v})
			continue
		}
		for _, d := range v.History {
			isToday := d.Date == today
			rows = append(rows, row{kind: rowDay, view: v, day: d.Date, today: isToday})
			for _, b := range models.Buckets {
				for _, text := range d.Bucket(b) {
					rows = append(rows, row{
						kind:       rowTask,
						view:       v,
						day:        d.Date,
						text:       text,
						bucket:     b,
						today:      isToday,
						selectable: isToday,
					})
				}
			}
		}
	}
	return rows
}

// nextSelectable returns the index of the next selectable row after from in
// direction dir (+1 or -1), or from when there is none.
func nextSelectable(rows []row, from, dir int) int {
	for i := from + dir; i >= 0 && i < len(rows); i += dir {
		if rows[i].selectable {
			return i
		}
	}
	return from
}

// firstSelectable returns the first selectable row index, or -1.
func firstSelectable(rows []row) int {
	for i, r := range rows {
		if r.selectable {
			return i
		}
	}
	return -1
}

// findRow locates a task row by employee, group, day and text, or returns -1.
func findRow(rows []row, employee string, group models.Group, day models.DayLabel, text string) int {
	for i, r := range rows {
		if r.kind == rowTask && r.day == day && r.text == text &&
			r.view.Group == group && models.SameName(r.view.EmployeeName, employee) {
			return i
		}
	}
	return -1
}
