package sheets

import (
	"math"
	"strings"
	"unicode/utf16"

	"google.golang.org/api/sheets/v4"

	"github.com/fentz26/taskboard/internal/models"
)

// Task status is encoded as the foreground colour of each line of a cell.
var (
	completeColor = sheets.Color{Red: 52.0 / 255.0, Green: 168.0 / 255.0, Blue: 83.0 / 255.0}
	pendingColor  = sheets.Color{Red: 231.0 / 255.0, Green: 149.0 / 255.0, Blue: 63.0 / 255.0}
)

const colorTolerance = 0.25

func near(c *sheets.Color, target sheets.Color) bool {
	return math.Abs(c.Red-target.Red) < colorTolerance &&
		math.Abs(c.Green-target.Green) < colorTolerance &&
		math.Abs(c.Blue-target.Blue) < colorTolerance
}

// BucketFromColor maps a text colour to a task bucket. Colours close to the
// complete or pending colours match, as do the pure green and pure red used
// by older sheets. Everything else, including no colour, is todo.
func BucketFromColor(c *sheets.Color) models.TaskBucket {
	if c == nil {
		return models.BucketTodo
	}
	switch {
	case near(c, completeColor):
		return models.BucketComplete
	case near(c, pendingColor):
		return models.BucketPending
	case c.Green > 0.8 && c.Red < 0.3 && c.Blue < 0.3:
		return models.BucketComplete
	case c.Red > 0.8 && c.Green < 0.3 && c.Blue < 0.3:
		return models.BucketPending
	}
	return models.BucketTodo
}

// ColorForBucket returns the colour written for a bucket. Todo is black.
func ColorForBucket(b models.TaskBucket) *sheets.Color {
	switch b {
	case models.BucketComplete:
		c := completeColor
		return &c
	case models.BucketPending:
		c := pendingColor
		return &c
	}
	return &sheets.Color{}
}

// cellString returns the user-entered text of a cell, or "".
func cellString(cell *sheets.CellData) string {
	if cell == nil || cell.UserEnteredValue == nil || cell.UserEnteredValue.StringValue == nil {
		return ""
	}
	return *cell.UserEnteredValue.StringValue
}

// headerString reads a header cell, preferring its displayed value.
func headerString(cell *sheets.CellData) string {
	if cell == nil {
		return ""
	}
	if cell.FormattedValue != "" {
		return strings.TrimSpace(cell.FormattedValue)
	}
	return strings.TrimSpace(cellString(cell))
}

// utf16Len is the length of s in the UTF-16 code units Sheets indexes by.
func utf16Len(s string) int64 {
	return int64(len(utf16.Encode([]rune(s))))
}

// ParseCell splits a cell into one task per non-blank line. Each line takes
// the colour of the last format run starting at or before it; with no runs
// the cell's own text colour applies.
func ParseCell(cell *sheets.CellData) []models.TaskItem {
	text := cellString(cell)
	if text == "" {
		return nil
	}

	var global *sheets.Color
	if cell.UserEnteredFormat != nil && cell.UserEnteredFormat.TextFormat != nil {
		global = cell.UserEnteredFormat.TextFormat.ForegroundColor
	}
	runs := cell.TextFormatRuns

	var items []models.TaskItem
	var offset int64
	for _, line := range strings.Split(text, "\n") {
		color := global
		if len(runs) > 0 {
			color = nil
			for _, run := range runs {
				if run.StartIndex > offset {
					break
				}
				color = nil
				if run.Format != nil {
					color = run.Format.ForegroundColor
				}
			}
		}
		if task := strings.TrimSpace(line); task != "" {
			items = append(items, models.TaskItem{Task: task, Status: BucketFromColor(color)})
		}
		offset += utf16Len(line) + 1
	}
	return items
}

// RenderCell builds the cell for items: one line per task, each line
// starting a format run in its bucket's colour.
func RenderCell(items []models.TaskItem) *sheets.CellData {
	var (
		b    strings.Builder
		runs []*sheets.TextFormatRun
		pos  int64
	)
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
			pos++
		}
		runs = append(runs, &sheets.TextFormatRun{
			StartIndex: pos,
			Format:     &sheets.TextFormat{ForegroundColor: ColorForBucket(it.Status)},
		})
		b.WriteString(it.Task)
		pos += utf16Len(it.Task)
	}
	text := b.String()
	return &sheets.CellData{
		UserEnteredValue: &sheets.ExtendedValue{StringValue: &text},
		TextFormatRuns:   runs,
	}
}

// ColumnName converts a 1-based column number to its A1 letters.
func ColumnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

// rowHistory reads the non-empty day cells of one employee row, newest
// (rightmost) first, stopping after window days when window > 0.
func rowHistory(header []string, row *sheets.RowData, window int) []models.DayRecord {
	history := []models.DayRecord{}
	if row == nil {
		return history
	}
	for c := len(row.Values) - 1; c >= 1; c-- {
		if window > 0 && len(history) >= window {
			break
		}
		cell := row.Values[c]
		if cellString(cell) == "" {
			continue
		}
		date := "Unknown"
		if c < len(header) && header[c] != "" {
			date = header[c]
		}
		day := models.DayFromItems(models.DayLabel(date), ParseCell(cell))
		if day.Len() == 0 {
			continue
		}
		history = append(history, day)
	}
	return history
}
