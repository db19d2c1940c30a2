package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/taskboard/internal/models"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	employeeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cyanColor)

	dayStyle          = lipgloss.NewStyle().Foreground(mutedColor)
	todayStyle        = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	errorStyle        = lipgloss.NewStyle().Foreground(errorColor)
	noticeStyle       = lipgloss.NewStyle().Foreground(successColor)
	spinnerStyle      = lipgloss.NewStyle().Foreground(primaryColor)
	labelStyle        = lipgloss.NewStyle().Foreground(mutedColor)
	focusedLabelStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)

	bucketStyles = map[models.TaskBucket]lipgloss.Style{
		models.BucketTodo:     lipgloss.NewStyle().Foreground(fgColor),
		models.BucketPending:  lipgloss.NewStyle().Foreground(warningColor),
		models.BucketComplete: lipgloss.NewStyle().Foreground(successColor),
	}
)

var bucketIcons = map[models.TaskBucket]string{
	models.BucketTodo:     "○",
	models.BucketPending:  "◐",
	models.BucketComplete: "●",
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n")

	switch a.mode {
	case modeForm:
		b.WriteString(inputBoxStyle.Render(titleStyle.Render("Submit today's tasks") + "\n" + a.form.view()))
		b.WriteString("\n")
	default:
		b.WriteString(a.viewport.View())
		b.WriteString("\n")
		if a.mode == modeEdit && a.state.Selection != nil {
			b.WriteString(a.renderSelection())
			b.WriteString("\n")
		}
	}

	b.WriteString(a.renderStatus())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(a.helpText()))
	return b.String()
}

func (a *App) renderHeader() string {
	title := titleStyle.Render("Task Board")
	info := fmt.Sprintf("Today: %s", a.state.Today)
	if !a.state.RefreshedAt.IsZero() {
		info += fmt.Sprintf("  Refreshed %s", a.state.RefreshedAt.Format("15:04:05"))
	}
	if a.state.Err != nil {
		info += "  " + errorStyle.Render("(stale)")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, title, dayStyle.Render(info))
}

func (a *App) renderRows() string {
	if len(a.rows) == 0 {
		if a.loading {
			return "  Loading..."
		}
		return helpStyle.Render("  No employees on the board.")
	}

	lines := make([]string, len(a.rows))
	for i, r := range a.rows {
		lines[i] = a.renderRow(i, r)
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderRow(i int, r row) string {
	switch r.kind {
	case rowEmployee:
		v := r.view
		return employeeStyle.Render(v.EmployeeName) + dayStyle.Render(
			fmt.Sprintf("  [%s] id: %s  project: %s", v.Group, v.EmployeeID(), v.ProjectName()))
	case rowBlank:
		return helpStyle.Render("    no tasks recorded")
	case rowDay:
		label := string(r.day)
		if l, ok := r.view.LogFor(r.day); ok {
			label += fmt.Sprintf("  updated %s", l.UpdatedAt.Format("15:04"))
		}
		if r.today {
			return "  " + todayStyle.Render(label+"  (today)")
		}
		return "  " + dayStyle.Render(label)
	case rowTask:
		line := fmt.Sprintf("%s %s", bucketIcons[r.bucket], r.text)
		if i == a.cursor {
			return "    " + selectedStyle.Render(line)
		}
		style := bucketStyles[r.bucket]
		if !r.today {
			style = style.Faint(true)
		}
		return "    " + style.Render(line)
	}
	return ""
}

func (a *App) renderSelection() string {
	sel := a.state.Selection
	text := fmt.Sprintf("%s / %s: %q is %s", sel.Employee, sel.Day, sel.TaskText, sel.Bucket)
	if a.state.Saving {
		text = a.spinner.View() + " Saving " + text
	}
	return inputBoxStyle.Render(text)
}

func (a *App) renderStatus() string {
	status := fmt.Sprintf("%d employees", len(a.state.Views))
	if a.loading || a.state.Saving {
		status = a.spinner.View() + " " + status
	}
	bar := statusBarStyle.Render(status)
	switch {
	case a.message == "":
		return bar
	case a.isError:
		return bar + " " + errorStyle.Render(a.message)
	default:
		return bar + " " + noticeStyle.Render(a.message)
	}
}

func (a *App) helpText() string {
	switch a.mode {
	case modeEdit:
		return "t: to do • p: pending • c: complete • esc: cancel"
	case modeForm:
		return "tab: next field • ctrl+l: load today • enter: submit • esc: cancel"
	default:
		return "j/k: move • enter: edit task • n: submit tasks • r: refresh • q: quit"
	}
}
