package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/taskboard/internal/board"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/transition"
)

const (
	fieldName = iota
	fieldCode
	fieldProject
	fieldGroup
	fieldTodo
	fieldPending
	fieldComplete
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Employee",
	"Employee code",
	"Project",
	"Group",
	"To do",
	"Pending",
	"Complete",
}

var fieldPlaceholders = [fieldCount]string{
	"Full name",
	"optional",
	"optional",
	"DEV or Managers",
	"task one; task two",
	"task one; task two",
	"task one; task two",
}

// entryForm collects a full day's task set for one employee.
type entryForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
}

func newEntryForm() *entryForm {
	f := &entryForm{}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = fieldPlaceholders[i]
		ti.CharLimit = 512
		ti.Width = 60
		f.inputs[i] = ti
	}
	f.inputs[fieldName].Focus()
	return f
}

func (f *entryForm) setFocus(i int) {
	f.inputs[f.focus].Blur()
	f.focus = (i + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
}

func (f *entryForm) next() { f.setFocus(f.focus + 1) }
func (f *entryForm) prev() { f.setFocus(f.focus - 1) }

func (f *entryForm) employee() string {
	return strings.TrimSpace(f.inputs[fieldName].Value())
}

func (f *entryForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// fill replaces the group and task fields with a loaded record.
func (f *entryForm) fill(entry board.TodayEntry) {
	f.inputs[fieldName].SetValue(entry.Employee)
	if entry.Group != "" {
		f.inputs[fieldGroup].SetValue(string(entry.Group))
	}
	f.inputs[fieldTodo].SetValue(joinTasks(entry.Day.Todo))
	f.inputs[fieldPending].SetValue(joinTasks(entry.Day.Pending))
	f.inputs[fieldComplete].SetValue(joinTasks(entry.Day.Complete))
}

// submission converts the form into a submission for today.
func (f *entryForm) submission() (transition.Submission, error) {
	s := transition.Submission{
		Employee:     f.employee(),
		EmployeeCode: strings.TrimSpace(f.inputs[fieldCode].Value()),
		ProjectName:  strings.TrimSpace(f.inputs[fieldProject].Value()),
		Todo:         splitTasks(f.inputs[fieldTodo].Value()),
		Pending:      splitTasks(f.inputs[fieldPending].Value()),
		Complete:     splitTasks(f.inputs[fieldComplete].Value()),
	}
	if g := strings.TrimSpace(f.inputs[fieldGroup].Value()); g != "" {
		group, err := models.ParseGroup(g)
		if err != nil {
			return s, err
		}
		s.Group = group
	}
	return s, nil
}

func (f *entryForm) view() string {
	var b strings.Builder
	for i := range f.inputs {
		label := labelStyle.Render(fmt.Sprintf("%-14s", fieldLabels[i]))
		if i == f.focus {
			label = focusedLabelStyle.Render(fmt.Sprintf("%-14s", fieldLabels[i]))
		}
		b.WriteString("  " + label + " " + f.inputs[i].View() + "\n")
	}
	return b.String()
}

// splitTasks splits a ';'-separated list, dropping blanks.
func splitTasks(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func joinTasks(tasks []string) string {
	return strings.Join(tasks, "; ")
}
