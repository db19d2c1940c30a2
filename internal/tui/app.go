// Package tui provides the interactive terminal dashboard.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/taskboard/internal/board"
	"github.com/fentz26/taskboard/internal/fault"
	"github.com/fentz26/taskboard/internal/models"
)

type mode int

const (
	modeBoard mode = iota
	modeEdit
	modeForm
)

// requestTimeout bounds each round trip to the service.
const requestTimeout = 30 * time.Second

// stateMsg carries the board state produced by an async operation.
type stateMsg struct {
	state  board.State
	err    error
	notice string
}

// todayMsg carries the record loaded into the entry form.
type todayMsg struct {
	entry board.TodayEntry
	err   error
}

// App is the main TUI application model.
type App struct {
	board    *board.Board
	state    board.State
	rows     []row
	cursor   int
	mode     mode
	form     *entryForm
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
	loading  bool
	message  string
	isError  bool
}

// New creates a dashboard driven by b.
func New(b *board.Board) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &App{
		board:    b,
		cursor:   -1,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		loading:  true,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.refresh(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-6, 3)
		a.syncViewport()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case stateMsg:
		a.applyState(msg)
		return a, nil

	case todayMsg:
		a.loading = false
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		if a.form != nil {
			a.form.fill(msg.entry)
		}
		if msg.entry.Found {
			a.setNotice("Loaded today's tasks for " + msg.entry.Employee)
		} else {
			a.setNotice("No tasks recorded today for " + msg.entry.Employee)
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.mode {
		case modeForm:
			return a, a.updateForm(msg)
		case modeEdit:
			return a, a.updateEdit(msg)
		default:
			return a, a.updateBoard(msg)
		}
	}

	return a, nil
}

func (a *App) updateBoard(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		a.moveCursor(-1)
	case "down", "j":
		a.moveCursor(1)
	case "pgup":
		a.viewport.HalfViewUp()
	case "pgdown":
		a.viewport.HalfViewDown()
	case "r":
		a.loading = true
		return tea.Batch(a.spinner.Tick, a.refresh())
	case "n":
		a.openForm()
		return textinput.Blink
	case "enter":
		return a.selectCurrent()
	}
	return nil
}

func (a *App) updateEdit(msg tea.KeyMsg) tea.Cmd {
	if a.state.Saving {
		return nil
	}
	switch msg.String() {
	case "esc", "q":
		a.state = a.board.ClearSelection(a.state)
		a.mode = modeBoard
		a.message = ""
	case "t":
		return a.move(models.BucketTodo)
	case "p":
		return a.move(models.BucketPending)
	case "c":
		return a.move(models.BucketComplete)
	}
	return nil
}

func (a *App) updateForm(msg tea.KeyMsg) tea.Cmd {
	if a.state.Saving {
		return nil
	}
	switch msg.String() {
	case "esc":
		a.form = nil
		a.mode = modeBoard
		a.message = ""
		return nil
	case "tab", "down":
		a.form.next()
		return nil
	case "shift+tab", "up":
		a.form.prev()
		return nil
	case "ctrl+l":
		name := a.form.employee()
		if name == "" {
			a.setError(fault.Rejected("load today", "employee name is required"))
			return nil
		}
		a.loading = true
		return tea.Batch(a.spinner.Tick, a.loadToday(name))
	case "ctrl+s", "enter":
		return a.submit()
	}
	return a.form.update(msg)
}

func (a *App) moveCursor(dir int) {
	if a.cursor < 0 {
		a.cursor = firstSelectable(a.rows)
	} else {
		a.cursor = nextSelectable(a.rows, a.cursor, dir)
	}
	a.syncViewport()
}

func (a *App) selectCurrent() tea.Cmd {
	if a.cursor < 0 || a.cursor >= len(a.rows) {
		return nil
	}
	r := a.rows[a.cursor]
	next, err := a.board.Select(a.state, r.view.EmployeeName, r.view.Group, r.day, r.text)
	if err != nil {
		a.setError(err)
		return nil
	}
	a.state = next
	a.mode = modeEdit
	a.message = ""
	return nil
}

func (a *App) openForm() {
	a.form = newEntryForm()
	if a.cursor >= 0 && a.cursor < len(a.rows) {
		r := a.rows[a.cursor]
		a.form.inputs[fieldName].SetValue(r.view.EmployeeName)
		a.form.inputs[fieldGroup].SetValue(string(r.view.Group))
		if r.view.Metadata != nil {
			a.form.inputs[fieldCode].SetValue(r.view.Metadata.EmployeeID)
			a.form.inputs[fieldProject].SetValue(r.view.Metadata.ProjectName)
		}
	}
	a.mode = modeForm
	a.message = ""
}

func (a *App) refresh() tea.Cmd {
	b, prev := a.board, a.state
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		next, err := b.Refresh(ctx, prev)
		return stateMsg{state: next, err: err}
	}
}

func (a *App) move(to models.TaskBucket) tea.Cmd {
	sel := a.state.Selection
	if sel == nil {
		return nil
	}
	b, prev := a.board, a.state
	a.state.Saving = true
	notice := "Moved to " + string(to)
	if sel.Bucket == to {
		notice = "Saved, task is still " + string(to)
	}
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		next, err := b.Move(ctx, prev, to)
		return stateMsg{state: next, err: err, notice: notice}
	})
}

func (a *App) submit() tea.Cmd {
	s, err := a.form.submission()
	if err != nil {
		a.setError(err)
		return nil
	}
	b, prev := a.board, a.state
	a.state.Saving = true
	notice := "Saved tasks for " + s.Employee
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		next, err := b.Submit(ctx, prev, s)
		return stateMsg{state: next, err: err, notice: notice}
	})
}

func (a *App) loadToday(name string) tea.Cmd {
	b := a.board
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		entry, err := b.LoadToday(ctx, name)
		return todayMsg{entry: entry, err: err}
	}
}

// applyState installs a new board state and keeps the cursor on the same task
// where it still exists.
func (a *App) applyState(msg stateMsg) {
	var keep *row
	if a.cursor >= 0 && a.cursor < len(a.rows) {
		r := a.rows[a.cursor]
		keep = &r
	}

	a.loading = false
	a.state = msg.state
	a.state.Saving = false
	a.rows = flatten(a.state.Views, a.state.Today)

	a.cursor = -1
	if keep != nil {
		a.cursor = findRow(a.rows, keep.view.EmployeeName, keep.view.Group, keep.day, keep.text)
	}
	if a.cursor < 0 || !a.rows[a.cursor].selectable {
		a.cursor = firstSelectable(a.rows)
	}

	if msg.err != nil {
		a.setError(msg.err)
	} else {
		if a.state.Selection == nil && a.mode == modeEdit {
			a.mode = modeBoard
		}
		if a.mode == modeForm && msg.notice != "" {
			a.form = nil
			a.mode = modeBoard
		}
		if msg.notice != "" {
			a.setNotice(msg.notice)
		}
	}
	a.syncViewport()
}

func (a *App) setError(err error) {
	a.message = fault.UserMessage(err)
	a.isError = true
}

func (a *App) setNotice(s string) {
	a.message = s
	a.isError = false
}

// syncViewport re-renders the board and scrolls the cursor into view.
func (a *App) syncViewport() {
	a.viewport.SetContent(a.renderRows())
	if a.cursor < 0 {
		return
	}
	if a.cursor < a.viewport.YOffset {
		a.viewport.SetYOffset(a.cursor)
	} else if a.cursor >= a.viewport.YOffset+a.viewport.Height {
		a.viewport.SetYOffset(a.cursor - a.viewport.Height + 1)
	}
}
