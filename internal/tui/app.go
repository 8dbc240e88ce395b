// Package tui is the interactive Bubble Tea front end: a task list with an
// inline form, driven by the app controller.
package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/model"
)

// Controller is what the view needs from *app.Controller.
type Controller interface {
	Load(ctx context.Context)
	Refresh(ctx context.Context)
	Add(ctx context.Context, title string) model.Task
	Delete(ctx context.Context, id int64)
	Toggle(ctx context.Context, id int64) (model.Task, bool)
	Tasks() []model.Task
	Unsynced() int
}

// tasksMsg carries the collection after a controller operation finished.
type tasksMsg struct {
	op       string
	tasks    []model.Task
	unsynced int
}

type statusMsg string

var (
	addKey     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	refreshKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
	copyKey    = key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy"))
	quitKey    = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
)

// Model is the top-level Bubble Tea model.
type Model struct {
	ctx  context.Context
	ctrl Controller

	list    TaskList
	form    Form
	spinner spinner.Model

	inflight int
	unsynced int
	status   string
	width    int
	height   int
}

// New builds the model; Init kicks off the initial load.
func New(ctx context.Context, ctrl Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle
	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		list:     NewTaskList(addKey, refreshKey, copyKey),
		form:     NewForm(),
		spinner:  sp,
		inflight: 1,
		status:   "loading…",
		width:    80,
		height:   24,
	}
}

// Run starts the program on the alternate screen and blocks until it quits.
func Run(ctx context.Context, ctrl Controller) error {
	p := tea.NewProgram(New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.call("load", m.ctrl.Load))
}

// call runs f off the UI goroutine and reports the resulting collection.
func (m Model) call(op string, f func(ctx context.Context)) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		f(ctx)
		return tasksMsg{op: op, tasks: ctrl.Tasks(), unsynced: ctrl.Unsynced()}
	}
}

// start counts a request in flight, restarting the spinner when idle.
func (m *Model) start(op string, f func(ctx context.Context)) tea.Cmd {
	m.inflight++
	cmd := m.call(op, f)
	if m.inflight == 1 {
		return tea.Batch(m.spinner.Tick, cmd)
	}
	return cmd
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if m.inflight == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tasksMsg:
		if m.inflight > 0 {
			m.inflight--
		}
		m.unsynced = msg.unsynced
		m.status = msg.op + " done"
		return m, m.list.SetTasks(msg.tasks)

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case AddIntent:
		title := msg.Title
		return m, m.start("add", func(ctx context.Context) { m.ctrl.Add(ctx, title) })

	case ToggleIntent:
		id := msg.ID
		return m, m.start("toggle", func(ctx context.Context) { m.ctrl.Toggle(ctx, id) })

	case DeleteIntent:
		id := msg.ID
		return m, m.start("delete", func(ctx context.Context) { m.ctrl.Delete(ctx, id) })

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.form.Active() {
			var cmd tea.Cmd
			m.form, cmd = m.form.Update(msg)
			m.resize()
			return m, cmd
		}
		if !m.list.Filtering() {
			switch {
			case key.Matches(msg, quitKey):
				return m, tea.Quit
			case key.Matches(msg, addKey):
				cmd := m.form.Open()
				m.resize()
				return m, cmd
			case key.Matches(msg, refreshKey):
				return m, m.start("refresh", m.ctrl.Refresh)
			case key.Matches(msg, copyKey):
				if t, ok := m.list.Selected(); ok {
					return m, copyTitle(t.Title)
				}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func copyTitle(title string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(title); err != nil {
			return statusMsg("copy failed: " + err.Error())
		}
		return statusMsg("copied")
	}
}

func (m *Model) resize() {
	h := m.height - 6
	if m.form.Active() {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) View() string {
	content := m.list.View()
	if m.form.Active() {
		content += "\n" + m.form.View()
	}
	content += "\n" + m.statusLine()
	return frameStyle.Render(content)
}

func (m Model) statusLine() string {
	line := ""
	if m.inflight > 0 {
		line = m.spinner.View() + " "
	}
	line += mutedStyle.Render(m.status)
	if m.unsynced > 0 {
		line += "  " + pendingStyle.Render(fmt.Sprintf("%s %d unsynced (r to retry)", unsyncedMark, m.unsynced))
	}
	if m.list.Len() == 0 && !m.form.Active() {
		line += "  " + mutedStyle.Render("press a to add")
	}
	return lipgloss.NewStyle().MaxWidth(m.width - 4).Render(line)
}
