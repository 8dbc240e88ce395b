package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
)

// Placeholder is shown instead of the list when there are no tasks.
const Placeholder = "No tasks yet! Add your first one below"

// ToggleIntent asks the controller to flip a task's completed flag.
type ToggleIntent struct{ ID int64 }

// DeleteIntent asks the controller to delete a task.
type DeleteIntent struct{ ID int64 }

// taskItem adapts model.Task to list.Item.
type taskItem struct{ task model.Task }

func (i taskItem) FilterValue() string { return i.task.Title }

// itemDelegate renders one task per line: "> ☑ title ↻".
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(taskItem)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	text := it.task.Title
	if it.task.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	line := box + " " + text
	if it.task.Sync != model.Synced {
		line += " " + pendingStyle.Render(unsyncedMark)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}

var (
	toggleKey = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteKey = key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete"))
)

// TaskList renders the tasks it is given and turns keys into intents.
// It never changes tasks itself.
type TaskList struct {
	list  list.Model
	tasks []model.Task
}

func NewTaskList(extraKeys ...key.Binding) TaskList {
	l := list.New(nil, itemDelegate{}, 80, 20)
	l.Title = "Tasks"
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("task", "tasks")

	bindings := append([]key.Binding{toggleKey, deleteKey}, extraKeys...)
	l.AdditionalShortHelpKeys = func() []key.Binding { return bindings }
	l.AdditionalFullHelpKeys = func() []key.Binding { return bindings }
	return TaskList{list: l}
}

// SetTasks replaces the rows, keeping the cursor where it was when possible.
func (l *TaskList) SetTasks(tasks []model.Task) tea.Cmd {
	l.tasks = tasks
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskItem{task: t})
	}
	done, pending := model.Stats(tasks)
	l.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		"Tasks",
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(tasks),
	)
	return l.list.SetItems(items)
}

func (l *TaskList) SetSize(w, h int) { l.list.SetSize(w, h) }

// Len returns the number of tasks, ignoring any filter.
func (l TaskList) Len() int { return len(l.tasks) }

// Filtering reports whether the filter input has focus.
func (l TaskList) Filtering() bool { return l.list.FilterState() == list.Filtering }

// Selected returns the task under the cursor.
func (l TaskList) Selected() (model.Task, bool) {
	it, ok := l.list.SelectedItem().(taskItem)
	if !ok {
		return model.Task{}, false
	}
	return it.task, true
}

func (l TaskList) Update(msg tea.Msg) (TaskList, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && !l.Filtering() {
		switch {
		case key.Matches(km, toggleKey):
			if t, ok := l.Selected(); ok {
				return l, emit(ToggleIntent{ID: t.ID})
			}
			return l, nil
		case key.Matches(km, deleteKey):
			if t, ok := l.Selected(); ok {
				return l, emit(DeleteIntent{ID: t.ID})
			}
			return l, nil
		}
	}
	var cmd tea.Cmd
	l.list, cmd = l.list.Update(msg)
	return l, cmd
}

func (l TaskList) View() string {
	if len(l.tasks) == 0 {
		return titleStyle.Render("Tasks") + "\n\n" + mutedStyle.Render(Placeholder)
	}
	return l.list.View()
}
