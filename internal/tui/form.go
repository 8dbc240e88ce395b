package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// AddIntent asks the controller to create a task.
type AddIntent struct{ Title string }

// Form is the inline "new task" input.
type Form struct {
	input  textinput.Model
	active bool
	err    string
}

func NewForm() Form {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "New task title..."
	return Form{input: ti}
}

// Open shows and focuses the form with an empty input.
func (f *Form) Open() tea.Cmd {
	f.active = true
	f.err = ""
	f.input.SetValue("")
	return f.input.Focus()
}

// Close hides the form and drops whatever was typed.
func (f *Form) Close() {
	f.active = false
	f.err = ""
	f.input.SetValue("")
	f.input.Blur()
}

func (f Form) Active() bool  { return f.active }
func (f Form) Value() string { return f.input.Value() }

// Update handles keys while the form is open. Enter with a non-blank title
// emits AddIntent and closes the form; esc cancels.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			title := strings.TrimSpace(f.input.Value())
			if title == "" {
				f.err = "Title cannot be empty"
				return f, nil
			}
			f.Close()
			return f, emit(AddIntent{Title: title})
		case "esc":
			f.Close()
			return f, nil
		}
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

func (f Form) View() string {
	title := "Add new task"
	if f.err != "" {
		title += " · " + errorStyle.Render(f.err)
	}
	return frameStyle.Render(title + "\n" + f.input.View())
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
