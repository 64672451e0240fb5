package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type ModalState int

const (
	ModalClosed ModalState = iota
	ModalOpen
)

// EditModal is the overlay used to change the text of one task.
type EditModal struct {
	state ModalState
	input textinput.Model
	err   string
}

func NewEditModal() EditModal {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = "Task text"
	ti.CharLimit = 500
	ti.Width = 46
	return EditModal{state: ModalClosed, input: ti}
}

// Open shows the modal pre-filled with the task's current text.
func (m *EditModal) Open(text string) tea.Cmd {
	m.state = ModalOpen
	m.err = ""
	m.input.SetValue(text)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *EditModal) Close() {
	m.state = ModalClosed
	m.err = ""
	m.input.Blur()
	m.input.Reset()
}

func (m EditModal) IsOpen() bool  { return m.state == ModalOpen }
func (m EditModal) Value() string { return m.input.Value() }
func (m EditModal) Err() string   { return m.err }

// SetErr keeps the modal open with a message under the input.
func (m *EditModal) SetErr(msg string) { m.err = msg }

// EditSubmittedMsg carries the text the user saved. The modal stays open
// until the owner accepts it.
type EditSubmittedMsg struct {
	Text string
}

type ModalCancelledMsg struct{}

func (m *EditModal) Update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.Close()
		return func() tea.Msg { return ModalCancelledMsg{} }
	case "enter":
		text := m.input.Value()
		return func() tea.Msg { return EditSubmittedMsg{Text: text} }
	}
	m.err = ""
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m EditModal) View() string {
	if !m.IsOpen() {
		return ""
	}

	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).Padding(1, 2).Width(54)
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errS := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	body := title.Render("Edit Task") + "\n\n" + m.input.View() + "\n"
	if m.err != "" {
		body += "\n" + errS.Render(m.err) + "\n"
	}
	body += "\n" + dim.Render("Enter save · Esc cancel")
	return border.Render(body)
}
