package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func specialKey(k string) tea.KeyMsg {
	// Map special key names to Bubbletea key types
	switch k {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+a":
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func keyMsg(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestEditModal_OpenClose(t *testing.T) {
	m := NewEditModal()
	if m.IsOpen() {
		t.Fatal("should start closed")
	}
	m.Open("Buy milk")
	if !m.IsOpen() || m.Value() != "Buy milk" {
		t.Fatalf("open: %v %q", m.IsOpen(), m.Value())
	}
	m.Close()
	if m.IsOpen() || m.Value() != "" {
		t.Fatal("close should hide and reset")
	}
}

func TestEditModal_EscCancels(t *testing.T) {
	m := NewEditModal()
	m.Open("x")
	cmd := m.Update(specialKey("esc"))
	if m.IsOpen() {
		t.Fatal("Esc should close")
	}
	if cmd == nil {
		t.Fatal("should return ModalCancelledMsg cmd")
	}
	if _, ok := cmd().(ModalCancelledMsg); !ok {
		t.Fatal("cmd should produce ModalCancelledMsg")
	}
}

func TestEditModal_TypeAndSubmit(t *testing.T) {
	m := NewEditModal()
	m.Open("Buy")
	m.Update(keyMsg(" oat milk"))
	cmd := m.Update(specialKey("enter"))
	if !m.IsOpen() {
		t.Fatal("enter should leave closing to the owner")
	}
	msg, ok := cmd().(EditSubmittedMsg)
	if !ok || msg.Text != "Buy oat milk" {
		t.Fatalf("submitted %+v", msg)
	}
}

func TestEditModal_TypingClearsError(t *testing.T) {
	m := NewEditModal()
	m.Open("")
	m.SetErr("Task cannot be empty")
	if !strings.Contains(m.View(), "Task cannot be empty") {
		t.Fatal("error should render")
	}
	m.Update(keyMsg("a"))
	if m.Err() != "" {
		t.Fatal("typing should clear the error")
	}
}

func TestEditModal_ViewClosed(t *testing.T) {
	if NewEditModal().View() != "" {
		t.Fatal("closed modal renders nothing")
	}
}
