package tui

import (
	"errors"
	"strings"

	"github.com/basket/tasklist/internal/tasks"
)

const msgEmptyTask = "Task cannot be empty"

// humanError extracts the innermost error message from a Go error chain.
// "persist tasks: kv set: disk I/O error" → "Disk I/O error"
func humanError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx != -1 && idx+2 < len(msg) {
		inner := msg[idx+2:]
		if len(inner) > 0 {
			inner = strings.ToUpper(inner[:1]) + inner[1:]
		}
		return inner
	}
	return msg
}

// taskError renders a store error for the status line.
func taskError(err error) string {
	switch {
	case errors.Is(err, tasks.ErrEmptyText):
		return msgEmptyTask
	case errors.Is(err, tasks.ErrNotFound):
		return "Task no longer exists"
	default:
		return "Could not save tasks: " + humanError(err)
	}
}
