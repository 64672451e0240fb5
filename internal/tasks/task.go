// Package tasks owns the task collection: the Task model, the soft-delete
// and update rules, the filtered and paginated view, and the storage blob
// the collection is mirrored to.
package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the on-disk and on-screen date format.
const DateLayout = "2006-01-02"

// Date is a calendar day in the local calendar, formatted YYYY-MM-DD.
type Date string

// DateOf returns the local calendar day of t.
func DateOf(t time.Time) Date {
	return Date(t.In(time.Local).Format(DateLayout))
}

// ParseDate validates s as YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	if _, err := time.ParseInLocation(DateLayout, s, time.Local); err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(s), nil
}

func (d Date) String() string { return string(d) }

// ID identifies a task. Ids written by this program are UUIDv7 strings;
// ids loaded from older blobs may be JSON numbers and keep that encoding.
type ID struct {
	raw     string
	numeric bool
}

// NewID returns a fresh time-ordered id.
func NewID() ID {
	return ID{raw: uuid.Must(uuid.NewV7()).String()}
}

// ParseID builds an id from user input. Digit-only input is treated as a
// numeric id so it matches ids imported from the browser app.
func ParseID(s string) ID {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID{raw: s, numeric: true}
	}
	return ID{raw: s}
}

func (id ID) String() string { return id.raw }

// IsZero reports whether id was never assigned.
func (id ID) IsZero() bool { return id.raw == "" }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID{raw: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id must be a string or number: %w", err)
	}
	*id = ID{raw: n.String(), numeric: true}
	return nil
}

// Task is the only persisted entity.
type Task struct {
	ID        ID     `json:"id"`
	Text      string `json:"text"`
	CreatedAt Date   `json:"createdAt"`
	UpdatedAt *Date  `json:"updatedAt"`
	DeletedAt *Date  `json:"deletedAt"`
}

// Deleted reports whether the task has been soft-deleted.
func (t Task) Deleted() bool { return t.DeletedAt != nil }

func (t Task) clone() Task {
	out := t
	if t.UpdatedAt != nil {
		d := *t.UpdatedAt
		out.UpdatedAt = &d
	}
	if t.DeletedAt != nil {
		d := *t.DeletedAt
		out.DeletedAt = &d
	}
	return out
}

func cloneTasks(in []Task) []Task {
	out := make([]Task, len(in))
	for i, t := range in {
		out[i] = t.clone()
	}
	return out
}
