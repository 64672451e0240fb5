package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/basket/tasklist/internal/bus"
)

func TestActivityFeed_AddAndLen(t *testing.T) {
	f := NewActivityFeed()
	if f.Len() != 0 {
		t.Fatal("new feed should be empty")
	}
	f.Add(ActivityItem{Icon: "+", Message: "test", At: time.Now()})
	if f.Len() != 1 {
		t.Fatal("len should be 1")
	}
}

func TestActivityFeed_MaxItems(t *testing.T) {
	f := NewActivityFeed()
	f.maxItems = 3
	for i := 0; i < 5; i++ {
		f.Add(ActivityItem{Message: string(rune('a' + i)), At: time.Now()})
	}
	if f.Len() != 3 {
		t.Fatalf("expected 3, got %d", f.Len())
	}
	if f.items[0].Message != "c" {
		t.Fatalf("oldest kept item = %q, want c", f.items[0].Message)
	}
}

func TestActivityFeed_CleanupOld(t *testing.T) {
	f := NewActivityFeed()
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)
	f.Add(ActivityItem{Message: "old", At: now.Add(-10 * time.Minute)})
	f.Add(ActivityItem{Message: "recent", At: now.Add(-5 * time.Second)})
	if removed := f.CleanupOld(now, time.Minute); removed != 1 {
		t.Fatalf("removed %d", removed)
	}
	if f.Len() != 1 || f.items[0].Message != "recent" {
		t.Fatalf("items = %+v", f.items)
	}
}

func TestActivityFeed_Toggle(t *testing.T) {
	f := NewActivityFeed()
	if !f.Collapsed() {
		t.Fatal("should start collapsed")
	}
	f.Toggle()
	if f.Collapsed() {
		t.Fatal("should be expanded")
	}
}

func TestActivityFeed_ViewEmpty(t *testing.T) {
	if NewActivityFeed().View() != "" {
		t.Fatal("empty view should be empty string")
	}
}

func TestActivityFeed_ViewCollapsedAndExpanded(t *testing.T) {
	f := NewActivityFeed()
	f.Add(ActivityItem{Icon: "+", Message: "added 0192a0b0 (8 chars)", At: time.Now()})
	if view := f.View(); !strings.Contains(view, "1 recent changes") {
		t.Fatalf("collapsed view = %q", view)
	}
	f.Toggle()
	if view := f.View(); !strings.Contains(view, "added 0192a0b0") {
		t.Fatalf("expanded view = %q", view)
	}
}

func TestActivityFeed_Record(t *testing.T) {
	f := NewActivityFeed()
	now := time.Now()
	events := []struct {
		ev   bus.Event
		want string
	}{
		{bus.Event{Topic: bus.TopicTaskAdded, Payload: bus.TaskChangedEvent{TaskID: "0192a0b0-aaaa", Length: 8}}, "added 0192a0b0 (8 chars)"},
		{bus.Event{Topic: bus.TopicTaskUpdated, Payload: bus.TaskChangedEvent{TaskID: "42", Length: 3}}, "edited 42 (3 chars)"},
		{bus.Event{Topic: bus.TopicTaskDeleted, Payload: bus.TaskChangedEvent{TaskID: "42"}}, "deleted 42"},
		{bus.Event{Topic: bus.TopicTaskLoaded, Payload: bus.TaskLoadedEvent{Recovered: true}}, "unreadable"},
		{bus.Event{Topic: bus.TopicStorePersistFailed, Payload: bus.PersistFailedEvent{Err: errors.New("kv set: disk full")}}, "save failed: Disk full"},
		{bus.Event{Topic: bus.TopicBackupCompleted, Payload: bus.BackupCompletedEvent{Path: "/tmp/b.db"}}, "backup written to /tmp/b.db"},
	}
	for _, e := range events {
		if !f.Record(e.ev, now) {
			t.Fatalf("event %s not recorded", e.ev.Topic)
		}
		if got := f.items[len(f.items)-1].Message; !strings.Contains(got, e.want) {
			t.Errorf("%s message = %q, want %q", e.ev.Topic, got, e.want)
		}
	}
	if f.Record(bus.Event{Topic: "other", Payload: 1}, now) {
		t.Fatal("unknown payload should be ignored")
	}
}
