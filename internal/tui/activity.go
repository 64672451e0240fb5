package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/basket/tasklist/internal/bus"
)

// ActivityItem is one line of the recent-changes feed.
type ActivityItem struct {
	Icon    string
	Message string
	At      time.Time
}

// ActivityFeed keeps the last few task changes seen on the bus.
type ActivityFeed struct {
	mu        sync.Mutex
	items     []ActivityItem
	collapsed bool
	maxItems  int
}

func NewActivityFeed() *ActivityFeed {
	return &ActivityFeed{maxItems: 10, collapsed: true}
}

func (f *ActivityFeed) Add(item ActivityItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	if len(f.items) > f.maxItems {
		f.items = f.items[1:]
	}
}

func (f *ActivityFeed) Toggle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collapsed = !f.collapsed
}

func (f *ActivityFeed) Collapsed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collapsed
}

func (f *ActivityFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// CleanupOld drops items older than maxAge and returns how many went.
func (f *ActivityFeed) CleanupOld(now time.Time, maxAge time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	removed := 0
	for _, it := range f.items {
		if now.Sub(it.At) >= maxAge {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	f.items = kept
	return removed
}

// Record turns a bus event into a feed item. It reports false for topics
// the feed does not show.
func (f *ActivityFeed) Record(ev bus.Event, at time.Time) bool {
	item := ActivityItem{At: at}
	switch p := ev.Payload.(type) {
	case bus.TaskChangedEvent:
		switch ev.Topic {
		case bus.TopicTaskAdded:
			item.Icon, item.Message = "+", fmt.Sprintf("added %s (%d chars)", shortID(p.TaskID), p.Length)
		case bus.TopicTaskUpdated:
			item.Icon, item.Message = "~", fmt.Sprintf("edited %s (%d chars)", shortID(p.TaskID), p.Length)
		case bus.TopicTaskDeleted:
			item.Icon, item.Message = "-", fmt.Sprintf("deleted %s", shortID(p.TaskID))
		default:
			return false
		}
	case bus.TaskLoadedEvent:
		item.Icon, item.Message = "•", fmt.Sprintf("loaded %d tasks (%d active)", p.Total, p.Active)
		if p.Recovered {
			item.Icon, item.Message = "!", "stored tasks were unreadable; started empty"
		}
	case bus.PersistFailedEvent:
		item.Icon, item.Message = "!", "save failed: "+humanError(p.Err)
	case bus.BackupCompletedEvent:
		item.Icon, item.Message = "•", "backup written to "+p.Path
		if p.Err != nil {
			item.Icon, item.Message = "!", "backup failed: "+humanError(p.Err)
		}
	default:
		return false
	}
	f.Add(item)
	return true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (f *ActivityFeed) View() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if f.collapsed {
		return dim.Render(fmt.Sprintf("── %d recent changes (Ctrl+A to expand) ──", len(f.items))) + "\n"
	}

	itemS := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	var out strings.Builder
	out.WriteString(dim.Render("── Activity (Ctrl+A to collapse) ──") + "\n")
	for _, it := range f.items {
		line := fmt.Sprintf("%s %s %s", dim.Render(it.At.Format("15:04:05")), it.Icon, it.Message)
		out.WriteString(itemS.Render(line) + "\n")
	}
	return out.String()
}
