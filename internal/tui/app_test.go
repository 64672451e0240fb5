package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/basket/tasklist/internal/bus"
	"github.com/basket/tasklist/internal/config"
	"github.com/basket/tasklist/internal/tasks"
)

type mapStorage map[string]string

func (s mapStorage) KVGet(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

func (s mapStorage) KVSet(_ context.Context, key, val string) error {
	s[key] = val
	return nil
}

func testModel(t *testing.T, texts ...string) model {
	t.Helper()
	ctx := context.Background()
	now := func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local) }
	store, err := tasks.Open(ctx, tasks.Options{Storage: mapStorage{}, Now: now})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	for _, text := range texts {
		if _, err := store.Add(ctx, text); err != nil {
			t.Fatalf("add %q: %v", text, err)
		}
	}
	return newModel(ctx, Options{Store: store, Now: now}, nil)
}

func press(t *testing.T, m model, keys ...tea.KeyMsg) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(model)
	}
	return m, cmd
}

func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func TestApp_AddTask(t *testing.T) {
	m := testModel(t)
	m, _ = press(t, m, keyMsg("a"), keyMsg("Buy milk"), specialKey("enter"))

	if got := m.store.Counts(); got.Active != 1 {
		t.Fatalf("counts = %+v", got)
	}
	if m.addInput.Value() != "" {
		t.Fatalf("input not cleared: %q", m.addInput.Value())
	}
	view := m.View()
	for _, want := range []string{"Buy milk", "Task added", "Total: 1", "Active: 1", "2026-10-18"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestApp_AddEmptyShowsMessage(t *testing.T) {
	m := testModel(t)
	m, _ = press(t, m, keyMsg("a"), keyMsg("   "), specialKey("enter"))

	if m.store.Counts().Total != 0 {
		t.Fatal("empty text must not add a task")
	}
	if !strings.Contains(m.View(), "Task cannot be empty") {
		t.Fatalf("expected empty-text message:\n%s", m.View())
	}
	if m.focus != focusAdd {
		t.Fatal("input should keep focus after a rejected add")
	}
}

func TestApp_EscLeavesAddInput(t *testing.T) {
	m := testModel(t)
	m, _ = press(t, m, keyMsg("a"), specialKey("esc"))
	if m.focus != focusList {
		t.Fatal("esc should return to the list")
	}
	// "q" now quits instead of typing.
	_, cmd := press(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit from the list")
	}
}

func TestApp_Pagination(t *testing.T) {
	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("task %d", i+1)
	}
	m := testModel(t, texts...)

	view := m.View()
	if !strings.Contains(view, "Page 1 of 2") {
		t.Fatalf("expected first page:\n%s", view)
	}
	if !strings.Contains(view, "task 7") || strings.Contains(view, "task 2") {
		t.Fatalf("newest five tasks should be on page one:\n%s", view)
	}

	m, _ = press(t, m, specialKey("right"))
	view = m.View()
	if !strings.Contains(view, "Page 2 of 2") {
		t.Fatalf("expected second page:\n%s", view)
	}
	if !strings.Contains(view, "6        task 2") || !strings.Contains(view, "7        task 1") {
		t.Fatalf("serial numbers should continue across pages:\n%s", view)
	}

	m, _ = press(t, m, specialKey("right"))
	if m.store.Selection().Page != 2 {
		t.Fatal("next on the last page should do nothing")
	}
	m, _ = press(t, m, specialKey("left"), specialKey("left"))
	if m.store.Selection().Page != 1 {
		t.Fatal("prev should stop at page one")
	}
}

func TestApp_EditTask(t *testing.T) {
	m := testModel(t, "Buy")
	m, cmd := press(t, m, keyMsg("e"))
	if !m.modal.IsOpen() || m.modal.Value() != "Buy" {
		t.Fatalf("modal open=%v value=%q", m.modal.IsOpen(), m.modal.Value())
	}

	// Clearing the text and saving keeps the modal open.
	m, cmd = press(t, m, specialKey("backspace"), specialKey("backspace"), specialKey("backspace"), specialKey("enter"))
	m = send(t, m, cmd())
	if !m.modal.IsOpen() || m.modal.Err() != "Task cannot be empty" {
		t.Fatalf("empty save: open=%v err=%q", m.modal.IsOpen(), m.modal.Err())
	}

	m, cmd = press(t, m, keyMsg("Tea"), specialKey("enter"))
	m = send(t, m, cmd())
	if m.modal.IsOpen() {
		t.Fatal("valid save should close the modal")
	}
	view := m.store.View()
	if view.Items[0].Text != "Tea" || view.Items[0].UpdatedAt == nil {
		t.Fatalf("task after edit = %+v", view.Items[0])
	}
	if _, editing := m.store.EditingID(); editing {
		t.Fatal("edit session should be closed")
	}
}

func TestApp_EditCancel(t *testing.T) {
	m := testModel(t, "Buy milk")
	m, _ = press(t, m, keyMsg("e"), keyMsg("!!"))
	m, cmd := press(t, m, specialKey("esc"))
	m = send(t, m, cmd())

	if m.modal.IsOpen() {
		t.Fatal("esc should close the modal")
	}
	if _, editing := m.store.EditingID(); editing {
		t.Fatal("cancel should end the edit session")
	}
	if got := m.store.View().Items[0].Text; got != "Buy milk" {
		t.Fatalf("cancel changed text to %q", got)
	}
}

func TestApp_DeleteSelected(t *testing.T) {
	m := testModel(t, "first", "second")
	m, _ = press(t, m, specialKey("down"), keyMsg("d"))

	counts := m.store.Counts()
	if counts.Total != 2 || counts.Active != 1 {
		t.Fatalf("counts = %+v", counts)
	}
	items := m.store.View().Items
	if len(items) != 1 || items[0].Text != "second" {
		t.Fatalf("remaining = %+v", items)
	}
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want clamped to 0", m.cursor)
	}
}

func TestApp_TextSearch(t *testing.T) {
	m := testModel(t, "Buy milk", "Walk dog", "Milk the cow")
	m, _ = press(t, m, keyMsg("/"), keyMsg("MILK"))

	sel := m.store.Selection()
	if sel.Filter != tasks.FilterText || sel.SearchText != "MILK" {
		t.Fatalf("selection = %+v", sel)
	}
	if n := m.store.View().TotalActiveCount; n != 2 {
		t.Fatalf("matches = %d, want 2", n)
	}
	m, _ = press(t, m, specialKey("enter"))
	if m.focus != focusList {
		t.Fatal("enter should leave the search box")
	}
}

func TestApp_DateSearch(t *testing.T) {
	m := testModel(t, "x")
	m, _ = press(t, m, keyMsg("f"), keyMsg("f"))
	if m.store.Selection().Filter != tasks.FilterDate {
		t.Fatalf("filter = %s", m.store.Selection().Filter)
	}

	m, _ = press(t, m, keyMsg("/"), keyMsg("2026-02-30"))
	if m.store.Selection().SearchDate != "" || !m.statusErr {
		t.Fatal("an impossible date should be reported and ignored")
	}

	m, _ = press(t, m, specialKey("backspace"), specialKey("backspace"), keyMsg("17"))
	if m.store.Selection().SearchDate != "2026-02-17" {
		t.Fatalf("search date = %q", m.store.Selection().SearchDate)
	}
	if m.store.View().TotalActiveCount != 0 {
		t.Fatal("no task was created on 2026-02-17")
	}
}

func TestApp_DateSearchClearsWhenInputIsNotADate(t *testing.T) {
	m := testModel(t, "x")
	m, _ = press(t, m, keyMsg("f"), keyMsg("f"), keyMsg("/"), keyMsg("2026-10-17"))
	if m.store.Selection().SearchDate != "2026-10-17" || m.store.View().TotalActiveCount != 0 {
		t.Fatalf("search date = %q", m.store.Selection().SearchDate)
	}

	m, _ = press(t, m, specialKey("backspace"))
	if got := m.store.Selection().SearchDate; got != "" {
		t.Fatalf("partial input should show every task, search date = %q", got)
	}
	if m.store.View().TotalActiveCount != 1 {
		t.Fatal("partial input should not filter")
	}

	m, _ = press(t, m, keyMsg("7"))
	if m.store.Selection().SearchDate != "2026-10-17" {
		t.Fatalf("search date = %q", m.store.Selection().SearchDate)
	}
	m, _ = press(t, m, specialKey("backspace"), specialKey("backspace"), keyMsg("99"))
	if got := m.store.Selection().SearchDate; got != "" || !m.statusErr {
		t.Fatalf("impossible day should clear the filter, search date = %q", got)
	}
	if m.store.View().TotalActiveCount != 1 {
		t.Fatal("impossible day should not filter")
	}
}

func TestApp_PageSizePicker(t *testing.T) {
	m := testModel(t)
	m, _ = press(t, m, keyMsg("]"))
	if m.store.Selection().PageSize != 5 {
		t.Fatal("page size keys only work under the page filter")
	}

	m, _ = press(t, m, keyMsg("f"), keyMsg("f"), keyMsg("f"))
	if m.store.Selection().Filter != tasks.FilterPage {
		t.Fatalf("filter = %s", m.store.Selection().Filter)
	}
	if !strings.Contains(m.View(), "Per page:") {
		t.Fatal("page filter should show the page-size picker")
	}
	m, _ = press(t, m, keyMsg("]"))
	if got := m.store.Selection().PageSize; got != 10 {
		t.Fatalf("page size = %d, want 10", got)
	}
	m, _ = press(t, m, keyMsg("["), keyMsg("["))
	if got := m.store.Selection().PageSize; got != 50 {
		t.Fatalf("page size = %d, want wrap to 50", got)
	}
}

func TestApp_FilterCycleWraps(t *testing.T) {
	m := testModel(t)
	m, _ = press(t, m, keyMsg("F"))
	if m.store.Selection().Filter != tasks.FilterPage {
		t.Fatalf("reverse cycle from all = %s", m.store.Selection().Filter)
	}
	m, _ = press(t, m, keyMsg("f"))
	if m.store.Selection().Filter != tasks.FilterAll {
		t.Fatalf("forward cycle from page = %s", m.store.Selection().Filter)
	}
}

func TestApp_PersistFailureEvent(t *testing.T) {
	m := testModel(t)
	b := bus.New()
	m.sub = b.Subscribe("")
	defer b.Unsubscribe(m.sub)

	m = send(t, m, taskEventMsg{event: bus.Event{
		Topic:   bus.TopicStorePersistFailed,
		Payload: bus.PersistFailedEvent{Err: errors.New("kv set: disk is full")},
	}})
	if !m.statusErr || !strings.Contains(m.status, "Disk is full") {
		t.Fatalf("status = %q (err=%v)", m.status, m.statusErr)
	}
	if m.activity.Len() != 1 {
		t.Fatal("failure should be recorded in the activity feed")
	}
}

func TestApp_HelpShowsActivityToggle(t *testing.T) {
	m := testModel(t)
	if strings.Contains(m.help(), "activity") {
		t.Fatalf("empty feed should not advertise ctrl+a: %q", m.help())
	}
	m.activity.Add(ActivityItem{Icon: "+", Message: "added", At: m.now()})
	if !strings.Contains(m.help(), "ctrl+a show activity") {
		t.Fatalf("collapsed feed help = %q", m.help())
	}
	m, _ = press(t, m, specialKey("ctrl+a"))
	if !strings.Contains(m.help(), "ctrl+a hide activity") {
		t.Fatalf("expanded feed help = %q", m.help())
	}
}

func TestApp_ConfigReload(t *testing.T) {
	m := testModel(t)
	ch := make(chan config.ReloadEvent)
	m.configEvents = ch
	m.loadConfig = func() (config.Config, error) {
		return config.Config{PageSizes: []int{3, 6}}, nil
	}

	m = send(t, m, configReloaded{event: config.ReloadEvent{Path: "config.yaml"}})
	if len(m.pageSizes) != 2 || m.pageSizes[0] != 3 {
		t.Fatalf("page sizes = %v", m.pageSizes)
	}
	if m.status != "Config reloaded" {
		t.Fatalf("status = %q", m.status)
	}

	m.loadConfig = func() (config.Config, error) { return config.Config{}, errors.New("parse config.yaml: bad indent") }
	m = send(t, m, configReloaded{})
	if !m.statusErr || len(m.pageSizes) != 2 {
		t.Fatal("a failed reload keeps the previous options")
	}
}

func TestApp_ContextDoneQuits(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(ctxDoneMsg{})
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctx done should quit")
	}
}

func TestApp_EmptyListView(t *testing.T) {
	view := testModel(t).View()
	for _, want := range []string{"No tasks to show.", "Page 1 of 1", "Total: 0", "Filter: [All]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRun_RequiresStore(t *testing.T) {
	if err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestWaitForTaskEvent_ClosedSubscription(t *testing.T) {
	b := bus.New()
	sub := b.Subscribe("task.")
	b.Unsubscribe(sub)
	if msg := waitForTaskEvent(sub)(); msg != nil {
		t.Fatalf("closed subscription should yield nil, got %#v", msg)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héll…" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
