// Package tui is the interactive terminal view of the task list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/basket/tasklist/internal/bus"
	"github.com/basket/tasklist/internal/config"
	"github.com/basket/tasklist/internal/tasks"
)

const (
	activityMaxAge   = 5 * time.Minute
	activityInterval = 30 * time.Second
)

var filterOrder = []tasks.FilterType{tasks.FilterAll, tasks.FilterText, tasks.FilterDate, tasks.FilterPage}

// Options wires the view to the store and its observers. Store is required.
type Options struct {
	Store     *tasks.Store
	Bus       *bus.Bus
	PageSizes []int
	// ConfigEvents and LoadConfig enable live reload of the page-size options.
	ConfigEvents <-chan config.ReloadEvent
	LoadConfig   func() (config.Config, error)
	Logger       *slog.Logger
	Now          func() time.Time
}

type focus int

const (
	focusList focus = iota
	focusAdd
	focusSearch
)

type (
	ctxDoneMsg     struct{}
	activityTick   struct{}
	taskEventMsg   struct{ event bus.Event }
	configReloaded struct{ event config.ReloadEvent }
)

type model struct {
	ctx          context.Context
	store        *tasks.Store
	sub          *bus.Subscription
	configEvents <-chan config.ReloadEvent
	loadConfig   func() (config.Config, error)
	logger       *slog.Logger
	now          func() time.Time

	focus      focus
	addInput   textinput.Model
	textSearch textinput.Model
	dateSearch textinput.Model
	modal      EditModal
	activity   *ActivityFeed
	pageSizes  []int

	cursor    int
	status    string
	statusErr bool
	width     int
}

func newModel(ctx context.Context, opts Options, sub *bus.Subscription) model {
	add := textinput.New()
	add.Prompt = "Add › "
	add.Placeholder = "What needs doing?"
	add.CharLimit = 500
	add.Width = 50

	text := textinput.New()
	text.Prompt = "Search › "
	text.Placeholder = "text contained in the task"
	text.Width = 40

	date := textinput.New()
	date.Prompt = "Date › "
	date.Placeholder = "YYYY-MM-DD"
	date.CharLimit = 10
	date.Width = 12

	sizes := slices.Clone(opts.PageSizes)
	if len(sizes) == 0 {
		sizes = slices.Clone(config.DefaultPageSizes)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return model{
		ctx:          ctx,
		store:        opts.Store,
		sub:          sub,
		configEvents: opts.ConfigEvents,
		loadConfig:   opts.LoadConfig,
		logger:       logger,
		now:          now,
		addInput:     add,
		textSearch:   text,
		dateSearch:   date,
		modal:        NewEditModal(),
		activity:     NewActivityFeed(),
		pageSizes:    sizes,
	}
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Store == nil {
		return errors.New("tui: store is required")
	}
	// bubbletea restores the terminal on a clean exit; an interrupt at the
	// wrong moment can still leave ICRNL off.
	defer bestEffortResetTTY()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sub *bus.Subscription
	if opts.Bus != nil {
		sub = opts.Bus.Subscribe("")
		defer opts.Bus.Unsubscribe(sub)
	}

	p := tea.NewProgram(newModel(ctx, opts, sub), tea.WithAltScreen(), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	_, err := p.Run()
	cancel()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitCtxDone(m.ctx), activityTickCmd()}
	if m.sub != nil {
		cmds = append(cmds, waitForTaskEvent(m.sub))
	}
	if m.configEvents != nil {
		cmds = append(cmds, waitForConfigReload(m.configEvents))
	}
	return tea.Batch(cmds...)
}

func waitCtxDone(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return ctxDoneMsg{}
	}
}

func activityTickCmd() tea.Cmd {
	return tea.Tick(activityInterval, func(time.Time) tea.Msg { return activityTick{} })
}

// waitForTaskEvent blocks until the next event arrives on the subscription.
func waitForTaskEvent(sub *bus.Subscription) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub.Ch()
		if !ok {
			return nil
		}
		return taskEventMsg{event: event}
	}
}

func waitForConfigReload(ch <-chan config.ReloadEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return configReloaded{event: ev}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ctxDoneMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case activityTick:
		m.activity.CleanupOld(m.now(), activityMaxAge)
		return m, activityTickCmd()

	case taskEventMsg:
		m.activity.Record(msg.event, m.now())
		if failed, ok := msg.event.Payload.(bus.PersistFailedEvent); ok {
			m.setError(taskError(failed.Err))
		}
		return m, waitForTaskEvent(m.sub)

	case configReloaded:
		m.reloadConfig(msg.event)
		return m, waitForConfigReload(m.configEvents)

	case EditSubmittedMsg:
		_, err := m.store.CommitEdit(m.ctx, msg.Text)
		switch {
		case errors.Is(err, tasks.ErrEmptyText):
			m.modal.SetErr(msgEmptyTask)
			return m, nil
		case err != nil:
			m.modal.Close()
			m.setError(taskError(err))
		default:
			m.modal.Close()
			m.setStatus("Task updated")
		}
		return m, nil

	case ModalCancelledMsg:
		m.store.CancelEdit()
		m.setStatus("")
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.modal.IsOpen() {
			return m, m.modal.Update(msg)
		}
		switch m.focus {
		case focusAdd:
			return m.updateAdd(msg)
		case focusSearch:
			return m.updateSearch(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.store.View()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "a", "n":
		m.focus = focusAdd
		return m, m.addInput.Focus()
	case "/":
		return m.focusSearchInput()
	case "f", "tab":
		m.cycleFilter(1)
	case "F", "shift+tab":
		m.cycleFilter(-1)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(view.Items)-1 {
			m.cursor++
		}
	case "left", "h", "pgup":
		if view.HasPrev() {
			m.store.PrevPage()
			m.cursor = 0
		}
	case "right", "l", "pgdown":
		if view.HasNext() {
			m.store.NextPage()
			m.cursor = 0
		}
	case "[", "]":
		if m.store.Selection().Filter == tasks.FilterPage {
			step := 1
			if msg.String() == "[" {
				step = -1
			}
			m.cyclePageSize(step)
		}
	case "enter", "e":
		t, ok := m.selected(view)
		if !ok {
			return m, nil
		}
		text, err := m.store.BeginEdit(t.ID)
		if err != nil {
			m.setError(taskError(err))
			return m, nil
		}
		return m, m.modal.Open(text)
	case "d", "x", "delete":
		t, ok := m.selected(view)
		if !ok {
			return m, nil
		}
		if _, err := m.store.Delete(m.ctx, t.ID); err != nil {
			m.setError(taskError(err))
		} else {
			m.setStatus("Task deleted")
		}
	case "ctrl+a":
		m.activity.Toggle()
	}
	m.clampCursor()
	return m, nil
}

func (m model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focus = focusList
		m.addInput.Blur()
		m.setStatus("")
		return m, nil
	case "enter":
		_, err := m.store.Add(m.ctx, m.addInput.Value())
		switch {
		case errors.Is(err, tasks.ErrEmptyText):
			m.setError(msgEmptyTask)
			return m, nil
		case err != nil:
			m.setError(taskError(err))
		default:
			m.setStatus("Task added")
		}
		m.addInput.Reset()
		m.cursor = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.addInput, cmd = m.addInput.Update(msg)
	return m, cmd
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.focus = focusList
		m.textSearch.Blur()
		m.dateSearch.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	if m.store.Selection().Filter == tasks.FilterDate {
		m.dateSearch, cmd = m.dateSearch.Update(msg)
		m.applyDateSearch()
	} else {
		m.textSearch, cmd = m.textSearch.Update(msg)
		m.store.SetSearchText(m.textSearch.Value())
	}
	m.cursor = 0
	return m, cmd
}

// focusSearchInput opens the search box matching the current filter,
// switching to text search from the modes that have no input.
func (m model) focusSearchInput() (tea.Model, tea.Cmd) {
	m.focus = focusSearch
	if m.store.Selection().Filter == tasks.FilterDate {
		return m, m.dateSearch.Focus()
	}
	m.store.SetFilter(tasks.FilterText)
	return m, m.textSearch.Focus()
}

func (m *model) applyDateSearch() {
	raw := strings.TrimSpace(m.dateSearch.Value())
	if raw == "" {
		m.store.SetSearchDate("")
		m.setStatus("")
		return
	}
	if len(raw) < len("2006-01-02") {
		m.store.SetSearchDate("")
		m.setStatus("")
		return
	}
	d, err := tasks.ParseDate(raw)
	if err != nil {
		m.store.SetSearchDate("")
		m.setError("Date must be a real YYYY-MM-DD day")
		return
	}
	m.store.SetSearchDate(d)
	m.setStatus("")
}

func (m *model) cycleFilter(step int) {
	cur := slices.Index(filterOrder, m.store.Selection().Filter)
	next := filterOrder[(cur+step+len(filterOrder))%len(filterOrder)]
	m.store.SetFilter(next)
	m.cursor = 0
}

func (m *model) cyclePageSize(step int) {
	cur := slices.Index(m.pageSizes, m.store.Selection().PageSize)
	next := 0
	if cur >= 0 {
		next = (cur + step + len(m.pageSizes)) % len(m.pageSizes)
	}
	if err := m.store.SetPageSize(m.pageSizes[next]); err != nil {
		m.setError(humanError(err))
		return
	}
	m.cursor = 0
}

func (m *model) reloadConfig(ev config.ReloadEvent) {
	if m.loadConfig == nil {
		return
	}
	cfg, err := m.loadConfig()
	if err != nil {
		m.logger.Warn("config reload failed", "path", ev.Path, "error", err)
		m.setError("Config reload failed: " + humanError(err))
		return
	}
	m.pageSizes = slices.Clone(cfg.PageSizes)
	m.logger.Info("config reloaded", "path", ev.Path, "page_sizes", cfg.PageSizes)
	m.setStatus("Config reloaded")
}

func (m model) selected(view tasks.ActiveView) (tasks.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(view.Items) {
		return tasks.Task{}, false
	}
	return view.Items[m.cursor], true
}

func (m *model) clampCursor() {
	n := len(m.store.View().Items)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *model) setError(s string) {
	m.status = s
	m.statusErr = true
}

var (
	titleS    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	badgeS    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	activeS   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimS      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerS   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedS = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errS      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okS       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func (m model) View() string {
	view := m.store.View()
	sel := m.store.Selection()
	counts := m.store.Counts()

	var b strings.Builder
	b.WriteString(titleS.Render("Task List") + "  ")
	b.WriteString(badgeS.Render(fmt.Sprintf("Total: %d", counts.Total)) + " ")
	b.WriteString(badgeS.Render(fmt.Sprintf("Active: %d", counts.Active)) + "\n\n")

	b.WriteString(m.addInput.View() + "\n\n")
	b.WriteString(m.filterBar(sel) + "\n")
	if line := m.selectionLine(sel); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if modal := m.modal.View(); modal != "" {
		b.WriteString(modal + "\n")
	} else {
		b.WriteString(m.table(view))
	}
	b.WriteString("\n" + pager(view) + "\n")

	if m.status != "" {
		if m.statusErr {
			b.WriteString(errS.Render(m.status) + "\n")
		} else {
			b.WriteString(okS.Render(m.status) + "\n")
		}
	}
	b.WriteString(m.activity.View())
	b.WriteString(dimS.Render(m.help()) + "\n")
	return b.String()
}

func (m model) filterBar(sel tasks.Query) string {
	parts := make([]string, 0, len(filterOrder))
	for _, f := range filterOrder {
		label := strings.ToUpper(string(f[:1])) + string(f[1:])
		if f == sel.Filter {
			parts = append(parts, activeS.Render("["+label+"]"))
		} else {
			parts = append(parts, dimS.Render(" "+label+" "))
		}
	}
	return "Filter: " + strings.Join(parts, " ")
}

// selectionLine renders the control that belongs to the active filter.
func (m model) selectionLine(sel tasks.Query) string {
	switch sel.Filter {
	case tasks.FilterText:
		return m.textSearch.View()
	case tasks.FilterDate:
		return m.dateSearch.View()
	case tasks.FilterPage:
		parts := make([]string, 0, len(m.pageSizes))
		for _, n := range m.pageSizes {
			if n == sel.PageSize {
				parts = append(parts, activeS.Render(fmt.Sprintf("[%d]", n)))
			} else {
				parts = append(parts, dimS.Render(fmt.Sprintf(" %d ", n)))
			}
		}
		return "Per page: " + strings.Join(parts, " ")
	}
	return ""
}

func (m model) table(view tasks.ActiveView) string {
	if len(view.Items) == 0 {
		return dimS.Render("No tasks to show.") + "\n"
	}
	taskW := 40
	if m.width > 0 {
		taskW = max(m.width-40, 12)
	}

	var b strings.Builder
	b.WriteString(headerS.Render(fmt.Sprintf("%-8s %-*s %-10s %-10s", "Sr. No.", taskW, "Task", "Created", "Updated")) + "\n")
	for i, t := range view.Items {
		updated := "-"
		if t.UpdatedAt != nil {
			updated = t.UpdatedAt.String()
		}
		row := fmt.Sprintf("%-8d %-*s %-10s %-10s", view.Offset+i+1, taskW, truncate(t.Text, taskW), t.CreatedAt, updated)
		if i == m.cursor && m.focus == focusList {
			b.WriteString(selectedS.Render("› "+row) + "\n")
		} else {
			b.WriteString("  " + row + "\n")
		}
	}
	return b.String()
}

func pager(view tasks.ActiveView) string {
	prev, next := "‹ Prev", "Next ›"
	if view.HasPrev() {
		prev = activeS.Render(prev)
	} else {
		prev = dimS.Render(prev)
	}
	if view.HasNext() {
		next = activeS.Render(next)
	} else {
		next = dimS.Render(next)
	}
	return fmt.Sprintf("%s  Page %d of %d  %s", prev, view.CurrentPage, view.TotalPages, next)
}

func (m model) help() string {
	switch {
	case m.modal.IsOpen():
		return "enter save · esc cancel"
	case m.focus == focusAdd:
		return "enter add · esc back"
	case m.focus == focusSearch:
		return "type to filter · enter/esc back"
	}
	h := "a add · e edit · d delete · f filter · / search · ←/→ page"
	if m.store.Selection().Filter == tasks.FilterPage {
		h += " · [/] page size"
	}
	switch {
	case m.activity.Len() == 0:
	case m.activity.Collapsed():
		h += " · ctrl+a show activity"
	default:
		h += " · ctrl+a hide activity"
	}
	return h + " · q quit"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
