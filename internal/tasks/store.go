package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/basket/tasklist/internal/bus"
	otelPkg "github.com/basket/tasklist/internal/otel"
)

// DefaultStorageKey is the key the browser version of the list used.
const DefaultStorageKey = "myTasks"

// Storage is the durable key-value collaborator the collection is mirrored to.
type Storage interface {
	// KVGet returns ok=false when the key has never been written.
	KVGet(ctx context.Context, key string) (value string, ok bool, err error)
	KVSet(ctx context.Context, key, value string) error
}

// Options configures a Store. Only Storage is required.
type Options struct {
	Storage  Storage
	Key      string
	PageSize int
	Logger   *slog.Logger
	Bus      *bus.Bus
	Tracer   trace.Tracer
	Metrics  *otelPkg.Metrics
	Now      func() time.Time
}

// Counts backs the Total and Active badges.
type Counts struct {
	Total  int
	Active int
}

// Store owns the task collection and the transient selection state.
// Every mutation writes the whole collection back to Storage.
type Store struct {
	storage Storage
	key     string
	logger  *slog.Logger
	bus     *bus.Bus
	tracer  trace.Tracer
	metrics *otelPkg.Metrics
	now     func() time.Time

	mu        sync.RWMutex
	tasks     []Task
	query     Query
	editingID ID
}

// Open loads the collection from storage. A missing or malformed value
// yields an empty collection; Open only fails on invalid options.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Storage == nil {
		return nil, errors.New("tasks: storage is required")
	}
	s := &Store{
		storage: opts.Storage,
		key:     opts.Key,
		logger:  opts.Logger,
		bus:     opts.Bus,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.key == "" {
		s.key = DefaultStorageKey
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otelPkg.NoopProvider().Tracer
	}
	if s.now == nil {
		s.now = time.Now
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	s.query = Query{Filter: FilterAll, PageSize: pageSize, Page: 1}

	recovered := s.load(ctx)
	counts := s.Counts()
	if s.metrics != nil {
		s.metrics.ActiveTasks.Add(ctx, int64(counts.Active))
		if recovered {
			s.metrics.LoadRecoveries.Add(ctx, 1)
		}
	}
	s.bus.Publish(bus.TopicTaskLoaded, bus.TaskLoadedEvent{Total: counts.Total, Active: counts.Active, Recovered: recovered})
	return s, nil
}

func (s *Store) load(ctx context.Context) (recovered bool) {
	ctx, span := otelPkg.StartSpan(ctx, s.tracer, "tasks.load", otelPkg.AttrStorageKey.String(s.key))
	defer span.End()

	s.tasks = []Task{}
	blob, ok, err := s.storage.KVGet(ctx, s.key)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("task storage read failed; starting empty", "key", s.key, "error", err)
		return true
	}
	if !ok {
		s.logger.Info("no stored tasks; starting empty", "key", s.key)
		return false
	}
	loaded, err := DecodeTasks(blob)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("stored tasks malformed; starting empty", "key", s.key, "error", err)
		return true
	}
	s.tasks = loaded
	span.SetAttributes(otelPkg.AttrTaskCount.Int(len(loaded)))
	s.logger.Info("tasks loaded", "key", s.key, "count", len(loaded))
	return false
}

// Add prepends a new task dated today and jumps back to page one.
func (s *Store) Add(ctx context.Context, text string) (Task, error) {
	ctx, span := otelPkg.StartSpan(ctx, s.tracer, "tasks.add", otelPkg.AttrOperation.String("add"))
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		s.rejected(ctx, "add")
		return Task{}, ErrEmptyText
	}

	s.mu.Lock()
	t := Task{ID: s.freshIDLocked(), Text: text, CreatedAt: DateOf(s.now())}
	s.tasks = append([]Task{t}, s.tasks...)
	s.query.Page = 1
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	span.SetAttributes(otelPkg.AttrTaskID.String(t.ID.String()))
	if s.metrics != nil {
		s.metrics.TasksAdded.Add(ctx, 1)
		s.metrics.ActiveTasks.Add(ctx, 1)
	}
	s.logger.Info("task added", "task_id", t.ID.String(), "length", len(text))
	s.bus.Publish(bus.TopicTaskAdded, bus.TaskChangedEvent{TaskID: t.ID.String(), Date: t.CreatedAt.String(), Length: len(text)})
	return t.clone(), err
}

// freshIDLocked returns an id not already present in the collection.
func (s *Store) freshIDLocked() ID {
	for {
		id := NewID()
		if s.indexLocked(id) < 0 {
			return id
		}
	}
}

// Update replaces the text of an active task and stamps UpdatedAt.
func (s *Store) Update(ctx context.Context, id ID, text string) (Task, error) {
	ctx, span := otelPkg.StartSpan(ctx, s.tracer, "tasks.update",
		otelPkg.AttrOperation.String("update"),
		otelPkg.AttrTaskID.String(id.String()),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		s.rejected(ctx, "update")
		return Task{}, ErrEmptyText
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || s.tasks[i].Deleted() {
		s.mu.Unlock()
		return Task{}, ErrNotFound
	}
	today := DateOf(s.now())
	s.tasks[i].Text = text
	s.tasks[i].UpdatedAt = &today
	t := s.tasks[i].clone()
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.TasksUpdated.Add(ctx, 1)
	}
	s.logger.Info("task updated", "task_id", id.String(), "length", len(text))
	s.bus.Publish(bus.TopicTaskUpdated, bus.TaskChangedEvent{TaskID: id.String(), Date: today.String(), Length: len(text)})
	return t, err
}

// Delete soft-deletes an active task. The row stays in storage forever.
// Deleting an already-deleted task is a no-op that keeps the first date.
func (s *Store) Delete(ctx context.Context, id ID) (Task, error) {
	ctx, span := otelPkg.StartSpan(ctx, s.tracer, "tasks.delete",
		otelPkg.AttrOperation.String("delete"),
		otelPkg.AttrTaskID.String(id.String()),
	)
	defer span.End()

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || s.tasks[i].Deleted() {
		s.mu.Unlock()
		return Task{}, ErrNotFound
	}
	today := DateOf(s.now())
	s.tasks[i].DeletedAt = &today
	if s.editingID.String() == id.String() {
		s.editingID = ID{}
	}
	t := s.tasks[i].clone()
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.TasksDeleted.Add(ctx, 1)
		s.metrics.ActiveTasks.Add(ctx, -1)
	}
	s.logger.Info("task deleted", "task_id", id.String())
	s.bus.Publish(bus.TopicTaskDeleted, bus.TaskChangedEvent{TaskID: id.String(), Date: today.String(), Length: len(t.Text)})
	return t, err
}

// Get returns a task by id, deleted or not.
func (s *Store) Get(id ID) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, false
	}
	return s.tasks[i].clone(), true
}

// BeginEdit opens an edit session on an active task and returns its text.
func (s *Store) BeginEdit(id ID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || s.tasks[i].Deleted() {
		return "", ErrNotFound
	}
	s.editingID = id
	return s.tasks[i].Text, nil
}

// EditingID returns the id of the task being edited, if any.
func (s *Store) EditingID() (ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editingID, !s.editingID.IsZero()
}

// CommitEdit applies text to the task being edited. The session stays open
// when the text is rejected so the user can fix it.
func (s *Store) CommitEdit(ctx context.Context, text string) (Task, error) {
	id, ok := s.EditingID()
	if !ok {
		return Task{}, ErrNoEdit
	}
	t, err := s.Update(ctx, id, text)
	if errors.Is(err, ErrEmptyText) {
		return Task{}, err
	}
	s.CancelEdit()
	return t, err
}

// CancelEdit discards the edit session without touching the collection.
func (s *Store) CancelEdit() {
	s.mu.Lock()
	s.editingID = ID{}
	s.mu.Unlock()
}

// SetFilter switches filter mode; a change resets to page one.
func (s *Store) SetFilter(f FilterType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query.Filter != f {
		s.query.Filter = f
		s.query.Page = 1
	}
}

func (s *Store) SetSearchText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query.SearchText != text {
		s.query.SearchText = text
		s.query.Page = 1
	}
}

func (s *Store) SetSearchDate(d Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query.SearchDate != d {
		s.query.SearchDate = d
		s.query.Page = 1
	}
}

func (s *Store) SetPageSize(n int) error {
	if n < 1 {
		return ErrInvalidPageSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query.PageSize != n {
		s.query.PageSize = n
		s.query.Page = 1
	}
	return nil
}

// SetPage moves to page n, clamped into the valid range.
func (s *Store) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.query
	q.Page = n
	s.query.Page = ComputeActiveView(s.tasks, q).CurrentPage
}

func (s *Store) NextPage() { s.SetPage(s.Selection().Page + 1) }
func (s *Store) PrevPage() { s.SetPage(s.Selection().Page - 1) }

// Selection returns the current transient selection state.
func (s *Store) Selection() Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// View derives the page the view layer renders. It also clamps the stored
// page when the result set has shrunk under it.
func (s *Store) View() ActiveView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := ComputeActiveView(s.tasks, s.query)
	s.query.Page = v.CurrentPage
	return v
}

// Tasks returns a copy of the raw collection, deleted rows included.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks)
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := Counts{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if !t.Deleted() {
			c.Active++
		}
	}
	return c
}

// Merge folds an imported collection into the stored one and persists the
// result. Incoming rows come first in their own order, followed by stored
// rows the import does not mention. A stored row is never dropped, and a
// deleted row stays deleted with its original deletedAt.
func (s *Store) Merge(ctx context.Context, incoming []Task) (MergeResult, error) {
	seen := make(map[string]struct{}, len(incoming))
	for _, t := range incoming {
		if _, dup := seen[t.ID.String()]; dup {
			return MergeResult{}, fmt.Errorf("merge tasks: duplicate id %s", t.ID)
		}
		seen[t.ID.String()] = struct{}{}
	}

	s.mu.Lock()
	var res MergeResult
	before := 0
	stored := make(map[string]Task, len(s.tasks))
	for _, t := range s.tasks {
		stored[t.ID.String()] = t
		if !t.Deleted() {
			before++
		}
	}
	merged := make([]Task, 0, len(incoming)+len(s.tasks))
	for _, t := range incoming {
		old, ok := stored[t.ID.String()]
		switch {
		case !ok:
			res.Added++
		case old.Deleted():
			// Deleted rows are kept as stored.
			t = old
			res.KeptDeleted++
		default:
			res.Updated++
		}
		merged = append(merged, t.clone())
	}
	for _, t := range s.tasks {
		if _, ok := seen[t.ID.String()]; ok {
			continue
		}
		merged = append(merged, t.clone())
		res.Kept++
	}
	s.tasks = merged
	s.editingID = ID{}
	s.query.Page = 1
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	counts := s.Counts()
	if s.metrics != nil {
		s.metrics.ActiveTasks.Add(ctx, int64(counts.Active-before))
	}
	s.logger.Info("tasks merged", "count", counts.Total, "added", res.Added, "updated", res.Updated, "kept", res.Kept, "kept_deleted", res.KeptDeleted)
	s.bus.Publish(bus.TopicTaskLoaded, bus.TaskLoadedEvent{Total: counts.Total, Active: counts.Active})
	return res, err
}

// MergeResult counts how each row was treated by Merge.
type MergeResult struct {
	Added       int // ids new to the store
	Updated     int // active stored rows overwritten by the import
	Kept        int // stored rows the import did not mention
	KeptDeleted int // imported ids that were already deleted
}

func (s *Store) indexLocked(id ID) int {
	for i := range s.tasks {
		if s.tasks[i].ID.String() == id.String() {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context) error {
	ctx, span := otelPkg.StartSpan(ctx, s.tracer, "tasks.persist",
		otelPkg.AttrStorageKey.String(s.key),
		otelPkg.AttrTaskCount.Int(len(s.tasks)),
	)
	defer span.End()

	start := time.Now()
	blob, err := EncodeTasks(s.tasks)
	if err == nil {
		err = s.storage.KVSet(ctx, s.key, blob)
	}
	if s.metrics != nil {
		s.metrics.PersistDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.PersistErrors.Add(ctx, 1)
		}
		s.logger.Error("persist tasks failed", "key", s.key, "error", err)
		s.bus.Publish(bus.TopicStorePersistFailed, bus.PersistFailedEvent{Err: err})
		return fmt.Errorf("persist tasks: %w", err)
	}
	return nil
}

func (s *Store) rejected(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.InputRejected.Add(ctx, 1, metric.WithAttributes(otelPkg.AttrOperation.String(op)))
	}
	s.logger.Debug("empty task text rejected", "operation", op)
}
