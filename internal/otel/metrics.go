package otel

import "go.opentelemetry.io/otel/metric"

// Metrics holds the task store instruments.
type Metrics struct {
	TasksAdded      metric.Int64Counter
	TasksUpdated    metric.Int64Counter
	TasksDeleted    metric.Int64Counter
	InputRejected   metric.Int64Counter
	PersistDuration metric.Float64Histogram
	PersistErrors   metric.Int64Counter
	LoadRecoveries  metric.Int64Counter
	ActiveTasks     metric.Int64UpDownCounter
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.TasksAdded, err = meter.Int64Counter("tasklist.tasks.added",
		metric.WithDescription("Tasks created"),
	); err != nil {
		return nil, err
	}
	if m.TasksUpdated, err = meter.Int64Counter("tasklist.tasks.updated",
		metric.WithDescription("Successful task text edits"),
	); err != nil {
		return nil, err
	}
	if m.TasksDeleted, err = meter.Int64Counter("tasklist.tasks.deleted",
		metric.WithDescription("Tasks soft-deleted"),
	); err != nil {
		return nil, err
	}
	if m.InputRejected, err = meter.Int64Counter("tasklist.input.rejected",
		metric.WithDescription("Add or edit attempts rejected for empty text"),
	); err != nil {
		return nil, err
	}
	if m.PersistDuration, err = meter.Float64Histogram("tasklist.persist.duration",
		metric.WithDescription("Time to write the task collection to storage"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.PersistErrors, err = meter.Int64Counter("tasklist.persist.errors",
		metric.WithDescription("Failed storage writes"),
	); err != nil {
		return nil, err
	}
	if m.LoadRecoveries, err = meter.Int64Counter("tasklist.load.recoveries",
		metric.WithDescription("Startups that found malformed storage and reset to empty"),
	); err != nil {
		return nil, err
	}
	if m.ActiveTasks, err = meter.Int64UpDownCounter("tasklist.tasks.active",
		metric.WithDescription("Tasks that are not soft-deleted"),
	); err != nil {
		return nil, err
	}
	return m, nil
}
