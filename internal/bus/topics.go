package bus

// Task change topics. Subscribe to "task." for all of them.
const (
	TopicTaskAdded   = "task.added"
	TopicTaskUpdated = "task.updated"
	TopicTaskDeleted = "task.deleted"
	TopicTaskLoaded  = "task.loaded"
)

// Store-level topics.
const (
	TopicStorePersistFailed = "store.persist_failed"
	TopicBackupCompleted    = "store.backup_completed"
)

// TaskChangedEvent is the payload of the task.added, task.updated and
// task.deleted topics.
type TaskChangedEvent struct {
	TaskID string
	Date   string // day the change was stamped with
	Length int    // length of the task text; the text itself is not published
}

// TaskLoadedEvent is published once the collection has been read from storage.
type TaskLoadedEvent struct {
	Total     int
	Active    int
	Recovered bool // storage held a malformed value and was reset to empty
}

// PersistFailedEvent carries a storage write failure to the view layer.
type PersistFailedEvent struct {
	Err error
}

// BackupCompletedEvent is published by the backup scheduler.
type BackupCompletedEvent struct {
	Path string
	Err  error
}
