package queue

type TaskType string

const (
	// TaskTypeRecordLoad is emitted when the host system reports a record
	// view. One task corresponds to one embed invocation.
	TaskTypeRecordLoad TaskType = "record_load"
)
