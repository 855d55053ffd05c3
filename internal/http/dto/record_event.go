package dto

import "time"

// IngestRecordEventRequest is the notification the host system posts when a
// user opens a record.
type IngestRecordEventRequest struct {
	RecordID   string `json:"record_id" binding:"required" jsonschema:"description=Host record identifier"`
	RecordType string `json:"record_type" binding:"required" jsonschema:"description=Host record type discriminator"`
}

type IngestRecordEventResponse struct {
	EventLogID int64  `json:"event_log_id"`
	Outcome    string `json:"outcome"`
	Enqueued   bool   `json:"enqueued"`
}

// RecordEventLogResponse is one audit entry in a record's invocation history.
// It carries metadata only; token material never leaves the worker.
type RecordEventLogResponse struct {
	ID         int64      `json:"id"`
	RecordID   string     `json:"record_id"`
	RecordType string     `json:"record_type"`
	CustomerID *string    `json:"customer_id,omitempty"`
	EmbedType  string     `json:"embed_type"`
	Outcome    string     `json:"outcome"`
	ErrorClass *string    `json:"error_class,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
