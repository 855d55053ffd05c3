package model

import "time"

// EmbedEventOutcome classifies how an embed invocation ended. The host system
// never sees failures; this is the only place they are visible.
type EmbedEventOutcome string

const (
	EmbedEventOutcomeQueued      EmbedEventOutcome = "queued"
	EmbedEventOutcomeCompleted   EmbedEventOutcome = "completed"
	EmbedEventOutcomeSkipped     EmbedEventOutcome = "skipped"
	EmbedEventOutcomeAborted     EmbedEventOutcome = "aborted"
	EmbedEventOutcomeSinkMissing EmbedEventOutcome = "sink_missing"
)

// EmbedEventLog is the audit record for one record-load invocation.
// It holds metadata only: token material is never persisted.
type EmbedEventLog struct {
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      *string    `json:"error,omitempty"`
	ErrorClass *string    `json:"error_class,omitempty"`
	RecordID   string     `json:"record_id"`
	RecordType string     `json:"record_type"`
	CustomerID *string    `json:"customer_id,omitempty"`
	EmbedType  string     `json:"embed_type"`
	Outcome    string     `json:"outcome"`
	ID         int64      `json:"id"`
}
