package service

import (
	"context"
	"fmt"
	"log/slog"

	"glanceboard.app/embedgate/common/id"
	"glanceboard.app/embedgate/common/logger"
	"glanceboard.app/embedgate/internal/model"
	"glanceboard.app/embedgate/internal/queue"
	"glanceboard.app/embedgate/internal/store"
)

type EventIngestParams struct {
	RecordID   string  `json:"record_id"`
	RecordType string  `json:"record_type"`
	TraceID    *string `json:"trace_id,omitempty"`
}

type EventIngestResult struct {
	EventLog *model.EmbedEventLog
	Enqueued bool
}

// EventIngestService accepts record-load notifications from the host system.
// It persists an audit row and hands the invocation to the queue; the actual
// token exchange happens in the worker.
type EventIngestService interface {
	Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error)
	History(ctx context.Context, recordID string, limit int32) ([]model.EmbedEventLog, error)
}

type eventIngestService struct {
	eventLogs store.EmbedEventLogStore
	queue     queue.Producer
	embedType string
	logger    *slog.Logger
}

func NewEventIngestService(eventLogs store.EmbedEventLogStore, producer queue.Producer, embedType string, logger *slog.Logger) EventIngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventIngestService{
		eventLogs: eventLogs,
		queue:     producer,
		embedType: embedType,
		logger:    logger,
	}
}

func (s *eventIngestService) Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error) {
	if params.RecordID == "" || params.RecordType == "" {
		return nil, fmt.Errorf("record_id and record_type are required")
	}

	eventLog, err := s.eventLogs.Create(ctx, &model.EmbedEventLog{
		ID:         id.New(),
		RecordID:   params.RecordID,
		RecordType: params.RecordType,
		EmbedType:  s.embedType,
		Outcome:    string(model.EmbedEventOutcomeQueued),
	})
	if err != nil {
		return nil, fmt.Errorf("creating event log: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventLogID: &eventLog.ID,
		RecordID:   &eventLog.RecordID,
		RecordType: &eventLog.RecordType,
	})

	if err := s.queue.Enqueue(ctx, queue.RecordLoadMessage{
		EventLogID: eventLog.ID,
		RecordID:   eventLog.RecordID,
		RecordType: eventLog.RecordType,
		TraceID:    params.TraceID,
	}); err != nil {
		// The audit row stays in queued state; the reclaim path has nothing
		// to pick up, so surface the failure to the caller.
		return nil, fmt.Errorf("enqueueing record load: %w", err)
	}

	s.logger.InfoContext(ctx, "record load ingested")

	return &EventIngestResult{EventLog: eventLog, Enqueued: true}, nil
}

// History lists recent invocations for one record, newest first.
func (s *eventIngestService) History(ctx context.Context, recordID string, limit int32) ([]model.EmbedEventLog, error) {
	if recordID == "" {
		return nil, fmt.Errorf("record_id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.eventLogs.ListByRecord(ctx, recordID, limit)
}
