package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"glanceboard.app/embedgate/common/logger"
	"glanceboard.app/embedgate/internal/host"
	"glanceboard.app/embedgate/internal/model"
	"glanceboard.app/embedgate/internal/queue"
	"glanceboard.app/embedgate/internal/service"
	"glanceboard.app/embedgate/internal/store"
)

type Config struct {
	MaxAttempts int
}

// Worker drains record-load messages and runs the embed flow for each one.
// Flow failures are terminal: the outcome is recorded on the audit row and
// the message is acked. Only infrastructure failures (audit store unavailable)
// travel the requeue/DLQ path.
type Worker struct {
	consumer   *queue.RedisConsumer
	eventLogs  store.EmbedEventLogStore
	flow       service.EmbedFlowService
	hostClient *host.Client
	cfg        Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, eventLogs store.EmbedEventLogStore, flow service.EmbedFlowService, hostClient *host.Client, cfg Config) *Worker {
	return &Worker{
		consumer:   consumer,
		eventLogs:  eventLogs,
		flow:       flow,
		hostClient: hostClient,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"event_log_id", msg.EventLogID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"event_log_id", msg.EventLogID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage runs one embed invocation end to end. Exported so it can be
// reused by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventLogID: &msg.EventLogID,
		RecordID:   &msg.RecordID,
		RecordType: &msg.RecordType,
		MessageID:  &msg.ID,
		Component:  "embedgate.worker",
	})

	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_record_load",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "processing record load",
		"attempt", msg.Attempt)

	eventLog, err := w.eventLogs.GetByID(ctx, msg.EventLogID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Nothing to finalize against; drop the message rather than loop.
			slog.ErrorContext(ctx, "event log missing for message, acking")
			return w.consumer.Ack(ctx, msg)
		}
		return fmt.Errorf("fetching event log: %w", err)
	}

	if eventLog.Outcome != string(model.EmbedEventOutcomeQueued) {
		// Redelivery of an already-finalized invocation. The flow is not
		// idempotent against the provider (each run mints tokens), so skip.
		slog.InfoContext(ctx, "event log already finalized, skipping",
			"outcome", eventLog.Outcome)
		return w.consumer.Ack(ctx, msg)
	}

	startedAt := time.Now().UTC()
	if _, err := w.eventLogs.Update(ctx, eventLog, &startedAt, nil); err != nil {
		return fmt.Errorf("marking event log started: %w", err)
	}

	session := w.hostClient.Session(msg.RecordID, msg.RecordType)
	outcome := w.flow.Run(ctx, session, session)
	sc.RecordError(outcome.Err)

	if err := w.finalize(ctx, eventLog, outcome); err != nil {
		return fmt.Errorf("finalizing event log: %w", err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Log but don't fail; the reclaimer will see a finalized row and skip.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	slog.InfoContext(ctx, "record load processed",
		"outcome", outcome.Outcome)
	return nil
}

func (w *Worker) finalize(ctx context.Context, eventLog *model.EmbedEventLog, outcome service.FlowOutcome) error {
	eventLog.Outcome = string(outcome.Outcome)
	if outcome.CustomerID != "" {
		eventLog.CustomerID = &outcome.CustomerID
	}
	if outcome.Err != nil {
		eventLog.Error = logger.Ptr(outcome.Err.Error())
	}
	if outcome.ErrorClass != "" {
		eventLog.ErrorClass = &outcome.ErrorClass
	}

	finishedAt := time.Now().UTC()
	_, err := w.eventLogs.Update(ctx, eventLog, nil, &finishedAt)
	return err
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"event_log_id", msg.EventLogID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"event_log_id", msg.EventLogID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
