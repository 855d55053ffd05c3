package service

import (
	"context"
	"errors"
	"log/slog"

	"glanceboard.app/embedgate/common/logger"
	"glanceboard.app/embedgate/core/config"
	"glanceboard.app/embedgate/internal/domo"
	"glanceboard.app/embedgate/internal/model"
)

// RecordContext exposes the host record that triggered an invocation.
// RecordType must not perform I/O; Value may lazily fetch the record.
type RecordContext interface {
	RecordType() string
	Value(ctx context.Context, fieldID string) (string, error)
}

// SinkField is a writable slot on the host record.
type SinkField interface {
	Write(ctx context.Context, content string, visible bool) error
}

// OutputSink locates the slot that receives the generated markup. The bool
// reports whether the slot exists on this record.
type OutputSink interface {
	Field(ctx context.Context, fieldID string) (SinkField, bool, error)
}

// TokenExchanger performs the two-step provider token exchange.
type TokenExchanger interface {
	FetchServiceToken(ctx context.Context) (string, error)
	FetchEmbedToken(ctx context.Context, serviceToken, customerID string) (string, error)
}

// MarkupRenderer turns an embed token into the host-facing markup. It never
// fails; a bad token renders a placeholder.
type MarkupRenderer interface {
	Render(ctx context.Context, embedToken string) string
}

// FlowOutcome summarizes one invocation. Run never returns an error: the host
// record view must not surface failures, so everything lands here and in the
// log stream instead.
type FlowOutcome struct {
	Outcome    model.EmbedEventOutcome
	CustomerID string
	ErrorClass string
	Err        error
}

type EmbedFlowService interface {
	Run(ctx context.Context, record RecordContext, sink OutputSink) FlowOutcome
}

type embedFlowService struct {
	tokens   TokenExchanger
	renderer MarkupRenderer
	host     config.HostConfig
	logger   *slog.Logger
}

func NewEmbedFlowService(tokens TokenExchanger, renderer MarkupRenderer, host config.HostConfig, logger *slog.Logger) EmbedFlowService {
	if logger == nil {
		logger = slog.Default()
	}
	return &embedFlowService{
		tokens:   tokens,
		renderer: renderer,
		host:     host,
		logger:   logger,
	}
}

// Run executes one invocation end to end: type check, customer id lookup,
// service token, embed token, markup render, sink write. Each step runs at
// most once per invocation; there are no retries. A failure before the sink
// write leaves the sink untouched.
func (s *embedFlowService) Run(ctx context.Context, record RecordContext, sink OutputSink) FlowOutcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "embedgate.flow"})

	if record.RecordType() != s.host.ApplicableType {
		s.logger.InfoContext(ctx, "record type not applicable, skipping",
			"record_type", record.RecordType(),
			"applicable_type", s.host.ApplicableType)
		return FlowOutcome{Outcome: model.EmbedEventOutcomeSkipped}
	}

	customerID, err := record.Value(ctx, s.host.CustomerIDField)
	if err != nil {
		return s.abort(ctx, "", "reading customer id field", err)
	}
	if customerID == "" {
		// An absent customer id produces an unfiltered (all-row) embed scope.
		// That is the configured contract for shared dashboards, but worth a
		// trail in the logs when it happens.
		s.logger.WarnContext(ctx, "customer id field empty, requesting unfiltered embed scope",
			"field_id", s.host.CustomerIDField)
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{CustomerID: logger.Ptr(customerID)})

	serviceToken, err := s.tokens.FetchServiceToken(ctx)
	if err != nil {
		return s.abort(ctx, customerID, "fetching service token", err)
	}

	embedToken, err := s.tokens.FetchEmbedToken(ctx, serviceToken, customerID)
	if err != nil {
		return s.abort(ctx, customerID, "fetching embed token", err)
	}

	content := s.renderer.Render(ctx, embedToken)

	field, ok, err := sink.Field(ctx, s.host.OutputField)
	if err != nil {
		return s.abort(ctx, customerID, "locating output field", err)
	}
	if !ok {
		s.logger.ErrorContext(ctx, "output field missing on record",
			"field_id", s.host.OutputField)
		return FlowOutcome{Outcome: model.EmbedEventOutcomeSinkMissing, CustomerID: customerID}
	}

	if err := field.Write(ctx, content, true); err != nil {
		return s.abort(ctx, customerID, "writing output field", err)
	}

	s.logger.InfoContext(ctx, "embed flow completed")
	return FlowOutcome{Outcome: model.EmbedEventOutcomeCompleted, CustomerID: customerID}
}

func (s *embedFlowService) abort(ctx context.Context, customerID, step string, err error) FlowOutcome {
	class := classifyError(err)
	s.logger.ErrorContext(ctx, "embed flow aborted",
		"step", step,
		"error_class", class,
		"error", err)
	return FlowOutcome{
		Outcome:    model.EmbedEventOutcomeAborted,
		CustomerID: customerID,
		ErrorClass: class,
		Err:        err,
	}
}

func classifyError(err error) string {
	var configErr *domo.ConfigError
	var authErr *domo.AuthError
	var protoErr *domo.ProtocolError
	switch {
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &protoErr):
		return "protocol"
	default:
		return "host"
	}
}
