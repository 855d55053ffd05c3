package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"glanceboard.app/embedgate/internal/http/dto"
	"glanceboard.app/embedgate/internal/model"
	"glanceboard.app/embedgate/internal/service"
)

type RecordEventHandler struct {
	service     service.EventIngestService
	traceHeader string
}

func NewRecordEventHandler(service service.EventIngestService, traceHeader string) *RecordEventHandler {
	return &RecordEventHandler{
		service:     service,
		traceHeader: traceHeader,
	}
}

func (h *RecordEventHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestRecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid ingest request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}
	params := service.EventIngestParams{
		RecordID:   req.RecordID,
		RecordType: req.RecordType,
	}
	if traceID != "" {
		params.TraceID = &traceID
	}

	result, err := h.service.Ingest(ctx, params)
	if err != nil {
		slog.ErrorContext(ctx, "failed to ingest record event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest record event"})
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestRecordEventResponse{
		EventLogID: result.EventLog.ID,
		Outcome:    result.EventLog.Outcome,
		Enqueued:   result.Enqueued,
	})
}

func (h *RecordEventHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	recordID := c.Param("recordId")
	limit := int64(20)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	logs, err := h.service.History(ctx, recordID, int32(limit))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list record events", "error", err, "record_id", recordID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list record events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": toEventLogResponses(logs)})
}

func toEventLogResponses(logs []model.EmbedEventLog) []dto.RecordEventLogResponse {
	out := make([]dto.RecordEventLogResponse, len(logs))
	for i, l := range logs {
		out[i] = dto.RecordEventLogResponse{
			ID:         l.ID,
			RecordID:   l.RecordID,
			RecordType: l.RecordType,
			CustomerID: l.CustomerID,
			EmbedType:  l.EmbedType,
			Outcome:    l.Outcome,
			ErrorClass: l.ErrorClass,
			CreatedAt:  l.CreatedAt,
			StartedAt:  l.StartedAt,
			FinishedAt: l.FinishedAt,
		}
	}
	return out
}
