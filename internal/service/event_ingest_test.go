package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glanceboard.app/embedgate/common/id"
	"glanceboard.app/embedgate/internal/model"
	"glanceboard.app/embedgate/internal/queue"
	"glanceboard.app/embedgate/internal/service"
)

var _ = Describe("EventIngestService", func() {
	var (
		svc       service.EventIngestService
		eventLogs *mockEventLogStore
		producer  *mockQueueProducer
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		eventLogs = &mockEventLogStore{}
		producer = &mockQueueProducer{}

		err := id.Init(1)
		Expect(err).NotTo(HaveOccurred())

		svc = service.NewEventIngestService(eventLogs, producer, "dashboard", nil)
	})

	Describe("Ingest", func() {
		It("persists a queued audit row and enqueues the invocation", func() {
			result, err := svc.Ingest(ctx, service.EventIngestParams{
				RecordID:   "rec-1001",
				RecordType: "customer",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Enqueued).To(BeTrue())

			Expect(eventLogs.capturedLog).NotTo(BeNil())
			Expect(eventLogs.capturedLog.RecordID).To(Equal("rec-1001"))
			Expect(eventLogs.capturedLog.RecordType).To(Equal("customer"))
			Expect(eventLogs.capturedLog.EmbedType).To(Equal("dashboard"))
			Expect(eventLogs.capturedLog.Outcome).To(Equal(string(model.EmbedEventOutcomeQueued)))
			Expect(eventLogs.capturedLog.ID).NotTo(BeZero())

			Expect(producer.capturedMsg).NotTo(BeNil())
			Expect(producer.capturedMsg.EventLogID).To(Equal(eventLogs.capturedLog.ID))
			Expect(producer.capturedMsg.RecordID).To(Equal("rec-1001"))
			Expect(producer.capturedMsg.RecordType).To(Equal("customer"))
		})

		It("forwards the trace id onto the queue message", func() {
			traceID := "4bf92f3577b34da6a3ce929d0e0e4736"
			_, err := svc.Ingest(ctx, service.EventIngestParams{
				RecordID:   "rec-1001",
				RecordType: "customer",
				TraceID:    &traceID,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(producer.capturedMsg.TraceID).NotTo(BeNil())
			Expect(*producer.capturedMsg.TraceID).To(Equal(traceID))
		})

		It("rejects requests without a record id", func() {
			_, err := svc.Ingest(ctx, service.EventIngestParams{RecordType: "customer"})

			Expect(err).To(HaveOccurred())
			Expect(eventLogs.capturedLog).To(BeNil())
			Expect(producer.capturedMsg).To(BeNil())
		})

		It("surfaces store failures to the caller", func() {
			eventLogs.createFn = func(ctx context.Context, log *model.EmbedEventLog) (*model.EmbedEventLog, error) {
				return nil, errors.New("connection refused")
			}

			_, err := svc.Ingest(ctx, service.EventIngestParams{
				RecordID:   "rec-1001",
				RecordType: "customer",
			})

			Expect(err).To(HaveOccurred())
			Expect(producer.capturedMsg).To(BeNil())
		})

		It("surfaces enqueue failures and leaves the row queued", func() {
			producer.enqueueFn = func(ctx context.Context, msg queue.RecordLoadMessage) error {
				return errors.New("redis unavailable")
			}

			_, err := svc.Ingest(ctx, service.EventIngestParams{
				RecordID:   "rec-1001",
				RecordType: "customer",
			})

			Expect(err).To(HaveOccurred())
			Expect(eventLogs.capturedLog.Outcome).To(Equal(string(model.EmbedEventOutcomeQueued)))
		})
	})

	Describe("History", func() {
		It("lists recent invocations for a record", func() {
			eventLogs.listFn = func(ctx context.Context, recordID string, limit int32) ([]model.EmbedEventLog, error) {
				Expect(recordID).To(Equal("rec-1001"))
				Expect(limit).To(Equal(int32(20)))
				return []model.EmbedEventLog{{ID: 7, RecordID: recordID}}, nil
			}

			logs, err := svc.History(ctx, "rec-1001", 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].ID).To(Equal(int64(7)))
		})

		It("rejects an empty record id", func() {
			_, err := svc.History(ctx, "", 10)
			Expect(err).To(HaveOccurred())
		})
	})
})
