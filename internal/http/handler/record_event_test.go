package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glanceboard.app/embedgate/internal/http/handler"
	"glanceboard.app/embedgate/internal/model"
	"glanceboard.app/embedgate/internal/service"
)

var _ = Describe("RecordEventHandler", func() {
	var (
		router *gin.Engine
		svc    *mockEventIngestService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockEventIngestService{}
		h := handler.NewRecordEventHandler(svc, "X-Trace-Id")
		router.POST("/record-load", h.Ingest)
		router.GET("/records/:recordId", h.History)
	})

	Describe("Ingest", func() {
		It("returns 202 with the audit row id", func() {
			svc.ingestFn = func(_ context.Context, params service.EventIngestParams) (*service.EventIngestResult, error) {
				Expect(params.RecordID).To(Equal("rec-1001"))
				Expect(params.RecordType).To(Equal("customer"))
				return &service.EventIngestResult{
					EventLog: &model.EmbedEventLog{ID: 42, Outcome: "queued"},
					Enqueued: true,
				}, nil
			}

			body, _ := json.Marshal(map[string]string{
				"record_id":   "rec-1001",
				"record_type": "customer",
			})
			req := httptest.NewRequest(http.MethodPost, "/record-load", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["event_log_id"]).To(BeEquivalentTo(42))
			Expect(resp["enqueued"]).To(BeTrue())
		})

		It("passes the trace header through to the service", func() {
			var gotTrace *string
			svc.ingestFn = func(_ context.Context, params service.EventIngestParams) (*service.EventIngestResult, error) {
				gotTrace = params.TraceID
				return &service.EventIngestResult{
					EventLog: &model.EmbedEventLog{ID: 1, Outcome: "queued"},
					Enqueued: true,
				}, nil
			}

			body, _ := json.Marshal(map[string]string{
				"record_id":   "rec-1001",
				"record_type": "customer",
			})
			req := httptest.NewRequest(http.MethodPost, "/record-load", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Trace-Id", "4bf92f3577b34da6a3ce929d0e0e4736")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(gotTrace).NotTo(BeNil())
			Expect(*gotTrace).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
		})

		It("returns 400 when record_id is missing", func() {
			body, _ := json.Marshal(map[string]string{"record_type": "customer"})
			req := httptest.NewRequest(http.MethodPost, "/record-load", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when the service fails", func() {
			svc.ingestFn = func(_ context.Context, _ service.EventIngestParams) (*service.EventIngestResult, error) {
				return nil, errors.New("boom")
			}

			body, _ := json.Marshal(map[string]string{
				"record_id":   "rec-1001",
				"record_type": "customer",
			})
			req := httptest.NewRequest(http.MethodPost, "/record-load", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("History", func() {
		It("returns the invocation history for a record", func() {
			svc.historyFn = func(_ context.Context, recordID string, limit int32) ([]model.EmbedEventLog, error) {
				Expect(recordID).To(Equal("rec-1001"))
				Expect(limit).To(Equal(int32(5)))
				return []model.EmbedEventLog{
					{ID: 7, RecordID: recordID, RecordType: "customer", EmbedType: "dashboard", Outcome: "completed"},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/records/rec-1001?limit=5", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp struct {
				Events []map[string]any `json:"events"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Events).To(HaveLen(1))
			Expect(resp.Events[0]["outcome"]).To(Equal("completed"))
		})

		It("rejects a non-numeric limit", func() {
			req := httptest.NewRequest(http.MethodGet, "/records/rec-1001?limit=lots", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})

var _ = Describe("SchemaHandler", func() {
	It("publishes the ingest payload schema", func() {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/schemas/record-event", handler.NewSchemaHandler().RecordEvent)

		req := httptest.NewRequest(http.MethodGet, "/schemas/record-event", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var schema map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &schema)).To(Succeed())
		props, ok := schema["properties"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(props).To(HaveKey("record_id"))
		Expect(props).To(HaveKey("record_type"))
	})
})
