package host_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glanceboard.app/embedgate/core/config"
	"glanceboard.app/embedgate/internal/host"
)

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		client *host.Client
		ctx    context.Context
	)

	newClient := func(handler http.Handler) *host.Client {
		server = httptest.NewServer(handler)
		DeferCleanup(server.Close)
		return host.NewClient(config.HostConfig{
			APIBaseURL: server.URL,
			APIToken:   "host-token",
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("GetRecord", func() {
		It("fetches a record with bearer auth", func() {
			client = newClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/api/v1/records/rec-1001"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer host-token"))

				json.NewEncoder(w).Encode(map[string]any{
					"id":   "rec-1001",
					"type": "customer",
					"fields": map[string]any{
						"fld-customer": map[string]string{"value": "CUST-42"},
					},
				})
			}))

			record, err := client.GetRecord(ctx, "rec-1001")

			Expect(err).NotTo(HaveOccurred())
			Expect(record.Type).To(Equal("customer"))
			Expect(record.Fields["fld-customer"].Value).To(Equal("CUST-42"))
		})

		It("returns ErrRecordNotFound on 404", func() {
			client = newClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))

			_, err := client.GetRecord(ctx, "rec-gone")

			Expect(err).To(MatchError(host.ErrRecordNotFound))
		})

		It("fails on a non-200 response", func() {
			client = newClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))

			_, err := client.GetRecord(ctx, "rec-1001")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("WriteField", func() {
		It("puts content and visibility to the field endpoint", func() {
			var captured map[string]any
			client = newClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPut))
				Expect(r.URL.Path).To(Equal("/api/v1/records/rec-1001/fields/fld-embed"))
				Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())
				w.WriteHeader(http.StatusNoContent)
			}))

			err := client.WriteField(ctx, "rec-1001", "fld-embed", host.FieldWrite{
				Content: "<iframe></iframe>",
				Visible: true,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(captured["content"]).To(Equal("<iframe></iframe>"))
			Expect(captured["visible"]).To(BeTrue())
		})

		It("returns ErrFieldNotFound on 404", func() {
			client = newClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))

			err := client.WriteField(ctx, "rec-1001", "fld-missing", host.FieldWrite{})

			Expect(err).To(MatchError(host.ErrFieldNotFound))
		})
	})
})

var _ = Describe("RecordSession", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("answers the record type without hitting the API", func() {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		DeferCleanup(server.Close)

		client := host.NewClient(config.HostConfig{APIBaseURL: server.URL})
		session := client.Session("rec-1001", "invoice")

		Expect(session.RecordType()).To(Equal("invoice"))
		Expect(calls).To(BeZero())
	})

	It("fetches the record once and serves both field reads and sink lookup from it", func() {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			json.NewEncoder(w).Encode(map[string]any{
				"id":   "rec-1001",
				"type": "customer",
				"fields": map[string]any{
					"fld-customer": map[string]string{"value": "CUST-42"},
					"fld-embed":    map[string]string{"value": ""},
				},
			})
		}))
		DeferCleanup(server.Close)

		client := host.NewClient(config.HostConfig{APIBaseURL: server.URL})
		session := client.Session("rec-1001", "customer")

		value, err := session.Value(ctx, "fld-customer")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("CUST-42"))

		_, ok, err := session.Field(ctx, "fld-embed")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		Expect(calls).To(Equal(1))
	})

	It("reports a missing sink field without error", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "rec-1001",
				"type":   "customer",
				"fields": map[string]any{},
			})
		}))
		DeferCleanup(server.Close)

		client := host.NewClient(config.HostConfig{APIBaseURL: server.URL})
		session := client.Session("rec-1001", "customer")

		_, ok, err := session.Field(ctx, "fld-embed")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("returns an empty value for an absent field", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "rec-1001",
				"type":   "customer",
				"fields": map[string]any{},
			})
		}))
		DeferCleanup(server.Close)

		client := host.NewClient(config.HostConfig{APIBaseURL: server.URL})
		session := client.Session("rec-1001", "customer")

		value, err := session.Value(ctx, "fld-customer")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(BeEmpty())
	})
})
