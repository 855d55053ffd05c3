package service_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glanceboard.app/embedgate/core/config"
	"glanceboard.app/embedgate/internal/domo"
	"glanceboard.app/embedgate/internal/model"
	"glanceboard.app/embedgate/internal/service"
)

var _ = Describe("EmbedFlowService", func() {
	var (
		flow     service.EmbedFlowService
		tokens   *mockTokenExchanger
		renderer *mockRenderer
		record   *mockRecordContext
		sink     *mockOutputSink
		slot     *mockSinkField
		ctx      context.Context
	)

	hostCfg := config.HostConfig{
		ApplicableType:  "customer",
		CustomerIDField: "fld-customer",
		OutputField:     "fld-embed",
	}

	BeforeEach(func() {
		ctx = context.Background()
		tokens = &mockTokenExchanger{}
		renderer = &mockRenderer{}
		record = &mockRecordContext{
			recordType: "customer",
			values:     map[string]string{"fld-customer": "CUST-42"},
		}
		slot = &mockSinkField{}
		sink = &mockOutputSink{fields: map[string]*mockSinkField{"fld-embed": slot}}

		flow = service.NewEmbedFlowService(tokens, renderer, hostCfg, nil)
	})

	Context("with an applicable record and a customer id", func() {
		It("completes and writes visible markup to the sink", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(outcome.Outcome).To(Equal(model.EmbedEventOutcomeCompleted))
			Expect(outcome.CustomerID).To(Equal("CUST-42"))
			Expect(outcome.Err).To(BeNil())

			Expect(slot.written).To(BeTrue())
			Expect(slot.visible).To(BeTrue())
			Expect(slot.content).To(ContainSubstring("embed-token"))
		})

		It("threads the service token into the embed token exchange", func() {
			tokens.serviceTokenFn = func(ctx context.Context) (string, error) {
				return "SVC1", nil
			}

			flow.Run(ctx, record, sink)

			Expect(tokens.serviceTokenCalls).To(Equal(1))
			Expect(tokens.embedTokenCalls).To(Equal(1))
			Expect(tokens.capturedServiceTok).To(Equal("SVC1"))
			Expect(tokens.capturedCustomerID).To(Equal("CUST-42"))
		})

		It("renders the embed token it fetched", func() {
			tokens.embedTokenFn = func(ctx context.Context, serviceToken, customerID string) (string, error) {
				return "EMB1", nil
			}

			flow.Run(ctx, record, sink)

			Expect(renderer.capturedToken).To(Equal("EMB1"))
		})
	})

	Context("with a non-applicable record type", func() {
		BeforeEach(func() {
			record.recordType = "invoice"
		})

		It("skips without touching record fields, tokens, or the sink", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(outcome.Outcome).To(Equal(model.EmbedEventOutcomeSkipped))
			Expect(record.valueCalls).To(BeZero())
			Expect(tokens.serviceTokenCalls).To(BeZero())
			Expect(tokens.embedTokenCalls).To(BeZero())
			Expect(sink.fieldCalls).To(BeZero())
			Expect(slot.written).To(BeFalse())
		})
	})

	Context("with an empty customer id field", func() {
		BeforeEach(func() {
			record.values = map[string]string{}
		})

		It("still completes, requesting an unfiltered scope", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(outcome.Outcome).To(Equal(model.EmbedEventOutcomeCompleted))
			Expect(outcome.CustomerID).To(BeEmpty())
			Expect(tokens.capturedCustomerID).To(BeEmpty())
			Expect(slot.written).To(BeTrue())
		})
	})

	Context("when the customer id lookup fails", func() {
		BeforeEach(func() {
			record.valueErr = errors.New("host api: status 503")
		})

		It("aborts without any token exchange", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(outcome.Outcome).To(Equal(model.EmbedEventOutcomeAborted))
			Expect(outcome.ErrorClass).To(Equal("host"))
			Expect(tokens.serviceTokenCalls).To(BeZero())
			Expect(slot.written).To(BeFalse())
		})
	})

	Context("when the service token exchange fails", func() {
		BeforeEach(func() {
			tokens.serviceTokenFn = func(ctx context.Context) (string, error) {
				return "", &domo.AuthError{Endpoint: "/oauth/token", StatusCode: 500, Reason: "token endpoint returned non-200"}
			}
		})

		It("aborts with class auth and leaves the sink untouched", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(outcome.Outcome).To(Equal(model.EmbedEventOutcomeAborted))
			Expect(outcome.ErrorClass).To(Equal("auth"))
			Expect(outcome.Err).To(HaveOccurred())
			Expect(tokens.embedTokenCalls).To(BeZero())
			Expect(sink.fieldCalls).To(BeZero())
			Expect(slot.written).To(BeFalse())
		})

		It("never leaks credentials through the outcome error", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(strings.ToLower(outcome.Err.Error())).NotTo(ContainSubstring("secret"))
		})
	})

	Context("when the embed token response violates the contract", func() {
		BeforeEach(func() {
			tokens.embedTokenFn = func(ctx context.Context, serviceToken, customerID string) (string, error) {
				return "", &domo.ProtocolError{Endpoint: "/v1/stories/embed/auth", Reason: "missing authentication field"}
			}
		})

		It("aborts with class protocol", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(outcome.Outcome).To(Equal(model.EmbedEventOutcomeAborted))
			Expect(outcome.ErrorClass).To(Equal("protocol"))
			Expect(slot.written).To(BeFalse())
		})
	})

	Context("when the output field is missing from the record", func() {
		BeforeEach(func() {
			sink.fields = map[string]*mockSinkField{}
		})

		It("reports sink_missing after the tokens were fetched", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(outcome.Outcome).To(Equal(model.EmbedEventOutcomeSinkMissing))
			Expect(outcome.CustomerID).To(Equal("CUST-42"))
			Expect(tokens.embedTokenCalls).To(Equal(1))
		})
	})

	Context("when the sink write fails", func() {
		BeforeEach(func() {
			slot.writeErr = errors.New("host api: status 502")
		})

		It("aborts with class host", func() {
			outcome := flow.Run(ctx, record, sink)

			Expect(outcome.Outcome).To(Equal(model.EmbedEventOutcomeAborted))
			Expect(outcome.ErrorClass).To(Equal("host"))
			Expect(slot.written).To(BeFalse())
		})
	})
})
