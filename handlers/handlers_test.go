package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/handlers"
	"code.cloudfoundry.org/cdnbroker/handlers/fake_handlers"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"github.com/prometheus/client_golang/prometheus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handlers", func() {
	var (
		broker   *fake_handlers.FakeBroker
		registry *prometheus.Registry
		handler  http.Handler
		recorder *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		broker = &fake_handlers.FakeBroker{}
		registry = prometheus.NewRegistry()
		handler = handlers.New(logger, broker, registry)
		recorder = httptest.NewRecorder()
	})

	serve := func(method, path, body string) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		handler.ServeHTTP(recorder, req)
	}

	Describe("GET /metrics", func() {
		BeforeEach(func() {
			counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "cdnbroker_test_total", Help: "test"})
			registry.MustRegister(counter)
			counter.Inc()
		})

		It("exposes the registry", func() {
			serve(http.MethodGet, "/metrics", "")
			Ω(recorder.Code).Should(Equal(http.StatusOK))
			Ω(recorder.Body.String()).Should(ContainSubstring("cdnbroker_test_total 1"))
		})
	})

	Describe("GET /v1/round", func() {
		Context("before any round has completed", func() {
			It("is not found", func() {
				serve(http.MethodGet, "/v1/round", "")
				Ω(recorder.Code).Should(Equal(http.StatusNotFound))
			})
		})

		Context("after a round", func() {
			BeforeEach(func() {
				result := brokertypes.NewClearingResult(brokertypes.OutcomeCleared)
				result.Assignments = []brokertypes.Assignment{{Bid: brokertypes.Bid{CDN: "A"}}}
				broker.LastRoundReturns(brokertypes.Round{
					ID:       "round-1",
					Method:   "Exchange",
					Requests: []brokertypes.Request{{ID: "r1"}},
					Result:   result,
					Duration: time.Second,
				}, true)
			})

			It("summarizes it as JSON", func() {
				serve(http.MethodGet, "/v1/round", "")
				Ω(recorder.Code).Should(Equal(http.StatusOK))
				Ω(recorder.Header().Get("Content-Type")).Should(Equal("application/json"))

				var summary brokertypes.RoundSummary
				Ω(json.Unmarshal(recorder.Body.Bytes(), &summary)).Should(Succeed())
				Ω(summary.ID).Should(Equal("round-1"))
				Ω(summary.Outcome).Should(Equal(brokertypes.OutcomeCleared))
				Ω(summary.NumRequests).Should(Equal(1))
				Ω(summary.AcceptedByCDN).Should(Equal(map[string]int{"A": 1}))
			})
		})
	})

	Describe("GET /v1/record", func() {
		BeforeEach(func() {
			snapshot := scenario.NewSnapshot(nil, nil, []brokertypes.CDN{{ID: "A", Clusters: []string{"C2", "C1"}}}, nil)
			broker.RecordReturns(scenario.NewRecord(snapshot, brokertypes.Bids{}, brokertypes.AcceptedBids{"L": {CDN: "A", Cluster: "C1"}}))
		})

		It("streams the msgpack record", func() {
			serve(http.MethodGet, "/v1/record", "")
			Ω(recorder.Code).Should(Equal(http.StatusOK))
			Ω(recorder.Header().Get("Content-Type")).Should(Equal("application/msgpack"))

			record, err := scenario.ReadRecord(recorder.Body)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(record.AcceptedBids["L"].Cluster).Should(Equal("C1"))
			Ω(record.Scenario.CDNs[0].Clusters).Should(Equal([]string{"C1", "C2"}))
		})
	})

	Describe("POST /v1/requests", func() {
		It("queues the requests with a fresh attempt count", func() {
			serve(http.MethodPost, "/v1/requests", `[{"id":"r1","mgID":"L","bitrate":10,"attempts":3}]`)
			Ω(recorder.Code).Should(Equal(http.StatusAccepted))
			Ω(broker.AddRequestsCallCount()).Should(Equal(1))
			Ω(broker.AddRequestsArgsForCall(0)).Should(Equal([]brokertypes.Request{{ID: "r1", Location: "L", Bitrate: 10}}))
		})

		It("rejects malformed bodies", func() {
			serve(http.MethodPost, "/v1/requests", `{not json`)
			Ω(recorder.Code).Should(Equal(http.StatusBadRequest))
			Ω(broker.AddRequestsCallCount()).Should(BeZero())
		})

		It("rejects requests without a location", func() {
			serve(http.MethodPost, "/v1/requests", `[{"id":"r1","bitrate":10}]`)
			Ω(recorder.Code).Should(Equal(http.StatusUnprocessableEntity))
			Ω(broker.AddRequestsCallCount()).Should(BeZero())
		})
	})
})
