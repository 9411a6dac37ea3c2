// Package handlers serves the broker's debug and intake routes.
package handlers

import (
	"encoding/json"
	"net/http"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/lager/v3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:generate counterfeiter -o fake_handlers/fake_broker.go . Broker
type Broker interface {
	LastRound() (brokertypes.Round, bool)
	Record() scenario.Record
	AddRequests(requests []brokertypes.Request)
}

type handler struct {
	logger lager.Logger
	broker Broker
}

func New(logger lager.Logger, broker Broker, gatherer prometheus.Gatherer) http.Handler {
	h := &handler{
		logger: logger.Session("handlers"),
		broker: broker,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/round", h.lastRound)
		r.Get("/record", h.record)
		r.Post("/requests", h.addRequests)
	})

	return r
}

func (h *handler) lastRound(w http.ResponseWriter, r *http.Request) {
	round, ok := h.broker.LastRound()
	if !ok {
		http.Error(w, "no round has completed", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(round.Summary()); err != nil {
		h.logger.Error("failed-to-encode-round", err)
	}
}

func (h *handler) record(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/msgpack")
	if err := scenario.WriteRecord(w, h.broker.Record()); err != nil {
		h.logger.Error("failed-to-write-record", err)
	}
}

func (h *handler) addRequests(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.Session("add-requests")

	var requests []brokertypes.Request
	if err := json.NewDecoder(r.Body).Decode(&requests); err != nil {
		logger.Error("failed-to-decode", err)
		http.Error(w, "malformed request list", http.StatusBadRequest)
		return
	}

	for i := range requests {
		if requests[i].ID == "" || requests[i].Location == "" {
			logger.Info("rejected-request", lager.Data{"id": requests[i].ID, "location": requests[i].Location})
			http.Error(w, "every request needs an id and a location", http.StatusUnprocessableEntity)
			return
		}
		requests[i].Attempts = 0
	}

	h.broker.AddRequests(requests)
	logger.Info("queued", lager.Data{"requests": len(requests)})
	w.WriteHeader(http.StatusAccepted)
}
