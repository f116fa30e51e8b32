// Package httpapi exposes the coordinator over HTTP and WebSocket: REST
// endpoints for the ride lifecycle and the realtime channel sessions are
// registered on.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-dispatch/internal/archive"
	"github.com/example/ride-dispatch/internal/registry"
	"github.com/example/ride-dispatch/internal/trip"
)

type Server struct {
	trips    *trip.Service
	registry *registry.Registry
	history  archive.Store
	logger   *slog.Logger
	mux      *mux.Router
}

func NewServer(trips *trip.Service, reg *registry.Registry, history archive.Store, logger *slog.Logger) *Server {
	s := &Server{
		trips:    trips,
		registry: reg,
		history:  history,
		logger:   logger,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rides/request", s.handleRequestRide).Methods("POST")
	api.HandleFunc("/rides/{id}", s.handleGetRide).Methods("GET")
	api.HandleFunc("/rides/{id}/cancel", s.handleCancelRide).Methods("POST")
	api.HandleFunc("/rides/{id}/accept", s.handleAcceptRide).Methods("POST")
	api.HandleFunc("/rides/{id}/start", s.handleStartTrip).Methods("POST")
	api.HandleFunc("/rides/{id}/finish", s.handleFinishTrip).Methods("POST")
	api.HandleFunc("/passengers/{id}/rides", s.handlePassengerHistory).Methods("GET")

	s.mux.HandleFunc("/ws/driver/{id}", s.handleDriverWS)
	s.mux.HandleFunc("/ws/passenger/{id}", s.handlePassengerWS)

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
