package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/store"
	"github.com/example/ride-dispatch/internal/trip"
)

type requestRideBody struct {
	PassengerID string       `json:"passenger_id"`
	Origin      models.Coord `json:"origin"`
	Destination models.Coord `json:"destination"`
}

func (s *Server) handleRequestRide(w http.ResponseWriter, r *http.Request) {
	var body requestRideBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.PassengerID == "" {
		writeError(w, http.StatusBadRequest, "passenger_id is required")
		return
	}

	ride, err := s.trips.Request(r.Context(), body.PassengerID, body.Origin, body.Destination)
	switch {
	case errors.Is(err, store.ErrDuplicateActiveRide):
		writeError(w, http.StatusConflict, "passenger already has an active ride")
		return
	case err != nil:
		s.logger.Error("ride request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create ride")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ride": ride})
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.trips.Get(mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "ride not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ride": ride})
}

func (s *Server) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.trips.Cancel(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "ride not found")
		return
	case errors.Is(err, store.ErrStaleTransition):
		writeError(w, http.StatusConflict, "ride can no longer be cancelled")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "cancel failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ride": ride})
}

type acceptRideBody struct {
	DriverID string `json:"driver_id"`
}

func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	var body acceptRideBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.DriverID == "" {
		writeError(w, http.StatusBadRequest, "driver_id is required")
		return
	}

	ride, err := s.trips.Accept(r.Context(), mux.Vars(r)["id"], body.DriverID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"accepted": false, "reason": trip.RejectReason(err)})
		return
	case err != nil:
		// Lost the race or arrived after a terminal transition; the reason
		// lets the driver app tell the two apart.
		writeJSON(w, http.StatusConflict, map[string]any{"accepted": false, "reason": trip.RejectReason(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": true, "ride": ride})
}

type startTripBody struct {
	DriverID string `json:"driver_id"`
}

func (s *Server) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	var body startTripBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := s.trips.Start(r.Context(), mux.Vars(r)["id"], body.DriverID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "ride not found")
		return
	case errors.Is(err, trip.ErrWrongDriver):
		writeError(w, http.StatusForbidden, "ride assigned to another driver")
		return
	case errors.Is(err, store.ErrStaleTransition):
		writeError(w, http.StatusConflict, "ride is not assigned")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "start failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ride": ride})
}

func (s *Server) handleFinishTrip(w http.ResponseWriter, r *http.Request) {
	ride, err := s.trips.Finish(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "ride not found")
		return
	case errors.Is(err, store.ErrStaleTransition):
		writeError(w, http.StatusConflict, "ride is not in progress")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "finish failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ride": ride})
}

func (s *Server) handlePassengerHistory(w http.ResponseWriter, r *http.Request) {
	rides, err := s.history.ListByPassenger(r.Context(), mux.Vars(r)["id"], 50)
	if err != nil {
		s.logger.Error("history listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list rides")
		return
	}
	if rides == nil {
		rides = []models.Ride{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rides": rides})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
