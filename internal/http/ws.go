package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/registry"
)

var upgrader = websocket.Upgrader{}

// inboundMsg covers everything a client sends over its session.
type inboundMsg struct {
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (s *Server) handleDriverWS(w http.ResponseWriter, r *http.Request) {
	s.handleWS(registry.RoleDriver, w, r)
}

func (s *Server) handlePassengerWS(w http.ResponseWriter, r *http.Request) {
	s.handleWS(registry.RolePassenger, w, r)
}

// handleWS upgrades the connection, registers the session, and runs its
// read loop until the peer goes away. Dropping the session triggers the
// supervisor's disconnect handling, but only if this session is still the
// actor's current one (a reconnect may have replaced it).
func (s *Server) handleWS(role registry.Role, w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "actor id required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "role", string(role), "actor_id", id, "error", err)
		return
	}

	sess := s.registry.Add(role, id, conn)
	observability.SessionsConnected.WithLabelValues(string(role)).Inc()
	s.logger.Info("session connected", "role", string(role), "actor_id", id)

	s.readLoop(role, id, conn)

	if s.registry.Drop(sess) {
		observability.SessionsConnected.WithLabelValues(string(role)).Dec()
		s.logger.Info("session disconnected", "role", string(role), "actor_id", id)
		switch role {
		case registry.RoleDriver:
			s.trips.DriverDisconnected(id)
		case registry.RolePassenger:
			s.trips.PassengerDisconnected(id)
		}
	}
}

func (s *Server) readLoop(role registry.Role, id string, conn *websocket.Conn) {
	for {
		var msg inboundMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if role != registry.RoleDriver {
			continue
		}
		switch msg.Type {
		case "available":
			s.trips.SetDriverAvailability(id, true)
		case "unavailable":
			s.trips.SetDriverAvailability(id, false)
		case "position":
			s.trips.PositionUpdate(context.Background(), id, models.Coord{Lat: msg.Lat, Lon: msg.Lon})
		default:
			s.logger.Debug("unknown ws message", "role", string(role), "actor_id", id, "type", msg.Type)
		}
	}
}
