// Package hub implements the websocket subscription hub: join-time
// authorized rooms that fan out event-bus traffic to connected clients.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aeroline/flightcore/internal/logger"
	"github.com/aeroline/flightcore/pkg/eventbus"
	"github.com/aeroline/flightcore/pkg/metrics"
	"github.com/aeroline/flightcore/pkg/models"
)

// ErrRoomForbidden is returned by an Authorizer to reject a join.
var ErrRoomForbidden = errors.New("not authorized to join room")

// RoomFlights is the global feed of flight creation/update.
const RoomFlights = "flights"

const (
	flightDataPrefix     = "flight_data."
	commandClientPrefix  = "command.client."
	commandVesselPrefix  = "command.vessel."
)

// RoomKind classifies a room name for authorization purposes.
type RoomKind int

const (
	RoomKindUnknown RoomKind = iota
	RoomKindFlights
	RoomKindFlightData
	RoomKindCommandClient
	RoomKindCommandVessel
)

// RoomFlightData names the measurement-push room for a flight.
func RoomFlightData(flightID string) string { return flightDataPrefix + flightID }

// RoomCommandClient names the operator-facing command room for a flight.
func RoomCommandClient(flightID string) string { return commandClientPrefix + flightID }

// RoomCommandVessel names the vessel-facing command room for a flight.
func RoomCommandVessel(flightID string) string { return commandVesselPrefix + flightID }

// ParseRoom classifies room and extracts the flight ID it is scoped to, if
// any.
func ParseRoom(room string) (kind RoomKind, flightID string) {
	switch {
	case room == RoomFlights:
		return RoomKindFlights, ""
	case strings.HasPrefix(room, flightDataPrefix):
		return RoomKindFlightData, strings.TrimPrefix(room, flightDataPrefix)
	case strings.HasPrefix(room, commandClientPrefix):
		return RoomKindCommandClient, strings.TrimPrefix(room, commandClientPrefix)
	case strings.HasPrefix(room, commandVesselPrefix):
		return RoomKindCommandVessel, strings.TrimPrefix(room, commandVesselPrefix)
	default:
		return RoomKindUnknown, ""
	}
}

// Authorizer decides whether a client may join a room. Implementations
// consult the permission and store packages; the hub itself only knows
// room names.
type Authorizer interface {
	Authorize(ctx context.Context, client *Client, room string) (bool, error)
}

// Hub tracks room membership and fans out broadcasts to joined clients.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Client]struct{}
	upgrader   websocket.Upgrader
	authorizer Authorizer
}

// New returns an empty Hub using authorizer to gate room joins.
func New(authorizer Authorizer) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		authorizer: authorizer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Upgrade promotes an HTTP request to a websocket connection and starts the
// client's read/write pumps. userID and roles come from the already
// validated access token.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, userID string, roles []string) (*Client, error) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	client := newClient(h, conn, userID, roles)
	metrics.WebsocketConnections.Inc()
	go client.WritePump()
	go client.ReadPump(r.Context())
	return client, nil
}

// Subscribe authorizes and joins client to room.
func (h *Hub) Subscribe(ctx context.Context, client *Client, room string) error {
	ok, err := h.authorizer.Authorize(ctx, client, room)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomForbidden
	}

	h.mu.Lock()
	members, exists := h.rooms[room]
	if !exists {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
	h.mu.Unlock()
	return nil
}

// Unsubscribe removes client from room.
func (h *Hub) Unsubscribe(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) leaveLocked(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	for room := range client.rooms {
		h.leaveLocked(client, room)
	}
	h.mu.Unlock()
	close(client.send)
	metrics.WebsocketConnections.Dec()
}

// Broadcast delivers an Envelope{eventType, room, data} to every client
// currently joined to room. Slow clients are dropped rather than allowed to
// block the broadcaster.
func (h *Hub) Broadcast(room, eventType string, data any) {
	payload, err := json.Marshal(Envelope{Type: eventType, Room: room, Data: data})
	if err != nil {
		logger.Error("failed to marshal websocket envelope", "room", room, "error", err)
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		select {
		case c.send <- payload:
		default:
			logger.Warn("dropping websocket message for slow client", "room", room)
		}
	}
}

// WireEventBus registers handlers on bus that translate domain events into
// room broadcasts, implementing the fan-out rules of the event bus/hub
// boundary: flight events go to the global room, measurement events go to
// their flight's data room, and command events are routed to the client
// and/or vessel room depending on origin and event kind.
func WireEventBus(h *Hub, bus *eventbus.Bus) {
	bus.OnFlight(func(_ context.Context, kind eventbus.Kind, flight *models.Flight) {
		h.Broadcast(RoomFlights, string(kind), flight)
	})

	bus.OnMeasurement(func(_ context.Context, event eventbus.MeasurementEvent) {
		h.Broadcast(RoomFlightData(event.FlightID), string(eventbus.NewMeasurementCompact), event)
	})

	bus.OnCommand(func(_ context.Context, kind eventbus.Kind, event eventbus.CommandEvent) {
		clientRoom := RoomCommandClient(event.FlightID)
		vesselRoom := RoomCommandVessel(event.FlightID)

		switch kind {
		case eventbus.CommandNew:
			h.Broadcast(clientRoom, string(kind), event)
			if event.FromClient {
				h.Broadcast(vesselRoom, string(kind), event)
			}
		case eventbus.CommandUpdate:
			if event.FromClient {
				h.Broadcast(vesselRoom, string(kind), event)
			} else {
				h.Broadcast(clientRoom, string(kind), event)
			}
		}
	})
}
