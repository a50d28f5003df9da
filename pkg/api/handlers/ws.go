package handlers

import (
	"context"
	"net/http"

	"github.com/aeroline/flightcore/pkg/api/middleware"
	"github.com/aeroline/flightcore/pkg/hub"
	"github.com/aeroline/flightcore/pkg/models"
	"github.com/aeroline/flightcore/pkg/permission"
)

// RoomStore is the persistence surface the websocket room authorizer needs.
// *store.Store satisfies it.
type RoomStore interface {
	GetFlight(ctx context.Context, id string) (*models.Flight, error)
	GetVessel(ctx context.Context, id string) (*models.Vessel, error)
}

// RoomAuthorizer gates websocket room joins per §4.2/§4.10: flight-scoped
// rooms require read access to the flight, vessel-side rooms additionally
// require the vessel role.
type RoomAuthorizer struct {
	store RoomStore
}

// NewRoomAuthorizer returns a RoomAuthorizer.
func NewRoomAuthorizer(store RoomStore) *RoomAuthorizer {
	return &RoomAuthorizer{store: store}
}

// Authorize implements hub.Authorizer.
func (a *RoomAuthorizer) Authorize(ctx context.Context, client *hub.Client, room string) (bool, error) {
	kind, flightID := hub.ParseRoom(room)

	switch kind {
	case hub.RoomKindFlights:
		return true, nil
	case hub.RoomKindFlightData, hub.RoomKindCommandClient, hub.RoomKindCommandVessel:
		flight, err := a.store.GetFlight(ctx, flightID)
		if err != nil {
			return false, nil
		}
		vessel, err := a.store.GetVessel(ctx, flight.VesselID)
		if err != nil {
			return false, nil
		}
		flightGrants := permission.GrantsFromStrings(flight.NoAuthPermission, flight.Permissions)
		vesselGrants := permission.GrantsFromStrings(vessel.NoAuthPermission, vessel.Permissions)
		if !permission.HasFlightPermission(flightGrants, vesselGrants, client.UserID, permission.Read) {
			return false, nil
		}
		if kind == hub.RoomKindCommandVessel && !hasRole(client.Roles, models.RoleVessel) {
			return false, nil
		}
		return true, nil
	default:
		return false, nil
	}
}

func hasRole(roles []string, role models.Role) bool {
	for _, r := range roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

// WebSocketHandler upgrades authenticated and anonymous requests alike to a
// websocket connection; room authorization decides what each client may
// actually join.
type WebSocketHandler struct {
	hub *hub.Hub
}

// NewWebSocketHandler returns a WebSocketHandler serving connections on hub.
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: h}
}

// Upgrade promotes the request to a websocket connection.
func (h *WebSocketHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	userID := ""
	var roles []string
	if claims != nil {
		userID = claims.UserID
		roles = claims.Roles
	}

	if _, err := h.hub.Upgrade(w, r, userID, roles); err != nil {
		BadRequest(w, "failed to upgrade websocket connection")
		return
	}
}
