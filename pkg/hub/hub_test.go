package hub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeroline/flightcore/pkg/eventbus"
	"github.com/aeroline/flightcore/pkg/models"
)

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) Authorize(context.Context, *Client, string) (bool, error) { return true, nil }

type denyAllAuthorizer struct{}

func (denyAllAuthorizer) Authorize(context.Context, *Client, string) (bool, error) { return false, nil }

func newTestClient(h *Hub) *Client {
	return newClient(h, nil, "user-1", []string{"user"})
}

func TestParseRoomClassifiesKnownRooms(t *testing.T) {
	kind, flightID := ParseRoom(RoomFlights)
	require.Equal(t, RoomKindFlights, kind)
	require.Empty(t, flightID)

	kind, flightID = ParseRoom(RoomFlightData("f1"))
	require.Equal(t, RoomKindFlightData, kind)
	require.Equal(t, "f1", flightID)

	kind, flightID = ParseRoom(RoomCommandClient("f1"))
	require.Equal(t, RoomKindCommandClient, kind)
	require.Equal(t, "f1", flightID)

	kind, flightID = ParseRoom(RoomCommandVessel("f1"))
	require.Equal(t, RoomKindCommandVessel, kind)
	require.Equal(t, "f1", flightID)

	kind, _ = ParseRoom("unknown.room")
	require.Equal(t, RoomKindUnknown, kind)
}

func TestSubscribeJoinsRoomAndBroadcastDelivers(t *testing.T) {
	h := New(allowAllAuthorizer{})
	c := newTestClient(h)

	require.NoError(t, h.Subscribe(context.Background(), c, RoomFlights))

	h.Broadcast(RoomFlights, "flight.new", map[string]string{"id": "f1"})

	msg := <-c.send
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	require.Equal(t, "flight.new", env.Type)
	require.Equal(t, RoomFlights, env.Room)
}

func TestSubscribeRejectedByAuthorizer(t *testing.T) {
	h := New(denyAllAuthorizer{})
	c := newTestClient(h)

	err := h.Subscribe(context.Background(), c, RoomFlights)
	require.ErrorIs(t, err, ErrRoomForbidden)
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	h := New(allowAllAuthorizer{})
	c := newTestClient(h)
	require.NoError(t, h.Subscribe(context.Background(), c, RoomFlights))

	h.Unsubscribe(c, RoomFlights)
	h.Broadcast(RoomFlights, "flight.new", nil)

	select {
	case <-c.send:
		t.Fatal("expected no message after unsubscribe")
	default:
	}
}

func TestRemoveClientLeavesAllJoinedRooms(t *testing.T) {
	h := New(allowAllAuthorizer{})
	c := newTestClient(h)
	require.NoError(t, h.Subscribe(context.Background(), c, RoomFlights))
	require.NoError(t, h.Subscribe(context.Background(), c, RoomFlightData("f1")))

	h.removeClient(c)

	h.mu.RLock()
	_, flightsHasClient := h.rooms[RoomFlights]
	_, dataHasClient := h.rooms[RoomFlightData("f1")]
	h.mu.RUnlock()
	require.False(t, flightsHasClient)
	require.False(t, dataHasClient)
}

func TestWireEventBusCommandNewFromClientReachesBothRooms(t *testing.T) {
	h := New(allowAllAuthorizer{})
	bus := eventbus.New()
	WireEventBus(h, bus)

	clientConn := newTestClient(h)
	vesselConn := newTestClient(h)
	require.NoError(t, h.Subscribe(context.Background(), clientConn, RoomCommandClient("f1")))
	require.NoError(t, h.Subscribe(context.Background(), vesselConn, RoomCommandVessel("f1")))

	bus.EmitCommandNew(context.Background(), eventbus.CommandEvent{FlightID: "f1", FromClient: true})

	require.Len(t, clientConn.send, 1)
	require.Len(t, vesselConn.send, 1)
}

func TestWireEventBusCommandNewFromVesselReachesClientRoomOnly(t *testing.T) {
	h := New(allowAllAuthorizer{})
	bus := eventbus.New()
	WireEventBus(h, bus)

	clientConn := newTestClient(h)
	vesselConn := newTestClient(h)
	require.NoError(t, h.Subscribe(context.Background(), clientConn, RoomCommandClient("f1")))
	require.NoError(t, h.Subscribe(context.Background(), vesselConn, RoomCommandVessel("f1")))

	bus.EmitCommandNew(context.Background(), eventbus.CommandEvent{FlightID: "f1", FromClient: false})

	require.Len(t, clientConn.send, 1)
	require.Len(t, vesselConn.send, 0)
}

func TestWireEventBusCommandUpdateFromClientReachesVesselRoomOnly(t *testing.T) {
	h := New(allowAllAuthorizer{})
	bus := eventbus.New()
	WireEventBus(h, bus)

	clientConn := newTestClient(h)
	vesselConn := newTestClient(h)
	require.NoError(t, h.Subscribe(context.Background(), clientConn, RoomCommandClient("f1")))
	require.NoError(t, h.Subscribe(context.Background(), vesselConn, RoomCommandVessel("f1")))

	bus.EmitCommandUpdate(context.Background(), eventbus.CommandEvent{FlightID: "f1", FromClient: true})

	require.Len(t, clientConn.send, 0)
	require.Len(t, vesselConn.send, 1)
}

func TestWireEventBusCommandUpdateFromVesselReachesClientRoomOnly(t *testing.T) {
	h := New(allowAllAuthorizer{})
	bus := eventbus.New()
	WireEventBus(h, bus)

	clientConn := newTestClient(h)
	vesselConn := newTestClient(h)
	require.NoError(t, h.Subscribe(context.Background(), clientConn, RoomCommandClient("f1")))
	require.NoError(t, h.Subscribe(context.Background(), vesselConn, RoomCommandVessel("f1")))

	bus.EmitCommandUpdate(context.Background(), eventbus.CommandEvent{FlightID: "f1", FromClient: false})

	require.Len(t, clientConn.send, 1)
	require.Len(t, vesselConn.send, 0)
}

func TestWireEventBusMeasurementReachesFlightDataRoom(t *testing.T) {
	h := New(allowAllAuthorizer{})
	bus := eventbus.New()
	WireEventBus(h, bus)

	conn := newTestClient(h)
	require.NoError(t, h.Subscribe(context.Background(), conn, RoomFlightData("f1")))

	bus.EmitMeasurement(context.Background(), eventbus.MeasurementEvent{FlightID: "f1", Measurements: []models.MeasurementRecord{{PartIndex: 0}}})

	require.Len(t, conn.send, 1)
}
