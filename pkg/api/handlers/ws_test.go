package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeroline/flightcore/pkg/hub"
	"github.com/aeroline/flightcore/pkg/models"
)

type fakeRoomStore struct {
	flight *models.Flight
	vessel *models.Vessel
}

func (f *fakeRoomStore) GetFlight(_ context.Context, id string) (*models.Flight, error) {
	if f.flight == nil || f.flight.ID != id {
		return nil, models.ErrFlightNotFound
	}
	return f.flight, nil
}

func (f *fakeRoomStore) GetVessel(_ context.Context, id string) (*models.Vessel, error) {
	if f.vessel == nil || f.vessel.ID != id {
		return nil, models.ErrVesselNotFound
	}
	return f.vessel, nil
}

func TestRoomAuthorizerAllowsGlobalFlightsRoomForAnyone(t *testing.T) {
	a := NewRoomAuthorizer(&fakeRoomStore{})
	client := &hub.Client{}

	ok, err := a.Authorize(context.Background(), client, hub.RoomFlights)

	require.NoError(t, err)
	require.True(t, ok)
}

func TestRoomAuthorizerDeniesFlightDataWithoutReadAccess(t *testing.T) {
	store := &fakeRoomStore{
		flight: &models.Flight{ID: "f1", VesselID: "v1", NoAuthPermission: "none"},
		vessel: &models.Vessel{ID: "v1", NoAuthPermission: "none"},
	}
	a := NewRoomAuthorizer(store)
	client := &hub.Client{UserID: "someone"}

	ok, err := a.Authorize(context.Background(), client, hub.RoomFlightData("f1"))

	require.NoError(t, err)
	require.False(t, ok)
}

func TestRoomAuthorizerAllowsFlightDataWithReadAccess(t *testing.T) {
	store := &fakeRoomStore{
		flight: &models.Flight{ID: "f1", VesselID: "v1", NoAuthPermission: "read"},
		vessel: &models.Vessel{ID: "v1", NoAuthPermission: "read"},
	}
	a := NewRoomAuthorizer(store)
	client := &hub.Client{}

	ok, err := a.Authorize(context.Background(), client, hub.RoomFlightData("f1"))

	require.NoError(t, err)
	require.True(t, ok)
}

func TestRoomAuthorizerDeniesUnknownFlight(t *testing.T) {
	a := NewRoomAuthorizer(&fakeRoomStore{})
	client := &hub.Client{}

	ok, err := a.Authorize(context.Background(), client, hub.RoomFlightData("missing"))

	require.NoError(t, err)
	require.False(t, ok)
}

func TestRoomAuthorizerRequiresVesselRoleForCommandVesselRoom(t *testing.T) {
	store := &fakeRoomStore{
		flight: &models.Flight{ID: "f1", VesselID: "v1", NoAuthPermission: "read"},
		vessel: &models.Vessel{ID: "v1", NoAuthPermission: "read"},
	}
	a := NewRoomAuthorizer(store)
	client := &hub.Client{Roles: []string{"user"}}

	ok, err := a.Authorize(context.Background(), client, hub.RoomCommandVessel("f1"))

	require.NoError(t, err)
	require.False(t, ok)
}

func TestRoomAuthorizerAllowsCommandVesselRoomForVesselRole(t *testing.T) {
	store := &fakeRoomStore{
		flight: &models.Flight{ID: "f1", VesselID: "v1", NoAuthPermission: "read"},
		vessel: &models.Vessel{ID: "v1", NoAuthPermission: "read"},
	}
	a := NewRoomAuthorizer(store)
	client := &hub.Client{Roles: []string{string(models.RoleVessel)}}

	ok, err := a.Authorize(context.Background(), client, hub.RoomCommandVessel("f1"))

	require.NoError(t, err)
	require.True(t, ok)
}

func TestRoomAuthorizerDeniesUnknownRoom(t *testing.T) {
	a := NewRoomAuthorizer(&fakeRoomStore{})
	client := &hub.Client{}

	ok, err := a.Authorize(context.Background(), client, "bogus.room")

	require.NoError(t, err)
	require.False(t, ok)
}
