//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aeroline/flightcore/pkg/models"
)

func TestCreateAndGetFlight(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	vesselID := uuid.NewString()
	_, err := s.UpsertVessel(ctx, &models.Vessel{ID: vesselID, Name: "V1", NoAuthPermission: "owner"})
	require.NoError(t, err)

	flightID := uuid.NewString()
	require.NoError(t, s.CreateFlight(ctx, &models.Flight{ID: flightID, VesselID: vesselID, VesselVersion: 1, Name: "Hop 1"}))

	flight, err := s.GetFlight(ctx, flightID)
	require.NoError(t, err)
	require.Equal(t, "Hop 1", flight.Name)
	require.Equal(t, vesselID, flight.VesselID)
}

func TestGetFlightMissingReturnsNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetFlight(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, models.ErrFlightNotFound)
}

func TestListFlightsForVesselReturnsOnlyMatching(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	vesselA := uuid.NewString()
	vesselB := uuid.NewString()
	_, err := s.UpsertVessel(ctx, &models.Vessel{ID: vesselA, Name: "A", NoAuthPermission: "owner"})
	require.NoError(t, err)
	_, err = s.UpsertVessel(ctx, &models.Vessel{ID: vesselB, Name: "B", NoAuthPermission: "owner"})
	require.NoError(t, err)

	require.NoError(t, s.CreateFlight(ctx, &models.Flight{ID: uuid.NewString(), VesselID: vesselA, VesselVersion: 1}))
	require.NoError(t, s.CreateFlight(ctx, &models.Flight{ID: uuid.NewString(), VesselID: vesselA, VesselVersion: 1}))
	require.NoError(t, s.CreateFlight(ctx, &models.Flight{ID: uuid.NewString(), VesselID: vesselB, VesselVersion: 1}))

	flights, err := s.ListFlightsForVessel(ctx, vesselA)
	require.NoError(t, err)
	require.Len(t, flights, 2)
	for _, f := range flights {
		require.Equal(t, vesselA, f.VesselID)
	}
}

func TestExtendFlightEndPersists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	vesselID := uuid.NewString()
	_, err := s.UpsertVessel(ctx, &models.Vessel{ID: vesselID, Name: "V1", NoAuthPermission: "owner"})
	require.NoError(t, err)

	flightID := uuid.NewString()
	require.NoError(t, s.CreateFlight(ctx, &models.Flight{ID: flightID, VesselID: vesselID, VesselVersion: 1}))

	newEnd := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, s.ExtendFlightEnd(ctx, flightID, newEnd))

	flight, err := s.GetFlight(ctx, flightID)
	require.NoError(t, err)
	require.NotNil(t, flight.End)
	require.WithinDuration(t, newEnd, *flight.End, time.Second)
}
