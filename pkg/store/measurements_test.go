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

func ptr(f float64) *float64 { return &f }

func TestQueryAggregatedGroupsBySecondAndAveragesAcrossRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	flightID := uuid.NewString()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []models.MeasurementRecord{
		{FlightID: flightID, PartIndex: 0, SeriesIndex: 0, StartTime: base, EndTime: base.Add(500 * time.Millisecond), Min: ptr(40), Avg: ptr(41), Max: ptr(42), Measurements: []models.MeasurementSample{{Time: 0, Values: 40.0}}},
		{FlightID: flightID, PartIndex: 0, SeriesIndex: 0, StartTime: base.Add(500 * time.Millisecond), EndTime: base.Add(900 * time.Millisecond), Min: ptr(42), Avg: ptr(43), Max: ptr(44), Measurements: []models.MeasurementSample{{Time: 0.9, Values: 44.0}}},
	}
	require.NoError(t, s.InsertMeasurementRecords(ctx, records))

	buckets, err := s.QueryAggregated(ctx, flightID, 0, 0, base.Add(-time.Second), base.Add(time.Second), ResolutionSecond)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, 40.0, *buckets[0].Min)
	require.Equal(t, 44.0, *buckets[0].Max)
	require.InDelta(t, 42.0, *buckets[0].Avg, 0.001)
}

func TestQueryAggregatedNonNumericSeriesYieldsNilAggregates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	flightID := uuid.NewString()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertMeasurementRecords(ctx, []models.MeasurementRecord{
		{FlightID: flightID, PartIndex: 0, SeriesIndex: 1, StartTime: base, EndTime: base, Measurements: []models.MeasurementSample{{Time: 0, Values: "boot"}}},
	}))

	buckets, err := s.QueryAggregated(ctx, flightID, 0, 1, base.Add(-time.Second), base.Add(time.Second), ResolutionSecond)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Nil(t, buckets[0].Min)
	require.Nil(t, buckets[0].Avg)
	require.Nil(t, buckets[0].Max)
}

func TestQueryRangeCapsAtMaxQueryRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	flightID := uuid.NewString()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	records := make([]models.MeasurementRecord, 0, MaxQueryRows+10)
	for i := 0; i < MaxQueryRows+10; i++ {
		records = append(records, models.MeasurementRecord{
			FlightID: flightID, PartIndex: 0, SeriesIndex: 0,
			StartTime: base.Add(time.Duration(i) * time.Second),
		})
	}
	require.NoError(t, s.InsertMeasurementRecords(ctx, records))

	rows, err := s.QueryRange(ctx, flightID, 0, 0, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, MaxQueryRows)
}
