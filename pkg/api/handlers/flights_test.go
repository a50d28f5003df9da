package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aeroline/flightcore/pkg/auth"
	"github.com/aeroline/flightcore/pkg/codec"
	"github.com/aeroline/flightcore/pkg/eventbus"
	"github.com/aeroline/flightcore/pkg/ingest"
	"github.com/aeroline/flightcore/pkg/models"
	"github.com/aeroline/flightcore/pkg/store"
)

type fakeFlightStore struct {
	vessel    *models.Vessel
	flight    *models.Flight
	created   []*models.Flight
	ranges    []models.MeasurementRecord
	buckets   []models.Bucket
	rangeErr  error
	bucketErr error
}

func (f *fakeFlightStore) CreateFlight(_ context.Context, flight *models.Flight) error {
	f.created = append(f.created, flight)
	f.flight = flight
	return nil
}

func (f *fakeFlightStore) GetFlight(_ context.Context, id string) (*models.Flight, error) {
	if f.flight == nil || f.flight.ID != id {
		return nil, models.ErrFlightNotFound
	}
	return f.flight, nil
}

func (f *fakeFlightStore) GetVessel(_ context.Context, id string) (*models.Vessel, error) {
	if f.vessel == nil || f.vessel.ID != id {
		return nil, models.ErrVesselNotFound
	}
	return f.vessel, nil
}

func (f *fakeFlightStore) QueryRange(_ context.Context, flightID string, partIndex, seriesIndex int, start, end time.Time) ([]models.MeasurementRecord, error) {
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	return f.ranges, nil
}

func (f *fakeFlightStore) QueryAggregated(_ context.Context, flightID string, partIndex, seriesIndex int, start, end time.Time, resolution store.Resolution) ([]models.Bucket, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return f.buckets, nil
}

type fakeIngestStore struct{}

func (fakeIngestStore) GetFlight(context.Context, string) (*models.Flight, error) {
	return nil, models.ErrFlightNotFound
}
func (fakeIngestStore) ExtendFlightEnd(context.Context, string, time.Time) error { return nil }
func (fakeIngestStore) InsertMeasurementRecords(context.Context, []models.MeasurementRecord) error {
	return nil
}

func TestFlightCreateRejectsMissingVesselID(t *testing.T) {
	store := &fakeFlightStore{}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	body, _ := json.Marshal(createFlightRequest{Name: "Hop 1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/flights", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlightCreateRejectsUnknownVessel(t *testing.T) {
	store := &fakeFlightStore{}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	body, _ := json.Marshal(createFlightRequest{VesselID: "missing", Name: "Hop 1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/flights", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlightCreateRejectsInvalidMeasuredPartShape(t *testing.T) {
	store := &fakeFlightStore{vessel: &models.Vessel{ID: "v1", Version: 1}}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	body, _ := json.Marshal(createFlightRequest{
		VesselID: "v1",
		Name:     "Hop 1",
		MeasuredParts: map[string][]models.MeasurementDescriptor{
			"engine": {{Name: "rpm", Type: "not-a-shape"}},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/flights", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlightCreateSucceeds(t *testing.T) {
	store := &fakeFlightStore{vessel: &models.Vessel{ID: "v1", Version: 3}}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	body, _ := json.Marshal(createFlightRequest{
		VesselID:        "v1",
		Name:            "Hop 1",
		MeasuredPartIDs: []string{"engine"},
		MeasuredParts: map[string][]models.MeasurementDescriptor{
			"engine": {{Name: "rpm", Type: "f"}},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/flights", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.created, 1)
	require.Equal(t, 3, store.created[0].VesselVersion)
}

func TestFlightIngestBinaryRejectsUnknownFlight(t *testing.T) {
	store := &fakeFlightStore{}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	req := httptest.NewRequest(http.MethodPost, "/v1/flights/missing/data", bytes.NewReader(nil))
	req = setChiIDParam(req, "missing")
	w := httptest.NewRecorder()

	h.IngestBinary(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlightIngestBinaryRejectsTruncatedHeader(t *testing.T) {
	flight := &models.Flight{
		ID:              "f1",
		MeasuredPartIDs: []string{"engine"},
		MeasuredParts: map[string][]models.MeasurementDescriptor{
			"engine": {{Name: "rpm", Type: "f"}},
		},
	}
	store := &fakeFlightStore{flight: flight}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	req := httptest.NewRequest(http.MethodPost, "/v1/flights/f1/data", bytes.NewReader([]byte{0, 0}))
	req = setChiIDParam(req, "f1")
	w := httptest.NewRecorder()

	h.IngestBinary(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlightIngestBinarySucceeds(t *testing.T) {
	descriptors := []models.MeasurementDescriptor{{Name: "rpm", Type: "f"}}
	flight := &models.Flight{
		ID:              "f1",
		MeasuredPartIDs: []string{"engine"},
		MeasuredParts:   map[string][]models.MeasurementDescriptor{"engine": descriptors},
	}
	store := &fakeFlightStore{flight: flight}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	recordShape, _, err := buildPartShape(descriptors)
	require.NoError(t, err)
	record, err := codec.Encode(recordShape, float64(time.Now().Unix()), []any{float32(123.4)})
	require.NoError(t, err)

	header := make([]byte, 3)
	header[0] = 0
	binary.BigEndian.PutUint16(header[1:3], 1)
	body := append(header, record...)

	req := httptest.NewRequest(http.MethodPost, "/v1/flights/f1/data", bytes.NewReader(body))
	req = setChiIDParam(req, "f1")
	w := httptest.NewRecorder()

	h.IngestBinary(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestFlightQueryDataForbiddenWithoutReadAccess(t *testing.T) {
	flight := &models.Flight{ID: "f1", VesselID: "v1", NoAuthPermission: "none", Permissions: map[string]string{"viewer-1": "view"}}
	vessel := &models.Vessel{ID: "v1", NoAuthPermission: "none"}
	store := &fakeFlightStore{flight: flight, vessel: vessel}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	req := httptest.NewRequest(http.MethodGet, "/v1/flights/f1/data?vessel_part=engine", nil)
	req = setChiIDParam(req, "f1")
	w := httptest.NewRecorder()

	guarded := withClaims(h.QueryData, &auth.Claims{UserID: "viewer-1"})
	guarded(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestFlightQueryDataReturnsRange(t *testing.T) {
	flight := &models.Flight{
		ID:               "f1",
		VesselID:         "v1",
		NoAuthPermission: "read",
		MeasuredPartIDs:  []string{"engine"},
	}
	vessel := &models.Vessel{ID: "v1", NoAuthPermission: "read"}
	store := &fakeFlightStore{flight: flight, vessel: vessel, ranges: []models.MeasurementRecord{{FlightID: "f1"}}}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	req := httptest.NewRequest(http.MethodGet, "/v1/flights/f1/data?vessel_part=engine&start=2026-01-01T00:00:00Z&end=2026-01-02T00:00:00Z", nil)
	req = setChiIDParam(req, "f1")
	w := httptest.NewRecorder()

	h.QueryData(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestFlightQueryDataRejectsUnknownPart(t *testing.T) {
	flight := &models.Flight{ID: "f1", VesselID: "v1", NoAuthPermission: "read", MeasuredPartIDs: []string{"engine"}}
	vessel := &models.Vessel{ID: "v1", NoAuthPermission: "read"}
	store := &fakeFlightStore{flight: flight, vessel: vessel}
	h := NewFlightHandler(store, ingest.New(fakeIngestStore{}, eventbus.New()))

	req := httptest.NewRequest(http.MethodGet, "/v1/flights/f1/data?vessel_part=unknown&start=2026-01-01T00:00:00Z&end=2026-01-02T00:00:00Z", nil)
	req = setChiIDParam(req, "f1")
	w := httptest.NewRecorder()

	h.QueryData(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
