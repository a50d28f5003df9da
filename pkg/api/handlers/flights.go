package handlers

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aeroline/flightcore/pkg/api/middleware"
	"github.com/aeroline/flightcore/pkg/codec"
	"github.com/aeroline/flightcore/pkg/ingest"
	"github.com/aeroline/flightcore/pkg/models"
	"github.com/aeroline/flightcore/pkg/permission"
	"github.com/aeroline/flightcore/pkg/schema"
	"github.com/aeroline/flightcore/pkg/store"
)

// FlightStore is the persistence surface FlightHandler needs. *store.Store
// satisfies it.
type FlightStore interface {
	CreateFlight(ctx context.Context, flight *models.Flight) error
	GetFlight(ctx context.Context, id string) (*models.Flight, error)
	GetVessel(ctx context.Context, id string) (*models.Vessel, error)
	QueryRange(ctx context.Context, flightID string, partIndex, seriesIndex int, start, end time.Time) ([]models.MeasurementRecord, error)
	QueryAggregated(ctx context.Context, flightID string, partIndex, seriesIndex int, start, end time.Time, resolution store.Resolution) ([]models.Bucket, error)
}

// FlightHandler implements the /v1/flights/* endpoints other than commands.
type FlightHandler struct {
	store  FlightStore
	buffer *ingest.Buffer
}

// NewFlightHandler returns a FlightHandler.
func NewFlightHandler(store FlightStore, buffer *ingest.Buffer) *FlightHandler {
	return &FlightHandler{store: store, buffer: buffer}
}

type createFlightRequest struct {
	VesselID          string                                 `json:"vessel_id"`
	VesselVersion     int                                    `json:"vessel_version"`
	Name              string                                 `json:"name"`
	MeasuredPartIDs   []string                               `json:"measured_part_ids"`
	MeasuredParts     map[string][]models.MeasurementDescriptor `json:"measured_parts"`
	AvailableCommands map[string]models.CommandInfo          `json:"available_commands"`
	Permissions       map[string]string                      `json:"permissions"`
	NoAuthPermission  string                                 `json:"no_auth_permission"`
}

// Create registers a new flight for a vessel, requiring the caller's token
// to carry the vessel role. Start is now; End is now+DefaultHeadTime.
func (h *FlightHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "malformed request body")
		return
	}
	if req.VesselID == "" {
		BadRequest(w, "vessel_id is required")
		return
	}
	vessel, err := h.store.GetVessel(r.Context(), req.VesselID)
	if err != nil {
		if errors.Is(err, models.ErrVesselNotFound) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, "failed to load vessel")
		return
	}
	if err := schema.ValidateMeasuredParts(req.MeasuredParts); err != nil {
		InvalidPayload(w, err.Error())
		return
	}

	now := time.Now().UTC()
	end := now.Add(models.DefaultHeadTime)
	flight := &models.Flight{
		ID:                uuid.NewString(),
		VesselID:          vessel.ID,
		VesselVersion:     vessel.Version,
		Name:              req.Name,
		Start:             now,
		End:               &end,
		MeasuredPartIDs:   req.MeasuredPartIDs,
		MeasuredParts:     req.MeasuredParts,
		AvailableCommands: req.AvailableCommands,
		Permissions:       req.Permissions,
		NoAuthPermission:  req.NoAuthPermission,
	}
	if err := h.store.CreateFlight(r.Context(), flight); err != nil {
		InternalServerError(w, "failed to create flight")
		return
	}
	WriteJSONCreated(w, flight)
}

// IngestBinary accepts a bulk binary telemetry report and queues its
// measurements on the ingestion buffer for asynchronous flush, requiring
// the caller's token to carry the vessel role.
func (h *FlightHandler) IngestBinary(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "id")

	flight, err := h.store.GetFlight(r.Context(), flightID)
	if err != nil {
		if errors.Is(err, models.ErrFlightNotFound) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, "failed to load flight")
		return
	}

	body, err := readAllLimited(r, maxBulkReportBytes)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := decodeBulkReport(flight, body, h.buffer); err != nil {
		BadRequest(w, err.Error())
		return
	}
	WriteNoContent(w)
}

// maxBulkReportBytes bounds a single bulk report body.
const maxBulkReportBytes = 16 << 20

// decodeBulkReport walks the concatenation of per-part blocks described in
// the binary report format and offers each decoded measurement to buffer.
func decodeBulkReport(flight *models.Flight, body []byte, buffer *ingest.Buffer) error {
	offset := 0
	for offset < len(body) {
		if offset+3 > len(body) {
			return fmt.Errorf("truncated block header at offset %d", offset)
		}
		partIndex := int(body[offset])
		measurementCount := int(binary.BigEndian.Uint16(body[offset+1 : offset+3]))
		offset += 3

		if partIndex < 0 || partIndex >= len(flight.MeasuredPartIDs) {
			return fmt.Errorf("unknown part index %d", partIndex)
		}
		partID := flight.MeasuredPartIDs[partIndex]
		descriptors := flight.MeasuredParts[partID]
		if len(descriptors) == 0 {
			return fmt.Errorf("part %d declares no measured series", partIndex)
		}

		recordShape, seriesShapes, err := buildPartShape(descriptors)
		if err != nil {
			return err
		}

		for i := 0; i < measurementCount; i++ {
			t, items, consumed, err := decodeRecordAt(recordShape, body, offset)
			if err != nil {
				return fmt.Errorf("part %d measurement %d: %w", partIndex, i, err)
			}
			offset = consumed

			values, ok := items.([]any)
			if !ok {
				values = []any{items}
			}
			for seriesIndex, value := range values {
				payload, err := codec.Encode(seriesShapes[seriesIndex], t, value)
				if err != nil {
					return fmt.Errorf("part %d series %d: re-encoding decoded value: %w", partIndex, seriesIndex, err)
				}
				buffer.Offer(flight.ID, partIndex, seriesIndex, payload)
			}
		}
	}
	return nil
}

// buildPartShape returns the combined record shape covering every series of
// a part (one field per series, in declaration order) along with each
// series' own shape for re-encoding single-series payloads.
func buildPartShape(descriptors []models.MeasurementDescriptor) (codec.Shape, []codec.Shape, error) {
	fields := make([]codec.Field, len(descriptors))
	shapes := make([]codec.Shape, len(descriptors))
	for i, d := range descriptors {
		shape, err := codec.ParseShape(d.Type)
		if err != nil {
			return codec.Shape{}, nil, fmt.Errorf("series %d: %w", i, err)
		}
		fields[i] = codec.Field{Name: d.Name, Shape: shape}
		shapes[i] = shape
	}
	return codec.NewRecordShape(fields...), shapes, nil
}

// decodeRecordAt decodes one record from body starting at offset and
// returns the offset immediately following it. The record's byte length is
// recovered by re-encoding the decoded value, since the codec package does
// not expose a consumed-length return across its package boundary.
func decodeRecordAt(shape codec.Shape, body []byte, offset int) (float64, any, int, error) {
	t, value, err := codec.Decode(shape, body[offset:])
	if err != nil {
		return 0, nil, 0, err
	}
	reencoded, err := codec.Encode(shape, t, value)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("re-encoding decoded record: %w", err)
	}
	return t, value, offset + len(reencoded), nil
}

// QueryData returns raw or aggregated measurements for one (part, series)
// of a flight, requiring read access.
func (h *FlightHandler) QueryData(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "id")

	flight, err := h.store.GetFlight(r.Context(), flightID)
	if err != nil {
		if errors.Is(err, models.ErrFlightNotFound) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, "failed to load flight")
		return
	}
	vessel, err := h.store.GetVessel(r.Context(), flight.VesselID)
	if err != nil {
		InternalServerError(w, "failed to load flight's vessel")
		return
	}
	if !h.hasFlightAccess(r, flight, vessel, permission.Read) {
		Forbidden(w, "read access required")
		return
	}

	q := r.URL.Query()
	partID := q.Get("vessel_part")
	if partID == "" {
		BadRequest(w, "vessel_part is required")
		return
	}
	partIndex := indexOf(flight.MeasuredPartIDs, partID)
	if partIndex < 0 {
		BadRequest(w, "unknown vessel_part")
		return
	}
	seriesIndex, err := parseIntDefault(q.Get("series_index"), 0)
	if err != nil {
		BadRequest(w, "series_index must be an integer")
		return
	}

	start, err := parseTimeParam(q.Get("start"))
	if err != nil {
		BadRequest(w, "start must be RFC3339")
		return
	}
	end, err := parseTimeParam(q.Get("end"))
	if err != nil {
		BadRequest(w, "end must be RFC3339")
		return
	}

	if resolution := q.Get("resolution"); resolution != "" {
		buckets, err := h.store.QueryAggregated(r.Context(), flightID, partIndex, seriesIndex, start, end, store.Resolution(resolution))
		if err != nil {
			InternalServerError(w, "failed to query aggregated data")
			return
		}
		WriteJSONOK(w, buckets)
		return
	}

	rows, err := h.store.QueryRange(r.Context(), flightID, partIndex, seriesIndex, start, end)
	if err != nil {
		InternalServerError(w, "failed to query data")
		return
	}
	WriteJSONOK(w, rows)
}

func (h *FlightHandler) hasFlightAccess(r *http.Request, flight *models.Flight, vessel *models.Vessel, required permission.Level) bool {
	claims := middleware.GetClaimsFromContext(r.Context())
	userID := ""
	if claims != nil {
		userID = claims.UserID
	}
	flightGrants := permission.GrantsFromStrings(flight.NoAuthPermission, flight.Permissions)
	vesselGrants := permission.GrantsFromStrings(vessel.NoAuthPermission, vessel.Permissions)
	return permission.HasFlightPermission(flightGrants, vesselGrants, userID, required)
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
