// Package ingest buffers incoming telemetry payloads per flight/part/series
// and flushes them to storage on a fixed interval, extending the owning
// flight's end time when it is about to lapse.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aeroline/flightcore/internal/logger"
	"github.com/aeroline/flightcore/pkg/codec"
	"github.com/aeroline/flightcore/pkg/eventbus"
	"github.com/aeroline/flightcore/pkg/metrics"
	"github.com/aeroline/flightcore/pkg/models"
)

// FlushInterval is how often buffered payloads are drained to storage.
const FlushInterval = 500 * time.Millisecond

// Store is the persistence surface the buffer needs. *store.Store satisfies
// it.
type Store interface {
	GetFlight(ctx context.Context, flightID string) (*models.Flight, error)
	ExtendFlightEnd(ctx context.Context, flightID string, end time.Time) error
	InsertMeasurementRecords(ctx context.Context, records []models.MeasurementRecord) error
}

type seriesKey struct {
	partIndex   int
	seriesIndex int
}

// Buffer accumulates raw wire payloads keyed by flight, part, and series and
// periodically decodes, aggregates, and persists them.
type Buffer struct {
	mu     sync.Mutex
	queues map[string]map[seriesKey][][]byte

	store Store
	bus   *eventbus.Bus
}

// New returns an empty Buffer writing through store and publishing flushed
// buckets on bus.
func New(store Store, bus *eventbus.Bus) *Buffer {
	return &Buffer{
		queues: make(map[string]map[seriesKey][][]byte),
		store:  store,
		bus:    bus,
	}
}

// Offer enqueues a raw payload for later decode and flush. It never blocks
// on storage or the network.
func (b *Buffer) Offer(flightID string, partIndex, seriesIndex int, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	series, ok := b.queues[flightID]
	if !ok {
		series = make(map[seriesKey][][]byte)
		b.queues[flightID] = series
	}
	key := seriesKey{partIndex: partIndex, seriesIndex: seriesIndex}
	series[key] = append(series[key], payload)
	metrics.MeasurementsIngested.WithLabelValues("buffered").Inc()
}

// Run flushes all buffered flights every FlushInterval until ctx is
// cancelled.
func (b *Buffer) Run(ctx context.Context) {
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.flushAll(ctx)
		}
	}
}

func (b *Buffer) flushAll(ctx context.Context) {
	b.mu.Lock()
	flightIDs := make([]string, 0, len(b.queues))
	for id, series := range b.queues {
		if len(series) > 0 {
			flightIDs = append(flightIDs, id)
		}
	}
	b.mu.Unlock()

	for _, flightID := range flightIDs {
		b.flushFlight(ctx, flightID)
	}
}

// flushFlight atomically swaps out the flight's queued payloads, then
// decodes and persists them outside the lock.
func (b *Buffer) flushFlight(ctx context.Context, flightID string) {
	b.mu.Lock()
	series := b.queues[flightID]
	delete(b.queues, flightID)
	b.mu.Unlock()

	if len(series) == 0 {
		return
	}

	flight, err := b.store.GetFlight(ctx, flightID)
	if err != nil {
		if errors.Is(err, models.ErrFlightNotFound) {
			logger.WarnCtx(ctx, "dropping measurements for unknown flight", logger.KeyFlightID, flightID)
			return
		}
		logger.ErrorCtx(ctx, "failed to load flight for flush", logger.KeyFlightID, flightID, "error", err)
		return
	}

	now := time.Now().UTC()
	if flight.NeedsExtension(now) {
		newEnd := now.Add(models.DefaultHeadTime)
		if err := b.store.ExtendFlightEnd(ctx, flightID, newEnd); err != nil {
			logger.ErrorCtx(ctx, "failed to extend flight end", logger.KeyFlightID, flightID, "error", err)
		} else {
			flight.End = &newEnd
		}
	}

	records := make([]models.MeasurementRecord, 0, len(series))
	for key, payloads := range series {
		if len(payloads) == 0 {
			continue
		}
		record, ok := b.buildRecord(ctx, flight, key.partIndex, key.seriesIndex, payloads)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return
	}

	if err := b.store.InsertMeasurementRecords(ctx, records); err != nil {
		logger.ErrorCtx(ctx, "failed to insert measurement records", logger.KeyFlightID, flightID, "error", err)
		return
	}
	metrics.MeasurementRecordsFlushed.Add(float64(len(records)))

	b.bus.EmitMeasurement(ctx, eventbus.MeasurementEvent{
		FlightID:     flightID,
		Measurements: stripSamples(records),
	})
}

func (b *Buffer) buildRecord(ctx context.Context, flight *models.Flight, partIndex, seriesIndex int, payloads [][]byte) (models.MeasurementRecord, bool) {
	descriptor, ok := flight.Descriptor(partIndex, seriesIndex)
	if !ok {
		logger.WarnCtx(ctx, "dropping measurements for unknown series",
			logger.KeyFlightID, flight.ID, logger.KeyPartIndex, partIndex, logger.KeySeriesIdx, seriesIndex)
		metrics.MeasurementsIngested.WithLabelValues("dropped").Add(float64(len(payloads)))
		return models.MeasurementRecord{}, false
	}

	shape, err := codec.ParseShape(descriptor.Type)
	if err != nil {
		logger.ErrorCtx(ctx, "invalid measurement shape", logger.KeyFlightID, flight.ID, "type", descriptor.Type, "error", err)
		metrics.MeasurementsIngested.WithLabelValues("dropped").Add(float64(len(payloads)))
		return models.MeasurementRecord{}, false
	}

	samples := make([]models.MeasurementSample, 0, len(payloads))
	var min, max, sum *float64
	var count int

	var minTime, maxTime float64
	haveTime := false

	for _, payload := range payloads {
		t, value, err := codec.Decode(shape, payload)
		if err != nil {
			logger.WarnCtx(ctx, "dropping malformed measurement payload", logger.KeyFlightID, flight.ID, "error", err)
			continue
		}
		samples = append(samples, models.MeasurementSample{Time: t, Values: value})

		if !haveTime || t < minTime {
			minTime = t
		}
		if !haveTime || t > maxTime {
			maxTime = t
		}
		haveTime = true

		if n, ok := codec.NumericValue(value); ok {
			if min == nil || n < *min {
				min = floatPtr(n)
			}
			if max == nil || n > *max {
				max = floatPtr(n)
			}
			if sum == nil {
				sum = floatPtr(0)
			}
			*sum += n
			count++
		}
	}

	if len(samples) == 0 {
		return models.MeasurementRecord{}, false
	}

	var avg *float64
	if count > 0 {
		avg = floatPtr(*sum / float64(count))
	}

	return models.MeasurementRecord{
		FlightID:     flight.ID,
		PartIndex:    partIndex,
		SeriesIndex:  seriesIndex,
		StartTime:    timeFromEpochSeconds(minTime),
		EndTime:      timeFromEpochSeconds(maxTime),
		Measurements: samples,
		Min:          min,
		Avg:          avg,
		Max:          max,
	}, true
}

func timeFromEpochSeconds(t float64) time.Time {
	sec := int64(t)
	nsec := int64((t - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

func floatPtr(f float64) *float64 { return &f }

// stripSamples returns copies of records with their raw per-sample arrays
// removed, leaving only the aggregates, for publication on the event bus.
func stripSamples(records []models.MeasurementRecord) []models.MeasurementRecord {
	out := make([]models.MeasurementRecord, len(records))
	for i, r := range records {
		r.Measurements = nil
		out[i] = r
	}
	return out
}
