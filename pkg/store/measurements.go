package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aeroline/flightcore/pkg/models"
)

// MaxQueryRows caps the rows returned by a single measurement query.
const MaxQueryRows = 1000

// Resolution names the date-part granularity an aggregated-rollup query
// groups by.
type Resolution string

const (
	ResolutionDecisecond Resolution = "decisecond"
	ResolutionSecond     Resolution = "second"
	ResolutionMinute     Resolution = "minute"
	ResolutionHour       Resolution = "hour"
	ResolutionDay        Resolution = "day"
	ResolutionMonth      Resolution = "month"
)

// InsertMeasurementRecords bulk-inserts flushed measurement buckets.
func (s *Store) InsertMeasurementRecords(ctx context.Context, records []models.MeasurementRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&records).Error
}

// QueryRange returns the raw measurement rows for (flightID, partIndex,
// seriesIndex) with StartTime in [start, end), capped at MaxQueryRows and
// ordered oldest first.
func (s *Store) QueryRange(ctx context.Context, flightID string, partIndex, seriesIndex int, start, end time.Time) ([]models.MeasurementRecord, error) {
	var rows []models.MeasurementRecord
	err := s.db.WithContext(ctx).
		Where("flight_id = ? AND part_index = ? AND series_index = ? AND start_time >= ? AND start_time < ?",
			flightID, partIndex, seriesIndex, start, end).
		Order("start_time ASC").
		Limit(MaxQueryRows).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying measurement range: %w", err)
	}
	return rows, nil
}

// QueryAggregated groups the rows in [start, end) into resolution buckets
// and returns one models.Bucket per group, oldest first.
func (s *Store) QueryAggregated(ctx context.Context, flightID string, partIndex, seriesIndex int, start, end time.Time, resolution Resolution) ([]models.Bucket, error) {
	rows, err := s.QueryRange(ctx, flightID, partIndex, seriesIndex, start, end)
	if err != nil {
		return nil, err
	}
	return aggregateRows(rows, resolution), nil
}

// bucketKey returns the grouping key for t at the given resolution: the
// date parts at or coarser than resolution, so two timestamps fall in the
// same bucket iff they share that key.
func bucketKey(t time.Time, resolution Resolution) string {
	u := t.UTC()
	switch resolution {
	case ResolutionMonth:
		return fmt.Sprintf("%04d-%02d", u.Year(), u.Month())
	case ResolutionDay:
		return fmt.Sprintf("%04d-%02d-%02d", u.Year(), u.Month(), u.Day())
	case ResolutionHour:
		return fmt.Sprintf("%04d-%02d-%02dT%02d", u.Year(), u.Month(), u.Day(), u.Hour())
	case ResolutionMinute:
		return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute())
	case ResolutionDecisecond:
		decisecond := u.Nanosecond() / int(100*time.Millisecond)
		return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%d", u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), decisecond)
	case ResolutionSecond:
		fallthrough
	default:
		return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second())
	}
}

func aggregateRows(rows []models.MeasurementRecord, resolution Resolution) []models.Bucket {
	if len(rows) == 0 {
		return nil
	}

	type group struct {
		key  string
		rows []models.MeasurementRecord
	}
	order := make([]string, 0)
	groups := make(map[string]*group)
	for _, row := range rows {
		key := bucketKey(row.StartTime, resolution)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, row)
	}

	buckets := make([]models.Bucket, 0, len(order))
	for _, key := range order {
		buckets = append(buckets, aggregateGroup(groups[key].rows))
	}
	return buckets
}

func aggregateGroup(rows []models.MeasurementRecord) models.Bucket {
	sorted := make([]models.MeasurementRecord, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	b := models.Bucket{
		StartTime: sorted[0].StartTime,
		EndTime:   sorted[0].StartTime,
	}
	var mins, avgs, maxes []float64
	for _, row := range sorted {
		if row.StartTime.After(b.EndTime) {
			b.EndTime = row.StartTime
		}
		if row.Min != nil {
			mins = append(mins, *row.Min)
		}
		if row.Avg != nil {
			avgs = append(avgs, *row.Avg)
		}
		if row.Max != nil {
			maxes = append(maxes, *row.Max)
		}
	}
	if len(mins) > 0 {
		b.Min = floatPtr(minOf(mins))
	}
	if len(avgs) > 0 {
		b.Avg = floatPtr(meanOf(avgs))
	}
	if len(maxes) > 0 {
		b.Max = floatPtr(maxOf(maxes))
	}

	if len(sorted[0].Measurements) > 0 {
		b.First = sorted[0].Measurements[0]
	}
	last := sorted[len(sorted)-1]
	if len(last.Measurements) > 0 {
		b.Last = last.Measurements[len(last.Measurements)-1]
	}
	return b
}

func floatPtr(v float64) *float64 { return &v }

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func meanOf(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
