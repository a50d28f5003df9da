package models

import "time"

// MeasurementSample is one decoded (time, values) observation within a
// flushed bucket. Values holds the decoded scalar, tuple, or array exactly
// as produced by pkg/codec.Decode.
type MeasurementSample struct {
	Time   float64 `json:"time"`
	Values any     `json:"values"`
}

// MeasurementRecord is one flush-interval bucket of decoded measurements
// for a single (flight, part index, series index).
type MeasurementRecord struct {
	ID           uint                `gorm:"primaryKey;autoIncrement" json:"-"`
	FlightID     string              `gorm:"index:idx_measurement_lookup,priority:1;size:36;not null" json:"flight_id"`
	PartIndex    int                 `gorm:"index:idx_measurement_lookup,priority:2" json:"part_index"`
	SeriesIndex  int                 `gorm:"index:idx_measurement_lookup,priority:3" json:"series_index"`
	StartTime    time.Time           `gorm:"index" json:"start_time"`
	EndTime      time.Time           `json:"end_time"`
	Measurements []MeasurementSample `gorm:"serializer:json" json:"measurements"`
	Min          *float64            `json:"min"`
	Avg          *float64            `json:"avg"`
	Max          *float64            `json:"max"`
}

// TableName returns the table name for MeasurementRecord.
func (MeasurementRecord) TableName() string {
	return "measurement_records"
}

// Bucket is one resolution-grouped aggregate returned by a rollup query,
// distinct from MeasurementRecord in that First/Last carry raw samples
// rather than a persisted row identity.
type Bucket struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Min       *float64  `json:"min"`
	Avg       *float64  `json:"avg"`
	Max       *float64  `json:"max"`
	First     any       `json:"first"`
	Last      any       `json:"last"`
}
