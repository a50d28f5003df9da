package models

import "time"

// DefaultHeadTime is how far past "now" an ongoing flight's End is kept
// extended by the ingestion buffer's flush task.
const DefaultHeadTime = 2 * time.Minute

// MinimumHeadTime is the minimum remaining headroom before a flight's End
// is extended; below this threshold the flush task pushes End forward.
const MinimumHeadTime = 1 * time.Minute

// MeasurementDescriptor names one field reported under a vessel part and
// the codec shape used to decode it.
type MeasurementDescriptor struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CommandInfo declares the shape of one command type available on a flight:
// its payload and response schemas, and which parts it may target.
type CommandInfo struct {
	Name                    string   `json:"name"`
	PayloadSchema           string   `json:"payload_schema,omitempty"`
	ResponseSchema          string   `json:"response_schema,omitempty"`
	SupportedOnVehicleLevel bool     `json:"supported_on_vehicle_level"`
	SupportingParts         []string `json:"supporting_parts,omitempty"`
}

// Flight is one run of a vessel: the measurement shapes and commands it
// exposes, the window it is considered live, and who may see or command it.
type Flight struct {
	ID                string                           `gorm:"primaryKey;size:36" json:"id"`
	VesselID          string                           `gorm:"index;size:36;not null" json:"vessel_id"`
	VesselVersion     int                              `json:"vessel_version"`
	Name              string                           `gorm:"size:255" json:"name"`
	Start             time.Time                        `json:"start"`
	End               *time.Time                       `json:"end"`
	MeasuredPartIDs   []string                         `gorm:"serializer:json" json:"measured_part_ids"`
	MeasuredParts     map[string][]MeasurementDescriptor `gorm:"serializer:json" json:"measured_parts"`
	AvailableCommands map[string]CommandInfo           `gorm:"serializer:json" json:"available_commands"`
	Permissions       map[string]string                `gorm:"serializer:json" json:"permissions"`
	NoAuthPermission  string                            `gorm:"size:20" json:"no_auth_permission"`
}

// TableName returns the table name for Flight.
func (Flight) TableName() string {
	return "flights"
}

// Descriptor resolves the MeasurementDescriptor for a (partIndex, seriesIndex)
// pair, reporting ok=false when either index is out of range.
func (f *Flight) Descriptor(partIndex, seriesIndex int) (MeasurementDescriptor, bool) {
	if partIndex < 0 || partIndex >= len(f.MeasuredPartIDs) {
		return MeasurementDescriptor{}, false
	}
	partID := f.MeasuredPartIDs[partIndex]
	series, ok := f.MeasuredParts[partID]
	if !ok || seriesIndex < 0 || seriesIndex >= len(series) {
		return MeasurementDescriptor{}, false
	}
	return series[seriesIndex], true
}

// NeedsExtension reports whether f.End is close enough to now that the
// ingestion buffer should push it forward to keep the flight alive.
func (f *Flight) NeedsExtension(now time.Time) bool {
	if f.End == nil {
		return true
	}
	return f.End.Sub(now) < MinimumHeadTime
}
