package logger

// Well-known structured field keys used across flightcore components, kept
// as constants so handlers, stores, and the ingestion pipeline agree on
// naming.
const (
	KeyTraceID    = "trace_id"
	KeyRequestID  = "request_id"
	KeyFlightID   = "flight_id"
	KeyVesselID   = "vessel_id"
	KeyUserID     = "user_id"
	KeyCommandID  = "command_id"
	KeyPartIndex  = "part_index"
	KeySeriesIdx  = "series_index"
	KeyRoom       = "room"
	KeyEvent      = "event"
	KeyDurationMs = "duration_ms"
)
