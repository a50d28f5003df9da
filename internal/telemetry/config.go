package telemetry

// Config holds distributed tracing configuration.
type Config struct {
	// Enabled indicates whether span creation is active.
	Enabled bool

	// ServiceName is the name of the service reported on spans.
	ServiceName string

	// ServiceVersion is the version of the service reported on spans.
	ServiceVersion string

	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "flightcore",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}
