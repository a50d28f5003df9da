// Package metrics exposes flightcore's Prometheus collectors: telemetry
// ingestion throughput, command lifecycle transitions, and live websocket
// connections. Collectors live on a private registry so importing this
// package never pulls in the default global one.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// MeasurementsIngested counts raw telemetry payloads accepted into the
	// ingest buffer, labeled by outcome ("buffered", "dropped").
	MeasurementsIngested = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightcore_measurements_ingested_total",
			Help: "Total number of measurement payloads offered to the ingest buffer.",
		},
		[]string{"outcome"},
	)

	// MeasurementRecordsFlushed counts measurement records persisted to
	// storage per flush cycle.
	MeasurementRecordsFlushed = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flightcore_measurement_records_flushed_total",
			Help: "Total number of measurement records written to storage.",
		},
	)

	// CommandTransitions counts command lifecycle transitions, labeled by
	// transition ("dispatch", "confirm") and resulting state.
	CommandTransitions = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightcore_command_transitions_total",
			Help: "Total number of command lifecycle transitions by kind and resulting state.",
		},
		[]string{"transition", "state"},
	)

	// WebsocketConnections tracks the number of currently open websocket
	// connections.
	WebsocketConnections = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flightcore_websocket_connections",
			Help: "Number of currently open websocket connections.",
		},
	)
)

// Handler returns the HTTP handler serving the registry's collectors in
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Serve runs an HTTP server exposing /metrics on port until ctx is
// cancelled.
func Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}
