package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandlerServesExpositionFormat(t *testing.T) {
	MeasurementsIngested.WithLabelValues("buffered").Inc()
	CommandTransitions.WithLabelValues("dispatch", "dispatched").Inc()
	WebsocketConnections.Set(2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	Handler().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "flightcore_measurements_ingested_total")
	require.Contains(t, body, "flightcore_command_transitions_total")
	require.Contains(t, body, "flightcore_websocket_connections")
}

func TestMeasurementRecordsFlushedIsPlainCounter(t *testing.T) {
	MeasurementRecordsFlushed.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	require.Contains(t, w.Body.String(), "flightcore_measurement_records_flushed_total")
}

func TestServeShutsDownOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, 0) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestWebsocketConnectionsGaugeTracksIncDec(t *testing.T) {
	WebsocketConnections.Set(0)
	WebsocketConnections.Inc()
	WebsocketConnections.Inc()
	WebsocketConnections.Dec()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	require.True(t, strings.Contains(w.Body.String(), "flightcore_websocket_connections 1"))
}
