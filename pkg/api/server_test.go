package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aeroline/flightcore/pkg/config"
)

func TestServerStartReturnsOnContextCancel(t *testing.T) {
	srv, err := NewServer(config.APIConfig{Port: 0}, newTestDeps(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestServerStopIsIdempotent(t *testing.T) {
	srv, err := NewServer(config.APIConfig{Port: 0}, newTestDeps(t))
	require.NoError(t, err)

	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, srv.Stop(context.Background()))
}

func TestServerPortReflectsConfig(t *testing.T) {
	srv, err := NewServer(config.APIConfig{Port: 9090}, newTestDeps(t))
	require.NoError(t, err)
	require.Equal(t, 9090, srv.Port())
}
