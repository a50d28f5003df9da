// Package eventbus implements flightcore's in-process pub/sub of domain
// events: new/updated flights, new/updated commands, and new measurement
// buckets.
//
// Delivery is synchronous to same-process handlers; emitters never await a
// handler's own work. A handler that needs to do I/O (e.g. push to a
// websocket) must spawn its own goroutine rather than block the emitter.
package eventbus

import (
	"context"
	"sync"

	"github.com/aeroline/flightcore/pkg/models"
)

// Kind names one event type carried on the bus.
type Kind string

const (
	FlightNew            Kind = "FLIGHT_NEW"
	FlightUpdate         Kind = "FLIGHT_UPDATE"
	CommandNew           Kind = "COMMAND_NEW"
	CommandUpdate        Kind = "COMMAND_UPDATE"
	NewMeasurementCompact Kind = "NEW_MEASUREMENT_COMPACT"
)

// CommandEvent carries a batch of command state changes for one flight.
type CommandEvent struct {
	FlightID   string
	Commands   []*models.Command
	FromClient bool
}

// MeasurementEvent carries newly flushed, aggregates-only measurement
// records for one flight (raw per-sample arrays are stripped by the
// ingestion buffer before publishing).
type MeasurementEvent struct {
	FlightID     string
	Measurements []models.MeasurementRecord
}

// FlightHandler receives FlightNew/FlightUpdate events.
type FlightHandler func(ctx context.Context, kind Kind, flight *models.Flight)

// CommandHandler receives CommandNew/CommandUpdate events.
type CommandHandler func(ctx context.Context, kind Kind, event CommandEvent)

// MeasurementHandler receives NewMeasurementCompact events.
type MeasurementHandler func(ctx context.Context, event MeasurementEvent)

// Bus is the process-local event bus. Handlers register once at startup
// (typically from the composition root) and are never removed; the
// registry is read-only once the server begins serving traffic.
type Bus struct {
	mu                  sync.RWMutex
	flightHandlers      []FlightHandler
	commandHandlers     []CommandHandler
	measurementHandlers []MeasurementHandler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// OnFlight registers h to receive flight events.
func (b *Bus) OnFlight(h FlightHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flightHandlers = append(b.flightHandlers, h)
}

// OnCommand registers h to receive command events.
func (b *Bus) OnCommand(h CommandHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commandHandlers = append(b.commandHandlers, h)
}

// OnMeasurement registers h to receive measurement events.
func (b *Bus) OnMeasurement(h MeasurementHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.measurementHandlers = append(b.measurementHandlers, h)
}

// EmitFlightNew synchronously notifies all flight handlers of a new flight.
func (b *Bus) EmitFlightNew(ctx context.Context, flight *models.Flight) {
	b.emitFlight(ctx, FlightNew, flight)
}

// EmitFlightUpdate synchronously notifies all flight handlers of an updated
// flight.
func (b *Bus) EmitFlightUpdate(ctx context.Context, flight *models.Flight) {
	b.emitFlight(ctx, FlightUpdate, flight)
}

func (b *Bus) emitFlight(ctx context.Context, kind Kind, flight *models.Flight) {
	b.mu.RLock()
	handlers := b.flightHandlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, kind, flight)
	}
}

// EmitCommandNew synchronously notifies all command handlers of newly
// dispatched commands.
func (b *Bus) EmitCommandNew(ctx context.Context, event CommandEvent) {
	b.emitCommand(ctx, CommandNew, event)
}

// EmitCommandUpdate synchronously notifies all command handlers of a
// command state change.
func (b *Bus) EmitCommandUpdate(ctx context.Context, event CommandEvent) {
	b.emitCommand(ctx, CommandUpdate, event)
}

func (b *Bus) emitCommand(ctx context.Context, kind Kind, event CommandEvent) {
	b.mu.RLock()
	handlers := b.commandHandlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, kind, event)
	}
}

// EmitMeasurement synchronously notifies all measurement handlers of a
// freshly flushed bucket.
func (b *Bus) EmitMeasurement(ctx context.Context, event MeasurementEvent) {
	b.mu.RLock()
	handlers := b.measurementHandlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, event)
	}
}
