// Package api assembles flightcore's REST and WebSocket surface: routing,
// middleware, and the HTTP server lifecycle.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aeroline/flightcore/internal/logger"
	"github.com/aeroline/flightcore/pkg/api/handlers"
	apimiddleware "github.com/aeroline/flightcore/pkg/api/middleware"
	"github.com/aeroline/flightcore/pkg/auth"
	"github.com/aeroline/flightcore/pkg/eventbus"
	"github.com/aeroline/flightcore/pkg/hub"
	"github.com/aeroline/flightcore/pkg/ingest"
	"github.com/aeroline/flightcore/pkg/models"
)

// Deps bundles everything the router's handlers need, assembled by the
// composition root.
type Deps struct {
	Tokens  *auth.TokenService
	Store   handlers.UserStore
	Vessels handlers.VesselStore
	Flights handlers.FlightStore
	Commands handlers.CommandStore
	Buffer  *ingest.Buffer
	Bus     *eventbus.Bus
	Hub     *hub.Hub
	Pinger  func() error
}

// NewRouter builds the chi router serving every endpoint named in the
// external interface contract: auth, vessels, flights, commands, and the
// websocket upgrade.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	health := handlers.NewHealthHandler(deps.Pinger)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	authHandler := handlers.NewAuthHandler(deps.Tokens, deps.Store)
	vesselHandler := handlers.NewVesselHandler(deps.Vessels, deps.Tokens)
	flightHandler := handlers.NewFlightHandler(deps.Flights, deps.Buffer)
	commandHandler := handlers.NewCommandHandler(deps.Commands, deps.Bus)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)

	requireAuth := apimiddleware.RequireAuth(deps.Tokens)
	optionalAuth := apimiddleware.OptionalAuth(deps.Tokens)
	requireVessel := apimiddleware.RequireRole(models.RoleVessel)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/authorization_code_flow", authHandler.AuthorizationCodeFlow)
		r.Post("/auth_code/rewoke", authHandler.RevokeAuthCode)
		r.Get("/public_key", authHandler.PublicKey)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/verify_authenticated", authHandler.VerifyAuthenticated)
		})
	})

	r.Route("/v1/vessels", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(requireVessel)
			r.Post("/", vesselHandler.Upsert)
		})

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/", vesselHandler.List)
			r.Get("/{id}", vesselHandler.Get)
			r.Get("/{id}/versions/{version}", vesselHandler.Get)
		})

		r.Group(func(r chi.Router) {
			// Rename/Delete/MintAuthCode are owner-permission gated, checked
			// against the resource in-handler, not role gated: an owner
			// mints a vessel's first provisioning code before that vessel
			// ever holds a vessel-role token.
			r.Use(optionalAuth)
			r.Put("/{id}", vesselHandler.Rename)
			r.Delete("/{id}", vesselHandler.Delete)
			r.Post("/{id}/auth_codes", vesselHandler.MintAuthCode)
		})
	})

	r.Route("/v1/flights", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(requireVessel)
			r.Post("/", flightHandler.Create)
			r.Post("/{id}/data/binary", flightHandler.IngestBinary)
			r.Post("/{id}/commands/confirm", commandHandler.Confirm)
		})

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/{id}/data", flightHandler.QueryData)
			r.Post("/{id}/commands", commandHandler.Dispatch)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/ws", wsHandler.Upgrade)
	})

	return r
}

// requestLogger logs request completion at INFO and health-check traffic
// at DEBUG, mirroring the ambient request-logging convention.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		if r.URL.Path == "/health" || r.URL.Path == "/health/ready" {
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", duration)
			return
		}
		logger.Info("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", duration)
	})
}
