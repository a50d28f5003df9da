package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aeroline/flightcore/pkg/api/middleware"
	"github.com/aeroline/flightcore/pkg/eventbus"
	"github.com/aeroline/flightcore/pkg/metrics"
	"github.com/aeroline/flightcore/pkg/models"
	"github.com/aeroline/flightcore/pkg/permission"
	"github.com/aeroline/flightcore/pkg/schema"
)

// CommandStore is the persistence surface CommandHandler needs. *store.Store
// satisfies it.
type CommandStore interface {
	CreateCommand(ctx context.Context, cmd *models.Command) error
	UpsertCommand(ctx context.Context, cmd *models.Command) error
	GetFlight(ctx context.Context, id string) (*models.Flight, error)
	GetVessel(ctx context.Context, id string) (*models.Vessel, error)
}

// CommandHandler implements /v1/flights/{id}/commands[/confirm].
type CommandHandler struct {
	store CommandStore
	bus   *eventbus.Bus
}

// NewCommandHandler returns a CommandHandler.
func NewCommandHandler(store CommandStore, bus *eventbus.Bus) *CommandHandler {
	return &CommandHandler{store: store, bus: bus}
}

type commandRequest struct {
	ID              string     `json:"_id"`
	CommandType     string     `json:"command_type"`
	PartID          *string    `json:"part_id,omitempty"`
	CreateTime      time.Time  `json:"create_time"`
	State           string     `json:"state"`
	DispatchTime    *time.Time `json:"dispatch_time,omitempty"`
	ReceiveTime     *time.Time `json:"receive_time,omitempty"`
	CompleteTime    *time.Time `json:"complete_time,omitempty"`
	CommandPayload  string     `json:"command_payload,omitempty"`
	ResponseMessage string     `json:"response_message,omitempty"`
	Response        string     `json:"response,omitempty"`
}

// Dispatch accepts one or more operator-originated commands, requiring
// write access on the flight. Every command MUST arrive with state=new and
// no dispatch/receive/complete timestamps.
func (h *CommandHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "id")

	flight, vessel, ok := h.loadFlightAndVessel(w, r, flightID)
	if !ok {
		return
	}
	if !h.hasFlightAccess(r, flight, vessel, permission.Write) {
		Forbidden(w, "write access required")
		return
	}

	var reqs []commandRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		BadRequest(w, "malformed request body")
		return
	}

	commands := make([]*models.Command, 0, len(reqs))
	for _, req := range reqs {
		if models.CommandState(req.State) != models.CommandNew {
			BadRequest(w, fmt.Sprintf("command %s: operator-dispatched commands must have state=new", req.ID))
			return
		}
		if req.DispatchTime != nil || req.ReceiveTime != nil || req.CompleteTime != nil {
			BadRequest(w, fmt.Sprintf("command %s: state=new commands must not carry dispatch/receive/complete times", req.ID))
			return
		}
		if req.CreateTime.IsZero() || req.CreateTime.After(time.Now()) {
			BadRequest(w, fmt.Sprintf("command %s: create_time is required and must not be in the future", req.ID))
			return
		}
		if req.Response != "" {
			BadRequest(w, fmt.Sprintf("command %s: state=new commands must not carry a response", req.ID))
			return
		}
		if err := h.validateAgainstFlight(flight, &req); err != nil {
			InvalidPayload(w, err.Error())
			return
		}

		cmd := commandToModel(flightID, req)
		if err := h.store.CreateCommand(r.Context(), cmd); err != nil {
			InternalServerError(w, "failed to create command")
			return
		}
		commands = append(commands, cmd)
		metrics.CommandTransitions.WithLabelValues("dispatch", cmd.State).Inc()
	}

	h.bus.EmitCommandNew(r.Context(), eventbus.CommandEvent{FlightID: flightID, Commands: commands, FromClient: true})
	WriteJSONCreated(w, commands)
}

// Confirm accepts vessel-originated commands and confirmation updates,
// requiring the caller's token to carry the vessel role. These never use
// state=new.
func (h *CommandHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "id")

	flight, _, ok := h.loadFlightAndVessel(w, r, flightID)
	if !ok {
		return
	}

	var reqs []commandRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		BadRequest(w, "malformed request body")
		return
	}

	commands := make([]*models.Command, 0, len(reqs))
	for _, req := range reqs {
		if models.CommandState(req.State) == models.CommandNew {
			BadRequest(w, fmt.Sprintf("command %s: vessel confirmations must not set state=new", req.ID))
			return
		}
		if req.CreateTime.IsZero() {
			BadRequest(w, fmt.Sprintf("command %s: create_time is required", req.ID))
			return
		}
		if err := h.validateAgainstFlight(flight, &req); err != nil {
			InvalidPayload(w, err.Error())
			return
		}

		cmd := commandToModel(flightID, req)
		if err := h.store.UpsertCommand(r.Context(), cmd); err != nil {
			InternalServerError(w, "failed to upsert command")
			return
		}
		commands = append(commands, cmd)
		metrics.CommandTransitions.WithLabelValues("confirm", cmd.State).Inc()
	}

	h.bus.EmitCommandUpdate(r.Context(), eventbus.CommandEvent{FlightID: flightID, Commands: commands, FromClient: false})
	WriteJSONOK(w, commands)
}

// validateAgainstFlight enforces the part-targeting rule and validates the
// command/response payload against the flight's declared schema for the
// command type.
func (h *CommandHandler) validateAgainstFlight(flight *models.Flight, req *commandRequest) error {
	info, ok := flight.AvailableCommands[req.CommandType]
	if !ok {
		return fmt.Errorf("unknown command_type %q", req.CommandType)
	}
	if req.PartID == nil {
		if !info.SupportedOnVehicleLevel {
			return fmt.Errorf("command_type %q is not supported at vehicle level", req.CommandType)
		}
	} else if !containsString(info.SupportingParts, *req.PartID) {
		return fmt.Errorf("command_type %q does not support part %q", req.CommandType, *req.PartID)
	}

	if req.CommandPayload != "" {
		if err := schema.ValidatePayload(info.PayloadSchema, []byte(req.CommandPayload)); err != nil {
			return err
		}
	}
	if req.Response != "" {
		if err := schema.ValidatePayload(info.ResponseSchema, []byte(req.Response)); err != nil {
			return err
		}
	}
	return nil
}

func (h *CommandHandler) loadFlightAndVessel(w http.ResponseWriter, r *http.Request, flightID string) (*models.Flight, *models.Vessel, bool) {
	flight, err := h.store.GetFlight(r.Context(), flightID)
	if err != nil {
		if errors.Is(err, models.ErrFlightNotFound) {
			NotFound(w, err.Error())
			return nil, nil, false
		}
		InternalServerError(w, "failed to load flight")
		return nil, nil, false
	}
	vessel, err := h.store.GetVessel(r.Context(), flight.VesselID)
	if err != nil {
		InternalServerError(w, "failed to load flight's vessel")
		return nil, nil, false
	}
	return flight, vessel, true
}

func (h *CommandHandler) hasFlightAccess(r *http.Request, flight *models.Flight, vessel *models.Vessel, required permission.Level) bool {
	claims := middleware.GetClaimsFromContext(r.Context())
	userID := ""
	if claims != nil {
		userID = claims.UserID
	}
	flightGrants := permission.GrantsFromStrings(flight.NoAuthPermission, flight.Permissions)
	vesselGrants := permission.GrantsFromStrings(vessel.NoAuthPermission, vessel.Permissions)
	return permission.HasFlightPermission(flightGrants, vesselGrants, userID, required)
}

func commandToModel(flightID string, req commandRequest) *models.Command {
	return &models.Command{
		ID:              req.ID,
		FlightID:        flightID,
		CommandType:     req.CommandType,
		PartID:          req.PartID,
		CreateTime:      req.CreateTime,
		DispatchTime:    req.DispatchTime,
		ReceiveTime:     req.ReceiveTime,
		CompleteTime:    req.CompleteTime,
		State:           req.State,
		CommandPayload:  req.CommandPayload,
		ResponseMessage: req.ResponseMessage,
		Response:        req.Response,
	}
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
