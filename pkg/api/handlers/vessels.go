package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aeroline/flightcore/pkg/api/middleware"
	"github.com/aeroline/flightcore/pkg/auth"
	"github.com/aeroline/flightcore/pkg/models"
	"github.com/aeroline/flightcore/pkg/permission"
)

// VesselStore is the persistence surface VesselHandler needs. *store.Store
// satisfies it.
type VesselStore interface {
	UpsertVessel(ctx context.Context, vessel *models.Vessel) (*models.Vessel, error)
	UpdateVesselWithoutVersionChange(ctx context.Context, vessel *models.Vessel) error
	GetVessel(ctx context.Context, id string) (*models.Vessel, error)
	GetVesselHistoric(ctx context.Context, id string, version int) (*models.VesselHistoric, error)
	ListVessels(ctx context.Context) ([]*models.Vessel, error)
	DeleteVesselCascade(ctx context.Context, vesselID string) error
}

// VesselHandler implements the /v1/vessels/* endpoints.
type VesselHandler struct {
	store  VesselStore
	tokens *auth.TokenService
}

// NewVesselHandler returns a VesselHandler.
func NewVesselHandler(store VesselStore, tokens *auth.TokenService) *VesselHandler {
	return &VesselHandler{store: store, tokens: tokens}
}

type vesselRequest struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Parts            []models.VesselPart `json:"parts"`
	NoAuthPermission string              `json:"no_auth_permission"`
}

// Upsert registers a new vessel or advances an existing one's version,
// requiring the caller's token to carry the vessel role.
func (h *VesselHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req vesselRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		BadRequest(w, "malformed request body")
		return
	}

	claims := middleware.GetClaimsFromContext(r.Context())

	vessel := &models.Vessel{
		ID:    req.ID,
		Name:  req.Name,
		Parts: req.Parts,
	}

	existing, err := h.store.GetVessel(r.Context(), req.ID)
	if err != nil && !errors.Is(err, models.ErrVesselNotFound) {
		InternalServerError(w, "failed to load vessel")
		return
	}
	if existing == nil {
		grants := permission.Grants{NoAuthPermission: permission.None}
		if claims != nil {
			grants.ByUser = map[string]permission.Level{claims.UserID: permission.Owner}
		}
		permission.EnsureOwnerInvariant(&grants)
		vessel.NoAuthPermission = string(grants.NoAuthPermission)
		vessel.Permissions = grantsToStrings(grants.ByUser)
	}

	saved, err := h.store.UpsertVessel(r.Context(), vessel)
	if err != nil {
		InternalServerError(w, "failed to save vessel")
		return
	}
	WriteJSONOK(w, saved)
}

// List returns every vessel the caller may view, including anonymous
// callers when a vessel's noAuthPermission allows it, optionally narrowed
// to vessels matching the ?name= query parameter.
func (h *VesselHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	userID := ""
	if claims != nil {
		userID = claims.UserID
	}
	name := r.URL.Query().Get("name")

	vessels, err := h.store.ListVessels(r.Context())
	if err != nil {
		InternalServerError(w, "failed to list vessels")
		return
	}

	visible := make([]*models.Vessel, 0, len(vessels))
	for _, v := range vessels {
		if name != "" && v.Name != name {
			continue
		}
		grants := permission.GrantsFromStrings(v.NoAuthPermission, v.Permissions)
		if permission.Effective(grants, userID).CanView() {
			visible = append(visible, v)
		}
	}
	WriteJSONOK(w, visible)
}

// Get returns a vessel's current record, or a historic snapshot when a
// version is given, requiring at least view access.
func (h *VesselHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versionParam := chi.URLParam(r, "version")

	current, err := h.store.GetVessel(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrVesselNotFound) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, "failed to load vessel")
		return
	}

	if !h.authorize(r, current.NoAuthPermission, current.Permissions, permission.View) {
		Forbidden(w, "view access required")
		return
	}

	if versionParam == "" {
		WriteJSONOK(w, current)
		return
	}

	version, err := parseVersion(versionParam)
	if err != nil {
		BadRequest(w, "version must be an integer")
		return
	}
	historic, err := h.store.GetVesselHistoric(r.Context(), id, version)
	if err != nil {
		if errors.Is(err, models.ErrVesselNotFound) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, "failed to load vessel version")
		return
	}
	WriteJSONOK(w, historic)
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename changes a vessel's display name without bumping its version,
// requiring owner access.
func (h *VesselHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	vessel, err := h.store.GetVessel(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrVesselNotFound) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, "failed to load vessel")
		return
	}
	if !h.authorize(r, vessel.NoAuthPermission, vessel.Permissions, permission.Owner) {
		Forbidden(w, "owner access required")
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	vessel.Name = req.Name
	if err := h.store.UpdateVesselWithoutVersionChange(r.Context(), vessel); err != nil {
		InternalServerError(w, "failed to rename vessel")
		return
	}
	WriteJSONOK(w, vessel)
}

// Delete cascading-deletes a vessel and everything under it, requiring
// owner access.
func (h *VesselHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	vessel, err := h.store.GetVessel(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrVesselNotFound) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, "failed to load vessel")
		return
	}
	if !h.authorize(r, vessel.NoAuthPermission, vessel.Permissions, permission.Owner) {
		Forbidden(w, "owner access required")
		return
	}

	if err := h.store.DeleteVesselCascade(r.Context(), id); err != nil {
		InternalServerError(w, "failed to delete vessel")
		return
	}
	WriteNoContent(w)
}

type mintAuthCodeRequest struct {
	ValidUntil time.Time `json:"valid_until"`
	SingleUse  bool      `json:"single_use"`
}

// MintAuthCode mints a provisioning authorization code naming the vessel as
// its subject, requiring owner access over the vessel. validUntil must not
// exceed one year out.
func (h *VesselHandler) MintAuthCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	vessel, err := h.store.GetVessel(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrVesselNotFound) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, "failed to load vessel")
		return
	}
	if !h.authorize(r, vessel.NoAuthPermission, vessel.Permissions, permission.Owner) {
		Forbidden(w, "owner access required")
		return
	}

	var req mintAuthCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ValidUntil.IsZero() {
		BadRequest(w, "valid_until is required")
		return
	}

	// The code's subject is the vessel's own id, not the minting owner's: it
	// is redeemed by the vessel itself to obtain a vessel-role token.
	code, err := h.tokens.MintAuthorizationCode(r.Context(), id, req.SingleUse, req.ValidUntil)
	if err != nil {
		if errors.Is(err, auth.ErrCodeTooLong) {
			BadRequest(w, err.Error())
			return
		}
		InternalServerError(w, "failed to mint authorization code")
		return
	}
	WriteJSONCreated(w, code)
}

// authorize reports whether the request's caller (claims may be nil) has at
// least required access given a resource's noAuth/per-user grants.
func (h *VesselHandler) authorize(r *http.Request, noAuth string, byUser map[string]string, required permission.Level) bool {
	claims := middleware.GetClaimsFromContext(r.Context())
	userID := ""
	if claims != nil {
		userID = claims.UserID
	}
	grants := permission.GrantsFromStrings(noAuth, byUser)
	return permission.Effective(grants, userID).Index() >= required.Index()
}

func grantsToStrings(byUser map[string]permission.Level) map[string]string {
	if len(byUser) == 0 {
		return nil
	}
	out := make(map[string]string, len(byUser))
	for userID, level := range byUser {
		out[userID] = string(level)
	}
	return out
}

func parseVersion(s string) (int, error) {
	return strconv.Atoi(s)
}
