package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aeroline/flightcore/pkg/api/middleware"
	"github.com/aeroline/flightcore/pkg/auth"
	"github.com/aeroline/flightcore/pkg/models"
	"github.com/aeroline/flightcore/pkg/permission"
)

// UserStore is the persistence surface AuthHandler needs beyond auth.CodeStore.
// *store.Store satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUniqueName(ctx context.Context, uniqueName string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string, when time.Time) error
	GetVessel(ctx context.Context, id string) (*models.Vessel, error)
	GetFlight(ctx context.Context, id string) (*models.Flight, error)
}

// AuthHandler implements the /auth/* endpoints.
type AuthHandler struct {
	tokens *auth.TokenService
	users  UserStore
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(tokens *auth.TokenService, users UserStore) *AuthHandler {
	return &AuthHandler{tokens: tokens, users: users}
}

type registerRequest struct {
	Name       string `json:"name"`
	UniqueName string `json:"unique_name"`
	Password   string `json:"pw"`
}

// Register creates a new user and returns a fresh token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "malformed request body")
		return
	}
	if req.UniqueName == "" || req.Password == "" {
		BadRequest(w, "unique_name and pw are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	user := &models.User{
		ID:           auth.NewUserID(),
		UniqueName:   req.UniqueName,
		Name:         req.Name,
		PasswordHash: hash,
		Roles:        models.StringSlice{string(models.RoleUser)},
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			Conflict(w, err.Error())
			return
		}
		InternalServerError(w, "failed to create user")
		return
	}

	pair, err := h.tokens.IssueTokenPair(r.Context(), user, nil)
	if err != nil {
		InternalServerError(w, "failed to issue tokens")
		return
	}
	WriteJSONOK(w, pair)
}

type loginRequest struct {
	UniqueName string `json:"unique_name"`
	Password   string `json:"pw"`
}

// Login authenticates a password login and returns a fresh token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "malformed request body")
		return
	}

	user, err := h.users.GetUserByUniqueName(r.Context(), req.UniqueName)
	if err != nil {
		AuthInvalid(w, "invalid credentials")
		return
	}
	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		AuthInvalid(w, "invalid credentials")
		return
	}

	_ = h.users.UpdateLastLogin(r.Context(), user.ID, time.Now().UTC())

	pair, err := h.tokens.IssueTokenPair(r.Context(), user, nil)
	if err != nil {
		InternalServerError(w, "failed to issue tokens")
		return
	}
	WriteJSONOK(w, pair)
}

type authCodeFlowRequest struct {
	Token     string             `json:"token"`
	Resources []auth.ResourceRef `json:"resources,omitempty"`
}

// AuthorizationCodeFlow redeems an authorization code for a fresh token
// pair, optionally narrowed to the requested resources.
func (h *AuthHandler) AuthorizationCodeFlow(w http.ResponseWriter, r *http.Request) {
	var req authCodeFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		BadRequest(w, "malformed request body")
		return
	}

	code, err := h.tokens.RedeemAuthorizationCode(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrCodeExpired) {
			TokenExpired(w, err.Error())
			return
		}
		AuthInvalid(w, "invalid authorization code")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), code.UserID)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			InternalServerError(w, "failed to load user")
			return
		}
		// First redemption for this code's subject: implicitly provision the
		// vessel identity the way the owner's minted code intended, rather
		// than rejecting a code whose companion user was never created.
		user = &models.User{
			ID:         code.UserID,
			UniqueName: code.UserID,
			Roles:      models.StringSlice{string(models.RoleVessel)},
		}
		if err := h.users.CreateUser(r.Context(), user); err != nil {
			InternalServerError(w, "failed to provision vessel identity")
			return
		}
	}

	if err := h.validateRequestedResources(r.Context(), user, req.Resources); err != nil {
		Forbidden(w, err.Error())
		return
	}

	pair, err := h.tokens.IssueTokenPair(r.Context(), user, req.Resources)
	if err != nil {
		InternalServerError(w, "failed to issue tokens")
		return
	}
	WriteJSONOK(w, pair)
}

// validateRequestedResources rejects a resource-narrowed token request when
// the user does not hold at least view access over every named resource.
func (h *AuthHandler) validateRequestedResources(ctx context.Context, user *models.User, resources []auth.ResourceRef) error {
	for _, res := range resources {
		switch res.Kind {
		case "vessel":
			vessel, err := h.users.GetVessel(ctx, res.ID)
			if err != nil {
				return errors.New("requested vessel resource not found")
			}
			grants := permission.GrantsFromStrings(vessel.NoAuthPermission, vessel.Permissions)
			if !permission.HasVesselPermission(grants, user.ID, permission.View) {
				return errors.New("no access to requested vessel resource")
			}
		case "flight":
			flight, err := h.users.GetFlight(ctx, res.ID)
			if err != nil {
				return errors.New("requested flight resource not found")
			}
			vessel, err := h.users.GetVessel(ctx, flight.VesselID)
			if err != nil {
				return errors.New("requested flight's vessel not found")
			}
			flightGrants := permission.GrantsFromStrings(flight.NoAuthPermission, flight.Permissions)
			vesselGrants := permission.GrantsFromStrings(vessel.NoAuthPermission, vessel.Permissions)
			if !permission.HasFlightPermission(flightGrants, vesselGrants, user.ID, permission.View) {
				return errors.New("no access to requested flight resource")
			}
		}
	}
	return nil
}

type revokeAuthCodeRequest struct {
	Code string `json:"code"`
}

// RevokeAuthCode deletes an authorization code, the code itself serving as
// its own authorization.
func (h *AuthHandler) RevokeAuthCode(w http.ResponseWriter, r *http.Request) {
	var req revokeAuthCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		BadRequest(w, "malformed request body")
		return
	}
	if err := h.tokens.RevokeAuthorizationCode(r.Context(), req.Code); err != nil {
		InternalServerError(w, "failed to revoke code")
		return
	}
	WriteNoContent(w)
}

// PublicKey serves the token service's RSA public key as PEM, text/plain.
func (h *AuthHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	pem, err := h.tokens.PublicKeyPEM()
	if err != nil {
		InternalServerError(w, "failed to load public key")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pem)
}

// VerifyAuthenticated is a bearer-protected liveness probe: reaching the
// handler at all confirms the token validated.
func (h *AuthHandler) VerifyAuthenticated(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		AuthMissing(w, "authentication required")
		return
	}
	WriteJSONOK(w, map[string]any{
		"uid":         claims.UserID,
		"unique_name": claims.UniqueName,
		"roles":       claims.Roles,
	})
}
