package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aeroline/flightcore/pkg/auth"
	"github.com/aeroline/flightcore/pkg/models"
)

type fakeUserStore struct {
	byID       map[string]*models.User
	byUnique   map[string]*models.User
	vessel     *models.Vessel
	flight     *models.Flight
	lastLogins map[string]time.Time
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:       map[string]*models.User{},
		byUnique:   map[string]*models.User{},
		lastLogins: map[string]time.Time{},
	}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *models.User) error {
	if _, ok := f.byUnique[user.UniqueName]; ok {
		return models.ErrDuplicateUser
	}
	f.byID[user.ID] = user
	f.byUnique[user.UniqueName] = user
	return nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByUniqueName(_ context.Context, uniqueName string) (*models.User, error) {
	u, ok := f.byUnique[uniqueName]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, userID string, when time.Time) error {
	f.lastLogins[userID] = when
	return nil
}

func (f *fakeUserStore) GetVessel(_ context.Context, id string) (*models.Vessel, error) {
	if f.vessel == nil || f.vessel.ID != id {
		return nil, models.ErrVesselNotFound
	}
	return f.vessel, nil
}

func (f *fakeUserStore) GetFlight(_ context.Context, id string) (*models.Flight, error) {
	if f.flight == nil || f.flight.ID != id {
		return nil, models.ErrFlightNotFound
	}
	return f.flight, nil
}

func TestAuthRegisterRejectsMissingCredentials(t *testing.T) {
	tokens := newTestTokenService(t)
	h := NewAuthHandler(tokens, newFakeUserStore())

	body, _ := json.Marshal(registerRequest{Name: "Ada"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRegisterSucceedsAndIssuesTokens(t *testing.T) {
	tokens := newTestTokenService(t)
	h := NewAuthHandler(tokens, newFakeUserStore())

	body, _ := json.Marshal(registerRequest{Name: "Ada", UniqueName: "ada@x", Password: "hunter2hunter2"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRegisterRejectsDuplicateUniqueName(t *testing.T) {
	tokens := newTestTokenService(t)
	store := newFakeUserStore()
	store.byUnique["ada@x"] = &models.User{ID: "u1", UniqueName: "ada@x"}
	h := NewAuthHandler(tokens, store)

	body, _ := json.Marshal(registerRequest{Name: "Ada", UniqueName: "ada@x", Password: "hunter2hunter2"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthLoginRejectsWrongPassword(t *testing.T) {
	tokens := newTestTokenService(t)
	store := newFakeUserStore()
	hash, err := auth.HashPassword("correct-password")
	require.NoError(t, err)
	store.byUnique["ada@x"] = &models.User{ID: "u1", UniqueName: "ada@x", PasswordHash: hash}
	h := NewAuthHandler(tokens, store)

	body, _ := json.Marshal(loginRequest{UniqueName: "ada@x", Password: "wrong-password"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthLoginSucceeds(t *testing.T) {
	tokens := newTestTokenService(t)
	store := newFakeUserStore()
	hash, err := auth.HashPassword("correct-password")
	require.NoError(t, err)
	store.byUnique["ada@x"] = &models.User{ID: "u1", UniqueName: "ada@x", PasswordHash: hash}
	h := NewAuthHandler(tokens, store)

	body, _ := json.Marshal(loginRequest{UniqueName: "ada@x", Password: "correct-password"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, store.lastLogins, "u1")
}

func TestAuthorizationCodeFlowRejectsResourceWithoutAccess(t *testing.T) {
	tokens, err := auth.NewTokenService(newTestTokenConfig(t), &capturingCodeStore{})
	require.NoError(t, err)
	store := newFakeUserStore()
	store.byID["u1"] = &models.User{ID: "u1", UniqueName: "ada@x"}
	store.vessel = &models.Vessel{ID: "v1", NoAuthPermission: "none"}
	h := NewAuthHandler(tokens, store)

	code, err := tokens.MintAuthorizationCode(context.Background(), "u1", true, time.Now().Add(time.Hour))
	require.NoError(t, err)

	body, _ := json.Marshal(authCodeFlowRequest{
		Token:     code.Code,
		Resources: []auth.ResourceRef{{Kind: "vessel", ID: "v1"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/code", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.AuthorizationCodeFlow(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizationCodeFlowSucceeds(t *testing.T) {
	tokens, err := auth.NewTokenService(newTestTokenConfig(t), &capturingCodeStore{})
	require.NoError(t, err)
	store := newFakeUserStore()
	store.byID["u1"] = &models.User{ID: "u1", UniqueName: "ada@x"}
	store.vessel = &models.Vessel{ID: "v1", NoAuthPermission: "view"}
	h := NewAuthHandler(tokens, store)

	code, err := tokens.MintAuthorizationCode(context.Background(), "u1", true, time.Now().Add(time.Hour))
	require.NoError(t, err)

	body, _ := json.Marshal(authCodeFlowRequest{
		Token:     code.Code,
		Resources: []auth.ResourceRef{{Kind: "vessel", ID: "v1"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/code", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.AuthorizationCodeFlow(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizationCodeFlowProvisionsVesselIdentityOnFirstRedemption(t *testing.T) {
	tokens, err := auth.NewTokenService(newTestTokenConfig(t), &capturingCodeStore{})
	require.NoError(t, err)
	store := newFakeUserStore()
	h := NewAuthHandler(tokens, store)

	code, err := tokens.MintAuthorizationCode(context.Background(), "v1", false, time.Now().Add(time.Hour))
	require.NoError(t, err)

	body, _ := json.Marshal(authCodeFlowRequest{Token: code.Code})
	req := httptest.NewRequest(http.MethodPost, "/auth/code", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.AuthorizationCodeFlow(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	created, ok := store.byID["v1"]
	require.True(t, ok)
	require.True(t, created.HasRole(models.RoleVessel))
}

func TestAuthVerifyAuthenticatedRequiresClaims(t *testing.T) {
	tokens := newTestTokenService(t)
	h := NewAuthHandler(tokens, newFakeUserStore())

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	w := httptest.NewRecorder()

	h.VerifyAuthenticated(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthVerifyAuthenticatedSucceedsWithClaims(t *testing.T) {
	tokens := newTestTokenService(t)
	h := NewAuthHandler(tokens, newFakeUserStore())

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	w := httptest.NewRecorder()

	guarded := withClaims(h.VerifyAuthenticated, &auth.Claims{UserID: "u1", UniqueName: "ada@x"})
	guarded(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRevokeAuthCodeRejectsMissingCode(t *testing.T) {
	tokens := newTestTokenService(t)
	h := NewAuthHandler(tokens, newFakeUserStore())

	req := httptest.NewRequest(http.MethodPost, "/auth/revoke", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	h.RevokeAuthCode(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthPublicKeyServesPEM(t *testing.T) {
	tokens := newTestTokenService(t)
	h := NewAuthHandler(tokens, newFakeUserStore())

	req := httptest.NewRequest(http.MethodGet, "/auth/public_key", nil)
	w := httptest.NewRecorder()

	h.PublicKey(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "PUBLIC KEY")
}
