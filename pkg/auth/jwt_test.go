package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aeroline/flightcore/pkg/models"
)

type fakeCodeStore struct {
	codes map[string]*models.AuthorizationCode
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: make(map[string]*models.AuthorizationCode)}
}

func (f *fakeCodeStore) CreateAuthCode(_ context.Context, code *models.AuthorizationCode) error {
	f.codes[code.Code] = code
	return nil
}

func (f *fakeCodeStore) GetAuthCode(_ context.Context, code string) (*models.AuthorizationCode, error) {
	c, ok := f.codes[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeCodeStore) DeleteAuthCode(_ context.Context, code string) error {
	delete(f.codes, code)
	return nil
}

func writeTestKeyPair(t *testing.T) (privPath, pubPath string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath = filepath.Join(dir, "private.pem")
	pubPath = filepath.Join(dir, "public.pem")

	privDER := x509.MarshalPKCS1PrivateKey(key)
	require.NoError(t, writePEM(privPath, "RSA PRIVATE KEY", privDER))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, writePEM(pubPath, "PUBLIC KEY", pubDER))

	return privPath, pubPath
}

func writePEM(path, blockType string, der []byte) error {
	return os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), 0o600)
}

func newTestService(t *testing.T) (*TokenService, *fakeCodeStore) {
	t.Helper()
	privPath, pubPath := writeTestKeyPair(t)
	store := newFakeCodeStore()
	svc, err := NewTokenService(Config{
		PrivateKeyPath:      privPath,
		PublicKeyPath:       pubPath,
		Issuer:              "flightcore-test",
		AccessTokenDuration: time.Minute,
	}, store)
	require.NoError(t, err)
	return svc, store
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	user := &models.User{ID: "u1", UniqueName: "ada@x", Name: "Ada", Roles: models.StringSlice{"user"}}

	token, expiresAt, err := svc.IssueAccessToken(user, nil)
	require.NoError(t, err)
	require.False(t, expiresAt.IsZero())

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.True(t, claims.HasRole("user"))
}

func TestValidateAccessTokenRejectsExpired(t *testing.T) {
	privPath, pubPath := writeTestKeyPair(t)
	store := newFakeCodeStore()
	svc, err := NewTokenService(Config{
		PrivateKeyPath:      privPath,
		PublicKeyPath:       pubPath,
		Issuer:              "flightcore-test",
		AccessTokenDuration: -time.Minute,
	}, store)
	require.NoError(t, err)

	user := &models.User{ID: "u1", UniqueName: "ada@x"}
	token, _, err := svc.IssueAccessToken(user, nil)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestResourceRestrictedToken(t *testing.T) {
	svc, _ := newTestService(t)
	user := &models.User{ID: "u1"}
	token, _, err := svc.IssueAccessToken(user, []ResourceRef{{Kind: "vessel", ID: "v1"}})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.True(t, claims.AllowsResource("vessel", "v1"))
	require.False(t, claims.AllowsResource("vessel", "v2"))
}

func TestMintAuthorizationCodeRejectsTooFarInFuture(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.MintAuthorizationCode(context.Background(), "u1", true, time.Now().Add(366*24*time.Hour))
	require.ErrorIs(t, err, ErrCodeTooLong)
}

func TestRedeemAuthorizationCodeConsumesSingleUse(t *testing.T) {
	svc, store := newTestService(t)
	code, err := svc.MintAuthorizationCode(context.Background(), "u1", true, time.Now().Add(time.Hour))
	require.NoError(t, err)

	redeemed, err := svc.RedeemAuthorizationCode(context.Background(), code.Code)
	require.NoError(t, err)
	require.Equal(t, "u1", redeemed.UserID)

	_, ok := store.codes[code.Code]
	require.False(t, ok)
}

func TestRedeemAuthorizationCodeRejectsExpired(t *testing.T) {
	svc, _ := newTestService(t)
	code, err := svc.MintAuthorizationCode(context.Background(), "u1", false, time.Now().Add(time.Hour))
	require.NoError(t, err)
	code.ValidUntil = time.Now().Add(-time.Second)

	_, err = svc.RedeemAuthorizationCode(context.Background(), code.Code)
	require.True(t, errors.Is(err, ErrCodeExpired))
}

func TestIssueServiceTokenCarriesVesselRole(t *testing.T) {
	svc, _ := newTestService(t)
	token, err := svc.IssueServiceToken("mqtt-consumer", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.True(t, claims.HasRole(string(models.RoleVessel)))
}
