// Package auth implements flightcore's token service (C3): RS256 access
// token issuance and verification, and authorization-code mint/redeem for
// the refresh flow and vessel provisioning.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aeroline/flightcore/pkg/models"
)

// DefaultAccessTokenDuration is the access token lifetime used when Config
// does not override it.
const DefaultAccessTokenDuration = 24 * time.Hour

// MaxCodeValidity is the longest validUntil the service will mint for an
// authorization code.
const MaxCodeValidity = 365 * 24 * time.Hour

// Config configures a TokenService.
type Config struct {
	// PrivateKeyPath and PublicKeyPath point at PEM-encoded RSA key
	// material used to sign and verify access tokens.
	PrivateKeyPath string `mapstructure:"private_key_path" yaml:"private_key_path"`
	PublicKeyPath  string `mapstructure:"public_key_path" yaml:"public_key_path"`

	// Issuer is the "iss" claim stamped on every token this service mints.
	Issuer string `mapstructure:"issuer" yaml:"issuer"`

	// AccessTokenDuration is the access token lifetime. Default 24h.
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" yaml:"access_token_duration"`
}

// CodeStore persists authorization codes on behalf of the token service.
type CodeStore interface {
	CreateAuthCode(ctx context.Context, code *models.AuthorizationCode) error
	GetAuthCode(ctx context.Context, code string) (*models.AuthorizationCode, error)
	DeleteAuthCode(ctx context.Context, code string) error
}

// TokenService issues and validates RS256 access tokens and manages
// authorization codes for refresh and vessel-provisioning flows.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	accessTTL  time.Duration
	codes      CodeStore
}

// NewTokenService loads the configured key pair and returns a ready
// TokenService. Keys are read once here and cached for the process's
// lifetime.
func NewTokenService(cfg Config, codes CodeStore) (*TokenService, error) {
	priv, err := LoadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	pub, err := LoadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return nil, err
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "flightcore"
	}
	ttl := cfg.AccessTokenDuration
	if ttl == 0 {
		ttl = DefaultAccessTokenDuration
	}
	return &TokenService{privateKey: priv, publicKey: pub, issuer: issuer, accessTTL: ttl, codes: codes}, nil
}

// PublicKeyPEM returns the service's public key in PKIX PEM form, served at
// the /auth/public_key endpoint.
func (s *TokenService) PublicKeyPEM() ([]byte, error) {
	return EncodePublicKeyPEM(s.publicKey)
}

// IssueAccessToken mints a single RS256 access token for user, optionally
// narrowed to resources.
func (s *TokenService) IssueAccessToken(user *models.User, resources []ResourceRef) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:     user.ID,
		UniqueName: user.UniqueName,
		Name:       user.Name,
		Roles:      []string(user.Roles),
		Resources:  resources,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrTokenSigningFailed, err)
	}
	return signed, expiresAt, nil
}

// TokenPair is an access token paired with a refresh authorization code.
type TokenPair struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IssueTokenPair mints an access token plus a fresh single-use refresh
// authorization code for user.
func (s *TokenService) IssueTokenPair(ctx context.Context, user *models.User, resources []ResourceRef) (*TokenPair, error) {
	access, expiresAt, err := s.IssueAccessToken(user, resources)
	if err != nil {
		return nil, err
	}
	refresh, err := s.MintAuthorizationCode(ctx, user.ID, true, time.Now().Add(7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh.Code, ExpiresAt: expiresAt}, nil
}

// ValidateAccessToken verifies signature, issuer, and expiry, returning the
// parsed claims. Any failure produces ErrInvalidToken or ErrExpiredToken.
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Issuer == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueServiceToken mints a self-signed access token the MQTT consumer
// presents to its own broker, carrying the vessel role so the broker's auth
// callback treats it like any other vessel identity.
func (s *TokenService) IssueServiceToken(serviceName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   serviceName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:     serviceName,
		UniqueName: serviceName,
		Name:       serviceName,
		Roles:      []string{string(models.RoleVessel)},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenSigningFailed, err)
	}
	return signed, nil
}
