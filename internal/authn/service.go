// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package authn implements the authentication use cases: credential login
// and refresh-token rotation.
//
// # Architecture
//
// The service reads identity data through a narrow [Directory] port and
// never assumes a concrete user type: it inspects the principal's
// attributes through the configurable [Fields] mapping. It is
// technology-agnostic and does not know about HTTP or SQL.
package authn

import (
	"context"
	"time"

	"github.com/taibuivan/crudkit/internal/crudl"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/internal/platform/principal"
	"github.com/taibuivan/crudkit/internal/platform/sec"
)

// Default attribute names inspected on authenticated principals.
const (
	DefaultUsernameField     = "username"
	DefaultPasswordField     = "password"
	DefaultIDField           = "id"
	DefaultRefreshTokenField = "refreshToken"
)

// Fields maps the service's logical attributes onto a principal's
// attribute names.
type Fields struct {
	// Username is the attribute holding the login name.
	Username string
	// Password is the attribute holding the bcrypt hash.
	Password string
	// ID is the attribute holding the stable subject identifier.
	ID string
	// RefreshToken is the attribute concept for stored refresh tokens.
	RefreshToken string
}

// withDefaults fills empty entries with the conventional names.
func (f Fields) withDefaults() Fields {
	if f.Username == "" {
		f.Username = DefaultUsernameField
	}
	if f.Password == "" {
		f.Password = DefaultPasswordField
	}
	if f.ID == "" {
		f.ID = DefaultIDField
	}
	if f.RefreshToken == "" {
		f.RefreshToken = DefaultRefreshTokenField
	}
	return f
}

// Directory is the identity store the service authenticates against.
//
// RetrieveBy must return ERR_NOT_FOUND when no principal matches; the
// service masks that as a uniform authentication failure.
type Directory interface {
	// RetrieveBy returns the principal matching the filter.
	RetrieveBy(ctx context.Context, filter crudl.Filter) (principal.Principal, error)

	// AddRefreshToken records a newly issued refresh token for a subject.
	AddRefreshToken(ctx context.Context, subjectID, token string) error

	// ReplaceRefreshToken atomically consumes oldToken and records
	// newToken for the subject. It must fail with ERR_UNAUTHORIZED when
	// oldToken is not among the subject's active tokens, which makes every
	// refresh token single-use.
	ReplaceRefreshToken(ctx context.Context, subjectID, oldToken, newToken string) error
}

// TokenPair is the payload returned by login and refresh.
type TokenPair struct {
	// Token is the signed access token.
	Token string `json:"token"`
	// ExpiresAt is the access token's expiry timestamp.
	ExpiresAt time.Time `json:"expiresAt"`
	// RefreshToken is the single-use rotation token; empty when the
	// refresh feature is disabled.
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Service implements login and refresh-token rotation.
//
// # Review Process
//
// This service is critical for security. Any changes to credential checks
// or token rotation must be reviewed before merging.
type Service struct {
	directory      Directory
	tokens         *sec.TokenService
	fields         Fields
	refreshEnabled bool
}

// NewService constructs the authentication service.
//
// fields may be partially filled; missing names fall back to the
// conventional defaults.
func NewService(directory Directory, tokens *sec.TokenService, fields Fields, refreshEnabled bool) *Service {
	return &Service{
		directory:      directory,
		tokens:         tokens,
		fields:         fields.withDefaults(),
		refreshEnabled: refreshEnabled,
	}
}

// Login verifies credentials and issues a token pair.
//
// Every failure mode (unknown username, wrong password, malformed account
// record) returns the same non-descriptive ERR_AUTHENTICATION_FAIL so the
// endpoint cannot be used to probe which usernames exist.
func (service *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {

	// ── 1. Lookup ─────────────────────────────────────────────────────────
	caller, err := service.directory.RetrieveBy(ctx, crudl.Filter{service.fields.Username: username})
	if err != nil {
		return nil, apperr.AuthenticationFail()
	}

	// ── 2. Credential Check ───────────────────────────────────────────────
	hash, ok := principal.StringAttribute(caller, service.fields.Password)
	if !ok || !sec.CheckPasswordHash(password, hash) {
		return nil, apperr.AuthenticationFail()
	}

	// ── 3. Token Issue ────────────────────────────────────────────────────
	subjectID, ok := principal.StringAttribute(caller, service.fields.ID)
	if !ok || subjectID == "" {
		return nil, apperr.AuthenticationFail()
	}

	return service.issueTokens(ctx, subjectID)
}

// Refresh rotates a refresh token: the presented token is consumed and a
// fresh pair is issued.
//
// With the refresh feature disabled the operation is forbidden outright.
// A token that was never issued, or was already used once, fails with
// ERR_UNAUTHORIZED.
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !service.refreshEnabled {
		return nil, apperr.Forbidden("Refresh tokens are disabled")
	}

	// ── 1. Verify Signature ───────────────────────────────────────────────
	claims, err := service.tokens.VerifyToken(refreshToken)
	if err != nil {
		return nil, err
	}
	subjectID := claims.SubjectID()
	if subjectID == "" {
		return nil, apperr.Unauthorized("Invalid refresh token")
	}

	// ── 2. Rotate ─────────────────────────────────────────────────────────
	accessToken, expiresAt, err := service.tokens.GenerateAccessToken(subjectID)
	if err != nil {
		return nil, err
	}
	newRefresh, err := service.tokens.GenerateRefreshToken(subjectID)
	if err != nil {
		return nil, err
	}

	// Consume-and-store is a single directory operation so two concurrent
	// refreshes with the same token cannot both succeed.
	if err := service.directory.ReplaceRefreshToken(ctx, subjectID, refreshToken, newRefresh); err != nil {
		return nil, err
	}

	return &TokenPair{
		Token:        accessToken,
		ExpiresAt:    expiresAt,
		RefreshToken: newRefresh,
	}, nil
}

// VerifyToken exposes access token verification for the HTTP middleware.
func (service *Service) VerifyToken(tokenStr string) (*sec.AuthClaims, error) {
	return service.tokens.VerifyToken(tokenStr)
}

// LoadPrincipal resolves the principal behind a verified subject ID.
//
// A deleted subject yields (nil, nil): the request proceeds as anonymous
// and the role guard decides what anonymous callers may do.
func (service *Service) LoadPrincipal(ctx context.Context, subjectID string) (principal.Principal, error) {
	caller, err := service.directory.RetrieveBy(ctx, crudl.Filter{service.fields.ID: subjectID})
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return caller, nil
}

// issueTokens builds the token pair for a subject, recording the refresh
// token when the feature is enabled.
func (service *Service) issueTokens(ctx context.Context, subjectID string) (*TokenPair, error) {
	accessToken, expiresAt, err := service.tokens.GenerateAccessToken(subjectID)
	if err != nil {
		return nil, err
	}

	pair := &TokenPair{Token: accessToken, ExpiresAt: expiresAt}

	if service.refreshEnabled {
		refreshToken, err := service.tokens.GenerateRefreshToken(subjectID)
		if err != nil {
			return nil, err
		}
		if err := service.directory.AddRefreshToken(ctx, subjectID, refreshToken); err != nil {
			return nil, err
		}
		pair.RefreshToken = refreshToken
	}

	return pair, nil
}
