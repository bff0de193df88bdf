// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authn_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/crudkit/internal/authn"
	"github.com/taibuivan/crudkit/internal/crudl"
	"github.com/taibuivan/crudkit/internal/crudl/memstore"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/internal/platform/sec"
	"github.com/taibuivan/crudkit/internal/users"
)

type fixture struct {
	service   *authn.Service
	accounts  *users.Service
	store     *memstore.Store[users.User]
	tokens    *sec.TokenService
	adminUser users.User
}

func newFixture(t *testing.T, refreshEnabled bool) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memstore.New[users.User](users.UniqueFields()...)
	accounts := users.NewService(store, memstore.Translate, 4)
	require.NoError(t, accounts.SeedAdmin(ctx, "correct-horse"))

	tokens, err := sec.NewTokenService("test-secret", "crudkit", time.Hour)
	require.NoError(t, err)

	admin, err := store.GetOneBy(ctx, crudl.Filter{"username": "admin"})
	require.NoError(t, err)

	return &fixture{
		service:   authn.NewService(accounts, tokens, authn.Fields{}, refreshEnabled),
		accounts:  accounts,
		store:     store,
		tokens:    tokens,
		adminUser: admin,
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newFixture(t, true)

	pair, err := f.service.Login(context.Background(), "admin", "correct-horse")
	require.NoError(t, err)

	require.NotEmpty(t, pair.Token)
	require.NotEmpty(t, pair.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), pair.ExpiresAt, 5*time.Second)

	claims, err := f.tokens.VerifyToken(pair.Token)
	require.NoError(t, err)
	assert.Equal(t, f.adminUser.ID, claims.SubjectID())
}

func TestLoginWithoutRefreshFeature(t *testing.T) {
	f := newFixture(t, false)

	pair, err := f.service.Login(context.Background(), "admin", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Token)
	assert.Empty(t, pair.RefreshToken)
}

func TestLoginFailureIsUniform(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, unknownUser := f.service.Login(ctx, "nobody", "correct-horse")
	_, wrongPassword := f.service.Login(ctx, "admin", "wrong")

	for _, err := range []error{unknownUser, wrongPassword} {
		appError := apperr.As(err)
		require.NotNil(t, appError)
		assert.Equal(t, apperr.CodeAuthenticationFail, appError.Code)
		assert.Equal(t, "Wrong username or password", appError.Message)
	}
}

func TestDisabledAccountCannotLogin(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	err := f.store.Update(ctx, crudl.Filter{"id": f.adminUser.ID}, crudl.Filter{"enabled": false})
	require.NoError(t, err)

	_, err = f.service.Login(ctx, "admin", "correct-horse")
	assert.True(t, apperr.IsCode(err, apperr.CodeAuthenticationFail))
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	pair, err := f.service.Login(ctx, "admin", "correct-horse")
	require.NoError(t, err)

	rotated, err := f.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.Token)
	require.NotEmpty(t, rotated.RefreshToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The consumed token must not work a second time.
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeUnauthorized, appError.Code)

	// The rotated token is live.
	_, err = f.service.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsForgedToken(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.service.Refresh(context.Background(), "not-a-jwt")
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))
}

func TestRefreshRejectsUnissuedToken(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	// A validly signed refresh token that the directory never recorded.
	forged, err := f.tokens.GenerateRefreshToken(f.adminUser.ID)
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, forged)
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))
}

func TestRefreshDisabled(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.service.Refresh(context.Background(), "anything")
	assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))
}

func TestLoadPrincipal(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	caller, err := f.service.LoadPrincipal(ctx, f.adminUser.ID)
	require.NoError(t, err)
	require.NotNil(t, caller)

	role, ok := caller.Attribute("role")
	require.True(t, ok)
	assert.Equal(t, users.RoleAdmin, role)

	// A deleted subject resolves to an anonymous request, not an error.
	caller, err = f.service.LoadPrincipal(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, caller)
}
