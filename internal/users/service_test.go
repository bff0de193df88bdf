// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package users_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/crudkit/internal/crudl"
	"github.com/taibuivan/crudkit/internal/crudl/memstore"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/internal/platform/sec"
	"github.com/taibuivan/crudkit/internal/users"
)

func newService(t *testing.T) (*users.Service, *memstore.Store[users.User]) {
	t.Helper()
	store := memstore.New[users.User](users.UniqueFields()...)
	return users.NewService(store, memstore.Translate, 4), store
}

func TestCreateHashesAndHidesPassword(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	created, err := service.Handler().Create(ctx, users.User{
		Username:     "kim",
		PasswordHash: "hunter2-hunter2",
	})
	require.NoError(t, err)

	// The response never carries credential material.
	assert.Empty(t, created.PasswordHash)
	assert.Empty(t, created.RefreshTokens)
	assert.Equal(t, users.RoleMember, created.Role)
	assert.True(t, created.Enabled)

	// The stored record carries the bcrypt hash, not the plaintext.
	stored, err := store.GetOneBy(ctx, crudl.Filter{"username": "kim"})
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2-hunter2", stored.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("hunter2-hunter2", stored.PasswordHash))
}

func TestCreateValidatesInput(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	_, err := service.Handler().Create(ctx, users.User{Username: "x", PasswordHash: "short"})
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeValidation, appError.Code)
	assert.NotEmpty(t, appError.Details)
}

func TestDuplicateUsername(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	_, err := service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	require.NoError(t, err)

	_, err = service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeDuplicateEntry, appError.Code)
	assert.Equal(t, []string{"username"}, appError.Duplicated)
}

func TestPatchRehashesPassword(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	created, err := service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	require.NoError(t, err)

	updated, err := service.Handler().Update(ctx, created.ID, crudl.Filter{"password": "new-password-1"})
	require.NoError(t, err)
	assert.Empty(t, updated.PasswordHash)

	stored, err := store.GetOneBy(ctx, crudl.Filter{"id": created.ID})
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("new-password-1", stored.PasswordHash))
}

func TestPatchCannotTouchTokenList(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	created, err := service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	require.NoError(t, err)

	require.NoError(t, service.AddRefreshToken(ctx, created.ID, "issued-token"))

	_, err = service.Handler().Update(ctx, created.ID, crudl.Filter{
		"refreshTokens": []string{"forged"},
		"role":          users.RoleAdmin,
	})
	require.NoError(t, err)

	stored, err := store.GetOneBy(ctx, crudl.Filter{"id": created.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"issued-token"}, stored.RefreshTokens)
	assert.Equal(t, users.RoleAdmin, stored.Role)
}

func TestReplaceRefreshTokenSingleUse(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	created, err := service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	require.NoError(t, err)

	require.NoError(t, service.AddRefreshToken(ctx, created.ID, "first"))
	require.NoError(t, service.ReplaceRefreshToken(ctx, created.ID, "first", "second"))

	err = service.ReplaceRefreshToken(ctx, created.ID, "first", "third")
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))

	require.NoError(t, service.ReplaceRefreshToken(ctx, created.ID, "second", "third"))
}

func TestReplaceRefreshTokenConcurrentRotation(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	created, err := service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	require.NoError(t, err)
	require.NoError(t, service.AddRefreshToken(ctx, created.ID, "contested"))

	// All rotations present the same token; exactly one may win.
	const rotations = 32
	var successes atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < rotations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := service.ReplaceRefreshToken(ctx, created.ID, "contested", fmt.Sprintf("fresh-%d", i))
			if err == nil {
				successes.Add(1)
				return
			}
			assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load(), "a refresh token rotates exactly once")
}

func TestConcurrentLoginsKeepAllTokens(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	created, err := service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	require.NoError(t, err)

	const logins = 16
	var wg sync.WaitGroup
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, service.AddRefreshToken(ctx, created.ID, fmt.Sprintf("session-%d", i)))
		}(i)
	}
	wg.Wait()

	stored, err := store.GetOneBy(ctx, crudl.Filter{"id": created.ID})
	require.NoError(t, err)
	assert.Len(t, stored.RefreshTokens, logins, "no login may drop another's token")
}

func TestDisabledAccountCannotRotateTokens(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	created, err := service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	require.NoError(t, err)
	require.NoError(t, service.AddRefreshToken(ctx, created.ID, "issued"))

	require.NoError(t, store.Update(ctx, crudl.Filter{"id": created.ID}, crudl.Filter{"enabled": false}))

	err = service.ReplaceRefreshToken(ctx, created.ID, "issued", "fresh")
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	require.NoError(t, service.SeedAdmin(ctx, "first-password"))
	require.NoError(t, service.SeedAdmin(ctx, "second-password"))

	admins, err := store.Find(ctx, crudl.Filter{"username": users.SeedAdminUsername})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, users.RoleAdmin, admins[0].Role)
	assert.True(t, sec.CheckPasswordHash("first-password", admins[0].PasswordHash))
}

func TestRetrieveByHidesDisabledAccounts(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	created, err := service.Handler().Create(ctx, users.User{Username: "kim", PasswordHash: "hunter2-hunter2"})
	require.NoError(t, err)

	caller, err := service.RetrieveBy(ctx, crudl.Filter{"username": "kim"})
	require.NoError(t, err)
	require.NotNil(t, caller)

	require.NoError(t, store.Update(ctx, crudl.Filter{"id": created.ID}, crudl.Filter{"enabled": false}))

	_, err = service.RetrieveBy(ctx, crudl.Filter{"username": "kim"})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}
