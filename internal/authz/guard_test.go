// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/internal/platform/config"
)

// attrs is a map-backed principal for tests.
type attrs map[string]any

func (a attrs) Attribute(name string) (any, bool) {
	value, ok := a[name]
	return value, ok
}

func newGuard(t *testing.T, defaultPolicy, whenNoUser, rolesProperty string) *Guard {
	t.Helper()
	guard, err := NewGuard(defaultPolicy, whenNoUser, rolesProperty)
	require.NoError(t, err)
	return guard
}

func TestNewGuardValidatesLiterals(t *testing.T) {
	_, err := NewGuard("sometimes", config.WhenNoUserReturnDefault, "")
	assert.True(t, apperr.IsCode(err, apperr.CodeConfig))

	_, err = NewGuard(config.PolicyAllow, "shrug", "")
	assert.True(t, apperr.IsCode(err, apperr.CodeConfig))
}

func TestFreeAccessShortCircuits(t *testing.T) {
	guard := newGuard(t, config.PolicyDeny, config.WhenNoUserThrow, "")

	// Anonymous caller, restrictive defaults: free access still wins.
	assert.NoError(t, guard.Authorize(nil, FreeAccess("health")))
}

func TestFreeAccessInheritsFromParent(t *testing.T) {
	guard := newGuard(t, config.PolicyDeny, config.WhenNoUserDeny, "")

	endpoint := &RolePolicy{Name: "list", Parent: FreeAccess("resource")}
	assert.NoError(t, guard.Authorize(nil, endpoint))
}

func TestAllowListGrantsOnIntersection(t *testing.T) {
	guard := newGuard(t, config.PolicyAllow, config.WhenNoUserReturnDefault, "")
	policy := AllowRoles("admin-only", "admin")

	assert.NoError(t, guard.Authorize(attrs{"role": "admin"}, policy))
	assert.True(t, apperr.IsCode(
		guard.Authorize(attrs{"role": "member"}, policy),
		apperr.CodeForbidden,
	))
}

func TestAllowListFlipsEffectiveDefault(t *testing.T) {
	guard := newGuard(t, config.PolicyAllow, config.WhenNoUserReturnDefault, "")

	// Without a declared allow list the permissive default lets anyone in.
	assert.NoError(t, guard.Authorize(attrs{"role": "member"}, &RolePolicy{Name: "open"}))

	// Declaring an allow list anywhere in the chain turns the same default
	// into deny for non-listed roles.
	endpoint := &RolePolicy{Name: "op", Parent: AllowRoles("resource", "admin")}
	assert.True(t, apperr.IsCode(
		guard.Authorize(attrs{"role": "member"}, endpoint),
		apperr.CodeForbidden,
	))
	assert.NoError(t, guard.Authorize(attrs{"role": "admin"}, endpoint))
}

func TestDenyWinsOverAllow(t *testing.T) {
	guard := newGuard(t, config.PolicyAllow, config.WhenNoUserReturnDefault, "")

	policy := &RolePolicy{
		Name:  "conflicted",
		Allow: []string{"editor"},
		Deny:  []string{"editor"},
	}
	assert.True(t, apperr.IsCode(
		guard.Authorize(attrs{"role": "editor"}, policy),
		apperr.CodeForbidden,
	))
}

func TestDenyUnionAcrossChain(t *testing.T) {
	guard := newGuard(t, config.PolicyAllow, config.WhenNoUserReturnDefault, "")

	endpoint := &RolePolicy{Name: "op", Parent: DenyRoles("resource", "banned")}
	assert.True(t, apperr.IsCode(
		guard.Authorize(attrs{"role": "banned"}, endpoint),
		apperr.CodeForbidden,
	))
	assert.NoError(t, guard.Authorize(attrs{"role": "member"}, endpoint))
}

func TestWhenNoUserBehaviors(t *testing.T) {
	policy := &RolePolicy{Name: "plain"}

	tests := []struct {
		name          string
		defaultPolicy string
		whenNoUser    string
		wantCode      string
	}{
		{"return default allow", config.PolicyAllow, config.WhenNoUserReturnDefault, ""},
		{"return default deny", config.PolicyDeny, config.WhenNoUserReturnDefault, apperr.CodeForbidden},
		{"explicit allow beats deny default", config.PolicyDeny, config.WhenNoUserAllow, ""},
		{"explicit deny beats allow default", config.PolicyAllow, config.WhenNoUserDeny, apperr.CodeForbidden},
		{"throw yields unauthorized", config.PolicyAllow, config.WhenNoUserThrow, apperr.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := newGuard(t, tt.defaultPolicy, tt.whenNoUser, "")

			err := guard.Authorize(nil, policy)
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperr.IsCode(err, tt.wantCode))
			}
		})
	}
}

func TestWhenNoUserUsesGlobalDefaultNotEffective(t *testing.T) {
	guard := newGuard(t, config.PolicyAllow, config.WhenNoUserReturnDefault, "")

	// The allow list flips the effective default for role checks, but the
	// anonymous branch consults the configured global default, which is
	// still allow.
	policy := AllowRoles("admin-only", "admin")
	assert.NoError(t, guard.Authorize(nil, policy))
}

func TestRolesPropertyFallback(t *testing.T) {
	guard := newGuard(t, config.PolicyAllow, config.WhenNoUserReturnDefault, "")
	policy := AllowRoles("admin-only", "admin")

	// `role` and `roles` are both honored without configuration.
	assert.NoError(t, guard.Authorize(attrs{"role": "admin"}, policy))
	assert.NoError(t, guard.Authorize(attrs{"roles": []string{"admin", "member"}}, policy))
}

func TestConfiguredRolesProperty(t *testing.T) {
	guard := newGuard(t, config.PolicyAllow, config.WhenNoUserReturnDefault, "groups")
	policy := AllowRoles("admin-only", "admin")

	assert.NoError(t, guard.Authorize(attrs{"groups": []string{"admin"}}, policy))

	// The configured property missing on the principal is a wiring
	// mistake, not an access decision.
	err := guard.Authorize(attrs{"role": "admin"}, policy)
	assert.True(t, apperr.IsCode(err, apperr.CodeConfig))
}

func TestUnresolvableRolesPropertyFailsLoudly(t *testing.T) {
	guard := newGuard(t, config.PolicyAllow, config.WhenNoUserReturnDefault, "")
	policy := AllowRoles("admin-only", "admin")

	err := guard.Authorize(attrs{"name": "kim"}, policy)
	assert.True(t, apperr.IsCode(err, apperr.CodeConfig))
}

func TestRoleUnionDeduplicates(t *testing.T) {
	child := &RolePolicy{
		Name:   "child",
		Allow:  []string{"admin", "editor"},
		Parent: AllowRoles("parent", "editor", "viewer"),
	}

	assert.Equal(t, []string{"admin", "editor", "viewer"}, child.AllowedRoles())
}
