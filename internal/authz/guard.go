// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authz

import (
	"fmt"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/internal/platform/config"
	"github.com/taibuivan/crudkit/internal/platform/principal"
)

// Role property names tried when none is configured.
const (
	conventionalRoleProperty  = "role"
	conventionalRolesProperty = "roles"
)

// Guard evaluates [RolePolicy] chains against the requesting principal.
//
// # Decision Order
//
//  1. Free access anywhere in the chain allows immediately.
//  2. Allow and deny lists are unioned across the chain.
//  3. Without a principal, the configured when-no-user behavior applies.
//  4. A role present in the deny union denies, even if also allowed.
//  5. A non-empty allow union grants only on intersection; its mere
//     presence flips the effective default to deny.
//  6. Otherwise the globally configured default policy decides.
type Guard struct {
	defaultPolicy string
	whenNoUser    string
	rolesProperty string
}

// NewGuard constructs a [Guard], validating the policy literals.
//
// rolesProperty may be empty: the guard then guesses between the
// conventional `role` and `roles` attributes per principal.
func NewGuard(defaultPolicy, whenNoUser, rolesProperty string) (*Guard, error) {
	if defaultPolicy != config.PolicyAllow && defaultPolicy != config.PolicyDeny {
		return nil, apperr.Config(fmt.Sprintf(
			"authz: `defaultPolicy` must be `%s` or `%s`, but got %q",
			config.PolicyAllow, config.PolicyDeny, defaultPolicy,
		))
	}

	switch whenNoUser {
	case config.WhenNoUserReturnDefault, config.WhenNoUserAllow,
		config.WhenNoUserDeny, config.WhenNoUserThrow:
	default:
		return nil, apperr.Config(fmt.Sprintf(
			"authz: `whenNoUser` must be `%s`, `%s`, `%s` or `%s`, but got %q",
			config.WhenNoUserReturnDefault, config.WhenNoUserAllow,
			config.WhenNoUserDeny, config.WhenNoUserThrow, whenNoUser,
		))
	}

	return &Guard{
		defaultPolicy: defaultPolicy,
		whenNoUser:    whenNoUser,
		rolesProperty: rolesProperty,
	}, nil
}

// Authorize decides whether the principal may invoke the endpoint guarded
// by the given policy. A nil principal means an anonymous call; a nil
// policy means the endpoint declares nothing and inherits the defaults.
//
// Returns nil on allow, [apperr.Forbidden] or [apperr.Unauthorized] on
// deny, and [apperr.Config] when the role attribute cannot be resolved.
func (guard *Guard) Authorize(caller principal.Principal, policy *RolePolicy) error {
	if policy.HasFreeAccess() {
		return nil
	}

	allowedRoles := policy.AllowedRoles()
	hasAllowList := len(allowedRoles) > 0

	// An explicit allow list flips the effective default for this call.
	effectiveDefault := !hasAllowList && guard.defaultPolicy == config.PolicyAllow

	if caller == nil {
		return guard.whenNoUserDecision()
	}

	callerRoles, err := guard.principalRoles(caller)
	if err != nil {
		return err
	}

	if intersects(policy.DeniedRoles(), callerRoles) {
		return apperr.Forbidden("Access denied by role policy")
	}

	if hasAllowList && intersects(allowedRoles, callerRoles) {
		return nil
	}

	if effectiveDefault {
		return nil
	}
	return apperr.Forbidden("Access denied by role policy")
}

// whenNoUserDecision applies the configured behavior for anonymous calls.
func (guard *Guard) whenNoUserDecision() error {
	switch guard.whenNoUser {
	case config.WhenNoUserAllow:
		return nil
	case config.WhenNoUserDeny:
		return apperr.Forbidden("Authentication required")
	case config.WhenNoUserThrow:
		return apperr.Unauthorized("No authenticated user")
	default: // return-default-policy
		if guard.defaultPolicy == config.PolicyAllow {
			return nil
		}
		return apperr.Forbidden("Authentication required")
	}
}

// principalRoles resolves the caller's role set.
//
// The property name comes from configuration; without one, the
// conventional `role` then `roles` attributes are tried. An unresolvable
// property is a configuration error and fails loudly: silently denying
// would mask a wiring mistake as a security decision.
func (guard *Guard) principalRoles(caller principal.Principal) ([]string, error) {
	property := guard.rolesProperty

	if property == "" {
		if _, ok := caller.Attribute(conventionalRoleProperty); ok {
			property = conventionalRoleProperty
		} else if _, ok := caller.Attribute(conventionalRolesProperty); ok {
			property = conventionalRolesProperty
		} else {
			return nil, apperr.Config("authz: roles property not found on principal")
		}
	}

	value, ok := caller.Attribute(property)
	if !ok {
		return nil, apperr.Config(fmt.Sprintf(
			"authz: configured roles property %q not found on principal", property,
		))
	}

	return rolesFromValue(value), nil
}

// rolesFromValue normalizes a single role or a role list into a slice.
func rolesFromValue(value any) []string {
	switch typed := value.(type) {
	case string:
		return []string{typed}
	case []string:
		return typed
	case []any:
		roles := make([]string, 0, len(typed))
		for _, item := range typed {
			if role, ok := item.(string); ok {
				roles = append(roles, role)
			}
		}
		return roles
	default:
		return nil
	}
}

// intersects reports whether the two role sets share at least one element.
func intersects(declared, held []string) bool {
	if len(declared) == 0 || len(held) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(declared))
	for _, role := range declared {
		set[role] = struct{}{}
	}
	for _, role := range held {
		if _, ok := set[role]; ok {
			return true
		}
	}
	return false
}
