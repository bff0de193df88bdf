// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authz implements role-based access control over statically declared
policies.

# Architecture

A [RolePolicy] is plain data attached to a handler descriptor. Policies form
a chain through the Parent reference (endpoint -> resource -> application),
and the [Guard] resolves an access decision by walking that chain: role
lists are unioned across the hierarchy, they never override each other.
This replaces runtime class introspection with an explicit data walk.
*/
package authz

// RolePolicy declares who may reach one handler.
//
// A zero-value policy declares nothing: the guard then falls back to its
// globally configured default.
type RolePolicy struct {
	// Name identifies the policy in error messages and logs.
	Name string

	// Allow lists the roles granted access. Declaring a non-empty allow
	// list anywhere in the chain flips the effective default for the
	// endpoint to deny.
	Allow []string

	// Deny lists the roles refused access. Deny always wins over Allow.
	Deny []string

	// FreeAccess short-circuits the evaluation: the endpoint is reachable
	// by anyone, authenticated or not.
	FreeAccess bool

	// Parent points to the enclosing policy (resource or application
	// level). Declarations are inherited down the chain.
	Parent *RolePolicy
}

// chain returns the policy followed by all its ancestors, nearest first.
func (p *RolePolicy) chain() []*RolePolicy {
	var policies []*RolePolicy
	for current := p; current != nil; current = current.Parent {
		policies = append(policies, current)
	}
	return policies
}

// HasFreeAccess reports whether the policy or any ancestor grants free access.
func (p *RolePolicy) HasFreeAccess() bool {
	if p == nil {
		return false
	}
	for _, policy := range p.chain() {
		if policy.FreeAccess {
			return true
		}
	}
	return false
}

// AllowedRoles returns the union of allow lists across the chain.
func (p *RolePolicy) AllowedRoles() []string {
	return p.unionRoles(func(policy *RolePolicy) []string { return policy.Allow })
}

// DeniedRoles returns the union of deny lists across the chain.
func (p *RolePolicy) DeniedRoles() []string {
	return p.unionRoles(func(policy *RolePolicy) []string { return policy.Deny })
}

// unionRoles collects roles across the chain, deduplicated, order preserved.
func (p *RolePolicy) unionRoles(pick func(*RolePolicy) []string) []string {
	if p == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var roles []string

	for _, policy := range p.chain() {
		for _, role := range pick(policy) {
			if _, duplicate := seen[role]; duplicate {
				continue
			}
			seen[role] = struct{}{}
			roles = append(roles, role)
		}
	}

	return roles
}

// FreeAccess builds a policy that opens its subtree to everyone.
func FreeAccess(name string) *RolePolicy {
	return &RolePolicy{Name: name, FreeAccess: true}
}

// AllowRoles builds a policy granting access to the given roles.
func AllowRoles(name string, roles ...string) *RolePolicy {
	return &RolePolicy{Name: name, Allow: roles}
}

// DenyRoles builds a policy refusing access to the given roles.
func DenyRoles(name string, roles ...string) *RolePolicy {
	return &RolePolicy{Name: name, Deny: roles}
}
