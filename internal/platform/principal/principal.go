// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package principal defines the minimal identity contract shared by the
// authentication service and the authorization guard.
//
// # Why an interface?
//
// The core must stay agnostic of the host's user model. Anything that can
// expose named attributes (id, username, password hash, role) can act as a
// principal, so both subsystems depend on this one-method contract instead
// of a concrete user struct.
package principal

// Principal is any authenticated (or authenticatable) identity.
type Principal interface {
	// Attribute returns the named attribute value and whether the attribute
	// exists on this principal. Attribute names follow the JSON field names
	// of the underlying model ("id", "username", "role", ...).
	Attribute(name string) (any, bool)
}

// StringAttribute resolves an attribute and coerces it to a string.
// It returns false when the attribute is absent or not a string.
func StringAttribute(p Principal, name string) (string, bool) {
	value, ok := p.Attribute(name)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}
