// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package users is the built-in account resource.

It is deliberately an ordinary generated resource: the same descriptor,
handler and port machinery that serves any host-defined resource also
serves accounts. On top of that the package implements the authentication
directory, backed by whichever storage adapter the deployment selects.
*/
package users

// Role names seeded with the service.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is the account record.
//
// PasswordHash travels under the `password` JSON field because that is the
// attribute the authentication service inspects; the resource's output
// transform blanks it (and the refresh tokens) before any record leaves
// the API.
type User struct {
	ID            string   `json:"id,omitempty"            db:"id"`
	Username      string   `json:"username"                db:"username"`
	PasswordHash  string   `json:"password,omitempty"      db:"password_hash"`
	Role          string   `json:"role,omitempty"          db:"role"`
	Enabled       bool     `json:"enabled"                 db:"enabled"`
	RefreshTokens []string `json:"refreshTokens,omitempty" db:"refresh_tokens"`
}

// Attribute implements [principal.Principal] over the JSON field names.
func (u *User) Attribute(name string) (any, bool) {
	switch name {
	case "id":
		return u.ID, true
	case "username":
		return u.Username, true
	case "password":
		return u.PasswordHash, true
	case "role":
		return u.Role, true
	case "enabled":
		return u.Enabled, true
	case "refreshTokens":
		return u.RefreshTokens, true
	default:
		return nil, false
	}
}
