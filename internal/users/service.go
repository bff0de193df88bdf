// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package users

import (
	"context"
	"log/slog"
	"sync"

	"github.com/taibuivan/crudkit/internal/authz"
	"github.com/taibuivan/crudkit/internal/crudl"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/internal/platform/ctxutil"
	"github.com/taibuivan/crudkit/internal/platform/principal"
	"github.com/taibuivan/crudkit/internal/platform/sec"
	"github.com/taibuivan/crudkit/internal/platform/validate"
)

// SeedAdminUsername is the account created by [Service.SeedAdmin].
const SeedAdminUsername = "admin"

// Service binds the account resource to a storage port and implements the
// authentication directory on top of it.
type Service struct {
	handler    *crudl.Handler[User]
	port       crudl.Port[User]
	saltRounds int

	// tokenMu serializes the refresh-token read-modify-write cycles below.
	// Two rotations presenting the same token must not both read the set
	// before either write lands, or a single-use token is honored twice.
	tokenMu sync.Mutex
}

// NewService constructs the account service over a storage port.
//
// The directory operations bypass the handler and talk to the port
// directly: they are internal writes, not client-facing CRUDL calls, so no
// transform may rewrite them.
func NewService(port crudl.Port[User], translate crudl.Translator, saltRounds int) *Service {
	service := &Service{port: port, saltRounds: saltRounds}
	service.handler = crudl.NewHandler(service.descriptor(), port, translate)
	return service
}

// Handler returns the generated CRUDL handler for mounting.
func (s *Service) Handler() *crudl.Handler[User] {
	return s.handler
}

// descriptor declares the account resource.
//
// Management is restricted to the admin role; passwords are hashed on the
// way in and blanked (together with refresh tokens) on the way out.
func (s *Service) descriptor() crudl.Descriptor[User] {
	return crudl.Descriptor[User]{
		Singular:     "user",
		Plural:       "users",
		AuthScheme:   "bearer",
		Policy:       authz.AllowRoles("users", RoleAdmin),
		UniqueFields: []string{"username"},
		Paginated:    true,
		Transform: crudl.Transforms[User]{
			BodyInput:  s.prepareAccount,
			PatchInput: s.preparePatch,
			BodyOutput: hideSecrets,
		},
	}
}

// prepareAccount validates and hashes an incoming account document.
func (s *Service) prepareAccount(_ context.Context, body *User, op crudl.Operation) error {
	if op == crudl.OpCreate {
		v := &validate.Validator{}
		v.Required("username", body.Username).
			MinLen("username", body.Username, 3).
			MaxLen("username", body.Username, 64).
			Username("username", body.Username).
			Required("password", body.PasswordHash).
			MinLen("password", body.PasswordHash, 8)
		if err := v.Err(); err != nil {
			return err
		}

		if body.Role == "" {
			body.Role = RoleMember
		}
		body.Enabled = true
		body.RefreshTokens = nil
	}

	hash, err := sec.HashPassword(body.PasswordHash, s.saltRounds)
	if err != nil {
		return err
	}
	body.PasswordHash = hash

	return nil
}

// preparePatch hashes a patched password and keeps clients away from the
// token list.
func (s *Service) preparePatch(_ context.Context, patch crudl.Filter, _ crudl.Operation) error {
	delete(patch, "refreshTokens")
	delete(patch, "id")

	raw, ok := patch["password"]
	if !ok {
		return nil
	}

	password, ok := raw.(string)
	if !ok || password == "" {
		return validate.RequiredError("password", "must be a non-empty string")
	}
	if len(password) < 8 {
		return validate.RequiredError("password", "must be at least 8 characters")
	}

	hash, err := sec.HashPassword(password, s.saltRounds)
	if err != nil {
		return err
	}
	patch["password"] = hash

	return nil
}

// hideSecrets blanks the credential material before a record leaves the API.
func hideSecrets(_ context.Context, body User, _ crudl.Operation) (User, error) {
	body.PasswordHash = ""
	body.RefreshTokens = nil
	return body, nil
}

// # Authentication Directory

// RetrieveBy returns the account matching the filter as a principal.
//
// Disabled accounts are reported as absent so they can neither log in nor
// act on existing tokens, while remaining manageable through the resource
// API.
func (s *Service) RetrieveBy(ctx context.Context, filter crudl.Filter) (principal.Principal, error) {
	user, err := s.port.GetOneBy(ctx, filter)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, apperr.NotFound("User")
	}
	return &user, nil
}

// AddRefreshToken records a newly issued refresh token for an account.
//
// It holds tokenMu across the read and write so a concurrent login or
// rotation cannot drop the token it appends.
func (s *Service) AddRefreshToken(ctx context.Context, subjectID, token string) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	user, err := s.port.GetOneBy(ctx, crudl.Filter{"id": subjectID})
	if err != nil {
		return err
	}

	tokens := append(user.RefreshTokens, token)
	return s.port.Update(ctx, crudl.Filter{"id": subjectID}, crudl.Filter{"refreshTokens": tokens})
}

// ReplaceRefreshToken consumes oldToken and records newToken as one
// serialized step.
//
// An oldToken that is not among the account's active tokens fails with
// ERR_UNAUTHORIZED, which makes every refresh token single-use: the first
// rotation removes it inside the tokenMu critical section, so of any number
// of concurrent presentations exactly one can succeed. Disabled accounts
// cannot rotate at all.
func (s *Service) ReplaceRefreshToken(ctx context.Context, subjectID, oldToken, newToken string) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	user, err := s.port.GetOneBy(ctx, crudl.Filter{"id": subjectID})
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return apperr.Unauthorized("Invalid refresh token")
		}
		return err
	}
	if !user.Enabled {
		return apperr.Unauthorized("Invalid refresh token")
	}

	replaced := false
	tokens := make([]string, 0, len(user.RefreshTokens))
	for _, token := range user.RefreshTokens {
		if token == oldToken && !replaced {
			tokens = append(tokens, newToken)
			replaced = true
			continue
		}
		tokens = append(tokens, token)
	}

	if !replaced {
		return apperr.Unauthorized("Invalid refresh token")
	}

	return s.port.Update(ctx, crudl.Filter{"id": subjectID}, crudl.Filter{"refreshTokens": tokens})
}

// # Bootstrap

// SeedAdmin ensures the initial admin account exists.
//
// password may be empty, in which case the account falls back to the
// username itself; deployments must override that through
// SEED_ADMIN_PASSWORD before facing any network.
func (s *Service) SeedAdmin(ctx context.Context, password string) error {
	_, err := s.port.GetOneBy(ctx, crudl.Filter{"username": SeedAdminUsername})
	if err == nil {
		return nil
	}
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		return err
	}

	if password == "" {
		password = SeedAdminUsername
		ctxutil.GetLogger(ctx).Warn("seeding admin with default password",
			slog.String("username", SeedAdminUsername))
	}

	hash, err := sec.HashPassword(password, s.saltRounds)
	if err != nil {
		return err
	}

	_, err = s.port.Put(ctx, User{
		Username:     SeedAdminUsername,
		PasswordHash: hash,
		Role:         RoleAdmin,
		Enabled:      true,
	})
	return err
}
