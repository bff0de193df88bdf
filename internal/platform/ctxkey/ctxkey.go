// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// It is used to store and retrieve per-request values (principal identity,
// request ID, logger). Using a private, unexported type for keys prevents
// collisions with third-party packages that might also use context for storage.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
//
// # Collision Prevention
//
// Even if another package uses "request_id" as a string key, it will not
// collide with this key type because Go's [context.Context] uses both the
// value AND the type for lookups.
type key string

const (
	// KeyRequestID stores the per-request correlation ID.
	KeyRequestID key = "request_id"

	// KeyLogger stores the request-scoped *slog.Logger.
	KeyLogger key = "logger"

	// KeyClaims stores the verified *sec.AuthClaims of the caller.
	KeyClaims key = "auth_claims"

	// KeyPrincipal stores the resolved principal.Principal of the caller.
	KeyPrincipal key = "auth_principal"
)
