// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/crudkit/internal/authz"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/internal/platform/ctxutil"
	"github.com/taibuivan/crudkit/internal/platform/principal"
	"github.com/taibuivan/crudkit/internal/platform/respond"
	"github.com/taibuivan/crudkit/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the `authn`
// service implementation, allowing us to easily inject mocks during unit
// testing.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// PrincipalLoader resolves the full principal behind a verified subject ID.
//
// A (nil, nil) return means the subject no longer exists; the request then
// proceeds as anonymous and the role guard's when-no-user behavior decides.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, subjectID string) (principal.Principal, error)
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the JWT via [TokenVerifier].
//  4. Resolve the principal via [PrincipalLoader] (nil loader keeps a
//     claims-only request).
//  5. Inject [*sec.AuthClaims] and the principal into the request context.
func Authenticate(verifier TokenVerifier, loader PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			tokenStr := parts[1]
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx := ctxutil.WithClaims(request.Context(), claims)

			// ── 4. Principal Resolution ───────────────────────────────────────
			if loader != nil {
				caller, err := loader.LoadPrincipal(ctx, claims.SubjectID())
				if err != nil {
					respond.Error(writer, request, err)
					return
				}
				if caller != nil {
					ctx = ctxutil.WithPrincipal(ctx, caller)
				}
			}

			// ── 5. Context Injection ──────────────────────────────────────────
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// Authorize builds the per-route policy enforcement point backed by the
// role [authz.Guard].
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]: it reads the
// principal that Authenticate resolved (nil for anonymous requests) and
// delegates the decision to the guard's policy walk.
func Authorize(guard *authz.Guard) func(policy *authz.RolePolicy) func(http.Handler) http.Handler {
	return func(policy *authz.RolePolicy) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				caller := ctxutil.GetPrincipal(request.Context())

				if err := guard.Authorize(caller, policy); err != nil {
					respond.Error(writer, request, err)
					return
				}

				next.ServeHTTP(writer, request)
			})
		}
	}
}
