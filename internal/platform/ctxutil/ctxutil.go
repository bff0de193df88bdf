// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/crudkit/internal/platform/ctxkey"
	"github.com/taibuivan/crudkit/internal/platform/principal"
	"github.com/taibuivan/crudkit/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithClaims returns a new context with the verified token claims attached.
func WithClaims(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyClaims, claims)
}

// GetClaims retrieves the [*sec.AuthClaims] from the [context.Context].
// Returns nil for anonymous requests.
func GetClaims(ctx context.Context) *sec.AuthClaims {
	claims, ok := ctx.Value(ctxkey.KeyClaims).(*sec.AuthClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithPrincipal returns a new context with the resolved principal attached.
func WithPrincipal(ctx context.Context, p principal.Principal) context.Context {
	return context.WithValue(ctx, ctxkey.KeyPrincipal, p)
}

// GetPrincipal retrieves the caller's principal from the context.
// Returns nil for anonymous requests.
func GetPrincipal(ctx context.Context) principal.Principal {
	p, ok := ctx.Value(ctxkey.KeyPrincipal).(principal.Principal)
	if !ok {
		return nil
	}
	return p
}
