// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via narrow interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
)

// AuthClaims represents the payload embedded inside a JWT.
//
// Access tokens carry only `sub` and `exp` (plus the standard issuer and
// issued-at claims); refresh tokens carry `sub` alone and never expire on
// their own because the rotation mechanism bounds their lifetime.
type AuthClaims struct {
	jwt.RegisteredClaims
}

// SubjectID returns the `sub` claim.
func (c *AuthClaims) SubjectID() string { return c.Subject }

// TokenService handles generation and verification of JWT tokens using HS256.
type TokenService struct {
	secret       []byte
	issuer       string
	expiresAfter time.Duration
}

// NewTokenService creates a new TokenService signing with a shared secret.
//
// # Parameters
//   - secret: The HMAC signing secret, must be non-empty.
//   - issuer: The `iss` claim stamped on every token.
//   - expiresAfter: Access token lifetime.
func NewTokenService(secret, issuer string, expiresAfter time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, apperr.Config("JWT secret must not be empty")
	}

	return &TokenService{
		secret:       []byte(secret),
		issuer:       issuer,
		expiresAfter: expiresAfter,
	}, nil
}

// ExpiresAfter returns the configured access token lifetime.
func (service *TokenService) ExpiresAfter() time.Duration {
	return service.expiresAfter
}

// GenerateAccessToken creates a signed access token for a subject.
//
// The returned expiry is the exact timestamp embedded in the `exp` claim.
func (service *TokenService) GenerateAccessToken(subjectID string) (string, time.Time, error) {
	currentTime := time.Now()
	expiresAt := currentTime.Add(service.expiresAfter)

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// GenerateRefreshToken creates a signed refresh token bound only to the subject.
//
// Refresh tokens carry no expiry claim: their validity is bounded by the
// one-time-use rotation applied by the authentication service.
func (service *TokenService) GenerateRefreshToken(subjectID string) (string, error) {
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subjectID,
			Issuer:   service.issuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of a JWT string.
//
// Expired tokens surface as [apperr.TokenExpired]; every other failure is a
// generic [apperr.Unauthorized] so callers cannot probe the verifier.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.TokenExpired()
		}
		return nil, apperr.Unauthorized("Invalid token")
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, apperr.Unauthorized("Invalid token claims")
	}

	return claims, nil
}
