// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/internal/platform/ctxutil"
	"github.com/taibuivan/crudkit/internal/platform/sec"
	"github.com/taibuivan/crudkit/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Claims extracts the verified token claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetClaims(request.Context())
}

/*
RequiredClaims ensures the request is authenticated and returns the token claims.

Returns:
  - *sec.AuthClaims: The verified token claims
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredClaims(request *http.Request) (*sec.AuthClaims, error) {

	// Get token claims
	claims := ctxutil.GetClaims(request.Context())

	// If the request is not authenticated, return an error
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return claims, nil
}

/*
RequiredSubjectID returns the subject identifier of the currently logged-in user.

Returns:
  - string: Subject identifier (the user's id)
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredSubjectID(request *http.Request) (string, error) {

	// Get token claims
	claims, err := RequiredClaims(request)

	// If the request is not authenticated, return an error
	if err != nil {
		return "", err
	}

	return claims.SubjectID(), nil
}
