// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authn

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/crudkit/internal/platform/request"
	"github.com/taibuivan/crudkit/internal/platform/respond"
	"github.com/taibuivan/crudkit/internal/platform/validate"
)

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// Login and refresh only; account management is an ordinary generated
// resource and lives with the users package.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /login         : Authenticates credentials and returns a token pair.
//   - POST /token/refresh : Rotates a refresh token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/token/refresh", handler.refresh)

	return router
}

// loginRequest represents the JSON payload expected for credential login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login handles POST /auth/login requests.
//
// # Returns
//   - Writes HTTP 200 OK with the token pair on success.
//   - Writes HTTP 400 Bad Request if the payload is malformed.
//   - Writes HTTP 401 Unauthorized on any credential failure, without
//     revealing whether the username or the password was wrong.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	if input.Username == "" {
		respond.Error(writer, request, validate.RequiredError("username", "is required"))
		return
	}
	if input.Password == "" {
		respond.Error(writer, request, validate.RequiredError("password", "is required"))
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	pair, err := handler.authService.Login(request.Context(), input.Username, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.OK(writer, pair)
}

// refreshRequest represents the JSON payload expected for token rotation.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refresh handles POST /auth/token/refresh requests.
//
// # Returns
//   - Writes HTTP 200 OK with a fresh token pair on success.
//   - Writes HTTP 401 Unauthorized for unknown or already-used tokens.
//   - Writes HTTP 403 Forbidden when the refresh feature is disabled.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError("refreshToken", "is required"))
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}
