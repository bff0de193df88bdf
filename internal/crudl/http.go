// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package crudl

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/crudkit/internal/authz"
	requestutil "github.com/taibuivan/crudkit/internal/platform/request"
	"github.com/taibuivan/crudkit/internal/platform/respond"
	"github.com/taibuivan/crudkit/pkg/pagination"
)

// Query parameters reserved by the paginated list route; everything else in
// the query string is treated as a filter field.
const (
	queryParamPage = "page"
	queryParamSize = "size"
	queryParamSort = "sortBy"
)

// PolicyMiddleware wraps a route with an authorization check for the given
// policy. The api layer provides one backed by the [authz.Guard]; passing
// nil mounts the routes unguarded (useful in tests).
type PolicyMiddleware func(policy *authz.RolePolicy) func(http.Handler) http.Handler

// Routes generates the HTTP surface of the resource:
//
//	POST   /       201 created record
//	GET    /       200 list (paginated when the descriptor says so)
//	GET    /{id}   200, 404
//	PATCH  /{id}   200, 404
//	DELETE /{id}   204, 403 when forbidden, 404
//
// Every route is wrapped with the operation's resolved role policy. A
// descriptor declaring an auth scheme additionally rejects anonymous
// requests before the policy runs.
func (h *Handler[T]) Routes(enforce PolicyMiddleware) chi.Router {
	router := chi.NewRouter()
	idParam := "{" + h.desc.ID.routeParam() + "}"

	guard := func(op Operation, handlerFunc http.HandlerFunc) http.Handler {
		var handler http.Handler = handlerFunc
		if enforce != nil {
			handler = enforce(h.desc.PolicyFor(op))(handler)
		}
		if h.desc.AuthScheme != "" {
			handler = requireAuthenticated(handler)
		}
		return handler
	}

	router.Method(http.MethodPost, "/", guard(OpCreate, h.httpCreate))
	router.Method(http.MethodGet, "/", guard(OpList, h.httpList))
	router.Method(http.MethodGet, "/"+idParam, guard(OpRetrieve, h.httpRetrieve))
	router.Method(http.MethodPatch, "/"+idParam, guard(OpUpdate, h.httpUpdate))
	router.Method(http.MethodDelete, "/"+idParam, guard(OpDelete, h.httpDelete))

	return router
}

// requireAuthenticated rejects requests that carry no verified claims.
func requireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if _, err := requestutil.RequiredClaims(request); err != nil {
			respond.Error(writer, request, err)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// httpCreate handles POST /.
func (h *Handler[T]) httpCreate(writer http.ResponseWriter, request *http.Request) {
	var body T
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := h.Create(request.Context(), body)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

// httpList handles GET /, plain or paginated per the descriptor.
func (h *Handler[T]) httpList(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	filter := Filter{}

	for key, values := range query {
		switch key {
		case queryParamPage, queryParamSize, queryParamSort:
			continue
		}
		if len(values) == 1 {
			filter[key] = values[0]
		} else {
			filter[key] = values
		}
	}

	if !h.desc.Paginated {
		records, err := h.List(request.Context(), filter)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.OK(writer, records)
		return
	}

	page, size := pagination.Coerce(query.Get(queryParamPage), query.Get(queryParamSize))
	result, err := h.PaginatedList(request.Context(), filter, page, size, query.Get(queryParamSort))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, result.Data, result.Paginator)
}

// httpRetrieve handles GET /{id}.
func (h *Handler[T]) httpRetrieve(writer http.ResponseWriter, request *http.Request) {
	id, err := h.routeID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := h.Retrieve(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

// httpUpdate handles PATCH /{id}.
func (h *Handler[T]) httpUpdate(writer http.ResponseWriter, request *http.Request) {
	id, err := h.routeID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	patch := Filter{}
	if err := requestutil.DecodeJSON(request, &patch); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := h.Update(request.Context(), id, patch)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

// httpDelete handles DELETE /{id}.
func (h *Handler[T]) httpDelete(writer http.ResponseWriter, request *http.Request) {
	id, err := h.routeID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := h.Delete(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// routeID extracts and validates the identifier path parameter.
func (h *Handler[T]) routeID(request *http.Request) (any, error) {
	raw := requestutil.Param(request, h.desc.ID.routeParam())
	return h.desc.ID.parse(raw)
}
