// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package crudl is the generic CRUDL operation factory at the center of
Crudkit.

# Architecture

A [Descriptor] is immutable metadata describing one resource: its names, its
identifier semantics, forbidden operations, transform hooks and role policy.
[NewHandler] binds a descriptor to a [Port] (the storage-agnostic
persistence contract) and returns a [Handler] bundling the CRUDL operation
closures. No types are generated at runtime: the handler is a plain value a
transport layer can call or mount.

Control flow per operation is fixed and never reordered:

	forbidden check -> filter/id input transform -> body input transform
	  -> persistence call -> body output transform

Persistence failures are translated into domain errors exactly once, at this
boundary, by the backend-specific [Translator].
*/
package crudl

import (
	"context"
	"strconv"
	"strings"

	"github.com/taibuivan/crudkit/internal/authz"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
)

// Operation names the five canonical resource operations.
type Operation string

const (
	OpCreate   Operation = "create"
	OpRetrieve Operation = "retrieve"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpList     Operation = "list"
)

// Operations lists every CRUDL operation.
var Operations = []Operation{OpCreate, OpRetrieve, OpUpdate, OpDelete, OpList}

// Filter maps field names to expected values (or backend-understood
// operator expressions). The logical `id` key is translated to the
// backend's native primary key by each [Port].
type Filter map[string]any

// Clone returns a shallow copy, so transforms can mutate without aliasing.
func (f Filter) Clone() Filter {
	clone := make(Filter, len(f))
	for key, value := range f {
		clone[key] = value
	}
	return clone
}

// # Identifier Semantics

// IDKind is the semantic type of a resource identifier.
type IDKind int

const (
	// IDString identifiers pass through route parameters unchanged.
	IDString IDKind = iota
	// IDNumber identifiers are coerced from the route parameter to int.
	IDNumber
	// IDComposite identifiers require a custom Parse function.
	IDComposite
)

// IDSpec declares the identifier semantics of a resource.
type IDSpec struct {
	// Kind selects the built-in parser; IDComposite requires Parse.
	Kind IDKind

	// RouteParam overrides the path parameter name (default "id").
	RouteParam string

	// Parse validates and converts the raw route parameter. When nil, the
	// Kind's built-in parser applies.
	Parse func(raw string) (any, error)
}

// routeParam returns the configured or default path parameter name.
func (spec IDSpec) routeParam() string {
	if spec.RouteParam != "" {
		return spec.RouteParam
	}
	return "id"
}

// parse converts a raw route parameter into the identifier value.
func (spec IDSpec) parse(raw string) (any, error) {
	if spec.Parse != nil {
		return spec.Parse(raw)
	}

	switch spec.Kind {
	case IDNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperr.ValidationError(
				"Identifier must be a number",
				apperr.FieldError{Field: spec.routeParam(), Message: "must be an integer"},
			)
		}
		return n, nil
	case IDComposite:
		return nil, apperr.Config("crudl: composite identifiers require a Parse function")
	default:
		if raw == "" {
			return nil, apperr.ValidationError(
				"Identifier must not be empty",
				apperr.FieldError{Field: spec.routeParam(), Message: "is required"},
			)
		}
		return raw, nil
	}
}

// # Transform Hooks

// FilterTransform mutates a filter in place before it reaches the port.
type FilterTransform func(ctx context.Context, filter Filter, op Operation) error

// IDTransform maps an identifier before it reaches the port.
type IDTransform func(ctx context.Context, id any, op Operation) (any, error)

// BodyTransform mutates a typed body in place before it is persisted.
type BodyTransform[T any] func(ctx context.Context, body *T, op Operation) error

// PatchTransform mutates a partial-update document before it is persisted.
type PatchTransform func(ctx context.Context, patch Filter, op Operation) error

// OutputTransform maps a persisted record before it is returned.
type OutputTransform[T any] func(ctx context.Context, body T, op Operation) (T, error)

// Transforms groups the per-operation hooks of one resource.
//
// Hooks are optional; a nil hook is skipped. They may perform I/O (they
// receive the request context) and they run strictly in the order defined
// by the operation flow.
type Transforms[T any] struct {
	FilterInput FilterTransform
	IDInput     IDTransform
	BodyInput   BodyTransform[T]
	PatchInput  PatchTransform
	BodyOutput  OutputTransform[T]
}

// # Resource Descriptor

// Descriptor is the immutable metadata describing one resource.
type Descriptor[T any] struct {
	// Singular and Plural are the resource names used in routes and
	// error messages ("user" / "users").
	Singular string
	Plural   string

	// ID declares the identifier semantics.
	ID IDSpec

	// Forbid marks operations that must fail with Forbidden.
	Forbid map[Operation]bool

	// Transform holds the per-operation hooks.
	Transform Transforms[T]

	// AuthScheme names the authentication scheme the transport must apply
	// ("bearer"). Empty means the resource declares no scheme.
	AuthScheme string

	// Policy is the role policy guarding this resource; Parent chains to
	// the application-level policy.
	Policy *authz.RolePolicy

	// OperationPolicy optionally overrides the policy per operation; each
	// entry inherits from Policy unless it declares its own Parent.
	OperationPolicy map[Operation]*authz.RolePolicy

	// UniqueFields names the fields under a unique constraint, used to
	// build Duplicate-Entry messages.
	UniqueFields []string

	// DuplicateMessage overrides the generated duplicate-entry message.
	DuplicateMessage string

	// Paginated selects the paginated list route instead of the plain one.
	Paginated bool
}

// forbidden reports whether the operation is disabled for this resource.
func (d *Descriptor[T]) forbidden(op Operation) bool {
	return d.Forbid[op]
}

// duplicateMessage builds the message for Duplicate-Entry errors.
func (d *Descriptor[T]) duplicateMessage() string {
	if d.DuplicateMessage != "" {
		return d.DuplicateMessage
	}
	if len(d.UniqueFields) > 0 {
		return "`" + strings.Join(d.UniqueFields, "` or `") + "` already exists"
	}
	return "Duplicated entry"
}

// PolicyFor resolves the effective role policy for one operation.
func (d *Descriptor[T]) PolicyFor(op Operation) *authz.RolePolicy {
	if policy, ok := d.OperationPolicy[op]; ok && policy != nil {
		if policy.Parent == nil && policy != d.Policy {
			policy.Parent = d.Policy
		}
		return policy
	}
	return d.Policy
}

// capitalize upper-cases the first byte of an ASCII name for messages.
func capitalize(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
