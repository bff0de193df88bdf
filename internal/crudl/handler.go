// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package crudl

import (
	"context"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/pkg/pagination"
)

// Handler bundles the CRUDL operations of one resource, bound over its
// [Descriptor] and [Port].
//
// # Concurrency
//
// A Handler is stateless and safe for concurrent use; any concurrency comes
// from the host dispatching calls, never from the handler itself.
type Handler[T any] struct {
	desc      Descriptor[T]
	port      Port[T]
	translate Translator
}

// NewHandler binds a descriptor to a port.
//
// translate is the backend-specific [Translator] matching the port; nil
// falls back to [PassthroughTranslator].
func NewHandler[T any](desc Descriptor[T], port Port[T], translate Translator) *Handler[T] {
	if translate == nil {
		translate = PassthroughTranslator
	}
	return &Handler[T]{desc: desc, port: port, translate: translate}
}

// Descriptor returns the resource metadata, for transports that need it.
func (h *Handler[T]) Descriptor() Descriptor[T] { return h.desc }

// # Operations

// Create persists a new record.
//
// Flow: forbidden check, body input transform, Put, duplicate translation,
// body output transform.
func (h *Handler[T]) Create(ctx context.Context, body T) (T, error) {
	var zero T

	if h.desc.forbidden(OpCreate) {
		return zero, apperr.Forbidden("Creating " + h.desc.Singular + " is forbidden")
	}

	if h.desc.Transform.BodyInput != nil {
		if err := h.desc.Transform.BodyInput(ctx, &body, OpCreate); err != nil {
			return zero, err
		}
	}

	created, err := h.port.Put(ctx, body)
	if err != nil {
		return zero, h.translate(err, h.desc.duplicateMessage(), body, h.desc.UniqueFields)
	}

	return h.output(ctx, created, OpCreate)
}

// List returns every record matching the filter.
func (h *Handler[T]) List(ctx context.Context, filter Filter) ([]T, error) {
	if h.desc.forbidden(OpList) {
		return nil, apperr.Forbidden("Listing " + h.desc.Plural + " is forbidden")
	}

	filter, err := h.inputFilter(ctx, filter, OpList)
	if err != nil {
		return nil, err
	}

	records, err := h.port.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	return h.outputAll(ctx, records, OpList)
}

// PaginatedList returns one page of matching records.
//
// page and size are coerced (defaults 1 and 10); sortSpec follows the
// whitespace-separated, `-`-prefixed format of [pagination.ParseSort].
func (h *Handler[T]) PaginatedList(ctx context.Context, filter Filter, page, size int, sortSpec string) (*pagination.Result[T], error) {
	if h.desc.forbidden(OpList) {
		return nil, apperr.Forbidden("Listing " + h.desc.Plural + " is forbidden")
	}

	filter, err := h.inputFilter(ctx, filter, OpList)
	if err != nil {
		return nil, err
	}

	page, size = pagination.CoerceInts(page, size)

	result, err := h.port.FindPaginated(ctx, filter, page, size, pagination.ParseSort(sortSpec))
	if err != nil {
		return nil, err
	}

	result.Data, err = h.outputAll(ctx, result.Data, OpList)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Retrieve returns the record with the given identifier.
func (h *Handler[T]) Retrieve(ctx context.Context, id any) (T, error) {
	var zero T

	if h.desc.forbidden(OpRetrieve) {
		return zero, apperr.Forbidden("Retrieving " + h.desc.Singular + " is forbidden")
	}

	filter, err := h.idFilter(ctx, id, OpRetrieve)
	if err != nil {
		return zero, err
	}

	return h.RetrieveBy(ctx, filter)
}

// RetrieveBy returns the first record matching the filter.
func (h *Handler[T]) RetrieveBy(ctx context.Context, filter Filter) (T, error) {
	var zero T

	record, err := h.port.GetOneBy(ctx, filter)
	if err != nil {
		return zero, h.named(err)
	}

	return h.output(ctx, record, OpRetrieve)
}

// Update applies a partial document to the record with the given
// identifier, then re-reads and returns it.
func (h *Handler[T]) Update(ctx context.Context, id any, patch Filter) (T, error) {
	var zero T

	if h.desc.forbidden(OpUpdate) {
		return zero, apperr.Forbidden("Updating " + h.desc.Singular + " is forbidden")
	}

	filter, err := h.idFilter(ctx, id, OpUpdate)
	if err != nil {
		return zero, err
	}

	return h.updateBy(ctx, filter, patch)
}

// UpdateBy applies a partial document to the records matching the filter.
func (h *Handler[T]) UpdateBy(ctx context.Context, filter Filter, patch Filter) (T, error) {
	var zero T

	if h.desc.forbidden(OpUpdate) {
		return zero, apperr.Forbidden("Updating " + h.desc.Singular + " is forbidden")
	}

	filter, err := h.inputFilter(ctx, filter, OpUpdate)
	if err != nil {
		return zero, err
	}

	return h.updateBy(ctx, filter, patch)
}

// updateBy runs the shared patch transform, update and re-read sequence.
func (h *Handler[T]) updateBy(ctx context.Context, filter Filter, patch Filter) (T, error) {
	var zero T

	if h.desc.Transform.PatchInput != nil {
		if err := h.desc.Transform.PatchInput(ctx, patch, OpUpdate); err != nil {
			return zero, err
		}
	}

	// Existence check first: updating an absent record is Not-Found, and
	// the re-read below must observe the patched state.
	if _, err := h.port.GetOneBy(ctx, filter); err != nil {
		return zero, h.named(err)
	}

	if err := h.port.Update(ctx, filter, patch); err != nil {
		return zero, h.translate(err, h.desc.duplicateMessage(), patch, h.desc.UniqueFields)
	}

	record, err := h.port.GetOneBy(ctx, filter)
	if err != nil {
		return zero, h.named(err)
	}

	return h.output(ctx, record, OpUpdate)
}

// Delete removes the record with the given identifier.
func (h *Handler[T]) Delete(ctx context.Context, id any) error {
	if h.desc.forbidden(OpDelete) {
		return apperr.Forbidden("Deleting " + h.desc.Singular + " is forbidden")
	}

	filter, err := h.idFilter(ctx, id, OpDelete)
	if err != nil {
		return err
	}

	return h.deleteBy(ctx, filter)
}

// DeleteBy removes the records matching the filter.
func (h *Handler[T]) DeleteBy(ctx context.Context, filter Filter) error {
	if h.desc.forbidden(OpDelete) {
		return apperr.Forbidden("Deleting " + h.desc.Singular + " is forbidden")
	}

	filter, err := h.inputFilter(ctx, filter, OpDelete)
	if err != nil {
		return err
	}

	return h.deleteBy(ctx, filter)
}

func (h *Handler[T]) deleteBy(ctx context.Context, filter Filter) error {
	if err := h.port.Delete(ctx, filter); err != nil {
		return h.named(err)
	}
	return nil
}

// # Shared Steps

// idFilter builds the `{id}` filter and runs the filter and id input
// transforms in their fixed order.
func (h *Handler[T]) idFilter(ctx context.Context, id any, op Operation) (Filter, error) {
	filter := Filter{"id": id}

	if h.desc.Transform.FilterInput != nil {
		if err := h.desc.Transform.FilterInput(ctx, filter, op); err != nil {
			return nil, err
		}
	}

	if h.desc.Transform.IDInput != nil {
		transformed, err := h.desc.Transform.IDInput(ctx, filter["id"], op)
		if err != nil {
			return nil, err
		}
		filter["id"] = transformed
	}

	return filter, nil
}

// inputFilter clones the filter and runs the filter input transform.
func (h *Handler[T]) inputFilter(ctx context.Context, filter Filter, op Operation) (Filter, error) {
	if filter == nil {
		filter = Filter{}
	} else {
		filter = filter.Clone()
	}

	if h.desc.Transform.FilterInput != nil {
		if err := h.desc.Transform.FilterInput(ctx, filter, op); err != nil {
			return nil, err
		}
	}

	return filter, nil
}

// output applies the body output transform to a single record, reporting
// the operation that produced it.
func (h *Handler[T]) output(ctx context.Context, record T, op Operation) (T, error) {
	if h.desc.Transform.BodyOutput == nil {
		return record, nil
	}
	return h.desc.Transform.BodyOutput(ctx, record, op)
}

// outputAll applies the body output transform to every record in a list.
func (h *Handler[T]) outputAll(ctx context.Context, records []T, op Operation) ([]T, error) {
	if h.desc.Transform.BodyOutput == nil {
		return records, nil
	}

	transformed := make([]T, 0, len(records))
	for _, record := range records {
		out, err := h.desc.Transform.BodyOutput(ctx, record, op)
		if err != nil {
			return nil, err
		}
		transformed = append(transformed, out)
	}
	return transformed, nil
}

// named rewrites anonymous not-found errors from the port into ones naming
// this resource. Everything else passes through untouched.
func (h *Handler[T]) named(err error) error {
	if apperr.IsCode(err, apperr.CodeNotFound) {
		return apperr.NotFound(capitalize(h.desc.Singular))
	}
	return err
}
