// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package crudl

import (
	"context"

	"github.com/taibuivan/crudkit/pkg/pagination"
)

// Port is the storage-agnostic persistence contract every backend adapter
// implements.
//
// # Contract
//
//   - The logical `id` filter key is translated to the backend's native
//     primary key before querying; callers never see native keys.
//   - GetByID and GetOneBy return an ERR_NOT_FOUND [apperr.AppError] when
//     nothing matches.
//   - Delete returns ERR_NOT_FOUND when nothing matched, so a second
//     delete of the same id fails.
//   - Put and Update must surface the backend's raw unique-violation
//     signal untouched; translation happens once, at the handler boundary,
//     through the adapter's [Translator].
//
// # Implementations
//
//   - memstore: process-local map, single writer at a time.
//   - pgstore: PostgreSQL via pgx.
//   - redistore: Redis JSON documents.
type Port[T any] interface {
	// GetByID returns the record with the given identifier.
	GetByID(ctx context.Context, id any) (T, error)

	// GetOneBy returns the first record matching the filter.
	GetOneBy(ctx context.Context, filter Filter) (T, error)

	// Find returns every record matching the filter.
	Find(ctx context.Context, filter Filter) ([]T, error)

	// FindPaginated returns one page of matching records plus paginator
	// metadata, using the backend's native pagination.
	FindPaginated(ctx context.Context, filter Filter, page, size int, sort pagination.SortBy) (*pagination.Result[T], error)

	// Put persists a new record and returns it with backend-assigned
	// fields (primary key) populated.
	Put(ctx context.Context, data T) (T, error)

	// Update applies a partial document to every record matching the
	// filter. Updating zero records is not an error.
	Update(ctx context.Context, filter Filter, patch Filter) error

	// Delete removes the records matching the filter.
	Delete(ctx context.Context, filter Filter) error
}

// Translator converts a backend-specific failure into a domain error.
//
// Each adapter package exports its own variant (pattern-matching an error
// code or message specific to that backend), but all variants produce the
// identical ERR_DUPLICATE_ENTRY shape for unique violations and pass every
// other error through unchanged.
type Translator func(err error, message string, data any, uniqueFields []string) error

// PassthroughTranslator performs no conversion. It suits backends without
// unique constraints.
func PassthroughTranslator(err error, _ string, _ any, _ []string) error {
	return err
}
