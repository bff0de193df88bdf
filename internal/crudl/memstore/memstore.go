// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package memstore is the process-local storage adapter.

# Architecture

Records are held as JSON documents in a plain map guarded by a mutex, so
exactly one writer mutates the map at a time and reads see a consistent
snapshot. The adapter is the reference implementation of the persistence
port: it backs unit tests and the default zero-dependency deployment.
*/
package memstore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/taibuivan/crudkit/internal/crudl"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/pkg/pagination"
	"github.com/taibuivan/crudkit/pkg/uuidv7"
)

// DuplicateError is the adapter's raw unique-violation signal.
//
// It crosses the port boundary untouched; [Translate] converts it into the
// canonical duplicate-entry error at the handler boundary.
type DuplicateError struct {
	// Fields lists the unique fields whose values already exist.
	Fields []string
}

func (e *DuplicateError) Error() string {
	return "memstore: duplicate value for " + strings.Join(e.Fields, ", ")
}

// Translate converts the adapter's raw failures into domain errors.
//
// A [*DuplicateError] becomes ERR_DUPLICATE_ENTRY carrying the violated
// fields; everything else passes through unchanged.
func Translate(err error, message string, _ any, _ []string) error {
	var duplicate *DuplicateError
	if errors.As(err, &duplicate) {
		return apperr.DuplicateEntry(message, duplicate.Fields...)
	}
	return err
}

// Store implements [crudl.Port] over a process-local map.
//
// # Concurrency
//
// A single mutex serializes writers; reads take the same lock because every
// read materializes documents back into typed values and must not observe a
// half-applied patch.
type Store[T any] struct {
	mu     sync.Mutex
	docs   map[string]crudl.Document
	order  []string
	unique []string
}

// New creates an empty store.
//
// uniqueFields declares the fields enforced as unique across all records,
// mirroring a relational unique constraint.
func New[T any](uniqueFields ...string) *Store[T] {
	return &Store[T]{
		docs:   make(map[string]crudl.Document),
		unique: uniqueFields,
	}
}

// GetByID returns the record with the given identifier.
func (s *Store[T]) GetByID(ctx context.Context, id any) (T, error) {
	return s.GetOneBy(ctx, crudl.Filter{"id": id})
}

// GetOneBy returns the first record matching the filter.
func (s *Store[T]) GetOneBy(_ context.Context, filter crudl.Filter) (T, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if s.docs[id].Matches(filter) {
			return crudl.DecodeDocument[T](s.docs[id])
		}
	}

	return zero, apperr.NotFound("Record")
}

// Find returns every record matching the filter, in insertion order.
func (s *Store[T]) Find(_ context.Context, filter crudl.Filter) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]T, 0)
	for _, id := range s.order {
		if !s.docs[id].Matches(filter) {
			continue
		}
		record, err := crudl.DecodeDocument[T](s.docs[id])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// FindPaginated returns one page of matching records plus paginator metadata.
func (s *Store[T]) FindPaginated(_ context.Context, filter crudl.Filter, page, size int, sortBy pagination.SortBy) (*pagination.Result[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]crudl.Document, 0)
	for _, id := range s.order {
		if s.docs[id].Matches(filter) {
			matched = append(matched, s.docs[id])
		}
	}

	crudl.SortDocuments(matched, sortBy)

	total := len(matched)
	offset := pagination.Offset(page, size)

	pageDocs := []crudl.Document{}
	if offset < total {
		end := offset + size
		if end > total {
			end = total
		}
		pageDocs = matched[offset:end]
	}

	records := make([]T, 0, len(pageDocs))
	for _, doc := range pageDocs {
		record, err := crudl.DecodeDocument[T](doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return &pagination.Result[T]{
		Data:      records,
		Paginator: pagination.NewPaginator(page, size, total),
	}, nil
}

// Put persists a new record, assigning a UUIDv7 identifier when absent.
func (s *Store[T]) Put(_ context.Context, data T) (T, error) {
	var zero T

	doc, err := crudl.EncodeDocument(data)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := doc["id"].(string)
	if id == "" {
		id = uuidv7.New()
		doc["id"] = id
	}

	if _, exists := s.docs[id]; exists {
		return zero, &DuplicateError{Fields: []string{"id"}}
	}

	if violated := s.uniqueViolations(doc, id); len(violated) > 0 {
		return zero, &DuplicateError{Fields: violated}
	}

	s.docs[id] = doc
	s.order = append(s.order, id)

	return crudl.DecodeDocument[T](doc)
}

// Update applies a partial document to every record matching the filter.
func (s *Store[T]) Update(_ context.Context, filter crudl.Filter, patch crudl.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		doc := s.docs[id]
		if !doc.Matches(filter) {
			continue
		}

		patched := make(crudl.Document, len(doc)+len(patch))
		for key, value := range doc {
			patched[key] = value
		}
		for key, value := range patch {
			patched[key] = value
		}
		// The identifier is immutable once assigned.
		patched["id"] = doc["id"]

		if violated := s.uniqueViolations(patched, id); len(violated) > 0 {
			return &DuplicateError{Fields: violated}
		}

		s.docs[id] = patched
	}

	return nil
}

// Delete removes the records matching the filter.
// Removing nothing reports not-found, so deletes are not idempotent.
func (s *Store[T]) Delete(_ context.Context, filter crudl.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.order[:0]
	deleted := false

	for _, id := range s.order {
		if s.docs[id].Matches(filter) {
			delete(s.docs, id)
			deleted = true
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining

	if !deleted {
		return apperr.NotFound("Record")
	}
	return nil
}

// uniqueViolations reports which unique fields of doc collide with another
// stored record. selfID excludes the record being written.
func (s *Store[T]) uniqueViolations(doc crudl.Document, selfID string) []string {
	var violated []string

	for _, field := range s.unique {
		value, ok := doc[field]
		if !ok || value == nil {
			continue
		}
		for id, other := range s.docs {
			if id == selfID {
				continue
			}
			if crudl.LooseEqual(other[field], value) {
				violated = append(violated, field)
				break
			}
		}
	}

	return violated
}
