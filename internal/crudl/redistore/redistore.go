// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redistore is the key-value storage adapter backed by Redis.

# Key Layout

Each resource owns a key prefix:

	<prefix>:record:<id>          JSON document of one record
	<prefix>:ids                  set of all record identifiers
	<prefix>:unique:<field>:<v>   unique index entry, value = owning id

Unique constraints are enforced with SETNX on the index keys: the write
acquires every index entry first and rolls the acquired ones back if any
entry is already owned by another record. Filtering and sorting happen
client-side over the fetched documents, which suits the small-to-medium
collections this adapter is meant for.
*/
package redistore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

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
	return "redistore: duplicate value for " + strings.Join(e.Fields, ", ")
}

// Translate converts the adapter's raw failures into domain errors.
func Translate(err error, message string, _ any, _ []string) error {
	var duplicate *DuplicateError
	if errors.As(err, &duplicate) {
		return apperr.DuplicateEntry(message, duplicate.Fields...)
	}
	return err
}

// Store implements [crudl.Port] over Redis JSON documents.
type Store[T any] struct {
	client *redis.Client
	prefix string
	unique []string
}

// New creates a store bound to a client and a key prefix.
//
// uniqueFields declares the fields enforced as unique across all records
// through SETNX index keys.
func New[T any](client *redis.Client, prefix string, uniqueFields ...string) *Store[T] {
	return &Store[T]{client: client, prefix: prefix, unique: uniqueFields}
}

// # Key Construction

func (s *Store[T]) recordKey(id string) string {
	return s.prefix + ":record:" + id
}

func (s *Store[T]) idsKey() string {
	return s.prefix + ":ids"
}

func (s *Store[T]) uniqueKey(field string, value any) string {
	return fmt.Sprintf("%s:unique:%s:%v", s.prefix, field, value)
}

// # Port Implementation

// GetByID returns the record with the given identifier.
func (s *Store[T]) GetByID(ctx context.Context, id any) (T, error) {
	var zero T

	doc, err := s.loadDocument(ctx, fmt.Sprint(id))
	if err != nil {
		return zero, err
	}
	if doc == nil {
		return zero, apperr.NotFound("Record")
	}

	return crudl.DecodeDocument[T](doc)
}

// GetOneBy returns the first record matching the filter.
func (s *Store[T]) GetOneBy(ctx context.Context, filter crudl.Filter) (T, error) {
	var zero T

	docs, err := s.matchDocuments(ctx, filter)
	if err != nil {
		return zero, err
	}
	if len(docs) == 0 {
		return zero, apperr.NotFound("Record")
	}

	return crudl.DecodeDocument[T](docs[0])
}

// Find returns every record matching the filter.
func (s *Store[T]) Find(ctx context.Context, filter crudl.Filter) ([]T, error) {
	docs, err := s.matchDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	records := make([]T, 0, len(docs))
	for _, doc := range docs {
		record, err := crudl.DecodeDocument[T](doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// FindPaginated returns one page of matching records plus paginator metadata.
func (s *Store[T]) FindPaginated(ctx context.Context, filter crudl.Filter, page, size int, sortBy pagination.SortBy) (*pagination.Result[T], error) {
	docs, err := s.matchDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	crudl.SortDocuments(docs, sortBy)

	total := len(docs)
	offset := pagination.Offset(page, size)

	pageDocs := []crudl.Document{}
	if offset < total {
		end := offset + size
		if end > total {
			end = total
		}
		pageDocs = docs[offset:end]
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
func (s *Store[T]) Put(ctx context.Context, data T) (T, error) {
	var zero T

	doc, err := crudl.EncodeDocument(data)
	if err != nil {
		return zero, err
	}

	id, _ := doc["id"].(string)
	if id == "" {
		id = uuidv7.New()
		doc["id"] = id
	}

	exists, err := s.client.Exists(ctx, s.recordKey(id)).Result()
	if err != nil {
		return zero, fmt.Errorf("redistore: put: %w", err)
	}
	if exists > 0 {
		return zero, &DuplicateError{Fields: []string{"id"}}
	}

	if err := s.claimUniqueEntries(ctx, doc, id); err != nil {
		return zero, err
	}

	if err := s.storeDocument(ctx, id, doc); err != nil {
		return zero, err
	}

	return crudl.DecodeDocument[T](doc)
}

// Update applies a partial document to every record matching the filter.
func (s *Store[T]) Update(ctx context.Context, filter crudl.Filter, patch crudl.Filter) error {
	docs, err := s.matchDocuments(ctx, filter)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		id, _ := doc["id"].(string)

		patched := make(crudl.Document, len(doc)+len(patch))
		for key, value := range doc {
			patched[key] = value
		}
		for key, value := range patch {
			patched[key] = value
		}
		// The identifier is immutable once assigned.
		patched["id"] = id

		if err := s.moveUniqueEntries(ctx, doc, patched, id); err != nil {
			return err
		}

		if err := s.storeDocument(ctx, id, patched); err != nil {
			return err
		}
	}

	return nil
}

// Delete removes the records matching the filter.
// Removing nothing reports not-found, so deletes are not idempotent.
func (s *Store[T]) Delete(ctx context.Context, filter crudl.Filter) error {
	docs, err := s.matchDocuments(ctx, filter)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return apperr.NotFound("Record")
	}

	for _, doc := range docs {
		id, _ := doc["id"].(string)

		pipe := s.client.TxPipeline()
		pipe.Del(ctx, s.recordKey(id))
		pipe.SRem(ctx, s.idsKey(), id)
		for _, field := range s.unique {
			if value, ok := doc[field]; ok && value != nil {
				pipe.Del(ctx, s.uniqueKey(field, value))
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redistore: delete: %w", err)
		}
	}

	return nil
}

// # Internals

// loadDocument fetches one record document; nil means the key is absent.
func (s *Store[T]) loadDocument(ctx context.Context, id string) (crudl.Document, error) {
	raw, err := s.client.Get(ctx, s.recordKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redistore: load record: %w", err)
	}

	doc := crudl.Document{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("redistore: load record: %w", err)
	}
	return doc, nil
}

// storeDocument writes one record document and registers its identifier.
func (s *Store[T]) storeDocument(ctx context.Context, id string, doc crudl.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redistore: store record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(id), raw, 0)
	pipe.SAdd(ctx, s.idsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redistore: store record: %w", err)
	}
	return nil
}

// matchDocuments loads every document satisfying the filter. An id-only
// filter short-circuits to a direct key lookup.
func (s *Store[T]) matchDocuments(ctx context.Context, filter crudl.Filter) ([]crudl.Document, error) {
	if id, ok := filter["id"]; ok && len(filter) == 1 {
		doc, err := s.loadDocument(ctx, fmt.Sprint(id))
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, nil
		}
		return []crudl.Document{doc}, nil
	}

	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redistore: list ids: %w", err)
	}

	docs := make([]crudl.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.loadDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc != nil && doc.Matches(filter) {
			docs = append(docs, doc)
		}
	}

	// Identifier order keeps results deterministic; UUIDv7 ids make that
	// insertion order.
	crudl.SortDocuments(docs, pagination.SortBy{"id": pagination.Ascending})

	return docs, nil
}

// claimUniqueEntries acquires the unique index keys for a new document,
// rolling back already-acquired ones when any field is taken.
func (s *Store[T]) claimUniqueEntries(ctx context.Context, doc crudl.Document, id string) error {
	var acquired []string

	for _, field := range s.unique {
		value, ok := doc[field]
		if !ok || value == nil {
			continue
		}

		key := s.uniqueKey(field, value)
		set, err := s.client.SetNX(ctx, key, id, 0).Result()
		if err != nil {
			s.releaseKeys(ctx, acquired)
			return fmt.Errorf("redistore: claim unique %s: %w", field, err)
		}
		if !set {
			s.releaseKeys(ctx, acquired)
			return &DuplicateError{Fields: []string{field}}
		}
		acquired = append(acquired, key)
	}

	return nil
}

// moveUniqueEntries re-points the unique index keys after a patch changed
// some unique field values.
func (s *Store[T]) moveUniqueEntries(ctx context.Context, before, after crudl.Document, id string) error {
	for _, field := range s.unique {
		oldValue, hadOld := before[field]
		newValue, hasNew := after[field]

		if hadOld && hasNew && crudl.LooseEqual(oldValue, newValue) {
			continue
		}

		if hasNew && newValue != nil {
			key := s.uniqueKey(field, newValue)
			set, err := s.client.SetNX(ctx, key, id, 0).Result()
			if err != nil {
				return fmt.Errorf("redistore: claim unique %s: %w", field, err)
			}
			if !set {
				// The key may already belong to this record under a
				// loosely-equal value; anyone else owning it is a conflict.
				owner, err := s.client.Get(ctx, key).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					return fmt.Errorf("redistore: claim unique %s: %w", field, err)
				}
				if owner != id {
					return &DuplicateError{Fields: []string{field}}
				}
			}
		}

		if hadOld && oldValue != nil {
			s.releaseKeys(ctx, []string{s.uniqueKey(field, oldValue)})
		}
	}

	return nil
}

// releaseKeys best-effort deletes index keys during rollback.
func (s *Store[T]) releaseKeys(ctx context.Context, keys []string) {
	for _, key := range keys {
		_ = s.client.Del(ctx, key).Err()
	}
}
