// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pgstore is the relational storage adapter backed by PostgreSQL.

# Architecture

One [Store] serves one table, described by a [Schema] that maps logical
field names (the ones clients send in filters and patches) onto column
names. Every query is generated from that mapping, so a filter can never
smuggle raw SQL: unmapped fields are rejected before a statement is built.

Uniqueness is enforced by the database itself; the adapter surfaces the raw
SQLSTATE 23505 error untouched and [Translate] converts it into the
canonical duplicate-entry shape at the handler boundary.

# Row Mapping

Rows are materialized with pgx's RowToStructByName, so the record type must
carry `db` struct tags matching the schema's column names.
*/
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/crudkit/internal/crudl"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/pkg/pagination"
	"github.com/taibuivan/crudkit/pkg/uuidv7"
)

// Schema describes how one resource maps onto its table.
type Schema struct {
	// Table is the qualified table name ("core.users").
	Table string

	// Columns maps logical field names to column names. The logical `id`
	// key is implicit and resolves to IDColumn.
	Columns map[string]string

	// IDColumn is the primary key column (default "id").
	IDColumn string
}

// idColumn returns the configured or default primary key column.
func (s Schema) idColumn() string {
	if s.IDColumn != "" {
		return s.IDColumn
	}
	return "id"
}

// column resolves a logical field name to its column.
//
// Unknown fields fail with a validation error: filter keys come from query
// strings and must never reach the generated SQL unmapped.
func (s Schema) column(field string) (string, error) {
	if field == "id" {
		return s.idColumn(), nil
	}
	if column, ok := s.Columns[field]; ok {
		return column, nil
	}
	return "", apperr.ValidationError(
		"Unknown field",
		apperr.FieldError{Field: field, Message: "is not a known field"},
	)
}

// selectColumns returns every mapped column in deterministic order, primary
// key first.
func (s Schema) selectColumns() []string {
	fields := make([]string, 0, len(s.Columns))
	for field := range s.Columns {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	columns := []string{s.idColumn()}
	for _, field := range fields {
		if column := s.Columns[field]; column != s.idColumn() {
			columns = append(columns, column)
		}
	}
	return columns
}

// Store implements [crudl.Port] over a PostgreSQL table.
type Store[T any] struct {
	pool   *pgxpool.Pool
	schema Schema
}

// New creates a store bound to a pool and a table schema.
func New[T any](pool *pgxpool.Pool, schema Schema) *Store[T] {
	return &Store[T]{pool: pool, schema: schema}
}

// GetByID returns the record with the given identifier.
func (s *Store[T]) GetByID(ctx context.Context, id any) (T, error) {
	return s.GetOneBy(ctx, crudl.Filter{"id": id})
}

// GetOneBy returns the first record matching the filter.
func (s *Store[T]) GetOneBy(ctx context.Context, filter crudl.Filter) (T, error) {
	var zero T

	where, args, err := s.whereClause(filter, 1)
	if err != nil {
		return zero, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s LIMIT 1`,
		strings.Join(s.schema.selectColumns(), ", "), s.schema.Table, where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return zero, fmt.Errorf("pgstore: get one: %w", err)
	}

	record, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, apperr.NotFound("Record")
		}
		return zero, fmt.Errorf("pgstore: get one: %w", err)
	}

	return record, nil
}

// Find returns every record matching the filter, ordered by primary key.
func (s *Store[T]) Find(ctx context.Context, filter crudl.Filter) ([]T, error) {
	where, args, err := s.whereClause(filter, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s ASC`,
		strings.Join(s.schema.selectColumns(), ", "), s.schema.Table, where, s.schema.idColumn())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: find: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("pgstore: find: %w", err)
	}

	return records, nil
}

// FindPaginated returns one page of matching records plus paginator
// metadata, paginating natively with LIMIT/OFFSET.
func (s *Store[T]) FindPaginated(ctx context.Context, filter crudl.Filter, page, size int, sortBy pagination.SortBy) (*pagination.Result[T], error) {
	where, args, err := s.whereClause(filter, 1)
	if err != nil {
		return nil, err
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, s.schema.Table, where)

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("pgstore: count: %w", err)
	}

	orderBy, err := s.orderByClause(sortBy)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s%s LIMIT %d OFFSET %d`,
		strings.Join(s.schema.selectColumns(), ", "), s.schema.Table, where, orderBy,
		size, pagination.Offset(page, size))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: find paginated: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("pgstore: find paginated: %w", err)
	}

	return &pagination.Result[T]{
		Data:      records,
		Paginator: pagination.NewPaginator(page, size, total),
	}, nil
}

// Put persists a new record, assigning a UUIDv7 primary key when absent.
//
// A unique-constraint violation surfaces as the raw pgconn error for
// [Translate] to convert.
func (s *Store[T]) Put(ctx context.Context, data T) (T, error) {
	var zero T

	doc, err := crudl.EncodeDocument(data)
	if err != nil {
		return zero, err
	}
	if id, _ := doc["id"].(string); id == "" {
		doc["id"] = uuidv7.New()
	}

	fields := make([]string, 0, len(doc))
	for field := range doc {
		if _, err := s.schema.column(field); err == nil {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	columns := make([]string, 0, len(fields))
	placeholders := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, field := range fields {
		column, _ := s.schema.column(field)
		columns = append(columns, column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, doc[field])
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		s.schema.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
		strings.Join(s.schema.selectColumns(), ", "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return zero, err
	}

	record, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		return zero, err
	}

	return record, nil
}

// Update applies a partial document to every record matching the filter.
func (s *Store[T]) Update(ctx context.Context, filter crudl.Filter, patch crudl.Filter) error {
	if len(patch) == 0 {
		return nil
	}

	fields := make([]string, 0, len(patch))
	for field := range patch {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, field := range fields {
		column, err := s.schema.column(field)
		if err != nil {
			return err
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, patch[field])
	}

	where, whereArgs, err := s.whereClause(filter, len(args)+1)
	if err != nil {
		return err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf(`UPDATE %s SET %s%s`,
		s.schema.Table, strings.Join(assignments, ", "), where)

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

// Delete removes the records matching the filter.
// Removing nothing reports not-found, so deletes are not idempotent.
func (s *Store[T]) Delete(ctx context.Context, filter crudl.Filter) error {
	where, args, err := s.whereClause(filter, 1)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s%s`, s.schema.Table, where)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pgstore: delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Record")
	}
	return nil
}

// # Query Generation

// whereClause builds the WHERE clause for a filter. Placeholders start at
// firstArg so the clause can follow SET assignments.
func (s *Store[T]) whereClause(filter crudl.Filter, firstArg int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	conditions := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))

	for _, field := range fields {
		column, err := s.schema.column(field)
		if err != nil {
			return "", nil, err
		}

		placeholder := fmt.Sprintf("$%d", firstArg+len(args))
		switch value := filter[field].(type) {
		case []string:
			conditions = append(conditions, fmt.Sprintf("%s = ANY(%s)", column, placeholder))
			args = append(args, value)
		case []any:
			conditions = append(conditions, fmt.Sprintf("%s = ANY(%s)", column, placeholder))
			args = append(args, value)
		default:
			conditions = append(conditions, fmt.Sprintf("%s = %s", column, placeholder))
			args = append(args, value)
		}
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// orderByClause builds the ORDER BY clause for a sort specification.
// Primary key order is the fallback so pagination stays deterministic.
func (s *Store[T]) orderByClause(sortBy pagination.SortBy) (string, error) {
	if len(sortBy) == 0 {
		return fmt.Sprintf(" ORDER BY %s ASC", s.schema.idColumn()), nil
	}

	fields := make([]string, 0, len(sortBy))
	for field := range sortBy {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		column, err := s.schema.column(field)
		if err != nil {
			return "", err
		}
		direction := "ASC"
		if sortBy[field] == pagination.Descending {
			direction = "DESC"
		}
		terms = append(terms, column+" "+direction)
	}

	return " ORDER BY " + strings.Join(terms, ", "), nil
}
