// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pgstore

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
)

// Translate converts PostgreSQL failures into domain errors.
//
// A SQLSTATE 23505 (unique violation) becomes ERR_DUPLICATE_ENTRY. The
// violated fields are recovered from the constraint name when it contains
// one of the resource's declared unique fields; otherwise every declared
// unique field is reported, which is exact for single-constraint resources.
// Every other error passes through unchanged.
func Translate(err error, message string, _ any, uniqueFields []string) error {
	var pgError *pgconn.PgError
	if !errors.As(err, &pgError) {
		return err
	}
	if pgError.Code != pgerrcode.UniqueViolation {
		return err
	}

	violated := fieldsFromConstraint(pgError.ConstraintName, uniqueFields)
	return apperr.DuplicateEntry(message, violated...)
}

// fieldsFromConstraint picks the unique fields named by a constraint like
// "users_username_key". Falls back to the full declared set.
func fieldsFromConstraint(constraint string, uniqueFields []string) []string {
	if constraint == "" {
		return uniqueFields
	}

	var matched []string
	lowered := strings.ToLower(constraint)
	for _, field := range uniqueFields {
		if strings.Contains(lowered, strings.ToLower(field)) {
			matched = append(matched, field)
		}
	}

	if len(matched) == 0 {
		return uniqueFields
	}
	return matched
}
