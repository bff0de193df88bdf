// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pgstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
)

func TestTranslateUniqueViolation(t *testing.T) {
	raw := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "users_username_key",
	}

	err := Translate(raw, "", nil, []string{"username", "email"})

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeDuplicateEntry, appError.Code)
	assert.Equal(t, []string{"username"}, appError.Duplicated)
	assert.Equal(t, "`username` already exists", appError.Message)
}

func TestTranslateUnknownConstraintReportsAllFields(t *testing.T) {
	raw := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "some_opaque_constraint",
	}

	err := Translate(raw, "", nil, []string{"username"})

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, []string{"username"}, appError.Duplicated)
}

func TestTranslateCustomMessageWins(t *testing.T) {
	raw := &pgconn.PgError{Code: pgerrcode.UniqueViolation}

	err := Translate(raw, "That name is taken", nil, nil)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "That name is taken", appError.Message)
}

func TestTranslateWrappedError(t *testing.T) {
	raw := fmt.Errorf("insert failed: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := Translate(raw, "", nil, []string{"name"})
	assert.True(t, apperr.IsCode(err, apperr.CodeDuplicateEntry))
}

func TestTranslatePassesThroughOtherErrors(t *testing.T) {
	raw := errors.New("connection refused")
	assert.Equal(t, raw, Translate(raw, "", nil, nil))

	foreignKey := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	assert.Equal(t, error(foreignKey), Translate(foreignKey, "", nil, nil))
}
