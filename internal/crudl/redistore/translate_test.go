// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redistore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
)

func TestTranslateDuplicateSignal(t *testing.T) {
	raw := &DuplicateError{Fields: []string{"username"}}

	err := Translate(raw, "", nil, nil)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeDuplicateEntry, appError.Code)
	assert.Equal(t, []string{"username"}, appError.Duplicated)
	assert.Equal(t, "`username` already exists", appError.Message)
}

func TestTranslateCustomMessage(t *testing.T) {
	raw := &DuplicateError{Fields: []string{"username"}}

	err := Translate(raw, "Account name is taken", nil, nil)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "Account name is taken", appError.Message)
}

func TestTranslateWrappedSignal(t *testing.T) {
	raw := fmt.Errorf("put: %w", &DuplicateError{Fields: []string{"id"}})

	err := Translate(raw, "", nil, nil)
	assert.True(t, apperr.IsCode(err, apperr.CodeDuplicateEntry))
}

func TestTranslatePassthrough(t *testing.T) {
	raw := errors.New("connection refused")
	assert.Equal(t, raw, Translate(raw, "", nil, nil))
}
