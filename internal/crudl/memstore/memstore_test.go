// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package memstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/crudkit/internal/crudl"
	"github.com/taibuivan/crudkit/internal/platform/apperr"
	"github.com/taibuivan/crudkit/pkg/pagination"
)

type widget struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Size  int    `json:"size,omitempty"`
}

func TestPutAssignsIdentifier(t *testing.T) {
	store := New[widget]()

	created, err := store.Put(context.Background(), widget{Name: "gear"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "gear", created.Name)

	found, err := store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestPutKeepsProvidedIdentifier(t *testing.T) {
	store := New[widget]()

	created, err := store.Put(context.Background(), widget{ID: "w-1", Name: "gear"})
	require.NoError(t, err)
	assert.Equal(t, "w-1", created.ID)

	_, err = store.Put(context.Background(), widget{ID: "w-1", Name: "other"})
	var duplicate *DuplicateError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, []string{"id"}, duplicate.Fields)
}

func TestUniqueFieldViolation(t *testing.T) {
	store := New[widget]("name")

	_, err := store.Put(context.Background(), widget{Name: "gear"})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), widget{Name: "gear"})
	var duplicate *DuplicateError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, []string{"name"}, duplicate.Fields)

	// Translate converts the raw signal into the canonical domain error.
	translated := Translate(err, "", nil, nil)
	appError := apperr.As(translated)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeDuplicateEntry, appError.Code)
	assert.Equal(t, []string{"name"}, appError.Duplicated)
	assert.Equal(t, "`name` already exists", appError.Message)
}

func TestGetOneByFilter(t *testing.T) {
	store := New[widget]()
	ctx := context.Background()

	_, err := store.Put(ctx, widget{Name: "gear", Color: "red"})
	require.NoError(t, err)
	_, err = store.Put(ctx, widget{Name: "bolt", Color: "blue"})
	require.NoError(t, err)

	found, err := store.GetOneBy(ctx, crudl.Filter{"color": "blue"})
	require.NoError(t, err)
	assert.Equal(t, "bolt", found.Name)

	_, err = store.GetOneBy(ctx, crudl.Filter{"color": "green"})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestFindMatchesStringifiedNumbers(t *testing.T) {
	store := New[widget]()
	ctx := context.Background()

	_, err := store.Put(ctx, widget{Name: "gear", Size: 3})
	require.NoError(t, err)

	// Query-string filters arrive as strings; stored numbers are numeric.
	found, err := store.Find(ctx, crudl.Filter{"size": "3"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "gear", found[0].Name)
}

func TestUpdateAppliesPatch(t *testing.T) {
	store := New[widget]("name")
	ctx := context.Background()

	created, err := store.Put(ctx, widget{Name: "gear", Color: "red"})
	require.NoError(t, err)
	_, err = store.Put(ctx, widget{Name: "bolt"})
	require.NoError(t, err)

	err = store.Update(ctx, crudl.Filter{"id": created.ID}, crudl.Filter{"color": "green"})
	require.NoError(t, err)

	found, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "green", found.Color)
	assert.Equal(t, "gear", found.Name)

	// Patching into another record's unique value must fail.
	err = store.Update(ctx, crudl.Filter{"id": created.ID}, crudl.Filter{"name": "bolt"})
	var duplicate *DuplicateError
	require.ErrorAs(t, err, &duplicate)
}

func TestDeleteTwiceReportsNotFound(t *testing.T) {
	store := New[widget]()
	ctx := context.Background()

	created, err := store.Put(ctx, widget{Name: "gear"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, crudl.Filter{"id": created.ID}))

	err = store.Delete(ctx, crudl.Filter{"id": created.ID})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestFindPaginated(t *testing.T) {
	store := New[widget]()
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		_, err := store.Put(ctx, widget{Name: fmt.Sprintf("widget-%02d", i), Size: i})
		require.NoError(t, err)
	}

	result, err := store.FindPaginated(ctx, crudl.Filter{}, 2, 10, pagination.SortBy{"size": pagination.Ascending})
	require.NoError(t, err)

	assert.Len(t, result.Data, 10)
	assert.Equal(t, 11, result.Data[0].Size)
	assert.Equal(t, 2, result.Paginator.Page)
	assert.Equal(t, 3, result.Paginator.Pages)
	assert.Equal(t, 25, result.Paginator.Total)
	require.NotNil(t, result.Paginator.Next)
	assert.Equal(t, 3, *result.Paginator.Next)
	require.NotNil(t, result.Paginator.Prev)
	assert.Equal(t, 1, *result.Paginator.Prev)
}

func TestFindPaginatedDescending(t *testing.T) {
	store := New[widget]()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := store.Put(ctx, widget{Name: fmt.Sprintf("widget-%d", i), Size: i})
		require.NoError(t, err)
	}

	result, err := store.FindPaginated(ctx, crudl.Filter{}, 1, 10, pagination.SortBy{"size": pagination.Descending})
	require.NoError(t, err)

	require.Len(t, result.Data, 5)
	assert.Equal(t, 5, result.Data[0].Size)
	assert.Nil(t, result.Paginator.Next)
	assert.Nil(t, result.Paginator.Prev)
}

func TestFindPaginatedPastTheEnd(t *testing.T) {
	store := New[widget]()
	ctx := context.Background()

	_, err := store.Put(ctx, widget{Name: "gear"})
	require.NoError(t, err)

	result, err := store.FindPaginated(ctx, crudl.Filter{}, 9, 10, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Data)
	assert.Equal(t, 1, result.Paginator.Total)
	assert.Nil(t, result.Paginator.Next)
}
