// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/crudkit/pkg/pagination"
)

/*
TestParseSort verifies the sort specification grammar: whitespace-separated
tokens, `-` prefix for descending.
*/
func TestParseSort(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		expected pagination.SortBy
	}{
		{"empty", "", pagination.SortBy{}},
		{"whitespace_only", "   \t ", pagination.SortBy{}},
		{"single_ascending", "name", pagination.SortBy{"name": 1}},
		{"single_descending", "-age", pagination.SortBy{"age": -1}},
		{"mixed", "name -age", pagination.SortBy{"name": 1, "age": -1}},
		{"extra_spaces", "  name   -age  createdAt ", pagination.SortBy{"name": 1, "age": -1, "createdAt": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pagination.ParseSort(tt.spec))
		})
	}
}

/*
TestCoerce verifies page/size fallback rules: non-numeric or sub-1 inputs
fall back to the defaults 1 and 10.
*/
func TestCoerce(t *testing.T) {
	tests := []struct {
		name         string
		rawPage      string
		rawSize      string
		expectedPage int
		expectedSize int
	}{
		{"both_valid", "3", "25", 3, 25},
		{"both_empty", "", "", 1, 10},
		{"non_numeric", "abc", "x", 1, 10},
		{"zero_and_negative", "0", "-5", 1, 10},
		{"trimmed", " 2 ", " 15 ", 2, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size := pagination.Coerce(tt.rawPage, tt.rawSize)
			assert.Equal(t, tt.expectedPage, page)
			assert.Equal(t, tt.expectedSize, size)
		})
	}
}

/*
TestNewPaginator verifies the paginator math: pages = ceil(total/size),
next is nil exactly when page >= pages, prev is nil exactly when page <= 1.
*/
func TestNewPaginator(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		total    int
		pages    int
		hasNext  bool
		hasPrev  bool
		next     int
		prev     int
	}{
		{"empty_set", 1, 10, 0, 0, false, false, 0, 0},
		{"single_page", 1, 10, 7, 1, false, false, 0, 0},
		{"first_of_many", 1, 10, 35, 4, true, false, 2, 0},
		{"middle_page", 2, 10, 35, 4, true, true, 3, 1},
		{"last_page", 4, 10, 35, 4, false, true, 0, 3},
		{"exact_fit", 2, 5, 10, 2, false, true, 0, 1},
		{"past_the_end", 9, 10, 35, 4, false, true, 0, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paginator := pagination.NewPaginator(tt.page, tt.size, tt.total)

			assert.Equal(t, tt.page, paginator.Page)
			assert.Equal(t, tt.size, paginator.Size)
			assert.Equal(t, tt.pages, paginator.Pages)
			assert.Equal(t, tt.total, paginator.Total)

			if tt.hasNext {
				require.NotNil(t, paginator.Next)
				assert.Equal(t, tt.next, *paginator.Next)
			} else {
				assert.Nil(t, paginator.Next)
			}

			if tt.hasPrev {
				require.NotNil(t, paginator.Prev)
				assert.Equal(t, tt.prev, *paginator.Prev)
			} else {
				assert.Nil(t, paginator.Prev)
			}
		})
	}
}

/*
TestOffset verifies the LIMIT/OFFSET translation used by SQL-style backends.
*/
func TestOffset(t *testing.T) {
	assert.Equal(t, 0, pagination.Offset(1, 10))
	assert.Equal(t, 10, pagination.Offset(2, 10))
	assert.Equal(t, 40, pagination.Offset(5, 10))
	assert.Equal(t, 0, pagination.Offset(0, 10))
}
