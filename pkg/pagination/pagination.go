// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for paginated list
// operations.
//
// # Overview
//
// It standardizes how page-based navigation is requested (page/size/sort
// parameters) and the single normalized result shape every storage backend
// must return, regardless of how the backend paginates natively.
package pagination

import (
	"strconv"
	"strings"
)

const (
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
	// DefaultSize is the number of items per page if not specified.
	DefaultSize = 10
)

// Sort directions produced by [ParseSort].
const (
	Ascending  = 1
	Descending = -1
)

// SortBy maps a field name to its sort direction (1 ascending, -1 descending).
type SortBy map[string]int

// ParseSort converts a sort specification string into a [SortBy] mapping.
//
// # Format
//
// Tokens are separated by whitespace; a leading `-` marks the field as
// descending. An empty specification yields an empty mapping.
//
// Example:
//
//	ParseSort("name -age") // SortBy{"name": 1, "age": -1}
func ParseSort(spec string) SortBy {
	sortBy := SortBy{}

	for _, token := range strings.Fields(spec) {
		if field, isDescending := strings.CutPrefix(token, "-"); isDescending {
			sortBy[field] = Descending
		} else {
			sortBy[token] = Ascending
		}
	}

	return sortBy
}

// Coerce normalizes raw page and size inputs.
//
// Non-numeric or sub-1 values fall back to [DefaultPage] and [DefaultSize]
// respectively, so callers can pass query-string values straight through.
func Coerce(rawPage, rawSize string) (page, size int) {
	page = coerceInt(rawPage, DefaultPage)
	size = coerceInt(rawSize, DefaultSize)
	return page, size
}

// CoerceInts normalizes already-numeric page and size values.
func CoerceInts(rawPage, rawSize int) (page, size int) {
	page, size = rawPage, rawSize
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	return page, size
}

func coerceInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Paginator is the navigation metadata attached to every paginated result.
type Paginator struct {
	Page  int  `json:"page"`
	Size  int  `json:"size"`
	Pages int  `json:"pages"`
	Next  *int `json:"next"`
	Prev  *int `json:"prev"`
	Total int  `json:"total"`
}

// Result is the normalized shape of one page of data.
//
// It is recomputed per query and never cached across requests.
type Result[T any] struct {
	Data      []T       `json:"data"`
	Paginator Paginator `json:"paginator"`
}

// NewPaginator computes the navigation metadata for a page.
//
// # Math
//
//	pages = ceil(total / size)
//	next  = page+1 when page < pages, otherwise null
//	prev  = page-1 when page > 1, otherwise null
func NewPaginator(page, size, total int) Paginator {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}

	paginator := Paginator{
		Page:  page,
		Size:  size,
		Pages: pages,
		Total: total,
	}

	if page < pages {
		next := page + 1
		paginator.Next = &next
	}
	if page > 1 {
		prev := page - 1
		paginator.Prev = &prev
	}

	return paginator
}

// Offset returns the zero-based item offset for a page, useful for backends
// that paginate with LIMIT/OFFSET semantics.
func Offset(page, size int) int {
	if page <= 1 {
		return 0
	}
	return (page - 1) * size
}
