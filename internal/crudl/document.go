// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package crudl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/taibuivan/crudkit/pkg/pagination"
)

// Document is the generic JSON shape of one stored record, shared by the
// adapters that keep records as documents (memstore, redistore).
//
// Typed values cross into documents through a JSON round-trip, which keeps
// the adapters free of struct reflection and guarantees the field names
// seen by filters are exactly the ones clients send.
type Document map[string]any

// EncodeDocument round-trips a typed value into a [Document].
func EncodeDocument[T any](data T) (Document, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("crudl: encode record: %w", err)
	}

	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("crudl: encode record: %w", err)
	}
	return doc, nil
}

// DecodeDocument round-trips a [Document] back into a typed value.
func DecodeDocument[T any](doc Document) (T, error) {
	var record T

	raw, err := json.Marshal(doc)
	if err != nil {
		return record, fmt.Errorf("crudl: decode record: %w", err)
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return record, fmt.Errorf("crudl: decode record: %w", err)
	}
	return record, nil
}

// Matches reports whether the document satisfies every filter entry.
//
// A slice filter value matches when any of its elements matches, mirroring
// repeated query-string parameters.
func (doc Document) Matches(filter Filter) bool {
	for field, expected := range filter {
		actual, ok := doc[field]
		if !ok {
			return false
		}

		switch candidates := expected.(type) {
		case []string:
			if !anyLooseEqual(actual, stringsToAny(candidates)) {
				return false
			}
		case []any:
			if !anyLooseEqual(actual, candidates) {
				return false
			}
		default:
			if !LooseEqual(actual, expected) {
				return false
			}
		}
	}
	return true
}

// LooseEqual compares two values across the JSON/query-string type gap:
// stored numbers are float64 while filter values arrive as strings.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func anyLooseEqual(actual any, candidates []any) bool {
	for _, candidate := range candidates {
		if LooseEqual(actual, candidate) {
			return true
		}
	}
	return false
}

func stringsToAny(values []string) []any {
	converted := make([]any, len(values))
	for i, value := range values {
		converted[i] = value
	}
	return converted
}

// SortDocuments orders documents by the sort specification. Fields compare
// numerically when both sides are numbers, lexically otherwise. The sort is
// stable so the incoming order breaks ties.
func SortDocuments(docs []Document, sortBy pagination.SortBy) {
	if len(sortBy) == 0 {
		return
	}

	fields := make([]string, 0, len(sortBy))
	for field := range sortBy {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	sort.SliceStable(docs, func(i, j int) bool {
		for _, field := range fields {
			cmp := compareValues(docs[i][field], docs[j][field])
			if cmp == 0 {
				continue
			}
			if sortBy[field] == pagination.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	aNum, aOK := a.(float64)
	bNum, bOK := b.(float64)
	if aOK && bOK {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
