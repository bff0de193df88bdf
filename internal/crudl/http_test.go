// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package crudl_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/crudkit/internal/crudl"
)

func newNoteServer(t *testing.T, desc crudl.Descriptor[note]) *httptest.Server {
	t.Helper()

	handler := newNoteHandler(desc)
	server := httptest.NewServer(handler.Routes(nil))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	request, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	t.Cleanup(func() { _ = response.Body.Close() })

	payload := map[string]any{}
	if response.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(response.Body).Decode(&payload))
	}
	return response, payload
}

func TestResourceLifecycleOverHTTP(t *testing.T) {
	server := newNoteServer(t, crudl.Descriptor[note]{Singular: "note", Plural: "notes"})

	// Create
	response, payload := doJSON(t, http.MethodPost, server.URL+"/", `{"title":"first","body":"text"}`)
	require.Equal(t, http.StatusCreated, response.StatusCode)
	data := payload["data"].(map[string]any)
	id := data["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "first", data["title"])

	// Retrieve
	response, payload = doJSON(t, http.MethodGet, server.URL+"/"+id, "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "first", payload["data"].(map[string]any)["title"])

	// Update
	response, payload = doJSON(t, http.MethodPatch, server.URL+"/"+id, `{"title":"second"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)
	updated := payload["data"].(map[string]any)
	assert.Equal(t, "second", updated["title"])
	assert.Equal(t, "text", updated["body"])

	// Delete
	response, _ = doJSON(t, http.MethodDelete, server.URL+"/"+id, "")
	require.Equal(t, http.StatusNoContent, response.StatusCode)

	// Second delete reports not-found
	response, payload = doJSON(t, http.MethodDelete, server.URL+"/"+id, "")
	require.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "ERR_NOT_FOUND", payload["code"])
	assert.Equal(t, "Note not found", payload["error"])
}

func TestListFiltersFromQueryString(t *testing.T) {
	server := newNoteServer(t, crudl.Descriptor[note]{Singular: "note", Plural: "notes"})

	for _, body := range []string{`{"title":"a","owner":"kim"}`, `{"title":"b","owner":"lee"}`} {
		response, _ := doJSON(t, http.MethodPost, server.URL+"/", body)
		require.Equal(t, http.StatusCreated, response.StatusCode)
	}

	response, payload := doJSON(t, http.MethodGet, server.URL+"/?owner=kim", "")
	require.Equal(t, http.StatusOK, response.StatusCode)

	records := payload["data"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].(map[string]any)["title"])
}

func TestPaginatedListOverHTTP(t *testing.T) {
	server := newNoteServer(t, crudl.Descriptor[note]{
		Singular:  "note",
		Plural:    "notes",
		Paginated: true,
	})

	for _, title := range []string{"c", "a", "b"} {
		response, _ := doJSON(t, http.MethodPost, server.URL+"/", `{"title":"`+title+`"}`)
		require.Equal(t, http.StatusCreated, response.StatusCode)
	}

	response, payload := doJSON(t, http.MethodGet, server.URL+"/?page=1&size=2&sortBy=-title", "")
	require.Equal(t, http.StatusOK, response.StatusCode)

	records := payload["data"].([]any)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].(map[string]any)["title"])

	paginator := payload["paginator"].(map[string]any)
	assert.Equal(t, float64(1), paginator["page"])
	assert.Equal(t, float64(2), paginator["size"])
	assert.Equal(t, float64(2), paginator["pages"])
	assert.Equal(t, float64(3), paginator["total"])
	assert.Equal(t, float64(2), paginator["next"])
	assert.Nil(t, paginator["prev"])
}

func TestForbiddenOperationOverHTTP(t *testing.T) {
	server := newNoteServer(t, crudl.Descriptor[note]{
		Singular: "note",
		Plural:   "notes",
		Forbid:   map[crudl.Operation]bool{crudl.OpDelete: true},
	})

	response, payload := doJSON(t, http.MethodPost, server.URL+"/", `{"title":"sticky"}`)
	require.Equal(t, http.StatusCreated, response.StatusCode)
	id := payload["data"].(map[string]any)["id"].(string)

	response, payload = doJSON(t, http.MethodDelete, server.URL+"/"+id, "")
	require.Equal(t, http.StatusForbidden, response.StatusCode)
	assert.Equal(t, "ERR_FORBIDDEN", payload["code"])
	assert.Equal(t, "Deleting note is forbidden", payload["error"])
}

func TestDuplicateEntryOverHTTP(t *testing.T) {
	server := newNoteServer(t, crudl.Descriptor[note]{
		Singular:     "note",
		Plural:       "notes",
		UniqueFields: []string{"title"},
	})

	response, _ := doJSON(t, http.MethodPost, server.URL+"/", `{"title":"once"}`)
	require.Equal(t, http.StatusCreated, response.StatusCode)

	response, payload := doJSON(t, http.MethodPost, server.URL+"/", `{"title":"once"}`)
	require.Equal(t, http.StatusConflict, response.StatusCode)
	assert.Equal(t, "ERR_DUPLICATE_ENTRY", payload["code"])
	assert.Equal(t, "`title` already exists", payload["error"])
	assert.Equal(t, []any{"title"}, payload["duplicated"])
}

func TestInvalidJSONBody(t *testing.T) {
	server := newNoteServer(t, crudl.Descriptor[note]{Singular: "note", Plural: "notes"})

	response, payload := doJSON(t, http.MethodPost, server.URL+"/", `{"title":`)
	require.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "ERR_VALIDATION_ERROR", payload["code"])
}

func TestAuthSchemeRejectsAnonymousRequests(t *testing.T) {
	server := newNoteServer(t, crudl.Descriptor[note]{
		Singular:   "note",
		Plural:     "notes",
		AuthScheme: "bearer",
	})

	// No Authorization middleware ran, so the request carries no claims.
	response, payload := doJSON(t, http.MethodGet, server.URL+"/", "")
	require.Equal(t, http.StatusUnauthorized, response.StatusCode)
	assert.Equal(t, "ERR_UNAUTHORIZED", payload["code"])
	assert.Equal(t, "Authentication required", payload["error"])
}

func TestNumberIdentifierValidation(t *testing.T) {
	server := newNoteServer(t, crudl.Descriptor[note]{
		Singular: "note",
		Plural:   "notes",
		ID:       crudl.IDSpec{Kind: crudl.IDNumber},
	})

	response, payload := doJSON(t, http.MethodGet, server.URL+"/not-a-number", "")
	require.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "ERR_VALIDATION_ERROR", payload["code"])
}
