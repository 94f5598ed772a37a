package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, contextFn ContextFunc) (*Handler, *fakeResolver) {
	t.Helper()
	resolver := newFakeResolver()
	return NewHandler(resolver, contextFn, nil, nil, 5*time.Second), resolver
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandlerPost(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query": "{ hero(id: \"1\") { name } }"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeResponse(t, rec)
	assert.Equal(t, map[string]any{
		"hero": map[string]any{"name": "Luke"},
	}, body["data"])
	assert.NotContains(t, body, "errors")
}

func TestHandlerGet(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	q := url.Values{}
	q.Set("query", `query Hero($id: ID!) { hero(id: $id) { name } }`)
	q.Set("variables", `{"id": "2"}`)
	req := httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeResponse(t, rec)
	assert.Equal(t, map[string]any{
		"hero": map[string]any{"name": "Leia"},
	}, body["data"])
}

func TestHandlerBadRequests(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"malformed body", http.MethodPost, "/graphql", `{not json`, http.StatusBadRequest},
		{"empty query", http.MethodPost, "/graphql", `{"query": ""}`, http.StatusBadRequest},
		{"bad variables", http.MethodGet, "/graphql?query=%7Bheroes%7Bid%7D%7D&variables=%7Bbad", "", http.StatusBadRequest},
		{"unsupported method", http.MethodDelete, "/graphql", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.target, nil)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandlerContextFunc(t *testing.T) {
	type authKey struct{}

	var seen string
	contextFn := func(ctx context.Context, authorization string) context.Context {
		seen = authorization
		return context.WithValue(ctx, authKey{}, authorization)
	}
	h, _ := newTestHandler(t, contextFn)

	req := httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query": "{ heroes { id } }"}`))
	req.Header.Set("Authorization", "Bearer token-123")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer token-123", seen)
}

func TestHandlerExecutionErrorStillOK(t *testing.T) {
	// Field errors are carried in the GraphQL response, not the HTTP status.
	h, _ := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query": "{ secret }"}`))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeResponse(t, rec)
	require.Contains(t, body, "errors")
	errs := body["errors"].([]any)
	first := errs[0].(map[string]any)
	assert.Equal(t, "not authenticated", first["message"])
}
