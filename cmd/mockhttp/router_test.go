package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/prompttick/internal/platform/logger"
)

func TestGenerateEchoesPrompt(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(logger.Discard()))
	t.Cleanup(srv.Close)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"prompt", `{"prompt":"héllo"}`, "[MOCK] héllo"},
		{"missing prompt", `{"other":1}`, "[MOCK] "},
		{"not json", `plain text`, "[MOCK] "},
		{"array", `["x"]`, "[MOCK] "},
		{"number", `{"prompt":42}`, "[MOCK] 42"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp, err := http.Post(srv.URL+"/generate", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

			var got generateResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tc.want, got.Data.Text)
			assert.Equal(t, tc.body, got.Echo)
		})
	}
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	router := newRouter(logger.Discard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
