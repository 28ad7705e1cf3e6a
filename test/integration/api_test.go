package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/siteconfig/internal/api"
	"github.com/eugenenazirov/siteconfig/internal/siteconfig"
	"github.com/eugenenazirov/siteconfig/internal/storage"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zaptest.NewLogger(t)
	store := storage.NewMemoryStorage()
	handler := api.NewHandler(siteconfig.NewBuilder(siteconfig.WithLogger(logger)), store)
	return api.NewRouter(handler, logger)
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type snapshot struct {
	Version uint64                `json:"version"`
	Config  siteconfig.SiteConfig `json:"config"`
}

func TestIntegrationFlow(t *testing.T) {
	handler := newRouter(t)
	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	v1 := map[string]any{
		"title":       "Neo Language",
		"description": "A small language for matrices and functions",
		"themeConfig": map[string]any{
			"logo": "./logo.png",
			"nav":  []any{map[string]any{"text": "Home", "link": "/"}},
			"sidebar": []any{
				map[string]any{
					"text":  "Introduction",
					"items": []any{map[string]any{"text": "Get started", "link": "get-started"}},
				},
			},
		},
	}
	payload, _ := json.Marshal(v1)
	rec = performRequest(t, handler, http.MethodPut, "/api/site-config", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from site config replace, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/site-config", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from site config read, got %d", rec.Code)
	}
	var got snapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Version != 1 || got.Config.Theme.Logo != "/logo.png" || got.Config.Theme.Sidebar[0].Items[0].Link != "/get-started" {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	// The consumer can feed the snapshot back as a declaration unchanged.
	payload, _ = json.Marshal(got.Config)
	rec = performRequest(t, handler, http.MethodPost, "/api/site-config/validate", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected snapshot to validate, got %d: %s", rec.Code, rec.Body.String())
	}

	broken := map[string]any{"title": "Neo", "description": "Neo", "themeConfig": map[string]any{
		"sidebar": []any{
			map[string]any{"text": "A", "items": []any{map[string]any{"text": "x", "link": "/x"}}},
			map[string]any{"text": "B", "items": []any{map[string]any{"text": "x", "link": "/x/"}}},
		},
	}}
	payload, _ = json.Marshal(broken)
	rec = performRequest(t, handler, http.MethodPut, "/api/site-config", payload, jsonHeaders)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for duplicate sidebar links, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/site-config", nil, nil)
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected rejected declaration to leave version 1 in place, got %d", got.Version)
	}
}
