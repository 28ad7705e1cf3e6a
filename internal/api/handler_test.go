package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/siteconfig/internal/siteconfig"
	"github.com/eugenenazirov/siteconfig/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *controllableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupTestRouter(t *testing.T, handlerOpts ...HandlerOption) (http.Handler, *storage.MemoryStorage, *controllableClock) {
	t.Helper()

	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	store := storage.NewMemoryStorage(storage.WithClock(clock.Now))

	opts := append([]HandlerOption{WithClock(clock.Now)}, handlerOpts...)
	handler := NewHandler(siteconfig.NewBuilder(), store, opts...)
	logger := zaptest.NewLogger(t)
	router := NewRouter(handler, logger, WithLogging(false), WithRateLimit(0, 0))

	return router, store, clock
}

func declaration() map[string]any {
	return map[string]any{
		"title":       "Neo Language",
		"description": "A small language for matrices and functions",
		"themeConfig": map[string]any{
			"nav": []any{
				map[string]any{"text": "Home", "link": "/"},
				map[string]any{"text": "Editor", "link": "editor"},
			},
			"sidebar": []any{
				map[string]any{
					"text": "Introduction",
					"items": []any{
						map[string]any{"text": "Get started", "link": "/get-started"},
					},
				},
			},
			"footer": map[string]any{"message": "Released under the MIT License."},
		},
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) snapshotResponse {
	t.Helper()
	var body snapshotResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	if got := requestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, _, clock := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
	if body.ConfigVersion != 0 {
		t.Fatalf("expected no config version before the first swap, got %d", body.ConfigVersion)
	}
}

func TestGetConfigBeforeLoad(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/site-config", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before any configuration is loaded, got %d", rec.Code)
	}
}

func TestPutConfigSwapsSnapshot(t *testing.T) {
	router, store, clock := setupTestRouter(t)
	clock.Advance(time.Hour)

	rec := doJSON(t, router, http.MethodPut, "/api/site-config", declaration())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeSnapshot(t, rec)
	if body.Version != 1 || body.Source != sourceReplace {
		t.Fatalf("unexpected snapshot metadata: version=%d source=%s", body.Version, body.Source)
	}
	if !body.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updatedAt %s, got %s", clock.Now(), body.UpdatedAt)
	}
	if got := body.Config.Theme.Nav[1].Link; got != "/editor" {
		t.Fatalf("expected normalized nav link /editor, got %s", got)
	}

	snap, err := store.Current()
	if err != nil {
		t.Fatalf("expected stored snapshot, got %v", err)
	}
	if snap.Config.Title != "Neo Language" {
		t.Fatalf("expected stored title, got %q", snap.Config.Title)
	}

	getRec := doJSON(t, router, http.MethodGet, "/api/site-config", nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", getRec.Code)
	}
	if got := decodeSnapshot(t, getRec); got.Version != 1 || got.Config.Theme.Footer == nil {
		t.Fatalf("unexpected snapshot from GET: %+v", got)
	}
}

func TestPutConfigReportsFindings(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	raw := declaration()
	delete(raw, "title")
	theme := raw["themeConfig"].(map[string]any)
	theme["sidebar"] = []any{
		map[string]any{"text": "A", "items": []any{map[string]any{"text": "x", "link": "/x"}}},
		map[string]any{"text": "B", "items": []any{map[string]any{"text": "x", "link": "x"}}},
	}
	theme["socialLinks"] = []any{map[string]any{"icon": "github", "link": "github.com/neo"}}

	rec := doJSON(t, router, http.MethodPut, "/api/site-config", raw)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	body := decodeError(t, rec)
	kinds := make(map[string]string)
	for _, f := range body.Findings {
		kinds[f.Kind] = f.Location
	}
	if kinds["missing_field"] != "title" {
		t.Fatalf("expected missing title finding, got %+v", body.Findings)
	}
	if kinds["duplicate_link"] != "/x" {
		t.Fatalf("expected duplicate link finding, got %+v", body.Findings)
	}
	if kinds["invalid_url"] != "themeConfig.socialLinks[0].link" {
		t.Fatalf("expected invalid url finding, got %+v", body.Findings)
	}

	if _, err := store.Current(); err == nil {
		t.Fatalf("expected storage to stay empty after a rejected declaration")
	}
}

func TestPutConfigRejectsInvalidJSON(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/site-config", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestPutConfigRejectsOversizedBody(t *testing.T) {
	router, _, _ := setupTestRouter(t, WithMaxBodyBytes(64))

	rec := doJSON(t, router, http.MethodPut, "/api/site-config", declaration())
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
}

func TestFailedPutKeepsPreviousSnapshot(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	if rec := doJSON(t, router, http.MethodPut, "/api/site-config", declaration()); rec.Code != http.StatusOK {
		t.Fatalf("expected initial put to succeed, got %d", rec.Code)
	}

	raw := declaration()
	raw["description"] = "   "
	if rec := doJSON(t, router, http.MethodPut, "/api/site-config", raw); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	got := decodeSnapshot(t, doJSON(t, router, http.MethodGet, "/api/site-config", nil))
	if got.Version != 1 || got.Config.Description != "A small language for matrices and functions" {
		t.Fatalf("expected the first snapshot to survive, got %+v", got)
	}
}

func TestPatchConfigReconcilesWithCurrent(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	if rec := doJSON(t, router, http.MethodPut, "/api/site-config", declaration()); rec.Code != http.StatusOK {
		t.Fatalf("expected initial put to succeed, got %d", rec.Code)
	}

	next := map[string]any{
		"title":       "Neo",
		"description": "Neo docs",
		"themeConfig": map[string]any{
			"nav": []any{map[string]any{"text": "Docs", "link": "/docs"}},
		},
	}
	rec := doJSON(t, router, http.MethodPatch, "/api/site-config", next)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeSnapshot(t, rec)
	if body.Version != 2 || body.Source != sourceReconcile {
		t.Fatalf("unexpected snapshot metadata: version=%d source=%s", body.Version, body.Source)
	}
	if body.Config.Title != "Neo" {
		t.Fatalf("expected title from next declaration, got %q", body.Config.Title)
	}
	if len(body.Config.Theme.Nav) != 1 || body.Config.Theme.Nav[0].Link != "/docs" {
		t.Fatalf("expected nav replaced as a whole, got %+v", body.Config.Theme.Nav)
	}
	if len(body.Config.Theme.Sidebar) != 1 || body.Config.Theme.Sidebar[0].Text != "Introduction" {
		t.Fatalf("expected sidebar retained from previous snapshot, got %+v", body.Config.Theme.Sidebar)
	}
	if body.Config.Theme.Footer == nil {
		t.Fatalf("expected footer retained from previous snapshot")
	}
}

func TestPatchConfigWithoutCurrentActsAsReplace(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPatch, "/api/site-config", declaration())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if body := decodeSnapshot(t, rec); body.Version != 1 {
		t.Fatalf("expected first version, got %d", body.Version)
	}
}

func TestValidateDoesNotSwap(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	raw := declaration()
	raw["themeConfig"].(map[string]any)["carbonAds"] = map[string]any{"code": "x"}

	rec := doJSON(t, router, http.MethodPost, "/api/site-config/validate", raw)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body validateResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Valid {
		t.Fatalf("expected declaration to be valid")
	}
	if len(body.Warnings) != 1 || body.Warnings[0].Path != "themeConfig.carbonAds" {
		t.Fatalf("expected unknown key warning, got %+v", body.Warnings)
	}
	if _, err := store.Current(); err == nil {
		t.Fatalf("validate must not swap the snapshot")
	}
}

func TestValidateReportsSchemaMismatch(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	raw := declaration()
	raw["themeConfig"].(map[string]any)["nav"] = "Home"

	rec := doJSON(t, router, http.MethodPost, "/api/site-config/validate", raw)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if len(body.Findings) != 1 || body.Findings[0].Kind != "schema_mismatch" || body.Findings[0].Location != "themeConfig.nav" {
		t.Fatalf("unexpected findings: %+v", body.Findings)
	}
}

// slowStorage stretches every read-modify-write so overlapping requests are
// guaranteed to contend for the same base snapshot.
type slowStorage struct {
	*storage.MemoryStorage
	delay time.Duration
}

func (s slowStorage) Update(source string, fn storage.UpdateFunc) (storage.Snapshot, error) {
	return s.MemoryStorage.Update(source, func(current *storage.Snapshot) (siteconfig.SiteConfig, error) {
		time.Sleep(s.delay)
		return fn(current)
	})
}

func TestConcurrentPatchesAreAllApplied(t *testing.T) {
	store := slowStorage{MemoryStorage: storage.NewMemoryStorage(), delay: 50 * time.Millisecond}
	handler := NewHandler(siteconfig.NewBuilder(), store)
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false), WithRateLimit(0, 0))

	if rec := doJSON(t, router, http.MethodPut, "/api/site-config", declaration()); rec.Code != http.StatusOK {
		t.Fatalf("expected initial put to succeed, got %d", rec.Code)
	}

	withLogo := map[string]any{
		"title":       "Neo Language",
		"description": "A small language for matrices and functions",
		"themeConfig": map[string]any{"logo": "./logo.png"},
	}
	withFooter := map[string]any{
		"title":       "Neo Language",
		"description": "A small language for matrices and functions",
		"themeConfig": map[string]any{"footer": map[string]any{"message": "hi"}},
	}

	var wg sync.WaitGroup
	for _, payload := range []map[string]any{withLogo, withFooter} {
		wg.Add(1)
		go func(payload map[string]any) {
			defer wg.Done()
			if rec := doJSON(t, router, http.MethodPatch, "/api/site-config", payload); rec.Code != http.StatusOK {
				t.Errorf("expected patch to succeed, got %d", rec.Code)
			}
		}(payload)
	}
	wg.Wait()

	got := decodeSnapshot(t, doJSON(t, router, http.MethodGet, "/api/site-config", nil))
	if got.Version != 3 {
		t.Fatalf("expected 3 generations, got %d", got.Version)
	}
	if got.Config.Theme.Logo != "/logo.png" {
		t.Fatalf("expected logo update to survive the concurrent patch, got %q", got.Config.Theme.Logo)
	}
	if got.Config.Theme.Footer == nil || got.Config.Theme.Footer.Message != "hi" {
		t.Fatalf("expected footer update to survive the concurrent patch, got %+v", got.Config.Theme.Footer)
	}
	if len(got.Config.Theme.Nav) != 2 {
		t.Fatalf("expected nav retained from the initial declaration, got %+v", got.Config.Theme.Nav)
	}
}
