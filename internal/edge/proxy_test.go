package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"norko-pos-edge/internal/cache"
)

// testProxy wires a proxy over an in-memory cache against the given
// upstream URL.
func testProxy(t *testing.T, upstreamURL string) (*Proxy, cache.Cache) {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })

	p, err := NewProxy(Config{
		UpstreamURL: upstreamURL,
		APICache:    cache.NewGeneration(c, "api", "v1"),
		StaticCache: cache.NewGeneration(c, "static", "v1"),
	})
	if err != nil {
		t.Fatalf("NewProxy: %v", err)
	}
	return p, c
}

// deadServer returns a base URL that refuses connections.
func deadServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	return url
}

func TestAPICachedFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1}]`))
	}))
	p, _ := testProxy(t, srv.URL)

	// First request fills the cache from the network.
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("online status = %d, want 200", rec.Code)
	}

	// Upstream gone: the cached body must come back.
	srv.Close()
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("offline status = %d, want 200 from cache", rec.Code)
	}
	if rec.Body.String() != `[{"id":1}]` {
		t.Errorf("offline body = %q", rec.Body.String())
	}
	if rec.Header().Get("X-Served-From") != "cache" {
		t.Error("cached response not marked")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("cached Content-Type = %q", ct)
	}
}

func TestAPIQueryStringsCachedSeparately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.RawQuery))
	}))
	p, _ := testProxy(t, srv.URL)

	for _, q := range []string{"search=a", "search=b"} {
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products?"+q, nil))
		if rec.Body.String() != q {
			t.Fatalf("online body = %q, want %q", rec.Body.String(), q)
		}
	}

	srv.Close()
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products?search=b", nil))
	if rec.Body.String() != "search=b" {
		t.Errorf("cached body = %q, want the matching variant", rec.Body.String())
	}
}

func TestAPIOfflineWithoutCache(t *testing.T) {
	p, _ := testProxy(t, deadServer(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Accept", "application/json")
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Error   string `json:"error"`
		Offline bool   `json:"offline"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("offline response is not JSON: %v", err)
	}
	if body.Error != "offline" || !body.Offline {
		t.Errorf("offline body = %+v", body)
	}
}

func TestNeverCacheNeverServedStale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("login page"))
	}))
	p, c := testProxy(t, srv.URL)

	// A successful pass must leave no trace in the cache.
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("online status = %d, want 200", rec.Code)
	}
	keys, err := c.Keys(context.Background(), "")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("never-cache route left cache entries: %v", keys)
	}

	// Offline: a plain error, not a cached page and not the placeholder.
	srv.Close()
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("Accept", "text/html")
	p.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("offline status = %d, want 503", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "login page") {
		t.Error("stale login page served")
	}
	if strings.Contains(rec.Body.String(), "<html") {
		t.Error("offline placeholder served on a never-cache route")
	}
}

func TestStaticOfflinePlaceholder(t *testing.T) {
	p, _ := testProxy(t, deadServer(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pos", nil)
	req.Header.Set("Accept", "text/html")
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<html") {
		t.Error("HTML navigation did not get the offline page")
	}

	// Non-HTML static requests get a bare error instead.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/static/app.css", nil)
	req.Header.Set("Accept", "text/css")
	p.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("asset status = %d, want 503", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<html") {
		t.Error("offline page served for a non-HTML asset")
	}
}

func TestStaticAssetCachedFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		w.Write([]byte("body{}"))
	}))
	p, _ := testProxy(t, srv.URL)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("online status = %d", rec.Code)
	}

	srv.Close()
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("offline status = %d, want 200 from cache", rec.Code)
	}
	if rec.Body.String() != "body{}" {
		t.Errorf("offline body = %q", rec.Body.String())
	}
}

func TestOversizedResponseStreamedIntact(t *testing.T) {
	big := bytes.Repeat([]byte("x"), maxCachedBody+4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(big)
	}))
	defer srv.Close()
	p, c := testProxy(t, srv.URL)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.Len(); got != len(big) {
		t.Fatalf("client received %d bytes, upstream sent %d", got, len(big))
	}

	// Bodies over the cap never enter the cache.
	keys, err := c.Keys(context.Background(), "")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("oversized response was cached: %v", keys)
	}
}

func TestNonGETPassthrough(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	}))
	defer srv.Close()
	p, c := testProxy(t, srv.URL)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sales", strings.NewReader(`{"total":10}`))
	p.ServeHTTP(rec, req)

	if gotMethod != http.MethodPost {
		t.Errorf("upstream saw method %q", gotMethod)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if rec.Body.String() != `{"total":10}` {
		t.Errorf("body = %q", rec.Body.String())
	}
	keys, _ := c.Keys(context.Background(), "")
	if len(keys) != 0 {
		t.Errorf("POST left cache entries: %v", keys)
	}
}
