package edge

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"norko-pos-edge/internal/cache"
)

// maxCachedBody caps how large a response we are willing to mirror.
const maxCachedBody = 4 << 20

// cachedResponse is the wire form of a mirrored upstream response.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// upstreamResponse is a live response from the upstream. Only the first
// maxCachedBody+1 bytes are buffered so the proxy can tell whether the
// body fits in the cache; anything beyond that streams straight through
// to the client untouched.
type upstreamResponse struct {
	status int
	header http.Header
	prefix []byte
	rest   io.ReadCloser
}

// cacheable reports whether prefix holds the complete body.
func (u *upstreamResponse) cacheable() bool { return len(u.prefix) <= maxCachedBody }

func (u *upstreamResponse) Close() error { return u.rest.Close() }

// Proxy forwards requests to the upstream server and keeps the POS
// usable when the connection drops. GET responses are mirrored into a
// versioned cache and replayed when the network fails; everything else
// passes straight through.
type Proxy struct {
	upstream    *url.URL
	client      *http.Client
	classifier  *Classifier
	apiGen      *cache.Generation
	staticGen   *cache.Generation
	offlinePage []byte
	ttl         time.Duration
}

// Config holds the proxy's dependencies and tuning knobs.
type Config struct {
	UpstreamURL string
	Client      *http.Client
	Classifier  *Classifier
	APICache    *cache.Generation
	StaticCache *cache.Generation
	OfflinePage []byte
	CacheTTL    time.Duration
}

// NewProxy builds the edge proxy. Returns an error only when the
// upstream URL cannot be parsed.
func NewProxy(cfg Config) (*Proxy, error) {
	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	page := cfg.OfflinePage
	if len(page) == 0 {
		page = []byte(defaultOfflinePage)
	}

	return &Proxy{
		upstream:    u,
		client:      client,
		classifier:  classifier,
		apiGen:      cfg.APICache,
		staticGen:   cfg.StaticCache,
		offlinePage: page,
		ttl:         cfg.CacheTTL,
	}, nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		p.passthrough(w, r)
		return
	}

	switch p.classifier.Classify(r.URL.Path) {
	case ClassNeverCache:
		p.passthrough(w, r)
	case ClassAPI:
		p.serveAPI(w, r)
	default:
		p.serveStatic(w, r)
	}
}

// passthrough forwards the request without touching the cache. When the
// upstream is unreachable the caller gets a plain error, never a stale
// or placeholder body.
func (p *Proxy) passthrough(w http.ResponseWriter, r *http.Request) {
	resp, err := p.forward(r)
	if err != nil {
		log.Printf("[EdgeProxy] Passthrough %s %s failed: %v", r.Method, r.URL.Path, err)
		http.Error(w, "upstream unreachable", http.StatusServiceUnavailable)
		return
	}
	defer resp.Close()
	p.writeUpstream(w, resp)
}

// serveAPI is network-first. A fresh 2xx response refreshes the cache;
// on network failure or a server error we replay the cached copy, and
// with nothing cached the client gets a structured offline 503 it can
// recognize.
func (p *Proxy) serveAPI(w http.ResponseWriter, r *http.Request) {
	key := cacheKey(r)

	resp, err := p.forward(r)
	if err == nil {
		defer resp.Close()
	}
	if err == nil && resp.status >= 200 && resp.status < 300 {
		p.store(r.Context(), p.apiGen, key, resp)
		p.writeUpstream(w, resp)
		return
	}
	if err != nil {
		log.Printf("[EdgeProxy] API %s unreachable: %v", r.URL.Path, err)
	}

	if cached, ok := p.load(r.Context(), p.apiGen, key); ok {
		cached.Header.Set("X-Served-From", "cache")
		p.writeResponse(w, cached)
		return
	}

	if err == nil {
		// Upstream answered with an error and we have nothing better.
		p.writeUpstream(w, resp)
		return
	}
	p.writeOfflineJSON(w)
}

// serveStatic is network-first. Only recognizable assets are mirrored;
// HTML navigations with no cached copy fall back to the offline page.
func (p *Proxy) serveStatic(w http.ResponseWriter, r *http.Request) {
	key := cacheKey(r)

	resp, err := p.forward(r)
	if err == nil {
		defer resp.Close()
	}
	if err == nil && resp.status >= 200 && resp.status < 300 {
		if IsStaticAsset(r.URL.Path) || ExpectsHTML(r) {
			p.store(r.Context(), p.staticGen, key, resp)
		}
		p.writeUpstream(w, resp)
		return
	}
	if err != nil {
		log.Printf("[EdgeProxy] Static %s unreachable: %v", r.URL.Path, err)
	}

	if cached, ok := p.load(r.Context(), p.staticGen, key); ok {
		cached.Header.Set("X-Served-From", "cache")
		p.writeResponse(w, cached)
		return
	}

	if err == nil {
		p.writeUpstream(w, resp)
		return
	}
	if ExpectsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write(p.offlinePage)
		return
	}
	http.Error(w, "upstream unreachable", http.StatusServiceUnavailable)
}

// forward replays the request against the upstream. The returned
// response keeps the upstream body open; the caller must Close it.
func (p *Proxy) forward(r *http.Request) (*upstreamResponse, error) {
	target := *r.URL
	target.Scheme = p.upstream.Scheme
	target.Host = p.upstream.Host

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	req.Header.Set("X-Forwarded-For", r.RemoteAddr)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}

	// One byte past the cap tells us the body did not fit without
	// consuming the rest of the stream.
	prefix, err := io.ReadAll(io.LimitReader(resp.Body, maxCachedBody+1))
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	header := make(http.Header)
	copyHeader(header, resp.Header)
	return &upstreamResponse{status: resp.StatusCode, header: header, prefix: prefix, rest: resp.Body}, nil
}

func (p *Proxy) store(ctx context.Context, gen *cache.Generation, key string, resp *upstreamResponse) {
	if gen == nil {
		return
	}
	if !resp.cacheable() {
		log.Printf("[EdgeProxy] Response for %s exceeds cache limit, not mirrored", key)
		return
	}
	data, err := json.Marshal(&cachedResponse{Status: resp.status, Header: resp.header, Body: resp.prefix})
	if err != nil {
		return
	}
	if err := gen.Set(ctx, key, data, p.ttl); err != nil {
		log.Printf("[EdgeProxy] Cache write for %s failed: %v", key, err)
	}
}

func (p *Proxy) load(ctx context.Context, gen *cache.Generation, key string) (*cachedResponse, bool) {
	if gen == nil {
		return nil, false
	}
	data, err := gen.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var resp cachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		gen.Delete(ctx, key)
		return nil, false
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	return &resp, true
}

// writeResponse replays a cached copy.
func (p *Proxy) writeResponse(w http.ResponseWriter, resp *cachedResponse) {
	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// writeUpstream relays a live response, streaming whatever portion of
// the body was not buffered.
func (p *Proxy) writeUpstream(w http.ResponseWriter, resp *upstreamResponse) {
	copyHeader(w.Header(), resp.header)
	w.WriteHeader(resp.status)
	if _, err := w.Write(resp.prefix); err != nil {
		return
	}
	if _, err := io.Copy(w, resp.rest); err != nil {
		log.Printf("[EdgeProxy] Streaming body to client failed: %v", err)
	}
}

func (p *Proxy) writeOfflineJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   "offline",
		"message": "The server is unreachable and no cached copy exists for this request",
		"offline": true,
	})
}

// cacheKey normalizes a request into a cache key. Query strings matter
// for API lookups so they are part of the key.
func cacheKey(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

// hopHeaders should not be copied between client and upstream.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		if hopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

const defaultOfflinePage = `<!DOCTYPE html>
<html lang="ar" dir="rtl">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>غير متصل</title>
<style>
body{font-family:sans-serif;background:#f5f5f5;display:flex;align-items:center;justify-content:center;height:100vh;margin:0}
.card{background:#fff;border-radius:8px;padding:2rem 3rem;box-shadow:0 1px 4px rgba(0,0,0,.15);text-align:center}
h1{margin:0 0 .5rem;color:#c0392b}
p{color:#555}
</style>
</head>
<body>
<div class="card">
<h1>لا يوجد اتصال</h1>
<p>تعذر الوصول إلى الخادم. المبيعات المحلية لا تزال متاحة وسيتم المزامنة عند عودة الاتصال.</p>
<p>No connection. Local sales remain available and will sync when the server is back.</p>
</div>
</body>
</html>
`

var _ http.Handler = (*Proxy)(nil)
