package edge

import (
	"net/http"
	"path"
	"strings"
)

// Class is the routing lane a request falls into.
type Class int

const (
	// ClassAPI requests get network-first with cached JSON fallback.
	ClassAPI Class = iota
	// ClassStatic requests get network-first with cached asset fallback.
	ClassStatic
	// ClassNeverCache requests are always forwarded and never served
	// from or written to the cache, even when the upstream is down.
	ClassNeverCache
)

func (c Class) String() string {
	switch c {
	case ClassAPI:
		return "api"
	case ClassStatic:
		return "static"
	case ClassNeverCache:
		return "never-cache"
	default:
		return "unknown"
	}
}

// DefaultNeverCacheRoutes covers authentication flows and returns
// processing, where a stale response could leak a session or double
// process a refund.
var DefaultNeverCacheRoutes = []string{
	"/login",
	"/logout",
	"/forgot-password",
	"/reset-password",
	"/change-password",
	"/returns/new",
	"/api/returns",
}

// staticExtensions are the asset types worth keeping offline.
var staticExtensions = map[string]bool{
	".css":   true,
	".js":    true,
	".png":   true,
	".jpg":   true,
	".jpeg":  true,
	".gif":   true,
	".svg":   true,
	".ico":   true,
	".woff":  true,
	".woff2": true,
	".ttf":   true,
	".map":   true,
	".html":  true,
}

// Classifier decides which lane a request path belongs to.
type Classifier struct {
	neverCache []string
}

// NewClassifier builds a classifier. Empty entries are dropped; with no
// usable routes the defaults apply. An empty entry would otherwise
// prefix-match every path.
func NewClassifier(neverCacheRoutes []string) *Classifier {
	routes := make([]string, 0, len(neverCacheRoutes))
	for _, r := range neverCacheRoutes {
		if r != "" {
			routes = append(routes, r)
		}
	}
	if len(routes) == 0 {
		routes = DefaultNeverCacheRoutes
	}
	return &Classifier{neverCache: routes}
}

// Classify returns the lane for a request path. Never-cache wins over
// everything else.
func (c *Classifier) Classify(p string) Class {
	for _, route := range c.neverCache {
		if p == route || strings.HasPrefix(p, route+"/") {
			return ClassNeverCache
		}
	}
	if strings.HasPrefix(p, "/api/") {
		return ClassAPI
	}
	return ClassStatic
}

// IsStaticAsset reports whether the path looks like a cacheable asset.
func IsStaticAsset(p string) bool {
	return staticExtensions[strings.ToLower(path.Ext(p))]
}

// ExpectsHTML reports whether the client is asking for a page rather
// than data, based on the Accept header.
func ExpectsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
