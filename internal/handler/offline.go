package handler

import (
	"log"
	"net/http"

	"norko-pos-edge/pkg/apierror"
	"norko-pos-edge/pkg/response"
)

// OfflineStatus handles GET /api/offline/status. The POS UI polls this
// to show the connectivity badge and pending-sale counter.
func (h *Handler) OfflineStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, h.engine.Status(r.Context()))
}

// TriggerSync handles POST /api/offline/sync. It runs a full pass and
// reports what happened; a pass already in flight comes back skipped.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result := h.engine.Sync(r.Context())
	response.OK(w, result)
}

// ClearCache handles POST /api/offline/clear-cache. It drops every
// mirrored response so the next requests refill from the upstream.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		response.Error(w, apierror.ServiceUnavailable("response cache not configured"))
		return
	}
	if err := h.cache.Clear(r.Context()); err != nil {
		log.Printf("[Handler] ClearCache: %v", err)
		response.Error(w, apierror.InternalError("cache clear failed"))
		return
	}
	response.OK(w, map[string]string{"status": "cleared"})
}

// StoreStats handles GET /api/offline/stats, exposing row counts and
// storage size from the local store.
func (h *Handler) StoreStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.storeError(w, "StoreStats", err)
		return
	}
	response.OK(w, stats)
}
