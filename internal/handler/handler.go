package handler

import (
	"time"

	"norko-pos-edge/internal/cache"
	"norko-pos-edge/internal/store"
	"norko-pos-edge/internal/sync"
)

// StartTime tracks when the agent started for uptime calculation
var StartTime = time.Now()

// Handler contains the local API handlers and their dependencies.
type Handler struct {
	store   store.Store
	engine  *sync.Engine
	monitor *sync.Monitor
	cache   cache.Cache
	version string
}

// New creates a new handler.
func New(s store.Store, engine *sync.Engine, monitor *sync.Monitor, c cache.Cache, version string) *Handler {
	return &Handler{
		store:   s,
		engine:  engine,
		monitor: monitor,
		cache:   c,
		version: version,
	}
}
