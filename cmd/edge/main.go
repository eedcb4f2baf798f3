package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"norko-pos-edge/internal/cache"
	"norko-pos-edge/internal/config"
	"norko-pos-edge/internal/edge"
	"norko-pos-edge/internal/handler"
	"norko-pos-edge/internal/queue"
	"norko-pos-edge/internal/router"
	"norko-pos-edge/internal/store"
	syncengine "norko-pos-edge/internal/sync"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Norko POS edge agent...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s, upstream: %s", cfg.App.Environment, cfg.Upstream.BaseURL)

	// Initialize local store based on config
	var st store.Store
	switch cfg.Store.Type {
	case "mysql":
		st = store.NewMySQLStore(cfg.Store.MySQLDSN())
		log.Println("MySQL store selected")
	default: // sqlite
		st = store.NewSQLiteStore(cfg.Store.SQLitePath)
		log.Println("SQLite store selected")
	}
	defer st.Close()

	// A broken local store degrades the agent to pass-through mode
	// instead of killing it: the POS can still reach the upstream.
	storeReady := true
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Open(openCtx); err != nil {
		log.Printf("Warning: local store unavailable, offline features disabled: %v", err)
		storeReady = false
	}
	cancelOpen()

	// Initialize response cache
	var respCache cache.Cache
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis cache unavailable, using memory cache: %v", err)
		} else {
			respCache = redisCache
			defer redisCache.Close()
		}
	}
	if respCache == nil {
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		respCache = memCache
	}

	// Versioned cache generations; activation retires older versions.
	apiGen := cache.NewGeneration(respCache, "api", cfg.Edge.CacheVersion)
	staticGen := cache.NewGeneration(respCache, "static", cfg.Edge.CacheVersion)
	actCtx, cancelAct := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := cache.Activate(actCtx, respCache, apiGen, staticGen); err != nil {
		log.Printf("Warning: cache generation cleanup failed: %v", err)
	}
	cancelAct()

	upstreamClient := &http.Client{Timeout: cfg.Upstream.Timeout}

	// Pending-operation queue and sync engine
	q := queue.New(st, cfg.Sync.MaxRetries)
	engine := syncengine.New(st, q, syncengine.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		Client:      upstreamClient,
		Interval:    cfg.Sync.Interval,
		SettleDelay: cfg.Sync.SettleDelay,
	})
	engine.RegisterHandler(
		"create_sale",
		syncengine.NewCreateSaleHandler(st, cfg.Upstream.BaseURL, upstreamClient),
	)
	if !storeReady {
		engine.Disable()
	}

	// Connectivity monitor drives the engine's online flag
	monitor := syncengine.NewMonitor(
		cfg.Upstream.HealthURL(),
		upstreamClient,
		cfg.Sync.ProbeInterval,
		engine.SetOnline,
	)
	monitor.Start()
	defer monitor.Stop()

	engine.Start()
	defer engine.Stop()

	// Offline placeholder page for HTML navigations
	var offlinePage []byte
	if cfg.Edge.OfflinePagePath != "" {
		page, err := os.ReadFile(cfg.Edge.OfflinePagePath)
		if err != nil {
			log.Printf("Warning: offline page %s unreadable: %v", cfg.Edge.OfflinePagePath, err)
		} else {
			offlinePage = page
		}
	}

	// Caching proxy for everything the agent doesn't answer itself
	proxy, err := edge.NewProxy(edge.Config{
		UpstreamURL: cfg.Upstream.BaseURL,
		Client:      upstreamClient,
		Classifier:  edge.NewClassifier(cfg.Edge.NeverCacheRoutes),
		APICache:    apiGen,
		StaticCache: staticGen,
		OfflinePage: offlinePage,
		CacheTTL:    cfg.Cache.TTL,
	})
	if err != nil {
		log.Fatalf("Invalid upstream URL: %v", err)
	}

	h := handler.New(st, engine, monitor, respCache, cfg.App.Version)

	r := router.New(router.Config{
		Handler: h,
		Edge:    proxy,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Edge agent listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down edge agent...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Edge agent stopped")
}
