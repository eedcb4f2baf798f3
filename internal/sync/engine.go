// Package sync orchestrates the offline data flow: pulling server-owned
// reference data into the local mirror and pushing queued local mutations
// back once connectivity returns.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"norko-pos-edge/internal/model"
	"norko-pos-edge/internal/queue"
	"norko-pos-edge/internal/store"
)

// State is the engine's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateSyncing
	StateOfflineWaiting
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateOfflineWaiting:
		return "offline_waiting"
	case StateDisabled:
		return "disabled"
	}
	return "unknown"
}

// OperationHandler pushes one queued operation to the server. A nil error
// acknowledges and removes the entry; any error counts as a retryable
// failure.
type OperationHandler func(ctx context.Context, op model.PendingOperation) error

// NotifyFunc receives user-facing sync notifications. Levels are
// "success", "warning", and "error".
type NotifyFunc func(level, message string)

// Config holds sync engine settings.
type Config struct {
	// BaseURL is the upstream server, e.g. "http://store.example.com".
	BaseURL string

	// Client is the HTTP client for pull and push requests.
	Client *http.Client

	// Interval is the periodic sync cadence while online.
	Interval time.Duration

	// SettleDelay postpones the post-reconnect sync so a flapping
	// connection doesn't thrash.
	SettleDelay time.Duration
}

// Engine is the only writer that talks to the server on behalf of offline
// data. At most one sync pass runs at a time; a second trigger while
// syncing is a no-op.
type Engine struct {
	store  store.Store
	queue  *queue.Queue
	client *http.Client

	baseURL     string
	interval    time.Duration
	settleDelay time.Duration

	state    atomic.Int32
	online   atomic.Bool
	syncing  atomic.Bool // single-flight flag guarding performSync
	lastSync atomic.Pointer[time.Time]

	handlers map[string]OperationHandler
	notify   NotifyFunc

	stopCh chan struct{}
}

// New creates an engine. Handlers must be registered before Start.
func New(s store.Store, q *queue.Queue, cfg Config) *Engine {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	e := &Engine{
		store:       s,
		queue:       q,
		client:      client,
		baseURL:     cfg.BaseURL,
		interval:    cfg.Interval,
		settleDelay: cfg.SettleDelay,
		handlers:    make(map[string]OperationHandler),
		notify:      func(level, message string) { log.Printf("[SyncEngine] %s: %s", level, message) },
		stopCh:      make(chan struct{}),
	}
	e.state.Store(int32(StateIdle))
	return e
}

// RegisterHandler binds an operation type to its push handler.
func (e *Engine) RegisterHandler(operationType string, h OperationHandler) {
	e.handlers[operationType] = h
}

// SetNotify replaces the notification sink.
func (e *Engine) SetNotify(fn NotifyFunc) {
	if fn != nil {
		e.notify = fn
	}
}

// Disable puts the engine in the disabled state, used when the store could
// not be opened. Every sync trigger becomes a no-op.
func (e *Engine) Disable() {
	e.state.Store(int32(StateDisabled))
	log.Printf("[SyncEngine] Disabled: offline support unavailable")
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Online reports the last known connectivity signal.
func (e *Engine) Online() bool {
	return e.online.Load()
}

// LastSyncTime returns the completion time of the last sync pass, nil if
// none has run since the stored record.
func (e *Engine) LastSyncTime() *time.Time {
	return e.lastSync.Load()
}

// Start restores lastSyncTime from settings and begins the periodic
// trigger loop.
func (e *Engine) Start() {
	if e.State() == StateDisabled {
		return
	}
	e.loadLastSyncTime()
	go e.run()
	log.Printf("[SyncEngine] Started - interval: %v, settle delay: %v", e.interval, e.settleDelay)
}

// Stop ends the periodic trigger loop. An in-flight pass runs to
// completion; no pass supports mid-flight cancellation.
func (e *Engine) Stop() {
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
}

func (e *Engine) run() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if e.online.Load() {
				e.Sync(context.Background())
			}
		case <-e.stopCh:
			return
		}
	}
}

// SetOnline feeds a debounced connectivity transition into the engine.
// Restoration schedules a sync after the settle delay; loss suppresses new
// passes but never aborts one already in flight.
func (e *Engine) SetOnline(online bool) {
	if e.State() == StateDisabled {
		return
	}
	was := e.online.Swap(online)
	if was == online {
		return
	}
	if online {
		log.Printf("[SyncEngine] Connectivity restored")
		e.state.CompareAndSwap(int32(StateOfflineWaiting), int32(StateIdle))
		time.AfterFunc(e.settleDelay, func() {
			if e.online.Load() {
				e.Sync(context.Background())
			}
		})
		return
	}
	log.Printf("[SyncEngine] Connectivity lost")
	e.state.CompareAndSwap(int32(StateIdle), int32(StateOfflineWaiting))
	e.notify("warning", "connection lost - switched to offline mode")
}

// Result summarizes one sync pass.
type Result struct {
	Skipped bool           `json:"skipped"`
	Pulled  map[string]int `json:"pulled"`
	Pushed  int            `json:"pushed"`
	Failed  int            `json:"failed"`
	Evicted int            `json:"evicted"`
}

// SaveSaleLocal persists a sale optimistically through the store's atomic
// transaction and, when already online, triggers an immediate sync pass.
func (e *Engine) SaveSaleLocal(ctx context.Context, sale *model.Sale) error {
	if e.State() == StateDisabled {
		return store.ErrStorageUnavailable
	}
	if err := e.store.CreateSale(ctx, sale); err != nil {
		return err
	}
	log.Printf("[SyncEngine] Sale saved locally with id %d", sale.ID)
	if e.online.Load() && !e.syncing.Load() {
		go e.Sync(context.Background())
	}
	return nil
}

// Sync executes one full pull+push pass under the single-flight flag.
// A second trigger while a pass is running, or any trigger while offline
// or disabled, returns a skipped result. The pass always terminates;
// failures are absorbed, logged, and surfaced as a notification only.
func (e *Engine) Sync(ctx context.Context) *Result {
	if e.State() == StateDisabled || !e.online.Load() {
		return &Result{Skipped: true}
	}
	if !e.syncing.CompareAndSwap(false, true) {
		log.Printf("[SyncEngine] Sync skipped: already in progress")
		return &Result{Skipped: true}
	}
	defer e.syncing.Store(false)

	e.state.Store(int32(StateSyncing))
	defer func() {
		if e.online.Load() {
			e.state.Store(int32(StateIdle))
		} else {
			e.state.Store(int32(StateOfflineWaiting))
		}
	}()

	log.Printf("[SyncEngine] Starting sync pass")
	result := &Result{Pulled: make(map[string]int)}

	e.pull(ctx, result)
	e.push(ctx, result)

	// Recorded regardless of partial failure so the UI can show a
	// monotonic "time since last attempt".
	now := time.Now()
	e.lastSync.Store(&now)
	if err := e.store.SetSetting(ctx, model.SettingLastSyncTime, now.UTC().Format(time.RFC3339)); err != nil {
		log.Printf("[SyncEngine] Failed to record last sync time: %v", err)
	}

	if result.Failed > 0 || result.Evicted > 0 {
		e.notify("error", "sync finished with failures - will retry")
	} else {
		e.notify("success", "sync completed")
	}
	log.Printf("[SyncEngine] Sync pass done: pulled=%v pushed=%d failed=%d evicted=%d",
		result.Pulled, result.Pushed, result.Failed, result.Evicted)
	return result
}

// mirrorEndpoint binds a pull endpoint to its wholesale-replace apply step.
type mirrorEndpoint struct {
	name  string
	path  string
	apply func(ctx context.Context, body []byte) (int, error)
}

func (e *Engine) mirrorEndpoints() []mirrorEndpoint {
	return []mirrorEndpoint{
		{"products", "/api/products", func(ctx context.Context, body []byte) (int, error) {
			var records []model.Product
			if err := json.Unmarshal(body, &records); err != nil {
				return 0, err
			}
			return len(records), e.store.ReplaceProducts(ctx, records)
		}},
		{"categories", "/api/categories", func(ctx context.Context, body []byte) (int, error) {
			var records []model.Category
			if err := json.Unmarshal(body, &records); err != nil {
				return 0, err
			}
			return len(records), e.store.ReplaceCategories(ctx, records)
		}},
		{"customers", "/api/customers", func(ctx context.Context, body []byte) (int, error) {
			var records []model.Customer
			if err := json.Unmarshal(body, &records); err != nil {
				return 0, err
			}
			return len(records), e.store.ReplaceCustomers(ctx, records)
		}},
	}
}

// pull refreshes each mirror table from the server. Pull is best-effort
// and per-entity independent: one failed fetch leaves that mirror stale
// and never aborts the others.
func (e *Engine) pull(ctx context.Context, result *Result) {
	for _, ep := range e.mirrorEndpoints() {
		count, err := e.pullOne(ctx, ep)
		if err != nil {
			log.Printf("[SyncEngine] Pull %s failed: %v", ep.name, err)
			continue
		}
		result.Pulled[ep.name] = count
	}
}

func (e *Engine) pullOne(ctx context.Context, ep mirrorEndpoint) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+ep.path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	return ep.apply(ctx, body)
}

// push drains the queue in total order, strictly one entry at a time, so
// creation order is preserved server-side and duplicate risk stays bounded
// to one in-flight retry per entry.
func (e *Engine) push(ctx context.Context, result *Result) {
	ops, err := e.queue.DequeueOrdered(ctx)
	if err != nil {
		log.Printf("[SyncEngine] Failed to read pending operations: %v", err)
		return
	}
	if len(ops) > 0 {
		log.Printf("[SyncEngine] Pushing %d pending operations", len(ops))
	}
	for _, op := range ops {
		if err := e.pushOne(ctx, op); err != nil {
			result.Failed++
			evicted, qerr := e.queue.MarkFailed(ctx, &op)
			if qerr != nil {
				log.Printf("[SyncEngine] Failed to record retry for operation %d: %v", op.ID, qerr)
				continue
			}
			if evicted {
				result.Evicted++
			}
			continue
		}
		if err := e.queue.Ack(ctx, op.ID); err != nil {
			log.Printf("[SyncEngine] Failed to ack operation %d: %v", op.ID, err)
			continue
		}
		result.Pushed++
	}
}

func (e *Engine) pushOne(ctx context.Context, op model.PendingOperation) error {
	h, ok := e.handlers[op.OperationType]
	if !ok {
		return fmt.Errorf("no handler for operation type %q", op.OperationType)
	}
	return h(ctx, op)
}

// Status is the synchronous snapshot exposed to UI collaborators.
type Status struct {
	Online         bool       `json:"online"`
	SyncInProgress bool       `json:"syncInProgress"`
	State          string     `json:"state"`
	LastSyncTime   *time.Time `json:"lastSyncTime"`
	PendingCount   int        `json:"pendingCount"`
}

// Status reports connectivity, sync progress, last sync time, and the
// pending-operation count. The pending count is the only signal of
// permanently unsynchronized sales, so it is always computed fresh.
func (e *Engine) Status(ctx context.Context) Status {
	st := Status{
		Online:         e.online.Load(),
		SyncInProgress: e.syncing.Load(),
		State:          e.State().String(),
		LastSyncTime:   e.lastSync.Load(),
	}
	if e.State() != StateDisabled {
		if n, err := e.queue.Len(ctx); err == nil {
			st.PendingCount = n
		}
	}
	return st
}

func (e *Engine) loadLastSyncTime() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	value, err := e.store.Setting(ctx, model.SettingLastSyncTime)
	if err != nil || value == "" {
		return
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return
	}
	e.lastSync.Store(&t)
	log.Printf("[SyncEngine] Restored last sync time: %s", value)
}
