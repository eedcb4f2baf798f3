package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"norko-pos-edge/internal/model"
	"norko-pos-edge/internal/queue"
	"norko-pos-edge/internal/store"
)

// hugeSettle keeps SetOnline's scheduled pass out of the way so tests
// drive Sync explicitly.
const hugeSettle = time.Hour

func newTestStoreAndQueue(t *testing.T) (store.Store, *queue.Queue) {
	t.Helper()
	s := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sync.db"))
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, queue.New(s, 0)
}

func newTestEngine(t *testing.T, s store.Store, q *queue.Queue, baseURL string) *Engine {
	t.Helper()
	e := New(s, q, Config{
		BaseURL:     baseURL,
		Client:      &http.Client{Timeout: 2 * time.Second},
		SettleDelay: hugeSettle,
	})
	e.RegisterHandler(model.OpCreateSale, NewCreateSaleHandler(s, baseURL, &http.Client{Timeout: 2 * time.Second}))
	return e
}

// upstreamMux serves the pull endpoints with fixed catalog data.
func upstreamMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Product{
			{ID: 1, NameAr: "سكر", RetailPrice: 10, StockQuantity: 40, MinStockThreshold: 5},
			{ID: 2, NameAr: "أرز", RetailPrice: 20, StockQuantity: 25, MinStockThreshold: 5},
		})
	})
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Category{{ID: 1, NameAr: "مواد غذائية"}})
	})
	mux.HandleFunc("/api/customers", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Customer{{ID: 7, Name: "أحمد"}})
	})
	return mux
}

func TestSyncSkippedWhileOffline(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	e := newTestEngine(t, s, q, "http://127.0.0.1:0")

	result := e.Sync(context.Background())
	if !result.Skipped {
		t.Error("sync while offline should be skipped")
	}
	if e.State() != StateIdle {
		t.Errorf("state = %v, want idle", e.State())
	}
}

func TestSyncSkippedWhenDisabled(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	e := newTestEngine(t, s, q, "http://127.0.0.1:0")
	e.Disable()
	e.SetOnline(true)

	result := e.Sync(context.Background())
	if !result.Skipped {
		t.Error("sync while disabled should be skipped")
	}
	if e.State() != StateDisabled {
		t.Errorf("state = %v, want disabled", e.State())
	}
}

func TestSyncPullReplacesMirrors(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	srv := httptest.NewServer(upstreamMux(t))
	defer srv.Close()

	// Seed stale mirror rows that the pull must wipe.
	if err := s.ReplaceProducts(context.Background(), []model.Product{{ID: 99, NameAr: "قديم"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e := newTestEngine(t, s, q, srv.URL)
	e.SetOnline(true)

	result := e.Sync(context.Background())
	if result.Skipped {
		t.Fatal("sync should not be skipped")
	}
	if result.Pulled["products"] != 2 || result.Pulled["categories"] != 1 || result.Pulled["customers"] != 1 {
		t.Errorf("pulled = %v", result.Pulled)
	}

	products, err := s.Products(context.Background(), store.ProductFilter{})
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products after pull, want 2", len(products))
	}
	for _, p := range products {
		if p.ID == 99 {
			t.Error("stale mirror row survived the pull")
		}
	}
	if e.LastSyncTime() == nil {
		t.Error("last sync time not recorded")
	}
}

func TestSyncPushesSale(t *testing.T) {
	s, q := newTestStoreAndQueue(t)

	mux := upstreamMux(t)
	mux.HandleFunc("/api/sales", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			ClientRef string `json:"client_ref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ClientRef == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]int64{"id": 777})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sale := &model.Sale{TotalAmount: 10,
		Items: []model.SaleItem{{ProductID: 1, Quantity: 1, UnitPrice: 10, TotalPrice: 10}}}
	if err := s.CreateSale(context.Background(), sale); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	e := newTestEngine(t, s, q, srv.URL)
	e.SetOnline(true)

	result := e.Sync(context.Background())
	if result.Pushed != 1 || result.Failed != 0 {
		t.Fatalf("pushed=%d failed=%d, want 1/0", result.Pushed, result.Failed)
	}

	loaded, err := s.Sale(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("Sale: %v", err)
	}
	if loaded.SyncStatus != model.SyncStatusSynced {
		t.Errorf("sync_status = %q, want synced", loaded.SyncStatus)
	}
	if loaded.ServerID != 777 {
		t.Errorf("server_id = %d, want 777", loaded.ServerID)
	}
	n, _ := q.Len(context.Background())
	if n != 0 {
		t.Errorf("queue length after push = %d, want 0", n)
	}
}

func TestSyncEvictsAfterMaxRetries(t *testing.T) {
	s, q := newTestStoreAndQueue(t)

	mux := upstreamMux(t)
	mux.HandleFunc("/api/sales", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sale := &model.Sale{TotalAmount: 10,
		Items: []model.SaleItem{{ProductID: 1, Quantity: 1, UnitPrice: 10, TotalPrice: 10}}}
	if err := s.CreateSale(context.Background(), sale); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	e := newTestEngine(t, s, q, srv.URL)
	e.SetOnline(true)

	for attempt := 1; attempt <= queue.DefaultMaxRetries; attempt++ {
		result := e.Sync(context.Background())
		if result.Failed != 1 {
			t.Fatalf("attempt %d: failed = %d, want 1", attempt, result.Failed)
		}
		if attempt < queue.DefaultMaxRetries && result.Evicted != 0 {
			t.Errorf("attempt %d: evicted early", attempt)
		}
		if attempt == queue.DefaultMaxRetries && result.Evicted != 1 {
			t.Errorf("final attempt: evicted = %d, want 1", result.Evicted)
		}
	}

	// The entry is gone but the sale stays pending forever.
	n, _ := q.Len(context.Background())
	if n != 0 {
		t.Errorf("queue length after eviction = %d, want 0", n)
	}
	loaded, err := s.Sale(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("Sale: %v", err)
	}
	if loaded.SyncStatus != model.SyncStatusPending {
		t.Errorf("evicted sale sync_status = %q, want pending", loaded.SyncStatus)
	}
}

func TestSyncSingleFlight(t *testing.T) {
	s, q := newTestStoreAndQueue(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		w.Write([]byte("[]"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestEngine(t, s, q, srv.URL)
	e.SetOnline(true)

	done := make(chan *Result, 1)
	go func() { done <- e.Sync(context.Background()) }()

	<-entered
	// A second trigger while the first pass is mid-pull must be a no-op.
	second := e.Sync(context.Background())
	if !second.Skipped {
		t.Error("concurrent sync was not skipped")
	}
	close(release)

	first := <-done
	if first.Skipped {
		t.Error("first sync should have run")
	}
}

func TestOfflineTransitionState(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	e := newTestEngine(t, s, q, "http://127.0.0.1:0")

	e.SetOnline(true)
	if e.State() != StateIdle {
		t.Fatalf("state after restore = %v, want idle", e.State())
	}
	e.SetOnline(false)
	if e.State() != StateOfflineWaiting {
		t.Errorf("state after loss = %v, want offline_waiting", e.State())
	}
	e.SetOnline(true)
	if e.State() != StateIdle {
		t.Errorf("state after second restore = %v, want idle", e.State())
	}
}

func TestStatusSnapshot(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	e := newTestEngine(t, s, q, "http://127.0.0.1:0")

	sale := &model.Sale{TotalAmount: 10,
		Items: []model.SaleItem{{ProductID: 1, Quantity: 1, UnitPrice: 10, TotalPrice: 10}}}
	if err := s.CreateSale(context.Background(), sale); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	st := e.Status(context.Background())
	if st.Online {
		t.Error("status should be offline before any probe")
	}
	if st.PendingCount != 1 {
		t.Errorf("pending count = %d, want 1", st.PendingCount)
	}
	if st.State != "idle" {
		t.Errorf("state = %q, want idle", st.State)
	}
}
