package queue

import (
	"context"
	"path/filepath"
	"testing"

	"norko-pos-edge/internal/model"
	"norko-pos-edge/internal/store"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	s := store.NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, 0)
}

func TestEnqueuePriorities(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	sale, err := q.Enqueue(ctx, model.OpCreateSale, model.CreateSalePayload{SaleID: 1})
	if err != nil {
		t.Fatalf("Enqueue sale: %v", err)
	}
	other, err := q.Enqueue(ctx, "update_note", map[string]string{"note": "x"})
	if err != nil {
		t.Fatalf("Enqueue other: %v", err)
	}

	if sale.Priority != model.PrioritySale {
		t.Errorf("sale priority = %d, want %d", sale.Priority, model.PrioritySale)
	}
	if other.Priority != model.PriorityDefault {
		t.Errorf("default priority = %d, want %d", other.Priority, model.PriorityDefault)
	}
	if sale.Timestamp == 0 {
		t.Error("enqueue did not stamp a timestamp")
	}
}

func TestDequeueOrderedSalesFirst(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	// Lower priority enqueued first; sales must still drain ahead of it.
	if _, err := q.Enqueue(ctx, "update_note", map[string]string{}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Enqueue(ctx, model.OpCreateSale, model.CreateSalePayload{SaleID: 1}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ops, err := q.DequeueOrdered(ctx)
	if err != nil {
		t.Fatalf("DequeueOrdered: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d operations, want 2", len(ops))
	}
	if ops[0].OperationType != model.OpCreateSale {
		t.Errorf("first drained = %q, want create_sale", ops[0].OperationType)
	}
}

func TestAckRemoves(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	op, err := q.Enqueue(ctx, model.OpCreateSale, model.CreateSalePayload{SaleID: 1})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Ack(ctx, op.ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Errorf("queue length after ack = %d, want 0", n)
	}
}

func TestMarkFailedEvictsAtCeiling(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	op, err := q.Enqueue(ctx, model.OpCreateSale, model.CreateSalePayload{SaleID: 1})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	for attempt := 1; attempt <= DefaultMaxRetries; attempt++ {
		evicted, err := q.MarkFailed(ctx, op)
		if err != nil {
			t.Fatalf("MarkFailed attempt %d: %v", attempt, err)
		}
		wantEvicted := attempt == DefaultMaxRetries
		if evicted != wantEvicted {
			t.Errorf("attempt %d: evicted = %v, want %v", attempt, evicted, wantEvicted)
		}
		if op.RetryCount != attempt {
			t.Errorf("attempt %d: retry count = %d, want %d", attempt, op.RetryCount, attempt)
		}

		n, err := q.Len(ctx)
		if err != nil {
			t.Fatalf("Len: %v", err)
		}
		if wantEvicted && n != 0 {
			t.Errorf("queue length after eviction = %d, want 0", n)
		}
		if !wantEvicted && n != 1 {
			t.Errorf("queue length mid-retries = %d, want 1", n)
		}

		if !wantEvicted {
			// The persisted retry counter must survive a fresh read.
			ops, err := q.DequeueOrdered(ctx)
			if err != nil {
				t.Fatalf("DequeueOrdered: %v", err)
			}
			if ops[0].RetryCount != attempt {
				t.Errorf("persisted retry count = %d, want %d", ops[0].RetryCount, attempt)
			}
		}
	}
}
