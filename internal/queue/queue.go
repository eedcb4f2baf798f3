// Package queue manages the durable pending-operation log: an ordered
// at-least-once delivery record of local mutations awaiting server
// acknowledgment, layered on the persistent store.
package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"norko-pos-edge/internal/model"
	"norko-pos-edge/internal/store"
)

// DefaultMaxRetries is the retry ceiling after which an entry is evicted.
const DefaultMaxRetries = 3

// Queue wraps the store's pending_operations container with ordering and
// retry semantics. Only the sync engine drains it.
type Queue struct {
	store      store.Store
	maxRetries int
}

// New creates a queue over the given store. maxRetries <= 0 selects the
// default ceiling of 3.
func New(s store.Store, maxRetries int) *Queue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{store: s, maxRetries: maxRetries}
}

// MaxRetries returns the eviction ceiling.
func (q *Queue) MaxRetries() int {
	return q.maxRetries
}

// Enqueue appends an operation stamped with the current time. The priority
// defaults per operation type; sale creation drains first.
func (q *Queue) Enqueue(ctx context.Context, operationType string, data interface{}) (*model.PendingOperation, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	op := &model.PendingOperation{
		OperationType: operationType,
		Data:          payload,
		Priority:      model.DefaultPriority(operationType),
		Timestamp:     time.Now().UnixMilli(),
	}
	if err := q.store.AddPendingOperation(ctx, op); err != nil {
		return nil, err
	}
	log.Printf("[Queue] Enqueued %s operation %d", operationType, op.ID)
	return op, nil
}

// DequeueOrdered returns every pending entry in total order: priority
// ascending, timestamp ascending. Callers process the slice sequentially;
// server-side effects are not guaranteed idempotent, so entries are never
// dispatched concurrently.
func (q *Queue) DequeueOrdered(ctx context.Context) ([]model.PendingOperation, error) {
	return q.store.PendingOperations(ctx)
}

// Ack removes an entry after a confirmed server success.
func (q *Queue) Ack(ctx context.Context, id int64) error {
	if err := q.store.RemovePendingOperation(ctx, id); err != nil {
		return err
	}
	log.Printf("[Queue] Acked operation %d", id)
	return nil
}

// MarkFailed increments the entry's retry counter. Once the counter
// reaches the ceiling the entry is removed unconditionally and evicted
// reports true; whatever record it referenced stays unsynchronized.
func (q *Queue) MarkFailed(ctx context.Context, op *model.PendingOperation) (evicted bool, err error) {
	op.RetryCount++
	if op.RetryCount >= q.maxRetries {
		if err := q.store.RemovePendingOperation(ctx, op.ID); err != nil {
			return false, err
		}
		log.Printf("[Queue] Evicted %s operation %d after %d retries",
			op.OperationType, op.ID, op.RetryCount)
		return true, nil
	}
	if err := q.store.SetPendingRetryCount(ctx, op.ID, op.RetryCount); err != nil {
		return false, err
	}
	log.Printf("[Queue] %s operation %d failed, retry %d/%d",
		op.OperationType, op.ID, op.RetryCount, q.maxRetries)
	return false, nil
}

// Len returns the number of queued entries.
func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.store.PendingCount(ctx)
}
