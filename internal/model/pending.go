package model

import "encoding/json"

// Operation types handled by the sync engine's push phase.
const (
	OpCreateSale = "create_sale"
)

// Pending operation priorities. Lower numeric value drains first.
const (
	PrioritySale    = 1
	PriorityDefault = 5
)

// PendingOperation is a durable record of a client-originated mutation
// not yet confirmed by the server. Rows drain in (priority, timestamp)
// order and are deleted on success or after MaxRetries failures.
type PendingOperation struct {
	ID            int64           `json:"id"`
	OperationType string          `json:"operation_type"`
	Data          json.RawMessage `json:"data"`
	Priority      int             `json:"priority"`
	Timestamp     int64           `json:"timestamp"` // unix milliseconds
	RetryCount    int             `json:"retry_count"`
}

// DefaultPriority returns the queue priority for an operation type.
func DefaultPriority(operationType string) int {
	if operationType == OpCreateSale {
		return PrioritySale
	}
	return PriorityDefault
}

// CreateSalePayload is the Data payload of a create_sale operation.
type CreateSalePayload struct {
	SaleID    int64  `json:"sale_id"`
	ClientRef string `json:"client_ref"`
}
