package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"norko-pos-edge/internal/model"
	"norko-pos-edge/internal/store"
)

// salePush is the POST /api/sales body. The client_ref lets the server
// deduplicate a retried submission of the same sale.
type salePush struct {
	ClientRef      string         `json:"client_ref"`
	Subtotal       float64        `json:"subtotal"`
	DiscountType   string         `json:"discount_type"`
	DiscountValue  float64        `json:"discount_value"`
	DiscountAmount float64        `json:"discount_amount"`
	TotalAmount    float64        `json:"total_amount"`
	CustomerID     int64          `json:"customer_id,omitempty"`
	PaymentStatus  string         `json:"payment_status"`
	PaymentType    string         `json:"payment_type"`
	Notes          string         `json:"notes,omitempty"`
	SaleDate       time.Time      `json:"sale_date"`
	Items          []salePushItem `json:"items"`
}

type salePushItem struct {
	ProductID  int64   `json:"product_id"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// saleAck is the server's acknowledgment. Servers answer either {"id": n}
// or {"sale_id": n}; both are accepted.
type saleAck struct {
	ID     int64 `json:"id"`
	SaleID int64 `json:"sale_id"`
}

func (a saleAck) serverID() int64 {
	if a.ID != 0 {
		return a.ID
	}
	return a.SaleID
}

// NewCreateSaleHandler returns the push handler for create_sale entries:
// it loads the referenced sale, submits it to POST /api/sales, and on
// acknowledgment records the server id and flips the sale to synced.
func NewCreateSaleHandler(s store.Store, baseURL string, client *http.Client) OperationHandler {
	return func(ctx context.Context, op model.PendingOperation) error {
		var payload model.CreateSalePayload
		if err := json.Unmarshal(op.Data, &payload); err != nil {
			return fmt.Errorf("malformed create_sale payload: %w", err)
		}

		sale, err := s.Sale(ctx, payload.SaleID)
		if err != nil {
			return err
		}
		if sale == nil {
			// The referenced sale is gone (store reset); nothing to push.
			log.Printf("[SyncEngine] create_sale %d references missing sale %d, dropping", op.ID, payload.SaleID)
			return nil
		}
		if sale.SyncStatus == model.SyncStatusSynced {
			return nil
		}

		body := salePush{
			ClientRef:      sale.ClientRef,
			Subtotal:       sale.Subtotal,
			DiscountType:   sale.DiscountType,
			DiscountValue:  sale.DiscountValue,
			DiscountAmount: sale.DiscountAmount,
			TotalAmount:    sale.TotalAmount,
			CustomerID:     sale.CustomerID,
			PaymentStatus:  sale.PaymentStatus,
			PaymentType:    sale.PaymentType,
			Notes:          sale.Notes,
			SaleDate:       sale.SaleDate,
		}
		for _, it := range sale.Items {
			body.Items = append(body.Items, salePushItem{
				ProductID:  it.ProductID,
				Quantity:   it.Quantity,
				UnitPrice:  it.UnitPrice,
				TotalPrice: it.TotalPrice,
			})
		}

		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/sales", bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		var ack saleAck
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			// The sale went through; a malformed ack leaves server_id at 0
			// rather than re-submitting.
			log.Printf("[SyncEngine] create_sale %d: unreadable ack: %v", op.ID, err)
		}
		return s.MarkSaleSynced(ctx, sale.ID, ack.serverID())
	}
}
