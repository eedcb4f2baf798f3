package model

import "time"

// Product is a mirrored server-owned product record.
// Mirror rows are replaced wholesale on each pull, never patched.
type Product struct {
	ID                int64     `json:"id"`
	NameAr            string    `json:"name_ar"`
	DescriptionAr     string    `json:"description_ar,omitempty"`
	CategoryID        int64     `json:"category_id"`
	WholesalePrice    float64   `json:"wholesale_price"`
	RetailPrice       float64   `json:"retail_price"`
	StockQuantity     float64   `json:"stock_quantity"`
	MinStockThreshold float64   `json:"min_stock_threshold"`
	UnitType          string    `json:"unit_type,omitempty"`
	LastUpdated       time.Time `json:"last_updated"`
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p *Product) LowStock() bool {
	return p.StockQuantity <= p.MinStockThreshold
}

// Category is a mirrored server-owned category record.
type Category struct {
	ID            int64     `json:"id"`
	NameAr        string    `json:"name_ar"`
	DescriptionAr string    `json:"description_ar,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Customer is a mirrored server-owned customer record.
type Customer struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}
