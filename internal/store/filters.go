package store

import (
	"sort"
	"strings"
	"time"

	"norko-pos-edge/internal/model"
)

// ProductFilter narrows product reads. Zero values match everything.
type ProductFilter struct {
	Search     string // substring match on name and description
	CategoryID int64
	LowStock   bool // stock_quantity <= min_stock_threshold
}

// Match reports whether the product passes every set predicate.
func (f ProductFilter) Match(p *model.Product) bool {
	if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
		return false
	}
	if f.LowStock && !p.LowStock() {
		return false
	}
	if f.Search != "" {
		if !containsFold(p.NameAr, f.Search) && !containsFold(p.DescriptionAr, f.Search) {
			return false
		}
	}
	return true
}

// CustomerFilter narrows customer reads by name or phone substring.
type CustomerFilter struct {
	Search string
}

// Match reports whether the customer passes the search predicate.
func (f CustomerFilter) Match(c *model.Customer) bool {
	if f.Search == "" {
		return true
	}
	return containsFold(c.Name, f.Search) || strings.Contains(c.Phone, f.Search)
}

// SaleFilter narrows sale reads by date range and customer.
type SaleFilter struct {
	DateFrom   time.Time
	DateTo     time.Time
	CustomerID int64
}

// Match reports whether the sale passes every set predicate.
func (f SaleFilter) Match(s *model.Sale) bool {
	if !f.DateFrom.IsZero() && s.SaleDate.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && s.SaleDate.After(f.DateTo) {
		return false
	}
	if f.CustomerID != 0 && s.CustomerID != f.CustomerID {
		return false
	}
	return true
}

// FilterProducts applies the filter in memory over already-loaded rows.
func FilterProducts(products []model.Product, f ProductFilter) []model.Product {
	out := make([]model.Product, 0, len(products))
	for i := range products {
		if f.Match(&products[i]) {
			out = append(out, products[i])
		}
	}
	return out
}

// FilterCustomers applies the filter in memory over already-loaded rows.
func FilterCustomers(customers []model.Customer, f CustomerFilter) []model.Customer {
	out := make([]model.Customer, 0, len(customers))
	for i := range customers {
		if f.Match(&customers[i]) {
			out = append(out, customers[i])
		}
	}
	return out
}

// FilterSales applies the filter in memory and orders newest first.
func FilterSales(sales []model.Sale, f SaleFilter) []model.Sale {
	out := make([]model.Sale, 0, len(sales))
	for i := range sales {
		if f.Match(&sales[i]) {
			out = append(out, sales[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SaleDate.After(out[j].SaleDate)
	})
	return out
}

// containsFold is a case-insensitive substring check that tolerates empty
// haystacks.
func containsFold(s, substr string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
