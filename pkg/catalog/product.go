package catalog

import (
	"fmt"
	"strings"
)

// Product is the canonical catalog record. The engine indexes Title,
// Description, and Categories; Images and Metadata are carried but never
// indexed.
type Product struct {
	ProductID   string                 `json:"product_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Categories  []string               `json:"categories"`
	PriceCents  int64                  `json:"price_cents"`
	Currency    string                 `json:"currency"`
	Images      []string               `json:"images,omitempty"`
	Stock       int                    `json:"stock"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks the closed-record constraints of an ingested product.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ProductID) == "" {
		return fmt.Errorf("product_id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("price_cents must be non-negative")
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must be non-negative")
	}
	return nil
}

// HasCategory reports whether the product carries the category,
// case-insensitively.
func (p *Product) HasCategory(category string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// SearchText returns the free text the inverted index sees for the product.
func (p *Product) SearchText() string {
	return p.Title + " " + p.Description
}
