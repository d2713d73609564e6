package domain

import (
	"errors"
	"time"
)

// Price list validation errors, surfaced as 400s by the handlers.
var (
	ErrNoPrices          = errors.New("product requires at least one price")
	ErrMultipleDefaults  = errors.New("product allows at most one default price")
	ErrInvalidPriceValue = errors.New("price value must be positive")
)

// Price is a single price entry in a product's price list.
// At most one entry per product is marked default.
type Price struct {
	Value     float64 `json:"value"`
	Symbol    string  `json:"symbol"`
	IsDefault bool    `json:"isDefault"`
}

// ValidatePrices checks a product's price list: it must be non-empty, every
// value positive, and at most one entry marked default. Both the standalone
// product path and order-embedded products go through this.
func ValidatePrices(prices []Price) error {
	if len(prices) == 0 {
		return ErrNoPrices
	}
	defaults := 0
	for _, p := range prices {
		if p.Value <= 0 {
			return ErrInvalidPriceValue
		}
		if p.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return ErrMultipleDefaults
	}
	return nil
}

// Guarantee is a product's guarantee window.
type Guarantee struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Product represents a product, optionally attached to an order.
// The serial number is unique across all products, deleted or not.
type Product struct {
	ID            int64      `json:"id"`
	SerialNumber  int64      `json:"serialNumber"`
	IsNew         bool       `json:"isNew"`
	Photo         string     `json:"photo,omitempty"`
	Title         string     `json:"title"`
	Type          string     `json:"type"`
	Specification string     `json:"specification,omitempty"`
	Guarantee     *Guarantee `json:"guarantee,omitempty"`
	Price         []Price    `json:"price"`
	Date          time.Time  `json:"date"`
	Deleted       bool       `json:"deleted"`
	OrderID       *int64     `json:"orderId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// DefaultPrice returns the default price entry, or the first entry when none
// is marked default. Returns nil for an empty price list.
func (p *Product) DefaultPrice() *Price {
	for i := range p.Price {
		if p.Price[i].IsDefault {
			return &p.Price[i]
		}
	}
	if len(p.Price) > 0 {
		return &p.Price[0]
	}
	return nil
}
