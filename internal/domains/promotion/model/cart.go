package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// CartItem is one cart line as submitted for evaluation. It is never mutated
// by the engine; free-gift and free-shipping effects are applied by the caller.
type CartItem struct {
	ProductID  string          `json:"product_id"`
	VariantID  *string         `json:"variant_id,omitempty"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	CategoryID string          `json:"category_id,omitempty"`
}

// Total returns unit price times quantity for this line.
func (c CartItem) Total() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// Validate validates one cart line.
func (c CartItem) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ProductID, validation.Required.Error("product_id is required")),
		validation.Field(&c.Price,
			validation.By(nonNegativeDecimal("price")),
		),
		validation.Field(&c.Quantity,
			validation.Min(1).Error("quantity must be at least 1"),
		),
	)
}

// Subtotal sums the line totals of the given items.
func Subtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total())
	}
	return total
}
