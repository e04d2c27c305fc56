package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionUsage is one row of the redemption ledger. Rows are appended once
// per finalized order and never mutated.
type PromotionUsage struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	PromotionID    uuid.UUID       `json:"promotion_id" db:"promotion_id"`
	UserID         *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	OrderID        uuid.UUID       `json:"order_id" db:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	CartValue      decimal.Decimal `json:"cart_value" db:"cart_value"`
	OrderTotal     decimal.Decimal `json:"order_total" db:"order_total"`
	UsedAt         time.Time       `json:"used_at" db:"used_at"`
}

// UsageStats aggregates the ledger for one promotion.
type UsageStats struct {
	TotalUses          int             `json:"total_uses"`
	TotalDiscountGiven decimal.Decimal `json:"total_discount_given"`
	AverageDiscount    decimal.Decimal `json:"average_discount"`
	UniqueUsers        int             `json:"unique_users"`
}
