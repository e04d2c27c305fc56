package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionType classifies how a promotion is activated and what it targets.
type PromotionType string

const (
	TypeCoupon           PromotionType = "coupon"
	TypeAutomatic        PromotionType = "automatic"
	TypeCartDiscount     PromotionType = "cart_discount"
	TypeProductDiscount  PromotionType = "product_discount"
	TypeCategoryDiscount PromotionType = "category_discount"
	TypeBOGO             PromotionType = "bogo"
	TypeFreeGift         PromotionType = "free_gift"
	TypeFreeShipping     PromotionType = "free_shipping"
	TypeCustomerSpecific PromotionType = "customer_specific"
)

// IsValid reports whether t is a known promotion type.
func (t PromotionType) IsValid() bool {
	switch t {
	case TypeCoupon, TypeAutomatic, TypeCartDiscount, TypeProductDiscount,
		TypeCategoryDiscount, TypeBOGO, TypeFreeGift, TypeFreeShipping,
		TypeCustomerSpecific:
		return true
	}
	return false
}

// IsAutomaticCandidate reports whether promotions of this type are applied
// without a code during automatic evaluation. Coupon-only types are excluded.
func (t PromotionType) IsAutomaticCandidate() bool {
	switch t {
	case TypeAutomatic, TypeBOGO, TypeFreeGift:
		return true
	}
	return false
}

func (t PromotionType) String() string {
	return string(t)
}

// DiscountType represents the shape of the discount value.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
	// DiscountFixedPrice is accepted in the data model but computed the same
	// way as fixed_amount until product defines final-price semantics.
	DiscountFixedPrice DiscountType = "fixed_price"
)

func (dt DiscountType) IsValid() bool {
	switch dt {
	case DiscountPercentage, DiscountFixedAmount, DiscountFixedPrice:
		return true
	}
	return false
}

func (dt DiscountType) String() string {
	return string(dt)
}

// ApplyTo declares which part of the cart a promotion targets.
type ApplyTo string

const (
	ApplyToOrder         ApplyTo = "order"
	ApplyToProduct       ApplyTo = "product"
	ApplyToCategory      ApplyTo = "category"
	ApplyToShipping      ApplyTo = "shipping"
	ApplyToCheapest      ApplyTo = "cheapest"
	ApplyToMostExpensive ApplyTo = "most_expensive"
)

func (a ApplyTo) IsValid() bool {
	switch a {
	case ApplyToOrder, ApplyToProduct, ApplyToCategory, ApplyToShipping,
		ApplyToCheapest, ApplyToMostExpensive:
		return true
	}
	return false
}

// BogoApplySame is the only buy-X-get-Y mode with defined semantics: the free
// units come from the same line that satisfied the buy quantity.
const BogoApplySame = "same"

// BogoConfig holds the buy-X-get-Y parameters of a BOGO promotion.
type BogoConfig struct {
	BuyQty  int    `json:"buy_qty" db:"bogo_buy_qty"`
	GetQty  int    `json:"get_qty" db:"bogo_get_qty"`
	ApplyTo string `json:"apply_to" db:"bogo_apply_to"`
}

// Promotion represents a discount rule: a coupon, an automatic promotion, or
// one of the targeted variants (product/category/BOGO/gift/shipping).
type Promotion struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code,omitempty" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`

	Type PromotionType `json:"type" db:"type"`

	// Discount shape
	DiscountType  DiscountType     `json:"discount_type" db:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value" db:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty" db:"max_discount"`

	// Applicability
	ApplyTo     ApplyTo     `json:"apply_to" db:"apply_to"`
	ProductIDs  []string    `json:"product_ids,omitempty" db:"product_ids"`
	CategoryIDs []string    `json:"category_ids,omitempty" db:"category_ids"`
	CustomerIDs []uuid.UUID `json:"customer_ids,omitempty" db:"customer_ids"`
	Bogo        *BogoConfig `json:"bogo_config,omitempty"`

	// Conditions
	MinPurchase *decimal.Decimal `json:"min_purchase,omitempty" db:"min_purchase"`
	MinQuantity *int             `json:"min_quantity,omitempty" db:"min_quantity"`
	MaxQuantity *int             `json:"max_quantity,omitempty" db:"max_quantity"`

	// Usage limits
	UsageLimit   *int `json:"usage_limit,omitempty" db:"usage_limit"`
	UsageCount   int  `json:"usage_count" db:"usage_count"`
	PerUserLimit *int `json:"per_user_limit,omitempty" db:"per_user_limit"`

	// Validity window
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// Ordering / combination
	Priority int  `json:"priority" db:"priority"`
	CanStack bool `json:"can_stack" db:"can_stack"`

	// Visibility
	IsActive      bool `json:"is_active" db:"is_active"`
	IsPublic      bool `json:"is_public" db:"is_public"`
	ShowOnWebsite bool `json:"show_on_website" db:"show_on_website"`

	// Provenance (informational only, no evaluation effect)
	IsAIGenerated bool     `json:"is_ai_generated" db:"is_ai_generated"`
	Tags          []string `json:"tags,omitempty" db:"tags"`
	InternalNotes *string  `json:"internal_notes,omitempty" db:"internal_notes"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsEligibleAt reports whether the promotion can be applied at time t:
// active, inside the validity window, and not exhausted.
func (p *Promotion) IsEligibleAt(t time.Time) bool {
	return p.IsActive &&
		!t.Before(p.StartsAt) &&
		!t.After(p.ExpiresAt) &&
		!p.IsUsageLimitReached()
}

// IsUsageLimitReached reports whether the global usage cap has been hit.
func (p *Promotion) IsUsageLimitReached() bool {
	if p.UsageLimit == nil {
		return false
	}
	return p.UsageCount >= *p.UsageLimit
}

// RemainingUses returns the number of redemptions left under the global cap,
// or nil when the promotion is uncapped.
func (p *Promotion) RemainingUses() *int {
	if p.UsageLimit == nil {
		return nil
	}
	remaining := *p.UsageLimit - p.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// RestrictsCustomers reports whether the promotion is limited to an explicit
// customer set.
func (p *Promotion) RestrictsCustomers() bool {
	return len(p.CustomerIDs) > 0
}

// IsCustomerEligible reports whether the given user may use the promotion.
// Unrestricted promotions accept everyone, including guests.
func (p *Promotion) IsCustomerEligible(userID *uuid.UUID) bool {
	if !p.RestrictsCustomers() {
		return true
	}
	if userID == nil || *userID == uuid.Nil {
		return false
	}
	for _, id := range p.CustomerIDs {
		if id == *userID {
			return true
		}
	}
	return false
}

// MatchesProduct reports whether a cart line with the given product id is
// targeted by this promotion. An empty product set matches every line; only
// BOGO targeting relies on that, product and category discounts require
// explicit targets before the matchers are consulted.
func (p *Promotion) MatchesProduct(productID string) bool {
	if len(p.ProductIDs) == 0 {
		return true
	}
	for _, id := range p.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// MatchesCategory reports whether a cart line with the given category id is
// targeted by this promotion. An empty category set matches every line.
func (p *Promotion) MatchesCategory(categoryID string) bool {
	if len(p.CategoryIDs) == 0 {
		return true
	}
	if categoryID == "" {
		return false
	}
	for _, id := range p.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// MatchesQuantity applies the optional min/max line-quantity bounds.
func (p *Promotion) MatchesQuantity(quantity int) bool {
	if p.MinQuantity != nil && quantity < *p.MinQuantity {
		return false
	}
	if p.MaxQuantity != nil && quantity > *p.MaxQuantity {
		return false
	}
	return true
}

// NormalizeCode upper-cases and trims the code. Codes are stored and compared
// upper-case so customer input is case-insensitive.
func (p *Promotion) NormalizeCode() {
	p.Code = NormalizeCode(p.Code)
}

// NormalizeCode is the canonical form used everywhere a code is compared.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate enforces the structural invariants of a promotion record.
func (p *Promotion) Validate() error {
	if !p.Type.IsValid() {
		return ErrInvalidPromotionType
	}
	if !p.DiscountType.IsValid() {
		return ErrInvalidDiscountType
	}
	if p.DiscountValue.IsNegative() {
		return ErrInvalidDiscountValue
	}
	if p.DiscountType == DiscountPercentage && p.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return ErrPercentageTooHigh
	}
	if p.Type == TypeCoupon && p.Code == "" {
		return ErrCodeRequired
	}
	if p.ExpiresAt.Before(p.StartsAt) {
		return ErrInvalidDateRange
	}
	if p.MinPurchase != nil && p.MinPurchase.IsNegative() {
		return ErrInvalidMinPurchase
	}
	if p.Type == TypeBOGO {
		if p.Bogo == nil || p.Bogo.BuyQty <= 0 || p.Bogo.GetQty <= 0 {
			return ErrInvalidBogoConfig
		}
	}
	return nil
}
