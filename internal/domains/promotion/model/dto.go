package model

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// nonNegativeDecimal returns an ozzo rule rejecting negative decimal values.
func nonNegativeDecimal(field string) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := value.(decimal.Decimal)
		if !ok {
			return fmt.Errorf("%s must be a decimal value", field)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must not be negative", field)
		}
		return nil
	}
}

// ============================================================================
// Evaluation requests
// ============================================================================

// ValidateCouponRequest is the body of POST /promotions/validate.
type ValidateCouponRequest struct {
	Code     string          `json:"code"`
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func (r ValidateCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("code is required"),
			validation.Length(1, 64).Error("code must be between 1 and 64 characters"),
		),
		validation.Field(&r.Items,
			validation.Required.Error("items must not be empty"),
		),
		validation.Field(&r.Subtotal,
			validation.By(nonNegativeDecimal("subtotal")),
		),
	)
}

// AutomaticPromotionsRequest is the body of POST /promotions/automatic.
type AutomaticPromotionsRequest struct {
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func (r AutomaticPromotionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items,
			validation.Required.Error("items must not be empty"),
		),
		validation.Field(&r.Subtotal,
			validation.By(nonNegativeDecimal("subtotal")),
		),
	)
}

// PromotionResult is the outcome of evaluating one promotion against a cart.
// A failed result is a normal business outcome, not an error: Message explains
// it in customer-facing language. AppliedTo carries target signals the caller
// acts on (product ids for line discounts, "shipping", gift product ids).
type PromotionResult struct {
	Success   bool            `json:"success"`
	Promotion *Promotion      `json:"promotion,omitempty"`
	Discount  decimal.Decimal `json:"discount"`
	Message   string          `json:"message,omitempty"`
	AppliedTo []string        `json:"applied_to,omitempty"`
	ErrorCode ErrorCode       `json:"error_code,omitempty"`
}

// FailedResult builds a rejection with a customer-facing message.
func FailedResult(code ErrorCode, message string) PromotionResult {
	return PromotionResult{
		Success:   false,
		Discount:  decimal.Zero,
		Message:   message,
		ErrorCode: code,
	}
}

// ============================================================================
// Usage recording
// ============================================================================

// RecordUsageRequest is the order-finalization hook body.
type RecordUsageRequest struct {
	OrderID        uuid.UUID       `json:"order_id"`
	UserID         *uuid.UUID      `json:"user_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	CartValue      decimal.Decimal `json:"cart_value"`
	OrderTotal     decimal.Decimal `json:"order_total"`
}

func (r RecordUsageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderID,
			validation.Required.Error("order_id is required"),
		),
		validation.Field(&r.DiscountAmount,
			validation.By(nonNegativeDecimal("discount_amount")),
		),
		validation.Field(&r.CartValue,
			validation.By(nonNegativeDecimal("cart_value")),
		),
		validation.Field(&r.OrderTotal,
			validation.By(nonNegativeDecimal("order_total")),
		),
	)
}

// ============================================================================
// Admin CRUD
// ============================================================================

// CreatePromotionRequest is the admin create body.
type CreatePromotionRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`

	Type          PromotionType    `json:"type"`
	DiscountType  DiscountType     `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`

	ApplyTo     ApplyTo     `json:"apply_to"`
	ProductIDs  []string    `json:"product_ids,omitempty"`
	CategoryIDs []string    `json:"category_ids,omitempty"`
	CustomerIDs []uuid.UUID `json:"customer_ids,omitempty"`
	Bogo        *BogoConfig `json:"bogo_config,omitempty"`

	MinPurchase *decimal.Decimal `json:"min_purchase,omitempty"`
	MinQuantity *int             `json:"min_quantity,omitempty"`
	MaxQuantity *int             `json:"max_quantity,omitempty"`

	UsageLimit   *int `json:"usage_limit,omitempty"`
	PerUserLimit *int `json:"per_user_limit,omitempty"`

	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Priority int  `json:"priority"`
	CanStack bool `json:"can_stack"`

	IsActive      bool `json:"is_active"`
	IsPublic      bool `json:"is_public"`
	ShowOnWebsite bool `json:"show_on_website"`

	IsAIGenerated bool     `json:"is_ai_generated"`
	Tags          []string `json:"tags,omitempty"`
	InternalNotes *string  `json:"internal_notes,omitempty"`
}

func (r CreatePromotionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&r.Type,
			validation.Required.Error("type is required"),
			validation.By(func(value interface{}) error {
				if !value.(PromotionType).IsValid() {
					return ErrInvalidPromotionType
				}
				return nil
			}),
		),
		validation.Field(&r.DiscountType,
			validation.Required.Error("discount_type is required"),
			validation.By(func(value interface{}) error {
				if !value.(DiscountType).IsValid() {
					return ErrInvalidDiscountType
				}
				return nil
			}),
		),
		validation.Field(&r.DiscountValue,
			validation.By(nonNegativeDecimal("discount_value")),
		),
		validation.Field(&r.ApplyTo,
			validation.Required.Error("apply_to is required"),
			validation.By(func(value interface{}) error {
				if !value.(ApplyTo).IsValid() {
					return errInvalidApplyTo
				}
				return nil
			}),
		),
		validation.Field(&r.ExpiresAt,
			validation.Required.Error("expires_at is required"),
		),
	)
}

var errInvalidApplyTo = fmt.Errorf("unknown apply_to target")

// ToModel converts the request into a Promotion ready for structural
// validation and insertion.
func (r CreatePromotionRequest) ToModel() *Promotion {
	now := time.Now().UTC()
	startsAt := r.StartsAt
	if startsAt.IsZero() {
		startsAt = now
	}
	return &Promotion{
		ID:            uuid.New(),
		Code:          NormalizeCode(r.Code),
		Name:          r.Name,
		Description:   r.Description,
		Type:          r.Type,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		MaxDiscount:   r.MaxDiscount,
		ApplyTo:       r.ApplyTo,
		ProductIDs:    r.ProductIDs,
		CategoryIDs:   r.CategoryIDs,
		CustomerIDs:   r.CustomerIDs,
		Bogo:          r.Bogo,
		MinPurchase:   r.MinPurchase,
		MinQuantity:   r.MinQuantity,
		MaxQuantity:   r.MaxQuantity,
		UsageLimit:    r.UsageLimit,
		PerUserLimit:  r.PerUserLimit,
		StartsAt:      startsAt,
		ExpiresAt:     r.ExpiresAt,
		Priority:      r.Priority,
		CanStack:      r.CanStack,
		IsActive:      r.IsActive,
		IsPublic:      r.IsPublic,
		ShowOnWebsite: r.ShowOnWebsite,
		IsAIGenerated: r.IsAIGenerated,
		Tags:          r.Tags,
		InternalNotes: r.InternalNotes,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// UpdatePromotionRequest is the admin patch body. Nil fields are untouched.
// Version is required for optimistic locking.
type UpdatePromotionRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`

	DiscountType  *DiscountType    `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal `json:"discount_value,omitempty"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`

	ApplyTo     *ApplyTo    `json:"apply_to,omitempty"`
	ProductIDs  []string    `json:"product_ids,omitempty"`
	CategoryIDs []string    `json:"category_ids,omitempty"`
	CustomerIDs []uuid.UUID `json:"customer_ids,omitempty"`
	Bogo        *BogoConfig `json:"bogo_config,omitempty"`

	MinPurchase *decimal.Decimal `json:"min_purchase,omitempty"`
	MinQuantity *int             `json:"min_quantity,omitempty"`
	MaxQuantity *int             `json:"max_quantity,omitempty"`

	UsageLimit   *int `json:"usage_limit,omitempty"`
	PerUserLimit *int `json:"per_user_limit,omitempty"`

	StartsAt  *time.Time `json:"starts_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Priority *int  `json:"priority,omitempty"`
	CanStack *bool `json:"can_stack,omitempty"`

	IsPublic      *bool `json:"is_public,omitempty"`
	ShowOnWebsite *bool `json:"show_on_website,omitempty"`

	Tags          []string `json:"tags,omitempty"`
	InternalNotes *string  `json:"internal_notes,omitempty"`

	Version int `json:"version"`
}

func (r UpdatePromotionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Version,
			validation.Min(1).Error("version is required"),
		),
	)
}

// Apply mutates p in place with the non-nil fields of the request.
func (r UpdatePromotionRequest) Apply(p *Promotion) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	if r.DiscountType != nil {
		p.DiscountType = *r.DiscountType
	}
	if r.DiscountValue != nil {
		p.DiscountValue = *r.DiscountValue
	}
	if r.MaxDiscount != nil {
		p.MaxDiscount = r.MaxDiscount
	}
	if r.ApplyTo != nil {
		p.ApplyTo = *r.ApplyTo
	}
	if r.ProductIDs != nil {
		p.ProductIDs = r.ProductIDs
	}
	if r.CategoryIDs != nil {
		p.CategoryIDs = r.CategoryIDs
	}
	if r.CustomerIDs != nil {
		p.CustomerIDs = r.CustomerIDs
	}
	if r.Bogo != nil {
		p.Bogo = r.Bogo
	}
	if r.MinPurchase != nil {
		p.MinPurchase = r.MinPurchase
	}
	if r.MinQuantity != nil {
		p.MinQuantity = r.MinQuantity
	}
	if r.MaxQuantity != nil {
		p.MaxQuantity = r.MaxQuantity
	}
	if r.UsageLimit != nil {
		p.UsageLimit = r.UsageLimit
	}
	if r.PerUserLimit != nil {
		p.PerUserLimit = r.PerUserLimit
	}
	if r.StartsAt != nil {
		p.StartsAt = *r.StartsAt
	}
	if r.ExpiresAt != nil {
		p.ExpiresAt = *r.ExpiresAt
	}
	if r.Priority != nil {
		p.Priority = *r.Priority
	}
	if r.CanStack != nil {
		p.CanStack = *r.CanStack
	}
	if r.IsPublic != nil {
		p.IsPublic = *r.IsPublic
	}
	if r.ShowOnWebsite != nil {
		p.ShowOnWebsite = *r.ShowOnWebsite
	}
	if r.Tags != nil {
		p.Tags = r.Tags
	}
	if r.InternalNotes != nil {
		p.InternalNotes = r.InternalNotes
	}
}

// UpdateStatusRequest toggles a promotion on or off.
type UpdateStatusRequest struct {
	IsActive bool `json:"is_active"`
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	Type     *PromotionType `form:"type"`
	IsActive *bool          `form:"is_active"`
	Search   string         `form:"search"`
	Page     int            `form:"page"`
	PageSize int            `form:"page_size"`
}

// Normalize clamps paging to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

// Offset returns the SQL offset for the current page.
func (f *ListFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// PromotionList is a paged admin listing.
type PromotionList struct {
	Items      []*Promotion `json:"items"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// PromotionDetail is the admin detail view: the promotion plus its ledger
// aggregates. Stats may be nil when the aggregate query failed; the
// promotion itself is still served.
type PromotionDetail struct {
	*Promotion
	Stats *UsageStats `json:"stats,omitempty"`
}

// UsageHistory is the admin usage report for one promotion.
type UsageHistory struct {
	Promotion *Promotion        `json:"promotion"`
	Stats     *UsageStats       `json:"stats"`
	Usages    []*PromotionUsage `json:"usages"`
	Total     int               `json:"total"`
}
