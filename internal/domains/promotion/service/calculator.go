package service

import (
	"storefront-backend/internal/domains/promotion/model"

	"github.com/shopspring/decimal"
)

// AppliedToShipping is the applied-to signal for free-shipping promotions.
// The evaluator never zeroes the shipping line itself; the checkout flow does.
const AppliedToShipping = "shipping"

var oneHundred = decimal.NewFromInt(100)

// DiscountCalculator computes the discount one promotion yields against a
// cart. It is stateless: the same inputs always produce the same output.
type DiscountCalculator struct{}

// NewDiscountCalculator creates a new instance.
func NewDiscountCalculator() *DiscountCalculator {
	return &DiscountCalculator{}
}

// Calculate dispatches on the promotion type and returns the discount amount
// plus the applied-to signals (matched product ids, "shipping", gift product
// ids). The amount is rounded to cents and never exceeds the base it was
// computed against.
//
// Zero discount with empty signals means the promotion matched nothing in
// this cart. FREE_SHIPPING and FREE_GIFT always contribute zero money and
// speak through the signals alone.
func (c *DiscountCalculator) Calculate(promo *model.Promotion, items []model.CartItem, subtotal decimal.Decimal) (decimal.Decimal, []string) {
	switch promo.Type {
	case model.TypeCoupon, model.TypeAutomatic:
		// Only order-level application is defined for these two types.
		if promo.ApplyTo != model.ApplyToOrder {
			return decimal.Zero, nil
		}
		return c.orderDiscount(promo, subtotal), nil

	case model.TypeCartDiscount, model.TypeCustomerSpecific:
		// Customer gating happens before calculation; here both behave as an
		// order-level discount.
		return c.orderDiscount(promo, subtotal), nil

	case model.TypeProductDiscount:
		// Targeted discounts require explicit targets: without them no line
		// matches. Only BOGO treats an empty set as matching every line.
		if len(promo.ProductIDs) == 0 {
			return decimal.Zero, nil
		}
		return c.lineDiscount(promo, items, func(item model.CartItem) bool {
			return promo.MatchesProduct(item.ProductID)
		})

	case model.TypeCategoryDiscount:
		if len(promo.CategoryIDs) == 0 {
			return decimal.Zero, nil
		}
		return c.lineDiscount(promo, items, func(item model.CartItem) bool {
			return promo.MatchesCategory(item.CategoryID)
		})

	case model.TypeBOGO:
		return c.bogoDiscount(promo, items)

	case model.TypeFreeShipping:
		return decimal.Zero, []string{AppliedToShipping}

	case model.TypeFreeGift:
		// The gift products are configured on the promotion itself. The
		// caller appends them to the cart; the evaluator never mutates it.
		if len(promo.ProductIDs) == 0 {
			return decimal.Zero, nil
		}
		return decimal.Zero, append([]string(nil), promo.ProductIDs...)
	}

	return decimal.Zero, nil
}

// orderDiscount applies percentage or fixed discounts against the subtotal.
//
// PERCENTAGE: subtotal × value/100, capped at max_discount when set.
// FIXED_AMOUNT: min(value, subtotal).
// FIXED_PRICE is computed as FIXED_AMOUNT pending product clarification.
func (c *DiscountCalculator) orderDiscount(promo *model.Promotion, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch promo.DiscountType {
	case model.DiscountPercentage:
		discount = subtotal.Mul(promo.DiscountValue).Div(oneHundred)
		if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
			discount = *promo.MaxDiscount
		}

	case model.DiscountFixedAmount, model.DiscountFixedPrice:
		discount = promo.DiscountValue

	default:
		return decimal.Zero
	}

	return clamp(discount, subtotal)
}

// lineDiscount sums per-line discounts over every cart line the matcher
// accepts, recording the product id of each matched line. No matched line
// means zero discount and no signals.
func (c *DiscountCalculator) lineDiscount(
	promo *model.Promotion,
	items []model.CartItem,
	matches func(model.CartItem) bool,
) (decimal.Decimal, []string) {
	total := decimal.Zero
	var appliedTo []string

	for _, item := range items {
		if !matches(item) {
			continue
		}
		if !promo.MatchesQuantity(item.Quantity) {
			continue
		}

		itemTotal := item.Total()
		var discount decimal.Decimal

		switch promo.DiscountType {
		case model.DiscountPercentage:
			discount = itemTotal.Mul(promo.DiscountValue).Div(oneHundred)
			if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
				discount = *promo.MaxDiscount
			}

		case model.DiscountFixedAmount, model.DiscountFixedPrice:
			discount = promo.DiscountValue.Mul(decimal.NewFromInt(int64(item.Quantity)))

		default:
			continue
		}

		discount = clamp(discount, itemTotal)
		if discount.IsPositive() {
			total = total.Add(discount)
			appliedTo = append(appliedTo, item.ProductID)
		}
	}

	return total.Round(2), appliedTo
}

// bogoDiscount implements buy-X-get-Y on the same line: every full group of
// buyQty+getQty units makes getQty of them free. An empty target product set
// matches every line.
func (c *DiscountCalculator) bogoDiscount(promo *model.Promotion, items []model.CartItem) (decimal.Decimal, []string) {
	if promo.Bogo == nil || promo.Bogo.ApplyTo != model.BogoApplySame {
		// Cross-line BOGO variants have no defined semantics yet.
		return decimal.Zero, nil
	}

	groupSize := promo.Bogo.BuyQty + promo.Bogo.GetQty
	if groupSize <= 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	var appliedTo []string

	for _, item := range items {
		if !promo.MatchesProduct(item.ProductID) {
			continue
		}
		if !promo.MatchesQuantity(item.Quantity) {
			continue
		}

		sets := item.Quantity / groupSize
		if sets == 0 {
			continue
		}

		freeUnits := sets * promo.Bogo.GetQty
		discount := item.Price.Mul(decimal.NewFromInt(int64(freeUnits)))
		discount = clamp(discount, item.Total())

		if discount.IsPositive() {
			total = total.Add(discount)
			appliedTo = append(appliedTo, item.ProductID)
		}
	}

	return total.Round(2), appliedTo
}

// clamp bounds the discount to [0, base] and rounds to cents.
func clamp(discount, base decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(base) {
		discount = base
	}
	return discount.Round(2)
}
