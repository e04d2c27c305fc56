package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"storefront-backend/internal/domains/promotion/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func basePromotion(pType model.PromotionType, dType model.DiscountType, value string) *model.Promotion {
	return &model.Promotion{
		Name:          "Test Promotion",
		Type:          pType,
		DiscountType:  dType,
		DiscountValue: dec(value),
		ApplyTo:       model.ApplyToOrder,
		StartsAt:      time.Now().Add(-time.Hour),
		ExpiresAt:     time.Now().Add(time.Hour),
		IsActive:      true,
	}
}

func TestCalculate_OrderLevel(t *testing.T) {
	calc := NewDiscountCalculator()

	items := []model.CartItem{
		{ProductID: "P1", Price: dec("100.00"), Quantity: 3},
	}
	subtotal := dec("300.00")

	tests := []struct {
		name     string
		promo    *model.Promotion
		expected string
	}{
		{
			name:     "Percentage discount",
			promo:    basePromotion(model.TypeCoupon, model.DiscountPercentage, "10"),
			expected: "30",
		},
		{
			name: "Percentage capped by max discount",
			promo: func() *model.Promotion {
				p := basePromotion(model.TypeCoupon, model.DiscountPercentage, "20")
				p.MaxDiscount = decPtr("50.00")
				return p
			}(),
			expected: "50",
		},
		{
			name:     "Fixed amount",
			promo:    basePromotion(model.TypeCoupon, model.DiscountFixedAmount, "25.00"),
			expected: "25",
		},
		{
			name:     "Fixed amount clamped to subtotal",
			promo:    basePromotion(model.TypeCoupon, model.DiscountFixedAmount, "500.00"),
			expected: "300",
		},
		{
			name:     "Fixed price computed as fixed amount",
			promo:    basePromotion(model.TypeAutomatic, model.DiscountFixedPrice, "15.00"),
			expected: "15",
		},
		{
			name:     "Cart discount ignores apply_to gate",
			promo:    basePromotion(model.TypeCartDiscount, model.DiscountPercentage, "10"),
			expected: "30",
		},
		{
			name:     "Customer specific behaves as order discount",
			promo:    basePromotion(model.TypeCustomerSpecific, model.DiscountFixedAmount, "40.00"),
			expected: "40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, appliedTo := calc.Calculate(tt.promo, items, subtotal)
			assert.True(t, dec(tt.expected).Equal(discount),
				"expected %s, got %s", tt.expected, discount)
			assert.Empty(t, appliedTo)
		})
	}
}

func TestCalculate_CouponRequiresOrderApplyTo(t *testing.T) {
	calc := NewDiscountCalculator()

	promo := basePromotion(model.TypeCoupon, model.DiscountPercentage, "10")
	promo.ApplyTo = model.ApplyToProduct

	discount, appliedTo := calc.Calculate(promo, nil, dec("100.00"))

	assert.True(t, discount.IsZero())
	assert.Empty(t, appliedTo)
}

func TestCalculate_ProductDiscount(t *testing.T) {
	calc := NewDiscountCalculator()

	items := []model.CartItem{
		{ProductID: "P1", Price: dec("5.00"), Quantity: 3},
		{ProductID: "P2", Price: dec("60.00"), Quantity: 1},
	}
	subtotal := model.Subtotal(items)

	t.Run("Only matching lines discounted", func(t *testing.T) {
		promo := basePromotion(model.TypeProductDiscount, model.DiscountPercentage, "100")
		promo.ApplyTo = model.ApplyToProduct
		promo.ProductIDs = []string{"P1"}

		discount, appliedTo := calc.Calculate(promo, items, subtotal)

		assert.True(t, dec("15").Equal(discount), "got %s", discount)
		assert.Equal(t, []string{"P1"}, appliedTo)
	})

	t.Run("Multiple targets cover multiple lines", func(t *testing.T) {
		promo := basePromotion(model.TypeProductDiscount, model.DiscountPercentage, "10")
		promo.ApplyTo = model.ApplyToProduct
		promo.ProductIDs = []string{"P1", "P2"}

		discount, appliedTo := calc.Calculate(promo, items, subtotal)

		assert.True(t, dec("7.5").Equal(discount), "got %s", discount)
		assert.Equal(t, []string{"P1", "P2"}, appliedTo)
	})

	t.Run("Empty target set discounts nothing", func(t *testing.T) {
		promo := basePromotion(model.TypeProductDiscount, model.DiscountPercentage, "10")
		promo.ApplyTo = model.ApplyToProduct

		big := []model.CartItem{
			{ProductID: "P1", Price: dec("100.00"), Quantity: 1},
			{ProductID: "P2", Price: dec("200.00"), Quantity: 1},
		}

		// A product discount with no targets must not discount the whole cart.
		discount, appliedTo := calc.Calculate(promo, big, dec("300.00"))

		assert.True(t, discount.IsZero(), "got %s", discount)
		assert.Empty(t, appliedTo)
	})

	t.Run("Fixed amount per unit clamped to line total", func(t *testing.T) {
		promo := basePromotion(model.TypeProductDiscount, model.DiscountFixedAmount, "10.00")
		promo.ApplyTo = model.ApplyToProduct
		promo.ProductIDs = []string{"P1"}

		// 10.00 x 3 units = 30.00, line total is only 15.00
		discount, appliedTo := calc.Calculate(promo, items, subtotal)

		assert.True(t, dec("15").Equal(discount), "got %s", discount)
		assert.Equal(t, []string{"P1"}, appliedTo)
	})

	t.Run("Quantity bounds gate each line", func(t *testing.T) {
		promo := basePromotion(model.TypeProductDiscount, model.DiscountPercentage, "10")
		promo.ApplyTo = model.ApplyToProduct
		promo.ProductIDs = []string{"P1", "P2"}
		promo.MinQuantity = intPtr(2)

		// Only P1 (qty 3) passes the min-quantity bound.
		discount, appliedTo := calc.Calculate(promo, items, subtotal)

		assert.True(t, dec("1.5").Equal(discount), "got %s", discount)
		assert.Equal(t, []string{"P1"}, appliedTo)
	})

	t.Run("No matching line yields zero and no signals", func(t *testing.T) {
		promo := basePromotion(model.TypeProductDiscount, model.DiscountPercentage, "10")
		promo.ApplyTo = model.ApplyToProduct
		promo.ProductIDs = []string{"P9"}

		discount, appliedTo := calc.Calculate(promo, items, subtotal)

		assert.True(t, discount.IsZero())
		assert.Empty(t, appliedTo)
	})
}

func TestCalculate_CategoryDiscount(t *testing.T) {
	calc := NewDiscountCalculator()

	items := []model.CartItem{
		{ProductID: "P1", Price: dec("20.00"), Quantity: 2, CategoryID: "books"},
		{ProductID: "P2", Price: dec("50.00"), Quantity: 1, CategoryID: "games"},
		{ProductID: "P3", Price: dec("10.00"), Quantity: 1},
	}
	subtotal := model.Subtotal(items)

	promo := basePromotion(model.TypeCategoryDiscount, model.DiscountPercentage, "25")
	promo.ApplyTo = model.ApplyToCategory
	promo.CategoryIDs = []string{"books"}

	discount, appliedTo := calc.Calculate(promo, items, subtotal)

	// 25% of the books line (40.00). The uncategorized line never matches a
	// restricted set.
	assert.True(t, dec("10").Equal(discount), "got %s", discount)
	assert.Equal(t, []string{"P1"}, appliedTo)

	t.Run("Empty category set discounts nothing", func(t *testing.T) {
		promo := basePromotion(model.TypeCategoryDiscount, model.DiscountPercentage, "25")
		promo.ApplyTo = model.ApplyToCategory

		discount, appliedTo := calc.Calculate(promo, items, subtotal)

		assert.True(t, discount.IsZero(), "got %s", discount)
		assert.Empty(t, appliedTo)
	})
}

func TestCalculate_Bogo(t *testing.T) {
	calc := NewDiscountCalculator()

	t.Run("Buy 2 get 1 with 7 units", func(t *testing.T) {
		promo := basePromotion(model.TypeBOGO, model.DiscountPercentage, "100")
		promo.Bogo = &model.BogoConfig{BuyQty: 2, GetQty: 1, ApplyTo: model.BogoApplySame}

		items := []model.CartItem{
			{ProductID: "P1", Price: dec("10.00"), Quantity: 7},
		}

		// Group size 3, two full groups, two free units.
		discount, appliedTo := calc.Calculate(promo, items, model.Subtotal(items))

		assert.True(t, dec("20").Equal(discount), "got %s", discount)
		assert.Equal(t, []string{"P1"}, appliedTo)
	})

	t.Run("Quantity below one group", func(t *testing.T) {
		promo := basePromotion(model.TypeBOGO, model.DiscountPercentage, "100")
		promo.Bogo = &model.BogoConfig{BuyQty: 2, GetQty: 1, ApplyTo: model.BogoApplySame}

		items := []model.CartItem{
			{ProductID: "P1", Price: dec("10.00"), Quantity: 2},
		}

		discount, appliedTo := calc.Calculate(promo, items, model.Subtotal(items))

		assert.True(t, discount.IsZero())
		assert.Empty(t, appliedTo)
	})

	t.Run("Restricted to target products", func(t *testing.T) {
		promo := basePromotion(model.TypeBOGO, model.DiscountPercentage, "100")
		promo.Bogo = &model.BogoConfig{BuyQty: 1, GetQty: 1, ApplyTo: model.BogoApplySame}
		promo.ProductIDs = []string{"P2"}

		items := []model.CartItem{
			{ProductID: "P1", Price: dec("10.00"), Quantity: 4},
			{ProductID: "P2", Price: dec("8.00"), Quantity: 2},
		}

		discount, appliedTo := calc.Calculate(promo, items, model.Subtotal(items))

		assert.True(t, dec("8").Equal(discount), "got %s", discount)
		assert.Equal(t, []string{"P2"}, appliedTo)
	})

	t.Run("Missing config yields zero", func(t *testing.T) {
		promo := basePromotion(model.TypeBOGO, model.DiscountPercentage, "100")

		items := []model.CartItem{
			{ProductID: "P1", Price: dec("10.00"), Quantity: 4},
		}

		discount, appliedTo := calc.Calculate(promo, items, model.Subtotal(items))

		assert.True(t, discount.IsZero())
		assert.Empty(t, appliedTo)
	})
}

func TestCalculate_FreeShippingAndGift(t *testing.T) {
	calc := NewDiscountCalculator()

	items := []model.CartItem{
		{ProductID: "P1", Price: dec("10.00"), Quantity: 1},
	}

	t.Run("Free shipping signals without discount", func(t *testing.T) {
		promo := basePromotion(model.TypeFreeShipping, model.DiscountPercentage, "0")

		discount, appliedTo := calc.Calculate(promo, items, dec("10.00"))

		assert.True(t, discount.IsZero())
		assert.Equal(t, []string{AppliedToShipping}, appliedTo)
	})

	t.Run("Free gift signals the gift products", func(t *testing.T) {
		promo := basePromotion(model.TypeFreeGift, model.DiscountPercentage, "0")
		promo.ProductIDs = []string{"GIFT1", "GIFT2"}

		discount, appliedTo := calc.Calculate(promo, items, dec("10.00"))

		assert.True(t, discount.IsZero())
		assert.Equal(t, []string{"GIFT1", "GIFT2"}, appliedTo)
	})

	t.Run("Free gift with no configured products yields nothing", func(t *testing.T) {
		promo := basePromotion(model.TypeFreeGift, model.DiscountPercentage, "0")

		discount, appliedTo := calc.Calculate(promo, items, dec("10.00"))

		assert.True(t, discount.IsZero())
		assert.Empty(t, appliedTo)
	})
}

func TestCalculate_Rounding(t *testing.T) {
	calc := NewDiscountCalculator()

	promo := basePromotion(model.TypeCoupon, model.DiscountPercentage, "15")

	// 15% of 33.33 = 4.9995, rounds to 5.00
	discount, _ := calc.Calculate(promo, nil, dec("33.33"))

	assert.True(t, dec("5.00").Equal(discount), "got %s", discount)
}
