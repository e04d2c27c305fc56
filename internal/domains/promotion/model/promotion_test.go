package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validPromotion() *Promotion {
	return &Promotion{
		ID:            uuid.New(),
		Code:          "SAVE10",
		Name:          "Save 10",
		Type:          TypeCoupon,
		DiscountType:  DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		ApplyTo:       ApplyToOrder,
		StartsAt:      time.Now().Add(-time.Hour),
		ExpiresAt:     time.Now().Add(time.Hour),
		IsActive:      true,
	}
}

func TestIsEligibleAt(t *testing.T) {
	now := time.Now()
	limit := 5

	tests := []struct {
		name     string
		mutate   func(*Promotion)
		expected bool
	}{
		{"Active inside window", func(p *Promotion) {}, true},
		{"Inactive", func(p *Promotion) { p.IsActive = false }, false},
		{"Not started yet", func(p *Promotion) { p.StartsAt = now.Add(time.Hour) }, false},
		{"Already expired", func(p *Promotion) { p.ExpiresAt = now.Add(-time.Minute) }, false},
		{"Exhausted", func(p *Promotion) {
			p.UsageLimit = &limit
			p.UsageCount = 5
		}, false},
		{"Under the cap", func(p *Promotion) {
			p.UsageLimit = &limit
			p.UsageCount = 4
		}, true},
		{"Boundary: starts exactly now", func(p *Promotion) { p.StartsAt = now }, true},
		{"Boundary: expires exactly now", func(p *Promotion) { p.ExpiresAt = now }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPromotion()
			tt.mutate(p)
			assert.Equal(t, tt.expected, p.IsEligibleAt(now))
		})
	}
}

func TestRemainingUses(t *testing.T) {
	p := validPromotion()
	assert.Nil(t, p.RemainingUses())

	limit := 10
	p.UsageLimit = &limit
	p.UsageCount = 7
	assert.Equal(t, 3, *p.RemainingUses())

	// Overshoot must not go negative.
	p.UsageCount = 12
	assert.Equal(t, 0, *p.RemainingUses())
}

func TestIsCustomerEligible(t *testing.T) {
	member := uuid.New()
	other := uuid.New()

	p := validPromotion()
	assert.True(t, p.IsCustomerEligible(nil), "unrestricted accepts guests")
	assert.True(t, p.IsCustomerEligible(&other))

	p.CustomerIDs = []uuid.UUID{member}
	assert.False(t, p.IsCustomerEligible(nil), "restricted rejects guests")
	assert.False(t, p.IsCustomerEligible(&other))
	assert.True(t, p.IsCustomerEligible(&member))

	nilID := uuid.Nil
	assert.False(t, p.IsCustomerEligible(&nilID))
}

func TestMatchers(t *testing.T) {
	p := validPromotion()

	t.Run("Empty product set matches everything", func(t *testing.T) {
		assert.True(t, p.MatchesProduct("anything"))
	})

	t.Run("Restricted product set", func(t *testing.T) {
		p := validPromotion()
		p.ProductIDs = []string{"P1", "P2"}
		assert.True(t, p.MatchesProduct("P1"))
		assert.False(t, p.MatchesProduct("P3"))
	})

	t.Run("Uncategorized line never matches a restricted category set", func(t *testing.T) {
		p := validPromotion()
		p.CategoryIDs = []string{"books"}
		assert.True(t, p.MatchesCategory("books"))
		assert.False(t, p.MatchesCategory("games"))
		assert.False(t, p.MatchesCategory(""))
	})

	t.Run("Quantity bounds", func(t *testing.T) {
		p := validPromotion()
		min, max := 2, 5
		p.MinQuantity = &min
		p.MaxQuantity = &max
		assert.False(t, p.MatchesQuantity(1))
		assert.True(t, p.MatchesQuantity(2))
		assert.True(t, p.MatchesQuantity(5))
		assert.False(t, p.MatchesQuantity(6))
	})
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "", NormalizeCode("   "))

	p := validPromotion()
	p.Code = " welcome "
	p.NormalizeCode()
	assert.Equal(t, "WELCOME", p.Code)
}

func TestPromotionValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Promotion)
		expected error
	}{
		{"Valid promotion", func(p *Promotion) {}, nil},
		{"Unknown type", func(p *Promotion) { p.Type = "mystery" }, ErrInvalidPromotionType},
		{"Unknown discount type", func(p *Promotion) { p.DiscountType = "half_off" }, ErrInvalidDiscountType},
		{"Negative value", func(p *Promotion) { p.DiscountValue = decimal.NewFromInt(-1) }, ErrInvalidDiscountValue},
		{"Percentage over 100", func(p *Promotion) { p.DiscountValue = decimal.NewFromInt(101) }, ErrPercentageTooHigh},
		{"Coupon without code", func(p *Promotion) { p.Code = "" }, ErrCodeRequired},
		{"Inverted window", func(p *Promotion) { p.ExpiresAt = p.StartsAt.Add(-time.Hour) }, ErrInvalidDateRange},
		{"Negative min purchase", func(p *Promotion) {
			neg := decimal.NewFromInt(-5)
			p.MinPurchase = &neg
		}, ErrInvalidMinPurchase},
		{"BOGO without config", func(p *Promotion) { p.Type = TypeBOGO }, ErrInvalidBogoConfig},
		{"BOGO with zero get quantity", func(p *Promotion) {
			p.Type = TypeBOGO
			p.Bogo = &BogoConfig{BuyQty: 2, GetQty: 0, ApplyTo: BogoApplySame}
		}, ErrInvalidBogoConfig},
		{"BOGO with valid config", func(p *Promotion) {
			p.Type = TypeBOGO
			p.Bogo = &BogoConfig{BuyQty: 2, GetQty: 1, ApplyTo: BogoApplySame}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPromotion()
			tt.mutate(p)
			err := p.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}

func TestSubtotal(t *testing.T) {
	items := []CartItem{
		{ProductID: "P1", Price: decimal.RequireFromString("19.99"), Quantity: 2},
		{ProductID: "P2", Price: decimal.RequireFromString("5.00"), Quantity: 3},
	}

	assert.True(t, decimal.RequireFromString("54.98").Equal(Subtotal(items)))
	assert.True(t, Subtotal(nil).IsZero())
}

func TestPromotionTypeHelpers(t *testing.T) {
	assert.True(t, TypeBOGO.IsAutomaticCandidate())
	assert.True(t, TypeAutomatic.IsAutomaticCandidate())
	assert.True(t, TypeFreeGift.IsAutomaticCandidate())
	assert.False(t, TypeCoupon.IsAutomaticCandidate())
	assert.False(t, TypeCartDiscount.IsAutomaticCandidate())

	assert.True(t, TypeCoupon.IsValid())
	assert.False(t, PromotionType("flash_sale").IsValid())
}
