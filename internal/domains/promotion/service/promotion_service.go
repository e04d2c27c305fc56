package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/promotion/model"
	"storefront-backend/internal/domains/promotion/repository"
	"storefront-backend/pkg/cache"
	"storefront-backend/pkg/database"
	"storefront-backend/pkg/logger"
)

const (
	// automaticPromotionsCacheKey holds the eligible automatic-candidate list.
	// Short TTL: eligibility depends on NOW() and usage counts.
	automaticPromotionsCacheKey = "promotions:automatic:eligible"
	automaticPromotionsCacheTTL = 1 * time.Minute
)

type promotionService struct {
	repo       repository.PromotionRepository
	calculator *DiscountCalculator
	cache      cache.Cache

	// runInTx wraps redemption writes in a transaction. Injected so tests
	// can run without a pool.
	runInTx func(ctx context.Context, fn database.TxFunc) error
}

// NewPromotionService creates a new service instance.
func NewPromotionService(
	repo repository.PromotionRepository,
	pool *pgxpool.Pool,
	c cache.Cache,
) ServiceInterface {
	return &promotionService{
		repo:       repo,
		calculator: NewDiscountCalculator(),
		cache:      c,
		runInTx: func(ctx context.Context, fn database.TxFunc) error {
			return database.WithTransaction(ctx, pool, fn)
		},
	}
}

// -------------------------------------------------------------------
// EVALUATION (Storefront)
// -------------------------------------------------------------------

// ValidateCouponCode validates a coupon code against the submitted cart.
//
// Flow:
// 1. Find an eligible promotion by normalized code
// 2. Check the global usage limit
// 3. Check customer-set membership (customer-specific coupons)
// 4. Check the per-user limit against the ledger (authenticated users only)
// 5. Check minimum purchase
// 6. Calculate the discount and build the result
//
// Every rejection is a failed PromotionResult with a distinct message, never
// an error. Errors are reserved for storage failures.
func (s *promotionService) ValidateCouponCode(
	ctx context.Context,
	req *model.ValidateCouponRequest,
	userID *uuid.UUID,
) (*model.PromotionResult, error) {
	code := model.NormalizeCode(req.Code)

	// Step 1: Find the promotion by normalized code. The query enforces the
	// active/window invariant but not the usage cap, so exhausted codes reach
	// step 2 instead of collapsing into a generic not-found.
	promo, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrPromotionNotFound) {
			result := model.FailedResult(model.ErrCodePromoNotFound, "Invalid or expired coupon code")
			return &result, nil
		}
		return nil, fmt.Errorf("find promotion by code: %w", err)
	}

	// Step 2: Global usage limit.
	if promo.IsUsageLimitReached() {
		result := model.FailedResult(model.ErrCodePromoUsageLimitReached, "This coupon has reached its usage limit")
		return &result, nil
	}

	// Step 3: Customer-set membership.
	if !promo.IsCustomerEligible(userID) {
		result := model.FailedResult(model.ErrCodePromoNotApplicable, "This coupon is not available for your account")
		return &result, nil
	}

	// Step 4: Per-user limit, enforced against the ledger.
	if userID != nil && *userID != uuid.Nil && promo.PerUserLimit != nil {
		used, err := s.repo.CountUsageByUser(ctx, promo.ID, *userID)
		if err != nil {
			return nil, fmt.Errorf("count usage by user: %w", err)
		}
		if used >= *promo.PerUserLimit {
			result := model.FailedResult(
				model.ErrCodePromoUserLimitReached,
				fmt.Sprintf("You have already used this coupon %d times, the maximum allowed", used),
			)
			return &result, nil
		}
	}

	// Step 5: Minimum purchase.
	if promo.MinPurchase != nil && req.Subtotal.LessThan(*promo.MinPurchase) {
		result := model.FailedResult(
			model.ErrCodePromoMinPurchaseNotMet,
			fmt.Sprintf("A minimum purchase of $%s is required to use this coupon", promo.MinPurchase.StringFixed(2)),
		)
		return &result, nil
	}

	// Step 6: Calculate.
	discount, appliedTo := s.calculator.Calculate(promo, req.Items, req.Subtotal)

	// Free-shipping and free-gift coupons apply with zero monetary discount;
	// their applied-to signals are the whole point.
	if !discount.IsPositive() && len(appliedTo) == 0 {
		result := model.FailedResult(model.ErrCodePromoNotApplicable, "Coupon does not apply to your cart")
		return &result, nil
	}

	return &model.PromotionResult{
		Success:   true,
		Promotion: promo,
		Discount:  discount,
		Message:   fmt.Sprintf("Coupon applied! You saved $%s", discount.StringFixed(2)),
		AppliedTo: appliedTo,
	}, nil
}

// GetActiveAutomaticPromotions evaluates code-less promotions against the
// cart, highest priority first.
//
// Flow per promotion:
// - Skip when minimum purchase is unmet
// - Skip when the promotion restricts customers and the user is not a member
// - Calculate; applicable promotions are appended as success results
// - A non-stacking success stops the pass (first match wins, not best
//   discount; priority is the authoring knob)
func (s *promotionService) GetActiveAutomaticPromotions(
	ctx context.Context,
	req *model.AutomaticPromotionsRequest,
	userID *uuid.UUID,
) ([]model.PromotionResult, error) {
	promotions, err := s.eligibleAutomaticPromotions(ctx)
	if err != nil {
		return nil, err
	}

	var results []model.PromotionResult
	for _, promo := range promotions {
		if promo.MinPurchase != nil && req.Subtotal.LessThan(*promo.MinPurchase) {
			continue
		}
		if promo.RestrictsCustomers() && !promo.IsCustomerEligible(userID) {
			continue
		}

		discount, appliedTo := s.calculator.Calculate(promo, req.Items, req.Subtotal)
		if !discount.IsPositive() && len(appliedTo) == 0 {
			continue
		}

		results = append(results, model.PromotionResult{
			Success:   true,
			Promotion: promo,
			Discount:  discount,
			Message:   fmt.Sprintf("Promotion applied: %s", promo.Name),
			AppliedTo: appliedTo,
		})

		if !promo.CanStack {
			break
		}
	}

	return results, nil
}

// eligibleAutomaticPromotions loads the priority-ordered candidate list,
// serving from cache when possible. Cache failures degrade to the database.
func (s *promotionService) eligibleAutomaticPromotions(ctx context.Context) ([]*model.Promotion, error) {
	if s.cache != nil {
		var cached []*model.Promotion
		found, err := s.cache.Get(ctx, automaticPromotionsCacheKey, &cached)
		if err != nil {
			logger.Warn("automatic promotions cache read failed", err)
		}
		if found {
			return cached, nil
		}
	}

	promotions, err := s.repo.FindEligibleAutomatic(ctx)
	if err != nil {
		return nil, fmt.Errorf("find eligible automatic promotions: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, automaticPromotionsCacheKey, promotions, automaticPromotionsCacheTTL); err != nil {
			logger.Warn("automatic promotions cache write failed", err)
		}
	}

	return promotions, nil
}

// invalidateAutomaticCache drops the cached candidate list after any write
// that can change eligibility or ordering.
func (s *promotionService) invalidateAutomaticCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, automaticPromotionsCacheKey); err != nil {
		logger.Warn("automatic promotions cache invalidation failed", err)
	}
}

// ListPublicPromotions lists currently eligible storefront promotions.
func (s *promotionService) ListPublicPromotions(ctx context.Context, page, limit int) ([]*model.Promotion, int, error) {
	return s.repo.ListPublic(ctx, page, limit)
}

// -------------------------------------------------------------------
// REDEMPTION
// -------------------------------------------------------------------

// RecordUsage appends one ledger row and bumps usage_count in a single
// transaction. The increment is conditional on the usage limit: when the
// promotion is exhausted the transaction rolls back and no ledger row
// survives, so two concurrent checkouts cannot over-redeem.
func (s *promotionService) RecordUsage(
	ctx context.Context,
	promoID uuid.UUID,
	req *model.RecordUsageRequest,
) (*model.PromotionUsage, error) {
	promo, err := s.repo.FindByID(ctx, promoID)
	if err != nil {
		return nil, err
	}

	if req.UserID != nil && promo.PerUserLimit != nil {
		used, err := s.repo.CountUsageByUser(ctx, promo.ID, *req.UserID)
		if err != nil {
			return nil, fmt.Errorf("count usage by user: %w", err)
		}
		if used >= *promo.PerUserLimit {
			return nil, &model.AppError{
				Code:       model.ErrCodePromoUserLimitReached,
				Message:    "per-user limit reached for this promotion",
				HTTPStatus: 409,
			}
		}
	}

	usage := &model.PromotionUsage{
		PromotionID:    promo.ID,
		UserID:         req.UserID,
		OrderID:        req.OrderID,
		DiscountAmount: req.DiscountAmount,
		CartValue:      req.CartValue,
		OrderTotal:     req.OrderTotal,
	}

	err = s.runInTx(ctx, func(tx pgx.Tx) error {
		ok, err := s.repo.ConditionalIncrementUsage(ctx, tx, promo.ID)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrPromotionExhausted
		}
		return s.repo.CreateUsage(ctx, tx, usage)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAutomaticCache(ctx)

	logger.Info("promotion usage recorded", map[string]interface{}{
		"promotion_id": promo.ID,
		"order_id":     usage.OrderID,
		"discount":     usage.DiscountAmount,
	})

	return usage, nil
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

// CreatePromotion creates a promotion after structural validation and a
// duplicate-code check.
func (s *promotionService) CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error) {
	promo := req.ToModel()

	if err := promo.Validate(); err != nil {
		return nil, &model.AppError{
			Code:       model.ErrCodeValidationFailed,
			Message:    err.Error(),
			HTTPStatus: 400,
		}
	}

	if promo.Code != "" {
		exists, err := s.repo.CheckCodeExists(ctx, promo.Code, nil)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, model.ErrPromotionCodeExists
		}
	}

	if err := s.repo.Create(ctx, promo); err != nil {
		return nil, err
	}

	s.invalidateAutomaticCache(ctx)

	return promo, nil
}

// GetPromotionByID returns the promotion with its ledger aggregates. A
// failed aggregate query degrades to the promotion alone.
func (s *promotionService) GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.PromotionDetail, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.GetUsageStats(ctx, id, nil, nil)
	if err != nil {
		logger.Warn("usage stats unavailable", err)
		stats = nil
	}

	return &model.PromotionDetail{Promotion: promo, Stats: stats}, nil
}

// ListPromotions returns a filtered admin page.
func (s *promotionService) ListPromotions(ctx context.Context, filter *model.ListFilter) (*model.PromotionList, error) {
	filter.Normalize()

	items, total, err := s.repo.ListAdmin(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + filter.PageSize - 1) / filter.PageSize

	return &model.PromotionList{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdatePromotion patches a promotion under optimistic locking. The caller
// sends the version it read; a mismatch surfaces as an update conflict.
func (s *promotionService) UpdatePromotion(
	ctx context.Context,
	id uuid.UUID,
	req *model.UpdatePromotionRequest,
) (*model.Promotion, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	req.Apply(&updated)
	updated.Version = req.Version

	if err := updated.Validate(); err != nil {
		return nil, &model.AppError{
			Code:       model.ErrCodeValidationFailed,
			Message:    err.Error(),
			HTTPStatus: 400,
		}
	}

	// Shrinking the cap below what was already redeemed would make every
	// future eligibility check fail confusingly.
	if updated.UsageLimit != nil && *updated.UsageLimit < existing.UsageCount {
		return nil, &model.AppError{
			Code:       model.ErrCodeValidationFailed,
			Message:    "usage_limit cannot be lower than the current usage count",
			HTTPStatus: 400,
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.invalidateAutomaticCache(ctx)

	return &updated, nil
}

// UpdatePromotionStatus toggles is_active.
func (s *promotionService) UpdatePromotionStatus(ctx context.Context, id uuid.UUID, isActive bool) error {
	if err := s.repo.UpdateStatus(ctx, id, isActive); err != nil {
		return err
	}

	s.invalidateAutomaticCache(ctx)

	return nil
}

// DeletePromotion soft-deletes a promotion. Promotions with recorded usage
// are refused to keep the ledger consistent.
func (s *promotionService) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.invalidateAutomaticCache(ctx)

	return nil
}

// GetUsageHistory returns the redemption ledger plus aggregates for one
// promotion.
func (s *promotionService) GetUsageHistory(
	ctx context.Context,
	promoID uuid.UUID,
	startDate, endDate *time.Time,
	userID *uuid.UUID,
	page, limit int,
) (*model.UsageHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	promo, err := s.repo.FindByID(ctx, promoID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.GetUsageStats(ctx, promoID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	usages, total, err := s.repo.GetUsageHistory(ctx, promoID, startDate, endDate, userID, page, limit)
	if err != nil {
		return nil, err
	}

	return &model.UsageHistory{
		Promotion: promo,
		Stats:     stats,
		Usages:    usages,
		Total:     total,
	}, nil
}

// -------------------------------------------------------------------
// HYGIENE
// -------------------------------------------------------------------

// DeactivateExpired flips is_active off for promotions past their window.
// Called by the background worker.
func (s *promotionService) DeactivateExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.invalidateAutomaticCache(ctx)
	}

	return count, nil
}
