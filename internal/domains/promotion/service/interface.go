package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/promotion/model"
)

// ServiceInterface defines promotion business logic.
type ServiceInterface interface {
	// Evaluation (storefront)
	ValidateCouponCode(ctx context.Context, req *model.ValidateCouponRequest, userID *uuid.UUID) (*model.PromotionResult, error)
	GetActiveAutomaticPromotions(ctx context.Context, req *model.AutomaticPromotionsRequest, userID *uuid.UUID) ([]model.PromotionResult, error)
	ListPublicPromotions(ctx context.Context, page, limit int) ([]*model.Promotion, int, error)

	// Redemption (order-finalization hook)
	RecordUsage(ctx context.Context, promoID uuid.UUID, req *model.RecordUsageRequest) (*model.PromotionUsage, error)

	// Admin
	CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error)
	GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.PromotionDetail, error)
	ListPromotions(ctx context.Context, filter *model.ListFilter) (*model.PromotionList, error)
	UpdatePromotion(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.Promotion, error)
	UpdatePromotionStatus(ctx context.Context, id uuid.UUID, isActive bool) error
	DeletePromotion(ctx context.Context, id uuid.UUID) error
	GetUsageHistory(ctx context.Context, promoID uuid.UUID, startDate, endDate *time.Time, userID *uuid.UUID, page, limit int) (*model.UsageHistory, error)

	// Hygiene (worker)
	DeactivateExpired(ctx context.Context) (int64, error)
}
