package repository

import (
	"context"
	"time"

	"storefront-backend/internal/domains/promotion/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PromotionRepository defines promotion data access.
type PromotionRepository interface {
	// Evaluation reads. FindActiveByCode does not filter on the usage cap;
	// the service reports exhaustion with a limit-specific rejection.
	FindActiveByCode(ctx context.Context, code string) (*model.Promotion, error)
	FindEligibleAutomatic(ctx context.Context) ([]*model.Promotion, error)
	CountUsageByUser(ctx context.Context, promoID, userID uuid.UUID) (int, error)

	// Usage recording. Both run inside the caller's transaction.
	// ConditionalIncrementUsage returns false when the usage limit is already
	// reached, without writing anything.
	ConditionalIncrementUsage(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) (bool, error)
	CreateUsage(ctx context.Context, tx pgx.Tx, usage *model.PromotionUsage) error

	// Usage reporting
	GetUsageHistory(ctx context.Context, promoID uuid.UUID, startDate, endDate *time.Time, userID *uuid.UUID, page, limit int) ([]*model.PromotionUsage, int, error)
	GetUsageStats(ctx context.Context, promoID uuid.UUID, startDate, endDate *time.Time) (*model.UsageStats, error)

	// Admin reads
	FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	FindByCode(ctx context.Context, code string) (*model.Promotion, error)
	ListAdmin(ctx context.Context, filter *model.ListFilter) ([]*model.Promotion, int, error)
	ListPublic(ctx context.Context, page, limit int) ([]*model.Promotion, int, error)
	CheckCodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error)

	// Admin writes
	Create(ctx context.Context, promo *model.Promotion) error
	Update(ctx context.Context, promo *model.Promotion) error
	UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// Hygiene
	DeactivateExpired(ctx context.Context) (int64, error)
}
