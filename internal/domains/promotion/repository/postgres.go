package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/promotion/model"
)

// PostgresRepository implements PromotionRepository on PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance.
func NewPostgresRepository(db *pgxpool.Pool) PromotionRepository {
	return &PostgresRepository{db: db}
}

// promotionColumns is the canonical column list, matched by scanPromotion.
const promotionColumns = `
	id, code, name, description,
	type, discount_type, discount_value, max_discount,
	apply_to, product_ids, category_ids, customer_ids,
	bogo_buy_qty, bogo_get_qty, bogo_apply_to,
	min_purchase, min_quantity, max_quantity,
	usage_limit, usage_count, per_user_limit,
	starts_at, expires_at, priority, can_stack,
	is_active, is_public, show_on_website,
	is_ai_generated, tags, internal_notes,
	version, created_at, updated_at`

// activeWhere is the base predicate: active, inside the validity window, not
// deleted. It deliberately excludes the usage cap so the code lookup can
// surface exhausted coupons with their own rejection message.
const activeWhere = `
	deleted_at IS NULL
	AND is_active = true
	AND starts_at <= NOW()
	AND expires_at >= NOW()`

// eligibleWhere adds the usage cap for automatic evaluation and storefront
// listings, where exhausted promotions are simply invisible.
const eligibleWhere = activeWhere + `
	AND (usage_limit IS NULL OR usage_count < usage_limit)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPromotion(row rowScanner) (*model.Promotion, error) {
	var p model.Promotion
	var bogoBuyQty, bogoGetQty *int
	var bogoApplyTo *string

	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Description,
		&p.Type,
		&p.DiscountType,
		&p.DiscountValue,
		&p.MaxDiscount,
		&p.ApplyTo,
		&p.ProductIDs,
		&p.CategoryIDs,
		&p.CustomerIDs,
		&bogoBuyQty,
		&bogoGetQty,
		&bogoApplyTo,
		&p.MinPurchase,
		&p.MinQuantity,
		&p.MaxQuantity,
		&p.UsageLimit,
		&p.UsageCount,
		&p.PerUserLimit,
		&p.StartsAt,
		&p.ExpiresAt,
		&p.Priority,
		&p.CanStack,
		&p.IsActive,
		&p.IsPublic,
		&p.ShowOnWebsite,
		&p.IsAIGenerated,
		&p.Tags,
		&p.InternalNotes,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bogoBuyQty != nil && bogoGetQty != nil {
		applyTo := model.BogoApplySame
		if bogoApplyTo != nil {
			applyTo = *bogoApplyTo
		}
		p.Bogo = &model.BogoConfig{
			BuyQty:  *bogoBuyQty,
			GetQty:  *bogoGetQty,
			ApplyTo: applyTo,
		}
	}

	return &p, nil
}

func scanPromotions(rows pgx.Rows) ([]*model.Promotion, error) {
	defer rows.Close()

	var promotions []*model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return promotions, nil
}

func bogoColumns(p *model.Promotion) (buyQty, getQty *int, applyTo *string) {
	if p.Bogo == nil {
		return nil, nil, nil
	}
	return &p.Bogo.BuyQty, &p.Bogo.GetQty, &p.Bogo.ApplyTo
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// -------------------------------------------------------------------
// EVALUATION READS
// -------------------------------------------------------------------

// FindActiveByCode returns the active, in-window promotion with the given
// code. Exhausted promotions are still returned; the service checks the usage
// cap itself so the rejection message can name the limit. Codes are stored
// upper-case; the caller normalizes before lookup.
func (r *PostgresRepository) FindActiveByCode(ctx context.Context, code string) (*model.Promotion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE code = $1 AND %s
	`, promotionColumns, activeWhere)

	p, err := scanPromotion(r.db.QueryRow(ctx, query, model.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find active promotion by code: %w", err)
	}

	return p, nil
}

// FindEligibleAutomatic returns eligible automatic-candidate promotions in
// priority order. The created_at tie-break keeps the order stable between
// equal priorities.
func (r *PostgresRepository) FindEligibleAutomatic(ctx context.Context) ([]*model.Promotion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE type IN ($1, $2, $3) AND %s
		ORDER BY priority DESC, created_at ASC
	`, promotionColumns, eligibleWhere)

	rows, err := r.db.Query(ctx, query, model.TypeAutomatic, model.TypeBOGO, model.TypeFreeGift)
	if err != nil {
		return nil, fmt.Errorf("find eligible automatic promotions: %w", err)
	}

	promotions, err := scanPromotions(rows)
	if err != nil {
		return nil, fmt.Errorf("scan automatic promotions: %w", err)
	}

	return promotions, nil
}

// CountUsageByUser counts recorded redemptions of one promotion by one user.
func (r *PostgresRepository) CountUsageByUser(ctx context.Context, promoID, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM promotion_usage
		WHERE promotion_id = $1 AND user_id = $2
	`

	var count int
	err := r.db.QueryRow(ctx, query, promoID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usage by user: %w", err)
	}

	return count, nil
}

// -------------------------------------------------------------------
// USAGE RECORDING
// -------------------------------------------------------------------

// ConditionalIncrementUsage bumps usage_count only while the limit allows it.
// Zero rows affected means the promotion is exhausted (or gone); the caller
// rolls the transaction back so no ledger row survives.
func (r *PostgresRepository) ConditionalIncrementUsage(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) (bool, error) {
	query := `
		UPDATE promotions
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND (usage_limit IS NULL OR usage_count < usage_limit)
	`

	result, err := tx.Exec(ctx, query, promoID)
	if err != nil {
		return false, fmt.Errorf("increment promotion usage: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// CreateUsage appends one ledger row. The unique (promotion_id, order_id)
// constraint rejects double recording for the same order.
func (r *PostgresRepository) CreateUsage(ctx context.Context, tx pgx.Tx, usage *model.PromotionUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}

	query := `
		INSERT INTO promotion_usage (
			id, promotion_id, user_id, order_id,
			discount_amount, cart_value, order_total, used_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
		RETURNING used_at
	`

	err := tx.QueryRow(ctx, query,
		usage.ID,
		usage.PromotionID,
		usage.UserID,
		usage.OrderID,
		usage.DiscountAmount,
		usage.CartValue,
		usage.OrderTotal,
	).Scan(&usage.UsedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrPromotionDuplicateUsage
		}
		return fmt.Errorf("create promotion usage: %w", err)
	}

	return nil
}

// -------------------------------------------------------------------
// USAGE REPORTING
// -------------------------------------------------------------------

// GetUsageHistory returns the redemption ledger for one promotion, newest
// first, optionally windowed by date and filtered by user.
func (r *PostgresRepository) GetUsageHistory(
	ctx context.Context,
	promoID uuid.UUID,
	startDate, endDate *time.Time,
	userID *uuid.UUID,
	page, limit int,
) ([]*model.PromotionUsage, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	whereClauses := []string{"promotion_id = $1"}
	args := []interface{}{promoID}
	argIndex := 2

	if startDate != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("used_at >= $%d", argIndex))
		args = append(args, *startDate)
		argIndex++
	}

	if endDate != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("used_at <= $%d", argIndex))
		args = append(args, *endDate)
		argIndex++
	}

	if userID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *userID)
		argIndex++
	}

	whereSQL := strings.Join(whereClauses, " AND ")

	query := fmt.Sprintf(`
		SELECT id, promotion_id, user_id, order_id,
		       discount_amount, cart_value, order_total, used_at
		FROM promotion_usage
		WHERE %s
		ORDER BY used_at DESC
		LIMIT $%d OFFSET $%d
	`, whereSQL, argIndex, argIndex+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("get usage history: %w", err)
	}
	defer rows.Close()

	var usages []*model.PromotionUsage
	for rows.Next() {
		var u model.PromotionUsage
		err := rows.Scan(
			&u.ID,
			&u.PromotionID,
			&u.UserID,
			&u.OrderID,
			&u.DiscountAmount,
			&u.CartValue,
			&u.OrderTotal,
			&u.UsedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan usage row: %w", err)
		}
		usages = append(usages, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate usage rows: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM promotion_usage WHERE %s", whereSQL)
	countArgs := args[:len(args)-2]

	var total int
	err = r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count usage history: %w", err)
	}

	return usages, total, nil
}

// GetUsageStats aggregates the ledger for one promotion.
func (r *PostgresRepository) GetUsageStats(
	ctx context.Context,
	promoID uuid.UUID,
	startDate, endDate *time.Time,
) (*model.UsageStats, error) {
	whereClauses := []string{"promotion_id = $1"}
	args := []interface{}{promoID}
	argIndex := 2

	if startDate != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("used_at >= $%d", argIndex))
		args = append(args, *startDate)
		argIndex++
	}

	if endDate != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("used_at <= $%d", argIndex))
		args = append(args, *endDate)
		argIndex++
	}

	whereSQL := strings.Join(whereClauses, " AND ")

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) AS total_uses,
			COALESCE(SUM(discount_amount), 0) AS total_discount_given,
			COALESCE(AVG(discount_amount), 0) AS average_discount,
			COUNT(DISTINCT user_id) AS unique_users
		FROM promotion_usage
		WHERE %s
	`, whereSQL)

	var stats model.UsageStats
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&stats.TotalUses,
		&stats.TotalDiscountGiven,
		&stats.AverageDiscount,
		&stats.UniqueUsers,
	)
	if err != nil {
		return nil, fmt.Errorf("get usage stats: %w", err)
	}

	return &stats, nil
}

// -------------------------------------------------------------------
// ADMIN READS
// -------------------------------------------------------------------

// FindByID finds a promotion regardless of state.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE id = $1 AND deleted_at IS NULL
	`, promotionColumns)

	p, err := scanPromotion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by id: %w", err)
	}

	return p, nil
}

// FindByCode finds a promotion by code regardless of state.
func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE code = $1 AND deleted_at IS NULL
	`, promotionColumns)

	p, err := scanPromotion(r.db.QueryRow(ctx, query, model.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by code: %w", err)
	}

	return p, nil
}

// ListAdmin returns a filtered page of promotions plus the total count.
func (r *PostgresRepository) ListAdmin(ctx context.Context, filter *model.ListFilter) ([]*model.Promotion, int, error) {
	filter.Normalize()

	whereClauses := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	argIndex := 1

	if filter.Type != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, *filter.Type)
		argIndex++
	}

	if filter.IsActive != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	if filter.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)",
			argIndex, argIndex,
		))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		argIndex++
	}

	whereSQL := strings.Join(whereClauses, " AND ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE %s
		ORDER BY priority DESC, created_at ASC
		LIMIT $%d OFFSET $%d
	`, promotionColumns, whereSQL, argIndex, argIndex+1)

	args = append(args, filter.PageSize, filter.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list admin promotions: %w", err)
	}

	promotions, err := scanPromotions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan admin promotions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM promotions WHERE %s", whereSQL)
	countArgs := args[:len(args)-2]

	var total int
	err = r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count admin promotions: %w", err)
	}

	return promotions, total, nil
}

// ListPublic returns currently eligible promotions flagged for the storefront.
func (r *PostgresRepository) ListPublic(ctx context.Context, page, limit int) ([]*model.Promotion, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`
		SELECT %s
		FROM promotions
		WHERE is_public = true AND show_on_website = true AND %s
		ORDER BY priority DESC, created_at ASC
		LIMIT $1 OFFSET $2
	`, promotionColumns, eligibleWhere)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list public promotions: %w", err)
	}

	promotions, err := scanPromotions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan public promotions: %w", err)
	}

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM promotions
		WHERE is_public = true AND show_on_website = true AND %s
	`, eligibleWhere)

	var total int
	err = r.db.QueryRow(ctx, countQuery).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count public promotions: %w", err)
	}

	return promotions, total, nil
}

// CheckCodeExists reports whether the code is already taken, optionally
// excluding one promotion (for updates).
func (r *PostgresRepository) CheckCodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	query := "SELECT EXISTS(SELECT 1 FROM promotions WHERE code = $1 AND deleted_at IS NULL"
	args := []interface{}{model.NormalizeCode(code)}

	if excludeID != nil {
		query += " AND id != $2"
		args = append(args, *excludeID)
	}

	query += ")"

	var exists bool
	err := r.db.QueryRow(ctx, query, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code exists: %w", err)
	}

	return exists, nil
}

// -------------------------------------------------------------------
// ADMIN WRITES
// -------------------------------------------------------------------

// Create inserts a new promotion.
func (r *PostgresRepository) Create(ctx context.Context, promo *model.Promotion) error {
	promo.NormalizeCode()
	buyQty, getQty, bogoApplyTo := bogoColumns(promo)

	query := `
		INSERT INTO promotions (
			id, code, name, description,
			type, discount_type, discount_value, max_discount,
			apply_to, product_ids, category_ids, customer_ids,
			bogo_buy_qty, bogo_get_qty, bogo_apply_to,
			min_purchase, min_quantity, max_quantity,
			usage_limit, usage_count, per_user_limit,
			starts_at, expires_at, priority, can_stack,
			is_active, is_public, show_on_website,
			is_ai_generated, tags, internal_notes,
			version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, 1, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		promo.ID,
		promo.Code,
		promo.Name,
		promo.Description,
		promo.Type,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MaxDiscount,
		promo.ApplyTo,
		promo.ProductIDs,
		promo.CategoryIDs,
		promo.CustomerIDs,
		buyQty,
		getQty,
		bogoApplyTo,
		promo.MinPurchase,
		promo.MinQuantity,
		promo.MaxQuantity,
		promo.UsageLimit,
		promo.UsageCount,
		promo.PerUserLimit,
		promo.StartsAt,
		promo.ExpiresAt,
		promo.Priority,
		promo.CanStack,
		promo.IsActive,
		promo.IsPublic,
		promo.ShowOnWebsite,
		promo.IsAIGenerated,
		promo.Tags,
		promo.InternalNotes,
	).Scan(&promo.CreatedAt, &promo.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrPromotionCodeExists
		}
		return fmt.Errorf("create promotion: %w", err)
	}

	promo.Version = 1

	return nil
}

// Update persists a full promotion row with optimistic locking. A version
// mismatch surfaces as ErrPromotionUpdateConflict.
func (r *PostgresRepository) Update(ctx context.Context, promo *model.Promotion) error {
	promo.NormalizeCode()
	buyQty, getQty, bogoApplyTo := bogoColumns(promo)

	query := `
		UPDATE promotions
		SET
			code = $2,
			name = $3,
			description = $4,
			discount_type = $5,
			discount_value = $6,
			max_discount = $7,
			apply_to = $8,
			product_ids = $9,
			category_ids = $10,
			customer_ids = $11,
			bogo_buy_qty = $12,
			bogo_get_qty = $13,
			bogo_apply_to = $14,
			min_purchase = $15,
			min_quantity = $16,
			max_quantity = $17,
			usage_limit = $18,
			per_user_limit = $19,
			starts_at = $20,
			expires_at = $21,
			priority = $22,
			can_stack = $23,
			is_public = $24,
			show_on_website = $25,
			tags = $26,
			internal_notes = $27,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $28 AND deleted_at IS NULL
		RETURNING version, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		promo.ID,
		promo.Code,
		promo.Name,
		promo.Description,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MaxDiscount,
		promo.ApplyTo,
		promo.ProductIDs,
		promo.CategoryIDs,
		promo.CustomerIDs,
		buyQty,
		getQty,
		bogoApplyTo,
		promo.MinPurchase,
		promo.MinQuantity,
		promo.MaxQuantity,
		promo.UsageLimit,
		promo.PerUserLimit,
		promo.StartsAt,
		promo.ExpiresAt,
		promo.Priority,
		promo.CanStack,
		promo.IsPublic,
		promo.ShowOnWebsite,
		promo.Tags,
		promo.InternalNotes,
		promo.Version,
	).Scan(&promo.Version, &promo.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrPromotionUpdateConflict
		}
		if isUniqueViolation(err) {
			return model.ErrPromotionCodeExists
		}
		return fmt.Errorf("update promotion: %w", err)
	}

	return nil
}

// UpdateStatus toggles is_active.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool) error {
	query := `
		UPDATE promotions
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, id, isActive)
	if err != nil {
		return fmt.Errorf("update promotion status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPromotionNotFound
	}

	return nil
}

// SoftDelete marks a promotion deleted. Promotions with recorded usages are
// kept for the ledger's sake and refused.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	var usageCount int
	err := r.db.QueryRow(ctx,
		"SELECT usage_count FROM promotions WHERE id = $1 AND deleted_at IS NULL", id,
	).Scan(&usageCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrPromotionNotFound
		}
		return fmt.Errorf("check promotion usage: %w", err)
	}

	if usageCount > 0 {
		return model.ErrPromotionHasUsages
	}

	query := `
		UPDATE promotions
		SET deleted_at = NOW(), is_active = false, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	_, err = r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete promotion: %w", err)
	}

	return nil
}

// -------------------------------------------------------------------
// HYGIENE
// -------------------------------------------------------------------

// DeactivateExpired flips is_active off for promotions past their window and
// returns the number of rows touched.
func (r *PostgresRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE promotions
		SET is_active = false, updated_at = NOW()
		WHERE is_active = true
		  AND expires_at < NOW()
		  AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired promotions: %w", err)
	}

	return result.RowsAffected(), nil
}
