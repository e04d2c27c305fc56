package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-backend/internal/domains/promotion/model"
	"storefront-backend/internal/domains/promotion/service"
	"storefront-backend/internal/shared/response"
	"storefront-backend/pkg/logger"
)

// PublicHandler handles the storefront-facing promotion endpoints.
type PublicHandler struct {
	service service.ServiceInterface
}

// NewPublicHandler creates a handler instance.
func NewPublicHandler(promotionService service.ServiceInterface) *PublicHandler {
	return &PublicHandler{service: promotionService}
}

// ValidateCoupon checks a coupon code against the submitted cart.
//
// POST /api/v1/promotions/validate
//
// A rejected coupon is still a 200: the result carries success=false plus a
// customer-facing message. Only malformed input and storage failures map to
// error statuses.
func (h *PublicHandler) ValidateCoupon(c *gin.Context) {
	var req model.ValidateCouponRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err.Error())
		return
	}

	if !h.subtotalMatches(c, req.Items, req.Subtotal) {
		return
	}

	userID := getUserIDFromContext(c)

	result, err := h.service.ValidateCouponCode(c.Request.Context(), &req, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// AutomaticPromotions evaluates automatic promotions for a cart.
//
// POST /api/v1/promotions/automatic
func (h *PublicHandler) AutomaticPromotions(c *gin.Context) {
	var req model.AutomaticPromotionsRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err.Error())
		return
	}

	if !h.subtotalMatches(c, req.Items, req.Subtotal) {
		return
	}

	userID := getUserIDFromContext(c)

	results, err := h.service.GetActiveAutomaticPromotions(c.Request.Context(), &req, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	totalDiscount := decimal.Zero
	for _, r := range results {
		totalDiscount = totalDiscount.Add(r.Discount)
	}

	response.Success(c, http.StatusOK, gin.H{
		"results":        results,
		"total_discount": totalDiscount,
	})
}

// ListPromotions lists currently eligible storefront promotions.
//
// GET /api/v1/promotions
func (h *PublicHandler) ListPromotions(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 20)

	promotions, total, err := h.service.ListPublicPromotions(c.Request.Context(), page, limit)
	if err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, promotions, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// subtotalMatches rejects requests whose declared subtotal disagrees with the
// submitted lines, so a tampered subtotal cannot inflate a discount.
func (h *PublicHandler) subtotalMatches(c *gin.Context, items []model.CartItem, subtotal decimal.Decimal) bool {
	if model.Subtotal(items).Equal(subtotal) {
		return true
	}
	response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeSubtotalMismatch), "subtotal does not match cart items")
	return false
}

// -------------------------------------------------------------------
// SHARED HELPERS
// -------------------------------------------------------------------

// handleError maps business errors to their HTTP status and hides storage
// failures behind a 500. A broken database must never read as "invalid
// coupon".
func handleError(c *gin.Context, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		response.ErrorWithDetails(c, appErr.HTTPStatus, string(appErr.Code), appErr.Message, appErr.Details)
		return
	}

	logger.Error("promotion request failed", err)
	response.ErrorResponse(c, http.StatusInternalServerError, string(model.ErrCodeInternalError), "internal server error")
}

// getUserIDFromContext reads the user id the auth middleware stored, if any.
func getUserIDFromContext(c *gin.Context) *uuid.UUID {
	value, exists := c.Get("user_id")
	if !exists {
		return nil
	}

	switch v := value.(type) {
	case uuid.UUID:
		return &v
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil
		}
		return &id
	default:
		return nil
	}
}

// parseIntQuery parses an integer query param with a default value.
func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
