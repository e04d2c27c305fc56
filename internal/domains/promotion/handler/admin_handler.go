package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-backend/internal/domains/promotion/model"
	"storefront-backend/internal/domains/promotion/service"
	"storefront-backend/internal/shared/response"
)

// AdminHandler handles the admin promotion endpoints.
type AdminHandler struct {
	service service.ServiceInterface
}

// NewAdminHandler creates a handler instance.
func NewAdminHandler(promotionService service.ServiceInterface) *AdminHandler {
	return &AdminHandler{service: promotionService}
}

// Create creates a promotion.
//
// POST /api/v1/admin/promotions
func (h *AdminHandler) Create(c *gin.Context) {
	var req model.CreatePromotionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err.Error())
		return
	}

	promo, err := h.service.CreatePromotion(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, promo)
}

// List returns a filtered admin page of promotions.
//
// GET /api/v1/admin/promotions
func (h *AdminHandler) List(c *gin.Context) {
	var filter model.ListFilter

	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid query parameters")
		return
	}

	list, err := h.service.ListPromotions(c.Request.Context(), &filter)
	if err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, list.Items, &response.Meta{
		Page:  list.Page,
		Limit: list.PageSize,
		Total: list.Total,
	})
}

// GetByID returns one promotion with its ledger aggregates.
//
// GET /api/v1/admin/promotions/:id
func (h *AdminHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	detail, err := h.service.GetPromotionByID(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// Update patches a promotion under optimistic locking.
//
// PATCH /api/v1/admin/promotions/:id
func (h *AdminHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req model.UpdatePromotionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err.Error())
		return
	}

	promo, err := h.service.UpdatePromotion(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, promo)
}

// UpdateStatus toggles is_active.
//
// PATCH /api/v1/admin/promotions/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}

	if err := h.service.UpdatePromotionStatus(c.Request.Context(), id, req.IsActive); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "is_active": req.IsActive})
}

// Delete soft-deletes a promotion.
//
// DELETE /api/v1/admin/promotions/:id
func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeletePromotion(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// GetUsage returns the redemption ledger plus aggregates for one promotion.
//
// GET /api/v1/admin/promotions/:id/usage
func (h *AdminHandler) GetUsage(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	startDate, ok := parseTimeQuery(c, "start_date")
	if !ok {
		return
	}
	endDate, ok := parseTimeQuery(c, "end_date")
	if !ok {
		return
	}

	var userID *uuid.UUID
	if s := c.Query("user_id"); s != "" {
		parsed, err := uuid.Parse(s)
		if err != nil {
			response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid user_id")
			return
		}
		userID = &parsed
	}

	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	history, err := h.service.GetUsageHistory(c.Request.Context(), id, startDate, endDate, userID, page, limit)
	if err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, history, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: history.Total,
	})
}

// RecordUsage records one redemption. Called by the order flow once an order
// is finalized, never during cart preview.
//
// POST /api/v1/admin/promotions/:id/usage
func (h *AdminHandler) RecordUsage(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req model.RecordUsageRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err.Error())
		return
	}

	usage, err := h.service.RecordUsage(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, usage)
}

// parseIDParam parses the :id path segment.
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid promotion id")
		return uuid.Nil, false
	}
	return id, true
}

// parseTimeQuery parses an optional RFC3339 query param.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	value := c.Query(key)
	if value == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid "+key+", expected RFC3339")
		return nil, false
	}
	return &t, true
}
