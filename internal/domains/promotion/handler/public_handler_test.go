package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-backend/internal/domains/promotion/model"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MockPromotionService is a mock implementation of service.ServiceInterface.
type MockPromotionService struct {
	mock.Mock
}

func (m *MockPromotionService) ValidateCouponCode(ctx context.Context, req *model.ValidateCouponRequest, userID *uuid.UUID) (*model.PromotionResult, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromotionResult), args.Error(1)
}

func (m *MockPromotionService) GetActiveAutomaticPromotions(ctx context.Context, req *model.AutomaticPromotionsRequest, userID *uuid.UUID) ([]model.PromotionResult, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PromotionResult), args.Error(1)
}

func (m *MockPromotionService) ListPublicPromotions(ctx context.Context, page, limit int) ([]*model.Promotion, int, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*model.Promotion), args.Int(1), args.Error(2)
}

func (m *MockPromotionService) RecordUsage(ctx context.Context, promoID uuid.UUID, req *model.RecordUsageRequest) (*model.PromotionUsage, error) {
	args := m.Called(ctx, promoID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromotionUsage), args.Error(1)
}

func (m *MockPromotionService) CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promotion), args.Error(1)
}

func (m *MockPromotionService) GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.PromotionDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromotionDetail), args.Error(1)
}

func (m *MockPromotionService) ListPromotions(ctx context.Context, filter *model.ListFilter) (*model.PromotionList, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromotionList), args.Error(1)
}

func (m *MockPromotionService) UpdatePromotion(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.Promotion, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promotion), args.Error(1)
}

func (m *MockPromotionService) UpdatePromotionStatus(ctx context.Context, id uuid.UUID, isActive bool) error {
	args := m.Called(ctx, id, isActive)
	return args.Error(0)
}

func (m *MockPromotionService) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPromotionService) GetUsageHistory(ctx context.Context, promoID uuid.UUID, startDate, endDate *time.Time, userID *uuid.UUID, page, limit int) (*model.UsageHistory, error) {
	args := m.Called(ctx, promoID, startDate, endDate, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UsageHistory), args.Error(1)
}

func (m *MockPromotionService) DeactivateExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func setupPublicRouter(svc *MockPromotionService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewPublicHandler(svc)
	router := gin.New()
	router.POST("/promotions/validate", h.ValidateCoupon)
	router.POST("/promotions/automatic", h.AutomaticPromotions)
	router.GET("/promotions", h.ListPromotions)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validateBody() map[string]interface{} {
	return map[string]interface{}{
		"code": "SAVE10",
		"items": []map[string]interface{}{
			{"product_id": "P1", "name": "Thing", "price": "50.00", "quantity": 2},
		},
		"subtotal": "100.00",
	}
}

func TestValidateCoupon_Success(t *testing.T) {
	svc := new(MockPromotionService)
	router := setupPublicRouter(svc)

	result := &model.PromotionResult{
		Success:  true,
		Discount: dec("10.00"),
		Message:  "Coupon applied! You saved $10.00",
	}
	svc.On("ValidateCouponCode", mock.Anything, mock.Anything, (*uuid.UUID)(nil)).Return(result, nil)

	w := postJSON(router, "/promotions/validate", validateBody())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Success  bool   `json:"success"`
			Discount string `json:"discount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Success)
	svc.AssertExpectations(t)
}

func TestValidateCoupon_RejectedCouponIsStill200(t *testing.T) {
	svc := new(MockPromotionService)
	router := setupPublicRouter(svc)

	rejected := model.FailedResult(model.ErrCodePromoNotFound, "Invalid or expired coupon code")
	svc.On("ValidateCouponCode", mock.Anything, mock.Anything, (*uuid.UUID)(nil)).Return(&rejected, nil)

	w := postJSON(router, "/promotions/validate", validateBody())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Success   bool   `json:"success"`
			ErrorCode string `json:"error_code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Success)
	assert.Equal(t, string(model.ErrCodePromoNotFound), resp.Data.ErrorCode)
}

func TestValidateCoupon_SubtotalMismatch(t *testing.T) {
	svc := new(MockPromotionService)
	router := setupPublicRouter(svc)

	body := validateBody()
	body["subtotal"] = "999.00"

	w := postJSON(router, "/promotions/validate", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(model.ErrCodeSubtotalMismatch))
	svc.AssertNotCalled(t, "ValidateCouponCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateCoupon_MissingCode(t *testing.T) {
	svc := new(MockPromotionService)
	router := setupPublicRouter(svc)

	body := validateBody()
	delete(body, "code")

	w := postJSON(router, "/promotions/validate", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateCoupon_StorageFailureIs500(t *testing.T) {
	svc := new(MockPromotionService)
	router := setupPublicRouter(svc)

	svc.On("ValidateCouponCode", mock.Anything, mock.Anything, (*uuid.UUID)(nil)).
		Return(nil, errors.New("connection refused"))

	w := postJSON(router, "/promotions/validate", validateBody())

	// An infra failure must never read as an invalid coupon.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(model.ErrCodeInternalError))
}

func TestAutomaticPromotions_SumsTotalDiscount(t *testing.T) {
	svc := new(MockPromotionService)
	router := setupPublicRouter(svc)

	results := []model.PromotionResult{
		{Success: true, Discount: dec("5.00")},
		{Success: true, Discount: dec("2.50")},
	}
	svc.On("GetActiveAutomaticPromotions", mock.Anything, mock.Anything, (*uuid.UUID)(nil)).Return(results, nil)

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": "P1", "name": "Thing", "price": "50.00", "quantity": 2},
		},
		"subtotal": "100.00",
	}

	w := postJSON(router, "/promotions/automatic", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Results       []json.RawMessage `json:"results"`
			TotalDiscount string            `json:"total_discount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Results, 2)
	assert.Equal(t, "7.5", resp.Data.TotalDiscount)
}

func TestListPromotions_Pagination(t *testing.T) {
	svc := new(MockPromotionService)
	router := setupPublicRouter(svc)

	svc.On("ListPublicPromotions", mock.Anything, 2, 10).Return([]*model.Promotion{}, 35, nil)

	req := httptest.NewRequest(http.MethodGet, "/promotions?page=2&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Meta struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 35, resp.Meta.Total)
}
