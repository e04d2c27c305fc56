package model

import "errors"

// Structural validation errors (admin create/update).
var (
	ErrInvalidPromotionType = errors.New("unknown promotion type")
	ErrInvalidDiscountType  = errors.New("discount_type must be percentage, fixed_amount or fixed_price")
	ErrInvalidDiscountValue = errors.New("discount_value must be >= 0")
	ErrPercentageTooHigh    = errors.New("percentage discount cannot exceed 100")
	ErrCodeRequired         = errors.New("coupon promotions require a code")
	ErrInvalidDateRange     = errors.New("expires_at must not be before starts_at")
	ErrInvalidMinPurchase   = errors.New("min_purchase must be >= 0")
	ErrInvalidBogoConfig    = errors.New("bogo promotions require positive buy_qty and get_qty")
)

// ErrorCode identifies a failure category so the UI can explain why a coupon
// was rejected instead of showing a generic "invalid" message.
type ErrorCode string

const (
	ErrCodePromoNotFound          ErrorCode = "PROMO_NOT_FOUND"             // 404
	ErrCodePromoUsageLimitReached ErrorCode = "PROMO_USAGE_LIMIT_REACHED"   // 400
	ErrCodePromoUserLimitReached  ErrorCode = "PROMO_USER_LIMIT_REACHED"    // 400
	ErrCodePromoMinPurchaseNotMet ErrorCode = "PROMO_MIN_PURCHASE_NOT_MET"  // 400
	ErrCodePromoNotApplicable     ErrorCode = "PROMO_NOT_APPLICABLE"        // 400
	ErrCodePromoExhausted         ErrorCode = "PROMO_EXHAUSTED"             // 409
	ErrCodePromoDuplicateCode     ErrorCode = "VAL_DUPLICATE_CODE"          // 400
	ErrCodePromoUpdateConflict    ErrorCode = "BIZ_UPDATE_CONFLICT"         // 409
	ErrCodePromoDuplicateUsage    ErrorCode = "BIZ_DUPLICATE_USAGE"         // 409
	ErrCodePromoCannotDelete      ErrorCode = "BIZ_CANNOT_DELETE_USED"      // 400
	ErrCodeValidationFailed       ErrorCode = "VAL_INVALID_INPUT"           // 400
	ErrCodeSubtotalMismatch       ErrorCode = "VAL_SUBTOTAL_MISMATCH"       // 400
	ErrCodeInternalError          ErrorCode = "SYS_INTERNAL_ERROR"          // 500
)

// AppError is a business error with an HTTP mapping. Infrastructure failures
// are plain wrapped errors and must never be converted into one of these.
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Predefined business errors.
var (
	ErrPromotionNotFound = &AppError{
		Code:       ErrCodePromoNotFound,
		Message:    "promotion not found",
		HTTPStatus: 404,
	}

	ErrPromotionExhausted = &AppError{
		Code:       ErrCodePromoExhausted,
		Message:    "promotion usage limit reached",
		HTTPStatus: 409,
	}

	ErrPromotionCodeExists = &AppError{
		Code:       ErrCodePromoDuplicateCode,
		Message:    "a promotion with this code already exists",
		HTTPStatus: 400,
	}

	ErrPromotionUpdateConflict = &AppError{
		Code:       ErrCodePromoUpdateConflict,
		Message:    "promotion was modified concurrently, reload and retry",
		HTTPStatus: 409,
	}

	ErrPromotionDuplicateUsage = &AppError{
		Code:       ErrCodePromoDuplicateUsage,
		Message:    "promotion usage already recorded for this order",
		HTTPStatus: 409,
	}

	ErrPromotionHasUsages = &AppError{
		Code:       ErrCodePromoCannotDelete,
		Message:    "promotion with recorded usages cannot be deleted",
		HTTPStatus: 400,
	}
)
