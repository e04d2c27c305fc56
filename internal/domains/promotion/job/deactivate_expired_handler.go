package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/promotion/service"
	"storefront-backend/internal/shared"
	"storefront-backend/pkg/logger"
)

// DeactivateExpiredHandler runs the scheduled promotion hygiene job: flip
// is_active off for promotions past their validity window so the eligibility
// queries stay cheap and the admin listing reflects reality.
type DeactivateExpiredHandler struct {
	service service.ServiceInterface
}

// NewDeactivateExpiredHandler creates a new handler instance.
func NewDeactivateExpiredHandler(promotionService service.ServiceInterface) *DeactivateExpiredHandler {
	return &DeactivateExpiredHandler{service: promotionService}
}

// ProcessTask is the asynq entry point.
func (h *DeactivateExpiredHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.DeactivateExpiredPromotionsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	started := time.Now()

	count, err := h.service.DeactivateExpired(ctx)
	if err != nil {
		logger.Error("deactivate expired promotions job failed", err)
		return fmt.Errorf("deactivate expired promotions: %w", err)
	}

	logger.Info("deactivate expired promotions job completed", map[string]interface{}{
		"deactivated": count,
		"duration":    time.Since(started).String(),
	})

	return nil
}
