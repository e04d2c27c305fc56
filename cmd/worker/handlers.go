package main

import (
	"github.com/hibiken/asynq"

	promotionJob "storefront-backend/internal/domains/promotion/job"
	"storefront-backend/internal/shared"
	"storefront-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	deactivateExpiredPromotions *promotionJob.DeactivateExpiredHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		deactivateExpiredPromotions: promotionJob.NewDeactivateExpiredHandler(c.PromotionService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeDeactivateExpiredPromotions, h.deactivateExpiredPromotions.ProcessTask)
}
