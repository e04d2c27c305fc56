package main

import (
	"log"

	"storefront-backend/internal/config"
	"storefront-backend/internal/infrastructure/queue"
)

// asynqScheduler wraps queue.Scheduler with startup helpers
type asynqScheduler struct {
	*queue.Scheduler
}

// setupScheduler creates and starts the cron scheduler
func setupScheduler(redisAddr string, jobConfig config.JobConfig) *asynqScheduler {
	scheduler := queue.NewScheduler(redisAddr, jobConfig)

	if err := scheduler.RegisterJobs(); err != nil {
		log.Fatalf("[Scheduler] Failed to register: %v", err)
	}

	go func() {
		log.Println("[Scheduler] Starting...")
		if err := scheduler.Start(); err != nil {
			log.Fatalf("[Scheduler] Failed: %v", err)
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}
}

// Shutdown gracefully shuts down the scheduler
func (s *asynqScheduler) Shutdown() {
	log.Println("[Scheduler] Shutting down...")
	s.Scheduler.Shutdown()
	log.Println("[Scheduler] Stopped")
}
