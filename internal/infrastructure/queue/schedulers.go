package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/config"
	"storefront-backend/internal/shared"
	"storefront-backend/pkg/logger"
)

// Scheduler enqueues the periodic maintenance jobs.
type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisAddress string, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

// RegisterJobs registers every scheduled job.
func (s *Scheduler) RegisterJobs() error {
	return s.registerDeactivateExpiredPromotionsJob()
}

// Deactivation runs every few hours rather than per request: the
// eligibility queries already exclude promotions past expires_at, so the
// sweep only keeps is_active honest for listings and reporting.
func (s *Scheduler) registerDeactivateExpiredPromotionsJob() error {
	payload, err := json.Marshal(shared.DeactivateExpiredPromotionsPayload{})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeDeactivateExpiredPromotions, payload)

	_, err = s.scheduler.Register(
		s.jobConfig.DeactivateExpiredCron,
		task,
		asynq.Queue(shared.QueuePromotion),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register DeactivateExpiredPromotions job", err)
		return err
	}

	logger.Info("Registered DeactivateExpiredPromotions", map[string]interface{}{
		"cron": s.jobConfig.DeactivateExpiredCron,
	})
	return nil
}

// Start runs the scheduler loop. Blocks until Shutdown.
func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

// Shutdown stops the scheduler gracefully.
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
