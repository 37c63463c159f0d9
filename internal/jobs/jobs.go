// Package jobs wires the lifecycle maintenance tasks into asynq.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/frostmart/backend-pricing/internal/lifecycle"
)

// Task kinds handled by the worker.
const (
	TaskGeneratePromotions = "promo:generate"
	TaskCleanupPromotions  = "promo:cleanup"
	TaskCleanupBatches     = "batch:cleanup"
)

// Schedule is the cron cadence for each periodic task.
type Schedule struct {
	GenerateCron string
	CleanupCron  string
	BatchCron    string
}

// Handler executes the maintenance tasks against the lifecycle manager.
type Handler struct {
	Manager *lifecycle.Manager
	Logger  zerolog.Logger
}

// Register binds the task kinds onto the mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskGeneratePromotions, h.handleGenerate)
	mux.HandleFunc(TaskCleanupPromotions, h.handleCleanup)
	mux.HandleFunc(TaskCleanupBatches, h.handleBatchCleanup)
}

func (h *Handler) handleGenerate(ctx context.Context, _ *asynq.Task) error {
	if h == nil || h.Manager == nil {
		return errors.New("lifecycle manager not wired")
	}
	created, err := h.Manager.GenerateExpiryPromotions(ctx)
	if err != nil {
		return fmt.Errorf("generate expiry promotions: %w", err)
	}
	h.Logger.Info().Int("created", len(created)).Msg("expiry promotion generation run")
	return nil
}

func (h *Handler) handleCleanup(ctx context.Context, _ *asynq.Task) error {
	if h == nil || h.Manager == nil {
		return errors.New("lifecycle manager not wired")
	}
	res, err := h.Manager.CleanupExpiredPromotions(ctx)
	if err != nil {
		return fmt.Errorf("cleanup expired promotions: %w", err)
	}
	h.Logger.Info().Int64("deactivated", res.DeactivatedCount).Msg("promotion cleanup run")
	return nil
}

func (h *Handler) handleBatchCleanup(ctx context.Context, _ *asynq.Task) error {
	if h == nil || h.Manager == nil {
		return errors.New("lifecycle manager not wired")
	}
	res, err := h.Manager.CleanupExpiredBatches(ctx)
	if err != nil {
		return fmt.Errorf("cleanup expired batches: %w", err)
	}
	h.Logger.Info().Int("removed", res.BatchesRemoved).Msg("batch cleanup run")
	return nil
}

// NewScheduler registers the periodic entries and returns the scheduler ready
// to run. Cron fields are standard five-part expressions.
func NewScheduler(redisOpt asynq.RedisConnOpt, sched Schedule, logger zerolog.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error().Err(err).Msg("enqueue scheduled task")
			}
		},
	})
	entries := []struct {
		cron string
		kind string
	}{
		{sched.GenerateCron, TaskGeneratePromotions},
		{sched.CleanupCron, TaskCleanupPromotions},
		{sched.BatchCron, TaskCleanupBatches},
	}
	for _, e := range entries {
		if e.cron == "" {
			continue
		}
		if _, err := scheduler.Register(e.cron, asynq.NewTask(e.kind, nil)); err != nil {
			return nil, fmt.Errorf("register %s: %w", e.kind, err)
		}
	}
	return scheduler, nil
}
