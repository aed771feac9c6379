package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// Scheduler owns the periodic dispatch scan. One scan at a time: a tick that
// arrives while the previous scan still runs is skipped and logged, never
// queued up.
type Scheduler struct {
	tasks     repository.IPublishTask
	publisher IPublishUsecase
	locks     repository.ILockStore
	interval  time.Duration
	window    time.Duration
	now       func() time.Time
	running   atomic.Bool
}

func NewScheduler(tasks repository.IPublishTask, publisher IPublishUsecase, locks repository.ILockStore, interval, window time.Duration) *Scheduler {
	return &Scheduler{
		tasks:     tasks,
		publisher: publisher,
		locks:     locks,
		interval:  interval,
		window:    window,
		now:       time.Now,
	}
}

// Run blocks until ctx is done, scanning every interval.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logger.GetLogger().WithField("interval", s.interval.String()).Info("Scheduler started")
	for {
		select {
		case <-ctx.Done():
			logger.GetLogger().Info("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scan unless the previous one is still in flight.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		logger.GetLogger().Warn("Previous scan still running, skipping tick")
		return
	}
	defer s.running.Store(false)
	if err := s.scan(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Scheduler scan failed")
	}
}

func (s *Scheduler) scan(ctx context.Context) error {
	// Heartbeat marker lets operators see a scan in progress across the
	// fleet; it is informational, not a mutual-exclusion lock.
	if _, err := s.locks.Acquire(ctx, "scheduler:scan", s.interval); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to write scan heartbeat")
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), "scheduler:scan"); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to clear scan heartbeat")
		}
	}()

	now := s.now()
	due, err := s.tasks.ListDue(ctx, now.Add(-s.window), now.Add(s.window))
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}
	logger.GetLogger().WithField("count", len(due)).Info("Dispatching due publish tasks")
	for _, task := range due {
		if task.Status != model.PublishStatusWaiting {
			continue
		}
		if err := s.publisher.Dispatch(ctx, task); err != nil {
			// One bad task must not starve the rest of the batch.
			logger.GetLogger().WithField("task_id", task.ID).WithField("error", err).Error("Dispatch failed")
		}
	}
	return nil
}
