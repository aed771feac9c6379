package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

const (
	accountLockTTL = 2 * time.Minute
	// Lock-busy deferrals re-enqueue on this delay without touching the
	// attempt budget; a slow upload ahead of us is not a failed attempt.
	accountBusyDelay = 30 * time.Second
)

type IPublishWorker interface {
	// HandlePublishJob executes one publish attempt. A nil return acks the
	// message; an error nacks it for broker redelivery.
	HandlePublishJob(ctx context.Context, job model.PublishJob) error
	// HandleRaw decodes a broker payload and runs it.
	HandleRaw(ctx context.Context, payload []byte) error
}

type publishWorker struct {
	tasks       repository.IPublishTask
	tokens      ITokenUsecase
	registry    *Registry
	queue       repository.IJobQueue
	locks       repository.ILockStore
	containers  repository.IMediaContainer
	records     repository.IPublishRecord
	notifier    repository.INotifier
	maxAttempts int
	baseBackoff time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewPublishWorker(
	tasks repository.IPublishTask,
	tokens ITokenUsecase,
	registry *Registry,
	queue repository.IJobQueue,
	locks repository.ILockStore,
	containers repository.IMediaContainer,
	records repository.IPublishRecord,
	notifier repository.INotifier,
	maxAttempts int,
	baseBackoff time.Duration,
) IPublishWorker {
	return &publishWorker{
		tasks:       tasks,
		tokens:      tokens,
		registry:    registry,
		queue:       queue,
		locks:       locks,
		containers:  containers,
		records:     records,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (w *publishWorker) HandleRaw(ctx context.Context, payload []byte) error {
	var job model.PublishJob
	if err := json.Unmarshal(payload, &job); err != nil {
		// A malformed envelope never becomes valid; drop it.
		logger.GetLogger().WithField("error", err).Error("Dropping malformed publish job")
		return nil
	}
	return w.HandlePublishJob(ctx, job)
}

func (w *publishWorker) HandlePublishJob(ctx context.Context, job model.PublishJob) error {
	if job.NextAttemptAt > 0 {
		if wait := time.UnixMilli(job.NextAttemptAt).Sub(w.now()); wait > 0 {
			if err := w.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	task, err := w.tasks.GetByID(ctx, job.TaskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		logger.GetLogger().WithField("task_id", job.TaskID).Info("Task gone, dropping job")
		return nil
	}
	if err != nil {
		return err
	}
	if task.Status != model.PublishStatusPublishing || task.QueueID != job.JobID {
		// Cancelled or re-scheduled since the envelope was written.
		logger.GetLogger().WithField("task_id", task.ID).WithField("status", task.Status).Info("Task no longer owned by this job, dropping")
		return nil
	}

	adapter, err := w.registry.Get(task.Platform)
	if err != nil {
		return w.fail(ctx, task, model.NewPlatformError(model.ErrKindValidation, "no adapter for platform "+task.Platform.String(), err))
	}

	cred, err := w.tokens.EnsureValid(ctx, task.AccountID, task.Platform)
	if err != nil {
		var pe *model.PlatformError
		if !errors.As(err, &pe) {
			// Credential store or lock infrastructure failure, not a provider
			// verdict. Nack so the broker redelivers.
			return err
		}
		return w.settle(ctx, task, job, pe)
	}

	// Publishes for the same account run one at a time across the fleet.
	lockKey := "publish:account:" + task.AccountID
	acquired, err := w.locks.Acquire(ctx, lockKey, accountLockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return w.deferBusy(ctx, task, job)
	}
	defer func() {
		if err := w.locks.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			logger.GetLogger().WithField("key", lockKey).WithField("error", err).Warn("Failed to release account lock")
		}
	}()

	callCtx := ctx
	if job.TimeoutMs > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(job.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	result, err := adapter.Publish(callCtx, task, cred.AccessToken)
	if err != nil {
		return w.settle(ctx, task, job, model.AsPlatformError(err))
	}

	if result.Async {
		return w.trackContainer(ctx, task, result.ContainerRef)
	}
	return w.succeed(ctx, task, result.WorkLink, result.ResultData)
}

// trackContainer records the provider ingestion handle and schedules the
// first poll. The task stays Publishing until the container settles.
func (w *publishWorker) trackContainer(ctx context.Context, task *model.PublishTask, providerRef string) error {
	container := &model.MediaContainer{
		PublishTaskID: task.ID,
		UserID:        task.UserID,
		AccountID:     task.AccountID,
		Platform:      task.Platform,
		ProviderRef:   providerRef,
		Status:        model.MediaContainerCreated,
	}
	if err := w.containers.Create(ctx, container); err != nil && !errors.Is(err, repository.ErrContainerExists) {
		return err
	}
	job := model.MediaJob{
		TaskID:        task.ID,
		JobID:         "media_" + task.QueueID,
		NextAttemptAt: w.now().Add(w.baseBackoff).UnixMilli(),
	}
	if _, err := w.queue.EnqueueMedia(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue media poll: %w", err)
	}
	logger.GetLogger().WithField("task_id", task.ID).WithField("provider_ref", providerRef).Info("Async ingestion started")
	return nil
}

func (w *publishWorker) succeed(ctx context.Context, task *model.PublishTask, workLink, resultData string) error {
	if err := w.tasks.UpdateSuccess(ctx, task.ID, workLink, resultData); err != nil {
		return err
	}
	task.Status = model.PublishStatusPublished
	task.WorkLink = &workLink
	w.archive(ctx, task, workLink, resultData)
	w.notify(ctx, task)
	logger.GetLogger().WithField("task_id", task.ID).WithField("work_link", workLink).Info("Publish succeeded")
	return nil
}

// deferBusy re-enqueues the job unchanged when another publish holds the
// account lock. Attempts stays as-is so waiting behind a long upload can never
// exhaust the failure budget.
func (w *publishWorker) deferBusy(ctx context.Context, task *model.PublishTask, job model.PublishJob) error {
	next := job
	next.NextAttemptAt = w.now().Add(accountBusyDelay).UnixMilli()
	if _, err := w.queue.EnqueuePublish(ctx, next); err != nil {
		return fmt.Errorf("failed to re-enqueue publish job: %w", err)
	}
	logger.GetLogger().WithField("task_id", task.ID).WithField("account_id", task.AccountID).Info("Account busy with another publish, deferring")
	return nil
}

// settle decides between a backoff re-enqueue and a terminal failure based on
// the error kind and the attempt count.
func (w *publishWorker) settle(ctx context.Context, task *model.PublishTask, job model.PublishJob, pe *model.PlatformError) error {
	attempted := job.Attempts + 1
	if pe.Retryable() && attempted < w.maxAttempts {
		backoff := w.baseBackoff << job.Attempts
		next := model.PublishJob{
			TaskID:        job.TaskID,
			Attempts:      attempted,
			JobID:         job.JobID,
			TimeoutMs:     job.TimeoutMs,
			NextAttemptAt: w.now().Add(backoff).UnixMilli(),
		}
		if _, err := w.queue.EnqueuePublish(ctx, next); err != nil {
			return fmt.Errorf("failed to re-enqueue publish job: %w", err)
		}
		logger.GetLogger().WithField("task_id", task.ID).WithField("attempts", attempted).WithField("backoff", backoff.String()).Warn("Publish attempt failed, retrying")
		return nil
	}
	return w.fail(ctx, task, pe)
}

func (w *publishWorker) fail(ctx context.Context, task *model.PublishTask, pe *model.PlatformError) error {
	if err := w.tasks.UpdateFailure(ctx, task.ID, model.PublishStatusFailed, pe.Message); err != nil {
		return err
	}
	task.Status = model.PublishStatusFailed
	task.ErrorMsg = &pe.Message
	w.notify(ctx, task)
	logger.GetLogger().WithField("task_id", task.ID).WithField("kind", pe.Kind).WithField("error", pe.Message).Error("Publish failed terminally")
	return nil
}

func (w *publishWorker) archive(ctx context.Context, task *model.PublishTask, workLink, resultData string) {
	rec := &model.PublishRecord{
		TaskID:      task.ID,
		UserID:      task.UserID,
		AccountID:   task.AccountID,
		Platform:    string(task.Platform),
		Kind:        string(task.Kind),
		Title:       task.Title,
		WorkLink:    workLink,
		ResultData:  resultData,
		PublishedAt: w.now(),
	}
	if err := w.records.Insert(ctx, rec); err != nil {
		logger.GetLogger().WithField("task_id", task.ID).WithField("error", err).Error("Failed to archive publish record")
	}
}

func (w *publishWorker) notify(ctx context.Context, task *model.PublishTask) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.NotifyOutcome(ctx, task); err != nil {
		logger.GetLogger().WithField("task_id", task.ID).WithField("error", err).Error("Failed to send outcome notification")
	}
}
