package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

var ErrTaskBusy = errors.New("task has an active job and cannot be modified")

type IPublishUsecase interface {
	// CreateTask persists a new task and dispatches it right away when its
	// publish time falls inside the immediate threshold.
	CreateTask(ctx context.Context, userID string, req *dto.CreatePublishTaskRequest) (*model.PublishTask, error)
	GetTask(ctx context.Context, id string) (*model.PublishTask, error)
	// Dispatch hands a waiting task to the job queue exactly once. Safe to
	// call concurrently from the immediate path and the periodic scan.
	Dispatch(ctx context.Context, task *model.PublishTask) error
	DeleteTask(ctx context.Context, id, userID string) error
	UpdatePublishTime(ctx context.Context, id, userID string, publishTime time.Time) (*model.PublishTask, error)
	PublishNow(ctx context.Context, id, userID string) (*model.PublishTask, error)
	ListRecords(ctx context.Context, userID string, limit int64) ([]*model.PublishRecord, error)
}

type publishUsecase struct {
	tasks              repository.IPublishTask
	queue              repository.IJobQueue
	records            repository.IPublishRecord
	immediateThreshold time.Duration
	publishTimeout     time.Duration
	now                func() time.Time
}

func NewPublishUsecase(tasks repository.IPublishTask, queue repository.IJobQueue, records repository.IPublishRecord, immediateThreshold, publishTimeout time.Duration) IPublishUsecase {
	return &publishUsecase{
		tasks:              tasks,
		queue:              queue,
		records:            records,
		immediateThreshold: immediateThreshold,
		publishTimeout:     publishTimeout,
		now:                time.Now,
	}
}

func newTaskID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func newQueueID(platform model.Platform) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("publish_%s:%s", platform, hex.EncodeToString(b))
}

func (u *publishUsecase) CreateTask(ctx context.Context, userID string, req *dto.CreatePublishTaskRequest) (*model.PublishTask, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := u.now()
	publishTime := req.PublishTime
	if publishTime.IsZero() || publishTime.Before(now) {
		publishTime = now
	}
	platform := model.Platform(req.Platform)
	task := &model.PublishTask{
		ID:          newTaskID(),
		UserID:      userID,
		AccountID:   req.AccountID,
		Platform:    platform,
		Kind:        model.PublishKind(req.Kind),
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		ImageURLs:   req.ImageURLs,
		CoverURL:    req.CoverURL,
		PublishTime: publishTime,
		Status:      model.PublishStatusWaiting,
		QueueID:     newQueueID(platform),
	}
	if err := u.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("task_id", task.ID).WithField("platform", platform).Info("Publish task created")

	if !publishTime.After(now.Add(u.immediateThreshold)) {
		if err := u.Dispatch(ctx, task); err != nil {
			// The task row exists; the periodic scan will retry it because
			// the in-queue flag was rolled back.
			logger.GetLogger().WithField("task_id", task.ID).WithField("error", err).Error("Immediate dispatch failed")
			return nil, err
		}
	}
	return task, nil
}

func (u *publishUsecase) GetTask(ctx context.Context, id string) (*model.PublishTask, error) {
	return u.tasks.GetByID(ctx, id)
}

func (u *publishUsecase) Dispatch(ctx context.Context, task *model.PublishTask) error {
	won, err := u.tasks.UpdateStatusIf(ctx, task.ID, model.PublishStatusWaiting, model.PublishStatusPublishing)
	if err != nil {
		return err
	}
	if !won {
		// Another dispatcher already owns this task.
		return nil
	}
	if err := u.tasks.MarkInQueue(ctx, task.ID, true); err != nil {
		return err
	}

	job := model.PublishJob{
		TaskID:    task.ID,
		Attempts:  0,
		JobID:     task.QueueID,
		TimeoutMs: u.publishTimeout.Milliseconds(),
	}
	enqueued, err := u.queue.EnqueuePublish(ctx, job)
	if err != nil {
		// Roll back so the task is not stranded in Publishing with no job.
		if _, rbErr := u.tasks.UpdateStatusIf(ctx, task.ID, model.PublishStatusPublishing, model.PublishStatusWaiting); rbErr != nil {
			logger.GetLogger().WithField("task_id", task.ID).WithField("error", rbErr).Error("Dispatch rollback failed")
		}
		if rbErr := u.tasks.MarkInQueue(ctx, task.ID, false); rbErr != nil {
			logger.GetLogger().WithField("task_id", task.ID).WithField("error", rbErr).Error("Dispatch rollback failed")
		}
		return fmt.Errorf("failed to enqueue publish job: %w", err)
	}
	if !enqueued {
		logger.GetLogger().WithField("task_id", task.ID).WithField("job_id", job.JobID).Info("Publish job already enqueued")
		return nil
	}
	logger.GetLogger().WithField("task_id", task.ID).WithField("job_id", job.JobID).Info("Publish job enqueued")
	return nil
}

func (u *publishUsecase) DeleteTask(ctx context.Context, id, userID string) error {
	task, err := u.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch task.Status {
	case model.PublishStatusPublishing, model.PublishStatusUpdating:
		return ErrTaskBusy
	}
	if err := u.tasks.Delete(ctx, id, userID); err != nil {
		return err
	}
	if err := u.queue.ClearDedupe(ctx, task.QueueID); err != nil {
		logger.GetLogger().WithField("task_id", id).WithField("error", err).Warn("Failed to clear queue dedupe marker")
	}
	return nil
}

func (u *publishUsecase) UpdatePublishTime(ctx context.Context, id, userID string, publishTime time.Time) (*model.PublishTask, error) {
	task, err := u.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != model.PublishStatusWaiting {
		return nil, ErrTaskBusy
	}
	if err := u.tasks.UpdatePublishTime(ctx, id, userID, publishTime); err != nil {
		return nil, err
	}
	if err := u.tasks.MarkInQueue(ctx, id, false); err != nil {
		return nil, err
	}
	if err := u.queue.ClearDedupe(ctx, task.QueueID); err != nil {
		logger.GetLogger().WithField("task_id", id).WithField("error", err).Warn("Failed to clear queue dedupe marker")
	}
	task.PublishTime = publishTime
	task.InQueue = false

	if !publishTime.After(u.now().Add(u.immediateThreshold)) {
		if err := u.Dispatch(ctx, task); err != nil {
			return nil, err
		}
	}
	return task, nil
}

func (u *publishUsecase) PublishNow(ctx context.Context, id, userID string) (*model.PublishTask, error) {
	return u.UpdatePublishTime(ctx, id, userID, u.now())
}

func (u *publishUsecase) ListRecords(ctx context.Context, userID string, limit int64) ([]*model.PublishRecord, error) {
	return u.records.ListByUser(ctx, userID, limit)
}
