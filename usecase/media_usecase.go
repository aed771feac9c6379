package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// maxPollAttempts bounds container polling; providers expire stale
// containers long before this is reached.
const maxPollAttempts = 60

type IMediaUsecase interface {
	InitUpload(ctx context.Context, req *dto.InitUploadRequest) (*dto.InitUploadResponse, error)
	UploadPart(ctx context.Context, fileID, uploadID string, partNumber int, blob []byte) (*dto.UploadPartResponse, error)
	// CompleteUpload validates the part list locally before the storage
	// completion call; an invalid list never reaches storage.
	CompleteUpload(ctx context.Context, req *dto.CompleteUploadRequest) (string, error)
	// HandleMediaJob polls one async ingestion container and settles the
	// owning publish task when the container reaches a terminal state.
	HandleMediaJob(ctx context.Context, job model.MediaJob) error
	HandleRaw(ctx context.Context, payload []byte) error
}

type mediaUsecase struct {
	storage    repository.IMediaStorage
	containers repository.IMediaContainer
	tasks      repository.IPublishTask
	tokens     ITokenUsecase
	registry   *Registry
	queue      repository.IJobQueue
	records    repository.IPublishRecord
	notifier   repository.INotifier
	pollDelay  time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewMediaUsecase(
	storage repository.IMediaStorage,
	containers repository.IMediaContainer,
	tasks repository.IPublishTask,
	tokens ITokenUsecase,
	registry *Registry,
	queue repository.IJobQueue,
	records repository.IPublishRecord,
	notifier repository.INotifier,
	pollDelay time.Duration,
) IMediaUsecase {
	return &mediaUsecase{
		storage:    storage,
		containers: containers,
		tasks:      tasks,
		tokens:     tokens,
		registry:   registry,
		queue:      queue,
		records:    records,
		notifier:   notifier,
		pollDelay:  pollDelay,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func (u *mediaUsecase) InitUpload(ctx context.Context, req *dto.InitUploadRequest) (*dto.InitUploadResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	session, err := u.storage.InitMultipartUpload(ctx, req.FileName, req.Path, req.Size, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to init multipart upload: %w", err)
	}
	return &dto.InitUploadResponse{FileID: session.FileID, UploadID: session.UploadID}, nil
}

func (u *mediaUsecase) UploadPart(ctx context.Context, fileID, uploadID string, partNumber int, blob []byte) (*dto.UploadPartResponse, error) {
	if fileID == "" || uploadID == "" {
		return nil, errors.New("file_id and upload_id required")
	}
	if partNumber < 1 {
		return nil, errors.New("part_number must be >= 1")
	}
	if len(blob) == 0 {
		return nil, errors.New("empty part body")
	}
	session := &model.UploadSession{FileID: fileID, UploadID: uploadID}
	part, err := u.storage.UploadPart(ctx, session, partNumber, blob)
	if err != nil {
		return nil, fmt.Errorf("failed to upload part %d: %w", partNumber, err)
	}
	return &dto.UploadPartResponse{PartNumber: part.PartNumber, ETag: part.ETag}, nil
}

func (u *mediaUsecase) CompleteUpload(ctx context.Context, req *dto.CompleteUploadRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	session := &model.UploadSession{FileID: req.FileID, UploadID: req.UploadID}
	location, err := u.storage.CompleteUpload(ctx, session, req.Parts)
	if err != nil {
		return "", fmt.Errorf("failed to complete upload: %w", err)
	}
	return location, nil
}

func (u *mediaUsecase) HandleRaw(ctx context.Context, payload []byte) error {
	var job model.MediaJob
	if err := json.Unmarshal(payload, &job); err != nil {
		logger.GetLogger().WithField("error", err).Error("Dropping malformed media job")
		return nil
	}
	return u.HandleMediaJob(ctx, job)
}

func (u *mediaUsecase) HandleMediaJob(ctx context.Context, job model.MediaJob) error {
	if job.NextAttemptAt > 0 {
		if wait := time.UnixMilli(job.NextAttemptAt).Sub(u.now()); wait > 0 {
			if err := u.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	task, err := u.tasks.GetByID(ctx, job.TaskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		logger.GetLogger().WithField("task_id", job.TaskID).Info("Task gone, dropping media job")
		return nil
	}
	if err != nil {
		return err
	}
	if task.Status != model.PublishStatusPublishing {
		logger.GetLogger().WithField("task_id", task.ID).WithField("status", task.Status).Info("Task already settled, dropping media job")
		return nil
	}

	container, err := u.containers.GetByTask(ctx, task.ID, task.Platform)
	if err != nil {
		return err
	}
	if container.Status.Terminal() {
		// Terminal containers are never revisited.
		return nil
	}

	poller, ok := u.registry.Poller(task.Platform)
	if !ok {
		return u.failTask(ctx, task, container, "platform has no ingestion poller")
	}
	cred, err := u.tokens.EnsureValid(ctx, task.AccountID, task.Platform)
	if err != nil {
		var pe *model.PlatformError
		if !errors.As(err, &pe) {
			// Credential store or lock infrastructure failure, not a provider
			// verdict. Nack so the broker redelivers.
			return err
		}
		if pe.Retryable() {
			return u.requeue(ctx, task, job)
		}
		return u.failTask(ctx, task, container, pe.Message)
	}

	status, workLink, err := poller.LookupContainer(ctx, cred.AccessToken, container.ProviderRef)
	if err != nil {
		pe := model.AsPlatformError(err)
		if pe.Retryable() && job.Attempts+1 < maxPollAttempts {
			return u.requeue(ctx, task, job)
		}
		return u.failTask(ctx, task, container, pe.Message)
	}

	switch status {
	case model.MediaContainerFinished:
		if _, err := u.containers.Transition(ctx, container.ID, container.Status, model.MediaContainerFinished, nil); err != nil {
			return err
		}
		if err := u.tasks.UpdateSuccess(ctx, task.ID, workLink, ""); err != nil {
			return err
		}
		task.Status = model.PublishStatusPublished
		task.WorkLink = &workLink
		u.archive(ctx, task, workLink)
		u.notify(ctx, task)
		logger.GetLogger().WithField("task_id", task.ID).WithField("work_link", workLink).Info("Async publish finished")
		return nil
	case model.MediaContainerFailed:
		return u.failTask(ctx, task, container, "provider ingestion failed")
	default:
		if container.Status == model.MediaContainerCreated {
			if _, err := u.containers.Transition(ctx, container.ID, model.MediaContainerCreated, model.MediaContainerInProgress, nil); err != nil {
				return err
			}
		}
		if job.Attempts+1 >= maxPollAttempts {
			return u.failTask(ctx, task, container, "ingestion did not finish in time")
		}
		return u.requeue(ctx, task, job)
	}
}

func (u *mediaUsecase) requeue(ctx context.Context, task *model.PublishTask, job model.MediaJob) error {
	next := model.MediaJob{
		TaskID:        job.TaskID,
		Attempts:      job.Attempts + 1,
		JobID:         job.JobID,
		NextAttemptAt: u.now().Add(u.pollDelay).UnixMilli(),
	}
	if _, err := u.queue.EnqueueMedia(ctx, next); err != nil {
		return fmt.Errorf("failed to re-enqueue media poll: %w", err)
	}
	return nil
}

func (u *mediaUsecase) failTask(ctx context.Context, task *model.PublishTask, container *model.MediaContainer, msg string) error {
	if !container.Status.Terminal() {
		if _, err := u.containers.Transition(ctx, container.ID, container.Status, model.MediaContainerFailed, &msg); err != nil {
			logger.GetLogger().WithField("task_id", task.ID).WithField("error", err).Error("Failed to mark container failed")
		}
	}
	if err := u.tasks.UpdateFailure(ctx, task.ID, model.PublishStatusFailed, msg); err != nil {
		return err
	}
	task.Status = model.PublishStatusFailed
	task.ErrorMsg = &msg
	u.notify(ctx, task)
	logger.GetLogger().WithField("task_id", task.ID).WithField("error", msg).Error("Async publish failed")
	return nil
}

func (u *mediaUsecase) archive(ctx context.Context, task *model.PublishTask, workLink string) {
	rec := &model.PublishRecord{
		TaskID:      task.ID,
		UserID:      task.UserID,
		AccountID:   task.AccountID,
		Platform:    string(task.Platform),
		Kind:        string(task.Kind),
		Title:       task.Title,
		WorkLink:    workLink,
		PublishedAt: u.now(),
	}
	if err := u.records.Insert(ctx, rec); err != nil {
		logger.GetLogger().WithField("task_id", task.ID).WithField("error", err).Error("Failed to archive publish record")
	}
}

func (u *mediaUsecase) notify(ctx context.Context, task *model.PublishTask) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.NotifyOutcome(ctx, task); err != nil {
		logger.GetLogger().WithField("task_id", task.ID).WithField("error", err).Error("Failed to send outcome notification")
	}
}
