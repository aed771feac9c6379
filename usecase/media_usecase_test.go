package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/usecase"
)

type mediaMocks struct {
	storage    *MockMediaStorage
	containers *MockMediaContainerRepo
	tasks      *MockPublishTaskRepo
	tokens     *MockTokenUsecase
	queue      *MockJobQueue
	records    *MockPublishRecordRepo
	notifier   *MockNotifier
}

func newMediaMocks() *mediaMocks {
	return &mediaMocks{
		storage:    new(MockMediaStorage),
		containers: new(MockMediaContainerRepo),
		tasks:      new(MockPublishTaskRepo),
		tokens:     new(MockTokenUsecase),
		queue:      new(MockJobQueue),
		records:    new(MockPublishRecordRepo),
		notifier:   new(MockNotifier),
	}
}

func (m *mediaMocks) usecase(registry *usecase.Registry) usecase.IMediaUsecase {
	return usecase.NewMediaUsecase(m.storage, m.containers, m.tasks, m.tokens,
		registry, m.queue, m.records, m.notifier, 10*time.Second)
}

func igContainer(status model.MediaContainerStatus) *model.MediaContainer {
	return &model.MediaContainer{
		ID:            7,
		PublishTaskID: "task-1",
		UserID:        "user-1",
		AccountID:     "acct-1",
		Platform:      model.PlatformInstagram,
		ProviderRef:   "ig-container-9",
		Status:        status,
	}
}

func TestMediaUsecase_InitUpload(t *testing.T) {
	m := newMediaMocks()
	m.storage.On("InitMultipartUpload", mock.Anything, "clip.mp4", "videos", int64(1024), "video/mp4").
		Return(&model.UploadSession{FileID: "f-1", UploadID: "u-1"}, nil).
		Once()

	u := m.usecase(usecase.NewRegistry())

	resp, err := u.InitUpload(context.Background(), &dto.InitUploadRequest{
		FileName:    "clip.mp4",
		Path:        "videos",
		Size:        1024,
		ContentType: "video/mp4",
	})

	assert.NoError(t, err)
	assert.Equal(t, "f-1", resp.FileID)
	assert.Equal(t, "u-1", resp.UploadID)
	m.storage.AssertExpectations(t)
}

func TestMediaUsecase_InitUpload_InvalidSize(t *testing.T) {
	m := newMediaMocks()
	u := m.usecase(usecase.NewRegistry())

	_, err := u.InitUpload(context.Background(), &dto.InitUploadRequest{FileName: "clip.mp4"})

	assert.Error(t, err)
	m.storage.AssertNotCalled(t, "InitMultipartUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMediaUsecase_UploadPart_Validation(t *testing.T) {
	m := newMediaMocks()
	u := m.usecase(usecase.NewRegistry())

	_, err := u.UploadPart(context.Background(), "", "u-1", 1, []byte("data"))
	assert.Error(t, err)

	_, err = u.UploadPart(context.Background(), "f-1", "u-1", 0, []byte("data"))
	assert.Error(t, err)

	_, err = u.UploadPart(context.Background(), "f-1", "u-1", 1, nil)
	assert.Error(t, err)

	m.storage.AssertNotCalled(t, "UploadPart", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMediaUsecase_CompleteUpload_PartGapFailsLocally(t *testing.T) {
	m := newMediaMocks()
	u := m.usecase(usecase.NewRegistry())

	_, err := u.CompleteUpload(context.Background(), &dto.CompleteUploadRequest{
		FileID:   "f-1",
		UploadID: "u-1",
		Parts: []model.UploadPart{
			{PartNumber: 1, ETag: "a"},
			{PartNumber: 3, ETag: "b"},
		},
	})

	assert.ErrorIs(t, err, model.ErrUploadPartGap)
	// An invalid part list never reaches storage.
	m.storage.AssertNotCalled(t, "CompleteUpload", mock.Anything, mock.Anything, mock.Anything)
}

func TestMediaUsecase_CompleteUpload(t *testing.T) {
	m := newMediaMocks()
	parts := []model.UploadPart{
		{PartNumber: 1, ETag: "a"},
		{PartNumber: 2, ETag: "b"},
	}
	m.storage.On("CompleteUpload", mock.Anything, mock.MatchedBy(func(s *model.UploadSession) bool {
		return s.FileID == "f-1" && s.UploadID == "u-1"
	}), parts).
		Return("https://storage.example.com/videos/clip.mp4", nil).
		Once()

	u := m.usecase(usecase.NewRegistry())

	location, err := u.CompleteUpload(context.Background(), &dto.CompleteUploadRequest{
		FileID:   "f-1",
		UploadID: "u-1",
		Parts:    parts,
	})

	assert.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/videos/clip.mp4", location)
	m.storage.AssertExpectations(t)
}

func TestMediaUsecase_HandleMediaJob_FinishedSettlesTask(t *testing.T) {
	m := newMediaMocks()
	adapter := NewMockFullAdapter(model.PlatformInstagram)
	task := publishingTask("task-1")
	task.Platform = model.PlatformInstagram
	container := igContainer(model.MediaContainerInProgress)
	cred := normalCredential(2 * time.Hour)

	m.tasks.On("GetByID", mock.Anything, "task-1").Return(task, nil).Once()
	m.containers.On("GetByTask", mock.Anything, "task-1", model.PlatformInstagram).Return(container, nil).Once()
	m.tokens.On("EnsureValid", mock.Anything, "acct-1", model.PlatformInstagram).Return(cred, nil).Once()
	adapter.On("LookupContainer", mock.Anything, "old-access", "ig-container-9").
		Return(model.MediaContainerFinished, "https://www.instagram.com/p/abc/", nil).
		Once()
	m.containers.On("Transition", mock.Anything, int64(7), model.MediaContainerInProgress, model.MediaContainerFinished, (*string)(nil)).
		Return(true, nil).
		Once()
	m.tasks.On("UpdateSuccess", mock.Anything, "task-1", "https://www.instagram.com/p/abc/", "").
		Return(nil).
		Once()
	m.records.On("Insert", mock.Anything, mock.AnythingOfType("*model.PublishRecord")).
		Return(nil).
		Once()
	m.notifier.On("NotifyOutcome", mock.Anything, mock.AnythingOfType("*model.PublishTask")).
		Return(nil).
		Once()

	u := m.usecase(usecase.NewRegistry(adapter))

	err := u.HandleMediaJob(context.Background(), model.MediaJob{TaskID: "task-1", JobID: "media_x", Attempts: 3})

	assert.NoError(t, err)
	m.containers.AssertExpectations(t)
	m.tasks.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
}

func TestMediaUsecase_HandleMediaJob_FirstPollMarksInProgress(t *testing.T) {
	m := newMediaMocks()
	adapter := NewMockFullAdapter(model.PlatformInstagram)
	task := publishingTask("task-1")
	task.Platform = model.PlatformInstagram
	container := igContainer(model.MediaContainerCreated)
	cred := normalCredential(2 * time.Hour)

	m.tasks.On("GetByID", mock.Anything, "task-1").Return(task, nil).Once()
	m.containers.On("GetByTask", mock.Anything, "task-1", model.PlatformInstagram).Return(container, nil).Once()
	m.tokens.On("EnsureValid", mock.Anything, "acct-1", model.PlatformInstagram).Return(cred, nil).Once()
	adapter.On("LookupContainer", mock.Anything, "old-access", "ig-container-9").
		Return(model.MediaContainerInProgress, "", nil).
		Once()
	m.containers.On("Transition", mock.Anything, int64(7), model.MediaContainerCreated, model.MediaContainerInProgress, (*string)(nil)).
		Return(true, nil).
		Once()
	m.queue.On("EnqueueMedia", mock.Anything, mock.MatchedBy(func(job model.MediaJob) bool {
		return job.Attempts == 1 && job.NextAttemptAt > 0
	})).
		Return(true, nil).
		Once()

	u := m.usecase(usecase.NewRegistry(adapter))

	err := u.HandleMediaJob(context.Background(), model.MediaJob{TaskID: "task-1", JobID: "media_x"})

	assert.NoError(t, err)
	m.containers.AssertExpectations(t)
	m.queue.AssertExpectations(t)
}

func TestMediaUsecase_HandleMediaJob_CredentialStoreErrorNacks(t *testing.T) {
	m := newMediaMocks()
	adapter := NewMockFullAdapter(model.PlatformInstagram)
	task := publishingTask("task-1")
	task.Platform = model.PlatformInstagram
	container := igContainer(model.MediaContainerInProgress)

	m.tasks.On("GetByID", mock.Anything, "task-1").Return(task, nil).Once()
	m.containers.On("GetByTask", mock.Anything, "task-1", model.PlatformInstagram).Return(container, nil).Once()
	// A raw store error, not a provider verdict.
	m.tokens.On("EnsureValid", mock.Anything, "acct-1", model.PlatformInstagram).
		Return(nil, assert.AnError).
		Once()

	u := m.usecase(usecase.NewRegistry(adapter))

	err := u.HandleMediaJob(context.Background(), model.MediaJob{TaskID: "task-1", JobID: "media_x"})

	assert.ErrorIs(t, err, assert.AnError)
	m.tasks.AssertNotCalled(t, "UpdateFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.containers.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	adapter.AssertNotCalled(t, "LookupContainer", mock.Anything, mock.Anything, mock.Anything)
}

func TestMediaUsecase_HandleMediaJob_ProviderIngestionFailed(t *testing.T) {
	m := newMediaMocks()
	adapter := NewMockFullAdapter(model.PlatformInstagram)
	task := publishingTask("task-1")
	task.Platform = model.PlatformInstagram
	container := igContainer(model.MediaContainerInProgress)
	cred := normalCredential(2 * time.Hour)

	m.tasks.On("GetByID", mock.Anything, "task-1").Return(task, nil).Once()
	m.containers.On("GetByTask", mock.Anything, "task-1", model.PlatformInstagram).Return(container, nil).Once()
	m.tokens.On("EnsureValid", mock.Anything, "acct-1", model.PlatformInstagram).Return(cred, nil).Once()
	adapter.On("LookupContainer", mock.Anything, "old-access", "ig-container-9").
		Return(model.MediaContainerFailed, "", nil).
		Once()
	m.containers.On("Transition", mock.Anything, int64(7), model.MediaContainerInProgress, model.MediaContainerFailed, mock.AnythingOfType("*string")).
		Return(true, nil).
		Once()
	m.tasks.On("UpdateFailure", mock.Anything, "task-1", model.PublishStatusFailed, "provider ingestion failed").
		Return(nil).
		Once()
	m.notifier.On("NotifyOutcome", mock.Anything, mock.AnythingOfType("*model.PublishTask")).
		Return(nil).
		Once()

	u := m.usecase(usecase.NewRegistry(adapter))

	err := u.HandleMediaJob(context.Background(), model.MediaJob{TaskID: "task-1", JobID: "media_x"})

	assert.NoError(t, err)
	m.tasks.AssertExpectations(t)
	m.containers.AssertExpectations(t)
}

func TestMediaUsecase_HandleMediaJob_PollBudgetExhausted(t *testing.T) {
	m := newMediaMocks()
	adapter := NewMockFullAdapter(model.PlatformInstagram)
	task := publishingTask("task-1")
	task.Platform = model.PlatformInstagram
	container := igContainer(model.MediaContainerInProgress)
	cred := normalCredential(2 * time.Hour)

	m.tasks.On("GetByID", mock.Anything, "task-1").Return(task, nil).Once()
	m.containers.On("GetByTask", mock.Anything, "task-1", model.PlatformInstagram).Return(container, nil).Once()
	m.tokens.On("EnsureValid", mock.Anything, "acct-1", model.PlatformInstagram).Return(cred, nil).Once()
	adapter.On("LookupContainer", mock.Anything, "old-access", "ig-container-9").
		Return(model.MediaContainerInProgress, "", nil).
		Once()
	m.containers.On("Transition", mock.Anything, int64(7), model.MediaContainerInProgress, model.MediaContainerFailed, mock.AnythingOfType("*string")).
		Return(true, nil).
		Once()
	m.tasks.On("UpdateFailure", mock.Anything, "task-1", model.PublishStatusFailed, "ingestion did not finish in time").
		Return(nil).
		Once()
	m.notifier.On("NotifyOutcome", mock.Anything, mock.AnythingOfType("*model.PublishTask")).
		Return(nil).
		Once()

	u := m.usecase(usecase.NewRegistry(adapter))

	err := u.HandleMediaJob(context.Background(), model.MediaJob{TaskID: "task-1", JobID: "media_x", Attempts: 59})

	assert.NoError(t, err)
	m.tasks.AssertExpectations(t)
	m.queue.AssertNotCalled(t, "EnqueueMedia", mock.Anything, mock.Anything)
}

func TestMediaUsecase_HandleMediaJob_SettledTaskDropped(t *testing.T) {
	m := newMediaMocks()
	adapter := NewMockFullAdapter(model.PlatformInstagram)
	task := publishingTask("task-1")
	task.Status = model.PublishStatusFailed

	m.tasks.On("GetByID", mock.Anything, "task-1").Return(task, nil).Once()

	u := m.usecase(usecase.NewRegistry(adapter))

	err := u.HandleMediaJob(context.Background(), model.MediaJob{TaskID: "task-1", JobID: "media_x"})

	assert.NoError(t, err)
	m.containers.AssertNotCalled(t, "GetByTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestMediaUsecase_HandleMediaJob_TerminalContainerDropped(t *testing.T) {
	m := newMediaMocks()
	adapter := NewMockFullAdapter(model.PlatformInstagram)
	task := publishingTask("task-1")
	task.Platform = model.PlatformInstagram
	container := igContainer(model.MediaContainerFinished)

	m.tasks.On("GetByID", mock.Anything, "task-1").Return(task, nil).Once()
	m.containers.On("GetByTask", mock.Anything, "task-1", model.PlatformInstagram).Return(container, nil).Once()

	u := m.usecase(usecase.NewRegistry(adapter))

	err := u.HandleMediaJob(context.Background(), model.MediaJob{TaskID: "task-1", JobID: "media_x"})

	assert.NoError(t, err)
	adapter.AssertNotCalled(t, "LookupContainer", mock.Anything, mock.Anything, mock.Anything)
}
