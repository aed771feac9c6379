package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

// Mock implementations

type MockPublishTaskRepo struct {
	mock.Mock
}

func (m *MockPublishTaskRepo) Create(ctx context.Context, task *model.PublishTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockPublishTaskRepo) GetByID(ctx context.Context, id string) (*model.PublishTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishTask), args.Error(1)
}

func (m *MockPublishTaskRepo) ListDue(ctx context.Context, start, end time.Time) ([]*model.PublishTask, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishTask), args.Error(1)
}

func (m *MockPublishTaskRepo) UpdateStatusIf(ctx context.Context, id string, from, to model.PublishStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockPublishTaskRepo) MarkInQueue(ctx context.Context, id string, inQueue bool) error {
	args := m.Called(ctx, id, inQueue)
	return args.Error(0)
}

func (m *MockPublishTaskRepo) UpdateSuccess(ctx context.Context, id, workLink, resultData string) error {
	args := m.Called(ctx, id, workLink, resultData)
	return args.Error(0)
}

func (m *MockPublishTaskRepo) UpdateFailure(ctx context.Context, id string, status model.PublishStatus, errorMsg string) error {
	args := m.Called(ctx, id, status, errorMsg)
	return args.Error(0)
}

func (m *MockPublishTaskRepo) UpdatePublishTime(ctx context.Context, id, userID string, publishTime time.Time) error {
	args := m.Called(ctx, id, userID, publishTime)
	return args.Error(0)
}

func (m *MockPublishTaskRepo) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueuePublish(ctx context.Context, job model.PublishJob) (bool, error) {
	args := m.Called(ctx, job)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobQueue) EnqueueMedia(ctx context.Context, job model.MediaJob) (bool, error) {
	args := m.Called(ctx, job)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobQueue) ClearDedupe(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

type MockLockStore struct {
	mock.Mock
}

func (m *MockLockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLockStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockCredentialRepo struct {
	mock.Mock
}

func (m *MockCredentialRepo) Upsert(ctx context.Context, cred *model.OAuth2Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialRepo) Get(ctx context.Context, accountID string, platform model.Platform) (*model.OAuth2Credential, error) {
	args := m.Called(ctx, accountID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuth2Credential), args.Error(1)
}

func (m *MockCredentialRepo) UpdateTokens(ctx context.Context, cred *model.OAuth2Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialRepo) MarkStatus(ctx context.Context, accountID string, platform model.Platform, status model.CredentialStatus) error {
	args := m.Called(ctx, accountID, platform, status)
	return args.Error(0)
}

type MockOAuthTaskStore struct {
	mock.Mock
}

func (m *MockOAuthTaskStore) Put(ctx context.Context, task *model.OAuthTask, ttl time.Duration) error {
	args := m.Called(ctx, task, ttl)
	return args.Error(0)
}

func (m *MockOAuthTaskStore) Get(ctx context.Context, taskID string) (*model.OAuthTask, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuthTask), args.Error(1)
}

func (m *MockOAuthTaskStore) Resolve(ctx context.Context, taskID string, terminal *model.OAuthTask, extend time.Duration) (bool, *model.OAuthTask, error) {
	args := m.Called(ctx, taskID, terminal, extend)
	var current *model.OAuthTask
	if args.Get(1) != nil {
		current = args.Get(1).(*model.OAuthTask)
	}
	return args.Bool(0), current, args.Error(2)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) EnsureAccount(ctx context.Context, acc repository.NewAccount) (string, error) {
	args := m.Called(ctx, acc)
	return args.String(0), args.Error(1)
}

type MockMediaContainerRepo struct {
	mock.Mock
}

func (m *MockMediaContainerRepo) Create(ctx context.Context, c *model.MediaContainer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockMediaContainerRepo) GetByTask(ctx context.Context, publishTaskID string, platform model.Platform) (*model.MediaContainer, error) {
	args := m.Called(ctx, publishTaskID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MediaContainer), args.Error(1)
}

func (m *MockMediaContainerRepo) Transition(ctx context.Context, id int64, from, to model.MediaContainerStatus, errorMsg *string) (bool, error) {
	args := m.Called(ctx, id, from, to, errorMsg)
	return args.Bool(0), args.Error(1)
}

type MockPublishRecordRepo struct {
	mock.Mock
}

func (m *MockPublishRecordRepo) Insert(ctx context.Context, rec *model.PublishRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockPublishRecordRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.PublishRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishRecord), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyOutcome(ctx context.Context, task *model.PublishTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

type MockMediaStorage struct {
	mock.Mock
}

func (m *MockMediaStorage) InitMultipartUpload(ctx context.Context, fileName, path string, size int64, contentType string) (*model.UploadSession, error) {
	args := m.Called(ctx, fileName, path, size, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadSession), args.Error(1)
}

func (m *MockMediaStorage) UploadPart(ctx context.Context, session *model.UploadSession, partNumber int, blob []byte) (*model.UploadPart, error) {
	args := m.Called(ctx, session, partNumber, blob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadPart), args.Error(1)
}

func (m *MockMediaStorage) CompleteUpload(ctx context.Context, session *model.UploadSession, parts []model.UploadPart) (string, error) {
	args := m.Called(ctx, session, parts)
	return args.String(0), args.Error(1)
}

type MockTokenUsecase struct {
	mock.Mock
}

func (m *MockTokenUsecase) EnsureValid(ctx context.Context, accountID string, platform model.Platform) (*model.OAuth2Credential, error) {
	args := m.Called(ctx, accountID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuth2Credential), args.Error(1)
}

// MockAdapter covers the mandatory adapter surface only; platforms that lack
// refresh, polling, or metrics capabilities are represented by this type.
type MockAdapter struct {
	mock.Mock
	platform model.Platform
}

func NewMockAdapter(p model.Platform) *MockAdapter {
	return &MockAdapter{platform: p}
}

func (m *MockAdapter) Platform() model.Platform { return m.platform }

func (m *MockAdapter) GenerateAuthURL(p repository.AuthURLParams) string {
	args := m.Called(p)
	return args.String(0)
}

func (m *MockAdapter) ExchangeCode(ctx context.Context, code, pkceVerifier string) (*repository.TokenInfo, error) {
	args := m.Called(ctx, code, pkceVerifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TokenInfo), args.Error(1)
}

func (m *MockAdapter) Publish(ctx context.Context, task *model.PublishTask, accessToken string) (*repository.PublishResult, error) {
	args := m.Called(ctx, task, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PublishResult), args.Error(1)
}

// MockFullAdapter adds every optional capability on top of MockAdapter.
type MockFullAdapter struct {
	MockAdapter
}

func NewMockFullAdapter(p model.Platform) *MockFullAdapter {
	a := &MockFullAdapter{}
	a.platform = p
	return a
}

func (m *MockFullAdapter) RefreshToken(ctx context.Context, refreshToken string) (*repository.TokenInfo, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TokenInfo), args.Error(1)
}

func (m *MockFullAdapter) LookupContainer(ctx context.Context, accessToken, containerRef string) (model.MediaContainerStatus, string, error) {
	args := m.Called(ctx, accessToken, containerRef)
	return args.Get(0).(model.MediaContainerStatus), args.String(1), args.Error(2)
}

func (m *MockFullAdapter) FetchMetrics(ctx context.Context, accessToken, workID string) (*repository.MetricSnapshot, error) {
	args := m.Called(ctx, accessToken, workID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.MetricSnapshot), args.Error(1)
}
