package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/usecase"
)

func pendingOAuthTask(platform model.Platform) *model.OAuthTask {
	return &model.OAuthTask{
		TaskID:    "state-123",
		Platform:  platform,
		UserID:    "user-1",
		Status:    model.OAuthTaskPending,
		CreatedAt: time.Now(),
	}
}

func TestOAuthUsecase_GenerateAuthURL_StoresTaskWithState(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	var storedTask *model.OAuthTask
	mockStore.On("Put", mock.Anything, mock.AnythingOfType("*model.OAuthTask"), model.OAuthTaskTTL).
		Run(func(args mock.Arguments) {
			storedTask = args.Get(1).(*model.OAuthTask)
		}).
		Return(nil).
		Once()
	adapter.On("GenerateAuthURL", mock.MatchedBy(func(p repository.AuthURLParams) bool {
		return p.State != "" && p.PKCEChallenge == ""
	})).
		Return("https://accounts.google.com/o/oauth2/auth?state=x").
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	resp, err := u.GenerateAuthURL(context.Background(), "user-1", &dto.GenerateAuthURLRequest{Platform: "youtube"})

	assert.NoError(t, err)
	assert.NotEmpty(t, resp.URL)
	assert.Equal(t, storedTask.TaskID, resp.TaskID)
	assert.Equal(t, model.OAuthTaskPending, storedTask.Status)
	assert.Empty(t, storedTask.PKCEVerifier)
	mockStore.AssertExpectations(t)
	adapter.AssertExpectations(t)
}

func TestOAuthUsecase_GenerateAuthURL_PKCEForTikTok(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformTikTok)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	var storedTask *model.OAuthTask
	mockStore.On("Put", mock.Anything, mock.AnythingOfType("*model.OAuthTask"), model.OAuthTaskTTL).
		Run(func(args mock.Arguments) {
			storedTask = args.Get(1).(*model.OAuthTask)
		}).
		Return(nil).
		Once()
	adapter.On("GenerateAuthURL", mock.MatchedBy(func(p repository.AuthURLParams) bool {
		return p.PKCEChallenge != ""
	})).
		Return("https://www.tiktok.com/v2/auth/authorize/?state=x").
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	_, err := u.GenerateAuthURL(context.Background(), "user-1", &dto.GenerateAuthURLRequest{Platform: "tiktok"})

	assert.NoError(t, err)
	// The verifier stays server side; only the challenge goes into the URL.
	assert.NotEmpty(t, storedTask.PKCEVerifier)
	adapter.AssertExpectations(t)
}

func TestOAuthUsecase_ExchangeCode_Success(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	task := pendingOAuthTask(model.PlatformYouTube)
	mockStore.On("Get", mock.Anything, "state-123").
		Return(task, nil).
		Once()
	adapter.On("ExchangeCode", mock.Anything, "code-abc", "").
		Return(&repository.TokenInfo{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresIn:    3600,
			ProviderUID:  "chan-1",
			Nickname:     "My Channel",
		}, nil).
		Once()
	mockAccounts.On("EnsureAccount", mock.Anything, repository.NewAccount{
		UserID:   "user-1",
		Platform: model.PlatformYouTube,
		UID:      "chan-1",
		Nickname: "My Channel",
	}).
		Return("acct-1", nil).
		Once()
	mockStore.On("Resolve", mock.Anything, "state-123", mock.MatchedBy(func(tsk *model.OAuthTask) bool {
		return tsk.Status == model.OAuthTaskSuccess && tsk.AccountID == "acct-1"
	}), model.OAuthTaskExtendTTL).
		Return(true, nil, nil).
		Once()
	mockCreds.On("Upsert", mock.Anything, mock.MatchedBy(func(c *model.OAuth2Credential) bool {
		return c.AccountID == "acct-1" && c.AccessToken == "access" && c.Status == model.CredentialStatusNormal
	})).
		Return(nil).
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	resp, err := u.ExchangeCode(context.Background(), "state-123", "code-abc", "state-123")

	assert.NoError(t, err)
	assert.Equal(t, string(model.OAuthTaskSuccess), resp.Status)
	assert.Equal(t, "acct-1", resp.AccountID)
	mockStore.AssertExpectations(t)
	mockCreds.AssertExpectations(t)
	mockAccounts.AssertExpectations(t)
	adapter.AssertExpectations(t)
}

func TestOAuthUsecase_ExchangeCode_CredentialPersistFailureResolvesFail(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	task := pendingOAuthTask(model.PlatformYouTube)
	mockStore.On("Get", mock.Anything, "state-123").
		Return(task, nil).
		Once()
	adapter.On("ExchangeCode", mock.Anything, "code-abc", "").
		Return(&repository.TokenInfo{
			AccessToken: "access",
			ExpiresIn:   3600,
			ProviderUID: "chan-1",
		}, nil).
		Once()
	mockAccounts.On("EnsureAccount", mock.Anything, mock.AnythingOfType("repository.NewAccount")).
		Return("acct-1", nil).
		Once()
	mockCreds.On("Upsert", mock.Anything, mock.AnythingOfType("*model.OAuth2Credential")).
		Return(assert.AnError).
		Once()
	// The stored task must never read Success when no credential exists.
	mockStore.On("Resolve", mock.Anything, "state-123", mock.MatchedBy(func(tsk *model.OAuthTask) bool {
		return tsk.Status == model.OAuthTaskFail && tsk.AccountID == "" && tsk.ErrorMsg != ""
	}), model.OAuthTaskExtendTTL).
		Return(true, nil, nil).
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	_, err := u.ExchangeCode(context.Background(), "state-123", "code-abc", "state-123")

	assert.ErrorIs(t, err, assert.AnError)
	mockStore.AssertExpectations(t)
	mockCreds.AssertExpectations(t)
}

func TestOAuthUsecase_ExchangeCode_ReplayReturnsStoredResult(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	task := pendingOAuthTask(model.PlatformYouTube)
	task.Status = model.OAuthTaskSuccess
	task.AccountID = "acct-1"
	mockStore.On("Get", mock.Anything, "state-123").
		Return(task, nil).
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	resp, err := u.ExchangeCode(context.Background(), "state-123", "code-abc", "state-123")

	assert.NoError(t, err)
	assert.Equal(t, string(model.OAuthTaskSuccess), resp.Status)
	assert.Equal(t, "acct-1", resp.AccountID)
	// A resolved task never re-runs the provider exchange.
	adapter.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything, mock.Anything)
	mockCreds.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestOAuthUsecase_ExchangeCode_StateMismatch(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	mockStore.On("Get", mock.Anything, "state-123").
		Return(pendingOAuthTask(model.PlatformYouTube), nil).
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	_, err := u.ExchangeCode(context.Background(), "state-123", "code-abc", "forged-state")

	assert.ErrorIs(t, err, usecase.ErrOAuthStateMismatch)
	adapter.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestOAuthUsecase_ExchangeCode_ExpiredTask(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	mockStore.On("Get", mock.Anything, "state-123").
		Return(nil, nil).
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	_, err := u.ExchangeCode(context.Background(), "state-123", "code-abc", "state-123")

	assert.ErrorIs(t, err, usecase.ErrOAuthTaskNotFound)
}

func TestOAuthUsecase_ExchangeCode_RaceLoserKeepsWinnersResult(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	task := pendingOAuthTask(model.PlatformYouTube)
	winners := pendingOAuthTask(model.PlatformYouTube)
	winners.Status = model.OAuthTaskSuccess
	winners.AccountID = "acct-from-winner"

	mockStore.On("Get", mock.Anything, "state-123").
		Return(task, nil).
		Once()
	adapter.On("ExchangeCode", mock.Anything, "code-abc", "").
		Return(&repository.TokenInfo{AccessToken: "access", ExpiresIn: 3600, ProviderUID: "chan-1"}, nil).
		Once()
	mockAccounts.On("EnsureAccount", mock.Anything, mock.AnythingOfType("repository.NewAccount")).
		Return("acct-2", nil).
		Once()
	// The loser's own exchange also succeeded, so its idempotent credential
	// write lands before the resolve loss is known.
	mockCreds.On("Upsert", mock.Anything, mock.AnythingOfType("*model.OAuth2Credential")).
		Return(nil).
		Once()
	mockStore.On("Resolve", mock.Anything, "state-123", mock.AnythingOfType("*model.OAuthTask"), model.OAuthTaskExtendTTL).
		Return(false, winners, nil).
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	resp, err := u.ExchangeCode(context.Background(), "state-123", "code-abc", "state-123")

	assert.NoError(t, err)
	assert.Equal(t, "acct-from-winner", resp.AccountID)
	mockCreds.AssertExpectations(t)
}

func TestOAuthUsecase_ExchangeCode_ProviderFailureResolvesFail(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	mockStore.On("Get", mock.Anything, "state-123").
		Return(pendingOAuthTask(model.PlatformYouTube), nil).
		Once()
	adapter.On("ExchangeCode", mock.Anything, "bad-code", "").
		Return(nil, assert.AnError).
		Once()
	mockStore.On("Resolve", mock.Anything, "state-123", mock.MatchedBy(func(tsk *model.OAuthTask) bool {
		return tsk.Status == model.OAuthTaskFail && tsk.ErrorMsg != ""
	}), model.OAuthTaskExtendTTL).
		Return(true, nil, nil).
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	resp, err := u.ExchangeCode(context.Background(), "state-123", "bad-code", "state-123")

	assert.NoError(t, err)
	assert.Equal(t, string(model.OAuthTaskFail), resp.Status)
	mockCreds.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	mockAccounts.AssertNotCalled(t, "EnsureAccount", mock.Anything, mock.Anything)
}

func TestOAuthUsecase_GetAuthInfo_MissingTaskIsExpired(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	mockStore.On("Get", mock.Anything, "state-123").
		Return(nil, nil).
		Once()

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	resp, err := u.GetAuthInfo(context.Background(), "state-123")

	assert.NoError(t, err)
	assert.Equal(t, string(model.OAuthTaskExpired), resp.Status)
}

func TestOAuthUsecase_FinalizeAccount_OwnershipChecked(t *testing.T) {
	adapter := NewMockAdapter(model.PlatformYouTube)
	mockStore := new(MockOAuthTaskStore)
	mockCreds := new(MockCredentialRepo)
	mockAccounts := new(MockAccountService)

	task := pendingOAuthTask(model.PlatformYouTube)
	task.Status = model.OAuthTaskSuccess
	task.AccountID = "acct-1"
	mockStore.On("Get", mock.Anything, "state-123").
		Return(task, nil)

	u := usecase.NewOAuthUsecase(usecase.NewRegistry(adapter), mockStore, mockCreds, mockAccounts)

	_, err := u.FinalizeAccount(context.Background(), "someone-else", "state-123")
	assert.Error(t, err)

	resp, err := u.FinalizeAccount(context.Background(), "user-1", "state-123")
	assert.NoError(t, err)
	assert.Equal(t, "acct-1", resp.AccountID)
}
