package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

var (
	ErrOAuthTaskNotFound  = errors.New("oauth task not found or expired")
	ErrOAuthStateMismatch = errors.New("state does not match oauth task")
)

type IOAuthUsecase interface {
	GenerateAuthURL(ctx context.Context, userID string, req *dto.GenerateAuthURLRequest) (*dto.GenerateAuthURLResponse, error)
	// ExchangeCode turns a provider callback into a bound credential. Calling
	// it again for an already-resolved task returns the stored result instead
	// of re-running the exchange.
	ExchangeCode(ctx context.Context, taskID, code, state string) (*dto.AuthInfoResponse, error)
	GetAuthInfo(ctx context.Context, taskID string) (*dto.AuthInfoResponse, error)
	FinalizeAccount(ctx context.Context, userID, taskID string) (*dto.AuthInfoResponse, error)
}

// pkcePlatforms lists providers whose consent flow requires PKCE.
var pkcePlatforms = map[model.Platform]struct{}{
	model.PlatformTikTok:  {},
	model.PlatformTwitter: {},
}

type oauthUsecase struct {
	registry *Registry
	tasks    repository.IOAuthTaskStore
	creds    repository.ICredential
	accounts repository.IAccountService
}

func NewOAuthUsecase(registry *Registry, tasks repository.IOAuthTaskStore, creds repository.ICredential, accounts repository.IAccountService) IOAuthUsecase {
	return &oauthUsecase{registry: registry, tasks: tasks, creds: creds, accounts: accounts}
}

func randomState() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func pkcePair() (verifier, challenge string) {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	verifier = base64.RawURLEncoding.EncodeToString(b)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge
}

func (u *oauthUsecase) GenerateAuthURL(ctx context.Context, userID string, req *dto.GenerateAuthURLRequest) (*dto.GenerateAuthURLResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	platform := model.Platform(req.Platform)
	adapter, err := u.registry.Get(platform)
	if err != nil {
		return nil, err
	}

	task := &model.OAuthTask{
		TaskID:    randomState(),
		Platform:  platform,
		UserID:    userID,
		SpaceID:   req.SpaceID,
		FlowType:  model.AuthFlowType(req.FlowType),
		Status:    model.OAuthTaskPending,
		CreatedAt: time.Now(),
	}

	params := repository.AuthURLParams{
		State:    task.TaskID,
		Scopes:   req.Scopes,
		FlowType: task.FlowType,
	}
	if _, ok := pkcePlatforms[platform]; ok {
		verifier, challenge := pkcePair()
		task.PKCEVerifier = verifier
		params.PKCEChallenge = challenge
	}

	if err := u.tasks.Put(ctx, task, model.OAuthTaskTTL); err != nil {
		return nil, fmt.Errorf("failed to store oauth task: %w", err)
	}

	url := adapter.GenerateAuthURL(params)
	logger.GetLogger().WithField("task_id", task.TaskID).WithField("platform", platform).Info("Auth URL generated")
	return &dto.GenerateAuthURLResponse{TaskID: task.TaskID, URL: url}, nil
}

func authInfo(task *model.OAuthTask) *dto.AuthInfoResponse {
	return &dto.AuthInfoResponse{
		TaskID:    task.TaskID,
		Status:    string(task.Status),
		AccountID: task.AccountID,
		ErrorMsg:  task.ErrorMsg,
	}
}

func (u *oauthUsecase) ExchangeCode(ctx context.Context, taskID, code, state string) (*dto.AuthInfoResponse, error) {
	task, err := u.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrOAuthTaskNotFound
	}
	if task.Status.Terminal() {
		return authInfo(task), nil
	}
	if state != task.TaskID {
		return nil, ErrOAuthStateMismatch
	}

	adapter, err := u.registry.Get(task.Platform)
	if err != nil {
		return nil, err
	}

	terminal := *task
	info, exchErr := adapter.ExchangeCode(ctx, code, task.PKCEVerifier)
	if exchErr != nil {
		terminal.Status = model.OAuthTaskFail
		terminal.ErrorMsg = exchErr.Error()
	} else {
		accountID, accErr := u.accounts.EnsureAccount(ctx, repository.NewAccount{
			UserID:   task.UserID,
			Platform: task.Platform,
			UID:      info.ProviderUID,
			Nickname: info.Nickname,
			Avatar:   info.Avatar,
		})
		if accErr != nil {
			terminal.Status = model.OAuthTaskFail
			terminal.ErrorMsg = accErr.Error()
		} else {
			terminal.Status = model.OAuthTaskSuccess
			terminal.AccountID = accountID
		}
	}

	// The credential is written before the task is resolved. A stored
	// Success must always mean a usable credential exists; the upsert is
	// idempotent, so a race loser writing it too is harmless.
	var persistErr error
	if terminal.Status == model.OAuthTaskSuccess {
		now := time.Now()
		cred := &model.OAuth2Credential{
			AccountID:            terminal.AccountID,
			UserID:               task.UserID,
			Platform:             task.Platform,
			AccessToken:          info.AccessToken,
			RefreshToken:         info.RefreshToken,
			AccessTokenExpiresAt: now.Add(time.Duration(info.ExpiresIn) * time.Second),
			Scopes:               info.Scopes,
			Status:               model.CredentialStatusNormal,
		}
		if info.RefreshExpiresIn > 0 {
			t := now.Add(time.Duration(info.RefreshExpiresIn) * time.Second)
			cred.RefreshTokenExpiresAt = &t
		}
		if err := u.creds.Upsert(ctx, cred); err != nil {
			logger.GetLogger().WithField("task_id", taskID).WithField("error", err).Error("Failed to persist credential")
			persistErr = err
			terminal.Status = model.OAuthTaskFail
			terminal.AccountID = ""
			terminal.ErrorMsg = "failed to persist credential"
		}
	}

	swapped, current, err := u.tasks.Resolve(ctx, taskID, &terminal, model.OAuthTaskExtendTTL)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Another callback won the race; its result stands.
		return authInfo(current), nil
	}
	if persistErr != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", persistErr)
	}
	if terminal.Status == model.OAuthTaskFail {
		logger.GetLogger().WithField("task_id", taskID).WithField("error", terminal.ErrorMsg).Warn("OAuth exchange failed")
	}
	return authInfo(&terminal), nil
}

func (u *oauthUsecase) GetAuthInfo(ctx context.Context, taskID string) (*dto.AuthInfoResponse, error) {
	task, err := u.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return &dto.AuthInfoResponse{TaskID: taskID, Status: string(model.OAuthTaskExpired)}, nil
	}
	return authInfo(task), nil
}

func (u *oauthUsecase) FinalizeAccount(ctx context.Context, userID, taskID string) (*dto.AuthInfoResponse, error) {
	task, err := u.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrOAuthTaskNotFound
	}
	if task.UserID != userID {
		return nil, errors.New("oauth task belongs to another user")
	}
	if task.Status != model.OAuthTaskSuccess {
		return nil, errors.New("oauth task is not resolved: " + string(task.Status))
	}
	return authInfo(task), nil
}
