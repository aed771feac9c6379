package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

const refreshLockTTL = 30 * time.Second

// Platforms with short-lived access tokens refresh on a tighter buffer than
// the configured default.
var refreshThresholdOverrides = map[model.Platform]time.Duration{
	model.PlatformTikTok:  10 * time.Minute,
	model.PlatformTwitter: 10 * time.Minute,
}

type ITokenUsecase interface {
	// EnsureValid returns a credential whose access token is good for at
	// least the refresh threshold, refreshing it first when necessary.
	EnsureValid(ctx context.Context, accountID string, platform model.Platform) (*model.OAuth2Credential, error)
}

type tokenUsecase struct {
	creds     repository.ICredential
	registry  *Registry
	locks     repository.ILockStore
	threshold time.Duration
	group     singleflight.Group
	now       func() time.Time
}

func NewTokenUsecase(creds repository.ICredential, registry *Registry, locks repository.ILockStore, threshold time.Duration) ITokenUsecase {
	return &tokenUsecase{
		creds:     creds,
		registry:  registry,
		locks:     locks,
		threshold: threshold,
		now:       time.Now,
	}
}

func (u *tokenUsecase) thresholdFor(platform model.Platform) time.Duration {
	if d, ok := refreshThresholdOverrides[platform]; ok && d < u.threshold {
		return d
	}
	return u.threshold
}

func (u *tokenUsecase) EnsureValid(ctx context.Context, accountID string, platform model.Platform) (*model.OAuth2Credential, error) {
	cred, err := u.creds.Get(ctx, accountID, platform)
	if err != nil {
		return nil, err
	}
	now := u.now()
	if cred.Status == model.CredentialStatusAbnormal {
		return nil, model.NewPlatformError(model.ErrKindAuthExpired, "credential marked abnormal, re-authorization required", nil)
	}
	if !cred.ExpiresWithin(now, u.thresholdFor(platform)) {
		return cred, nil
	}

	_, ok := u.registry.Refresher(platform)
	if !ok {
		// No refresh capability; the token is used until the provider
		// rejects it.
		return cred, nil
	}
	if cred.RefreshExpired(now) {
		if err := u.creds.MarkStatus(ctx, accountID, platform, model.CredentialStatusAbnormal); err != nil {
			logger.GetLogger().WithField("account_id", accountID).WithField("error", err).Error("Failed to mark credential abnormal")
		}
		return nil, model.NewPlatformError(model.ErrKindAuthExpired, "refresh token expired, re-authorization required", nil)
	}

	key := fmt.Sprintf("%s:%s", accountID, platform)
	v, err, _ := u.group.Do(key, func() (any, error) {
		return u.refresh(ctx, key, cred)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.OAuth2Credential), nil
}

// refresh performs the provider call under a cross-instance lock. A process
// that loses the lock re-reads the row, since the winner has usually already
// stored the new tokens.
func (u *tokenUsecase) refresh(ctx context.Context, key string, cred *model.OAuth2Credential) (*model.OAuth2Credential, error) {
	acquired, err := u.locks.Acquire(ctx, "token:refresh:"+key, refreshLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		fresh, err := u.creds.Get(ctx, cred.AccountID, cred.Platform)
		if err != nil {
			return nil, err
		}
		if !fresh.ExpiresWithin(u.now(), u.thresholdFor(cred.Platform)) {
			return fresh, nil
		}
		// Holder still working or crashed; use what we have and let the
		// next call retry.
		return fresh, nil
	}
	defer func() {
		if err := u.locks.Release(context.WithoutCancel(ctx), "token:refresh:"+key); err != nil {
			logger.GetLogger().WithField("key", key).WithField("error", err).Warn("Failed to release refresh lock")
		}
	}()

	refresher, _ := u.registry.Refresher(cred.Platform)
	info, err := refresher.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		if markErr := u.creds.MarkStatus(ctx, cred.AccountID, cred.Platform, model.CredentialStatusAbnormal); markErr != nil {
			logger.GetLogger().WithField("account_id", cred.AccountID).WithField("error", markErr).Error("Failed to mark credential abnormal")
		}
		return nil, model.NewPlatformError(model.ErrKindAuthExpired, "token refresh failed", err)
	}

	now := u.now()
	updated := *cred
	updated.AccessToken = info.AccessToken
	if info.RefreshToken != "" {
		updated.RefreshToken = info.RefreshToken
	}
	updated.AccessTokenExpiresAt = now.Add(time.Duration(info.ExpiresIn) * time.Second)
	if info.RefreshExpiresIn > 0 {
		t := now.Add(time.Duration(info.RefreshExpiresIn) * time.Second)
		updated.RefreshTokenExpiresAt = &t
	}
	updated.Status = model.CredentialStatusNormal
	if err := u.creds.UpdateTokens(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to store refreshed tokens: %w", err)
	}
	logger.GetLogger().WithField("account_id", cred.AccountID).WithField("platform", cred.Platform).Info("Access token refreshed")
	return &updated, nil
}
