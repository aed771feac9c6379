package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/usecase"
)

func TestMetricsUsecase_Fetch(t *testing.T) {
	mockTokens := new(MockTokenUsecase)
	adapter := NewMockFullAdapter(model.PlatformYouTube)

	cred := normalCredential(2 * time.Hour)
	mockTokens.On("EnsureValid", mock.Anything, "acct-1", model.PlatformYouTube).
		Return(cred, nil).
		Once()
	adapter.On("FetchMetrics", mock.Anything, "old-access", "vid-1").
		Return(&repository.MetricSnapshot{WorkID: "vid-1", Views: 120, Likes: 7}, nil).
		Once()

	u := usecase.NewMetricsUsecase(mockTokens, usecase.NewRegistry(adapter))

	snap, err := u.Fetch(context.Background(), "acct-1", model.PlatformYouTube, "vid-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(120), snap.Views)
	mockTokens.AssertExpectations(t)
	adapter.AssertExpectations(t)
}

func TestMetricsUsecase_Fetch_UnsupportedPlatform(t *testing.T) {
	mockTokens := new(MockTokenUsecase)
	// Base adapter only, no metrics capability.
	u := usecase.NewMetricsUsecase(mockTokens, usecase.NewRegistry(NewMockAdapter(model.PlatformTikTok)))

	_, err := u.Fetch(context.Background(), "acct-1", model.PlatformTikTok, "vid-1")

	assert.ErrorIs(t, err, usecase.ErrMetricsUnsupported)
	mockTokens.AssertNotCalled(t, "EnsureValid", mock.Anything, mock.Anything, mock.Anything)
}

func TestMetricsUsecase_Fetch_EmptyWorkID(t *testing.T) {
	mockTokens := new(MockTokenUsecase)
	u := usecase.NewMetricsUsecase(mockTokens, usecase.NewRegistry(NewMockFullAdapter(model.PlatformYouTube)))

	_, err := u.Fetch(context.Background(), "acct-1", model.PlatformYouTube, "")

	assert.Error(t, err)
}

func TestRegistry_CapabilityLookup(t *testing.T) {
	full := NewMockFullAdapter(model.PlatformYouTube)
	base := NewMockAdapter(model.PlatformFacebook)
	registry := usecase.NewRegistry(full, base)

	_, err := registry.Get(model.PlatformYouTube)
	assert.NoError(t, err)
	_, err = registry.Get(model.PlatformTwitter)
	assert.ErrorIs(t, err, usecase.ErrUnknownPlatform)

	_, ok := registry.Refresher(model.PlatformYouTube)
	assert.True(t, ok)
	_, ok = registry.Refresher(model.PlatformFacebook)
	assert.False(t, ok)

	_, ok = registry.Poller(model.PlatformYouTube)
	assert.True(t, ok)
	_, ok = registry.Metrics(model.PlatformFacebook)
	assert.False(t, ok)
}
