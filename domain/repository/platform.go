package repository

import (
	"context"

	"crosspost/domain/model"
)

// AuthURLParams is everything an adapter needs to build a consent URL.
type AuthURLParams struct {
	State         string
	Scopes        []string
	FlowType      model.AuthFlowType
	PKCEChallenge string
}

// TokenInfo is the normalized provider token response.
type TokenInfo struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64 // seconds
	RefreshExpiresIn int64 // seconds, 0 when the provider does not report one
	Scopes           string
	ProviderUID      string
	Nickname         string
	Avatar           string
}

// PublishResult is the normalized outcome of an adapter publish call. Async
// results carry a provider container reference still being ingested.
type PublishResult struct {
	WorkID     string
	WorkLink   string
	ResultData string
	Async      bool
	// ContainerRef is the provider-side ingestion handle when Async is true.
	ContainerRef string
}

// MetricSnapshot is the normalized per-work metrics payload.
type MetricSnapshot struct {
	WorkID   string `json:"work_id"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
}

// IPlatformAdapter is the capability contract every platform implements.
// Optional capabilities are separate interfaces the orchestration discovers
// by type assertion; a platform without a capability simply does not
// implement the interface.
type IPlatformAdapter interface {
	Platform() model.Platform
	GenerateAuthURL(p AuthURLParams) string
	ExchangeCode(ctx context.Context, code, pkceVerifier string) (*TokenInfo, error)
	Publish(ctx context.Context, task *model.PublishTask, accessToken string) (*PublishResult, error)
}

// ITokenRefresher is implemented by platforms that rotate refresh tokens.
type ITokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*TokenInfo, error)
}

// IMediaUploader is implemented by platforms requiring an explicit media
// upload step before publish.
type IMediaUploader interface {
	UploadMedia(ctx context.Context, task *model.PublishTask, accessToken string) (providerRef string, err error)
}

// IContainerPoller is implemented by platforms whose ingestion is
// asynchronous; workers poll until the container reaches a terminal state.
type IContainerPoller interface {
	LookupContainer(ctx context.Context, accessToken, containerRef string) (status model.MediaContainerStatus, workLink string, err error)
}

// IMetricsFetcher is implemented by platforms exposing per-work metrics.
type IMetricsFetcher interface {
	FetchMetrics(ctx context.Context, accessToken, workID string) (*MetricSnapshot, error)
}
