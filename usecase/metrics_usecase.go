package usecase

import (
	"context"
	"errors"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

var ErrMetricsUnsupported = errors.New("platform does not expose work metrics")

type IMetricsUsecase interface {
	Fetch(ctx context.Context, accountID string, platform model.Platform, workID string) (*repository.MetricSnapshot, error)
}

type metricsUsecase struct {
	tokens   ITokenUsecase
	registry *Registry
}

func NewMetricsUsecase(tokens ITokenUsecase, registry *Registry) IMetricsUsecase {
	return &metricsUsecase{tokens: tokens, registry: registry}
}

func (u *metricsUsecase) Fetch(ctx context.Context, accountID string, platform model.Platform, workID string) (*repository.MetricSnapshot, error) {
	if workID == "" {
		return nil, errors.New("work id required")
	}
	fetcher, ok := u.registry.Metrics(platform)
	if !ok {
		return nil, ErrMetricsUnsupported
	}
	cred, err := u.tokens.EnsureValid(ctx, accountID, platform)
	if err != nil {
		return nil, err
	}
	return fetcher.FetchMetrics(ctx, cred.AccessToken, workID)
}
