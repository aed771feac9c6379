package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/configuration"
	"crosspost/infrastructure/logger"
)

// Adapter publishes videos through the YouTube Data API v3 using the Google
// API client. Tokens refresh through the standard oauth2 token source.
type Adapter struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
}

func New(conf configuration.OAuthClient) *Adapter {
	scopes := conf.Scopes
	if len(scopes) == 0 {
		scopes = []string{
			youtube.YoutubeUploadScope,
			youtube.YoutubeReadonlyScope,
		}
	}
	return &Adapter{
		oauthConfig: &oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RedirectURL:  conf.RedirectURI,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (a *Adapter) Platform() model.Platform { return model.PlatformYouTube }

func (a *Adapter) GenerateAuthURL(p repository.AuthURLParams) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}
	if p.PKCEChallenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", p.PKCEChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"))
	}
	return a.oauthConfig.AuthCodeURL(p.State, opts...)
}

// classify maps Google API errors into the taxonomy. Quota exhaustion arrives
// as 403 with dedicated reasons, so the status alone is not enough.
func classify(err error) error {
	var ge *googleapi.Error
	if !errors.As(err, &ge) {
		return model.NewPlatformError(model.ErrKindTransientNetwork, "youtube request failed", err)
	}
	for _, e := range ge.Errors {
		switch e.Reason {
		case "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded", "uploadLimitExceeded":
			return model.NewPlatformError(model.ErrKindRateLimit, "youtube throttled: "+ge.Message, err)
		case "authError", "expiredToken", "invalidCredentials":
			return model.NewPlatformError(model.ErrKindAuthExpired, "youtube token invalid: "+ge.Message, err)
		case "invalidVideoMetadata", "defaultLanguageNotSet", "invalidDescription", "invalidTitle":
			return model.NewPlatformError(model.ErrKindValidation, "youtube rejected metadata: "+ge.Message, err)
		}
	}
	switch {
	case ge.Code == http.StatusUnauthorized || ge.Code == http.StatusForbidden:
		return model.NewPlatformError(model.ErrKindAuthExpired, "youtube auth failed: "+ge.Message, err)
	case ge.Code == http.StatusTooManyRequests:
		return model.NewPlatformError(model.ErrKindRateLimit, "youtube throttled: "+ge.Message, err)
	case ge.Code >= 500:
		return model.NewPlatformError(model.ErrKindTransientNetwork, "youtube unavailable: "+ge.Message, err)
	case ge.Code >= 400:
		return model.NewPlatformError(model.ErrKindValidation, "youtube rejected request: "+ge.Message, err)
	}
	return model.NewPlatformError(model.ErrKindUnknownProvider, "youtube error: "+ge.Message, err)
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, pkceVerifier string) (*repository.TokenInfo, error) {
	opts := []oauth2.AuthCodeOption{}
	if pkceVerifier != "" {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", pkceVerifier))
	}
	tok, err := a.oauthConfig.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, model.NewPlatformError(model.ErrKindAuthExpired, "youtube code exchange failed", err)
	}

	svc, err := a.service(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	ch, err := svc.Channels.List([]string{"snippet"}).Mine(true).Do()
	if err != nil {
		return nil, classify(err)
	}
	info := &repository.TokenInfo{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    int64(time.Until(tok.Expiry).Seconds()),
		Scopes:       strings.Join(a.oauthConfig.Scopes, " "),
	}
	if len(ch.Items) > 0 {
		item := ch.Items[0]
		info.ProviderUID = item.Id
		info.Nickname = item.Snippet.Title
		if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.Default != nil {
			info.Avatar = item.Snippet.Thumbnails.Default.Url
		}
	}
	return info, nil
}

func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*repository.TokenInfo, error) {
	src := a.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, model.NewPlatformError(model.ErrKindAuthExpired, "youtube token refresh failed", err)
	}
	newRefresh := tok.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	return &repository.TokenInfo{
		AccessToken:  tok.AccessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(time.Until(tok.Expiry).Seconds()),
	}, nil
}

func (a *Adapter) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	svc, err := youtube.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, model.NewPlatformError(model.ErrKindTransientNetwork, "failed to create youtube service", err)
	}
	return svc, nil
}

func (a *Adapter) Publish(ctx context.Context, task *model.PublishTask, accessToken string) (*repository.PublishResult, error) {
	if task.Kind != model.PublishKindVideo {
		return nil, model.NewPlatformError(model.ErrKindValidation, "youtube only supports video tasks", nil)
	}
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.VideoURL, nil)
	if err != nil {
		return nil, model.NewPlatformError(model.ErrKindValidation, "invalid video url", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, model.NewPlatformError(model.ErrKindTransientNetwork, "failed to fetch video source", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewPlatformError(model.ErrKindValidation,
			fmt.Sprintf("video source returned status %d", resp.StatusCode), nil)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       task.Title,
			Description: task.Description,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}
	inserted, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(resp.Body).Do()
	if err != nil {
		return nil, classify(err)
	}
	logger.GetLogger().WithField("task_id", task.ID).WithField("video_id", inserted.Id).Info("YouTube video uploaded")
	return &repository.PublishResult{
		WorkID:   inserted.Id,
		WorkLink: "https://www.youtube.com/watch?v=" + inserted.Id,
	}, nil
}

func (a *Adapter) FetchMetrics(ctx context.Context, accessToken, workID string) (*repository.MetricSnapshot, error) {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	res, err := svc.Videos.List([]string{"statistics"}).Id(workID).Do()
	if err != nil {
		return nil, classify(err)
	}
	if len(res.Items) == 0 {
		return nil, model.NewPlatformError(model.ErrKindValidation, "video not found: "+workID, nil)
	}
	st := res.Items[0].Statistics
	if st == nil {
		return &repository.MetricSnapshot{WorkID: workID}, nil
	}
	return &repository.MetricSnapshot{
		WorkID:   workID,
		Views:    int64(st.ViewCount),
		Likes:    int64(st.LikeCount),
		Comments: int64(st.CommentCount),
	}, nil
}
