package tiktok

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/clients/apihttp"
	"crosspost/infrastructure/configuration"
	"crosspost/infrastructure/logger"
)

const (
	authorizeURL = "https://www.tiktok.com/v2/auth/authorize/"
	apiBase      = "https://open.tiktokapis.com/v2"
)

// Adapter publishes through the TikTok content posting API. Consent uses
// PKCE, tokens rotate on refresh, and video ingestion is asynchronous behind
// a publish id the poller follows.
type Adapter struct {
	conf configuration.OAuthClient
	api  *apihttp.Client
}

func New(conf configuration.OAuthClient) *Adapter {
	a := &Adapter{conf: conf, api: apihttp.New("tiktok")}
	a.api.Classify = classify
	return a
}

func classify(_ int, body []byte) *model.PlatformError {
	var res struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &res); err != nil || res.Error.Code == "" || res.Error.Code == "ok" {
		return nil
	}
	switch res.Error.Code {
	case "rate_limit_exceeded", "spam_risk_too_many_posts", "spam_risk_too_many_pending_share":
		return model.NewPlatformError(model.ErrKindRateLimit, "tiktok throttled: "+res.Error.Message, nil)
	case "access_token_invalid", "scope_not_authorized":
		return model.NewPlatformError(model.ErrKindAuthExpired, "tiktok token invalid: "+res.Error.Message, nil)
	case "unaudited_client_can_only_post_to_private_accounts", "url_ownership_unverified":
		return model.NewPlatformError(model.ErrKindContentRejected, "tiktok rejected post: "+res.Error.Message, nil)
	case "invalid_param":
		return model.NewPlatformError(model.ErrKindValidation, "tiktok rejected params: "+res.Error.Message, nil)
	}
	return nil
}

func (a *Adapter) Platform() model.Platform { return model.PlatformTikTok }

type authURLQuery struct {
	ClientKey           string `url:"client_key"`
	Scope               string `url:"scope"`
	ResponseType        string `url:"response_type"`
	RedirectURI         string `url:"redirect_uri"`
	State               string `url:"state"`
	CodeChallenge       string `url:"code_challenge,omitempty"`
	CodeChallengeMethod string `url:"code_challenge_method,omitempty"`
}

func (a *Adapter) GenerateAuthURL(p repository.AuthURLParams) string {
	scopes := "user.info.basic,video.publish"
	if len(p.Scopes) > 0 {
		scopes = strings.Join(p.Scopes, ",")
	}
	q := authURLQuery{
		ClientKey:    a.conf.ClientID,
		Scope:        scopes,
		ResponseType: "code",
		RedirectURI:  a.conf.RedirectURI,
		State:        p.State,
	}
	if p.PKCEChallenge != "" {
		q.CodeChallenge = p.PKCEChallenge
		q.CodeChallengeMethod = "S256"
	}
	v, _ := query.Values(q)
	return authorizeURL + "?" + v.Encode()
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	OpenID           string `json:"open_id"`
	Scope            string `json:"scope"`
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, pkceVerifier string) (*repository.TokenInfo, error) {
	form := url.Values{}
	form.Set("client_key", a.conf.ClientID)
	form.Set("client_secret", a.conf.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.conf.RedirectURI)
	if pkceVerifier != "" {
		form.Set("code_verifier", pkceVerifier)
	}
	var tok tokenResponse
	if err := a.api.PostForm(ctx, apiBase+"/oauth/token/", form, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, model.NewPlatformError(model.ErrKindUnknownProvider, "tiktok returned no access token", nil)
	}

	info := &repository.TokenInfo{
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		ExpiresIn:        tok.ExpiresIn,
		RefreshExpiresIn: tok.RefreshExpiresIn,
		Scopes:           tok.Scope,
		ProviderUID:      tok.OpenID,
	}
	a.fillProfile(ctx, info)
	return info, nil
}

func (a *Adapter) fillProfile(ctx context.Context, info *repository.TokenInfo) {
	var res struct {
		Data struct {
			User struct {
				DisplayName string `json:"display_name"`
				AvatarURL   string `json:"avatar_url"`
			} `json:"user"`
		} `json:"data"`
	}
	u := apiBase + "/user/info/?fields=display_name,avatar_url"
	if err := a.api.GetJSON(ctx, u, info.AccessToken, &res); err != nil {
		// Profile is cosmetic, the account still binds without it.
		logger.GetLogger().WithField("error", err).Warn("TikTok profile fetch failed")
		return
	}
	info.Nickname = res.Data.User.DisplayName
	info.Avatar = res.Data.User.AvatarURL
}

func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*repository.TokenInfo, error) {
	form := url.Values{}
	form.Set("client_key", a.conf.ClientID)
	form.Set("client_secret", a.conf.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	var tok tokenResponse
	if err := a.api.PostForm(ctx, apiBase+"/oauth/token/", form, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, model.NewPlatformError(model.ErrKindAuthExpired, "tiktok refresh returned no access token", nil)
	}
	return &repository.TokenInfo{
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		ExpiresIn:        tok.ExpiresIn,
		RefreshExpiresIn: tok.RefreshExpiresIn,
		Scopes:           tok.Scope,
		ProviderUID:      tok.OpenID,
	}, nil
}

type videoInitRequest struct {
	PostInfo struct {
		Title        string `json:"title"`
		PrivacyLevel string `json:"privacy_level"`
	} `json:"post_info"`
	SourceInfo struct {
		Source   string `json:"source"`
		VideoURL string `json:"video_url"`
	} `json:"source_info"`
}

func (a *Adapter) Publish(ctx context.Context, task *model.PublishTask, accessToken string) (*repository.PublishResult, error) {
	if task.Kind != model.PublishKindVideo {
		return nil, model.NewPlatformError(model.ErrKindValidation, "tiktok only supports video tasks", nil)
	}
	var req videoInitRequest
	req.PostInfo.Title = task.Title
	req.PostInfo.PrivacyLevel = "PUBLIC_TO_EVERYONE"
	req.SourceInfo.Source = "PULL_FROM_URL"
	req.SourceInfo.VideoURL = task.VideoURL

	var res struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
	}
	if err := a.api.PostJSON(ctx, apiBase+"/post/publish/video/init/", accessToken, req, &res); err != nil {
		return nil, err
	}
	if res.Data.PublishID == "" {
		return nil, model.NewPlatformError(model.ErrKindUnknownProvider, "tiktok returned no publish id", nil)
	}
	logger.GetLogger().WithField("task_id", task.ID).WithField("publish_id", res.Data.PublishID).Info("TikTok publish initiated")
	return &repository.PublishResult{Async: true, ContainerRef: res.Data.PublishID}, nil
}

// LookupContainer follows the content posting status endpoint until the
// provider reports a terminal state.
func (a *Adapter) LookupContainer(ctx context.Context, accessToken, containerRef string) (model.MediaContainerStatus, string, error) {
	body := map[string]string{"publish_id": containerRef}
	var res struct {
		Data struct {
			Status        string   `json:"status"`
			PublicPostIDs []string `json:"publicaly_available_post_id"`
			FailReason    string   `json:"fail_reason"`
		} `json:"data"`
	}
	if err := a.api.PostJSON(ctx, apiBase+"/post/publish/status/fetch/", accessToken, body, &res); err != nil {
		return "", "", err
	}
	switch res.Data.Status {
	case "PUBLISH_COMPLETE":
		link := ""
		if ids := res.Data.PublicPostIDs; len(ids) > 0 {
			link = "https://www.tiktok.com/video/" + ids[0]
		}
		return model.MediaContainerFinished, link, nil
	case "FAILED":
		logger.GetLogger().WithField("publish_id", containerRef).WithField("reason", res.Data.FailReason).Error("TikTok publish failed")
		return model.MediaContainerFailed, "", nil
	default:
		return model.MediaContainerInProgress, "", nil
	}
}
