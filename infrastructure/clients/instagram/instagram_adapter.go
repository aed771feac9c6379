package instagram

import (
	"context"
	"encoding/json"
	"fmt"
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
	authBase  = "https://api.instagram.com"
	graphBase = "https://graph.instagram.com"
)

// Adapter publishes through the Instagram Graph API. Ingestion is
// asynchronous: Publish only creates a media container and the container
// poller finishes the job once the provider reports FINISHED.
type Adapter struct {
	conf configuration.OAuthClient
	api  *apihttp.Client
}

func New(conf configuration.OAuthClient) *Adapter {
	a := &Adapter{conf: conf, api: apihttp.New("instagram")}
	a.api.Classify = classify
	return a
}

// classify maps Graph error codes that the generic status fallback would get
// wrong: throttling arrives as 400s with dedicated codes, and media policy
// rejections are terminal.
func classify(_ int, body []byte) *model.PlatformError {
	var ge struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
			Subcode int    `json:"error_subcode"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &ge); err != nil || ge.Error.Code == 0 {
		return nil
	}
	switch ge.Error.Code {
	case 4, 17, 32, 613:
		return model.NewPlatformError(model.ErrKindRateLimit, "instagram throttled: "+ge.Error.Message, nil)
	case 190:
		return model.NewPlatformError(model.ErrKindAuthExpired, "instagram token invalid: "+ge.Error.Message, nil)
	case 368, 2207026:
		return model.NewPlatformError(model.ErrKindContentRejected, "instagram rejected content: "+ge.Error.Message, nil)
	}
	return nil
}

func (a *Adapter) Platform() model.Platform { return model.PlatformInstagram }

type authURLQuery struct {
	ClientID     string `url:"client_id"`
	RedirectURI  string `url:"redirect_uri"`
	State        string `url:"state"`
	Scope        string `url:"scope"`
	ResponseType string `url:"response_type"`
}

func (a *Adapter) GenerateAuthURL(p repository.AuthURLParams) string {
	scopes := "instagram_business_basic,instagram_business_content_publish"
	if len(p.Scopes) > 0 {
		scopes = strings.Join(p.Scopes, ",")
	}
	v, _ := query.Values(authURLQuery{
		ClientID:     a.conf.ClientID,
		RedirectURI:  a.conf.RedirectURI,
		State:        p.State,
		Scope:        scopes,
		ResponseType: "code",
	})
	return authBase + "/oauth/authorize?" + v.Encode()
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, _ string) (*repository.TokenInfo, error) {
	form := url.Values{}
	form.Set("client_id", a.conf.ClientID)
	form.Set("client_secret", a.conf.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.conf.RedirectURI)
	form.Set("code", code)
	var short struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	if err := a.api.PostForm(ctx, authBase+"/oauth/access_token", form, &short); err != nil {
		return nil, err
	}

	// Trade for the 60-day long-lived token.
	var long struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	llURL := fmt.Sprintf("%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		graphBase, url.QueryEscape(a.conf.ClientSecret), url.QueryEscape(short.AccessToken))
	if err := a.api.GetJSON(ctx, llURL, "", &long); err != nil {
		return nil, err
	}

	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := a.api.GetJSON(ctx, fmt.Sprintf("%s/me?fields=id,username&access_token=%s", graphBase, url.QueryEscape(long.AccessToken)), "", &me); err != nil {
		return nil, err
	}

	return &repository.TokenInfo{
		AccessToken: long.AccessToken,
		ExpiresIn:   long.ExpiresIn,
		ProviderUID: me.ID,
		Nickname:    me.Username,
	}, nil
}

// RefreshToken renews a long-lived token. Instagram reuses the access token
// itself as the refresh handle.
func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*repository.TokenInfo, error) {
	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	u := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s", graphBase, url.QueryEscape(refreshToken))
	if err := a.api.GetJSON(ctx, u, "", &res); err != nil {
		return nil, err
	}
	return &repository.TokenInfo{
		AccessToken:  res.AccessToken,
		RefreshToken: res.AccessToken,
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

func (a *Adapter) Publish(ctx context.Context, task *model.PublishTask, accessToken string) (*repository.PublishResult, error) {
	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("caption", task.Title)
	switch task.Kind {
	case model.PublishKindVideo:
		form.Set("media_type", "REELS")
		form.Set("video_url", task.VideoURL)
	case model.PublishKindImageSet:
		if len(task.ImageURLs) == 0 {
			return nil, model.NewPlatformError(model.ErrKindValidation, "image_set task has no images", nil)
		}
		form.Set("image_url", task.ImageURLs[0])
	default:
		return nil, model.NewPlatformError(model.ErrKindValidation, "instagram does not support kind "+string(task.Kind), nil)
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := a.api.PostForm(ctx, graphBase+"/me/media", form, &res); err != nil {
		return nil, err
	}
	if res.ID == "" {
		return nil, model.NewPlatformError(model.ErrKindUnknownProvider, "instagram returned no container id", nil)
	}
	logger.GetLogger().WithField("task_id", task.ID).WithField("container_id", res.ID).Info("Instagram media container created")
	return &repository.PublishResult{Async: true, ContainerRef: res.ID}, nil
}

// LookupContainer reports ingestion progress; once the provider says
// FINISHED it also fires media_publish and returns the permalink, so callers
// see a terminal Finished exactly when the work is live.
func (a *Adapter) LookupContainer(ctx context.Context, accessToken, containerRef string) (model.MediaContainerStatus, string, error) {
	var st struct {
		StatusCode string `json:"status_code"`
	}
	u := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", graphBase, url.PathEscape(containerRef), url.QueryEscape(accessToken))
	if err := a.api.GetJSON(ctx, u, "", &st); err != nil {
		return "", "", err
	}
	switch st.StatusCode {
	case "IN_PROGRESS":
		return model.MediaContainerInProgress, "", nil
	case "ERROR", "EXPIRED":
		return model.MediaContainerFailed, "", nil
	case "FINISHED", "PUBLISHED":
	default:
		return model.MediaContainerInProgress, "", nil
	}

	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("creation_id", containerRef)
	var pub struct {
		ID string `json:"id"`
	}
	if err := a.api.PostForm(ctx, graphBase+"/me/media_publish", form, &pub); err != nil {
		return "", "", err
	}

	var media struct {
		Permalink string `json:"permalink"`
	}
	mu := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s", graphBase, url.PathEscape(pub.ID), url.QueryEscape(accessToken))
	if err := a.api.GetJSON(ctx, mu, "", &media); err != nil {
		// The work is live even when the permalink read fails.
		logger.GetLogger().WithField("media_id", pub.ID).WithField("error", err).Warn("Instagram permalink fetch failed")
	}
	return model.MediaContainerFinished, media.Permalink, nil
}
