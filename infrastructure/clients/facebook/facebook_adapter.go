package facebook

import (
	"context"
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

const graphBase = "https://graph.facebook.com/v19.0"

// Adapter publishes to Facebook pages through the Graph API. Facebook issues
// long-lived tokens instead of refresh tokens, so the refresher capability is
// intentionally absent.
type Adapter struct {
	conf configuration.OAuthClient
	api  *apihttp.Client
}

func New(conf configuration.OAuthClient) *Adapter {
	return &Adapter{conf: conf, api: apihttp.New("facebook")}
}

func (a *Adapter) Platform() model.Platform { return model.PlatformFacebook }

type authURLQuery struct {
	ClientID    string `url:"client_id"`
	RedirectURI string `url:"redirect_uri"`
	State       string `url:"state"`
	Scope       string `url:"scope"`
	Display     string `url:"display,omitempty"`
}

func (a *Adapter) GenerateAuthURL(p repository.AuthURLParams) string {
	scopes := "pages_show_list,pages_read_engagement,pages_manage_posts,public_profile"
	if len(p.Scopes) > 0 {
		scopes = strings.Join(p.Scopes, ",")
	}
	q := authURLQuery{
		ClientID:    a.conf.ClientID,
		RedirectURI: a.conf.RedirectURI,
		State:       p.State,
		Scope:       scopes,
	}
	if p.FlowType == model.AuthFlowH5 {
		q.Display = "touch"
	}
	v, _ := query.Values(q)
	return "https://www.facebook.com/v19.0/dialog/oauth?" + v.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, _ string) (*repository.TokenInfo, error) {
	// 1. code -> short-lived user token
	form := url.Values{}
	form.Set("client_id", a.conf.ClientID)
	form.Set("client_secret", a.conf.ClientSecret)
	form.Set("redirect_uri", a.conf.RedirectURI)
	form.Set("code", code)
	var short tokenResponse
	if err := a.api.PostForm(ctx, graphBase+"/oauth/access_token", form, &short); err != nil {
		return nil, err
	}

	// 2. short-lived -> long-lived token
	ll := url.Values{}
	ll.Set("grant_type", "fb_exchange_token")
	ll.Set("client_id", a.conf.ClientID)
	ll.Set("client_secret", a.conf.ClientSecret)
	ll.Set("fb_exchange_token", short.AccessToken)
	var long tokenResponse
	if err := a.api.PostForm(ctx, graphBase+"/oauth/access_token", ll, &long); err != nil {
		return nil, err
	}

	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := a.api.GetJSON(ctx, fmt.Sprintf("%s/me?access_token=%s", graphBase, url.QueryEscape(long.AccessToken)), "", &me); err != nil {
		return nil, err
	}

	return &repository.TokenInfo{
		AccessToken: long.AccessToken,
		ExpiresIn:   long.ExpiresIn,
		ProviderUID: me.ID,
		Nickname:    me.Name,
	}, nil
}

func (a *Adapter) Publish(ctx context.Context, task *model.PublishTask, accessToken string) (*repository.PublishResult, error) {
	var (
		endpoint string
		form     = url.Values{}
	)
	form.Set("access_token", accessToken)
	switch task.Kind {
	case model.PublishKindVideo:
		endpoint = graphBase + "/me/videos"
		form.Set("file_url", task.VideoURL)
		form.Set("description", message(task))
	case model.PublishKindImageSet:
		if len(task.ImageURLs) == 0 {
			return nil, model.NewPlatformError(model.ErrKindValidation, "image_set task has no images", nil)
		}
		endpoint = graphBase + "/me/photos"
		form.Set("url", task.ImageURLs[0])
		form.Set("caption", message(task))
	default:
		endpoint = graphBase + "/me/feed"
		form.Set("message", message(task))
	}

	var res struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := a.api.PostForm(ctx, endpoint, form, &res); err != nil {
		return nil, err
	}
	workID := res.PostID
	if workID == "" {
		workID = res.ID
	}
	logger.GetLogger().WithField("task_id", task.ID).WithField("post_id", workID).Info("Facebook publish accepted")
	return &repository.PublishResult{
		WorkID:   workID,
		WorkLink: "https://www.facebook.com/" + workID,
	}, nil
}

type metricsQuery struct {
	Fields      string `url:"fields"`
	AccessToken string `url:"access_token"`
}

func (a *Adapter) FetchMetrics(ctx context.Context, accessToken, workID string) (*repository.MetricSnapshot, error) {
	q, _ := query.Values(metricsQuery{
		Fields:      "shares,likes.summary(true),comments.summary(true)",
		AccessToken: accessToken,
	})
	var res struct {
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
		Likes struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
	}
	if err := a.api.GetJSON(ctx, fmt.Sprintf("%s/%s?%s", graphBase, url.PathEscape(workID), q.Encode()), "", &res); err != nil {
		return nil, err
	}
	return &repository.MetricSnapshot{
		WorkID:   workID,
		Likes:    res.Likes.Summary.TotalCount,
		Comments: res.Comments.Summary.TotalCount,
		Shares:   res.Shares.Count,
	}, nil
}

func message(task *model.PublishTask) string {
	if task.Description != "" {
		return task.Title + "\n\n" + task.Description
	}
	return task.Title
}
