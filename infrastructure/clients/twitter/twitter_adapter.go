package twitter

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/clients/apihttp"
	"crosspost/infrastructure/configuration"
)

const (
	authorizeURL = "https://twitter.com/i/oauth2/authorize"
	apiBase      = "https://api.twitter.com/2"
	tokenURL     = "https://api.twitter.com/2/oauth2/token"
)

// Adapter publishes text posts through the X v2 API. Consent is OAuth2 PKCE
// with the confidential-client basic header; refresh tokens rotate on every
// refresh.
type Adapter struct {
	conf configuration.OAuthClient
	api  *apihttp.Client
}

func New(conf configuration.OAuthClient) *Adapter {
	return &Adapter{conf: conf, api: apihttp.New("twitter")}
}

func (a *Adapter) Platform() model.Platform { return model.PlatformTwitter }

type authURLQuery struct {
	ResponseType        string `url:"response_type"`
	ClientID            string `url:"client_id"`
	RedirectURI         string `url:"redirect_uri"`
	Scope               string `url:"scope"`
	State               string `url:"state"`
	CodeChallenge       string `url:"code_challenge"`
	CodeChallengeMethod string `url:"code_challenge_method"`
}

func (a *Adapter) GenerateAuthURL(p repository.AuthURLParams) string {
	scopes := "tweet.read tweet.write users.read offline.access"
	if len(p.Scopes) > 0 {
		scopes = strings.Join(p.Scopes, " ")
	}
	v, _ := query.Values(authURLQuery{
		ResponseType:        "code",
		ClientID:            a.conf.ClientID,
		RedirectURI:         a.conf.RedirectURI,
		Scope:               scopes,
		State:               p.State,
		CodeChallenge:       p.PKCEChallenge,
		CodeChallengeMethod: "S256",
	})
	return authorizeURL + "?" + v.Encode()
}

func (a *Adapter) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(a.conf.ClientID + ":" + a.conf.ClientSecret))
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (a *Adapter) token(ctx context.Context, form url.Values) (*tokenResponse, error) {
	var tok tokenResponse
	if err := a.api.PostFormBasic(ctx, tokenURL, form, a.basicAuth(), &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, model.NewPlatformError(model.ErrKindUnknownProvider, "twitter returned no access token", nil)
	}
	return &tok, nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, pkceVerifier string) (*repository.TokenInfo, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.conf.RedirectURI)
	form.Set("client_id", a.conf.ClientID)
	form.Set("code_verifier", pkceVerifier)
	tok, err := a.token(ctx, form)
	if err != nil {
		return nil, err
	}

	var me struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := a.api.GetJSON(ctx, apiBase+"/users/me", tok.AccessToken, &me); err != nil {
		return nil, err
	}

	return &repository.TokenInfo{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
		Scopes:       tok.Scope,
		ProviderUID:  me.Data.ID,
		Nickname:     me.Data.Name,
	}, nil
}

func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*repository.TokenInfo, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.conf.ClientID)
	tok, err := a.token(ctx, form)
	if err != nil {
		return nil, err
	}
	return &repository.TokenInfo{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
		Scopes:       tok.Scope,
	}, nil
}

func (a *Adapter) Publish(ctx context.Context, task *model.PublishTask, accessToken string) (*repository.PublishResult, error) {
	if task.Kind == model.PublishKindVideo {
		return nil, model.NewPlatformError(model.ErrKindValidation, "twitter video publish requires chunked media upload, not supported for kind video", nil)
	}
	text := task.Title
	if task.Description != "" {
		text = task.Title + "\n" + task.Description
	}
	body := map[string]any{"text": text}

	var res struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := a.api.PostJSON(ctx, apiBase+"/tweets", accessToken, body, &res); err != nil {
		return nil, err
	}
	if res.Data.ID == "" {
		return nil, model.NewPlatformError(model.ErrKindUnknownProvider, "twitter returned no tweet id", nil)
	}
	return &repository.PublishResult{
		WorkID:   res.Data.ID,
		WorkLink: "https://twitter.com/i/web/status/" + res.Data.ID,
	}, nil
}

func (a *Adapter) FetchMetrics(ctx context.Context, accessToken, workID string) (*repository.MetricSnapshot, error) {
	var res struct {
		Data struct {
			PublicMetrics struct {
				Impressions int64 `json:"impression_count"`
				Likes       int64 `json:"like_count"`
				Replies     int64 `json:"reply_count"`
				Retweets    int64 `json:"retweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	u := apiBase + "/tweets/" + url.PathEscape(workID) + "?tweet.fields=public_metrics"
	if err := a.api.GetJSON(ctx, u, accessToken, &res); err != nil {
		return nil, err
	}
	m := res.Data.PublicMetrics
	return &repository.MetricSnapshot{
		WorkID:   workID,
		Views:    m.Impressions,
		Likes:    m.Likes,
		Comments: m.Replies,
		Shares:   m.Retweets,
	}, nil
}
