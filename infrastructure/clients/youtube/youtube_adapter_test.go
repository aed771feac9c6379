package youtube

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/configuration"
)

func TestGenerateAuthURL(t *testing.T) {
	a := New(configuration.OAuthClient{
		ClientID:    "client-1",
		RedirectURI: "https://app.example.com/auth/youtube/callback",
	})

	raw := a.GenerateAuthURL(repository.AuthURLParams{State: "state-123"})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	q := u.Query()
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "youtube.upload")
}

func TestClassify_QuotaReasons(t *testing.T) {
	err := classify(&googleapi.Error{
		Code:    403,
		Message: "quota exceeded",
		Errors:  []googleapi.ErrorItem{{Reason: "quotaExceeded"}},
	})

	pe := model.AsPlatformError(err)
	// 403 alone would read as auth failure; the reason says throttled.
	assert.Equal(t, model.ErrKindRateLimit, pe.Kind)
	assert.True(t, pe.Retryable())
}

func TestClassify_StatusFallback(t *testing.T) {
	cases := []struct {
		code int
		kind model.ErrorKind
	}{
		{401, model.ErrKindAuthExpired},
		{429, model.ErrKindRateLimit},
		{503, model.ErrKindTransientNetwork},
		{400, model.ErrKindValidation},
	}
	for _, c := range cases {
		err := classify(&googleapi.Error{Code: c.code, Message: "x"})
		assert.Equal(t, c.kind, model.AsPlatformError(err).Kind, "code %d", c.code)
	}
}

func TestClassify_NonAPIErrorIsTransient(t *testing.T) {
	err := classify(assert.AnError)
	assert.Equal(t, model.ErrKindTransientNetwork, model.AsPlatformError(err).Kind)
}
