package instagram

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/configuration"
)

func TestGenerateAuthURL(t *testing.T) {
	a := New(configuration.OAuthClient{
		ClientID:    "app-1",
		RedirectURI: "https://app.example.com/auth/instagram/callback",
	})

	raw := a.GenerateAuthURL(repository.AuthURLParams{State: "state-123"})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.instagram.com", u.Host)
	q := u.Query()
	assert.Equal(t, "app-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "instagram_business_content_publish")
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		body string
		kind model.ErrorKind
	}{
		{"app rate limit", `{"error":{"message":"too many calls","code":4}}`, model.ErrKindRateLimit},
		{"user rate limit", `{"error":{"message":"too many calls","code":17}}`, model.ErrKindRateLimit},
		{"page rate limit", `{"error":{"message":"calls limit","code":32}}`, model.ErrKindRateLimit},
		{"custom throttle", `{"error":{"message":"throttled","code":613}}`, model.ErrKindRateLimit},
		{"expired token", `{"error":{"message":"token expired","code":190}}`, model.ErrKindAuthExpired},
		{"policy block", `{"error":{"message":"blocked","code":368}}`, model.ErrKindContentRejected},
		{"media rejected", `{"error":{"message":"media format","code":2207026}}`, model.ErrKindContentRejected},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pe := classify(400, []byte(c.body))
			require.NotNil(t, pe)
			assert.Equal(t, c.kind, pe.Kind)
		})
	}
}

func TestClassify_UnknownCodeFallsThrough(t *testing.T) {
	// Unmapped codes defer to the generic status normalization.
	assert.Nil(t, classify(400, []byte(`{"error":{"message":"bad param","code":100}}`)))
	assert.Nil(t, classify(500, []byte(`not json`)))
}
