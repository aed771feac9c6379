package apihttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosspost/domain/model"
)

func TestClient_NormalizeStatus(t *testing.T) {
	c := New("provider")
	cases := []struct {
		status int
		kind   model.ErrorKind
	}{
		{http.StatusUnauthorized, model.ErrKindAuthExpired},
		{http.StatusForbidden, model.ErrKindAuthExpired},
		{http.StatusTooManyRequests, model.ErrKindRateLimit},
		{http.StatusInternalServerError, model.ErrKindTransientNetwork},
		{http.StatusBadGateway, model.ErrKindTransientNetwork},
		{http.StatusBadRequest, model.ErrKindValidation},
	}
	for _, tc := range cases {
		err := c.NormalizeStatus(tc.status, []byte("body"))
		assert.Equal(t, tc.kind, model.AsPlatformError(err).Kind, "status %d", tc.status)
	}
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	c := New("provider")
	var out struct {
		ID string `json:"id"`
	}
	err := c.GetJSON(context.Background(), srv.URL, "token-1", &out)

	require.NoError(t, err)
	assert.Equal(t, "abc", out.ID)
}

func TestClient_ClassifyRunsBeforeStatusFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":368}}`))
	}))
	defer srv.Close()

	c := New("provider")
	c.Classify = func(status int, body []byte) *model.PlatformError {
		return model.NewPlatformError(model.ErrKindContentRejected, "blocked by policy", nil)
	}

	err := c.GetJSON(context.Background(), srv.URL, "", nil)

	// 400 would normalize to validation; the adapter classifier wins.
	assert.Equal(t, model.ErrKindContentRejected, model.AsPlatformError(err).Kind)
}

func TestClient_ConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New("provider")
	err := c.GetJSON(context.Background(), srv.URL, "", nil)

	pe := model.AsPlatformError(err)
	assert.Equal(t, model.ErrKindTransientNetwork, pe.Kind)
	assert.True(t, pe.Retryable())
}

func TestClient_PostFormBasic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Basic czNjcjN0", r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer srv.Close()

	c := New("provider")
	form := url.Values{"grant_type": {"authorization_code"}}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.PostFormBasic(context.Background(), srv.URL, form, "czNjcjN0", &out)

	require.NoError(t, err)
	assert.Equal(t, "tok", out.AccessToken)
}
