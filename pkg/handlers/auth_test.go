package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"club-space-backend/pkg/services"
	"club-space-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGoogleLogin_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/auth/google", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func newOAuthHandler(t *testing.T, env *testEnv) (*AuthHandler, *httptest.Server) {
	t.Helper()
	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"google-token","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer google-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(GoogleUser{ID: "g-123", Email: "new.user@example.com", Name: "New User"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(google.Close)

	cfg := testConfig()
	cfg.GoogleClientID = "client-id"
	cfg.GoogleClientSecret = "client-secret"
	cfg.BaseURL = "https://club.example.com"

	h := NewAuthHandler(cfg, env.db, services.NewSocialService(env.db))
	h.oauth.Endpoint = oauth2.Endpoint{AuthURL: google.URL + "/auth", TokenURL: google.URL + "/token"}
	h.userInfoURL = google.URL + "/userinfo"
	return h, google
}

func TestGoogleLogin_Redirect(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newOAuthHandler(t, env)

	rec := httptest.NewRecorder()
	h.GoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))
	assert.Equal(t, "https://club.example.com/api/auth/google/callback", loc.Query().Get("redirect_uri"))
	state := loc.Query().Get("state")
	assert.NoError(t, utils.VerifyState(h.config.JWTSecret, state))

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)
	assert.Equal(t, state, stateCookie.Value)
	assert.True(t, stateCookie.HttpOnly)
	assert.True(t, stateCookie.Secure)
}

func callbackRequest(query, stateCookie string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?"+query, nil)
	if stateCookie != "" {
		req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: stateCookie})
	}
	return req
}

func TestGoogleCallback(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newOAuthHandler(t, env)

	state, err := utils.SignState(h.config.JWTSecret, time.Minute)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, callbackRequest("code=abc&state="+url.QueryEscape(state), state))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Empty(t, loc.Query().Get("error"))
	fragment, err := url.ParseQuery(loc.Fragment)
	require.NoError(t, err)
	assert.Equal(t, GoogleProfileID("g-123"), fragment.Get("user_id"))

	session, err := utils.NewJWTService(h.config.JWTSecret).ValidateAccessToken(fragment.Get("access_token"))
	require.NoError(t, err)
	assert.Equal(t, GoogleProfileID("g-123"), session.UserID)

	profile, err := env.db.GetProfile(context.Background(), GoogleProfileID("g-123"))
	require.NoError(t, err)
	assert.Equal(t, "New User", profile.DisplayName)

	var cookieSet, stateCleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == accessTokenCookie && c.HttpOnly {
			cookieSet = true
		}
		if c.Name == oauthStateCookie && c.MaxAge < 0 {
			stateCleared = true
		}
	}
	assert.True(t, cookieSet)
	assert.True(t, stateCleared)
}

func TestGoogleCallback_BadState(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newOAuthHandler(t, env)

	state, err := utils.SignState(h.config.JWTSecret, time.Minute)
	require.NoError(t, err)
	other, err := utils.SignState(h.config.JWTSecret, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		query  string
		cookie string
	}{
		{"forged state", "code=abc&state=forged", "forged"},
		{"no state cookie", "code=abc&state=" + url.QueryEscape(state), ""},
		{"state from another browser", "code=abc&state=" + url.QueryEscape(state), other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.GoogleCallback(rec, callbackRequest(tt.query, tt.cookie))
			require.Equal(t, http.StatusFound, rec.Code)
			assert.True(t, strings.HasSuffix(rec.Header().Get("Location"), "?error=invalid_state"))
		})
	}
	_, err = env.db.GetProfile(context.Background(), GoogleProfileID("g-123"))
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?error=access_denied", nil))
	assert.True(t, strings.HasSuffix(rec.Header().Get("Location"), "?error=access_denied"))
}

func TestCurrentUserAndRefresh(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/auth/user", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["user"])

	rec = env.do(http.MethodGet, "/api/auth/user", "m1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "Minji Park", user["name"])

	_, refresh, _, err := utils.NewJWTService(env.cfg.JWTSecret).GenerateTokenPair("m1", "minji@example.com")
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["access_token"])

	rec = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": env.tokens["m1"]})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
