package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"club-space-backend/pkg/config"
	"club-space-backend/pkg/database"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/middleware"
	"club-space-backend/pkg/models"
	"club-space-backend/pkg/services"
	"club-space-backend/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateTTL     = 10 * time.Minute
	accessTokenCookie = "access_token"
	oauthStateCookie  = "oauth_state"
)

// GoogleUser Google用户信息结构
type GoogleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// AuthHandler 认证处理器
type AuthHandler struct {
	config      *config.Config
	db          database.DatabaseInterface
	social      *services.SocialService
	jwt         *utils.JWTService
	oauth       *oauth2.Config
	userInfoURL string
}

// NewAuthHandler 创建认证处理器；未配置 Google 凭据时 OAuth 路由返回 503
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, social *services.SocialService) *AuthHandler {
	h := &AuthHandler{
		config:      cfg,
		db:          db,
		social:      social,
		jwt:         utils.NewJWTService(cfg.JWTSecret),
		userInfoURL: googleUserInfoURL,
	}
	if cfg.OAuthEnabled() {
		h.oauth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURI,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		}
	}
	return h
}

// redirectURL 未显式配置时根据请求推导回调地址
func (h *AuthHandler) redirectURL(r *http.Request) string {
	if h.oauth.RedirectURL != "" {
		return h.oauth.RedirectURL
	}
	base := strings.TrimRight(h.config.BaseURL, "/")
	if base == "" {
		scheme := r.URL.Scheme
		if scheme == "" {
			scheme = "http"
			if r.TLS != nil {
				scheme = "https"
			}
		}
		base = scheme + "://" + r.Host
	}
	return base + "/api/auth/google/callback"
}

// frontendURL 登录完成后跳转的前端地址
func (h *AuthHandler) frontendURL() string {
	if base := strings.TrimRight(h.config.BaseURL, "/"); base != "" {
		return base + "/"
	}
	return "/"
}

// GoogleLogin GET /api/auth/google 跳转到 Google 授权页
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		utils.WriteServiceUnavailableResponse(w, "Google sign-in is not configured")
		return
	}
	state, err := utils.SignState(h.config.JWTSecret, oauthStateTTL)
	if err != nil {
		writeError(w, r, fmt.Errorf("sign oauth state: %w", err))
		return
	}
	// state 同时写入浏览器 cookie，回调时两者必须一致
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	cfg := *h.oauth
	cfg.RedirectURL = h.redirectURL(r)
	http.Redirect(w, r, cfg.AuthCodeURL(state), http.StatusFound)
}

func (h *AuthHandler) secureCookies() bool {
	return strings.HasPrefix(strings.ToLower(h.config.BaseURL), "https://")
}

// checkState 校验签名并核对发起登录的浏览器，随后清除 state cookie
func (h *AuthHandler) checkState(w http.ResponseWriter, r *http.Request, state string) error {
	cookie, err := r.Cookie(oauthStateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	if err != nil {
		return fmt.Errorf("missing oauth state cookie: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		return errors.New("oauth state does not match this browser")
	}
	return utils.VerifyState(h.config.JWTSecret, state)
}

// GoogleCallback GET /api/auth/google/callback 换取令牌、写入资料并签发会话
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		utils.WriteServiceUnavailableResponse(w, "Google sign-in is not configured")
		return
	}
	log := logger.FromContext(r.Context())
	q := r.URL.Query()

	if q.Get("error") != "" {
		h.redirectWithError(w, r, "access_denied")
		return
	}
	code := q.Get("code")
	if code == "" {
		h.redirectWithError(w, r, "no_code")
		return
	}
	if err := h.checkState(w, r, q.Get("state")); err != nil {
		log.WithError(err).Warn("⚠️ OAuth state rejected")
		h.redirectWithError(w, r, "invalid_state")
		return
	}

	cfg := *h.oauth
	cfg.RedirectURL = h.redirectURL(r)
	token, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		log.WithError(err).Error("❌ Failed to exchange Google code")
		h.redirectWithError(w, r, "token_exchange_failed")
		return
	}

	googleUser, err := h.fetchGoogleUser(r, &cfg, token)
	if err != nil {
		log.WithError(err).Error("❌ Failed to get Google user info")
		h.redirectWithError(w, r, "user_info_failed")
		return
	}

	profile, err := h.social.EnsureProfile(r.Context(), &models.Profile{
		ID:          GoogleProfileID(googleUser.ID),
		Email:       googleUser.Email,
		DisplayName: googleUser.Name,
		AvatarURL:   googleUser.Picture,
	})
	if err != nil {
		log.WithError(err).Error("❌ Failed to upsert profile")
		h.redirectWithError(w, r, "profile_failed")
		return
	}

	accessToken, refreshToken, expiresAt, err := h.jwt.GenerateTokenPair(profile.ID, profile.Email)
	if err != nil {
		log.WithError(err).Error("❌ Failed to generate tokens")
		h.redirectWithError(w, r, "token_generation_failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Expires:  time.Unix(expiresAt, 0),
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})

	// 令牌放在 fragment 中，不会出现在服务器日志里
	fragment := url.Values{}
	fragment.Set("access_token", accessToken)
	fragment.Set("refresh_token", refreshToken)
	fragment.Set("expires_at", fmt.Sprint(expiresAt))
	fragment.Set("user_id", profile.ID)

	log.WithField("user_id", profile.ID).Info("✅ Google sign-in completed")
	http.Redirect(w, r, h.frontendURL()+"#"+fragment.Encode(), http.StatusFound)
}

func (h *AuthHandler) fetchGoogleUser(r *http.Request, cfg *oauth2.Config, token *oauth2.Token) (*GoogleUser, error) {
	resp, err := cfg.Client(r.Context(), token).Get(h.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, body)
	}
	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if user.ID == "" || user.Email == "" {
		return nil, fmt.Errorf("userinfo missing id or email")
	}
	return &user, nil
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL()+"?error="+url.QueryEscape(code), http.StatusFound)
}

// GoogleProfileID 由 Google 账号ID派生稳定的资料ID
func GoogleProfileID(googleID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("google:"+googleID)).String()
}

// CurrentUser GET /api/auth/user；未登录时返回 {"user": null}
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		utils.WriteSuccessResponse(w, map[string]interface{}{"user": nil})
		return
	}

	user := map[string]interface{}{"id": session.UserID, "email": session.Email}
	if profile, err := h.db.GetProfile(r.Context(), session.UserID); err == nil {
		user["name"] = profile.Name()
		user["picture"] = profile.AvatarURL
		user["email"] = profile.Email
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"user":         user,
		"analytics_id": h.config.AnalyticsID,
	})
}

// RefreshToken POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	accessToken, expiresAt, err := h.jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid or expired refresh token")
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	})
}

// Logout POST /api/auth/logout 清除会话 cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true})
}

// HealthCheck 健康检查
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	if err := h.db.HealthCheck(r.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "club-space-backend",
		"version":     "1.0.0",
		"environment": h.config.Environment,
		"database":    h.databaseType(),
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
		"status":      "healthy",
	})
}

// databaseType 获取数据库类型
func (h *AuthHandler) databaseType() string {
	switch {
	case h.config.UseLocalDB:
		return "sqlite"
	case h.config.PostgresDSN != "":
		return "postgresql"
	case h.config.SupabaseURL != "" && h.config.SupabaseKey != "":
		return "supabase"
	}
	return "unknown"
}
