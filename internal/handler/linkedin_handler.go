package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/talentbase/internal/auth"
	"github.com/hitoshi/talentbase/internal/linkedin"
	"github.com/hitoshi/talentbase/internal/metrics"
	"github.com/hitoshi/talentbase/internal/middleware"
	"github.com/hitoshi/talentbase/internal/model"
)

const (
	// linkedinReturnCookie は連携フロー完了後に戻るページを保持する。
	linkedinReturnCookie = "linkedin_return_to"

	// defaultConnectReturnPage は戻り先未指定時のリダイレクト先。
	defaultConnectReturnPage = "/build-profile"
)

// LinkedInConnectProvider は連携フロー（ログインとは別のOAuthフロー）の
// 認可URL生成とトークン交換を行うインターフェース。
type LinkedInConnectProvider interface {
	GetConnectURL(state, redirectURL string) string
	ExchangeCodeForToken(ctx context.Context, code, redirectURL string) (*auth.LinkedInToken, error)
}

// LinkedInServiceInterface はLinkedInハンドラーが必要とするサービスインターフェース。
type LinkedInServiceInterface interface {
	SaveConnection(ctx context.Context, userID, accessToken string, expiresAt time.Time) error
	IsConnected(ctx context.Context, userID string) (bool, error)
	Disconnect(ctx context.Context, userID string) error
	CreatePost(ctx context.Context, userID, text, linkURL string) (*linkedin.PostResult, error)
}

// LinkedInHandlerConfig はLinkedInハンドラーの設定。
type LinkedInHandlerConfig struct {
	BaseURL            string
	ConnectRedirectURL string
	CookieDomain       string
	CookieSecure       bool
}

// LinkedInHandler はLinkedIn連携・投稿関連のHTTPハンドラー。
type LinkedInHandler struct {
	provider LinkedInConnectProvider
	service  LinkedInServiceInterface
	metrics  metrics.MetricsCollector
	config   LinkedInHandlerConfig
}

// NewLinkedInHandler はLinkedInHandlerを生成する。
func NewLinkedInHandler(provider LinkedInConnectProvider, service LinkedInServiceInterface, collector metrics.MetricsCollector, config LinkedInHandlerConfig) *LinkedInHandler {
	return &LinkedInHandler{
		provider: provider,
		service:  service,
		metrics:  collector,
		config:   config,
	}
}

type createPostRequest struct {
	Text    string `json:"text"`
	LinkURL string `json:"link_url"`
}

// Connect はLinkedIn連携フローを開始する。
// ログインOAuthとは別フローで、投稿権限付きのトークンを取得する。
// GET /auth/linkedin/connect?return_to=/build-profile
func (h *LinkedInHandler) Connect(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewOAuthStartFailedError("linkedin"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 戻り先をCookieに保持する。外部URLへのリダイレクトを防ぐため、
	// アプリ内パス以外は既定値に落とす。
	returnTo := r.URL.Query().Get("return_to")
	if !isLocalPath(returnTo) {
		returnTo = defaultConnectReturnPage
	}
	http.SetCookie(w, &http.Cookie{
		Name:     linkedinReturnCookie,
		Value:    returnTo,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.provider.GetConnectURL(state, h.config.ConnectRedirectURL)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// ConnectCallback は連携フローのコールバックを処理する。
// トークンを保存し、フロントエンドの戻り先ページにリダイレクトする。
// GET /auth/linkedin/connect/callback?code=xxx&state=yyy
func (h *LinkedInHandler) ConnectCallback(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("linkedin connect state mismatch", slog.String("query_state", state))
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidOAuthStateError())
		return
	}
	h.clearFlowCookie(w, oauthStateCookie)

	code := r.URL.Query().Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("認可コードがありません"))
		return
	}

	// 2. アクセストークンの取得と保存
	token, err := h.provider.ExchangeCodeForToken(r.Context(), code, h.config.ConnectRedirectURL)
	if err != nil {
		slog.Error("linkedin token exchange failed", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	if err := h.service.SaveConnection(r.Context(), userID, token.AccessToken, token.ExpiresAt); err != nil {
		handleServiceError(w, err)
		return
	}

	// 3. 戻り先ページにリダイレクト。
	// フラグメントのマーカーはSPA側が連携フローからの到着を検出し、
	// 保留中の操作を再開するための目印。
	returnTo := defaultConnectReturnPage
	if cookie, err := r.Cookie(linkedinReturnCookie); err == nil && isLocalPath(cookie.Value) {
		returnTo = cookie.Value
	}
	h.clearFlowCookie(w, linkedinReturnCookie)

	http.Redirect(w, r, h.config.BaseURL+returnTo+"#linkedin_connected", http.StatusTemporaryRedirect)
}

// Status はLinkedIn連携状態を返す。
// GET /api/linkedin/status
func (h *LinkedInHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}

	connected, err := h.service.IsConnected(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"connected": connected})
}

// Disconnect はLinkedIn連携を解除する。
// DELETE /api/linkedin/connection
func (h *LinkedInHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}

	if err := h.service.Disconnect(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreatePost はLinkedInに投稿を公開する。
// POST /api/linkedin/posts
func (h *LinkedInHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("投稿本文が空です"))
		return
	}

	result, err := h.service.CreatePost(r.Context(), userID, req.Text, req.LinkURL)
	if err != nil {
		h.metrics.RecordLinkedInPost("failure")
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordLinkedInPost("success")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// clearFlowCookie はOAuthフロー中だけ使うCookieを削除する。
func (h *LinkedInHandler) clearFlowCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// isLocalPath はアプリ内パス（"/"で始まり"//"で始まらない）かどうかを判定する。
func isLocalPath(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//")
}
