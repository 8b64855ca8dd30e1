package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/talentbase/internal/auth"
	"github.com/hitoshi/talentbase/internal/linkedin"
	"github.com/hitoshi/talentbase/internal/model"
)

// --- モック定義 ---

// mockConnectProvider はLinkedInConnectProviderのモック実装。
type mockConnectProvider struct {
	getConnectURLFn        func(state, redirectURL string) string
	exchangeCodeForTokenFn func(ctx context.Context, code, redirectURL string) (*auth.LinkedInToken, error)
}

func (m *mockConnectProvider) GetConnectURL(state, redirectURL string) string {
	if m.getConnectURLFn != nil {
		return m.getConnectURLFn(state, redirectURL)
	}
	return "https://www.linkedin.com/oauth/v2/authorization?state=" + state
}

func (m *mockConnectProvider) ExchangeCodeForToken(ctx context.Context, code, redirectURL string) (*auth.LinkedInToken, error) {
	if m.exchangeCodeForTokenFn != nil {
		return m.exchangeCodeForTokenFn(ctx, code, redirectURL)
	}
	return &auth.LinkedInToken{AccessToken: "li-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// mockLinkedInService はLinkedInServiceInterfaceのモック実装。
type mockLinkedInService struct {
	saveConnectionFn func(ctx context.Context, userID, accessToken string, expiresAt time.Time) error
	isConnectedFn    func(ctx context.Context, userID string) (bool, error)
	disconnectFn     func(ctx context.Context, userID string) error
	createPostFn     func(ctx context.Context, userID, text, linkURL string) (*linkedin.PostResult, error)
}

func (m *mockLinkedInService) SaveConnection(ctx context.Context, userID, accessToken string, expiresAt time.Time) error {
	if m.saveConnectionFn != nil {
		return m.saveConnectionFn(ctx, userID, accessToken, expiresAt)
	}
	return nil
}

func (m *mockLinkedInService) IsConnected(ctx context.Context, userID string) (bool, error) {
	if m.isConnectedFn != nil {
		return m.isConnectedFn(ctx, userID)
	}
	return false, nil
}

func (m *mockLinkedInService) Disconnect(ctx context.Context, userID string) error {
	if m.disconnectFn != nil {
		return m.disconnectFn(ctx, userID)
	}
	return nil
}

func (m *mockLinkedInService) CreatePost(ctx context.Context, userID, text, linkURL string) (*linkedin.PostResult, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, userID, text, linkURL)
	}
	return &linkedin.PostResult{PostID: "urn:li:ugcPost:1"}, nil
}

func testLinkedInConfig() LinkedInHandlerConfig {
	return LinkedInHandlerConfig{
		BaseURL:            "https://app.example.com",
		ConnectRedirectURL: "https://api.example.com/auth/linkedin/connect/callback",
		CookieSecure:       true,
	}
}

func newLinkedInHandler(provider *mockConnectProvider, svc *mockLinkedInService) (*LinkedInHandler, *mockMetrics) {
	m := &mockMetrics{}
	return NewLinkedInHandler(provider, svc, m, testLinkedInConfig()), m
}

// --- GET /auth/linkedin/connect テスト ---

func TestLinkedInHandler_Connect_RedirectsWithCookies(t *testing.T) {
	provider := &mockConnectProvider{
		getConnectURLFn: func(state, redirectURL string) string {
			if redirectURL != "https://api.example.com/auth/linkedin/connect/callback" {
				t.Errorf("redirectURL = %q", redirectURL)
			}
			return "https://www.linkedin.com/oauth/v2/authorization?state=" + state
		},
	}
	h, _ := newLinkedInHandler(provider, &mockLinkedInService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/connect?return_to=/settings", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Connect(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	state := findCookie(t, resp, oauthStateCookie)
	if state == nil || state.Value == "" {
		t.Fatal("expected oauth state cookie")
	}
	returnTo := findCookie(t, resp, linkedinReturnCookie)
	if returnTo == nil || returnTo.Value != "/settings" {
		t.Errorf("return cookie = %+v, want /settings", returnTo)
	}
}

// 外部URLを戻り先に指定してもアプリ内の既定パスに落とす。
func TestLinkedInHandler_Connect_RejectsExternalReturnTo(t *testing.T) {
	h, _ := newLinkedInHandler(&mockConnectProvider{}, &mockLinkedInService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/connect?return_to=https://evil.example.com/", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Connect(w, req)

	returnTo := findCookie(t, w.Result(), linkedinReturnCookie)
	if returnTo == nil || returnTo.Value != defaultConnectReturnPage {
		t.Errorf("return cookie = %+v, want %q", returnTo, defaultConnectReturnPage)
	}
}

// --- GET /auth/linkedin/connect/callback テスト ---

func TestLinkedInHandler_ConnectCallback_SavesTokenAndRedirects(t *testing.T) {
	saved := false
	svc := &mockLinkedInService{
		saveConnectionFn: func(ctx context.Context, userID, accessToken string, expiresAt time.Time) error {
			saved = true
			if userID != "user-1" || accessToken != "li-token" {
				t.Errorf("save args = (%q, %q)", userID, accessToken)
			}
			return nil
		},
	}
	h, _ := newLinkedInHandler(&mockConnectProvider{}, svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/connect/callback?code=auth-code&state=state-1", nil)
	req = withUserID(req, "user-1")
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	req.AddCookie(&http.Cookie{Name: linkedinReturnCookie, Value: "/settings"})
	w := httptest.NewRecorder()

	h.ConnectCallback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if !saved {
		t.Error("expected SaveConnection to be called")
	}

	// 戻り先ページに連携完了マーカー付きでリダイレクトする
	loc := resp.Header.Get("Location")
	if loc != "https://app.example.com/settings#linkedin_connected" {
		t.Errorf("Location = %q", loc)
	}
}

func TestLinkedInHandler_ConnectCallback_StateMismatch_Returns400(t *testing.T) {
	h, _ := newLinkedInHandler(&mockConnectProvider{}, &mockLinkedInService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/connect/callback?code=auth-code&state=evil", nil)
	req = withUserID(req, "user-1")
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	w := httptest.NewRecorder()

	h.ConnectCallback(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestLinkedInHandler_ConnectCallback_NoUserID_Returns401(t *testing.T) {
	h, _ := newLinkedInHandler(&mockConnectProvider{}, &mockLinkedInService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/connect/callback?code=auth-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	w := httptest.NewRecorder()

	h.ConnectCallback(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestLinkedInHandler_ConnectCallback_MissingReturnCookie_UsesDefault(t *testing.T) {
	h, _ := newLinkedInHandler(&mockConnectProvider{}, &mockLinkedInService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/connect/callback?code=auth-code&state=state-1", nil)
	req = withUserID(req, "user-1")
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	w := httptest.NewRecorder()

	h.ConnectCallback(w, req)

	loc := w.Result().Header.Get("Location")
	if loc != "https://app.example.com/build-profile#linkedin_connected" {
		t.Errorf("Location = %q", loc)
	}
}

// --- GET /api/linkedin/status テスト ---

func TestLinkedInHandler_Status_Connected(t *testing.T) {
	svc := &mockLinkedInService{
		isConnectedFn: func(ctx context.Context, userID string) (bool, error) {
			return true, nil
		},
	}
	h, _ := newLinkedInHandler(&mockConnectProvider{}, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/linkedin/status", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Status(w, req)

	var got map[string]bool
	if err := json.NewDecoder(w.Result().Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got["connected"] {
		t.Error("connected = false, want true")
	}
}

// --- DELETE /api/linkedin/connection テスト ---

func TestLinkedInHandler_Disconnect_Success(t *testing.T) {
	disconnected := false
	svc := &mockLinkedInService{
		disconnectFn: func(ctx context.Context, userID string) error {
			disconnected = true
			return nil
		},
	}
	h, _ := newLinkedInHandler(&mockConnectProvider{}, svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/linkedin/connection", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Disconnect(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if !disconnected {
		t.Error("expected Disconnect to be called")
	}
}

// --- POST /api/linkedin/posts テスト ---

func TestLinkedInHandler_CreatePost_Success(t *testing.T) {
	svc := &mockLinkedInService{
		createPostFn: func(ctx context.Context, userID, text, linkURL string) (*linkedin.PostResult, error) {
			if text != "採用情報です" || linkURL != "https://example.com/job" {
				t.Errorf("post args = (%q, %q)", text, linkURL)
			}
			return &linkedin.PostResult{
				PostID:  "urn:li:ugcPost:1",
				Preview: &linkedin.Preview{URL: linkURL, Title: "求人"},
			}, nil
		},
	}
	h, m := newLinkedInHandler(&mockConnectProvider{}, svc)

	body := strings.NewReader(`{"text":"採用情報です","link_url":"https://example.com/job"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/linkedin/posts", body)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got linkedin.PostResult
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.PostID != "urn:li:ugcPost:1" {
		t.Errorf("post_id = %q", got.PostID)
	}
	if len(m.linkedinPosts) != 1 || m.linkedinPosts[0] != "success" {
		t.Errorf("recorded posts = %v", m.linkedinPosts)
	}
}

func TestLinkedInHandler_CreatePost_NotConnected_Returns409(t *testing.T) {
	svc := &mockLinkedInService{
		createPostFn: func(ctx context.Context, userID, text, linkURL string) (*linkedin.PostResult, error) {
			return nil, model.NewLinkedInNotConnectedError()
		},
	}
	h, m := newLinkedInHandler(&mockConnectProvider{}, svc)

	body := strings.NewReader(`{"text":"投稿"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/linkedin/posts", body)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
	if len(m.linkedinPosts) != 1 || m.linkedinPosts[0] != "failure" {
		t.Errorf("recorded posts = %v", m.linkedinPosts)
	}
}

func TestLinkedInHandler_CreatePost_EmptyText_Returns400(t *testing.T) {
	h, _ := newLinkedInHandler(&mockConnectProvider{}, &mockLinkedInService{})

	body := strings.NewReader(`{"text":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/linkedin/posts", body)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}
