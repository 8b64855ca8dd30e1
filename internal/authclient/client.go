// Package authclient はtalentbaseバックエンドのセッション・プロフィールAPIを
// 呼び出すHTTPクライアントを提供する。ライフサイクルマネージャ（lifecycleパッケージ）
// はこのクライアント経由でのみバックエンドと通信する。
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/hitoshi/talentbase/internal/model"
)

// Backend はライフサイクルマネージャが必要とするバックエンド操作の契約。
type Backend interface {
	GetSession(ctx context.Context) (*model.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, name, email, password string) error
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	SignOut(ctx context.Context) error
	GetMe(ctx context.Context) (*model.Identity, error)
	GetProfile(ctx context.Context) (*model.Profile, error)
	CreateProfile(ctx context.Context, profile *model.Profile) (*model.Profile, error)
	UpdateProfile(ctx context.Context, patch *model.ProfilePatch) (*model.Profile, error)
	Events(ctx context.Context) (<-chan model.AuthEvent, error)
}

// Client はBackendのHTTP実装。セッションCookieはcookie jarで自動管理される。
type Client struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

// コンパイル時のインターフェース実装チェック
var _ Backend = (*Client)(nil)

// New はClientを生成する。httpClientがnilの場合はcookie jar付きの
// クライアントを新規作成する。リダイレクトは追跡しない
// （OAuth開始URLをLocationヘッダーから読み取るため）。
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar}
	}
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      httpClient,
		logger:  logger,
	}, nil
}

type sessionEnvelope struct {
	Session *model.Session `json:"session"`
}

// GetSession は現在有効なセッションを返す。セッションが存在しない場合は
// (nil, nil)を返す。通信失敗はNETWORK_ERRORとして返る。
func (c *Client) GetSession(ctx context.Context) (*model.Session, error) {
	var env sessionEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/auth/session", nil, &env); err != nil {
		return nil, err
	}
	return env.Session, nil
}

// SignInWithPassword はメールアドレスとパスワードでログインする。
// 認証失敗はINVALID_CREDENTIALS、メール未確認はEMAIL_NOT_VERIFIEDとして返る。
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var env sessionEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &env); err != nil {
		return nil, err
	}
	return env.Session, nil
}

// SignUp はアカウントを作成する。メール確認が完了するまで
// アカウントは未認証のままであり、セッションは発行されない。
func (c *Client) SignUp(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/auth/signup", body, nil)
}

// SignInWithOAuth はOAuthログインフローを開始し、ブラウザを遷移させるべき
// プロバイダの認可URLを返す。実際のナビゲーションは呼び出し側の責務。
func (c *Client) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	path := "/auth/" + url.PathEscape(provider) + "/login"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", model.NewNetworkError(err.Error())
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", model.NewNetworkError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect && resp.StatusCode != http.StatusFound {
		return "", c.decodeError(resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", model.NewOAuthStartFailedError(provider)
	}
	return location, nil
}

// SignOut はバックエンドにセッション破棄を要求する。
// バックエンドが失敗を返した場合はエラーを返し、Cookieは保持される。
func (c *Client) SignOut(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// GetMe は現在ログイン中のIdentityを取得する。
func (c *Client) GetMe(ctx context.Context) (*model.Identity, error) {
	var identity model.Identity
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// GetProfile はログインユーザーのプロフィールを取得する。
// 未作成の場合は(nil, nil)を返し、リコンサイラが作成フローに進む。
func (c *Client) GetProfile(ctx context.Context) (*model.Profile, error) {
	var profile model.Profile
	err := c.doJSON(ctx, http.MethodGet, "/api/profile", nil, &profile)
	if err != nil {
		if model.HasCode(err, model.ErrCodeProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// CreateProfile はプロフィールを新規作成し、サーバーが返した表現を返す。
func (c *Client) CreateProfile(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	var created model.Profile
	if err := c.doJSON(ctx, http.MethodPost, "/api/profile", profile, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProfile はプロフィールを部分更新し、サーバーが返した表現を返す。
// nilのフィールドは送信されず、保存済みの値が維持される。
func (c *Client) UpdateProfile(ctx context.Context, patch *model.ProfilePatch) (*model.Profile, error) {
	var updated model.Profile
	if err := c.doJSON(ctx, http.MethodPatch, "/api/profile", patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// doJSON はJSONリクエストを送信し、2xx以外はAPIErrorに変換する。
// /api配下への書き込みリクエストにはCSRFトークンを自動付与する。
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return model.NewNetworkError(err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// 書き込み系の/apiエンドポイントはdouble-submit方式のCSRF検証を要求する
	if method != http.MethodGet && strings.HasPrefix(path, "/api/") {
		token, err := c.csrfToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("X-CSRF-Token", token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return model.NewNetworkError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return model.NewNetworkError(fmt.Sprintf("failed to decode response: %s", err))
		}
	}
	return nil
}

// csrfToken はjar内のCSRF Cookieを返す。未取得の場合は
// GET /api/csrf-tokenで発行してから返す。
func (c *Client) csrfToken(ctx context.Context) (string, error) {
	if token := c.cookieValue("csrf_token"); token != "" {
		return token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/csrf-token", nil)
	if err != nil {
		return "", model.NewNetworkError(err.Error())
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", model.NewNetworkError(err.Error())
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	token := c.cookieValue("csrf_token")
	if token == "" {
		return "", model.NewNetworkError("CSRF token was not issued")
	}
	return token, nil
}

// cookieValue はjarに保存された指定名のCookie値を返す。
func (c *Client) cookieValue(name string) string {
	if c.hc.Jar == nil {
		return ""
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.hc.Jar.Cookies(base) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// decodeError はエラーレスポンスのボディをAPIErrorに復元する。
// 統一フォーマットでないボディはステータスコードに応じた既定エラーに落とす。
func (c *Client) decodeError(resp *http.Response) error {
	var apiErr model.APIError
	var wire struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Category string `json:"category"`
		Action   string `json:"action"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err == nil && wire.Code != "" {
		apiErr = model.APIError{
			Code:     wire.Code,
			Message:  wire.Message,
			Category: wire.Category,
			Action:   wire.Action,
		}
		return &apiErr
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return model.NewSessionExpiredError()
	}
	return model.NewNetworkError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
}
