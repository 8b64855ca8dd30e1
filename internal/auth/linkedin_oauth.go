package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultLinkedInAuthURL     = "https://www.linkedin.com/oauth/v2/authorization"
	defaultLinkedInTokenURL    = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultLinkedInUserInfoURL = "https://api.linkedin.com/v2/userinfo"
)

// LinkedInOAuthConfig はLinkedIn OAuthプロバイダーの設定。
type LinkedInOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// LinkedInOAuthProvider はLinkedIn OpenID Connectによる認証を提供する。
// ログイン用とは別に、投稿権限付きの連携フロー（Connect）にも使用される。
type LinkedInOAuthProvider struct {
	config LinkedInOAuthConfig
}

// NewLinkedInOAuthProvider はLinkedInOAuthProviderを生成する。
func NewLinkedInOAuthProvider(config LinkedInOAuthConfig) *LinkedInOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultLinkedInAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultLinkedInTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultLinkedInUserInfoURL
	}
	return &LinkedInOAuthProvider{config: config}
}

// GetLoginURL はLinkedInのOIDC認証URLを生成する。
func (p *LinkedInOAuthProvider) GetLoginURL(state string) string {
	return p.buildAuthURL(state, "openid profile email", p.config.RedirectURL)
}

// GetConnectURL は投稿権限（w_member_social）付きの連携用認証URLを生成する。
// ログインとは独立したフローであり、リダイレクト先も異なる。
func (p *LinkedInOAuthProvider) GetConnectURL(state, redirectURL string) string {
	return p.buildAuthURL(state, "openid profile email w_member_social", redirectURL)
}

func (p *LinkedInOAuthProvider) buildAuthURL(state, scope, redirectURL string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {redirectURL},
		"response_type": {"code"},
		"scope":         {scope},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// linkedinTokenResponse はLinkedInのトークンエンドポイントのレスポンス。
type linkedinTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// linkedinUserInfo はLinkedInのOIDC userinfoエンドポイントのレスポンス。
type linkedinUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// LinkedInToken は連携フローで取得したアクセストークンを表す。
type LinkedInToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *LinkedInOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	// 1. 認可コードをアクセストークンに交換
	tokenResp, err := p.exchangeToken(ctx, code, p.config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// 2. アクセストークンでユーザー情報を取得
	userInfo, err := p.fetchUserInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	return &OAuthUserInfo{
		ProviderUserID: userInfo.Sub,
		Email:          userInfo.Email,
		Name:           userInfo.Name,
		AvatarURL:      userInfo.Picture,
		Provider:       "linkedin",
	}, nil
}

// ExchangeCodeForToken は連携フローの認可コードをアクセストークンに交換する。
// 投稿APIの呼び出しに使用するため、トークン自体を返す。
func (p *LinkedInOAuthProvider) ExchangeCodeForToken(ctx context.Context, code, redirectURL string) (*LinkedInToken, error) {
	tokenResp, err := p.exchangeToken(ctx, code, redirectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	return &LinkedInToken{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *LinkedInOAuthProvider) exchangeToken(ctx context.Context, code, redirectURL string) (*linkedinTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {redirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp linkedinTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, nil
}

// fetchUserInfo はアクセストークンでLinkedInのユーザー情報を取得する。
func (p *LinkedInOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*linkedinUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo linkedinUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userInfo.Sub == "" {
		return nil, fmt.Errorf("empty sub in user info response")
	}

	return &userInfo, nil
}

// compile-time interface check
var _ OAuthProvider = (*LinkedInOAuthProvider)(nil)
