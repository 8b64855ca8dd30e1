// Package linkedin はLinkedIn連携機能を提供する。
// UGC Posts APIによる投稿の共有と、投稿URLのリンクプレビュー取得を含む。
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// defaultPostEndpoint はLinkedIn UGC Posts APIのエンドポイント。
	defaultPostEndpoint = "https://api.linkedin.com/v2/ugcPosts"
	// defaultUserInfoEndpoint は投稿者URN解決用のOIDC userinfoエンドポイント。
	defaultUserInfoEndpoint = "https://api.linkedin.com/v2/userinfo"
)

// Client はLinkedIn UGC Posts APIのクライアント。
// 連携フローで取得したアクセストークンを使用してメンバー名義の投稿を作成する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	// テスト用にエンドポイントを差し替え可能
	postEndpoint     string
	userInfoEndpoint string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient:       httpClient,
		logger:           logger,
		postEndpoint:     defaultPostEndpoint,
		userInfoEndpoint: defaultUserInfoEndpoint,
	}
}

// SharePost は指定テキストをメンバー名義のLinkedIn投稿として公開する。
// 戻り値は作成された投稿のID。
func (c *Client) SharePost(ctx context.Context, accessToken, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("post text is required")
	}

	// 1. 投稿者URNを解決する
	authorURN, err := c.resolveAuthorURN(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("failed to resolve author URN: %w", err)
	}

	// 2. UGC Posts APIに投稿を作成する
	payload := map[string]interface{}{
		"author":         authorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": text,
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal post payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.postEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("LinkedIn投稿APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("post request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read post response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		c.logger.Error("LinkedIn投稿APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("post creation failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("failed to parse post response: %w", err)
	}

	// レスポンスボディにIDがない場合はX-RestLi-Idヘッダーを参照する
	if created.ID == "" {
		created.ID = resp.Header.Get("X-RestLi-Id")
	}

	c.logger.Info("LinkedIn投稿を作成しました", slog.String("post_id", created.ID))
	return created.ID, nil
}

// resolveAuthorURN はアクセストークンから投稿者のperson URNを解決する。
func (c *Client) resolveAuthorURN(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoEndpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo fetch failed with status %d", resp.StatusCode)
	}

	var info struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to parse userinfo response: %w", err)
	}
	if info.Sub == "" {
		return "", fmt.Errorf("empty sub in userinfo response")
	}

	return "urn:li:person:" + info.Sub, nil
}
