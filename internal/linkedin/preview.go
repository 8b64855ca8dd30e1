package linkedin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// previewTimeout はプレビュー取得のタイムアウト。
	previewTimeout = 10 * time.Second
	// maxPreviewBodySize はプレビュー取得で読み込むHTMLの上限サイズ。
	maxPreviewBodySize = 1 * 1024 * 1024
)

// Preview は投稿に添付するリンクのプレビュー情報を表す。
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// PreviewFetcher は投稿URLのリンクプレビュー取得機能を提供する。
// OGPメタタグとtitle要素からタイトル・説明・画像を抽出する。
type PreviewFetcher struct {
	ssrfGuard SSRFValidator
	logger    *slog.Logger

	// テスト用にHTTPクライアントを差し替え可能
	httpClient *http.Client
}

// NewPreviewFetcher はPreviewFetcherの新しいインスタンスを生成する。
func NewPreviewFetcher(ssrfGuard SSRFValidator, logger *slog.Logger) *PreviewFetcher {
	return &PreviewFetcher{
		ssrfGuard: ssrfGuard,
		logger:    logger,
	}
}

// Fetch は指定URLのリンクプレビューを取得する。
// 対象がHTMLでない場合やメタ情報が取得できない場合はURLのみのプレビューを返す。
// プレビューは投稿の補助情報であり、取得失敗は投稿自体を妨げない。
func (f *PreviewFetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	// 1. URLの事前検証（プライベートIP等をブロック）
	if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("preview URL blocked: %w", err)
	}

	// 2. SSRF防止付きクライアントで取得
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview request: %w", err)
	}
	req.Header.Set("User-Agent", "Talentbase/1.0 Link Preview")

	resp, err := f.client().Do(req)
	if err != nil {
		f.logger.Warn("プレビュー取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return &Preview{URL: rawURL}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("プレビュー対象がエラーステータスを返しました",
			slog.String("url", rawURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return &Preview{URL: rawURL}, nil
	}

	// 3. HTML以外のコンテンツはURLのみのプレビューにフォールバック
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/html" {
		return &Preview{URL: rawURL}, nil
	}

	// 4. HTMLからメタ情報を抽出（読み込みサイズに上限を設ける）
	preview := extractPreview(io.LimitReader(resp.Body, maxPreviewBodySize))
	preview.URL = rawURL

	return preview, nil
}

func (f *PreviewFetcher) client() *http.Client {
	if f.httpClient != nil {
		return f.httpClient
	}
	return f.ssrfGuard.NewSafeClient(previewTimeout)
}

// extractPreview はHTMLストリームからOGPメタタグとtitle要素を抽出する。
// og:titleがtitle要素より優先される。head終端まで読んだら打ち切る。
func extractPreview(r io.Reader) *Preview {
	preview := &Preview{}
	var pageTitle string

	tokenizer := html.NewTokenizer(r)
	inTitle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			// EOFまたはパースエラーで終了
			if preview.Title == "" {
				preview.Title = pageTitle
			}
			return preview

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()

			switch token.Data {
			case "title":
				inTitle = true
			case "meta":
				property, content := metaAttrs(token)
				switch property {
				case "og:title":
					preview.Title = content
				case "og:description":
					preview.Description = content
				case "og:image":
					preview.ImageURL = content
				}
			case "body":
				// メタ情報はhead内にあるため、body開始以降は読まない
				if preview.Title == "" {
					preview.Title = pageTitle
				}
				return preview
			}

		case html.TextToken:
			if inTitle && pageTitle == "" {
				pageTitle = strings.TrimSpace(tokenizer.Token().Data)
			}

		case html.EndTagToken:
			if tokenizer.Token().Data == "title" {
				inTitle = false
			}
		}
	}
}

// metaAttrs はmetaタグからproperty（またはname）とcontent属性を取り出す。
func metaAttrs(token html.Token) (property, content string) {
	for _, attr := range token.Attr {
		switch attr.Key {
		case "property", "name":
			property = strings.ToLower(attr.Val)
		case "content":
			content = attr.Val
		}
	}
	return property, content
}
