package linkedin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/talentbase/internal/model"
	"github.com/hitoshi/talentbase/internal/repository"
)

// Poster は投稿作成機能のインターフェース。Clientを抽象化する。
type Poster interface {
	SharePost(ctx context.Context, accessToken, text string) (string, error)
}

// Previewer はリンクプレビュー取得機能のインターフェース。
type Previewer interface {
	Fetch(ctx context.Context, rawURL string) (*Preview, error)
}

// PostResult は投稿作成の結果を表す。
type PostResult struct {
	PostID  string   `json:"post_id"`
	Preview *Preview `json:"preview,omitempty"`
}

// Service はLinkedIn連携のビジネスロジックを提供する。
// 連携トークンの保存と、トークンを使用した投稿作成を担う。
type Service struct {
	connRepo  repository.LinkedInConnectionRepository
	poster    Poster
	previewer Previewer
}

// NewService はServiceを生成する。
func NewService(connRepo repository.LinkedInConnectionRepository, poster Poster, previewer Previewer) *Service {
	return &Service{
		connRepo:  connRepo,
		poster:    poster,
		previewer: previewer,
	}
}

// SaveConnection は連携フローで取得したアクセストークンを保存する。
// 既存の連携がある場合は新しいトークンで上書きする。
func (s *Service) SaveConnection(ctx context.Context, userID, accessToken string, expiresAt time.Time) error {
	conn := &model.LinkedInConnection{
		UserID:      userID,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	if err := s.connRepo.Upsert(ctx, conn); err != nil {
		return fmt.Errorf("failed to save linkedin connection: %w", err)
	}

	slog.Info("linkedin connection saved", slog.String("user_id", userID))
	return nil
}

// IsConnected は指定ユーザーが有効なLinkedIn連携を持つかを返す。
func (s *Service) IsConnected(ctx context.Context, userID string) (bool, error) {
	conn, err := s.connRepo.FindByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to find linkedin connection: %w", err)
	}
	return conn != nil, nil
}

// Disconnect は指定ユーザーのLinkedIn連携を解除する。
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	if err := s.connRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete linkedin connection: %w", err)
	}

	slog.Info("linkedin connection removed", slog.String("user_id", userID))
	return nil
}

// CreatePost は保存済みの連携トークンでLinkedIn投稿を作成する。
// linkURLが指定された場合はリンクプレビューを取得して結果に含める。
// プレビューの取得失敗は投稿を妨げない。
func (s *Service) CreatePost(ctx context.Context, userID, text, linkURL string) (*PostResult, error) {
	conn, err := s.connRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find linkedin connection: %w", err)
	}
	if conn == nil {
		return nil, model.NewLinkedInNotConnectedError()
	}

	postID, err := s.poster.SharePost(ctx, conn.AccessToken, text)
	if err != nil {
		return nil, fmt.Errorf("failed to share post: %w", err)
	}

	result := &PostResult{PostID: postID}

	if linkURL != "" {
		preview, err := s.previewer.Fetch(ctx, linkURL)
		if err != nil {
			slog.Warn("link preview failed",
				slog.String("user_id", userID),
				slog.String("url", linkURL),
				slog.String("error", err.Error()),
			)
		} else {
			result.Preview = preview
		}
	}

	return result, nil
}
