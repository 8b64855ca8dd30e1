// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/talentbase/internal/model"
)

// UserRepository はユーザー（Identity）データの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// Create はユーザーを作成する。パスワードサインアップで使用する。
	Create(ctx context.Context, user *model.Identity) error

	// CreateWithProviderLink はユーザーとIdP紐付けを同一トランザクションで作成する。
	// OAuthコールバックでの新規ユーザー作成で使用する。
	CreateWithProviderLink(ctx context.Context, user *model.Identity, link *model.ProviderLink) error

	// MarkEmailVerified はメールアドレス確認済みフラグを立てる。
	MarkEmailVerified(ctx context.Context, id string) error

	// UpdateMetadata はプロバイダー由来のメタデータ（表示名・アバターURL）を更新する。
	UpdateMetadata(ctx context.Context, id, name, avatarURL string) error
}

// ProviderLinkRepository は外部IdP紐付け情報の永続化インターフェース。
type ProviderLinkRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idで紐付けを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.ProviderLink, error)

	// Create は既存ユーザーへの新しいIdP紐付けを作成する。
	Create(ctx context.Context, link *model.ProviderLink) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// Refresh はセッションの有効期限を延長し、更新後のセッションを返す。
	// 対象が存在しないか期限切れの場合はnilを返す。
	Refresh(ctx context.Context, id string, expiresAt time.Time) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// Upsert はプロフィールを冪等に作成する。既に存在する場合は既存行を変更せず、
	// いずれの場合も保存されている行を返す。リコンサイラの二重作成を1行に収束させる。
	Upsert(ctx context.Context, profile *model.Profile) (*model.Profile, error)

	// Update はプロフィール全体を上書きし、保存後の行を返す。
	// 部分更新のマージはサービス層で行う。対象が存在しない場合はnilを返す。
	Update(ctx context.Context, profile *model.Profile) (*model.Profile, error)
}

// VerificationTokenRepository はメール確認トークンの永続化インターフェース。
type VerificationTokenRepository interface {
	// Create は確認トークンを作成する。
	Create(ctx context.Context, token *model.VerificationToken) error

	// Consume はトークンを原子的に削除して返す（1回限りの消費）。
	// 存在しないか期限切れの場合はnilを返す。
	Consume(ctx context.Context, token string) (*model.VerificationToken, error)
}

// LinkedInConnectionRepository はLinkedIn連携トークンの永続化インターフェース。
type LinkedInConnectionRepository interface {
	// Upsert は連携トークンを保存する。既存の連携は新しいトークンで上書きされる。
	Upsert(ctx context.Context, conn *model.LinkedInConnection) error

	// FindByUserID は指定ユーザーの有効な連携を取得する。
	// 見つからないか期限切れの場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.LinkedInConnection, error)

	// DeleteByUserID は指定ユーザーの連携を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
