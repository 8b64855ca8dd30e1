// Package model はドメインモデルを定義する。
package model

import "time"

// Identity はバックエンドが管理する正規のユーザーレコードを表す。
// Profileとは独立しており、クライアントからはメタデータのパッチを除き不変。
type Identity struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProviderLink は外部IdP（Google, LinkedIn）とIdentityの紐付け情報を表す。
// 1つのIdentityが複数のIdPに紐付くことができる。
type ProviderLink struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// VerificationToken はサインアップ時のメールアドレス確認トークンを表す。
// 確認が完了するまでアカウントはログイン不可の状態にとどまる。
type VerificationToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// LinkedInConnection はLinkedIn連携フロー（ログインとは別）で取得した
// アクセストークンを表す。投稿APIの呼び出しに使用される。
type LinkedInConnection struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
