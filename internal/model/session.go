package model

import "time"

// Session はユーザーのログインセッションを表す。
// IDが不透明なアクセス資格情報であり、バックエンドのみが発行・更新・破棄する。
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	RefreshedAt time.Time `json:"refreshed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile はアプリケーション固有のユーザーデータを表す。
// Identityと1対1に対応し、初回ログイン後にクライアント側の
// リコンサイラによって遅延作成される。
type Profile struct {
	UserID         string    `json:"user_id"`
	FullName       string    `json:"full_name"`
	Company        string    `json:"company,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	CompanyContact string    `json:"company_contact,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProfilePatch はプロフィールの部分更新を表す。
// nilのフィールドは変更せず、保存済みの値を維持する。
type ProfilePatch struct {
	FullName       *string `json:"full_name,omitempty"`
	Company        *string `json:"company,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	CompanyContact *string `json:"company_contact,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
}
