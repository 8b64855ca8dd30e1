package model

import (
	"encoding/json"
	"time"
)

// AuthEventType はバックエンドがプッシュする認証状態遷移の種別。
type AuthEventType string

const (
	// AuthEventSignedIn はログイン・サインアップ・OAuthコールバック成功時に発火する。
	AuthEventSignedIn AuthEventType = "SIGNED_IN"
	// AuthEventSignedOut はセッション破棄時に発火する。
	AuthEventSignedOut AuthEventType = "SIGNED_OUT"
	// AuthEventTokenRefreshed はセッションの有効期限延長時に発火する。
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	// AuthEventUserUpdated はIdentityメタデータまたはProfileの更新時に発火する。
	AuthEventUserUpdated AuthEventType = "USER_UPDATED"
)

// AuthEvent はバックエンドからクライアントへプッシュされる認証イベント。
// SIGNED_OUT以外ではSessionが設定される。
type AuthEvent struct {
	Type    AuthEventType `json:"event"`
	Session *Session      `json:"session,omitempty"`
}

// PendingAction はOAuthリダイレクトをまたいで保留されるユーザー操作を表す。
// タブスコープのストレージにのみ保存され、ページをまたいで永続化されない。
// Sourceは作成元のUIフローを識別し、同一Sourceの新しいアクションは
// 古いものを上書きする。
type PendingAction struct {
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}
