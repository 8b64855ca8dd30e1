package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, profile, linkedin, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeEmailNotVerified     = "EMAIL_NOT_VERIFIED"
	ErrCodeEmailTaken           = "EMAIL_TAKEN"
	ErrCodeNetworkError         = "NETWORK_ERROR"
	ErrCodeSessionExpired       = "SESSION_EXPIRED"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeOAuthStartFailed     = "OAUTH_START_FAILED"
	ErrCodeInvalidOAuthState    = "INVALID_OAUTH_STATE"
	ErrCodeInvalidToken         = "INVALID_TOKEN"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeSSRFBlocked          = "SSRF_BLOCKED"
	ErrCodeLinkedInNotConnected = "LINKEDIN_NOT_CONNECTED"
)

// HasCode はerrが指定コードのAPIErrorかどうかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// 存在しないメールアドレスとパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailNotVerifiedError はメール未確認エラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotVerified,
		Message:  "メールアドレスの確認が完了していません。",
		Category: "auth",
		Action:   "確認メールのリンクを開いてからログインしてください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewNetworkError は通信失敗エラーを生成する。
func NewNetworkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeNetworkError,
		Message:  fmt.Sprintf("サーバーとの通信に失敗しました: %s", reason),
		Category: "system",
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewSessionExpiredError はセッション失効エラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewProfileNotFoundError はプロフィール未作成エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "profile",
		Action:   "プロフィールを作成してください。",
	}
}

// NewOAuthStartFailedError はOAuthリダイレクト開始失敗エラーを生成する。
func NewOAuthStartFailedError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeOAuthStartFailed,
		Message:  fmt.Sprintf("%sログインを開始できませんでした。", provider),
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidOAuthStateError はOAuth stateパラメータ不一致エラーを生成する。
func NewInvalidOAuthStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOAuthState,
		Message:  "認証フローの検証に失敗しました。",
		Category: "auth",
		Action:   "最初からログインをやり直してください。",
	}
}

// NewInvalidTokenError は確認トークン無効エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "確認トークンが無効または期限切れです。",
		Category: "auth",
		Action:   "サインアップをやり直して新しい確認メールを受け取ってください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewLinkedInNotConnectedError はLinkedIn未連携エラーを生成する。
func NewLinkedInNotConnectedError() *APIError {
	return &APIError{
		Code:     ErrCodeLinkedInNotConnected,
		Message:  "LinkedInアカウントが連携されていません。",
		Category: "linkedin",
		Action:   "LinkedIn連携を行ってから再度お試しください。",
	}
}
