// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はプロフィールのテキスト項目とOAuthプロバイダー由来の
// 表示名からHTMLをすべて除去し、格納値を純粋なプレーンテキストに保つ。
// bluemondayのStrictPolicyを使用し、タグ・属性を一切許可しない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキストのサニタイズ機能のインターフェースを定義する。
// プロフィール作成・更新時、OAuthユーザー情報の取り込み時、
// およびLinkedIn投稿本文の受け付け時に使用される。
type TextSanitizerService interface {
	// SanitizeText は入力からHTMLタグをすべて除去し、前後の空白を取り除いて返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力からHTMLタグをすべて除去し、前後の空白を取り除いて返す。
func (s *textSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
