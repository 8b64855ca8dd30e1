package lifecycle

import (
	"net/url"
	"strings"
)

// allowedAuthenticatedPrefixes は認証済みユーザーが滞在できるパスの接頭辞。
// ここに含まれないパスにいる認証済みユーザーはダッシュボードへ送られる。
var allowedAuthenticatedPrefixes = []string{
	"/dashboard",
	"/settings",
	"/build-profile",
	"/linkedin-callback",
	"/linkedin-token-callback",
}

// publicPrefixes は未認証ユーザーが滞在できるパスの接頭辞。
// ルート（"/"）のみ完全一致で判定される。
var publicPrefixes = []string{
	"/login",
	"/signup",
	"/auth",
	"/verify",
	"/forgot-password",
	"/pricing",
	"/terms",
	"/privacy",
}

// GuardDecision はRoute Guardの判定結果。
type GuardDecision struct {
	// Redirect が真の場合、Toへ置換遷移すべきことを示す。
	Redirect bool
	To       string
}

// Decide は認証状態と現在パスからナビゲーション動作を決定する純粋関数。
// AuthReadyになる前、またはネットワーク往復中は判定を保留する
// （過渡状態でのリダイレクトちらつきを防ぐ）。
func Decide(state State, path string) GuardDecision {
	// 初回セッション確認が終わるまでは判定しない
	if !state.AuthReady || state.IsLoading {
		return GuardDecision{}
	}

	if state.IsAuthenticated() {
		for _, prefix := range allowedAuthenticatedPrefixes {
			if strings.HasPrefix(path, prefix) {
				return GuardDecision{}
			}
		}
		return GuardDecision{Redirect: true, To: protectedLandingPath}
	}

	if isPublicPath(path) {
		return GuardDecision{}
	}

	// 保護パスにいる未認証ユーザーはログインへ。元のパスをfromクエリで
	// 引き継ぎ、ログイン後に戻れるようにする
	return GuardDecision{
		Redirect: true,
		To:       "/login?from=" + url.QueryEscape(path),
	}
}

// isPublicPath は未認証ユーザーが滞在できるパスかどうかを判定する。
func isPublicPath(path string) bool {
	if path == "/" {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
