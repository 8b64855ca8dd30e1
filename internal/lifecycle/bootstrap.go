package lifecycle

import (
	"context"
	"log/slog"
)

// Bootstrap はコールドスタート時のセッション復元を行う。
// ページロードごとに最初の1回だけ実行され、2回目以降の呼び出しは何もしない。
// いかなる経路でも最後にAuthReady=true・IsLoading=falseへ到達し、
// 失敗は「未認証」への縮退であってクラッシュではない。
func (m *Manager) Bootstrap(ctx context.Context) {
	m.bootstrapOnce.Do(func() {
		m.bootstrap(ctx)
	})
}

func (m *Manager) bootstrap(ctx context.Context) {
	// 1. ローディング開始。終了時にAuthReadyを確定させる
	m.store.setLoading(true)
	defer func() {
		m.store.markAuthReady()
		m.store.setLoading(false)
	}()

	// 2. 永続化されたセッションを問い合わせる
	session, err := m.backend.GetSession(ctx)
	if err != nil {
		m.logger.Warn("session bootstrap failed, continuing as unauthenticated",
			slog.String("error", err.Error()),
		)
		return
	}
	if session == nil {
		return
	}

	m.store.setSession(session)

	// 3. OAuthリダイレクトの途中であればプロフィール取得をスキップする。
	//    リスナーがSIGNED_INイベントで同じ取得を行うため、ここで実行すると
	//    同一ページロード内で二重フェッチの競合になる
	if m.MidOAuthRedirect() {
		return
	}

	// 4. Identityとプロフィールを復元する
	identity, err := m.backend.GetMe(ctx)
	if err != nil {
		m.logger.Warn("failed to restore identity during bootstrap",
			slog.String("error", err.Error()),
		)
		return
	}
	m.store.setIdentity(identity)
	m.EnsureProfile(ctx)
}
