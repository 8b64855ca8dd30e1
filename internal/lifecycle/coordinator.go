package lifecycle

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/talentbase/internal/model"
)

// URLフラグメント内のマーカー。
const (
	// accessTokenMarker はOAuthプロバイダからの復帰をクライアントが
	// 観測できる唯一のシグナル。
	accessTokenMarker = "access_token"
	// linkedinConnectedMarker はLinkedIn連携フロー（ログインOAuthとは別）の
	// 完了を示す。
	linkedinConnectedMarker = "linkedin_connected"
)

// tokenReadyMaxWait は保留アクション再開前にセッショントークンが
// 使用可能になるのを待つ上限。
const tokenReadyMaxWait = 3 * time.Second

// MidOAuthRedirect はページがOAuthリダイレクトの途中かどうかを判定する。
// URLフラグメントにアクセストークンマーカーが含まれるか、
// タブスコープのセンチネルが立っている場合に真。
func (m *Manager) MidOAuthRedirect() bool {
	_, fragment, _ := m.nav.Location()
	if strings.Contains(fragment, accessTokenMarker) {
		return true
	}
	_, ok := m.storage.Get(StorageKeyOAuthSentinel)
	return ok
}

// RegisterResumeHandler はLinkedIn連携復帰時に保留アクションを再開する
// ページを登録する。sourceはアクション作成時のソースタグ、pathPrefixは
// そのページのパス接頭辞。
func (m *Manager) RegisterResumeHandler(source, pathPrefix string, fn func(ctx context.Context, action *model.PendingAction)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeHandlers = append(m.resumeHandlers, resumeHandler{
		source:     source,
		pathPrefix: pathPrefix,
		fn:         fn,
	})
}

// HandleRedirect はページロード・ルート遷移ごとに呼ばれ、3つの状況を識別する。
//
//	(a) 認証情報フラグメント付きでOAuthプロバイダから到着した直後
//	(b) センチネル上はOAuthフロー進行中のままページが新規ロードされた
//	(c) OAuthと無関係な通常のロード・遷移
//
// (a)ではセンチネルを立ててフラグメントを履歴に残さずに保護ランディングへ
// 置換遷移し、以後はリスナーのSIGNED_INイベントが主導する。
// (b)は特別な処理を持たない。残留センチネルは最初のSIGNED_INまたは
// SIGNED_OUTイベントの処理で必ず消える。
// LinkedIn連携復帰ではマーカーを消費し、保留アクションの再開を試みる。
func (m *Manager) HandleRedirect(ctx context.Context) {
	currentPath, fragment, _ := m.nav.Location()

	// ケース(a): 認証情報フラグメント付きの到着
	if strings.Contains(fragment, accessTokenMarker) {
		m.storage.Set(StorageKeyOAuthSentinel, "true")
		m.nav.Replace(protectedLandingPath)
		return
	}

	// LinkedIn連携フローからの復帰
	if strings.Contains(fragment, linkedinConnectedMarker) {
		// マーカーを消費する（置換遷移で履歴に残さない）
		m.nav.Replace(currentPath)
		m.resumeDeferred(ctx, currentPath)
		return
	}

	// ケース(b)/(c): ここでは何もしない
}

// resumeDeferred は現在ページに対応する保留アクションを再開する。
// ソースタグが現在ページと一致しない場合はアクションを残したまま
// 汎用の完了通知のみを表示する（該当ページが後で消費する）。
func (m *Manager) resumeDeferred(ctx context.Context, currentPath string) {
	pending, ok := m.deferred.Peek()
	if !ok {
		m.notifier.Notify("LinkedInと連携しました。")
		return
	}

	handler, ok := m.handlerFor(currentPath)
	if !ok || pending.Source != handler.source {
		m.notifier.Notify("LinkedInと連携しました。")
		return
	}

	// 1回限りの消費: 再開前にストレージから取り除く
	action, ok := m.deferred.Take(handler.source)
	if !ok {
		return
	}

	// 到着直後のセッショントークンが認証付き呼び出しに使えるようになるまで
	// 明示的に確認してから再開する（固定スリープによる経験的待ちの代替）
	if !m.waitTokenReady(ctx) {
		m.logger.Warn("session token did not become ready, skipping deferred action",
			slog.String("source", action.Source),
		)
		m.notifier.Notify("LinkedInと連携しました。")
		return
	}

	handler.fn(ctx, action)
}

// handlerFor は現在パスに対応する再開ハンドラーを返す。
func (m *Manager) handlerFor(path string) (resumeHandler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.resumeHandlers {
		if strings.HasPrefix(path, h.pathPrefix) {
			return h, true
		}
	}
	return resumeHandler{}, false
}

// waitTokenReady はバックエンドが有効なセッションを返すまでポーリングする。
func (m *Manager) waitTokenReady(ctx context.Context) bool {
	deadline := time.Now().Add(tokenReadyMaxWait)
	for {
		session, err := m.backend.GetSession(ctx)
		if err == nil && session != nil {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.tokenPollInterval):
		}
	}
}
