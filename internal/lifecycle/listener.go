package lifecycle

import (
	"context"
	"log/slog"

	"github.com/hitoshi/talentbase/internal/model"
)

// StartListener はバックエンドの認証イベントストリームを購読し、
// 専用の1ゴルーチンで到着順に処理する。Identity・Sessionのミューテーションは
// このゴルーチンが唯一の直列化ポイントであり、複数のコールバック登録が
// 交錯して状態を壊すことはない。ctxのキャンセルで購読を解除して停止する。
// 停止完了を待つためのチャネルを返す。
func (m *Manager) StartListener(ctx context.Context) (<-chan struct{}, error) {
	events, err := m.backend.Events(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			m.handleEvent(ctx, event)
		}
	}()
	return done, nil
}

// handleEvent は認証イベント1件をStoreへ反映する。
// イベントごとにIsLoadingを自前でブラケットする。連続したイベントでは
// 2件目が1件目の解除直後に再びローディング状態へ入ることがあるが、
// UIに必要なのは結果整合性であり単調なローディング遷移ではない。
// バックグラウンド処理のため、エラーはログに記録して握りつぶす。
func (m *Manager) handleEvent(ctx context.Context, event model.AuthEvent) {
	m.store.setLoading(true)
	defer m.store.setLoading(false)

	switch event.Type {
	case model.AuthEventSignedIn:
		// センチネルはSIGNED_INの処理をもって必ず消える。
		// 放棄されたOAuthフローの残骸がセッションをまたいで残らないようにする
		m.storage.Remove(StorageKeyOAuthSentinel)
		m.store.setSession(event.Session)

		identity, err := m.backend.GetMe(ctx)
		if err != nil {
			m.logger.Warn("failed to fetch identity after sign-in",
				slog.String("error", err.Error()),
			)
			return
		}
		m.store.setIdentity(identity)
		m.EnsureProfile(ctx)

	case model.AuthEventTokenRefreshed:
		m.store.setSession(event.Session)

	case model.AuthEventSignedOut:
		m.storage.Remove(StorageKeyOAuthSentinel)
		m.store.clearAuth()

	case model.AuthEventUserUpdated:
		identity, err := m.backend.GetMe(ctx)
		if err != nil {
			m.logger.Warn("failed to refresh identity",
				slog.String("error", err.Error()),
			)
			return
		}
		m.store.setIdentity(identity)
		m.EnsureProfile(ctx)

	default:
		m.logger.Warn("unknown auth event", slog.String("type", string(event.Type)))
	}
}
