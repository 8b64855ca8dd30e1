package lifecycle

import (
	"context"
	"log/slog"

	"github.com/hitoshi/talentbase/internal/model"
)

// EnsureProfile は保持中のIdentityに対応するプロフィールの存在を保証する。
// 見つかればそのまま保存し、存在しなければIdentityのメタデータから合成して
// 作成する。保存されるのはバックエンドが返した表現であり、合成した下書きではない
// （サーバー側で採番・デフォルト適用された結果を反映するため）。
// この処理のエラーはログに記録して握りつぶす。プロフィール取得の失敗が
// 認証済み状態そのものを妨げてはならない。
func (m *Manager) EnsureProfile(ctx context.Context) {
	identity := m.store.Snapshot().Identity
	if identity == nil {
		return
	}

	// 1. 既存プロフィールを取得する
	profile, err := m.backend.GetProfile(ctx)
	if err != nil {
		m.logger.Warn("failed to fetch profile",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if profile != nil {
		m.store.setProfile(profile)
		return
	}

	// 2. 存在しない場合はIdentityメタデータから合成して作成する
	created, err := m.backend.CreateProfile(ctx, &model.Profile{
		FullName:  identity.Name,
		AvatarURL: identity.AvatarURL,
	})
	if err != nil {
		m.logger.Warn("failed to create profile",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	m.store.setProfile(created)
}
