package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/talentbase/internal/authclient"
	"github.com/hitoshi/talentbase/internal/model"
)

// protectedLandingPath はOAuthログイン完了後の着地先。
// バックエンドはリダイレクトをこのパスに固定して返す。
const protectedLandingPath = "/dashboard"

// Navigator はブラウザのナビゲーション操作を抽象化する。
// Replaceは履歴を残さずに現在のロケーションを置き換える
// （認証情報フラグメントを戻る/進む履歴に残さないため）。
type Navigator interface {
	// Location は現在のパス・URLフラグメント・クエリ文字列を返す。
	Location() (path, fragment, query string)
	Replace(to string)
}

// Notifier は同期的な呼び出し元が存在しない場面でユーザーへ
// 通知を届ける契約。リダイレクト後のOAuth開始失敗などで使用される。
type Notifier interface {
	Notify(message string)
	NotifyError(err error)
}

// Manager はセッション・認証ライフサイクルの操作面。
// Storeへのミューテーションはこの型のメソッドとイベントリスナーに限定される。
type Manager struct {
	backend  authclient.Backend
	store    *Store
	storage  Storage
	nav      Navigator
	notifier Notifier
	deferred *DeferredActions
	logger   *slog.Logger

	bootstrapOnce sync.Once

	// tokenPollInterval は保留アクション再開前のトークン準備確認の間隔
	tokenPollInterval time.Duration

	mu             sync.Mutex
	resumeHandlers []resumeHandler
}

// resumeHandler は特定ページの保留アクション再開処理の登録情報。
type resumeHandler struct {
	source     string
	pathPrefix string
	fn         func(ctx context.Context, action *model.PendingAction)
}

// NewManager はManagerを生成する。loggerがnilの場合はslog.Defaultを使う。
func NewManager(backend authclient.Backend, store *Store, storage Storage, nav Navigator, notifier Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend:           backend,
		store:             store,
		storage:           storage,
		nav:               nav,
		notifier:          notifier,
		deferred:          NewDeferredActions(storage),
		logger:            logger,
		tokenPollInterval: 100 * time.Millisecond,
	}
}

// Store はSession Storeを返す。読み取り側はSnapshot()経由でのみ状態を参照する。
func (m *Manager) Store() *Store {
	return m.store
}

// Deferred は保留アクションサービスを返す。
func (m *Manager) Deferred() *DeferredActions {
	return m.deferred
}

// Login はメールアドレスとパスワードでログインする。
// 成功してもIdentityを直接セットしない。信頼できる情報源を一本化するため、
// バックエンドが発行するSIGNED_INイベントをリスナーが受信するのを待つ。
// 認証失敗・通信失敗は呼び出し元へそのまま伝播する。
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.store.setLoading(true)
	defer m.store.setLoading(false)

	_, err := m.backend.SignInWithPassword(ctx, email, password)
	return err
}

// Signup はアカウントを作成する。メール確認が完了するまで未認証のまま。
func (m *Manager) Signup(ctx context.Context, name, email, password string) error {
	m.store.setLoading(true)
	defer m.store.setLoading(false)

	return m.backend.SignUp(ctx, name, email, password)
}

// LoginWithGoogle はGoogle OAuthログインを開始する。
func (m *Manager) LoginWithGoogle(ctx context.Context) {
	m.loginWithOAuth(ctx, "google")
}

// LoginWithLinkedIn はLinkedIn OAuthログインを開始する。
func (m *Manager) LoginWithLinkedIn(ctx context.Context) {
	m.loginWithOAuth(ctx, "linkedin")
}

// loginWithOAuth はOAuthリダイレクトを開始する。ページから離脱して戻るため、
// 離脱前にセンチネルを立てる。リダイレクト開始に失敗した場合はセンチネルを
// ロールバックし、通知で報告する。リダイレクト成功後はスタック上に
// 呼び出し元が残らないため、この境界からエラーを外へ投げない。
func (m *Manager) loginWithOAuth(ctx context.Context, provider string) {
	// 1. 離脱前にセンチネルを立てる（戻ってきたページが検出できるように）
	m.storage.Set(StorageKeyOAuthSentinel, "true")

	// 2. バックエンドからプロバイダの認可URLを取得する
	beginURL, err := m.backend.SignInWithOAuth(ctx, provider, protectedLandingPath)
	if err != nil {
		m.storage.Remove(StorageKeyOAuthSentinel)
		m.logger.Warn("failed to begin OAuth login",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		m.notifier.NotifyError(err)
		return
	}

	// 3. プロバイダへ遷移する
	m.nav.Replace(beginURL)
}

// Logout はバックエンドにセッション破棄を要求し、成功した場合のみ
// ローカル状態を破棄する。バックエンドが失敗した場合はローカル状態を
// 一切変更せずエラーを返す（「ログアウトしたように見えるが
// バックエンドは同意していない」不整合を作らない）。
func (m *Manager) Logout(ctx context.Context) error {
	m.store.setLoading(true)
	defer m.store.setLoading(false)

	if err := m.backend.SignOut(ctx); err != nil {
		return err
	}

	m.store.clearAuth()
	m.storage.Remove(StorageKeyOAuthSentinel)
	return nil
}

// UpdateProfile はプロフィールを部分更新する。未指定フィールドは
// 保持中の最終既知値で埋めてから送信し、成功時はローカルでマージした値ではなく
// サーバーが返した表現で置き換える（サーバー側のデフォルト・検証と一致させる）。
// 失敗時はローカルのプロフィールを最終既知値のまま維持する。
func (m *Manager) UpdateProfile(ctx context.Context, partial *model.ProfilePatch) error {
	m.store.setLoading(true)
	defer m.store.setLoading(false)

	merged := mergePatch(m.store.Snapshot().Profile, partial)
	updated, err := m.backend.UpdateProfile(ctx, merged)
	if err != nil {
		return err
	}

	m.store.setProfile(updated)
	return nil
}

// mergePatch はpartialの未指定フィールドをcurrentの値で埋めた完全なパッチを返す。
// 未指定フィールドがnullとして送信され既存値を消すことを防ぐ。
func mergePatch(current *model.Profile, partial *model.ProfilePatch) *model.ProfilePatch {
	merged := &model.ProfilePatch{
		FullName:       partial.FullName,
		Company:        partial.Company,
		Phone:          partial.Phone,
		CompanyContact: partial.CompanyContact,
		AvatarURL:      partial.AvatarURL,
	}
	if current == nil {
		return merged
	}

	if merged.FullName == nil {
		merged.FullName = &current.FullName
	}
	if merged.Company == nil {
		merged.Company = &current.Company
	}
	if merged.Phone == nil {
		merged.Phone = &current.Phone
	}
	if merged.CompanyContact == nil {
		merged.CompanyContact = &current.CompanyContact
	}
	if merged.AvatarURL == nil {
		merged.AvatarURL = &current.AvatarURL
	}
	return merged
}
