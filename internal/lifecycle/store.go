package lifecycle

import (
	"sync"

	"github.com/hitoshi/talentbase/internal/model"
)

// State はSession Storeのスナップショット。値コピーで返され、
// 読み取り側が保持しても以後の変更の影響を受けない。
type State struct {
	Identity  *model.Identity
	Session   *model.Session
	Profile   *model.Profile
	IsLoading bool
	AuthReady bool
}

// IsAuthenticated はIdentityの有無から導出される。
// 別フィールドとして保持すると不整合の温床になるため常に計算で求める。
func (s State) IsAuthenticated() bool {
	return s.Identity != nil
}

// Store は現在のユーザー識別・セッション・プロフィールの唯一の信頼できる情報源。
// アプリケーションルートで1度だけ生成され、ミューテーションは
// Manager（操作）とイベントリスナーに限定される。外部からは
// Snapshot()による読み取りのみ。
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore は初期状態（未認証・AuthReady=false）のStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Snapshot は現在の状態のコピーを返す。
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setLoading はネットワーク往復中フラグを更新する。
func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
}

// markAuthReady はAuthReadyをtrueにする。false→trueの遷移は
// 初回ブートストラップ完了時の1回だけで、以後falseには戻らない。
func (s *Store) markAuthReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AuthReady = true
}

// setSession はセッションを差し替える。TOKEN_REFRESHEDで使用される。
func (s *Store) setSession(session *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Session = session
}

// setIdentity はIdentityを差し替える。
func (s *Store) setIdentity(identity *model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Identity = identity
}

// setProfile はプロフィールを差し替える。
func (s *Store) setProfile(profile *model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Profile = profile
}

// clearAuth はIdentity・Session・Profileを一括で破棄する。
// サインアウト確定時のみ呼ばれる。AuthReadyは維持される。
func (s *Store) clearAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Identity = nil
	s.state.Session = nil
	s.state.Profile = nil
}
