// Package lifecycle はクライアント側のセッション・認証ライフサイクルマネージャを
// 提供する。Session Store、Bootstrap Sequencer、認証イベントリスナー、
// OAuthリダイレクトコーディネーター、Profile Reconciler、Route Guardで構成され、
// authclientパッケージ経由でバックエンドと通信する。
package lifecycle

import "sync"

// タブスコープのストレージキー。同一アプリの別ページと相互運用するため
// この名前は変更できない。
const (
	// StorageKeyOAuthSentinel はOAuthリダイレクト進行中を示すセンチネルフラグ。
	StorageKeyOAuthSentinel = "processing_oauth_login"
	// StorageKeyPendingAction はリダイレクトをまたいで保留されるアクションの保存先。
	StorageKeyPendingAction = "pending_post_data"
)

// Storage はタブスコープのキーバリューストレージの契約。
// ブラウザのsessionStorage相当で、タブを閉じると消える。
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// TabStorage はStorageのインメモリ実装。1タブ=1インスタンスに対応する。
type TabStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// コンパイル時のインターフェース実装チェック
var _ Storage = (*TabStorage)(nil)

// NewTabStorage は空のTabStorageを生成する。
func NewTabStorage() *TabStorage {
	return &TabStorage{values: make(map[string]string)}
}

// Get は指定キーの値を返す。
func (s *TabStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Set は指定キーに値を保存する。既存の値は上書きされる。
func (s *TabStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Remove は指定キーを削除する。存在しないキーは何もしない。
func (s *TabStorage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
