package lifecycle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/talentbase/internal/model"
)

// DeferredActions はOAuthリダイレクトをまたいで保留されるアクションを
// 型付きで管理するサービス。生の文字列キー結合の代わりに
// Put/Takeの明示的な契約でページ間の受け渡しを行う。
// 同時に保持されるアクションはソースタグごとに最大1件。
type DeferredActions struct {
	storage Storage
}

// NewDeferredActions はDeferredActionsを生成する。
func NewDeferredActions(storage Storage) *DeferredActions {
	return &DeferredActions{storage: storage}
}

// Put はアクションを保存する。同一ソースの既存アクションは上書きされる。
func (d *DeferredActions) Put(source string, payload json.RawMessage) error {
	action := model.PendingAction{
		Source:    source,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal pending action: %w", err)
	}
	d.storage.Set(StorageKeyPendingAction, string(data))
	return nil
}

// Take は指定ソースのアクションを取り出して削除する（1回限りの消費）。
// 保存されたアクションのソースが一致しない場合は削除せずfalseを返し、
// 該当ページが後で消費できるよう残す。
func (d *DeferredActions) Take(source string) (*model.PendingAction, bool) {
	action, ok := d.Peek()
	if !ok || action.Source != source {
		return nil, false
	}
	d.storage.Remove(StorageKeyPendingAction)
	return action, true
}

// Peek は保存中のアクションを削除せずに返す。
func (d *DeferredActions) Peek() (*model.PendingAction, bool) {
	raw, ok := d.storage.Get(StorageKeyPendingAction)
	if !ok {
		return nil, false
	}
	var action model.PendingAction
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		// 壊れたエントリは残しても消費できないため破棄する
		d.storage.Remove(StorageKeyPendingAction)
		return nil, false
	}
	return &action, true
}
