// Package events は認証イベントのプロセス内配信を提供する。
// 認証サービスとプロファイルサービスがイベントを発行し、
// SSEハンドラーとクライアント側リスナーが購読する。
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/talentbase/internal/model"
)

// subscriberBufferSize は購読者ごとのチャネルバッファサイズ。
// 購読者の処理が遅延した場合、バッファ満杯時のイベントは破棄される。
// ブロックすると発行側(認証サービス)のリクエスト処理が止まるため。
const subscriberBufferSize = 16

// Bus はユーザーIDごとの認証イベント配信バス。
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan model.AuthEvent // userID -> subscriberID -> channel
}

// NewBus は新しいイベントバスを生成する。
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[string]chan model.AuthEvent),
	}
}

// Publish は指定ユーザーの全購読者にイベントを配信する。
// 購読者のバッファが満杯の場合、そのイベントは破棄される。
func (b *Bus) Publish(userID string, event model.AuthEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[userID] {
		select {
		case ch <- event:
		default:
			// 購読者が遅い場合はイベントを破棄する
		}
	}
}

// Subscribe は指定ユーザーのイベント購読を開始する。
// 返却された解除関数を呼び出すと購読が終了し、チャネルがクローズされる。
func (b *Bus) Subscribe(userID string) (<-chan model.AuthEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscriberID := uuid.NewString()
	ch := make(chan model.AuthEvent, subscriberBufferSize)

	if b.subscribers[userID] == nil {
		b.subscribers[userID] = make(map[string]chan model.AuthEvent)
	}
	b.subscribers[userID][subscriberID] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if subs, ok := b.subscribers[userID]; ok {
			if ch, ok := subs[subscriberID]; ok {
				delete(subs, subscriberID)
				close(ch)
			}
			if len(subs) == 0 {
				delete(b.subscribers, userID)
			}
		}
	}

	return ch, unsubscribe
}

// SubscriberCount は指定ユーザーの現在の購読者数を返す。
func (b *Bus) SubscriberCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[userID])
}
