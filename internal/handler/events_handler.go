package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/hitoshi/talentbase/internal/metrics"
	"github.com/hitoshi/talentbase/internal/middleware"
	"github.com/hitoshi/talentbase/internal/model"
)

// EventSubscriber は認証イベントの購読機能のインターフェース。
type EventSubscriber interface {
	Subscribe(userID string) (<-chan model.AuthEvent, func())
}

// EventsHandler は認証イベントをServer-Sent Eventsで配信するハンドラー。
type EventsHandler struct {
	bus     EventSubscriber
	metrics metrics.MetricsCollector

	// active は現在接続中のストリーム数。メトリクスのゲージに反映する。
	active atomic.Int64
}

// NewEventsHandler はEventsHandlerを生成する。
func NewEventsHandler(bus EventSubscriber, collector metrics.MetricsCollector) *EventsHandler {
	return &EventsHandler{
		bus:     bus,
		metrics: collector,
	}
}

// Stream は認証イベントをSSEとしてストリーミングする。
// クライアントが切断するか、購読チャネルが閉じられるまでブロックする。
// GET /auth/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("response writer does not support streaming")
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "イベントストリームを開始できませんでした。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	events, unsubscribe := h.bus.Subscribe(userID)
	defer unsubscribe()

	h.metrics.SetEventSubscribers(int(h.active.Add(1)))
	defer func() {
		h.metrics.SetEventSubscribers(int(h.active.Add(-1)))
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// 接続確立をクライアントに即時通知する
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("failed to marshal auth event", slog.String("error", err.Error()))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
