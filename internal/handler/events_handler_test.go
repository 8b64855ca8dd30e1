package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/talentbase/internal/events"
	"github.com/hitoshi/talentbase/internal/model"
)

// --- モック定義 ---

// syncResponseWriter はハンドラーのgoroutineと並行して本文を読めるResponseWriter。
type syncResponseWriter struct {
	mu         sync.Mutex
	header     http.Header
	body       strings.Builder
	statusCode int
}

func newSyncResponseWriter() *syncResponseWriter {
	return &syncResponseWriter{header: make(http.Header), statusCode: http.StatusOK}
}

func (w *syncResponseWriter) Header() http.Header {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.header
}

func (w *syncResponseWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.body.Write(p)
}

func (w *syncResponseWriter) WriteHeader(statusCode int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statusCode = statusCode
}

func (w *syncResponseWriter) Flush() {}

func (w *syncResponseWriter) Body() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.body.String()
}

// --- GET /auth/events テスト ---

func TestEventsHandler_Stream_DeliversEvents(t *testing.T) {
	bus := events.NewBus()
	m := &mockMetrics{}
	h := NewEventsHandler(bus, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/auth/events", nil).WithContext(ctx)
	req = withUserID(req, "user-1")
	w := newSyncResponseWriter()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Stream(w, req)
	}()

	// 購読が確立するまで待つ
	waitFor(t, func() bool { return bus.SubscriberCount("user-1") == 1 })

	bus.Publish("user-1", model.AuthEvent{
		Type:    model.AuthEventSignedIn,
		Session: &model.Session{ID: "sess-abc", UserID: "user-1"},
	})
	bus.Publish("user-1", model.AuthEvent{Type: model.AuthEventSignedOut})

	// イベントがレスポンスに書き込まれるまで待ってから切断する
	waitFor(t, func() bool { return strings.Contains(w.Body(), "SIGNED_OUT") })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after context cancellation")
	}

	body := w.Body()
	if !strings.Contains(body, ": connected") {
		t.Error("expected initial connected comment")
	}
	if !strings.Contains(body, "event: SIGNED_IN") {
		t.Errorf("body missing SIGNED_IN event: %q", body)
	}
	if !strings.Contains(body, `"sess-abc"`) {
		t.Errorf("body missing session payload: %q", body)
	}

	// SIGNED_INがSIGNED_OUTより先に届く（到着順の保存）
	if strings.Index(body, "SIGNED_IN") > strings.Index(body, "SIGNED_OUT") {
		t.Error("events delivered out of order")
	}

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
}

func TestEventsHandler_Stream_UpdatesSubscriberGauge(t *testing.T) {
	bus := events.NewBus()
	m := &mockMetrics{}
	h := NewEventsHandler(bus, m)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/auth/events", nil).WithContext(ctx)
	req = withUserID(req, "user-1")
	w := newSyncResponseWriter()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Stream(w, req)
	}()

	waitFor(t, func() bool { return bus.SubscriberCount("user-1") == 1 })
	cancel()
	<-done

	m.mu.Lock()
	counts := append([]int(nil), m.subscriberCounts...)
	m.mu.Unlock()

	// 接続時に1、切断時に0が記録される
	if len(counts) != 2 || counts[0] != 1 || counts[1] != 0 {
		t.Errorf("subscriber counts = %v, want [1 0]", counts)
	}
}

func TestEventsHandler_Stream_NoUserID_Returns401(t *testing.T) {
	h := NewEventsHandler(events.NewBus(), &mockMetrics{})

	req := httptest.NewRequest(http.MethodGet, "/auth/events", nil)
	w := httptest.NewRecorder()

	h.Stream(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// 他のユーザー宛のイベントは配信されない。
func TestEventsHandler_Stream_IsolatedPerUser(t *testing.T) {
	bus := events.NewBus()
	h := NewEventsHandler(bus, &mockMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/auth/events", nil).WithContext(ctx)
	req = withUserID(req, "user-1")
	w := newSyncResponseWriter()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Stream(w, req)
	}()

	waitFor(t, func() bool { return bus.SubscriberCount("user-1") == 1 })
	bus.Publish("user-2", model.AuthEvent{Type: model.AuthEventSignedIn})

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after context cancellation")
	}

	if strings.Contains(w.Body(), "SIGNED_IN") {
		t.Error("received event addressed to another user")
	}
}

// waitFor は条件が満たされるまでポーリングする。
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
