package handler

import (
	"net/http"
	"sync"

	"github.com/hitoshi/talentbase/internal/middleware"
)

// --- 共有モック ---

// mockMetrics はMetricsCollectorのモック実装。呼び出しを記録する。
type mockMetrics struct {
	mu               sync.Mutex
	logins           []string
	loginFailures    []string
	sessionsIssued   int
	sessionsRefreshd int
	oauthCallbacks   []string // "provider:outcome"
	profilesCreated  int
	linkedinPosts    []string
	subscriberCounts []int
}

func (m *mockMetrics) RecordLogin(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, method)
}

func (m *mockMetrics) RecordLoginFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginFailures = append(m.loginFailures, reason)
}

func (m *mockMetrics) RecordSessionIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsIssued++
}

func (m *mockMetrics) RecordSessionRefreshed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsRefreshd++
}

func (m *mockMetrics) RecordOAuthCallback(provider, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oauthCallbacks = append(m.oauthCallbacks, provider+":"+outcome)
}

func (m *mockMetrics) RecordProfileCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profilesCreated++
}

func (m *mockMetrics) RecordLinkedInPost(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkedinPosts = append(m.linkedinPosts, outcome)
}

func (m *mockMetrics) SetEventSubscribers(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriberCounts = append(m.subscriberCounts, count)
}

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}
