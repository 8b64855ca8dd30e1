package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/talentbase/internal/model"
)

// --- モック定義 ---

// mockBackend はauthclient.Backendのテスト用実装。
// 各メソッドの挙動は関数フィールドで差し替え、呼び出し回数を記録する。
type mockBackend struct {
	mu sync.Mutex

	getSessionFunc         func(ctx context.Context) (*model.Session, error)
	signInWithPasswordFunc func(ctx context.Context, email, password string) (*model.Session, error)
	signUpFunc             func(ctx context.Context, name, email, password string) error
	signInWithOAuthFunc    func(ctx context.Context, provider, redirectTo string) (string, error)
	signOutFunc            func(ctx context.Context) error
	getMeFunc              func(ctx context.Context) (*model.Identity, error)
	getProfileFunc         func(ctx context.Context) (*model.Profile, error)
	createProfileFunc      func(ctx context.Context, profile *model.Profile) (*model.Profile, error)
	updateProfileFunc      func(ctx context.Context, patch *model.ProfilePatch) (*model.Profile, error)
	eventsFunc             func(ctx context.Context) (<-chan model.AuthEvent, error)

	getSessionCalls    int
	getProfileCalls    int
	createProfileCalls int
}

func (m *mockBackend) GetSession(ctx context.Context) (*model.Session, error) {
	m.mu.Lock()
	m.getSessionCalls++
	m.mu.Unlock()
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx)
	}
	return nil, nil
}

func (m *mockBackend) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	if m.signInWithPasswordFunc != nil {
		return m.signInWithPasswordFunc(ctx, email, password)
	}
	return testSession(), nil
}

func (m *mockBackend) SignUp(ctx context.Context, name, email, password string) error {
	if m.signUpFunc != nil {
		return m.signUpFunc(ctx, name, email, password)
	}
	return nil
}

func (m *mockBackend) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if m.signInWithOAuthFunc != nil {
		return m.signInWithOAuthFunc(ctx, provider, redirectTo)
	}
	return "https://provider.example.com/authorize?state=xyz", nil
}

func (m *mockBackend) SignOut(ctx context.Context) error {
	if m.signOutFunc != nil {
		return m.signOutFunc(ctx)
	}
	return nil
}

func (m *mockBackend) GetMe(ctx context.Context) (*model.Identity, error) {
	if m.getMeFunc != nil {
		return m.getMeFunc(ctx)
	}
	return testIdentity(), nil
}

func (m *mockBackend) GetProfile(ctx context.Context) (*model.Profile, error) {
	m.mu.Lock()
	m.getProfileCalls++
	m.mu.Unlock()
	if m.getProfileFunc != nil {
		return m.getProfileFunc(ctx)
	}
	return testProfile(), nil
}

func (m *mockBackend) CreateProfile(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	m.mu.Lock()
	m.createProfileCalls++
	m.mu.Unlock()
	if m.createProfileFunc != nil {
		return m.createProfileFunc(ctx, profile)
	}
	return profile, nil
}

func (m *mockBackend) UpdateProfile(ctx context.Context, patch *model.ProfilePatch) (*model.Profile, error) {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, patch)
	}
	return testProfile(), nil
}

func (m *mockBackend) Events(ctx context.Context) (<-chan model.AuthEvent, error) {
	if m.eventsFunc != nil {
		return m.eventsFunc(ctx)
	}
	ch := make(chan model.AuthEvent)
	close(ch)
	return ch, nil
}

func (m *mockBackend) profileCalls() (gets, creates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getProfileCalls, m.createProfileCalls
}

// fakeNavigator はNavigatorのテスト用実装。Replaceの履歴を記録し、
// 現在ロケーションを更新する。
type fakeNavigator struct {
	mu       sync.Mutex
	path     string
	fragment string
	query    string
	replaced []string
}

func (n *fakeNavigator) Location() (string, string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path, n.fragment, n.query
}

func (n *fakeNavigator) Replace(to string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replaced = append(n.replaced, to)

	rest := to
	n.fragment = ""
	n.query = ""
	if i := strings.Index(rest, "#"); i >= 0 {
		n.fragment = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.Index(rest, "?"); i >= 0 {
		n.query = rest[i+1:]
		rest = rest[:i]
	}
	n.path = rest
}

func (n *fakeNavigator) replacedTo() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.replaced...)
}

// fakeNotifier はNotifierのテスト用実装。
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	errors   []error
}

func (n *fakeNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) NotifyError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, err)
}

func (n *fakeNotifier) notices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

// --- テストフィクスチャ ---

func testSession() *model.Session {
	return &model.Session{ID: "sess-abc", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
}

func testIdentity() *model.Identity {
	return &model.Identity{ID: "user-1", Email: "user@example.com", Name: "山田 太郎"}
}

func testProfile() *model.Profile {
	return &model.Profile{UserID: "user-1", FullName: "山田 太郎", Company: "Acme"}
}

type testEnv struct {
	backend  *mockBackend
	store    *Store
	storage  *TabStorage
	nav      *fakeNavigator
	notifier *fakeNotifier
	manager  *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		backend:  &mockBackend{},
		store:    NewStore(),
		storage:  NewTabStorage(),
		nav:      &fakeNavigator{path: "/"},
		notifier: &fakeNotifier{},
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	env.manager = NewManager(env.backend, env.store, env.storage, env.nav, env.notifier, logger)
	env.manager.tokenPollInterval = time.Millisecond
	return env
}

func (e *testEnv) sentinelSet() bool {
	_, ok := e.storage.Get(StorageKeyOAuthSentinel)
	return ok
}
