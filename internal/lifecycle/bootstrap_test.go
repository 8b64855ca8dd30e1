package lifecycle

import (
	"context"
	"testing"

	"github.com/hitoshi/talentbase/internal/model"
)

func TestBootstrap_NoSession_EndsUnauthenticatedAndReady(t *testing.T) {
	env := newTestEnv(t)

	env.manager.Bootstrap(context.Background())

	state := env.store.Snapshot()
	if state.IsAuthenticated() {
		t.Error("expected unauthenticated state")
	}
	if !state.AuthReady {
		t.Error("AuthReady must be true after bootstrap")
	}
	if state.IsLoading {
		t.Error("IsLoading must be cleared after bootstrap")
	}
}

func TestBootstrap_RestoresSessionIdentityAndProfile(t *testing.T) {
	env := newTestEnv(t)
	env.backend.getSessionFunc = func(ctx context.Context) (*model.Session, error) {
		return testSession(), nil
	}

	env.manager.Bootstrap(context.Background())

	state := env.store.Snapshot()
	if state.Session == nil || state.Session.ID != "sess-abc" {
		t.Errorf("expected restored session, got %+v", state.Session)
	}
	if state.Identity == nil || state.Identity.ID != "user-1" {
		t.Errorf("expected restored identity, got %+v", state.Identity)
	}
	if state.Profile == nil {
		t.Error("expected restored profile")
	}
}

func TestBootstrap_SkipsProfileFetchMidOAuthRedirect(t *testing.T) {
	env := newTestEnv(t)
	env.storage.Set(StorageKeyOAuthSentinel, "true")
	env.backend.getSessionFunc = func(ctx context.Context) (*model.Session, error) {
		return testSession(), nil
	}

	env.manager.Bootstrap(context.Background())

	// プロフィール取得はリスナーのSIGNED_INイベントに委ねられる
	gets, creates := env.backend.profileCalls()
	if gets != 0 || creates != 0 {
		t.Errorf("bootstrap must not fetch the profile mid-redirect, got %d gets %d creates", gets, creates)
	}

	state := env.store.Snapshot()
	if state.Session == nil {
		t.Error("session itself must still be restored")
	}
	if !state.AuthReady {
		t.Error("AuthReady must be true even when the profile fetch is skipped")
	}
}

func TestBootstrap_NetworkFailureDegradesToUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	env.backend.getSessionFunc = func(ctx context.Context) (*model.Session, error) {
		return nil, model.NewNetworkError("connection refused")
	}

	env.manager.Bootstrap(context.Background())

	state := env.store.Snapshot()
	if state.IsAuthenticated() {
		t.Error("network failure must degrade to unauthenticated")
	}
	if !state.AuthReady {
		t.Error("AuthReady must be true even after a failed bootstrap")
	}
}

func TestBootstrap_RunsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.backend.getSessionFunc = func(ctx context.Context) (*model.Session, error) {
		return testSession(), nil
	}

	env.manager.Bootstrap(context.Background())
	env.manager.Bootstrap(context.Background())

	env.backend.mu.Lock()
	sessionCalls := env.backend.getSessionCalls
	env.backend.mu.Unlock()
	if sessionCalls != 1 {
		t.Errorf("bootstrap must run exactly once per page load, got %d session checks", sessionCalls)
	}
}

func TestBootstrap_AuthReadyIsMonotonic(t *testing.T) {
	env := newTestEnv(t)

	if env.store.Snapshot().AuthReady {
		t.Fatal("AuthReady must start false")
	}

	env.manager.Bootstrap(context.Background())
	if !env.store.Snapshot().AuthReady {
		t.Fatal("AuthReady must be true after the first bootstrap")
	}

	// 以後のどの操作でもfalseに戻らない
	env.manager.Login(context.Background(), "user@example.com", "secret")
	env.manager.Logout(context.Background())
	if !env.store.Snapshot().AuthReady {
		t.Error("AuthReady must never revert to false")
	}
}
