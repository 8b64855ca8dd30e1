package lifecycle

import (
	"encoding/json"
	"testing"
)

func TestDeferredActions_PutAndTake(t *testing.T) {
	deferred := NewDeferredActions(NewTabStorage())

	if err := deferred.Put("BuildProfile", json.RawMessage(`{"text":"hello"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	action, ok := deferred.Take("BuildProfile")
	if !ok {
		t.Fatal("expected the action to be taken")
	}
	if action.Source != "BuildProfile" {
		t.Errorf("unexpected source: %s", action.Source)
	}
	if action.Timestamp.IsZero() {
		t.Error("expected a creation timestamp")
	}

	// 2回目のTakeは空振りする（1回限りの消費）
	if _, ok := deferred.Take("BuildProfile"); ok {
		t.Error("a consumed action must not be taken twice")
	}
}

func TestDeferredActions_TakeWithMismatchedSourceLeavesAction(t *testing.T) {
	deferred := NewDeferredActions(NewTabStorage())
	deferred.Put("BuildProfile", json.RawMessage(`{}`))

	if _, ok := deferred.Take("Settings"); ok {
		t.Fatal("a mismatched source must not take the action")
	}

	// 本来のページが後で消費できるよう残っている
	if _, ok := deferred.Take("BuildProfile"); !ok {
		t.Error("the action must remain available to its own source")
	}
}

func TestDeferredActions_SameSourceOverwrites(t *testing.T) {
	deferred := NewDeferredActions(NewTabStorage())
	deferred.Put("BuildProfile", json.RawMessage(`{"text":"old"}`))
	deferred.Put("BuildProfile", json.RawMessage(`{"text":"new"}`))

	action, ok := deferred.Take("BuildProfile")
	if !ok {
		t.Fatal("expected the action to be taken")
	}
	if string(action.Payload) != `{"text":"new"}` {
		t.Errorf("a newer action must overwrite the older one, got %s", action.Payload)
	}
}

func TestDeferredActions_CorruptedEntryIsDiscarded(t *testing.T) {
	storage := NewTabStorage()
	storage.Set(StorageKeyPendingAction, "not json")
	deferred := NewDeferredActions(storage)

	if _, ok := deferred.Peek(); ok {
		t.Error("a corrupted entry must not be returned")
	}
	if _, ok := storage.Get(StorageKeyPendingAction); ok {
		t.Error("a corrupted entry must be removed")
	}
}
