package store

import (
	"context"
	"testing"
	"time"
)

func TestCachingStoreServesWithinTTLWithoutHittingBackingStore(t *testing.T) {
	backing := NewMemoryStore()
	cached := NewCachingStore(backing)
	ctx := context.Background()

	if err := cached.Set(ctx, "player_game:p1", `{"score":1}`, RecordTTL); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// The write invalidates the entry; this first read fetches and caches it.
	if _, _, err := cached.Get(ctx, "player_game:p1"); err != nil {
		t.Fatalf("priming Get: %v", err)
	}

	// Mutate the backing store directly, bypassing the cache, to prove a
	// cached read does not consult it again within CacheTTL.
	_ = backing.Set(ctx, "player_game:p1", `{"score":999}`, RecordTTL)

	val, found, err := cached.Get(ctx, "player_game:p1")
	if err != nil || !found {
		t.Fatalf("Get: val=%q found=%v err=%v", val, found, err)
	}
	if val != `{"score":1}` {
		t.Fatalf("expected cached value %q, got %q", `{"score":1}`, val)
	}
}

func TestCachingStoreInvalidatesOnWrite(t *testing.T) {
	cached := NewCachingStore(NewMemoryStore())
	ctx := context.Background()

	_ = cached.Set(ctx, "player_game:p1", "v1", RecordTTL)
	if val, _, _ := cached.Get(ctx, "player_game:p1"); val != "v1" {
		t.Fatalf("expected v1, got %q", val)
	}

	_ = cached.Set(ctx, "player_game:p1", "v2", RecordTTL)
	val, _, _ := cached.Get(ctx, "player_game:p1")
	if val != "v2" {
		t.Fatalf("expected the write to invalidate the cache entry, got %q", val)
	}
}

func TestCachingStoreDoesNotCacheNonPlayerGameKeys(t *testing.T) {
	backing := NewMemoryStore()
	cached := NewCachingStore(backing)
	ctx := context.Background()

	_ = cached.Set(ctx, "room:r1", "v1", RecordTTL)
	_ = backing.Set(ctx, "room:r1", "v2", RecordTTL)

	val, _, _ := cached.Get(ctx, "room:r1")
	if val != "v2" {
		t.Fatalf("non player_game keys must always pass through to the backing store, got %q", val)
	}
}

func TestMemoryStoreExpiresByTTL(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	if err := m.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, found, _ := m.Get(ctx, "k"); found {
		t.Fatalf("expected key to have expired")
	}
}

func TestMemoryStoreSetOperations(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	_ = m.SAdd(ctx, "active_rooms", "r1")
	_ = m.SAdd(ctx, "active_rooms", "r2")
	_ = m.SRem(ctx, "active_rooms", "r1")

	members, err := m.SMembers(ctx, "active_rooms")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(members) != 1 || members[0] != "r2" {
		t.Fatalf("expected only r2 to remain, got %v", members)
	}
}

func TestMemoryStorePublishSubscribeMatchesWildcardPattern(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	go m.Subscribe(ctx, "game_state_update:*", func(msg Message) {
		received <- msg
	})
	time.Sleep(10 * time.Millisecond) // let Subscribe register before Publish

	if err := m.Publish(ctx, "game_state_update:p1", "payload"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Channel != "game_state_update:p1" || msg.Payload != "payload" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the subscribed message")
	}
}
