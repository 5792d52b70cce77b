package tree

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestSetAndGet(t *testing.T) {
	s := New()
	s.Set("rooms/abc/state/id", "abc")

	if got := s.Get("rooms/abc/state/id"); got != "abc" {
		t.Fatalf("expected abc, got %v", got)
	}
	state, ok := s.Get("rooms/abc/state").(map[string]any)
	if !ok {
		t.Fatalf("expected map at rooms/abc/state, got %T", s.Get("rooms/abc/state"))
	}
	if state["id"] != "abc" {
		t.Fatalf("expected id=abc in parent read, got %v", state["id"])
	}
	if got := s.Get("rooms/missing"); got != nil {
		t.Fatalf("absent path should read as nil, got %v", got)
	}
}

func TestSetNilDeletesSubtree(t *testing.T) {
	s := New()
	s.Set("rooms/abc/state/currentGameId", "g1")
	s.Set("rooms/abc/state/currentGameId", nil)

	if got := s.Get("rooms/abc/state/currentGameId"); got != nil {
		t.Fatalf("expected deleted value, got %v", got)
	}
	if s.Get("rooms/abc/state") == nil {
		t.Fatal("sibling subtree should survive a child delete")
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s := New()
	s.Set("users/u1", map[string]any{"id": "u1", "status": "connected", "name": "ada"})
	s.Update("users/u1", map[string]any{"status": "disconnected"})

	u := s.Get("users/u1").(map[string]any)
	if u["status"] != "disconnected" {
		t.Fatalf("expected merged status, got %v", u["status"])
	}
	if u["name"] != "ada" {
		t.Fatalf("update should not clobber unrelated fields, got %v", u["name"])
	}
}

func TestServerTimestamp(t *testing.T) {
	s := NewWithClock(fixedClock(1234567890))
	s.Update("users/u1", map[string]any{"connectedAt": ServerTimestamp})

	u := s.Get("users/u1").(map[string]any)
	if u["connectedAt"] != float64(1234567890) {
		t.Fatalf("expected resolved server timestamp, got %v", u["connectedAt"])
	}
}

func TestTransactAbortLeavesValue(t *testing.T) {
	s := New()
	s.Set("rooms/r/state", map[string]any{"id": "r"})

	committed := s.Transact("rooms/r/state", func(cur any) (any, bool) {
		if cur != nil {
			return nil, false
		}
		return map[string]any{"id": "fresh"}, true
	})
	if committed {
		t.Fatal("transaction should abort when a value exists")
	}
	if s.Get("rooms/r/state/id") != "r" {
		t.Fatal("aborted transaction must not modify the value")
	}
}

func TestTransactConcurrentInitialization(t *testing.T) {
	s := New()
	const writers = 16

	var wg sync.WaitGroup
	created := make(chan string, writers)
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			ok := s.Transact("rooms/shared/state", func(cur any) (any, bool) {
				if cur != nil {
					return nil, false
				}
				return map[string]any{"creator": id}, true
			})
			if ok {
				created <- id
			}
		}()
	}
	wg.Wait()
	close(created)

	var winners []string
	for id := range created {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("exactly one first-joiner should create the room, got %d", len(winners))
	}
	if s.Get("rooms/shared/state/creator") != winners[0] {
		t.Fatal("stored creator should match the committing writer")
	}
}

func TestWatchDeliversInitialThenOrdered(t *testing.T) {
	s := New()
	s.Set("counter", float64(0))

	sub := s.Watch("counter")
	defer sub.Close()

	first := <-sub.C()
	if first.Value != float64(0) {
		t.Fatalf("expected initial snapshot 0, got %v", first.Value)
	}

	for i := 1; i <= 5; i++ {
		s.Set("counter", float64(i))
	}
	for i := 1; i <= 5; i++ {
		snap := <-sub.C()
		if snap.Value != float64(i) {
			t.Fatalf("expected snapshot %d in order, got %v", i, snap.Value)
		}
	}
}

func TestWatchSeesDescendantWrites(t *testing.T) {
	s := New()
	sub := s.Watch("rooms/r/users")
	defer sub.Close()

	if snap := <-sub.C(); snap.Value != nil {
		t.Fatalf("expected nil initial snapshot for empty path, got %v", snap.Value)
	}

	s.Set("rooms/r/users/u1/status", "connected")
	snap := <-sub.C()
	users, ok := snap.Value.(map[string]any)
	if !ok {
		t.Fatalf("expected users map, got %T", snap.Value)
	}
	if users["u1"].(map[string]any)["status"] != "connected" {
		t.Fatal("watcher should observe writes below its path")
	}
}

func TestWatchSeesAncestorWrites(t *testing.T) {
	s := New()
	sub := s.Watch("rooms/r/state/currentGameId")
	defer sub.Close()
	<-sub.C()

	s.Set("rooms/r/state", map[string]any{"id": "r", "currentGameId": "g9"})
	if snap := <-sub.C(); snap.Value != "g9" {
		t.Fatalf("watcher should observe ancestor writes, got %v", snap.Value)
	}
}

func TestWatchSnapshotIsACopy(t *testing.T) {
	s := New()
	s.Set("doc", map[string]any{"k": "v"})
	sub := s.Watch("doc")
	defer sub.Close()

	snap := <-sub.C()
	snap.Value.(map[string]any)["k"] = "mutated"
	if s.Get("doc").(map[string]any)["k"] != "v" {
		t.Fatal("mutating a snapshot must not affect the store")
	}
}

func TestDisconnectHooks(t *testing.T) {
	s := New()
	s.Update("users/u1", map[string]any{"status": "connected"})
	s.OnDisconnect("conn-1", "users/u1", map[string]any{"status": "disconnected"})

	// Another token's hooks are independent.
	s.OnDisconnect("conn-2", "users/u2", map[string]any{"status": "disconnected"})

	s.FireDisconnect("conn-1")
	if s.Get("users/u1/status") != "disconnected" {
		t.Fatal("compensating write should fire on disconnect")
	}
	if s.Get("users/u2/status") != nil {
		t.Fatal("other tokens' hooks must not fire")
	}

	// Hooks are one-shot.
	s.Update("users/u1", map[string]any{"status": "connected"})
	s.FireDisconnect("conn-1")
	if s.Get("users/u1/status") != "connected" {
		t.Fatal("fired hooks must not run twice")
	}
}

func TestCancelDisconnect(t *testing.T) {
	s := New()
	s.OnDisconnect("conn-1", "users/u1", map[string]any{"status": "disconnected"})
	s.CancelDisconnect("conn-1")
	s.FireDisconnect("conn-1")
	if s.Get("users/u1") != nil {
		t.Fatal("cancelled hook must not fire")
	}
}

func TestDecodeIntoStruct(t *testing.T) {
	type doc struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	s := New()
	s.Set("docs/d", map[string]any{"id": "d", "count": 3})

	var d doc
	if err := Decode(s.Get("docs/d"), &d); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if d.ID != "d" || d.Count != 3 {
		t.Fatalf("unexpected decode result: %+v", d)
	}
	if err := Decode(nil, &d); err != nil {
		t.Fatalf("nil value should decode as zero: %v", err)
	}
}
