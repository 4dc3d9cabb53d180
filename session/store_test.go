package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testKey = bytes.Repeat([]byte{7}, 32)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, "as", testKey), mr, rdb
}

func testSession(identity string) *Session {
	now := time.Now()
	return &Session{
		Identity:      identity,
		CreatedAt:     now,
		LastActivity:  now,
		Authenticated: true,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Put(ctx, "tok-1", testSession("a@example.com"), 30*time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Identity != "a@example.com" || !got.Authenticated || got.SchemaVersion != CurrentSchemaVersion {
		t.Fatalf("unexpected session: %+v", got)
	}

	for _, k := range mr.Keys() {
		if strings.Contains(k, "tok-1") {
			t.Fatalf("raw token leaked into key %q", k)
		}
	}
	raw, _ := mr.Get(store.sessionKey(ID("tok-1")))
	if strings.Contains(raw, "a@example.com") {
		t.Fatal("stored record must be sealed")
	}
}

func TestGetUnknownAndExpired(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, "tok", testSession("b@example.com"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	mr.FastForward(time.Minute + time.Second)
	if _, err := store.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestGetWithWrongKeyIsCorrupt(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t)
	ctx := context.Background()
	if err := store.Put(ctx, "tok", testSession("c@example.com"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	other := NewStore(rdb, "as", bytes.Repeat([]byte{8}, 32))
	if _, err := other.Get(ctx, "tok"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestTouchSlidesTTL(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("d@example.com")

	if err := store.Put(ctx, "tok", sess, 30*time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	mr.FastForward(20 * time.Minute)

	sess.LastActivity = sess.LastActivity.Add(20 * time.Minute)
	if err := store.Touch(ctx, "tok", sess, 30*time.Minute); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	mr.FastForward(20 * time.Minute)

	got, err := store.Get(ctx, "tok")
	if err != nil {
		t.Fatalf("expected session alive after touch: %v", err)
	}
	if !got.LastActivity.Equal(sess.LastActivity) {
		t.Fatalf("last activity not updated: %v", got.LastActivity)
	}
}

func TestTouchDoesNotResurrect(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("e@example.com")

	if err := store.Put(ctx, "tok", sess, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Delete(ctx, "tok"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Touch(ctx, "tok", sess, time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted session must stay deleted, got %v", err)
	}
}

func TestDeleteIdempotentAndIndex(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Put(ctx, "tok", testSession("f@example.com"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	existed, err := store.Delete(ctx, "tok")
	if err != nil || !existed {
		t.Fatalf("first delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "tok")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}

	members, err := rdb.SMembers(ctx, store.identityKey("f@example.com")).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected empty identity index, got %v", members)
	}
}

func TestDeleteAllForIdentityKeepsCurrent(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()

	for _, tok := range []string{"t1", "t2", "t3"} {
		if err := store.Put(ctx, tok, testSession("g@example.com"), time.Minute); err != nil {
			t.Fatalf("Put %s: %v", tok, err)
		}
	}
	if err := store.Put(ctx, "other", testSession("h@example.com"), time.Minute); err != nil {
		t.Fatalf("Put other: %v", err)
	}

	n, err := store.DeleteAllForIdentity(ctx, "g@example.com", "t2")
	if err != nil {
		t.Fatalf("DeleteAllForIdentity: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	if _, err := store.Get(ctx, "t2"); err != nil {
		t.Fatalf("kept session missing: %v", err)
	}
	if _, err := store.Get(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected t1 deleted, got %v", err)
	}
	if _, err := store.Get(ctx, "other"); err != nil {
		t.Fatalf("other identity affected: %v", err)
	}

	count, err := store.ActiveSessionCount(ctx, "g@example.com")
	if err != nil || count != 1 {
		t.Fatalf("expected 1 active session, got %d err=%v", count, err)
	}
}

func TestActiveSessionCountPrunesExpired(t *testing.T) {
	store, mr, rdb := newSessionStoreTest(t)
	ctx := context.Background()

	_ = store.Put(ctx, "short", testSession("i@example.com"), time.Second)
	_ = store.Put(ctx, "long", testSession("i@example.com"), time.Hour)
	mr.FastForward(2 * time.Second)

	count, err := store.ActiveSessionCount(ctx, "i@example.com")
	if err != nil || count != 1 {
		t.Fatalf("expected 1 live session, got %d err=%v", count, err)
	}
	if n := rdb.SCard(ctx, store.identityKey("i@example.com")).Val(); n != 1 {
		t.Fatalf("expected index pruned to 1, got %d", n)
	}
}

func TestConcurrentTouchAndDelete(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("j@example.com")
	if err := store.Put(ctx, "tok", sess, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Touch(ctx, "tok", sess, time.Minute)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = store.Delete(ctx, "tok")
	}()
	wg.Wait()

	if _, err := store.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session must be gone after delete regardless of touches, got %v", err)
	}
}
