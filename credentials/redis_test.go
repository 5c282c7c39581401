package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func sampleRecord(email string) Record {
	return Record{
		ID:           "id-" + email,
		Name:         []string{"Amer"},
		Email:        email,
		PasswordHash: "$argon2id$hash",
		JoinedAt:     time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC),
	}
}

func TestRedisInsertThenFind(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "apt")
	ctx := context.Background()

	if err := store.Insert(ctx, sampleRecord("a@x.com")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "id-a@x.com" || got.Name[0] != "Amer" || !got.JoinedAt.Equal(sampleRecord("").JoinedAt) {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := store.FindByEmail(ctx, "A@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected case-sensitive miss, got %v", err)
	}
}

func TestRedisInsertDuplicateLeavesOriginal(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "apt")
	ctx := context.Background()

	if err := store.Insert(ctx, sampleRecord("a@x.com")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := sampleRecord("a@x.com")
	dup.ID = "other"
	if err := store.Insert(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	got, _ := store.FindByEmail(ctx, "a@x.com")
	if got.ID != "id-a@x.com" {
		t.Fatalf("duplicate insert overwrote record: %+v", got)
	}
	list, _ := store.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected one indexed account, got %d", len(list))
	}
}

func TestRedisConcurrentInsertSameEmail(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "apt")
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := sampleRecord("race@x.com")
			rec.ID = fmt.Sprintf("id-%d", i)
			errs[i] = store.Insert(ctx, rec)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateEmail):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Fatalf("expected one success and one duplicate, got ok=%d dup=%d", ok, dup)
	}
}

func TestRedisUpdatePassword(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "apt")
	ctx := context.Background()

	if err := store.UpdatePassword(ctx, "missing@x.com", "h"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Insert(ctx, sampleRecord("a@x.com")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.UpdatePassword(ctx, "a@x.com", "$argon2id$new"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := store.FindByEmail(ctx, "a@x.com")
	if got.PasswordHash != "$argon2id$new" || got.ID != "id-a@x.com" {
		t.Fatalf("unexpected record after update: %+v", got)
	}
}

func TestRedisListKeepsInsertionOrder(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "")
	ctx := context.Background()

	for _, email := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		if err := store.Insert(ctx, sampleRecord(email)); err != nil {
			t.Fatalf("insert %s: %v", email, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Email != "c@x.com" || list[1].Email != "a@x.com" || list[2].Email != "b@x.com" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestRedisCorruptAndUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "apt")
	ctx := context.Background()

	if err := mr.Set("apt:acct:bad@x.com", "junk"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.FindByEmail(ctx, "bad@x.com"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	mr.Close()
	if _, err := store.FindByEmail(ctx, "a@x.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := store.Insert(ctx, sampleRecord("a@x.com")); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on insert, got %v", err)
	}
}
