package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/lock"
)

func TestMemoryProvider_AcquireRelease(t *testing.T) {
	provider := lock.NewMemoryProvider()
	ctx := context.Background()

	token, ok, err := provider.TryAcquire(ctx, "lock:product-1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !ok || token == "" {
		t.Fatal("expected successful acquisition with token")
	}

	// Пока аренда жива, второй захват не проходит.
	_, ok, err = provider.TryAcquire(ctx, "lock:product-1", time.Second)
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if ok {
		t.Fatal("expected second acquisition to fail while lease is held")
	}

	if err := provider.Release(ctx, "lock:product-1", token); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	_, ok, err = provider.TryAcquire(ctx, "lock:product-1", time.Second)
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	if !ok {
		t.Fatal("expected acquisition after release")
	}
}

func TestMemoryProvider_LeaseExpiresByTTL(t *testing.T) {
	now := time.Now()
	provider := lock.NewMemoryProviderWithClock(func() time.Time { return now })
	ctx := context.Background()

	_, ok, err := provider.TryAcquire(ctx, "lock:product-1", 3*time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	// Держатель «упал»: аренду никто не снимает. После TTL ключ снова свободен.
	now = now.Add(3*time.Second + time.Millisecond)

	_, ok, err = provider.TryAcquire(ctx, "lock:product-1", 3*time.Second)
	if err != nil {
		t.Fatalf("acquire after expiry failed: %v", err)
	}
	if !ok {
		t.Fatal("expected lease to be acquirable after TTL elapsed")
	}
}

func TestMemoryProvider_ReleaseWrongToken(t *testing.T) {
	provider := lock.NewMemoryProvider()
	ctx := context.Background()

	token, ok, err := provider.TryAcquire(ctx, "lock:product-1", time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	if err := provider.Release(ctx, "lock:product-1", "stale-token"); err != lock.ErrNotHeld {
		t.Fatalf("expected ErrNotHeld, got %v", err)
	}

	// Настоящий держатель всё ещё может освободить ключ.
	if err := provider.Release(ctx, "lock:product-1", token); err != nil {
		t.Fatalf("release by holder failed: %v", err)
	}
}

func TestMemoryProvider_ExpiredHolderCannotReleaseSuccessor(t *testing.T) {
	now := time.Now()
	provider := lock.NewMemoryProviderWithClock(func() time.Time { return now })
	ctx := context.Background()

	staleToken, ok, _ := provider.TryAcquire(ctx, "lock:product-1", time.Second)
	if !ok {
		t.Fatal("first acquire failed")
	}

	now = now.Add(2 * time.Second)
	freshToken, ok, _ := provider.TryAcquire(ctx, "lock:product-1", time.Second)
	if !ok {
		t.Fatal("acquire after expiry failed")
	}

	if err := provider.Release(ctx, "lock:product-1", staleToken); err != lock.ErrNotHeld {
		t.Fatalf("stale holder must not release successor lease, got %v", err)
	}
	if err := provider.Release(ctx, "lock:product-1", freshToken); err != nil {
		t.Fatalf("fresh holder release failed: %v", err)
	}
}
