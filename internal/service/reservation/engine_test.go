package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/lock"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, domain.InventoryRepository) {
	t.Helper()
	inventory := memory.NewInventoryRepository()
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	engine := NewEngine(inventory, lock.NewMemoryProvider(), cfg, logger.WithField("component", "reservation-test"))
	return engine, inventory
}

func seedStock(t *testing.T, inventory domain.InventoryRepository, productID string, qty int64) {
	t.Helper()
	if _, err := inventory.AddStock(context.Background(), productID, "shop-1", qty, "warehouse-a"); err != nil {
		t.Fatalf("AddStock: %v", err)
	}
}

func TestEngine_ReserveDirectPath(t *testing.T) {
	engine, inventory := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	seedStock(t, inventory, "p-1", 10)

	outcome, err := engine.Reserve(ctx, "p-1", 3, "cart-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !outcome.Committed {
		t.Fatalf("expected committed outcome, got decline %q", outcome.Reason)
	}

	inv, err := inventory.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if inv.Stock != 7 {
		t.Fatalf("stock = %d, want 7", inv.Stock)
	}
	if len(inv.Reservations) != 1 || inv.Reservations[0].CartID != "cart-1" {
		t.Fatalf("unexpected reservation journal: %+v", inv.Reservations)
	}
}

func TestEngine_ReserveDeclinedInsufficientStock(t *testing.T) {
	engine, inventory := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	seedStock(t, inventory, "p-1", 2)

	outcome, err := engine.Reserve(ctx, "p-1", 5, "cart-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if outcome.Committed {
		t.Fatal("expected declined outcome")
	}
	if outcome.Reason != domain.DeclineReasonInsufficientStock {
		t.Fatalf("reason = %q, want %q", outcome.Reason, domain.DeclineReasonInsufficientStock)
	}

	inv, _ := inventory.Get(ctx, "p-1")
	if inv.Stock != 2 {
		t.Fatalf("declined reservation must not touch stock: got %d, want 2", inv.Stock)
	}
	if len(inv.Reservations) != 0 {
		t.Fatalf("declined reservation must not journal entries: %+v", inv.Reservations)
	}
}

// Товар без складской записи отклоняется как нулевой остаток,
// а не всплывает ошибкой not-found.
func TestEngine_ReserveWithoutInventoryRecordDeclines(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultConfig())

	outcome, err := engine.Reserve(context.Background(), "ghost", 1, "cart-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if outcome.Committed {
		t.Fatal("expected declined outcome")
	}
	if outcome.Reason != domain.DeclineReasonInsufficientStock {
		t.Fatalf("reason = %q, want %q", outcome.Reason, domain.DeclineReasonInsufficientStock)
	}
}

func TestEngine_ReserveValidation(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, "", 1, "cart-1"); err != domain.ErrProductIDRequired {
		t.Fatalf("empty product: got %v", err)
	}
	if _, err := engine.Reserve(ctx, "p-1", 0, "cart-1"); err != domain.ErrItemQtyInvalid {
		t.Fatalf("zero quantity: got %v", err)
	}
}

// Последняя единица на складе берётся через блокировку: ровно один из
// конкурирующих запросов должен её получить.
func TestEngine_LastUnitMutualExclusion(t *testing.T) {
	engine, inventory := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	seedStock(t, inventory, "p-hot", 1)

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	declined := 0
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(n int) {
			defer wg.Done()
			outcome, err := engine.Reserve(ctx, "p-hot", 1, "cart-"+string(rune('a'+n)))
			if err != nil {
				t.Errorf("Reserve: %v", err)
				return
			}
			mu.Lock()
			if outcome.Committed {
				committed++
			} else {
				declined++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if committed != 1 {
		t.Fatalf("committed = %d, want exactly 1", committed)
	}
	if declined != callers-1 {
		t.Fatalf("declined = %d, want %d", declined, callers-1)
	}

	inv, _ := inventory.Get(ctx, "p-hot")
	if inv.Stock != 0 {
		t.Fatalf("stock = %d, want 0", inv.Stock)
	}
}

// Если блокировку держит кто-то другой все попытки, резервирование
// отклоняется по таймауту, сток остаётся нетронутым.
func TestEngine_LockTimeoutDecline(t *testing.T) {
	inventory := memory.NewInventoryRepository()
	locks := lock.NewMemoryProvider()
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	cfg := Config{MaxAttempts: 3, Backoff: time.Millisecond, LeaseTTL: time.Minute, ContentionThreshold: 1}
	engine := NewEngine(inventory, locks, cfg, logger.WithField("component", "reservation-test"))

	ctx := context.Background()
	seedStock(t, inventory, "p-held", 1)

	// Чужой держатель блокировки на всё время теста.
	if _, ok, err := locks.TryAcquire(ctx, "lock_v2023_p-held", time.Minute); err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}

	outcome, err := engine.Reserve(ctx, "p-held", 1, "cart-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if outcome.Committed {
		t.Fatal("expected decline while lock is held")
	}
	if outcome.Reason != domain.DeclineReasonLockTimeout {
		t.Fatalf("reason = %q, want %q", outcome.Reason, domain.DeclineReasonLockTimeout)
	}

	inv, _ := inventory.Get(ctx, "p-held")
	if inv.Stock != 1 {
		t.Fatalf("stock = %d, want 1 (untouched)", inv.Stock)
	}
}

// Высокий остаток идёт прямым путём и не зависит от занятой блокировки.
func TestEngine_HighStockBypassesLock(t *testing.T) {
	inventory := memory.NewInventoryRepository()
	locks := lock.NewMemoryProvider()
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	engine := NewEngine(inventory, locks, DefaultConfig(), logger.WithField("component", "reservation-test"))

	ctx := context.Background()
	seedStock(t, inventory, "p-bulk", 100)

	if _, ok, err := locks.TryAcquire(ctx, "lock_v2023_p-bulk", time.Minute); err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}

	outcome, err := engine.Reserve(ctx, "p-bulk", 10, "cart-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !outcome.Committed {
		t.Fatalf("expected committed outcome, got decline %q", outcome.Reason)
	}
}

func TestEngine_ReleaseRestoresStock(t *testing.T) {
	engine, inventory := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	seedStock(t, inventory, "p-1", 5)

	if _, err := engine.Reserve(ctx, "p-1", 2, "cart-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := engine.Release(ctx, "p-1", 2, "cart-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	inv, _ := inventory.Get(ctx, "p-1")
	if inv.Stock != 5 {
		t.Fatalf("stock = %d, want 5 after release", inv.Stock)
	}
	if len(inv.Reservations) != 0 {
		t.Fatalf("reservation journal must be pruned: %+v", inv.Reservations)
	}
}

func TestEngine_ReserveCancelledContext(t *testing.T) {
	inventory := memory.NewInventoryRepository()
	locks := lock.NewMemoryProvider()
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	cfg := Config{MaxAttempts: 10, Backoff: 50 * time.Millisecond, LeaseTTL: time.Minute, ContentionThreshold: 1}
	engine := NewEngine(inventory, locks, cfg, logger.WithField("component", "reservation-test"))

	seedStock(t, inventory, "p-held", 1)
	if _, ok, err := locks.TryAcquire(context.Background(), "lock_v2023_p-held", time.Minute); err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Reserve(ctx, "p-held", 1, "cart-1"); err == nil {
		t.Fatal("expected context error while waiting for lock")
	}
}
