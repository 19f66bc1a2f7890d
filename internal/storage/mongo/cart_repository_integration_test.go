package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

func TestCartRepositoryIntegration_UpsertAndGet(t *testing.T) {
	store := newIntegrationStore(t)
	repo := NewCartRepository(store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repo.CreateIndexes(ctx); err != nil {
		t.Fatalf("create indexes: %v", err)
	}

	cart, err := repo.Upsert(ctx, domain.Cart{
		UserID: "user-1",
		State:  domain.CartStateActive,
		Items: []domain.CartItem{
			{ProductID: "p-1", ShopID: "shop-1", Quantity: 2, PriceMinor: 500},
		},
	})
	if err != nil {
		t.Fatalf("upsert cart: %v", err)
	}
	if cart.ID == "" {
		t.Fatal("expected upsert to assign cart id")
	}
	if cart.Count != 2 {
		t.Fatalf("expected count recalculated to 2, got %d", cart.Count)
	}

	got, err := repo.GetActive(ctx, cart.ID)
	if err != nil {
		t.Fatalf("get active cart: %v", err)
	}
	if got.UserID != "user-1" || len(got.Items) != 1 {
		t.Fatalf("unexpected cart: %+v", got)
	}

	byUser, err := repo.GetByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get cart by user: %v", err)
	}
	if byUser.ID != cart.ID {
		t.Fatalf("expected same cart by user, got %s vs %s", byUser.ID, cart.ID)
	}
}

func TestCartRepositoryIntegration_NotFound(t *testing.T) {
	store := newIntegrationStore(t)
	repo := NewCartRepository(store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := repo.GetActive(ctx, "ghost"); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
	if _, err := repo.GetByUser(ctx, "nobody"); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound by user, got %v", err)
	}
}

func TestCartRepositoryIntegration_IncrementItemQuantity(t *testing.T) {
	store := newIntegrationStore(t)
	repo := NewCartRepository(store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := repo.Upsert(ctx, domain.Cart{
		UserID: "user-1",
		State:  domain.CartStateActive,
		Items: []domain.CartItem{
			{ProductID: "p-1", ShopID: "shop-1", Quantity: 2, PriceMinor: 500},
			{ProductID: "p-2", ShopID: "shop-1", Quantity: 1, PriceMinor: 300},
		},
	}); err != nil {
		t.Fatalf("upsert cart: %v", err)
	}

	cart, err := repo.IncrementItemQuantity(ctx, "user-1", "p-1", 3)
	if err != nil {
		t.Fatalf("increment item: %v", err)
	}
	if item := cart.FindItem("p-1"); item == nil || item.Quantity != 5 {
		t.Fatalf("expected p-1 quantity 5, got %+v", item)
	}
	if cart.Count != 6 {
		t.Fatalf("expected count 6, got %d", cart.Count)
	}

	// Уход количества в ноль удаляет позицию.
	cart, err = repo.IncrementItemQuantity(ctx, "user-1", "p-2", -1)
	if err != nil {
		t.Fatalf("decrement item to zero: %v", err)
	}
	if item := cart.FindItem("p-2"); item != nil {
		t.Fatalf("expected p-2 removed, got %+v", item)
	}
}

func TestCartRepositoryIntegration_RemoveItems(t *testing.T) {
	store := newIntegrationStore(t)
	repo := NewCartRepository(store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cart, err := repo.Upsert(ctx, domain.Cart{
		UserID: "user-1",
		State:  domain.CartStateActive,
		Items: []domain.CartItem{
			{ProductID: "p-1", ShopID: "shop-1", Quantity: 2, PriceMinor: 500},
			{ProductID: "p-2", ShopID: "shop-1", Quantity: 1, PriceMinor: 300},
			{ProductID: "p-3", ShopID: "shop-2", Quantity: 4, PriceMinor: 100},
		},
	})
	if err != nil {
		t.Fatalf("upsert cart: %v", err)
	}

	if err := repo.RemoveItems(ctx, cart.ID, []string{"p-1", "p-3"}); err != nil {
		t.Fatalf("remove items: %v", err)
	}

	got, err := repo.GetActive(ctx, cart.ID)
	if err != nil {
		t.Fatalf("get cart after prune: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ProductID != "p-2" {
		t.Fatalf("expected only p-2 to remain, got %+v", got.Items)
	}
	if got.Count != 1 {
		t.Fatalf("expected count 1 after prune, got %d", got.Count)
	}
}
