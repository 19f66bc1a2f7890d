package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
)

func orderFixture(id string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:     id,
		UserID: "user-1",
		Checkout: domain.CheckoutTotals{
			TotalPriceMinor:    500,
			TotalCheckoutMinor: 500,
		},
		Groups: []domain.OrderGroup{
			{
				ShopID:            "shop-1",
				PriceRawMinor:     500,
				PriceAppliedMinor: 500,
				Items: []domain.OrderItem{
					{ProductID: "product-1", Quantity: 5, PriceMinor: 100},
				},
			},
		},
		Status:    domain.OrderStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()
	order := orderFixture("order-1", time.Now().UTC())

	require.NoError(t, repo.Create(ctx, order))

	stored, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.Equal(t, order.ID, stored.ID)
	require.Len(t, stored.Groups, 1)
	require.Len(t, stored.Groups[0].Items, 1)

	require.ErrorIs(t, repo.Create(ctx, order), domain.ErrOrderVersionConflict,
		"duplicate create must be rejected")

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_GetReturnsIsolatedCopy(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, orderFixture("order-1", time.Now().UTC())))

	first, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)

	// Мутация полученной копии не должна просачиваться в хранилище.
	first.Groups[0].Items[0].Quantity = 999

	second, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.Equal(t, int64(5), second.Groups[0].Items[0].Quantity)
}

func TestOrderRepository_ListByUserOrdersNewestFirst(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, orderFixture("order-old", base.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, orderFixture("order-new", base)))

	orders, err := repo.ListByUser(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "order-new", orders[0].ID)
	require.Equal(t, "order-old", orders[1].ID)

	limited, err := repo.ListByUser(ctx, "user-1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "order-new", limited[0].ID)

	empty, err := repo.ListByUser(ctx, "someone-else", 0)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestOrderRepository_SaveBumpsVersion(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, orderFixture("order-1", time.Now().UTC())))

	stored, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)

	stored.Status = domain.OrderStatusConfirmed
	require.NoError(t, repo.Save(ctx, stored))

	updated, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, updated.Status)
	require.Equal(t, stored.Version+1, updated.Version)
}

func TestOrderRepository_SaveDetectsStaleVersion(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()
	order := orderFixture("order-1", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))

	order.Version = 42
	require.ErrorIs(t, repo.Save(ctx, order), domain.ErrOrderVersionConflict)

	missing := orderFixture("order-ghost", time.Now().UTC())
	require.ErrorIs(t, repo.Save(ctx, missing), domain.ErrOrderNotFound)
}
