package service

import (
	"context"
	"testing"

	"procurement/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInventoryItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item, err := env.inventory.CreateItem(ctx, env.actor(), CreateInventoryItemRequest{
		ItemNo: "ITEM-A",
		Unit:   "pcs",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, item.TotalStock)

	_, err = env.inventory.CreateItem(ctx, env.actor(), CreateInventoryItemRequest{ItemNo: "ITEM-A", Unit: "pcs"})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, "ITEM_EXISTS", e.Code)
}

func TestAdjustStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStock(t, "ITEM-A", "MAIN-STORE", 10)

	item, err := env.inventory.AdjustStock(ctx, env.actor(), "ITEM-A", AdjustStockRequest{
		Location: "MAIN-STORE",
		Delta:    -4,
		Remarks:  "damage write-off",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, item.TotalStock)

	// A positive delta at a new location creates the partition.
	item, err = env.inventory.AdjustStock(ctx, env.actor(), "ITEM-A", AdjustStockRequest{
		Location: "WAREHOUSE-2",
		Delta:    5,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, item.TotalStock)
}

func TestAdjustStock_CannotTakeReservedStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.seedStock(t, "ITEM-A", "MAIN-STORE", 10)

	_, err := env.allocations.Allocate(ctx, env.actor(), AllocateRequest{
		InventoryItemID: item.ID.String(),
		ProjectCode:     "PRJ-1",
		Location:        "MAIN-STORE",
		Quantity:        8,
	})
	require.NoError(t, err)

	// Only 2 units are un-reserved; removing 5 must fail.
	_, err = env.inventory.AdjustStock(ctx, env.actor(), "ITEM-A", AdjustStockRequest{
		Location: "MAIN-STORE",
		Delta:    -5,
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, e.Code)
}

func TestAdjustStock_UnknownItem(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.inventory.AdjustStock(context.Background(), env.actor(), "MISSING", AdjustStockRequest{
		Location: "MAIN-STORE",
		Delta:    1,
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, e.Code)
}
