package service

import (
	"context"
	"sync"
	"testing"

	"procurement/internal/apperror"
	"procurement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate_ReservesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.seedStock(t, "ITEM-A", "MAIN-STORE", 10)

	rec, err := env.allocations.Allocate(ctx, env.actor(), AllocateRequest{
		InventoryItemID: item.ID.String(),
		ProjectCode:     "PRJ-1",
		Location:        "MAIN-STORE",
		Quantity:        4,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AllocationAllocated, rec.Status)
	assert.Equal(t, 4, rec.Quantity)

	loc, err := env.inventoryRepo.FindLocation(ctx, item.ID, "MAIN-STORE")
	require.NoError(t, err)
	assert.Equal(t, 10, loc.Total)
	assert.Equal(t, 6, loc.Available)
}

func TestAllocate_InsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.seedStock(t, "ITEM-A", "MAIN-STORE", 3)

	_, err := env.allocations.Allocate(ctx, env.actor(), AllocateRequest{
		InventoryItemID: item.ID.String(),
		ProjectCode:     "PRJ-1",
		Location:        "MAIN-STORE",
		Quantity:        5,
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, e.Code)

	// Failed allocation leaves no partial writes.
	loc, err := env.inventoryRepo.FindLocation(ctx, item.ID, "MAIN-STORE")
	require.NoError(t, err)
	assert.Equal(t, 3, loc.Available)
	recs, err := env.allocations.History(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAllocate_ConcurrentLastUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.seedStock(t, "ITEM-A", "MAIN-STORE", 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.allocations.Allocate(ctx, env.actor(), AllocateRequest{
				InventoryItemID: item.ID.String(),
				ProjectCode:     "PRJ-1",
				Location:        "MAIN-STORE",
				Quantity:        1,
			})
		}(i)
	}
	wg.Wait()

	// Exactly one of the two racing allocations may win the last unit.
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			e, ok := apperror.FromError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeInsufficientStock, e.Code)
		}
	}
	assert.Equal(t, 1, succeeded)

	loc, err := env.inventoryRepo.FindLocation(ctx, item.ID, "MAIN-STORE")
	require.NoError(t, err)
	assert.Equal(t, 0, loc.Available)
}

func TestAllocate_IdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.seedStock(t, "ITEM-A", "MAIN-STORE", 10)

	req := AllocateRequest{
		InventoryItemID: item.ID.String(),
		ProjectCode:     "PRJ-1",
		Location:        "MAIN-STORE",
		Quantity:        4,
		IdempotencyKey:  "retry-123",
	}

	first, err := env.allocations.Allocate(ctx, env.actor(), req)
	require.NoError(t, err)

	// Replay returns the original record without reserving twice.
	second, err := env.allocations.Allocate(ctx, env.actor(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	loc, err := env.inventoryRepo.FindLocation(ctx, item.ID, "MAIN-STORE")
	require.NoError(t, err)
	assert.Equal(t, 6, loc.Available)
}

func TestHistory_EmptyAndOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.seedStock(t, "ITEM-A", "MAIN-STORE", 10)

	recs, err := env.allocations.History(ctx, item.ID.String())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	for _, project := range []string{"PRJ-1", "PRJ-2"} {
		_, err := env.allocations.Allocate(ctx, env.actor(), AllocateRequest{
			InventoryItemID: item.ID.String(),
			ProjectCode:     project,
			Location:        "MAIN-STORE",
			Quantity:        2,
		})
		require.NoError(t, err)
	}

	recs, err = env.allocations.History(ctx, item.ID.String())
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestRecordOutward_Transitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.seedStock(t, "ITEM-A", "MAIN-STORE", 10)
	alloc, err := env.allocations.Allocate(ctx, env.actor(), AllocateRequest{
		InventoryItemID: item.ID.String(),
		ProjectCode:     "PRJ-1",
		Location:        "MAIN-STORE",
		Quantity:        6,
	})
	require.NoError(t, err)

	rec, err := env.allocations.RecordOutward(ctx, env.actor(), alloc.ID, OutwardRequest{Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, model.AllocationPartiallyOutward, rec.Status)
	assert.Equal(t, 2, rec.OutwardedQuantity)

	rec, err = env.allocations.RecordOutward(ctx, env.actor(), alloc.ID, OutwardRequest{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, model.AllocationFullyOutward, rec.Status)

	// Issued stock physically left the ledger.
	loc, err := env.inventoryRepo.FindLocation(ctx, item.ID, "MAIN-STORE")
	require.NoError(t, err)
	assert.Equal(t, 4, loc.Total)
	assert.Equal(t, 4, loc.Available)

	updated, err := env.inventoryRepo.FindItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.TotalStock)
}

func TestRecordOutward_OverOutward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.seedStock(t, "ITEM-A", "MAIN-STORE", 10)
	alloc, err := env.allocations.Allocate(ctx, env.actor(), AllocateRequest{
		InventoryItemID: item.ID.String(),
		ProjectCode:     "PRJ-1",
		Location:        "MAIN-STORE",
		Quantity:        3,
	})
	require.NoError(t, err)

	_, err = env.allocations.RecordOutward(ctx, env.actor(), alloc.ID, OutwardRequest{Quantity: 5})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOverOutward, e.Code)

	// Record and ledger are untouched.
	recs, err := env.allocations.History(ctx, item.ID.String())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 0, recs[0].OutwardedQuantity)
	assert.Equal(t, model.AllocationAllocated, recs[0].Status)
}
