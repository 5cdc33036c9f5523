package service

import (
	"context"
	"testing"

	"procurement/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// approveAll pushes every item of a batch through approval.
func approveAll(t *testing.T, env *testEnv, batchID string, items []RequisitionItemResponse) {
	t.Helper()
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	_, err := env.requisitions.ApproveItems(context.Background(), env.actor(), batchID, ApproveItemsRequest{ItemIDs: ids})
	require.NoError(t, err)
}

func TestVerifyBatch_BalanceCalculation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStock(t, "ITEM-A", "MAIN-STORE", 4)
	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	approveAll(t, env, "B1", items)

	entries, err := env.verification.VerifyBatch(ctx, env.actor(), "B1", VerifyBatchRequest{
		Selections: []VerifySelection{{ItemID: items[0].ID, OrderingQty: 6}},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, 4, entries[0].StockOnHand)
	assert.Equal(t, 6, entries[0].BalanceQuantity)
	assert.Equal(t, 6, entries[0].OrderingQty)
	assert.Nil(t, entries[0].PONumber)
}

func TestVerifyBatch_UnknownItemCountsAsZeroStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-NEW": 8})
	approveAll(t, env, "B1", items)

	entries, err := env.verification.VerifyBatch(ctx, env.actor(), "B1", VerifyBatchRequest{
		Selections: []VerifySelection{{ItemID: items[0].ID, OrderingQty: 8}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, entries[0].StockOnHand)
	assert.Equal(t, 8, entries[0].BalanceQuantity)
}

func TestVerifyBatch_ClampsOrderingQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStock(t, "ITEM-A", "MAIN-STORE", 7)
	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	approveAll(t, env, "B1", items)

	// balance is 3; requesting 9 gets clamped in lenient mode.
	entries, err := env.verification.VerifyBatch(ctx, env.actor(), "B1", VerifyBatchRequest{
		Selections: []VerifySelection{{ItemID: items[0].ID, OrderingQty: 9}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, entries[0].OrderingQty)
}

func TestVerifyBatch_StrictRejectsExcessQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedStock(t, "ITEM-A", "MAIN-STORE", 7)
	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	approveAll(t, env, "B1", items)

	_, err := env.verification.VerifyBatch(ctx, env.actor(), "B1", VerifyBatchRequest{
		Selections: []VerifySelection{{ItemID: items[0].ID, OrderingQty: 9}},
		Strict:     true,
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeQuantityExceedsBalance, e.Code)
}

func TestVerifyBatch_RequiresApproval(t *testing.T) {
	env := newTestEnv(t)

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})

	_, err := env.verification.VerifyBatch(context.Background(), env.actor(), "B1", VerifyBatchRequest{
		Selections: []VerifySelection{{ItemID: items[0].ID, OrderingQty: 10}},
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotApproved, e.Code)
}

func TestVerifyBatch_SecondVerifyRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	approveAll(t, env, "B1", items)

	sel := VerifyBatchRequest{Selections: []VerifySelection{{ItemID: items[0].ID, OrderingQty: 10}}}
	_, err := env.verification.VerifyBatch(ctx, env.actor(), "B1", sel)
	require.NoError(t, err)

	// One master entry per requisition item, ever.
	_, err = env.verification.VerifyBatch(ctx, env.actor(), "B1", sel)
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAlreadyVerified, e.Code)

	entries, err := env.verification.ListUnconsumed(ctx, "PRJ-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestVerifyBatch_EmptySelection(t *testing.T) {
	env := newTestEnv(t)
	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	approveAll(t, env, "B1", items)

	_, err := env.verification.VerifyBatch(context.Background(), env.actor(), "B1", VerifyBatchRequest{})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeEmptySelection, e.Code)
}
