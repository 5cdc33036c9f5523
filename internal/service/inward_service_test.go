package service

import (
	"context"
	"testing"

	"procurement/internal/apperror"
	"procurement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInward_FullReceiptCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	result, err := env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
		Lines: []InwardLine{{ItemNo: "ITEM-A", QuantityReceived: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.InwardCompleted, result.InwardStatus)
	require.Len(t, result.Records, 1)
	assert.Equal(t, DefaultInwardLocation, result.Records[0].Location)

	// A further receipt against the completed line is an over-receipt; the
	// line's state stays untouched.
	_, err = env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
		Lines: []InwardLine{{ItemNo: "ITEM-A", QuantityReceived: 1}},
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOverReceipt, e.Code)

	status, err := env.purchaseOrds.InwardStatus(ctx, "PO-100")
	require.NoError(t, err)
	assert.Equal(t, model.InwardCompleted, status)
}

func TestRecordInward_PartialReceipt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	result, err := env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
		Lines: []InwardLine{{ItemNo: "ITEM-A", QuantityReceived: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.InwardPartial, result.InwardStatus)

	result, err = env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
		Lines: []InwardLine{{ItemNo: "ITEM-A", QuantityReceived: 6}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.InwardCompleted, result.InwardStatus)
}

func TestRecordInward_MultiLineBatchAtomicity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10, "ITEM-B": 5})

	// One bad line poisons the whole batch; the good line must not commit.
	_, err := env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
		Lines: []InwardLine{
			{ItemNo: "ITEM-A", QuantityReceived: 5},
			{ItemNo: "ITEM-B", QuantityReceived: 9},
		},
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodePartialBatchRejected, e.Code)
	assert.Contains(t, e.Message, "ITEM-B")

	status, err := env.purchaseOrds.InwardStatus(ctx, "PO-100")
	require.NoError(t, err)
	assert.Equal(t, model.InwardOpen, status)

	recs, err := env.inward.History(ctx, "PO-100")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecordInward_UnknownItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	_, err := env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
		Lines: []InwardLine{{ItemNo: "ITEM-X", QuantityReceived: 1}},
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, e.Code)
}

func TestRecordInward_CreditsLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	_, err := env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
		Location: "WAREHOUSE-2",
		Lines:    []InwardLine{{ItemNo: "ITEM-A", QuantityReceived: 7}},
	})
	require.NoError(t, err)

	// First receipt creates the ledger item and its location partition.
	item, err := env.inventoryRepo.FindItemByNo(ctx, "ITEM-A")
	require.NoError(t, err)
	assert.Equal(t, 7, item.TotalStock)
	require.Len(t, item.Locations, 1)
	assert.Equal(t, "WAREHOUSE-2", item.Locations[0].Location)
	assert.Equal(t, 7, item.Locations[0].Total)
	assert.Equal(t, 7, item.Locations[0].Available)

	// Second receipt at the same location accumulates.
	_, err = env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
		Location: "WAREHOUSE-2",
		Lines:    []InwardLine{{ItemNo: "ITEM-A", QuantityReceived: 3}},
	})
	require.NoError(t, err)

	item, err = env.inventoryRepo.FindItemByNo(ctx, "ITEM-A")
	require.NoError(t, err)
	assert.Equal(t, 10, item.TotalStock)
	assert.Equal(t, 10, item.Locations[0].Available)
}

func TestInwardHistory_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	for _, qty := range []int{2, 3} {
		_, err := env.inward.RecordInward(ctx, env.actor(), "PO-100", RecordInwardRequest{
			Lines: []InwardLine{{ItemNo: "ITEM-A", QuantityReceived: qty}},
		})
		require.NoError(t, err)
	}

	recs, err := env.inward.History(ctx, "PO-100")
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestDeriveInwardStatus(t *testing.T) {
	assert.Equal(t, model.InwardOpen, model.DeriveInwardStatus(nil))
	assert.Equal(t, model.InwardOpen, model.DeriveInwardStatus([]model.POLineItem{
		{Quantity: 10, InwardedQuantity: 0},
	}))
	assert.Equal(t, model.InwardPartial, model.DeriveInwardStatus([]model.POLineItem{
		{Quantity: 10, InwardedQuantity: 4},
		{Quantity: 5, InwardedQuantity: 0},
	}))
	assert.Equal(t, model.InwardPartial, model.DeriveInwardStatus([]model.POLineItem{
		{Quantity: 10, InwardedQuantity: 10},
		{Quantity: 5, InwardedQuantity: 0},
	}))
	assert.Equal(t, model.InwardCompleted, model.DeriveInwardStatus([]model.POLineItem{
		{Quantity: 10, InwardedQuantity: 10},
		{Quantity: 5, InwardedQuantity: 5},
	}))
}
