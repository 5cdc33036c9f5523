package service

import (
	"context"
	"testing"

	"procurement/internal/apperror"
	"procurement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBatch(t *testing.T) {
	env := newTestEnv(t)

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10, "ITEM-B": 5})
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, model.RequisitionPending, item.Status)
		assert.False(t, item.ApprovedStatus)
	}

	_, err := env.requisitions.CreateBatch(context.Background(), env.actor(), CreateBatchRequest{
		BatchID:     "B1",
		ProjectCode: "PRJ-1",
		Items:       []RequisitionLineRequest{{ItemNo: "ITEM-C", RequiredQuantity: 1, Unit: "pcs"}},
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, "BATCH_EXISTS", e.Code)
}

func TestApproveItems_PartialApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10, "ITEM-B": 5})

	var approveID, pendingID string
	for _, item := range items {
		if item.ItemNo == "ITEM-A" {
			approveID = item.ID
		} else {
			pendingID = item.ID
		}
	}

	result, err := env.requisitions.ApproveItems(ctx, env.actor(), "B1", ApproveItemsRequest{ItemIDs: []string{approveID}})
	require.NoError(t, err)

	// Only the selected item is approved; the other stays pending.
	byID := make(map[string]RequisitionItemResponse)
	for _, item := range result {
		byID[item.ID] = item
	}
	assert.Equal(t, model.RequisitionApproved, byID[approveID].Status)
	assert.True(t, byID[approveID].ApprovedStatus)
	assert.Equal(t, model.RequisitionPending, byID[pendingID].Status)
	assert.False(t, byID[pendingID].ApprovedStatus)
}

func TestApproveItems_EmptySelection(t *testing.T) {
	env := newTestEnv(t)
	env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})

	_, err := env.requisitions.ApproveItems(context.Background(), env.actor(), "B1", ApproveItemsRequest{})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeEmptySelection, e.Code)
}

func TestApproveItems_AlreadyApproved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	id := items[0].ID

	_, err := env.requisitions.ApproveItems(ctx, env.actor(), "B1", ApproveItemsRequest{ItemIDs: []string{id}})
	require.NoError(t, err)

	_, err = env.requisitions.ApproveItems(ctx, env.actor(), "B1", ApproveItemsRequest{ItemIDs: []string{id}})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeItemNotPending, e.Code)
}

func TestRejectBatch_RequiresRemarks(t *testing.T) {
	env := newTestEnv(t)
	env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})

	_, err := env.requisitions.RejectBatch(context.Background(), env.actor(), "B1", RejectBatchRequest{Remarks: "   "})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMissingRemarks, e.Code)
}

func TestRejectBatch_WholeBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10, "ITEM-B": 5})

	result, err := env.requisitions.RejectBatch(ctx, env.actor(), "B1", RejectBatchRequest{Remarks: "budget cut"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	for _, item := range result {
		assert.Equal(t, model.RequisitionRejected, item.Status)
		assert.Equal(t, "budget cut", item.RejectionRemarks)
	}
}

func TestResubmit_ClearsRemarksAndResetsPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	_, err := env.requisitions.RejectBatch(ctx, env.actor(), "B1", RejectBatchRequest{Remarks: "wrong qty"})
	require.NoError(t, err)

	result, err := env.requisitions.Resubmit(ctx, env.actor(), "B1", ResubmitBatchRequest{
		Items: []ResubmitItemRequest{{
			ID:               items[0].ID,
			Description:      "test ITEM-A",
			RequiredQuantity: 12,
			Unit:             "pcs",
		}},
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, model.RequisitionPending, result[0].Status)
	assert.Empty(t, result[0].RejectionRemarks)
	assert.Equal(t, 12, result[0].RequiredQuantity)
}

func TestResubmit_RecordsRevisionHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	_, err := env.requisitions.RejectBatch(ctx, env.actor(), "B1", RejectBatchRequest{Remarks: "revise"})
	require.NoError(t, err)

	_, err = env.requisitions.Resubmit(ctx, env.actor(), "B1", ResubmitBatchRequest{
		Items: []ResubmitItemRequest{{
			ID:               items[0].ID,
			Description:      "updated description",
			RequiredQuantity: 15,
			Unit:             "pcs",
		}},
		Note: "supplier feedback",
	})
	require.NoError(t, err)

	entries, err := env.revisionRepo.ListByEntity(ctx, model.RevisionEntityRequisitionItem, items[0].ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.RevisionKindResubmission, entries[0].Kind)
	assert.Equal(t, "supplier feedback", entries[0].Note)
	assert.Contains(t, entries[0].Changes, "required_quantity")
	assert.Contains(t, entries[0].Changes, "description")
}

func TestResubmit_ApprovedBatchImmutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10, "ITEM-B": 5})
	_, err := env.requisitions.ApproveItems(ctx, env.actor(), "B1", ApproveItemsRequest{ItemIDs: []string{items[0].ID}})
	require.NoError(t, err)

	_, err = env.requisitions.Resubmit(ctx, env.actor(), "B1", ResubmitBatchRequest{
		Items: []ResubmitItemRequest{{ID: items[1].ID, RequiredQuantity: 7, Unit: "pcs"}},
	})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeApprovedBatchImmutable, e.Code)
}

func TestGetBatch_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.requisitions.GetBatch(context.Background(), "MISSING")
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, e.Code)
}
