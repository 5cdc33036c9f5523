package service

import (
	"context"
	"testing"

	"procurement/internal/apperror"
	"procurement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createPO runs a batch through approval and verification, then raises a PO
// from the resulting master entries.
func createPO(t *testing.T, env *testEnv, poNumber, batchID string, quantities map[string]int) *PurchaseOrderResponse {
	t.Helper()
	ctx := context.Background()

	items := env.seedBatch(t, batchID, "PRJ-1", quantities)
	approveAll(t, env, batchID, items)

	selections := make([]VerifySelection, 0, len(items))
	for _, item := range items {
		selections = append(selections, VerifySelection{ItemID: item.ID, OrderingQty: item.RequiredQuantity})
	}
	entries, err := env.verification.VerifyBatch(ctx, env.actor(), batchID, VerifyBatchRequest{Selections: selections})
	require.NoError(t, err)

	lines := make([]POCreateLine, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, POCreateLine{MasterEntryID: entry.ID, UnitPrice: "25.50"})
	}

	po, err := env.purchaseOrds.Create(ctx, env.actor(), CreatePORequest{
		PONumber:    poNumber,
		ProjectCode: "PRJ-1",
		Lines:       lines,
	})
	require.NoError(t, err)
	return po
}

func TestCreatePO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	po := createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})
	assert.Equal(t, "1.0", po.Version)
	assert.Equal(t, model.POStatusPendingApproval, po.Status)
	assert.Equal(t, model.InwardOpen, po.InwardStatus)
	require.Len(t, po.Items, 1)
	assert.Equal(t, 10, po.Items[0].Quantity)
	assert.Equal(t, "255.00", po.TotalAmount)

	// Sourced master entries are consumed.
	entries, err := env.verification.ListUnconsumed(ctx, "PRJ-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreatePO_ConsumedEntryRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items := env.seedBatch(t, "B1", "PRJ-1", map[string]int{"ITEM-A": 10})
	approveAll(t, env, "B1", items)
	entries, err := env.verification.VerifyBatch(ctx, env.actor(), "B1", VerifyBatchRequest{
		Selections: []VerifySelection{{ItemID: items[0].ID, OrderingQty: 10}},
	})
	require.NoError(t, err)

	line := []POCreateLine{{MasterEntryID: entries[0].ID, UnitPrice: "10.00"}}
	_, err = env.purchaseOrds.Create(ctx, env.actor(), CreatePORequest{PONumber: "PO-1", ProjectCode: "PRJ-1", Lines: line})
	require.NoError(t, err)

	_, err = env.purchaseOrds.Create(ctx, env.actor(), CreatePORequest{PONumber: "PO-2", ProjectCode: "PRJ-1", Lines: line})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMasterEntryConsumed, e.Code)
}

func TestApprovePO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	po, err := env.purchaseOrds.Approve(ctx, env.actor(), "PO-100")
	require.NoError(t, err)
	assert.Equal(t, model.POStatusApproved, po.Status)
	assert.NotNil(t, po.ApprovalDate)
	assert.NotNil(t, po.ApprovedBy)

	// A second approve hits the state guard.
	_, err = env.purchaseOrds.Approve(ctx, env.actor(), "PO-100")
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotPendingApproval, e.Code)
}

func TestRejectPO_RequiresRemarks(t *testing.T) {
	env := newTestEnv(t)
	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	_, err := env.purchaseOrds.Reject(context.Background(), env.actor(), "PO-100", RejectPORequest{Remarks: ""})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMissingRemarks, e.Code)
}

func TestEditPO_RevisionBumpsVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})
	_, err := env.purchaseOrds.Approve(ctx, env.actor(), "PO-100")
	require.NoError(t, err)

	newAddr := "Dock 4, North Yard"
	po, err := env.purchaseOrds.Edit(ctx, env.actor(), "PO-100", EditPORequest{
		ConsigneeAddress: &newAddr,
		Lines: []EditPOLine{{
			ID:        created.Items[0].ID,
			UnitPrice: "30.00",
		}},
	})
	require.NoError(t, err)

	// Version 1.0 -> 2.0, back to pending, approval stamp cleared.
	assert.Equal(t, "2.0", po.Version)
	assert.Equal(t, model.POStatusPendingApproval, po.Status)
	assert.Nil(t, po.ApprovalDate)
	assert.Nil(t, po.ApprovedBy)
	assert.Equal(t, "300.00", po.TotalAmount)

	entries, err := env.revisionRepo.ListByEntity(ctx, model.RevisionEntityPurchaseOrder, "PO-100")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.RevisionKindRevision, entries[0].Kind)
	assert.Contains(t, entries[0].Changes, `"field":"status"`)
	assert.Contains(t, entries[0].Changes, model.POStatusApproved)

	// A second revision bumps again.
	po, err = env.purchaseOrds.Approve(ctx, env.actor(), "PO-100")
	require.NoError(t, err)
	po, err = env.purchaseOrds.Edit(ctx, env.actor(), "PO-100", EditPORequest{ConsigneeAddress: &newAddr, Lines: nil})
	require.NoError(t, err)
	assert.Equal(t, "3.0", po.Version)
}

func TestEditPO_ResubmissionKeepsVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})
	_, err := env.purchaseOrds.Reject(ctx, env.actor(), "PO-100", RejectPORequest{Remarks: "price too high"})
	require.NoError(t, err)

	po, err := env.purchaseOrds.Edit(ctx, env.actor(), "PO-100", EditPORequest{
		Lines: []EditPOLine{{ID: created.Items[0].ID, UnitPrice: "20.00"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "1.0", po.Version)
	assert.Equal(t, model.POStatusPendingApproval, po.Status)
	assert.Empty(t, po.RejectionRemarks)

	entries, err := env.revisionRepo.ListByEntity(ctx, model.RevisionEntityPurchaseOrder, "PO-100")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.RevisionKindResubmission, entries[0].Kind)
}

func TestEditPO_InvalidState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	// Pending orders cannot be edited through the revision path.
	_, err := env.purchaseOrds.Edit(ctx, env.actor(), "PO-100", EditPORequest{})
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidEditState, e.Code)
}

func TestPOLifecycleTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createPO(t, env, "PO-100", "B1", map[string]int{"ITEM-A": 10})

	// Ordered before approval is invalid.
	_, err := env.purchaseOrds.MarkOrdered(ctx, env.actor(), "PO-100")
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, e.Code)

	_, err = env.purchaseOrds.Approve(ctx, env.actor(), "PO-100")
	require.NoError(t, err)

	po, err := env.purchaseOrds.MarkOrdered(ctx, env.actor(), "PO-100")
	require.NoError(t, err)
	assert.Equal(t, model.POStatusOrdered, po.Status)

	po, err = env.purchaseOrds.MarkDelivered(ctx, env.actor(), "PO-100")
	require.NoError(t, err)
	assert.Equal(t, model.POStatusDelivered, po.Status)

	// Delivered orders cannot be cancelled.
	_, err = env.purchaseOrds.Cancel(ctx, env.actor(), "PO-100")
	require.Error(t, err)
	e, ok = apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, e.Code)
}

func TestPO_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.purchaseOrds.Get(context.Background(), "PO-MISSING")
	require.Error(t, err)
	e, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, e.Code)
}
