package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError_UnwrapsChain(t *testing.T) {
	base := InsufficientStock("ITEM-A", "MAIN-STORE", 5, 2)
	wrapped := fmt.Errorf("allocate failed: %w", base)

	e, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInsufficientStock, e.Code)
	assert.Equal(t, KindResourceExhausted, e.Kind)

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(MissingRemarks()))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(OverReceipt("ITEM-A", 5, 2)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NotPendingApproval("PO-1", "APPROVED")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(InsufficientStock("ITEM-A", "MAIN-STORE", 5, 2)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("batch", "B1")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Integrity("ledger mismatch")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestMessages(t *testing.T) {
	err := QuantityExceedsBalance("ITEM-A", 9, 3)
	assert.Contains(t, err.Error(), "ITEM-A")
	assert.Contains(t, err.Error(), "9")
	assert.Contains(t, err.Error(), "3")

	batch := PartialBatchRejected([]string{"ITEM-A", "ITEM-B"})
	assert.Contains(t, batch.Error(), "ITEM-A")
	assert.Contains(t, batch.Error(), "ITEM-B")
}
