package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	// KindValidation - caller supplied bad input; fix the request and retry.
	KindValidation Kind = iota
	// KindStateConflict - the entity moved since the caller last read it; re-fetch before retrying.
	KindStateConflict
	// KindResourceExhausted - a quantitative limit was hit; retry only after the resource changes.
	KindResourceExhausted
	// KindIntegrity - an internal invariant was violated at commit time; the whole transaction aborts.
	KindIntegrity
	// KindNotFound - the referenced entity does not exist.
	KindNotFound
)

// Error codes used across the procurement engine.
const (
	CodeMissingRemarks          = "MISSING_REMARKS"
	CodeEmptySelection          = "EMPTY_SELECTION"
	CodeQuantityExceedsBalance  = "QUANTITY_EXCEEDS_BALANCE"
	CodeOverReceipt             = "OVER_RECEIPT"
	CodeOverOutward             = "OVER_OUTWARD"
	CodePartialBatchRejected    = "PARTIAL_BATCH_REJECTED"
	CodeNotPendingApproval      = "NOT_PENDING_APPROVAL"
	CodeNotApproved             = "NOT_APPROVED"
	CodeAlreadyVerified         = "ALREADY_VERIFIED"
	CodeApprovedBatchImmutable  = "APPROVED_BATCH_IMMUTABLE"
	CodeInvalidEditState        = "INVALID_EDIT_STATE"
	CodeItemNotPending          = "ITEM_NOT_PENDING"
	CodeMasterEntryConsumed     = "MASTER_ENTRY_CONSUMED"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeIntegrityViolation      = "INTEGRITY_VIOLATION"
	CodeNotFound                = "NOT_FOUND"
)

// Error is a domain-level error carrying a machine-readable code.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a domain error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation constructors.

func MissingRemarks() *Error {
	return New(KindValidation, CodeMissingRemarks, "remarks are required for rejection")
}

func EmptySelection() *Error {
	return New(KindValidation, CodeEmptySelection, "at least one item must be selected")
}

func QuantityExceedsBalance(itemNo string, requested, balance int) *Error {
	return Newf(KindValidation, CodeQuantityExceedsBalance,
		"ordering quantity %d for item %s exceeds balance quantity %d", requested, itemNo, balance)
}

func OverReceipt(itemNo string, received, remaining int) *Error {
	return Newf(KindValidation, CodeOverReceipt,
		"received quantity %d for item %s exceeds remaining quantity %d", received, itemNo, remaining)
}

func OverOutward(requested, allocated int) *Error {
	return Newf(KindValidation, CodeOverOutward,
		"outward quantity %d exceeds allocated quantity %d", requested, allocated)
}

func PartialBatchRejected(itemCodes []string) *Error {
	return Newf(KindValidation, CodePartialBatchRejected,
		"inward batch rejected, offending items: %v", itemCodes)
}

// State conflict constructors.

func NotPendingApproval(poNumber, status string) *Error {
	return Newf(KindStateConflict, CodeNotPendingApproval,
		"purchase order %s is %s, not pending approval", poNumber, status)
}

func NotApproved(itemID string) *Error {
	return Newf(KindStateConflict, CodeNotApproved,
		"requisition item %s is not approved", itemID)
}

func AlreadyVerified(itemID string) *Error {
	return Newf(KindStateConflict, CodeAlreadyVerified,
		"requisition item %s already has a master entry", itemID)
}

func ApprovedBatchImmutable(batchID string) *Error {
	return Newf(KindStateConflict, CodeApprovedBatchImmutable,
		"batch %s contains approved items and cannot be resubmitted", batchID)
}

func InvalidEditState(poNumber, status string) *Error {
	return Newf(KindStateConflict, CodeInvalidEditState,
		"purchase order %s cannot be edited while %s", poNumber, status)
}

func ItemNotPending(itemID, status string) *Error {
	return Newf(KindStateConflict, CodeItemNotPending,
		"requisition item %s is %s, not pending", itemID, status)
}

func MasterEntryConsumed(entryID, poNumber string) *Error {
	return Newf(KindStateConflict, CodeMasterEntryConsumed,
		"master entry %s is already placed on purchase order %s", entryID, poNumber)
}

func InvalidTransition(poNumber, from, to string) *Error {
	return Newf(KindStateConflict, CodeInvalidTransition,
		"purchase order %s cannot move from %s to %s", poNumber, from, to)
}

// Resource exhaustion constructors.

func InsufficientStock(itemNo, location string, requested, available int) *Error {
	return Newf(KindResourceExhausted, CodeInsufficientStock,
		"insufficient stock for item %s at %s: requested %d, available %d", itemNo, location, requested, available)
}

// Integrity and lookup constructors.

func Integrity(message string) *Error {
	return New(KindIntegrity, CodeIntegrityViolation, message)
}

func NotFound(entity, id string) *Error {
	return Newf(KindNotFound, CodeNotFound, "%s %s not found", entity, id)
}

// FromError extracts a domain *Error from an error chain, if present.
func FromError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps an error to the HTTP status the handlers should respond with.
func HTTPStatus(err error) int {
	e, ok := FromError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindStateConflict, KindResourceExhausted:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
