package intake

import (
	"errors"
	"fmt"
)

// Kind classifies intake failures so handlers can map them to responses.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindTransient    Kind = "transient"
	KindConflict     Kind = "conflict"
	KindBusy         Kind = "busy"
	KindPartialBatch Kind = "partial_batch"
	KindOverReceipt  Kind = "over_receipt"
	KindState        Kind = "state"
)

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrTransient    = &Error{Kind: KindTransient}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrBusy         = &Error{Kind: KindBusy}
	ErrPartialBatch = &Error{Kind: KindPartialBatch}
	ErrOverReceipt  = &Error{Kind: KindOverReceipt}
	ErrState        = &Error{Kind: KindState}
)

// ErrDuplicateIMEI is returned by a Gateway when the device identifier is already stored.
var ErrDuplicateIMEI = errors.New("duplicate imei")

const (
	msgShortIMEI       = "IMEI must be at least 8 digits"
	msgPrefixNotFound  = "No device found with this IMEI prefix"
	msgLookupFailed    = "Failed to retrieve device information"
	msgNotPlanned      = "This device does not match any planned devices on this purchase order"
	msgDuplicateIMEI   = "A device with this IMEI already exists"
	msgAlreadyQueued   = "This IMEI is already in the queue"
	msgWriteFailed     = "Failed to add device"
	msgEmptyQueue      = "Please scan at least one device before submitting."
	msgBusy            = "Still processing the previous scan"
	msgOverReceipt     = "All planned devices have already been received for this order"
	msgSessionClosed   = "Intake session is closed"
	msgSessionNotFound = "Intake session not found"
	msgOrderNotFound   = "Purchase order not found"
)

type Error struct {
	Kind       Kind
	Message    string
	Identifier string
	Err        error
}

func newError(kind Kind, message, identifier string, err error) *Error {
	return &Error{Kind: kind, Message: message, Identifier: identifier, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound) works for every not-found failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// BatchError reports a queued submit that stopped at its first failing device.
type BatchError struct {
	Committed int
	Remaining int
	Failed    string
	Cause     *Error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %d device(s) added before %s failed: %v", KindPartialBatch, e.Committed, e.Failed, e.Cause)
}

func (e *BatchError) Unwrap() error { return e.Cause }

func (e *BatchError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindPartialBatch
}

// AsError extracts the intake error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var batch *BatchError
	if errors.As(err, &batch) {
		return newError(KindPartialBatch, batch.Cause.Message, batch.Failed, batch.Cause), true
	}
	var ie *Error
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
