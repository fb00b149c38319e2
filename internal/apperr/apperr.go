// Package apperr defines the error kinds the engine reports to its callers.
//
// Every failure the engine returns on purpose is an *Error carrying a Kind.
// The transport layer maps kinds to status codes; nothing here is fatal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is malformed or out-of-range input.
	KindValidation
	// KindNotFound is a missing fund, cycle, record, user or invitation.
	KindNotFound
	// KindConflict is a duplicate or racing write. Safe to retry.
	KindConflict
	// KindForbidden is an actor not allowed to perform the operation.
	KindForbidden
	// KindState is an operation invalid for the current lifecycle state.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

var (
	ErrValidation = New(KindValidation, "VALIDATION_ERROR", "invalid input")
	ErrNotFound   = New(KindNotFound, "NOT_FOUND", "resource not found")
	ErrConflict   = New(KindConflict, "CONFLICT", "conflicting update")
	ErrForbidden  = New(KindForbidden, "FORBIDDEN", "operation not permitted")
	ErrState      = New(KindState, "INVALID_STATE", "operation not valid in the current state")

	ErrFundNotFound       = New(KindNotFound, "FUND_NOT_FOUND", "fund not found")
	ErrCycleNotFound      = New(KindNotFound, "CYCLE_NOT_FOUND", "payment cycle not found")
	ErrPaymentNotFound    = New(KindNotFound, "PAYMENT_NOT_FOUND", "payment record not found")
	ErrMemberNotFound     = New(KindNotFound, "MEMBER_NOT_FOUND", "member not found")
	ErrUserNotFound       = New(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrInvitationNotFound = New(KindNotFound, "INVITATION_NOT_FOUND", "invitation not found")
	ErrDisputeNotFound    = New(KindNotFound, "DISPUTE_NOT_FOUND", "dispute not found")

	ErrAlreadyPaid       = New(KindConflict, "ALREADY_PAID", "payment already approved for this cycle")
	ErrAlreadySubmitted  = New(KindConflict, "ALREADY_SUBMITTED", "a payment is already awaiting approval")
	ErrAlreadyMember     = New(KindConflict, "ALREADY_MEMBER", "already a member of this fund")
	ErrFundFull          = New(KindConflict, "FUND_FULL", "fund is full")
	ErrConcurrentUpdate  = New(KindConflict, "CONCURRENT_UPDATE", "concurrent update, please retry")
	ErrNoInvitations     = New(KindConflict, "NO_INVITATIONS", "no invitations created, check duplicates or capacity")
	ErrInvalidRecipient  = New(KindValidation, "INVALID_RECIPIENT", "recipient must be a member of the fund")
	ErrDuplicateEmail    = New(KindValidation, "DUPLICATE_EMAIL", "duplicate roster email")
	ErrNotMember         = New(KindForbidden, "NOT_MEMBER", "you must be a member of this fund")
	ErrNotAdmin          = New(KindForbidden, "NOT_ADMIN", "only the fund administrator can do this")
	ErrMemberLocked      = New(KindForbidden, "MEMBER_LOCKED", "member is locked, contact the fund administrator")
	ErrFundClosed        = New(KindForbidden, "FUND_CLOSED", "fund is closed")
	ErrWrongRole         = New(KindForbidden, "WRONG_ROLE", "your role does not allow this operation")
	ErrInvalidState      = New(KindState, "INVALID_STATE", "operation not valid in the current state")
	ErrFundNotSettled    = New(KindState, "FUND_NOT_SETTLED", "all cycles must exist and all payouts must be executed")
	ErrInvitationClosed  = New(KindState, "INVITATION_CLOSED", "invitation already answered")
	ErrDisputeResolved   = New(KindState, "DISPUTE_RESOLVED", "dispute is already resolved")
)

// Error is an engine error with a kind, a stable code and a caller-facing message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// New creates an error. It is usually used to declare package-level sentinels.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors with the same code, so clones made by WithError and
// WithMessage still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithError returns a copy of e wrapping err.
func (e *Error) WithError(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// Validation builds a validation error with the given message.
func Validation(format string, args ...any) *Error {
	return ErrValidation.WithMessage(format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the caller-facing message of err. Errors that are not
// *Error are reported as an internal error so details do not leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Retryable reports whether the caller may safely retry the operation.
func Retryable(err error) bool {
	return KindOf(err) == KindConflict && errors.Is(err, ErrConcurrentUpdate)
}
