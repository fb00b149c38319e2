package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a payment record cannot move from its
// current status to the requested one.
var ErrInvalidTransition = errors.New("invalid payment status transition")

// PaymentStatus is the lifecycle state of a member's payment within a cycle.
type PaymentStatus int

const (
	// PaymentPending means proof was submitted and awaits an admin decision.
	PaymentPending PaymentStatus = iota + 1
	// PaymentPaid means the admin approved the payment. Terminal.
	PaymentPaid
	// PaymentRejected means the admin declined the proof; the member may resubmit.
	PaymentRejected
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentPaid:
		return "paid"
	case PaymentRejected:
		return "rejected"
	default:
		return fmt.Sprintf("PaymentStatus(%d)", int(s))
	}
}

// ParsePaymentStatus is the inverse of PaymentStatus.String.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch s {
	case "pending":
		return PaymentPending, nil
	case "paid":
		return PaymentPaid, nil
	case "rejected":
		return PaymentRejected, nil
	default:
		return 0, fmt.Errorf("unknown payment status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s PaymentStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PaymentStatus) UnmarshalText(b []byte) error {
	parsed, err := ParsePaymentStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PaymentRecord is one member's payment for one cycle.
type PaymentRecord struct {
	// ID is the unique identifier for the record (UUID format).
	ID string

	CycleID  string
	MemberID string

	// Amount and ProofRef come from the latest submission.
	Amount   float64
	ProofRef string

	Status PaymentStatus

	// SubmittedAt is the time of the latest submission.
	SubmittedAt time.Time

	// PaidAt is the approval time. It is nil unless Status is PaymentPaid.
	PaidAt *time.Time

	// DecidedAt is stamped on approval and on rejection.
	DecidedAt *time.Time

	// PenaltyDays and PenaltyAmount stay zero until approval.
	PenaltyDays   int
	PenaltyAmount float64
}

// NewPendingRecord creates the first submission of a member for a cycle.
func NewPendingRecord(id, cycleID, memberID string, amount float64, proofRef string, at time.Time) *PaymentRecord {
	return &PaymentRecord{
		ID:          id,
		CycleID:     cycleID,
		MemberID:    memberID,
		Amount:      amount,
		ProofRef:    proofRef,
		Status:      PaymentPending,
		SubmittedAt: at,
	}
}

// OnTime reports whether the record is paid without any penalty.
func (r *PaymentRecord) OnTime() bool {
	return r.Status == PaymentPaid && r.PenaltyDays == 0 && r.PenaltyAmount == 0
}

// Resubmit moves a rejected record back to pending with the new submission's
// amount and proof. Approval and penalty fields are cleared.
func (r *PaymentRecord) Resubmit(amount float64, proofRef string, at time.Time) error {
	switch r.Status {
	case PaymentRejected:
		r.Status = PaymentPending
		r.Amount = amount
		r.ProofRef = proofRef
		r.SubmittedAt = at
		r.PaidAt = nil
		r.DecidedAt = nil
		r.PenaltyDays = 0
		r.PenaltyAmount = 0
		return nil
	case PaymentPending, PaymentPaid:
		return fmt.Errorf("%w: resubmit from %s", ErrInvalidTransition, r.Status)
	default:
		return fmt.Errorf("%w: unknown status %d", ErrInvalidTransition, int(r.Status))
	}
}

// Approve marks a pending record as paid at the given time with the given penalty.
func (r *PaymentRecord) Approve(at time.Time, penaltyDays int, penaltyAmount float64) error {
	switch r.Status {
	case PaymentPending:
		r.Status = PaymentPaid
		r.PaidAt = &at
		r.DecidedAt = &at
		r.PenaltyDays = penaltyDays
		r.PenaltyAmount = penaltyAmount
		return nil
	case PaymentPaid, PaymentRejected:
		return fmt.Errorf("%w: approve from %s", ErrInvalidTransition, r.Status)
	default:
		return fmt.Errorf("%w: unknown status %d", ErrInvalidTransition, int(r.Status))
	}
}

// Reject declines a pending record. No penalty is computed.
func (r *PaymentRecord) Reject(at time.Time) error {
	switch r.Status {
	case PaymentPending:
		r.Status = PaymentRejected
		r.DecidedAt = &at
		return nil
	case PaymentPaid, PaymentRejected:
		return fmt.Errorf("%w: reject from %s", ErrInvalidTransition, r.Status)
	default:
		return fmt.Errorf("%w: unknown status %d", ErrInvalidTransition, int(r.Status))
	}
}

// PaymentLogEntry is an append-only trail of every submission, including
// resubmissions.
type PaymentLogEntry struct {
	ID        string
	FundID    string
	CycleID   string
	MemberID  string
	Amount    float64
	ProofRef  string
	CreatedAt time.Time
}
