package models

import "time"

// Cycle is one period of a fund's schedule with its own due date, the payment
// records of its members and the payout for that period.
type Cycle struct {
	// ID is the unique identifier for the cycle (UUID format).
	ID string

	FundID string

	// MonthIndex is 0-based and unique per fund.
	MonthIndex int

	// DueDate is the first calendar day of the cycle's month.
	DueDate time.Time

	// Payments holds at most one record per member.
	Payments []PaymentRecord

	// PayoutRecipient is the member chosen to receive this cycle's pool.
	PayoutRecipient string

	// PayoutExecuted is one-way: once true it never goes back.
	PayoutExecuted bool

	PayoutProofRef string
}

// FindPaymentRecord returns the record submitted by memberID, if any.
func (c *Cycle) FindPaymentRecord(memberID string) (*PaymentRecord, bool) {
	for i := range c.Payments {
		if c.Payments[i].MemberID == memberID {
			return &c.Payments[i], true
		}
	}
	return nil, false
}

// FindPaymentByID returns the record with the given ID, if any.
func (c *Cycle) FindPaymentByID(recordID string) (*PaymentRecord, bool) {
	for i := range c.Payments {
		if c.Payments[i].ID == recordID {
			return &c.Payments[i], true
		}
	}
	return nil, false
}

// PaidBy reports whether memberID has an approved payment in this cycle.
func (c *Cycle) PaidBy(memberID string) bool {
	rec, ok := c.FindPaymentRecord(memberID)
	return ok && rec.Status == PaymentPaid
}

// IsDue reports whether the cycle's due date is at or before now.
func (c *Cycle) IsDue(now time.Time) bool {
	return !c.DueDate.After(now)
}
