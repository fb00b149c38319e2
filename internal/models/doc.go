// Package models defines the core domain models for chitfund.
//
// A Fund is the root aggregate: it owns its members, its planned roster and
// (through the storage layer) its Cycles. Each Cycle owns at most one
// PaymentRecord per member.
//
// # Relationships
//
// Models reference each other by ID strings rather than pointers. A Cycle knows
// its FundID, a PaymentRecord knows its CycleID and MemberID. The storage layer
// is responsible for loading the pieces a caller needs.
//
// # Payment lifecycle
//
// PaymentStatus is a closed enum. Transitions are only performed through the
// methods on PaymentRecord (Resubmit, Approve, Reject) so that the rules live in
// one place:
//
//	NoRecord -> Pending -> Paid
//	                    -> Rejected -> Pending (resubmit)
//
// Paid is terminal.
package models
