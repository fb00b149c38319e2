// Package audit delivers fire-and-forget notifications about fund activity
// to an external sink. Emitting never blocks the caller.
package audit

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType names what happened.
type EventType string

const (
	FundCreated      EventType = "fund.created"
	FundClosed       EventType = "fund.closed"
	MemberJoined     EventType = "member.joined"
	MemberLocked     EventType = "member.locked"
	MemberUnlocked   EventType = "member.unlocked"
	MembersInvited   EventType = "members.invited"
	PaymentSubmitted EventType = "payment.submitted"
	PaymentApproved  EventType = "payment.approved"
	PaymentRejected  EventType = "payment.rejected"
	PayoutAssigned   EventType = "payout.assigned"
	PayoutExecuted   EventType = "payout.executed"
	DisputeRaised    EventType = "dispute.raised"
	DisputeReplied   EventType = "dispute.replied"
	DisputeResolved  EventType = "dispute.resolved"
)

// Event is one audit record. IDs are ULIDs so events sort by time.
type Event struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	FundID   string    `json:"fund_id"`
	ActorID  string    `json:"actor_id,omitempty"`
	CycleID  string    `json:"cycle_id,omitempty"`
	MemberID string    `json:"member_id,omitempty"`
	Amount   float64   `json:"amount,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent creates an event stamped at the given time.
func NewEvent(typ EventType, fundID, actorID string, at time.Time) Event {
	return Event{
		ID:      ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Type:    typ,
		FundID:  fundID,
		ActorID: actorID,
		At:      at,
	}
}

// Sink delivers events somewhere durable.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emitter accepts events without blocking.
type Emitter interface {
	Emit(event Event)
}

// Discard is an Emitter that drops every event.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(Event) {}
