package models

import "time"

// InvitationStatus tracks the response to an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation asks the owner of Email to join a fund. Invitations created from
// the planned roster carry the planned TurnPosition; later invitations do not.
type Invitation struct {
	ID           string
	FundID       string
	Email        string
	InvitedBy    string
	TurnPosition int
	Status       InvitationStatus
	CreatedAt    time.Time
	RespondedAt  *time.Time
}

// DisputeStatus tracks a dispute thread.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// Dispute is a conversation a member raises with the fund admin.
type Dispute struct {
	ID         string
	FundID     string
	RaisedBy   string
	Subject    string
	Status     DisputeStatus
	Messages   []DisputeMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// DisputeMessage is one message in a dispute thread.
type DisputeMessage struct {
	ID        string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}
