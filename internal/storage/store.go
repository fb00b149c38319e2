// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate")
	// ErrStale is returned when a conditional update matched no row because
	// the row changed since it was read.
	ErrStale = errors.New("stale write")
	// ErrBusy is returned when the database is locked by another writer.
	ErrBusy = errors.New("database busy")
	// ErrCapacity is returned when a fund has no room for another member.
	ErrCapacity = errors.New("fund at capacity")
)

// Store defines the interface for fund storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine.
type Store interface {
	UserStore
	FundStore
	CycleStore
	PaymentStore
	InvitationStore
	DisputeStore

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// FundStore persists funds, their members and their planned roster.
type FundStore interface {
	// CreateFund stores the fund with its planned roster, its cycles and its
	// invitations in one transaction.
	CreateFund(ctx context.Context, fund *models.Fund, cycles []models.Cycle, invitations []models.Invitation) error

	// GetFund returns the fund with members ordered by turn position.
	GetFund(ctx context.Context, fundID string) (*models.Fund, error)

	// ListFundsForUser returns funds created by or joined by userID.
	ListFundsForUser(ctx context.Context, userID string) ([]*models.Fund, error)

	// ListOpenFundIDs returns the IDs of all funds that are not closed.
	ListOpenFundIDs(ctx context.Context) ([]string, error)

	// AddMember inserts member if the fund still has room, claims the planned
	// slot at claimPosition (if any) and accepts invitationID (if set), all in
	// one transaction. Returns ErrCapacity when the fund is full and
	// ErrDuplicate when the user or the position is already taken.
	AddMember(ctx context.Context, fundID string, member models.Member, claimPosition int, invitationID string) error

	// SetMemberLock updates a member's lock flag.
	SetMemberLock(ctx context.Context, fundID, userID string, locked bool) error

	// CloseFund sets closed_at once. Returns ErrStale if the fund is already closed.
	CloseFund(ctx context.Context, fundID string, at time.Time) error
}

// CycleStore persists payment cycles.
type CycleStore interface {
	// EnsureCycles inserts the cycles whose month index is missing and
	// returns how many were created. Existing cycles are left untouched.
	EnsureCycles(ctx context.Context, fundID string, cycles []models.Cycle) (int, error)

	// ListCycles returns the fund's cycles with their payment records, ordered
	// by month index.
	ListCycles(ctx context.Context, fundID string) ([]models.Cycle, error)

	// GetCycle returns one cycle with its payment records.
	GetCycle(ctx context.Context, cycleID string) (*models.Cycle, error)

	// SetPayoutRecipient assigns the recipient of a cycle whose payout has not
	// been executed. Returns ErrStale otherwise.
	SetPayoutRecipient(ctx context.Context, cycleID, recipientID string) error

	// MarkPayoutExecuted sets payout_executed and the proof reference.
	MarkPayoutExecuted(ctx context.Context, cycleID, proofRef string) error
}

// PaymentStore persists payment records and the submission log.
type PaymentStore interface {
	// InsertPayment creates a new record and appends entry to the log in one
	// transaction. Returns ErrDuplicate if the member already has a record
	// in the cycle.
	InsertPayment(ctx context.Context, rec *models.PaymentRecord, entry *models.PaymentLogEntry) error

	// UpdatePayment writes rec only if the stored status still equals from.
	// A non-nil entry is appended to the log in the same transaction.
	// Returns ErrStale when the status changed underneath.
	UpdatePayment(ctx context.Context, rec *models.PaymentRecord, from models.PaymentStatus, entry *models.PaymentLogEntry) error

	// ListPaymentLog returns the fund's submission log, oldest first.
	ListPaymentLog(ctx context.Context, fundID string) ([]models.PaymentLogEntry, error)
}

// InvitationStore persists invitations.
type InvitationStore interface {
	CreateInvitations(ctx context.Context, invitations []models.Invitation) error
	GetInvitation(ctx context.Context, id string) (*models.Invitation, error)
	ListInvitations(ctx context.Context, fundID string) ([]models.Invitation, error)
	ListInvitationsByEmail(ctx context.Context, email string) ([]models.Invitation, error)

	// RespondInvitation moves a pending invitation to status. Returns ErrStale
	// if it was already answered.
	RespondInvitation(ctx context.Context, id string, status models.InvitationStatus, at time.Time) error
}

// DisputeStore persists dispute threads.
type DisputeStore interface {
	// CreateDispute stores the dispute and its messages.
	CreateDispute(ctx context.Context, dispute *models.Dispute) error
	GetDispute(ctx context.Context, id string) (*models.Dispute, error)
	ListDisputes(ctx context.Context, fundID string) ([]models.Dispute, error)

	// AddDisputeMessage appends to an open dispute. Returns ErrStale if it is resolved.
	AddDisputeMessage(ctx context.Context, disputeID string, msg models.DisputeMessage) error

	// ResolveDispute closes an open dispute. Returns ErrStale if it is resolved.
	ResolveDispute(ctx context.Context, disputeID string, at time.Time) error
}
