package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/audit"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

const (
	maxSubjectLen = 200
	maxMessageLen = 2000
)

// RaiseDispute opens a dispute thread with the fund admin. Only members who
// are not the admin may raise one.
func (e *Engine) RaiseDispute(ctx context.Context, actor Actor, fundID, subject, message string) (*models.Dispute, error) {
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)
	if subject == "" || message == "" {
		return nil, apperr.Validation("subject and message are required")
	}
	if len(subject) > maxSubjectLen || len(message) > maxMessageLen {
		return nil, apperr.Validation("subject or message too long")
	}

	fund, err := e.loadOpenFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if !fund.IsMember(actor.UserID) || fund.IsAdmin(actor.UserID) {
		return nil, apperr.ErrNotMember
	}

	now := e.clock()
	dispute := &models.Dispute{
		ID:       newID(),
		FundID:   fund.ID,
		RaisedBy: actor.UserID,
		Subject:  subject,
		Status:   models.DisputeOpen,
		Messages: []models.DisputeMessage{{
			ID:        newID(),
			AuthorID:  actor.UserID,
			Body:      message,
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateDispute(ctx, dispute); err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "create dispute")
	}

	ev := audit.NewEvent(audit.DisputeRaised, fund.ID, actor.UserID, now)
	ev.Detail = subject
	e.emit(ev)
	slog.Info("Dispute raised", "fund_id", fund.ID, "dispute_id", dispute.ID, "raised_by", actor.UserID)
	return dispute, nil
}

// ReplyDispute adds a message to an open dispute. The admin and the member
// who raised it may reply.
func (e *Engine) ReplyDispute(ctx context.Context, actor Actor, disputeID, message string) (*models.Dispute, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Validation("message is required")
	}
	if len(message) > maxMessageLen {
		return nil, apperr.Validation("message too long")
	}

	dispute, fund, err := e.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.RaisedBy != actor.UserID && !fund.IsAdmin(actor.UserID) {
		return nil, apperr.ErrForbidden.WithMessage("only the raiser and the fund administrator can reply")
	}
	if dispute.Status != models.DisputeOpen {
		return nil, apperr.ErrDisputeResolved
	}

	now := e.clock()
	msg := models.DisputeMessage{ID: newID(), AuthorID: actor.UserID, Body: message, CreatedAt: now}
	if err := e.store.AddDisputeMessage(ctx, dispute.ID, msg); err != nil {
		if errors.Is(err, storage.ErrStale) {
			return nil, apperr.ErrDisputeResolved.WithError(err)
		}
		return nil, e.translate(err, apperr.ErrDisputeNotFound, "reply dispute")
	}
	dispute.Messages = append(dispute.Messages, msg)
	dispute.UpdatedAt = now

	e.emit(audit.NewEvent(audit.DisputeReplied, fund.ID, actor.UserID, now))
	return dispute, nil
}

// ResolveDispute closes a dispute. Admin only.
func (e *Engine) ResolveDispute(ctx context.Context, actor Actor, disputeID string) (*models.Dispute, error) {
	dispute, fund, err := e.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeOpen {
		return nil, apperr.ErrDisputeResolved
	}

	now := e.clock()
	if err := e.store.ResolveDispute(ctx, dispute.ID, now); err != nil {
		if errors.Is(err, storage.ErrStale) {
			return nil, apperr.ErrDisputeResolved.WithError(err)
		}
		return nil, e.translate(err, apperr.ErrDisputeNotFound, "resolve dispute")
	}
	dispute.Status = models.DisputeResolved
	dispute.ResolvedAt = &now
	dispute.UpdatedAt = now

	e.emit(audit.NewEvent(audit.DisputeResolved, fund.ID, actor.UserID, now))
	slog.Info("Dispute resolved", "fund_id", fund.ID, "dispute_id", dispute.ID)
	return dispute, nil
}

// ListDisputes returns all disputes of a fund to its participants.
func (e *Engine) ListDisputes(ctx context.Context, actor Actor, fundID string) ([]models.Dispute, error) {
	fund, err := e.loadFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(fund, actor); err != nil {
		return nil, err
	}
	disputes, err := e.store.ListDisputes(ctx, fund.ID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "list disputes")
	}
	return disputes, nil
}

// loadDispute returns a dispute and its fund. Closed funds accept no replies.
func (e *Engine) loadDispute(ctx context.Context, disputeID string) (*models.Dispute, *models.Fund, error) {
	if disputeID == "" {
		return nil, nil, apperr.Validation("dispute_id is required")
	}
	dispute, err := e.store.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, nil, e.translate(err, apperr.ErrDisputeNotFound, "get dispute")
	}
	fund, err := e.loadOpenFund(ctx, dispute.FundID)
	if err != nil {
		return nil, nil, err
	}
	return dispute, fund, nil
}
