package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/audit"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

// SubmitPaymentInput is a member's proof of payment for one cycle.
type SubmitPaymentInput struct {
	FundID  string
	CycleID string
	// Amount defaults to the fund's monthly contribution when zero.
	Amount   float64
	ProofRef string
}

// SubmitPayment records actor's payment for a cycle as pending. A rejected
// record is resubmitted in place; a pending or paid one is refused.
func (e *Engine) SubmitPayment(ctx context.Context, actor Actor, in SubmitPaymentInput) (*models.PaymentRecord, error) {
	fund, err := e.loadOpenFund(ctx, in.FundID)
	if err != nil {
		return nil, err
	}
	member, ok := fund.Member(actor.UserID)
	if !ok {
		return nil, apperr.ErrNotMember
	}
	if member.IsLocked {
		return nil, apperr.ErrMemberLocked
	}

	amount := in.Amount
	if amount == 0 {
		amount = fund.MonthlyContribution
	}
	if amount <= 0 {
		return nil, apperr.Validation("amount must be greater than 0")
	}
	proofRef := strings.TrimSpace(in.ProofRef)
	if proofRef == "" {
		return nil, apperr.Validation("payment proof is required")
	}

	cycle, err := e.loadCycle(ctx, fund, in.CycleID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	entry := &models.PaymentLogEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		FundID:    fund.ID,
		CycleID:   cycle.ID,
		MemberID:  actor.UserID,
		Amount:    amount,
		ProofRef:  proofRef,
		CreatedAt: now,
	}

	var rec *models.PaymentRecord
	resubmitted := false
	if existing, found := cycle.FindPaymentRecord(actor.UserID); found {
		switch existing.Status {
		case models.PaymentPaid:
			return nil, apperr.ErrAlreadyPaid
		case models.PaymentPending:
			return nil, apperr.ErrAlreadySubmitted
		}
		rec = existing
		from := rec.Status
		if err := rec.Resubmit(amount, proofRef, now); err != nil {
			return nil, apperr.ErrInvalidState.WithError(err)
		}
		if err := e.store.UpdatePayment(ctx, rec, from, entry); err != nil {
			return nil, e.submitConflict(ctx, cycle.ID, actor.UserID, err)
		}
		resubmitted = true
	} else {
		rec = models.NewPendingRecord(newID(), cycle.ID, actor.UserID, amount, proofRef, now)
		if err := e.store.InsertPayment(ctx, rec, entry); err != nil {
			return nil, e.submitConflict(ctx, cycle.ID, actor.UserID, err)
		}
	}

	e.metrics.PaymentTransition(models.PaymentPending.String())
	ev := e.paymentEvent(audit.PaymentSubmitted, fund, actor, rec, now)
	if resubmitted {
		ev.Detail = "resubmitted"
	}
	e.emit(ev)
	slog.Info("Payment submitted",
		"fund_id", fund.ID,
		"cycle_id", cycle.ID,
		"member_id", actor.UserID,
		"amount", amount,
		"resubmitted", resubmitted,
	)
	return rec, nil
}

// submitConflict explains a failed submission write. When another request
// got there first, the record it left behind decides the error.
func (e *Engine) submitConflict(ctx context.Context, cycleID, memberID string, err error) error {
	if !errors.Is(err, storage.ErrDuplicate) && !errors.Is(err, storage.ErrStale) {
		return e.translate(err, apperr.ErrCycleNotFound, "submit payment")
	}
	e.metrics.Conflict("submit payment")
	if cycle, gerr := e.store.GetCycle(ctx, cycleID); gerr == nil {
		if rec, ok := cycle.FindPaymentRecord(memberID); ok {
			switch rec.Status {
			case models.PaymentPaid:
				return apperr.ErrAlreadyPaid.WithError(err)
			case models.PaymentPending:
				return apperr.ErrAlreadySubmitted.WithError(err)
			}
		}
	}
	return apperr.ErrConcurrentUpdate.WithError(err)
}

// PaymentDecision identifies the record an admin acts on.
type PaymentDecision struct {
	FundID   string
	CycleID  string
	RecordID string
}

// ApprovePayment marks a pending record paid. The approval time is the paid
// date, and the penalty is charged against it.
func (e *Engine) ApprovePayment(ctx context.Context, actor Actor, d PaymentDecision) (*models.PaymentRecord, error) {
	fund, cycle, rec, err := e.loadDecision(ctx, actor, d)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	penalty := calculator.CalculatePenalty(calculator.PenaltyInput{
		DueDate:         cycle.DueDate,
		Window:          fund.PaymentWindow,
		GracePeriodDays: fund.GracePeriodDays,
		Amount:          rec.Amount,
		ApprovedAt:      now,
	})
	from := rec.Status
	if err := rec.Approve(now, penalty.LateDays, penalty.Amount); err != nil {
		return nil, apperr.ErrInvalidState.WithMessage("cannot approve a %s payment", from).WithError(err)
	}
	if err := e.store.UpdatePayment(ctx, rec, from, nil); err != nil {
		return nil, e.translate(err, apperr.ErrPaymentNotFound, "approve payment")
	}

	e.metrics.PaymentTransition(models.PaymentPaid.String())
	e.metrics.PenaltyApplied(penalty.LateDays)
	ev := e.paymentEvent(audit.PaymentApproved, fund, actor, rec, now)
	if penalty.LateDays > 0 {
		ev.Detail = "late"
	}
	e.emit(ev)
	slog.Info("Payment approved",
		"fund_id", fund.ID,
		"cycle_id", cycle.ID,
		"record_id", rec.ID,
		"late_days", penalty.LateDays,
		"penalty", penalty.Amount,
	)
	return rec, nil
}

// RejectPayment declines a pending record. The member may resubmit.
func (e *Engine) RejectPayment(ctx context.Context, actor Actor, d PaymentDecision) (*models.PaymentRecord, error) {
	fund, cycle, rec, err := e.loadDecision(ctx, actor, d)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	from := rec.Status
	if err := rec.Reject(now); err != nil {
		return nil, apperr.ErrInvalidState.WithMessage("cannot reject a %s payment", from).WithError(err)
	}
	if err := e.store.UpdatePayment(ctx, rec, from, nil); err != nil {
		return nil, e.translate(err, apperr.ErrPaymentNotFound, "reject payment")
	}

	e.metrics.PaymentTransition(models.PaymentRejected.String())
	e.emit(e.paymentEvent(audit.PaymentRejected, fund, actor, rec, now))
	slog.Info("Payment rejected", "fund_id", fund.ID, "cycle_id", cycle.ID, "record_id", rec.ID)
	return rec, nil
}

func (e *Engine) loadDecision(ctx context.Context, actor Actor, d PaymentDecision) (*models.Fund, *models.Cycle, *models.PaymentRecord, error) {
	fund, err := e.loadOpenFund(ctx, d.FundID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return nil, nil, nil, err
	}
	cycle, err := e.loadCycle(ctx, fund, d.CycleID)
	if err != nil {
		return nil, nil, nil, err
	}
	rec, ok := cycle.FindPaymentByID(d.RecordID)
	if !ok {
		return nil, nil, nil, apperr.ErrPaymentNotFound
	}
	return fund, cycle, rec, nil
}

func (e *Engine) paymentEvent(typ audit.EventType, fund *models.Fund, actor Actor, rec *models.PaymentRecord, at time.Time) audit.Event {
	ev := audit.NewEvent(typ, fund.ID, actor.UserID, at)
	ev.CycleID = rec.CycleID
	ev.MemberID = rec.MemberID
	ev.Amount = rec.Amount
	return ev
}

// AssignPayoutRecipient chooses who receives a cycle's pool. The recipient
// must be a member; an executed payout cannot be reassigned.
func (e *Engine) AssignPayoutRecipient(ctx context.Context, actor Actor, fundID, cycleID, recipientID string) (*models.Cycle, error) {
	fund, err := e.loadOpenFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return nil, err
	}
	if !fund.IsMember(recipientID) {
		return nil, apperr.ErrInvalidRecipient
	}
	cycle, err := e.loadCycle(ctx, fund, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.PayoutExecuted {
		return nil, apperr.ErrInvalidState.WithMessage("payout already executed")
	}

	if err := e.store.SetPayoutRecipient(ctx, cycle.ID, recipientID); err != nil {
		if errors.Is(err, storage.ErrStale) {
			return nil, apperr.ErrInvalidState.WithMessage("payout already executed").WithError(err)
		}
		return nil, e.translate(err, apperr.ErrCycleNotFound, "assign payout")
	}
	cycle.PayoutRecipient = recipientID

	ev := audit.NewEvent(audit.PayoutAssigned, fund.ID, actor.UserID, e.clock())
	ev.CycleID = cycle.ID
	ev.MemberID = recipientID
	e.emit(ev)
	slog.Info("Payout recipient assigned", "fund_id", fund.ID, "cycle_id", cycle.ID, "recipient_id", recipientID)
	return cycle, nil
}

// ExecutePayout records that the pool was paid out. It is one-way; calling
// it again only replaces the proof reference.
func (e *Engine) ExecutePayout(ctx context.Context, actor Actor, fundID, cycleID, proofRef string) (*models.Cycle, error) {
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, apperr.Validation("payout proof is required")
	}
	fund, err := e.loadOpenFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return nil, err
	}
	cycle, err := e.loadCycle(ctx, fund, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.PayoutRecipient == "" {
		return nil, apperr.ErrInvalidState.WithMessage("assign a payout recipient first")
	}

	if err := e.store.MarkPayoutExecuted(ctx, cycle.ID, proofRef); err != nil {
		return nil, e.translate(err, apperr.ErrCycleNotFound, "execute payout")
	}
	firstTime := !cycle.PayoutExecuted
	cycle.PayoutExecuted = true
	cycle.PayoutProofRef = proofRef

	e.metrics.PayoutExecuted()
	ev := audit.NewEvent(audit.PayoutExecuted, fund.ID, actor.UserID, e.clock())
	ev.CycleID = cycle.ID
	ev.MemberID = cycle.PayoutRecipient
	ev.Amount = fund.MonthlyContribution * float64(len(fund.Members))
	if !firstTime {
		ev.Detail = "proof updated"
	}
	e.emit(ev)
	slog.Info("Payout executed", "fund_id", fund.ID, "cycle_id", cycle.ID, "recipient_id", cycle.PayoutRecipient, "proof_updated", !firstTime)
	return cycle, nil
}

// PaymentLog returns every submission made in a fund, oldest first.
func (e *Engine) PaymentLog(ctx context.Context, actor Actor, fundID string) ([]models.PaymentLogEntry, error) {
	fund, err := e.loadFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return nil, err
	}
	entries, err := e.store.ListPaymentLog(ctx, fund.ID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "list payment log")
	}
	return entries, nil
}
