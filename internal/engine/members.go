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
	"github.com/mmynk/chitfund/internal/turnorder"
)

// JoinFund adds actor to a fund without an invitation. A payout account is
// required. If actor has a pending invitation to the fund it is accepted.
func (e *Engine) JoinFund(ctx context.Context, actor Actor, fundID, payoutAccount string) (*models.Member, error) {
	payoutAccount = strings.TrimSpace(payoutAccount)
	if payoutAccount == "" {
		return nil, apperr.Validation("payout account is required")
	}
	fund, err := e.loadOpenFund(ctx, fundID)
	if err != nil {
		return nil, err
	}

	var invitationID string
	invs, err := e.store.ListInvitationsByEmail(ctx, models.NormalizeEmail(actor.Email))
	if err != nil {
		return nil, e.translate(err, apperr.ErrInvitationNotFound, "list invitations")
	}
	for _, inv := range invs {
		if inv.FundID == fund.ID && inv.Status == models.InvitationPending {
			invitationID = inv.ID
			break
		}
	}
	return e.join(ctx, actor, fund, payoutAccount, invitationID)
}

// AcceptInvitation joins the invited fund. The invitation must be addressed
// to actor's email and still pending.
func (e *Engine) AcceptInvitation(ctx context.Context, actor Actor, invitationID, payoutAccount string) (*models.Member, error) {
	inv, err := e.loadInvitation(ctx, actor, invitationID)
	if err != nil {
		return nil, err
	}
	fund, err := e.loadOpenFund(ctx, inv.FundID)
	if err != nil {
		return nil, err
	}
	return e.join(ctx, actor, fund, strings.TrimSpace(payoutAccount), inv.ID)
}

// DeclineInvitation marks a pending invitation as declined.
func (e *Engine) DeclineInvitation(ctx context.Context, actor Actor, invitationID string) error {
	inv, err := e.loadInvitation(ctx, actor, invitationID)
	if err != nil {
		return err
	}
	if _, err := e.loadOpenFund(ctx, inv.FundID); err != nil {
		return err
	}
	if err := e.store.RespondInvitation(ctx, inv.ID, models.InvitationDeclined, e.clock()); err != nil {
		if errors.Is(err, storage.ErrStale) {
			return apperr.ErrInvitationClosed.WithError(err)
		}
		return e.translate(err, apperr.ErrInvitationNotFound, "decline invitation")
	}
	slog.Info("Invitation declined", "invitation_id", inv.ID, "fund_id", inv.FundID, "user_id", actor.UserID)
	return nil
}

func (e *Engine) loadInvitation(ctx context.Context, actor Actor, invitationID string) (*models.Invitation, error) {
	if invitationID == "" {
		return nil, apperr.Validation("invitation_id is required")
	}
	inv, err := e.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrInvitationNotFound, "get invitation")
	}
	if inv.Email != models.NormalizeEmail(actor.Email) {
		return nil, apperr.ErrForbidden.WithMessage("invitation is addressed to another email")
	}
	if inv.Status != models.InvitationPending {
		return nil, apperr.ErrInvitationClosed
	}
	return inv, nil
}

// join places actor in the fund following the planned roster. Capacity is
// enforced by the store, so two members racing for the last seat cannot both
// get in.
func (e *Engine) join(ctx context.Context, actor Actor, fund *models.Fund, payoutAccount, invitationID string) (*models.Member, error) {
	if actor.Role != models.RoleMember {
		return nil, apperr.ErrWrongRole.WithMessage("only members can join funds")
	}
	if fund.IsAdmin(actor.UserID) {
		return nil, apperr.ErrWrongRole.WithMessage("the fund administrator cannot join as a member")
	}
	if fund.IsMember(actor.UserID) {
		return nil, apperr.ErrAlreadyMember
	}
	if fund.IsFull() {
		return nil, apperr.ErrFundFull
	}

	placement := turnorder.PickPosition(fund.PlannedRoster, fund.Members, actor.Email)
	member := models.Member{
		UserID:        actor.UserID,
		TurnPosition:  placement.Position,
		PayoutAccount: payoutAccount,
		InvitedEmail:  models.NormalizeEmail(actor.Email),
		JoinedAt:      e.clock(),
	}
	claim := 0
	if placement.Slot != nil && placement.Slot.UserID == "" {
		claim = placement.Slot.Position
	}

	if err := e.store.AddMember(ctx, fund.ID, member, claim, invitationID); err != nil {
		switch {
		case errors.Is(err, storage.ErrCapacity):
			return nil, apperr.ErrFundFull.WithError(err)
		case errors.Is(err, storage.ErrDuplicate):
			// Either actor joined concurrently or another member took the
			// position first.
			if latest, gerr := e.store.GetFund(ctx, fund.ID); gerr == nil && latest.IsMember(actor.UserID) {
				return nil, apperr.ErrAlreadyMember
			}
			e.metrics.Conflict("join fund")
			return nil, apperr.ErrConcurrentUpdate.WithError(err)
		case errors.Is(err, storage.ErrStale) && invitationID != "":
			return nil, apperr.ErrInvitationClosed.WithError(err)
		default:
			return nil, e.translate(err, apperr.ErrFundNotFound, "add member")
		}
	}

	ev := audit.NewEvent(audit.MemberJoined, fund.ID, actor.UserID, member.JoinedAt)
	ev.MemberID = actor.UserID
	e.emit(ev)
	slog.Info("Member joined fund",
		"fund_id", fund.ID,
		"user_id", actor.UserID,
		"turn_position", member.TurnPosition,
		"invitation_id", invitationID,
	)
	return &member, nil
}

// InviteMembers invites more emails to a fund. Emails that are already
// members or already have a pending invitation are skipped, and no more
// invitations are created than there are free seats.
func (e *Engine) InviteMembers(ctx context.Context, actor Actor, fundID string, emails []string) ([]models.Invitation, error) {
	fund, err := e.loadOpenFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return nil, err
	}

	existing, err := e.store.ListInvitations(ctx, fund.ID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "list invitations")
	}
	skip := make(map[string]bool)
	pending := 0
	for _, inv := range existing {
		if inv.Status == models.InvitationPending {
			skip[inv.Email] = true
			pending++
		}
	}
	for _, m := range fund.Members {
		if m.InvitedEmail != "" {
			skip[m.InvitedEmail] = true
		}
	}

	remaining := fund.GroupSize - len(fund.Members) - pending
	now := e.clock()
	var created []models.Invitation
	for _, raw := range emails {
		if remaining <= 0 {
			break
		}
		email := models.NormalizeEmail(raw)
		if email == "" || skip[email] {
			continue
		}
		if err := e.validate.Var(email, "email"); err != nil {
			return nil, apperr.Validation("invalid email %q", raw)
		}
		skip[email] = true

		inv := models.Invitation{
			ID:        newID(),
			FundID:    fund.ID,
			Email:     email,
			InvitedBy: actor.UserID,
			Status:    models.InvitationPending,
			CreatedAt: now,
		}
		for _, p := range fund.PlannedRoster {
			if p.UserID == "" && models.NormalizeEmail(p.Email) == email {
				inv.TurnPosition = p.Position
				break
			}
		}
		created = append(created, inv)
		remaining--
	}
	if len(created) == 0 {
		return nil, apperr.ErrNoInvitations
	}

	if err := e.store.CreateInvitations(ctx, created); err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "create invitations")
	}
	ev := audit.NewEvent(audit.MembersInvited, fund.ID, actor.UserID, now)
	ev.Detail = strings.Join(invitationEmails(created), ",")
	e.emit(ev)
	slog.Info("Invited members", "fund_id", fund.ID, "count", len(created))
	return created, nil
}

func invitationEmails(invs []models.Invitation) []string {
	out := make([]string, len(invs))
	for i, inv := range invs {
		out[i] = inv.Email
	}
	return out
}

// ListInvitations returns all invitations of a fund. Admin only.
func (e *Engine) ListInvitations(ctx context.Context, actor Actor, fundID string) ([]models.Invitation, error) {
	fund, err := e.loadFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return nil, err
	}
	invs, err := e.store.ListInvitations(ctx, fund.ID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "list invitations")
	}
	return invs, nil
}

// ListMyInvitations returns the pending invitations addressed to actor.
func (e *Engine) ListMyInvitations(ctx context.Context, actor Actor) ([]models.Invitation, error) {
	invs, err := e.store.ListInvitationsByEmail(ctx, models.NormalizeEmail(actor.Email))
	if err != nil {
		return nil, e.translate(err, apperr.ErrInvitationNotFound, "list invitations")
	}
	pending := invs[:0]
	for _, inv := range invs {
		if inv.Status == models.InvitationPending {
			pending = append(pending, inv)
		}
	}
	return pending, nil
}

// SetMemberLock locks or unlocks a member. A locked member cannot submit
// payments. Locking is always an explicit admin decision, whatever the
// eligibility report says.
func (e *Engine) SetMemberLock(ctx context.Context, actor Actor, fundID, memberID string, locked bool) error {
	fund, err := e.loadOpenFund(ctx, fundID)
	if err != nil {
		return err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return err
	}
	if !fund.IsMember(memberID) {
		return apperr.ErrMemberNotFound
	}
	if err := e.store.SetMemberLock(ctx, fund.ID, memberID, locked); err != nil {
		return e.translate(err, apperr.ErrMemberNotFound, "set member lock")
	}

	typ := audit.MemberUnlocked
	if locked {
		typ = audit.MemberLocked
	}
	ev := audit.NewEvent(typ, fund.ID, actor.UserID, e.clock())
	ev.MemberID = memberID
	e.emit(ev)
	slog.Info("Member lock changed", "fund_id", fund.ID, "member_id", memberID, "locked", locked)
	return nil
}
