package service

import (
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/engine"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/turnorder"
	"github.com/mmynk/chitfund/pkg/api"
)

// names maps user IDs to display names. Missing entries render empty.
type names map[string]string

func userToAPI(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

func fundToAPI(f *models.Fund, n names) *api.Fund {
	out := &api.Fund{
		ID:                  f.ID,
		Name:                f.Name,
		Currency:            f.Currency,
		MonthlyContribution: f.MonthlyContribution,
		GroupSize:           f.GroupSize,
		StartMonth:          f.StartMonth,
		PaymentWindow:       f.PaymentWindow.String(),
		GracePeriodDays:     f.GracePeriodDays,
		TurnOrderPolicy:     string(f.TurnOrderPolicy),
		Members:             make([]api.Member, 0, len(f.Members)),
		CreatedBy:           f.CreatedBy,
		CreatedAt:           f.CreatedAt,
		ClosedAt:            f.ClosedAt,
	}
	for _, m := range f.Members {
		out.Members = append(out.Members, memberToAPI(m, n))
	}
	for _, p := range f.PlannedRoster {
		out.PlannedRoster = append(out.PlannedRoster, plannedToAPI(p))
	}
	return out
}

func memberToAPI(m models.Member, n names) api.Member {
	return api.Member{
		UserID:        m.UserID,
		DisplayName:   n[m.UserID],
		TurnPosition:  m.TurnPosition,
		PayoutAccount: m.PayoutAccount,
		InvitedEmail:  m.InvitedEmail,
		IsLocked:      m.IsLocked,
		JoinedAt:      m.JoinedAt,
	}
}

func plannedToAPI(p models.PlannedMember) api.PlannedMember {
	return api.PlannedMember{Name: p.Name, Email: p.Email, Position: p.Position, UserID: p.UserID}
}

func cycleToAPI(c models.Cycle) *api.Cycle {
	out := &api.Cycle{
		ID:              c.ID,
		MonthIndex:      c.MonthIndex,
		DueDate:         c.DueDate,
		Payments:        make([]api.PaymentRecord, 0, len(c.Payments)),
		PayoutRecipient: c.PayoutRecipient,
		PayoutExecuted:  c.PayoutExecuted,
		PayoutProofRef:  c.PayoutProofRef,
	}
	for i := range c.Payments {
		out.Payments = append(out.Payments, *paymentToAPI(&c.Payments[i]))
	}
	return out
}

func cycleDetailToAPI(d engine.CycleDetail) api.Cycle {
	out := cycleToAPI(d.Cycle)
	out.ScheduledRecipient = d.ScheduledRecipient
	out.IsDue = d.IsDue
	return *out
}

func paymentToAPI(r *models.PaymentRecord) *api.PaymentRecord {
	return &api.PaymentRecord{
		ID:            r.ID,
		CycleID:       r.CycleID,
		MemberID:      r.MemberID,
		Amount:        r.Amount,
		ProofRef:      r.ProofRef,
		Status:        r.Status.String(),
		SubmittedAt:   r.SubmittedAt,
		PaidAt:        r.PaidAt,
		DecidedAt:     r.DecidedAt,
		PenaltyDays:   r.PenaltyDays,
		PenaltyAmount: r.PenaltyAmount,
	}
}

func paymentLogToAPI(entries []models.PaymentLogEntry) []api.PaymentLogEntry {
	out := make([]api.PaymentLogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, api.PaymentLogEntry{
			ID:        e.ID,
			CycleID:   e.CycleID,
			MemberID:  e.MemberID,
			Amount:    e.Amount,
			ProofRef:  e.ProofRef,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func invitationsToAPI(invs []models.Invitation) []api.Invitation {
	out := make([]api.Invitation, 0, len(invs))
	for _, inv := range invs {
		out = append(out, api.Invitation{
			ID:           inv.ID,
			FundID:       inv.FundID,
			Email:        inv.Email,
			InvitedBy:    inv.InvitedBy,
			TurnPosition: inv.TurnPosition,
			Status:       string(inv.Status),
			CreatedAt:    inv.CreatedAt,
			RespondedAt:  inv.RespondedAt,
		})
	}
	return out
}

func disputeToAPI(d *models.Dispute) *api.Dispute {
	out := &api.Dispute{
		ID:         d.ID,
		FundID:     d.FundID,
		RaisedBy:   d.RaisedBy,
		Subject:    d.Subject,
		Status:     string(d.Status),
		Messages:   make([]api.DisputeMessage, 0, len(d.Messages)),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		ResolvedAt: d.ResolvedAt,
	}
	for _, m := range d.Messages {
		out.Messages = append(out.Messages, api.DisputeMessage{
			ID:        m.ID,
			AuthorID:  m.AuthorID,
			Body:      m.Body,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

func eligibilityToAPI(in []calculator.Eligibility) []api.Eligibility {
	out := make([]api.Eligibility, 0, len(in))
	for _, e := range in {
		out = append(out, api.Eligibility{
			MemberID:          e.MemberID,
			ConsecutiveMissed: e.ConsecutiveMissed,
			Lockable:          e.Lockable,
			IsLocked:          e.IsLocked,
		})
	}
	return out
}

func streaksToAPI(in []calculator.Streak) []api.Streak {
	out := make([]api.Streak, 0, len(in))
	for _, s := range in {
		out = append(out, api.Streak{
			MemberID:         s.MemberID,
			CurrentStreak:    s.CurrentStreak,
			LongestStreak:    s.LongestStreak,
			OnTimePayments:   s.OnTimePayments,
			TotalPayments:    s.TotalPayments,
			PerformanceScore: s.PerformanceScore,
		})
	}
	return out
}

func rosterToAPI(r turnorder.Reconciliation, n names) api.RosterReport {
	out := api.RosterReport{
		Matched:          make([]api.RosterMatch, 0, len(r.Matched)),
		UnmatchedPlanned: make([]api.PlannedMember, 0, len(r.UnmatchedPlanned)),
		UnmatchedJoined:  make([]api.Member, 0, len(r.UnmatchedJoined)),
	}
	for _, m := range r.Matched {
		out.Matched = append(out.Matched, api.RosterMatch{
			Planned: plannedToAPI(m.Planned),
			Member:  memberToAPI(m.Member, n),
		})
	}
	for _, p := range r.UnmatchedPlanned {
		out.UnmatchedPlanned = append(out.UnmatchedPlanned, plannedToAPI(p))
	}
	for _, m := range r.UnmatchedJoined {
		out.UnmatchedJoined = append(out.UnmatchedJoined, memberToAPI(m, n))
	}
	return out
}

func ledgerRowsToAPI(rows []calculator.LedgerRow) []api.LedgerRow {
	out := make([]api.LedgerRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, api.LedgerRow{
			CycleID:       r.CycleID,
			MonthIndex:    r.MonthIndex,
			DueDate:       r.DueDate,
			MemberID:      r.MemberID,
			Status:        r.Status,
			Amount:        r.Amount,
			ProofRef:      r.ProofRef,
			PaidAt:        r.PaidAt,
			LateDays:      r.LateDays,
			PenaltyAmount: r.PenaltyAmount,
			OnTime:        r.OnTime,
		})
	}
	return out
}

func memberSummaryToAPI(s calculator.MemberSummary) *api.MemberSummary {
	return &api.MemberSummary{
		MemberID:           s.MemberID,
		TotalPaidCount:     s.TotalPaidCount,
		OnTimeCount:        s.OnTimeCount,
		LateCount:          s.LateCount,
		PendingCount:       s.PendingCount,
		TotalLateDays:      s.TotalLateDays,
		TotalContributed:   s.TotalContributed,
		TotalPenaltyAmount: s.TotalPenaltyAmount,
		History:            ledgerRowsToAPI(s.History),
	}
}

func fundLedgerToAPI(l *calculator.FundLedger) *api.FundLedger {
	out := &api.FundLedger{
		Members:        make([]api.MemberSummary, 0, len(l.Members)),
		Cycles:         make([]api.CycleSummary, 0, len(l.Cycles)),
		TotalCollected: l.TotalCollected,
		TotalPenalties: l.TotalPenalties,
	}
	for _, m := range l.Members {
		out.Members = append(out.Members, *memberSummaryToAPI(m))
	}
	for _, c := range l.Cycles {
		out.Cycles = append(out.Cycles, api.CycleSummary{
			CycleID:         c.CycleID,
			MonthIndex:      c.MonthIndex,
			DueDate:         c.DueDate,
			PayoutRecipient: c.PayoutRecipient,
			PayoutExecuted:  c.PayoutExecuted,
			PayoutProofRef:  c.PayoutProofRef,
			CollectedAmount: c.CollectedAmount,
			Payments:        ledgerRowsToAPI(c.Payments),
		})
	}
	return out
}

func standingsToAPI(in []calculator.Standing, n names) []api.Standing {
	out := make([]api.Standing, 0, len(in))
	for _, s := range in {
		out = append(out, api.Standing{
			Rank:             s.Rank,
			MemberID:         s.MemberID,
			DisplayName:      n[s.MemberID],
			TotalLateDays:    s.TotalLateDays,
			PerformanceScore: s.PerformanceScore,
			OnTimeCount:      s.OnTimeCount,
		})
	}
	return out
}
