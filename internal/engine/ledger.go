package engine

import (
	"context"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/models"
)

// FundLedger folds every cycle of a fund into per-member and per-cycle
// totals. It is recomputed from stored records on every call.
func (e *Engine) FundLedger(ctx context.Context, actor Actor, fundID string) (*calculator.FundLedger, error) {
	fund, cycles, err := e.participantCycles(ctx, actor, fundID)
	if err != nil {
		return nil, err
	}
	ledger := calculator.BuildFundLedger(fund.MemberIDs(), cycles)
	return &ledger, nil
}

// MemberLedger returns one member's history with a row for every cycle.
// Members may read their own ledger; the admin may read anyone's. An empty
// memberID means actor.
func (e *Engine) MemberLedger(ctx context.Context, actor Actor, fundID, memberID string) (*calculator.MemberSummary, error) {
	if memberID == "" {
		memberID = actor.UserID
	}
	fund, cycles, err := e.participantCycles(ctx, actor, fundID)
	if err != nil {
		return nil, err
	}
	if memberID != actor.UserID && !fund.IsAdmin(actor.UserID) {
		return nil, apperr.ErrNotAdmin.WithMessage("only the fund administrator can view other members' ledgers")
	}
	if !fund.IsMember(memberID) {
		return nil, apperr.ErrMemberNotFound
	}
	summary := calculator.BuildMemberLedger(memberID, cycles)
	return &summary, nil
}

// Standings ranks the fund's members by punctuality.
func (e *Engine) Standings(ctx context.Context, actor Actor, fundID string) ([]calculator.Standing, error) {
	fund, cycles, err := e.participantCycles(ctx, actor, fundID)
	if err != nil {
		return nil, err
	}
	ledger := calculator.BuildFundLedger(fund.MemberIDs(), cycles)
	now := e.clock()
	streaks := make(map[string]calculator.Streak, len(fund.Members))
	for _, id := range fund.MemberIDs() {
		streaks[id] = calculator.CalculateStreak(id, cycles, now)
	}
	return calculator.RankMembers(ledger.Members, streaks), nil
}

func (e *Engine) participantCycles(ctx context.Context, actor Actor, fundID string) (*models.Fund, []models.Cycle, error) {
	fund, err := e.loadFund(ctx, fundID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireParticipant(fund, actor); err != nil {
		return nil, nil, err
	}
	cycles, err := e.listCycles(ctx, fund.ID)
	if err != nil {
		return nil, nil, err
	}
	return fund, cycles, nil
}
