package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/audit"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/internal/turnorder"
)

// RosterEntry is one person the organizer expects to join.
type RosterEntry struct {
	Name  string `validate:"required,max=100"`
	Email string `validate:"required,email"`
	// Position is a requested turn position; 0 means no preference.
	Position int `validate:"gte=0,lte=50"`
}

// CreateFundInput describes a new fund.
type CreateFundInput struct {
	Name                string  `validate:"required,min=3,max=100"`
	Currency            string  `validate:"omitempty,len=3,alpha"`
	MonthlyContribution float64 `validate:"gt=0"`
	GroupSize           int     `validate:"gte=2,lte=50"`
	// StartMonth may be any day; cycles are due on the first of each month
	// from StartMonth's month on.
	StartMonth      time.Time     `validate:"required"`
	PaymentWindow   string        `validate:"omitempty,max=5"`
	GracePeriodDays int           `validate:"gte=0,lte=5"`
	TurnOrderPolicy string        `validate:"omitempty,oneof=fixed randomized admin_approval"`
	Roster          []RosterEntry `validate:"required,min=2,max=50,dive"`
}

// CreateFund creates a fund administered by actor, seeds its planned roster
// and cycles, and invites every roster email.
func (e *Engine) CreateFund(ctx context.Context, actor Actor, in CreateFundInput) (*models.Fund, error) {
	if actor.Role != models.RoleOrganizer {
		return nil, apperr.ErrWrongRole.WithMessage("only organizers can create funds")
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	for i := range in.Roster {
		in.Roster[i].Name = strings.TrimSpace(in.Roster[i].Name)
		in.Roster[i].Email = models.NormalizeEmail(in.Roster[i].Email)
	}
	if err := e.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if in.GroupSize != len(in.Roster) {
		return nil, apperr.Validation("group size %d does not match roster of %d", in.GroupSize, len(in.Roster))
	}

	seen := make(map[string]bool, len(in.Roster))
	for _, r := range in.Roster {
		if seen[r.Email] {
			return nil, apperr.ErrDuplicateEmail.WithMessage("duplicate roster email %s", r.Email)
		}
		seen[r.Email] = true
	}

	now := e.clock()
	start := in.StartMonth.In(e.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
	if start.Before(today) {
		return nil, apperr.Validation("start month cannot be in the past")
	}

	window, err := models.ParsePaymentWindow(in.PaymentWindow)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	policy, err := models.ParseTurnOrderPolicy(in.TurnOrderPolicy)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	candidates := make([]turnorder.Candidate, len(in.Roster))
	for i, r := range in.Roster {
		candidates[i] = turnorder.Candidate{Name: r.Name, Email: r.Email, RequestedPosition: r.Position}
	}
	var assignments []turnorder.Assignment
	err = e.withRand(func(rng *rand.Rand) error {
		var err error
		assignments, err = turnorder.Assign(policy, candidates, rng)
		return err
	})
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	currency := in.Currency
	if currency == "" {
		currency = e.currency
	}

	fund := &models.Fund{
		ID:                  newID(),
		Name:                in.Name,
		Currency:            currency,
		MonthlyContribution: in.MonthlyContribution,
		GroupSize:           in.GroupSize,
		StartMonth:          time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, e.loc),
		PaymentWindow:       window,
		GracePeriodDays:     in.GracePeriodDays,
		TurnOrderPolicy:     policy,
		CreatedBy:           actor.UserID,
		CreatedAt:           now,
	}

	invitations := make([]models.Invitation, 0, len(assignments))
	for _, a := range assignments {
		fund.PlannedRoster = append(fund.PlannedRoster, models.PlannedMember{
			Name:     a.Candidate.Name,
			Email:    a.Candidate.Email,
			Position: a.Position,
		})
		invitations = append(invitations, models.Invitation{
			ID:           newID(),
			FundID:       fund.ID,
			Email:        a.Candidate.Email,
			InvitedBy:    actor.UserID,
			TurnPosition: a.Position,
			Status:       models.InvitationPending,
			CreatedAt:    now,
		})
	}

	cycles := e.plannedCycles(fund)
	if err := e.store.CreateFund(ctx, fund, cycles, invitations); err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "create fund")
	}
	e.metrics.CyclesCreated(len(cycles))

	ev := audit.NewEvent(audit.FundCreated, fund.ID, actor.UserID, now)
	ev.Detail = string(policy)
	e.emit(ev)

	slog.Info("Created fund",
		"fund_id", fund.ID,
		"name", fund.Name,
		"group_size", fund.GroupSize,
		"policy", policy,
		"created_by", actor.UserID,
	)
	return fund, nil
}

// ListFunds returns the funds actor administers or has joined.
func (e *Engine) ListFunds(ctx context.Context, actor Actor) ([]*models.Fund, error) {
	funds, err := e.store.ListFundsForUser(ctx, actor.UserID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "list funds")
	}
	return funds, nil
}

// CycleDetail is a cycle plus schedule information derived from the fund.
type CycleDetail struct {
	models.Cycle
	// ScheduledRecipient is the member whose turn position matches this cycle,
	// empty for admin_approval funds or an unfilled position.
	ScheduledRecipient string
	IsDue              bool
}

// FundDetail is the read model of one fund.
type FundDetail struct {
	Fund        *models.Fund
	Cycles      []CycleDetail
	Eligibility []calculator.Eligibility
	Streaks     []calculator.Streak
	Roster      turnorder.Reconciliation
	// MissingCycles counts cycles not created yet. EnsureCycles fills them.
	MissingCycles int
}

// FundDetail returns a fund with its cycles and the per-member projections.
// It never writes; callers wanting a complete schedule run EnsureCycles first.
func (e *Engine) FundDetail(ctx context.Context, actor Actor, fundID string) (*FundDetail, error) {
	fund, err := e.loadFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(fund, actor); err != nil {
		return nil, err
	}
	cycles, err := e.listCycles(ctx, fund.ID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	detail := &FundDetail{
		Fund:          fund,
		Cycles:        make([]CycleDetail, len(cycles)),
		Roster:        turnorder.Reconcile(fund.PlannedRoster, fund.Members),
		MissingCycles: max(0, fund.GroupSize-len(cycles)),
	}
	for i, c := range cycles {
		recipient, _ := turnorder.ScheduledRecipient(fund, c.MonthIndex)
		detail.Cycles[i] = CycleDetail{Cycle: c, ScheduledRecipient: recipient, IsDue: c.IsDue(now)}
	}
	for _, m := range fund.Members {
		detail.Eligibility = append(detail.Eligibility, calculator.CalculateEligibility(m, cycles, now))
		detail.Streaks = append(detail.Streaks, calculator.CalculateStreak(m.UserID, cycles, now))
	}
	return detail, nil
}

// CloseFund closes a fully settled fund and returns its final ledger. Every
// cycle must exist and have its payout executed.
func (e *Engine) CloseFund(ctx context.Context, actor Actor, fundID string) (*calculator.FundLedger, error) {
	fund, err := e.loadOpenFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(fund, actor); err != nil {
		return nil, err
	}
	cycles, err := e.listCycles(ctx, fund.ID)
	if err != nil {
		return nil, err
	}
	if len(cycles) < fund.GroupSize {
		return nil, apperr.ErrFundNotSettled.WithMessage("%d of %d cycles exist", len(cycles), fund.GroupSize)
	}
	for _, c := range cycles {
		if !c.PayoutExecuted {
			return nil, apperr.ErrFundNotSettled.WithMessage("payout for month %d not executed", c.MonthIndex+1)
		}
	}

	now := e.clock()
	if err := e.store.CloseFund(ctx, fund.ID, now); err != nil {
		if errors.Is(err, storage.ErrStale) {
			return nil, apperr.ErrFundClosed.WithError(err)
		}
		return nil, e.translate(err, apperr.ErrFundNotFound, "close fund")
	}

	ledger := calculator.BuildFundLedger(fund.MemberIDs(), cycles)
	e.emit(audit.NewEvent(audit.FundClosed, fund.ID, actor.UserID, now))
	slog.Info("Closed fund", "fund_id", fund.ID, "total_collected", ledger.TotalCollected)
	return &ledger, nil
}

// validationError turns validator output into a caller-facing validation error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.ErrValidation.WithError(err)
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "email":
		msg = fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min", "gte":
		msg = fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		msg = fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		msg = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return apperr.ErrValidation.WithMessage("%s", msg).WithError(err)
}
