package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/engine"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/proofstore"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/pkg/api"
)

// DefaultMaxProofBytes bounds an uploaded proof when no limit is configured.
const DefaultMaxProofBytes = 5 << 20

// FundService implements the Connect FundService on top of the engine.
type FundService struct {
	engine        *engine.Engine
	users         storage.UserStore
	proofs        proofstore.Store
	maxProofBytes int64
}

// NewFundService creates a FundService. maxProofBytes <= 0 selects
// DefaultMaxProofBytes.
func NewFundService(eng *engine.Engine, users storage.UserStore, proofs proofstore.Store, maxProofBytes int64) *FundService {
	if maxProofBytes <= 0 {
		maxProofBytes = DefaultMaxProofBytes
	}
	return &FundService{engine: eng, users: users, proofs: proofs, maxProofBytes: maxProofBytes}
}

var _ api.FundServiceHandler = (*FundService)(nil)

// CreateFund creates a fund administered by the caller.
func (s *FundService) CreateFund(ctx context.Context, req *connect.Request[api.CreateFundRequest]) (*connect.Response[api.CreateFundResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateFund request received",
		"name", req.Msg.Name,
		"group_size", req.Msg.GroupSize,
		"roster_count", len(req.Msg.Roster),
	)

	in := engine.CreateFundInput{
		Name:                req.Msg.Name,
		Currency:            req.Msg.Currency,
		MonthlyContribution: req.Msg.MonthlyContribution,
		GroupSize:           req.Msg.GroupSize,
		StartMonth:          req.Msg.StartMonth,
		PaymentWindow:       req.Msg.PaymentWindow,
		GracePeriodDays:     req.Msg.GracePeriodDays,
		TurnOrderPolicy:     req.Msg.TurnOrderPolicy,
		Roster:              make([]engine.RosterEntry, 0, len(req.Msg.Roster)),
	}
	for _, r := range req.Msg.Roster {
		in.Roster = append(in.Roster, engine.RosterEntry{Name: r.Name, Email: r.Email, Position: r.Position})
	}

	fund, err := s.engine.CreateFund(ctx, actor, in)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Fund created", "fund_id", fund.ID)
	return connect.NewResponse(&api.CreateFundResponse{Fund: fundToAPI(fund, names{})}), nil
}

// GetFund returns a fund with its cycles and member projections. Missing
// cycles are backfilled before the read.
func (s *FundService) GetFund(ctx context.Context, req *connect.Request[api.GetFundRequest]) (*connect.Response[api.GetFundResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := s.engine.FundDetail(ctx, actor, req.Msg.FundID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if detail.MissingCycles > 0 && !detail.Fund.IsClosed() {
		if _, err := s.engine.EnsureCycles(ctx, detail.Fund.ID); err != nil {
			return nil, toConnectError(err)
		}
		if detail, err = s.engine.FundDetail(ctx, actor, req.Msg.FundID); err != nil {
			return nil, toConnectError(err)
		}
	}

	n := s.displayNames(ctx, detail.Fund.MemberIDs()...)
	resp := &api.GetFundResponse{
		Fund:          fundToAPI(detail.Fund, n),
		Cycles:        make([]api.Cycle, 0, len(detail.Cycles)),
		Eligibility:   eligibilityToAPI(detail.Eligibility),
		Streaks:       streaksToAPI(detail.Streaks),
		Roster:        rosterToAPI(detail.Roster, n),
		MissingCycles: detail.MissingCycles,
	}
	for _, c := range detail.Cycles {
		resp.Cycles = append(resp.Cycles, cycleDetailToAPI(c))
	}
	return connect.NewResponse(resp), nil
}

// ListFunds lists the funds the caller administers or has joined.
func (s *FundService) ListFunds(ctx context.Context, req *connect.Request[api.ListFundsRequest]) (*connect.Response[api.ListFundsResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	funds, err := s.engine.ListFunds(ctx, actor)
	if err != nil {
		return nil, toConnectError(err)
	}

	var ids []string
	for _, f := range funds {
		ids = append(ids, f.MemberIDs()...)
	}
	n := s.displayNames(ctx, ids...)

	resp := &api.ListFundsResponse{Funds: make([]api.Fund, 0, len(funds))}
	for _, f := range funds {
		resp.Funds = append(resp.Funds, *fundToAPI(f, n))
	}
	return connect.NewResponse(resp), nil
}

// JoinFund adds the caller to a fund directly.
func (s *FundService) JoinFund(ctx context.Context, req *connect.Request[api.JoinFundRequest]) (*connect.Response[api.JoinFundResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("JoinFund request received", "fund_id", req.Msg.FundID, "user_id", actor.UserID)

	member, err := s.engine.JoinFund(ctx, actor, req.Msg.FundID, req.Msg.PayoutAccount)
	if err != nil {
		return nil, toConnectError(err)
	}
	m := memberToAPI(*member, s.displayNames(ctx, member.UserID))
	return connect.NewResponse(&api.JoinFundResponse{Member: &m}), nil
}

// InviteMembers invites more emails to a fund.
func (s *FundService) InviteMembers(ctx context.Context, req *connect.Request[api.InviteMembersRequest]) (*connect.Response[api.InviteMembersResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("InviteMembers request received", "fund_id", req.Msg.FundID, "emails_count", len(req.Msg.Emails))

	invs, err := s.engine.InviteMembers(ctx, actor, req.Msg.FundID, req.Msg.Emails)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.InviteMembersResponse{Invitations: invitationsToAPI(invs)}), nil
}

// ListInvitations lists a fund's invitations, or the caller's pending ones
// when no fund is given.
func (s *FundService) ListInvitations(ctx context.Context, req *connect.Request[api.ListInvitationsRequest]) (*connect.Response[api.ListInvitationsResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	var invs []models.Invitation
	if req.Msg.FundID == "" {
		invs, err = s.engine.ListMyInvitations(ctx, actor)
	} else {
		invs, err = s.engine.ListInvitations(ctx, actor, req.Msg.FundID)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListInvitationsResponse{Invitations: invitationsToAPI(invs)}), nil
}

// AcceptInvitation joins the invitation's fund.
func (s *FundService) AcceptInvitation(ctx context.Context, req *connect.Request[api.AcceptInvitationRequest]) (*connect.Response[api.AcceptInvitationResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AcceptInvitation request received", "invitation_id", req.Msg.InvitationID, "user_id", actor.UserID)

	member, err := s.engine.AcceptInvitation(ctx, actor, req.Msg.InvitationID, req.Msg.PayoutAccount)
	if err != nil {
		return nil, toConnectError(err)
	}
	m := memberToAPI(*member, s.displayNames(ctx, member.UserID))
	return connect.NewResponse(&api.AcceptInvitationResponse{Member: &m}), nil
}

func (s *FundService) DeclineInvitation(ctx context.Context, req *connect.Request[api.DeclineInvitationRequest]) (*connect.Response[api.DeclineInvitationResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.engine.DeclineInvitation(ctx, actor, req.Msg.InvitationID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeclineInvitationResponse{}), nil
}

// UploadProof stores a payment or payout proof and returns its reference.
func (s *FundService) UploadProof(ctx context.Context, req *connect.Request[api.UploadProofRequest]) (*connect.Response[api.UploadProofResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UploadProof request received",
		"fund_id", req.Msg.FundID,
		"filename", req.Msg.Filename,
		"size", len(req.Msg.Data),
	)

	switch {
	case strings.TrimSpace(req.Msg.Filename) == "":
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("filename is required"))
	case len(req.Msg.Data) == 0:
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("proof is empty"))
	case int64(len(req.Msg.Data)) > s.maxProofBytes:
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("proof exceeds %d bytes", s.maxProofBytes))
	}
	if err := s.engine.AuthorizeUpload(ctx, actor, req.Msg.FundID); err != nil {
		return nil, toConnectError(err)
	}

	contentType := req.Msg.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Msg.Data)
	}
	ref, err := s.proofs.Put(ctx, req.Msg.FundID, req.Msg.Filename, contentType, bytes.NewReader(req.Msg.Data))
	if err != nil {
		slog.Error("UploadProof failed", "fund_id", req.Msg.FundID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to store proof"))
	}

	slog.Info("Proof stored", "fund_id", req.Msg.FundID, "proof_ref", ref)
	return connect.NewResponse(&api.UploadProofResponse{ProofRef: ref}), nil
}

// SubmitPayment records the caller's payment for a cycle.
func (s *FundService) SubmitPayment(ctx context.Context, req *connect.Request[api.SubmitPaymentRequest]) (*connect.Response[api.SubmitPaymentResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("SubmitPayment request received",
		"fund_id", req.Msg.FundID,
		"cycle_id", req.Msg.CycleID,
		"user_id", actor.UserID,
	)

	rec, err := s.engine.SubmitPayment(ctx, actor, engine.SubmitPaymentInput{
		FundID:   req.Msg.FundID,
		CycleID:  req.Msg.CycleID,
		Amount:   req.Msg.Amount,
		ProofRef: req.Msg.ProofRef,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SubmitPaymentResponse{Payment: paymentToAPI(rec)}), nil
}

func (s *FundService) ApprovePayment(ctx context.Context, req *connect.Request[api.PaymentDecisionRequest]) (*connect.Response[api.PaymentDecisionResponse], error) {
	return s.decide(ctx, req.Msg, s.engine.ApprovePayment)
}

func (s *FundService) RejectPayment(ctx context.Context, req *connect.Request[api.PaymentDecisionRequest]) (*connect.Response[api.PaymentDecisionResponse], error) {
	return s.decide(ctx, req.Msg, s.engine.RejectPayment)
}

type decisionFunc func(context.Context, engine.Actor, engine.PaymentDecision) (*models.PaymentRecord, error)

func (s *FundService) decide(ctx context.Context, msg *api.PaymentDecisionRequest, fn decisionFunc) (*connect.Response[api.PaymentDecisionResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := fn(ctx, actor, engine.PaymentDecision{
		FundID:   msg.FundID,
		CycleID:  msg.CycleID,
		RecordID: msg.RecordID,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.PaymentDecisionResponse{Payment: paymentToAPI(rec)}), nil
}

// AssignPayout records the recipient of a cycle's pool.
func (s *FundService) AssignPayout(ctx context.Context, req *connect.Request[api.AssignPayoutRequest]) (*connect.Response[api.PayoutResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	cycle, err := s.engine.AssignPayoutRecipient(ctx, actor, req.Msg.FundID, req.Msg.CycleID, req.Msg.RecipientID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.PayoutResponse{Cycle: cycleToAPI(*cycle)}), nil
}

// ExecutePayout marks a cycle's payout as sent.
func (s *FundService) ExecutePayout(ctx context.Context, req *connect.Request[api.ExecutePayoutRequest]) (*connect.Response[api.PayoutResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ExecutePayout request received", "fund_id", req.Msg.FundID, "cycle_id", req.Msg.CycleID)

	cycle, err := s.engine.ExecutePayout(ctx, actor, req.Msg.FundID, req.Msg.CycleID, req.Msg.ProofRef)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.PayoutResponse{Cycle: cycleToAPI(*cycle)}), nil
}

func (s *FundService) SetMemberLock(ctx context.Context, req *connect.Request[api.SetMemberLockRequest]) (*connect.Response[api.SetMemberLockResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.engine.SetMemberLock(ctx, actor, req.Msg.FundID, req.Msg.MemberID, req.Msg.Locked); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SetMemberLockResponse{}), nil
}

// CloseFund closes a settled fund and returns its final ledger.
func (s *FundService) CloseFund(ctx context.Context, req *connect.Request[api.CloseFundRequest]) (*connect.Response[api.FundLedgerResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CloseFund request received", "fund_id", req.Msg.FundID)

	ledger, err := s.engine.CloseFund(ctx, actor, req.Msg.FundID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.FundLedgerResponse{Ledger: fundLedgerToAPI(ledger)}), nil
}

func (s *FundService) GetFundLedger(ctx context.Context, req *connect.Request[api.GetFundLedgerRequest]) (*connect.Response[api.FundLedgerResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	ledger, err := s.engine.FundLedger(ctx, actor, req.Msg.FundID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.FundLedgerResponse{Ledger: fundLedgerToAPI(ledger)}), nil
}

func (s *FundService) GetMemberLedger(ctx context.Context, req *connect.Request[api.GetMemberLedgerRequest]) (*connect.Response[api.GetMemberLedgerResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.engine.MemberLedger(ctx, actor, req.Msg.FundID, req.Msg.MemberID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetMemberLedgerResponse{Summary: memberSummaryToAPI(*summary)}), nil
}

func (s *FundService) GetStandings(ctx context.Context, req *connect.Request[api.GetStandingsRequest]) (*connect.Response[api.GetStandingsResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	standings, err := s.engine.Standings(ctx, actor, req.Msg.FundID)
	if err != nil {
		return nil, toConnectError(err)
	}
	ids := make([]string, 0, len(standings))
	for _, st := range standings {
		ids = append(ids, st.MemberID)
	}
	return connect.NewResponse(&api.GetStandingsResponse{
		Standings: standingsToAPI(standings, s.displayNames(ctx, ids...)),
	}), nil
}

func (s *FundService) GetPaymentLog(ctx context.Context, req *connect.Request[api.GetPaymentLogRequest]) (*connect.Response[api.GetPaymentLogResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.engine.PaymentLog(ctx, actor, req.Msg.FundID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetPaymentLogResponse{Entries: paymentLogToAPI(entries)}), nil
}

func (s *FundService) RaiseDispute(ctx context.Context, req *connect.Request[api.RaiseDisputeRequest]) (*connect.Response[api.DisputeResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RaiseDispute request received", "fund_id", req.Msg.FundID, "user_id", actor.UserID)

	d, err := s.engine.RaiseDispute(ctx, actor, req.Msg.FundID, req.Msg.Subject, req.Msg.Message)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DisputeResponse{Dispute: disputeToAPI(d)}), nil
}

func (s *FundService) ReplyDispute(ctx context.Context, req *connect.Request[api.ReplyDisputeRequest]) (*connect.Response[api.DisputeResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	d, err := s.engine.ReplyDispute(ctx, actor, req.Msg.DisputeID, req.Msg.Message)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DisputeResponse{Dispute: disputeToAPI(d)}), nil
}

func (s *FundService) ResolveDispute(ctx context.Context, req *connect.Request[api.ResolveDisputeRequest]) (*connect.Response[api.DisputeResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	d, err := s.engine.ResolveDispute(ctx, actor, req.Msg.DisputeID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DisputeResponse{Dispute: disputeToAPI(d)}), nil
}

func (s *FundService) ListDisputes(ctx context.Context, req *connect.Request[api.ListDisputesRequest]) (*connect.Response[api.ListDisputesResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	disputes, err := s.engine.ListDisputes(ctx, actor, req.Msg.FundID)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &api.ListDisputesResponse{Disputes: make([]api.Dispute, 0, len(disputes))}
	for i := range disputes {
		resp.Disputes = append(resp.Disputes, *disputeToAPI(&disputes[i]))
	}
	return connect.NewResponse(resp), nil
}

// displayNames looks up display names for ids. Lookup failures only cost
// the names, never the response.
func (s *FundService) displayNames(ctx context.Context, ids ...string) names {
	n := names{}
	if len(ids) == 0 {
		return n
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		slog.Warn("Failed to load display names", "count", len(ids), "error", err)
		return n
	}
	for id, u := range users {
		n[id] = u.DisplayName
	}
	return n
}
