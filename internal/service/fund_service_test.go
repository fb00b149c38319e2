package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/engine"
	"github.com/mmynk/chitfund/internal/middleware"
	"github.com/mmynk/chitfund/internal/proofstore"
	"github.com/mmynk/chitfund/internal/storage/sqlite"
	"github.com/mmynk/chitfund/pkg/api"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testServer struct {
	funds *api.FundServiceClient
	auth  *api.AuthServiceClient
	clock *fakeClock
}

// setupTestServer hosts both services behind the real auth interceptors on a
// temporary database and proof directory.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	proofs, err := proofstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create proof store: %v", err)
	}

	clock := &fakeClock{now: time.Date(2023, time.December, 15, 10, 0, 0, 0, time.UTC)}
	eng := engine.New(store, engine.WithClock(clock.Now))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	mux := http.NewServeMux()
	mux.Handle(api.NewFundServiceHandler(
		NewFundService(eng, store, proofs, 1024),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager)),
	))
	mux.Handle(api.NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, store),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager)),
	))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{
		funds: api.NewFundServiceClient(http.DefaultClient, server.URL),
		auth:  api.NewAuthServiceClient(http.DefaultClient, server.URL),
		clock: clock,
	}
}

// withToken builds a request carrying a bearer token.
func withToken[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func (s *testServer) register(t *testing.T, email, name, role string) (string, *api.User) {
	t.Helper()
	resp, err := s.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		DisplayName: name,
		Password:    "password123",
		Role:        role,
	}))
	if err != nil {
		t.Fatalf("Register %s failed: %v", email, err)
	}
	return resp.Msg.Token, resp.Msg.User
}

func expectCode(t *testing.T, err error, code connect.Code, appCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %v error, got nil", code)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("Expected a connect error, got %T: %v", err, err)
	}
	if connectErr.Code() != code {
		t.Fatalf("Code = %v, want %v (%v)", connectErr.Code(), code, err)
	}
	if appCode != "" && connectErr.Meta().Get(middleware.ErrorCodeHeader) != appCode {
		t.Errorf("Error code = %q, want %q", connectErr.Meta().Get(middleware.ErrorCodeHeader), appCode)
	}
}

func TestFundLifecycle(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	orgToken, _ := s.register(t, "org@example.com", "Organizer", "organizer")
	aliceToken, alice := s.register(t, "alice@example.com", "Alice", "member")
	bobToken, bob := s.register(t, "bob@example.com", "Bob", "member")

	created, err := s.funds.CreateFund(ctx, withToken(orgToken, &api.CreateFundRequest{
		Name:                "Office chit",
		MonthlyContribution: 1000,
		GroupSize:           2,
		StartMonth:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		PaymentWindow:       "1-7",
		TurnOrderPolicy:     "fixed",
		Roster: []api.RosterEntry{
			{Name: "Alice", Email: "alice@example.com"},
			{Name: "Bob", Email: "bob@example.com"},
		},
	}))
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}
	fundID := created.Msg.Fund.ID
	if created.Msg.Fund.Currency != "INR" || created.Msg.Fund.PaymentWindow != "1-7" {
		t.Errorf("Unexpected fund defaults: %+v", created.Msg.Fund)
	}

	// Alice accepts her invitation, Bob joins directly.
	invs, err := s.funds.ListInvitations(ctx, withToken(aliceToken, &api.ListInvitationsRequest{}))
	if err != nil {
		t.Fatalf("ListInvitations failed: %v", err)
	}
	if len(invs.Msg.Invitations) != 1 || invs.Msg.Invitations[0].TurnPosition != 1 {
		t.Fatalf("Expected one invitation at position 1, got %+v", invs.Msg.Invitations)
	}
	if _, err := s.funds.AcceptInvitation(ctx, withToken(aliceToken, &api.AcceptInvitationRequest{
		InvitationID:  invs.Msg.Invitations[0].ID,
		PayoutAccount: "alice@upi",
	})); err != nil {
		t.Fatalf("AcceptInvitation failed: %v", err)
	}
	joined, err := s.funds.JoinFund(ctx, withToken(bobToken, &api.JoinFundRequest{FundID: fundID, PayoutAccount: "bob@upi"}))
	if err != nil {
		t.Fatalf("JoinFund failed: %v", err)
	}
	if joined.Msg.Member.TurnPosition != 2 || joined.Msg.Member.DisplayName != "Bob" {
		t.Errorf("Unexpected member: %+v", joined.Msg.Member)
	}

	got, err := s.funds.GetFund(ctx, withToken(orgToken, &api.GetFundRequest{FundID: fundID}))
	if err != nil {
		t.Fatalf("GetFund failed: %v", err)
	}
	if len(got.Msg.Cycles) != 2 || got.Msg.MissingCycles != 0 {
		t.Fatalf("Expected 2 cycles, got %d (missing %d)", len(got.Msg.Cycles), got.Msg.MissingCycles)
	}
	if got.Msg.Cycles[0].ScheduledRecipient != alice.ID || got.Msg.Cycles[1].ScheduledRecipient != bob.ID {
		t.Errorf("Scheduled recipients = %q, %q", got.Msg.Cycles[0].ScheduledRecipient, got.Msg.Cycles[1].ScheduledRecipient)
	}
	if len(got.Msg.Roster.Matched) != 2 {
		t.Errorf("Expected both planned slots matched, got %+v", got.Msg.Roster)
	}
	cycleID := got.Msg.Cycles[0].ID

	upload, err := s.funds.UploadProof(ctx, withToken(aliceToken, &api.UploadProofRequest{
		FundID:   fundID,
		Filename: "receipt.txt",
		Data:     []byte("paid 1000"),
	}))
	if err != nil {
		t.Fatalf("UploadProof failed: %v", err)
	}

	s.clock.Set(time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC))
	submitted, err := s.funds.SubmitPayment(ctx, withToken(aliceToken, &api.SubmitPaymentRequest{
		FundID:   fundID,
		CycleID:  cycleID,
		ProofRef: upload.Msg.ProofRef,
	}))
	if err != nil {
		t.Fatalf("SubmitPayment failed: %v", err)
	}
	if submitted.Msg.Payment.Status != "pending" || submitted.Msg.Payment.Amount != 1000 {
		t.Errorf("Unexpected payment: %+v", submitted.Msg.Payment)
	}

	_, err = s.funds.SubmitPayment(ctx, withToken(aliceToken, &api.SubmitPaymentRequest{
		FundID: fundID, CycleID: cycleID, ProofRef: upload.Msg.ProofRef,
	}))
	expectCode(t, err, connect.CodeAlreadyExists, "ALREADY_SUBMITTED")

	decision := &api.PaymentDecisionRequest{FundID: fundID, CycleID: cycleID, RecordID: submitted.Msg.Payment.ID}
	_, err = s.funds.ApprovePayment(ctx, withToken(bobToken, decision))
	expectCode(t, err, connect.CodePermissionDenied, "NOT_ADMIN")

	s.clock.Set(time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC))
	approved, err := s.funds.ApprovePayment(ctx, withToken(orgToken, decision))
	if err != nil {
		t.Fatalf("ApprovePayment failed: %v", err)
	}
	if approved.Msg.Payment.PenaltyDays != 5 || math.Abs(approved.Msg.Payment.PenaltyAmount-1000.0/30*5) > 1e-9 {
		t.Errorf("Penalty = %d days, %v", approved.Msg.Payment.PenaltyDays, approved.Msg.Payment.PenaltyAmount)
	}
	_, err = s.funds.ApprovePayment(ctx, withToken(orgToken, decision))
	expectCode(t, err, connect.CodeFailedPrecondition, "INVALID_STATE")

	_, err = s.funds.ExecutePayout(ctx, withToken(orgToken, &api.ExecutePayoutRequest{
		FundID: fundID, CycleID: cycleID, ProofRef: "local://transfer",
	}))
	expectCode(t, err, connect.CodeFailedPrecondition, "INVALID_STATE")

	if _, err := s.funds.AssignPayout(ctx, withToken(orgToken, &api.AssignPayoutRequest{
		FundID: fundID, CycleID: cycleID, RecipientID: alice.ID,
	})); err != nil {
		t.Fatalf("AssignPayout failed: %v", err)
	}
	paid, err := s.funds.ExecutePayout(ctx, withToken(orgToken, &api.ExecutePayoutRequest{
		FundID: fundID, CycleID: cycleID, ProofRef: "local://transfer",
	}))
	if err != nil {
		t.Fatalf("ExecutePayout failed: %v", err)
	}
	if !paid.Msg.Cycle.PayoutExecuted || paid.Msg.Cycle.PayoutRecipient != alice.ID {
		t.Errorf("Unexpected cycle: %+v", paid.Msg.Cycle)
	}

	ledger, err := s.funds.GetFundLedger(ctx, withToken(bobToken, &api.GetFundLedgerRequest{FundID: fundID}))
	if err != nil {
		t.Fatalf("GetFundLedger failed: %v", err)
	}
	if ledger.Msg.Ledger.TotalCollected != 1000 || ledger.Msg.Ledger.TotalPenalties != 166.67 {
		t.Errorf("Totals = %v collected, %v penalties", ledger.Msg.Ledger.TotalCollected, ledger.Msg.Ledger.TotalPenalties)
	}

	mine, err := s.funds.GetMemberLedger(ctx, withToken(aliceToken, &api.GetMemberLedgerRequest{FundID: fundID}))
	if err != nil {
		t.Fatalf("GetMemberLedger failed: %v", err)
	}
	if mine.Msg.Summary.MemberID != alice.ID || mine.Msg.Summary.LateCount != 1 || len(mine.Msg.Summary.History) != 2 {
		t.Errorf("Unexpected summary: %+v", mine.Msg.Summary)
	}

	standings, err := s.funds.GetStandings(ctx, withToken(orgToken, &api.GetStandingsRequest{FundID: fundID}))
	if err != nil {
		t.Fatalf("GetStandings failed: %v", err)
	}
	if len(standings.Msg.Standings) != 2 || standings.Msg.Standings[0].DisplayName == "" {
		t.Errorf("Unexpected standings: %+v", standings.Msg.Standings)
	}

	log, err := s.funds.GetPaymentLog(ctx, withToken(orgToken, &api.GetPaymentLogRequest{FundID: fundID}))
	if err != nil {
		t.Fatalf("GetPaymentLog failed: %v", err)
	}
	if len(log.Msg.Entries) != 1 {
		t.Errorf("Expected one log entry, got %d", len(log.Msg.Entries))
	}

	// The second cycle is still open, so the fund cannot close yet.
	_, err = s.funds.CloseFund(ctx, withToken(orgToken, &api.CloseFundRequest{FundID: fundID}))
	expectCode(t, err, connect.CodeFailedPrecondition, "FUND_NOT_SETTLED")

	funds, err := s.funds.ListFunds(ctx, withToken(bobToken, &api.ListFundsRequest{}))
	if err != nil {
		t.Fatalf("ListFunds failed: %v", err)
	}
	if len(funds.Msg.Funds) != 1 || funds.Msg.Funds[0].ID != fundID {
		t.Errorf("Unexpected funds: %+v", funds.Msg.Funds)
	}
}

func TestFundServiceRequiresAuth(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.funds.ListFunds(context.Background(), connect.NewRequest(&api.ListFundsRequest{}))
	expectCode(t, err, connect.CodeUnauthenticated, "")

	_, err = s.funds.ListFunds(context.Background(), withToken("forged", &api.ListFundsRequest{}))
	expectCode(t, err, connect.CodeUnauthenticated, "")
}

func TestCreateFundErrors(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	orgToken, _ := s.register(t, "org@example.com", "Organizer", "organizer")
	memberToken, _ := s.register(t, "m@example.com", "Member", "member")

	valid := func() *api.CreateFundRequest {
		return &api.CreateFundRequest{
			Name:                "Chit",
			MonthlyContribution: 500,
			GroupSize:           2,
			StartMonth:          time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			Roster: []api.RosterEntry{
				{Name: "A", Email: "a@example.com"},
				{Name: "B", Email: "b@example.com"},
			},
		}
	}

	_, err := s.funds.CreateFund(ctx, withToken(memberToken, valid()))
	expectCode(t, err, connect.CodePermissionDenied, "WRONG_ROLE")

	dup := valid()
	dup.Roster[1].Email = "A@EXAMPLE.COM"
	_, err = s.funds.CreateFund(ctx, withToken(orgToken, dup))
	expectCode(t, err, connect.CodeInvalidArgument, "DUPLICATE_EMAIL")

	short := valid()
	short.Name = "ab"
	_, err = s.funds.CreateFund(ctx, withToken(orgToken, short))
	expectCode(t, err, connect.CodeInvalidArgument, "VALIDATION_ERROR")

	_, err = s.funds.GetFund(ctx, withToken(orgToken, &api.GetFundRequest{FundID: "missing"}))
	expectCode(t, err, connect.CodeNotFound, "FUND_NOT_FOUND")
}

func TestUploadProofLimits(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	orgToken, _ := s.register(t, "org@example.com", "Organizer", "organizer")
	strangerToken, _ := s.register(t, "x@example.com", "Stranger", "member")

	created, err := s.funds.CreateFund(ctx, withToken(orgToken, &api.CreateFundRequest{
		Name:                "Chit",
		MonthlyContribution: 500,
		GroupSize:           2,
		StartMonth:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Roster: []api.RosterEntry{
			{Name: "A", Email: "a@example.com"},
			{Name: "B", Email: "b@example.com"},
		},
	}))
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}
	fundID := created.Msg.Fund.ID

	_, err = s.funds.UploadProof(ctx, withToken(orgToken, &api.UploadProofRequest{FundID: fundID, Filename: "big.bin", Data: make([]byte, 2048)}))
	expectCode(t, err, connect.CodeInvalidArgument, "")
	_, err = s.funds.UploadProof(ctx, withToken(orgToken, &api.UploadProofRequest{FundID: fundID, Filename: "empty.bin"}))
	expectCode(t, err, connect.CodeInvalidArgument, "")
	_, err = s.funds.UploadProof(ctx, withToken(strangerToken, &api.UploadProofRequest{FundID: fundID, Filename: "r.txt", Data: []byte("x")}))
	expectCode(t, err, connect.CodePermissionDenied, "NOT_MEMBER")

	resp, err := s.funds.UploadProof(ctx, withToken(orgToken, &api.UploadProofRequest{FundID: fundID, Filename: "r.txt", Data: []byte("x")}))
	if err != nil {
		t.Fatalf("UploadProof failed: %v", err)
	}
	if resp.Msg.ProofRef == "" {
		t.Error("Expected a proof reference")
	}
}

func TestDisputesOverRPC(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	orgToken, _ := s.register(t, "org@example.com", "Organizer", "organizer")
	aToken, _ := s.register(t, "a@example.com", "A", "member")
	bToken, _ := s.register(t, "b@example.com", "B", "member")

	created, err := s.funds.CreateFund(ctx, withToken(orgToken, &api.CreateFundRequest{
		Name:                "Chit",
		MonthlyContribution: 500,
		GroupSize:           2,
		StartMonth:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Roster: []api.RosterEntry{
			{Name: "A", Email: "a@example.com"},
			{Name: "B", Email: "b@example.com"},
		},
	}))
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}
	fundID := created.Msg.Fund.ID
	for _, tok := range []string{aToken, bToken} {
		if _, err := s.funds.JoinFund(ctx, withToken(tok, &api.JoinFundRequest{FundID: fundID, PayoutAccount: "acct"})); err != nil {
			t.Fatalf("JoinFund failed: %v", err)
		}
	}

	raised, err := s.funds.RaiseDispute(ctx, withToken(aToken, &api.RaiseDisputeRequest{
		FundID: fundID, Subject: "Penalty", Message: "I paid on time",
	}))
	if err != nil {
		t.Fatalf("RaiseDispute failed: %v", err)
	}
	disputeID := raised.Msg.Dispute.ID

	_, err = s.funds.ReplyDispute(ctx, withToken(bToken, &api.ReplyDisputeRequest{DisputeID: disputeID, Message: "+1"}))
	expectCode(t, err, connect.CodePermissionDenied, "FORBIDDEN")

	if _, err := s.funds.ReplyDispute(ctx, withToken(orgToken, &api.ReplyDisputeRequest{DisputeID: disputeID, Message: "Checking"})); err != nil {
		t.Fatalf("ReplyDispute failed: %v", err)
	}
	resolved, err := s.funds.ResolveDispute(ctx, withToken(orgToken, &api.ResolveDisputeRequest{DisputeID: disputeID}))
	if err != nil {
		t.Fatalf("ResolveDispute failed: %v", err)
	}
	if resolved.Msg.Dispute.Status != "resolved" || len(resolved.Msg.Dispute.Messages) != 2 {
		t.Errorf("Unexpected dispute: %+v", resolved.Msg.Dispute)
	}

	list, err := s.funds.ListDisputes(ctx, withToken(bToken, &api.ListDisputesRequest{FundID: fundID}))
	if err != nil {
		t.Fatalf("ListDisputes failed: %v", err)
	}
	if len(list.Msg.Disputes) != 1 {
		t.Errorf("Expected one dispute, got %d", len(list.Msg.Disputes))
	}

	if _, err := s.funds.SetMemberLock(ctx, withToken(orgToken, &api.SetMemberLockRequest{
		FundID: fundID, MemberID: "nobody", Locked: true,
	})); err == nil {
		t.Error("Expected an error locking a non-member")
	} else {
		expectCode(t, err, connect.CodeNotFound, "MEMBER_NOT_FOUND")
	}
}
