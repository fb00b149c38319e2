package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var startMonth = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func testFund(size int) *models.Fund {
	fund := &models.Fund{
		ID:                  uuid.New().String(),
		Name:                "Office chit",
		Currency:            "INR",
		MonthlyContribution: 1000,
		GroupSize:           size,
		StartMonth:          startMonth,
		PaymentWindow:       models.DefaultPaymentWindow,
		GracePeriodDays:     2,
		TurnOrderPolicy:     models.PolicyFixed,
		CreatedBy:           "organizer",
		CreatedAt:           startMonth.AddDate(0, -1, 0),
	}
	for i := 0; i < size; i++ {
		fund.PlannedRoster = append(fund.PlannedRoster, models.PlannedMember{
			Name:     fmt.Sprintf("Member %d", i+1),
			Email:    fmt.Sprintf("m%d@example.com", i+1),
			Position: i + 1,
		})
	}
	return fund
}

func testCycles(fund *models.Fund) []models.Cycle {
	cycles := make([]models.Cycle, fund.GroupSize)
	for i := range cycles {
		cycles[i] = models.Cycle{
			ID:         uuid.New().String(),
			FundID:     fund.ID,
			MonthIndex: i,
			DueDate:    fund.DueDate(i, time.UTC),
		}
	}
	return cycles
}

func createFund(t *testing.T, store *SQLiteStore, size int) (*models.Fund, []models.Cycle) {
	t.Helper()
	fund := testFund(size)
	cycles := testCycles(fund)
	if err := store.CreateFund(context.Background(), fund, cycles, nil); err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}
	return fund, cycles
}

func TestFunds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateFund and GetFund round trip", func(t *testing.T) {
		fund, _ := createFund(t, store, 3)

		got, err := store.GetFund(ctx, fund.ID)
		if err != nil {
			t.Fatalf("GetFund failed: %v", err)
		}
		if got.Name != fund.Name || got.GroupSize != 3 || got.MonthlyContribution != 1000 {
			t.Errorf("fund fields mismatch: %+v", got)
		}
		if got.PaymentWindow != models.DefaultPaymentWindow {
			t.Errorf("PaymentWindow = %v, want 1-7", got.PaymentWindow)
		}
		if !got.StartMonth.Equal(startMonth) {
			t.Errorf("StartMonth = %v, want %v", got.StartMonth, startMonth)
		}
		if len(got.PlannedRoster) != 3 || got.PlannedRoster[2].Position != 3 {
			t.Errorf("planned roster = %+v", got.PlannedRoster)
		}
		if got.IsClosed() {
			t.Error("new fund should be open")
		}
	})

	t.Run("GetFund returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetFund(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("CloseFund only once", func(t *testing.T) {
		fund, _ := createFund(t, store, 2)
		at := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
		if err := store.CloseFund(ctx, fund.ID, at); err != nil {
			t.Fatalf("CloseFund failed: %v", err)
		}
		if err := store.CloseFund(ctx, fund.ID, at); !errors.Is(err, storage.ErrStale) {
			t.Errorf("second CloseFund err = %v, want ErrStale", err)
		}
		got, _ := store.GetFund(ctx, fund.ID)
		if got.ClosedAt == nil || !got.ClosedAt.Equal(at) {
			t.Errorf("ClosedAt = %v, want %v", got.ClosedAt, at)
		}
		ids, err := store.ListOpenFundIDs(ctx)
		if err != nil {
			t.Fatalf("ListOpenFundIDs failed: %v", err)
		}
		for _, id := range ids {
			if id == fund.ID {
				t.Error("closed fund listed as open")
			}
		}
	})
}

func TestMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	joined := time.Date(2023, time.December, 20, 0, 0, 0, 0, time.UTC)

	t.Run("AddMember claims slot and accepts invitation", func(t *testing.T) {
		fund, _ := createFund(t, store, 2)
		inv := models.Invitation{
			ID: uuid.New().String(), FundID: fund.ID, Email: "m2@example.com",
			InvitedBy: fund.CreatedBy, TurnPosition: 2, Status: models.InvitationPending, CreatedAt: joined,
		}
		if err := store.CreateInvitations(ctx, []models.Invitation{inv}); err != nil {
			t.Fatalf("CreateInvitations failed: %v", err)
		}

		member := models.Member{UserID: "u2", TurnPosition: 2, InvitedEmail: "m2@example.com", JoinedAt: joined}
		if err := store.AddMember(ctx, fund.ID, member, 2, inv.ID); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		got, _ := store.GetFund(ctx, fund.ID)
		if len(got.Members) != 1 || got.Members[0].UserID != "u2" {
			t.Fatalf("members = %+v", got.Members)
		}
		if got.PlannedRoster[1].UserID != "u2" {
			t.Errorf("planned slot 2 not claimed: %+v", got.PlannedRoster[1])
		}
		stored, _ := store.GetInvitation(ctx, inv.ID)
		if stored.Status != models.InvitationAccepted || stored.RespondedAt == nil {
			t.Errorf("invitation = %+v, want accepted", stored)
		}

		// Accepting the same invitation twice must fail and roll back the member.
		again := models.Member{UserID: "u3", TurnPosition: 1, JoinedAt: joined}
		if err := store.AddMember(ctx, fund.ID, again, 0, inv.ID); !errors.Is(err, storage.ErrStale) {
			t.Errorf("err = %v, want ErrStale", err)
		}
		got, _ = store.GetFund(ctx, fund.ID)
		if len(got.Members) != 1 {
			t.Errorf("rolled back member still present: %+v", got.Members)
		}
	})

	t.Run("AddMember rejects duplicates", func(t *testing.T) {
		fund, _ := createFund(t, store, 3)
		m := models.Member{UserID: "dup", TurnPosition: 1, JoinedAt: joined}
		if err := store.AddMember(ctx, fund.ID, m, 0, ""); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		if err := store.AddMember(ctx, fund.ID, m, 0, ""); !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("same user err = %v, want ErrDuplicate", err)
		}
		other := models.Member{UserID: "other", TurnPosition: 1, JoinedAt: joined}
		if err := store.AddMember(ctx, fund.ID, other, 0, ""); !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("same position err = %v, want ErrDuplicate", err)
		}
	})

	t.Run("AddMember enforces capacity under concurrency", func(t *testing.T) {
		fund, _ := createFund(t, store, 3)

		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m := models.Member{UserID: fmt.Sprintf("racer-%d", i), TurnPosition: 10 + i, JoinedAt: joined}
				errs[i] = store.AddMember(ctx, fund.ID, m, 0, "")
			}(i)
		}
		wg.Wait()

		added := 0
		for _, err := range errs {
			switch {
			case err == nil:
				added++
			case errors.Is(err, storage.ErrCapacity):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		if added != 3 {
			t.Errorf("added %d members, want 3", added)
		}
		got, _ := store.GetFund(ctx, fund.ID)
		if len(got.Members) != 3 {
			t.Errorf("stored %d members, want 3", len(got.Members))
		}
	})

	t.Run("SetMemberLock", func(t *testing.T) {
		fund, _ := createFund(t, store, 2)
		m := models.Member{UserID: "lockme", TurnPosition: 1, JoinedAt: joined}
		if err := store.AddMember(ctx, fund.ID, m, 0, ""); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		if err := store.SetMemberLock(ctx, fund.ID, "lockme", true); err != nil {
			t.Fatalf("SetMemberLock failed: %v", err)
		}
		got, _ := store.GetFund(ctx, fund.ID)
		if !got.Members[0].IsLocked {
			t.Error("member should be locked")
		}
		if err := store.SetMemberLock(ctx, fund.ID, "nobody", true); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListFundsForUser", func(t *testing.T) {
		fund, _ := createFund(t, store, 2)
		m := models.Member{UserID: "lister", TurnPosition: 1, JoinedAt: joined}
		if err := store.AddMember(ctx, fund.ID, m, 0, ""); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		funds, err := store.ListFundsForUser(ctx, "lister")
		if err != nil {
			t.Fatalf("ListFundsForUser failed: %v", err)
		}
		if len(funds) != 1 || funds[0].ID != fund.ID {
			t.Errorf("funds = %+v", funds)
		}
	})
}

func TestEnsureCycles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fund := testFund(4)
	all := testCycles(fund)
	// Seed only the first cycle so the rest must be backfilled.
	if err := store.CreateFund(ctx, fund, all[:1], nil); err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Fresh IDs per caller, as independent requests would generate.
			if _, err := store.EnsureCycles(ctx, fund.ID, testCycles(fund)); err != nil {
				t.Errorf("EnsureCycles failed: %v", err)
			}
		}()
	}
	wg.Wait()

	first, err := store.ListCycles(ctx, fund.ID)
	if err != nil {
		t.Fatalf("ListCycles failed: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("got %d cycles, want 4", len(first))
	}
	for i, c := range first {
		if c.MonthIndex != i {
			t.Errorf("cycle %d has MonthIndex %d", i, c.MonthIndex)
		}
		if want := fund.DueDate(i, time.UTC); !c.DueDate.Equal(want) {
			t.Errorf("cycle %d due %v, want %v", i, c.DueDate, want)
		}
	}
	if first[0].ID != all[0].ID {
		t.Errorf("seeded cycle was replaced")
	}

	created, err := store.EnsureCycles(ctx, fund.ID, testCycles(fund))
	if err != nil {
		t.Fatalf("EnsureCycles failed: %v", err)
	}
	if created != 0 {
		t.Errorf("created %d cycles on a complete fund", created)
	}
	second, _ := store.ListCycles(ctx, fund.ID)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("EnsureCycles changed existing cycles")
	}
}

func TestPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fund, cycles := createFund(t, store, 2)
	cycle := cycles[0]
	submitted := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)

	logEntry := func(rec *models.PaymentRecord) *models.PaymentLogEntry {
		return &models.PaymentLogEntry{
			ID: uuid.New().String(), FundID: fund.ID, CycleID: rec.CycleID, MemberID: rec.MemberID,
			Amount: rec.Amount, ProofRef: rec.ProofRef, CreatedAt: rec.SubmittedAt,
		}
	}

	rec := models.NewPendingRecord(uuid.New().String(), cycle.ID, "alice", 1000, "proof-1", submitted)

	t.Run("InsertPayment", func(t *testing.T) {
		if err := store.InsertPayment(ctx, rec, logEntry(rec)); err != nil {
			t.Fatalf("InsertPayment failed: %v", err)
		}
		dup := models.NewPendingRecord(uuid.New().String(), cycle.ID, "alice", 1000, "proof-2", submitted)
		if err := store.InsertPayment(ctx, dup, logEntry(dup)); !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("err = %v, want ErrDuplicate", err)
		}
		log, _ := store.ListPaymentLog(ctx, fund.ID)
		if len(log) != 1 {
			t.Errorf("log has %d entries, want 1 (failed insert must roll back)", len(log))
		}
	})

	t.Run("UpdatePayment compare and set", func(t *testing.T) {
		approvedAt := submitted.Add(time.Hour)
		approved := *rec
		if err := approved.Approve(approvedAt, 0, 0); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
		if err := store.UpdatePayment(ctx, &approved, models.PaymentPending, nil); err != nil {
			t.Fatalf("UpdatePayment failed: %v", err)
		}

		rejected := *rec
		if err := rejected.Reject(approvedAt); err != nil {
			t.Fatalf("Reject failed: %v", err)
		}
		if err := store.UpdatePayment(ctx, &rejected, models.PaymentPending, nil); !errors.Is(err, storage.ErrStale) {
			t.Errorf("stale write err = %v, want ErrStale", err)
		}

		got, err := store.GetCycle(ctx, cycle.ID)
		if err != nil {
			t.Fatalf("GetCycle failed: %v", err)
		}
		stored, ok := got.FindPaymentRecord("alice")
		if !ok {
			t.Fatal("record missing")
		}
		if stored.Status != models.PaymentPaid || stored.PaidAt == nil || !stored.PaidAt.Equal(approvedAt) {
			t.Errorf("stored record = %+v", stored)
		}
	})

	t.Run("Payout recipient then execute", func(t *testing.T) {
		if err := store.SetPayoutRecipient(ctx, cycle.ID, "alice"); err != nil {
			t.Fatalf("SetPayoutRecipient failed: %v", err)
		}
		if err := store.MarkPayoutExecuted(ctx, cycle.ID, "transfer-1"); err != nil {
			t.Fatalf("MarkPayoutExecuted failed: %v", err)
		}
		if err := store.MarkPayoutExecuted(ctx, cycle.ID, "transfer-2"); err != nil {
			t.Fatalf("MarkPayoutExecuted again failed: %v", err)
		}
		if err := store.SetPayoutRecipient(ctx, cycle.ID, "bob"); !errors.Is(err, storage.ErrStale) {
			t.Errorf("reassign after execution err = %v, want ErrStale", err)
		}
		got, _ := store.GetCycle(ctx, cycle.ID)
		if !got.PayoutExecuted || got.PayoutProofRef != "transfer-2" || got.PayoutRecipient != "alice" {
			t.Errorf("cycle = %+v", got)
		}
	})
}

func TestDisputes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fund, _ := createFund(t, store, 2)
	at := time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC)

	d := &models.Dispute{
		ID: uuid.New().String(), FundID: fund.ID, RaisedBy: "alice", Subject: "Penalty",
		Status: models.DisputeOpen, CreatedAt: at, UpdatedAt: at,
		Messages: []models.DisputeMessage{{ID: uuid.New().String(), AuthorID: "alice", Body: "I paid on time", CreatedAt: at}},
	}
	if err := store.CreateDispute(ctx, d); err != nil {
		t.Fatalf("CreateDispute failed: %v", err)
	}

	reply := models.DisputeMessage{ID: uuid.New().String(), AuthorID: "organizer", Body: "Checking", CreatedAt: at.Add(time.Hour)}
	if err := store.AddDisputeMessage(ctx, d.ID, reply); err != nil {
		t.Fatalf("AddDisputeMessage failed: %v", err)
	}
	if err := store.ResolveDispute(ctx, d.ID, at.Add(2*time.Hour)); err != nil {
		t.Fatalf("ResolveDispute failed: %v", err)
	}
	if err := store.ResolveDispute(ctx, d.ID, at.Add(3*time.Hour)); !errors.Is(err, storage.ErrStale) {
		t.Errorf("second resolve err = %v, want ErrStale", err)
	}
	late := models.DisputeMessage{ID: uuid.New().String(), AuthorID: "alice", Body: "?", CreatedAt: at.Add(4 * time.Hour)}
	if err := store.AddDisputeMessage(ctx, d.ID, late); !errors.Is(err, storage.ErrStale) {
		t.Errorf("reply to resolved err = %v, want ErrStale", err)
	}

	list, err := store.ListDisputes(ctx, fund.ID)
	if err != nil {
		t.Fatalf("ListDisputes failed: %v", err)
	}
	if len(list) != 1 || len(list[0].Messages) != 2 || list[0].Status != models.DisputeResolved {
		t.Errorf("disputes = %+v", list)
	}
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser(" Asha@Example.com ", "Asha", "hash", models.RoleOrganizer)
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := store.CreateUser(ctx, models.NewUser("asha@example.com", "Other", "hash", models.RoleMember)); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("duplicate email err = %v, want ErrDuplicate", err)
	}

	got, err := store.GetUserByEmail(ctx, "ASHA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != user.ID || got.Role != models.RoleOrganizer {
		t.Errorf("user = %+v", got)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	users, err := store.GetUsersByIDs(ctx, []string{user.ID, "missing"})
	if err != nil {
		t.Fatalf("GetUsersByIDs failed: %v", err)
	}
	if len(users) != 1 || users[user.ID] == nil {
		t.Errorf("users = %+v", users)
	}
}
