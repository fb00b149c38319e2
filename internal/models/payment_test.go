package models

import (
	"errors"
	"testing"
	"time"
)

func TestPaymentTransitions(t *testing.T) {
	at := time.Date(2024, time.January, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    PaymentStatus
		apply   func(*PaymentRecord) error
		want    PaymentStatus
		wantErr bool
	}{
		{"approve pending", PaymentPending, func(r *PaymentRecord) error { return r.Approve(at, 2, 66.67) }, PaymentPaid, false},
		{"reject pending", PaymentPending, func(r *PaymentRecord) error { return r.Reject(at) }, PaymentRejected, false},
		{"resubmit rejected", PaymentRejected, func(r *PaymentRecord) error { return r.Resubmit(1200, "new", at) }, PaymentPending, false},
		{"approve paid", PaymentPaid, func(r *PaymentRecord) error { return r.Approve(at, 0, 0) }, PaymentPaid, true},
		{"reject paid", PaymentPaid, func(r *PaymentRecord) error { return r.Reject(at) }, PaymentPaid, true},
		{"resubmit paid", PaymentPaid, func(r *PaymentRecord) error { return r.Resubmit(1, "x", at) }, PaymentPaid, true},
		{"resubmit pending", PaymentPending, func(r *PaymentRecord) error { return r.Resubmit(1, "x", at) }, PaymentPending, true},
		{"approve rejected", PaymentRejected, func(r *PaymentRecord) error { return r.Approve(at, 0, 0) }, PaymentRejected, true},
		{"reject rejected", PaymentRejected, func(r *PaymentRecord) error { return r.Reject(at) }, PaymentRejected, true},
		{"unknown status", PaymentStatus(9), func(r *PaymentRecord) error { return r.Approve(at, 0, 0) }, PaymentStatus(9), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &PaymentRecord{ID: "r1", Status: tt.from, Amount: 1000, ProofRef: "old"}
			err := tt.apply(rec)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("Expected ErrInvalidTransition, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if rec.Status != tt.want {
				t.Errorf("Status = %s, want %s", rec.Status, tt.want)
			}
		})
	}
}

func TestResubmitClearsDecision(t *testing.T) {
	submitted := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	rec := NewPendingRecord("r1", "c1", "m1", 900, "first", submitted)
	if err := rec.Approve(submitted.Add(time.Hour), 0, 0); err != nil {
		t.Fatal(err)
	}
	// Force the record into a rejected state that still carries stale fields.
	rec.Status = PaymentRejected
	rec.PenaltyDays = 4

	later := submitted.AddDate(0, 0, 10)
	if err := rec.Resubmit(1000, "second", later); err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	if rec.Amount != 1000 || rec.ProofRef != "second" {
		t.Errorf("Expected the new submission, got %v %q", rec.Amount, rec.ProofRef)
	}
	if rec.PaidAt != nil || rec.DecidedAt != nil || rec.PenaltyDays != 0 || rec.PenaltyAmount != 0 {
		t.Errorf("Expected decision fields cleared, got %+v", rec)
	}
	if !rec.SubmittedAt.Equal(later) {
		t.Errorf("SubmittedAt = %v, want %v", rec.SubmittedAt, later)
	}
}

func TestPaymentStatusText(t *testing.T) {
	for _, s := range []PaymentStatus{PaymentPending, PaymentPaid, PaymentRejected} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got PaymentStatus
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("round trip of %s gave %s, %v", s, got, err)
		}
	}
	var s PaymentStatus
	if err := s.UnmarshalText([]byte("approved")); err == nil {
		t.Error("Expected an error for an unknown status")
	}
}

func TestOnTime(t *testing.T) {
	paid := PaymentRecord{Status: PaymentPaid}
	if !paid.OnTime() {
		t.Error("Paid without penalty should be on time")
	}
	paid.PenaltyDays = 1
	if paid.OnTime() {
		t.Error("Paid with late days should not be on time")
	}
	if (&PaymentRecord{Status: PaymentPending}).OnTime() {
		t.Error("Pending is never on time")
	}
}
