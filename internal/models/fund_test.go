package models

import (
	"testing"
	"time"
)

func TestParsePaymentWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentWindow
		wantErr bool
	}{
		{"", DefaultPaymentWindow, false},
		{"1-7", PaymentWindow{1, 7}, false},
		{" 5 - 10 ", PaymentWindow{5, 10}, false},
		{"0-3", PaymentWindow{1, 3}, false},
		{"10-4", PaymentWindow{10, 10}, false},
		{"15", PaymentWindow{15, 15}, false},
		{"a-7", PaymentWindow{}, true},
		{"1-b", PaymentWindow{}, true},
		{"1-40", PaymentWindow{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePaymentWindow(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePaymentWindow(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePaymentWindow(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTurnOrderPolicy(t *testing.T) {
	if p, err := ParseTurnOrderPolicy(""); err != nil || p != PolicyFixed {
		t.Errorf("Empty policy = %q, %v; want fixed", p, err)
	}
	if p, err := ParseTurnOrderPolicy("randomized"); err != nil || p != PolicyRandomized {
		t.Errorf("Got %q, %v", p, err)
	}
	if _, err := ParseTurnOrderPolicy("round_robin"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestDueDate(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	fund := &Fund{StartMonth: time.Date(2024, time.November, 20, 0, 0, 0, 0, kolkata)}

	for i, want := range []time.Time{
		time.Date(2024, time.November, 1, 0, 0, 0, 0, kolkata),
		time.Date(2024, time.December, 1, 0, 0, 0, 0, kolkata),
		time.Date(2025, time.January, 1, 0, 0, 0, 0, kolkata),
	} {
		if got := fund.DueDate(i, kolkata); !got.Equal(want) {
			t.Errorf("DueDate(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestFundMembership(t *testing.T) {
	fund := &Fund{
		GroupSize: 2,
		CreatedBy: "admin",
		Members:   []Member{{UserID: "a", TurnPosition: 1}},
	}
	if !fund.IsAdmin("admin") || fund.IsAdmin("") || fund.IsAdmin("a") {
		t.Error("IsAdmin mismatch")
	}
	if !fund.IsMember("a") || fund.IsMember("admin") {
		t.Error("IsMember mismatch")
	}
	if fund.IsFull() {
		t.Error("Fund with one of two members is not full")
	}
	fund.Members = append(fund.Members, Member{UserID: "b", TurnPosition: 2})
	if !fund.IsFull() {
		t.Error("Fund should be full")
	}
	if ids := fund.MemberIDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("MemberIDs = %v", ids)
	}
}
