package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

func date(y int, m time.Month, d, h, min, s, ms int) time.Time {
	return time.Date(y, m, d, h, min, s, ms*int(time.Millisecond), time.UTC)
}

func TestCalculatePenalty(t *testing.T) {
	due := date(2024, time.January, 1, 0, 0, 0, 0)
	window := models.PaymentWindow{StartDay: 1, EndDay: 7}

	tests := []struct {
		name         string
		grace        int
		amount       float64
		approvedAt   time.Time
		wantLateDays int
		wantAmount   float64
	}{
		{
			name:       "inside the payment window",
			grace:      2,
			amount:     3000,
			approvedAt: date(2024, time.January, 5, 12, 0, 0, 0),
		},
		{
			name:       "last instant of the grace period",
			grace:      2,
			amount:     3000,
			approvedAt: date(2024, time.January, 9, 23, 59, 59, 999),
		},
		{
			name:       "first instant after grace is less than a day late",
			grace:      2,
			amount:     3000,
			approvedAt: date(2024, time.January, 10, 0, 0, 0, 0),
		},
		{
			name:         "three whole days late",
			grace:        2,
			amount:       3000,
			approvedAt:   date(2024, time.January, 12, 23, 59, 59, 999),
			wantLateDays: 3,
			wantAmount:   300,
		},
		{
			name:         "partial days are floored",
			grace:        2,
			amount:       3000,
			approvedAt:   date(2024, time.January, 13, 12, 0, 0, 0),
			wantLateDays: 3,
			wantAmount:   300,
		},
		{
			name:         "no grace period",
			grace:        0,
			amount:       1000,
			approvedAt:   date(2024, time.January, 12, 23, 59, 59, 999),
			wantLateDays: 5,
			wantAmount:   1000.0 / 30 * 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePenalty(PenaltyInput{
				DueDate:         due,
				Window:          window,
				GracePeriodDays: tt.grace,
				Amount:          tt.amount,
				ApprovedAt:      tt.approvedAt,
			})
			if got.LateDays != tt.wantLateDays {
				t.Errorf("LateDays = %d, want %d", got.LateDays, tt.wantLateDays)
			}
			if math.Abs(got.Amount-tt.wantAmount) > 1e-9 {
				t.Errorf("Amount = %v, want %v", got.Amount, tt.wantAmount)
			}
		})
	}
}

func TestGraceEnd(t *testing.T) {
	due := date(2024, time.January, 1, 0, 0, 0, 0)
	got := GraceEnd(due, models.PaymentWindow{StartDay: 1, EndDay: 7}, 2)
	want := date(2024, time.January, 9, 23, 59, 59, 999)
	if !got.Equal(want) {
		t.Errorf("GraceEnd = %v, want %v", got, want)
	}
}

func TestWindowEndPastMonthLength(t *testing.T) {
	// February 2023 has 28 days; day 31 rolls into March.
	due := date(2023, time.February, 1, 0, 0, 0, 0)
	got := WindowEnd(due, models.PaymentWindow{StartDay: 1, EndDay: 31})
	want := date(2023, time.March, 3, 23, 59, 59, 999)
	if !got.Equal(want) {
		t.Errorf("WindowEnd = %v, want %v", got, want)
	}
}

func TestPenaltyRoundsToCents(t *testing.T) {
	p := CalculatePenalty(PenaltyInput{
		DueDate:    date(2024, time.January, 1, 0, 0, 0, 0),
		Window:     models.PaymentWindow{StartDay: 1, EndDay: 7},
		Amount:     1000,
		ApprovedAt: date(2024, time.January, 13, 0, 0, 0, 0),
	})
	if p.LateDays != 5 {
		t.Fatalf("LateDays = %d, want 5", p.LateDays)
	}
	if got := RoundMoney(p.Amount); got != 166.67 {
		t.Errorf("RoundMoney(%v) = %v, want 166.67", p.Amount, got)
	}
}
