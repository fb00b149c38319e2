package calculator

import (
	"testing"
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

const alice = "alice"

func monthCycle(i int) models.Cycle {
	return models.Cycle{
		ID:         "cycle-" + string(rune('a'+i)),
		MonthIndex: i,
		DueDate:    time.Date(2024, time.January+time.Month(i), 1, 0, 0, 0, 0, time.UTC),
	}
}

func paid(memberID string, amount float64, lateDays int) models.PaymentRecord {
	at := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	return models.PaymentRecord{
		MemberID:      memberID,
		Amount:        amount,
		Status:        models.PaymentPaid,
		PaidAt:        &at,
		PenaltyDays:   lateDays,
		PenaltyAmount: amount / 30 * float64(lateDays),
	}
}

func withStatus(memberID string, status models.PaymentStatus) models.PaymentRecord {
	return models.PaymentRecord{MemberID: memberID, Amount: 1000, Status: status}
}

func TestCalculateStreak(t *testing.T) {
	tests := []struct {
		name        string
		records     [][]models.PaymentRecord
		now         time.Time
		wantCurrent int
		wantLongest int
		wantScore   int
		wantOnTime  int
		wantTotal   int
	}{
		{
			name: "on time, late, on time, not yet due",
			records: [][]models.PaymentRecord{
				{paid(alice, 1000, 0)},
				{paid(alice, 1000, 2)},
				{paid(alice, 1000, 0)},
				nil,
			},
			now:         time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			wantCurrent: 1,
			wantLongest: 1,
			wantScore:   67,
			wantOnTime:  2,
			wantTotal:   3,
		},
		{
			name: "three on time in a row",
			records: [][]models.PaymentRecord{
				{paid(alice, 1000, 0)},
				{paid(alice, 1000, 0)},
				{paid(alice, 1000, 0)},
			},
			now:         time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			wantCurrent: 3,
			wantLongest: 3,
			wantScore:   100,
			wantOnTime:  3,
			wantTotal:   3,
		},
		{
			name: "missed due cycle breaks the current streak",
			records: [][]models.PaymentRecord{
				{paid(alice, 1000, 0)},
				{paid(alice, 1000, 0)},
				nil,
			},
			now:         time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			wantCurrent: 0,
			wantLongest: 2,
			wantScore:   100,
			wantOnTime:  2,
			wantTotal:   2,
		},
		{
			name: "pending record in a future cycle counts and breaks",
			records: [][]models.PaymentRecord{
				{paid(alice, 1000, 0)},
				{withStatus(alice, models.PaymentPending)},
			},
			now:         time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			wantCurrent: 0,
			wantLongest: 1,
			wantScore:   100,
			wantOnTime:  1,
			wantTotal:   1,
		},
		{
			name:    "no history",
			records: [][]models.PaymentRecord{nil, nil},
			now:     time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cycles := make([]models.Cycle, len(tt.records))
			for i, recs := range tt.records {
				cycles[i] = monthCycle(i)
				cycles[i].Payments = recs
			}
			// Input order must not matter.
			cycles[0], cycles[len(cycles)-1] = cycles[len(cycles)-1], cycles[0]

			got := CalculateStreak(alice, cycles, tt.now)
			if got.CurrentStreak != tt.wantCurrent {
				t.Errorf("CurrentStreak = %d, want %d", got.CurrentStreak, tt.wantCurrent)
			}
			if got.LongestStreak != tt.wantLongest {
				t.Errorf("LongestStreak = %d, want %d", got.LongestStreak, tt.wantLongest)
			}
			if got.PerformanceScore != tt.wantScore {
				t.Errorf("PerformanceScore = %d, want %d", got.PerformanceScore, tt.wantScore)
			}
			if got.OnTimePayments != tt.wantOnTime || got.TotalPayments != tt.wantTotal {
				t.Errorf("OnTime/Total = %d/%d, want %d/%d", got.OnTimePayments, got.TotalPayments, tt.wantOnTime, tt.wantTotal)
			}
		})
	}
}

func TestCalculateEligibility(t *testing.T) {
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	member := models.Member{UserID: alice}

	tests := []struct {
		name         string
		records      [][]models.PaymentRecord
		wantMissed   int
		wantLockable bool
	}{
		{
			name:         "missed the two most recent due cycles",
			records:      [][]models.PaymentRecord{{paid(alice, 1000, 0)}, nil, nil, nil},
			wantMissed:   2,
			wantLockable: true,
		},
		{
			name:       "paid the most recent cycle",
			records:    [][]models.PaymentRecord{nil, nil, {paid(alice, 1000, 0)}, nil},
			wantMissed: 0,
		},
		{
			name:       "paid the older of the two",
			records:    [][]models.PaymentRecord{nil, {paid(alice, 1000, 3)}, nil, nil},
			wantMissed: 1,
		},
		{
			name: "pending and rejected are not paid",
			records: [][]models.PaymentRecord{
				nil,
				{withStatus(alice, models.PaymentRejected)},
				{withStatus(alice, models.PaymentPending)},
			},
			wantMissed:   2,
			wantLockable: true,
		},
		{
			name:       "only one cycle due",
			records:    [][]models.PaymentRecord{nil},
			wantMissed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cycles := make([]models.Cycle, len(tt.records))
			for i, recs := range tt.records {
				cycles[i] = monthCycle(i)
				cycles[i].Payments = recs
			}
			got := CalculateEligibility(member, cycles, now)
			if got.ConsecutiveMissed != tt.wantMissed {
				t.Errorf("ConsecutiveMissed = %d, want %d", got.ConsecutiveMissed, tt.wantMissed)
			}
			if got.Lockable != tt.wantLockable {
				t.Errorf("Lockable = %v, want %v", got.Lockable, tt.wantLockable)
			}
		})
	}
}
