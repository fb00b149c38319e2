package calculator

import (
	"math"
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

// Streak summarizes a member's on-time payment history.
type Streak struct {
	MemberID         string
	CurrentStreak    int
	LongestStreak    int
	OnTimePayments   int
	TotalPayments    int
	PerformanceScore int // 0-100
}

// CalculateStreak walks the cycles in monthIndex order.
//
// A cycle counts once it is due or once the member has a record of any status
// in it. A cycle is correct when the member's record is paid with no penalty.
// The current streak runs backward from the latest counted cycle and skips
// cycles that do not count. The longest streak considers every cycle, so a
// cycle that is neither due nor paid resets the run.
func CalculateStreak(memberID string, cycles []models.Cycle, now time.Time) Streak {
	sorted := sortedCycles(cycles)
	s := Streak{MemberID: memberID}

	counted := make([]bool, len(sorted))
	correct := make([]bool, len(sorted))
	for i := range sorted {
		rec, hasRecord := sorted[i].FindPaymentRecord(memberID)
		counted[i] = sorted[i].IsDue(now) || hasRecord
		correct[i] = hasRecord && rec.OnTime()
		if hasRecord && rec.Status == models.PaymentPaid {
			s.TotalPayments++
			if rec.OnTime() {
				s.OnTimePayments++
			}
		}
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		if !counted[i] {
			continue
		}
		if !correct[i] {
			break
		}
		s.CurrentStreak++
	}

	run := 0
	for i := range sorted {
		if correct[i] {
			run++
			s.LongestStreak = max(s.LongestStreak, run)
		} else {
			run = 0
		}
	}

	s.PerformanceScore = PerformanceScore(s.OnTimePayments, s.TotalPayments)
	return s
}

// PerformanceScore returns round(100 * onTime / total), or 0 when total is 0.
func PerformanceScore(onTime, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(onTime) / float64(total)))
}
