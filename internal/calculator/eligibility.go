package calculator

import (
	"sort"
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

// LockThreshold is the number of consecutive missed cycles that makes a
// member lockable.
const LockThreshold = 2

// Eligibility is the lock state of one member.
type Eligibility struct {
	MemberID          string
	ConsecutiveMissed int
	Lockable          bool
	IsLocked          bool
}

// CalculateEligibility looks at the two most recently due cycles and counts,
// from the newest backward, how many have no paid record for the member.
// Counting stops at the first paid cycle.
func CalculateEligibility(member models.Member, cycles []models.Cycle, now time.Time) Eligibility {
	due := dueCycles(cycles, now)
	if len(due) > LockThreshold {
		due = due[len(due)-LockThreshold:]
	}

	missed := 0
	for i := len(due) - 1; i >= 0; i-- {
		if due[i].PaidBy(member.UserID) {
			break
		}
		missed++
	}

	return Eligibility{
		MemberID:          member.UserID,
		ConsecutiveMissed: missed,
		Lockable:          missed >= LockThreshold,
		IsLocked:          member.IsLocked,
	}
}

// dueCycles returns the cycles due at or before now in monthIndex order.
func dueCycles(cycles []models.Cycle, now time.Time) []models.Cycle {
	due := make([]models.Cycle, 0, len(cycles))
	for _, c := range sortedCycles(cycles) {
		if c.IsDue(now) {
			due = append(due, c)
		}
	}
	return due
}

// sortedCycles returns a copy of cycles ordered by MonthIndex.
func sortedCycles(cycles []models.Cycle) []models.Cycle {
	sorted := make([]models.Cycle, len(cycles))
	copy(sorted, cycles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MonthIndex < sorted[j].MonthIndex
	})
	return sorted
}
