// Package turnorder decides which member receives the pooled payout in which
// cycle, and matches the roster planned at creation against the members who
// actually joined.
package turnorder

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/mmynk/chitfund/internal/models"
)

// Candidate is a roster entry waiting for a position. RequestedPosition is
// zero when the entry did not ask for one.
type Candidate struct {
	Name              string
	Email             string
	RequestedPosition int
}

// Assignment pairs a candidate with its payout position.
type Assignment struct {
	Candidate Candidate
	Position  int
}

// Assign orders candidates under policy and numbers them 1..N.
//
//   - fixed: sorted by requested position, entries without one sort by their
//     1-based input index; ties keep input order.
//   - randomized: Fisher-Yates shuffle driven by rng.
//   - admin_approval: input order. Recipients are chosen per cycle later, so
//     these positions only identify roster slots.
//
// A nil rng falls back to the process-wide source.
func Assign(policy models.TurnOrderPolicy, candidates []Candidate, rng *rand.Rand) ([]Assignment, error) {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)

	switch policy {
	case models.PolicyFixed:
		keys := make([]int, len(ordered))
		for i, c := range ordered {
			keys[i] = c.RequestedPosition
			if keys[i] <= 0 {
				keys[i] = i + 1
			}
		}
		idx := make([]int, len(ordered))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return keys[idx[a]] < keys[idx[b]]
		})
		for i, j := range idx {
			ordered[i] = candidates[j]
		}
	case models.PolicyRandomized:
		shuffle(ordered, rng)
	case models.PolicyAdminApproval:
	default:
		return nil, fmt.Errorf("unknown turn order policy %q", policy)
	}

	assignments := make([]Assignment, len(ordered))
	for i, c := range ordered {
		assignments[i] = Assignment{Candidate: c, Position: i + 1}
	}
	return assignments, nil
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle(cs []Candidate, rng *rand.Rand) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(cs) - 1; i > 0; i-- {
		j := intN(i + 1)
		cs[i], cs[j] = cs[j], cs[i]
	}
}

// ScheduledRecipient returns the member whose turn position is monthIndex+1.
// Funds under admin_approval have no schedule.
func ScheduledRecipient(fund *models.Fund, monthIndex int) (string, bool) {
	if fund.TurnOrderPolicy == models.PolicyAdminApproval {
		return "", false
	}
	for _, m := range fund.Members {
		if m.TurnPosition == monthIndex+1 {
			return m.UserID, true
		}
	}
	return "", false
}
