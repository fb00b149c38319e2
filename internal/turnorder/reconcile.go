package turnorder

import (
	"sort"

	"github.com/mmynk/chitfund/internal/models"
)

// Match pairs a planned roster slot with the member who filled it.
type Match struct {
	Planned models.PlannedMember
	Member  models.Member
}

// Reconciliation is the result of matching the planned roster against the
// joined members. Every planned slot and every member appears exactly once.
type Reconciliation struct {
	Matched          []Match
	UnmatchedPlanned []models.PlannedMember
	UnmatchedJoined  []models.Member
}

// Reconcile matches members to planned slots, first by turn position and then
// by normalized email for what is left.
func Reconcile(planned []models.PlannedMember, joined []models.Member) Reconciliation {
	slotUsed := make([]bool, len(planned))
	memberUsed := make([]bool, len(joined))
	var r Reconciliation

	byPosition := make(map[int]int, len(planned))
	for i, p := range planned {
		if _, dup := byPosition[p.Position]; !dup && p.Position > 0 {
			byPosition[p.Position] = i
		}
	}
	for j, m := range joined {
		i, ok := byPosition[m.TurnPosition]
		if !ok || slotUsed[i] {
			continue
		}
		slotUsed[i], memberUsed[j] = true, true
		r.Matched = append(r.Matched, Match{Planned: planned[i], Member: m})
	}

	byEmail := make(map[string]int, len(planned))
	for i, p := range planned {
		if slotUsed[i] || p.Email == "" {
			continue
		}
		email := models.NormalizeEmail(p.Email)
		if _, dup := byEmail[email]; !dup {
			byEmail[email] = i
		}
	}
	for j, m := range joined {
		if memberUsed[j] || m.InvitedEmail == "" {
			continue
		}
		i, ok := byEmail[models.NormalizeEmail(m.InvitedEmail)]
		if !ok || slotUsed[i] {
			continue
		}
		slotUsed[i], memberUsed[j] = true, true
		r.Matched = append(r.Matched, Match{Planned: planned[i], Member: m})
	}

	for i, p := range planned {
		if !slotUsed[i] {
			r.UnmatchedPlanned = append(r.UnmatchedPlanned, p)
		}
	}
	for j, m := range joined {
		if !memberUsed[j] {
			r.UnmatchedJoined = append(r.UnmatchedJoined, m)
		}
	}
	sort.SliceStable(r.Matched, func(a, b int) bool {
		return r.Matched[a].Planned.Position < r.Matched[b].Planned.Position
	})
	return r
}

// Placement is where a newly joining member goes.
type Placement struct {
	Position int
	// Slot is the planned roster entry claimed by the member, or nil when the
	// member is placed past the end of the roster.
	Slot *models.PlannedMember
}

// PickPosition places a member joining with email:
//  1. the planned slot with a matching email, if its position is free
//  2. otherwise the lowest planned slot whose position is free
//  3. otherwise the next unused position past the roster length
func PickPosition(planned []models.PlannedMember, joined []models.Member, email string) Placement {
	taken := make(map[int]bool, len(joined))
	for _, m := range joined {
		taken[m.TurnPosition] = true
	}

	email = models.NormalizeEmail(email)
	if email != "" {
		for i := range planned {
			if models.NormalizeEmail(planned[i].Email) == email && !taken[planned[i].Position] {
				return Placement{Position: planned[i].Position, Slot: &planned[i]}
			}
		}
	}

	var free *models.PlannedMember
	for i := range planned {
		p := &planned[i]
		if taken[p.Position] || p.UserID != "" {
			continue
		}
		if free == nil || p.Position < free.Position {
			free = p
		}
	}
	if free != nil {
		return Placement{Position: free.Position, Slot: free}
	}

	pos := len(planned) + 1
	for taken[pos] {
		pos++
	}
	return Placement{Position: pos}
}
