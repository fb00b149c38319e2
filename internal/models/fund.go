package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TurnOrderPolicy decides how payout positions are handed out.
type TurnOrderPolicy string

const (
	// PolicyFixed honours requested positions, falling back to roster order.
	PolicyFixed TurnOrderPolicy = "fixed"
	// PolicyRandomized shuffles the roster once at creation.
	PolicyRandomized TurnOrderPolicy = "randomized"
	// PolicyAdminApproval leaves recipients to be picked per cycle by the admin.
	PolicyAdminApproval TurnOrderPolicy = "admin_approval"
)

// ParseTurnOrderPolicy parses a policy name. An empty string means PolicyFixed.
func ParseTurnOrderPolicy(s string) (TurnOrderPolicy, error) {
	switch p := TurnOrderPolicy(strings.TrimSpace(s)); p {
	case "":
		return PolicyFixed, nil
	case PolicyFixed, PolicyRandomized, PolicyAdminApproval:
		return p, nil
	default:
		return "", fmt.Errorf("unknown turn order policy %q", s)
	}
}

// PaymentWindow is an inclusive day-of-month range, e.g. 1-7.
type PaymentWindow struct {
	StartDay int
	EndDay   int
}

// DefaultPaymentWindow is used when a fund does not specify one.
var DefaultPaymentWindow = PaymentWindow{StartDay: 1, EndDay: 7}

// ParsePaymentWindow parses "start-end". The start is raised to at least 1 and
// the end to at least the start; a single number means a one-day window.
func ParsePaymentWindow(s string) (PaymentWindow, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultPaymentWindow, nil
	}
	startStr, endStr, found := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return PaymentWindow{}, fmt.Errorf("invalid payment window %q: %w", s, err)
	}
	start = max(1, start)
	end := start
	if found {
		end, err = strconv.Atoi(strings.TrimSpace(endStr))
		if err != nil {
			return PaymentWindow{}, fmt.Errorf("invalid payment window %q: %w", s, err)
		}
	}
	end = max(start, end)
	if start > 31 || end > 31 {
		return PaymentWindow{}, fmt.Errorf("invalid payment window %q: day out of range", s)
	}
	return PaymentWindow{StartDay: start, EndDay: end}, nil
}

// String formats the window back to "start-end".
func (w PaymentWindow) String() string {
	return fmt.Sprintf("%d-%d", w.StartDay, w.EndDay)
}

// Fund represents a rotating savings group: every member pays MonthlyContribution
// each cycle and exactly one member receives the pooled payout per cycle.
type Fund struct {
	// ID is the unique identifier for the fund (UUID format).
	ID string

	// Name is the display name of the fund.
	Name string

	// Currency is an ISO-ish currency label, only used for display.
	Currency string

	// MonthlyContribution is the amount each member pays per cycle.
	MonthlyContribution float64

	// GroupSize is the target member count and the number of cycles.
	GroupSize int

	// StartMonth anchors the schedule; cycle i is due on the first day of
	// StartMonth + i months.
	StartMonth time.Time

	PaymentWindow   PaymentWindow
	GracePeriodDays int
	TurnOrderPolicy TurnOrderPolicy

	// Members are the users who have actually joined, ordered by turn position.
	Members []Member

	// PlannedRoster is the roster recorded at creation, before anyone signed up.
	PlannedRoster []PlannedMember

	// CreatedBy is the organizer's user ID. The organizer administers the fund.
	CreatedBy string

	CreatedAt time.Time

	// ClosedAt is set once when the fund is closed. A closed fund is immutable.
	ClosedAt *time.Time
}

// IsClosed reports whether the fund has been closed.
func (f *Fund) IsClosed() bool {
	return f.ClosedAt != nil
}

// IsAdmin reports whether userID administers the fund.
func (f *Fund) IsAdmin(userID string) bool {
	return userID != "" && f.CreatedBy == userID
}

// Member returns the joined member with the given user ID.
func (f *Fund) Member(userID string) (Member, bool) {
	for _, m := range f.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// IsMember reports whether userID has joined the fund.
func (f *Fund) IsMember(userID string) bool {
	_, ok := f.Member(userID)
	return ok
}

// IsFull reports whether no more members can join.
func (f *Fund) IsFull() bool {
	return len(f.Members) >= f.GroupSize
}

// MemberIDs returns the user IDs of all joined members in turn order.
func (f *Fund) MemberIDs() []string {
	ids := make([]string, len(f.Members))
	for i, m := range f.Members {
		ids[i] = m.UserID
	}
	return ids
}

// DueDate returns the due date of the cycle with the given month index:
// the first calendar day of StartMonth + monthIndex months.
func (f *Fund) DueDate(monthIndex int, loc *time.Location) time.Time {
	start := f.StartMonth.In(loc)
	return time.Date(start.Year(), start.Month()+time.Month(monthIndex), 1, 0, 0, 0, 0, loc)
}

// Member is a user who joined a fund.
type Member struct {
	UserID        string
	TurnPosition  int
	PayoutAccount string
	InvitedEmail  string
	IsLocked      bool
	JoinedAt      time.Time
}

// PlannedMember is a roster slot recorded at creation time. UserID is set once
// a user claims the slot by joining.
type PlannedMember struct {
	Name     string
	Email    string
	Position int
	UserID   string
}
