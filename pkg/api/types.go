package api

import "time"

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at"`
}

// Fund is a rotating savings group.
type Fund struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Currency            string          `json:"currency"`
	MonthlyContribution float64         `json:"monthly_contribution"`
	GroupSize           int             `json:"group_size"`
	StartMonth          time.Time       `json:"start_month"`
	PaymentWindow       string          `json:"payment_window"`
	GracePeriodDays     int             `json:"grace_period_days"`
	TurnOrderPolicy     string          `json:"turn_order_policy"`
	Members             []Member        `json:"members"`
	PlannedRoster       []PlannedMember `json:"planned_roster,omitempty"`
	CreatedBy           string          `json:"created_by"`
	CreatedAt           time.Time       `json:"created_at"`
	ClosedAt            *time.Time      `json:"closed_at,omitempty"`
}

type Member struct {
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	TurnPosition  int       `json:"turn_position"`
	PayoutAccount string    `json:"payout_account,omitempty"`
	InvitedEmail  string    `json:"invited_email,omitempty"`
	IsLocked      bool      `json:"is_locked"`
	JoinedAt      time.Time `json:"joined_at"`
}

type PlannedMember struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position int    `json:"position"`
	UserID   string `json:"user_id,omitempty"`
}

// RosterEntry is one planned participant in a CreateFund request.
// Position 0 lets the turn-order policy choose.
type RosterEntry struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position int    `json:"position,omitempty"`
}

// Cycle is one month of a fund with its payments and payout.
type Cycle struct {
	ID                 string          `json:"id"`
	MonthIndex         int             `json:"month_index"`
	DueDate            time.Time       `json:"due_date"`
	Payments           []PaymentRecord `json:"payments"`
	PayoutRecipient    string          `json:"payout_recipient,omitempty"`
	PayoutExecuted     bool            `json:"payout_executed"`
	PayoutProofRef     string          `json:"payout_proof_ref,omitempty"`
	ScheduledRecipient string          `json:"scheduled_recipient,omitempty"`
	IsDue              bool            `json:"is_due"`
}

// PaymentRecord is a member's payment for a cycle. Status is pending, paid or rejected.
type PaymentRecord struct {
	ID            string     `json:"id"`
	CycleID       string     `json:"cycle_id"`
	MemberID      string     `json:"member_id"`
	Amount        float64    `json:"amount"`
	ProofRef      string     `json:"proof_ref"`
	Status        string     `json:"status"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	PenaltyDays   int        `json:"penalty_days"`
	PenaltyAmount float64    `json:"penalty_amount"`
}

type PaymentLogEntry struct {
	ID        string    `json:"id"`
	CycleID   string    `json:"cycle_id"`
	MemberID  string    `json:"member_id"`
	Amount    float64   `json:"amount"`
	ProofRef  string    `json:"proof_ref"`
	CreatedAt time.Time `json:"created_at"`
}

type Eligibility struct {
	MemberID          string `json:"member_id"`
	ConsecutiveMissed int    `json:"consecutive_missed"`
	Lockable          bool   `json:"lockable"`
	IsLocked          bool   `json:"is_locked"`
}

type Streak struct {
	MemberID         string `json:"member_id"`
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	OnTimePayments   int    `json:"on_time_payments"`
	TotalPayments    int    `json:"total_payments"`
	PerformanceScore int    `json:"performance_score"`
}

// RosterReport compares the planned roster with the members who joined.
type RosterReport struct {
	Matched          []RosterMatch   `json:"matched"`
	UnmatchedPlanned []PlannedMember `json:"unmatched_planned"`
	UnmatchedJoined  []Member        `json:"unmatched_joined"`
}

type RosterMatch struct {
	Planned PlannedMember `json:"planned"`
	Member  Member        `json:"member"`
}

type Invitation struct {
	ID           string     `json:"id"`
	FundID       string     `json:"fund_id"`
	Email        string     `json:"email"`
	InvitedBy    string     `json:"invited_by"`
	TurnPosition int        `json:"turn_position,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
}

type Dispute struct {
	ID         string           `json:"id"`
	FundID     string           `json:"fund_id"`
	RaisedBy   string           `json:"raised_by"`
	Subject    string           `json:"subject"`
	Status     string           `json:"status"`
	Messages   []DisputeMessage `json:"messages"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
}

type DisputeMessage struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerRow is one member's line for one cycle. Status is pending, paid,
// rejected or not_paid.
type LedgerRow struct {
	CycleID       string     `json:"cycle_id"`
	MonthIndex    int        `json:"month_index"`
	DueDate       time.Time  `json:"due_date"`
	MemberID      string     `json:"member_id"`
	Status        string     `json:"status"`
	Amount        float64    `json:"amount"`
	ProofRef      string     `json:"proof_ref,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	LateDays      int        `json:"late_days"`
	PenaltyAmount float64    `json:"penalty_amount"`
	OnTime        bool       `json:"on_time"`
}

type MemberSummary struct {
	MemberID           string      `json:"member_id"`
	TotalPaidCount     int         `json:"total_paid_count"`
	OnTimeCount        int         `json:"on_time_count"`
	LateCount          int         `json:"late_count"`
	PendingCount       int         `json:"pending_count"`
	TotalLateDays      int         `json:"total_late_days"`
	TotalContributed   float64     `json:"total_contributed"`
	TotalPenaltyAmount float64     `json:"total_penalty_amount"`
	History            []LedgerRow `json:"history,omitempty"`
}

type CycleSummary struct {
	CycleID         string      `json:"cycle_id"`
	MonthIndex      int         `json:"month_index"`
	DueDate         time.Time   `json:"due_date"`
	PayoutRecipient string      `json:"payout_recipient,omitempty"`
	PayoutExecuted  bool        `json:"payout_executed"`
	PayoutProofRef  string      `json:"payout_proof_ref,omitempty"`
	CollectedAmount float64     `json:"collected_amount"`
	Payments        []LedgerRow `json:"payments"`
}

type FundLedger struct {
	Members        []MemberSummary `json:"members"`
	Cycles         []CycleSummary  `json:"cycles"`
	TotalCollected float64         `json:"total_collected"`
	TotalPenalties float64         `json:"total_penalties"`
}

type Standing struct {
	Rank             int    `json:"rank"`
	MemberID         string `json:"member_id"`
	DisplayName      string `json:"display_name,omitempty"`
	TotalLateDays    int    `json:"total_late_days"`
	PerformanceScore int    `json:"performance_score"`
	OnTimeCount      int    `json:"on_time_count"`
}
