package api

import "time"

type CreateFundRequest struct {
	Name                string        `json:"name"`
	Currency            string        `json:"currency,omitempty"`
	MonthlyContribution float64       `json:"monthly_contribution"`
	GroupSize           int           `json:"group_size"`
	StartMonth          time.Time     `json:"start_month"`
	PaymentWindow       string        `json:"payment_window,omitempty"`
	GracePeriodDays     int           `json:"grace_period_days"`
	TurnOrderPolicy     string        `json:"turn_order_policy,omitempty"`
	Roster              []RosterEntry `json:"roster"`
}

type CreateFundResponse struct {
	Fund *Fund `json:"fund"`
}

type GetFundRequest struct {
	FundID string `json:"fund_id"`
}

type GetFundResponse struct {
	Fund          *Fund         `json:"fund"`
	Cycles        []Cycle       `json:"cycles"`
	Eligibility   []Eligibility `json:"eligibility"`
	Streaks       []Streak      `json:"streaks"`
	Roster        RosterReport  `json:"roster"`
	MissingCycles int           `json:"missing_cycles"`
}

type ListFundsRequest struct{}

type ListFundsResponse struct {
	Funds []Fund `json:"funds"`
}

type JoinFundRequest struct {
	FundID        string `json:"fund_id"`
	PayoutAccount string `json:"payout_account"`
}

type JoinFundResponse struct {
	Member *Member `json:"member"`
}

type InviteMembersRequest struct {
	FundID string   `json:"fund_id"`
	Emails []string `json:"emails"`
}

type InviteMembersResponse struct {
	Invitations []Invitation `json:"invitations"`
}

// ListInvitationsRequest lists a fund's invitations for its admin. Without a
// fund ID it lists the caller's own pending invitations.
type ListInvitationsRequest struct {
	FundID string `json:"fund_id,omitempty"`
}

type ListInvitationsResponse struct {
	Invitations []Invitation `json:"invitations"`
}

type AcceptInvitationRequest struct {
	InvitationID  string `json:"invitation_id"`
	PayoutAccount string `json:"payout_account"`
}

type AcceptInvitationResponse struct {
	Member *Member `json:"member"`
}

type DeclineInvitationRequest struct {
	InvitationID string `json:"invitation_id"`
}

type DeclineInvitationResponse struct{}

// UploadProofRequest carries a receipt or transfer screenshot. Data is base64
// in JSON.
type UploadProofRequest struct {
	FundID      string `json:"fund_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

type UploadProofResponse struct {
	ProofRef string `json:"proof_ref"`
}

// SubmitPaymentRequest submits the caller's payment for a cycle. A zero amount
// means the fund's monthly contribution.
type SubmitPaymentRequest struct {
	FundID   string  `json:"fund_id"`
	CycleID  string  `json:"cycle_id"`
	Amount   float64 `json:"amount,omitempty"`
	ProofRef string  `json:"proof_ref"`
}

type SubmitPaymentResponse struct {
	Payment *PaymentRecord `json:"payment"`
}

type PaymentDecisionRequest struct {
	FundID   string `json:"fund_id"`
	CycleID  string `json:"cycle_id"`
	RecordID string `json:"record_id"`
}

type PaymentDecisionResponse struct {
	Payment *PaymentRecord `json:"payment"`
}

type AssignPayoutRequest struct {
	FundID      string `json:"fund_id"`
	CycleID     string `json:"cycle_id"`
	RecipientID string `json:"recipient_id"`
}

type ExecutePayoutRequest struct {
	FundID   string `json:"fund_id"`
	CycleID  string `json:"cycle_id"`
	ProofRef string `json:"proof_ref"`
}

type PayoutResponse struct {
	Cycle *Cycle `json:"cycle"`
}

type SetMemberLockRequest struct {
	FundID   string `json:"fund_id"`
	MemberID string `json:"member_id"`
	Locked   bool   `json:"locked"`
}

type SetMemberLockResponse struct{}

type CloseFundRequest struct {
	FundID string `json:"fund_id"`
}

type GetFundLedgerRequest struct {
	FundID string `json:"fund_id"`
}

type FundLedgerResponse struct {
	Ledger *FundLedger `json:"ledger"`
}

// GetMemberLedgerRequest reads one member's history. An empty member ID
// means the caller.
type GetMemberLedgerRequest struct {
	FundID   string `json:"fund_id"`
	MemberID string `json:"member_id,omitempty"`
}

type GetMemberLedgerResponse struct {
	Summary *MemberSummary `json:"summary"`
}

type GetStandingsRequest struct {
	FundID string `json:"fund_id"`
}

type GetStandingsResponse struct {
	Standings []Standing `json:"standings"`
}

type GetPaymentLogRequest struct {
	FundID string `json:"fund_id"`
}

type GetPaymentLogResponse struct {
	Entries []PaymentLogEntry `json:"entries"`
}

type RaiseDisputeRequest struct {
	FundID  string `json:"fund_id"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ReplyDisputeRequest struct {
	DisputeID string `json:"dispute_id"`
	Message   string `json:"message"`
}

type ResolveDisputeRequest struct {
	DisputeID string `json:"dispute_id"`
}

type DisputeResponse struct {
	Dispute *Dispute `json:"dispute"`
}

type ListDisputesRequest struct {
	FundID string `json:"fund_id"`
}

type ListDisputesResponse struct {
	Disputes []Dispute `json:"disputes"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	// Role is organizer or member. Empty means member.
	Role string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}
