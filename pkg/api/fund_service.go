package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// FundServiceName is the fully-qualified name of the fund service.
const FundServiceName = "chitfund.v1.FundService"

// Procedure names of the fund service.
const (
	FundServiceCreateFundProcedure        = "/chitfund.v1.FundService/CreateFund"
	FundServiceGetFundProcedure           = "/chitfund.v1.FundService/GetFund"
	FundServiceListFundsProcedure         = "/chitfund.v1.FundService/ListFunds"
	FundServiceJoinFundProcedure          = "/chitfund.v1.FundService/JoinFund"
	FundServiceInviteMembersProcedure     = "/chitfund.v1.FundService/InviteMembers"
	FundServiceListInvitationsProcedure   = "/chitfund.v1.FundService/ListInvitations"
	FundServiceAcceptInvitationProcedure  = "/chitfund.v1.FundService/AcceptInvitation"
	FundServiceDeclineInvitationProcedure = "/chitfund.v1.FundService/DeclineInvitation"
	FundServiceUploadProofProcedure       = "/chitfund.v1.FundService/UploadProof"
	FundServiceSubmitPaymentProcedure     = "/chitfund.v1.FundService/SubmitPayment"
	FundServiceApprovePaymentProcedure    = "/chitfund.v1.FundService/ApprovePayment"
	FundServiceRejectPaymentProcedure     = "/chitfund.v1.FundService/RejectPayment"
	FundServiceAssignPayoutProcedure      = "/chitfund.v1.FundService/AssignPayout"
	FundServiceExecutePayoutProcedure     = "/chitfund.v1.FundService/ExecutePayout"
	FundServiceSetMemberLockProcedure     = "/chitfund.v1.FundService/SetMemberLock"
	FundServiceCloseFundProcedure         = "/chitfund.v1.FundService/CloseFund"
	FundServiceGetFundLedgerProcedure     = "/chitfund.v1.FundService/GetFundLedger"
	FundServiceGetMemberLedgerProcedure   = "/chitfund.v1.FundService/GetMemberLedger"
	FundServiceGetStandingsProcedure      = "/chitfund.v1.FundService/GetStandings"
	FundServiceGetPaymentLogProcedure     = "/chitfund.v1.FundService/GetPaymentLog"
	FundServiceRaiseDisputeProcedure      = "/chitfund.v1.FundService/RaiseDispute"
	FundServiceReplyDisputeProcedure      = "/chitfund.v1.FundService/ReplyDispute"
	FundServiceResolveDisputeProcedure    = "/chitfund.v1.FundService/ResolveDispute"
	FundServiceListDisputesProcedure      = "/chitfund.v1.FundService/ListDisputes"
)

// FundServiceHandler is implemented by the server side of the fund service.
type FundServiceHandler interface {
	CreateFund(context.Context, *connect.Request[CreateFundRequest]) (*connect.Response[CreateFundResponse], error)
	GetFund(context.Context, *connect.Request[GetFundRequest]) (*connect.Response[GetFundResponse], error)
	ListFunds(context.Context, *connect.Request[ListFundsRequest]) (*connect.Response[ListFundsResponse], error)
	JoinFund(context.Context, *connect.Request[JoinFundRequest]) (*connect.Response[JoinFundResponse], error)
	InviteMembers(context.Context, *connect.Request[InviteMembersRequest]) (*connect.Response[InviteMembersResponse], error)
	ListInvitations(context.Context, *connect.Request[ListInvitationsRequest]) (*connect.Response[ListInvitationsResponse], error)
	AcceptInvitation(context.Context, *connect.Request[AcceptInvitationRequest]) (*connect.Response[AcceptInvitationResponse], error)
	DeclineInvitation(context.Context, *connect.Request[DeclineInvitationRequest]) (*connect.Response[DeclineInvitationResponse], error)
	UploadProof(context.Context, *connect.Request[UploadProofRequest]) (*connect.Response[UploadProofResponse], error)
	SubmitPayment(context.Context, *connect.Request[SubmitPaymentRequest]) (*connect.Response[SubmitPaymentResponse], error)
	ApprovePayment(context.Context, *connect.Request[PaymentDecisionRequest]) (*connect.Response[PaymentDecisionResponse], error)
	RejectPayment(context.Context, *connect.Request[PaymentDecisionRequest]) (*connect.Response[PaymentDecisionResponse], error)
	AssignPayout(context.Context, *connect.Request[AssignPayoutRequest]) (*connect.Response[PayoutResponse], error)
	ExecutePayout(context.Context, *connect.Request[ExecutePayoutRequest]) (*connect.Response[PayoutResponse], error)
	SetMemberLock(context.Context, *connect.Request[SetMemberLockRequest]) (*connect.Response[SetMemberLockResponse], error)
	CloseFund(context.Context, *connect.Request[CloseFundRequest]) (*connect.Response[FundLedgerResponse], error)
	GetFundLedger(context.Context, *connect.Request[GetFundLedgerRequest]) (*connect.Response[FundLedgerResponse], error)
	GetMemberLedger(context.Context, *connect.Request[GetMemberLedgerRequest]) (*connect.Response[GetMemberLedgerResponse], error)
	GetStandings(context.Context, *connect.Request[GetStandingsRequest]) (*connect.Response[GetStandingsResponse], error)
	GetPaymentLog(context.Context, *connect.Request[GetPaymentLogRequest]) (*connect.Response[GetPaymentLogResponse], error)
	RaiseDispute(context.Context, *connect.Request[RaiseDisputeRequest]) (*connect.Response[DisputeResponse], error)
	ReplyDispute(context.Context, *connect.Request[ReplyDisputeRequest]) (*connect.Response[DisputeResponse], error)
	ResolveDispute(context.Context, *connect.Request[ResolveDisputeRequest]) (*connect.Response[DisputeResponse], error)
	ListDisputes(context.Context, *connect.Request[ListDisputesRequest]) (*connect.Response[ListDisputesResponse], error)
}

// NewFundServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewFundServiceHandler(svc FundServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	routes := routeTable{}
	routes.add(FundServiceCreateFundProcedure, connect.NewUnaryHandler(FundServiceCreateFundProcedure, svc.CreateFund, opts...))
	routes.add(FundServiceGetFundProcedure, connect.NewUnaryHandler(FundServiceGetFundProcedure, svc.GetFund, opts...))
	routes.add(FundServiceListFundsProcedure, connect.NewUnaryHandler(FundServiceListFundsProcedure, svc.ListFunds, opts...))
	routes.add(FundServiceJoinFundProcedure, connect.NewUnaryHandler(FundServiceJoinFundProcedure, svc.JoinFund, opts...))
	routes.add(FundServiceInviteMembersProcedure, connect.NewUnaryHandler(FundServiceInviteMembersProcedure, svc.InviteMembers, opts...))
	routes.add(FundServiceListInvitationsProcedure, connect.NewUnaryHandler(FundServiceListInvitationsProcedure, svc.ListInvitations, opts...))
	routes.add(FundServiceAcceptInvitationProcedure, connect.NewUnaryHandler(FundServiceAcceptInvitationProcedure, svc.AcceptInvitation, opts...))
	routes.add(FundServiceDeclineInvitationProcedure, connect.NewUnaryHandler(FundServiceDeclineInvitationProcedure, svc.DeclineInvitation, opts...))
	routes.add(FundServiceUploadProofProcedure, connect.NewUnaryHandler(FundServiceUploadProofProcedure, svc.UploadProof, opts...))
	routes.add(FundServiceSubmitPaymentProcedure, connect.NewUnaryHandler(FundServiceSubmitPaymentProcedure, svc.SubmitPayment, opts...))
	routes.add(FundServiceApprovePaymentProcedure, connect.NewUnaryHandler(FundServiceApprovePaymentProcedure, svc.ApprovePayment, opts...))
	routes.add(FundServiceRejectPaymentProcedure, connect.NewUnaryHandler(FundServiceRejectPaymentProcedure, svc.RejectPayment, opts...))
	routes.add(FundServiceAssignPayoutProcedure, connect.NewUnaryHandler(FundServiceAssignPayoutProcedure, svc.AssignPayout, opts...))
	routes.add(FundServiceExecutePayoutProcedure, connect.NewUnaryHandler(FundServiceExecutePayoutProcedure, svc.ExecutePayout, opts...))
	routes.add(FundServiceSetMemberLockProcedure, connect.NewUnaryHandler(FundServiceSetMemberLockProcedure, svc.SetMemberLock, opts...))
	routes.add(FundServiceCloseFundProcedure, connect.NewUnaryHandler(FundServiceCloseFundProcedure, svc.CloseFund, opts...))
	routes.add(FundServiceGetFundLedgerProcedure, connect.NewUnaryHandler(FundServiceGetFundLedgerProcedure, svc.GetFundLedger, opts...))
	routes.add(FundServiceGetMemberLedgerProcedure, connect.NewUnaryHandler(FundServiceGetMemberLedgerProcedure, svc.GetMemberLedger, opts...))
	routes.add(FundServiceGetStandingsProcedure, connect.NewUnaryHandler(FundServiceGetStandingsProcedure, svc.GetStandings, opts...))
	routes.add(FundServiceGetPaymentLogProcedure, connect.NewUnaryHandler(FundServiceGetPaymentLogProcedure, svc.GetPaymentLog, opts...))
	routes.add(FundServiceRaiseDisputeProcedure, connect.NewUnaryHandler(FundServiceRaiseDisputeProcedure, svc.RaiseDispute, opts...))
	routes.add(FundServiceReplyDisputeProcedure, connect.NewUnaryHandler(FundServiceReplyDisputeProcedure, svc.ReplyDispute, opts...))
	routes.add(FundServiceResolveDisputeProcedure, connect.NewUnaryHandler(FundServiceResolveDisputeProcedure, svc.ResolveDispute, opts...))
	routes.add(FundServiceListDisputesProcedure, connect.NewUnaryHandler(FundServiceListDisputesProcedure, svc.ListDisputes, opts...))
	return "/" + FundServiceName + "/", routes
}

// FundServiceClient calls the fund service.
type FundServiceClient struct {
	createFund        *connect.Client[CreateFundRequest, CreateFundResponse]
	getFund           *connect.Client[GetFundRequest, GetFundResponse]
	listFunds         *connect.Client[ListFundsRequest, ListFundsResponse]
	joinFund          *connect.Client[JoinFundRequest, JoinFundResponse]
	inviteMembers     *connect.Client[InviteMembersRequest, InviteMembersResponse]
	listInvitations   *connect.Client[ListInvitationsRequest, ListInvitationsResponse]
	acceptInvitation  *connect.Client[AcceptInvitationRequest, AcceptInvitationResponse]
	declineInvitation *connect.Client[DeclineInvitationRequest, DeclineInvitationResponse]
	uploadProof       *connect.Client[UploadProofRequest, UploadProofResponse]
	submitPayment     *connect.Client[SubmitPaymentRequest, SubmitPaymentResponse]
	approvePayment    *connect.Client[PaymentDecisionRequest, PaymentDecisionResponse]
	rejectPayment     *connect.Client[PaymentDecisionRequest, PaymentDecisionResponse]
	assignPayout      *connect.Client[AssignPayoutRequest, PayoutResponse]
	executePayout     *connect.Client[ExecutePayoutRequest, PayoutResponse]
	setMemberLock     *connect.Client[SetMemberLockRequest, SetMemberLockResponse]
	closeFund         *connect.Client[CloseFundRequest, FundLedgerResponse]
	getFundLedger     *connect.Client[GetFundLedgerRequest, FundLedgerResponse]
	getMemberLedger   *connect.Client[GetMemberLedgerRequest, GetMemberLedgerResponse]
	getStandings      *connect.Client[GetStandingsRequest, GetStandingsResponse]
	getPaymentLog     *connect.Client[GetPaymentLogRequest, GetPaymentLogResponse]
	raiseDispute      *connect.Client[RaiseDisputeRequest, DisputeResponse]
	replyDispute      *connect.Client[ReplyDisputeRequest, DisputeResponse]
	resolveDispute    *connect.Client[ResolveDisputeRequest, DisputeResponse]
	listDisputes      *connect.Client[ListDisputesRequest, ListDisputesResponse]
}

// NewFundServiceClient constructs a client for the fund service. baseURL is
// the scheme and host of the server, e.g. http://localhost:8080.
func NewFundServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *FundServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &FundServiceClient{
		createFund:        connect.NewClient[CreateFundRequest, CreateFundResponse](httpClient, baseURL+FundServiceCreateFundProcedure, opts...),
		getFund:           connect.NewClient[GetFundRequest, GetFundResponse](httpClient, baseURL+FundServiceGetFundProcedure, opts...),
		listFunds:         connect.NewClient[ListFundsRequest, ListFundsResponse](httpClient, baseURL+FundServiceListFundsProcedure, opts...),
		joinFund:          connect.NewClient[JoinFundRequest, JoinFundResponse](httpClient, baseURL+FundServiceJoinFundProcedure, opts...),
		inviteMembers:     connect.NewClient[InviteMembersRequest, InviteMembersResponse](httpClient, baseURL+FundServiceInviteMembersProcedure, opts...),
		listInvitations:   connect.NewClient[ListInvitationsRequest, ListInvitationsResponse](httpClient, baseURL+FundServiceListInvitationsProcedure, opts...),
		acceptInvitation:  connect.NewClient[AcceptInvitationRequest, AcceptInvitationResponse](httpClient, baseURL+FundServiceAcceptInvitationProcedure, opts...),
		declineInvitation: connect.NewClient[DeclineInvitationRequest, DeclineInvitationResponse](httpClient, baseURL+FundServiceDeclineInvitationProcedure, opts...),
		uploadProof:       connect.NewClient[UploadProofRequest, UploadProofResponse](httpClient, baseURL+FundServiceUploadProofProcedure, opts...),
		submitPayment:     connect.NewClient[SubmitPaymentRequest, SubmitPaymentResponse](httpClient, baseURL+FundServiceSubmitPaymentProcedure, opts...),
		approvePayment:    connect.NewClient[PaymentDecisionRequest, PaymentDecisionResponse](httpClient, baseURL+FundServiceApprovePaymentProcedure, opts...),
		rejectPayment:     connect.NewClient[PaymentDecisionRequest, PaymentDecisionResponse](httpClient, baseURL+FundServiceRejectPaymentProcedure, opts...),
		assignPayout:      connect.NewClient[AssignPayoutRequest, PayoutResponse](httpClient, baseURL+FundServiceAssignPayoutProcedure, opts...),
		executePayout:     connect.NewClient[ExecutePayoutRequest, PayoutResponse](httpClient, baseURL+FundServiceExecutePayoutProcedure, opts...),
		setMemberLock:     connect.NewClient[SetMemberLockRequest, SetMemberLockResponse](httpClient, baseURL+FundServiceSetMemberLockProcedure, opts...),
		closeFund:         connect.NewClient[CloseFundRequest, FundLedgerResponse](httpClient, baseURL+FundServiceCloseFundProcedure, opts...),
		getFundLedger:     connect.NewClient[GetFundLedgerRequest, FundLedgerResponse](httpClient, baseURL+FundServiceGetFundLedgerProcedure, opts...),
		getMemberLedger:   connect.NewClient[GetMemberLedgerRequest, GetMemberLedgerResponse](httpClient, baseURL+FundServiceGetMemberLedgerProcedure, opts...),
		getStandings:      connect.NewClient[GetStandingsRequest, GetStandingsResponse](httpClient, baseURL+FundServiceGetStandingsProcedure, opts...),
		getPaymentLog:     connect.NewClient[GetPaymentLogRequest, GetPaymentLogResponse](httpClient, baseURL+FundServiceGetPaymentLogProcedure, opts...),
		raiseDispute:      connect.NewClient[RaiseDisputeRequest, DisputeResponse](httpClient, baseURL+FundServiceRaiseDisputeProcedure, opts...),
		replyDispute:      connect.NewClient[ReplyDisputeRequest, DisputeResponse](httpClient, baseURL+FundServiceReplyDisputeProcedure, opts...),
		resolveDispute:    connect.NewClient[ResolveDisputeRequest, DisputeResponse](httpClient, baseURL+FundServiceResolveDisputeProcedure, opts...),
		listDisputes:      connect.NewClient[ListDisputesRequest, ListDisputesResponse](httpClient, baseURL+FundServiceListDisputesProcedure, opts...),
	}
}

func (c *FundServiceClient) CreateFund(ctx context.Context, req *connect.Request[CreateFundRequest]) (*connect.Response[CreateFundResponse], error) {
	return c.createFund.CallUnary(ctx, req)
}

func (c *FundServiceClient) GetFund(ctx context.Context, req *connect.Request[GetFundRequest]) (*connect.Response[GetFundResponse], error) {
	return c.getFund.CallUnary(ctx, req)
}

func (c *FundServiceClient) ListFunds(ctx context.Context, req *connect.Request[ListFundsRequest]) (*connect.Response[ListFundsResponse], error) {
	return c.listFunds.CallUnary(ctx, req)
}

func (c *FundServiceClient) JoinFund(ctx context.Context, req *connect.Request[JoinFundRequest]) (*connect.Response[JoinFundResponse], error) {
	return c.joinFund.CallUnary(ctx, req)
}

func (c *FundServiceClient) InviteMembers(ctx context.Context, req *connect.Request[InviteMembersRequest]) (*connect.Response[InviteMembersResponse], error) {
	return c.inviteMembers.CallUnary(ctx, req)
}

func (c *FundServiceClient) ListInvitations(ctx context.Context, req *connect.Request[ListInvitationsRequest]) (*connect.Response[ListInvitationsResponse], error) {
	return c.listInvitations.CallUnary(ctx, req)
}

func (c *FundServiceClient) AcceptInvitation(ctx context.Context, req *connect.Request[AcceptInvitationRequest]) (*connect.Response[AcceptInvitationResponse], error) {
	return c.acceptInvitation.CallUnary(ctx, req)
}

func (c *FundServiceClient) DeclineInvitation(ctx context.Context, req *connect.Request[DeclineInvitationRequest]) (*connect.Response[DeclineInvitationResponse], error) {
	return c.declineInvitation.CallUnary(ctx, req)
}

func (c *FundServiceClient) UploadProof(ctx context.Context, req *connect.Request[UploadProofRequest]) (*connect.Response[UploadProofResponse], error) {
	return c.uploadProof.CallUnary(ctx, req)
}

func (c *FundServiceClient) SubmitPayment(ctx context.Context, req *connect.Request[SubmitPaymentRequest]) (*connect.Response[SubmitPaymentResponse], error) {
	return c.submitPayment.CallUnary(ctx, req)
}

func (c *FundServiceClient) ApprovePayment(ctx context.Context, req *connect.Request[PaymentDecisionRequest]) (*connect.Response[PaymentDecisionResponse], error) {
	return c.approvePayment.CallUnary(ctx, req)
}

func (c *FundServiceClient) RejectPayment(ctx context.Context, req *connect.Request[PaymentDecisionRequest]) (*connect.Response[PaymentDecisionResponse], error) {
	return c.rejectPayment.CallUnary(ctx, req)
}

func (c *FundServiceClient) AssignPayout(ctx context.Context, req *connect.Request[AssignPayoutRequest]) (*connect.Response[PayoutResponse], error) {
	return c.assignPayout.CallUnary(ctx, req)
}

func (c *FundServiceClient) ExecutePayout(ctx context.Context, req *connect.Request[ExecutePayoutRequest]) (*connect.Response[PayoutResponse], error) {
	return c.executePayout.CallUnary(ctx, req)
}

func (c *FundServiceClient) SetMemberLock(ctx context.Context, req *connect.Request[SetMemberLockRequest]) (*connect.Response[SetMemberLockResponse], error) {
	return c.setMemberLock.CallUnary(ctx, req)
}

func (c *FundServiceClient) CloseFund(ctx context.Context, req *connect.Request[CloseFundRequest]) (*connect.Response[FundLedgerResponse], error) {
	return c.closeFund.CallUnary(ctx, req)
}

func (c *FundServiceClient) GetFundLedger(ctx context.Context, req *connect.Request[GetFundLedgerRequest]) (*connect.Response[FundLedgerResponse], error) {
	return c.getFundLedger.CallUnary(ctx, req)
}

func (c *FundServiceClient) GetMemberLedger(ctx context.Context, req *connect.Request[GetMemberLedgerRequest]) (*connect.Response[GetMemberLedgerResponse], error) {
	return c.getMemberLedger.CallUnary(ctx, req)
}

func (c *FundServiceClient) GetStandings(ctx context.Context, req *connect.Request[GetStandingsRequest]) (*connect.Response[GetStandingsResponse], error) {
	return c.getStandings.CallUnary(ctx, req)
}

func (c *FundServiceClient) GetPaymentLog(ctx context.Context, req *connect.Request[GetPaymentLogRequest]) (*connect.Response[GetPaymentLogResponse], error) {
	return c.getPaymentLog.CallUnary(ctx, req)
}

func (c *FundServiceClient) RaiseDispute(ctx context.Context, req *connect.Request[RaiseDisputeRequest]) (*connect.Response[DisputeResponse], error) {
	return c.raiseDispute.CallUnary(ctx, req)
}

func (c *FundServiceClient) ReplyDispute(ctx context.Context, req *connect.Request[ReplyDisputeRequest]) (*connect.Response[DisputeResponse], error) {
	return c.replyDispute.CallUnary(ctx, req)
}

func (c *FundServiceClient) ResolveDispute(ctx context.Context, req *connect.Request[ResolveDisputeRequest]) (*connect.Response[DisputeResponse], error) {
	return c.resolveDispute.CallUnary(ctx, req)
}

func (c *FundServiceClient) ListDisputes(ctx context.Context, req *connect.Request[ListDisputesRequest]) (*connect.Response[ListDisputesResponse], error) {
	return c.listDisputes.CallUnary(ctx, req)
}

// routeTable dispatches on the exact procedure path.
type routeTable map[string]http.Handler

func (t routeTable) add(procedure string, h http.Handler) {
	t[procedure] = h
}

func (t routeTable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, ok := t[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.ServeHTTP(w, r)
}

func withCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}
