// Package engine implements the fund lifecycle: creation, membership, the
// per-cycle payment workflow, payouts, locks, closure and the read-side
// projections (eligibility, streaks, ledgers).
//
// The engine trusts the Actor it is given. Authentication happens upstream.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/audit"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Email  string
	Role   models.Role
}

// Engine orchestrates fund operations over a Store.
type Engine struct {
	store    storage.Store
	now      func() time.Time
	loc      *time.Location
	audit    audit.Emitter
	metrics  *metrics.Recorder
	validate *validator.Validate
	currency string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the random source used for randomized turn orders.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLocation sets the time zone due dates and payment windows live in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithAuditSink sets where audit events go.
func WithAuditSink(em audit.Emitter) Option {
	return func(e *Engine) { e.audit = em }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithValidator shares a validator instance (it caches struct metadata).
func WithValidator(v *validator.Validate) Option {
	return func(e *Engine) { e.validate = v }
}

// WithDefaultCurrency sets the currency used when CreateFund gets none.
func WithDefaultCurrency(currency string) Option {
	return func(e *Engine) { e.currency = currency }
}

// New creates an engine backed by store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		now:      time.Now,
		loc:      time.UTC,
		audit:    audit.Discard{},
		currency: "INR",
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validate == nil {
		e.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return e
}

func (e *Engine) clock() time.Time {
	return e.now().In(e.loc)
}

// withRand runs fn with exclusive use of the engine's random source.
// A nil source means the global generator.
func (e *Engine) withRand(fn func(*rand.Rand) error) error {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return fn(e.rng)
}

func (e *Engine) emit(event audit.Event) {
	e.audit.Emit(event)
}

func newID() string {
	return uuid.New().String()
}

// loadFund fetches a fund and translates a missing row.
func (e *Engine) loadFund(ctx context.Context, fundID string) (*models.Fund, error) {
	if fundID == "" {
		return nil, apperr.Validation("fund_id is required")
	}
	fund, err := e.store.GetFund(ctx, fundID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "get fund")
	}
	return fund, nil
}

// loadOpenFund fetches a fund that is not closed.
func (e *Engine) loadOpenFund(ctx context.Context, fundID string) (*models.Fund, error) {
	fund, err := e.loadFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if fund.IsClosed() {
		return nil, apperr.ErrFundClosed
	}
	return fund, nil
}

// loadCycle fetches a cycle and checks it belongs to fund.
func (e *Engine) loadCycle(ctx context.Context, fund *models.Fund, cycleID string) (*models.Cycle, error) {
	if cycleID == "" {
		return nil, apperr.Validation("cycle_id is required")
	}
	cycle, err := e.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrCycleNotFound, "get cycle")
	}
	if cycle.FundID != fund.ID {
		return nil, apperr.ErrCycleNotFound
	}
	cycle.DueDate = cycle.DueDate.In(e.loc)
	return cycle, nil
}

// listCycles returns the fund's cycles with due dates in the engine's zone.
func (e *Engine) listCycles(ctx context.Context, fundID string) ([]models.Cycle, error) {
	cycles, err := e.store.ListCycles(ctx, fundID)
	if err != nil {
		return nil, e.translate(err, apperr.ErrFundNotFound, "list cycles")
	}
	for i := range cycles {
		cycles[i].DueDate = cycles[i].DueDate.In(e.loc)
	}
	return cycles, nil
}

func requireAdmin(fund *models.Fund, actor Actor) error {
	if !fund.IsAdmin(actor.UserID) {
		return apperr.ErrNotAdmin
	}
	return nil
}

// requireParticipant allows the admin and joined members.
func requireParticipant(fund *models.Fund, actor Actor) error {
	if fund.IsAdmin(actor.UserID) || fund.IsMember(actor.UserID) {
		return nil
	}
	return apperr.ErrNotMember
}

// AuthorizeUpload checks that actor may attach files to an open fund.
func (e *Engine) AuthorizeUpload(ctx context.Context, actor Actor, fundID string) error {
	fund, err := e.loadOpenFund(ctx, fundID)
	if err != nil {
		return err
	}
	return requireParticipant(fund, actor)
}

// translate converts storage sentinels into engine errors. notFound is used
// for storage.ErrNotFound; op names the failed step.
func (e *Engine) translate(err error, notFound *apperr.Error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return notFound.WithError(err)
	case errors.Is(err, storage.ErrStale), errors.Is(err, storage.ErrBusy):
		e.metrics.Conflict(op)
		return apperr.ErrConcurrentUpdate.WithError(err)
	case errors.Is(err, storage.ErrDuplicate):
		return apperr.ErrConflict.WithError(err)
	case errors.Is(err, storage.ErrCapacity):
		return apperr.ErrFundFull.WithError(err)
	default:
		slog.Error("Storage failure", "op", op, "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
