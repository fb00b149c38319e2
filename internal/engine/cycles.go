package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/models"
)

// reconcileConcurrency bounds how many funds ReconcileAll backfills at once.
const reconcileConcurrency = 4

// plannedCycles returns the full schedule of a fund: one cycle per month
// index, due on the first day of StartMonth + index months.
func (e *Engine) plannedCycles(fund *models.Fund) []models.Cycle {
	cycles := make([]models.Cycle, fund.GroupSize)
	for i := range cycles {
		cycles[i] = models.Cycle{
			ID:         newID(),
			FundID:     fund.ID,
			MonthIndex: i,
			DueDate:    fund.DueDate(i, e.loc),
		}
	}
	return cycles
}

// EnsureCycles creates the cycles a fund is missing and returns how many were
// created. Safe to call repeatedly and concurrently; existing cycles are
// never modified. Closed funds are skipped.
func (e *Engine) EnsureCycles(ctx context.Context, fundID string) (int, error) {
	fund, err := e.loadFund(ctx, fundID)
	if err != nil {
		return 0, err
	}
	if fund.IsClosed() {
		return 0, nil
	}
	return e.ensureCycles(ctx, fund)
}

func (e *Engine) ensureCycles(ctx context.Context, fund *models.Fund) (int, error) {
	existing, err := e.store.ListCycles(ctx, fund.ID)
	if err != nil {
		return 0, e.translate(err, apperr.ErrFundNotFound, "list cycles")
	}
	if len(existing) >= fund.GroupSize {
		return 0, nil
	}

	created, err := e.store.EnsureCycles(ctx, fund.ID, e.plannedCycles(fund))
	if err != nil {
		return 0, e.translate(err, apperr.ErrFundNotFound, "ensure cycles")
	}
	if created > 0 {
		e.metrics.CyclesCreated(created)
		slog.Info("Backfilled cycles", "fund_id", fund.ID, "created", created)
	}
	return created, nil
}

// ReconcileAll backfills cycles for every open fund. Funds are independent,
// so they are processed in parallel. It returns the number of cycles created.
func (e *Engine) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := e.store.ListOpenFundIDs(ctx)
	if err != nil {
		return 0, e.translate(err, apperr.ErrFundNotFound, "list open funds")
	}

	var total atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			n, err := e.EnsureCycles(ctx, id)
			if err != nil {
				slog.Error("Failed to reconcile fund", "fund_id", id, "error", err)
				return err
			}
			total.Add(int64(n))
			return nil
		})
	}
	err = g.Wait()
	return int(total.Load()), err
}

// RunReconciler calls ReconcileAll every interval until ctx is cancelled.
func (e *Engine) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Reconciler started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconciler stopped")
			return
		case <-ticker.C:
			n, err := e.ReconcileAll(ctx)
			if err != nil {
				slog.Warn("Reconcile pass failed", "error", err)
				continue
			}
			slog.Debug("Reconcile pass done", "cycles_created", n)
		}
	}
}
