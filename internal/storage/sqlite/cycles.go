package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/chitfund/internal/models"
)

// execer is implemented by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EnsureCycles inserts the missing cycles of a fund. Concurrent callers are
// safe: the unique (fund_id, month_index) key turns a second insert of the
// same month into a no-op.
func (s *SQLiteStore) EnsureCycles(ctx context.Context, fundID string, cycles []models.Cycle) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, mapError("begin transaction", err)
	}
	defer tx.Rollback()

	created, err := insertCyclesCount(ctx, tx, fundID, cycles)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, mapError("commit transaction", err)
	}
	return created, nil
}

func insertCycles(ctx context.Context, ex execer, fundID string, cycles []models.Cycle) error {
	_, err := insertCyclesCount(ctx, ex, fundID, cycles)
	return err
}

func insertCyclesCount(ctx context.Context, ex execer, fundID string, cycles []models.Cycle) (int, error) {
	created := 0
	for _, c := range cycles {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		res, err := ex.ExecContext(ctx, `
			INSERT INTO cycles (id, fund_id, month_index, due_date, payout_recipient, payout_executed, payout_proof_ref)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (fund_id, month_index) DO NOTHING`,
			id, fundID, c.MonthIndex, toMillis(c.DueDate), c.PayoutRecipient, boolToInt(c.PayoutExecuted), c.PayoutProofRef,
		)
		if err != nil {
			return 0, mapError("insert cycle", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to insert cycle: %w", err)
		}
		created += int(n)
	}
	return created, nil
}

// ListCycles returns a fund's cycles in month order, each with its payments.
func (s *SQLiteStore) ListCycles(ctx context.Context, fundID string) ([]models.Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fund_id, month_index, due_date, payout_recipient, payout_executed, payout_proof_ref
		FROM cycles WHERE fund_id = ? ORDER BY month_index`,
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []models.Cycle
	index := make(map[string]int)
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		index[c.ID] = len(cycles)
		cycles = append(cycles, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}

	payments, err := s.queryPayments(ctx, `
		SELECT `+paymentColumns("p")+`
		FROM payment_records p JOIN cycles c ON c.id = p.cycle_id
		WHERE c.fund_id = ?
		ORDER BY c.month_index, p.submitted_at, p.id`,
		fundID,
	)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if i, ok := index[p.CycleID]; ok {
			cycles[i].Payments = append(cycles[i].Payments, p)
		}
	}

	return cycles, nil
}

// GetCycle returns one cycle with its payments.
func (s *SQLiteStore) GetCycle(ctx context.Context, cycleID string) (*models.Cycle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, fund_id, month_index, due_date, payout_recipient, payout_executed, payout_proof_ref
		FROM cycles WHERE id = ?`,
		cycleID,
	)
	cycle, err := scanCycle(row)
	if err != nil {
		return nil, mapError("get cycle", err)
	}

	cycle.Payments, err = s.queryPayments(ctx,
		"SELECT "+paymentColumns("p")+" FROM payment_records p WHERE p.cycle_id = ? ORDER BY p.submitted_at, p.id",
		cycleID,
	)
	if err != nil {
		return nil, err
	}
	return cycle, nil
}

// SetPayoutRecipient assigns the recipient while the payout is still open.
func (s *SQLiteStore) SetPayoutRecipient(ctx context.Context, cycleID, recipientID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cycles SET payout_recipient = ? WHERE id = ? AND payout_executed = 0",
		recipientID, cycleID,
	)
	if err != nil {
		return mapError("set payout recipient", err)
	}
	return expectOne("set payout recipient", res)
}

// MarkPayoutExecuted flags the payout as executed. Calling it again only
// replaces the proof reference.
func (s *SQLiteStore) MarkPayoutExecuted(ctx context.Context, cycleID, proofRef string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cycles SET payout_executed = 1, payout_proof_ref = ? WHERE id = ?",
		proofRef, cycleID,
	)
	if err != nil {
		return mapError("execute payout", err)
	}
	return expectOne("execute payout", res)
}

func scanCycle(row scanner) (*models.Cycle, error) {
	c := &models.Cycle{}
	var dueDate int64
	var executed int
	if err := row.Scan(&c.ID, &c.FundID, &c.MonthIndex, &dueDate, &c.PayoutRecipient, &executed, &c.PayoutProofRef); err != nil {
		return nil, err
	}
	c.DueDate = fromMillis(dueDate)
	c.PayoutExecuted = executed != 0
	return c, nil
}
