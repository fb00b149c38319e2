package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mmynk/chitfund/internal/models"
)

func paymentColumns(alias string) string {
	cols := []string{"id", "cycle_id", "member_id", "amount", "proof_ref", "status",
		"submitted_at", "paid_at", "decided_at", "penalty_days", "penalty_amount"}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// InsertPayment creates the first record of a member in a cycle and logs the
// submission in the same transaction.
func (s *SQLiteStore) InsertPayment(ctx context.Context, rec *models.PaymentRecord, entry *models.PaymentLogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_records (id, cycle_id, member_id, amount, proof_ref, status,
			submitted_at, paid_at, decided_at, penalty_days, penalty_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CycleID, rec.MemberID, rec.Amount, rec.ProofRef, rec.Status.String(),
		toMillis(rec.SubmittedAt), nullMillis(rec.PaidAt), nullMillis(rec.DecidedAt),
		rec.PenaltyDays, rec.PenaltyAmount,
	)
	if err != nil {
		return mapError("insert payment", err)
	}

	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// UpdatePayment is a compare-and-set on the record's status: the write only
// lands if nobody moved the record away from `from` since it was read.
func (s *SQLiteStore) UpdatePayment(ctx context.Context, rec *models.PaymentRecord, from models.PaymentStatus, entry *models.PaymentLogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE payment_records
		SET amount = ?, proof_ref = ?, status = ?, submitted_at = ?, paid_at = ?, decided_at = ?,
			penalty_days = ?, penalty_amount = ?
		WHERE id = ? AND status = ?`,
		rec.Amount, rec.ProofRef, rec.Status.String(), toMillis(rec.SubmittedAt),
		nullMillis(rec.PaidAt), nullMillis(rec.DecidedAt), rec.PenaltyDays, rec.PenaltyAmount,
		rec.ID, from.String(),
	)
	if err != nil {
		return mapError("update payment", err)
	}
	if err := expectOne("update payment", res); err != nil {
		return err
	}

	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// ListPaymentLog returns every submission made in a fund, oldest first.
func (s *SQLiteStore) ListPaymentLog(ctx context.Context, fundID string) ([]models.PaymentLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fund_id, cycle_id, member_id, amount, proof_ref, created_at
		FROM payment_log WHERE fund_id = ? ORDER BY created_at, id`,
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment log: %w", err)
	}
	defer rows.Close()

	var entries []models.PaymentLogEntry
	for rows.Next() {
		var e models.PaymentLogEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.FundID, &e.CycleID, &e.MemberID, &e.Amount, &e.ProofRef, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment log entry: %w", err)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment log: %w", err)
	}
	return entries, nil
}

func insertLogEntry(ctx context.Context, ex execer, entry *models.PaymentLogEntry) error {
	if entry == nil {
		return nil
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO payment_log (id, fund_id, cycle_id, member_id, amount, proof_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.FundID, entry.CycleID, entry.MemberID, entry.Amount, entry.ProofRef, toMillis(entry.CreatedAt),
	)
	return mapError("insert payment log entry", err)
}

func (s *SQLiteStore) queryPayments(ctx context.Context, query string, args ...any) ([]models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	var payments []models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func scanPayment(row scanner) (*models.PaymentRecord, error) {
	p := &models.PaymentRecord{}
	var status string
	var submittedAt int64
	var paidAt, decidedAt sql.NullInt64
	if err := row.Scan(
		&p.ID, &p.CycleID, &p.MemberID, &p.Amount, &p.ProofRef, &status,
		&submittedAt, &paidAt, &decidedAt, &p.PenaltyDays, &p.PenaltyAmount,
	); err != nil {
		return nil, err
	}

	var err error
	if p.Status, err = models.ParsePaymentStatus(status); err != nil {
		return nil, err
	}
	p.SubmittedAt = fromMillis(submittedAt)
	p.PaidAt = fromNullMillis(paidAt)
	p.DecidedAt = fromNullMillis(decidedAt)
	return p, nil
}
