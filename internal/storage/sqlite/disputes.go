package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

const disputeColumns = "id, fund_id, raised_by, subject, status, created_at, updated_at, resolved_at"

// CreateDispute stores a dispute and its opening messages.
func (s *SQLiteStore) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO disputes ("+disputeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		dispute.ID, dispute.FundID, dispute.RaisedBy, dispute.Subject, string(dispute.Status),
		toMillis(dispute.CreatedAt), toMillis(dispute.UpdatedAt), nullMillis(dispute.ResolvedAt),
	)
	if err != nil {
		return mapError("insert dispute", err)
	}

	for _, msg := range dispute.Messages {
		if err := insertDisputeMessage(ctx, tx, dispute.ID, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// GetDispute retrieves a dispute with its messages.
func (s *SQLiteStore) GetDispute(ctx context.Context, id string) (*models.Dispute, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+disputeColumns+" FROM disputes WHERE id = ?", id)
	dispute, err := scanDispute(row)
	if err != nil {
		return nil, mapError("get dispute", err)
	}
	if err := s.loadDisputeMessages(ctx, dispute); err != nil {
		return nil, err
	}
	return dispute, nil
}

// ListDisputes returns a fund's disputes, most recently updated first.
func (s *SQLiteStore) ListDisputes(ctx context.Context, fundID string) ([]models.Dispute, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+disputeColumns+" FROM disputes WHERE fund_id = ? ORDER BY updated_at DESC, id",
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	defer rows.Close()

	var disputes []models.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispute: %w", err)
		}
		disputes = append(disputes, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate disputes: %w", err)
	}
	rows.Close()

	for i := range disputes {
		if err := s.loadDisputeMessages(ctx, &disputes[i]); err != nil {
			return nil, err
		}
	}
	return disputes, nil
}

// AddDisputeMessage appends a message to an open dispute.
func (s *SQLiteStore) AddDisputeMessage(ctx context.Context, disputeID string, msg models.DisputeMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE disputes SET updated_at = ? WHERE id = ? AND status = ?",
		toMillis(msg.CreatedAt), disputeID, string(models.DisputeOpen),
	)
	if err != nil {
		return mapError("touch dispute", err)
	}
	if err := expectOne("touch dispute", res); err != nil {
		return err
	}

	if err := insertDisputeMessage(ctx, tx, disputeID, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// ResolveDispute marks an open dispute as resolved.
func (s *SQLiteStore) ResolveDispute(ctx context.Context, disputeID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE disputes SET status = ?, resolved_at = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(models.DisputeResolved), toMillis(at), toMillis(at), disputeID, string(models.DisputeOpen),
	)
	if err != nil {
		return mapError("resolve dispute", err)
	}
	return expectOne("resolve dispute", res)
}

func insertDisputeMessage(ctx context.Context, ex execer, disputeID string, msg models.DisputeMessage) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO dispute_messages (id, dispute_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, disputeID, msg.AuthorID, msg.Body, toMillis(msg.CreatedAt),
	)
	return mapError("insert dispute message", err)
}

func (s *SQLiteStore) loadDisputeMessages(ctx context.Context, dispute *models.Dispute) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, author_id, body, created_at FROM dispute_messages WHERE dispute_id = ? ORDER BY created_at, id",
		dispute.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get dispute messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg models.DisputeMessage
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.AuthorID, &msg.Body, &createdAt); err != nil {
			return fmt.Errorf("failed to scan dispute message: %w", err)
		}
		msg.CreatedAt = fromMillis(createdAt)
		dispute.Messages = append(dispute.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate dispute messages: %w", err)
	}
	return nil
}

func scanDispute(row scanner) (*models.Dispute, error) {
	d := &models.Dispute{}
	var status string
	var createdAt, updatedAt int64
	var resolvedAt sql.NullInt64
	if err := row.Scan(&d.ID, &d.FundID, &d.RaisedBy, &d.Subject, &status, &createdAt, &updatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	d.Status = models.DisputeStatus(status)
	d.CreatedAt = fromMillis(createdAt)
	d.UpdatedAt = fromMillis(updatedAt)
	d.ResolvedAt = fromNullMillis(resolvedAt)
	return d, nil
}
