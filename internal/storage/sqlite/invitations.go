package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

const invitationColumns = "id, fund_id, email, invited_by, turn_position, status, created_at, responded_at"

// CreateInvitations inserts a batch of invitations in one transaction.
func (s *SQLiteStore) CreateInvitations(ctx context.Context, invitations []models.Invitation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer tx.Rollback()

	for _, inv := range invitations {
		if err := insertInvitation(ctx, tx, inv); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// GetInvitation retrieves an invitation by ID.
func (s *SQLiteStore) GetInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+invitationColumns+" FROM invitations WHERE id = ?", id)
	inv, err := scanInvitation(row)
	if err != nil {
		return nil, mapError("get invitation", err)
	}
	return inv, nil
}

// ListInvitations returns every invitation of a fund, oldest first.
func (s *SQLiteStore) ListInvitations(ctx context.Context, fundID string) ([]models.Invitation, error) {
	return s.queryInvitations(ctx,
		"SELECT "+invitationColumns+" FROM invitations WHERE fund_id = ? ORDER BY created_at, id",
		fundID,
	)
}

// ListInvitationsByEmail returns every invitation sent to email, newest first.
func (s *SQLiteStore) ListInvitationsByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	return s.queryInvitations(ctx,
		"SELECT "+invitationColumns+" FROM invitations WHERE email = ? ORDER BY created_at DESC, id",
		models.NormalizeEmail(email),
	)
}

// RespondInvitation records the answer to a pending invitation.
func (s *SQLiteStore) RespondInvitation(ctx context.Context, id string, status models.InvitationStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE invitations SET status = ?, responded_at = ? WHERE id = ? AND status = ?",
		string(status), toMillis(at), id, string(models.InvitationPending),
	)
	if err != nil {
		return mapError("respond invitation", err)
	}
	return expectOne("respond invitation", res)
}

func insertInvitation(ctx context.Context, ex execer, inv models.Invitation) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO invitations ("+invitationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		inv.ID, inv.FundID, models.NormalizeEmail(inv.Email), inv.InvitedBy, inv.TurnPosition,
		string(inv.Status), toMillis(inv.CreatedAt), nullMillis(inv.RespondedAt),
	)
	return mapError("insert invitation", err)
}

func (s *SQLiteStore) queryInvitations(ctx context.Context, query string, args ...any) ([]models.Invitation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return invitations, nil
}

func scanInvitation(row scanner) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var status string
	var createdAt int64
	var respondedAt sql.NullInt64
	if err := row.Scan(&inv.ID, &inv.FundID, &inv.Email, &inv.InvitedBy, &inv.TurnPosition, &status, &createdAt, &respondedAt); err != nil {
		return nil, err
	}
	inv.Status = models.InvitationStatus(status)
	inv.CreatedAt = fromMillis(createdAt)
	inv.RespondedAt = fromNullMillis(respondedAt)
	return inv, nil
}
