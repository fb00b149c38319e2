package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

const fundColumns = `id, name, currency, monthly_contribution, group_size, start_month,
	payment_window, grace_period_days, turn_order_policy, created_by, created_at, closed_at`

// CreateFund persists a new fund together with its planned roster, its
// cycles and the invitations sent at creation.
func (s *SQLiteStore) CreateFund(ctx context.Context, fund *models.Fund, cycles []models.Cycle, invitations []models.Invitation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO funds ("+fundColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		fund.ID, fund.Name, fund.Currency, fund.MonthlyContribution, fund.GroupSize,
		toMillis(fund.StartMonth), fund.PaymentWindow.String(), fund.GracePeriodDays,
		string(fund.TurnOrderPolicy), fund.CreatedBy, toMillis(fund.CreatedAt), nullMillis(fund.ClosedAt),
	)
	if err != nil {
		return mapError("insert fund", err)
	}

	for _, p := range fund.PlannedRoster {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO planned_members (fund_id, position, name, email, user_id) VALUES (?, ?, ?, ?, ?)",
			fund.ID, p.Position, p.Name, models.NormalizeEmail(p.Email), nullString(p.UserID),
		)
		if err != nil {
			return mapError("insert planned member", err)
		}
	}

	if err := insertCycles(ctx, tx, fund.ID, cycles); err != nil {
		return err
	}

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

// GetFund retrieves a fund with its members and planned roster.
func (s *SQLiteStore) GetFund(ctx context.Context, fundID string) (*models.Fund, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fundColumns+" FROM funds WHERE id = ?", fundID)
	fund, err := scanFund(row)
	if err != nil {
		return nil, mapError("get fund", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, turn_position, payout_account, invited_email, is_locked, joined_at
		FROM fund_members WHERE fund_id = ? ORDER BY turn_position`,
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get fund members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		var locked int
		var joinedAt int64
		if err := rows.Scan(&m.UserID, &m.TurnPosition, &m.PayoutAccount, &m.InvitedEmail, &locked, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fund member: %w", err)
		}
		m.IsLocked = locked != 0
		m.JoinedAt = fromMillis(joinedAt)
		fund.Members = append(fund.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fund members: %w", err)
	}

	plannedRows, err := s.db.QueryContext(ctx,
		"SELECT position, name, email, user_id FROM planned_members WHERE fund_id = ? ORDER BY position",
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get planned roster: %w", err)
	}
	defer plannedRows.Close()

	for plannedRows.Next() {
		var p models.PlannedMember
		var userID sql.NullString
		if err := plannedRows.Scan(&p.Position, &p.Name, &p.Email, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan planned member: %w", err)
		}
		p.UserID = userID.String
		fund.PlannedRoster = append(fund.PlannedRoster, p)
	}
	if err := plannedRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate planned roster: %w", err)
	}

	return fund, nil
}

// ListFundsForUser returns the funds userID created or joined, newest first.
func (s *SQLiteStore) ListFundsForUser(ctx context.Context, userID string) ([]*models.Fund, error) {
	ids, err := s.queryIDs(ctx, `
		SELECT id FROM funds
		WHERE created_by = ? OR id IN (SELECT fund_id FROM fund_members WHERE user_id = ?)
		ORDER BY created_at DESC, id`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}

	funds := make([]*models.Fund, 0, len(ids))
	for _, id := range ids {
		fund, err := s.GetFund(ctx, id)
		if err != nil {
			return nil, err
		}
		funds = append(funds, fund)
	}
	return funds, nil
}

// ListOpenFundIDs returns the IDs of every fund that is not closed.
func (s *SQLiteStore) ListOpenFundIDs(ctx context.Context) ([]string, error) {
	ids, err := s.queryIDs(ctx, "SELECT id FROM funds WHERE closed_at IS NULL ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list open funds: %w", err)
	}
	return ids, nil
}

// AddMember inserts a member under the fund's capacity in a single
// conditional statement, then claims the planned slot and accepts the
// invitation in the same transaction.
func (s *SQLiteStore) AddMember(ctx context.Context, fundID string, member models.Member, claimPosition int, invitationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO fund_members (fund_id, user_id, turn_position, payout_account, invited_email, is_locked, joined_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM fund_members WHERE fund_id = ?)
		    < (SELECT group_size FROM funds WHERE id = ? AND closed_at IS NULL)`,
		fundID, member.UserID, member.TurnPosition, member.PayoutAccount,
		models.NormalizeEmail(member.InvitedEmail), boolToInt(member.IsLocked), toMillis(member.JoinedAt),
		fundID, fundID,
	)
	if err != nil {
		return mapError("insert fund member", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to insert fund member: %w", err)
	} else if n == 0 {
		return fmt.Errorf("insert fund member: %w", storage.ErrCapacity)
	}

	if claimPosition > 0 {
		_, err = tx.ExecContext(ctx,
			"UPDATE planned_members SET user_id = ? WHERE fund_id = ? AND position = ? AND user_id IS NULL",
			member.UserID, fundID, claimPosition,
		)
		if err != nil {
			return mapError("claim planned slot", err)
		}
	}

	if invitationID != "" {
		res, err := tx.ExecContext(ctx,
			"UPDATE invitations SET status = ?, responded_at = ? WHERE id = ? AND fund_id = ? AND status = ?",
			string(models.InvitationAccepted), toMillis(member.JoinedAt), invitationID, fundID, string(models.InvitationPending),
		)
		if err != nil {
			return mapError("accept invitation", err)
		}
		if err := expectOne("accept invitation", res); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// SetMemberLock updates a member's lock flag.
func (s *SQLiteStore) SetMemberLock(ctx context.Context, fundID, userID string, locked bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE fund_members SET is_locked = ? WHERE fund_id = ? AND user_id = ?",
		boolToInt(locked), fundID, userID,
	)
	if err != nil {
		return mapError("set member lock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set member lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set member lock: %w", storage.ErrNotFound)
	}
	return nil
}

// CloseFund sets closed_at on an open fund.
func (s *SQLiteStore) CloseFund(ctx context.Context, fundID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE funds SET closed_at = ? WHERE id = ? AND closed_at IS NULL",
		toMillis(at), fundID,
	)
	if err != nil {
		return mapError("close fund", err)
	}
	return expectOne("close fund", res)
}

func (s *SQLiteStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanFund(row scanner) (*models.Fund, error) {
	fund := &models.Fund{}
	var startMonth, createdAt int64
	var window, policy string
	var closedAt sql.NullInt64
	if err := row.Scan(
		&fund.ID, &fund.Name, &fund.Currency, &fund.MonthlyContribution, &fund.GroupSize,
		&startMonth, &window, &fund.GracePeriodDays, &policy, &fund.CreatedBy, &createdAt, &closedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if fund.PaymentWindow, err = models.ParsePaymentWindow(window); err != nil {
		return nil, err
	}
	if fund.TurnOrderPolicy, err = models.ParseTurnOrderPolicy(policy); err != nil {
		return nil, err
	}
	fund.StartMonth = fromMillis(startMonth)
	fund.CreatedAt = fromMillis(createdAt)
	fund.ClosedAt = fromNullMillis(closedAt)
	return fund, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
