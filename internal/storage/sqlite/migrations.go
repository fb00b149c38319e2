package sqlite

import "database/sql"

// schema sets up the database. It runs on startup and is idempotent.
// Timestamps are Unix milliseconds; money is REAL.
// IMPORTANT: funds must be created before every table that references it.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('organizer', 'member')),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS funds (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    currency TEXT NOT NULL,
    monthly_contribution REAL NOT NULL CHECK (monthly_contribution > 0),
    group_size INTEGER NOT NULL CHECK (group_size BETWEEN 2 AND 50),
    start_month INTEGER NOT NULL,
    payment_window TEXT NOT NULL,
    grace_period_days INTEGER NOT NULL CHECK (grace_period_days BETWEEN 0 AND 5),
    turn_order_policy TEXT NOT NULL,
    created_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    closed_at INTEGER
);

CREATE TABLE IF NOT EXISTS fund_members (
    fund_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    turn_position INTEGER NOT NULL,
    payout_account TEXT NOT NULL DEFAULT '',
    invited_email TEXT NOT NULL DEFAULT '',
    is_locked INTEGER NOT NULL DEFAULT 0,
    joined_at INTEGER NOT NULL,
    PRIMARY KEY (fund_id, user_id),
    UNIQUE (fund_id, turn_position),
    FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS planned_members (
    fund_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    user_id TEXT,
    PRIMARY KEY (fund_id, position),
    UNIQUE (fund_id, email),
    FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS cycles (
    id TEXT PRIMARY KEY,
    fund_id TEXT NOT NULL,
    month_index INTEGER NOT NULL,
    due_date INTEGER NOT NULL,
    payout_recipient TEXT NOT NULL DEFAULT '',
    payout_executed INTEGER NOT NULL DEFAULT 0,
    payout_proof_ref TEXT NOT NULL DEFAULT '',
    UNIQUE (fund_id, month_index),
    FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payment_records (
    id TEXT PRIMARY KEY,
    cycle_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    amount REAL NOT NULL,
    proof_ref TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending', 'paid', 'rejected')),
    submitted_at INTEGER NOT NULL,
    paid_at INTEGER,
    decided_at INTEGER,
    penalty_days INTEGER NOT NULL DEFAULT 0,
    penalty_amount REAL NOT NULL DEFAULT 0,
    UNIQUE (cycle_id, member_id),
    FOREIGN KEY (cycle_id) REFERENCES cycles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payment_log (
    id TEXT PRIMARY KEY,
    fund_id TEXT NOT NULL,
    cycle_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    amount REAL NOT NULL,
    proof_ref TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS invitations (
    id TEXT PRIMARY KEY,
    fund_id TEXT NOT NULL,
    email TEXT NOT NULL,
    invited_by TEXT NOT NULL,
    turn_position INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'declined')),
    created_at INTEGER NOT NULL,
    responded_at INTEGER,
    FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS disputes (
    id TEXT PRIMARY KEY,
    fund_id TEXT NOT NULL,
    raised_by TEXT NOT NULL,
    subject TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('open', 'resolved')),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    resolved_at INTEGER,
    FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS dispute_messages (
    id TEXT PRIMARY KEY,
    dispute_id TEXT NOT NULL,
    author_id TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (dispute_id) REFERENCES disputes(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_fund_members_user_id ON fund_members(user_id);
CREATE INDEX IF NOT EXISTS idx_cycles_fund_id ON cycles(fund_id);
CREATE INDEX IF NOT EXISTS idx_payment_records_cycle_id ON payment_records(cycle_id);
CREATE INDEX IF NOT EXISTS idx_payment_log_fund_id ON payment_log(fund_id);
CREATE INDEX IF NOT EXISTS idx_invitations_fund_id ON invitations(fund_id);
CREATE INDEX IF NOT EXISTS idx_invitations_email ON invitations(email);
CREATE INDEX IF NOT EXISTS idx_disputes_fund_id ON disputes(fund_id);
CREATE INDEX IF NOT EXISTS idx_dispute_messages_dispute_id ON dispute_messages(dispute_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
