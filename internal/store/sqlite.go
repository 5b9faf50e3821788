package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

// SQLite is a local single-file Store, used by the CLI. Amounts are stored as
// decimal strings to preserve exact values.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	sender      TEXT NOT NULL,
	body        TEXT NOT NULL,
	received_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	direction     TEXT NOT NULL,
	amount        TEXT NOT NULL,
	date          TEXT NOT NULL,
	category      TEXT NOT NULL,
	merchant      TEXT NOT NULL DEFAULT '',
	account_ref   TEXT NOT NULL DEFAULT '',
	balance_after TEXT,
	currency      TEXT NOT NULL,
	source        TEXT NOT NULL,
	format        TEXT NOT NULL DEFAULT '',
	method        TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS outcomes (
	message_id     TEXT PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	kind           TEXT NOT NULL,
	transaction_id TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fingerprints (
	owner_id       TEXT NOT NULL,
	fingerprint    TEXT NOT NULL,
	kind           TEXT NOT NULL DEFAULT '',
	transaction_id TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	PRIMARY KEY (owner_id, fingerprint)
);
`

// OpenSQLite opens (and if needed initializes) a sqlite store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// The modernc driver serializes writes itself but rejects concurrent
	// write transactions on one connection pool; a single connection keeps
	// reservation inserts strictly ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// ReserveFingerprint implements Store. The conditional insert is the atomic
// reservation: exactly one concurrent caller observes RowsAffected == 1.
func (s *SQLite) ReserveFingerprint(ctx context.Context, owner, fingerprint string) (*Reservation, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO fingerprints (owner_id, fingerprint, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (owner_id, fingerprint) DO NOTHING`,
		owner, fingerprint, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to reserve fingerprint: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read reservation result: %w", err)
	}
	if affected == 1 {
		return &Reservation{Fresh: true}, nil
	}

	var kind, txnID string
	err = s.db.QueryRowContext(ctx,
		`SELECT kind, transaction_id FROM fingerprints WHERE owner_id = ? AND fingerprint = ?`,
		owner, fingerprint).Scan(&kind, &txnID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing reservation: %w", err)
	}
	return &Reservation{Fresh: false, Kind: domain.OutcomeKind(kind), TransactionID: txnID}, nil
}

// CompleteFingerprint implements Store.
func (s *SQLite) CompleteFingerprint(ctx context.Context, owner, fingerprint string, outcome domain.Outcome) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fingerprints SET kind = ?, transaction_id = ? WHERE owner_id = ? AND fingerprint = ?`,
		string(outcome.Kind), outcome.TransactionID, owner, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to complete fingerprint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read completion result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complete fingerprint %s: %w", fingerprint, ErrNotFound)
	}
	return nil
}

// ReleaseFingerprint implements Store.
func (s *SQLite) ReleaseFingerprint(ctx context.Context, owner, fingerprint string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM fingerprints WHERE owner_id = ? AND fingerprint = ?`, owner, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to release fingerprint: %w", err)
	}
	return nil
}

// SaveIngestion implements Store. Message, outcome and transaction are
// written in one SQL transaction so partial ingestion records cannot exist.
func (s *SQLite) SaveIngestion(ctx context.Context, msg *domain.RawMessage, txn *domain.Transaction, outcome domain.Outcome) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, owner_id, sender, body, received_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.OwnerID, msg.Sender, msg.Body, msg.ReceivedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	if txn != nil {
		var balance sql.NullString
		if txn.BalanceAfter != nil {
			balance = sql.NullString{String: txn.BalanceAfter.String(), Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions
			 (id, owner_id, direction, amount, date, category, merchant, account_ref, balance_after, currency, source, format, method, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.ID, txn.OwnerID, string(txn.Direction), txn.Amount.String(), txn.Date,
			string(txn.Category), txn.Merchant, txn.AccountRef, balance, txn.Currency,
			txn.Source, txn.Provenance.Format, txn.Provenance.Method, now)
		if err != nil {
			return fmt.Errorf("failed to store transaction: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outcomes (message_id, owner_id, kind, transaction_id, reason, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.OwnerID, string(outcome.Kind), outcome.TransactionID, outcome.Reason, now)
	if err != nil {
		return fmt.Errorf("failed to store outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ingestion: %w", err)
	}
	return nil
}

// Transactions implements Store.
func (s *SQLite) Transactions(ctx context.Context, owner string) ([]*domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, direction, amount, date, category, merchant, account_ref, balance_after, currency, source, format, method, created_at
		 FROM transactions WHERE owner_id = ? ORDER BY date DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for owner %s: %w", owner, err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions for owner %s: %w", owner, err)
	}
	return out, nil
}

func scanTransaction(rows *sql.Rows) (*domain.Transaction, error) {
	var (
		txn        domain.Transaction
		direction  string
		amount     string
		category   string
		balance    sql.NullString
		createdRaw string
	)
	err := rows.Scan(&txn.ID, &txn.OwnerID, &direction, &amount, &txn.Date, &category,
		&txn.Merchant, &txn.AccountRef, &balance, &txn.Currency, &txn.Source,
		&txn.Provenance.Format, &txn.Provenance.Method, &createdRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.Direction = domain.Direction(direction)
	txn.Category = domain.Category(category)

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount %q: %w", amount, err)
	}
	if balance.Valid {
		b, err := decimal.NewFromString(balance.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored balance %q: %w", balance.String, err)
		}
		txn.BalanceAfter = &b
	}
	if created, err := time.Parse(time.RFC3339, createdRaw); err == nil {
		txn.CreatedAt = created
	}
	return &txn, nil
}

// Outcomes implements Store.
func (s *SQLite) Outcomes(ctx context.Context, owner string) ([]*StoredOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, owner_id, kind, transaction_id, reason, created_at
		 FROM outcomes WHERE owner_id = ? ORDER BY created_at`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes for owner %s: %w", owner, err)
	}
	defer rows.Close()

	var out []*StoredOutcome
	for rows.Next() {
		var (
			o          StoredOutcome
			kind       string
			createdRaw string
		)
		if err := rows.Scan(&o.MessageID, &o.OwnerID, &kind, &o.TransactionID, &o.Reason, &createdRaw); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Kind = domain.OutcomeKind(kind)
		if created, err := time.Parse(time.RFC3339, createdRaw); err == nil {
			o.CreatedAt = created
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes for owner %s: %w", owner, err)
	}
	return out, nil
}

// Close implements Store.
func (s *SQLite) Close() error { return s.db.Close() }

var _ Store = (*SQLite)(nil)
var _ Store = (*Memory)(nil)
