// Package store defines the persistence boundary for SMS ingestion and its
// Firestore, SQLite and in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

// Reservation is the result of a fingerprint reservation attempt.
// When Fresh is false the fields describe the outcome recorded by the first
// ingestion of the same message; Kind is empty while that ingestion is still
// in flight.
type Reservation struct {
	Fresh         bool
	Kind          domain.OutcomeKind
	TransactionID string
}

// StoredOutcome is the audit record persisted for one message.
type StoredOutcome struct {
	MessageID     string
	OwnerID       string
	Kind          domain.OutcomeKind
	TransactionID string
	Reason        string
	CreatedAt     time.Time
}

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the single source of truth for ingestion state. Implementations
// must make ReserveFingerprint an atomic insert-if-absent (a conditional
// write, not read-then-write) so concurrent deliveries of the same message
// cannot both reserve, and must persist SaveIngestion's records in one
// storage transaction so a message is never stored without its outcome.
type Store interface {
	// ReserveFingerprint claims a fingerprint for an owner. The first caller
	// gets Fresh=true; any later caller gets the recorded reservation.
	ReserveFingerprint(ctx context.Context, owner, fingerprint string) (*Reservation, error)

	// CompleteFingerprint records the final outcome on a reservation so
	// later duplicates can reference it.
	CompleteFingerprint(ctx context.Context, owner, fingerprint string, outcome domain.Outcome) error

	// ReleaseFingerprint removes a reservation after a persistence failure
	// so the caller can retry the whole ingestion.
	ReleaseFingerprint(ctx context.Context, owner, fingerprint string) error

	// SaveIngestion atomically persists the raw message, its audit outcome
	// and, when the outcome is Parsed, the transaction.
	SaveIngestion(ctx context.Context, msg *domain.RawMessage, txn *domain.Transaction, outcome domain.Outcome) error

	// Transactions lists stored transactions for an owner, newest date first.
	Transactions(ctx context.Context, owner string) ([]*domain.Transaction, error)

	// Outcomes lists stored audit outcomes for an owner.
	Outcomes(ctx context.Context, owner string) ([]*StoredOutcome, error)

	// Close releases the underlying client or database handle.
	Close() error
}
