package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

// Memory is an in-process Store for tests and dry runs. All operations are
// guarded by one mutex, which also gives ReserveFingerprint the required
// insert-if-absent atomicity under concurrent ingestion.
type Memory struct {
	mu           sync.Mutex
	reservations map[string]*Reservation
	messages     map[string]*domain.RawMessage
	transactions map[string]*domain.Transaction
	outcomes     map[string]*StoredOutcome

	// SaveErr, when set, makes SaveIngestion fail. Intended for tests that
	// exercise the PersistenceFailed path.
	SaveErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		reservations: make(map[string]*Reservation),
		messages:     make(map[string]*domain.RawMessage),
		transactions: make(map[string]*domain.Transaction),
		outcomes:     make(map[string]*StoredOutcome),
	}
}

func reservationKey(owner, fingerprint string) string {
	return owner + "/" + fingerprint
}

// ReserveFingerprint implements Store.
func (m *Memory) ReserveFingerprint(ctx context.Context, owner, fingerprint string) (*Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := reservationKey(owner, fingerprint)
	if existing, ok := m.reservations[key]; ok {
		dup := *existing
		dup.Fresh = false
		return &dup, nil
	}
	m.reservations[key] = &Reservation{}
	return &Reservation{Fresh: true}, nil
}

// CompleteFingerprint implements Store.
func (m *Memory) CompleteFingerprint(ctx context.Context, owner, fingerprint string, outcome domain.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := reservationKey(owner, fingerprint)
	res, ok := m.reservations[key]
	if !ok {
		return fmt.Errorf("complete fingerprint %s: %w", fingerprint, ErrNotFound)
	}
	res.Kind = outcome.Kind
	res.TransactionID = outcome.TransactionID
	return nil
}

// ReleaseFingerprint implements Store.
func (m *Memory) ReleaseFingerprint(ctx context.Context, owner, fingerprint string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.reservations, reservationKey(owner, fingerprint))
	return nil
}

// SaveIngestion implements Store.
func (m *Memory) SaveIngestion(ctx context.Context, msg *domain.RawMessage, txn *domain.Transaction, outcome domain.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	m.messages[msg.ID] = msg
	if txn != nil {
		m.transactions[txn.ID] = txn
	}
	m.outcomes[msg.ID] = &StoredOutcome{
		MessageID:     msg.ID,
		OwnerID:       msg.OwnerID,
		Kind:          outcome.Kind,
		TransactionID: outcome.TransactionID,
		Reason:        outcome.Reason,
		CreatedAt:     time.Now(),
	}
	return nil
}

// Transactions implements Store.
func (m *Memory) Transactions(ctx context.Context, owner string) ([]*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Transaction
	for _, txn := range m.transactions {
		if txn.OwnerID == owner {
			dup := *txn
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// Outcomes implements Store.
func (m *Memory) Outcomes(ctx context.Context, owner string) ([]*StoredOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*StoredOutcome
	for _, o := range m.outcomes {
		if o.OwnerID == owner {
			dup := *o
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
