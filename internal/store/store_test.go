package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

// Both implementations must satisfy the same contract, so every test runs
// against each of them.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		s := NewMemory()
		defer s.Close()
		fn(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("OpenSQLite() error = %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func testMessage(id, owner string) *domain.RawMessage {
	return &domain.RawMessage{
		ID:         id,
		Sender:     "VM-HDFCBK",
		Body:       "Rs 250.00 debited from your account ending 1234",
		OwnerID:    owner,
		ReceivedAt: time.Date(2025, time.July, 26, 10, 0, 0, 0, time.UTC),
	}
}

func testTransaction(id, owner, date string) *domain.Transaction {
	balance := decimal.RequireFromString("15750.00")
	return &domain.Transaction{
		ID:           id,
		OwnerID:      owner,
		Direction:    domain.DirectionExpense,
		Amount:       decimal.RequireFromString("250.00"),
		Date:         date,
		Category:     domain.CategoryDining,
		Merchant:     "STARBUCKS COFFEE",
		AccountRef:   "1234",
		BalanceAfter: &balance,
		Currency:     "INR",
		Source:       domain.SourceSMS,
		Provenance:   domain.Provenance{Format: "generic", Method: "generic"},
		CreatedAt:    time.Date(2025, time.July, 26, 10, 0, 1, 0, time.UTC),
	}
}

func TestReserveFingerprint(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first, err := s.ReserveFingerprint(ctx, "owner-1", "fp-1")
		if err != nil {
			t.Fatalf("ReserveFingerprint() error = %v", err)
		}
		if !first.Fresh {
			t.Error("first reservation Fresh = false, want true")
		}

		second, err := s.ReserveFingerprint(ctx, "owner-1", "fp-1")
		if err != nil {
			t.Fatalf("ReserveFingerprint() second error = %v", err)
		}
		if second.Fresh {
			t.Error("second reservation Fresh = true, want false")
		}
		// Outcome is not recorded yet, so the kind is still empty.
		if second.Kind != "" {
			t.Errorf("second reservation Kind = %q, want empty", second.Kind)
		}
	})
}

func TestReserveFingerprintScopedByOwner(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if r, err := s.ReserveFingerprint(ctx, "owner-1", "fp-1"); err != nil || !r.Fresh {
			t.Fatalf("owner-1 reservation = %+v, %v", r, err)
		}
		r, err := s.ReserveFingerprint(ctx, "owner-2", "fp-1")
		if err != nil {
			t.Fatalf("ReserveFingerprint() error = %v", err)
		}
		if !r.Fresh {
			t.Error("same fingerprint under a different owner Fresh = false, want true")
		}
	})
}

// Exactly one of many concurrent reservations for the same key may be fresh.
func TestReserveFingerprintConcurrent(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const workers = 16

		var wg sync.WaitGroup
		fresh := make(chan bool, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r, err := s.ReserveFingerprint(ctx, "owner-1", "fp-race")
				if err != nil {
					t.Errorf("ReserveFingerprint() error = %v", err)
					return
				}
				fresh <- r.Fresh
			}()
		}
		wg.Wait()
		close(fresh)

		count := 0
		for f := range fresh {
			if f {
				count++
			}
		}
		if count != 1 {
			t.Errorf("fresh reservations = %d, want exactly 1", count)
		}
	})
}

func TestCompleteFingerprint(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, err := s.ReserveFingerprint(ctx, "owner-1", "fp-1"); err != nil {
			t.Fatalf("ReserveFingerprint() error = %v", err)
		}
		if err := s.CompleteFingerprint(ctx, "owner-1", "fp-1", domain.Parsed("txn-1")); err != nil {
			t.Fatalf("CompleteFingerprint() error = %v", err)
		}

		r, err := s.ReserveFingerprint(ctx, "owner-1", "fp-1")
		if err != nil {
			t.Fatalf("ReserveFingerprint() error = %v", err)
		}
		if r.Fresh {
			t.Error("Fresh = true after completion, want false")
		}
		if r.Kind != domain.OutcomeParsed {
			t.Errorf("Kind = %q, want parsed", r.Kind)
		}
		if r.TransactionID != "txn-1" {
			t.Errorf("TransactionID = %q, want txn-1", r.TransactionID)
		}
	})
}

func TestCompleteFingerprintMissing(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		err := s.CompleteFingerprint(context.Background(), "owner-1", "fp-none", domain.Parsed("txn-1"))
		if err == nil {
			t.Error("CompleteFingerprint() error = nil, want ErrNotFound")
		}
	})
}

func TestReleaseFingerprintAllowsRetry(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, err := s.ReserveFingerprint(ctx, "owner-1", "fp-1"); err != nil {
			t.Fatalf("ReserveFingerprint() error = %v", err)
		}
		if err := s.ReleaseFingerprint(ctx, "owner-1", "fp-1"); err != nil {
			t.Fatalf("ReleaseFingerprint() error = %v", err)
		}

		r, err := s.ReserveFingerprint(ctx, "owner-1", "fp-1")
		if err != nil {
			t.Fatalf("ReserveFingerprint() after release error = %v", err)
		}
		if !r.Fresh {
			t.Error("reservation after release Fresh = false, want true")
		}
	})
}

func TestSaveIngestionWithTransaction(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		msg := testMessage("msg-1", "owner-1")
		txn := testTransaction("txn-1", "owner-1", "2025-07-25")

		if err := s.SaveIngestion(ctx, msg, txn, domain.Parsed(txn.ID)); err != nil {
			t.Fatalf("SaveIngestion() error = %v", err)
		}

		txns, err := s.Transactions(ctx, "owner-1")
		if err != nil {
			t.Fatalf("Transactions() error = %v", err)
		}
		if len(txns) != 1 {
			t.Fatalf("transactions = %d, want 1", len(txns))
		}
		got := txns[0]
		if got.ID != "txn-1" {
			t.Errorf("ID = %q, want txn-1", got.ID)
		}
		if !got.Amount.Equal(txn.Amount) {
			t.Errorf("Amount = %s, want %s", got.Amount, txn.Amount)
		}
		if got.BalanceAfter == nil || !got.BalanceAfter.Equal(*txn.BalanceAfter) {
			t.Errorf("BalanceAfter = %v, want %s", got.BalanceAfter, txn.BalanceAfter)
		}
		if got.Provenance.Format != "generic" {
			t.Errorf("Provenance.Format = %q, want generic", got.Provenance.Format)
		}

		outcomes, err := s.Outcomes(ctx, "owner-1")
		if err != nil {
			t.Fatalf("Outcomes() error = %v", err)
		}
		if len(outcomes) != 1 {
			t.Fatalf("outcomes = %d, want 1", len(outcomes))
		}
		if outcomes[0].Kind != domain.OutcomeParsed {
			t.Errorf("outcome kind = %q, want parsed", outcomes[0].Kind)
		}
		if outcomes[0].TransactionID != "txn-1" {
			t.Errorf("outcome txn = %q, want txn-1", outcomes[0].TransactionID)
		}
	})
}

func TestSaveIngestionWithoutTransaction(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		msg := testMessage("msg-1", "owner-1")

		if err := s.SaveIngestion(ctx, msg, nil, domain.Unparseable("no amount")); err != nil {
			t.Fatalf("SaveIngestion() error = %v", err)
		}

		txns, err := s.Transactions(ctx, "owner-1")
		if err != nil {
			t.Fatalf("Transactions() error = %v", err)
		}
		if len(txns) != 0 {
			t.Errorf("transactions = %d, want 0", len(txns))
		}

		outcomes, err := s.Outcomes(ctx, "owner-1")
		if err != nil {
			t.Fatalf("Outcomes() error = %v", err)
		}
		if len(outcomes) != 1 {
			t.Fatalf("outcomes = %d, want 1", len(outcomes))
		}
		if outcomes[0].Kind != domain.OutcomeUnparseable {
			t.Errorf("outcome kind = %q, want unparseable", outcomes[0].Kind)
		}
		if outcomes[0].Reason != "no amount" {
			t.Errorf("outcome reason = %q, want no amount", outcomes[0].Reason)
		}
	})
}

func TestTransactionsOrderedByDateDesc(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		dates := []string{"2025-07-10", "2025-07-25", "2025-07-01"}
		for i, d := range dates {
			id := string(rune('a' + i))
			msg := testMessage("msg-"+id, "owner-1")
			txn := testTransaction("txn-"+id, "owner-1", d)
			if err := s.SaveIngestion(ctx, msg, txn, domain.Parsed(txn.ID)); err != nil {
				t.Fatalf("SaveIngestion() error = %v", err)
			}
		}

		txns, err := s.Transactions(ctx, "owner-1")
		if err != nil {
			t.Fatalf("Transactions() error = %v", err)
		}
		if len(txns) != 3 {
			t.Fatalf("transactions = %d, want 3", len(txns))
		}
		want := []string{"2025-07-25", "2025-07-10", "2025-07-01"}
		for i, w := range want {
			if txns[i].Date != w {
				t.Errorf("txns[%d].Date = %s, want %s", i, txns[i].Date, w)
			}
		}
	})
}

func TestListingsScopedByOwner(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		msgA := testMessage("msg-a", "owner-a")
		txnA := testTransaction("txn-a", "owner-a", "2025-07-25")
		if err := s.SaveIngestion(ctx, msgA, txnA, domain.Parsed(txnA.ID)); err != nil {
			t.Fatalf("SaveIngestion() error = %v", err)
		}
		msgB := testMessage("msg-b", "owner-b")
		if err := s.SaveIngestion(ctx, msgB, nil, domain.Unparseable("junk")); err != nil {
			t.Fatalf("SaveIngestion() error = %v", err)
		}

		txns, err := s.Transactions(ctx, "owner-b")
		if err != nil {
			t.Fatalf("Transactions() error = %v", err)
		}
		if len(txns) != 0 {
			t.Errorf("owner-b transactions = %d, want 0", len(txns))
		}

		outcomes, err := s.Outcomes(ctx, "owner-a")
		if err != nil {
			t.Fatalf("Outcomes() error = %v", err)
		}
		if len(outcomes) != 1 || outcomes[0].MessageID != "msg-a" {
			t.Errorf("owner-a outcomes = %+v, want only msg-a", outcomes)
		}
	})
}

func TestSaveIngestionCancelledContext(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.SaveIngestion(ctx, testMessage("msg-1", "owner-1"), nil, domain.Unparseable("x"))
		if err == nil {
			t.Error("SaveIngestion() with cancelled context error = nil, want error")
		}
	})
}
