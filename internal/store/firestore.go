package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

const (
	collMessages     = "sms-messages"
	collTransactions = "sms-transactions"
	collOutcomes     = "sms-outcomes"
	collFingerprints = "sms-fingerprints"
)

// Firestore is the production Store backed by Cloud Firestore. It also owns
// the Firebase Auth client used by the webhook middleware.
type Firestore struct {
	Client *firestore.Client
	Auth   *auth.Client
}

// NewFirestore creates a Firestore store for the given project.
func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	conf := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create Auth client: %w", err)
	}

	return &Firestore{Client: client, Auth: authClient}, nil
}

// fingerprintDoc is the reservation record.
type fingerprintDoc struct {
	OwnerID       string    `firestore:"ownerId"`
	Fingerprint   string    `firestore:"fingerprint"`
	Kind          string    `firestore:"kind"`
	TransactionID string    `firestore:"transactionId"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

// messageDoc mirrors domain.RawMessage.
type messageDoc struct {
	ID         string    `firestore:"id"`
	OwnerID    string    `firestore:"ownerId"`
	Sender     string    `firestore:"sender"`
	Body       string    `firestore:"body"`
	ReceivedAt time.Time `firestore:"receivedAt"`
}

// transactionDoc mirrors domain.Transaction. Amounts are decimal strings to
// preserve exact values.
type transactionDoc struct {
	ID           string    `firestore:"id"`
	OwnerID      string    `firestore:"ownerId"`
	Direction    string    `firestore:"direction"`
	Amount       string    `firestore:"amount"`
	Date         string    `firestore:"date"`
	Category     string    `firestore:"category"`
	Merchant     string    `firestore:"merchant"`
	AccountRef   string    `firestore:"accountRef"`
	BalanceAfter string    `firestore:"balanceAfter"`
	Currency     string    `firestore:"currency"`
	Source       string    `firestore:"source"`
	Format       string    `firestore:"format"`
	Method       string    `firestore:"method"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

// outcomeDoc is the audit record.
type outcomeDoc struct {
	MessageID     string    `firestore:"messageId"`
	OwnerID       string    `firestore:"ownerId"`
	Kind          string    `firestore:"kind"`
	TransactionID string    `firestore:"transactionId"`
	Reason        string    `firestore:"reason"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

func fingerprintDocID(owner, fingerprint string) string {
	return fmt.Sprintf("%s-%s", owner, fingerprint)
}

// ReserveFingerprint implements Store. Create is Firestore's conditional
// write: it fails with AlreadyExists when the document is present, which
// closes the race window between concurrent deliveries.
func (f *Firestore) ReserveFingerprint(ctx context.Context, owner, fingerprint string) (*Reservation, error) {
	ref := f.Client.Collection(collFingerprints).Doc(fingerprintDocID(owner, fingerprint))

	_, err := ref.Create(ctx, &fingerprintDoc{
		OwnerID:     owner,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	})
	if err == nil {
		return &Reservation{Fresh: true}, nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return nil, fmt.Errorf("failed to reserve fingerprint: %w", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing reservation: %w", err)
	}
	var doc fingerprintDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse reservation: %w", err)
	}
	return &Reservation{
		Fresh:         false,
		Kind:          domain.OutcomeKind(doc.Kind),
		TransactionID: doc.TransactionID,
	}, nil
}

// CompleteFingerprint implements Store.
func (f *Firestore) CompleteFingerprint(ctx context.Context, owner, fingerprint string, outcome domain.Outcome) error {
	ref := f.Client.Collection(collFingerprints).Doc(fingerprintDocID(owner, fingerprint))
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "kind", Value: string(outcome.Kind)},
		{Path: "transactionId", Value: outcome.TransactionID},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("complete fingerprint %s: %w", fingerprint, ErrNotFound)
		}
		return fmt.Errorf("failed to complete fingerprint: %w", err)
	}
	return nil
}

// ReleaseFingerprint implements Store.
func (f *Firestore) ReleaseFingerprint(ctx context.Context, owner, fingerprint string) error {
	ref := f.Client.Collection(collFingerprints).Doc(fingerprintDocID(owner, fingerprint))
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to release fingerprint: %w", err)
	}
	return nil
}

// SaveIngestion implements Store. RunTransaction commits message, outcome and
// transaction documents together, so a message can never be stored without
// its audit record.
func (f *Firestore) SaveIngestion(ctx context.Context, msg *domain.RawMessage, txn *domain.Transaction, outcome domain.Outcome) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	err := f.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		msgRef := f.Client.Collection(collMessages).Doc(msg.ID)
		if err := tx.Set(msgRef, &messageDoc{
			ID:         msg.ID,
			OwnerID:    msg.OwnerID,
			Sender:     msg.Sender,
			Body:       msg.Body,
			ReceivedAt: msg.ReceivedAt,
		}); err != nil {
			return err
		}

		if txn != nil {
			doc := &transactionDoc{
				ID:         txn.ID,
				OwnerID:    txn.OwnerID,
				Direction:  string(txn.Direction),
				Amount:     txn.Amount.String(),
				Date:       txn.Date,
				Category:   string(txn.Category),
				Merchant:   txn.Merchant,
				AccountRef: txn.AccountRef,
				Currency:   txn.Currency,
				Source:     txn.Source,
				Format:     txn.Provenance.Format,
				Method:     txn.Provenance.Method,
				CreatedAt:  time.Now(),
			}
			if txn.BalanceAfter != nil {
				doc.BalanceAfter = txn.BalanceAfter.String()
			}
			txnRef := f.Client.Collection(collTransactions).Doc(txn.ID)
			if err := tx.Set(txnRef, doc); err != nil {
				return err
			}
		}

		outRef := f.Client.Collection(collOutcomes).Doc(msg.ID)
		return tx.Set(outRef, &outcomeDoc{
			MessageID:     msg.ID,
			OwnerID:       msg.OwnerID,
			Kind:          string(outcome.Kind),
			TransactionID: outcome.TransactionID,
			Reason:        outcome.Reason,
			CreatedAt:     time.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save ingestion for message %s: %w", msg.ID, err)
	}
	return nil
}

// Transactions implements Store.
func (f *Firestore) Transactions(ctx context.Context, owner string) ([]*domain.Transaction, error) {
	iter := f.Client.Collection(collTransactions).
		Where("ownerId", "==", owner).
		OrderBy("date", firestore.Desc).
		Documents(ctx)

	var out []*domain.Transaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate transactions for owner %s: %w", owner, err)
		}

		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse transaction: %w", err)
		}
		txn, err := docToTransaction(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, nil
}

func docToTransaction(doc *transactionDoc) (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount %q: %w", doc.Amount, err)
	}

	txn := &domain.Transaction{
		ID:         doc.ID,
		OwnerID:    doc.OwnerID,
		Direction:  domain.Direction(doc.Direction),
		Amount:     amount,
		Date:       doc.Date,
		Category:   domain.Category(doc.Category),
		Merchant:   doc.Merchant,
		AccountRef: doc.AccountRef,
		Currency:   doc.Currency,
		Source:     doc.Source,
		Provenance: domain.Provenance{Format: doc.Format, Method: doc.Method},
		CreatedAt:  doc.CreatedAt,
	}
	if doc.BalanceAfter != "" {
		balance, err := decimal.NewFromString(doc.BalanceAfter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored balance %q: %w", doc.BalanceAfter, err)
		}
		txn.BalanceAfter = &balance
	}
	return txn, nil
}

// Outcomes implements Store.
func (f *Firestore) Outcomes(ctx context.Context, owner string) ([]*StoredOutcome, error) {
	iter := f.Client.Collection(collOutcomes).
		Where("ownerId", "==", owner).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)

	var out []*StoredOutcome
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate outcomes for owner %s: %w", owner, err)
		}

		var doc outcomeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse outcome: %w", err)
		}
		out = append(out, &StoredOutcome{
			MessageID:     doc.MessageID,
			OwnerID:       doc.OwnerID,
			Kind:          domain.OutcomeKind(doc.Kind),
			TransactionID: doc.TransactionID,
			Reason:        doc.Reason,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return out, nil
}

// Close implements Store.
func (f *Firestore) Close() error { return f.Client.Close() }

var _ Store = (*Firestore)(nil)
