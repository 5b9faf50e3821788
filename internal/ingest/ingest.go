// Package ingest runs the SMS ingestion pipeline: dedup, format detection,
// extraction, date validation, assembly and persistence.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/smsparse/internal/assemble"
	"github.com/rumor-ml/commons.systems/smsparse/internal/dates"
	"github.com/rumor-ml/commons.systems/smsparse/internal/dedup"
	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
	"github.com/rumor-ml/commons.systems/smsparse/internal/format"
	"github.com/rumor-ml/commons.systems/smsparse/internal/store"
)

// DefaultPersistTimeout bounds a single SaveIngestion call.
const DefaultPersistTimeout = 10 * time.Second

// Ingestor processes raw SMS messages into persisted transactions and audit
// outcomes. Safe for concurrent use.
type Ingestor struct {
	store          store.Store
	validator      *dates.Validator
	assembler      *assemble.Assembler
	clock          dates.Clock
	persistTimeout time.Duration
	logger         *slog.Logger
}

// Options tune an Ingestor beyond its required collaborators.
type Options struct {
	// Clock supplies receipt timestamps. Defaults to the system clock.
	Clock dates.Clock

	// PersistTimeout bounds each SaveIngestion call. Defaults to
	// DefaultPersistTimeout.
	PersistTimeout time.Duration

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// New creates an Ingestor.
func New(st store.Store, validator *dates.Validator, assembler *assemble.Assembler, opts Options) (*Ingestor, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if validator == nil {
		return nil, fmt.Errorf("date validator cannot be nil")
	}
	if assembler == nil {
		return nil, fmt.Errorf("assembler cannot be nil")
	}

	clock := opts.Clock
	if clock == nil {
		clock = dates.SystemClock{}
	}
	timeout := opts.PersistTimeout
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingestor{
		store:          st,
		validator:      validator,
		assembler:      assembler,
		clock:          clock,
		persistTimeout: timeout,
		logger:         logger,
	}, nil
}

// Ingest processes one SMS for an owner and returns the recorded outcome.
// Every accepted message ends in exactly one outcome; the raw message and its
// outcome are persisted even when parsing fails, so failures stay auditable.
func (in *Ingestor) Ingest(ctx context.Context, sender, body, owner string) (domain.Outcome, error) {
	msg, err := domain.NewRawMessage(uuid.New().String(), sender, body, owner, in.clock.Now())
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("invalid message: %w", err)
	}

	logger := in.logger.With("messageId", msg.ID, "sender", sender, "owner", owner)

	fingerprint := dedup.Fingerprint(sender, body)
	reservation, err := in.store.ReserveFingerprint(ctx, owner, fingerprint)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("failed to reserve fingerprint: %w", err)
	}
	if !reservation.Fresh {
		logger.Info("duplicate message suppressed", "fingerprint", fingerprint)
		outcome := domain.Duplicate(reservation.TransactionID)
		if err := in.persist(ctx, msg, nil, outcome); err != nil {
			return domain.Outcome{}, err
		}
		return outcome, nil
	}

	outcome, txn := in.process(msg)

	if err := in.persist(ctx, msg, txn, outcome); err != nil {
		logger.Error("persistence failed, releasing reservation", "error", err)
		if relErr := in.store.ReleaseFingerprint(ctx, owner, fingerprint); relErr != nil {
			logger.Error("failed to release reservation", "error", relErr)
		}
		return domain.PersistenceFailed(err.Error()), nil
	}

	if err := in.store.CompleteFingerprint(ctx, owner, fingerprint, outcome); err != nil {
		logger.Warn("failed to record outcome on reservation", "error", err)
	}

	logger.Info("message ingested", "outcome", outcome.Kind)
	return outcome, nil
}

// process classifies, extracts and assembles. It never touches storage.
func (in *Ingestor) process(msg *domain.RawMessage) (domain.Outcome, *domain.Transaction) {
	detected := format.Detect(msg.Body)
	bundle := format.BundleFor(detected)
	fields := bundle.Extract(msg.Body)

	if !fields.HasAmount {
		return domain.Unparseable("no amount with a recognized currency marker"), nil
	}

	date, found := bundle.ExtractDate(msg.Body)
	if !found {
		return domain.InvalidDate("no transaction date in the message"), nil
	}
	if err := in.validator.Validate(date); err != nil {
		return domain.InvalidDate(err.Error()), nil
	}

	txn, err := in.assembler.Assemble(msg.OwnerID, fields, date, detected)
	if err != nil {
		return domain.Unparseable(err.Error()), nil
	}
	return domain.Parsed(txn.ID), txn
}

func (in *Ingestor) persist(ctx context.Context, msg *domain.RawMessage, txn *domain.Transaction, outcome domain.Outcome) error {
	ctx, cancel := context.WithTimeout(ctx, in.persistTimeout)
	defer cancel()
	return in.store.SaveIngestion(ctx, msg, txn, outcome)
}
