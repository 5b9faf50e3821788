package domain

import "fmt"

// OutcomeKind enumerates the terminal states of one ingestion attempt.
type OutcomeKind string

const (
	OutcomeParsed            OutcomeKind = "parsed"
	OutcomeDuplicate         OutcomeKind = "duplicate"
	OutcomeUnparseable       OutcomeKind = "unparseable"
	OutcomeInvalidDate       OutcomeKind = "invalid_date"
	OutcomePersistenceFailed OutcomeKind = "persistence_failed"
)

var validOutcomeKinds = map[OutcomeKind]struct{}{
	OutcomeParsed: {}, OutcomeDuplicate: {}, OutcomeUnparseable: {},
	OutcomeInvalidDate: {}, OutcomePersistenceFailed: {},
}

// ValidateOutcomeKind checks if kind is valid.
func ValidateOutcomeKind(k OutcomeKind) bool {
	_, ok := validOutcomeKinds[k]
	return ok
}

// Outcome is the closed result of one ingestion attempt. Duplicate is a
// normal terminal outcome, not an error; none of the kinds is surfaced as a
// Go error to the caller.
type Outcome struct {
	Kind          OutcomeKind
	TransactionID string // set for Parsed, and for Duplicate when the original parsed
	Reason        string // set for Unparseable, InvalidDate, PersistenceFailed
}

// Parsed builds a successful outcome referencing the stored transaction.
func Parsed(transactionID string) Outcome {
	return Outcome{Kind: OutcomeParsed, TransactionID: transactionID}
}

// Duplicate builds an outcome referencing the transaction stored on first ingestion.
// transactionID may be empty when the original message did not parse.
func Duplicate(transactionID string) Outcome {
	return Outcome{Kind: OutcomeDuplicate, TransactionID: transactionID}
}

// Unparseable builds a failure outcome for messages missing mandatory fields.
func Unparseable(reason string) Outcome {
	return Outcome{Kind: OutcomeUnparseable, Reason: reason}
}

// InvalidDate builds a failure outcome for missing or out-of-window dates.
func InvalidDate(reason string) Outcome {
	return Outcome{Kind: OutcomeInvalidDate, Reason: reason}
}

// PersistenceFailed builds a retryable outcome for storage failures.
func PersistenceFailed(reason string) Outcome {
	return Outcome{Kind: OutcomePersistenceFailed, Reason: reason}
}

// String renders the outcome for logs and CLI output.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeParsed:
		return fmt.Sprintf("parsed (txn %s)", o.TransactionID)
	case OutcomeDuplicate:
		if o.TransactionID == "" {
			return "duplicate"
		}
		return fmt.Sprintf("duplicate (txn %s)", o.TransactionID)
	default:
		return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
	}
}
