// Package domain holds the core types for SMS transaction ingestion.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction classifies the money flow of a transaction.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// ValidateDirection checks if direction is valid.
func ValidateDirection(d Direction) bool {
	return d == DirectionIncome || d == DirectionExpense
}

// Category represents the budget category enum.
// Use ValidateCategory to ensure validity before use.
type Category string

const (
	CategoryIncome         Category = "income"
	CategoryHousing        Category = "housing"
	CategoryUtilities      Category = "utilities"
	CategoryGroceries      Category = "groceries"
	CategoryDining         Category = "dining"
	CategoryTransportation Category = "transportation"
	CategoryHealthcare     Category = "healthcare"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryTravel         Category = "travel"
	CategoryInvestment     Category = "investment"
	CategoryOther          Category = "other"
)

var validCategories = map[Category]struct{}{
	CategoryIncome: {}, CategoryHousing: {}, CategoryUtilities: {},
	CategoryGroceries: {}, CategoryDining: {}, CategoryTransportation: {},
	CategoryHealthcare: {}, CategoryEntertainment: {}, CategoryShopping: {},
	CategoryTravel: {}, CategoryInvestment: {}, CategoryOther: {},
}

// ValidateCategory checks if category is valid.
func ValidateCategory(c Category) bool {
	_, ok := validCategories[c]
	return ok
}

// RawMessage is an inbound SMS exactly as received. Immutable once stored.
type RawMessage struct {
	ID         string
	Sender     string
	Body       string
	OwnerID    string
	ReceivedAt time.Time
}

// NewRawMessage creates a validated raw message.
func NewRawMessage(id, sender, body, ownerID string, receivedAt time.Time) (*RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("message ID cannot be empty")
	}
	if sender == "" {
		return nil, fmt.Errorf("sender cannot be empty")
	}
	if body == "" {
		return nil, fmt.Errorf("message body cannot be empty")
	}
	if receivedAt.IsZero() {
		return nil, fmt.Errorf("received time cannot be zero")
	}

	return &RawMessage{
		ID:         id,
		Sender:     sender,
		Body:       body,
		OwnerID:    ownerID,
		ReceivedAt: receivedAt,
	}, nil
}

// Provenance records how a transaction was extracted from its message.
type Provenance struct {
	Format string // detected bank format, e.g. "hdfc", "generic"
	Method string // "bank-specific" or "generic"
}

// SourceSMS marks transactions ingested from an SMS message.
const SourceSMS = "sms"

// Transaction is a parsed budget transaction derived from one message.
type Transaction struct {
	ID           string
	OwnerID      string
	Direction    Direction
	Amount       decimal.Decimal
	Date         string // ISO format YYYY-MM-DD
	Category     Category
	Merchant     string           // optional
	AccountRef   string           // optional masked account token, verbatim from the message
	BalanceAfter *decimal.Decimal // optional
	Currency     string
	Source       string
	Provenance   Provenance
	CreatedAt    time.Time
}

// NewTransaction creates a validated transaction.
// Direction and a positive amount are mandatory; merchant, account reference
// and balance-after are optional and may be set after construction.
func NewTransaction(id, ownerID string, direction Direction, amount decimal.Decimal, date string, category Category, currency string) (*Transaction, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction ID cannot be empty")
	}
	if !ValidateDirection(direction) {
		return nil, fmt.Errorf("invalid direction: %s", direction)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}
	if !ValidateCategory(category) {
		return nil, fmt.Errorf("invalid category: %s", category)
	}
	if currency == "" {
		return nil, fmt.Errorf("currency cannot be empty")
	}

	return &Transaction{
		ID:        id,
		OwnerID:   ownerID,
		Direction: direction,
		Amount:    amount,
		Date:      date,
		Category:  category,
		Currency:  currency,
		Source:    SourceSMS,
	}, nil
}
