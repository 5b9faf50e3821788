// Package assemble builds validated transactions from extracted fields.
package assemble

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/smsparse/internal/catalog"
	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
	"github.com/rumor-ml/commons.systems/smsparse/internal/extract"
	"github.com/rumor-ml/commons.systems/smsparse/internal/format"
	"github.com/rumor-ml/commons.systems/smsparse/internal/rules"
)

// Assembler turns extracted fields plus a validated date into a transaction.
type Assembler struct {
	rules           *rules.Engine
	catalog         *catalog.Catalog
	defaultCurrency string
}

// New creates an Assembler. The rules engine may be nil, in which case every
// transaction falls through to the catalog default.
func New(engine *rules.Engine, cat *catalog.Catalog, defaultCurrency string) (*Assembler, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if defaultCurrency == "" {
		return nil, fmt.Errorf("default currency cannot be empty")
	}
	return &Assembler{rules: engine, catalog: cat, defaultCurrency: defaultCurrency}, nil
}

// Assemble builds a transaction for the owner from the fields extracted by
// the given bank format. Fields must carry an amount and direction; callers
// decide unparseable before reaching here.
func (a *Assembler) Assemble(owner string, fields extract.Fields, date time.Time, detected format.BankFormat) (*domain.Transaction, error) {
	if !fields.HasAmount {
		return nil, fmt.Errorf("fields carry no amount")
	}

	category, err := a.categorize(fields.Direction, fields.Merchant)
	if err != nil {
		return nil, fmt.Errorf("failed to categorize: %w", err)
	}

	currency := fields.Currency
	if currency == "" {
		currency = a.defaultCurrency
	}

	txn, err := domain.NewTransaction(
		uuid.New().String(),
		owner,
		fields.Direction,
		fields.Amount,
		date.Format("2006-01-02"),
		category,
		currency,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	txn.Merchant = fields.Merchant
	txn.AccountRef = fields.AccountRef
	txn.BalanceAfter = fields.BalanceAfter
	txn.Provenance = provenanceFor(detected)
	txn.CreatedAt = time.Now()
	return txn, nil
}

func (a *Assembler) categorize(direction domain.Direction, merchant string) (domain.Category, error) {
	if a.rules != nil && merchant != "" {
		if category, ok := a.rules.Match(merchant); ok {
			return category, nil
		}
	}
	return a.catalog.DefaultCategoryFor(direction)
}

func provenanceFor(detected format.BankFormat) domain.Provenance {
	method := "bank-specific"
	if detected == format.FormatGeneric {
		method = "generic"
	}
	return domain.Provenance{Format: string(detected), Method: method}
}
