// Package extract provides pure field extractors over bank SMS text.
//
// Every extractor either returns a typed field or reports absence; absence is
// an expected outcome on arbitrary text, never an error. Nothing here touches
// a clock or storage, so all functions are safe for concurrent use.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

// Fields is the partial extraction result for one message. Direction and
// Amount are only meaningful when HasAmount is true; the remaining fields are
// independently optional.
type Fields struct {
	Direction    domain.Direction
	Amount       decimal.Decimal
	HasAmount    bool
	AccountRef   string
	Merchant     string
	BalanceAfter *decimal.Decimal
	Currency     string // ISO code when a marker was recognized, "" otherwise
}

var (
	// Currency marker followed by an amount with optional thousands separators.
	amountPattern = regexp.MustCompile(`(?i)(?:\b(?:rs\.?|inr)|₹)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

	// Balance anchor with its own currency amount. Matched before the
	// transaction amount so balance figures are not mistaken for it.
	balancePattern = regexp.MustCompile(`(?i)(?:available|avl\.?|a/c|current)\s*(?:balance|bal\.?)\s*(?:is\s*)?:?\s*(?:\b(?:rs\.?|inr)|₹)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

	debitPattern  = regexp.MustCompile(`(?i)\b(?:debited|spent|withdrawn|deducted|purchase(?:\s+of)?|paid|sent|used\s+for|txn\s+of|transferred\s+to)\b`)
	creditPattern = regexp.MustCompile(`(?i)\b(?:credited|received|deposited|refund(?:ed)?|transferred\s+from)\b`)

	// Masked account tokens. Ordered: explicit account/card anchors first,
	// then a bare masked digit group.
	accountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:a/c|acct\.?|account)\s*(?:no\.?|number)?\s*(?:ending(?:\s+in)?\s+|:\s*)?((?:[Xx*]+)?[0-9]{2,6})`),
		regexp.MustCompile(`(?i)card\s*(?:no\.?|number)?\s*(?:ending(?:\s+in)?\s+|:\s*)?((?:[Xx*]+)?[0-9]{2,6})`),
		regexp.MustCompile(`((?:\b(?:XX|xx)|\*\*)[Xx*]*[0-9]{3,6})\b`),
	}

	// Merchant anchor phrases. Only high-confidence anchor pairs are used;
	// anything weaker returns absent rather than a guess.
	merchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bat\s+(.+?)\s+on\s+`),
		regexp.MustCompile(`(?i)\bfor\s+(.+?)\s+via\s+`),
		regexp.MustCompile(`(?i)\btowards\s+(.+?)\s+on\s+`),
	}

	currencyMarker = regexp.MustCompile(`(?i)\brs\.?|₹|\binr\b`)
)

// All runs every extractor over the body and collects the partial result.
func All(body string) Fields {
	f := Fields{}

	if amount, direction, ok := AmountAndDirection(body); ok {
		f.Amount = amount
		f.Direction = direction
		f.HasAmount = true
	}
	if ref, ok := AccountRef(body); ok {
		f.AccountRef = ref
	}
	if merchant, ok := Merchant(body); ok {
		f.Merchant = merchant
	}
	if balance, ok := BalanceAfter(body); ok {
		f.BalanceAfter = &balance
	}
	if currencyMarker.MatchString(body) {
		f.Currency = "INR"
	}

	return f
}

// AmountAndDirection extracts the transaction amount and its direction.
// The amount is the first currency-marked number outside any balance clause;
// direction comes from the debit/credit verb nearest to that amount. Both are
// required together: a number without a direction verb reports absence.
func AmountAndDirection(body string) (decimal.Decimal, domain.Direction, bool) {
	balanceLoc := balancePattern.FindStringIndex(body)

	var amountLoc []int
	for _, loc := range amountPattern.FindAllStringSubmatchIndex(body, -1) {
		if balanceLoc != nil && loc[0] >= balanceLoc[0] && loc[1] <= balanceLoc[1] {
			continue // balance figure, not the transaction amount
		}
		amountLoc = loc
		break
	}
	if amountLoc == nil {
		return decimal.Decimal{}, "", false
	}

	amount, err := parseAmount(body[amountLoc[2]:amountLoc[3]])
	if err != nil || !amount.IsPositive() {
		return decimal.Decimal{}, "", false
	}

	direction, ok := directionNear(body, amountLoc[0])
	if !ok {
		return decimal.Decimal{}, "", false
	}

	return amount, direction, true
}

// directionNear resolves the flow direction from the verb closest to the
// amount token at position pos. With only one verb class present that class
// wins regardless of distance.
func directionNear(body string, pos int) (domain.Direction, bool) {
	debitLoc := debitPattern.FindStringIndex(body)
	creditLoc := creditPattern.FindStringIndex(body)

	switch {
	case debitLoc == nil && creditLoc == nil:
		return "", false
	case creditLoc == nil:
		return domain.DirectionExpense, true
	case debitLoc == nil:
		return domain.DirectionIncome, true
	}

	if distance(debitLoc[0], pos) <= distance(creditLoc[0], pos) {
		return domain.DirectionExpense, true
	}
	return domain.DirectionIncome, true
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// parseAmount converts a currency amount with optional thousands separators
// to a fixed-point decimal, e.g. "1,408.00" -> 1408.00.
func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
}

// AccountRef extracts a masked account or card token, verbatim as matched.
// Reports absence when no masked-account pattern applies; it never guesses.
func AccountRef(body string) (string, bool) {
	for _, p := range accountPatterns {
		if m := p.FindStringSubmatch(body); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Merchant extracts the merchant name between known anchor phrases.
// Reports absence when no anchor pair is present.
func Merchant(body string) (string, bool) {
	for _, p := range merchantPatterns {
		m := p.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		merchant := strings.TrimSpace(m[1])
		if merchant == "" || len(merchant) > 64 {
			continue
		}
		return merchant, true
	}
	return "", false
}

// BalanceAfter extracts the post-transaction balance following a balance anchor.
func BalanceAfter(body string) (decimal.Decimal, bool) {
	m := balancePattern.FindStringSubmatch(body)
	if m == nil {
		return decimal.Decimal{}, false
	}
	balance, err := parseAmount(m[1])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return balance, true
}
