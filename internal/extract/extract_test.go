package extract

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

func TestAmountAndDirection(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantAmount    string
		wantDirection domain.Direction
		wantOK        bool
	}{
		{
			name:          "debit with rs marker",
			body:          "Rs 250.00 debited from your account ending 1234 at STARBUCKS COFFEE on 25-Jul-25. Available balance: Rs 15750.00",
			wantAmount:    "250.00",
			wantDirection: domain.DirectionExpense,
			wantOK:        true,
		},
		{
			name:          "credit with inr marker",
			body:          "INR 5,000.00 credited to your account XX8821 on 01-Aug-2025",
			wantAmount:    "5000.00",
			wantDirection: domain.DirectionIncome,
			wantOK:        true,
		},
		{
			name:          "thousands separators preserved exactly",
			body:          "Rs 1,408.00 debited from a/c 4451",
			wantAmount:    "1408.00",
			wantDirection: domain.DirectionExpense,
			wantOK:        true,
		},
		{
			name:          "rupee sign",
			body:          "₹99.50 spent on your card ending 7001",
			wantAmount:    "99.50",
			wantDirection: domain.DirectionExpense,
			wantOK:        true,
		},
		{
			name:          "card usage phrasing",
			body:          "Your card ending 9876 used for Rs 45.00 at UBER TRIP on 25-Jul-25.",
			wantAmount:    "45.00",
			wantDirection: domain.DirectionExpense,
			wantOK:        true,
		},
		{
			name:          "refund is income",
			body:          "Rs 320.00 refunded to your account XX1234",
			wantAmount:    "320.00",
			wantDirection: domain.DirectionIncome,
			wantOK:        true,
		},
		{
			name:   "amount without direction verb",
			body:   "Your statement total is Rs 4,200.00 for July",
			wantOK: false,
		},
		{
			name:   "number without currency marker",
			body:   "Use code 250 to unlock your reward today",
			wantOK: false,
		},
		{
			name:   "promotional message",
			body:   "Congratulations! You are eligible for a pre-approved loan. Apply now!",
			wantOK: false,
		},
		{
			name:   "only a balance figure",
			body:   "Your account XX1234 available balance is Rs 15750.00",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, direction, ok := AmountAndDirection(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("AmountAndDirection() ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			want, err := decimal.NewFromString(tt.wantAmount)
			if err != nil {
				t.Fatalf("bad test amount %q: %v", tt.wantAmount, err)
			}
			if !amount.Equal(want) {
				t.Errorf("amount = %s, want %s", amount, want)
			}
			if direction != tt.wantDirection {
				t.Errorf("direction = %s, want %s", direction, tt.wantDirection)
			}
		})
	}
}

func TestAmountSkipsBalanceClause(t *testing.T) {
	// The balance clause comes first here; the transaction amount must still win.
	body := "Avl bal: Rs 15750.00. Rs 250.00 debited at STARBUCKS COFFEE on 25-Jul-25"
	amount, direction, ok := AmountAndDirection(body)
	if !ok {
		t.Fatal("AmountAndDirection() ok = false, want true")
	}
	if want := decimal.RequireFromString("250.00"); !amount.Equal(want) {
		t.Errorf("amount = %s, want %s", amount, want)
	}
	if direction != domain.DirectionExpense {
		t.Errorf("direction = %s, want expense", direction)
	}
}

func TestAccountRef(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "account ending",
			body:   "Rs 250.00 debited from your account ending 1234",
			want:   "1234",
			wantOK: true,
		},
		{
			name:   "masked token verbatim",
			body:   "Rs 1000.00 debited from your account XX0003 on 26-Aug-2025",
			want:   "XX0003",
			wantOK: true,
		},
		{
			name:   "card ending",
			body:   "Your card ending 9876 used for Rs 45.00",
			want:   "9876",
			wantOK: true,
		},
		{
			name:   "a/c shorthand",
			body:   "w/d Rs 500 from a/c XX4451",
			want:   "XX4451",
			wantOK: true,
		},
		{
			name:   "star masked token",
			body:   "Txn of Rs 99.00 on **3321 at AMAZON",
			want:   "**3321",
			wantOK: true,
		},
		{
			name:   "no account token",
			body:   "Rs 250.00 debited at STARBUCKS",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AccountRef(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("AccountRef() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("AccountRef() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMerchant(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "at-on anchors",
			body:   "Rs 250.00 debited at STARBUCKS COFFEE on 25-Jul-25",
			want:   "STARBUCKS COFFEE",
			wantOK: true,
		},
		{
			name:   "for-via anchors",
			body:   "Rs 120.00 paid for SWIGGY ORDER via UPI",
			want:   "SWIGGY ORDER",
			wantOK: true,
		},
		{
			name:   "towards-on anchors",
			body:   "Rs 1,500.00 paid towards ELECTRICITY BILL on 12-Jul-25",
			want:   "ELECTRICITY BILL",
			wantOK: true,
		},
		{
			name:   "no anchors",
			body:   "Rs 250.00 debited from your account",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Merchant(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("Merchant() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Merchant() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBalanceAfter(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "available balance",
			body:   "Available balance: Rs 15750.00",
			want:   "15750.00",
			wantOK: true,
		},
		{
			name:   "abbreviated balance",
			body:   "Avl bal Rs 1,234.56",
			want:   "1234.56",
			wantOK: true,
		},
		{
			name:   "no balance clause",
			body:   "Rs 250.00 debited at STARBUCKS COFFEE on 25-Jul-25",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BalanceAfter(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("BalanceAfter() ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("BalanceAfter() = %s, want %s", got, want)
			}
		})
	}
}

func TestAllCollectsEveryField(t *testing.T) {
	body := "Rs 250.00 debited from your account ending 1234 at STARBUCKS COFFEE on 25-Jul-25. Available balance: Rs 15750.00"
	f := All(body)

	if !f.HasAmount {
		t.Fatal("HasAmount = false, want true")
	}
	if want := decimal.RequireFromString("250.00"); !f.Amount.Equal(want) {
		t.Errorf("Amount = %s, want %s", f.Amount, want)
	}
	if f.Direction != domain.DirectionExpense {
		t.Errorf("Direction = %s, want expense", f.Direction)
	}
	if f.AccountRef != "1234" {
		t.Errorf("AccountRef = %q, want 1234", f.AccountRef)
	}
	if f.Merchant != "STARBUCKS COFFEE" {
		t.Errorf("Merchant = %q, want STARBUCKS COFFEE", f.Merchant)
	}
	if f.BalanceAfter == nil {
		t.Fatal("BalanceAfter = nil, want 15750.00")
	}
	if want := decimal.RequireFromString("15750.00"); !f.BalanceAfter.Equal(want) {
		t.Errorf("BalanceAfter = %s, want %s", f.BalanceAfter, want)
	}
	if f.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", f.Currency)
	}
}

func TestAllAbsentFieldsStayAbsent(t *testing.T) {
	f := All("Your card ending 9876 used for Rs 45.00 at UBER TRIP on 25-Jul-25.")
	if f.BalanceAfter != nil {
		t.Errorf("BalanceAfter = %s, want absent", f.BalanceAfter)
	}
	if f.Merchant != "UBER TRIP" {
		t.Errorf("Merchant = %q, want UBER TRIP", f.Merchant)
	}
	if f.AccountRef != "9876" {
		t.Errorf("AccountRef = %q, want 9876", f.AccountRef)
	}
}

// Extraction must be total over arbitrary input: absence, never a panic.
func TestExtractorTotality(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 .,:/|-₹*()!?\n\t")

	for i := 0; i < 500; i++ {
		n := rng.Intn(200)
		runes := make([]rune, n)
		for j := range runes {
			runes[j] = alphabet[rng.Intn(len(alphabet))]
		}
		body := string(runes)

		// Must not panic, and partial results must be internally consistent.
		f := All(body)
		if f.HasAmount && !f.Amount.IsPositive() {
			t.Fatalf("non-positive amount %s extracted from %q", f.Amount, body)
		}
	}
}
