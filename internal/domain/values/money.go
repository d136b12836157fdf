package values

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored as exact cents. All auction
// arithmetic runs on integer cents; decimal is used for display and parsing.
type Money struct {
	cents    int64
	currency string
}

// Common currency codes (ISO 4217)
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	CAD = "CAD"
)

// NewMoneyFromCents creates Money from integer cents (smallest unit)
func NewMoneyFromCents(cents int64, currency string) (Money, error) {
	if err := validateCurrency(currency); err != nil {
		return Money{}, err
	}
	return Money{cents: cents, currency: currency}, nil
}

// NewMoneyFromString creates Money from a decimal string amount ("12.50")
func NewMoneyFromString(amount, currency string) (Money, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount: %w", err)
	}
	cents := dec.Mul(decimal.NewFromInt(100)).Round(0)
	if !cents.IsInteger() {
		return Money{}, fmt.Errorf("amount has sub-cent precision: %s", amount)
	}
	return NewMoneyFromCents(cents.IntPart(), currency)
}

// MustNewMoneyFromCents creates Money and panics on error (for tests)
func MustNewMoneyFromCents(cents int64, currency string) Money {
	m, err := NewMoneyFromCents(cents, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero Money value in the given currency
func Zero(currency string) Money {
	return Money{cents: 0, currency: currency}
}

// Cents returns the amount in integer cents
func (m Money) Cents() int64 {
	return m.cents
}

// Currency returns the currency code
func (m Money) Currency() string {
	return m.currency
}

// Amount returns the decimal amount in major units
func (m Money) Amount() decimal.Decimal {
	return decimal.NewFromInt(m.cents).Div(decimal.NewFromInt(100))
}

// String returns formatted money string (e.g., "$123.45")
func (m Money) String() string {
	return getCurrencySymbol(m.currency) + m.Amount().StringFixed(2)
}

// IsZero checks if the amount is zero
func (m Money) IsZero() bool {
	return m.cents == 0
}

// IsNegative checks if the amount is negative
func (m Money) IsNegative() bool {
	return m.cents < 0
}

// Equal checks if two Money values are equal (same amount and currency)
func (m Money) Equal(other Money) bool {
	return m.cents == other.cents && m.currency == other.currency
}

// Compare returns -1, 0, or 1. Panics if currencies don't match.
func (m Money) Compare(other Money) int {
	if m.currency != other.currency {
		panic(fmt.Sprintf("cannot compare different currencies: %s vs %s", m.currency, other.currency))
	}
	switch {
	case m.cents < other.cents:
		return -1
	case m.cents > other.cents:
		return 1
	default:
		return 0
	}
}

// Add adds two Money values (must have same currency)
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{cents: m.cents + other.cents, currency: m.currency}, nil
}

// MarshalJSON encodes as exact cents plus a display string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
		Display     string `json:"display"`
	}{
		AmountCents: m.cents,
		Currency:    m.currency,
		Display:     m.Amount().StringFixed(2),
	})
}

// UnmarshalJSON decodes from the cents representation
func (m *Money) UnmarshalJSON(data []byte) error {
	var temp struct {
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	money, err := NewMoneyFromCents(temp.AmountCents, temp.Currency)
	if err != nil {
		return err
	}
	*m = money
	return nil
}

func validateCurrency(currency string) error {
	switch currency {
	case USD, EUR, GBP, CAD:
		return nil
	case "":
		return fmt.Errorf("currency cannot be empty")
	default:
		return fmt.Errorf("unsupported currency: %s", currency)
	}
}

func getCurrencySymbol(currency string) string {
	symbols := map[string]string{
		USD: "$",
		EUR: "€",
		GBP: "£",
		CAD: "C$",
	}
	if symbol, ok := symbols[currency]; ok {
		return symbol
	}
	return currency + " "
}
