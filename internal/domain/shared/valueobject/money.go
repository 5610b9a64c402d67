package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	CNY Currency = "CNY" // Chinese Yuan
	CAD Currency = "CAD" // Canadian Dollar
	AUD Currency = "AUD" // Australian Dollar
	JPY Currency = "JPY" // Japanese Yen
)

// DefaultCurrency is the currency orders are priced in when none is given
const DefaultCurrency = USD

var (
	// ErrCurrencyMismatch is returned when combining amounts in different currencies
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	// ErrInvalidCurrency is returned for codes that are not ISO 4217
	ErrInvalidCurrency = errors.New("money: invalid currency")
)

// ParseCurrency validates and normalizes an ISO 4217 code
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	if _, err := currency.ParseISO(code); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return Currency(code), nil
}

// IsValid checks the code against the ISO 4217 registry
func (c Currency) IsValid() bool {
	_, err := ParseCurrency(string(c))
	return err == nil
}

// String returns the string representation
func (c Currency) String() string {
	return string(c)
}

// Money is an immutable monetary amount in an explicit currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, cur Currency) (Money, error) {
	parsed, err := ParseCurrency(string(cur))
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount, currency: parsed}, nil
}

// MustMoney is NewMoney for known-good currencies. It panics on an invalid code.
func MustMoney(amount decimal.Decimal, cur Currency) Money {
	m, err := NewMoney(amount, cur)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromFloat creates Money from a float64 value
func MoneyFromFloat(amount float64, cur Currency) Money {
	return Money{amount: decimal.NewFromFloat(amount), currency: cur}
}

// FromDecimal wraps an amount in a currency the caller has already validated
func FromDecimal(amount decimal.Decimal, cur Currency) Money {
	return Money{amount: amount, currency: cur}
}

// Zero returns a zero-value Money in the specified currency
func Zero(cur Currency) Money {
	return Money{amount: decimal.Zero, currency: cur}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Add returns the sum of both amounts
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns the difference of both amounts
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Mul scales the amount by a factor
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// Round rounds half away from zero to the given decimal places
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.currency}
}

// Cmp compares two amounts in the same currency
func (m Money) Cmp(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.amount.Cmp(other.amount), nil
}

// Equals reports whether both amount and currency match
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Float64 returns the amount as float64 (for scoring only, never for money math)
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// String returns a human readable form like "12.50 USD"
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + string(m.currency)
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	if raw.Currency == "" {
		raw.Currency = DefaultCurrency
	}
	parsed, err := NewMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// SumMoney adds amounts of the same currency. An empty slice sums to zero in cur.
func SumMoney(cur Currency, amounts ...Money) (Money, error) {
	total := Zero(cur)
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
