// Package money represents monetary values as integer minor units.
//
// All arithmetic is integer-only. Amounts are exchanged with the payment
// gateway as fixed-point decimal strings with two fractional digits.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

type Money struct {
	Amount   int64  `json:"amount"`   // kopecks, cents, ...
	Currency string `json:"currency"` // ISO 4217, upper case
}

// RUB creates a Money value in roubles from kopecks.
func RUB(kopecks int64) Money { return Money{Amount: kopecks, Currency: "RUB"} }

// ParseDecimal parses "299", "299.0" or "299.00" into minor units. More than
// two fractional digits, signs and empty input are rejected.
func ParseDecimal(value, currency string) (Money, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Money{}, fmt.Errorf("money: empty amount")
	}

	whole, frac, hasFrac := strings.Cut(value, ".")
	if whole == "" || strings.ContainsAny(whole, "+-") {
		return Money{}, fmt.Errorf("money: invalid amount %q", value)
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return Money{}, fmt.Errorf("money: invalid fractional part in %q", value)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("money: invalid amount %q: %w", value, err)
	}

	var minor int64
	if hasFrac {
		for len(frac) < 2 {
			frac += "0"
		}
		if strings.ContainsAny(frac, "+-") {
			return Money{}, fmt.Errorf("money: invalid fractional part in %q", value)
		}
		minor, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("money: invalid amount %q: %w", value, err)
		}
	}

	return Money{Amount: units*100 + minor, Currency: strings.ToUpper(currency)}, nil
}

// MustParse is ParseDecimal for static tables; it panics on malformed input.
func MustParse(value, currency string) Money {
	m, err := ParseDecimal(value, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal renders the amount as a fixed-point string, e.g. "299.00".
func (m Money) Decimal() string {
	amount := m.Amount
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func (m Money) String() string {
	return m.Decimal() + " " + m.Currency
}

func (m Money) IsZero() bool { return m.Amount == 0 }

// Equal reports whether two values have the same amount and currency.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && strings.EqualFold(m.Currency, other.Currency)
}
