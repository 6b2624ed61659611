package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Cents is a money amount in minor units. Every Silver/Gold comparison is done
// on Cents so no floating point rounding can leak into reconciliation.
type Cents int64

// MaxAmount is the largest amount silver.billing.amount (NUMERIC(12,2)) holds.
const MaxAmount Cents = 999_999_999_999

var (
	ErrMoneyFormat    = errors.New("not a decimal number")
	ErrMoneyPrecision = errors.New("more than two fractional digits")
)

// ParseCents parses a decimal string such as "1200", "1200.5" or "-3.250".
// Trailing zeros past the second fractional digit are accepted.
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMoneyFormat
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, ErrMoneyFormat
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, ErrMoneyFormat
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > 2 {
		return 0, ErrMoneyPrecision
	}
	frac += strings.Repeat("0", 2-len(frac))
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMoneyFormat, err)
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	if w > (1<<63-1-f)/100 {
		return 0, fmt.Errorf("%w: out of range", ErrMoneyFormat)
	}
	c := Cents(w*100 + f)
	if neg {
		c = -c
	}
	return c, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders c with exactly two fractional digits.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(b []byte) error {
	v, err := ParseCents(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalYAML renders the amount as a decimal string.
func (c Cents) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}
