package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a currency value with two fixed fractional digits, stored as an
// integer count of hundredths. All arithmetic stays in integer space except
// rate application, which rounds half-up exactly once.
type Amount int64

// FromUnits converts a whole-unit value (e.g. 1000) into an Amount (1000.00).
func FromUnits(units int64) Amount {
	return Amount(units * 100)
}

// Parse reads a fixed-point decimal string such as "1234.50", "1234.5" or
// "1234". More than two fractional digits is an error, never silently
// truncated.
func Parse(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	wholePart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		wholePart = s[:idx]
		fracPart = s[idx+1:]
	}
	if wholePart == "" && fracPart == "" {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if wholePart == "" {
		wholePart = "0"
	}
	if len(fracPart) > 2 {
		return 0, fmt.Errorf("amount %q has more than two fractional digits", raw)
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	whole, err := strconv.ParseInt(wholePart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	value := Amount(whole*100 + frac)
	if negative {
		value = -value
	}
	return value, nil
}

func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Add returns a + b. Amounts share a single scale so addition is exact.
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// MulQty multiplies by an integer quantity. Exact, no rounding involved.
func (a Amount) MulQty(qty int) Amount {
	return a * Amount(qty)
}

// MulRate applies a percentage rate (e.g. 7.5 for 7.5%) and rounds half-up
// to the fixed precision. This is the single rounding point for derived
// amounts such as tax; callers must not re-round the result.
func (a Amount) MulRate(ratePercent float64) Amount {
	raw := float64(a) * ratePercent / 100
	return Amount(int64(math.Floor(raw + 0.5)))
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool {
	return a < 0
}

// Float64 returns the amount as a float for display-only computations
// (e.g. percentages). Never use the result for money arithmetic.
func (a Amount) Float64() float64 {
	return float64(a) / 100
}

// MarshalJSON encodes the amount as a fixed-point string so it round-trips
// across the wire without binary float drift.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
