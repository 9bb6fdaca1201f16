// README: Money value object in integer cents, shared by pricing, billing and exports.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in US cents. Arithmetic on cents is exact, so every result is
// already rounded to two decimal places.
type Money int64

var ErrInvalidAmount = errors.New("invalid amount")

// MoneyFromFloat converts a dollar value to cents, rounding half away from zero.
func MoneyFromFloat(v float64) Money {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return Money(math.Round(v * 100))
}

// Dollars is a convenience constructor for whole-dollar constants.
func Dollars(d int64) Money {
	return Money(d * 100)
}

// ParseAmount reads "12", "12.5", "12.50" or "$12.50".
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromFloat(f), nil
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string or null (zero).
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*m = 0
			return nil
		}
		v, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	*m = MoneyFromFloat(f)
	return nil
}
