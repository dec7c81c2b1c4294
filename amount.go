package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Amount is a cell value of a planned/actual column: either a decimal number
// or empty.
//
// An empty Amount counts as zero in every computation but is kept apart from
// an explicit 0 so that the cell can be displayed blank again.
type Amount struct {
	value decimal.Decimal
	set   bool
}

// NewAmount returns a non-empty Amount.
func NewAmount[T float64 | int | int64 | decimal.Decimal](v T) Amount {
	return Amount{value: newDecimal(v), set: true}
}

func newDecimal[T float64 | int | int64 | decimal.Decimal](v T) decimal.Decimal {
	switch v := any(v).(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case decimal.Decimal:
		return v
	}
	return decimal.Zero
}

// ParseAmount parses a user input. It returns an empty Amount and false when
// the input is blank or not a finite number.
func ParseAmount(raw string) (Amount, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Amount{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{}, false
	}
	d, ok := bounded(d)
	if !ok {
		return Amount{}, false
	}
	return Amount{value: d, set: true}, true
}

// maxMagnitude is the largest decimal order of magnitude of an amount, the
// one of the largest float64.
const maxMagnitude = 308

// bounded checks the order of magnitude of d without computing with it: a
// value beyond the float64 range is not finite, one below it is zero.
func bounded(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsZero() {
		return decimal.Zero, true
	}
	mag := int64(d.Exponent()) + int64(d.NumDigits())
	switch {
	case mag > maxMagnitude:
		return decimal.Zero, false
	case mag < -maxMagnitude:
		return decimal.Zero, true
	}
	return d, true
}

// IsEmpty reports whether the amount is the empty representation.
func (a Amount) IsEmpty() bool { return !a.set }

// Decimal returns the numeric value of the amount, zero when empty.
func (a Amount) Decimal() decimal.Decimal {
	if !a.set {
		return decimal.Zero
	}
	return a.value
}

// Equal reports whether a and b are both empty or hold the same number.
func (a Amount) Equal(b Amount) bool {
	if a.set != b.set {
		return false
	}
	return !a.set || a.value.Equal(b.value)
}

// String returns the raw value for redisplay, "" when empty.
func (a Amount) String() string {
	if !a.set {
		return ""
	}
	return a.value.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte(`""`), nil
	}
	return a.value.MarshalJSON()
}

// UnmarshalJSON accepts a number, a numeric string, "" or null. Anything that
// is not a finite number decodes to the empty Amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid amount %s: %w", data, err)
		}
		*a, _ = ParseAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	*a, _ = ParseAmount(n.String())
	return nil
}
