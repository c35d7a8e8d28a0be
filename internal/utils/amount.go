package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

var amountNoise = []string{"₹", "inr", "rs.", "rs", "sq.ft.", "sq ft", "sqft", "square feet", ",", "_"}

// ParseAmount parses a numeric field from the dataset or from model output.
// It tolerates currency markers, thousands separators and ranges such as
// "1133 - 1384", which resolve to their midpoint.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.ToLower(strings.TrimSpace(s))
	for _, noise := range amountNoise {
		cleaned = strings.ReplaceAll(cleaned, noise, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount %q", s)
	}

	if lo, hi, ok := strings.Cut(cleaned, "-"); ok && strings.TrimSpace(lo) != "" {
		low, err := decimal.NewFromString(strings.TrimSpace(lo))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid range start in %q: %w", s, err)
		}
		high, err := decimal.NewFromString(strings.TrimSpace(hi))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid range end in %q: %w", s, err)
		}
		if err := checkAmount(low, s); err != nil {
			return decimal.Zero, err
		}
		if err := checkAmount(high, s); err != nil {
			return decimal.Zero, err
		}
		return low.Add(high).Div(decimal.NewFromInt(2)), nil
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(cleaned, " ", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := checkAmount(d, s); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// RoundToInt64 rounds a parsed amount to a whole number that fits in int64
func RoundToInt64(d decimal.Decimal) (int64, error) {
	r := d.Round(0)
	if r.IsNegative() || r.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return r.IntPart(), nil
}

func checkAmount(d decimal.Decimal, raw string) error {
	if d.IsNegative() {
		return fmt.Errorf("negative amount %q", raw)
	}
	if d.GreaterThan(maxAmount) {
		return fmt.Errorf("amount %q too large", raw)
	}
	return nil
}

// ParseLeadingInt reads the integer that starts a composite field such as "3 BHK"
func ParseLeadingInt(s string) (int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty value")
	}
	d, err := decimal.NewFromString(fields[0])
	if err != nil {
		return 0, fmt.Errorf("no leading number in %q: %w", s, err)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, fmt.Errorf("leading number in %q is not a non-negative integer", s)
	}
	return int(d.IntPart()), nil
}
