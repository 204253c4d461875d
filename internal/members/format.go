package members

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeMobile stores numbers with the +91 country code: ten digits get the
// prefix, 91 plus ten digits gets a plus sign, and anything already starting
// with + is kept as entered.
func NormalizeMobile(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	digits := Digits(raw)
	switch {
	case len(digits) == 10:
		return "+91" + digits, nil
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return "+" + digits, nil
	case strings.HasPrefix(raw, "+") && digits != "":
		return raw, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMobile, raw)
	}
}

// Digits drops every non-digit rune.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseAmount reads a decimal rupee amount into paise, rounding to two places.
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, raw)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return int64(math.Round(f * 100)), nil
}

// FormatAmount renders paise as a two-place decimal.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
