package indexer

import (
	"fmt"
	"math/big"
	"strings"
)

// FormatAmount renders raw base units as a decimal string with the given
// number of fractional digits, trimming trailing zeros.
func FormatAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}

	negative := raw.Sign() < 0
	digits := new(big.Int).Abs(raw).String()

	if decimals > 0 {
		if len(digits) <= int(decimals) {
			digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
		}
		split := len(digits) - int(decimals)
		whole, frac := digits[:split], strings.TrimRight(digits[split:], "0")
		digits = whole
		if frac != "" {
			digits += "." + frac
		}
	}

	if negative && digits != "0" {
		return "-" + digits
	}
	return digits
}

// ParseAmount converts a decimal string into base units. It rejects values
// with more fractional digits than decimals.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, hasPoint := strings.Cut(s, ".")
	if (whole == "" && frac == "") || (hasPoint && frac == "") {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("invalid amount %q", s)
		}
	}

	raw, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		raw.Neg(raw)
	}
	return raw, nil
}
