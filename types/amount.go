// Package types provides common types used across FlowStream.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Amount represents a quantity of a token in its smallest unit.
// All arithmetic is integer-only, no floating point. Division truncates
// toward zero; the remainder is accounted for by the caller (the ledger
// returns it to the stream sender on cancellation).
//
// Examples:
//   - USDC(1500000) = 1.50 USDC (6 decimals)
//   - MNEE(1e18)    = 1 MNEE (18 decimals)
type Amount struct {
	Units int64  `json:"units"` // Smallest token unit
	Token string `json:"token"` // Lowercase token symbol: "mnee", "usdc", ...
}

// Common token constructors

// MNEE creates an Amount of MNEE in smallest units (18 decimals).
func MNEE(units int64) Amount { return Amount{Units: units, Token: "mnee"} }

// USDC creates an Amount of USDC in smallest units (6 decimals).
func USDC(units int64) Amount { return Amount{Units: units, Token: "usdc"} }

// USDT creates an Amount of USDT in smallest units (6 decimals).
func USDT(units int64) Amount { return Amount{Units: units, Token: "usdt"} }

// DAI creates an Amount of DAI in smallest units (18 decimals).
func DAI(units int64) Amount { return Amount{Units: units, Token: "dai"} }

// WETH creates an Amount of wrapped ether in wei (18 decimals).
func WETH(units int64) Amount { return Amount{Units: units, Token: "weth"} }

// NewUnits creates an Amount of an arbitrary token in smallest units.
func NewUnits(token string, units int64) Amount {
	return Amount{Units: units, Token: strings.ToLower(token)}
}

// Zero returns a zero Amount of the specified token.
func Zero(token string) Amount { return Amount{Units: 0, Token: strings.ToLower(token)} }

// Arithmetic operations

// Add adds two Amounts. Panics if tokens don't match.
func (a Amount) Add(other Amount) Amount {
	a.assertSameToken(other)
	return Amount{Units: a.Units + other.Units, Token: a.Token}
}

// Subtract subtracts another Amount. Panics if tokens don't match.
func (a Amount) Subtract(other Amount) Amount {
	a.assertSameToken(other)
	return Amount{Units: a.Units - other.Units, Token: a.Token}
}

// Multiply multiplies the Amount by a quantity.
func (a Amount) Multiply(qty int64) Amount {
	return Amount{Units: a.Units * qty, Token: a.Token}
}

// Divide divides the Amount by a divisor. Integer division truncating
// toward zero; the remainder is discarded by this method.
func (a Amount) Divide(divisor int64) Amount {
	if divisor == 0 {
		panic("amount: division by zero")
	}
	return Amount{Units: a.Units / divisor, Token: a.Token}
}

// Negate returns the negative of the Amount.
func (a Amount) Negate() Amount {
	return Amount{Units: -a.Units, Token: a.Token}
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.Units == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.Units > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a.Units < 0 }

// Equal returns true if both Amounts are equal (same units and token).
func (a Amount) Equal(other Amount) bool {
	return a.Units == other.Units && a.Token == other.Token
}

// LessThan returns true if this Amount is less than other. Panics if tokens don't match.
func (a Amount) LessThan(other Amount) bool {
	a.assertSameToken(other)
	return a.Units < other.Units
}

// GreaterThan returns true if this Amount is greater than other. Panics if tokens don't match.
func (a Amount) GreaterThan(other Amount) bool {
	a.assertSameToken(other)
	return a.Units > other.Units
}

// Min returns the smaller of two Amounts. Panics if tokens don't match.
func (a Amount) Min(other Amount) Amount {
	a.assertSameToken(other)
	if a.Units < other.Units {
		return a
	}
	return other
}

// Max returns the larger of two Amounts. Panics if tokens don't match.
func (a Amount) Max(other Amount) Amount {
	a.assertSameToken(other)
	if a.Units > other.Units {
		return a
	}
	return other
}

// Formatting methods

// FormatMajor returns the major-unit string without the token symbol,
// trimming trailing fractional zeros: "1.5" for USDC(1500000).
func (a Amount) FormatMajor() string {
	decimals := TokenDecimals(a.Token)
	if decimals == 0 {
		return fmt.Sprintf("%d", a.Units)
	}

	divisor := int64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}

	isNegative := a.Units < 0
	absUnits := a.Units
	if isNegative {
		absUnits = -absUnits
	}

	major := absUnits / divisor
	minor := absUnits % divisor

	result := fmt.Sprintf("%d", major)
	if minor != 0 {
		frac := fmt.Sprintf(fmt.Sprintf("%%0%dd", decimals), minor)
		frac = strings.TrimRight(frac, "0")
		result += "." + frac
	}

	if isNegative {
		return "-" + result
	}
	return result
}

// String returns a human-readable string with the token symbol.
// Examples: "1.5 USDC", "0.0001 MNEE".
func (a Amount) String() string {
	return a.FormatMajor() + " " + strings.ToUpper(a.Token)
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Units   int64  `json:"units"`
		Token   string `json:"token"`
		Display string `json:"display"`
	}{
		Units:   a.Units,
		Token:   a.Token,
		Display: a.String(),
	})
}

// ParseDecimal parses a non-negative decimal string in major units
// ("0.0001") into an Amount of the given token, scaling by the token's
// decimals. Fails on invalid syntax, negative values, precision beyond
// the token's decimals, or int64 overflow.
func ParseDecimal(s, token string) (Amount, error) {
	token = strings.ToLower(token)
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero(token), fmt.Errorf("amount: parse %q: empty string", s)
	}
	if strings.HasPrefix(s, "-") {
		return Zero(token), fmt.Errorf("amount: parse %q: negative value", s)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}

	decimals := TokenDecimals(token)
	if len(fracPart) > decimals {
		return Zero(token), fmt.Errorf("amount: parse %q: more than %d decimal places for %s", s, decimals, token)
	}
	// Right-pad the fraction to the token's full precision.
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	var units int64
	for _, digits := range []string{intPart, fracPart} {
		for _, c := range digits {
			if c < '0' || c > '9' {
				return Zero(token), fmt.Errorf("amount: parse %q: invalid character %q", s, c)
			}
			d := int64(c - '0')
			if units > (maxInt64-d)/10 {
				return Zero(token), fmt.Errorf("amount: parse %q: overflows int64", s)
			}
			units = units*10 + d
		}
	}

	return Amount{Units: units, Token: token}, nil
}

const maxInt64 = int64(^uint64(0) >> 1)

// Helper functions

// assertSameToken panics if tokens don't match.
func (a Amount) assertSameToken(other Amount) {
	if a.Token != other.Token {
		panic(fmt.Sprintf("amount: token mismatch: %s != %s", a.Token, other.Token))
	}
}

// TokenDecimals returns the number of decimal places for a token symbol.
func TokenDecimals(token string) int {
	sixDecimal := map[string]bool{
		"usdc": true,
		"usdt": true,
	}
	if sixDecimal[strings.ToLower(token)] {
		return 6
	}
	// ERC-20 default
	return 18
}

// Sum calculates the sum of multiple Amounts. All must have the same token.
func Sum(values ...Amount) Amount {
	if len(values) == 0 {
		return Zero("mnee")
	}

	result := values[0]
	for i := 1; i < len(values); i++ {
		result = result.Add(values[i])
	}
	return result
}
