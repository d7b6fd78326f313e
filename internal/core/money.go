// Package core provides money parsing and handling utilities.
//
// Amounts are integer cents everywhere. Parsing goes through decimal so
// "0.29" never becomes 28 cents.
package core

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountPattern = regexp.MustCompile(`^-?\d+(\.\d{0,2})?$`)
	amountStrip   = strings.NewReplacer("$", "", ",", "")
	hundred       = decimal.NewFromInt(100)
	maxCents      = decimal.NewFromInt(math.MaxInt64)
	minCents      = decimal.NewFromInt(math.MinInt64)
)

// DollarsToCents converts a user-typed dollar amount to cents.
//
// Currency symbols, thousands separators and whitespace are stripped. At most
// two decimals are accepted and the result must fit in int64 cents; the
// second return value is false for anything else.
//
// Examples:
//
//	DollarsToCents("12.34")     -> 1234, true
//	DollarsToCents("$1,234.50") -> 123450, true
//	DollarsToCents("12.345")    -> 0, false
//	DollarsToCents("99999999999999999999") -> 0, false
func DollarsToCents(s string) (int64, bool) {
	clean := strings.Join(strings.Fields(amountStrip.Replace(s)), "")
	if clean == "" || !amountPattern.MatchString(clean) {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(clean, "."))
	if err != nil {
		return 0, false
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, false
	}
	return cents.IntPart(), true
}

// CentsToDollars formats cents as "$12.34". Negative amounts render as "$-12.34".
func CentsToDollars(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}

// MerchantKeyFrom normalizes a merchant name into the key used for matching:
// trimmed, lowercased, inner whitespace collapsed.
func MerchantKeyFrom(merchant string) string {
	return strings.Join(strings.Fields(strings.ToLower(merchant)), " ")
}
