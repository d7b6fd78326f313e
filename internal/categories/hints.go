package categories

import (
	"regexp"

	"pocketops/internal/core"
)

type hintRule struct {
	re       *regexp.Regexp
	category string
}

// Evaluated top to bottom; the first match wins.
var hintRules = []hintRule{
	{regexp.MustCompile(`(woolworths|coles|aldi|iga|costco)`), "groceries"},
	{regexp.MustCompile(`(bp|ampol|caltex|7-eleven|7eleven|shell|opal)`), "transport"},
	{regexp.MustCompile(`(uber eats|ubereats|menulog|doordash|kfc|mcdonald|hungry jacks|subway|domino)`), "takeaway"},
	{regexp.MustCompile(`(starbucks|gloria jean|coffee|cafe)`), "coffee"},
	{regexp.MustCompile(`(netflix|spotify|prime|adobe|apple\.com|google one|microsoft|xbox|playstation)`), "subscriptions"},
	{regexp.MustCompile(`(electric|energy|gas|water|internet|telstra|optus|vodafone|nbn)`), "utilities"},
	{regexp.MustCompile(`(chemist|pharmacy|doctor|dentist|physio|myhealth)`), "health"},
	{regexp.MustCompile(`(rent|real estate|ray white|lj hooker)`), "rent"},
}

// Hint guesses a category from a merchant name using keyword rules.
// Returns "other" when nothing matches.
func Hint(merchant string) string {
	key := core.MerchantKeyFrom(merchant)
	for _, r := range hintRules {
		if r.re.MatchString(key) {
			return r.category
		}
	}
	return core.FallbackCategory.Key
}
