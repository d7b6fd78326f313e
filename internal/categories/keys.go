package categories

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxRecent is how many recently used categories are remembered.
const MaxRecent = 5

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a category key: lowercase ASCII letters
// and digits joined by underscores.
func Slugify(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(s, "_")
}

// UniqueKey returns base, or base_2, base_3, ... for the first key that
// exists reports as free.
func UniqueKey(base string, exists func(string) bool) string {
	key := base
	for i := 2; exists(key); i++ {
		key = base + "_" + strconv.Itoa(i)
	}
	return key
}

// RememberRecent moves category to the front of recent, keeping at most
// MaxRecent distinct entries. recent is not modified.
func RememberRecent(recent []string, category string) []string {
	out := make([]string, 0, MaxRecent)
	out = append(out, category)
	for _, k := range recent {
		if len(out) == MaxRecent {
			break
		}
		if k != category {
			out = append(out, k)
		}
	}
	return out
}
