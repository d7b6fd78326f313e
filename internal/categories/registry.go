// Package categories merges user-defined, built-in, overridden and deleted
// category definitions into the single ordered catalog the rest of the
// system renders and validates against.
package categories

import "pocketops/internal/core"

// BuiltIn is the fixed catalog appended after the user's own categories.
var BuiltIn = []core.Category{
	{Key: "groceries", Label: "Groceries", Emoji: "🛒"},
	{Key: "takeaway", Label: "Takeaway", Emoji: "🍔"},
	{Key: "coffee", Label: "Coffee", Emoji: "☕"},
	{Key: "bills", Label: "Bills", Emoji: "🧾"},
	{Key: "utilities", Label: "Utilities", Emoji: "💡"},
	{Key: "phone", Label: "Phone", Emoji: "📱"},
	{Key: "shopping", Label: "Shopping", Emoji: "🛍️"},
	{Key: "health", Label: "Health", Emoji: "💊"},
	{Key: "other", Label: "Other", Emoji: "✨"},
}

// All returns custom categories followed by the built-in catalog, keyed
// uniquely (first occurrence wins), without deleted keys, with overrides
// applied. The fallback category is appended when missing.
func All(custom []core.Category, overrides map[string]core.CategoryOverride, deleted []string) []core.Category {
	gone := make(map[string]struct{}, len(deleted))
	for _, k := range deleted {
		gone[k] = struct{}{}
	}

	seen := make(map[string]struct{})
	out := make([]core.Category, 0, len(custom)+len(BuiltIn)+1)
	for _, src := range [][]core.Category{custom, BuiltIn} {
		for _, c := range src {
			if c.Key == "" {
				continue
			}
			if _, dup := seen[c.Key]; dup {
				continue
			}
			seen[c.Key] = struct{}{}
			if _, del := gone[c.Key]; del {
				continue
			}
			out = append(out, withOverride(normalize(c), overrides))
		}
	}

	if !contains(out, core.FallbackCategory.Key) {
		out = append(out, withOverride(core.FallbackCategory, overrides))
	}
	return out
}

// ForState is All over the category fields of an app state.
func ForState(s core.AppState) []core.Category {
	return All(s.CustomCategories, s.CategoryOverrides, s.DeletedCategoryKeys)
}

// Find returns the category with key.
func Find(cats []core.Category, key string) (core.Category, bool) {
	for _, c := range cats {
		if c.Key == key {
			return c, true
		}
	}
	return core.Category{}, false
}

// Label returns the display label of key, or the key itself when unknown.
func Label(cats []core.Category, key string) string {
	if c, ok := Find(cats, key); ok && c.Label != "" {
		return c.Label
	}
	return key
}

// Meta returns the category for key, falling back to "other".
func Meta(cats []core.Category, key string) core.Category {
	if c, ok := Find(cats, key); ok {
		return c
	}
	if c, ok := Find(cats, core.FallbackCategory.Key); ok {
		return c
	}
	return core.FallbackCategory
}

// FirstKey returns the key of the first category, "other" when empty.
func FirstKey(cats []core.Category) string {
	if len(cats) == 0 {
		return core.FallbackCategory.Key
	}
	return cats[0].Key
}

func normalize(c core.Category) core.Category {
	if c.Label == "" {
		c.Label = c.Key
	}
	if c.Emoji == "" {
		c.Emoji = core.FallbackCategory.Emoji
	}
	return c
}

func withOverride(c core.Category, overrides map[string]core.CategoryOverride) core.Category {
	o, ok := overrides[c.Key]
	if !ok {
		return c
	}
	if o.Label != "" {
		c.Label = o.Label
	}
	if o.Emoji != "" {
		c.Emoji = o.Emoji
	}
	return c
}

func contains(cats []core.Category, key string) bool {
	_, ok := Find(cats, key)
	return ok
}
