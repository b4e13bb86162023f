package catalog

import "strings"

// AllCategoriesToken is the UI token meaning "no category filter".
const AllCategoriesToken = "all"

// CategoryFromToken maps a UI category token to a filter value. A blank
// token and AllCategoriesToken both disable the filter; any other token is
// returned unchanged so it still matches exactly.
func CategoryFromToken(token string) string {
	switch strings.TrimSpace(token) {
	case "", AllCategoriesToken:
		return ""
	}
	return token
}

// FilterByCategory returns the items whose CategoryName equals category
// exactly. An empty category returns every item in the original order.
func FilterByCategory(items []Item, category string) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if category == "" || item.CategoryName == category {
			out = append(out, item)
		}
	}
	return out
}

// FilterByPrice keeps items whose effective price lies within [minPrice, maxPrice].
// A zero bound is treated as unbounded.
func FilterByPrice(items []Item, minPrice, maxPrice int64) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		p := item.EffectivePrice()
		if minPrice > 0 && p < minPrice {
			continue
		}
		if maxPrice > 0 && p > maxPrice {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Categories lists the distinct category names in first-seen order.
// Items without a category are skipped.
func Categories(items []Item) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, item := range items {
		if item.CategoryName == "" {
			continue
		}
		if _, ok := seen[item.CategoryName]; ok {
			continue
		}
		seen[item.CategoryName] = struct{}{}
		out = append(out, item.CategoryName)
	}
	return out
}
