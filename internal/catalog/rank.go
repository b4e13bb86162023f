package catalog

import (
	"cmp"
	"slices"
	"strings"
)

// SortKey selects the value items are ranked by.
type SortKey string

const (
	SortTrendingFirst  SortKey = "trending-first"
	SortUnitsSold      SortKey = "units-sold"
	SortRating         SortKey = "rating"
	SortEffectivePrice SortKey = "effective-price"
)

// DefaultSortKey is used for empty or unrecognized sort tokens.
const DefaultSortKey = SortUnitsSold

// Direction is the ranking order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSortKey maps a UI token to a SortKey, falling back to DefaultSortKey.
func ParseSortKey(token string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(token))); k {
	case SortTrendingFirst, SortUnitsSold, SortRating, SortEffectivePrice:
		return k
	default:
		return DefaultSortKey
	}
}

// ParseDirection maps a UI token to a Direction. Anything other than an
// ascending token ranks descending.
func ParseDirection(token string) Direction {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "asc", "ascending":
		return Ascending
	default:
		return Descending
	}
}

// Rank returns a new slice ordered by key in the given direction. The sort
// is stable: items with equal keys keep their input order in both
// directions. The input slice is not modified.
func Rank(items []Item, key SortKey, dir Direction) []Item {
	key = ParseSortKey(string(key))
	out := slices.Clone(items)
	if out == nil {
		out = []Item{}
	}

	slices.SortStableFunc(out, func(a, b Item) int {
		ka, kb := keyValue(a, key), keyValue(b, key)
		if dir == Ascending {
			return cmp.Compare(ka, kb)
		}
		return cmp.Compare(kb, ka)
	})
	return out
}

func keyValue(item Item, key SortKey) float64 {
	switch key {
	case SortTrendingFirst:
		if item.IsTrending {
			return 1
		}
		return 0
	case SortRating:
		return item.Rating
	case SortEffectivePrice:
		return float64(item.EffectivePrice())
	default:
		return float64(item.UnitsSold)
	}
}
