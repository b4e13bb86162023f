package catalog

// Query is one user interaction over an already aggregated catalog.
type Query struct {
	Category  string
	MinPrice  int64
	MaxPrice  int64
	Key       SortKey
	Direction Direction
	Limit     int
}

// Apply runs filter then rank then truncation. It never refetches and is
// cheap enough to run on every interaction.
func Apply(items []Item, q Query) []Item {
	out := FilterByCategory(items, q.Category)
	out = FilterByPrice(out, q.MinPrice, q.MaxPrice)
	out = Rank(out, q.Key, q.Direction)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
