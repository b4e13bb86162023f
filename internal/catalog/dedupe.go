package catalog

// Dedupe keeps the first Item seen for each id and drops later ones,
// preserving first-occurrence order. Callers control which duplicate
// survives through the order of the input.
func Dedupe(items []Item) []Item {
	seen := make(map[int64]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
