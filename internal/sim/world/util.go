package world

import "sort"

// sortedByID returns agents ordered by identity. Patches sort by their grid
// index, which is their id.
func sortedByID(as []Agent) []Agent {
	out := append([]Agent(nil), as...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
