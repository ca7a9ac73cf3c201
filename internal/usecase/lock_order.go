package usecase

import "slices"

// LockOrder returns the distinct account ids in ascending order. Every scope
// reads, locks and writes its participants in this order, so two scopes
// sharing accounts never wait on each other in a cycle.
func LockOrder(ids ...int64) []int64 {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	return slices.Compact(ordered)
}
