// Package ordering holds the pure list arithmetic shared by the day and item
// engines: permutation checks, list moves and dense renumbering.
package ordering

import (
	"github.com/starford/tourdesk/internal/apperr"
)

// Assignment pairs a member id with its new order key.
type Assignment struct {
	ID  string
	Key int
}

// Validate checks that assignments name every member exactly once and that
// their keys are exactly base..base+len(members)-1. idField and keyField name
// the offending input in the returned ValidationError.
func Validate(idField, keyField, container string, members []string, assignments []Assignment, base int) error {
	if len(assignments) == 0 {
		return apperr.Invalid("assignments", "must not be empty")
	}
	in := make(map[string]struct{}, len(members))
	for _, id := range members {
		in[id] = struct{}{}
	}
	seenID := make(map[string]struct{}, len(assignments))
	seenKey := make(map[int]struct{}, len(assignments))
	last := base + len(members) - 1
	for _, a := range assignments {
		if _, ok := in[a.ID]; !ok {
			return apperr.Invalid(idField, "%q does not belong to %s", a.ID, container)
		}
		if _, dup := seenID[a.ID]; dup {
			return apperr.Invalid(idField, "%q is assigned more than once", a.ID)
		}
		if a.Key < base || a.Key > last {
			return apperr.Invalid(keyField, "%d for %q is outside %d..%d", a.Key, a.ID, base, last)
		}
		if _, dup := seenKey[a.Key]; dup {
			return apperr.Invalid(keyField, "%d is assigned more than once", a.Key)
		}
		seenID[a.ID] = struct{}{}
		seenKey[a.Key] = struct{}{}
	}
	if len(assignments) != len(members) {
		for _, id := range members {
			if _, ok := seenID[id]; !ok {
				return apperr.Invalid(idField, "%q of %s has no assignment", id, container)
			}
		}
	}
	return nil
}

// Move returns a copy of ids with the element at index from moved to index to.
// Both indexes must be in range.
func Move(ids []string, from, to int) []string {
	out := make([]string, 0, len(ids))
	moved := ids[from]
	for i, id := range ids {
		if i != from {
			out = append(out, id)
		}
	}
	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

// Dense numbers ids from base in their current order.
func Dense(ids []string, base int) []Assignment {
	out := make([]Assignment, len(ids))
	for i, id := range ids {
		out[i] = Assignment{ID: id, Key: base + i}
	}
	return out
}

// Changed drops the assignments whose key already matches current[id].
func Changed(assignments []Assignment, current map[string]int) []Assignment {
	out := assignments[:0:0]
	for _, a := range assignments {
		if k, ok := current[a.ID]; !ok || k != a.Key {
			out = append(out, a)
		}
	}
	return out
}

// IsDense reports whether keys are exactly base..base+len(keys)-1 in order.
func IsDense(keys []int, base int) bool {
	for i, k := range keys {
		if k != base+i {
			return false
		}
	}
	return true
}
