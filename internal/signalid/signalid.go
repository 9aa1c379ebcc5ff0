// Package signalid allocates and parses numeric signal identifiers.
//
// ALLOCATION RULE:
// A new signal always gets the smallest positive integer that is not in use.
// Deleting signal 2 out of {1, 2, 3} means the next create gets 2 again,
// so identifiers stay small and dense.
package signalid

import (
	"errors"
	"regexp"
	"strconv"
)

// MinID is the smallest identifier Allocate ever returns.
const MinID = 1

var (
	// ErrEmpty is returned by Parse for an empty string.
	ErrEmpty = errors.New("signalid: empty identifier")
	// ErrNotDigits is returned by Parse when the input has non-digit characters.
	ErrNotDigits = errors.New("signalid: identifier must contain only digits")
	// ErrOutOfRange is returned by Parse when the number does not fit in an int.
	ErrOutOfRange = errors.New("signalid: identifier out of range")
)

// digitsPattern is zero-or-more ASCII digits.
// NOTE: the empty string matches. Callers check for emptiness first.
var digitsPattern = regexp.MustCompile(`^[0-9]*$`)

// Allocate returns the smallest integer >= MinID that is not present in used.
//
// HOW IT RUNS IN LINEAR TIME:
// The answer is always in [1, n+1] where n = len(used), because n values can
// cover at most the n slots 1..n. So we only care about values in that range.
//
//  1. Copy used into a scratch slice (the caller's slice is never modified).
//  2. Cyclic placement: swap each in-range value v into index v-1 until every
//     slot either holds its "own" value or a value we ignore.
//  3. The first index i whose slot does not hold i+1 gives the answer i+1.
//
// Each swap puts one value into its final slot, so there are at most n swaps.
// Duplicates, zero and negative values are tolerated and simply ignored.
func Allocate(used []int) int {
	n := len(used)
	slots := make([]int, n)
	copy(slots, used)

	for i := 0; i < n; i++ {
		for slots[i] >= MinID && slots[i] <= n && slots[slots[i]-1] != slots[i] {
			j := slots[i] - 1
			slots[i], slots[j] = slots[j], slots[i]
		}
	}

	for i := 0; i < n; i++ {
		if slots[i] != i+1 {
			return i + 1
		}
	}
	return n + 1
}

// MatchesDigits reports whether s consists only of ASCII digits.
// The empty string matches, so "" is not rejected here.
func MatchesDigits(s string) bool {
	return digitsPattern.MatchString(s)
}

// Parse converts a client-supplied identifier into an int.
//
// Unlike MatchesDigits, Parse rejects the empty string. It also rejects
// values too large for an int, which the digit pattern alone would accept.
func Parse(s string) (int, error) {
	if s == "" {
		return 0, ErrEmpty
	}
	if !MatchesDigits(s) {
		return 0, ErrNotDigits
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrOutOfRange
	}
	return id, nil
}
