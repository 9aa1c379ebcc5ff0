package signalid

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name string
		used []int
		want int
	}{
		{"empty set", nil, 1},
		{"dense set", []int{1, 2, 3}, 4},
		{"missing one", []int{2, 3}, 1},
		{"gap in the middle", []int{1, 3}, 2},
		{"unordered", []int{3, 1, 2, 5}, 4},
		{"duplicates", []int{1, 1, 2, 2}, 3},
		{"zero and negatives ignored", []int{0, -4, 1}, 2},
		{"values beyond length ignored", []int{100, 200}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allocate(tt.used))
		})
	}
}

func TestAllocate_DoesNotModifyInput(t *testing.T) {
	used := []int{3, 1, 2}
	Allocate(used)
	assert.Equal(t, []int{3, 1, 2}, used)
}

// TestAllocate_MatchesBruteForce checks the linear algorithm against a
// straightforward set lookup on random inputs.
func TestAllocate_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		used := make([]int, rng.Intn(30))
		seen := make(map[int]bool, len(used))
		for i := range used {
			used[i] = rng.Intn(40) - 5
			seen[used[i]] = true
		}

		want := MinID
		for seen[want] {
			want++
		}

		if got := Allocate(used); got != want {
			t.Fatalf("Allocate(%v) = %d, want %d", used, got, want)
		}
	}
}

func TestMatchesDigits(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"0042", true},
		// The pattern is zero-or-more digits, so the empty string passes.
		// Emptiness is rejected separately by the callers.
		{"", true},
		{"abc", false},
		{"12a", false},
		{"-1", false},
		{" 1", false},
		{"1.0", false},
		{"٣", false}, // ARABIC-INDIC DIGIT THREE
	}

	for _, tt := range tests {
		if got := MatchesDigits(tt.in); got != tt.want {
			t.Errorf("MatchesDigits(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr error
	}{
		{"7", 7, nil},
		{"007", 7, nil},
		{"0", 0, nil},
		{"", 0, ErrEmpty},
		{"abc", 0, ErrNotDigits},
		{"99999999999999999999999", 0, ErrOutOfRange},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Parse(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
