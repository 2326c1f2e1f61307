package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSortedPair(t *testing.T) {
	assert.Equal(t, Pair[Address, Address]{"RA", "RB"}, MakeSortedPair[Address]("RB", "RA"))
	assert.Equal(t, Pair[Address, Address]{"RA", "RB"}, MakeSortedPair[Address]("RA", "RB"))
}

func TestSortPairs(t *testing.T) {
	pairs := []Pair[Address, Address]{
		{"RC", "RD"},
		{"RA", "RC"},
		{"H1", "RA"},
		{"RA", "RB"},
	}
	SortPairs(pairs)
	assert.Equal(t, []Pair[Address, Address]{
		{"H1", "RA"},
		{"RA", "RB"},
		{"RA", "RC"},
		{"RC", "RD"},
	}, pairs)

	ints := []Pair[int, int]{{3, 10}, {1, 20}, {1, 5}}
	SortPairs(ints)
	assert.Equal(t, []Pair[int, int]{{1, 5}, {1, 20}, {3, 10}}, ints)
}
