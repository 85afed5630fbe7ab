// Package dice provides random sources for deck shuffling and
// monster damage rolls. All randomness in the combat engine flows
// through a Source so tests can substitute deterministic sequences.
package dice

import (
	"crypto/rand"
	"math/big"
)

// Source produces uniformly distributed integers in [0, n).
type Source interface {
	// Intn returns a random int in [0, n).
	// Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
//
// Invariant: All values produced are uniformly distributed in [0, n)
// for any n > 0.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// sequenceSource replays a fixed sequence of values, wrapping around.
// Values are reduced modulo n so they always satisfy the Source contract.
type sequenceSource struct {
	values []int
	next   int
}

// NewSequenceSource returns a deterministic Source that replays values in
// order, wrapping when exhausted. Intended for tests.
//
// Precondition: values must be non-empty.
func NewSequenceSource(values ...int) Source {
	if len(values) == 0 {
		panic("dice: NewSequenceSource called with no values")
	}
	vs := make([]int, len(values))
	copy(vs, values)
	return &sequenceSource{values: vs}
}

// Intn returns the next value in the sequence reduced into [0, n).
//
// Precondition: n > 0.
func (s *sequenceSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// Shuffle permutes items in place using a Fisher-Yates walk over src.
//
// Postcondition: items contains the same elements in a permuted order.
func Shuffle[T any](src Source, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// RollRange returns a value in [min, max] drawn from src.
//
// Precondition: min <= max.
// Postcondition: min <= result <= max.
func RollRange(src Source, min, max int) int {
	if min > max {
		panic("dice: RollRange called with min > max")
	}
	if min == max {
		return min
	}
	return min + src.Intn(max-min+1)
}
