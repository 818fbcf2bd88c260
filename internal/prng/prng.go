// Package prng draws lottery numbers from the OS CSPRNG so winner selection
// can't be seeded or predicted.
package prng

import (
	"crypto/rand"
	"math/big"
)

// IntN returns a uniform random int in [0, n).
func IntN(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// nothing sensible to do but give up loudly
		panic(err)
	}
	return int(v.Int64())
}

// Between returns a uniform random int in [min, max] inclusive.
func Between(min, max int) int {
	if max < min {
		return min
	}
	return min + IntN(max-min+1)
}

// Pick returns a uniformly chosen element of xs.
func Pick[T any](xs []T) T {
	return xs[IntN(len(xs))]
}
