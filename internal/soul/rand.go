package soul

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Rand is a splitmix64 generator. Its sequence for a given seed is fixed
// across platforms and Go releases.
type Rand struct {
	state uint64
}

// NewRand returns a generator seeded with seed.
func NewRand(seed uint64) *Rand {
	return &Rand{state: seed}
}

// Uint64 returns the next 64 pseudo-random bits.
func (r *Rand) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a value in [0, 1) with 53 bits of precision.
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// Between returns a value in [lo, hi).
func (r *Rand) Between(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// SeedFromString hashes s with BLAKE3 and folds the first eight bytes of the
// digest into a generator seed.
func SeedFromString(s string) uint64 {
	sum := blake3.Sum256([]byte(s))
	return binary.LittleEndian.Uint64(sum[:8])
}
