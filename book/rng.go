package book

import (
	"crypto/sha256"

	"lukechampine.com/frand"
)

// NewRNG returns the pipeline's pseudo-random source. A non-empty seed
// makes ply selection reproducible across runs; an empty seed gives a
// fresh crypto-seeded generator.
func NewRNG(seed string) *frand.RNG {
	if seed == "" {
		return frand.New()
	}
	sum := sha256.Sum256([]byte(seed))
	return frand.NewCustom(sum[:], 1024, 12)
}
