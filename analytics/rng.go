package analytics

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// DefaultSeed is the fixed seed used by both forests so that repeated
// training runs over the same data produce identical models.
const DefaultSeed int64 = 42

// trainingRNG provides deterministic, isolated RNG streams per named
// subsystem of a training run. Two trainings with the same seed and
// identical data MUST produce bit-for-bit identical models.
//
// Derivation: masterSeed XOR fnv1a64(subsystemName).
// Not thread-safe; training is single-threaded.
type trainingRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

func newTrainingRNG(seed int64) *trainingRNG {
	return &trainingRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// forSubsystem returns a deterministically seeded RNG for the named
// subsystem. The same name always returns the same *rand.Rand (cached).
func (t *trainingRNG) forSubsystem(name string) *rand.Rand {
	if rng, ok := t.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(t.seed ^ fnv1a64(name)))
	t.subsystems[name] = rng
	return rng
}

// subsystemTree names the RNG stream for tree N of an ensemble.
func subsystemTree(id int) string {
	return fmt.Sprintf("tree_%d", id)
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
