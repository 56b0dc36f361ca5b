package montecarlo

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// Sampler draws normally distributed returns. Implementations need not be
// safe for concurrent use; each engine owns its sampler.
type Sampler interface {
	Normal(stddev float64) float64
}

type pcgSampler struct {
	r *rand.Rand
}

// NewSampler returns a deterministic sampler; equal seeds give equal draws.
func NewSampler(seed uint64) Sampler {
	return &pcgSampler{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSampler seeds from the operating system's entropy source.
func NewRandomSampler() Sampler {
	var seed uint64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return NewSampler(seed)
}

func (s *pcgSampler) Normal(stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return s.r.NormFloat64() * stddev
}
