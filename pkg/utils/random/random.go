package random

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
)

const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Source is the randomness used by shuffling and bot decisions.
// Implementations must be safe for use by a single goroutine at a time.
type Source interface {
	// Intn returns a uniform int in [0, n). n must be > 0.
	Intn(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

type seeded struct {
	r *mrand.Rand
}

// NewSeeded returns a deterministic source, used by tests and simulations.
func NewSeeded(seed int64) Source {
	return &seeded{r: mrand.New(mrand.NewSource(seed))}
}

func (s *seeded) Intn(n int) int { return s.r.Intn(n) }

func (s *seeded) Float64() float64 { return s.r.Float64() }

type cryptoSource struct{}

// NewCrypto returns a source backed by crypto/rand.
func NewCrypto() Source {
	return &cryptoSource{}
}

func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("random: invalid argument to Intn")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func (c *cryptoSource) Float64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	// 53 random bits -> [0, 1)
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}

// Code returns an upper-case invite code without ambiguous characters.
func Code(length int) string {
	return pickFromSet(letters, length)
}

func pickFromSet(set string, length int) string {
	if length <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(set)))
	runes := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			runes[i] = set[0]
			continue
		}
		runes[i] = set[n.Int64()]
	}
	return string(runes)
}
