package game

import (
	"math/bits"

	"runeRelicServer/crypto"
	"runeRelicServer/fixed"
)

// Rng is xoroshiro128+. It is the only source of randomness a match may use,
// and its 128-bit state is part of every checkpoint.
type Rng struct {
	state [2]uint64
}

func splitmix64(s *uint64) uint64 {
	*s += 0x9E3779B97F4A7C15
	z := *s
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// NewRng expands a 64-bit seed so sequential seeds still decorrelate.
func NewRng(seed uint64) *Rng {
	s := seed
	s0 := splitmix64(&s)
	s1 := splitmix64(&s)
	if s0 == 0 && s1 == 0 {
		s0, s1 = 1, 1
	}
	return &Rng{state: [2]uint64{s0, s1}}
}

// NewMatchRng derives the seed from block entropy, match id and participants.
func NewMatchRng(blockHash [32]byte, matchID MatchID, players []PlayerID) *Rng {
	return NewRng(crypto.DeriveMatchSeed(blockHash, matchID, RawIDs(players)))
}

func (r *Rng) NextU64() uint64 {
	s0 := r.state[0]
	s1 := r.state[1]
	result := s0 + s1

	s1 ^= s0
	r.state[0] = bits.RotateLeft64(s0, 24) ^ s1 ^ (s1 << 16)
	r.state[1] = bits.RotateLeft64(s1, 37)

	return result
}

func (r *Rng) NextU32() uint32 {
	return uint32(r.NextU64())
}

// NextInt returns [0, max) by modulo. max 0 returns 0 without advancing.
func (r *Rng) NextInt(max uint32) uint32 {
	if max == 0 {
		return 0
	}
	return uint32(r.NextU64() % uint64(max))
}

// NextIntRange is inclusive on both ends.
func (r *Rng) NextIntRange(min, max int32) int32 {
	if min >= max {
		return min
	}
	// span is at most 2^32, so it is taken in 64 bits
	span := uint64(int64(max)-int64(min)) + 1
	return int32(int64(min) + int64(r.NextU64()%span))
}

// NextFixed returns [0, max) using the high 32 bits.
func (r *Rng) NextFixed(max fixed.Fixed) fixed.Fixed {
	if max <= 0 {
		return 0
	}
	raw := r.NextU64() >> 32
	return fixed.Fixed(int32((int64(raw) * int64(max)) >> 32))
}

func (r *Rng) NextFixedRange(min, max fixed.Fixed) fixed.Fixed {
	if min >= max {
		return min
	}
	span := uint64(int64(max) - int64(min))
	raw := r.NextU64() >> 32
	return fixed.Fixed(int64(min) + int64((raw*span)>>32))
}

// NextBool is true with probability p, where One means always.
func (r *Rng) NextBool(p fixed.Fixed) bool {
	return r.NextFixed(fixed.One) < p
}

func (r *Rng) RandomPosition() fixed.Vec2 {
	x := r.NextFixedRange(-fixed.ArenaHalfWidth, fixed.ArenaHalfWidth)
	y := r.NextFixedRange(-fixed.ArenaHalfHeight, fixed.ArenaHalfHeight)
	return fixed.V(x, y)
}

// RandomPositionInCircle rejection-samples the bounding square.
// A non-positive radius returns the centre without advancing.
func (r *Rng) RandomPositionInCircle(center fixed.Vec2, radius fixed.Fixed) fixed.Vec2 {
	if radius <= 0 {
		return center
	}
	radiusSq := fixed.Mul(radius, radius)
	for {
		x := r.NextFixedRange(-radius, radius)
		y := r.NextFixedRange(-radius, radius)
		offset := fixed.V(x, y)
		if offset.LengthSquared() <= radiusSq {
			return center.Add(offset)
		}
	}
}

// RandomDirection returns a unit vector, rejecting the zero vector.
func (r *Rng) RandomDirection() fixed.Vec2 {
	for {
		x := r.NextFixedRange(-fixed.One, fixed.One)
		y := r.NextFixedRange(-fixed.One, fixed.One)
		v := fixed.V(x, y)
		if v.LengthSquared() > 0 {
			return v.Normalize()
		}
	}
}

// Shuffle is Fisher-Yates from the back.
func (r *Rng) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i >= 1; i-- {
		j := int(r.NextInt(uint32(i + 1)))
		swap(i, j)
	}
}

// Choose returns an index into a collection of length n, or -1 when empty.
func (r *Rng) Choose(n int) int {
	if n == 0 {
		return -1
	}
	return int(r.NextInt(uint32(n)))
}

// PickWeighted returns an index with probability proportional to its weight.
// Empty or all-zero weights return 0 without advancing.
func (r *Rng) PickWeighted(weights []uint32) int {
	if len(weights) == 0 {
		return 0
	}
	var total uint32
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}

	roll := r.NextInt(total)
	for i, w := range weights {
		if roll < w {
			return i
		}
		roll -= w
	}
	return len(weights) - 1
}

func (r *Rng) State() [2]uint64 {
	return r.state
}

func (r *Rng) SetState(s [2]uint64) {
	r.state = s
}
