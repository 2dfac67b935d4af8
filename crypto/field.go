package crypto

import (
	"encoding/binary"

	"runeRelicServer/fixed"
)

/* =========================
   M31 FIELD ENCODING
========================= */

// The encodings below fold bytes into elements of GF(2^31 - 1) for a
// succinct-proof system. They are lossy: chunks at or above the prime wrap.
const (
	M31Prime uint32 = 1<<31 - 1
	M31Bias  uint32 = 1 << 30
)

// Range of fixed values that bias to a canonical element below the prime.
const (
	MinEncodableFixed fixed.Fixed = -1 << 30
	MaxEncodableFixed fixed.Fixed = 1<<30 - 2
)

// EncodeFixed biases a signed fixed-point value into the field. Values
// outside [MinEncodableFixed, MaxEncodableFixed] saturate.
func EncodeFixed(v fixed.Fixed) uint32 {
	v = fixed.Clamp(v, MinEncodableFixed, MaxEncodableFixed)
	return uint32(int32(v)) + M31Bias
}

func DecodeFixed(v uint32) fixed.Fixed {
	return fixed.Fixed(int32(v - M31Bias))
}

func EncodeVec2(v fixed.Vec2) [2]uint32 {
	return [2]uint32{EncodeFixed(v.X), EncodeFixed(v.Y)}
}

func DecodeVec2(e [2]uint32) fixed.Vec2 {
	return fixed.Vec2{X: DecodeFixed(e[0]), Y: DecodeFixed(e[1])}
}

// HashToM31 splits a 32-byte hash into eight little-endian words reduced mod p.
func HashToM31(h [32]byte) [8]uint32 {
	var out [8]uint32
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(h[i*4:]) % M31Prime
	}
	return out
}

// M31ToHash is the partial inverse of HashToM31. Reduced words do not round trip.
func M31ToHash(e [8]uint32) [32]byte {
	var h [32]byte
	for i, v := range e {
		binary.LittleEndian.PutUint32(h[i*4:], v)
	}
	return h
}

// IDToM31 splits a 16-byte identifier into four reduced words.
func IDToM31(id [16]byte) [4]uint32 {
	var out [4]uint32
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(id[i*4:]) % M31Prime
	}
	return out
}

func M31ToID(e [4]uint32) [16]byte {
	var id [16]byte
	for i, v := range e {
		binary.LittleEndian.PutUint32(id[i*4:], v)
	}
	return id
}
