package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"runeRelicServer/fixed"
)

/* =========================
   DOMAIN TAGS
========================= */

const (
	DomainState       = "RUNE_RELIC_STATE_V1"
	DomainInputs      = "RUNE_RELIC_INPUTS_V1"
	DomainMerkleLeaf  = "RUNE_RELIC_MERKLE_LEAF_V1"
	DomainMerkleNode  = "RUNE_RELIC_MERKLE_NODE_V1"
	DomainMerkleEmpty = "RUNE_RELIC_MERKLE_EMPTY_V1"
	DomainCommit      = "RUNE_RELIC_COMMIT_V1"
)

// Hash is a 32-byte SHA-256 digest.
type Hash [32]byte

func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := HashFromHex(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashFromHex parses a 64 character hex string, with or without 0x.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, hex.ErrLength
	}
	copy(h[:], b)
	return h, nil
}

/* =========================
   STATE HASHER
========================= */

// StateHasher feeds typed values into SHA-256 after a domain prefix.
// Call order is the only degree of freedom, so callers iterate sorted.
type StateHasher struct {
	h   hash.Hash
	tmp [8]byte
}

func NewStateHasher(domain string) *StateHasher {
	s := &StateHasher{h: sha256.New()}
	s.h.Write([]byte(domain))
	return s
}

func (s *StateHasher) UpdateBytes(b []byte) {
	s.h.Write(b)
}

func (s *StateHasher) UpdateU8(v uint8) {
	s.tmp[0] = v
	s.h.Write(s.tmp[:1])
}

func (s *StateHasher) UpdateU16(v uint16) {
	binary.LittleEndian.PutUint16(s.tmp[:2], v)
	s.h.Write(s.tmp[:2])
}

func (s *StateHasher) UpdateU32(v uint32) {
	binary.LittleEndian.PutUint32(s.tmp[:4], v)
	s.h.Write(s.tmp[:4])
}

func (s *StateHasher) UpdateU64(v uint64) {
	binary.LittleEndian.PutUint64(s.tmp[:8], v)
	s.h.Write(s.tmp[:8])
}

func (s *StateHasher) UpdateI32(v int32) {
	s.UpdateU32(uint32(v))
}

func (s *StateHasher) UpdateFixed(v fixed.Fixed) {
	s.UpdateI32(int32(v))
}

func (s *StateHasher) UpdateVec2(v fixed.Vec2) {
	s.UpdateFixed(v.X)
	s.UpdateFixed(v.Y)
}

func (s *StateHasher) UpdateBool(v bool) {
	if v {
		s.UpdateU8(1)
		return
	}
	s.UpdateU8(0)
}

func (s *StateHasher) UpdateID(id [16]byte) {
	s.h.Write(id[:])
}

func (s *StateHasher) Finalize() Hash {
	var out Hash
	copy(out[:], s.h.Sum(nil))
	return out
}

// HashBytes is plain SHA-256.
func HashBytes(b []byte) Hash {
	return sha256.Sum256(b)
}

func HashWithDomain(domain string, b []byte) Hash {
	s := NewStateHasher(domain)
	s.UpdateBytes(b)
	return s.Finalize()
}

// ComputeStateHash writes the tick and seed header, then lets fn append entity data.
func ComputeStateHash(tick uint32, seed uint64, fn func(*StateHasher)) Hash {
	s := NewStateHasher(DomainState)
	s.UpdateU32(tick)
	s.UpdateU64(seed)
	fn(s)
	return s.Finalize()
}
