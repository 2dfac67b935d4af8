package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
)

const SeedDomain = "RUNE_RELIC_SEED_V1"

// GenerateNonce returns 32 random bytes for commit-reveal.
func GenerateNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("failed to read random nonce: %w", err)
	}
	return nonce, nil
}

// SortIDs returns a sorted copy of ids.
func SortIDs(ids [][16]byte) [][16]byte {
	sorted := make([][16]byte, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	return sorted
}

// DeriveMatchSeed mixes block entropy, the match id and the participant set.
// Participants are sorted here so input order cannot influence the seed.
func DeriveMatchSeed(blockHash [32]byte, matchID [16]byte, playerIDs [][16]byte) uint64 {
	h := sha256.New()
	h.Write([]byte(SeedDomain))
	h.Write(blockHash[:])
	h.Write(matchID[:])
	for _, id := range SortIDs(playerIDs) {
		h.Write(id[:])
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}
