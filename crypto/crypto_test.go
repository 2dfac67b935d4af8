package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeRelicServer/fixed"
)

func testIDs() (a, b, matchID [16]byte, block [32]byte) {
	for i := range a {
		a[i] = 1
		b[i] = 2
		matchID[i] = byte(i)
	}
	for i := range block {
		block[i] = 7
	}
	return
}

func TestDeriveMatchSeed(t *testing.T) {
	a, b, matchID, block := testIDs()

	t.Run("known answer", func(t *testing.T) {
		assert.Equal(t, uint64(5908536501606962955), DeriveMatchSeed(block, matchID, [][16]byte{a, b}))
	})

	t.Run("order independent", func(t *testing.T) {
		assert.Equal(t,
			DeriveMatchSeed(block, matchID, [][16]byte{a, b}),
			DeriveMatchSeed(block, matchID, [][16]byte{b, a}))
	})

	t.Run("sensitive to every input", func(t *testing.T) {
		base := DeriveMatchSeed(block, matchID, [][16]byte{a, b})

		otherBlock := block
		otherBlock[0] ^= 1
		assert.NotEqual(t, base, DeriveMatchSeed(otherBlock, matchID, [][16]byte{a, b}))

		otherMatch := matchID
		otherMatch[15] ^= 1
		assert.NotEqual(t, base, DeriveMatchSeed(block, otherMatch, [][16]byte{a, b}))

		assert.NotEqual(t, base, DeriveMatchSeed(block, matchID, [][16]byte{a}))
	})

	t.Run("does not mutate caller slice", func(t *testing.T) {
		ids := [][16]byte{b, a}
		DeriveMatchSeed(block, matchID, ids)
		assert.Equal(t, b, ids[0])
	})
}

func TestStateHasher(t *testing.T) {
	t.Run("typed updates are little endian", func(t *testing.T) {
		got := ComputeStateHash(5, 42, func(h *StateHasher) {
			h.UpdateU8(3)
			h.UpdateBool(true)
			h.UpdateFixed(-fixed.One)
			h.UpdateU16(0x1234)
		})
		assert.Equal(t, "64e7686ef5f9bcf9108bb5db8c2a84bb2586c08e59db23b76150bf9cd4dd0671", got.Hex())
	})

	t.Run("domain separated", func(t *testing.T) {
		assert.Equal(t, "09f7571ab3538ce633c0100eb104de084f27f60fef5f0f2c3b99c040f527c5b5",
			HashWithDomain(DomainInputs, []byte("abc")).Hex())
		assert.NotEqual(t, HashWithDomain(DomainState, []byte("abc")), HashWithDomain(DomainInputs, []byte("abc")))
	})

	t.Run("call order matters", func(t *testing.T) {
		h1 := NewStateHasher(DomainState)
		h1.UpdateU32(1)
		h1.UpdateU32(2)
		h2 := NewStateHasher(DomainState)
		h2.UpdateU32(2)
		h2.UpdateU32(1)
		assert.NotEqual(t, h1.Finalize(), h2.Finalize())
	})

	t.Run("hex round trip", func(t *testing.T) {
		h := HashBytes([]byte("rune"))
		parsed, err := HashFromHex("0x" + h.Hex())
		require.NoError(t, err)
		assert.Equal(t, h, parsed)

		_, err = HashFromHex("abcd")
		assert.Error(t, err)
	})
}

func TestM31Encoding(t *testing.T) {
	t.Run("fixed values round trip", func(t *testing.T) {
		for _, v := range []fixed.Fixed{0, 25 * fixed.One, -25 * fixed.One, fixed.ArenaHalfWidth, -fixed.ArenaHalfWidth} {
			enc := EncodeFixed(v)
			assert.Less(t, enc, M31Prime)
			assert.Equal(t, v, DecodeFixed(enc))
		}
		v := fixed.VecFromInts(-3, 9)
		assert.Equal(t, v, DecodeVec2(EncodeVec2(v)))
	})

	t.Run("out of range fixed values saturate below the prime", func(t *testing.T) {
		assert.Equal(t, M31Prime-1, EncodeFixed(fixed.MaxValue))
		assert.Equal(t, M31Prime-1, EncodeFixed(MaxEncodableFixed))
		assert.Equal(t, MaxEncodableFixed, DecodeFixed(EncodeFixed(1<<30)))
		assert.Equal(t, uint32(0), EncodeFixed(fixed.MinValue))
		assert.Equal(t, MinEncodableFixed, DecodeFixed(EncodeFixed(fixed.MinValue)))
	})

	t.Run("hash words are reduced", func(t *testing.T) {
		var h [32]byte
		for i := range h {
			h[i] = 0xff
		}
		words := HashToM31(h)
		for _, w := range words {
			assert.Equal(t, uint32(1), w)
		}
	})

	t.Run("small words round trip", func(t *testing.T) {
		_, _, matchID, _ := testIDs()
		assert.Equal(t, matchID, M31ToID(IDToM31(matchID)))
		h := HashBytes([]byte("x"))
		h[3] &= 0x7f
		h[7] &= 0x7f
		back := M31ToHash(HashToM31(h))
		assert.Equal(t, h[:8], back[:8])
	})
}

func TestGenerateNonce(t *testing.T) {
	a, err := GenerateNonce()
	require.NoError(t, err)
	b, err := GenerateNonce()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, [32]byte{}, a)
}
