package proof

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeRelicServer/crypto"
	"runeRelicServer/game"
)

func nonce(b byte) [32]byte {
	var n [32]byte
	for i := range n {
		n[i] = b
	}
	return n
}

func buildCommitment(order []int) (*Preimage, Commitment) {
	b := NewCommitmentBuilder(testMatchID).
		ConfigHash(testConfig().Hash()).
		ServerNonce(nonce(0xEE))
	for _, i := range order {
		b.AddPlayer(testPlayers[i], nonce(testPlayers[i][0]))
	}
	return b.Build(100, 110)
}

func TestCommitmentOrderIndependent(t *testing.T) {
	p1, c1 := buildCommitment([]int{0, 1, 2})
	p2, c2 := buildCommitment([]int{2, 0, 1})
	assert.Equal(t, c1, c2)
	assert.Equal(t, []game.PlayerID{{1}, {2}, {3}}, p1.PlayerIDs)
	// nonces travel with their players
	for i, id := range p2.PlayerIDs {
		assert.Equal(t, crypto.Hash(nonce(id[0])), p2.PlayerNonces[i])
	}
	assert.True(t, c1.Verify(p2))

	p2.ServerNonce[0] ^= 1
	assert.False(t, c1.Verify(p2))
}

func TestBlockRangeInclusive(t *testing.T) {
	_, c := buildCommitment([]int{0, 1, 2})
	assert.True(t, c.BlockInRange(100))
	assert.True(t, c.BlockInRange(110))
	assert.False(t, c.BlockInRange(99))
	assert.False(t, c.BlockInRange(111))
}

func TestRevealVerify(t *testing.T) {
	tr := recordMatch(t)
	newReveal := func() (*Reveal, Commitment) {
		p, c := buildCommitment([]int{1, 2, 0})
		return &Reveal{Preimage: p, BlockHash: testBlock, BlockHeight: 105, Transcript: tr}, c
	}

	t.Run("valid", func(t *testing.T) {
		r, c := newReveal()
		assert.NoError(t, r.Verify(c))
	})

	t.Run("preimage tampered", func(t *testing.T) {
		r, c := newReveal()
		r.Preimage.PlayerNonces[0][5] ^= 0xFF
		assert.ErrorIs(t, r.Verify(c), ErrPreimageMismatch)
	})

	t.Run("block out of range", func(t *testing.T) {
		r, c := newReveal()
		r.BlockHeight = 111
		var oor *BlockOutOfRangeError
		require.True(t, errors.As(r.Verify(c), &oor))
		assert.Equal(t, BlockOutOfRangeError{Min: 100, Max: 110, Got: 111}, *oor)
	})

	t.Run("wrong entropy", func(t *testing.T) {
		r, c := newReveal()
		r.BlockHash[0] ^= 1
		var sm *SeedMismatchError
		require.True(t, errors.As(r.Verify(c), &sm))
		assert.Equal(t, tr.Metadata.RngSeed, sm.Got)
		assert.NotEqual(t, sm.Expected, sm.Got)
	})

	t.Run("transcript for another match", func(t *testing.T) {
		r, c := newReveal()
		other := *tr
		other.Metadata.MatchID = game.MatchID{0x99}
		r.Transcript = &other
		assert.ErrorIs(t, r.Verify(c), ErrMatchIDMismatch)
	})

	t.Run("transcript with other players", func(t *testing.T) {
		r, c := newReveal()
		other := *tr
		other.Metadata.PlayerIDs = []game.PlayerID{{1}, {2}}
		r.Transcript = &other
		assert.ErrorIs(t, r.Verify(c), ErrPlayerIDsMismatch)
	})

	t.Run("transcript under another config", func(t *testing.T) {
		r, c := newReveal()
		other := *tr
		cfg := testConfig()
		cfg.DurationTicks++
		other.Metadata.Config = cfg
		other.Metadata.ConfigHash = cfg.Hash()
		r.Transcript = &other
		assert.ErrorIs(t, r.Verify(c), ErrCommittedConfig)
	})

	t.Run("nonce count", func(t *testing.T) {
		r, c := newReveal()
		r.Preimage.PlayerNonces = r.Preimage.PlayerNonces[:2]
		assert.ErrorIs(t, r.Verify(c), ErrNonceCount)
	})
}
