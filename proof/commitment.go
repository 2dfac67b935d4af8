package proof

import (
	"errors"
	"fmt"
	"sort"

	"runeRelicServer/crypto"
	"runeRelicServer/game"
)

var (
	ErrPreimageMismatch  = errors.New("preimage hash does not match commitment")
	ErrMatchIDMismatch   = errors.New("match id mismatch")
	ErrPlayerIDsMismatch = errors.New("player ids mismatch")
	ErrNonceCount        = errors.New("one nonce per player is required")
	ErrCommittedConfig   = errors.New("transcript config differs from the committed config")
)

// BlockOutOfRangeError reports an entropy block outside the committed window.
type BlockOutOfRangeError struct {
	Min uint64
	Max uint64
	Got uint64
}

func (e *BlockOutOfRangeError) Error() string {
	return fmt.Sprintf("block height %d is outside range [%d, %d]", e.Got, e.Min, e.Max)
}

// SeedMismatchError means the transcript seed is not the one the entropy derives.
type SeedMismatchError struct {
	Expected uint64
	Got      uint64
}

func (e *SeedMismatchError) Error() string {
	return fmt.Sprintf("rng seed mismatch: expected %d, got %d", e.Expected, e.Got)
}

/* =========================
   COMMITMENT
========================= */

// Preimage is kept secret until the match ends. Players and their nonces
// are stored pairwise sorted by player id.
type Preimage struct {
	MatchID      game.MatchID    `json:"matchId"`
	PlayerIDs    []game.PlayerID `json:"playerIds"`
	ConfigHash   crypto.Hash     `json:"configHash"`
	PlayerNonces []crypto.Hash   `json:"playerNonces"`
	ServerNonce  crypto.Hash     `json:"serverNonce"`
}

// Commitment is published before the match starts.
type Commitment struct {
	Hash           crypto.Hash `json:"hash"`
	BlockHeightMin uint64      `json:"blockHeightMin"`
	BlockHeightMax uint64      `json:"blockHeightMax"`
}

func (p *Preimage) Hash() crypto.Hash {
	h := crypto.NewStateHasher(crypto.DomainCommit)
	h.UpdateID(p.MatchID)
	for _, id := range p.PlayerIDs {
		h.UpdateID(id)
	}
	h.UpdateBytes(p.ConfigHash[:])
	for _, n := range p.PlayerNonces {
		h.UpdateBytes(n[:])
	}
	h.UpdateBytes(p.ServerNonce[:])
	return h.Finalize()
}

func NewCommitment(p *Preimage, blockMin, blockMax uint64) Commitment {
	return Commitment{Hash: p.Hash(), BlockHeightMin: blockMin, BlockHeightMax: blockMax}
}

func (c Commitment) Verify(p *Preimage) bool {
	return p.Hash() == c.Hash
}

// BlockInRange is inclusive at both ends.
func (c Commitment) BlockInRange(height uint64) bool {
	return height >= c.BlockHeightMin && height <= c.BlockHeightMax
}

// CommitmentBuilder collects participants in any order.
type CommitmentBuilder struct {
	matchID     game.MatchID
	players     []game.PlayerID
	nonces      []crypto.Hash
	configHash  crypto.Hash
	serverNonce crypto.Hash
}

func NewCommitmentBuilder(matchID game.MatchID) *CommitmentBuilder {
	return &CommitmentBuilder{matchID: matchID}
}

func (b *CommitmentBuilder) AddPlayer(id game.PlayerID, nonce [32]byte) *CommitmentBuilder {
	b.players = append(b.players, id)
	b.nonces = append(b.nonces, crypto.Hash(nonce))
	return b
}

func (b *CommitmentBuilder) ConfigHash(h crypto.Hash) *CommitmentBuilder {
	b.configHash = h
	return b
}

func (b *CommitmentBuilder) ServerNonce(n [32]byte) *CommitmentBuilder {
	b.serverNonce = crypto.Hash(n)
	return b
}

// Build sorts players together with their nonces and hashes the preimage.
func (b *CommitmentBuilder) Build(blockMin, blockMax uint64) (*Preimage, Commitment) {
	idx := make([]int, len(b.players))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return b.players[idx[i]].Less(b.players[idx[j]])
	})

	p := &Preimage{
		MatchID:     b.matchID,
		ConfigHash:  b.configHash,
		ServerNonce: b.serverNonce,
	}
	for _, i := range idx {
		p.PlayerIDs = append(p.PlayerIDs, b.players[i])
		p.PlayerNonces = append(p.PlayerNonces, b.nonces[i])
	}
	return p, NewCommitment(p, blockMin, blockMax)
}

/* =========================
   REVEAL
========================= */

// Reveal is published after the match so anyone can check the seed.
type Reveal struct {
	Preimage    *Preimage   `json:"preimage"`
	BlockHash   crypto.Hash `json:"blockHash"`
	BlockHeight uint64      `json:"blockHeight"`
	Transcript  *Transcript `json:"transcript"`
}

// Verify checks the reveal against a commitment in a fixed order and returns
// the first failing check.
func (r *Reveal) Verify(c Commitment) error {
	if r.Preimage == nil || r.Transcript == nil {
		return ErrIncomplete
	}
	if len(r.Preimage.PlayerNonces) != len(r.Preimage.PlayerIDs) {
		return ErrNonceCount
	}
	if !c.Verify(r.Preimage) {
		return ErrPreimageMismatch
	}
	if !c.BlockInRange(r.BlockHeight) {
		return &BlockOutOfRangeError{Min: c.BlockHeightMin, Max: c.BlockHeightMax, Got: r.BlockHeight}
	}

	expected := crypto.DeriveMatchSeed(r.BlockHash, r.Preimage.MatchID, game.RawIDs(r.Preimage.PlayerIDs))
	if got := r.Transcript.Metadata.RngSeed; got != expected {
		return &SeedMismatchError{Expected: expected, Got: got}
	}
	if r.Transcript.Metadata.MatchID != r.Preimage.MatchID {
		return ErrMatchIDMismatch
	}

	a := sortedPlayers(r.Transcript.Metadata.PlayerIDs)
	b := sortedPlayers(r.Preimage.PlayerIDs)
	if len(a) != len(b) {
		return ErrPlayerIDsMismatch
	}
	for i := range a {
		if a[i] != b[i] {
			return ErrPlayerIDsMismatch
		}
	}
	if r.Transcript.Metadata.ConfigHash != r.Preimage.ConfigHash {
		return ErrCommittedConfig
	}
	return nil
}
