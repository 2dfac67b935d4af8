package proof

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"runeRelicServer/crypto"
	"runeRelicServer/game"
)

var (
	ErrResultMismatch = errors.New("match result mismatch")
	ErrConfigMismatch = errors.New("config hash does not match recorded config")
	ErrEndTickRange   = errors.New("end tick outside the configured duration")
)

type InitialStateMismatchError struct {
	Expected crypto.Hash
	Computed crypto.Hash
}

func (e *InitialStateMismatchError) Error() string {
	return "initial state hash mismatch"
}

// CheckpointMismatchError names the first tick whose hash diverged.
type CheckpointMismatchError struct {
	Tick     uint32
	Expected crypto.Hash
	Computed crypto.Hash
}

func (e *CheckpointMismatchError) Error() string {
	return fmt.Sprintf("checkpoint mismatch at tick %d", e.Tick)
}

type FinalStateMismatchError struct {
	Expected crypto.Hash
	Computed crypto.Hash
}

func (e *FinalStateMismatchError) Error() string {
	return "final state hash mismatch"
}

type InvalidInputError struct {
	PlayerID game.PlayerID
	Reason   string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input record for player %s: %s", e.PlayerID, e.Reason)
}

/* =========================
   VERIFICATION RESULT
========================= */

type CheckpointResult struct {
	Tick     uint32      `json:"tick"`
	Expected crypto.Hash `json:"expected"`
	Computed crypto.Hash `json:"computed"`
	Valid    bool        `json:"valid"`
}

// VerificationResult is returned as data so the failing tick can be shown.
type VerificationResult struct {
	Valid             bool               `json:"valid"`
	ComputedHash      crypto.Hash        `json:"computedHash"`
	ExpectedHash      crypto.Hash        `json:"expectedHash"`
	CheckpointResults []CheckpointResult `json:"checkpointResults"`
	Err               error              `json:"-"`
	Error             string             `json:"error,omitempty"`
}

func failed(err error, computed, expected crypto.Hash, cps []CheckpointResult) VerificationResult {
	return VerificationResult{
		ComputedHash:      computed,
		ExpectedHash:      expected,
		CheckpointResults: cps,
		Err:               err,
		Error:             err.Error(),
	}
}

/* =========================
   REPLAY
========================= */

// VerifyTranscript replays t from its initial snapshot with its recorded
// config and inputs. It stops at the first checkpoint that diverges.
func VerifyTranscript(t *Transcript) VerificationResult {
	if t.Version != TranscriptVersion {
		return failed(&VersionMismatchError{Expected: TranscriptVersion, Got: t.Version}, crypto.Hash{}, crypto.Hash{}, nil)
	}
	res := t.Result
	if res == nil {
		return failed(ErrIncomplete, crypto.Hash{}, crypto.Hash{}, nil)
	}

	meta := t.Metadata
	if seed := crypto.DeriveMatchSeed(meta.BlockHash, meta.MatchID, game.RawIDs(meta.PlayerIDs)); seed != meta.RngSeed {
		return failed(&SeedMismatchError{Expected: seed, Got: meta.RngSeed}, crypto.Hash{}, crypto.Hash{}, nil)
	}
	cfg := meta.Config
	if cfg.Hash() != meta.ConfigHash {
		return failed(ErrConfigMismatch, crypto.Hash{}, crypto.Hash{}, nil)
	}
	if err := cfg.Validate(); err != nil {
		return failed(err, crypto.Hash{}, crypto.Hash{}, nil)
	}
	if res.EndTick == 0 || res.EndTick > cfg.DurationTicks {
		return failed(fmt.Errorf("%w: %d of %d", ErrEndTickRange, res.EndTick, cfg.DurationTicks), crypto.Hash{}, crypto.Hash{}, nil)
	}
	if err := checkParticipants(t); err != nil {
		return failed(err, crypto.Hash{}, crypto.Hash{}, nil)
	}

	s, err := game.RestoreMatchState(meta.MatchID, meta.RngSeed, t.InitialState.RngState, t.InitialState.Players)
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrDeserialization, err), crypto.Hash{}, crypto.Hash{}, nil)
	}
	if h := s.ComputeHash(); h != t.InitialState.StateHash {
		return failed(&InitialStateMismatchError{Expected: t.InitialState.StateHash, Computed: h}, h, t.InitialState.StateHash, nil)
	}

	deltas := make(map[game.PlayerID][]game.InputDelta, len(t.PlayerInputs))
	for _, r := range t.PlayerInputs {
		deltas[r.PlayerID] = r.Deltas
	}
	ids := s.PlayerIDs()
	inputs := make(game.TickInputs, len(ids))

	var cps []CheckpointResult
	next := 0
	var winner *game.PlayerID
	for s.Tick < res.EndTick {
		tick := s.Tick + 1
		for i, id := range ids {
			inputs[i] = game.PlayerInput{PlayerID: id, Frame: game.InputAt(deltas[id], tick)}
		}
		out := game.Tick(s, inputs, &cfg)

		for next < len(t.Checkpoints) && t.Checkpoints[next].Tick <= s.Tick {
			cp := t.Checkpoints[next]
			computed := s.ComputeHash()
			ok := cp.Tick == s.Tick && computed == cp.StateHash
			cps = append(cps, CheckpointResult{Tick: cp.Tick, Expected: cp.StateHash, Computed: computed, Valid: ok})
			if !ok {
				return failed(&CheckpointMismatchError{Tick: cp.Tick, Expected: cp.StateHash, Computed: computed}, computed, cp.StateHash, cps)
			}
			next++
		}

		if out.MatchEnded {
			winner = out.Winner
			break
		}
	}

	final := s.ComputeHash()
	if final != res.FinalStateHash {
		return failed(&FinalStateMismatchError{Expected: res.FinalStateHash, Computed: final}, final, res.FinalStateHash, cps)
	}
	if s.Tick != res.EndTick || next != len(t.Checkpoints) || !sameResult(ResultFromState(s, winner), *res) {
		return failed(ErrResultMismatch, final, res.FinalStateHash, cps)
	}

	return VerificationResult{
		Valid:             true,
		ComputedHash:      final,
		ExpectedHash:      res.FinalStateHash,
		CheckpointResults: cps,
	}
}

// checkParticipants requires the snapshot and input records to name only
// registered players, with deltas in strictly increasing tick order.
func checkParticipants(t *Transcript) error {
	known := make(map[game.PlayerID]bool, len(t.Metadata.PlayerIDs))
	for _, id := range t.Metadata.PlayerIDs {
		known[id] = true
	}
	if len(t.InitialState.Players) != len(known) {
		return ErrPlayerIDsMismatch
	}
	for _, p := range t.InitialState.Players {
		if !known[p.ID] {
			return ErrPlayerIDsMismatch
		}
	}

	seen := make(map[game.PlayerID]bool, len(t.PlayerInputs))
	for _, r := range t.PlayerInputs {
		if !known[r.PlayerID] {
			return &InvalidInputError{PlayerID: r.PlayerID, Reason: "unknown player"}
		}
		if seen[r.PlayerID] {
			return &InvalidInputError{PlayerID: r.PlayerID, Reason: "duplicate record"}
		}
		seen[r.PlayerID] = true
		for i := 1; i < len(r.Deltas); i++ {
			if r.Deltas[i].Tick <= r.Deltas[i-1].Tick {
				return &InvalidInputError{PlayerID: r.PlayerID, Reason: fmt.Sprintf("delta %d out of order", i)}
			}
		}
	}
	return nil
}

func sameResult(a, b MatchResult) bool {
	if a.EndTick != b.EndTick || len(a.Placements) != len(b.Placements) {
		return false
	}
	if (a.Winner == nil) != (b.Winner == nil) || (a.Winner != nil && *a.Winner != *b.Winner) {
		return false
	}
	for i := range a.Placements {
		if a.Placements[i] != b.Placements[i] {
			return false
		}
	}
	return true
}

// VerifyBatch replays independent transcripts concurrently. Results keep
// the input order.
func VerifyBatch(ctx context.Context, ts []*Transcript, workers int) ([]VerificationResult, error) {
	out := make([]VerificationResult, len(ts))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, t := range ts {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = VerifyTranscript(t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

/* =========================
   PROOF VERIFIER
========================= */

var (
	ErrInvalidProofFormat  = errors.New("invalid proof format")
	ErrPublicInputMismatch = errors.New("public input mismatch")
)

// CheckPublicInputs recomputes the summary of t and compares it to a claim.
func CheckPublicInputs(t *Transcript, claimed PublicInputs) error {
	if PublicInputsFromTranscript(t) != claimed {
		return ErrPublicInputMismatch
	}
	return nil
}

// ProofVerifier checks a succinct proof against public inputs.
type ProofVerifier interface {
	VerifyProof(ctx context.Context, inputs PublicInputs, proof []byte) (bool, error)
}

// StubVerifier accepts any non-empty proof. It stands in until a prover is wired.
type StubVerifier struct{}

func (StubVerifier) VerifyProof(_ context.Context, _ PublicInputs, proof []byte) (bool, error) {
	if len(proof) == 0 {
		return false, ErrInvalidProofFormat
	}
	return true, nil
}
