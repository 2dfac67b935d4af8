package proof

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeRelicServer/game"
)

// clone deep-copies through the codec so tampering never leaks between cases.
func clone(t *testing.T, tr *Transcript) *Transcript {
	t.Helper()
	c, err := decodeRaw(tr.rawBytes())
	require.NoError(t, err)
	return c
}

func TestVerifyValidTranscript(t *testing.T) {
	tr := recordMatch(t)
	res := VerifyTranscript(tr)
	require.NoError(t, res.Err)
	assert.True(t, res.Valid)
	assert.Equal(t, tr.Result.FinalStateHash, res.ComputedHash)
	require.Len(t, res.CheckpointResults, 2)
	for _, cp := range res.CheckpointResults {
		assert.True(t, cp.Valid)
	}

	// the decoded copy verifies too
	data, err := Encode(tr)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, VerifyTranscript(decoded).Valid)
}

func TestVerifyFailures(t *testing.T) {
	base := recordMatch(t)

	cases := []struct {
		name   string
		tamper func(tr *Transcript)
		check  func(t *testing.T, res VerificationResult)
	}{
		{
			name:   "incomplete",
			tamper: func(tr *Transcript) { tr.Result = nil },
			check: func(t *testing.T, res VerificationResult) {
				assert.ErrorIs(t, res.Err, ErrIncomplete)
			},
		},
		{
			name:   "version",
			tamper: func(tr *Transcript) { tr.Version = 9 },
			check: func(t *testing.T, res VerificationResult) {
				var vm *VersionMismatchError
				assert.True(t, errors.As(res.Err, &vm))
			},
		},
		{
			name:   "seed",
			tamper: func(tr *Transcript) { tr.Metadata.RngSeed++ },
			check: func(t *testing.T, res VerificationResult) {
				var sm *SeedMismatchError
				assert.True(t, errors.As(res.Err, &sm))
			},
		},
		{
			name:   "config without hash",
			tamper: func(tr *Transcript) { tr.Metadata.Config.ShrinkRate++ },
			check: func(t *testing.T, res VerificationResult) {
				assert.ErrorIs(t, res.Err, ErrConfigMismatch)
			},
		},
		{
			name:   "initial position",
			tamper: func(tr *Transcript) { tr.InitialState.Players[0].Position.X++ },
			check: func(t *testing.T, res VerificationResult) {
				var im *InitialStateMismatchError
				require.True(t, errors.As(res.Err, &im))
				assert.Equal(t, im.Computed, res.ComputedHash)
			},
		},
		{
			name: "input changed before first checkpoint",
			tamper: func(tr *Transcript) {
				d := &tr.PlayerInputs[0].Deltas[0]
				d.Frame.MoveX = -d.Frame.MoveX
			},
			check: func(t *testing.T, res VerificationResult) {
				var cm *CheckpointMismatchError
				require.True(t, errors.As(res.Err, &cm))
				assert.Equal(t, uint32(600), cm.Tick)
				require.Len(t, res.CheckpointResults, 1)
				assert.False(t, res.CheckpointResults[0].Valid)
			},
		},
		{
			name:   "second checkpoint",
			tamper: func(tr *Transcript) { tr.Checkpoints[1].StateHash[0] ^= 1 },
			check: func(t *testing.T, res VerificationResult) {
				var cm *CheckpointMismatchError
				require.True(t, errors.As(res.Err, &cm))
				assert.Equal(t, uint32(1200), cm.Tick)
				require.Len(t, res.CheckpointResults, 2)
				assert.True(t, res.CheckpointResults[0].Valid)
			},
		},
		{
			name:   "final hash",
			tamper: func(tr *Transcript) { tr.Result.FinalStateHash[31] ^= 1 },
			check: func(t *testing.T, res VerificationResult) {
				var fm *FinalStateMismatchError
				assert.True(t, errors.As(res.Err, &fm))
			},
		},
		{
			name: "placements",
			tamper: func(tr *Transcript) {
				p := tr.Result.Placements
				p[0].Score++
			},
			check: func(t *testing.T, res VerificationResult) {
				assert.ErrorIs(t, res.Err, ErrResultMismatch)
			},
		},
		{
			name: "unordered deltas",
			tamper: func(tr *Transcript) {
				d := tr.PlayerInputs[1].Deltas
				d[0], d[1] = d[1], d[0]
			},
			check: func(t *testing.T, res VerificationResult) {
				var ii *InvalidInputError
				require.True(t, errors.As(res.Err, &ii))
				assert.Equal(t, game.PlayerID{2}, ii.PlayerID)
			},
		},
		{
			name: "stranger's inputs",
			tamper: func(tr *Transcript) {
				tr.PlayerInputs[2].PlayerID = game.PlayerID{0x42}
			},
			check: func(t *testing.T, res VerificationResult) {
				var ii *InvalidInputError
				assert.True(t, errors.As(res.Err, &ii))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := clone(t, base)
			tc.tamper(tr)
			res := VerifyTranscript(tr)
			assert.False(t, res.Valid)
			require.Error(t, res.Err)
			assert.Equal(t, res.Err.Error(), res.Error)
			tc.check(t, res)
		})
	}
}

// A transcript carries its own config, so a well-formed hash over a hostile
// config must be refused before any tick runs.
func TestVerifyRejectsOutOfRangeConfig(t *testing.T) {
	base := recordMatch(t)

	cases := map[string]func(cfg *game.MatchConfig){
		"huge initial spawn": func(cfg *game.MatchConfig) {
			cfg.RuneSpawn.InitialSpawnCount = 3_000_000
			cfg.RuneSpawn.MaxRunes = ^uint32(0)
		},
		"spawn over max": func(cfg *game.MatchConfig) {
			cfg.RuneSpawn.InitialSpawnCount = cfg.RuneSpawn.MaxRunes + 1
		},
		"zero duration": func(cfg *game.MatchConfig) { cfg.DurationTicks = 0 },
		"huge duration": func(cfg *game.MatchConfig) { cfg.DurationTicks = ^uint32(0) },
		"zero interval": func(cfg *game.MatchConfig) { cfg.RuneSpawn.SpawnInterval = 0 },
		"weights wrap": func(cfg *game.MatchConfig) {
			cfg.RuneSpawn.WeightHubs = ^uint32(0)
			cfg.RuneSpawn.WeightCorridors = 1
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tr := clone(t, base)
			mutate(&tr.Metadata.Config)
			tr.Metadata.ConfigHash = tr.Metadata.Config.Hash()

			res := VerifyTranscript(tr)
			assert.False(t, res.Valid)
			assert.ErrorIs(t, res.Err, game.ErrInvalidConfig)
			assert.Empty(t, res.CheckpointResults)
		})
	}

	for name, end := range map[string]uint32{
		"zero":          0,
		"past duration": base.Metadata.Config.DurationTicks + 1,
		"max":           ^uint32(0),
	} {
		t.Run("end tick "+name, func(t *testing.T) {
			tr := clone(t, base)
			tr.Result.EndTick = end

			res := VerifyTranscript(tr)
			assert.False(t, res.Valid)
			assert.ErrorIs(t, res.Err, ErrEndTickRange)
			assert.Empty(t, res.CheckpointResults)
		})
	}
}

func TestVerifyBatch(t *testing.T) {
	good := recordMatch(t)
	bad := clone(t, good)
	bad.Result.FinalStateHash[0] ^= 1

	results, err := VerifyBatch(context.Background(), []*Transcript{good, bad, good}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Valid)
	assert.False(t, results[1].Valid)
	assert.True(t, results[2].Valid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = VerifyBatch(ctx, []*Transcript{good}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStubVerifier(t *testing.T) {
	var v ProofVerifier = StubVerifier{}
	ok, err := v.VerifyProof(context.Background(), PublicInputs{}, nil)
	assert.ErrorIs(t, err, ErrInvalidProofFormat)
	assert.False(t, ok)

	ok, err = v.VerifyProof(context.Background(), PublicInputs{}, []byte{1})
	assert.NoError(t, err)
	assert.True(t, ok)
}
