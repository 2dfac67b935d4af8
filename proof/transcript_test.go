package proof

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeRelicServer/game"
)

func TestRecordedTranscript(t *testing.T) {
	tr := recordMatch(t)

	assert.Equal(t, TranscriptVersion, tr.Version)
	assert.Equal(t, []game.PlayerID{{1}, {2}, {3}}, tr.Metadata.PlayerIDs)
	assert.Equal(t, tr.Metadata.Config.Hash(), tr.Metadata.ConfigHash)
	assert.Len(t, tr.InitialState.Players, 3)

	require.True(t, tr.IsComplete())
	assert.Equal(t, uint32(1300), tr.Result.EndTick)
	assert.Len(t, tr.Result.Placements, 3)
	require.NotNil(t, tr.Result.Winner)
	assert.Equal(t, *tr.Result.Winner, tr.Result.Placements[0].PlayerID)

	require.Len(t, tr.Checkpoints, 2)
	assert.Equal(t, uint32(600), tr.Checkpoints[0].Tick)
	assert.Equal(t, uint32(1200), tr.Checkpoints[1].Tick)

	require.Len(t, tr.PlayerInputs, 3)
	for _, r := range tr.PlayerInputs {
		assert.Equal(t, uint32(1300), r.InputCount)
		// one delta per direction change or ability press, not per tick
		assert.Less(t, len(r.Deltas), 100)
		assert.Equal(t, uint32(1), r.Deltas[0].Tick)
	}
	assert.NotNil(t, tr.InputsFor(game.PlayerID{2}))
	assert.Nil(t, tr.InputsFor(game.PlayerID{9}))
}

func TestTranscriptEventFilter(t *testing.T) {
	p := game.PlayerID{1}
	killer := game.PlayerID{2}
	tr := NewTranscript(Metadata{})
	tr.RecordEvents([]game.Event{
		game.NewEvent(3, game.PlayerEliminated{Victim: p, Killer: &killer, Placement: 4}),
		game.NewEvent(3, game.AbilityUsed{Player: killer}),
		game.NewEvent(4, game.RuneCollected{Player: killer, RuneID: 9, Points: 15}),
		game.NewEvent(5, game.RuneSpawned{RuneID: 10}),
		game.NewEvent(6, game.ShrineActivated{Player: killer, ShrineID: 2}),
		game.NewEvent(7, game.FormEvolved{Player: killer, NewForm: game.FormGlyph}),
	})

	require.Len(t, tr.Events, 4)
	assert.Equal(t, TranscriptEvent{Kind: EventEliminated, Tick: 3, Player: p, Killer: &killer, Value: 4}, tr.Events[0])
	assert.Equal(t, TranscriptEvent{Kind: EventRuneCollected, Tick: 4, Player: killer, Value: 9, Points: 15}, tr.Events[1])
	assert.Equal(t, EventShrineActivated, tr.Events[2].Kind)
	assert.Equal(t, uint32(game.FormGlyph), tr.Events[3].Value)
	assert.False(t, tr.IsComplete())
}

func TestCodecRoundTrip(t *testing.T) {
	tr := recordMatch(t)
	data, err := Encode(tr)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, tr.Digest(), decoded.Digest())
	assert.Equal(t, tr.Metadata.Config, decoded.Metadata.Config)
	assert.Equal(t, tr.InitialState, decoded.InitialState)
	assert.Equal(t, tr.Result, decoded.Result)
	assert.Equal(t, tr.Checkpoints, decoded.Checkpoints)
	assert.Equal(t, len(tr.Events), len(decoded.Events))

	assert.Less(t, len(data), 20*1024)
	assert.Positive(t, tr.EstimatedSize())
}

func TestCodecErrors(t *testing.T) {
	tr := recordMatch(t)

	t.Run("version", func(t *testing.T) {
		other := *tr
		other.Version = 2
		data, err := Encode(&other)
		require.NoError(t, err)
		_, err = Decode(data)
		var vm *VersionMismatchError
		require.True(t, errors.As(err, &vm))
		assert.Equal(t, uint8(2), vm.Got)
	})

	t.Run("not zstd", func(t *testing.T) {
		_, err := Decode([]byte("definitely not a transcript"))
		assert.ErrorIs(t, err, ErrDeserialization)
	})

	t.Run("truncated body", func(t *testing.T) {
		raw := tr.rawBytes()
		_, err := decodeRaw(raw[:len(raw)-5])
		assert.ErrorIs(t, err, ErrDeserialization)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		raw := append(tr.rawBytes(), 0)
		_, err := decodeRaw(raw)
		assert.ErrorIs(t, err, ErrDeserialization)
	})

	t.Run("absurd count", func(t *testing.T) {
		raw := tr.rawBytes()
		bad := append([]byte(nil), raw[:49]...)
		bad = append(bad, 0xFF, 0xFF, 0xFF, 0x7F)
		_, err := decodeRaw(bad)
		assert.ErrorIs(t, err, ErrDeserialization)
	})
}
