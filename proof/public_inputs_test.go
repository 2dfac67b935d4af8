package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeRelicServer/crypto"
)

func TestPublicInputsFromTranscript(t *testing.T) {
	tr := recordMatch(t)
	pi := PublicInputsFromTranscript(tr)

	assert.Equal(t, crypto.IDToM31(testMatchID), pi.MatchID)
	assert.Equal(t, uint32(3), pi.PlayerCount)
	assert.Equal(t, uint32(1300), pi.DurationTicks)
	assert.Equal(t, crypto.IDToM31(*tr.Result.Winner), pi.WinnerID)
	assert.Equal(t, crypto.HashToM31(tr.Result.FinalStateHash), pi.FinalStateHash)
	assert.Equal(t, crypto.HashToM31(EventsRoot(tr)), pi.EventsRoot)

	for i, e := range pi.Elements() {
		assert.Less(t, e, crypto.M31Prime, "element %d", i)
	}
	assert.NoError(t, CheckPublicInputs(tr, pi))
}

func TestPublicInputsEncoding(t *testing.T) {
	pi := PublicInputsFromTranscript(recordMatch(t))

	b := pi.Bytes()
	require.Len(t, b, 264)
	back, err := PublicInputsFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, pi, back)
	assert.Equal(t, pi, PublicInputsFromElements(pi.Elements()))

	// field order: match id, block hash, then the two counters
	e := pi.Elements()
	assert.Equal(t, pi.PlayerCount, e[12])
	assert.Equal(t, pi.DurationTicks, e[13])
	assert.Equal(t, pi.EventsRoot[7], e[65])

	_, err = PublicInputsFromBytes(b[:263])
	assert.Error(t, err)
}

func TestPublicInputsTrackContent(t *testing.T) {
	tr := recordMatch(t)
	pi := PublicInputsFromTranscript(tr)

	tampered := clone(t, tr)
	tampered.Checkpoints[0].RngState[0]++
	other := PublicInputsFromTranscript(tampered)
	assert.NotEqual(t, pi.CheckpointsRoot, other.CheckpointsRoot)
	assert.Equal(t, pi.EventsRoot, other.EventsRoot)
	assert.ErrorIs(t, CheckPublicInputs(tampered, pi), ErrPublicInputMismatch)

	incomplete := clone(t, tr)
	incomplete.Result = nil
	pi = PublicInputsFromTranscript(incomplete)
	assert.Zero(t, pi.DurationTicks)
	assert.Equal(t, [8]uint32{}, pi.FinalStateHash)
	assert.Equal(t, [4]uint32{}, pi.WinnerID)
}
