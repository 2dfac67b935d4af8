package broker

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"testing"
	"time"

	"runeRelicServer/crypto"
	"runeRelicServer/game"
	"runeRelicServer/proof"
	"runeRelicServer/state"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finished(t *testing.T) *proof.Transcript {
	t.Helper()
	cfg := game.DefaultMatchConfig()
	cfg.DurationTicks = 90
	sess, err := state.SimulateMatch(game.MatchID{0x42}, []game.PlayerID{{1}, {2}, {3}}, cfg, crypto.HashBytes([]byte("nats")), 5)
	require.NoError(t, err)
	return sess.Transcript()
}

func TestNewProofJob(t *testing.T) {
	tr := finished(t)
	job := NewProofJob(tr, 1234)

	assert.Equal(t, tr.Metadata.MatchID.String(), job.MatchID)
	assert.Equal(t, tr.Digest().Hex(), job.TranscriptDigest)
	assert.Equal(t, 1234, job.TranscriptBytes)
	assert.Equal(t, tr.Result.EndTick, job.EndTick)

	raw, err := hex.DecodeString(job.PublicInputs)
	require.NoError(t, err)
	pi, err := proof.PublicInputsFromBytes(raw)
	require.NoError(t, err)
	assert.NoError(t, proof.CheckPublicInputs(tr, pi))

	data, err := json.Marshal(job)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"matchId"`)
}

func TestPublishJob(t *testing.T) {
	_ = godotenv.Load("../.env")

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	pub, err := Connect(url, "runerelic.test.jobs")
	require.NoError(t, err)
	defer pub.Close()

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(pub.Subject(), ch)
	require.NoError(t, err)
	defer s.Unsubscribe()
	require.NoError(t, sub.Flush())

	job := NewProofJob(finished(t), 10)
	require.NoError(t, pub.PublishJob(job))

	var msg *nats.Msg
	select {
	case msg = <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("proof job not delivered")
	}
	var got ProofJob
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, job.MatchID, got.MatchID)
}
