package proof

import (
	"testing"

	"github.com/stretchr/testify/require"

	"runeRelicServer/crypto"
	"runeRelicServer/fixed"
	"runeRelicServer/game"
)

var (
	testMatchID = game.MatchID{0x11, 0x22}
	testBlock   = crypto.Hash{7, 7, 7}
	testPlayers = []game.PlayerID{{3}, {1}, {2}}
)

func testConfig() game.MatchConfig {
	cfg := game.DefaultMatchConfig()
	cfg.DurationTicks = 1300
	return cfg
}

// scriptedFrame paces each player back and forth inside its own corner
// so nobody collides.
func scriptedFrame(i int, tick uint32) game.InputFrame {
	dir := int8(127)
	if (tick/60)%2 == 1 {
		dir = -127
	}
	f := game.InputWithMovement(dir, 0)
	if i == 1 {
		f = game.InputWithMovement(0, dir)
	}
	if tick%200 == uint32(i*50) {
		f.SetAbility(true)
	}
	return f
}

// recordMatch plays a full scripted match and returns its transcript.
func recordMatch(t *testing.T) *Transcript {
	t.Helper()
	cfg := testConfig()
	seed := crypto.DeriveMatchSeed(testBlock, testMatchID, game.RawIDs(testPlayers))

	s := game.NewMatchState(testMatchID, seed)
	meta := NewMetadata(testMatchID, testBlock, testPlayers, seed, 1700000000, cfg)
	for _, id := range meta.PlayerIDs {
		_, err := s.AddPlayer(id)
		require.NoError(t, err)
	}
	game.StartPlaying(s)

	corners := []fixed.Vec2{fixed.VecFromInts(-30, -30), fixed.VecFromInts(30, -30), fixed.VecFromInts(0, 30)}
	for i, id := range meta.PlayerIDs {
		s.Player(id).Position = corners[i]
	}

	rec := NewRecorder(meta, s)
	for !s.IsEnded() {
		tick := s.Tick + 1
		frames := make(map[game.PlayerID]game.InputFrame)
		for i, id := range meta.PlayerIDs {
			frames[id] = scriptedFrame(i, tick)
		}
		in := game.NewTickInputs(frames)
		rec.RecordInputs(tick, in)
		res := game.Tick(s, in, &cfg)
		rec.AfterTick(s, res)
		if res.MatchEnded {
			return rec.Finish(s, res.Winner)
		}
	}
	t.Fatal("match never ended")
	return nil
}
