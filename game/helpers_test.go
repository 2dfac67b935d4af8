package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"runeRelicServer/fixed"
)

// quietConfig turns off rune spawning so tests control the board.
func quietConfig() *MatchConfig {
	cfg := DefaultMatchConfig()
	cfg.RuneSpawn.InitialSpawnCount = 0
	cfg.RuneSpawn.SpawnCount = 0
	return &cfg
}

func newTestMatch(t *testing.T, seed uint64, n int) (*MatchState, []PlayerID) {
	t.Helper()
	s := NewMatchState(MatchID{0xAA}, seed)
	ids := make([]PlayerID, n)
	for i := range ids {
		ids[i] = PlayerID{byte(i + 1)}
		_, err := s.AddPlayer(ids[i])
		require.NoError(t, err)
	}
	StartPlaying(s)
	return s, ids
}

func place(s *MatchState, id PlayerID, x, y int32) {
	s.Player(id).Position = fixed.VecFromInts(x, y)
}

func idleTicks(s *MatchState, cfg *MatchConfig, n int) []Event {
	var events []Event
	for i := 0; i < n; i++ {
		events = append(events, Tick(s, nil, cfg).Events...)
	}
	return events
}

func eventsOf[T EventData](events []Event) []T {
	var out []T
	for _, e := range events {
		if d, ok := e.Data.(T); ok {
			out = append(out, d)
		}
	}
	return out
}
