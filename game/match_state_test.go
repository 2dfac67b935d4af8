package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeRelicServer/fixed"
)

func TestAddPlayer(t *testing.T) {
	s := NewMatchState(MatchID{1}, 99)
	_, err := s.AddPlayer(PlayerID{3})
	require.NoError(t, err)
	_, err = s.AddPlayer(PlayerID{1})
	require.NoError(t, err)

	_, err = s.AddPlayer(PlayerID{3})
	assert.ErrorIs(t, err, ErrDuplicatePlayer)

	assert.Equal(t, []PlayerID{{1}, {3}}, s.PlayerIDs())
	assert.Equal(t, uint32(2), s.AliveCount)

	StartPlaying(s)
	_, err = s.AddPlayer(PlayerID{4})
	assert.ErrorIs(t, err, ErrMatchStarted)
}

func TestEliminatePlayer(t *testing.T) {
	s, ids := newTestMatch(t, 1, 4)
	killer := ids[0]

	assert.True(t, s.EliminatePlayer(ids[3], &killer))
	assert.False(t, s.EliminatePlayer(ids[3], &killer), "already dead")
	assert.False(t, s.EliminatePlayer(PlayerID{0xFF}, nil), "unknown")

	s.Player(killer).AddShrineBuff(ShrinePower, 10)
	assert.True(t, s.EliminatePlayer(ids[2], &killer))

	k := s.Player(killer)
	assert.Equal(t, uint32(2), k.Kills)
	assert.Equal(t, uint32(300), k.Score)
	assert.Equal(t, uint8(4), s.Player(ids[3]).Placement)
	assert.Equal(t, uint8(3), s.Player(ids[2]).Placement)
	require.NotNil(t, s.Player(ids[2]).EliminatedBy)
	assert.Equal(t, killer, *s.Player(ids[2]).EliminatedBy)
	assert.Equal(t, uint32(2), s.AliveCount)

	evolved := eventsOf[FormEvolved](s.TakeEvents())
	assert.Len(t, evolved, 2)
}

func TestStateHash(t *testing.T) {
	s, ids := newTestMatch(t, 5, 2)
	h := s.ComputeHash()
	assert.Equal(t, h, s.ComputeHash())

	c := s.Clone()
	assert.Equal(t, h, c.ComputeHash())

	c.Player(ids[0]).Position.X++
	assert.NotEqual(t, h, c.ComputeHash())
	assert.Equal(t, h, s.ComputeHash(), "clone is independent")

	other := NewMatchState(MatchID{0xAA}, 6)
	for _, id := range ids {
		_, err := other.AddPlayer(id)
		require.NoError(t, err)
	}
	StartPlaying(other)
	assert.NotEqual(t, h, other.ComputeHash())
}

func TestCloneCopiesRng(t *testing.T) {
	s, _ := newTestMatch(t, 77, 2)
	c := s.Clone()
	assert.Equal(t, s.Rng.NextU64(), c.Rng.NextU64())
	s.Rng.NextU64()
	assert.NotEqual(t, s.Rng.State(), c.Rng.State())
}

func TestRuneBookkeeping(t *testing.T) {
	s := NewMatchState(MatchID{}, 1)
	a := s.SpawnRune(fixed.VecFromInts(1, 1), RuneWisdom)
	b := s.SpawnRune(fixed.VecFromInts(2, 2), RuneChaos)
	assert.Equal(t, a+1, b)
	assert.Equal(t, uint32(2), s.UncollectedRuneCount())

	r := s.Rune(a)
	r.Collected = true
	r.CollectedTick = 10
	assert.Equal(t, uint32(1), s.UncollectedRuneCount())

	s.Tick = 20
	s.CleanupCollectedRunes(30)
	assert.NotNil(t, s.Rune(a))
	s.Tick = 40
	s.CleanupCollectedRunes(30)
	assert.Nil(t, s.Rune(a))
	assert.NotNil(t, s.Rune(b))
}

func TestReplayMatchesLiveTicks(t *testing.T) {
	cfg := DefaultMatchConfig()
	s, ids := newTestMatch(t, 2024, 3)
	initial := s.Clone()

	inputs := make(map[PlayerID][]InputFrame)
	for i, id := range ids {
		for tick := 0; tick < 120; tick++ {
			inputs[id] = append(inputs[id], InputWithMovement(int8(i*40-40), int8(tick%64)))
		}
	}

	var live []Event
	for tick := 0; tick < 120; tick++ {
		frames := make(map[PlayerID]InputFrame)
		for _, id := range ids {
			frames[id] = inputs[id][tick]
		}
		res := Tick(s, NewTickInputs(frames), &cfg)
		live = append(live, res.Events...)
		if res.MatchEnded {
			break
		}
	}

	replayed, events := ReplayMatch(initial, inputs, 120, &cfg)
	assert.Equal(t, s.ComputeHash(), replayed.ComputeHash())
	assert.Equal(t, len(live), len(events))
	assert.Equal(t, uint32(0), initial.Tick, "initial state untouched")
}

func TestSortEvents(t *testing.T) {
	p1, p2 := PlayerID{1}, PlayerID{2}
	events := []Event{
		NewEvent(2, RuneCollected{Player: p1}),
		NewEvent(1, MatchEnded{}),
		NewEvent(1, AbilityUsed{Player: p2}),
		NewEvent(1, AbilityUsed{Player: p1}),
		NewEvent(1, PlayerEliminated{Victim: p2}),
		NewEvent(1, RuneSpawned{RuneID: 9}),
	}
	SortEvents(events)

	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name()
	}
	assert.Equal(t, []string{
		"player_eliminated", "ability_used", "ability_used",
		"match_ended", "rune_spawned", "rune_collected",
	}, names)
	assert.Equal(t, p1, *events[1].PlayerID)
	assert.Equal(t, p2, *events[2].PlayerID)
	// nil player ids keep discovery order
	assert.IsType(t, MatchEnded{}, events[3].Data)
}

func TestArenaMapLayout(t *testing.T) {
	m := DefaultArenaMap()
	assert.Len(t, m.Hubs(), 9)
	assert.Len(t, m.Corridors(), 24)
	assert.Len(t, m.SpawnZones(), 16)

	for _, z := range m.SpawnZones() {
		assert.True(t, z.Center.IsInArena(), "zone %d", z.ID)
	}
	_, ok := m.SpawnZone(16)
	assert.False(t, ok)

	radius := FormSpark.Radius()
	assert.True(t, m.ContainsPlayer(fixed.Vec2Zero, radius, nil, false))
	// the gap between the central hub and the east hub is not walkable
	assert.False(t, m.ContainsPlayer(fixed.VecFromInts(20, 20), radius, nil, false))

	zone, _ := m.SpawnZone(4)
	id := zone.ID
	assert.True(t, m.ContainsPlayer(zone.Center, radius, &id, true))
	assert.False(t, m.ContainsPlayer(zone.Center, radius, &id, false))
}

func TestRandomRunePositionIsWalkable(t *testing.T) {
	m := DefaultArenaMap()
	r := NewRng(31337)
	for i := 0; i < 500; i++ {
		pos := m.RandomRunePosition(r, 60, 30, 0)
		require.True(t, pos.IsInArena())
		assert.True(t, m.ContainsPlayer(pos, 0, nil, false), "rune %d at %s", i, pos)
	}
	assert.Equal(t, fixed.Vec2Zero, m.RandomRunePosition(r, 0, 0, 0))
}

func TestStateUpdateBuilder(t *testing.T) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 3, 2)
	place(s, ids[0], 35, 35)
	place(s, ids[1], -30, 0)
	r := s.SpawnRune(fixed.VecFromInts(-10, -10), RuneArcane)

	b := NewStateUpdateBuilder()
	u := b.Build(s, 100)
	assert.Len(t, u.Players, 2)
	require.Len(t, u.RunesAdded, 1)
	assert.Equal(t, r, u.RunesAdded[0].ID)
	assert.Len(t, u.Shrines, 4)
	assert.Equal(t, uint32(100), u.TimeRemaining)
	assert.Equal(t, s.ComputeHash().Hex(), u.StateHashHex)

	Tick(s, nil, cfg)
	u = b.Build(s, 100)
	assert.Empty(t, u.RunesAdded)
	assert.Empty(t, u.RunesRemoved)
	require.Len(t, u.Shrines, 1, "only the channeled shrine changed")
	require.NotNil(t, u.Shrines[0].Controller)
	assert.Equal(t, ids[0], *u.Shrines[0].Controller)

	s.Rune(r).Collected = true
	u = b.Build(s, 100)
	assert.Equal(t, []uint32{r}, u.RunesRemoved)
}
