package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeRelicServer/fixed"
)

func TestTickDeterminism(t *testing.T) {
	cfg := DefaultMatchConfig()
	s1, ids := newTestMatch(t, 12345, 4)
	s2, _ := newTestMatch(t, 12345, 4)

	for i := 0; i < 600; i++ {
		frames := make(map[PlayerID]InputFrame)
		for j, id := range ids {
			f := InputWithMovement(int8(50-j*30), int8((i/40)%3*40-40))
			if i%97 == j {
				f.SetAbility(true)
			}
			frames[id] = f
		}
		in := NewTickInputs(frames)
		r1 := Tick(s1, in, &cfg)
		r2 := Tick(s2, in, &cfg)
		require.Equal(t, s1.ComputeHash(), s2.ComputeHash(), "tick %d", s1.Tick)
		require.Equal(t, len(r1.Events), len(r2.Events))
		if r1.MatchEnded {
			break
		}
	}
	assert.Equal(t, s1.Placements(), s2.Placements())
}

func TestSpawnPositionsReproducible(t *testing.T) {
	spawn := func() []fixed.Vec2 {
		s := NewMatchState(MatchID{}, 12345)
		var out []fixed.Vec2
		for i := byte(1); i <= 4; i++ {
			p, err := s.AddPlayer(PlayerID{i})
			require.NoError(t, err)
			out = append(out, p.Position)
		}
		return out
	}

	first, second := spawn(), spawn()
	assert.Equal(t, first, second)

	r := NewRng(12345)
	for i, pos := range first {
		assert.Equal(t, r.RandomPosition(), pos, "player %d", i)
		assert.True(t, pos.IsInArena())
	}
}

func TestIdlePlayerDoesNotDrift(t *testing.T) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 1, 2)
	place(s, ids[0], -20, 0)
	place(s, ids[1], 20, 0)
	s.Player(ids[0]).Velocity = fixed.VecFromInts(3, -2)
	start := s.Player(ids[0]).Position

	in := TickInputs{{PlayerID: ids[0], Frame: IdleInput()}}
	for i := 0; i < 10; i++ {
		Tick(s, in, cfg)
	}
	assert.Equal(t, start, s.Player(ids[0]).Position)
	assert.Equal(t, fixed.Vec2Zero, s.Player(ids[0]).Velocity)
}

func TestDiagonalMovementIsNormalized(t *testing.T) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 1, 2)
	place(s, ids[0], 0, 0)
	place(s, ids[1], 30, 30)

	Tick(s, TickInputs{{PlayerID: ids[0], Frame: InputWithMovement(127, 127)}}, cfg)
	diag := s.Player(ids[0]).Position

	s2, ids2 := newTestMatch(t, 1, 2)
	place(s2, ids2[0], 0, 0)
	place(s2, ids2[1], 30, 30)
	Tick(s2, TickInputs{{PlayerID: ids2[0], Frame: InputWithMovement(127, 0)}}, cfg)
	axis := s2.Player(ids2[0]).Position

	assert.Equal(t, diag.X, diag.Y)
	assert.Less(t, diag.X, axis.X)
	assert.Greater(t, diag.X, axis.X/2)
}

func channelSetup(t *testing.T) (*MatchState, []PlayerID, *MatchConfig) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 3, 2)
	place(s, ids[0], 35, 35)
	place(s, ids[1], -10, 0)
	return s, ids, cfg
}

func TestShrineChannelCompletes(t *testing.T) {
	s, ids, cfg := channelSetup(t)
	shrine := ShrineAt(s, 0)
	require.Equal(t, ShrineWisdom, shrine.Type)

	events := idleTicks(s, cfg, ShrineChannelTicks-1)
	require.Len(t, eventsOf[ShrineChannelStarted](events), 1)
	assert.Empty(t, eventsOf[ShrineActivated](events))
	assert.Equal(t, fixed.Fixed(ShrineChannelTicks-1)*cfg.Shrine.ChannelRate, shrine.ChannelProgress)
	assert.False(t, s.Player(ids[0]).HasShrineBuff(ShrineWisdom))

	events = idleTicks(s, cfg, 1)
	require.Len(t, eventsOf[ShrineActivated](events), 1)
	assert.True(t, s.Player(ids[0]).HasShrineBuff(ShrineWisdom))
	assert.Len(t, s.Player(ids[0]).ShrineBuffs, 1)
	assert.False(t, shrine.Active)
	assert.Nil(t, shrine.ChannelingPlayer)
	assert.Equal(t, fixed.Fixed(ShrineCooldownTicks)*fixed.One, shrine.Cooldown)

	events = idleTicks(s, cfg, 10)
	assert.Empty(t, eventsOf[ShrineActivated](events))
	assert.Empty(t, eventsOf[ShrineChannelStarted](events))
	assert.Equal(t, fixed.Fixed(ShrineCooldownTicks-10)*fixed.One, shrine.Cooldown)
}

func TestShrineChannelInterrupted(t *testing.T) {
	s, ids, cfg := channelSetup(t)
	shrine := ShrineAt(s, 0)

	idleTicks(s, cfg, ShrineChannelTicks-1)
	place(s, ids[0], 0, 10)
	events := idleTicks(s, cfg, 1)

	interrupted := eventsOf[ShrineChannelInterrupted](events)
	require.Len(t, interrupted, 1)
	assert.Equal(t, ids[0], interrupted[0].Player)
	assert.Equal(t, fixed.Fixed(0), shrine.ChannelProgress)
	assert.Nil(t, shrine.ChannelingPlayer)
	assert.True(t, shrine.Active)
	assert.Empty(t, s.Player(ids[0]).ShrineBuffs)
}

func TestShrineChannelCountsOccupancyNotStillness(t *testing.T) {
	s, ids, cfg := channelSetup(t)
	shrine := ShrineAt(s, 0)
	p := s.Player(ids[0])

	drift := TickInputs{{PlayerID: ids[0], Frame: InputWithMovement(40, 0)}}
	var activated []ShrineActivated
	for i := 0; i < ShrineChannelTicks; i++ {
		// keeps walking but never leaves the shrine circle
		place(s, ids[0], 35, 35)
		activated = append(activated, eventsOf[ShrineActivated](Tick(s, drift, cfg).Events)...)
		require.NotEqual(t, fixed.Vec2Zero, p.Velocity)
	}
	require.Len(t, activated, 1)
	assert.Equal(t, ids[0], activated[0].Player)
	assert.False(t, shrine.Active)
}

func TestShrineChannelSwitches(t *testing.T) {
	s, ids, cfg := channelSetup(t)
	shrine := ShrineAt(s, 0)

	idleTicks(s, cfg, 50)
	// the channeler leaves as someone else steps in
	place(s, ids[1], 35, 33)
	place(s, ids[0], 0, 10)
	events := idleTicks(s, cfg, 1)

	assert.Len(t, eventsOf[ShrineChannelInterrupted](events), 1)
	started := eventsOf[ShrineChannelStarted](events)
	require.Len(t, started, 1)
	assert.Equal(t, ids[1], started[0].Player)
	require.NotNil(t, shrine.ChannelingPlayer)
	assert.Equal(t, ids[1], *shrine.ChannelingPlayer)
	assert.Equal(t, cfg.Shrine.ChannelRate, shrine.ChannelProgress)
}

func TestEqualTierLowerIDSurvives(t *testing.T) {
	for _, flip := range []bool{false, true} {
		cfg := quietConfig()
		s, ids := newTestMatch(t, 9, 3)
		place(s, ids[2], -30, -30)
		if flip {
			place(s, ids[0], 1, 0)
			place(s, ids[1], 0, 0)
		} else {
			place(s, ids[0], 0, 0)
			place(s, ids[1], 1, 0)
		}

		res := Tick(s, nil, cfg)
		elim := eventsOf[PlayerEliminated](res.Events)
		require.Len(t, elim, 1, "flip=%v", flip)
		assert.Equal(t, ids[1], elim[0].Victim)
		require.NotNil(t, elim[0].Killer)
		assert.Equal(t, ids[0], *elim[0].Killer)
		assert.Equal(t, uint8(3), elim[0].Placement)

		winner := s.Player(ids[0])
		assert.Equal(t, uint32(1), winner.Kills)
		assert.Equal(t, uint32(fixed.ScorePerKill), winner.Score)
		assert.Equal(t, FormGlyph, winner.Form)
		assert.Len(t, eventsOf[FormEvolved](res.Events), 1)
	}
}

func TestResolvePlayerCollision(t *testing.T) {
	a := NewPlayerState(PlayerID{1}, fixed.VecFromInts(0, 0))
	b := NewPlayerState(PlayerID{2}, fixed.VecFromInts(0, 0))
	resolve := func(x, y *PlayerState) (PlayerCollision, bool) {
		return ResolvePlayerCollision(x, x.Radius(), y, y.Radius())
	}

	t.Run("higher tier wins regardless of id", func(t *testing.T) {
		b.Form = FormWard
		defer func() { b.Form = FormSpark }()
		for _, order := range [][2]*PlayerState{{a, b}, {b, a}} {
			c, ok := resolve(order[0], order[1])
			require.True(t, ok)
			assert.Equal(t, b.ID, c.Winner)
			assert.Equal(t, a.ID, c.Loser)
		}
	})

	t.Run("shield breaks equal tiers", func(t *testing.T) {
		b.ShieldBuffTicks = 10
		defer func() { b.ShieldBuffTicks = 0 }()
		c, ok := resolve(a, b)
		require.True(t, ok)
		assert.Equal(t, b.ID, c.Winner)
	})

	t.Run("shield shrine counts as shield", func(t *testing.T) {
		b.AddShrineBuff(ShrineShield, 10)
		defer func() { b.ShrineBuffs = nil }()
		c, ok := resolve(b, a)
		require.True(t, ok)
		assert.Equal(t, b.ID, c.Winner)
	})

	t.Run("invulnerable never collides", func(t *testing.T) {
		a.InvulnerableTicks = 1
		defer func() { a.InvulnerableTicks = 0 }()
		_, ok := resolve(a, b)
		assert.False(t, ok)
	})

	t.Run("apart never collides", func(t *testing.T) {
		far := NewPlayerState(PlayerID{3}, fixed.VecFromInts(2, 0))
		_, ok := resolve(a, far)
		assert.False(t, ok)
		touching := NewPlayerState(PlayerID{3}, fixed.VecFromInts(1, 0))
		_, ok = resolve(a, touching)
		assert.True(t, ok)
	})
}

func TestConsumeExtendsReach(t *testing.T) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 4, 3)
	place(s, ids[2], -30, -30)
	// Ancient radius 2.0 plus Spark 0.5 reaches 2.5; consume stretches to 3.5
	hunter := s.Player(ids[1])
	hunter.Form = FormAncient
	hunter.Score = 2000
	place(s, ids[1], 0, 0)
	place(s, ids[0], 3, 0)

	f := IdleInput()
	f.SetAbility(true)
	res := Tick(s, TickInputs{{PlayerID: ids[1], Frame: f}}, cfg)
	require.Len(t, eventsOf[AbilityUsed](res.Events), 1)
	elim := eventsOf[PlayerEliminated](res.Events)
	require.Len(t, elim, 1)
	assert.Equal(t, ids[0], elim[0].Victim)
}

func TestDashAbility(t *testing.T) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 5, 2)
	place(s, ids[0], 0, 0)
	place(s, ids[1], 0, 30)

	f := IdleInput()
	f.SetAbility(true)
	res := Tick(s, TickInputs{{PlayerID: ids[0], Frame: f}}, cfg)

	used := eventsOf[AbilityUsed](res.Events)
	require.Len(t, used, 1)
	assert.Equal(t, AbilityDash, used[0].Ability)

	p := s.Player(ids[0])
	assert.Equal(t, fixed.Mul(15*fixed.One, fixed.TickDuration), p.Position.X)
	assert.Nil(t, p.DashVelocity)
	assert.Equal(t, fixed.Fixed(AbilityCooldowns[FormSpark]-1)*fixed.One, p.AbilityCooldown)

	// cooling down: the flag is ignored
	res = Tick(s, TickInputs{{PlayerID: ids[0], Frame: f}}, cfg)
	assert.Empty(t, eventsOf[AbilityUsed](res.Events))
}

func TestGravityWellSlowsOthers(t *testing.T) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 6, 2)
	caster := s.Player(ids[0])
	caster.Form = FormArcane
	caster.Score = 700
	place(s, ids[0], 0, 0)
	place(s, ids[1], 5, 0)

	f := IdleInput()
	f.SetAbility(true)
	Tick(s, TickInputs{
		{PlayerID: ids[0], Frame: f},
		{PlayerID: ids[1], Frame: InputWithMovement(127, 0)},
	}, cfg)

	require.Len(t, s.Abilities, 1)
	assert.Equal(t, uint32(gravityWellTicks-1), s.Abilities[0].RemainingTicks)
	victim := s.Player(ids[1])
	// speed 6.0 after friction 0.95, then halved by the well
	want := fixed.Mul(fixed.Mul(6*fixed.One, friction), gravityWellSlow)
	assert.Equal(t, want, victim.Velocity.X)
}

func TestForfeitFlagEliminates(t *testing.T) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 7, 3)
	place(s, ids[0], -20, 0)
	place(s, ids[1], 0, 0)
	place(s, ids[2], 20, 0)

	f := IdleInput()
	f.SetForfeit(true)
	res := Tick(s, TickInputs{{PlayerID: ids[1], Frame: f}}, cfg)

	elim := eventsOf[PlayerEliminated](res.Events)
	require.Len(t, elim, 1)
	assert.Equal(t, ids[1], elim[0].Victim)
	assert.Nil(t, elim[0].Killer)
	assert.False(t, s.Player(ids[1]).Alive)
	assert.Equal(t, uint32(2), s.AliveCount)
}

func TestZoneDamage(t *testing.T) {
	cfg := quietConfig()

	t.Run("damage scales with distance", func(t *testing.T) {
		s, ids := newTestMatch(t, 8, 2)
		s.ArenaShrink = fixed.One
		place(s, ids[0], 30, 0)
		place(s, ids[1], 0, 0)

		processZoneDamage(s, cfg)
		assert.Equal(t, fixed.One-6551, s.Player(ids[0]).Health)
		assert.Equal(t, fixed.One, s.Player(ids[1]).Health)
	})

	t.Run("shield halves damage", func(t *testing.T) {
		s, ids := newTestMatch(t, 8, 2)
		s.ArenaShrink = fixed.One
		place(s, ids[0], 30, 0)
		s.Player(ids[0]).ShieldBuffTicks = 5

		processZoneDamage(s, cfg)
		assert.Equal(t, fixed.One-3275, s.Player(ids[0]).Health)
	})

	t.Run("regeneration caps at max", func(t *testing.T) {
		s, ids := newTestMatch(t, 8, 2)
		place(s, ids[0], 0, 0)
		s.Player(ids[0]).Health = fixed.One - 100

		processZoneDamage(s, cfg)
		assert.Equal(t, fixed.One, s.Player(ids[0]).Health)
	})

	t.Run("zero health eliminates without killer", func(t *testing.T) {
		s, ids := newTestMatch(t, 8, 3)
		s.ArenaShrink = fixed.One
		place(s, ids[0], 30, 0)
		s.Player(ids[0]).Health = 1

		processZoneDamage(s, cfg)
		events := s.TakeEvents()
		elim := eventsOf[PlayerEliminated](events)
		require.Len(t, elim, 1)
		assert.Nil(t, elim[0].Killer)
		assert.Equal(t, uint8(3), elim[0].Placement)
		assert.Equal(t, uint8(3), s.Player(ids[0]).Placement)
	})
}

func TestArenaShrinks(t *testing.T) {
	cfg := quietConfig()
	cfg.ShrinkStartTick = 2
	s, ids := newTestMatch(t, 10, 2)
	place(s, ids[0], -20, 0)
	place(s, ids[1], 20, 0)

	idleTicks(s, cfg, 1)
	assert.Equal(t, fixed.Fixed(0), s.ArenaShrink)
	idleTicks(s, cfg, 3)
	assert.Equal(t, 3*cfg.ShrinkRate, s.ArenaShrink)

	s.ArenaShrink = fixed.One - 1
	idleTicks(s, cfg, 1)
	assert.Equal(t, fixed.One, s.ArenaShrink)
	hw, hh := s.CurrentArenaBounds()
	assert.Equal(t, fixed.ArenaHalfWidth/2, hw)
	assert.Equal(t, fixed.ArenaHalfHeight/2, hh)
}

func TestMatchEndPlacements(t *testing.T) {
	cfg := quietConfig()
	cfg.DurationTicks = 5
	s, ids := newTestMatch(t, 11, 3)
	place(s, ids[0], -30, 0)
	place(s, ids[1], 0, 0)
	place(s, ids[2], 30, 0)
	s.Player(ids[0]).Score = 10
	s.Player(ids[1]).Score = 30
	s.Player(ids[2]).Score = 30

	var last TickResult
	for i := 0; i < 5; i++ {
		last = Tick(s, nil, cfg)
	}
	require.True(t, last.MatchEnded)
	require.NotNil(t, last.Winner)
	// equal scores: the higher id ranks first
	assert.Equal(t, ids[2], *last.Winner)
	assert.Equal(t, uint8(1), s.Player(ids[2]).Placement)
	assert.Equal(t, uint8(2), s.Player(ids[1]).Placement)
	assert.Equal(t, uint8(3), s.Player(ids[0]).Placement)

	ended := eventsOf[MatchEnded](last.Events)
	require.Len(t, ended, 1)
	assert.Equal(t, uint32(5), ended[0].DurationTicks)

	// terminal phase
	res := Tick(s, nil, cfg)
	assert.True(t, res.MatchEnded)
	assert.Equal(t, uint32(5), s.Tick)
}

func TestCountdownSpawnsShrines(t *testing.T) {
	cfg := quietConfig()
	s := NewMatchState(MatchID{1}, 1)
	_, err := s.AddPlayer(PlayerID{1})
	require.NoError(t, err)

	Tick(s, nil, cfg)
	assert.Equal(t, uint32(0), s.Tick, "waiting is a no-op")

	s.Phase = Countdown(2)
	Tick(s, nil, cfg)
	Tick(s, nil, cfg)
	assert.Equal(t, PhaseCountdown, s.Phase.Kind)
	assert.Empty(t, s.Shrines)
	Tick(s, nil, cfg)
	assert.Equal(t, PhasePlaying, s.Phase.Kind)
	assert.Len(t, s.Shrines, 4)
	assert.Equal(t, uint32(0), s.Tick)
}

func TestRuneCollection(t *testing.T) {
	cfg := quietConfig()
	s, ids := newTestMatch(t, 12, 2)
	place(s, ids[0], 0, 0)
	place(s, ids[1], 30, 0)
	s.Player(ids[0]).AddShrineBuff(ShrineWisdom, 100)

	power := s.SpawnRune(fixed.VecFromInts(0, 0), RunePower)
	speed := s.SpawnRune(fixed.V(0, fixed.Half), RuneSpeed)

	res := Tick(s, nil, cfg)
	collected := eventsOf[RuneCollected](res.Events)
	require.Len(t, collected, 2)
	assert.Equal(t, power, collected[0].RuneID)
	assert.Equal(t, uint32(30), collected[0].Points)
	assert.Equal(t, speed, collected[1].RuneID)
	assert.Equal(t, uint32(24), collected[1].Points)

	p := s.Player(ids[0])
	assert.Equal(t, uint32(54), p.Score)
	assert.Equal(t, uint32(2), p.RunesCollected)
	assert.Equal(t, uint32(runeBuffTicks), p.SpeedBuffTicks)
	assert.True(t, s.Rune(power).Collected)
	assert.Equal(t, ids[0], *s.Rune(power).CollectedBy)
}

func TestRuneSpawnScheduler(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.RuneSpawn.InitialSpawnCount = 20
	cfg.RuneSpawn.SpawnCount = 5
	cfg.RuneSpawn.SpawnInterval = 10
	cfg.RuneSpawn.MaxRunes = 27
	cfg.RuneSpawn.CleanupAge = 0

	s, ids := newTestMatch(t, 13, 3)
	place(s, ids[0], -50, -50)
	place(s, ids[1], 50, -50)
	place(s, ids[2], 0, 50)

	res := Tick(s, nil, &cfg)
	assert.Empty(t, eventsOf[RuneSpawned](res.Events), "initial burst is silent")
	assert.Len(t, s.Runes(), 20)

	events := idleTicks(s, &cfg, 9)
	assert.Len(t, eventsOf[RuneSpawned](events), 5)

	idleTicks(s, &cfg, 10)
	assert.LessOrEqual(t, s.UncollectedRuneCount(), uint32(27))
	runes := s.Runes()
	for i, r := range runes {
		assert.True(t, r.Position.IsInArena())
		if i > 0 {
			assert.Less(t, runes[i-1].ID, r.ID)
		}
	}
}
