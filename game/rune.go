package game

// RuneSpawnConfig controls the collectible scheduler.
type RuneSpawnConfig struct {
	InitialSpawnCount uint32 `yaml:"initial_spawn_count" json:"initialSpawnCount"`
	SpawnInterval     uint32 `yaml:"spawn_interval" json:"spawnInterval"`
	SpawnCount        uint32 `yaml:"spawn_count" json:"spawnCount"`
	MaxRunes          uint32 `yaml:"max_runes" json:"maxRunes"`
	WeightHubs        uint32 `yaml:"weight_hubs" json:"weightHubs"`
	WeightCorridors   uint32 `yaml:"weight_corridors" json:"weightCorridors"`
	WeightSpawns      uint32 `yaml:"weight_spawns" json:"weightSpawns"`
	// CleanupAge drops collected runes this many ticks after pickup. 0 keeps them.
	CleanupAge uint32 `yaml:"cleanup_age" json:"cleanupAge"`
}

func DefaultRuneSpawnConfig() RuneSpawnConfig {
	return RuneSpawnConfig{
		InitialSpawnCount: 60,
		SpawnInterval:     60,
		SpawnCount:        5,
		MaxRunes:          150,
		WeightHubs:        60,
		WeightCorridors:   30,
		WeightSpawns:      10,
		CleanupAge:        300,
	}
}

const (
	runeBuffTicks  = 300
	chaosBuffTicks = 600
	chaosBonus     = 50
)

// maybeSpawnRunes runs the initial burst on tick 1 and the periodic top-up.
func maybeSpawnRunes(s *MatchState, cfg *RuneSpawnConfig) {
	if s.Phase.Kind != PhasePlaying {
		return
	}

	if s.Tick == 1 && len(s.runes) == 0 {
		spawnRunes(s, cfg, cfg.InitialSpawnCount, false, cfg.WeightSpawns)
	}

	if cfg.SpawnInterval > 0 && s.Tick%cfg.SpawnInterval == 0 {
		spawnRunes(s, cfg, cfg.SpawnCount, true, 0)
	}

	if cfg.CleanupAge > 0 {
		s.CleanupCollectedRunes(cfg.CleanupAge)
	}
}

func spawnRunes(s *MatchState, cfg *RuneSpawnConfig, count uint32, emit bool, weightSpawns uint32) {
	uncollected := s.UncollectedRuneCount()
	if uncollected >= cfg.MaxRunes {
		return
	}
	if room := cfg.MaxRunes - uncollected; count > room {
		count = room
	}

	for i := uint32(0); i < count; i++ {
		pos := s.Map.RandomRunePosition(s.Rng, cfg.WeightHubs, cfg.WeightCorridors, weightSpawns)
		t := randomRuneType(s.Rng)
		id := s.SpawnRune(pos, t)
		if emit {
			s.PushEvent(NewEvent(s.Tick, RuneSpawned{RuneID: id, RuneType: t, Position: pos}))
		}
	}
}

func randomRuneType(rng *Rng) RuneType {
	roll := rng.NextInt(100)
	switch {
	case roll < 60:
		return RuneWisdom
	case roll < 80:
		return RunePower
	case roll < 90:
		return RuneSpeed
	case roll < 95:
		return RuneShield
	case roll < 99:
		return RuneArcane
	default:
		return RuneChaos
	}
}

// collectRune applies a pickup. Already-collected runes and dead players are no-ops.
func collectRune(s *MatchState, p *PlayerState, r *RuneState) bool {
	if r.Collected || !p.Alive {
		return false
	}

	r.Collected = true
	r.CollectedTick = s.Tick
	r.CollectedBy = ptrID(p.ID)

	points := r.Value()
	if p.HasShrineBuff(ShrineWisdom) {
		points *= 2
	}

	switch r.Type {
	case RuneSpeed:
		p.SpeedBuffTicks = runeBuffTicks
	case RuneShield:
		p.ShieldBuffTicks = runeBuffTicks
	}

	oldForm := p.Form
	p.RunesCollected++
	evolved := p.AddScore(points)

	s.PushEvent(NewEvent(s.Tick, RuneCollected{
		Player:   p.ID,
		RuneID:   r.ID,
		RuneType: r.Type,
		Points:   points,
		NewScore: p.Score,
	}))
	if evolved {
		s.PushEvent(NewEvent(s.Tick, FormEvolved{Player: p.ID, OldForm: oldForm, NewForm: p.Form}))
	}

	if r.Type == RuneChaos {
		applyChaosEffect(s, p)
	}
	return true
}

// applyChaosEffect draws one of four outcomes. The table size is part of the
// RNG stream, so adding an outcome changes every later draw.
func applyChaosEffect(s *MatchState, p *PlayerState) {
	switch s.Rng.NextInt(4) {
	case 0:
		p.SpeedBuffTicks = chaosBuffTicks
	case 1:
		p.ShieldBuffTicks = chaosBuffTicks
	case 2:
		p.AbilityCooldown = 0
	case 3:
		oldForm := p.Form
		if p.AddScore(chaosBonus) {
			s.PushEvent(NewEvent(s.Tick, FormEvolved{Player: p.ID, OldForm: oldForm, NewForm: p.Form}))
		}
	}
}
