package game

import (
	"errors"
	"fmt"

	"runeRelicServer/crypto"
	"runeRelicServer/fixed"
)

// Hard caps on tunables that scale replay cost. A transcript carries its own
// config, so these bound what a submitted transcript can make a verifier do.
const (
	MaxConfigRunes   = 1024
	MaxDurationTicks = 60 * 60 * 30 // 30 minutes
)

var ErrInvalidConfig = errors.New("invalid match config")

// MatchConfig is every tunable that affects simulation output. Its hash is
// recorded in the transcript, so any change yields a different match.
type MatchConfig struct {
	RuneSpawn       RuneSpawnConfig `yaml:"rune_spawn" json:"runeSpawn"`
	Shrine          ShrineConfig    `yaml:"shrine" json:"shrine"`
	ShrinkStartTick uint32          `yaml:"shrink_start_tick" json:"shrinkStartTick"`
	ShrinkRate      fixed.Fixed     `yaml:"shrink_rate" json:"shrinkRate"`
	ZoneDamageRate  fixed.Fixed     `yaml:"zone_damage_rate" json:"zoneDamageRate"`
	DurationTicks   uint32          `yaml:"duration_ticks" json:"durationTicks"`
}

func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		RuneSpawn:       DefaultRuneSpawnConfig(),
		Shrine:          DefaultShrineConfig(),
		ShrinkStartTick: 1800,
		ShrinkRate:      18,
		ZoneDamageRate:  3276,
		DurationTicks:   fixed.MatchDurationTicks,
	}
}

// Hash is SHA-256 over the little-endian encoding of every field in declaration order.
func (c MatchConfig) Hash() crypto.Hash {
	h := crypto.NewStateHasher("RUNE_RELIC_CONFIG_V1")
	r := c.RuneSpawn
	for _, v := range []uint32{
		r.InitialSpawnCount, r.SpawnInterval, r.SpawnCount, r.MaxRunes,
		r.WeightHubs, r.WeightCorridors, r.WeightSpawns, r.CleanupAge,
	} {
		h.UpdateU32(v)
	}
	h.UpdateFixed(c.Shrine.ChannelRate)
	h.UpdateU32(c.Shrine.BuffDuration)
	h.UpdateU32(c.ShrinkStartTick)
	h.UpdateFixed(c.ShrinkRate)
	h.UpdateFixed(c.ZoneDamageRate)
	h.UpdateU32(c.DurationTicks)
	return h.Finalize()
}

// Validate rejects configs a match cannot run with, and configs past the
// replay caps.
func (c MatchConfig) Validate() error {
	r := c.RuneSpawn
	switch {
	case c.DurationTicks == 0:
		return fmt.Errorf("%w: duration_ticks must be positive", ErrInvalidConfig)
	case c.DurationTicks > MaxDurationTicks:
		return fmt.Errorf("%w: duration_ticks %d exceeds %d", ErrInvalidConfig, c.DurationTicks, MaxDurationTicks)
	case r.SpawnInterval == 0:
		return fmt.Errorf("%w: spawn_interval must be positive", ErrInvalidConfig)
	case r.MaxRunes > MaxConfigRunes:
		return fmt.Errorf("%w: max_runes %d exceeds %d", ErrInvalidConfig, r.MaxRunes, MaxConfigRunes)
	case r.InitialSpawnCount > r.MaxRunes || r.SpawnCount > r.MaxRunes:
		return fmt.Errorf("%w: spawn counts must not exceed max_runes", ErrInvalidConfig)
	case uint64(r.WeightHubs)+uint64(r.WeightCorridors)+uint64(r.WeightSpawns) > 1<<31:
		return fmt.Errorf("%w: spawn weights overflow", ErrInvalidConfig)
	case r.WeightHubs+r.WeightCorridors == 0:
		return fmt.Errorf("%w: hub and corridor weights are both zero", ErrInvalidConfig)
	case c.Shrine.ChannelRate <= 0:
		return fmt.Errorf("%w: channel_rate must be positive", ErrInvalidConfig)
	case c.ShrinkRate < 0 || c.ZoneDamageRate < 0:
		return fmt.Errorf("%w: rates must not be negative", ErrInvalidConfig)
	}
	return nil
}
