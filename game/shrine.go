package game

import "runeRelicServer/fixed"

// ShrineConfig tunes channeling.
type ShrineConfig struct {
	// ChannelRate is added per tick; 219 completes in exactly 300 ticks.
	ChannelRate  fixed.Fixed `yaml:"channel_rate" json:"channelRate"`
	BuffDuration uint32      `yaml:"buff_duration" json:"buffDuration"`
}

func DefaultShrineConfig() ShrineConfig {
	return ShrineConfig{
		ChannelRate:  (fixed.One + ShrineChannelTicks - 1) / ShrineChannelTicks,
		BuffDuration: 1800,
	}
}

const (
	shrineSpeedMult  fixed.Fixed = 78643 // 1.2
	shrineShieldMult fixed.Fixed = fixed.Half
)

// spawnShrines places the four corner shrines in id order.
func spawnShrines(s *MatchState) {
	layout := []struct {
		pos fixed.Vec2
		t   ShrineType
	}{
		{fixed.V(shrineCorner, shrineCorner), ShrineWisdom},
		{fixed.V(-shrineCorner, shrineCorner), ShrinePower},
		{fixed.V(-shrineCorner, -shrineCorner), ShrineSpeed},
		{fixed.V(shrineCorner, -shrineCorner), ShrineShield},
	}
	s.Shrines = s.Shrines[:0]
	for i, l := range layout {
		s.Shrines = append(s.Shrines, NewShrineState(uint8(i), l.pos, l.t))
	}
}

// processShrines advances channeling on active shrines and cools down the rest.
// Occupancy is decided from positions at the start of the step; cooldowns tick
// before this tick's completions are applied.
func processShrines(s *MatchState, cfg *ShrineConfig) {
	type completion struct {
		shrine *ShrineState
		player PlayerID
	}
	type update struct {
		shrine   *ShrineState
		channel  *PlayerID
		progress fixed.Fixed
	}
	var completions []completion
	var updates []update

	for _, sh := range s.Shrines {
		if !sh.Active {
			continue
		}

		var occupant *PlayerID
		for _, p := range s.players {
			if !p.Alive {
				continue
			}
			if CirclesOverlap(p.Position, p.Radius(), sh.Position, ShrineRadius) {
				occupant = ptrID(p.ID)
				break
			}
		}

		current := sh.ChannelingPlayer
		switch {
		case current == nil && occupant != nil:
			updates = append(updates, update{sh, occupant, cfg.ChannelRate})
			s.PushEvent(NewEvent(s.Tick, ShrineChannelStarted{Player: *occupant, ShrineID: sh.ID}))

		case current != nil && occupant != nil && *current == *occupant:
			progress := fixed.SaturatingAdd(sh.ChannelProgress, cfg.ChannelRate)
			if progress >= fixed.One {
				completions = append(completions, completion{sh, *current})
				s.PushEvent(NewEvent(s.Tick, ShrineActivated{Player: *current, ShrineID: sh.ID}))
			} else {
				updates = append(updates, update{sh, current, progress})
			}

		case current != nil && occupant == nil:
			updates = append(updates, update{sh, nil, 0})
			s.PushEvent(NewEvent(s.Tick, ShrineChannelInterrupted{Player: *current, ShrineID: sh.ID}))

		case current != nil && occupant != nil:
			updates = append(updates, update{sh, occupant, cfg.ChannelRate})
			s.PushEvent(NewEvent(s.Tick, ShrineChannelInterrupted{Player: *current, ShrineID: sh.ID}))
			s.PushEvent(NewEvent(s.Tick, ShrineChannelStarted{Player: *occupant, ShrineID: sh.ID}))
		}
	}

	for _, sh := range s.Shrines {
		if !sh.Active && sh.Cooldown > 0 {
			sh.Cooldown = fixed.SaturatingSub(sh.Cooldown, fixed.One)
			if sh.Cooldown <= 0 {
				sh.Active = true
			}
		}
	}

	for _, u := range updates {
		u.shrine.ChannelingPlayer = u.channel
		u.shrine.ChannelProgress = u.progress
	}
	for _, c := range completions {
		c.shrine.Active = false
		c.shrine.Cooldown = fixed.Fixed(ShrineCooldownTicks) * fixed.One
		c.shrine.ChannelingPlayer = nil
		c.shrine.ChannelProgress = 0
		if p := s.Player(c.player); p != nil {
			p.AddShrineBuff(c.shrine.Type, cfg.BuffDuration)
		}
	}
}

func ShrineAt(s *MatchState, id uint8) *ShrineState {
	for _, sh := range s.Shrines {
		if sh.ID == id {
			return sh
		}
	}
	return nil
}
