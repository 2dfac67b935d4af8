package game

import (
	"sort"

	"runeRelicServer/fixed"
)

const (
	speedBuffMult fixed.Fixed = 91750 // 1.4
	friction      fixed.Fixed = fixed.One - 3276
	healthRegen   fixed.Fixed = 328
	zoneDistRate  fixed.Fixed = 655 // per unit outside the bound
)

// TickResult is what one tick hands back to the driver.
type TickResult struct {
	Events     []Event
	MatchEnded bool
	Winner     *PlayerID
}

// Tick advances the match by one step. It is a pure function of state,
// inputs and config: no clock, no I/O, no goroutines. Players without an
// entry in inputs get idle input.
func Tick(s *MatchState, inputs TickInputs, cfg *MatchConfig) TickResult {
	var result TickResult

	switch s.Phase.Kind {
	case PhaseWaiting:
		return result
	case PhaseCountdown:
		if s.Phase.Countdown == 0 {
			s.Phase = MatchPhase{Kind: PhasePlaying}
			spawnShrines(s)
		} else {
			s.Phase.Countdown--
		}
		return result
	case PhaseEnded:
		result.MatchEnded = true
		return result
	}

	if !inputs.isSorted() {
		sorted := append(TickInputs(nil), inputs...)
		sorted.Sort()
		inputs = sorted
	}

	s.Tick++

	applyInputs(s, inputs)
	updatePhysics(s)
	updateArenaShrink(s, cfg)
	processPlayerCollisions(s)
	processRuneCollisions(s)
	processZoneDamage(s, cfg)
	maybeSpawnRunes(s, &cfg.RuneSpawn)
	processShrines(s, &cfg.Shrine)
	processActiveAbilities(s)
	checkEndConditions(s, cfg, &result)

	result.Events = s.TakeEvents()
	SortEvents(result.Events)
	return result
}

// StartPlaying skips the countdown. Used by tests and replays that snapshot
// the state after shrines are placed.
func StartPlaying(s *MatchState) {
	s.Phase = MatchPhase{Kind: PhasePlaying}
	spawnShrines(s)
}

func applyInputs(s *MatchState, inputs TickInputs) {
	var activations []PlayerID

	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		in := inputs.Get(p.ID)

		if in.Forfeit() {
			forfeit(s, p.ID)
			continue
		}

		dir := in.MoveDirection()
		lenSq := dir.LengthSquared()
		switch {
		case lenSq > fixed.One:
			p.Velocity = dir.Normalize().Scale(p.Speed())
		case lenSq > 0:
			p.Velocity = dir.Scale(p.Speed())
		default:
			p.Velocity = fixed.Vec2Zero
		}

		if in.JumpPressed() && p.CanJump(s.Tick) {
			p.Velocity.Y += fixed.JumpVelocity
			p.LastJumpTick = s.Tick
		}

		if in.AbilityPressed() && p.AbilityReady() {
			activations = append(activations, p.ID)
		}
	}

	for _, id := range activations {
		if e, ok := ActivateAbility(s, id); ok {
			s.PushEvent(e)
		}
	}
}

func forfeit(s *MatchState, id PlayerID) {
	placement := s.nextEliminationPlacement()
	if s.EliminatePlayer(id, nil) {
		s.PushEvent(NewEvent(s.Tick, PlayerEliminated{Victim: id, Placement: placement}))
	}
}

func updatePhysics(s *MatchState) {
	hw, hh := s.CurrentArenaBounds()

	for _, p := range s.players {
		if !p.Alive {
			continue
		}

		v := p.Velocity
		if p.SpeedBuffTicks > 0 {
			v = v.Scale(speedBuffMult)
		}
		if p.HasShrineBuff(ShrineSpeed) {
			v = v.Scale(shrineSpeedMult)
		}
		if p.DashVelocity != nil {
			v = v.Add(*p.DashVelocity)
			p.DashVelocity = nil
		}

		p.Position = p.Position.Add(v.Scale(fixed.TickDuration))
		p.Position.X = fixed.Min(fixed.Max(p.Position.X, -hw), hw)
		p.Position.Y = fixed.Min(fixed.Max(p.Position.Y, -hh), hh)

		if p.AbilityCooldown > 0 {
			p.AbilityCooldown = fixed.SaturatingSub(p.AbilityCooldown, fixed.One)
		}
		if p.SpeedBuffTicks > 0 {
			p.SpeedBuffTicks--
		}
		if p.ShieldBuffTicks > 0 {
			p.ShieldBuffTicks--
		}
		if p.InvulnerableTicks > 0 {
			p.InvulnerableTicks--
		}
		p.UpdateShrineBuffs()

		p.Velocity = p.Velocity.Scale(friction)
	}
}

func updateArenaShrink(s *MatchState, cfg *MatchConfig) {
	if s.Tick < cfg.ShrinkStartTick {
		return
	}
	s.ArenaShrink = fixed.Min(s.ArenaShrink+cfg.ShrinkRate, fixed.One)
}

// processZoneDamage hurts players outside the shrunk bound by a flat rate plus
// a term linear in Manhattan distance outside; inside, health regenerates.
func processZoneDamage(s *MatchState, cfg *MatchConfig) {
	hw, hh := s.CurrentArenaBounds()
	var dying []PlayerID

	for _, p := range s.players {
		if !p.Alive {
			continue
		}

		dx := outsideBy(p.Position.X, hw)
		dy := outsideBy(p.Position.Y, hh)
		if dx == 0 && dy == 0 {
			p.Health = fixed.Min(fixed.SaturatingAdd(p.Health, healthRegen), p.MaxHealth)
			continue
		}

		damage := fixed.SaturatingAdd(cfg.ZoneDamageRate, fixed.Mul(fixed.SaturatingAdd(dx, dy), zoneDistRate))
		if p.HasShield() {
			damage = fixed.Mul(damage, shrineShieldMult)
		}
		p.Health = fixed.SaturatingSub(p.Health, damage)
		if p.Health <= 0 {
			dying = append(dying, p.ID)
		}
	}

	for _, id := range dying {
		placement := s.nextEliminationPlacement()
		if s.EliminatePlayer(id, nil) {
			s.PushEvent(NewEvent(s.Tick, PlayerEliminated{Victim: id, Placement: placement}))
		}
	}
}

func outsideBy(v, bound fixed.Fixed) fixed.Fixed {
	switch {
	case v < -bound:
		return fixed.Abs(fixed.SaturatingSub(-bound, v))
	case v > bound:
		return fixed.Abs(fixed.SaturatingSub(v, bound))
	}
	return 0
}

func checkEndConditions(s *MatchState, cfg *MatchConfig, result *TickResult) {
	duration := cfg.DurationTicks
	if duration == 0 {
		duration = fixed.MatchDurationTicks
	}
	if s.Tick >= duration || s.AliveCount <= 1 {
		endMatch(s, result)
	}
}

// endMatch ranks the survivors by score, then by id, above every eliminated
// player. The best survivor is the winner; equal scores go to the higher id.
func endMatch(s *MatchState, result *TickResult) {
	s.Phase = MatchPhase{Kind: PhaseEnded}
	result.MatchEnded = true

	var alive []*PlayerState
	for _, p := range s.players {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	sort.Slice(alive, func(i, j int) bool {
		if alive[i].Score != alive[j].Score {
			return alive[i].Score > alive[j].Score
		}
		return alive[j].ID.Less(alive[i].ID)
	})
	for i, p := range alive {
		p.Placement = uint8(i + 1)
	}

	if len(alive) > 0 {
		result.Winner = ptrID(alive[0].ID)
	}
	s.PushEvent(NewEvent(s.Tick, MatchEnded{Winner: result.Winner, DurationTicks: s.Tick}))
}
