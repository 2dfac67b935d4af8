package game

import "runeRelicServer/fixed"

// Per-tier cooldowns in ticks.
var AbilityCooldowns = [5]uint32{180, 300, 360, 420, 480}

const (
	dashSpeed         fixed.Fixed = 15 * fixed.One
	phaseShiftTicks               = 20
	repelRadius       fixed.Fixed = 5 * fixed.One
	repelForce        fixed.Fixed = 8 * fixed.One
	gravityWellRadius fixed.Fixed = 7 * fixed.One
	gravityWellTicks              = 180
	gravityWellSlow   fixed.Fixed = fixed.Half
	consumeTicks                  = 60
	consumeRadiusMult fixed.Fixed = fixed.One + fixed.Half
)

// AbilityForForm maps each tier to its ability.
func AbilityForForm(f Form) AbilityType {
	switch f {
	case FormSpark:
		return AbilityDash
	case FormGlyph:
		return AbilityPhaseShift
	case FormWard:
		return AbilityRepel
	case FormArcane:
		return AbilityGravityWell
	default:
		return AbilityConsume
	}
}

// ActivateAbility fires the player's tier ability and starts its cooldown.
// It returns false when the player is unknown, dead, or still cooling down.
func ActivateAbility(s *MatchState, id PlayerID) (Event, bool) {
	p := s.Player(id)
	if p == nil || !p.Alive || !p.AbilityReady() {
		return Event{}, false
	}

	ability := AbilityForForm(p.Form)
	switch ability {
	case AbilityDash:
		dir := fixed.Vec2Right
		if p.Velocity.LengthSquared() > 0 {
			dir = p.Velocity.Normalize()
		}
		dash := dir.Scale(dashSpeed)
		p.DashVelocity = &dash
	case AbilityPhaseShift:
		p.InvulnerableTicks = phaseShiftTicks
	case AbilityRepel:
		activateRepel(s, p)
	case AbilityGravityWell:
		s.Abilities = append(s.Abilities, ActiveAbility{
			Type:           AbilityGravityWell,
			SourcePlayer:   id,
			Position:       p.Position,
			RemainingTicks: gravityWellTicks,
			Radius:         gravityWellRadius,
		})
	case AbilityConsume:
		s.Abilities = append(s.Abilities, ActiveAbility{
			Type:           AbilityConsume,
			SourcePlayer:   id,
			Position:       p.Position,
			RemainingTicks: consumeTicks,
			Radius:         consumeRadiusMult,
		})
	}

	p.AbilityCooldown = fixed.Fixed(AbilityCooldowns[p.Form]) * fixed.One
	return NewEvent(s.Tick, AbilityUsed{Player: id, Ability: ability}), true
}

// activateRepel pushes every other living player within range directly away.
func activateRepel(s *MatchState, src *PlayerState) {
	radiusSq := fixed.Mul(repelRadius, repelRadius)
	for _, other := range s.players {
		if other.ID == src.ID || !other.Alive {
			continue
		}
		if src.Position.DistanceSquared(other.Position) >= radiusSq {
			continue
		}
		diff := other.Position.Sub(src.Position)
		if diff.LengthSquared() > 0 {
			other.Velocity = other.Velocity.Add(diff.Normalize().Scale(repelForce))
		}
	}
}

// processActiveAbilities applies gravity wells, then ages every effect.
func processActiveAbilities(s *MatchState) {
	for _, a := range s.Abilities {
		if a.Type != AbilityGravityWell {
			continue
		}
		radiusSq := fixed.Mul(a.Radius, a.Radius)
		for _, p := range s.players {
			if p.ID == a.SourcePlayer || !p.Alive {
				continue
			}
			if a.Position.DistanceSquared(p.Position) < radiusSq {
				p.Velocity = p.Velocity.Scale(gravityWellSlow)
			}
		}
	}

	kept := s.Abilities[:0]
	for _, a := range s.Abilities {
		if a.RemainingTicks > 0 {
			a.RemainingTicks--
		}
		if a.RemainingTicks > 0 {
			kept = append(kept, a)
		}
	}
	s.Abilities = kept
}
