package game

import "runeRelicServer/fixed"

// CirclesOverlap treats touching circles as overlapping.
func CirclesOverlap(posA fixed.Vec2, radiusA fixed.Fixed, posB fixed.Vec2, radiusB fixed.Fixed) bool {
	combined := radiusA + radiusB
	return posA.DistanceSquared(posB) <= fixed.Mul(combined, combined)
}

// PlayerCollision names the survivor and the victim of an overlap.
type PlayerCollision struct {
	Winner PlayerID
	Loser  PlayerID
}

// ResolvePlayerCollision decides an overlap between two players.
// Higher tier wins; equal tiers go to the shielded player; otherwise the
// lower id survives. Radii are the effective radii, Consume included.
func ResolvePlayerCollision(a *PlayerState, radiusA fixed.Fixed, b *PlayerState, radiusB fixed.Fixed) (PlayerCollision, bool) {
	if !a.Alive || !b.Alive {
		return PlayerCollision{}, false
	}
	if a.InvulnerableTicks > 0 || b.InvulnerableTicks > 0 {
		return PlayerCollision{}, false
	}
	if !CirclesOverlap(a.Position, radiusA, b.Position, radiusB) {
		return PlayerCollision{}, false
	}

	aWins := false
	switch {
	case a.Form != b.Form:
		aWins = a.Form > b.Form
	case a.HasShield() != b.HasShield():
		aWins = a.HasShield()
	default:
		aWins = a.ID.Less(b.ID)
	}
	if aWins {
		return PlayerCollision{Winner: a.ID, Loser: b.ID}, true
	}
	return PlayerCollision{Winner: b.ID, Loser: a.ID}, true
}

// processPlayerCollisions walks sorted pairs i<j and resolves each overlap
// immediately, so a player eliminated earlier in the pass cannot collide again.
func processPlayerCollisions(s *MatchState) {
	players := s.players
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			a, b := players[i], players[j]
			if !a.Alive {
				break
			}
			ra := fixed.Mul(a.Radius(), s.consumeMultiplier(a.ID))
			rb := fixed.Mul(b.Radius(), s.consumeMultiplier(b.ID))
			c, ok := ResolvePlayerCollision(a, ra, b, rb)
			if !ok {
				continue
			}

			placement := s.nextEliminationPlacement()
			winner := c.Winner
			if s.EliminatePlayer(c.Loser, &winner) {
				s.PushEvent(NewEvent(s.Tick, PlayerEliminated{
					Victim:    c.Loser,
					Killer:    &winner,
					Placement: placement,
				}))
			}
		}
	}
}

type runeCollision struct {
	player *PlayerState
	rune   *RuneState
}

// processRuneCollisions snapshots every overlap first, then applies them in
// player-then-rune id order. A rune goes to the first player in that order.
func processRuneCollisions(s *MatchState) {
	var hits []runeCollision
	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		for _, r := range s.runes {
			if r.Collected {
				continue
			}
			if CirclesOverlap(p.Position, p.Radius(), r.Position, RuneRadius) {
				hits = append(hits, runeCollision{player: p, rune: r})
			}
		}
	}
	for _, h := range hits {
		collectRune(s, h.player, h.rune)
	}
}
