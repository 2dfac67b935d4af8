package game

import (
	"fmt"

	"runeRelicServer/fixed"
)

// InitialPlayer is the per-player part of the replay starting point.
type InitialPlayer struct {
	ID       PlayerID   `json:"id"`
	Position fixed.Vec2 `json:"position"`
	Form     Form       `json:"form"`
}

// InitialPlayers lists every player in id order.
func (s *MatchState) InitialPlayers() []InitialPlayer {
	out := make([]InitialPlayer, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, InitialPlayer{ID: p.ID, Position: p.Position, Form: p.Form})
	}
	return out
}

// RestoreMatchState rebuilds the state a match had when it entered Playing:
// players at their spawn positions, the RNG at the recorded state, shrines placed.
func RestoreMatchState(matchID MatchID, seed uint64, rngState [2]uint64, players []InitialPlayer) (*MatchState, error) {
	s := NewMatchState(matchID, seed)
	s.Rng.SetState(rngState)
	for _, ip := range players {
		if ip.Form > FormAncient {
			return nil, fmt.Errorf("player %s: invalid form %d", ip.ID, ip.Form)
		}
		p := NewPlayerState(ip.ID, ip.Position)
		p.Form = ip.Form
		if err := s.restorePlayer(p); err != nil {
			return nil, err
		}
	}
	StartPlaying(s)
	return s, nil
}
