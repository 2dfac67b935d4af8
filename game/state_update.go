package game

import (
	"sort"

	"runeRelicServer/crypto"
	"runeRelicServer/fixed"
)

// ====================================================================
// STATE UPDATE PAYLOAD
// ====================================================================

type BuffSnapshot struct {
	SpeedTicks        uint32       `json:"speedTicks"`
	ShieldTicks       uint32       `json:"shieldTicks"`
	InvulnerableTicks uint32       `json:"invulnerableTicks"`
	Shrine            []ShrineBuff `json:"shrine,omitempty"`
}

type PlayerSnapshot struct {
	ID              PlayerID     `json:"id"`
	Position        fixed.Vec2   `json:"position"`
	Velocity        fixed.Vec2   `json:"velocity"`
	Form            Form         `json:"form"`
	Score           uint32       `json:"score"`
	Alive           bool         `json:"alive"`
	Radius          fixed.Fixed  `json:"radius"`
	AbilityCooldown fixed.Fixed  `json:"abilityCooldown"`
	Buffs           BuffSnapshot `json:"buffs"`
}

type RuneSnapshot struct {
	ID       uint32     `json:"id"`
	Position fixed.Vec2 `json:"position"`
	Type     RuneType   `json:"type"`
}

type ShrineSnapshot struct {
	ID              uint8       `json:"id"`
	Type            ShrineType  `json:"type"`
	Position        fixed.Vec2  `json:"position"`
	Active          bool        `json:"active"`
	ChannelProgress fixed.Fixed `json:"channelProgress"`
	Controller      *PlayerID   `json:"controller,omitempty"`
}

// StateUpdate is broadcast every tick. Runes and shrines are change-only;
// the state hash lets clients detect desync.
type StateUpdate struct {
	Tick          uint32           `json:"tick"`
	TimeRemaining uint32           `json:"timeRemaining"`
	Players       []PlayerSnapshot `json:"players"`
	RunesAdded    []RuneSnapshot   `json:"runesAdded,omitempty"`
	RunesRemoved  []uint32         `json:"runesRemoved,omitempty"`
	Shrines       []ShrineSnapshot `json:"shrines,omitempty"`
	StateHash     crypto.Hash      `json:"-"`
	StateHashHex  string           `json:"stateHash"`
}

// StateUpdateBuilder remembers what the previous update carried.
type StateUpdateBuilder struct {
	knownRunes map[uint32]struct{}
	shrines    map[uint8]ShrineSnapshot
}

func NewStateUpdateBuilder() *StateUpdateBuilder {
	return &StateUpdateBuilder{
		knownRunes: make(map[uint32]struct{}),
		shrines:    make(map[uint8]ShrineSnapshot),
	}
}

// Build reads s without mutating it.
func (b *StateUpdateBuilder) Build(s *MatchState, durationTicks uint32) StateUpdate {
	hash := s.ComputeHash()
	u := StateUpdate{
		Tick:         s.Tick,
		StateHash:    hash,
		StateHashHex: hash.Hex(),
	}
	if s.Tick < durationTicks {
		u.TimeRemaining = durationTicks - s.Tick
	}

	for _, p := range s.players {
		u.Players = append(u.Players, PlayerSnapshot{
			ID:              p.ID,
			Position:        p.Position,
			Velocity:        p.Velocity,
			Form:            p.Form,
			Score:           p.Score,
			Alive:           p.Alive,
			Radius:          p.Radius(),
			AbilityCooldown: p.AbilityCooldown,
			Buffs: BuffSnapshot{
				SpeedTicks:        p.SpeedBuffTicks,
				ShieldTicks:       p.ShieldBuffTicks,
				InvulnerableTicks: p.InvulnerableTicks,
				Shrine:            append([]ShrineBuff(nil), p.ShrineBuffs...),
			},
		})
	}

	live := make(map[uint32]struct{}, len(s.runes))
	for _, r := range s.runes {
		if r.Collected {
			continue
		}
		live[r.ID] = struct{}{}
		if _, ok := b.knownRunes[r.ID]; !ok {
			u.RunesAdded = append(u.RunesAdded, RuneSnapshot{ID: r.ID, Position: r.Position, Type: r.Type})
		}
	}
	for _, r := range s.runes {
		if _, was := b.knownRunes[r.ID]; was && r.Collected {
			u.RunesRemoved = append(u.RunesRemoved, r.ID)
		}
	}
	// runes garbage-collected since the last update
	for id := range b.knownRunes {
		if _, ok := live[id]; !ok && s.Rune(id) == nil {
			u.RunesRemoved = append(u.RunesRemoved, id)
		}
	}
	sort.Slice(u.RunesRemoved, func(i, j int) bool { return u.RunesRemoved[i] < u.RunesRemoved[j] })
	b.knownRunes = live

	for _, sh := range s.Shrines {
		snap := ShrineSnapshot{
			ID:              sh.ID,
			Type:            sh.Type,
			Position:        sh.Position,
			Active:          sh.Active,
			ChannelProgress: sh.ChannelProgress,
		}
		if sh.ChannelingPlayer != nil {
			snap.Controller = ptrID(*sh.ChannelingPlayer)
		}
		prev, ok := b.shrines[sh.ID]
		if !ok || !sameShrine(prev, snap) {
			u.Shrines = append(u.Shrines, snap)
			b.shrines[sh.ID] = snap
		}
	}
	return u
}

func sameShrine(a, b ShrineSnapshot) bool {
	if a.Active != b.Active || a.ChannelProgress != b.ChannelProgress {
		return false
	}
	return comparePlayerPtr(a.Controller, b.Controller) == 0
}
