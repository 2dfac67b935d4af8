package game

import (
	"errors"
	"fmt"
	"sort"

	"runeRelicServer/crypto"
	"runeRelicServer/fixed"
)

// ====================================================================
// MATCH PHASE
// ====================================================================

type PhaseKind uint8

const (
	PhaseWaiting PhaseKind = iota
	PhaseCountdown
	PhasePlaying
	PhaseEnded
)

// MatchPhase carries the remaining countdown ticks when Kind is PhaseCountdown.
type MatchPhase struct {
	Kind      PhaseKind
	Countdown uint32
}

func (p MatchPhase) String() string {
	switch p.Kind {
	case PhaseWaiting:
		return "waiting"
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

func Countdown(ticks uint32) MatchPhase {
	return MatchPhase{Kind: PhaseCountdown, Countdown: ticks}
}

var (
	ErrDuplicatePlayer = errors.New("player already in match")
	ErrMatchStarted    = errors.New("match already started")
)

// ====================================================================
// MATCH STATE
// ====================================================================

// MatchState is the single aggregate a tick mutates. Every collection is
// kept in ascending key order and iterated that way.
type MatchState struct {
	MatchID       MatchID
	Tick          uint32
	Phase         MatchPhase
	RngSeed       uint64
	Rng           *Rng
	NextRuneID    uint32
	AliveCount    uint32
	NextPlacement uint8
	ArenaShrink   fixed.Fixed
	Shrines       []*ShrineState
	Abilities     []ActiveAbility
	Map           *ArenaMap

	players       []*PlayerState // sorted by id
	runes         []*RuneState   // sorted by id
	pendingEvents []Event
}

func NewMatchState(matchID MatchID, seed uint64) *MatchState {
	return &MatchState{
		MatchID: matchID,
		Phase:   MatchPhase{Kind: PhaseWaiting},
		RngSeed: seed,
		Rng:     NewRng(seed),
		Map:     DefaultArenaMap(),
	}
}

// AddPlayer spawns a player at a random arena position drawn from the match RNG.
// Players must be added in ascending id order for the spawn draws to be reproducible.
func (s *MatchState) AddPlayer(id PlayerID) (*PlayerState, error) {
	if s.Phase.Kind == PhasePlaying || s.Phase.Kind == PhaseEnded {
		return nil, ErrMatchStarted
	}
	i := s.playerIndex(id)
	if i < len(s.players) && s.players[i].ID == id {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, id)
	}

	p := NewPlayerState(id, s.Rng.RandomPosition())
	s.players = append(s.players, nil)
	copy(s.players[i+1:], s.players[i:])
	s.players[i] = p
	s.AliveCount++
	return p, nil
}

// restorePlayer inserts an already-built player without touching the RNG.
func (s *MatchState) restorePlayer(p *PlayerState) error {
	i := s.playerIndex(p.ID)
	if i < len(s.players) && s.players[i].ID == p.ID {
		return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
	}
	s.players = append(s.players, nil)
	copy(s.players[i+1:], s.players[i:])
	s.players[i] = p
	if p.Alive {
		s.AliveCount++
	}
	return nil
}

func (s *MatchState) playerIndex(id PlayerID) int {
	return sort.Search(len(s.players), func(i int) bool {
		return s.players[i].ID.Compare(id) >= 0
	})
}

// Player returns nil when id is not in the match.
func (s *MatchState) Player(id PlayerID) *PlayerState {
	i := s.playerIndex(id)
	if i < len(s.players) && s.players[i].ID == id {
		return s.players[i]
	}
	return nil
}

// Players is sorted by id. Callers must not reorder it.
func (s *MatchState) Players() []*PlayerState {
	return s.players
}

func (s *MatchState) PlayerIDs() []PlayerID {
	ids := make([]PlayerID, len(s.players))
	for i, p := range s.players {
		ids[i] = p.ID
	}
	return ids
}

// SpawnRune assigns the next id. Ids are monotonic so the slice stays sorted.
func (s *MatchState) SpawnRune(pos fixed.Vec2, t RuneType) uint32 {
	id := s.NextRuneID
	s.NextRuneID++
	if n := len(s.runes); n > 0 && s.runes[n-1].ID >= id {
		panic(fmt.Sprintf("rune id %d collides with existing id %d", id, s.runes[n-1].ID))
	}
	s.runes = append(s.runes, &RuneState{ID: id, Position: pos, Type: t})
	return id
}

func (s *MatchState) Rune(id uint32) *RuneState {
	i := sort.Search(len(s.runes), func(i int) bool {
		return s.runes[i].ID >= id
	})
	if i < len(s.runes) && s.runes[i].ID == id {
		return s.runes[i]
	}
	return nil
}

// Runes is sorted by id, collected runes included until cleanup.
func (s *MatchState) Runes() []*RuneState {
	return s.runes
}

func (s *MatchState) UncollectedRuneCount() uint32 {
	var n uint32
	for _, r := range s.runes {
		if !r.Collected {
			n++
		}
	}
	return n
}

// CleanupCollectedRunes drops runes collected at least maxAge ticks ago.
func (s *MatchState) CleanupCollectedRunes(maxAge uint32) {
	kept := s.runes[:0]
	for _, r := range s.runes {
		if r.Collected && s.Tick-r.CollectedTick >= maxAge {
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(s.runes); i++ {
		s.runes[i] = nil
	}
	s.runes = kept
}

// CurrentArenaBounds shrinks linearly to half size as ArenaShrink reaches One.
func (s *MatchState) CurrentArenaBounds() (halfWidth, halfHeight fixed.Fixed) {
	factor := fixed.One - (s.ArenaShrink >> 1)
	return fixed.Mul(fixed.ArenaHalfWidth, factor), fixed.Mul(fixed.ArenaHalfHeight, factor)
}

func (s *MatchState) IsInBounds(pos fixed.Vec2) bool {
	hw, hh := s.CurrentArenaBounds()
	return pos.X >= -hw && pos.X <= hw && pos.Y >= -hh && pos.Y <= hh
}

// nextEliminationPlacement is the placement the next victim will receive.
func (s *MatchState) nextEliminationPlacement() uint8 {
	n := uint8(len(s.players))
	if s.NextPlacement >= n {
		return 0
	}
	return n - s.NextPlacement
}

// EliminatePlayer is a no-op for a dead or unknown victim and returns false.
// The killer is credited with a kill and kill score.
func (s *MatchState) EliminatePlayer(victimID PlayerID, killerID *PlayerID) bool {
	victim := s.Player(victimID)
	if victim == nil || !victim.Alive {
		return false
	}

	victim.Alive = false
	victim.Placement = s.nextEliminationPlacement()
	victim.EliminatedTick = s.Tick
	if killerID != nil {
		by := *killerID
		victim.EliminatedBy = &by
	}
	victim.Velocity = fixed.Vec2Zero
	victim.DashVelocity = nil
	s.AliveCount--
	s.NextPlacement++

	if killerID == nil {
		return true
	}
	killer := s.Player(*killerID)
	if killer == nil {
		return true
	}
	killer.Kills++
	points := uint32(fixed.ScorePerKill)
	if killer.HasShrineBuff(ShrinePower) {
		points *= 2
	}
	oldForm := killer.Form
	if killer.AddScore(points) {
		s.PushEvent(NewEvent(s.Tick, FormEvolved{Player: killer.ID, OldForm: oldForm, NewForm: killer.Form}))
	}
	return true
}

// Placement is one row of the final standings.
type Placement struct {
	PlayerID  PlayerID `json:"playerId"`
	Placement uint8    `json:"placement"`
	Score     uint32   `json:"score"`
}

// Placements is sorted by placement, then id. Unplaced players (0) sort first.
func (s *MatchState) Placements() []Placement {
	out := make([]Placement, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, Placement{PlayerID: p.ID, Placement: p.Placement, Score: p.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Placement < out[j].Placement
	})
	return out
}

func (s *MatchState) IsEnded() bool {
	return s.Phase.Kind == PhaseEnded
}

func (s *MatchState) PushEvent(e Event) {
	s.pendingEvents = append(s.pendingEvents, e)
}

// TakeEvents drains the pending list.
func (s *MatchState) TakeEvents() []Event {
	events := s.pendingEvents
	s.pendingEvents = nil
	return events
}

// consumeMultiplier is 1.5 while the player owns an active Consume field.
func (s *MatchState) consumeMultiplier(id PlayerID) fixed.Fixed {
	for _, a := range s.Abilities {
		if a.Type == AbilityConsume && a.SourcePlayer == id {
			return a.Radius
		}
	}
	return fixed.One
}

// ComputeHash commits to every piece of simulation state in a fixed order.
func (s *MatchState) ComputeHash() crypto.Hash {
	return crypto.ComputeStateHash(s.Tick, s.RngSeed, func(h *crypto.StateHasher) {
		for _, p := range s.players {
			p.hashInto(h)
		}
		for _, r := range s.runes {
			h.UpdateU32(r.ID)
			h.UpdateVec2(r.Position)
			h.UpdateU8(uint8(r.Type))
			h.UpdateBool(r.Collected)
		}
		for _, sh := range s.Shrines {
			h.UpdateU8(sh.ID)
			h.UpdateBool(sh.Active)
			h.UpdateFixed(sh.ChannelProgress)
			h.UpdateFixed(sh.Cooldown)
		}
		for _, a := range s.Abilities {
			h.UpdateU8(uint8(a.Type))
			h.UpdateVec2(a.Position)
			h.UpdateU32(a.RemainingTicks)
		}
		h.UpdateFixed(s.ArenaShrink)
		h.UpdateU32(s.AliveCount)
	})
}

// Clone deep-copies the state, including the RNG.
func (s *MatchState) Clone() *MatchState {
	c := *s
	rng := *s.Rng
	c.Rng = &rng
	c.players = make([]*PlayerState, len(s.players))
	for i, p := range s.players {
		c.players[i] = p.Clone()
	}
	c.runes = make([]*RuneState, len(s.runes))
	for i, r := range s.runes {
		rc := *r
		c.runes[i] = &rc
	}
	c.Shrines = make([]*ShrineState, len(s.Shrines))
	for i, sh := range s.Shrines {
		shc := *sh
		c.Shrines[i] = &shc
	}
	c.Abilities = append([]ActiveAbility(nil), s.Abilities...)
	c.pendingEvents = append([]Event(nil), s.pendingEvents...)
	return &c
}
