package game

import (
	"runeRelicServer/crypto"
	"runeRelicServer/fixed"
)

// ====================================================================
// EVOLUTION FORMS
// ====================================================================

// Form is the evolution tier. Higher tiers are bigger and slower.
type Form uint8

const (
	FormSpark Form = iota
	FormGlyph
	FormWard
	FormArcane
	FormAncient
)

var formNames = [...]string{"spark", "glyph", "ward", "arcane", "ancient"}

func (f Form) String() string {
	if int(f) < len(formNames) {
		return formNames[f]
	}
	return "unknown"
}

// Next returns the following tier and false at the top.
func (f Form) Next() (Form, bool) {
	if f >= FormAncient {
		return f, false
	}
	return f + 1, true
}

// CanEat is true when f strictly outranks other.
func (f Form) CanEat(other Form) bool {
	return f > other
}

func FormFromIndex(i uint8) (Form, bool) {
	if i > uint8(FormAncient) {
		return 0, false
	}
	return Form(i), true
}

func (f Form) Speed() fixed.Fixed  { return fixed.FormSpeeds[f] }
func (f Form) Radius() fixed.Fixed { return fixed.FormRadii[f] }

// ====================================================================
// PLAYER STATE
// ====================================================================

const JumpCooldownTicks = 30

// ShrineBuff is a timed shrine blessing held by a player.
type ShrineBuff struct {
	Type  ShrineType `json:"type"`
	Ticks uint32     `json:"ticks"`
}

type PlayerState struct {
	ID       PlayerID
	Position fixed.Vec2
	Velocity fixed.Vec2
	Form     Form
	Score    uint32
	Alive    bool

	Placement      uint8 // 0 until assigned
	EliminatedTick uint32
	EliminatedBy   *PlayerID

	AbilityCooldown fixed.Fixed
	LastJumpTick    uint32
	Kills           uint32
	RunesCollected  uint32

	Health    fixed.Fixed
	MaxHealth fixed.Fixed

	SpeedBuffTicks    uint32
	ShieldBuffTicks   uint32
	InvulnerableTicks uint32
	DashVelocity      *fixed.Vec2

	ShrineBuffs []ShrineBuff
}

func NewPlayerState(id PlayerID, position fixed.Vec2) *PlayerState {
	return &PlayerState{
		ID:        id,
		Position:  position,
		Form:      FormSpark,
		Alive:     true,
		Health:    fixed.One,
		MaxHealth: fixed.One,
	}
}

func (p *PlayerState) Speed() fixed.Fixed  { return p.Form.Speed() }
func (p *PlayerState) Radius() fixed.Fixed { return p.Form.Radius() }

func (p *PlayerState) CanEvolve() bool {
	if p.Form == FormAncient {
		return false
	}
	return p.Score >= fixed.ScoreToEvolve[p.Form]
}

// TryEvolve advances at most one tier.
func (p *PlayerState) TryEvolve() bool {
	next, ok := p.Form.Next()
	if !ok || !p.CanEvolve() {
		return false
	}
	p.Form = next
	return true
}

func (p *PlayerState) AbilityReady() bool {
	return p.AbilityCooldown <= 0
}

func (p *PlayerState) CanJump(tick uint32) bool {
	if tick < p.LastJumpTick {
		return false
	}
	return tick-p.LastJumpTick >= JumpCooldownTicks
}

// AddScore saturates at the u32 limit and reports whether the player evolved.
func (p *PlayerState) AddScore(amount uint32) bool {
	if p.Score > ^uint32(0)-amount {
		p.Score = ^uint32(0)
	} else {
		p.Score += amount
	}
	return p.TryEvolve()
}

func (p *PlayerState) HasShrineBuff(t ShrineType) bool {
	for _, b := range p.ShrineBuffs {
		if b.Type == t && b.Ticks > 0 {
			return true
		}
	}
	return false
}

// AddShrineBuff refreshes an existing buff of the same type.
func (p *PlayerState) AddShrineBuff(t ShrineType, duration uint32) {
	for i := range p.ShrineBuffs {
		if p.ShrineBuffs[i].Type == t {
			p.ShrineBuffs[i].Ticks = duration
			return
		}
	}
	p.ShrineBuffs = append(p.ShrineBuffs, ShrineBuff{Type: t, Ticks: duration})
}

// UpdateShrineBuffs decays every timer, then swap-removes expired entries.
// The swap order is observable in the state hash.
func (p *PlayerState) UpdateShrineBuffs() {
	for i := range p.ShrineBuffs {
		if p.ShrineBuffs[i].Ticks > 0 {
			p.ShrineBuffs[i].Ticks--
		}
	}
	i := 0
	for i < len(p.ShrineBuffs) {
		if p.ShrineBuffs[i].Ticks == 0 {
			last := len(p.ShrineBuffs) - 1
			p.ShrineBuffs[i] = p.ShrineBuffs[last]
			p.ShrineBuffs = p.ShrineBuffs[:last]
			continue
		}
		i++
	}
}

// HasShield covers both the rune buff and the shield shrine.
func (p *PlayerState) HasShield() bool {
	return p.ShieldBuffTicks > 0 || p.HasShrineBuff(ShrineShield)
}

func (p *PlayerState) hashInto(h *crypto.StateHasher) {
	h.UpdateID(p.ID)
	h.UpdateVec2(p.Position)
	h.UpdateVec2(p.Velocity)
	h.UpdateU8(uint8(p.Form))
	h.UpdateU32(p.Score)
	h.UpdateBool(p.Alive)
	h.UpdateU32(p.Kills)
	h.UpdateFixed(p.Health)
	h.UpdateU32(p.SpeedBuffTicks)
	h.UpdateU32(p.ShieldBuffTicks)
	h.UpdateU32(p.InvulnerableTicks)
	for _, b := range p.ShrineBuffs {
		h.UpdateU8(uint8(b.Type))
		h.UpdateU32(b.Ticks)
	}
}

// Clone returns a deep copy.
func (p *PlayerState) Clone() *PlayerState {
	c := *p
	if p.EliminatedBy != nil {
		by := *p.EliminatedBy
		c.EliminatedBy = &by
	}
	if p.DashVelocity != nil {
		d := *p.DashVelocity
		c.DashVelocity = &d
	}
	c.ShrineBuffs = append([]ShrineBuff(nil), p.ShrineBuffs...)
	return &c
}
