package game

import "runeRelicServer/fixed"

// ====================================================================
// RUNES
// ====================================================================

type RuneType uint8

const (
	RuneWisdom RuneType = iota
	RunePower
	RuneSpeed
	RuneShield
	RuneArcane
	RuneChaos
)

var runeNames = [...]string{"wisdom", "power", "speed", "shield", "arcane", "chaos"}
var runeValues = [...]uint32{10, 15, 12, 8, 25, 50}

func (t RuneType) String() string {
	if int(t) < len(runeNames) {
		return runeNames[t]
	}
	return "unknown"
}

// Value is the base score for collecting the rune.
func (t RuneType) Value() uint32 {
	if int(t) < len(runeValues) {
		return runeValues[t]
	}
	return 0
}

func RuneTypeFromIndex(i uint8) (RuneType, bool) {
	if i > uint8(RuneChaos) {
		return 0, false
	}
	return RuneType(i), true
}

const RuneRadius fixed.Fixed = 19660 // 0.3

type RuneState struct {
	ID            uint32
	Position      fixed.Vec2
	Type          RuneType
	Collected     bool
	CollectedTick uint32
	CollectedBy   *PlayerID
}

func (r *RuneState) Value() uint32 {
	return r.Type.Value()
}

// ====================================================================
// SHRINES
// ====================================================================

type ShrineType uint8

const (
	ShrineWisdom ShrineType = iota // doubles rune points
	ShrinePower                    // doubles kill score
	ShrineSpeed                    // 1.2x movement
	ShrineShield                   // halves zone damage, wins equal-tier ties
)

var shrineNames = [...]string{"wisdom", "power", "speed", "shield"}

func (t ShrineType) String() string {
	if int(t) < len(shrineNames) {
		return shrineNames[t]
	}
	return "unknown"
}

const (
	ShrineRadius         fixed.Fixed = 3 * fixed.One
	ShrineChannelTicks               = 300
	ShrineCooldownTicks              = 3600
	shrineCorner         fixed.Fixed = 35 * fixed.One
)

type ShrineState struct {
	ID               uint8
	Position         fixed.Vec2
	Type             ShrineType
	Active           bool
	ChannelingPlayer *PlayerID
	ChannelProgress  fixed.Fixed
	Cooldown         fixed.Fixed
}

func NewShrineState(id uint8, pos fixed.Vec2, t ShrineType) *ShrineState {
	return &ShrineState{ID: id, Position: pos, Type: t, Active: true}
}

// ====================================================================
// ABILITY EFFECTS
// ====================================================================

type AbilityType uint8

const (
	AbilityDash AbilityType = iota
	AbilityPhaseShift
	AbilityRepel
	AbilityGravityWell
	AbilityConsume
)

var abilityNames = [...]string{"dash", "phase_shift", "repel", "gravity_well", "consume"}

func (t AbilityType) String() string {
	if int(t) < len(abilityNames) {
		return abilityNames[t]
	}
	return "unknown"
}

// ActiveAbility is a field effect that lives for a fixed number of ticks.
// For Consume, Radius holds the elimination radius multiplier.
type ActiveAbility struct {
	Type           AbilityType
	SourcePlayer   PlayerID
	Position       fixed.Vec2
	RemainingTicks uint32
	Radius         fixed.Fixed
}
