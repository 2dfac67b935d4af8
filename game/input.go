package game

import (
	"encoding/binary"
	"errors"
	"sort"

	"runeRelicServer/fixed"
)

/* =========================
   INPUT FRAME
========================= */

// moveLUT maps every int8 axis value to fixed point with integer scaling.
// Index is the byte value; -128 is the no-input sentinel and maps to zero.
var moveLUT = func() [256]fixed.Fixed {
	var lut [256]fixed.Fixed
	for i := int32(0); i < 256; i++ {
		signed := i
		if i >= 128 {
			signed = i - 256
		}
		if signed == -128 {
			continue
		}
		lut[i] = fixed.Fixed((signed * 65536) / 127)
	}
	return lut
}()

// MoveToFixed converts one movement axis.
func MoveToFixed(v int8) fixed.Fixed {
	return moveLUT[uint8(v)]
}

const (
	InputFrameSize      = 3
	NoInput        int8 = -128

	FlagJump    uint8 = 0x01
	FlagAbility uint8 = 0x02
	// FlagForfeit is set by the session driver once a disconnected player
	// runs out of reconnect time. It eliminates the player inside the tick.
	FlagForfeit uint8 = 0x04
)

// InputFrame is one player's input for one tick.
type InputFrame struct {
	MoveX int8  `json:"moveX"`
	MoveY int8  `json:"moveY"`
	Flags uint8 `json:"flags"`
}

// IdleInput has both axes at the sentinel and no flags.
func IdleInput() InputFrame {
	return InputFrame{MoveX: NoInput, MoveY: NoInput}
}

func InputWithMovement(x, y int8) InputFrame {
	return InputFrame{MoveX: x, MoveY: y}
}

func (f InputFrame) MoveDirection() fixed.Vec2 {
	return fixed.V(MoveToFixed(f.MoveX), MoveToFixed(f.MoveY))
}

func (f InputFrame) JumpPressed() bool    { return f.Flags&FlagJump != 0 }
func (f InputFrame) AbilityPressed() bool { return f.Flags&FlagAbility != 0 }
func (f InputFrame) Forfeit() bool        { return f.Flags&FlagForfeit != 0 }

func (f InputFrame) IsIdle() bool {
	return f.MoveX == NoInput && f.MoveY == NoInput && f.Flags == 0
}

func (f InputFrame) HasMovement() bool {
	return f.MoveX != NoInput || f.MoveY != NoInput
}

func (f *InputFrame) SetJump(pressed bool) {
	f.setFlag(FlagJump, pressed)
}

func (f *InputFrame) SetAbility(pressed bool) {
	f.setFlag(FlagAbility, pressed)
}

func (f *InputFrame) SetForfeit(on bool) {
	f.setFlag(FlagForfeit, on)
}

func (f *InputFrame) setFlag(flag uint8, on bool) {
	if on {
		f.Flags |= flag
	} else {
		f.Flags &^= flag
	}
}

/* =========================
   NETWORK INPUT
========================= */

const NetworkInputSize = 8

var ErrShortInput = errors.New("network input shorter than 8 bytes")

// NetworkInput is the 8-byte wire form: tick u32 LE, frame, one pad byte.
type NetworkInput struct {
	Tick  uint32
	Frame InputFrame
}

func (n NetworkInput) Encode() [NetworkInputSize]byte {
	var b [NetworkInputSize]byte
	binary.LittleEndian.PutUint32(b[0:4], n.Tick)
	b[4] = byte(n.Frame.MoveX)
	b[5] = byte(n.Frame.MoveY)
	b[6] = n.Frame.Flags
	return b
}

// DecodeNetworkInput accepts any byte values; every frame is valid.
func DecodeNetworkInput(b []byte) (NetworkInput, error) {
	if len(b) < NetworkInputSize {
		return NetworkInput{}, ErrShortInput
	}
	return NetworkInput{
		Tick: binary.LittleEndian.Uint32(b[0:4]),
		Frame: InputFrame{
			MoveX: int8(b[4]),
			MoveY: int8(b[5]),
			Flags: b[6],
		},
	}, nil
}

/* =========================
   DELTA BUFFER
========================= */

const InputDeltaSize = 8

// InputDelta marks the tick at which a player's input changed.
type InputDelta struct {
	Tick  uint32     `json:"tick"`
	Frame InputFrame `json:"frame"`
}

// PlayerInputBuffer stores change-only input history for one player.
type PlayerInputBuffer struct {
	PlayerID  PlayerID
	MatchID   MatchID
	RngSeed   uint64
	StartTick uint32
	EndTick   uint32

	deltas    []InputDelta
	lastFrame InputFrame
}

func NewPlayerInputBuffer(playerID PlayerID, matchID MatchID, seed uint64) *PlayerInputBuffer {
	return &PlayerInputBuffer{
		PlayerID:  playerID,
		MatchID:   matchID,
		RngSeed:   seed,
		deltas:    make([]InputDelta, 0, 512),
		lastFrame: IdleInput(),
	}
}

// Record appends only when the frame differs from the previous one.
func (b *PlayerInputBuffer) Record(tick uint32, frame InputFrame) {
	b.EndTick = tick
	if frame != b.lastFrame {
		b.deltas = append(b.deltas, InputDelta{Tick: tick, Frame: frame})
		b.lastFrame = frame
	}
}

// InputAt returns the latest delta at or before tick, or idle input.
func (b *PlayerInputBuffer) InputAt(tick uint32) InputFrame {
	return InputAt(b.deltas, tick)
}

func (b *PlayerInputBuffer) Deltas() []InputDelta {
	return b.deltas
}

func (b *PlayerInputBuffer) DeltaCount() int {
	return len(b.deltas)
}

func (b *PlayerInputBuffer) EstimatedSize() int {
	return 48 + len(b.deltas)*InputDeltaSize
}

func (b *PlayerInputBuffer) Finalize(endTick uint32) {
	b.EndTick = endTick
}

// Replay calls fn for every tick from StartTick to EndTick inclusive.
func (b *PlayerInputBuffer) Replay(fn func(tick uint32, frame InputFrame)) {
	current := IdleInput()
	idx := 0
	for t := b.StartTick; t <= b.EndTick; t++ {
		for idx < len(b.deltas) && b.deltas[idx].Tick <= t {
			current = b.deltas[idx].Frame
			idx++
		}
		fn(t, current)
		if t == ^uint32(0) {
			break
		}
	}
}

// InputAt binary-searches a delta list sorted by tick.
func InputAt(deltas []InputDelta, tick uint32) InputFrame {
	i := sort.Search(len(deltas), func(i int) bool {
		return deltas[i].Tick > tick
	})
	if i == 0 {
		return IdleInput()
	}
	return deltas[i-1].Frame
}

/* =========================
   TICK INPUTS
========================= */

// PlayerInput pairs a player with its frame for one tick.
type PlayerInput struct {
	PlayerID PlayerID
	Frame    InputFrame
}

// TickInputs is kept sorted by player id.
type TickInputs []PlayerInput

// NewTickInputs builds a sorted input set from a map.
func NewTickInputs(m map[PlayerID]InputFrame) TickInputs {
	out := make(TickInputs, 0, len(m))
	for id, f := range m {
		out = append(out, PlayerInput{PlayerID: id, Frame: f})
	}
	out.Sort()
	return out
}

func (in TickInputs) isSorted() bool {
	return sort.SliceIsSorted(in, func(i, j int) bool {
		return in[i].PlayerID.Less(in[j].PlayerID)
	})
}

func (in TickInputs) Sort() {
	sort.Slice(in, func(i, j int) bool {
		return in[i].PlayerID.Less(in[j].PlayerID)
	})
}

// Get returns the frame for id, or idle input when absent.
func (in TickInputs) Get(id PlayerID) InputFrame {
	i := sort.Search(len(in), func(i int) bool {
		return in[i].PlayerID.Compare(id) >= 0
	})
	if i < len(in) && in[i].PlayerID == id {
		return in[i].Frame
	}
	return IdleInput()
}
