package proof

import (
	"encoding/binary"
	"fmt"

	"runeRelicServer/crypto"
)

const (
	PublicInputCount = 66
	PublicInputSize  = PublicInputCount * 4
)

// PublicInputs is the fixed-size transcript summary handed to a proof system.
// Every element is below the M31 prime. Hashes and ids are folded lossily.
type PublicInputs struct {
	MatchID          [4]uint32 `json:"matchId"`
	BlockHash        [8]uint32 `json:"blockHash"`
	PlayerCount      uint32    `json:"playerCount"`
	DurationTicks    uint32    `json:"durationTicks"`
	WinnerID         [4]uint32 `json:"winnerId"`
	PlacementsRoot   [8]uint32 `json:"placementsRoot"`
	InputsRoot       [8]uint32 `json:"inputsRoot"`
	InitialStateHash [8]uint32 `json:"initialStateHash"`
	FinalStateHash   [8]uint32 `json:"finalStateHash"`
	CheckpointsRoot  [8]uint32 `json:"checkpointsRoot"`
	EventsRoot       [8]uint32 `json:"eventsRoot"`
}

// PublicInputsFromTranscript summarizes t. Result-derived fields are zero
// while the transcript is incomplete.
func PublicInputsFromTranscript(t *Transcript) PublicInputs {
	pi := PublicInputs{
		MatchID:          crypto.IDToM31(t.Metadata.MatchID),
		BlockHash:        crypto.HashToM31(t.Metadata.BlockHash),
		PlayerCount:      uint32(t.PlayerCount()),
		InputsRoot:       crypto.HashToM31(InputsRoot(t)),
		InitialStateHash: crypto.HashToM31(t.InitialState.StateHash),
		CheckpointsRoot:  crypto.HashToM31(CheckpointsRoot(t)),
		EventsRoot:       crypto.HashToM31(EventsRoot(t)),
	}
	if r := t.Result; r != nil {
		pi.DurationTicks = r.EndTick
		if r.Winner != nil {
			pi.WinnerID = crypto.IDToM31(*r.Winner)
		}
		pi.PlacementsRoot = crypto.HashToM31(PlacementsRoot(r))
		pi.FinalStateHash = crypto.HashToM31(r.FinalStateHash)
	}
	return pi
}

/* =========================
   MERKLE LEAVES
========================= */

// PlacementsRoot commits to id ‖ placement ‖ score per row.
func PlacementsRoot(r *MatchResult) crypto.Hash {
	leaves := make([][]byte, 0, len(r.Placements))
	for _, p := range r.Placements {
		b := make([]byte, 0, 21)
		b = append(b, p.PlayerID[:]...)
		b = append(b, p.Placement)
		b = binary.LittleEndian.AppendUint32(b, p.Score)
		leaves = append(leaves, b)
	}
	return MerkleRoot(leaves)
}

// InputsRoot has one leaf per player: id followed by every delta.
func InputsRoot(t *Transcript) crypto.Hash {
	leaves := make([][]byte, 0, len(t.PlayerInputs))
	for _, r := range t.PlayerInputs {
		b := make([]byte, 0, 16+len(r.Deltas)*7)
		b = append(b, r.PlayerID[:]...)
		for _, d := range r.Deltas {
			b = binary.LittleEndian.AppendUint32(b, d.Tick)
			b = append(b, byte(d.Frame.MoveX), byte(d.Frame.MoveY), d.Frame.Flags)
		}
		leaves = append(leaves, b)
	}
	return MerkleRoot(leaves)
}

func CheckpointsRoot(t *Transcript) crypto.Hash {
	leaves := make([][]byte, 0, len(t.Checkpoints))
	for _, c := range t.Checkpoints {
		b := make([]byte, 0, 52)
		b = binary.LittleEndian.AppendUint32(b, c.Tick)
		b = append(b, c.StateHash[:]...)
		b = binary.LittleEndian.AppendUint64(b, c.RngState[0])
		b = binary.LittleEndian.AppendUint64(b, c.RngState[1])
		leaves = append(leaves, b)
	}
	return MerkleRoot(leaves)
}

func EventsRoot(t *Transcript) crypto.Hash {
	leaves := make([][]byte, 0, len(t.Events))
	for _, e := range t.Events {
		leaves = append(leaves, e.bytes())
	}
	return MerkleRoot(leaves)
}

/* =========================
   ENCODING
========================= */

// Elements flattens the inputs in field order.
func (pi PublicInputs) Elements() [PublicInputCount]uint32 {
	var out [PublicInputCount]uint32
	i := 0
	put := func(vs ...uint32) {
		i += copy(out[i:], vs)
	}
	put(pi.MatchID[:]...)
	put(pi.BlockHash[:]...)
	put(pi.PlayerCount, pi.DurationTicks)
	put(pi.WinnerID[:]...)
	put(pi.PlacementsRoot[:]...)
	put(pi.InputsRoot[:]...)
	put(pi.InitialStateHash[:]...)
	put(pi.FinalStateHash[:]...)
	put(pi.CheckpointsRoot[:]...)
	put(pi.EventsRoot[:]...)
	return out
}

func PublicInputsFromElements(e [PublicInputCount]uint32) PublicInputs {
	var pi PublicInputs
	i := 0
	take := func(dst []uint32) {
		i += copy(dst, e[i:])
	}
	take(pi.MatchID[:])
	take(pi.BlockHash[:])
	pi.PlayerCount, pi.DurationTicks = e[i], e[i+1]
	i += 2
	take(pi.WinnerID[:])
	take(pi.PlacementsRoot[:])
	take(pi.InputsRoot[:])
	take(pi.InitialStateHash[:])
	take(pi.FinalStateHash[:])
	take(pi.CheckpointsRoot[:])
	take(pi.EventsRoot[:])
	return pi
}

// Bytes is the 264-byte little-endian serialization.
func (pi PublicInputs) Bytes() []byte {
	out := make([]byte, 0, PublicInputSize)
	for _, v := range pi.Elements() {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func PublicInputsFromBytes(b []byte) (PublicInputs, error) {
	if len(b) != PublicInputSize {
		return PublicInputs{}, fmt.Errorf("public inputs must be %d bytes, got %d", PublicInputSize, len(b))
	}
	var e [PublicInputCount]uint32
	for i := range e {
		e[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return PublicInputsFromElements(e), nil
}
