package proof

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"runeRelicServer/crypto"
	"runeRelicServer/fixed"
	"runeRelicServer/game"
)

// maxDecodedSize bounds decompression of untrusted uploads.
const maxDecodedSize = 64 << 20

// configSize is the encoded size of a MatchConfig.
const configSize = 14 * 4

var (
	codecOnce sync.Once
	codecErr  error
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
)

func initCodec() error {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	})
	return codecErr
}

// Encode serializes t to its compressed binary form.
func Encode(t *Transcript) ([]byte, error) {
	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("failed to init zstd: %w", err)
	}
	return encoder.EncodeAll(t.rawBytes(), nil), nil
}

// Decode parses the output of Encode.
func Decode(data []byte) (*Transcript, error) {
	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("failed to init zstd: %w", err)
	}
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return decodeRaw(raw)
}

/* =========================
   BINARY LAYOUT
========================= */

type writer struct {
	buf bytes.Buffer
	tmp [8]byte
}

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.tmp[:4], v)
	w.buf.Write(w.tmp[:4])
}

func (w *writer) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.tmp[:8], v)
	w.buf.Write(w.tmp[:8])
}

func (w *writer) fixed(v fixed.Fixed) { w.u32(uint32(v)) }
func (w *writer) id(v [16]byte)       { w.buf.Write(v[:]) }
func (w *writer) hash(v crypto.Hash)  { w.buf.Write(v[:]) }

func (w *writer) optID(v *game.PlayerID) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.id(*v)
}

func (w *writer) config(c game.MatchConfig) {
	r := c.RuneSpawn
	for _, v := range []uint32{
		r.InitialSpawnCount, r.SpawnInterval, r.SpawnCount, r.MaxRunes,
		r.WeightHubs, r.WeightCorridors, r.WeightSpawns, r.CleanupAge,
	} {
		w.u32(v)
	}
	w.fixed(c.Shrine.ChannelRate)
	w.u32(c.Shrine.BuffDuration)
	w.u32(c.ShrinkStartTick)
	w.fixed(c.ShrinkRate)
	w.fixed(c.ZoneDamageRate)
	w.u32(c.DurationTicks)
}

// rawBytes is the uncompressed little-endian body. Every slice is prefixed
// with a u32 count.
func (t *Transcript) rawBytes() []byte {
	w := &writer{}
	w.u8(t.Version)

	m := t.Metadata
	w.id(m.MatchID)
	w.hash(m.BlockHash)
	w.u32(uint32(len(m.PlayerIDs)))
	for _, id := range m.PlayerIDs {
		w.id(id)
	}
	w.u64(m.RngSeed)
	w.u64(m.StartTimestamp)
	w.hash(m.ConfigHash)
	w.config(m.Config)

	is := t.InitialState
	w.u32(uint32(len(is.Players)))
	for _, p := range is.Players {
		w.id(p.ID)
		w.fixed(p.Position.X)
		w.fixed(p.Position.Y)
		w.u8(uint8(p.Form))
	}
	w.u64(is.RngState[0])
	w.u64(is.RngState[1])
	w.hash(is.StateHash)

	w.u32(uint32(len(t.PlayerInputs)))
	for _, r := range t.PlayerInputs {
		w.id(r.PlayerID)
		w.u32(uint32(len(r.Deltas)))
		for _, d := range r.Deltas {
			w.u32(d.Tick)
			w.u8(uint8(d.Frame.MoveX))
			w.u8(uint8(d.Frame.MoveY))
			w.u8(d.Frame.Flags)
			w.u8(0)
		}
		w.u32(r.InputCount)
	}

	w.u32(uint32(len(t.Checkpoints)))
	for _, c := range t.Checkpoints {
		w.u32(c.Tick)
		w.hash(c.StateHash)
		w.u64(c.RngState[0])
		w.u64(c.RngState[1])
	}

	if t.Result == nil {
		w.u8(0)
	} else {
		w.u8(1)
		r := t.Result
		w.u32(r.EndTick)
		w.optID(r.Winner)
		w.u32(uint32(len(r.Placements)))
		for _, p := range r.Placements {
			w.id(p.PlayerID)
			w.u8(p.Placement)
			w.u32(p.Score)
		}
		w.hash(r.FinalStateHash)
	}

	w.u32(uint32(len(t.Events)))
	for _, e := range t.Events {
		w.buf.Write(e.bytes())
	}
	return w.buf.Bytes()
}

// bytes is the canonical encoding of one event, also used as its Merkle leaf.
func (e TranscriptEvent) bytes() []byte {
	w := &writer{}
	w.u8(uint8(e.Kind))
	w.u32(e.Tick)
	w.id(e.Player)
	w.optID(e.Killer)
	w.u32(e.Value)
	w.u32(e.Points)
	return w.buf.Bytes()
}

type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.b)-r.off < n {
		r.err = fmt.Errorf("%w: unexpected end of data at offset %d", ErrDeserialization, r.off)
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) fixed() fixed.Fixed { return fixed.Fixed(int32(r.u32())) }

func (r *reader) id() (out [16]byte) {
	copy(out[:], r.take(16))
	return out
}

func (r *reader) hash() (out crypto.Hash) {
	copy(out[:], r.take(32))
	return out
}

func (r *reader) optID() *game.PlayerID {
	switch r.u8() {
	case 0:
		return nil
	case 1:
		id := game.PlayerID(r.id())
		return &id
	}
	if r.err == nil {
		r.err = fmt.Errorf("%w: bad option tag at offset %d", ErrDeserialization, r.off-1)
	}
	return nil
}

// count reads a slice length and rejects lengths the remaining data cannot hold.
func (r *reader) count(minElem int) int {
	n := int(r.u32())
	if r.err == nil && n*minElem > len(r.b)-r.off {
		r.err = fmt.Errorf("%w: count %d exceeds remaining data", ErrDeserialization, n)
		return 0
	}
	return n
}

func (r *reader) config() game.MatchConfig {
	var c game.MatchConfig
	rs := &c.RuneSpawn
	for _, p := range []*uint32{
		&rs.InitialSpawnCount, &rs.SpawnInterval, &rs.SpawnCount, &rs.MaxRunes,
		&rs.WeightHubs, &rs.WeightCorridors, &rs.WeightSpawns, &rs.CleanupAge,
	} {
		*p = r.u32()
	}
	c.Shrine.ChannelRate = r.fixed()
	c.Shrine.BuffDuration = r.u32()
	c.ShrinkStartTick = r.u32()
	c.ShrinkRate = r.fixed()
	c.ZoneDamageRate = r.fixed()
	c.DurationTicks = r.u32()
	return c
}

func decodeRaw(raw []byte) (*Transcript, error) {
	r := &reader{b: raw}
	t := &Transcript{Version: r.u8()}
	if r.err != nil {
		return nil, r.err
	}
	if t.Version != TranscriptVersion {
		return nil, &VersionMismatchError{Expected: TranscriptVersion, Got: t.Version}
	}

	m := &t.Metadata
	m.MatchID = r.id()
	m.BlockHash = r.hash()
	m.PlayerIDs = make([]game.PlayerID, r.count(16))
	for i := range m.PlayerIDs {
		m.PlayerIDs[i] = r.id()
	}
	m.RngSeed = r.u64()
	m.StartTimestamp = r.u64()
	m.ConfigHash = r.hash()
	m.Config = r.config()

	is := &t.InitialState
	is.Players = make([]game.InitialPlayer, r.count(25))
	for i := range is.Players {
		p := &is.Players[i]
		p.ID = r.id()
		p.Position.X = r.fixed()
		p.Position.Y = r.fixed()
		p.Form = game.Form(r.u8())
	}
	is.RngState[0] = r.u64()
	is.RngState[1] = r.u64()
	is.StateHash = r.hash()

	t.PlayerInputs = make([]PlayerInputRecord, r.count(24))
	for i := range t.PlayerInputs {
		rec := &t.PlayerInputs[i]
		rec.PlayerID = r.id()
		rec.Deltas = make([]game.InputDelta, r.count(game.InputDeltaSize))
		for j := range rec.Deltas {
			d := &rec.Deltas[j]
			d.Tick = r.u32()
			d.Frame.MoveX = int8(r.u8())
			d.Frame.MoveY = int8(r.u8())
			d.Frame.Flags = r.u8()
			r.u8()
		}
		rec.InputCount = r.u32()
	}

	t.Checkpoints = make([]Checkpoint, r.count(52))
	for i := range t.Checkpoints {
		c := &t.Checkpoints[i]
		c.Tick = r.u32()
		c.StateHash = r.hash()
		c.RngState[0] = r.u64()
		c.RngState[1] = r.u64()
	}

	if r.u8() == 1 {
		res := &MatchResult{}
		res.EndTick = r.u32()
		res.Winner = r.optID()
		res.Placements = make([]PlacementRecord, r.count(21))
		for i := range res.Placements {
			p := &res.Placements[i]
			p.PlayerID = r.id()
			p.Placement = r.u8()
			p.Score = r.u32()
		}
		res.FinalStateHash = r.hash()
		t.Result = res
	}

	t.Events = make([]TranscriptEvent, r.count(30))
	for i := range t.Events {
		e := &t.Events[i]
		e.Kind = EventKind(r.u8())
		e.Tick = r.u32()
		e.Player = r.id()
		e.Killer = r.optID()
		e.Value = r.u32()
		e.Points = r.u32()
	}

	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(raw) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDeserialization, len(raw)-r.off)
	}
	return t, nil
}
