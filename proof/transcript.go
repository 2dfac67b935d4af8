package proof

import (
	"errors"
	"fmt"

	"runeRelicServer/crypto"
	"runeRelicServer/game"
)

const (
	TranscriptVersion  uint8  = 1
	CheckpointInterval uint32 = 600
)

var (
	ErrIncomplete      = errors.New("transcript is incomplete")
	ErrDeserialization = errors.New("transcript deserialization failed")
)

// VersionMismatchError is returned when a transcript was written by another format version.
type VersionMismatchError struct {
	Expected uint8
	Got      uint8
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch: expected %d, got %d", e.Expected, e.Got)
}

/* =========================
   TRANSCRIPT RECORDS
========================= */

// Metadata identifies the match and everything its seed was derived from.
type Metadata struct {
	MatchID        game.MatchID     `json:"matchId"`
	BlockHash      crypto.Hash      `json:"blockHash"`
	PlayerIDs      []game.PlayerID  `json:"playerIds"`
	RngSeed        uint64           `json:"rngSeed"`
	StartTimestamp uint64           `json:"startTimestamp"`
	ConfigHash     crypto.Hash      `json:"configHash"`
	Config         game.MatchConfig `json:"config"`
}

type InitialState struct {
	Players   []game.InitialPlayer `json:"players"`
	RngState  [2]uint64            `json:"rngState"`
	StateHash crypto.Hash          `json:"stateHash"`
}

type PlayerInputRecord struct {
	PlayerID   game.PlayerID     `json:"playerId"`
	Deltas     []game.InputDelta `json:"deltas"`
	InputCount uint32            `json:"inputCount"`
}

type Checkpoint struct {
	Tick      uint32      `json:"tick"`
	StateHash crypto.Hash `json:"stateHash"`
	RngState  [2]uint64   `json:"rngState"`
}

type PlacementRecord struct {
	PlayerID  game.PlayerID `json:"playerId"`
	Placement uint8         `json:"placement"`
	Score     uint32        `json:"score"`
}

type MatchResult struct {
	EndTick        uint32            `json:"endTick"`
	Winner         *game.PlayerID    `json:"winner,omitempty"`
	Placements     []PlacementRecord `json:"placements"`
	FinalStateHash crypto.Hash       `json:"finalStateHash"`
}

// EventKind tags the events worth keeping in a transcript.
type EventKind uint8

const (
	EventEliminated EventKind = iota
	EventFormEvolved
	EventRuneCollected
	EventShrineActivated
)

// TranscriptEvent is the compact form of a significant game event.
// Value holds the placement, new form, rune id or shrine id by kind.
type TranscriptEvent struct {
	Kind   EventKind      `json:"kind"`
	Tick   uint32         `json:"tick"`
	Player game.PlayerID  `json:"player"`
	Killer *game.PlayerID `json:"killer,omitempty"`
	Value  uint32         `json:"value"`
	Points uint32         `json:"points,omitempty"`
}

// TranscriptEventFrom keeps eliminations, evolutions, pickups and shrine activations.
func TranscriptEventFrom(e game.Event) (TranscriptEvent, bool) {
	switch d := e.Data.(type) {
	case game.PlayerEliminated:
		te := TranscriptEvent{Kind: EventEliminated, Tick: e.Tick, Player: d.Victim, Value: uint32(d.Placement)}
		if d.Killer != nil {
			k := *d.Killer
			te.Killer = &k
		}
		return te, true
	case game.FormEvolved:
		return TranscriptEvent{Kind: EventFormEvolved, Tick: e.Tick, Player: d.Player, Value: uint32(d.NewForm)}, true
	case game.RuneCollected:
		return TranscriptEvent{Kind: EventRuneCollected, Tick: e.Tick, Player: d.Player, Value: d.RuneID, Points: d.Points}, true
	case game.ShrineActivated:
		return TranscriptEvent{Kind: EventShrineActivated, Tick: e.Tick, Player: d.Player, Value: uint32(d.ShrineID)}, true
	}
	return TranscriptEvent{}, false
}

/* =========================
   TRANSCRIPT
========================= */

// Transcript is everything needed to replay and adjudicate a match.
// It is append-only until Finalize.
type Transcript struct {
	Version      uint8               `json:"version"`
	Metadata     Metadata            `json:"metadata"`
	InitialState InitialState        `json:"initialState"`
	PlayerInputs []PlayerInputRecord `json:"playerInputs"`
	Checkpoints  []Checkpoint        `json:"checkpoints"`
	Result       *MatchResult        `json:"result,omitempty"`
	Events       []TranscriptEvent   `json:"events"`
}

func NewTranscript(meta Metadata) *Transcript {
	meta.PlayerIDs = sortedPlayers(meta.PlayerIDs)
	return &Transcript{Version: TranscriptVersion, Metadata: meta}
}

// NewMetadata fills the config hash and sorts the participants.
func NewMetadata(matchID game.MatchID, blockHash crypto.Hash, players []game.PlayerID, seed uint64, startUnix uint64, cfg game.MatchConfig) Metadata {
	return Metadata{
		MatchID:        matchID,
		BlockHash:      blockHash,
		PlayerIDs:      sortedPlayers(players),
		RngSeed:        seed,
		StartTimestamp: startUnix,
		ConfigHash:     cfg.Hash(),
		Config:         cfg,
	}
}

func sortedPlayers(ids []game.PlayerID) []game.PlayerID {
	sorted := crypto.SortIDs(game.RawIDs(ids))
	out := make([]game.PlayerID, len(sorted))
	for i, id := range sorted {
		out[i] = id
	}
	return out
}

// CaptureInitialState snapshots s, which must have just entered Playing.
func (t *Transcript) CaptureInitialState(s *game.MatchState) {
	t.InitialState = InitialState{
		Players:   s.InitialPlayers(),
		RngState:  s.Rng.State(),
		StateHash: s.ComputeHash(),
	}
}

func (t *Transcript) AddPlayerInputs(buf *game.PlayerInputBuffer) {
	var count uint32
	if buf.EndTick >= buf.StartTick {
		count = buf.EndTick - buf.StartTick + 1
	}
	t.PlayerInputs = append(t.PlayerInputs, PlayerInputRecord{
		PlayerID:   buf.PlayerID,
		Deltas:     append([]game.InputDelta(nil), buf.Deltas()...),
		InputCount: count,
	})
}

// ShouldCheckpoint is true on every CheckpointInterval-th tick.
func ShouldCheckpoint(tick uint32) bool {
	return tick > 0 && tick%CheckpointInterval == 0
}

func (t *Transcript) AddCheckpoint(tick uint32, hash crypto.Hash, rngState [2]uint64) {
	t.Checkpoints = append(t.Checkpoints, Checkpoint{Tick: tick, StateHash: hash, RngState: rngState})
}

// CheckpointState records s at its current tick.
func (t *Transcript) CheckpointState(s *game.MatchState) {
	t.AddCheckpoint(s.Tick, s.ComputeHash(), s.Rng.State())
}

// RecordEvents keeps the significant subset of events.
func (t *Transcript) RecordEvents(events []game.Event) {
	for _, e := range events {
		if te, ok := TranscriptEventFrom(e); ok {
			t.Events = append(t.Events, te)
		}
	}
}

func (t *Transcript) Finalize(result MatchResult) {
	t.Result = &result
}

// FinalizeFromState derives the result record from an ended match.
func (t *Transcript) FinalizeFromState(s *game.MatchState, winner *game.PlayerID) {
	t.Finalize(ResultFromState(s, winner))
}

func ResultFromState(s *game.MatchState, winner *game.PlayerID) MatchResult {
	r := MatchResult{EndTick: s.Tick, FinalStateHash: s.ComputeHash()}
	if winner != nil {
		w := *winner
		r.Winner = &w
	}
	for _, p := range s.Placements() {
		r.Placements = append(r.Placements, PlacementRecord{PlayerID: p.PlayerID, Placement: p.Placement, Score: p.Score})
	}
	return r
}

func (t *Transcript) IsComplete() bool {
	return t.Result != nil
}

func (t *Transcript) PlayerCount() int {
	return len(t.Metadata.PlayerIDs)
}

// InputsFor returns the recorded deltas of one player, nil when absent.
func (t *Transcript) InputsFor(id game.PlayerID) []game.InputDelta {
	for _, r := range t.PlayerInputs {
		if r.PlayerID == id {
			return r.Deltas
		}
	}
	return nil
}

// EstimatedSize approximates the uncompressed binary size.
func (t *Transcript) EstimatedSize() int {
	size := 1 + 16 + 32 + len(t.Metadata.PlayerIDs)*16 + 8 + 8 + 32 + configSize
	size += len(t.InitialState.Players)*25 + 16 + 32
	for _, r := range t.PlayerInputs {
		size += 16 + len(r.Deltas)*game.InputDeltaSize + 4
	}
	size += len(t.Checkpoints) * 52
	size += len(t.Events) * 40
	if t.Result != nil {
		size += 100
	}
	return size
}

// Digest commits to the uncompressed encoding. It is what gets anchored.
func (t *Transcript) Digest() crypto.Hash {
	return crypto.HashBytes(t.rawBytes())
}
