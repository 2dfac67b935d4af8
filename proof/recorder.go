package proof

import (
	"runeRelicServer/game"
)

// Recorder builds a transcript alongside a running match. The driver calls
// RecordInputs before each tick and AfterTick after it.
type Recorder struct {
	transcript *Transcript
	buffers    []*game.PlayerInputBuffer // sorted by player id
}

// NewRecorder snapshots s, which must have just entered Playing.
func NewRecorder(meta Metadata, s *game.MatchState) *Recorder {
	t := NewTranscript(meta)
	t.CaptureInitialState(s)

	r := &Recorder{transcript: t}
	for _, id := range s.PlayerIDs() {
		buf := game.NewPlayerInputBuffer(id, meta.MatchID, meta.RngSeed)
		buf.StartTick = s.Tick + 1
		r.buffers = append(r.buffers, buf)
	}
	return r
}

// RecordInputs stores the frames about to be applied on tick.
func (r *Recorder) RecordInputs(tick uint32, inputs game.TickInputs) {
	for _, buf := range r.buffers {
		buf.Record(tick, inputs.Get(buf.PlayerID))
	}
}

// AfterTick keeps significant events and checkpoints on the interval.
func (r *Recorder) AfterTick(s *game.MatchState, res game.TickResult) {
	r.transcript.RecordEvents(res.Events)
	if ShouldCheckpoint(s.Tick) {
		r.transcript.CheckpointState(s)
	}
}

// Finish closes the input histories and writes the result record.
func (r *Recorder) Finish(s *game.MatchState, winner *game.PlayerID) *Transcript {
	if r.transcript.IsComplete() {
		return r.transcript
	}
	for _, buf := range r.buffers {
		buf.Finalize(s.Tick)
		r.transcript.AddPlayerInputs(buf)
	}
	r.transcript.FinalizeFromState(s, winner)
	return r.transcript
}

func (r *Recorder) Transcript() *Transcript {
	return r.transcript
}

// DeltaCount sums recorded deltas across players.
func (r *Recorder) DeltaCount() int {
	n := 0
	for _, buf := range r.buffers {
		n += buf.DeltaCount()
	}
	return n
}
