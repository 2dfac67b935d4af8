package game

// ReplayMatch runs tickCount playing ticks from a copy of initial, feeding
// frame t of each player's list on the t-th tick and idle input past the end.
func ReplayMatch(initial *MatchState, inputs map[PlayerID][]InputFrame, tickCount uint32, cfg *MatchConfig) (*MatchState, []Event) {
	s := initial.Clone()
	if s.Phase.Kind != PhasePlaying {
		StartPlaying(s)
	}

	ids := make([]PlayerID, 0, len(inputs))
	for id := range inputs {
		ids = append(ids, id)
	}

	var all []Event
	for t := uint32(0); t < tickCount; t++ {
		frames := make(TickInputs, 0, len(ids))
		for _, id := range ids {
			f := IdleInput()
			if list := inputs[id]; int(t) < len(list) {
				f = list[t]
			}
			frames = append(frames, PlayerInput{PlayerID: id, Frame: f})
		}
		frames.Sort()

		res := Tick(s, frames, cfg)
		all = append(all, res.Events...)
		if res.MatchEnded {
			break
		}
	}
	return s, all
}
