package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"runeRelicServer/config"
	"runeRelicServer/crypto"
	"runeRelicServer/game"
	"runeRelicServer/proof"
)

// Session owns one match from lobby to transcript. All methods are safe for
// concurrent use; Step is called from the match loop only.
type Session struct {
	mu sync.RWMutex

	ID        game.MatchID
	Phase     SessionPhase
	Config    game.MatchConfig
	CreatedAt time.Time
	StartedAt time.Time

	players map[game.PlayerID]*LobbyPlayer

	// Commit-reveal
	serverNonce [32]byte
	preimage    *proof.Preimage
	commitment  *proof.Commitment
	blockHash   crypto.Hash
	blockHeight uint64

	// Simulation
	match            *game.MatchState
	meta             proof.Metadata
	recorder         *proof.Recorder
	updates          *game.StateUpdateBuilder
	transcript       *proof.Transcript
	countdownTicks   uint32
	reconnectTimeout uint32
}

func NewSession(id game.MatchID, cfg game.MatchConfig) *Session {
	return &Session{
		ID:               id,
		Phase:            PhaseLobby,
		Config:           cfg,
		CreatedAt:        time.Now(),
		players:          make(map[game.PlayerID]*LobbyPlayer),
		countdownTicks:   config.CountdownTicks,
		reconnectTimeout: config.ReconnectTimeout,
	}
}

/* =========================
   LOBBY
========================= */

// Join adds a player to the lobby and draws their commit-reveal nonce.
func (s *Session) Join(id game.PlayerID, name string) (*LobbyPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseLobby {
		return nil, ErrMatchInProgress
	}
	if _, ok := s.players[id]; ok {
		return nil, ErrAlreadyInSession
	}
	if len(s.players) >= config.MaxPlayers {
		return nil, ErrSessionFull
	}

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to draw player nonce: %w", err)
	}

	p := &LobbyPlayer{
		ID:        id,
		Name:      name,
		JoinedAt:  time.Now(),
		Connected: true,
		Nonce:     nonce,
		LastInput: game.IdleInput(),
	}
	s.players[id] = p
	cp := *p
	return &cp, nil
}

// Leave removes a lobby player. An empty lobby closes the session.
func (s *Session) Leave(id game.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseLobby {
		return false
	}
	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	if len(s.players) == 0 {
		s.Phase = PhaseClosed
	}
	return true
}

func (s *Session) SetReady(id game.PlayerID, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseLobby {
		return ErrInvalidPhase
	}
	p, ok := s.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Ready = ready
	return nil
}

func (s *Session) AllReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allReadyLocked()
}

func (s *Session) allReadyLocked() bool {
	if len(s.players) < config.MinPlayers {
		return false
	}
	for _, p := range s.players {
		if !p.Ready || !p.Connected {
			return false
		}
	}
	return true
}

func (s *Session) IsFull() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players) >= config.MaxPlayers
}

func (s *Session) HasPlayer(id game.PlayerID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.players[id]
	return ok
}

// sortedIDsLocked returns participant ids in ascending byte order.
func (s *Session) sortedIDsLocked() []game.PlayerID {
	ids := make([]game.PlayerID, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

/* =========================
   COMMIT-REVEAL
========================= */

// Commit publishes the hash binding participants, config and nonces before
// the entropy block exists. The reveal block must fall in
// [currentHeight+1, currentHeight+CommitBlockWindow].
func (s *Session) Commit(currentHeight uint64) (proof.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseLobby {
		return proof.Commitment{}, ErrInvalidPhase
	}
	if !s.allReadyLocked() {
		return proof.Commitment{}, ErrPlayersNotReady
	}

	serverNonce, err := crypto.GenerateNonce()
	if err != nil {
		return proof.Commitment{}, fmt.Errorf("failed to draw server nonce: %w", err)
	}
	s.serverNonce = serverNonce

	b := proof.NewCommitmentBuilder(s.ID).
		ConfigHash(s.Config.Hash()).
		ServerNonce(serverNonce)
	for _, id := range s.sortedIDsLocked() {
		b.AddPlayer(id, s.players[id].Nonce)
	}
	preimage, c := b.Build(currentHeight+1, currentHeight+config.CommitBlockWindow)

	s.preimage = preimage
	s.commitment = &c
	s.Phase = PhaseCommitted
	return c, nil
}

func (s *Session) Commitment() (proof.Commitment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.commitment == nil {
		return proof.Commitment{}, false
	}
	return *s.commitment, true
}

// Start binds the entropy block, derives the seed and enters the countdown.
func (s *Session) Start(blockHash crypto.Hash, height uint64, startUnix uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseCommitted {
		return ErrInvalidPhase
	}
	if !s.commitment.BlockInRange(height) {
		return &proof.BlockOutOfRangeError{
			Min: s.commitment.BlockHeightMin,
			Max: s.commitment.BlockHeightMax,
			Got: height,
		}
	}

	ids := s.sortedIDsLocked()
	seed := crypto.DeriveMatchSeed(blockHash, s.ID, game.RawIDs(ids))

	match := game.NewMatchState(s.ID, seed)
	for _, id := range ids {
		if _, err := match.AddPlayer(id); err != nil {
			return fmt.Errorf("failed to add player %s: %w", id, err)
		}
	}
	match.Phase = game.Countdown(s.countdownTicks)

	s.blockHash = blockHash
	s.blockHeight = height
	s.match = match
	s.meta = proof.NewMetadata(s.ID, blockHash, ids, seed, startUnix, s.Config)
	s.updates = game.NewStateUpdateBuilder()
	s.StartedAt = time.Now()
	s.Phase = PhaseCountdown
	return nil
}

// Reveal is available once the match has ended.
func (s *Session) Reveal() (*proof.Reveal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.transcript == nil || s.preimage == nil {
		return nil, proof.ErrIncomplete
	}
	return &proof.Reveal{
		Preimage:    s.preimage,
		BlockHash:   s.blockHash,
		BlockHeight: s.blockHeight,
		Transcript:  s.transcript,
	}, nil
}

/* =========================
   CONNECTIONS AND INPUT
========================= */

// SubmitInput holds frame as the player's input from the next tick on.
// Inputs stamped for a tick that already ran are dropped.
func (s *Session) SubmitInput(id game.PlayerID, tick uint32, frame game.InputFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhasePlaying && s.Phase != PhaseCountdown {
		return ErrInvalidPhase
	}
	p, ok := s.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	if tick <= s.match.Tick || tick < p.LastInputTick {
		return ErrLateInput
	}
	// the forfeit bit is reserved for the driver
	frame.SetForfeit(false)
	p.LastInput = frame
	p.LastInputTick = tick
	return nil
}

func (s *Session) MarkDisconnected(id game.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return false
	}
	p.Connected = false
	p.LastInput = game.IdleInput()
	if s.match != nil {
		p.DisconnectedSince = s.match.Tick
	}
	return true
}

// Reconnect restores a player within the reconnect window and returns the
// current tick.
func (s *Session) Reconnect(id game.PlayerID) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	var tick uint32
	if s.match != nil {
		tick = s.match.Tick
	}
	if !p.Connected && tick-p.DisconnectedSince > s.reconnectTimeout {
		return tick, ErrReconnectExpired
	}
	p.Connected = true
	return tick, nil
}

/* =========================
   STEP (one 60 Hz tick)
========================= */

// Step advances the session by one tick. During the countdown it only
// counts down; the transcript starts on the tick shrines appear.
func (s *Session) Step() (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.Phase {
	case PhaseCountdown:
		game.Tick(s.match, nil, &s.Config)
		res := StepResult{Phase: s.Phase, Tick: s.match.Tick}
		if s.match.Phase.Kind == game.PhasePlaying {
			s.recorder = proof.NewRecorder(s.meta, s.match)
			s.Phase = PhasePlaying
			res.Phase = PhasePlaying
			res.Started = true
			update := s.updates.Build(s.match, s.Config.DurationTicks)
			res.Update = &update
		}
		return res, nil
	case PhasePlaying:
	default:
		return StepResult{Phase: s.Phase}, ErrInvalidPhase
	}

	tick := s.match.Tick + 1
	frames := make(map[game.PlayerID]game.InputFrame, len(s.players))
	var forfeited []game.PlayerID
	for id, p := range s.players {
		frame := p.LastInput
		if !p.Connected {
			frame = game.IdleInput()
			if tick-p.DisconnectedSince > s.reconnectTimeout {
				if mp := s.match.Player(id); mp != nil && mp.Alive {
					frame.SetForfeit(true)
					forfeited = append(forfeited, id)
				}
			}
		}
		frames[id] = frame
	}
	inputs := game.NewTickInputs(frames)

	s.recorder.RecordInputs(tick, inputs)
	tr := game.Tick(s.match, inputs, &s.Config)
	s.recorder.AfterTick(s.match, tr)

	update := s.updates.Build(s.match, s.Config.DurationTicks)
	res := StepResult{
		Phase:      s.Phase,
		Tick:       s.match.Tick,
		Update:     &update,
		Events:     tr.Events,
		Winner:     tr.Winner,
		Forfeited:  forfeited,
		InputCount: len(inputs),
	}

	if tr.MatchEnded {
		s.transcript = s.recorder.Finish(s.match, tr.Winner)
		s.Phase = PhaseEnded
		res.Phase = PhaseEnded
		res.Ended = true
	}
	return res, nil
}

// Close abandons a session that never reached its end, e.g. when the
// entropy block did not arrive in time. Ended sessions keep their phase.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Phase != PhaseEnded {
		s.Phase = PhaseClosed
	}
}

/* =========================
   READ ACCESS
========================= */

func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := SessionInfo{
		MatchID:     s.ID,
		Phase:       s.Phase,
		BlockHeight: s.blockHeight,
		CreatedAt:   s.CreatedAt,
	}
	for _, id := range s.sortedIDsLocked() {
		info.Players = append(info.Players, *s.players[id])
	}
	if s.match != nil {
		info.Tick = s.match.Tick
		started := s.StartedAt
		info.StartedAt = &started
	}
	return info
}

// Transcript is nil until the match ends.
func (s *Session) Transcript() *proof.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript
}

// StateHash is the hash of the live match, or false before Start.
func (s *Session) StateHash() (uint32, crypto.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.match == nil {
		return 0, crypto.Hash{}, false
	}
	return s.match.Tick, s.match.ComputeHash(), true
}

// WithMatch runs fn on the live state under the read lock. fn must not
// keep the pointer.
func (s *Session) WithMatch(fn func(*game.MatchState)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.match == nil {
		return false
	}
	fn(s.match)
	return true
}

func (s *Session) Nonces() map[game.PlayerID]crypto.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[game.PlayerID]crypto.Hash, len(s.players))
	for id, p := range s.players {
		out[id] = p.Nonce
	}
	return out
}
