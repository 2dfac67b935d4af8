package state

import (
	"errors"
	"time"

	"runeRelicServer/game"
)

// ==============================================================================
// SESSION STATE (driver side of a match)
// ==============================================================================
//
// NOTE:
// The simulation itself lives in game.MatchState and never sees a clock or a
// socket. Everything here is what the server needs around it: who joined,
// who is connected, what was committed and which phase the session is in.
//
// ==============================================================================

type SessionPhase string

const (
	PhaseLobby     SessionPhase = "lobby"
	PhaseCommitted SessionPhase = "committed"
	PhaseCountdown SessionPhase = "countdown"
	PhasePlaying   SessionPhase = "playing"
	PhaseEnded     SessionPhase = "ended"
	PhaseClosed    SessionPhase = "closed"
)

var (
	ErrSessionFull        = errors.New("session is full")
	ErrAlreadyInSession   = errors.New("player already in session")
	ErrMatchInProgress    = errors.New("match already in progress")
	ErrPlayerNotFound     = errors.New("player not in session")
	ErrPlayersNotReady    = errors.New("not all players are ready")
	ErrInvalidPhase       = errors.New("invalid session phase")
	ErrLateInput          = errors.New("input arrived after its tick")
	ErrReconnectExpired   = errors.New("reconnect window expired")
	ErrSessionNotFound    = errors.New("session not found")
	ErrCommitmentNotReady = errors.New("commitment not published yet")
)

// ==============================================================================
// LOBBY PLAYER
// ==============================================================================

type LobbyPlayer struct {
	ID       game.PlayerID `json:"id"`
	Name     string        `json:"name"`
	Ready    bool          `json:"ready"`
	JoinedAt time.Time     `json:"joinedAt"`

	Connected         bool   `json:"connected"`
	DisconnectedSince uint32 `json:"-"`

	// Commit-reveal nonce, only published with the reveal
	Nonce [32]byte `json:"-"`

	// Held input, reapplied every tick until replaced
	LastInput     game.InputFrame `json:"-"`
	LastInputTick uint32          `json:"-"`
}

// ==============================================================================
// SNAPSHOTS (safe to hand to API/ws layers)
// ==============================================================================

type SessionInfo struct {
	MatchID     game.MatchID  `json:"matchId"`
	Phase       SessionPhase  `json:"phase"`
	Players     []LobbyPlayer `json:"players"`
	Tick        uint32        `json:"tick"`
	BlockHeight uint64        `json:"blockHeight,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
}

// StepResult is what one driver step produced.
type StepResult struct {
	Phase      SessionPhase
	Started    bool // countdown just finished
	Tick       uint32
	Update     *game.StateUpdate
	Events     []game.Event
	Ended      bool
	Winner     *game.PlayerID
	Forfeited  []game.PlayerID
	InputCount int
}
