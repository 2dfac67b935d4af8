package state

import (
	"sync"

	"runeRelicServer/config"
	"runeRelicServer/game"
)

// ==============================================================================
// SESSION REGISTRY
// ==============================================================================

// Registry tracks every session the server knows about. At most one lobby
// is open for matchmaking at a time.
type Registry struct {
	mu       sync.RWMutex
	sessions map[game.MatchID]*Session
	finished []game.MatchID // oldest first
	open     *Session
	cfg      game.MatchConfig
}

func NewRegistry(cfg game.MatchConfig) *Registry {
	return &Registry{
		sessions: make(map[game.MatchID]*Session),
		cfg:      cfg,
	}
}

// JoinLobby places the player in the open lobby, creating one when the
// previous lobby filled up or moved on. created reports a new session.
func (r *Registry) JoinLobby(id game.PlayerID, name string) (sess *Session, p *LobbyPlayer, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.HasPlayer(id) && s.Info().Phase != PhaseEnded && s.Info().Phase != PhaseClosed {
			return nil, nil, false, ErrAlreadyInSession
		}
	}

	if r.open == nil || r.open.IsFull() || r.open.Info().Phase != PhaseLobby {
		r.open = NewSession(game.NewMatchID(), r.cfg)
		r.sessions[r.open.ID] = r.open
		created = true
	}

	p, err = r.open.Join(id, name)
	if err != nil {
		return nil, nil, created, err
	}
	return r.open, p, created, nil
}

func (r *Registry) Get(id game.MatchID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// FindByPlayer returns the newest unfinished session containing the player.
func (r *Registry) FindByPlayer(id game.PlayerID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *Session
	for _, s := range r.sessions {
		if !s.HasPlayer(id) {
			continue
		}
		phase := s.Info().Phase
		if phase == PhaseEnded || phase == PhaseClosed {
			continue
		}
		if found == nil || s.CreatedAt.After(found.CreatedAt) {
			found = s
		}
	}
	return found, found != nil
}

// Active lists sessions that have not ended.
func (r *Registry) Active() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		switch s.Info().Phase {
		case PhaseEnded, PhaseClosed:
		default:
			out = append(out, s)
		}
	}
	return out
}

// MarkFinished keeps the last MaxFinishedMatches ended sessions and drops
// older ones.
func (r *Registry) MarkFinished(id game.MatchID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.open != nil && r.open.ID == id {
		r.open = nil
	}
	r.finished = append(r.finished, id)
	for len(r.finished) > config.MaxFinishedMatches {
		delete(r.sessions, r.finished[0])
		r.finished = r.finished[1:]
	}
}

// Remove drops a closed session.
func (r *Registry) Remove(id game.MatchID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open != nil && r.open.ID == id {
		r.open = nil
	}
	delete(r.sessions, id)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
