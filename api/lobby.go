package api

import (
	"errors"
	"log"
	"net/http"

	"runeRelicServer/config"
	"runeRelicServer/game"
	"runeRelicServer/state"
)

/* =========================
   REQUEST/RESPONSE TYPES
========================= */

// LobbyJoinRequest joins the open lobby. An empty PlayerID issues a new one.
type LobbyJoinRequest struct {
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"name"`
}

type LobbyReadyRequest struct {
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

type LobbyResponse struct {
	Success  bool              `json:"success"`
	PlayerID game.PlayerID     `json:"playerId"`
	Created  bool              `json:"created,omitempty"`
	Starting bool              `json:"starting,omitempty"`
	Session  state.SessionInfo `json:"session"`
}

func lobbyStatus(err error) int {
	switch {
	case errors.Is(err, state.ErrAlreadyInSession):
		return http.StatusConflict
	case errors.Is(err, state.ErrSessionFull), errors.Is(err, state.ErrMatchInProgress), errors.Is(err, state.ErrInvalidPhase):
		return http.StatusConflict
	case errors.Is(err, state.ErrPlayerNotFound), errors.Is(err, state.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

/* =========================
   LOBBY ENDPOINTS
========================= */

// HandleLobbyJoin handles POST /api/lobby/join
func (h *handlers) HandleLobbyJoin(w http.ResponseWriter, r *http.Request) {
	var req LobbyJoinRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	playerID := game.NewPlayerID()
	if req.PlayerID != "" {
		id, err := game.ParsePlayerID(req.PlayerID)
		if err != nil {
			sendError(w, http.StatusBadRequest, "Invalid player id")
			return
		}
		playerID = id
	}

	sess, _, created, err := h.registry.JoinLobby(playerID, req.Name)
	if err != nil {
		sendError(w, lobbyStatus(err), err.Error())
		return
	}

	log.Printf("🎮 Player %s joined lobby %s over HTTP", playerID, sess.ID)
	sendJSON(w, http.StatusOK, LobbyResponse{
		Success:  true,
		PlayerID: playerID,
		Created:  created,
		Session:  sess.Info(),
	})
}

// HandleLobbyReady handles POST /api/lobby/ready
func (h *handlers) HandleLobbyReady(w http.ResponseWriter, r *http.Request) {
	var req LobbyReadyRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	playerID, err := game.ParsePlayerID(req.PlayerID)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid player id")
		return
	}

	sess, ok := h.registry.FindByPlayer(playerID)
	if !ok {
		sendError(w, http.StatusNotFound, state.ErrSessionNotFound.Error())
		return
	}
	if err := sess.SetReady(playerID, req.Ready); err != nil {
		sendError(w, lobbyStatus(err), err.Error())
		return
	}

	info := sess.Info()
	starting := false
	if h.startMatch != nil && len(info.Players) >= config.MinPlayers && sess.AllReady() {
		h.startMatch(sess)
		starting = true
	}

	sendJSON(w, http.StatusOK, LobbyResponse{
		Success:  true,
		PlayerID: playerID,
		Starting: starting,
		Session:  info,
	})
}

// HandleLobbyInfo handles GET /api/lobby/{matchID}
func (h *handlers) HandleLobbyInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid match id")
		return
	}
	sess, ok := h.registry.Get(id)
	if !ok {
		sendError(w, http.StatusNotFound, state.ErrSessionNotFound.Error())
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": sess.Info(),
	})
}
