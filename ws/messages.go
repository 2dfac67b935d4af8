package ws

import (
	"encoding/json"
	"errors"
	"log"

	"runeRelicServer/config"
	"runeRelicServer/game"
	"runeRelicServer/state"
)

// ClientMessage is a JSON frame from a player
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is every JSON frame the server sends
type ServerMessage struct {
	Type    string        `json:"type"`
	MatchID *game.MatchID `json:"matchId,omitempty"`
	Data    interface{}   `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type joinData struct {
	Name string `json:"name"`
}

type readyData struct {
	Ready bool `json:"ready"`
}

// inputData is the JSON twin of the 8-byte network input.
type inputData struct {
	Tick    uint32 `json:"tick"`
	MoveX   int    `json:"moveX"`
	MoveY   int    `json:"moveY"`
	Jump    bool   `json:"jump"`
	Ability bool   `json:"ability"`
}

func (d inputData) frame() game.InputFrame {
	f := game.InputWithMovement(clampAxis(d.MoveX), clampAxis(d.MoveY))
	f.SetJump(d.Jump)
	f.SetAbility(d.Ability)
	return f
}

func clampAxis(v int) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

/* =========================
   DISPATCH
========================= */

// handleMessage processes incoming client messages
func (c *ClientConnection) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case "join":
		var d joinData
		if err := decodeData(msg.Data, &d); err != nil {
			c.sendError("invalid join payload")
			return
		}
		c.handleJoin(d.Name)

	case "ready":
		d := readyData{Ready: true}
		if err := decodeData(msg.Data, &d); err != nil {
			c.sendError("invalid ready payload")
			return
		}
		c.handleReady(d.Ready)

	case "leave":
		c.handleLeave()

	case "input":
		var d inputData
		if err := decodeData(msg.Data, &d); err != nil {
			c.dropInput("malformed")
			return
		}
		c.submitInput(d.Tick, d.frame())

	case "ping":
		c.sendJSON(ServerMessage{Type: "pong", Data: msg.Data})

	default:
		log.Printf("⚠️ Unknown message type from client %s: %s", c.ID, msg.Type)
		c.sendError("unknown message type")
	}
}

func (c *ClientConnection) handleJoin(name string) {
	reg := c.hub.deps.Registry

	sess, _, created, err := reg.JoinLobby(c.PlayerID, name)
	if errors.Is(err, state.ErrAlreadyInSession) {
		c.handleReconnect()
		return
	}
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.subscribe(matchChannel(sess.ID))
	info := sess.Info()
	c.sendJSON(ServerMessage{Type: "joined", MatchID: &sess.ID, Data: map[string]interface{}{
		"playerId": c.PlayerID,
		"created":  created,
		"session":  info,
	}})
	c.hub.Broadcast(matchChannel(sess.ID), ServerMessage{Type: "lobby_update", MatchID: &sess.ID, Data: info})
	log.Printf("🎮 Player %s joined match %s (%d/%d)", c.PlayerID, sess.ID, len(info.Players), config.MaxPlayers)
}

// handleReconnect reattaches a player that dropped mid-match.
func (c *ClientConnection) handleReconnect() {
	sess, ok := c.hub.deps.Registry.FindByPlayer(c.PlayerID)
	if !ok {
		c.sendError(state.ErrSessionNotFound.Error())
		return
	}
	tick, err := sess.Reconnect(c.PlayerID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.subscribe(matchChannel(sess.ID))
	c.sendJSON(ServerMessage{Type: "reconnected", MatchID: &sess.ID, Data: map[string]interface{}{
		"tick":    tick,
		"session": sess.Info(),
	}})
	log.Printf("🔄 Player %s reconnected to match %s at tick %d", c.PlayerID, sess.ID, tick)
}

func (c *ClientConnection) handleReady(ready bool) {
	sess, ok := c.hub.deps.Registry.FindByPlayer(c.PlayerID)
	if !ok {
		c.sendError(state.ErrSessionNotFound.Error())
		return
	}
	if err := sess.SetReady(c.PlayerID, ready); err != nil {
		c.sendError(err.Error())
		return
	}

	info := sess.Info()
	c.hub.Broadcast(matchChannel(sess.ID), ServerMessage{Type: "lobby_update", MatchID: &sess.ID, Data: info})

	if len(info.Players) >= config.MinPlayers && sess.AllReady() {
		c.hub.StartMatch(sess)
	}
}

func (c *ClientConnection) handleLeave() {
	sess, ok := c.hub.deps.Registry.FindByPlayer(c.PlayerID)
	if !ok {
		return
	}
	c.leaveSession(sess)
	c.sendJSON(ServerMessage{Type: "left", MatchID: &sess.ID})
}

// leaveSession drops the player from a lobby, or marks them disconnected
// once the match is running so the held input goes idle.
func (c *ClientConnection) leaveSession(sess *state.Session) {
	c.unsubscribe(matchChannel(sess.ID))

	if sess.Leave(c.PlayerID) {
		info := sess.Info()
		if info.Phase == state.PhaseClosed {
			c.hub.deps.Registry.Remove(sess.ID)
			log.Printf("🗑️ Empty lobby %s closed", sess.ID)
			return
		}
		c.hub.Broadcast(matchChannel(sess.ID), ServerMessage{Type: "lobby_update", MatchID: &sess.ID, Data: info})
		return
	}

	if sess.MarkDisconnected(c.PlayerID) {
		log.Printf("🔌 Player %s disconnected from match %s", c.PlayerID, sess.ID)
	}
}

func (c *ClientConnection) onDisconnect() {
	if c.hub.deps.Registry == nil {
		return
	}
	if sess, ok := c.hub.deps.Registry.FindByPlayer(c.PlayerID); ok {
		c.leaveSession(sess)
	}
}
