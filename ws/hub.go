package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"runeRelicServer/broker"
	"runeRelicServer/config"
	"runeRelicServer/contract"
	"runeRelicServer/game"
	"runeRelicServer/metrics"
	"runeRelicServer/proof"
	"runeRelicServer/state"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Anchorer posts a finished transcript on chain.
type Anchorer interface {
	AnchorTranscript(ctx context.Context, t *proof.Transcript) (common.Hash, error)
}

// JobPublisher hands finished matches to the prover pipeline.
type JobPublisher interface {
	PublishJob(job broker.ProofJob) error
}

// Deps are the collaborators of the hub. Anchor and Jobs are optional.
type Deps struct {
	Registry *state.Registry
	Entropy  contract.EntropySource
	Anchor   Anchorer
	Jobs     JobPublisher

	// Poll interval for the entropy block, defaults to 500ms
	BlockPoll time.Duration
	// Overrides config.TickInterval, used by tests
	TickInterval time.Duration
}

// ClientConnection represents a connected player with their subscriptions
type ClientConnection struct {
	ID            string
	PlayerID      game.PlayerID
	Conn          *websocket.Conn
	Subscriptions map[string]bool // match:<id>
	mu            sync.RWMutex
	Send          chan []byte

	hub     *Hub
	limiter *rate.Limiter
}

type hubMessage struct {
	channel string
	data    []byte
}

// Hub is the central dispatcher: one per server.
type Hub struct {
	deps Deps

	clients      map[*ClientConnection]bool
	clientsMutex sync.RWMutex

	register   chan *ClientConnection
	unregister chan *ClientConnection
	broadcast  chan hubMessage

	loops      map[game.MatchID]*MatchLoop
	loopsMutex sync.Mutex

	clientIDCounter int64
}

func NewHub(deps Deps) *Hub {
	if deps.BlockPoll <= 0 {
		deps.BlockPoll = 500 * time.Millisecond
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = config.TickInterval
	}
	return &Hub{
		deps:       deps,
		clients:    make(map[*ClientConnection]bool),
		register:   make(chan *ClientConnection),
		unregister: make(chan *ClientConnection),
		broadcast:  make(chan hubMessage, 1024),
		loops:      make(map[game.MatchID]*MatchLoop),
	}
}

func matchChannel(id game.MatchID) string {
	return "match:" + id.String()
}

// Run is the event loop. It exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 Match hub started")

	for {
		select {
		case <-ctx.Done():
			h.stopLoops()
			log.Println("👋 Match hub stopped")
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.clientsMutex.Unlock()
			metrics.WSConnections.Inc()
			log.Printf("✅ Client registered: %s (Total: %d)", client.ID, total)

		case client := <-h.unregister:
			h.clientsMutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				metrics.WSConnections.Dec()
			}
			total := len(h.clients)
			h.clientsMutex.Unlock()
			log.Printf("👋 Client unregistered: %s (Total: %d)", client.ID, total)

		case msg := <-h.broadcast:
			h.broadcastToSubscribers(msg.channel, msg.data)
		}
	}
}

// Broadcast queues v for every subscriber of channel. It never blocks the
// match loop: a full queue drops the message.
func (h *Hub) Broadcast(channel string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("❌ Failed to marshal message for %s: %v", channel, err)
		return
	}
	select {
	case h.broadcast <- hubMessage{channel: channel, data: data}:
	default:
		log.Printf("⚠️ Broadcast queue full, dropping message for %s", channel)
	}
}

func (h *Hub) broadcastToSubscribers(channel string, data []byte) {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	for client := range h.clients {
		client.mu.RLock()
		subscribed := client.Subscriptions[channel]
		client.mu.RUnlock()

		if subscribed {
			select {
			case client.Send <- data:
				metrics.WSMessages.Inc()
			default:
				log.Printf("⚠️ Client %s send buffer full, skipping message", client.ID)
			}
		}
	}
}

func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the connection. ?player=<uuid> resumes an identity,
// otherwise a fresh player id is issued.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	log.Println("📥 WebSocket connection from:", r.RemoteAddr)

	playerID := game.NewPlayerID()
	if raw := r.URL.Query().Get("player"); raw != "" {
		id, err := game.ParsePlayerID(raw)
		if err != nil {
			http.Error(w, "invalid player id", http.StatusBadRequest)
			return
		}
		playerID = id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("❌ WebSocket upgrade failed:", err)
		return
	}

	client := &ClientConnection{
		ID:            h.generateClientID(),
		PlayerID:      playerID,
		Conn:          conn,
		Subscriptions: make(map[string]bool),
		Send:          make(chan []byte, config.WSSendQueue),
		hub:           h,
		limiter:       newInputLimiter(),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	client.sendJSON(ServerMessage{Type: "welcome", Data: map[string]interface{}{
		"playerId":   playerID,
		"tickRate":   config.TickRate,
		"minPlayers": config.MinPlayers,
		"maxPlayers": config.MaxPlayers,
	}})
}

func (h *Hub) generateClientID() string {
	id := atomic.AddInt64(&h.clientIDCounter, 1)
	return fmt.Sprintf("%d-%d", time.Now().Unix(), id)
}

/* =========================
   PUMPS
========================= */

// writePump sends messages from the Send channel to the WebSocket and
// keeps the connection alive with pings.
func (c *ClientConnection) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client frames until the connection drops. Binary frames
// are 8-byte network inputs, text frames are JSON messages.
func (c *ClientConnection) readPump() {
	defer func() {
		c.onDisconnect()
		c.hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	for {
		kind, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Read error for client %s: %v", c.ID, err)
			}
			break
		}

		if kind == websocket.BinaryMessage {
			c.handleBinaryInput(messageBytes)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Printf("❌ Failed to parse message from client %s: %v", c.ID, err)
			c.sendError("malformed message")
			continue
		}
		c.handleMessage(msg)
	}
}

// sendJSON queues v for this client only.
func (c *ClientConnection) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("⚠️ Failed to marshal private message: %v", err)
		return
	}
	defer func() {
		// Send is closed once the client unregisters
		recover()
	}()
	select {
	case c.Send <- data:
	default:
		log.Printf("⚠️ Client %s send buffer full, dropping private message", c.ID)
	}
}

func (c *ClientConnection) sendError(msg string) {
	c.sendJSON(ServerMessage{Type: "error", Error: msg})
}

func (c *ClientConnection) subscribe(channel string) {
	c.mu.Lock()
	c.Subscriptions[channel] = true
	c.mu.Unlock()
	log.Printf("📡 Client %s subscribed to: %s", c.ID, channel)
}

func (c *ClientConnection) unsubscribe(channel string) {
	c.mu.Lock()
	delete(c.Subscriptions, channel)
	c.mu.Unlock()
}
