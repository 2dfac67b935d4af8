package config

import (
	"math/big"
	"time"
)

/* =========================
   NETWORK CONFIGURATION
========================= */

const (
	// Mantle Sepolia Testnet (block-hash entropy + result anchoring)
	DefaultRPC     = "https://rpc.sepolia.mantle.xyz"
	DefaultChainID = 5003

	// Blocks the reveal may be drawn from after the commitment is published
	CommitBlockWindow = 20

	// How long to wait for the entropy block before falling back
	EntropyTimeout = 10 * time.Second
)

/* =========================
   ANCHOR CONFIGURATION
========================= */

const (
	// Zero address disables anchoring unless ANCHOR_ADDRESS is set
	DefaultAnchorAddress = "0x0000000000000000000000000000000000000000"

	// Gas limit when estimation fails
	AnchorFallbackGas = uint64(100000)
)

/* =========================
   GAME LOOP
========================= */

const (
	// Simulation rate
	TickRate     = 60
	TickInterval = time.Second / TickRate

	// Lobby sizing
	MinPlayers = 2
	MaxPlayers = 4

	// Timing
	CountdownDuration  = 3 * time.Second
	CountdownTicks     = uint32(CountdownDuration / TickInterval)
	ReadyTimeout       = 30 * time.Second
	MatchEndLinger     = 10 * time.Second
	ReconnectTimeout   = uint32(1800) // 30 s @ 60 Hz
	MaxFinishedMatches = 50           // keep last 50 sessions in memory

	// Input intake
	InputsPerSecond = 120
	InputBurst      = 30
)

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Published commitment (1 day)
	// Key: commit:{matchId}
	CommitmentTTL = 24 * time.Hour

	// Reveal after match end (7 days)
	// Key: reveal:{matchId}
	RevealTTL = 7 * 24 * time.Hour

	// Live state hash while the match runs (10 minutes)
	// Key: live:{matchId}
	LiveHashTTL = 10 * time.Minute

	// Player nonces for commit-reveal (1 hour)
	// Key: nonces:{matchId}
	NonceTTL = 1 * time.Hour
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisCommitmentKey = "commit:%s"
	RedisRevealKey     = "reveal:%s"
	RedisLiveHashKey   = "live:%s"
	RedisNoncesKey     = "nonces:%s"
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	// Connection pool
	PGMaxConns        = 25
	PGMinConns        = 5
	PGMaxConnLifetime = 5 * time.Minute

	// Query limits
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

/* =========================
   NATS CONFIGURATION
========================= */

const (
	DefaultNATSURL    = "nats://localhost:4222"
	ProofJobSubject   = "runerelic.proof.jobs"
	NATSMaxReconnects = 10
	NATSReconnectWait = 2 * time.Second
)

/* =========================
   ARCHIVE CONFIGURATION
========================= */

const (
	DefaultArchiveDir = "./data/archive"
)

/* =========================
   API CONFIGURATION
========================= */

const (
	DefaultPort = "8080"

	// CORS
	AllowOrigin = "*"

	// Verify endpoint body limit (compressed transcripts are small)
	MaxVerifyBodySize = 4 * 1024 * 1024
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	// WebSocket settings
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second

	// Buffer sizes
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 4096
	WSSendQueue       = 256

	// Message size limits
	MaxMessageSize = 16 * 1024
)

/* =========================
   HELPER FUNCTIONS
========================= */

// ChainIDBig returns the chain id in the form go-ethereum signers expect.
func ChainIDBig(id int64) *big.Int {
	if id == 0 {
		id = DefaultChainID
	}
	return big.NewInt(id)
}
