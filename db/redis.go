package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"runeRelicServer/config"
	"runeRelicServer/crypto"
	"runeRelicServer/game"
	"runeRelicServer/proof"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// RevealRecord is everything needed to check a commitment except the
// transcript body, which lives in the archive.
type RevealRecord struct {
	Preimage         *proof.Preimage `json:"preimage"`
	BlockHash        crypto.Hash     `json:"blockHash"`
	BlockHeight      uint64          `json:"blockHeight"`
	TranscriptDigest crypto.Hash     `json:"transcriptDigest"`
	RevealedAt       time.Time       `json:"revealedAt"`
}

// LiveHash is the latest state hash of a running match
type LiveHash struct {
	Tick      uint32      `json:"tick"`
	StateHash crypto.Hash `json:"stateHash"`
}

// InitRedis initializes the Redis client connection
func InitRedis() error {
	log.Println("🔌 Connecting to Redis...")

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         redisURL,
		Password:     redisPassword,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		RedisClient = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("✅ Redis connected successfully - URL: %s", redisURL)
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		err := RedisClient.Close()
		RedisClient = nil
		return err
	}
	return nil
}

func redisReady() error {
	if RedisClient == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return nil
}

func setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return RedisClient.Set(ctx, key, data, ttl).Err()
}

// getJSON returns false when the key does not exist
func getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := RedisClient.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

/* =========================
   COMMITMENTS
   Redis Key: commit:{matchId} -> JSON Commitment
========================= */

// StoreCommitment publishes a match commitment before the entropy block exists
func StoreCommitment(ctx context.Context, matchID game.MatchID, c proof.Commitment) error {
	if err := redisReady(); err != nil {
		return err
	}
	key := fmt.Sprintf(config.RedisCommitmentKey, matchID)
	if err := setJSON(ctx, key, c, config.CommitmentTTL); err != nil {
		return fmt.Errorf("failed to store commitment: %w", err)
	}

	log.Printf("✅ Stored commitment - Match: %s, Hash: %s, Blocks: %d-%d",
		matchID, c.Hash.Hex(), c.BlockHeightMin, c.BlockHeightMax)
	return nil
}

// GetCommitment returns nil when nothing was published for the match
func GetCommitment(ctx context.Context, matchID game.MatchID) (*proof.Commitment, error) {
	if err := redisReady(); err != nil {
		return nil, err
	}
	var c proof.Commitment
	ok, err := getJSON(ctx, fmt.Sprintf(config.RedisCommitmentKey, matchID), &c)
	if err != nil {
		return nil, fmt.Errorf("failed to get commitment: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &c, nil
}

/* =========================
   REVEALS
   Redis Key: reveal:{matchId} -> JSON RevealRecord
========================= */

func StoreReveal(ctx context.Context, matchID game.MatchID, r *RevealRecord) error {
	if err := redisReady(); err != nil {
		return err
	}
	if err := setJSON(ctx, fmt.Sprintf(config.RedisRevealKey, matchID), r, config.RevealTTL); err != nil {
		return fmt.Errorf("failed to store reveal: %w", err)
	}
	log.Printf("🔓 Stored reveal - Match: %s, Block: %d", matchID, r.BlockHeight)
	return nil
}

func GetReveal(ctx context.Context, matchID game.MatchID) (*RevealRecord, error) {
	if err := redisReady(); err != nil {
		return nil, err
	}
	var r RevealRecord
	ok, err := getJSON(ctx, fmt.Sprintf(config.RedisRevealKey, matchID), &r)
	if err != nil {
		return nil, fmt.Errorf("failed to get reveal: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &r, nil
}

/* =========================
   LIVE STATE HASH
   Redis Key: live:{matchId} -> JSON LiveHash
========================= */

// SetLiveHash lets spectators check they see the same state as the server
func SetLiveHash(ctx context.Context, matchID game.MatchID, tick uint32, hash crypto.Hash) error {
	if err := redisReady(); err != nil {
		return err
	}
	key := fmt.Sprintf(config.RedisLiveHashKey, matchID)
	if err := setJSON(ctx, key, LiveHash{Tick: tick, StateHash: hash}, config.LiveHashTTL); err != nil {
		return fmt.Errorf("failed to set live hash: %w", err)
	}
	return nil
}

func GetLiveHash(ctx context.Context, matchID game.MatchID) (*LiveHash, error) {
	if err := redisReady(); err != nil {
		return nil, err
	}
	var h LiveHash
	ok, err := getJSON(ctx, fmt.Sprintf(config.RedisLiveHashKey, matchID), &h)
	if err != nil {
		return nil, fmt.Errorf("failed to get live hash: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// ClearLiveHash removes the live hash once the match ends
func ClearLiveHash(ctx context.Context, matchID game.MatchID) error {
	if err := redisReady(); err != nil {
		return err
	}
	return RedisClient.Del(ctx, fmt.Sprintf(config.RedisLiveHashKey, matchID)).Err()
}

/* =========================
   PLAYER NONCES (Hash Map Structure)
   Redis Key: nonces:{matchId} -> Hash{playerId: nonceHex}
========================= */

// StoreNonces keeps each player's commit nonce so the reveal survives a restart
func StoreNonces(ctx context.Context, matchID game.MatchID, nonces map[game.PlayerID]crypto.Hash) error {
	if err := redisReady(); err != nil {
		return err
	}
	hashKey := fmt.Sprintf(config.RedisNoncesKey, matchID)

	fields := make(map[string]interface{}, len(nonces))
	for id, n := range nonces {
		fields[id.String()] = n.Hex()
	}
	if err := RedisClient.HSet(ctx, hashKey, fields).Err(); err != nil {
		return fmt.Errorf("failed to store nonces: %w", err)
	}
	RedisClient.Expire(ctx, hashKey, config.NonceTTL)
	return nil
}

func GetNonces(ctx context.Context, matchID game.MatchID) (map[game.PlayerID]crypto.Hash, error) {
	if err := redisReady(); err != nil {
		return nil, err
	}
	data, err := RedisClient.HGetAll(ctx, fmt.Sprintf(config.RedisNoncesKey, matchID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get nonces: %w", err)
	}

	out := make(map[game.PlayerID]crypto.Hash, len(data))
	for idStr, hexNonce := range data {
		id, err := game.ParsePlayerID(idStr)
		if err != nil {
			log.Printf("⚠️  Skipping malformed player id %q: %v", idStr, err)
			continue
		}
		n, err := crypto.HashFromHex(hexNonce)
		if err != nil {
			log.Printf("⚠️  Skipping malformed nonce for %s: %v", idStr, err)
			continue
		}
		out[id] = n
	}
	return out, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if err := redisReady(); err != nil {
		return err
	}
	return RedisClient.Ping(ctx).Err()
}
