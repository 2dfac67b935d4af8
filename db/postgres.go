package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"runeRelicServer/config"
	"runeRelicServer/game"
	"runeRelicServer/proof"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// MatchRecord is one finished match as stored in Postgres
type MatchRecord struct {
	MatchID          string    `json:"matchId"`
	BlockHash        string    `json:"blockHash"`
	RngSeed          string    `json:"rngSeed"`
	ConfigHash       string    `json:"configHash"`
	PlayerCount      int       `json:"playerCount"`
	EndTick          int       `json:"endTick"`
	WinnerID         *string   `json:"winnerId,omitempty"`
	FinalStateHash   string    `json:"finalStateHash"`
	TranscriptDigest string    `json:"transcriptDigest"`
	CreatedAt        time.Time `json:"createdAt"`
}

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres() error {
	log.Println("🔌 Connecting to PostgreSQL...")

	// Get DATABASE_URL from environment
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = config.PGMaxConns
	poolConfig.MinConns = config.PGMinConns
	poolConfig.MaxConnLifetime = config.PGMaxConnLifetime

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
		PostgresPool = nil
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	matchesSchema := `
	CREATE TABLE IF NOT EXISTS matches (
		id SERIAL PRIMARY KEY,
		match_id TEXT NOT NULL UNIQUE,
		block_hash TEXT NOT NULL,
		rng_seed TEXT NOT NULL,
		config_hash TEXT NOT NULL,
		player_count INTEGER NOT NULL,
		end_tick INTEGER NOT NULL,
		winner_id TEXT,
		final_state_hash TEXT NOT NULL,
		transcript_digest TEXT NOT NULL,
		transcript BYTEA NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_matches_created_at ON matches(created_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, matchesSchema); err != nil {
		return fmt.Errorf("failed to create matches table: %w", err)
	}

	placementsSchema := `
	CREATE TABLE IF NOT EXISTS match_placements (
		id SERIAL PRIMARY KEY,
		match_id TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
		player_id TEXT NOT NULL,
		placement SMALLINT NOT NULL,
		score INTEGER NOT NULL,
		UNIQUE (match_id, player_id)
	);

	CREATE INDEX IF NOT EXISTS idx_match_placements_player ON match_placements(player_id);
	`

	if _, err := PostgresPool.Exec(ctx, placementsSchema); err != nil {
		return fmt.Errorf("failed to create match_placements table: %w", err)
	}

	log.Println("✅ Database schema initialized successfully")
	return nil
}

/* =========================
   MATCH ARCHIVE
========================= */

// SaveMatch stores a finished transcript and its placements in one transaction.
// Saving the same match twice is a no-op.
func SaveMatch(ctx context.Context, t *proof.Transcript, data []byte) error {
	if PostgresPool == nil {
		return fmt.Errorf("PostgreSQL connection pool not initialized")
	}
	if t.Result == nil {
		return proof.ErrIncomplete
	}

	tx, err := PostgresPool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var winner *string
	if t.Result.Winner != nil {
		w := t.Result.Winner.String()
		winner = &w
	}

	matchID := t.Metadata.MatchID.String()
	tag, err := tx.Exec(ctx, `
		INSERT INTO matches (match_id, block_hash, rng_seed, config_hash, player_count,
		                     end_tick, winner_id, final_state_hash, transcript_digest, transcript)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (match_id) DO NOTHING
	`,
		matchID,
		t.Metadata.BlockHash.Hex(),
		strconv.FormatUint(t.Metadata.RngSeed, 10),
		t.Metadata.ConfigHash.Hex(),
		t.PlayerCount(),
		int64(t.Result.EndTick),
		winner,
		t.Result.FinalStateHash.Hex(),
		t.Digest().Hex(),
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.Printf("⚠️  Match %s already stored, skipping", matchID)
		return nil
	}

	for _, p := range t.Result.Placements {
		_, err := tx.Exec(ctx, `
			INSERT INTO match_placements (match_id, player_id, placement, score)
			VALUES ($1, $2, $3, $4)
		`, matchID, p.PlayerID.String(), int16(p.Placement), int64(p.Score))
		if err != nil {
			return fmt.Errorf("failed to insert placement: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit match: %w", err)
	}

	log.Printf("✅ Stored match %s (%d bytes, %d players)", matchID, len(data), t.PlayerCount())
	return nil
}

// LoadTranscript returns the encoded transcript, or nil if the match is unknown.
func LoadTranscript(ctx context.Context, matchID game.MatchID) ([]byte, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("PostgreSQL connection pool not initialized")
	}

	var data []byte
	err := PostgresPool.QueryRow(ctx,
		`SELECT transcript FROM matches WHERE match_id = $1`, matchID.String(),
	).Scan(&data)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return data, nil
}

// GetRecentMatches returns the most recent matches, newest first.
func GetRecentMatches(ctx context.Context, limit int) ([]*MatchRecord, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("PostgreSQL connection pool not initialized")
	}

	rows, err := PostgresPool.Query(ctx, `
		SELECT match_id, block_hash, rng_seed, config_hash, player_count, end_tick,
		       winner_id, final_state_hash, transcript_digest, created_at
		FROM matches
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent matches: %w", err)
	}
	defer rows.Close()

	var records []*MatchRecord
	for rows.Next() {
		var r MatchRecord
		if err := rows.Scan(
			&r.MatchID,
			&r.BlockHash,
			&r.RngSeed,
			&r.ConfigHash,
			&r.PlayerCount,
			&r.EndTick,
			&r.WinnerID,
			&r.FinalStateHash,
			&r.TranscriptDigest,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

/* =========================
   LEADERBOARD
========================= */

// LeaderboardRecord aggregates a player's finished matches
type LeaderboardRecord struct {
	PlayerID      string `json:"playerId"`
	Matches       int    `json:"matches"`
	Wins          int    `json:"wins"`
	TotalScore    int64  `json:"totalScore"`
	BestPlacement int    `json:"bestPlacement"`
	Rank          int    `json:"rank,omitempty"`
}

const leaderboardQuery = `
	SELECT player_id, matches, wins, total_score, best_placement,
	       RANK() OVER (ORDER BY total_score DESC, wins DESC) AS rank
	FROM (
		SELECT player_id,
		       COUNT(*)::INT AS matches,
		       COUNT(*) FILTER (WHERE placement = 1)::INT AS wins,
		       SUM(score)::BIGINT AS total_score,
		       MIN(placement)::INT AS best_placement
		FROM match_placements
		GROUP BY player_id
	) totals
`

// GetLeaderboard returns the top players by total score
func GetLeaderboard(ctx context.Context, limit int) ([]*LeaderboardRecord, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("PostgreSQL connection pool not initialized")
	}

	rows, err := PostgresPool.Query(ctx, leaderboardQuery+` ORDER BY rank LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var records []*LeaderboardRecord
	for rows.Next() {
		var r LeaderboardRecord
		if err := rows.Scan(&r.PlayerID, &r.Matches, &r.Wins, &r.TotalScore, &r.BestPlacement, &r.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// GetPlayerRank returns a single player's leaderboard row, or nil.
func GetPlayerRank(ctx context.Context, playerID string) (*LeaderboardRecord, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("PostgreSQL connection pool not initialized")
	}

	var r LeaderboardRecord
	err := PostgresPool.QueryRow(ctx,
		`SELECT * FROM (`+leaderboardQuery+`) ranked WHERE player_id = $1`, playerID,
	).Scan(&r.PlayerID, &r.Matches, &r.Wins, &r.TotalScore, &r.BestPlacement, &r.Rank)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player rank: %w", err)
	}
	return &r, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheckPostgres performs a PostgreSQL health check
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("PostgreSQL connection pool not initialized")
	}
	return PostgresPool.Ping(ctx)
}
