package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"runeRelicServer/config"
	"runeRelicServer/crypto"
	"runeRelicServer/db"
	"runeRelicServer/game"
	"runeRelicServer/state"

	"github.com/joho/godotenv"
)

func main() {
	matches := flag.Int("matches", 20, "Bot matches to play and store")
	roster := flag.Int("roster", 8, "Distinct bot players")
	flag.Parse()

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found")
	}

	if os.Getenv("DATABASE_URL") == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if *roster < config.MaxPlayers {
		log.Fatalf("roster must have at least %d players", config.MaxPlayers)
	}

	// Init postgres
	if err := db.InitPostgres(); err != nil {
		log.Fatalf("Failed to init postgres: %v", err)
	}
	defer db.ClosePostgres()

	ctx := context.Background()

	cfg, err := config.LoadMatchConfig(os.Getenv("MATCH_CONFIG"))
	if err != nil {
		log.Fatalf("Invalid match config: %v", err)
	}

	players := make([]game.PlayerID, *roster)
	for i := range players {
		players[i] = game.NewPlayerID()
	}

	fmt.Printf("Seeding leaderboard with %d bot matches...\n", *matches)

	for i := 0; i < *matches; i++ {
		// rotate through the roster so every bot plays
		ids := make([]game.PlayerID, config.MaxPlayers)
		for j := range ids {
			ids[j] = players[(i+j)%len(players)]
		}

		blockHash := crypto.HashBytes([]byte(fmt.Sprintf("seed-leaderboard-%d", i)))
		sess, err := state.SimulateMatch(game.NewMatchID(), ids, cfg, blockHash, uint64(i))
		if err != nil {
			log.Printf("Match %d failed: %v", i+1, err)
			continue
		}

		t := sess.Transcript()
		if _, err := db.SaveTranscript(ctx, t); err != nil {
			log.Printf("Failed to store %s: %v", t.Metadata.MatchID, err)
			continue
		}
		fmt.Printf("  %s -> end tick %d\n", t.Metadata.MatchID, t.Result.EndTick)
	}

	fmt.Println("\nDone! Testing leaderboard...")

	// Verify
	records, err := db.GetLeaderboard(ctx, config.DefaultLeaderboardLimit)
	if err != nil {
		log.Fatalf("Failed to get leaderboard: %v", err)
	}

	fmt.Printf("\nLeaderboard (%d entries):\n", len(records))
	for _, r := range records {
		fmt.Printf("  #%d %s... %d pts, %d wins / %d matches\n", r.Rank, r.PlayerID[:8], r.TotalScore, r.Wins, r.Matches)
	}
}
