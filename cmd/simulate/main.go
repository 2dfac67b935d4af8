package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"runeRelicServer/config"
	"runeRelicServer/crypto"
	"runeRelicServer/game"
	"runeRelicServer/proof"
	"runeRelicServer/render"
	"runeRelicServer/state"
)

// Runs headless bot matches. Every id and block hash is derived from -seed
// so a batch can be reproduced exactly.
func main() {
	var (
		players    = flag.Int("players", 4, "Bots per match (2-4)")
		count      = flag.Int("count", 10, "Number of matches")
		duration   = flag.Int("duration", 0, "Match length in ticks (0 keeps the config value)")
		seed       = flag.Uint64("seed", 1, "Base seed for ids, entropy and bot behavior")
		configPath = flag.String("config", "", "Match config YAML")
		outDir     = flag.String("out", "", "Directory to write transcripts to")
		pngDir     = flag.String("png", "", "Directory to write final-frame PNGs to")
		verify     = flag.Bool("verify", true, "Replay every transcript after the batch")
		workers    = flag.Int("workers", runtime.NumCPU(), "Concurrent replays")
	)
	flag.Parse()

	if *players < config.MinPlayers || *players > config.MaxPlayers {
		log.Fatalf("❌ players must be between %d and %d", config.MinPlayers, config.MaxPlayers)
	}

	cfg, err := config.LoadMatchConfig(*configPath)
	if err != nil {
		log.Fatalf("❌ Invalid match config: %v", err)
	}
	if *duration > 0 {
		cfg.DurationTicks = uint32(*duration)
	}
	if err := config.ValidateMatchConfig(cfg); err != nil {
		log.Fatalf("❌ Invalid match config: %v", err)
	}

	for _, dir := range []string{*outDir, *pngDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("❌ Failed to create %s: %v", dir, err)
		}
	}

	fmt.Printf("Running %d matches of %d bots (%d ticks, config %s)...\n\n",
		*count, *players, cfg.DurationTicks, cfg.Hash().Hex()[:12])

	wins := make([]int, *players)
	draws := 0
	var totalTicks uint64
	transcripts := make([]*proof.Transcript, 0, *count)
	start := time.Now()

	for i := 0; i < *count; i++ {
		matchID, ids, blockHash := matchInputs(*seed, i, *players)

		sess, err := state.SimulateMatch(matchID, ids, cfg, blockHash, *seed+uint64(i))
		if err != nil {
			log.Fatalf("❌ Match %d failed: %v", i+1, err)
		}
		t := sess.Transcript()
		transcripts = append(transcripts, t)
		totalTicks += uint64(t.Result.EndTick)

		slot := -1
		if t.Result.Winner != nil {
			for j, id := range ids {
				if id == *t.Result.Winner {
					slot = j
				}
			}
		}
		if slot >= 0 {
			wins[slot]++
		} else {
			draws++
		}

		if *outDir != "" {
			data, err := proof.Encode(t)
			if err != nil {
				log.Fatalf("❌ Failed to encode match %d: %v", i+1, err)
			}
			path := filepath.Join(*outDir, matchID.String()+".rrt")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				log.Fatalf("❌ Failed to write %s: %v", path, err)
			}
		}
		if *pngDir != "" {
			path := filepath.Join(*pngDir, matchID.String()+".png")
			var renderErr error
			sess.WithMatch(func(m *game.MatchState) {
				renderErr = render.SavePNG(path, m, render.DefaultConfig())
			})
			if renderErr != nil {
				log.Printf("⚠️  Failed to render match %d: %v", i+1, renderErr)
			}
		}

		fmt.Printf("Match %3d: %s  winner slot %2d  end tick %5d  final %s\n",
			i+1, matchID, slot+1, t.Result.EndTick, t.Result.FinalStateHash.Hex()[:16])
	}

	elapsed := time.Since(start)
	fmt.Printf("\nSimulated %d matches (%d ticks) in %s\n", *count, totalTicks, elapsed.Round(time.Millisecond))
	for j, w := range wins {
		fmt.Printf("   slot %d: %3d wins (%.1f%%)\n", j+1, w, 100*float64(w)/float64(*count))
	}
	if draws > 0 {
		fmt.Printf("   no winner: %d\n", draws)
	}

	if !checkDeterminism(*seed, *players, cfg) {
		os.Exit(1)
	}
	if *verify && !verifyAll(transcripts, *workers) {
		os.Exit(1)
	}
}

// matchInputs derives the match id, bot ids and entropy block for match i.
func matchInputs(seed uint64, i, players int) (game.MatchID, []game.PlayerID, crypto.Hash) {
	base := crypto.HashBytes([]byte(fmt.Sprintf("simulate-%d-%d", seed, i)))
	var matchID game.MatchID
	copy(matchID[:], base[:16])

	ids := make([]game.PlayerID, players)
	for j := range ids {
		h := crypto.HashBytes(append(base[:], byte(j)))
		copy(ids[j][:], h[:16])
	}
	return matchID, ids, crypto.HashBytes(base[16:])
}

// checkDeterminism plays the first match twice and compares final hashes.
func checkDeterminism(seed uint64, players int, cfg game.MatchConfig) bool {
	matchID, ids, blockHash := matchInputs(seed, 0, players)
	var hashes [2]crypto.Hash
	for k := range hashes {
		sess, err := state.SimulateMatch(matchID, ids, cfg, blockHash, seed)
		if err != nil {
			log.Printf("❌ Determinism run failed: %v", err)
			return false
		}
		hashes[k] = sess.Transcript().Result.FinalStateHash
	}
	if hashes[0] != hashes[1] {
		fmt.Printf("\n❌ Determinism check failed: %s != %s\n", hashes[0], hashes[1])
		return false
	}
	fmt.Printf("\n✅ Determinism check passed (%s)\n", hashes[0].Hex()[:16])
	return true
}

func verifyAll(ts []*proof.Transcript, workers int) bool {
	start := time.Now()
	results, err := proof.VerifyBatch(context.Background(), ts, workers)
	if err != nil {
		log.Printf("❌ Replay aborted: %v", err)
		return false
	}
	failed := 0
	for i, r := range results {
		if !r.Valid {
			failed++
			fmt.Printf("❌ Match %d (%s) failed replay: %s\n", i+1, ts[i].Metadata.MatchID, r.Error)
		}
	}
	if failed > 0 {
		return false
	}
	fmt.Printf("✅ Replayed %d transcripts in %s\n", len(ts), time.Since(start).Round(time.Millisecond))
	return true
}
