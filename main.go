package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"runeRelicServer/api"
	"runeRelicServer/broker"
	"runeRelicServer/config"
	"runeRelicServer/contract"
	"runeRelicServer/db"
	"runeRelicServer/state"
	"runeRelicServer/ws"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	settings := config.SettingsFromEnv()

	matchCfg, err := config.LoadMatchConfig(settings.MatchConfigPath)
	if err != nil {
		log.Fatalf("❌ Invalid match config: %v", err)
	}
	log.Printf("🎮 Match config hash: %s", matchCfg.Hash())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	if err := db.InitPostgres(); err != nil {
		log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
		log.Println("   Transcripts go to the local archive, leaderboard is disabled")
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(); err != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
		log.Println("   Commitments and reveals are served from memory only")
	}
	defer db.CloseRedis()

	if err := db.InitArchive(settings.ArchiveDir); err != nil {
		log.Printf("⚠️  Warning: Local archive initialization failed: %v", err)
	}
	defer db.CloseArchive()

	// Entropy source: chain blocks when an RPC is configured
	var entropy contract.EntropySource
	if settings.RPCURL != "" {
		chain, err := contract.NewChainEntropy(settings.RPCURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect entropy RPC: %v", err)
		}
		defer chain.Close()
		entropy = chain
	} else {
		local, err := contract.NewLocalEntropy()
		if err != nil {
			log.Fatalf("❌ Failed to create local entropy: %v", err)
		}
		log.Println("⚠️  RPC_URL not set, using local entropy (not publicly verifiable)")
		entropy = local
	}

	registry := state.NewRegistry(matchCfg)
	deps := ws.Deps{
		Registry: registry,
		Entropy:  entropy,
	}

	// Optional result anchoring
	if settings.AnchorPrivateKey != "" {
		anchor, err := contract.NewAnchor(contract.AnchorConfig{
			PrivateKey: settings.AnchorPrivateKey,
			RPCUrl:     config.GetEnv("RPC_URL", config.DefaultRPC),
			ChainID:    settings.ChainID,
			Address:    settings.AnchorAddress,
		})
		if err != nil {
			log.Printf("⚠️  Warning: Anchor initialization failed: %v", err)
		} else {
			defer anchor.Close()
			deps.Anchor = anchor
		}
	}

	// Optional proof job queue
	if settings.NATSURL != "" {
		publisher, err := broker.Connect(settings.NATSURL, "")
		if err != nil {
			log.Printf("⚠️  Warning: NATS connection failed: %v", err)
		} else {
			defer publisher.Close()
			deps.Jobs = publisher
		}
	}

	hub := ws.NewHub(deps)
	go hub.Run(ctx)

	router := api.NewRouter(api.RouterConfig{
		Registry:   registry,
		StartMatch: func(s *state.Session) { hub.StartMatch(s) },
		WSHandler:  hub.HandleWS,
	})

	addr := "0.0.0.0:" + settings.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Server starting on %s", addr)
	log.Println("")
	log.Println("📡 WebSocket Endpoints:")
	log.Printf("   ws://localhost:%s/ws - Lobby, inputs and match stream", settings.Port)
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   GET  /api/health - Health check (Redis + PostgreSQL + archive)")
	log.Println("   POST /api/lobby/join - Join the open lobby")
	log.Println("   POST /api/lobby/ready - Toggle ready")
	log.Println("   GET  /api/match/:id/commitment - Pre-match commitment")
	log.Println("   GET  /api/match/:id/reveal - Post-match reveal")
	log.Println("   GET  /api/match/:id/transcript - Binary transcript (?format=hex)")
	log.Println("   GET  /api/match/:id/public-inputs - Proof public inputs")
	log.Println("   GET  /api/match/:id/frame.png - Rendered arena frame")
	log.Println("   POST /api/verify - Replay-verify a transcript")
	log.Println("   POST /api/verify/reveal - Check a reveal against its commitment")
	log.Println("   GET  /api/leaderboard - Top players")
	log.Println("   GET  /metrics - Prometheus metrics")
	log.Println("")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error:", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Graceful shutdown failed: %v", err)
	}
}
