package api

import (
	"net/http"

	"runeRelicServer/config"
	"runeRelicServer/metrics"
	"runeRelicServer/proof"
	"runeRelicServer/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains all dependencies needed to construct the HTTP router.
type RouterConfig struct {
	// Registry holds live and recently finished sessions (required)
	Registry *state.Registry

	// StartMatch launches the driver once every lobby player is ready.
	// Nil disables starting matches over HTTP.
	StartMatch func(sess *state.Session)

	// Verifier checks succinct proofs posted to /api/verify.
	// Defaults to proof.StubVerifier.
	Verifier proof.ProofVerifier

	// WSHandler serves /ws when set
	WSHandler http.HandlerFunc

	// VerifyLimit throttles replay verification per IP.
	// Defaults to DefaultRateLimitConfig.
	VerifyLimit *RateLimitConfig

	CORSOrigins    []string
	DisableLogging bool
}

type handlers struct {
	registry   *state.Registry
	startMatch func(sess *state.Session)
	verifier   proof.ProofVerifier
}

// NewRouter builds the router. It starts no goroutines.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{config.AllowOrigin}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &handlers{
		registry:   cfg.Registry,
		startMatch: cfg.StartMatch,
		verifier:   cfg.Verifier,
	}
	if h.verifier == nil {
		h.verifier = proof.StubVerifier{}
	}

	limitCfg := DefaultRateLimitConfig
	if cfg.VerifyLimit != nil {
		limitCfg = *cfg.VerifyLimit
	}
	limiter := NewIPRateLimiter(limitCfg)

	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api/lobby", func(r chi.Router) {
		r.Post("/join", h.HandleLobbyJoin)
		r.Post("/ready", h.HandleLobbyReady)
		r.Get("/{matchID}", h.HandleLobbyInfo)
	})

	r.Get("/api/matches", h.HandleRecentMatches)
	r.Route("/api/match/{matchID}", func(r chi.Router) {
		r.Get("/commitment", h.HandleGetCommitment)
		r.Get("/reveal", h.HandleGetReveal)
		r.Get("/transcript", h.HandleGetTranscript)
		r.Get("/public-inputs", h.HandleGetPublicInputs)
		r.Get("/live", h.HandleGetLiveHash)
		r.Get("/frame.png", h.HandleGetFrame)
	})

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(middleware.RequestSize(config.MaxVerifyBodySize))
		r.Post("/api/verify", h.HandleVerify)
		r.Post("/api/verify/reveal", h.HandleVerifyReveal)
	})

	r.Get("/api/leaderboard", h.HandleGetLeaderboard)
	r.Handle("/metrics", metrics.Handler())

	if cfg.WSHandler != nil {
		r.Get("/ws", cfg.WSHandler)
	}

	return r
}
