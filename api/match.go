package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"runeRelicServer/config"
	"runeRelicServer/db"
	"runeRelicServer/game"
	"runeRelicServer/proof"
	"runeRelicServer/render"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

/* =========================
   LOOKUPS
========================= */

// transcriptFor prefers the in-memory session, then storage.
func (h *handlers) transcriptFor(ctx context.Context, id game.MatchID) (*proof.Transcript, []byte, error) {
	if sess, ok := h.registry.Get(id); ok {
		if t := sess.Transcript(); t != nil {
			data, err := proof.Encode(t)
			return t, data, err
		}
	}
	data, err := db.LoadTranscriptBytes(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	t, err := proof.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return t, data, nil
}

func sendTranscriptError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		sendError(w, http.StatusNotFound, "Transcript not found")
		return
	}
	log.Printf("❌ Failed to load transcript: %v", err)
	sendError(w, http.StatusInternalServerError, "Failed to load transcript")
}

/* =========================
   COMMIT-REVEAL ENDPOINTS
========================= */

// HandleGetCommitment handles GET /api/match/{matchID}/commitment
func (h *handlers) HandleGetCommitment(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid match id")
		return
	}

	if sess, ok := h.registry.Get(id); ok {
		if c, ok := sess.Commitment(); ok {
			sendJSON(w, http.StatusOK, map[string]interface{}{"success": true, "matchId": id, "commitment": c})
			return
		}
	}

	c, err := db.GetCommitment(r.Context(), id)
	if err != nil {
		log.Printf("⚠️ Failed to read commitment for %s: %v", id, err)
	}
	if c == nil {
		sendError(w, http.StatusNotFound, "Commitment not published")
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"success": true, "matchId": id, "commitment": c})
}

// HandleGetReveal handles GET /api/match/{matchID}/reveal. Only served
// after the match ended.
func (h *handlers) HandleGetReveal(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid match id")
		return
	}

	if sess, ok := h.registry.Get(id); ok {
		if rev, err := sess.Reveal(); err == nil {
			sendJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"reveal": db.RevealRecord{
					Preimage:         rev.Preimage,
					BlockHash:        rev.BlockHash,
					BlockHeight:      rev.BlockHeight,
					TranscriptDigest: rev.Transcript.Digest(),
				},
			})
			return
		}
	}

	rec, err := db.GetReveal(r.Context(), id)
	if err != nil {
		log.Printf("⚠️ Failed to read reveal for %s: %v", id, err)
	}
	if rec == nil {
		sendError(w, http.StatusNotFound, "Reveal not available")
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"success": true, "reveal": rec})
}

/* =========================
   TRANSCRIPT ENDPOINTS
========================= */

// HandleGetTranscript handles GET /api/match/{matchID}/transcript
// Query params: format=hex for a JSON body, binary otherwise
func (h *handlers) HandleGetTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid match id")
		return
	}

	t, data, err := h.transcriptFor(r.Context(), id)
	if err != nil {
		sendTranscriptError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "hex" {
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"matchId":    id,
			"digest":     t.Digest(),
			"transcript": hexutil.Encode(data),
		})
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+id.String()+".rrt")
	w.Header().Set("X-Transcript-Digest", t.Digest().Hex())
	w.Write(data)
}

// HandleGetPublicInputs handles GET /api/match/{matchID}/public-inputs
func (h *handlers) HandleGetPublicInputs(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid match id")
		return
	}

	t, _, err := h.transcriptFor(r.Context(), id)
	if err != nil {
		sendTranscriptError(w, err)
		return
	}

	pi := proof.PublicInputsFromTranscript(t)
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"matchId":      id,
		"publicInputs": pi,
		"elements":     pi.Elements(),
		"hex":          hexutil.Encode(pi.Bytes()),
	})
}

// HandleRecentMatches handles GET /api/matches
// Query params: limit (optional)
func (h *handlers) HandleRecentMatches(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, config.DefaultLeaderboardLimit)

	if db.PostgresPool != nil {
		records, err := db.GetRecentMatches(r.Context(), limit)
		if err != nil {
			log.Printf("❌ Failed to get recent matches: %v", err)
			sendError(w, http.StatusInternalServerError, "Failed to retrieve matches")
			return
		}
		sendJSON(w, http.StatusOK, map[string]interface{}{"success": true, "matches": records})
		return
	}

	if db.LocalArchive != nil {
		ids, err := db.LocalArchive.List(limit)
		if err != nil {
			log.Printf("❌ Failed to list archive: %v", err)
			sendError(w, http.StatusInternalServerError, "Failed to retrieve matches")
			return
		}
		sendJSON(w, http.StatusOK, map[string]interface{}{"success": true, "matchIds": ids})
		return
	}

	sendError(w, http.StatusServiceUnavailable, "No match storage configured")
}

/* =========================
   LIVE MATCH ENDPOINTS
========================= */

// HandleGetLiveHash handles GET /api/match/{matchID}/live
func (h *handlers) HandleGetLiveHash(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid match id")
		return
	}

	if sess, ok := h.registry.Get(id); ok {
		if tick, hash, ok := sess.StateHash(); ok {
			sendJSON(w, http.StatusOK, map[string]interface{}{
				"success":   true,
				"phase":     sess.Info().Phase,
				"tick":      tick,
				"stateHash": hash,
			})
			return
		}
	}

	live, err := db.GetLiveHash(r.Context(), id)
	if err != nil || live == nil {
		sendError(w, http.StatusNotFound, "Match not running")
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"tick":      live.Tick,
		"stateHash": live.StateHash,
	})
}

// HandleGetFrame handles GET /api/match/{matchID}/frame.png
// Query params: size (optional, pixels)
func (h *handlers) HandleGetFrame(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid match id")
		return
	}
	sess, ok := h.registry.Get(id)
	if !ok {
		sendError(w, http.StatusNotFound, "Match not found")
		return
	}

	cfg := render.DefaultConfig()
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s >= 64 && s <= 2048 {
		cfg.Size = s
	}

	var data []byte
	var renderErr error
	if !sess.WithMatch(func(m *game.MatchState) {
		data, renderErr = render.PNGBytes(m, cfg)
	}) {
		sendError(w, http.StatusConflict, "Match not started")
		return
	}
	if renderErr != nil {
		log.Printf("❌ Failed to render frame for %s: %v", id, renderErr)
		sendError(w, http.StatusInternalServerError, "Failed to render frame")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func parseLimit(r *http.Request, def int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > config.MaxLeaderboardLimit {
		return config.MaxLeaderboardLimit
	}
	return limit
}
