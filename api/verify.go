package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"runeRelicServer/crypto"
	"runeRelicServer/db"
	"runeRelicServer/game"
	"runeRelicServer/metrics"
	"runeRelicServer/proof"
)

/* =========================
   HEALTH CHECK ENDPOINT
========================= */

// HandleHealthCheck handles GET /api/health
func (h *handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	redisHealth := "ok"
	if err := db.HealthCheck(ctx); err != nil {
		redisHealth = "error: " + err.Error()
	}

	postgresHealth := "ok"
	if err := db.HealthCheckPostgres(ctx); err != nil {
		postgresHealth = "error: " + err.Error()
	}

	archiveHealth := "disabled"
	if db.LocalArchive != nil {
		archiveHealth = "ok"
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"redis":         redisHealth,
		"postgres":      postgresHealth,
		"archive":       archiveHealth,
		"activeMatches": len(h.registry.Active()),
		"message":       "Health check completed",
	})
}

/* =========================
   REQUEST/RESPONSE TYPES
========================= */

// VerifyRequest names a transcript either inline (hex) or by match id.
// PublicInputs and Proof are optional claims checked against it.
type VerifyRequest struct {
	Transcript   string `json:"transcript,omitempty"`
	MatchID      string `json:"matchId,omitempty"`
	PublicInputs string `json:"publicInputs,omitempty"`
	Proof        string `json:"proof,omitempty"`
}

type VerifyResponse struct {
	Success           bool                     `json:"success"`
	MatchID           game.MatchID             `json:"matchId"`
	Valid             bool                     `json:"valid"`
	TranscriptDigest  crypto.Hash              `json:"transcriptDigest"`
	Replay            proof.VerificationResult `json:"replay"`
	Result            *proof.MatchResult       `json:"result,omitempty"`
	PublicInputsMatch *bool                    `json:"publicInputsMatch,omitempty"`
	ProofValid        *bool                    `json:"proofValid,omitempty"`
}

// VerifyRevealRequest checks a commitment against its reveal. Fields left
// out are looked up by match id.
type VerifyRevealRequest struct {
	MatchID     string            `json:"matchId,omitempty"`
	Commitment  *proof.Commitment `json:"commitment,omitempty"`
	Preimage    *proof.Preimage   `json:"preimage,omitempty"`
	BlockHash   *crypto.Hash      `json:"blockHash,omitempty"`
	BlockHeight *uint64           `json:"blockHeight,omitempty"`
	Transcript  string            `json:"transcript,omitempty"`
}

type VerifyRevealResponse struct {
	Success         bool                     `json:"success"`
	MatchID         game.MatchID             `json:"matchId"`
	CommitmentValid bool                     `json:"commitmentValid"`
	CommitmentError string                   `json:"commitmentError,omitempty"`
	Replay          proof.VerificationResult `json:"replay"`
}

/* =========================
   VERIFY ENDPOINTS
========================= */

// loadForVerify resolves the transcript from hex or from storage.
func (h *handlers) loadForVerify(ctx context.Context, hexData, matchID string) (*proof.Transcript, int, error) {
	if hexData != "" {
		data, err := decodeHex(hexData)
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("transcript is not valid hex")
		}
		t, err := proof.Decode(data)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		return t, http.StatusOK, nil
	}
	if matchID == "" {
		return nil, http.StatusBadRequest, errors.New("transcript or matchId is required")
	}
	id, err := game.ParseMatchID(matchID)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("invalid match id")
	}
	t, _, err := h.transcriptFor(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, http.StatusNotFound, errors.New("transcript not found")
	}
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return t, http.StatusOK, nil
}

// HandleVerify handles POST /api/verify
// Body: VerifyRequest JSON, or the raw transcript with
// Content-Type application/octet-stream
func (h *handlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req VerifyRequest
	var t *proof.Transcript

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/octet-stream") {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			sendError(w, http.StatusRequestEntityTooLarge, "Transcript too large")
			return
		}
		t, err = proof.Decode(data)
		if err != nil {
			metrics.RecordVerification(false, err, start)
			sendError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		if err := decodeBody(r, &req); err != nil {
			sendError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		var status int
		var err error
		t, status, err = h.loadForVerify(ctx, req.Transcript, req.MatchID)
		if err != nil {
			metrics.RecordVerification(false, err, start)
			sendError(w, status, err.Error())
			return
		}
	}

	log.Printf("🔍 Verifying match %s (%d players, %d checkpoints)",
		t.Metadata.MatchID, t.PlayerCount(), len(t.Checkpoints))

	res := proof.VerifyTranscript(t)
	resp := VerifyResponse{
		Success:          true,
		MatchID:          t.Metadata.MatchID,
		Valid:            res.Valid,
		TranscriptDigest: t.Digest(),
		Replay:           res,
		Result:           t.Result,
	}

	if req.PublicInputs != "" {
		raw, err := decodeHex(req.PublicInputs)
		if err != nil {
			sendError(w, http.StatusBadRequest, "publicInputs is not valid hex")
			return
		}
		claimed, err := proof.PublicInputsFromBytes(raw)
		if err != nil {
			sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		match := proof.CheckPublicInputs(t, claimed) == nil
		resp.PublicInputsMatch = &match
		resp.Valid = resp.Valid && match
	}

	if req.Proof != "" {
		raw, err := decodeHex(req.Proof)
		if err != nil {
			sendError(w, http.StatusBadRequest, "proof is not valid hex")
			return
		}
		ok, err := h.verifier.VerifyProof(ctx, proof.PublicInputsFromTranscript(t), raw)
		ok = ok && err == nil
		resp.ProofValid = &ok
		resp.Valid = resp.Valid && ok
	}

	metrics.RecordVerification(resp.Valid, nil, start)
	if resp.Valid {
		log.Printf("✅ Match %s verified in %s", resp.MatchID, time.Since(start))
	} else {
		log.Printf("❌ Match %s failed verification: %s", resp.MatchID, res.Error)
	}
	sendJSON(w, http.StatusOK, resp)
}

// HandleVerifyReveal handles POST /api/verify/reveal
func (h *handlers) HandleVerifyReveal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req VerifyRevealRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, status, err := h.loadForVerify(ctx, req.Transcript, req.MatchID)
	if err != nil {
		sendError(w, status, err.Error())
		return
	}
	id := t.Metadata.MatchID

	commitment := req.Commitment
	if commitment == nil {
		commitment = h.lookupCommitment(ctx, id)
	}
	if commitment == nil {
		sendError(w, http.StatusNotFound, "Commitment not found")
		return
	}

	reveal := &proof.Reveal{Transcript: t, Preimage: req.Preimage}
	if req.BlockHash != nil {
		reveal.BlockHash = *req.BlockHash
	}
	if req.BlockHeight != nil {
		reveal.BlockHeight = *req.BlockHeight
	}
	if reveal.Preimage == nil || req.BlockHash == nil || req.BlockHeight == nil {
		stored := h.lookupReveal(ctx, id)
		if stored == nil {
			sendError(w, http.StatusNotFound, "Reveal not available")
			return
		}
		if reveal.Preimage == nil {
			reveal.Preimage = stored.Preimage
		}
		if req.BlockHash == nil {
			reveal.BlockHash = stored.BlockHash
		}
		if req.BlockHeight == nil {
			reveal.BlockHeight = stored.BlockHeight
		}
	}

	resp := VerifyRevealResponse{Success: true, MatchID: id, CommitmentValid: true}
	if err := reveal.Verify(*commitment); err != nil {
		resp.CommitmentValid = false
		resp.CommitmentError = err.Error()
	}
	resp.Replay = proof.VerifyTranscript(t)

	metrics.RecordVerification(resp.CommitmentValid && resp.Replay.Valid, nil, start)
	log.Printf("🔍 Reveal check for %s: commitment=%v replay=%v", id, resp.CommitmentValid, resp.Replay.Valid)
	sendJSON(w, http.StatusOK, resp)
}

func (h *handlers) lookupCommitment(ctx context.Context, id game.MatchID) *proof.Commitment {
	if sess, ok := h.registry.Get(id); ok {
		if c, ok := sess.Commitment(); ok {
			return &c
		}
	}
	c, err := db.GetCommitment(ctx, id)
	if err != nil {
		log.Printf("⚠️ Failed to read commitment for %s: %v", id, err)
	}
	return c
}

func (h *handlers) lookupReveal(ctx context.Context, id game.MatchID) *db.RevealRecord {
	if sess, ok := h.registry.Get(id); ok {
		if rev, err := sess.Reveal(); err == nil {
			return &db.RevealRecord{
				Preimage:    rev.Preimage,
				BlockHash:   rev.BlockHash,
				BlockHeight: rev.BlockHeight,
			}
		}
	}
	rec, err := db.GetReveal(ctx, id)
	if err != nil {
		log.Printf("⚠️ Failed to read reveal for %s: %v", id, err)
	}
	return rec
}
