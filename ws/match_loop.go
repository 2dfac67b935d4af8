package ws

import (
	"context"
	"fmt"
	"log"
	"time"

	"runeRelicServer/broker"
	"runeRelicServer/config"
	"runeRelicServer/contract"
	"runeRelicServer/db"
	"runeRelicServer/game"
	"runeRelicServer/metrics"
	"runeRelicServer/proof"
	"runeRelicServer/state"
)

// MatchLoop drives one session from commitment to transcript.
type MatchLoop struct {
	hub    *Hub
	sess   *state.Session
	cancel context.CancelFunc
	done   chan struct{}
}

// eventMessage is the wire form of one game event
type eventMessage struct {
	Name string         `json:"name"`
	Tick uint32         `json:"tick"`
	Data game.EventData `json:"data"`
}

// StartMatch launches the loop for sess once. Later calls are no-ops.
func (h *Hub) StartMatch(sess *state.Session) *MatchLoop {
	h.loopsMutex.Lock()
	defer h.loopsMutex.Unlock()

	if loop, ok := h.loops[sess.ID]; ok {
		return loop
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &MatchLoop{hub: h, sess: sess, cancel: cancel, done: make(chan struct{})}
	h.loops[sess.ID] = loop

	go func() {
		defer close(loop.done)
		defer h.removeLoop(sess.ID)
		if err := loop.run(ctx); err != nil {
			log.Printf("❌ Match %s aborted: %v", sess.ID, err)
			sess.Close()
			h.Broadcast(matchChannel(sess.ID), ServerMessage{Type: "match_aborted", MatchID: &sess.ID, Error: err.Error()})
			h.deps.Registry.MarkFinished(sess.ID)
		}
	}()
	return loop
}

// Done is closed when the loop has exited.
func (l *MatchLoop) Done() <-chan struct{} {
	return l.done
}

func (h *Hub) removeLoop(id game.MatchID) {
	h.loopsMutex.Lock()
	delete(h.loops, id)
	h.loopsMutex.Unlock()
}

func (h *Hub) stopLoops() {
	h.loopsMutex.Lock()
	defer h.loopsMutex.Unlock()
	for _, loop := range h.loops {
		loop.cancel()
	}
}

/* =========================
   LIFECYCLE
========================= */

func (l *MatchLoop) run(ctx context.Context) error {
	id := l.sess.ID
	channel := matchChannel(id)

	// 1. Commit before the entropy block exists
	src := l.hub.deps.Entropy
	height, err := src.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to read block height: %w", err)
	}
	commitment, err := l.sess.Commit(height)
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	l.publishCommitment(ctx, commitment)
	l.hub.Broadcast(channel, ServerMessage{Type: "commitment", MatchID: &id, Data: commitment})
	log.Printf("🔒 Match %s committed %s, entropy block in [%d, %d]",
		id, commitment.Hash.Hex(), commitment.BlockHeightMin, commitment.BlockHeightMax)

	// 2. First block after the commitment seeds the match
	waitCtx, cancel := context.WithTimeout(ctx, config.EntropyTimeout)
	blockHash, err := contract.WaitForBlock(waitCtx, src, commitment.BlockHeightMin, l.hub.deps.BlockPoll)
	cancel()
	if err != nil {
		return err
	}
	if err := l.sess.Start(blockHash, commitment.BlockHeightMin, uint64(time.Now().Unix())); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	l.hub.Broadcast(channel, ServerMessage{Type: "match_starting", MatchID: &id, Data: map[string]interface{}{
		"blockHeight":    commitment.BlockHeightMin,
		"blockHash":      blockHash,
		"countdownTicks": config.CountdownTicks,
		"session":        l.sess.Info(),
	}})
	log.Printf("🎮 Match %s seeded from block %d", id, commitment.BlockHeightMin)

	metrics.ActiveMatches.Inc()
	defer metrics.ActiveMatches.Dec()

	// 3. Fixed-rate ticks
	ticker := time.NewTicker(l.hub.deps.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		start := time.Now()
		res, err := l.sess.Step()
		metrics.ObserveTick(start)
		if err != nil {
			return fmt.Errorf("failed to step: %w", err)
		}
		l.broadcastStep(ctx, res)

		if res.Ended {
			l.finish(ctx)
			return nil
		}
	}
}

func (l *MatchLoop) broadcastStep(ctx context.Context, res state.StepResult) {
	id := l.sess.ID
	channel := matchChannel(id)

	if res.Started {
		l.hub.Broadcast(channel, ServerMessage{Type: "match_started", MatchID: &id, Data: map[string]interface{}{"tick": res.Tick}})
	}
	if res.Update != nil {
		l.hub.Broadcast(channel, ServerMessage{Type: "state", MatchID: &id, Data: res.Update})
	}
	if len(res.Events) > 0 {
		events := make([]eventMessage, 0, len(res.Events))
		for _, e := range res.Events {
			events = append(events, eventMessage{Name: e.Name(), Tick: e.Tick, Data: e.Data})
		}
		l.hub.Broadcast(channel, ServerMessage{Type: "events", MatchID: &id, Data: events})
	}
	for _, pid := range res.Forfeited {
		log.Printf("⏱️ Player %s forfeited match %s after reconnect timeout", pid, id)
	}

	if db.RedisClient != nil && res.Update != nil && res.Tick%config.TickRate == 0 {
		tick, hash := res.Tick, res.Update.StateHash
		go func() {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := db.SetLiveHash(ctx, id, tick, hash); err != nil {
				log.Printf("⚠️ Failed to store live hash: %v", err)
			}
		}()
	}
}

// publishCommitment stores the commitment and nonces. Redis being down
// does not stop the match: the commitment is also broadcast.
func (l *MatchLoop) publishCommitment(ctx context.Context, c proof.Commitment) {
	id := l.sess.ID
	if err := db.StoreCommitment(ctx, id, c); err != nil {
		log.Printf("⚠️ Failed to store commitment for %s: %v", id, err)
		metrics.StorageFailures.WithLabelValues("redis").Inc()
	}
	if err := db.StoreNonces(ctx, id, l.sess.Nonces()); err != nil {
		log.Printf("⚠️ Failed to store nonces for %s: %v", id, err)
	}
}

/* =========================
   MATCH END
========================= */

func (l *MatchLoop) finish(ctx context.Context) {
	id := l.sess.ID
	h := l.hub
	defer h.deps.Registry.MarkFinished(id)

	t := l.sess.Transcript()
	metrics.MatchesFinished.Inc()

	data, err := db.SaveTranscript(ctx, t)
	if err != nil {
		log.Printf("❌ Failed to save transcript for %s: %v", id, err)
		metrics.StorageFailures.WithLabelValues("transcript").Inc()
	}

	reveal, err := l.sess.Reveal()
	if err == nil {
		record := &db.RevealRecord{
			Preimage:         reveal.Preimage,
			BlockHash:        reveal.BlockHash,
			BlockHeight:      reveal.BlockHeight,
			TranscriptDigest: t.Digest(),
			RevealedAt:       time.Now().UTC(),
		}
		if err := db.StoreReveal(ctx, id, record); err != nil {
			log.Printf("⚠️ Failed to store reveal for %s: %v", id, err)
			metrics.StorageFailures.WithLabelValues("redis").Inc()
		}
	}
	if db.RedisClient != nil {
		if err := db.ClearLiveHash(ctx, id); err != nil {
			log.Printf("⚠️ Failed to clear live hash for %s: %v", id, err)
		}
	}

	if h.deps.Jobs != nil && data != nil {
		if err := h.deps.Jobs.PublishJob(broker.NewProofJob(t, len(data))); err != nil {
			log.Printf("⚠️ Failed to publish proof job for %s: %v", id, err)
			metrics.StorageFailures.WithLabelValues("nats").Inc()
		}
	}

	if h.deps.Anchor != nil {
		go func() {
			actx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := h.deps.Anchor.AnchorTranscript(actx, t); err != nil {
				metrics.StorageFailures.WithLabelValues("anchor").Inc()
			}
		}()
	}

	msg := map[string]interface{}{
		"result":           t.Result,
		"transcriptDigest": t.Digest(),
		"publicInputs":     proof.PublicInputsFromTranscript(t),
	}
	if reveal != nil {
		msg["preimage"] = reveal.Preimage
		msg["blockHash"] = reveal.BlockHash
		msg["blockHeight"] = reveal.BlockHeight
	}
	h.Broadcast(matchChannel(id), ServerMessage{Type: "match_ended", MatchID: &id, Data: msg})

	winner := "none"
	if t.Result.Winner != nil {
		winner = t.Result.Winner.String()
	}
	log.Printf("🏁 Match %s ended at tick %d, winner %s", id, t.Result.EndTick, winner)
}
