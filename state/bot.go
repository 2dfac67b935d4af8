package state

import (
	"fmt"
	"time"

	"runeRelicServer/config"
	"runeRelicServer/crypto"
	"runeRelicServer/fixed"
	"runeRelicServer/game"
)

/* =========================
   BOTS
========================= */

const (
	botThreatRange = 6 * fixed.One
	botPreyRange   = 8 * fixed.One
	botAxisMax     = 127
)

// Bot is a simple rune-chasing controller. Decisions depend only on the
// match state and the bot's own RNG, so a seeded bot match is reproducible.
type Bot struct {
	ID  game.PlayerID
	rng *game.Rng
}

func NewBot(id game.PlayerID, seed uint64) *Bot {
	h := crypto.NewStateHasher("RUNE_RELIC_BOT_V1")
	h.UpdateU64(seed)
	h.UpdateID(id)
	sum := h.Finalize()
	var s uint64
	for i := 0; i < 8; i++ {
		s |= uint64(sum[i]) << (8 * i)
	}
	return &Bot{ID: id, rng: game.NewRng(s)}
}

// Decide picks the input for the next tick: flee bigger forms, chase smaller
// ones, otherwise head for the nearest rune.
func (b *Bot) Decide(s *game.MatchState) game.InputFrame {
	me := s.Player(b.ID)
	if me == nil || !me.Alive {
		return game.IdleInput()
	}

	target, flee := b.pickTarget(s, me)
	dir := target.Sub(me.Position)
	if flee {
		dir = dir.Negate()
	}
	if dir.IsZero() {
		dir = b.rng.RandomDirection()
	}
	dir = dir.Normalize()

	frame := game.InputWithMovement(toAxis(dir.X), toAxis(dir.Y))
	if me.AbilityReady() && b.rng.NextBool(fixed.One/40) {
		frame.SetAbility(true)
	}
	if me.CanJump(s.Tick+1) && b.rng.NextBool(fixed.One/120) {
		frame.SetJump(true)
	}
	return frame
}

func (b *Bot) pickTarget(s *game.MatchState, me *game.PlayerState) (fixed.Vec2, bool) {
	var prey *game.PlayerState
	for _, other := range s.Players() {
		if other.ID == me.ID || !other.Alive {
			continue
		}
		d := me.Position.Distance(other.Position)
		if other.Form.CanEat(me.Form) && d < botThreatRange {
			return other.Position, true
		}
		if me.Form.CanEat(other.Form) && d < botPreyRange {
			if prey == nil || d < me.Position.Distance(prey.Position) {
				prey = other
			}
		}
	}
	if prey != nil {
		return prey.Position, false
	}

	var best *game.RuneState
	var bestDist fixed.Fixed
	for _, r := range s.Runes() {
		if r.Collected {
			continue
		}
		d := me.Position.DistanceSquared(r.Position)
		if best == nil || d < bestDist {
			best, bestDist = r, d
		}
	}
	if best != nil {
		return best.Position, false
	}
	return fixed.Vec2{}, false
}

func toAxis(v fixed.Fixed) int8 {
	a := fixed.Mul(v, fixed.FromInt(botAxisMax)).ToInt()
	if a > botAxisMax {
		a = botAxisMax
	}
	if a < -botAxisMax {
		a = -botAxisMax
	}
	return int8(a)
}

/* =========================
   HEADLESS MATCH
========================= */

// SimulateMatch plays a full bot match on the calling goroutine with no
// clock. Block height 1 stands in for the entropy block.
func SimulateMatch(matchID game.MatchID, ids []game.PlayerID, cfg game.MatchConfig, blockHash crypto.Hash, botSeed uint64) (*Session, error) {
	sess := NewSession(matchID, cfg)
	bots := make([]*Bot, 0, len(ids))
	for i, id := range ids {
		if _, err := sess.Join(id, fmt.Sprintf("bot-%d", i+1)); err != nil {
			return nil, fmt.Errorf("failed to join bot: %w", err)
		}
		if err := sess.SetReady(id, true); err != nil {
			return nil, err
		}
		bots = append(bots, NewBot(id, botSeed))
	}

	if _, err := sess.Commit(0); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	if err := sess.Start(blockHash, 1, uint64(time.Now().Unix())); err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}

	maxSteps := int(cfg.DurationTicks) + int(config.CountdownTicks) + 2
	frames := make([]game.InputFrame, len(bots))
	for step := 0; step < maxSteps; step++ {
		var tick uint32
		sess.WithMatch(func(m *game.MatchState) {
			tick = m.Tick + 1
			for i, bot := range bots {
				frames[i] = bot.Decide(m)
			}
		})
		for i, bot := range bots {
			// late or out-of-phase inputs are dropped, as in the live loop
			_ = sess.SubmitInput(bot.ID, tick, frames[i])
		}

		res, err := sess.Step()
		if err != nil {
			return sess, fmt.Errorf("failed to step match: %w", err)
		}
		if res.Ended {
			return sess, nil
		}
	}
	return sess, fmt.Errorf("match did not end within %d steps", maxSteps)
}
