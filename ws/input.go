package ws

import (
	"errors"

	"runeRelicServer/config"
	"runeRelicServer/game"
	"runeRelicServer/metrics"
	"runeRelicServer/state"

	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("input rate limit exceeded")

// newInputLimiter allows two inputs per tick with a small burst for
// clients catching up after a stall.
func newInputLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(config.InputsPerSecond), config.InputBurst)
}

func (c *ClientConnection) handleBinaryInput(b []byte) {
	in, err := game.DecodeNetworkInput(b)
	if err != nil {
		c.dropInput("malformed")
		return
	}
	c.submitInput(in.Tick, in.Frame)
}

// submitInput hands a frame to the player's session. Errors are counted,
// never echoed per frame.
func (c *ClientConnection) submitInput(tick uint32, frame game.InputFrame) error {
	if !c.limiter.Allow() {
		c.dropInput("rate_limit")
		return errRateLimited
	}

	sess, ok := c.hub.deps.Registry.FindByPlayer(c.PlayerID)
	if !ok {
		c.dropInput("phase")
		return state.ErrSessionNotFound
	}

	err := sess.SubmitInput(c.PlayerID, tick, frame)
	switch {
	case err == nil:
	case errors.Is(err, state.ErrLateInput):
		c.dropInput("late")
	default:
		c.dropInput("phase")
	}
	return err
}

func (c *ClientConnection) dropInput(reason string) {
	metrics.InputsDropped.WithLabelValues(reason).Inc()
}
