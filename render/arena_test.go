package render

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"runeRelicServer/fixed"
	"runeRelicServer/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playingMatch(t *testing.T) *game.MatchState {
	t.Helper()
	s := game.NewMatchState(game.MatchID{7}, 99)
	for _, id := range []game.PlayerID{{1}, {2}, {3}} {
		_, err := s.AddPlayer(id)
		require.NoError(t, err)
	}
	s.Phase = game.Countdown(0)
	cfg := game.DefaultMatchConfig()
	for i := 0; i < 5; i++ {
		game.Tick(s, nil, &cfg)
	}
	return s
}

func TestPNGBytes(t *testing.T) {
	s := playingMatch(t)
	hash := s.ComputeHash()

	cfg := Config{Size: 200, Margin: 10, GridStep: 25}
	data, err := PNGBytes(s, cfg)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	// drawing never touches the simulation
	assert.Equal(t, hash, s.ComputeHash())
}

func TestFrameMapsArenaCorners(t *testing.T) {
	f := newFrame(Config{Size: 120, Margin: 10})
	s := playingMatch(t)
	hw, hh := s.CurrentArenaBounds()

	x, y := f.point(s.Players()[0].Position)
	assert.True(t, x >= 10 && x <= 110, "x %f", x)
	assert.True(t, y >= 10 && y <= 110, "y %f", y)

	x, _ = f.point(fixed.Vec2{X: -hw, Y: hh})
	assert.InDelta(t, 10, x, 0.01)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, SavePNG(path, playingMatch(t), DefaultConfig()))
}
