package render

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"io"

	"runeRelicServer/fixed"
	"runeRelicServer/game"

	"github.com/fogleman/gg"
)

// Config for debug frames. Everything here is float; the simulation is
// only ever read through fixed.Display.
type Config struct {
	Size     int     // square image, pixels
	Margin   float64 // pixels around the arena
	GridStep float64 // world units between grid lines, 0 disables
}

func DefaultConfig() Config {
	return Config{Size: 800, Margin: 20, GridStep: 10}
}

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorGrid       = color.RGBA{30, 30, 45, 255}
	colorBounds     = color.RGBA{200, 60, 60, 255}
	colorHub        = color.RGBA{40, 40, 70, 255}
	colorCorridor   = color.RGBA{35, 35, 60, 255}
	colorDead       = color.RGBA{90, 90, 90, 160}
	colorShrineIdle = color.RGBA{120, 120, 140, 255}
)

var formColors = [...]color.RGBA{
	{120, 220, 255, 255}, // Spark
	{120, 255, 160, 255}, // Glyph
	{255, 230, 120, 255}, // Wisp
	{255, 150, 90, 255},  // Familiar
	{230, 90, 255, 255},  // Ancient
}

var runeColors = [...]color.RGBA{
	{180, 180, 255, 255}, // Wisdom
	{255, 90, 90, 255},   // Power
	{90, 255, 200, 255},  // Speed
	{200, 200, 200, 255}, // Shield
	{255, 120, 255, 255}, // Arcane
	{255, 255, 255, 255}, // Chaos
}

type frame struct {
	cfg   Config
	scale float64
	half  float64
}

func newFrame(cfg Config) frame {
	half := fixed.ArenaHalfWidth.Display().Float64()
	return frame{
		cfg:   cfg,
		half:  half,
		scale: (float64(cfg.Size) - 2*cfg.Margin) / (2 * half),
	}
}

// world y grows upward, image y grows downward
func (f frame) point(v fixed.Vec2) (float64, float64) {
	d := v.Display()
	return f.cfg.Margin + (d.X.Float64()+f.half)*f.scale,
		f.cfg.Margin + (f.half-d.Y.Float64())*f.scale
}

func (f frame) length(v fixed.Fixed) float64 {
	return v.Display().Float64() * f.scale
}

/* =========================
   DRAWING
========================= */

// Draw paints one tick of s. It only reads s.
func Draw(s *game.MatchState, cfg Config) *gg.Context {
	f := newFrame(cfg)
	dc := gg.NewContext(cfg.Size, cfg.Size)

	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(cfg.Size), float64(cfg.Size))
	dc.Fill()

	drawGrid(dc, f)
	drawMap(dc, f, s.Map)
	drawBounds(dc, f, s)

	for _, sh := range s.Shrines {
		drawShrine(dc, f, sh)
	}
	for _, r := range s.Runes() {
		if r.Collected {
			continue
		}
		x, y := f.point(r.Position)
		dc.SetColor(runeColors[int(r.Type)%len(runeColors)])
		dc.DrawCircle(x, y, max(f.length(game.RuneRadius), 2))
		dc.Fill()
	}
	for _, p := range s.Players() {
		drawPlayer(dc, f, p)
	}

	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("tick %d  %s  alive %d", s.Tick, s.Phase, s.AliveCount), cfg.Margin, cfg.Margin-6)
	return dc
}

func drawGrid(dc *gg.Context, f frame) {
	if f.cfg.GridStep <= 0 {
		return
	}
	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	lo, hi := f.cfg.Margin, float64(f.cfg.Size)-f.cfg.Margin
	for w := -f.half; w <= f.half; w += f.cfg.GridStep {
		p := f.cfg.Margin + (w+f.half)*f.scale
		dc.DrawLine(p, lo, p, hi)
		dc.Stroke()
		dc.DrawLine(lo, p, hi, p)
		dc.Stroke()
	}
}

func drawMap(dc *gg.Context, f frame, m *game.ArenaMap) {
	if m == nil {
		return
	}
	for _, c := range m.Corridors() {
		x1, y1 := f.point(c.Start)
		x2, y2 := f.point(c.End)
		dc.SetColor(colorCorridor)
		dc.SetLineWidth(2 * f.length(c.HalfWidth))
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}
	for _, h := range m.Hubs() {
		x, y := f.point(h.Center)
		dc.SetColor(colorHub)
		dc.DrawCircle(x, y, f.length(h.Radius))
		dc.Fill()
	}
	for _, z := range m.SpawnZones() {
		x, y := f.point(z.Center)
		dc.SetColor(colorHub)
		dc.DrawCircle(x, y, f.length(z.Radius))
		dc.Fill()
	}
}

func drawBounds(dc *gg.Context, f frame, s *game.MatchState) {
	hw, hh := s.CurrentArenaBounds()
	x1, y1 := f.point(fixed.Vec2{X: -hw, Y: hh})
	x2, y2 := f.point(fixed.Vec2{X: hw, Y: -hh})
	dc.SetColor(colorBounds)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x1, y1, x2-x1, y2-y1)
	dc.Stroke()
}

func drawShrine(dc *gg.Context, f frame, sh *game.ShrineState) {
	x, y := f.point(sh.Position)
	r := f.length(game.ShrineRadius)

	dc.SetColor(colorShrineIdle)
	if sh.Active {
		dc.SetColor(runeColors[int(sh.Type)%len(runeColors)])
	}
	dc.SetLineWidth(2)
	dc.DrawCircle(x, y, r)
	dc.Stroke()

	if progress := sh.ChannelProgress.Display().Float64(); progress > 0 {
		dc.DrawArc(x, y, r+3, -gg.Radians(90), -gg.Radians(90)+gg.Radians(360*progress))
		dc.Stroke()
	}
}

func drawPlayer(dc *gg.Context, f frame, p *game.PlayerState) {
	x, y := f.point(p.Position)
	r := max(f.length(p.Radius()), 3)

	if !p.Alive {
		dc.SetColor(colorDead)
		dc.DrawCircle(x, y, r)
		dc.Stroke()
		return
	}

	if p.HasShield() {
		dc.SetColor(color.RGBA{255, 255, 255, 77})
		dc.DrawCircle(x, y, r+4)
		dc.Fill()
	}
	dc.SetColor(formColors[int(p.Form)%len(formColors)])
	dc.DrawCircle(x, y, r)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawStringAnchored(fmt.Sprintf("%d", p.Score), x, y-r-8, 0.5, 0.5)
}

/* =========================
   OUTPUT
========================= */

// WritePNG encodes one frame of s.
func WritePNG(w io.Writer, s *game.MatchState, cfg Config) error {
	dc := Draw(s, cfg)
	if err := png.Encode(w, dc.Image()); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePNG writes one frame of s to path.
func SavePNG(path string, s *game.MatchState, cfg Config) error {
	if err := Draw(s, cfg).SavePNG(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// PNGBytes is WritePNG into memory, used by the API.
func PNGBytes(s *game.MatchState, cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, s, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
