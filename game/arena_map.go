package game

import "runeRelicServer/fixed"

// ====================================================================
// ARCANE CIRCUIT LAYOUT
// ====================================================================

// Layout coordinates are authored in quarter units so the whole circuit
// sits inside the ±50 arena: q(140) is 35.0.
func q(v int32) fixed.Fixed {
	return fixed.Fixed(v * (int32(fixed.One) / 4))
}

func qv(x, y int32) fixed.Vec2 {
	return fixed.V(q(x), q(y))
}

var (
	corridorHalfWidth = q(7)
	spawnOffset       = q(20)
	spawnRadius       = q(10)
)

type Hub struct {
	Center fixed.Vec2
	Radius fixed.Fixed
}

type Corridor struct {
	Start     fixed.Vec2
	End       fixed.Vec2
	HalfWidth fixed.Fixed
}

// SpawnZone is an alcove hanging off the outer ring.
type SpawnZone struct {
	ID       uint8
	Anchor   fixed.Vec2
	Center   fixed.Vec2
	Radius   fixed.Fixed
	Corridor Corridor
}

// ArenaMap is immutable after construction and safe to share between matches.
type ArenaMap struct {
	hubs            []Hub
	corridors       []Corridor
	spawnZones      []SpawnZone
	hubWeights      []uint32
	corridorWeights []uint32
}

var defaultArenaMap = NewArenaMap()

// DefaultArenaMap returns the shared circuit layout.
func DefaultArenaMap() *ArenaMap {
	return defaultArenaMap
}

func newCorridor(a, b fixed.Vec2) Corridor {
	return Corridor{Start: a, End: b, HalfWidth: corridorHalfWidth}
}

func NewArenaMap() *ArenaMap {
	hubs := []Hub{
		{qv(0, 0), q(35)},
		{qv(0, 90), q(35)},
		{qv(0, -90), q(35)},
		{qv(140, 0), q(35)},
		{qv(-140, 0), q(35)},
		{qv(70, 45), q(18)},
		{qv(-70, 45), q(18)},
		{qv(70, -45), q(18)},
		{qv(-70, -45), q(18)},
	}

	type seg struct{ ax, ay, bx, by int32 }
	segs := []seg{
		// inner spokes
		{0, 0, 70, 45}, {0, 0, -70, 45}, {0, 0, 70, -45}, {0, 0, -70, -45},
		// junction connectors
		{70, 45, 0, 90}, {70, 45, 140, 0}, {-70, 45, 0, 90}, {-70, 45, -140, 0},
		{70, -45, 0, -90}, {70, -45, 140, 0}, {-70, -45, 0, -90}, {-70, -45, -140, 0},
		// outer ring
		{0, 90, 0, 140}, {0, 140, 140, 140}, {140, 140, 140, 0},
		{140, 0, 140, -140}, {140, -140, 0, -140}, {0, -140, 0, -90},
		{0, -90, 0, -140}, {0, -140, -140, -140}, {-140, -140, -140, 0},
		{-140, 0, -140, 140}, {-140, 140, 0, 140}, {0, 140, 0, 90},
	}
	corridors := make([]Corridor, 0, len(segs))
	for _, s := range segs {
		corridors = append(corridors, newCorridor(qv(s.ax, s.ay), qv(s.bx, s.by)))
	}

	anchors := []fixed.Vec2{
		qv(-20, 115), qv(20, 115), qv(-20, -115), qv(20, -115),
		qv(165, 20), qv(165, -20), qv(-165, 20), qv(-165, -20),
		qv(110, 80), qv(120, 70), qv(-110, 80), qv(-120, 70),
		qv(110, -80), qv(120, -70), qv(-110, -80), qv(-120, -70),
	}
	zones := make([]SpawnZone, 0, len(anchors))
	for i, a := range anchors {
		center := a.Add(a.Normalize().Scale(spawnOffset))
		zones = append(zones, SpawnZone{
			ID:       uint8(i),
			Anchor:   a,
			Center:   center,
			Radius:   spawnRadius,
			Corridor: newCorridor(a, center),
		})
	}

	m := &ArenaMap{hubs: hubs, corridors: corridors, spawnZones: zones}
	for _, h := range hubs {
		m.hubWeights = append(m.hubWeights, weightOf(fixed.Mul(h.Radius, h.Radius)))
	}
	for _, c := range corridors {
		m.corridorWeights = append(m.corridorWeights, weightOf(c.Length()))
	}
	return m
}

func weightOf(v fixed.Fixed) uint32 {
	v = fixed.Abs(v)
	if v < 1 {
		v = 1
	}
	return uint32(v)
}

func (m *ArenaMap) Hubs() []Hub             { return m.hubs }
func (m *ArenaMap) Corridors() []Corridor   { return m.corridors }
func (m *ArenaMap) SpawnZones() []SpawnZone { return m.spawnZones }

func (m *ArenaMap) SpawnZone(id uint8) (SpawnZone, bool) {
	for _, z := range m.spawnZones {
		if z.ID == id {
			return z, true
		}
	}
	return SpawnZone{}, false
}

// ====================================================================
// SAMPLING
// ====================================================================

// RandomRunePosition picks a region by weight, then a point inside it.
func (m *ArenaMap) RandomRunePosition(rng *Rng, wHubs, wCorridors, wSpawns uint32) fixed.Vec2 {
	total := wHubs + wCorridors + wSpawns
	if total == 0 {
		return fixed.Vec2Zero
	}

	roll := rng.NextInt(total)
	switch {
	case roll < wHubs:
		return m.randomPointInHub(rng)
	case roll < wHubs+wCorridors:
		return m.randomPointInCorridor(rng)
	default:
		return m.randomPointInSpawnZone(rng)
	}
}

func (m *ArenaMap) randomPointInHub(rng *Rng) fixed.Vec2 {
	hub := m.hubs[rng.PickWeighted(m.hubWeights)]
	radius := fixed.Max(fixed.SaturatingSub(hub.Radius, RuneRadius), 0)
	return rng.RandomPositionInCircle(hub.Center, radius)
}

func (m *ArenaMap) randomPointInCorridor(rng *Rng) fixed.Vec2 {
	c := m.corridors[rng.PickWeighted(m.corridorWeights)]
	return c.randomPoint(rng, RuneRadius)
}

func (m *ArenaMap) randomPointInSpawnZone(rng *Rng) fixed.Vec2 {
	z := m.spawnZones[rng.NextInt(uint32(len(m.spawnZones)))]
	radius := fixed.Max(fixed.SaturatingSub(z.Radius, RuneRadius), 0)
	return rng.RandomPositionInCircle(z.Center, radius)
}

// ====================================================================
// CONTAINMENT
// ====================================================================

// ContainsPlayer reports whether a circle fits entirely in a hub or corridor,
// or in the given spawn alcove while it is open.
func (m *ArenaMap) ContainsPlayer(pos fixed.Vec2, radius fixed.Fixed, zoneID *uint8, zoneActive bool) bool {
	for _, h := range m.hubs {
		if h.Contains(pos, radius) {
			return true
		}
	}
	for _, c := range m.corridors {
		if c.Contains(pos, radius) {
			return true
		}
	}
	if zoneActive && zoneID != nil {
		if z, ok := m.SpawnZone(*zoneID); ok {
			return z.Contains(pos, radius)
		}
	}
	return false
}

func (h Hub) Contains(pos fixed.Vec2, radius fixed.Fixed) bool {
	if h.Radius <= radius {
		return false
	}
	allowed := h.Radius - radius
	return pos.DistanceSquared(h.Center) <= fixed.Mul(allowed, allowed)
}

func (c Corridor) Length() fixed.Fixed {
	return c.Start.Distance(c.End)
}

func (c Corridor) Contains(pos fixed.Vec2, radius fixed.Fixed) bool {
	if c.HalfWidth <= radius {
		return false
	}
	allowed := c.HalfWidth - radius
	return distanceSquaredToSegment(pos, c.Start, c.End) <= fixed.Mul(allowed, allowed)
}

func (c Corridor) randomPoint(rng *Rng, margin fixed.Fixed) fixed.Vec2 {
	halfWidth := fixed.Max(fixed.SaturatingSub(c.HalfWidth, margin), 0)
	t := rng.NextFixed(fixed.One)
	var offset fixed.Fixed
	if halfWidth > 0 {
		offset = rng.NextFixedRange(-halfWidth, halfWidth)
	}

	ab := c.End.Sub(c.Start)
	perp := ab.Normalize().Perpendicular()
	return c.Start.Add(ab.Scale(t)).Add(perp.Scale(offset))
}

func (z SpawnZone) Contains(pos fixed.Vec2, radius fixed.Fixed) bool {
	if z.Radius > radius {
		allowed := z.Radius - radius
		if pos.DistanceSquared(z.Center) <= fixed.Mul(allowed, allowed) {
			return true
		}
	}
	return z.Corridor.Contains(pos, radius)
}

func distanceSquaredToSegment(p, a, b fixed.Vec2) fixed.Fixed {
	ab := b.Sub(a)
	abLenSq := ab.Dot(ab)
	if abLenSq == 0 {
		return p.DistanceSquared(a)
	}
	t := fixed.Clamp(fixed.Div(p.Sub(a).Dot(ab), abLenSq), 0, fixed.One)
	return p.DistanceSquared(a.Add(ab.Scale(t)))
}
