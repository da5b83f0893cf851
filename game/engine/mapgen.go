package engine

import (
	"math"
	"math/rand"
)

// riverStyle selects how many channels a river map carves and how they join.
type riverStyle int

const (
	riverSingle riverStyle = iota
	riverBranching
	riverTwoSeparate
)

const (
	// archipelago targets
	minIslandTiles = 4
	landRatioLow   = 0.60
	landRatioHigh  = 0.80

	// density field constants
	hotspotFalloffRadius = 12.0
	densityBudgetPerTile = 10

	// bounded-iteration caps so pathological seeds degrade instead of looping
	maxRatioPasses = 64
)

// point is an internal tile coordinate used by the generator.
type point struct {
	x, y int
}

var dirs4 = [4]point{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// MapGenerator produces a complete MapGrid from a seed. The generator derives
// a private RNG from the seed, so the same seed always yields a bit-identical
// map regardless of any other randomness in the process.
type MapGenerator struct {
	seed int64
	rng  *rand.Rand
}

// NewMapGenerator creates a generator for the given seed.
func NewMapGenerator(seed int64) *MapGenerator {
	return &MapGenerator{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// GenerateMap builds a map from a seed, choosing river or archipelago
// terrain with equal probability.
func GenerateMap(seed int64, width, height int) *MapGrid {
	return NewMapGenerator(seed).Generate(width, height)
}

// GenerateMapWithTerrain builds a map from a seed with a forced terrain kind.
func GenerateMapWithTerrain(seed int64, width, height int, kind TerrainKind) *MapGrid {
	return NewMapGenerator(seed).GenerateWithTerrain(width, height, kind)
}

// Generate builds the full map: 50/50 river or archipelago terrain, then the
// residential and office density fields.
func (g *MapGenerator) Generate(width, height int) *MapGrid {
	kind := TerrainRiver
	if g.rng.Float64() < 0.5 {
		kind = TerrainArchipelago
	}
	return g.GenerateWithTerrain(width, height, kind)
}

// GenerateWithTerrain builds the map with the given terrain kind. Forcing the
// kind skips the coin flip, which the scenario tests rely on.
func (g *MapGenerator) GenerateWithTerrain(width, height int, kind TerrainKind) *MapGrid {
	m := &MapGrid{
		Width:   width,
		Height:  height,
		Seed:    g.seed,
		Terrain: kind,
		Tiles:   make([][]Tile, height),
	}
	for y := range m.Tiles {
		m.Tiles[y] = make([]Tile, width)
	}

	if kind == TerrainRiver {
		g.fill(m, TileLand)
		g.carveRiver(m)
	} else {
		g.fill(m, TileWater)
		g.buildArchipelago(m)
	}

	g.seedDensities(m)
	return m
}

func (g *MapGenerator) fill(m *MapGrid, tt TileType) {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.Tiles[y][x] = Tile{Type: tt}
		}
	}
}

// --- river terrain ---

// carveRiver cuts a water band across a land grid. Orientation and style are
// drawn first so the RNG call order stays stable.
func (g *MapGenerator) carveRiver(m *MapGrid) {
	horizontal := g.rng.Float64() < 0.5

	style := riverSingle
	switch roll := g.rng.Float64(); {
	case roll < 0.5:
		style = riverSingle
	case roll < 0.75:
		style = riverBranching
	default:
		style = riverTwoSeparate
	}

	width := 1 + g.rng.Intn(4)
	span := m.Height
	if !horizontal {
		span = m.Width
	}

	switch style {
	case riverSingle:
		g.carveChannel(m, horizontal, width, span/4, span/2)
	case riverBranching:
		main := g.carveChannel(m, horizontal, width, span/4, span/2)
		g.carveBranch(m, horizontal, width, main)
	case riverTwoSeparate:
		g.carveChannel(m, horizontal, width, span/6, span/6)
		g.carveChannel(m, horizontal, width, span*2/3, span/6)
	}
}

// carveChannel carves one full crossing. The channel starts inside
// [bandStart, bandStart+bandLen) on the entry edge. It returns the carved
// centerline so branching styles can join onto it.
func (g *MapGenerator) carveChannel(m *MapGrid, horizontal bool, width, bandStart, bandLen int) []point {
	if bandLen < 1 {
		bandLen = 1
	}
	start := bandStart + g.rng.Intn(bandLen)

	if width == 1 {
		end := bandStart + g.rng.Intn(bandLen)
		var a, b point
		if horizontal {
			a = point{0, clampI(start, 0, m.Height-1)}
			b = point{m.Width - 1, clampI(end, 0, m.Height-1)}
		} else {
			a = point{clampI(start, 0, m.Width-1), 0}
			b = point{clampI(end, 0, m.Width-1), m.Height - 1}
		}
		return g.carveThinLine(m, a, b)
	}

	center := g.carveMeander(m, horizontal, start)
	target := int(float64(len(center)) * float64(width) * 0.8)
	g.floodExpand(m, center, target)
	return center
}

// carveThinLine carves a strict 4-connected digital line between two tiles.
// Exactly one axis advances per step, so a width-1 river is never diagonal
// and always stays edge-adjacent.
func (g *MapGenerator) carveThinLine(m *MapGrid, a, b point) []point {
	carved := []point{}
	carve := func(p point) {
		if t := m.TileAt(p.x, p.y); t != nil && t.Type != TileWater {
			t.Type = TileWater
		}
		carved = append(carved, p)
	}

	x, y := a.x, a.y
	dx := abs(b.x - a.x)
	dy := abs(b.y - a.y)
	sx := sign(b.x - a.x)
	sy := sign(b.y - a.y)
	err := dx - dy

	carve(point{x, y})
	for x != b.x || y != b.y {
		switch {
		case x == b.x:
			y += sy
		case y == b.y:
			x += sx
		default:
			if e2 := 2 * err; e2 > -dy {
				err -= dy
				x += sx
			} else {
				err += dx
				y += sy
			}
		}
		carve(point{x, y})
	}
	return carved
}

// carveMeander walks a centerline across the grid: a direction-biased random
// walk chasing a sinusoidal meander target whose envelope peaks mid-path and
// tapers to nothing at the banks.
func (g *MapGenerator) carveMeander(m *MapGrid, horizontal bool, start int) []point {
	length := m.Width
	lateralMax := m.Height - 1
	if !horizontal {
		length = m.Height
		lateralMax = m.Width - 1
	}

	amp := 1.0 + g.rng.Float64()*float64(max(2, lateralMax/5))
	waves := 1.5 + g.rng.Float64()*2.0
	phase := g.rng.Float64() * 2 * math.Pi

	center := []point{}
	carve := func(along, lateral int) {
		p := point{along, lateral}
		if !horizontal {
			p = point{lateral, along}
		}
		if t := m.TileAt(p.x, p.y); t != nil {
			t.Type = TileWater
		}
		center = append(center, p)
	}

	lat := clampI(start, 0, lateralMax)
	for i := 0; i < length; i++ {
		t := float64(i) / float64(max(1, length-1))
		envelope := math.Sin(math.Pi * t)
		target := float64(start) + amp*envelope*math.Sin(2*math.Pi*waves*t+phase)

		step := 0
		if g.rng.Float64() < 0.7 {
			step = sign(int(math.Round(target)) - lat)
		} else {
			step = g.rng.Intn(3) - 1
		}

		carve(i, lat)
		next := clampI(lat+step, 0, lateralMax)
		if next != lat {
			// carve the corner tile so the centerline stays 4-connected
			carve(i, next)
			lat = next
		}
	}
	return center
}

// floodExpand grows a carved centerline outward to 4-connected neighbors in
// BFS order until the channel holds target tiles or no land neighbor is left.
func (g *MapGenerator) floodExpand(m *MapGrid, seeds []point, target int) {
	queue := make([]point, 0, len(seeds))
	seen := make(map[point]bool, len(seeds))
	for _, p := range seeds {
		if !seen[p] {
			seen[p] = true
			queue = append(queue, p)
		}
	}

	count := len(queue)
	for head := 0; head < len(queue) && count < target; head++ {
		p := queue[head]
		for _, d := range dirs4 {
			n := point{p.x + d.x, p.y + d.y}
			if seen[n] || !m.IsLand(n.x, n.y) {
				continue
			}
			m.Tiles[n.y][n.x].Type = TileWater
			seen[n] = true
			queue = append(queue, n)
			count++
			if count >= target {
				break
			}
		}
	}
}

// carveBranch carves a second source that merges into the main channel
// somewhere in its middle stretch.
func (g *MapGenerator) carveBranch(m *MapGrid, horizontal bool, width int, main []point) {
	if len(main) == 0 {
		return
	}
	lo := len(main) * 3 / 10
	spanLen := max(1, len(main)*4/10)
	junction := main[lo+g.rng.Intn(spanLen)]

	var src point
	if horizontal {
		src = point{0, g.rng.Intn(m.Height)}
	} else {
		src = point{g.rng.Intn(m.Width), 0}
	}

	line := g.carveThinLine(m, src, junction)
	if width >= 2 {
		g.floodExpand(m, line, int(float64(len(line))*float64(width)*0.8))
	}
}

// --- archipelago terrain ---

type islandCenter struct {
	x, y     float64
	strength float64
}

// buildArchipelago raises 4-6 islands out of a water grid, then corrects the
// result toward the 60-80% land target and removes landlocked lakes.
func (g *MapGenerator) buildArchipelago(m *MapGrid) {
	n := 4 + g.rng.Intn(3)

	// island centers on a jittered 3x2 coarse grid so they spread out
	const cols, rows = 3, 2
	cellW := float64(m.Width) / cols
	cellH := float64(m.Height) / rows
	order := g.rng.Perm(cols * rows)

	centers := make([]islandCenter, 0, n)
	for i := 0; i < n && i < len(order); i++ {
		cx := order[i] % cols
		cy := order[i] / cols
		centers = append(centers, islandCenter{
			x:        float64(cx)*cellW + cellW/2 + (g.rng.Float64()-0.5)*cellW/2,
			y:        float64(cy)*cellH + cellH/2 + (g.rng.Float64()-0.5)*cellH/2,
			strength: 0.8 + g.rng.Float64()*0.4,
		})
	}

	decayRadius := float64(min(m.Width, m.Height)) / 2.5
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			best := 0.0
			for _, c := range centers {
				d := math.Hypot(float64(x)-c.x, float64(y)-c.y)
				v := c.strength * math.Max(0, 1-d/decayRadius)
				if v > best {
					best = v
				}
			}
			best += (g.rng.Float64() - 0.5) * 0.25
			if best > 0.3 {
				m.Tiles[y][x].Type = TileLand
			}
		}
	}

	g.removeSmallIslands(m, minIslandTiles)
	g.adjustLandRatio(m, landRatioLow, landRatioHigh)
	g.fillLakes(m)
}

// removeSmallIslands flood-fills land components in scan order and sinks any
// component smaller than minTiles.
func (g *MapGenerator) removeSmallIslands(m *MapGrid, minTiles int) {
	seen := make(map[point]bool)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			start := point{x, y}
			if seen[start] || !m.IsLand(x, y) {
				continue
			}
			island := []point{start}
			seen[start] = true
			for head := 0; head < len(island); head++ {
				p := island[head]
				for _, d := range dirs4 {
					np := point{p.x + d.x, p.y + d.y}
					if !seen[np] && m.IsLand(np.x, np.y) {
						seen[np] = true
						island = append(island, np)
					}
				}
			}
			if len(island) < minTiles {
				for _, p := range island {
					m.Tiles[p.y][p.x].Type = TileWater
				}
			}
		}
	}
}

// adjustLandRatio grows or erodes the land/water boundary until the land
// fraction falls inside [lo, hi]. Passes are bounded so bad seeds degrade
// gracefully instead of looping.
func (g *MapGenerator) adjustLandRatio(m *MapGrid, lo, hi float64) {
	total := m.Width * m.Height
	for pass := 0; pass < maxRatioPasses; pass++ {
		ratio := m.LandRatio()
		if ratio >= lo && ratio <= hi {
			return
		}
		grow := ratio < lo
		bound := lo
		if !grow {
			bound = hi
		}
		needed := int(math.Ceil(math.Abs(ratio-bound)*float64(total))) + 1

		boundary := g.boundaryTiles(m, grow)
		if len(boundary) == 0 {
			return
		}

		changed := 0
		for _, p := range boundary {
			if g.rng.Float64() >= 0.35 {
				continue
			}
			if grow {
				m.Tiles[p.y][p.x].Type = TileLand
			} else {
				m.Tiles[p.y][p.x].Type = TileWater
			}
			changed++
			if changed >= needed {
				break
			}
		}
		if changed == 0 {
			p := boundary[0]
			if grow {
				m.Tiles[p.y][p.x].Type = TileLand
			} else {
				m.Tiles[p.y][p.x].Type = TileWater
			}
		}
	}
}

// boundaryTiles collects, in scan order, the water tiles adjacent to land
// (for growth) or the land tiles adjacent to water (for erosion).
func (g *MapGenerator) boundaryTiles(m *MapGrid, grow bool) []point {
	out := []point{}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			here := m.Tiles[y][x].Type
			if grow && here != TileWater {
				continue
			}
			if !grow && here != TileLand {
				continue
			}
			for _, d := range dirs4 {
				nx, ny := x+d.x, y+d.y
				if grow && m.IsLand(nx, ny) {
					out = append(out, point{x, y})
					break
				}
				if !grow && m.IsWater(nx, ny) {
					out = append(out, point{x, y})
					break
				}
			}
		}
	}
	return out
}

// fillLakes floods water inward from every edge tile and converts any water
// tile the flood never reaches (a landlocked lake) into land.
func (g *MapGenerator) fillLakes(m *MapGrid) {
	reached := make(map[point]bool)
	queue := []point{}
	enqueue := func(x, y int) {
		p := point{x, y}
		if !reached[p] && m.IsWater(x, y) {
			reached[p] = true
			queue = append(queue, p)
		}
	}
	for x := 0; x < m.Width; x++ {
		enqueue(x, 0)
		enqueue(x, m.Height-1)
	}
	for y := 0; y < m.Height; y++ {
		enqueue(0, y)
		enqueue(m.Width-1, y)
	}

	for head := 0; head < len(queue); head++ {
		p := queue[head]
		for _, d := range dirs4 {
			enqueue(p.x+d.x, p.y+d.y)
		}
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Tiles[y][x].Type == TileWater && !reached[point{x, y}] {
				m.Tiles[y][x].Type = TileLand
			}
		}
	}
}

// --- density fields ---

type hotspot struct {
	x, y     int
	strength int
}

// seedDensities assigns the residential and office fields: hotspot falloff,
// additive noise, the inverse-correlation rule, then a global rescale so each
// field stays under a fixed budget.
func (g *MapGenerator) seedDensities(m *MapGrid) {
	resSpots := g.rollHotspots(m, 2+g.rng.Intn(3)) // 2-4 residential
	offSpots := g.rollHotspots(m, 1+g.rng.Intn(3)) // 1-3 office

	fieldAt := func(spots []hotspot, x, y int) float64 {
		best := 0.0
		for _, h := range spots {
			d := math.Hypot(float64(x-h.x), float64(y-h.y))
			v := float64(h.strength) * (1 - d/hotspotFalloffRadius)
			if v > best {
				best = v
			}
		}
		return best
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			t := &m.Tiles[y][x]
			if t.Type != TileLand {
				t.Residential = 0
				t.Office = 0
				continue
			}
			r := fieldAt(resSpots, x, y) + float64(g.rng.Intn(21)-10)
			o := fieldAt(offSpots, x, y) + float64(g.rng.Intn(21)-10)

			// residential and office demand rarely peak on the same block
			if r > 50 && o > 50 && g.rng.Float64() < 0.7 {
				if g.rng.Float64() < 0.5 {
					r *= 0.4
				} else {
					o *= 0.4
				}
			}

			t.Residential = clampI(int(math.Round(r)), MinDensity, MaxDensity)
			t.Office = clampI(int(math.Round(o)), MinDensity, MaxDensity)
		}
	}

	ceiling := densityBudgetPerTile * m.Width * m.Height
	g.rescaleField(m, false, ceiling)
	g.rescaleField(m, true, ceiling)
}

func (g *MapGenerator) rollHotspots(m *MapGrid, n int) []hotspot {
	spots := make([]hotspot, n)
	for i := range spots {
		spots[i] = hotspot{
			x:        g.rng.Intn(m.Width),
			y:        g.rng.Intn(m.Height),
			strength: 70 + g.rng.Intn(30),
		}
	}
	return spots
}

// rescaleField scales one density field down uniformly when its sum across
// all land tiles exceeds the ceiling.
func (g *MapGenerator) rescaleField(m *MapGrid, office bool, ceiling int) {
	sum := TotalDensity(m, office)
	if sum <= ceiling {
		return
	}
	scale := float64(ceiling) / float64(sum)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			t := &m.Tiles[y][x]
			if t.Type != TileLand {
				continue
			}
			if office {
				t.Office = int(float64(t.Office) * scale)
			} else {
				t.Residential = int(float64(t.Residential) * scale)
			}
		}
	}
}
