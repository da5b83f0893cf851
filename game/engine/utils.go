package engine

import "math"

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sign returns -1, 0 or 1 for negative, zero or positive x
func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	default:
		return 0
	}
}

// clampF clamps v into [lo, hi]
func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampI clamps v into [lo, hi]
func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ManhattanDistance calculates the Manhattan distance between two vertices
func ManhattanDistance(from, to Vertex) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// EuclideanDistance calculates the straight-line distance between two vertices
func EuclideanDistance(from, to Vertex) float64 {
	return math.Hypot(float64(to.X-from.X), float64(to.Y-from.Y))
}

// mod returns the positive remainder of a/n, safe for negative a
func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// CountTileType counts the tiles of a given type in the grid
func CountTileType(m *MapGrid, tt TileType) int {
	count := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Tiles[y][x].Type == tt {
				count++
			}
		}
	}
	return count
}

// TotalDensity sums one density field across all land tiles
func TotalDensity(m *MapGrid, office bool) int {
	total := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			t := m.Tiles[y][x]
			if t.Type != TileLand {
				continue
			}
			if office {
				total += t.Office
			} else {
				total += t.Residential
			}
		}
	}
	return total
}
