// Package world owns the authoritative game state touched only by the
// game-loop goroutine: the tile map, the spatial index over moving
// entities, and the bidirectional visibility tracker.
//
// Every exported method on the types in this package is game-thread
// only: no internal locking is used on the hot path, by design. Callers
// from IO goroutines must route through the action queue instead.
package world

// TileKind identifies the terrain at one map cell.
type TileKind uint8

const (
	TileGround TileKind = iota
	TileWater
	TileWall
	TileVoid // returned for out-of-bounds reads; always blocking
)

// IsBlocking reports whether kind prevents a player from standing on it,
// absent any per-cell override.
func (k TileKind) IsBlocking() bool {
	switch k {
	case TileWater, TileWall, TileVoid:
		return true
	default:
		return false
	}
}

// TileMap is an immutable-shape 2D grid of tile kinds with a parallel
// blocking bitmap. Dimensions never change after construction; individual
// tiles may be repainted (rare, game-thread only).
type TileMap struct {
	width, height int
	tiles         []TileKind
	blocking      []bool
}

// NewTileMap allocates a width×height map filled with TileGround and a
// border of TileWall around the outside.
func NewTileMap(width, height int) *TileMap {
	m := &TileMap{
		width:    width,
		height:   height,
		tiles:    make([]TileKind, width*height),
		blocking: make([]bool, width*height),
	}
	m.CreateBorder(TileWall)
	return m
}

// Width returns the map's fixed width.
func (m *TileMap) Width() int { return m.width }

// Height returns the map's fixed height.
func (m *TileMap) Height() int { return m.height }

// InBounds reports whether (x,y) lies within the map.
func (m *TileMap) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

func (m *TileMap) index(x, y int) int {
	return y*m.width + x
}

// Get returns the tile kind at (x,y), or TileVoid if out of bounds.
func (m *TileMap) Get(x, y int) TileKind {
	if !m.InBounds(x, y) {
		return TileVoid
	}
	return m.tiles[m.index(x, y)]
}

// IsBlocking reports whether (x,y) blocks player movement, consulting the
// blocking bitmap (which may have been overridden independently of the
// tile kind) rather than recomputing from the tile kind directly.
func (m *TileMap) IsBlocking(x, y int) bool {
	if !m.InBounds(x, y) {
		return true
	}
	return m.blocking[m.index(x, y)]
}

// Set paints the tile at (x,y) and recomputes its blocking bit from the
// new kind. Out-of-bounds calls are a no-op.
func (m *TileMap) Set(x, y int, kind TileKind) {
	if !m.InBounds(x, y) {
		return
	}
	i := m.index(x, y)
	m.tiles[i] = kind
	m.blocking[i] = kind.IsBlocking()
}

// SetBlockingOverride forces the blocking bit at (x,y) independent of the
// tile kind stored there (e.g. a scripted obstacle on ground terrain).
func (m *TileMap) SetBlockingOverride(x, y int, blocking bool) {
	if !m.InBounds(x, y) {
		return
	}
	m.blocking[m.index(x, y)] = blocking
}

// FillRegion paints every tile in [x0,x1]×[y0,y1] (inclusive) with kind,
// clamped to map bounds.
func (m *TileMap) FillRegion(x0, y0, x1, y1 int, kind TileKind) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := max(y0, 0); y <= min(y1, m.height-1); y++ {
		for x := max(x0, 0); x <= min(x1, m.width-1); x++ {
			m.Set(x, y, kind)
		}
	}
}

// CreateBorder paints a one-tile-thick border of kind around the map edge.
func (m *TileMap) CreateBorder(kind TileKind) {
	for x := 0; x < m.width; x++ {
		m.Set(x, 0, kind)
		m.Set(x, m.height-1, kind)
	}
	for y := 0; y < m.height; y++ {
		m.Set(0, y, kind)
		m.Set(m.width-1, y, kind)
	}
}

// RecalculateBlocking rebuilds the entire blocking bitmap from tile kinds,
// discarding any per-cell overrides.
func (m *TileMap) RecalculateBlocking() {
	for i, k := range m.tiles {
		m.blocking[i] = k.IsBlocking()
	}
}

// DumpAll returns a copy of the full tile grid, row-major.
func (m *TileMap) DumpAll() []TileKind {
	out := make([]TileKind, len(m.tiles))
	copy(out, m.tiles)
	return out
}

// DumpRegion returns a copy of the tiles in [x0,x1]×[y0,y1] (inclusive),
// row-major, with out-of-bounds cells reported as TileVoid.
func (m *TileMap) DumpRegion(x0, y0, x1, y1 int) []TileKind {
	w := x1 - x0 + 1
	h := y1 - y0 + 1
	if w <= 0 || h <= 0 {
		return nil
	}
	out := make([]TileKind, 0, w*h)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			out = append(out, m.Get(x, y))
		}
	}
	return out
}

// DumpView returns the (2r+1)² square centered on (cx,cy), clipped to map
// bounds by reporting TileVoid outside them.
func (m *TileMap) DumpView(cx, cy, radius int) []TileKind {
	return m.DumpRegion(cx-radius, cy-radius, cx+radius, cy+radius)
}
