package world

// World owns the Tile Map, Spatial Index, and Visibility Tracker, and
// exposes the range/view queries the game loop needs each tick. Every
// method is game-thread only.
type World struct {
	Tiles      *TileMap
	Spatial    *SpatialIndex
	Visibility *VisibilityTracker

	viewRange int
	positions map[uint64][2]int // player_id -> (x,y), mirrors Spatial for exact distance checks
}

// New constructs a World over a width×height tile map, a spatial index
// cell-sized near the view diameter, and an empty visibility tracker.
func New(width, height, cellSize, viewRange int) *World {
	return &World{
		Tiles:      NewTileMap(width, height),
		Spatial:    NewSpatialIndex(cellSize),
		Visibility: NewVisibilityTracker(),
		viewRange:  viewRange,
		positions:  make(map[uint64][2]int),
	}
}

// ViewRange returns the configured view radius in tiles.
func (w *World) ViewRange() int {
	return w.viewRange
}

// AddPlayer inserts id at (x,y) into the spatial index and position table.
func (w *World) AddPlayer(id uint64, x, y int) {
	w.Spatial.Add(id, x, y)
	w.positions[id] = [2]int{x, y}
}

// RemovePlayer removes id from the spatial index, position table, and
// visibility tracker (both directions).
func (w *World) RemovePlayer(id uint64) {
	w.Spatial.Remove(id)
	delete(w.positions, id)
	w.Visibility.RemovePlayer(id)
}

// UpdatePlayerPosition moves id to (x,y), returning true iff it changed
// spatial-index cells.
func (w *World) UpdatePlayerPosition(id uint64, x, y int) bool {
	w.positions[id] = [2]int{x, y}
	return w.Spatial.Update(id, x, y)
}

// PlayerIDsInRange returns every player id within the Chebyshev range of
// (x,y), excluding none by default (callers exclude self themselves).
func (w *World) PlayerIDsInRange(x, y, rng int) []uint64 {
	candidates := w.Spatial.NearbyIDs(x, y, rng)
	out := candidates[:0]
	for _, id := range candidates {
		pos, ok := w.positions[id]
		if !ok {
			continue
		}
		if chebyshev(x, y, pos[0], pos[1]) <= rng {
			out = append(out, id)
		}
	}
	return out
}

// PlayersInRange is PlayerIDsInRange using the World's configured view range.
func (w *World) PlayersInRange(x, y int) []uint64 {
	return w.PlayerIDsInRange(x, y, w.viewRange)
}

// PositionOf returns the last known position for id.
func (w *World) PositionOf(id uint64) (x, y int, ok bool) {
	pos, ok := w.positions[id]
	if !ok {
		return 0, 0, false
	}
	return pos[0], pos[1], true
}

// CanSee reports whether a and b are within the configured view range of
// each other.
func (w *World) CanSee(a, b uint64) bool {
	ax, ay, ok := w.PositionOf(a)
	if !ok {
		return false
	}
	bx, by, ok := w.PositionOf(b)
	if !ok {
		return false
	}
	return w.IsInView(ax, ay, bx, by)
}

// IsInView reports whether (x2,y2) is within the configured view range of
// (x1,y1) under the Chebyshev (rectangular) distance metric.
func (w *World) IsInView(x1, y1, x2, y2 int) bool {
	return chebyshev(x1, y1, x2, y2) <= w.viewRange
}

func chebyshev(x1, y1, x2, y2 int) int {
	dx := abs(x1 - x2)
	dy := abs(y1 - y2)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
