package world

// cellKey packs a cell's (cx,cy) coordinates into one map key.
type cellKey int64

func packCell(cx, cy int32) cellKey {
	return cellKey(int64(cx)<<32 | int64(uint32(cy)))
}

// SpatialIndex is a grid-cell hash over moving entities, letting a range
// query touch only the handful of cells that could contain a neighbor
// instead of scanning every entity. cell_size is chosen near the view
// diameter so a typical query touches at most 9 cells.
//
// Game-thread only: every method assumes single-threaded access.
type SpatialIndex struct {
	cellSize   int
	cells      map[cellKey]map[uint64]struct{}
	entityCell map[uint64]cellKey
}

// NewSpatialIndex constructs an index with the given cell size in tiles.
func NewSpatialIndex(cellSize int) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &SpatialIndex{
		cellSize:   cellSize,
		cells:      make(map[cellKey]map[uint64]struct{}),
		entityCell: make(map[uint64]cellKey),
	}
}

func (s *SpatialIndex) cellOf(x, y int) cellKey {
	cx := floorDiv(x, s.cellSize)
	cy := floorDiv(y, s.cellSize)
	return packCell(int32(cx), int32(cy))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Add inserts id at (x,y). Calling Add for an id already present moves it,
// equivalent to Update.
func (s *SpatialIndex) Add(id uint64, x, y int) {
	if old, ok := s.entityCell[id]; ok {
		s.removeFromCell(old, id)
	}
	key := s.cellOf(x, y)
	s.insertIntoCell(key, id)
	s.entityCell[id] = key
}

// Remove deletes id from the index. It is a no-op if id is not present.
func (s *SpatialIndex) Remove(id uint64) {
	key, ok := s.entityCell[id]
	if !ok {
		return
	}
	s.removeFromCell(key, id)
	delete(s.entityCell, id)
}

// Update moves id to (x,y), returning true iff it changed cells (the fast
// path for intra-cell movement is signaled by a false return, letting
// callers skip downstream visibility recompute when nothing could change).
func (s *SpatialIndex) Update(id uint64, x, y int) bool {
	newKey := s.cellOf(x, y)
	oldKey, ok := s.entityCell[id]
	if ok && oldKey == newKey {
		return false
	}
	if ok {
		s.removeFromCell(oldKey, id)
	}
	s.insertIntoCell(newKey, id)
	s.entityCell[id] = newKey
	return true
}

func (s *SpatialIndex) insertIntoCell(key cellKey, id uint64) {
	set := s.cells[key]
	if set == nil {
		set = make(map[uint64]struct{})
		s.cells[key] = set
	}
	set[id] = struct{}{}
}

func (s *SpatialIndex) removeFromCell(key cellKey, id uint64) {
	set := s.cells[key]
	if set == nil {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.cells, key)
	}
}

// NearbyIDs returns every entity id in cells that could contain a point
// within range of (x,y) — a coarse filter; callers must still apply the
// exact distance test.
func (s *SpatialIndex) NearbyIDs(x, y, rng int) []uint64 {
	cx := floorDiv(x, s.cellSize)
	cy := floorDiv(y, s.cellSize)
	reach := rng/s.cellSize + 1

	var out []uint64
	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			ncx := cx + dx
			ncy := cy + dy
			key := packCell(int32(ncx), int32(ncy))
			for id := range s.cells[key] {
				out = append(out, id)
			}
		}
	}
	return out
}

// IsEntityAt reports whether some entity other than exclude occupies
// exactly (x,y). positionOf must return the current position for an id.
func (s *SpatialIndex) IsEntityAt(x, y int, exclude uint64, positionOf func(uint64) (int, int)) bool {
	for _, id := range s.NearbyIDs(x, y, 0) {
		if id == exclude {
			continue
		}
		px, py := positionOf(id)
		if px == x && py == y {
			return true
		}
	}
	return false
}

// Len returns the number of distinct entities currently indexed.
func (s *SpatialIndex) Len() int {
	return len(s.entityCell)
}
