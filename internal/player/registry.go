package player

import (
	"errors"
	"math/rand/v2"
)

// ErrDuplicateLogin is returned by Create when the given connection id
// already owns a player.
var ErrDuplicateLogin = errors.New("player: connection already has a player")

// Registry owns every live Player, keyed by player id, plus the
// connection↔player bijection and the per-tick dirty set. Game-thread only.
type Registry struct {
	players      map[uint64]*Player
	connToPlayer map[uint64]uint64
	playerToConn map[uint64]uint64
	dirty        map[uint64]struct{}

	nextSequential uint64
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		players:      make(map[uint64]*Player),
		connToPlayer: make(map[uint64]uint64),
		playerToConn: make(map[uint64]uint64),
		dirty:        make(map[uint64]struct{}),
	}
}

// Create allocates a new Player for connID at (x,y) facing f, rejecting
// the call if connID already owns a player.
func (r *Registry) Create(connID uint64, x, y int, f Facing) (*Player, error) {
	if _, ok := r.connToPlayer[connID]; ok {
		return nil, ErrDuplicateLogin
	}

	id := r.generateID()
	p := &Player{
		ID:                 id,
		OwningConnectionID: connID,
		X:                  x,
		Y:                  y,
		Facing:             f,
	}
	r.players[id] = p
	r.connToPlayer[connID] = id
	r.playerToConn[id] = connID
	return p, nil
}

// generateID draws a high-entropy id, retrying on an (astronomically
// unlikely) collision and falling back to a monotonic sequence if the
// random space is ever exhausted in a way that makes collisions common —
// in practice the loop below always terminates on its first iteration.
//
// The draw is masked to 32 bits even though the field is uint64: Welcome
// and Left_Game encode player_id as u32, so every id handed out here must
// fit in 32 bits for those encoders to round-trip it losslessly.
func (r *Registry) generateID() uint64 {
	for i := 0; i < 8; i++ {
		id := uint64(rand.Uint32())
		if id == 0 {
			continue
		}
		if _, exists := r.players[id]; !exists {
			return id
		}
	}
	for {
		r.nextSequential++
		id := r.nextSequential % (1 << 32)
		if id == 0 {
			continue
		}
		if _, exists := r.players[id]; !exists {
			return id
		}
	}
}

// ByID returns the player with the given id, if any.
func (r *Registry) ByID(id uint64) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

// ByConnectionID returns the player owned by connID, if any.
func (r *Registry) ByConnectionID(connID uint64) (*Player, bool) {
	id, ok := r.connToPlayer[connID]
	if !ok {
		return nil, false
	}
	return r.players[id], true
}

// RemoveByPlayerID removes the player (and its connection mapping and
// dirty flag) for id. Returns the removed player, or nil if not found.
func (r *Registry) RemoveByPlayerID(id uint64) *Player {
	p, ok := r.players[id]
	if !ok {
		return nil
	}
	delete(r.players, id)
	delete(r.connToPlayer, p.OwningConnectionID)
	delete(r.playerToConn, id)
	delete(r.dirty, id)
	return p
}

// RemoveByConnectionID removes the player owned by connID, if any.
func (r *Registry) RemoveByConnectionID(connID uint64) *Player {
	id, ok := r.connToPlayer[connID]
	if !ok {
		return nil
	}
	return r.RemoveByPlayerID(id)
}

// MarkDirty records that id's observable state changed this tick.
func (r *Registry) MarkDirty(id uint64) {
	r.dirty[id] = struct{}{}
}

// ConsumeDirty returns the current dirty set as a slice and atomically
// (within the single game-thread caller) clears it.
func (r *Registry) ConsumeDirty() []uint64 {
	if len(r.dirty) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(r.dirty))
	for id := range r.dirty {
		out = append(out, id)
	}
	r.dirty = make(map[uint64]struct{})
	return out
}

// Count returns the number of live players.
func (r *Registry) Count() int {
	return len(r.players)
}
