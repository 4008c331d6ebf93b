// Package player owns the Player entity and its registry: lifecycle,
// connection↔player mapping, and the per-tick dirty set. Game-thread only.
package player

import "time"

// Facing is one of the four cardinal directions a player can face.
type Facing uint8

const (
	FacingNorth Facing = iota
	FacingEast
	FacingSouth
	FacingWest
)

// Valid reports whether f is one of the four defined directions.
func (f Facing) Valid() bool {
	return f <= FacingWest
}

// Player is a live entity owned by a single connection.
type Player struct {
	ID                 uint64
	OwningConnectionID uint64

	X, Y   int
	Facing Facing

	LastMoveAt time.Time
	LastTurnAt time.Time
}
