package gameloop

import (
	"errors"
	"time"

	"github.com/dyewars/tileserver/internal/player"
	"github.com/dyewars/tileserver/internal/world"
)

// Movement rejection reasons. Each is silent to other peers; the
// offending client gets a best-effort correction packet where applicable.
var (
	ErrInvalidDirection = errors.New("gameloop: invalid direction")
	ErrOnCooldown       = errors.New("gameloop: move on cooldown")
	ErrWrongFacing      = errors.New("gameloop: wrong facing")
	ErrBlocked          = errors.New("gameloop: target tile blocked")
	ErrUnchangedFacing  = errors.New("gameloop: turn direction unchanged")
)

// dx/dy per facing direction, North=+y, East=+x, South=-y, West=-x.
var directionDelta = [4][2]int{
	player.FacingNorth: {0, 1},
	player.FacingEast:  {1, 0},
	player.FacingSouth: {0, -1},
	player.FacingWest:  {-1, 0},
}

// ApplyMove validates and, on success, applies a move request for p
// against w, per the movement authorization rules: direction validity,
// cooldown, facing match, bounds, and blocking. On success the spatial
// index and dirty set are updated; on failure p is left untouched.
func ApplyMove(w *world.World, registry *player.Registry, p *player.Player, direction, clientFacing player.Facing, cooldown time.Duration, now time.Time) error {
	if !direction.Valid() {
		return ErrInvalidDirection
	}
	if now.Sub(p.LastMoveAt) < cooldown {
		return ErrOnCooldown
	}
	if direction != p.Facing || clientFacing != p.Facing {
		return ErrWrongFacing
	}

	delta := directionDelta[direction]
	targetX := p.X + delta[0]
	targetY := p.Y + delta[1]

	if !w.Tiles.InBounds(targetX, targetY) || w.Tiles.IsBlocking(targetX, targetY) {
		return ErrBlocked
	}

	p.X = targetX
	p.Y = targetY
	p.LastMoveAt = now
	w.UpdatePlayerPosition(p.ID, targetX, targetY)
	registry.MarkDirty(p.ID)
	return nil
}

// ApplyTurn validates and, on success, applies a turn request for p.
func ApplyTurn(registry *player.Registry, p *player.Player, direction player.Facing, cooldown time.Duration, now time.Time) error {
	if !direction.Valid() {
		return ErrInvalidDirection
	}
	if direction == p.Facing {
		return ErrUnchangedFacing
	}
	if now.Sub(p.LastTurnAt) < cooldown {
		return ErrOnCooldown
	}

	p.Facing = direction
	p.LastTurnAt = now
	registry.MarkDirty(p.ID)
	return nil
}
