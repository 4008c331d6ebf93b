package server

import (
	"time"

	"github.com/dyewars/tileserver/internal/gameloop"
	"github.com/dyewars/tileserver/internal/player"
	"github.com/dyewars/tileserver/internal/protocol"
)

// dispatch routes one payload from a Live connection. Direction is checked
// first: a client sending a server-only opcode is a protocol violation
// regardless of which handler (if any) would otherwise run it.
func dispatch(deps *Deps, conn *Connection, payload []byte) {
	if len(payload) == 0 {
		strikeOrKick(deps, conn, "empty payload")
		return
	}
	op := protocol.Opcode(payload[0])
	body := payload[1:]

	if protocol.DirectionOf(op) == protocol.DirServerToClient {
		strikeOrKick(deps, conn, "wrong-direction opcode")
		return
	}
	if protocol.IsReserved(op) {
		return
	}

	switch op {
	case protocol.OpMoveRequest:
		handleMove(deps, conn, body)
	case protocol.OpTurnRequest:
		handleTurn(deps, conn, body)
	case protocol.OpPongResponse:
		handlePong(conn, body)
	case protocol.OpHeartbeatRequest:
		handleHeartbeat(deps, conn)
	case protocol.OpDisconnectRequest:
		handleDisconnectRequest(deps, conn)
	default:
		strikeOrKick(deps, conn, "unhandled client opcode")
	}
}

func strikeOrKick(deps *Deps, conn *Connection, reason string) {
	if conn.StrikeViolation() {
		kickAndClose(deps, conn, reason)
	}
}

func handleMove(deps *Deps, conn *Connection, body []byte) {
	direction, facing, err := protocol.DecodeMoveRequest(body)
	if err != nil {
		strikeOrKick(deps, conn, "malformed move request")
		return
	}
	connID := conn.ID
	deps.Actions.Push(func() {
		applyMoveAction(deps, connID, player.Facing(direction), player.Facing(facing))
	})
}

func applyMoveAction(deps *Deps, connID uint64, direction, clientFacing player.Facing) {
	p, ok := deps.Players.ByConnectionID(connID)
	if !ok {
		return
	}
	err := gameloop.ApplyMove(deps.World, deps.Players, p, direction, clientFacing, deps.Cfg.MoveCooldown(), time.Now())
	if err == nil {
		return
	}
	conn, ok := deps.Conns.Get(connID)
	if !ok {
		return
	}
	if err == gameloop.ErrWrongFacing {
		sendFacingCorrection(deps, conn, p.Facing)
		return
	}
	sendPositionCorrection(deps, conn, p)
}

func handleTurn(deps *Deps, conn *Connection, body []byte) {
	direction, err := protocol.DecodeTurnRequest(body)
	if err != nil {
		strikeOrKick(deps, conn, "malformed turn request")
		return
	}
	connID := conn.ID
	deps.Actions.Push(func() {
		applyTurnAction(deps, connID, player.Facing(direction))
	})
}

func applyTurnAction(deps *Deps, connID uint64, direction player.Facing) {
	p, ok := deps.Players.ByConnectionID(connID)
	if !ok {
		return
	}
	err := gameloop.ApplyTurn(deps.Players, p, direction, deps.Cfg.TurnCooldown(), time.Now())
	if err == nil {
		return
	}
	conn, ok := deps.Conns.Get(connID)
	if !ok {
		return
	}
	sendFacingCorrection(deps, conn, p.Facing)
}

func sendFacingCorrection(deps *Deps, conn *Connection, facing player.Facing) {
	scratch := deps.SendPool.Get(protocol.HeaderSize + 8)
	body := protocol.EncodeFacingCorrection(scratch[protocol.HeaderSize:protocol.HeaderSize], uint8(facing))
	if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}
}

func sendPositionCorrection(deps *Deps, conn *Connection, p *player.Player) {
	scratch := deps.SendPool.Get(protocol.HeaderSize + 8)
	body := protocol.EncodePositionCorrection(scratch[protocol.HeaderSize:protocol.HeaderSize], uint16(p.X), uint16(p.Y), uint8(p.Facing))
	if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}
}

func handlePong(conn *Connection, body []byte) {
	if _, err := protocol.DecodePongResponse(body); err != nil {
		return
	}
	conn.RecordPong(time.Now())
}

func handleHeartbeat(deps *Deps, conn *Connection) {
	scratch := deps.SendPool.Get(protocol.HeaderSize + 4)
	body := protocol.EncodeHeartbeatResponse(scratch[protocol.HeaderSize:protocol.HeaderSize])
	if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}
}

func handleDisconnectRequest(deps *Deps, conn *Connection) {
	scratch := deps.SendPool.Get(protocol.HeaderSize + 4)
	body := protocol.EncodeDisconnectAck(scratch[protocol.HeaderSize:protocol.HeaderSize])
	if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}
	conn.CloseAsync()
}
