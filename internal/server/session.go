package server

import (
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/dyewars/tileserver/internal/admission"
	"github.com/dyewars/tileserver/internal/bufpool"
	"github.com/dyewars/tileserver/internal/config"
	"github.com/dyewars/tileserver/internal/gameloop"
	"github.com/dyewars/tileserver/internal/player"
	"github.com/dyewars/tileserver/internal/protocol"
	"github.com/dyewars/tileserver/internal/world"
)

// Deps bundles every shared collaborator a Session needs. Actions, Conns,
// Admission, the pools, and connIDSeq are safe for concurrent use by many
// sessions; World, Players, and the movement/broadcast logic they feed are
// not, and are touched only through Actions, never directly from a session
// goroutine.
type Deps struct {
	World     *world.World
	Players   *player.Registry
	Actions   *gameloop.ActionQueue
	Conns     *Registry
	Admission *admission.Limiter
	ReadPool  *bufpool.Pool
	SendPool  *bufpool.Pool
	Cfg       config.Game

	connIDSeq atomic.Uint64
}

// NextConnID returns the next monotonic connection id, starting from 1.
func (d *Deps) NextConnID() uint64 {
	return d.connIDSeq.Add(1)
}

// ServeConnection owns raw until it is fully torn down: it wraps it as a
// Connection, runs the handshake-then-dispatch read loop, and performs the
// single-shot disconnect cleanup when the loop ends for any reason. The
// caller must already have called Admission.Admit for ip; ServeConnection
// always calls Admission.Release exactly once before returning.
func ServeConnection(deps *Deps, raw net.Conn) {
	id := deps.NextConnID()
	conn, err := New(id, raw, deps.Cfg.SendQueueSize, deps.Cfg.WriteTimeout(), deps.SendPool)
	if err != nil {
		slog.Warn("rejecting connection, bad remote addr", "error", err)
		_ = raw.Close()
		return
	}
	ip := conn.IP()
	if n := deps.Cfg.MaxHeaderViolations; n > 0 {
		conn.SetMaxViolations(n)
	}

	conn.Start()
	deps.Conns.Add(conn)

	conn.ArmHandshakeTimeout(deps.Cfg.HandshakeTimeout(), func() {
		slog.Info("handshake timeout", "connection_id", conn.ID, "ip", ip)
		deps.Admission.Strike(ip, time.Now())
		_ = conn.Close()
	})

	readLoop(deps, conn)

	disconnect(deps, conn)
}

// readLoop consumes frames until the socket errors or the connection is
// closed from elsewhere (handshake timeout, slow-client disconnect, a
// protocol-violation overflow). It never returns an error; all failure
// paths are handled inline per the propagation policy.
func readLoop(deps *Deps, conn *Connection) {
	buf := deps.ReadPool.Get(protocol.HeaderSize + protocol.MaxPayload)
	defer deps.ReadPool.Put(buf)

	for {
		if conn.State() == StateClosing {
			return
		}
		if d := deps.Cfg.ReadTimeout(); d > 0 {
			if err := conn.Conn().SetReadDeadline(time.Now().Add(d)); err != nil {
				return
			}
		}

		payload, err := protocol.ReadFrame(conn.Conn(), buf)
		if err != nil {
			if isFramingError(err) {
				if conn.State() == StateAwaitingHandshake {
					sendRejectAndClose(deps, conn, rejectWrongSize)
					return
				}
				if conn.StrikeViolation() {
					kickAndClose(deps, conn, "too many protocol violations")
					return
				}
				continue
			}
			return
		}

		switch conn.State() {
		case StateAwaitingHandshake:
			handleHandshakeFrame(deps, conn, payload)
			if conn.State() == StateClosing {
				return
			}
		case StateLive:
			dispatch(deps, conn, payload)
			if conn.State() == StateClosing {
				return
			}
		default:
			return
		}
	}
}

func isFramingError(err error) bool {
	return errors.Is(err, protocol.ErrBadMagic) ||
		errors.Is(err, protocol.ErrBadSize) ||
		errors.Is(err, protocol.ErrOverflow)
}

func handleHandshakeFrame(deps *Deps, conn *Connection, payload []byte) {
	outcome := validateHandshake(payload)
	if !outcome.ok {
		sendRejectAndClose(deps, conn, outcome.reason)
		return
	}

	conn.CancelHandshakeTimeout()
	conn.SetState(StateLive)

	scratch := deps.SendPool.Get(protocol.HeaderSize + 16)
	body := encodeHandshakeAccepted(scratch[protocol.HeaderSize:protocol.HeaderSize])
	frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body)
	if err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}

	connID := conn.ID
	ip := conn.IP()
	deps.Actions.Push(func() {
		onLogin(deps, connID, ip)
	})
}

func sendRejectAndClose(deps *Deps, conn *Connection, reason handshakeRejectReason) {
	deps.Admission.Strike(conn.IP(), time.Now())
	scratch := deps.SendPool.Get(protocol.HeaderSize + 260)
	body := encodeHandshakeRejected(scratch[protocol.HeaderSize:protocol.HeaderSize], reason)
	if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}
	conn.CloseAsync()
}

func kickAndClose(deps *Deps, conn *Connection, reason string) {
	scratch := deps.SendPool.Get(protocol.HeaderSize + 260)
	body := protocol.EncodeKickNotification(scratch[protocol.HeaderSize:protocol.HeaderSize], reason)
	if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}
	conn.CloseAsync()
}

// onLogin runs on the game-loop goroutine: it creates the player, seeds it
// into the world, and sends the Welcome + initial visible-player snapshot.
func onLogin(deps *Deps, connID uint64, ip string) {
	const spawnX, spawnY = 0, 0
	p, err := deps.Players.Create(connID, spawnX, spawnY, player.FacingSouth)
	if err != nil {
		return
	}
	deps.World.AddPlayer(p.ID, p.X, p.Y)

	conn, ok := deps.Conns.Get(connID)
	if !ok {
		deps.World.RemovePlayer(p.ID)
		deps.Players.RemoveByPlayerID(p.ID)
		return
	}
	conn.SetPlayerID(p.ID)

	visible := deps.World.PlayersInRange(p.X, p.Y)
	deps.World.Visibility.Initialize(p.ID, excluding(visible, p.ID))

	entries := make([]protocol.SpatialEntry, 0, len(visible))
	for _, id := range visible {
		x, y, ok := deps.World.PositionOf(id)
		if !ok {
			continue
		}
		facing := uint8(player.FacingSouth)
		if other, ok := deps.Players.ByID(id); ok {
			facing = uint8(other.Facing)
		}
		entries = append(entries, protocol.SpatialEntry{PlayerID: id, X: uint16(x), Y: uint16(y), Facing: facing})
	}

	sendWelcome(deps, conn, p)
	sendBatches(deps, conn, entries)

	for _, viewerID := range visible {
		if viewerID == p.ID {
			continue
		}
		announceNewPlayer(deps, viewerID, p)
	}
}

func excluding(ids []uint64, self uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

func sendWelcome(deps *Deps, conn *Connection, p *player.Player) {
	scratch := deps.SendPool.Get(protocol.HeaderSize + 16)
	body := protocol.EncodeWelcome(scratch[protocol.HeaderSize:protocol.HeaderSize], uint32(p.ID), uint16(p.X), uint16(p.Y), uint8(p.Facing))
	if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}
}

func sendBatches(deps *Deps, conn *Connection, entries []protocol.SpatialEntry) {
	for len(entries) > 0 {
		n := len(entries)
		if n > protocol.MaxBatchEntries {
			n = protocol.MaxBatchEntries
		}
		chunk := entries[:n]
		entries = entries[n:]

		scratch := deps.SendPool.Get(protocol.HeaderSize + 2 + n*13)
		body := protocol.EncodeBatchPlayerSpatial(scratch[protocol.HeaderSize:protocol.HeaderSize], chunk)
		if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
			_ = conn.Send(frame)
		} else {
			deps.SendPool.Put(scratch)
		}
	}
}

func announceNewPlayer(deps *Deps, viewerID uint64, subject *player.Player) {
	viewerPlayer, ok := deps.Players.ByID(viewerID)
	if !ok {
		return
	}
	conn, ok := deps.Conns.Get(viewerPlayer.OwningConnectionID)
	if !ok {
		return
	}
	entry := []protocol.SpatialEntry{{PlayerID: subject.ID, X: uint16(subject.X), Y: uint16(subject.Y), Facing: uint8(subject.Facing)}}
	sendBatches(deps, conn, entry)
	deps.World.Visibility.AddKnown(viewerID, subject.ID)
}

// disconnect performs the single-shot teardown for conn, regardless of
// whether it ever completed the handshake: release the admission slot,
// remove the connection from the registry, close the socket, and — if a
// player existed — post the game-thread removal action.
func disconnect(deps *Deps, conn *Connection) {
	conn.CloseAsync()
	deps.Conns.Remove(conn.ID)
	_ = conn.Close()
	deps.Admission.Release(conn.IP())

	connID := conn.ID
	deps.Actions.Push(func() {
		onDisconnect(deps, connID)
	})
}

func onDisconnect(deps *Deps, connID uint64) {
	pl, ok := deps.Players.ByConnectionID(connID)
	if !ok {
		return
	}
	observers := deps.World.PlayersInRange(pl.X, pl.Y)
	for _, viewerID := range observers {
		if viewerID == pl.ID {
			continue
		}
		notifyLeftGame(deps, viewerID, pl.ID)
	}
	deps.World.RemovePlayer(pl.ID)
	deps.Players.RemoveByConnectionID(connID)
}

func notifyLeftGame(deps *Deps, viewerID, leaverID uint64) {
	viewerPlayer, ok := deps.Players.ByID(viewerID)
	if !ok {
		return
	}
	conn, ok := deps.Conns.Get(viewerPlayer.OwningConnectionID)
	if !ok {
		return
	}
	scratch := deps.SendPool.Get(protocol.HeaderSize + 8)
	body := protocol.EncodeLeftGame(scratch[protocol.HeaderSize:protocol.HeaderSize], uint32(leaverID))
	if frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body); err == nil {
		_ = conn.Send(frame)
	} else {
		deps.SendPool.Put(scratch)
	}
}
