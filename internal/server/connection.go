// Package server drives the TCP side of the game: per-connection state
// machines, the connection registry, the accept loop, and the opcode
// dispatcher. Every type here is safe for its documented callers; World
// and Player Registry access is routed through the Action Queue onto the
// game-loop goroutine.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyewars/tileserver/internal/bufpool"
)

// State is the stage of a Connection's lifecycle.
type State int32

const (
	StateAwaitingHandshake State = iota
	StateLive
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateAwaitingHandshake:
		return "AWAITING_HANDSHAKE"
	case StateLive:
		return "LIVE"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

const maxPingSamples = 5

// Connection drives a single TCP peer. Reads happen on the goroutine that
// runs readLoop (session.go); writes happen on the dedicated writePump goroutine
// started by Start. Rare fields (player id, ping samples) are guarded by
// mu; the state field is atomic for lock-free hot-path reads.
type Connection struct {
	ID           uint64
	conn         net.Conn
	ip           string
	writeTimeout time.Duration

	state atomic.Int32

	protocolViolations atomic.Int32
	maxViolations      int32

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	sendPool *bufpool.Pool

	mu             sync.Mutex
	playerID       uint64
	hasPlayer      bool
	pingSamples    []time.Duration
	lastPingSentAt time.Time
	handshakeTimer *time.Timer
}

// New wraps conn as a Connection with the given id, send-queue depth, and
// per-write deadline. The connection starts in StateAwaitingHandshake.
func New(id uint64, conn net.Conn, sendQueueSize int, writeTimeout time.Duration, sendPool *bufpool.Pool) (*Connection, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("server: splitting remote addr: %w", err)
	}
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	c := &Connection{
		ID:            id,
		conn:          conn,
		ip:            host,
		writeTimeout:  writeTimeout,
		sendCh:        make(chan []byte, sendQueueSize),
		closeCh:       make(chan struct{}),
		sendPool:      sendPool,
		maxViolations: 8,
	}
	c.state.Store(int32(StateAwaitingHandshake))
	return c, nil
}

// IP returns the peer's remote address, host only.
func (c *Connection) IP() string { return c.ip }

// Conn returns the underlying net.Conn.
func (c *Connection) Conn() net.Conn { return c.conn }

// State returns the current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// SetState transitions the connection to s.
func (c *Connection) SetState(s State) { c.state.Store(int32(s)) }

// SetMaxViolations overrides the protocol-violation threshold before
// readLoop starts.
func (c *Connection) SetMaxViolations(n int) { c.maxViolations = int32(n) }

// StrikeViolation records one protocol violation and reports whether the
// connection has now exceeded its threshold and should be closed.
func (c *Connection) StrikeViolation() (overflowed bool) {
	return c.protocolViolations.Add(1) > c.maxViolations
}

// SetPlayerID records the player id created for this connection on login.
func (c *Connection) SetPlayerID(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
	c.hasPlayer = true
}

// PlayerID returns the player id owned by this connection, if any.
func (c *Connection) PlayerID() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID, c.hasPlayer
}

// ArmHandshakeTimeout starts a timer that calls onExpire if the handshake
// has not completed (transitioned away from StateAwaitingHandshake) by d.
func (c *Connection) ArmHandshakeTimeout(d time.Duration, onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handshakeTimer = time.AfterFunc(d, func() {
		if c.State() == StateAwaitingHandshake {
			onExpire()
		}
	})
}

// CancelHandshakeTimeout stops the handshake deadline timer if armed.
func (c *Connection) CancelHandshakeTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handshakeTimer != nil {
		c.handshakeTimer.Stop()
	}
}

// RecordPing stamps the moment a ping was sent, for later RTT computation.
func (c *Connection) RecordPing(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPingSentAt = now
}

// RecordPong computes the RTT against the last recorded ping send time and
// folds it into the bounded sample ring.
func (c *Connection) RecordPong(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastPingSentAt.IsZero() {
		return
	}
	rtt := now.Sub(c.lastPingSentAt)
	c.pingSamples = append(c.pingSamples, rtt)
	if len(c.pingSamples) > maxPingSamples {
		c.pingSamples = c.pingSamples[len(c.pingSamples)-maxPingSamples:]
	}
}

// AveragePing returns the mean of the recorded RTT samples, or zero if
// none have been recorded yet.
func (c *Connection) AveragePing() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pingSamples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range c.pingSamples {
		total += s
	}
	return total / time.Duration(len(c.pingSamples))
}

// Send queues frame for async delivery. Non-blocking: if the queue is
// full, the connection is closed (slow-client disconnect) and an error is
// returned. Send takes ownership of frame; the write pump returns it to
// sendPool after writing.
func (c *Connection) Send(frame []byte) error {
	select {
	case c.sendCh <- frame:
		return nil
	default:
		if c.sendPool != nil {
			c.sendPool.Put(frame)
		}
		slog.Warn("send queue full, disconnecting slow client", "connection_id", c.ID, "ip", c.ip)
		c.CloseAsync()
		return fmt.Errorf("server: send queue full for connection %d", c.ID)
	}
}

// writePump drains sendCh and writes to the socket, batching queued
// packets with net.Buffers when more than one is pending.
func (c *Connection) writePump() {
	bufs := make(net.Buffers, 0, 64)
	pooled := make([][]byte, 0, 64)

	defer func() {
		for {
			select {
			case pkt := <-c.sendCh:
				if c.sendPool != nil {
					c.sendPool.Put(pkt)
				}
			default:
				return
			}
		}
	}()

	for {
		select {
		case pkt, ok := <-c.sendCh:
			if !ok {
				return
			}
			if c.writeTimeout > 0 {
				if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
					if c.sendPool != nil {
						c.sendPool.Put(pkt)
					}
					return
				}
			}

			queued := len(c.sendCh)
			if queued == 0 {
				_, err := c.conn.Write(pkt)
				if c.sendPool != nil {
					c.sendPool.Put(pkt)
				}
				if err != nil {
					return
				}
				continue
			}

			bufs = bufs[:0]
			pooled = pooled[:0]
			bufs = append(bufs, pkt)
			pooled = append(pooled, pkt)
			for range queued {
				p := <-c.sendCh
				bufs = append(bufs, p)
				pooled = append(pooled, p)
			}

			_, err := bufs.WriteTo(c.conn)
			if c.sendPool != nil {
				for _, b := range pooled {
					c.sendPool.Put(b)
				}
			}
			if err != nil {
				return
			}

		case <-c.closeCh:
			return
		}
	}
}

// Start launches the write pump goroutine. Must be called once, before
// the first Send.
func (c *Connection) Start() {
	go c.writePump()
}

// CloseAsync signals the write pump to stop and marks the connection
// Closing, without blocking on socket teardown. Safe to call more than
// once; only the first call has effect.
func (c *Connection) CloseAsync() {
	c.closeOnce.Do(func() {
		c.SetState(StateClosing)
		c.CancelHandshakeTimeout()
		close(c.closeCh)
	})
}

// Close performs an ordered shutdown: signal the write pump, then close
// both halves of the socket.
func (c *Connection) Close() error {
	c.CloseAsync()
	return c.conn.Close()
}
