package server

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dyewars/tileserver/internal/admission"
	"github.com/dyewars/tileserver/internal/bufpool"
	"github.com/dyewars/tileserver/internal/config"
	"github.com/dyewars/tileserver/internal/gameloop"
	"github.com/dyewars/tileserver/internal/player"
	"github.com/dyewars/tileserver/internal/protocol"
	"github.com/dyewars/tileserver/internal/world"
)

func newTestDeps() *Deps {
	cfg := config.DefaultGame()
	cfg.HandshakeTimeoutMS = 2000
	return &Deps{
		World:     world.New(64, 64, 21, 10),
		Players:   player.NewRegistry(),
		Actions:   gameloop.NewActionQueue(),
		Conns:     NewRegistry(),
		Admission: admission.New(admission.Config{}),
		ReadPool:  bufpool.New(protocol.HeaderSize + protocol.MaxPayload),
		SendPool:  bufpool.New(256),
		Cfg:       cfg,
	}
}

func writeFrame(t *testing.T, conn interface {
	Write([]byte) (int, error)
}, payload []byte) {
	t.Helper()
	var hdr [protocol.HeaderSize]byte
	require.NoError(t, protocol.PutHeader(hdr[:], len(payload)))
	_, err := conn.Write(hdr[:])
	require.NoError(t, err)
	_, err = conn.Write(payload)
	require.NoError(t, err)
}

func readFrame(t *testing.T, conn interface {
	Read([]byte) (int, error)
}) []byte {
	t.Helper()
	buf := make([]byte, protocol.HeaderSize+protocol.MaxPayload)
	payload, err := protocol.ReadFrame(readerFunc(conn.Read), buf)
	require.NoError(t, err)
	out := make([]byte, len(payload))
	copy(out, payload)
	return out
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func TestServeConnectionHandshakeAndLogin(t *testing.T) {
	deps := newTestDeps()
	client, srv := pipeWithAddr(t, "203.0.113.5")

	done := make(chan struct{})
	go func() {
		ServeConnection(deps, srv)
		close(done)
	}()

	writeFrame(t, client, validHandshakePayload())

	accepted := readFrame(t, client)
	require.Equal(t, byte(protocol.OpHandshakeAccepted), accepted[0])

	for _, action := range deps.Actions.DrainInto() {
		action()
	}
	require.Equal(t, 1, deps.Players.Count())

	welcome := readFrame(t, client)
	require.Equal(t, byte(protocol.OpWelcome), welcome[0])

	batch := readFrame(t, client)
	require.Equal(t, byte(protocol.OpBatchPlayerSpatial), batch[0])

	_ = client.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeConnection did not return after client close")
	}
}

func TestOnLoginIncludesSelfAndExistingPlayerWithoutDuplication(t *testing.T) {
	deps := newTestDeps()

	clientA, srvA := pipeWithAddr(t, "203.0.113.20")
	connA, err := New(deps.NextConnID(), srvA, 8, time.Second, deps.SendPool)
	require.NoError(t, err)
	connA.Start()
	defer connA.Close()
	connA.SetState(StateLive)
	deps.Conns.Add(connA)
	onLogin(deps, connA.ID, "203.0.113.20")

	// Drain A's own Welcome + initial (self-only) batch before B logs in.
	_ = readFrame(t, clientA)
	_ = readFrame(t, clientA)

	clientB, srvB := pipeWithAddr(t, "203.0.113.21")
	connB, err := New(deps.NextConnID(), srvB, 8, time.Second, deps.SendPool)
	require.NoError(t, err)
	connB.Start()
	defer connB.Close()
	connB.SetState(StateLive)
	deps.Conns.Add(connB)
	onLogin(deps, connB.ID, "203.0.113.21")

	_ = readFrame(t, clientB) // Welcome
	batch := readFrame(t, clientB)
	require.Equal(t, byte(protocol.OpBatchPlayerSpatial), batch[0])

	count := int(batch[1])
	seen := make(map[uint64]struct{}, count)
	for i := 0; i < count; i++ {
		off := 2 + i*13
		id := binary.BigEndian.Uint64(batch[off : off+8])
		_, dup := seen[id]
		require.False(t, dup, "player id %d appeared twice in self-inclusive batch", id)
		seen[id] = struct{}{}
	}

	playerA, ok := deps.Players.ByConnectionID(connA.ID)
	require.True(t, ok)
	playerB, ok := deps.Players.ByConnectionID(connB.ID)
	require.True(t, ok)

	require.Contains(t, seen, playerA.ID, "self-inclusive batch must still include the other player")
	require.Contains(t, seen, playerB.ID, "self-inclusive batch must include self")
	require.Len(t, seen, 2)

	// A should also have been told about B joining.
	announce := readFrame(t, clientA)
	require.Equal(t, byte(protocol.OpBatchPlayerSpatial), announce[0])
}

func TestServeConnectionRejectsVersionMismatch(t *testing.T) {
	deps := newTestDeps()
	client, srv := pipeWithAddr(t, "203.0.113.6")

	done := make(chan struct{})
	go func() {
		ServeConnection(deps, srv)
		close(done)
	}()

	w := protocol.NewWriter(nil)
	w.U8(uint8(protocol.OpHandshakeRequest))
	w.U16(0x0002)
	w.U32(protocol.ClientMagic)
	writeFrame(t, client, w.Bytes())

	rejected := readFrame(t, client)
	require.Equal(t, byte(protocol.OpHandshakeRejected), rejected[0])

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeConnection did not return after rejection")
	}
}
