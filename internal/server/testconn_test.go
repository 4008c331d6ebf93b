package server

import (
	"net"
	"testing"

	"github.com/dyewars/tileserver/internal/testutil"
)

// addrConn wraps a net.Pipe endpoint with a fake host:port RemoteAddr, since
// net.Pipe's own addresses don't parse as host:port.
type addrConn struct {
	net.Conn
	remote net.Addr
}

func (c addrConn) RemoteAddr() net.Addr { return c.remote }

// pipeWithAddr returns a client/server pipe pair where the server side
// reports remoteIP as its RemoteAddr host.
func pipeWithAddr(t testing.TB, remoteIP string) (client, srv net.Conn) {
	t.Helper()
	client, srv = testutil.PipeConn(t)
	return client, addrConn{Conn: srv, remote: testutil.TCPAddr(remoteIP + ":54321")}
}
