package testutil

import (
	"net"
	"testing"
)

// PipeConn creates a connected client/server net.Conn pair over net.Pipe,
// closing both ends automatically when the test finishes.
func PipeConn(t testing.TB) (client, server net.Conn) {
	t.Helper()

	server, client = net.Pipe()

	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	return client, server
}

// FakeAddr implements net.Addr for tests that need a connection reporting
// a specific remote address (net.Pipe endpoints otherwise report "pipe").
type FakeAddr struct {
	NetworkName string
	AddrString  string
}

func (f FakeAddr) Network() string { return f.NetworkName }
func (f FakeAddr) String() string  { return f.AddrString }

// NewFakeAddr builds a FakeAddr.
func NewFakeAddr(network, addr string) FakeAddr {
	return FakeAddr{
		NetworkName: network,
		AddrString:  addr,
	}
}

// TCPAddr builds a FakeAddr reporting a tcp network and the given address.
func TCPAddr(addr string) FakeAddr {
	return NewFakeAddr("tcp", addr)
}
