package testutil

import (
	"net"
	"testing"
)

// ListenTCP открывает listener на 127.0.0.1 со случайным портом и
// возвращает его вместе с "host:port". Закрывается в t.Cleanup.
func ListenTCP(t testing.TB) (net.Listener, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening on a random port: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	return ln, ln.Addr().String()
}

// PipeConn возвращает два конца net.Pipe. У pipe нет IP адреса, поэтому
// сервер должен отказаться его обслуживать.
func PipeConn(t testing.TB) (client, server net.Conn) {
	t.Helper()

	server, client = net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return client, server
}

// TCPAddr — net.Addr с произвольной строкой адреса в сети "tcp".
type TCPAddr string

func (a TCPAddr) Network() string { return "tcp" }
func (a TCPAddr) String() string  { return string(a) }

// AddrConn подменяет RemoteAddr у net.Conn.
type AddrConn struct {
	net.Conn
	Remote net.Addr
}

func (c AddrConn) RemoteAddr() net.Addr { return c.Remote }
