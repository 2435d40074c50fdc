package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/netip"
	"sync"

	"github.com/udisondev/realmd/internal/config"
	"github.com/udisondev/realmd/internal/constants"
)

const (
	readChunkSize = 4096

	// maxPendingSize is the largest message a client can declare.
	maxPendingSize = constants.ChallengeHeaderSize + math.MaxUint16
)

// ServerOption is a functional option for Server configuration.
type ServerOption func(*Server)

// WithSessionManager sets a custom SessionManager (useful for testing with shared SessionManager).
func WithSessionManager(sm *SessionManager) ServerOption {
	return func(s *Server) {
		s.sessions = sm
	}
}

// Server is the auth server that accepts client connections on port 3724.
type Server struct {
	cfg      config.AuthServer
	handler  *Handler
	sessions *SessionManager
	readPool *BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a new auth server around handler.
func NewServer(cfg config.AuthServer, handler *Handler, opts ...ServerOption) *Server {
	s := &Server{
		cfg:      cfg,
		handler:  handler,
		sessions: NewSessionManager(),
		readPool: NewBytePool(readChunkSize),
	}

	// Применяем опции
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Sessions возвращает менеджер открытых сессий.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Addr возвращает адрес, на котором слушает сервер.
// Возвращает nil если сервер ещё не запущен.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close закрывает listener и останавливает сервер.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run begins listening for client connections.
// Создаёт listener на cfg.ListenAddress() и запускает accept loop.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.ListenAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener и запускает accept loop.
// Используется для тестирования с произвольным listener.
// Возвращает управление после закрытия всех соединений.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("auth server started", "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	})

	wg.Wait()

	return nil
}

func acceptLoop(
	ctx context.Context,
	wg *sync.WaitGroup,
	srv *Server,
	ln net.Listener,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("failed to accept new connection", "err", err)
				continue
			}
			wg.Go(func() {
				handleConnection(ctx, srv, conn)
			})
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	remote, err := remoteAddr(conn)
	if err != nil {
		slog.Error("failed to parse remote address", "connection", conn.RemoteAddr(), "err", err)
		return
	}

	sess := NewSession(ctx, conn, remote)
	sess.SetWriteTimeout(srv.cfg.WriteDeadline())
	// Close закрывает conn до ожидания передачи патча
	defer sess.Close()

	srv.sessions.Store(sess)
	defer srv.sessions.Remove(sess.ID())

	srv.handler.metrics.SessionOpened()
	defer srv.handler.metrics.SessionClosed()

	slog.Info("new connection", "remote", remote, "session", sess.ID())

	if err := serveSession(ctx, srv, conn, sess); err != nil {
		sess.logger().Info("closing connection", "err", err)
		return
	}
	sess.logger().Debug("connection closed by client")
}

// serveSession reads until the client disconnects or a handler fails.
// Bytes of an incomplete message stay in pending until the next read.
func serveSession(ctx context.Context, srv *Server, conn net.Conn, sess *Session) error {
	chunk := srv.readPool.Get(readChunkSize)
	defer srv.readPool.Put(chunk)

	pending := make([]byte, 0, readChunkSize)

	for {
		n, readErr := conn.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)

			consumed, err := srv.handler.Dispatch(ctx, sess, pending)
			if err != nil {
				return err
			}
			// сдвигаем хвост незавершённого сообщения в начало
			pending = pending[:copy(pending, pending[consumed:])]

			if len(pending) > maxPendingSize {
				return fmt.Errorf("pending input of %d bytes exceeds any message", len(pending))
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read: %w", readErr)
		}
	}
}

func remoteAddr(conn net.Conn) (netip.Addr, error) {
	if tcp, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return tcp.AddrPort().Addr().Unmap(), nil
	}
	ap, err := netip.ParseAddrPort(conn.RemoteAddr().String())
	if err != nil {
		return netip.Addr{}, err
	}
	return ap.Addr().Unmap(), nil
}
