package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/realmd/internal/patch"
	"github.com/udisondev/realmd/internal/srp6"
)

// Session is the per-connection state of the auth protocol.
//
// Handler-owned fields are only touched from the connection's read goroutine.
// The patch file and the active transfer are shared with the transfer
// goroutine and guarded by patchMu.
type Session struct {
	id     uuid.UUID
	remote netip.Addr

	ctx    context.Context
	cancel context.CancelFunc

	w            io.Writer
	writeMu      sync.Mutex
	writeTimeout time.Duration

	mu     sync.Mutex
	status SessionStatus

	// client identity from the challenge
	login     string
	build     uint32
	expansion uint8
	os        string
	platform  string
	locale    string

	// account
	accountID     uint32
	securityLevel uint8
	tokenKey      string

	// SRP6 state
	srp                *srp6.Server
	sessionKey         []byte
	reconnectChallenge []byte

	patchMu   sync.Mutex
	patchInfo *patch.Info // set once a patch was offered
	patchFile *os.File
	transfer  *patch.Transfer
	closed    bool
}

// NewSession creates a session writing replies to w. Closing the session
// cancels ctx-derived work such as patch transfers and closes w if it is an
// io.Closer.
func NewSession(ctx context.Context, w io.Writer, remote netip.Addr) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		id:     uuid.New(),
		remote: remote.Unmap(),
		ctx:    ctx,
		cancel: cancel,
		w:      w,
		status: StatusConnected,
	}
}

// ID returns the session id used for log correlation.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Remote returns the client's IP address.
func (s *Session) Remote() netip.Addr {
	return s.remote
}

// IP returns the client's IP address as text.
func (s *Session) IP() string {
	return s.remote.String()
}

// Status returns the current session status.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus sets the session status.
func (s *Session) SetStatus(st SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// Login returns the account name the client sent.
func (s *Session) Login() string {
	return s.login
}

// Build returns the client build.
func (s *Session) Build() uint32 {
	return s.build
}

// Locale returns the client locale, e.g. "enUS".
func (s *Session) Locale() string {
	return s.locale
}

// SessionKey returns K after a successful proof, nil before.
func (s *Session) SessionKey() []byte {
	return s.sessionKey
}

// tokenExpected reports whether a LOGON_PROOF carries an authenticator code.
func (s *Session) tokenExpected(securityFlags uint8) bool {
	return securityFlags&0x04 != 0 || s.tokenKey != ""
}

// writeDeadliner is implemented by net.Conn.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// SetWriteTimeout bounds every Send when the writer supports deadlines.
// Zero disables the bound.
func (s *Session) SetWriteTimeout(d time.Duration) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.writeTimeout = d
}

// Send writes one complete message. Safe for concurrent use.
func (s *Session) Send(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if dl, ok := s.w.(writeDeadliner); ok && s.writeTimeout > 0 {
		if err := dl.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("setting write deadline: %w", err)
		}
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("writing to client: %w", err)
	}
	return nil
}

func (s *Session) logger() *slog.Logger {
	return slog.With("session", s.id, "remote", s.remote, "login", s.login)
}

// offerPatch records the opened patch file. Any previous file is closed.
func (s *Session) offerPatch(f *os.File, info patch.Info) {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()
	if s.patchFile != nil {
		_ = s.patchFile.Close()
	}
	s.patchFile = f
	s.patchInfo = &info
}

// startTransfer stops the running transfer, if any, and starts a new one
// from pos. reopen is used when the file was closed by a completed transfer.
func (s *Session) startTransfer(pos int64, opts patch.TransferOptions, reopen func() (*os.File, error)) error {
	s.patchMu.Lock()
	old := s.transfer
	s.transfer = nil
	s.patchMu.Unlock()

	// stop-before-replace: the old goroutine is gone before a new one starts.
	// A send blocked on a client that does not read ends with the write timeout.
	if old != nil {
		old.Stop()
	}

	s.patchMu.Lock()
	defer s.patchMu.Unlock()

	if s.closed {
		return ErrTransferCancelled
	}
	if s.patchInfo == nil {
		return ErrNoPatch
	}
	if s.patchFile == nil {
		f, err := reopen()
		if err != nil {
			return err
		}
		s.patchFile = f
	}

	finished := opts.Finished
	opts.Finished = func(t *patch.Transfer, err error) {
		s.transferFinished(t, err)
		if finished != nil {
			finished(t, err)
		}
	}
	s.transfer = patch.StartTransfer(s.ctx, s.patchFile, pos, s.patchInfo.Size, opts)
	return nil
}

// transferFinished runs on the transfer goroutine. A completed transfer
// releases the file; a superseded one leaves state to its successor.
func (s *Session) transferFinished(t *patch.Transfer, err error) {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()

	if s.transfer != t {
		return
	}
	s.transfer = nil
	if err == nil && s.patchFile != nil {
		_ = s.patchFile.Close()
		s.patchFile = nil
	}
}

// activeTransfer returns the running transfer or nil.
func (s *Session) activeTransfer() *patch.Transfer {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()
	return s.transfer
}

// Close closes the writer, stops any transfer and releases the patch file.
// The writer goes first so a transfer blocked in Send returns. Idempotent.
func (s *Session) Close() {
	s.patchMu.Lock()
	if s.closed {
		s.patchMu.Unlock()
		return
	}
	s.closed = true
	t := s.transfer
	s.transfer = nil
	s.patchMu.Unlock()

	s.cancel()
	if c, ok := s.w.(io.Closer); ok {
		_ = c.Close()
	}
	if t != nil {
		t.Stop()
	}

	s.patchMu.Lock()
	defer s.patchMu.Unlock()
	if s.patchFile != nil {
		_ = s.patchFile.Close()
		s.patchFile = nil
	}
}
