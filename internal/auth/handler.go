package auth

import (
	"time"

	"github.com/udisondev/realmd/internal/auth/serverpackets"
	"github.com/udisondev/realmd/internal/config"
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/metrics"
	"github.com/udisondev/realmd/internal/protocol"
)

// Command names used in logs and metrics.
const (
	nameLogonChallenge     = "LOGON_CHALLENGE"
	nameLogonProof         = "LOGON_PROOF"
	nameReconnectChallenge = "RECONNECT_CHALLENGE"
	nameReconnectProof     = "RECONNECT_PROOF"
	nameRealmList          = "REALM_LIST"
	nameXferAccept         = "XFER_ACCEPT"
	nameXferResume         = "XFER_RESUME"
	nameXferCancel         = "XFER_CANCEL"
)

// Handler processes auth messages. Singleton — один на сервер.
type Handler struct {
	cfg      config.AuthServer
	accounts AccountRepository
	bans     BanRepository
	realms   RealmDirectory
	builds   BuildTable
	patches  PatchSource
	metrics  *metrics.Metrics

	now func() time.Time
}

// NewHandler creates a message handler. m may be nil.
func NewHandler(
	cfg config.AuthServer,
	accounts AccountRepository,
	bans BanRepository,
	realms RealmDirectory,
	builds BuildTable,
	patches PatchSource,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		cfg:      cfg,
		accounts: accounts,
		bans:     bans,
		realms:   realms,
		builds:   builds,
		patches:  patches,
		metrics:  m,
		now:      time.Now,
	}
}

// reply encodes one message with a pooled writer and sends it.
func reply(s *Session, encode func(w *protocol.Writer)) error {
	w := protocol.GetWriter()
	defer w.Put()
	encode(w)
	return s.Send(w.Bytes())
}

// challengeResult sends `cmd 00 code` and counts it.
func (h *Handler) challengeResult(s *Session, cmd uint8, name string, code uint8) error {
	h.metrics.RecordLogonResult(name, code)
	return reply(s, func(w *protocol.Writer) {
		serverpackets.ChallengeFail(w, cmd, code)
	})
}

// dbBusy logs a store failure and tells the client to retry later. The
// connection stays open.
func (h *Handler) dbBusy(s *Session, op string, err error) error {
	s.logger().Error("database error", "op", op, "err", err)
	return h.challengeResult(s, constants.CmdAuthLogonChallenge, nameLogonChallenge, constants.LoginDBBusy)
}
