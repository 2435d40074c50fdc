package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/udisondev/realmd/internal/auth/clientpackets"
	"github.com/udisondev/realmd/internal/constants"
)

type handleFunc func(h *Handler, ctx context.Context, s *Session, msg []byte) error

// descriptor binds a command to the statuses it is allowed in and the
// number of bytes it occupies on the wire.
type descriptor struct {
	name    string
	allowed statusMask
	minSize int
	// size returns the full message size once minSize bytes are buffered.
	// ok is false when the declared size is unusable.
	size   func(s *Session, buf []byte) (n int, ok bool)
	handle handleFunc
}

var descriptors = map[uint8]descriptor{
	constants.CmdAuthLogonChallenge: {
		name:    nameLogonChallenge,
		allowed: allow(StatusConnected),
		minSize: constants.ChallengeHeaderSize,
		size:    challengeSize,
		handle:  (*Handler).handleLogonChallenge,
	},
	constants.CmdAuthLogonProof: {
		name:    nameLogonProof,
		allowed: allow(StatusConnected),
		minSize: constants.LogonProofSize,
		size:    logonProofSize,
		handle:  (*Handler).handleLogonProof,
	},
	constants.CmdAuthReconnectChallenge: {
		name:    nameReconnectChallenge,
		allowed: allow(StatusConnected),
		minSize: constants.ChallengeHeaderSize,
		size:    challengeSize,
		handle:  (*Handler).handleReconnectChallenge,
	},
	constants.CmdAuthReconnectProof: {
		name:    nameReconnectProof,
		allowed: allow(StatusConnected),
		minSize: constants.ReconnectProofSize,
		handle:  (*Handler).handleReconnectProof,
	},
	constants.CmdRealmList: {
		name:    nameRealmList,
		allowed: allow(StatusAuthenticated),
		minSize: constants.RealmListRequestSize,
		handle:  (*Handler).handleRealmList,
	},
	constants.CmdXferAccept: {
		name:    nameXferAccept,
		allowed: allow(StatusPatching, StatusAuthenticated),
		minSize: constants.XferAcceptSize,
		handle:  (*Handler).handleXferAccept,
	},
	constants.CmdXferResume: {
		name:    nameXferResume,
		allowed: allow(StatusPatching, StatusAuthenticated),
		minSize: constants.XferResumeSize,
		handle:  (*Handler).handleXferResume,
	},
	constants.CmdXferCancel: {
		name:    nameXferCancel,
		allowed: allow(StatusPatching, StatusAuthenticated),
		minSize: constants.XferCancelSize,
		handle:  (*Handler).handleXferCancel,
	},
}

func challengeSize(_ *Session, buf []byte) (int, bool) {
	return clientpackets.ChallengeSize(buf)
}

func logonProofSize(s *Session, buf []byte) (int, bool) {
	withToken := s.tokenExpected(buf[clientpackets.SecurityFlagsOffset])
	return clientpackets.LogonProofSize(buf, withToken), true
}

// Dispatch runs every complete message at the start of buf and returns how
// many bytes it consumed. Incomplete messages stay in buf until more data
// arrives. An unknown command or an unusable size field discards the whole
// buffer. A non-nil error means the connection must be closed.
func (h *Handler) Dispatch(ctx context.Context, s *Session, buf []byte) (int, error) {
	consumed := 0

	for consumed < len(buf) {
		data := buf[consumed:]
		cmd := data[0]

		d, ok := descriptors[cmd]
		if !ok {
			s.logger().Warn("unknown auth command, dropping buffer",
				"cmd", fmt.Sprintf("0x%02X", cmd),
				"dropped", len(data))
			h.metrics.RecordFramingDrop()
			return len(buf), nil
		}

		if len(data) < d.minSize {
			return consumed, nil
		}

		size := d.minSize
		if d.size != nil {
			if size, ok = d.size(s, data); !ok {
				s.logger().Warn("bad message size, dropping buffer", "cmd", d.name, "dropped", len(data))
				h.metrics.RecordFramingDrop()
				return len(buf), nil
			}
		}
		if len(data) < size {
			return consumed, nil
		}

		if st := s.Status(); !d.allowed.has(st) {
			return consumed, fmt.Errorf("%s in status %s: %w", d.name, st, ErrWrongStatus)
		}

		start := time.Now()
		err := d.handle(h, ctx, s, data[:size])
		h.metrics.RecordHandler(d.name, time.Since(start))
		if err != nil {
			return consumed, fmt.Errorf("%s: %w", d.name, err)
		}

		consumed += size
	}

	return consumed, nil
}
