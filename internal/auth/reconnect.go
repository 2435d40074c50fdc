package auth

import (
	"context"
	"fmt"

	"github.com/udisondev/realmd/internal/auth/clientpackets"
	"github.com/udisondev/realmd/internal/auth/serverpackets"
	"github.com/udisondev/realmd/internal/bignum"
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
	"github.com/udisondev/realmd/internal/srp6"
)

// handleReconnectChallenge processes AUTH_RECONNECT_CHALLENGE in status
// CONNECTED. A client without a stored session key is dropped.
func (h *Handler) handleReconnectChallenge(ctx context.Context, s *Session, msg []byte) error {
	p, err := clientpackets.ParseLogonChallenge(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	s.login = p.Login
	s.build = uint32(p.Build)
	s.os = p.OS
	s.platform = p.Platform
	s.locale = p.Country
	s.expansion = h.builds.ExpansionFlags(s.build)

	rec, err := h.accounts.GetSessionKey(ctx, s.login)
	if err != nil {
		return fmt.Errorf("loading session key: %w", err)
	}
	if rec == nil || rec.SessionKey == "" {
		s.logger().Info("reconnect without a stored session key")
		return ErrNoSessionKey
	}

	K, err := bignum.FromHex(rec.SessionKey)
	if err != nil {
		return fmt.Errorf("stored session key: %w", err)
	}

	challenge, err := srp6.NewReconnectChallenge()
	if err != nil {
		return err
	}

	s.accountID = rec.AccountID
	s.securityLevel = min(rec.SecurityLevel, constants.SecAdministrator)
	s.sessionKey = K.BytesLE(srp6.SessionKeySize)
	s.reconnectChallenge = challenge

	s.logger().Debug("reconnect challenge", "build", s.build)
	return reply(s, func(w *protocol.Writer) {
		serverpackets.ReconnectChallenge(w, challenge)
	})
}

// handleReconnectProof processes AUTH_RECONNECT_PROOF in status CONNECTED.
func (h *Handler) handleReconnectProof(_ context.Context, s *Session, msg []byte) error {
	if s.login == "" || len(s.reconnectChallenge) == 0 || len(s.sessionKey) == 0 {
		return fmt.Errorf("reconnect proof before a reconnect challenge: %w", ErrWrongStatus)
	}

	p, err := clientpackets.ParseReconnectProof(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if !srp6.CheckReconnectProof(s.login, p.R1, s.reconnectChallenge, s.sessionKey, p.R2) {
		s.logger().Info("reconnect proof mismatch")
		h.metrics.RecordLogonResult(nameReconnectProof, constants.LoginFailed)
		return ErrReconnectProof
	}

	s.reconnectChallenge = nil
	s.SetStatus(StatusAuthenticated)

	s.logger().Info("user successfully reconnected", "account_id", s.accountID)
	h.metrics.RecordLogonResult(nameReconnectProof, constants.LoginSuccess)
	return reply(s, serverpackets.ReconnectProofOK)
}
