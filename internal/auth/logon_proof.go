package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/udisondev/realmd/internal/auth/clientpackets"
	"github.com/udisondev/realmd/internal/auth/serverpackets"
	"github.com/udisondev/realmd/internal/bignum"
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/model"
	"github.com/udisondev/realmd/internal/protocol"
	"github.com/udisondev/realmd/internal/srp6"
)

// Failed-login audit and ban texts.
const (
	failedLoginComment = "Logged on failed AccountLogin due wrong password"
	autoBanAuthor      = "realmd"
	autoBanReason      = "Failed login autoban"
)

// handleLogonProof processes AUTH_LOGON_PROOF in status CONNECTED.
func (h *Handler) handleLogonProof(ctx context.Context, s *Session, msg []byte) error {
	if s.expansion == constants.ExpansionNone {
		return h.sendPatchOffer(s)
	}

	if s.srp == nil {
		return fmt.Errorf("logon proof before a successful challenge: %w", ErrWrongStatus)
	}

	p, err := clientpackets.ParseLogonProof(msg, s.tokenExpected(msg[clientpackets.SecurityFlagsOffset]))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	proof, err := s.srp.CheckProof(s.login, p.A, p.M1)
	if err != nil {
		if errors.Is(err, srp6.ErrZeroEphemeral) {
			s.logger().Warn("client sent A = 0 mod N")
		}
		return err
	}

	if !proof.Valid {
		return h.wrongPassword(ctx, s)
	}

	if s.tokenKey != "" && !validToken(s.tokenKey, p.Token, h.now(), h.cfg.TokenSkew) {
		s.logger().Info("authenticator token mismatch")
		if err := h.proofFail(s, constants.LoginUnknownAccount); err != nil {
			return err
		}
		return ErrTokenMismatch
	}

	upd := model.LogonProofUpdate{
		AccountID:  s.accountID,
		SessionKey: bignum.FromBytesLE(proof.SessionKey).HexPadded(srp6.SessionKeySize),
		LastIP:     s.IP(),
		Locale:     localeID(s.locale),
		OS:         s.os,
	}
	if err := h.accounts.UpdateLogonProof(ctx, upd); err != nil {
		s.logger().Error("database error", "op", "update logon proof", "err", err)
		return h.proofFail(s, constants.LoginDBBusy)
	}

	M2 := srp6.ServerProof(p.A, proof.M, proof.SessionKey)
	post := s.expansion&constants.ExpansionPost != 0

	s.sessionKey = proof.SessionKey
	s.srp = nil
	s.SetStatus(StatusAuthenticated)

	s.logger().Info("user successfully authenticated", "account_id", s.accountID)
	h.metrics.RecordLogonResult(nameLogonProof, constants.LoginSuccess)
	return reply(s, func(w *protocol.Writer) {
		serverpackets.LogonProofOK(w, M2, post)
	})
}

// sendPatchOffer starts the patch flow of a client whose build is not accepted.
// Without a patch for its build and locale the client is dropped.
func (h *Handler) sendPatchOffer(s *Session) error {
	f, info, err := h.patches.Open(s.build, s.locale)
	if err != nil {
		return fmt.Errorf("offering patch: %w", err)
	}
	s.offerPatch(f, info)
	s.SetStatus(StatusPatching)

	s.logger().Info("offering patch", "build", info.Build, "locale", info.Locale, "size", info.Size)
	h.metrics.RecordLogonResult(nameLogonProof, constants.LoginDownloadFile)
	return reply(s, func(w *protocol.Writer) {
		serverpackets.DownloadFile(w)
		serverpackets.XferInitiate(w, uint64(info.Size), info.MD5)
	})
}

// wrongPassword replies to a proof mismatch and applies the failed-login
// policy. The connection stays open.
func (h *Handler) wrongPassword(ctx context.Context, s *Session) error {
	log := s.logger()
	log.Info("wrong password")

	if err := h.proofFail(s, constants.LoginUnknownAccount); err != nil {
		return err
	}

	wp := h.cfg.WrongPass
	if wp.Logging {
		if err := h.accounts.LogFailedLogin(ctx, s.login, s.IP(), failedLoginComment); err != nil {
			log.Error("database error", "op", "log failed login", "err", err)
		}
	}
	if wp.MaxCount <= 0 {
		return nil
	}

	fl, err := h.accounts.IncrementFailedLogins(ctx, s.login, wp.MaxCount)
	if err != nil {
		log.Error("database error", "op", "increment failed logins", "err", err)
		return nil
	}
	// счётчик обнуляется тем же UPDATE, что достигает max_count: порог видит
	// ровно одна попытка, даже при параллельных сессиях
	if fl == nil || !fl.ThresholdReached {
		return nil
	}

	if wp.BanAccount {
		err = h.bans.BanAccount(ctx, fl.AccountID, wp.BanDuration(), autoBanAuthor, autoBanReason)
	} else {
		err = h.bans.BanIP(ctx, s.IP(), wp.BanDuration(), autoBanAuthor, autoBanReason)
	}
	if err != nil {
		log.Error("database error", "op", "auto ban", "err", err)
		return nil
	}

	log.Info("too many wrong passwords, banned",
		"account", wp.BanAccount,
		"attempts", fl.FailedLogins,
		"duration", wp.BanDuration())
	h.metrics.RecordAutoBan(wp.BanAccount)
	return nil
}

func (h *Handler) proofFail(s *Session, code uint8) error {
	h.metrics.RecordLogonResult(nameLogonProof, code)
	return reply(s, func(w *protocol.Writer) {
		serverpackets.LogonProofFail(w, code)
	})
}
