package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/udisondev/realmd/internal/auth/clientpackets"
	"github.com/udisondev/realmd/internal/auth/serverpackets"
	"github.com/udisondev/realmd/internal/bignum"
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/model"
	"github.com/udisondev/realmd/internal/protocol"
	"github.com/udisondev/realmd/internal/srp6"
)

// challengeRandomSize is the unused random block of the challenge reply.
const challengeRandomSize = 16

// handleLogonChallenge processes AUTH_LOGON_CHALLENGE in status CONNECTED.
func (h *Handler) handleLogonChallenge(ctx context.Context, s *Session, msg []byte) error {
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

	log := s.logger()
	log.Debug("logon challenge", "build", s.build, "os", s.os, "locale", s.locale)

	if s.expansion == constants.ExpansionNone {
		if h.patches.PossiblePatching(s.build, s.locale) {
			log.Info("client build needs a patch", "build", s.build)
			return reply(s, serverpackets.PatchChallenge)
		}
		log.Info("client build rejected", "build", s.build)
		return h.challengeResult(s, constants.CmdAuthLogonChallenge, nameLogonChallenge, constants.LoginVersionInvalid)
	}

	if err := h.bans.PurgeExpiredIPBans(ctx); err != nil {
		return h.dbBusy(s, "purge ip bans", err)
	}
	banned, err := h.bans.IsIPBanned(ctx, s.IP())
	if err != nil {
		return h.dbBusy(s, "ip ban", err)
	}
	if banned {
		log.Info("banned ip tries to login")
		return h.challengeResult(s, constants.CmdAuthLogonChallenge, nameLogonChallenge, constants.LoginBanned)
	}

	acc, err := h.accounts.GetAccount(ctx, s.login)
	if err != nil {
		return h.dbBusy(s, "get account", err)
	}
	if acc == nil {
		if h.cfg.LegacyInlineRegistration && strings.HasPrefix(s.login, "?") {
			return h.registerInline(ctx, s)
		}
		log.Info("unknown account")
		return h.challengeResult(s, constants.CmdAuthLogonChallenge, nameLogonChallenge, constants.LoginUnknownAccount)
	}

	code, err := h.checkLocks(ctx, s, acc)
	if err != nil {
		return h.dbBusy(s, "account locks", err)
	}
	if code != constants.LoginSuccess {
		return h.challengeResult(s, constants.CmdAuthLogonChallenge, nameLogonChallenge, code)
	}

	v, salt, err := h.verifier(ctx, acc)
	if err != nil {
		return h.dbBusy(s, "verifier", err)
	}

	srv, err := srp6.NewServer(v, salt)
	if err != nil {
		return fmt.Errorf("starting srp6: %w", err)
	}

	s.srp = srv
	s.accountID = acc.ID
	s.securityLevel = min(acc.SecurityLevel, constants.SecAdministrator)
	s.tokenKey = acc.TokenKey

	var flags uint8 = constants.SecurityFlagNone
	if acc.HasToken() {
		flags |= constants.SecurityFlagAuthenticator
	}

	random := make([]byte, challengeRandomSize)
	_, _ = rand.Read(random)

	h.metrics.RecordLogonResult(nameLogonChallenge, constants.LoginSuccess)
	return reply(s, func(w *protocol.Writer) {
		serverpackets.LogonChallengeOK(w,
			srv.PublicKey(),
			srp6.G.BytesLE(1)[0],
			srp6.N.BytesLE(srp6.KeySize),
			srv.Salt(),
			random,
			flags,
		)
	})
}

// checkLocks applies IP lock, country lock and account bans in that order.
// Returns LoginSuccess when the account may log in.
func (h *Handler) checkLocks(ctx context.Context, s *Session, acc *model.Account) (uint8, error) {
	log := s.logger()

	if acc.Locked {
		if acc.LastIP != s.IP() {
			log.Info("account is locked to another ip", "locked_ip", acc.LastIP)
			return constants.LoginLockedEnforced, nil
		}
	} else if acc.LockCountry != "" && acc.LockCountry != "00" {
		country, err := h.accounts.CountryForIP(ctx, s.IP())
		if err != nil {
			return 0, err
		}
		// пустая ip2nation не блокирует вход
		if country != "" && country != acc.LockCountry {
			log.Info("account is locked to another country", "locked_country", acc.LockCountry, "country", country)
			return constants.LoginUnlockableLock, nil
		}
	}

	if err := h.bans.DeactivateExpiredAccountBans(ctx); err != nil {
		return 0, err
	}
	ban, err := h.bans.ActiveAccountBan(ctx, acc.ID)
	if err != nil {
		return 0, err
	}
	if ban != nil {
		if ban.Permanent() {
			log.Info("banned account tries to login")
			return constants.LoginBanned, nil
		}
		log.Info("suspended account tries to login", "unban", ban.UnbanDate)
		return constants.LoginSuspended, nil
	}

	return constants.LoginSuccess, nil
}

// verifier returns the stored v and s, computing and saving them when the
// stored values are missing or malformed.
func (h *Handler) verifier(ctx context.Context, acc *model.Account) (v, salt *bignum.Number, err error) {
	const hexLen = srp6.KeySize * 2

	if len(acc.Verifier) == hexLen && len(acc.Salt) == hexLen {
		sv, verr := bignum.FromHex(acc.Verifier)
		ss, serr := bignum.FromHex(acc.Salt)
		if verr == nil && serr == nil {
			return sv, ss, nil
		}
	}

	v, salt, err = srp6.NewVerifier(acc.PassHash)
	if err != nil {
		return nil, nil, err
	}
	if err := h.accounts.SetVerifier(ctx, acc.ID, v.HexPadded(srp6.KeySize), salt.HexPadded(srp6.SaltSize)); err != nil {
		return nil, nil, fmt.Errorf("saving verifier: %w", err)
	}
	return v, salt, nil
}

// registerInline creates an account from a "?user?pass?" login.
func (h *Handler) registerInline(ctx context.Context, s *Session) error {
	user, pass, ok := parseInlineLogin(s.login)
	if !ok {
		return h.challengeResult(s, constants.CmdAuthLogonChallenge, nameLogonChallenge, constants.LoginNoGameAccount)
	}

	_, exists, err := h.accounts.GetAccountID(ctx, user)
	if err != nil {
		return h.dbBusy(s, "inline registration lookup", err)
	}
	if exists {
		return h.challengeResult(s, constants.CmdAuthLogonChallenge, nameLogonChallenge, constants.LoginInternetGameRoomWithoutBnet)
	}

	if err := h.accounts.CreateLegacyAccount(ctx, user, srp6.CredentialHash(user, pass)); err != nil {
		return h.dbBusy(s, "inline registration", err)
	}
	s.logger().Info("created account", "account", user)

	// клиент не умеет продолжить вход, он показывает сообщение и отключается
	return h.challengeResult(s, constants.CmdAuthLogonChallenge, nameLogonChallenge, constants.LoginUseBattlenet)
}

// parseInlineLogin splits "?user?pass?" into upper-cased user and password.
// The user must be at least two characters, the password non-empty.
func parseInlineLogin(login string) (user, pass string, ok bool) {
	rest, found := strings.CutPrefix(login, "?")
	if !found {
		return "", "", false
	}
	user, rest, found = strings.Cut(rest, "?")
	if !found || len(user) < 2 {
		return "", "", false
	}
	end := strings.LastIndex(rest, "?")
	if end <= 0 {
		return "", "", false
	}
	pass = rest[:end]
	return strings.ToUpper(user), strings.ToUpper(pass), true
}
