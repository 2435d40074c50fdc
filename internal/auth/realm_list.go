package auth

import (
	"context"
	"fmt"

	"github.com/udisondev/realmd/internal/auth/serverpackets"
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/model"
	"github.com/udisondev/realmd/internal/protocol"
	"github.com/udisondev/realmd/internal/realm"
)

// handleRealmList processes REALM_LIST in status AUTHENTICATED.
func (h *Handler) handleRealmList(ctx context.Context, s *Session, _ []byte) error {
	accountID, ok, err := h.accounts.GetAccountID(ctx, s.login)
	if err != nil {
		return fmt.Errorf("resolving account id: %w", err)
	}
	if !ok {
		s.logger().Error("authenticated user not found in the database")
		return ErrUnknownAccount
	}

	h.realms.UpdateIfNeed(ctx)

	entries := h.realmEntries(ctx, s, accountID, h.realms.Realms())
	post := s.expansion&constants.ExpansionPost != 0

	s.logger().Debug("sending realm list", "realms", len(entries))
	return reply(s, func(w *protocol.Writer) {
		serverpackets.RealmList(w, entries, post)
	})
}

// realmEntries applies build compatibility, locking and address selection
// to the realm directory as seen by session s.
func (h *Handler) realmEntries(ctx context.Context, s *Session, accountID uint32, realms []model.Realm) []serverpackets.RealmEntry {
	entries := make([]serverpackets.RealmEntry, 0, len(realms))

	for _, r := range realms {
		flag := r.Flag
		info := h.builds.GetBuildInfo(r.Build)

		if !h.builds.IsAcceptedClientBuild(r.Build) {
			// реалм чужой версии виден только если известна его сборка
			if info == nil {
				continue
			}
			flag |= constants.RealmFlagOffline | constants.RealmFlagSpecifyBuild
		}
		if info == nil {
			flag &^= constants.RealmFlagSpecifyBuild
		}

		name := r.Name
		if s.expansion&constants.ExpansionPre != 0 && flag&constants.RealmFlagSpecifyBuild != 0 {
			name = fmt.Sprintf("%s (%d.%d.%d)", name, info.Major, info.Minor, info.Bugfix)
		}

		chars, err := h.accounts.NumCharacters(ctx, r.ID, accountID)
		if err != nil {
			s.logger().Error("database error", "op", "num characters", "realm", r.Name, "err", err)
			chars = 0
		}

		e := serverpackets.RealmEntry{
			Icon:       r.Icon,
			Locked:     r.AllowedSecurityLevel > s.securityLevel,
			Flag:       flag,
			Name:       name,
			Address:    realm.AddressForClient(r, s.Remote()).String(),
			Population: r.Population,
			Characters: chars,
			Timezone:   r.Timezone,
			ID:         uint8(r.ID),
		}
		if flag&constants.RealmFlagSpecifyBuild != 0 {
			e.Major, e.Minor, e.Bugfix = info.Major, info.Minor, info.Bugfix
			e.Build = uint16(info.Build)
		}
		entries = append(entries, e)
	}

	return entries
}
