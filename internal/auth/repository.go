package auth

import (
	"context"
	"os"
	"time"

	"github.com/udisondev/realmd/internal/model"
	"github.com/udisondev/realmd/internal/patch"
)

// AccountRepository определяет интерфейс для работы с аккаунтами.
// Используется для dependency injection в тестах.
type AccountRepository interface {
	// GetAccount возвращает аккаунт по имени.
	// Возвращает nil, nil если аккаунт не найден.
	GetAccount(ctx context.Context, username string) (*model.Account, error)

	// GetAccountID returns the id of username; ok is false when it does not exist.
	GetAccountID(ctx context.Context, username string) (id uint32, ok bool, err error)

	// SetVerifier stores freshly computed v and s (hex).
	SetVerifier(ctx context.Context, accountID uint32, v, s string) error

	// UpdateLogonProof persists the session key and login metadata and
	// resets the failed login counter.
	UpdateLogonProof(ctx context.Context, upd model.LogonProofUpdate) error

	// IncrementFailedLogins atomically bumps the counter of username. The
	// attempt that reaches maxCount resets it in the same step and reports
	// ThresholdReached. maxCount <= 0 means no limit.
	// Returns nil, nil if the account does not exist.
	IncrementFailedLogins(ctx context.Context, username string, maxCount int) (*model.FailedLogin, error)

	// LogFailedLogin records a wrong password attempt for auditing.
	LogFailedLogin(ctx context.Context, username, ip, comment string) error

	// GetSessionKey возвращает сохранённый K для reconnect.
	// Возвращает nil, nil если аккаунт не найден.
	GetSessionKey(ctx context.Context, username string) (*model.SessionRecord, error)

	// CountryForIP resolves an IPv4 address to a country code; "" when unknown.
	CountryForIP(ctx context.Context, ip string) (string, error)

	// CreateLegacyAccount inserts an account with the given credential hash
	// and initializes its per-realm character counters.
	CreateLegacyAccount(ctx context.Context, username, passHash string) error

	// NumCharacters returns how many characters the account has on a realm.
	NumCharacters(ctx context.Context, realmID, accountID uint32) (uint8, error)
}

// BanRepository covers IP and account bans.
type BanRepository interface {
	PurgeExpiredIPBans(ctx context.Context) error
	IsIPBanned(ctx context.Context, ip string) (bool, error)

	DeactivateExpiredAccountBans(ctx context.Context) error
	// ActiveAccountBan returns nil, nil when the account is not banned.
	ActiveAccountBan(ctx context.Context, accountID uint32) (*model.AccountBan, error)

	BanAccount(ctx context.Context, accountID uint32, d time.Duration, bannedBy, reason string) error
	BanIP(ctx context.Context, ip string, d time.Duration, bannedBy, reason string) error
}

// RealmDirectory is the cached realm list.
type RealmDirectory interface {
	UpdateIfNeed(ctx context.Context)
	Realms() []model.Realm
}

// BuildTable answers client build questions.
type BuildTable interface {
	IsAcceptedClientBuild(build uint32) bool
	GetBuildInfo(build uint32) *model.RealmBuildInfo
	ExpansionFlags(build uint32) uint8
}

// PatchSource provides patch files for builds that are not accepted.
type PatchSource interface {
	PossiblePatching(build uint32, locale string) bool
	Open(build uint32, locale string) (*os.File, patch.Info, error)
}
