package model

import "time"

// Account is the auth-relevant part of an account row.
type Account struct {
	ID       uint32
	Username string
	// PassHash is the uppercase hex SHA1 of "UPPER(user):UPPER(pass)".
	PassHash string

	Locked      bool   // IP lock
	LockCountry string // two-letter code, "00" or empty = none
	LastIP      string

	SecurityLevel uint8

	// Verifier and Salt are 64-char uppercase hex, empty until first login.
	Verifier string
	Salt     string

	// TokenKey is the base32 TOTP secret. Empty means no token.
	TokenKey string
}

// HasToken reports whether the account requires a one-time code.
func (a *Account) HasToken() bool {
	return a.TokenKey != ""
}

// AccountBan is an active account ban.
type AccountBan struct {
	BanDate   time.Time
	UnbanDate time.Time
}

// Permanent reports whether the ban never expires. Permanent bans are stored
// with unbandate == bandate.
func (b AccountBan) Permanent() bool {
	return b.BanDate.Equal(b.UnbanDate)
}

// LogonProofUpdate is persisted after a successful logon proof.
type LogonProofUpdate struct {
	AccountID  uint32
	SessionKey string // hex K
	LastIP     string
	Locale     uint8
	OS         string
}

// SessionRecord is what a reconnect needs from the store.
type SessionRecord struct {
	AccountID     uint32
	SessionKey    string
	SecurityLevel uint8
}

// FailedLogin is the counter state after one wrong password.
type FailedLogin struct {
	AccountID    uint32
	FailedLogins int
	// ThresholdReached is set on the one attempt that hit the limit.
	// The stored counter is already back at zero.
	ThresholdReached bool
}
