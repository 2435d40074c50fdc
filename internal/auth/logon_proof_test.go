package auth

import (
	"context"
	"encoding/binary"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/realmd/internal/bignum"
	"github.com/udisondev/realmd/internal/config"
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/model"
	"github.com/udisondev/realmd/internal/srp6"
	"github.com/udisondev/realmd/internal/testutil"
)

const testTokenSecret = "JBSWY3DPEHPK3PXP"

func TestLogonProof_Success(t *testing.T) {
	f := newFixture(t)
	id := f.addUser()
	s, out := f.session(t)

	reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
	proof := clientProof(t, reply, testUser, testPassword)
	require.NoError(t, f.feed(t, s, testutil.MakeLogonProofPacket(proof.A, proof.M1, "")))

	resp := out.Take()
	require.Len(t, resp, 32)
	assert.Equal(t, []byte{0x01, 0x00}, resp[:2])
	assert.Equal(t, proof.ExpectedM2, resp[2:22])
	assert.Equal(t, uint32(constants.AccountFlagProPass), binary.LittleEndian.Uint32(resp[22:26]))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0}, resp[26:])

	assert.Equal(t, StatusAuthenticated, s.Status())
	assert.Equal(t, proof.SessionKey, s.SessionKey())

	// K сохранён в hex и восстанавливается в те же 40 байт
	stored := f.store.SessionKey(testUser)
	assert.Equal(t, bignum.FromBytesLE(proof.SessionKey).HexPadded(srp6.SessionKeySize), stored)
	K, err := bignum.FromHex(stored)
	require.NoError(t, err)
	assert.Equal(t, proof.SessionKey, K.BytesLE(srp6.SessionKeySize))

	proofs := f.store.LogonProofs()
	require.Len(t, proofs, 1)
	assert.Equal(t, model.LogonProofUpdate{
		AccountID:  id,
		SessionKey: stored,
		LastIP:     "127.0.0.1",
		Locale:     0,
		OS:         "Win",
	}, proofs[0])
}

func TestLogonProof_PreExpansionReply(t *testing.T) {
	f := newFixture(t)
	f.addUser()
	s, out := f.session(t)

	params := testutil.DefaultChallenge(testUser)
	params.Build = constants.TestPreExpansionBuild
	params.Country = "deDE"
	reply := f.challenge(t, s, out, params)
	require.Equal(t, uint8(constants.LoginSuccess), reply[2])

	proof := clientProof(t, reply, testUser, testPassword)
	require.NoError(t, f.feed(t, s, testutil.MakeLogonProofPacket(proof.A, proof.M1, "")))

	resp := out.Take()
	require.Len(t, resp, 26)
	assert.Equal(t, proof.ExpectedM2, resp[2:22])
	assert.Equal(t, []byte{0, 0, 0, 0}, resp[22:])

	proofs := f.store.LogonProofs()
	require.Len(t, proofs, 1)
	assert.Equal(t, uint8(3), proofs[0].Locale, "deDE")
}

func TestLogonProof_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.addUser()
	s, out := f.session(t)

	reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
	proof := clientProof(t, reply, testUser, "WRONG")
	require.NoError(t, f.feed(t, s, testutil.MakeLogonProofPacket(proof.A, proof.M1, "")))

	assert.Equal(t, []byte{0x01, constants.LoginUnknownAccount, 0x03, 0x00}, out.Take())
	assert.Equal(t, StatusConnected, s.Status())
	assert.Nil(t, s.SessionKey())
	assert.Empty(t, f.store.SessionKey(testUser))
	assert.Zero(t, f.store.FailedLogins(testUser), "accounting disabled with max_count 0")
	assert.Empty(t, f.store.Bans())
}

func TestLogonProof_FlippedProofBit(t *testing.T) {
	f := newFixture(t)
	f.addUser()
	s, out := f.session(t)

	reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
	proof := clientProof(t, reply, testUser, testPassword)

	for _, bit := range []int{0, 77, 159} {
		require.NoError(t, f.feed(t, s, testutil.MakeLogonProofPacket(proof.A, testutil.FlipBit(proof.M1, bit), "")))
		assert.Equal(t, []byte{0x01, constants.LoginUnknownAccount, 0x03, 0x00}, out.Take())
	}
	assert.Equal(t, StatusConnected, s.Status())
}

func TestLogonProof_FailedLoginBan(t *testing.T) {
	tests := []struct {
		name       string
		banAccount bool
	}{
		{"account", true},
		{"ip", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(c *config.AuthServer) {
				c.WrongPass = config.WrongPassConfig{
					MaxCount:   3,
					BanTime:    600,
					BanAccount: tt.banAccount,
					Logging:    true,
				}
			})
			id := f.addUser()
			s, out := f.session(t)

			reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
			proof := clientProof(t, reply, testUser, "WRONG")
			wrong := testutil.MakeLogonProofPacket(proof.A, proof.M1, "")

			for i := 1; i <= 2; i++ {
				require.NoError(t, f.feed(t, s, wrong))
				assert.Equal(t, i, f.store.FailedLogins(testUser))
			}
			assert.Empty(t, f.store.Bans())

			// третья попытка достигает max_count: ровно один бан, счётчик сброшен
			require.NoError(t, f.feed(t, s, wrong))
			bans := f.store.Bans()
			require.Len(t, bans, 1)
			assert.Equal(t, 600*time.Second, bans[0].Duration)
			assert.Equal(t, autoBanAuthor, bans[0].BannedBy)
			assert.Equal(t, autoBanReason, bans[0].Reason)
			if tt.banAccount {
				assert.Equal(t, id, bans[0].AccountID)
			} else {
				assert.Equal(t, "127.0.0.1", bans[0].IP)
				assert.Zero(t, bans[0].AccountID)
			}
			assert.Zero(t, f.store.FailedLogins(testUser))

			require.NoError(t, f.feed(t, s, wrong))
			assert.Len(t, f.store.Bans(), 1, "next attempt starts a new count")
			assert.Len(t, f.store.FailedLoginLogs(), 4)
			out.Take()
		})
	}
}

// hookedBans вызывает during внутри первого BanAccount, до записи бана.
type hookedBans struct {
	*testutil.MockStore
	once   sync.Once
	during func()
}

func (b *hookedBans) BanAccount(ctx context.Context, accountID uint32, d time.Duration, bannedBy, reason string) error {
	b.once.Do(b.during)
	return b.MockStore.BanAccount(ctx, accountID, d, bannedBy, reason)
}

func TestLogonProof_FailedLoginBanInterleavedSessions(t *testing.T) {
	f := newFixture(t, func(c *config.AuthServer) {
		c.WrongPass = config.WrongPassConfig{MaxCount: 3, BanTime: 600, BanAccount: true}
	})
	f.addUser()

	wrongProof := func() (*Session, []byte) {
		s, out := f.session(t)
		reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
		proof := clientProof(t, reply, testUser, "WRONG")
		return s, testutil.MakeLogonProofPacket(proof.A, proof.M1, "")
	}
	first, firstWrong := wrongProof()
	second, secondWrong := wrongProof()

	// вторая сессия ошибается, пока первая ещё записывает бан
	bans := &hookedBans{MockStore: f.store}
	bans.during = func() {
		require.NoError(t, f.feed(t, second, secondWrong))
	}
	f.handler = NewHandler(f.cfg, f.store, bans, f.realms, f.builds, f.patcher, nil)

	for range 3 {
		require.NoError(t, f.feed(t, first, firstWrong))
	}

	assert.Len(t, f.store.Bans(), 1, "only the attempt crossing max_count bans")
	assert.Equal(t, 1, f.store.FailedLogins(testUser), "the interleaved attempt starts a new count")
}

func TestLogonProof_SuccessResetsFailedLogins(t *testing.T) {
	f := newFixture(t, func(c *config.AuthServer) { c.WrongPass.MaxCount = 5 })
	f.addUser()
	s, out := f.session(t)

	reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
	wrong := clientProof(t, reply, testUser, "WRONG")
	require.NoError(t, f.feed(t, s, testutil.MakeLogonProofPacket(wrong.A, wrong.M1, "")))
	require.Equal(t, 1, f.store.FailedLogins(testUser))
	out.Take()

	good := clientProof(t, reply, testUser, testPassword)
	require.NoError(t, f.feed(t, s, testutil.MakeLogonProofPacket(good.A, good.M1, "")))
	assert.Equal(t, uint8(constants.LoginSuccess), out.Take()[1])
	assert.Zero(t, f.store.FailedLogins(testUser))
}

func TestLogonProof_ZeroEphemeral(t *testing.T) {
	for name, A := range map[string][]byte{
		"zero": make([]byte, srp6.KeySize),
		"N":    srp6.N.BytesLE(srp6.KeySize),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.addUser()
			s, out := f.session(t)
			f.challenge(t, s, out, testutil.DefaultChallenge(testUser))

			err := f.feed(t, s, testutil.MakeLogonProofPacket(A, make([]byte, srp6.DigestSize), ""))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrZeroEphemeral))
			assert.Zero(t, out.Len(), "nothing is sent before closing")
			assert.Equal(t, StatusConnected, s.Status())
		})
	}
}

func TestLogonProof_AfterFailedChallenge(t *testing.T) {
	f := newFixture(t)
	s, out := f.session(t)

	reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
	require.Equal(t, []byte{0x00, 0x00, constants.LoginUnknownAccount}, reply)

	err := f.feed(t, s, testutil.MakeLogonProofPacket(make([]byte, 32), make([]byte, 20), ""))
	assert.True(t, errors.Is(err, ErrWrongStatus))
}

func TestLogonProof_DatabaseError(t *testing.T) {
	f := newFixture(t)
	f.addUser()
	s, out := f.session(t)

	reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
	proof := clientProof(t, reply, testUser, testPassword)

	f.store.SetErr(testutil.ErrSimulated)
	require.NoError(t, f.feed(t, s, testutil.MakeLogonProofPacket(proof.A, proof.M1, "")))

	assert.Equal(t, []byte{0x01, constants.LoginDBBusy, 0x03, 0x00}, out.Take())
	assert.Equal(t, StatusConnected, s.Status())
}

func TestLogonProof_Token(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	code, err := totp.GenerateCode(testTokenSecret, now)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"valid", code, true},
		{"wrong", "000000", false},
		{"not a number", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.token == code && !tt.ok {
				t.Skip("generated code collides with the wrong one")
			}

			f := newFixture(t, func(c *config.AuthServer) {
				c.WrongPass = config.WrongPassConfig{MaxCount: 3, BanTime: 600, BanAccount: true, Logging: true}
			})
			f.handler.now = func() time.Time { return now }
			f.addUser(func(a *model.Account) { a.TokenKey = testTokenSecret })
			s, out := f.session(t)

			reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
			proof := clientProof(t, reply, testUser, testPassword)
			err := f.feed(t, s, testutil.MakeLogonProofPacket(proof.A, proof.M1, tt.token))

			resp := out.Take()
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, uint8(constants.LoginSuccess), resp[1])
				assert.Equal(t, StatusAuthenticated, s.Status())
				return
			}
			assert.True(t, errors.Is(err, ErrTokenMismatch))
			assert.Equal(t, []byte{0x01, constants.LoginUnknownAccount, 0x03, 0x00}, resp)
			assert.Empty(t, f.store.LogonProofs(), "key is not persisted")
			// неверный код не считается неверным паролем
			assert.Zero(t, f.store.FailedLogins(testUser))
			assert.Empty(t, f.store.FailedLoginLogs())
			assert.Empty(t, f.store.Bans())
		})
	}
}

func TestValidToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	code, err := totp.GenerateCode(testTokenSecret, now)
	require.NoError(t, err)

	assert.True(t, validToken(testTokenSecret, code, now, 0))
	assert.False(t, validToken(testTokenSecret, code, now.Add(time.Minute), 0))
	assert.True(t, validToken(testTokenSecret, code, now.Add(30*time.Second), 1), "previous period within skew")
	assert.False(t, validToken(testTokenSecret, "", now, 1))
	assert.False(t, validToken(testTokenSecret, "-1", now, 1))

	// клиент шлёт код числом: ведущие нули теряются
	for at := now; at.Before(now.Add(24 * time.Hour)); at = at.Add(30 * time.Second) {
		c, err := totp.GenerateCode(testTokenSecret, at)
		require.NoError(t, err)
		if c[0] != '0' {
			continue
		}
		n, _ := strconv.Atoi(c)
		assert.True(t, validToken(testTokenSecret, strconv.Itoa(n), at, 0))
		return
	}
	t.Fatal("no code with a leading zero within a day")
}

func TestLocaleID(t *testing.T) {
	assert.Equal(t, uint8(0), localeID("enUS"))
	assert.Equal(t, uint8(3), localeID("deDE"))
	assert.Equal(t, uint8(8), localeID("ruRU"))
	assert.Equal(t, uint8(0), localeID("xxXX"))
}
