package auth

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/realmd/internal/config"
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/model"
	"github.com/udisondev/realmd/internal/patch"
	"github.com/udisondev/realmd/internal/realm"
	"github.com/udisondev/realmd/internal/srp6"
	"github.com/udisondev/realmd/internal/testutil"
)

const (
	testUser     = "TESTER"
	testPassword = "SECRET"
	testPatchLen = 10000
)

// sink — потокобезопасный io.Writer, собирающий ответы сервера.
type sink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

// Take возвращает накопленные байты и очищает буфер.
func (s *sink) Take() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := bytes.Clone(s.buf.Bytes())
	s.buf.Reset()
	return out
}

func (s *sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

func testBuilds() []model.RealmBuildInfo {
	return []model.RealmBuildInfo{
		{Build: 5875, Major: 1, Minor: 12, Bugfix: 1, Hotfix: ' '},
		{Build: 8606, Major: 2, Minor: 4, Bugfix: 3, Hotfix: ' '},
		{Build: 12340, Major: 3, Minor: 3, Bugfix: 5, Hotfix: 'a'},
	}
}

type fixture struct {
	cfg       config.AuthServer
	store     *testutil.MockStore
	builds    *realm.BuildTable
	realms    *realm.List
	patcher   *patch.Patcher
	handler   *Handler
	patchData []byte
}

// newFixture собирает Handler на MockStore. Патч для TestUnknownBuild/enUS
// лежит во временном каталоге.
func newFixture(t *testing.T, mutate ...func(*config.AuthServer)) *fixture {
	t.Helper()

	cfg := config.DefaultAuthServer()
	cfg.PatchPacketDelay = 0
	for _, m := range mutate {
		m(&cfg)
	}

	builds, err := realm.NewBuildTable(testBuilds())
	require.NoError(t, err)

	dataDir := t.TempDir()
	patchDir := filepath.Join(dataDir, "patches")
	require.NoError(t, os.MkdirAll(patchDir, 0o755))
	data := make([]byte, testPatchLen)
	for i := range data {
		data[i] = byte(i * 13)
	}
	require.NoError(t, os.WriteFile(filepath.Join(patchDir, "1-enUS.mpq"), data, 0o644))

	patcher := patch.NewPatcher(dataDir)
	require.Equal(t, 1, patcher.Load())

	store := testutil.NewMockStore()
	realms := realm.NewList(store, 0)

	f := &fixture{
		cfg:       cfg,
		store:     store,
		builds:    builds,
		realms:    realms,
		patcher:   patcher,
		patchData: data,
	}
	f.handler = NewHandler(cfg, store, store, realms, builds, patcher, nil)
	return f
}

// addUser создаёт аккаунт testUser с паролем testPassword.
func (f *fixture) addUser(mutate ...func(*model.Account)) uint32 {
	acc := model.Account{
		Username: testUser,
		PassHash: srp6.CredentialHash(testUser, testPassword),
	}
	for _, m := range mutate {
		m(&acc)
	}
	return f.store.AddAccount(acc)
}

// session создаёт сессию клиента с адресом remote (по умолчанию 127.0.0.1).
func (f *fixture) session(t *testing.T, remote ...string) (*Session, *sink) {
	t.Helper()
	addr := netip.MustParseAddr("127.0.0.1")
	if len(remote) > 0 {
		addr = netip.MustParseAddr(remote[0])
	}
	out := &sink{}
	s := NewSession(context.Background(), out, addr)
	t.Cleanup(s.Close)
	return s, out
}

// feed прогоняет data через Dispatch и требует, чтобы всё было поглощено.
func (f *fixture) feed(t *testing.T, s *Session, data []byte) error {
	t.Helper()
	n, err := f.handler.Dispatch(testCtx(t), s, data)
	if err != nil {
		return err
	}
	require.Equal(t, len(data), n, "dispatch must consume complete messages")
	return nil
}

// challenge отправляет LOGON_CHALLENGE и разбирает успешный ответ.
func (f *fixture) challenge(t *testing.T, s *Session, out *sink, params testutil.ChallengeParams) []byte {
	t.Helper()
	require.NoError(t, f.feed(t, s, testutil.MakeChallengePacket(params)))
	return out.Take()
}

// login проходит challenge + proof и возвращает K.
func (f *fixture) login(t *testing.T, s *Session, out *sink) []byte {
	t.Helper()

	reply := f.challenge(t, s, out, testutil.DefaultChallenge(testUser))
	require.Equal(t, uint8(constants.LoginSuccess), reply[2])

	proof := clientProof(t, reply, testUser, testPassword)
	require.NoError(t, f.feed(t, s, testutil.MakeLogonProofPacket(proof.A, proof.M1, "")))

	resp := out.Take()
	require.Equal(t, uint8(constants.LoginSuccess), resp[1])
	require.Equal(t, proof.ExpectedM2, resp[2:22])
	return proof.SessionKey
}

// clientProof вычисляет клиентскую часть SRP6 по сырому ответу challenge.
func clientProof(t *testing.T, reply []byte, user, pass string) *testutil.SRPClientProof {
	t.Helper()
	require.GreaterOrEqual(t, len(reply), 119)

	B := reply[3:35]
	g := reply[36:37]
	N := reply[38:70]
	salt := reply[70:102]

	proof, err := testutil.ComputeClientProof(user, pass, B, g, N, salt)
	require.NoError(t, err)
	return proof
}

// testCtx — context одного теста с общим timeout.
func testCtx(t *testing.T) context.Context {
	return testutil.ContextWithTimeout(t, 5*time.Second)
}

// waitFor ждёт выполнения cond.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	testutil.WaitUntil(t, cond, 5*time.Second)
}
