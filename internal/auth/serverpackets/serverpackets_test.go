package serverpackets

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

func TestLogonChallengeOK(t *testing.T) {
	B := bytes.Repeat([]byte{0xBB}, 32)
	N := bytes.Repeat([]byte{0x11}, 32)
	salt := bytes.Repeat([]byte{0x55}, 32)
	random := bytes.Repeat([]byte{0x77}, 16)

	t.Run("без аутентификатора", func(t *testing.T) {
		w := protocol.NewWriter(128)
		LogonChallengeOK(w, B, 7, N, salt, random, constants.SecurityFlagNone)
		got := w.Bytes()

		require.Len(t, got, 3+32+1+1+1+32+32+16+1)
		assert.Equal(t, []byte{0x00, 0x00, 0x00}, got[:3])
		assert.Equal(t, B, got[3:35])
		assert.Equal(t, []byte{0x01, 0x07, 0x20}, got[35:38])
		assert.Equal(t, N, got[38:70])
		assert.Equal(t, salt, got[70:102])
		assert.Equal(t, random, got[102:118])
		assert.Equal(t, byte(0x00), got[118])
	})

	t.Run("с аутентификатором", func(t *testing.T) {
		w := protocol.NewWriter(128)
		LogonChallengeOK(w, B, 7, N, salt, random, constants.SecurityFlagAuthenticator)
		got := w.Bytes()

		require.Len(t, got, 120)
		assert.Equal(t, []byte{0x04, 0x01}, got[118:])
	})
}

func TestChallengeFail(t *testing.T) {
	w := protocol.NewWriter(8)
	ChallengeFail(w, constants.CmdAuthLogonChallenge, constants.LoginBanned)
	assert.Equal(t, []byte{0x00, 0x00, 0x03}, w.Bytes())
}

func TestPatchChallenge(t *testing.T) {
	w := protocol.NewWriter(128)
	PatchChallenge(w)
	got := w.Bytes()

	require.Len(t, got, 119)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x72}, got[:4])
	assert.Equal(t, bytes.Repeat([]byte{0}, 32), got[70:102])
	assert.Equal(t, []byte{0x6d, 0xc0, 0x00}, got[116:])
}

func TestLogonProof(t *testing.T) {
	M2 := bytes.Repeat([]byte{0xAA}, 20)

	t.Run("expansion client", func(t *testing.T) {
		w := protocol.NewWriter(64)
		LogonProofOK(w, M2, true)
		got := w.Bytes()

		require.Len(t, got, 32)
		assert.Equal(t, []byte{0x01, 0x00}, got[:2])
		assert.Equal(t, M2, got[2:22])
		assert.Equal(t, uint32(0x00800000), binary.LittleEndian.Uint32(got[22:]))
		assert.Equal(t, make([]byte, 6), got[26:])
	})

	t.Run("pre-expansion client", func(t *testing.T) {
		w := protocol.NewWriter(64)
		LogonProofOK(w, M2, false)
		got := w.Bytes()

		require.Len(t, got, 26)
		assert.Equal(t, make([]byte, 4), got[22:])
	})

	t.Run("failure", func(t *testing.T) {
		w := protocol.NewWriter(8)
		LogonProofFail(w, constants.LoginUnknownAccount)
		assert.Equal(t, []byte{0x01, 0x04, 0x03, 0x00}, w.Bytes())
	})

	t.Run("download file", func(t *testing.T) {
		w := protocol.NewWriter(8)
		DownloadFile(w)
		assert.Equal(t, []byte{0x01, 0x0A}, w.Bytes())
	})
}

func TestXferInitiate(t *testing.T) {
	var sum [16]byte
	for i := range sum {
		sum[i] = byte(i)
	}

	w := protocol.NewWriter(64)
	XferInitiate(w, 0x01020304, sum)
	got := w.Bytes()

	require.Len(t, got, 1+1+5+8+16)
	assert.Equal(t, []byte{0x30, 0x05, 'P', 'a', 'T', 'c', 'h'}, got[:7])
	assert.Equal(t, uint64(0x01020304), binary.LittleEndian.Uint64(got[7:]))
	assert.Equal(t, sum[:], got[15:])
}

func TestReconnect(t *testing.T) {
	challenge := bytes.Repeat([]byte{0x42}, 16)

	w := protocol.NewWriter(64)
	ReconnectChallenge(w, challenge)
	got := w.Bytes()
	require.Len(t, got, 34)
	assert.Equal(t, []byte{0x02, 0x00}, got[:2])
	assert.Equal(t, challenge, got[2:18])
	assert.Equal(t, make([]byte, 16), got[18:])

	w.Reset()
	ReconnectProofOK(w)
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, w.Bytes())
}

func TestRealmListRoundTrip(t *testing.T) {
	realms := []RealmEntry{
		{
			Icon:       1,
			Locked:     true,
			Flag:       constants.RealmFlagRecommended,
			Name:       "Alpha",
			Address:    "127.0.0.1:8085",
			Population: 0.5,
			Characters: 3,
			Timezone:   1,
			ID:         1,
		},
		{
			Icon:       0,
			Flag:       constants.RealmFlagOffline | constants.RealmFlagSpecifyBuild,
			Name:       "Beta",
			Address:    "203.0.113.10:8086",
			Population: 1.5,
			Timezone:   8,
			ID:         2,
			Major:      3,
			Minor:      3,
			Bugfix:     5,
			Build:      12340,
		},
	}

	t.Run("expansion client", func(t *testing.T) {
		w := protocol.NewWriter(256)
		RealmList(w, realms, true)
		got := w.Bytes()

		assert.Equal(t, uint16(len(got)-3), binary.LittleEndian.Uint16(got[1:3]))
		assert.Equal(t, []byte{0x10, 0x00}, got[len(got)-2:])

		decoded, err := DecodeRealmList(got, true)
		require.NoError(t, err)
		assert.Equal(t, realms, decoded)
	})

	t.Run("pre-expansion client", func(t *testing.T) {
		w := protocol.NewWriter(256)
		RealmList(w, realms, false)
		got := w.Bytes()

		assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(got[7:11]))
		assert.Equal(t, []byte{0x00, 0x02}, got[len(got)-2:])

		decoded, err := DecodeRealmList(got, false)
		require.NoError(t, err)
		require.Len(t, decoded, 2)

		// без lock, id и версии
		for i, r := range decoded {
			assert.Equal(t, realms[i].Name, r.Name)
			assert.Equal(t, realms[i].Address, r.Address)
			assert.Equal(t, realms[i].Population, r.Population)
			assert.False(t, r.Locked)
			assert.Zero(t, r.ID)
			assert.Zero(t, r.Build)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		w := protocol.NewWriter(32)
		RealmList(w, nil, true)

		decoded, err := DecodeRealmList(w.Bytes(), true)
		require.NoError(t, err)
		assert.Empty(t, decoded)
	})
}

func TestDecodeRealmListRejectsTruncated(t *testing.T) {
	w := protocol.NewWriter(128)
	RealmList(w, []RealmEntry{{Name: "Alpha", Address: "127.0.0.1:8085"}}, true)
	data := w.Bytes()

	_, err := DecodeRealmList(data[:len(data)-4], true)
	assert.Error(t, err)
}
