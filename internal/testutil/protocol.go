package testutil

import (
	"slices"

	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// ChallengeParams описывает AUTH_LOGON_CHALLENGE так, как его пишет клиент.
type ChallengeParams struct {
	Command  uint8 // 0 = LOGON_CHALLENGE
	Login    string
	Build    uint16
	Version  [3]uint8
	Platform string // в порядке чтения: "x86"
	OS       string // "Win"
	Country  string // "enUS"
	Timezone uint32
	IP       uint32
}

// DefaultChallenge возвращает параметры клиента 3.3.5a с логином login.
func DefaultChallenge(login string) ChallengeParams {
	return ChallengeParams{
		Command:  constants.CmdAuthLogonChallenge,
		Login:    login,
		Build:    constants.TestBuild,
		Version:  [3]uint8{3, 3, 5},
		Platform: "x86",
		OS:       "Win",
		Country:  constants.TestLocale,
		Timezone: 60,
		IP:       0x0100007F,
	}
}

// MakeChallengePacket кодирует challenge. Текстовые поля клиент пишет
// задом наперёд, поэтому здесь они разворачиваются.
func MakeChallengePacket(p ChallengeParams) []byte {
	w := protocol.NewWriter(constants.ChallengeFixedSize + len(p.Login))

	w.WriteUint8(p.Command)
	w.WriteUint8(0x08) // error, клиент шлёт 8 или 3
	w.WriteUint16(uint16(constants.ChallengeFixedSize - constants.ChallengeHeaderSize + len(p.Login)))
	w.WriteBytes(fourCC("WoW"))
	w.WriteUint8(p.Version[0])
	w.WriteUint8(p.Version[1])
	w.WriteUint8(p.Version[2])
	w.WriteUint16(p.Build)
	w.WriteBytes(fourCC(reverse(p.Platform)))
	w.WriteBytes(fourCC(reverse(p.OS)))
	w.WriteBytes(fourCC(reverse(p.Country)))
	w.WriteUint32(p.Timezone)
	w.WriteUint32(p.IP)
	w.WriteUint8(uint8(len(p.Login)))
	w.WriteBytes([]byte(p.Login))

	return w.Bytes()
}

// MakeLogonProofPacket кодирует LOGON_PROOF. token == "" без поля кода,
// иначе securityFlags получает бит аутентификатора и код дописывается в конец.
func MakeLogonProofPacket(A, M1 []byte, token string) []byte {
	w := protocol.NewWriter(constants.LogonProofSize + 1 + len(token))

	w.WriteUint8(constants.CmdAuthLogonProof)
	w.WriteBytes(A)
	w.WriteBytes(M1)
	w.WriteBytes(make([]byte, 20)) // crc
	w.WriteUint8(0)                // nkeys

	if token == "" {
		w.WriteUint8(constants.SecurityFlagNone)
		return w.Bytes()
	}

	w.WriteUint8(constants.SecurityFlagAuthenticator)
	w.WriteUint8(uint8(len(token)))
	w.WriteBytes([]byte(token))
	return w.Bytes()
}

// MakeReconnectProofPacket кодирует RECONNECT_PROOF.
func MakeReconnectProofPacket(R1, R2 []byte) []byte {
	w := protocol.NewWriter(constants.ReconnectProofSize)
	w.WriteUint8(constants.CmdAuthReconnectProof)
	w.WriteBytes(R1)
	w.WriteBytes(R2)
	w.WriteBytes(make([]byte, 20)) // R3
	w.WriteUint8(0)
	return w.Bytes()
}

// MakeRealmListPacket кодирует REALM_LIST.
func MakeRealmListPacket() []byte {
	return []byte{constants.CmdRealmList, 0, 0, 0, 0}
}

// MakeXferResumePacket кодирует XFER_RESUME с позицией pos.
func MakeXferResumePacket(pos uint64) []byte {
	w := protocol.NewWriter(constants.XferResumeSize)
	w.WriteUint8(constants.CmdXferResume)
	w.WriteUint64(pos)
	return w.Bytes()
}

func fourCC(s string) []byte {
	b := make([]byte, 4)
	copy(b, s)
	return b
}

func reverse(s string) string {
	b := []byte(s)
	slices.Reverse(b)
	return string(b)
}
