// Package serverpackets encodes auth server → client messages into a
// protocol.Writer. Each encoder appends exactly one message.
package serverpackets

import (
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// challengeGLength is the length prefix of g.
const challengeGLength = 1

// LogonChallengeOK writes a successful AUTH_LOGON_CHALLENGE reply.
// B, N and salt are 32-byte little-endian arrays, g is one byte.
func LogonChallengeOK(w *protocol.Writer, B []byte, g uint8, N, salt, random []byte, securityFlags uint8) {
	w.WriteUint8(constants.CmdAuthLogonChallenge)
	w.WriteUint8(0x00)
	w.WriteUint8(constants.LoginSuccess)
	w.WriteBytes(B)
	w.WriteUint8(challengeGLength)
	w.WriteUint8(g)
	w.WriteUint8(uint8(len(N)))
	w.WriteBytes(N)
	w.WriteBytes(salt)
	w.WriteBytes(random)
	w.WriteUint8(securityFlags)

	if securityFlags&constants.SecurityFlagAuthenticator != 0 {
		w.WriteUint8(1)
	}
}

// ChallengeFail writes `cmd 00 code`, the failure reply of the two
// challenge commands.
func ChallengeFail(w *protocol.Writer, cmd, code uint8) {
	w.WriteUint8(cmd)
	w.WriteUint8(0x00)
	w.WriteUint8(code)
}

// patchChallenge is the canned challenge reply sent to clients that will be
// patched. Its SRP values are meaningless; the client answers with a proof
// that triggers the patch offer.
var patchChallenge = [119]byte{
	0x00, 0x00, 0x00, 0x72, 0x50, 0xa7, 0xc9, 0x27, 0x4a, 0xfa, 0xb8, 0x77, 0x80, 0x70, 0x22,
	0xda, 0xb8, 0x3b, 0x06, 0x50, 0x53, 0x4a, 0x16, 0xe2, 0x65, 0xba, 0xe4, 0x43, 0x6f, 0xe3,
	0x29, 0x36, 0x18, 0xe3, 0x45, 0x01, 0x07, 0x20, 0x89, 0x4b, 0x64, 0x5e, 0x89, 0xe1, 0x53,
	0x5b, 0xbd, 0xad, 0x5b, 0x8b, 0x29, 0x06, 0x50, 0x53, 0x08, 0x01, 0xb1, 0x8e, 0xbf, 0xbf,
	0x5e, 0x8f, 0xab, 0x3c, 0x82, 0x87, 0x2a, 0x3e, 0x9b, 0xb7, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xe1, 0x32, 0xa3,
	0x49, 0x76, 0x5c, 0x5b, 0x35, 0x9a, 0x93, 0x3c, 0x6f, 0x3c, 0x63, 0x6d, 0xc0, 0x00,
}

// PatchChallenge writes the canned challenge reply for a patchable build.
func PatchChallenge(w *protocol.Writer) {
	w.WriteBytes(patchChallenge[:])
}
