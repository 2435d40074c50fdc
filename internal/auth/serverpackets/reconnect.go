package serverpackets

import (
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// ReconnectChallenge writes `02 00 R[16] 00×16`.
func ReconnectChallenge(w *protocol.Writer, challenge []byte) {
	w.WriteUint8(constants.CmdAuthReconnectChallenge)
	w.WriteUint8(constants.LoginSuccess)
	w.WriteBytes(challenge)
	w.WriteBytes(make([]byte, 16))
}

// ReconnectProofOK writes `03 00 00 00`.
func ReconnectProofOK(w *protocol.Writer) {
	w.WriteUint8(constants.CmdAuthReconnectProof)
	w.WriteUint8(constants.LoginSuccess)
	w.WriteUint16(0)
}
