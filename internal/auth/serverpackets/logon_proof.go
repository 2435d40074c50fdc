package serverpackets

import (
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// LogonProofOK writes a successful AUTH_LOGON_PROOF reply. Expansion
// clients get account flags and two more unused fields; older clients only
// a zero u32.
func LogonProofOK(w *protocol.Writer, M2 []byte, postExpansion bool) {
	w.WriteUint8(constants.CmdAuthLogonProof)
	w.WriteUint8(constants.LoginSuccess)
	w.WriteBytes(M2)

	if postExpansion {
		w.WriteUint32(constants.AccountFlagProPass)
		w.WriteUint32(0) // survey id
		w.WriteUint16(0) // login flags
		return
	}
	w.WriteUint32(0)
}

// LogonProofFail writes `01 code 03 00`.
func LogonProofFail(w *protocol.Writer, code uint8) {
	w.WriteUint8(constants.CmdAuthLogonProof)
	w.WriteUint8(code)
	w.WriteUint8(3)
	w.WriteUint8(0)
}

// DownloadFile writes the proof reply that tells the client to accept a patch.
func DownloadFile(w *protocol.Writer) {
	w.WriteUint8(constants.CmdAuthLogonProof)
	w.WriteUint8(constants.LoginDownloadFile)
}
