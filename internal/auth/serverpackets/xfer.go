package serverpackets

import (
	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// XferInitiate writes XFER_INITIATE: file tag, file size and MD5.
func XferInitiate(w *protocol.Writer, size uint64, md5 [16]byte) {
	w.WriteUint8(constants.CmdXferInitiate)
	w.WriteUint8(uint8(len(constants.XferFileTag)))
	w.WriteBytes([]byte(constants.XferFileTag))
	w.WriteUint64(size)
	w.WriteBytes(md5[:])
}
