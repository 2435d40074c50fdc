package clientpackets

import (
	"fmt"

	"github.com/udisondev/realmd/internal/protocol"
)

// XferResume is XFER_RESUME: continue the patch from Pos.
type XferResume struct {
	Pos uint64
}

// ParseXferResume decodes an XFER_RESUME.
func ParseXferResume(data []byte) (XferResume, error) {
	r := protocol.NewReader(data)
	if err := r.Skip(1); err != nil {
		return XferResume{}, fmt.Errorf("xfer resume: %w", err)
	}
	pos, err := r.ReadUint64()
	if err != nil {
		return XferResume{}, fmt.Errorf("xfer resume: %w", err)
	}
	return XferResume{Pos: pos}, nil
}
