package clientpackets

import (
	"fmt"

	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// ReconnectProof is AUTH_RECONNECT_PROOF.
type ReconnectProof struct {
	R1      []byte // 16, client random
	R2      []byte // 20, proof
	R3      []byte // 20, unused
	NumKeys uint8
}

// ParseReconnectProof decodes a reconnect proof.
func ParseReconnectProof(data []byte) (ReconnectProof, error) {
	var p ReconnectProof
	if len(data) < constants.ReconnectProofSize {
		return p, fmt.Errorf("reconnect proof too short: %d", len(data))
	}

	r := protocol.NewReader(data[1:])
	var err error
	if p.R1, err = r.ReadBytes(16); err != nil {
		return p, err
	}
	if p.R2, err = r.ReadBytes(20); err != nil {
		return p, err
	}
	if p.R3, err = r.ReadBytes(20); err != nil {
		return p, err
	}
	if p.NumKeys, err = r.ReadUint8(); err != nil {
		return p, err
	}
	return p, nil
}
