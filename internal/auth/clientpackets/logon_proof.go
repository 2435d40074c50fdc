package clientpackets

import (
	"fmt"

	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// LogonProof is AUTH_LOGON_PROOF.
type LogonProof struct {
	A             []byte // 32
	M1            []byte // 20
	CRC           []byte // 20
	NumKeys       uint8
	SecurityFlags uint8

	// Token is the authenticator code; set when HasToken.
	HasToken bool
	Token    string
}

// SecurityFlagsOffset locates securityFlags for framing decisions.
const SecurityFlagsOffset = constants.LogonProofSize - 1

// ParseLogonProof decodes a logon proof. withToken selects whether the
// message carries the length-prefixed authenticator code after the fixed part.
func ParseLogonProof(data []byte, withToken bool) (LogonProof, error) {
	var p LogonProof

	if len(data) < constants.LogonProofSize {
		return p, fmt.Errorf("logon proof too short: %d", len(data))
	}

	r := protocol.NewReader(data)
	if err := r.Skip(1); err != nil {
		return p, err
	}

	var err error
	if p.A, err = r.ReadBytes(32); err != nil {
		return p, fmt.Errorf("logon proof A: %w", err)
	}
	if p.M1, err = r.ReadBytes(20); err != nil {
		return p, fmt.Errorf("logon proof M1: %w", err)
	}
	if p.CRC, err = r.ReadBytes(20); err != nil {
		return p, fmt.Errorf("logon proof crc: %w", err)
	}
	if p.NumKeys, err = r.ReadUint8(); err != nil {
		return p, fmt.Errorf("logon proof nkeys: %w", err)
	}
	if p.SecurityFlags, err = r.ReadUint8(); err != nil {
		return p, fmt.Errorf("logon proof flags: %w", err)
	}

	if !withToken {
		return p, nil
	}

	n, err := r.ReadUint8()
	if err != nil {
		return p, fmt.Errorf("logon proof token length: %w", err)
	}
	token, err := r.ReadBytes(int(n))
	if err != nil {
		return p, fmt.Errorf("logon proof token: %w", err)
	}
	p.HasToken = true
	p.Token = string(token)
	return p, nil
}

// LogonProofSize returns the full size of a logon proof given the bytes
// buffered so far, or the minimum needed to decide.
func LogonProofSize(buffered []byte, withToken bool) int {
	if !withToken {
		return constants.LogonProofSize
	}
	if len(buffered) <= constants.LogonProofSize {
		return constants.LogonProofSize + 1
	}
	return constants.LogonProofSize + 1 + int(buffered[constants.LogonProofSize])
}
