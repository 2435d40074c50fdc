// Package clientpackets decodes client → auth server messages. Every decoder
// takes one fully framed message, command byte included.
package clientpackets

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// Offsets inside the fixed challenge header.
const (
	challengeSizeOffset = 2
	challengeOSOffset   = 17
)

// LogonChallenge is AUTH_LOGON_CHALLENGE and AUTH_RECONNECT_CHALLENGE.
type LogonChallenge struct {
	Command  uint8
	Error    uint8
	Size     uint16
	GameName string
	Version  [3]uint8
	Build    uint16
	// Platform, OS and Country are restored to reading order
	// ("x86", "Win", "enUS"); the client sends them byte-reversed.
	Platform string
	OS       string
	Country  string
	Timezone uint32
	IP       uint32
	Login    string
}

// ChallengeSize returns the full message size declared by a challenge
// header: the 4-byte header plus its size field. ok is false when the
// declared size cannot hold the fixed part.
func ChallengeSize(header []byte) (size int, ok bool) {
	declared := int(header[challengeSizeOffset]) | int(header[challengeSizeOffset+1])<<8
	if declared < constants.ChallengeFixedSize-constants.ChallengeHeaderSize {
		return 0, false
	}
	return constants.ChallengeHeaderSize + declared, true
}

// ParseLogonChallenge decodes a challenge message.
func ParseLogonChallenge(data []byte) (LogonChallenge, error) {
	var p LogonChallenge

	if len(data) < constants.ChallengeFixedSize {
		return p, fmt.Errorf("logon challenge too short: %d", len(data))
	}

	// OS is a C string that must fit its 4-byte field
	osLen := bytes.IndexByte(data[challengeOSOffset:], 0)
	if osLen < 0 || osLen > 4 {
		return p, fmt.Errorf("logon challenge: OS is not a string of at most 4 chars")
	}

	// длины проверены выше, фиксированная часть читается без ошибок
	r := protocol.NewReader(data)
	p.Command, _ = r.ReadUint8()
	p.Error, _ = r.ReadUint8()
	p.Size, _ = r.ReadUint16()
	p.GameName, _ = r.ReadFourCC()
	p.Version[0], _ = r.ReadUint8()
	p.Version[1], _ = r.ReadUint8()
	p.Version[2], _ = r.ReadUint8()
	p.Build, _ = r.ReadUint16()
	platform, _ := r.ReadFourCC()
	p.Platform = reversed([]byte(platform))
	os, _ := r.ReadBytes(4)
	p.OS = reversed(os[:osLen])
	country, _ := r.ReadBytes(4)
	p.Country = reversed(country)
	p.Timezone, _ = r.ReadUint32()
	p.IP, _ = r.ReadUint32()
	loginLen, _ := r.ReadUint8()

	login, err := r.ReadBytes(int(loginLen))
	if err != nil {
		return p, fmt.Errorf("logon challenge login: %w", err)
	}
	p.Login = string(login)

	return p, nil
}

func reversed(b []byte) string {
	b = slices.Clone(b)
	slices.Reverse(b)
	return string(b)
}
