package serverpackets

import (
	"fmt"

	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/protocol"
)

// RealmEntry is one realm as the client sees it. Flag, Name and ID are
// final: the caller applies build and expansion rules before encoding.
type RealmEntry struct {
	Icon       uint8
	Locked     bool // expansion clients only
	Flag       uint8
	Name       string
	Address    string // "ip:port"
	Population float32
	Characters uint8
	Timezone   uint8
	ID         uint8

	// Version is written for expansion clients when Flag has SPECIFYBUILD.
	Major, Minor, Bugfix uint8
	Build                uint16
}

// RealmList writes the REALM_LIST reply. postExpansion selects the wire
// variant: a u16 count, lock bytes, realm ids and version tails for
// expansion clients; a u32 count and none of those for older ones.
func RealmList(w *protocol.Writer, realms []RealmEntry, postExpansion bool) {
	start := w.Len()

	w.WriteUint8(constants.CmdRealmList)
	w.WriteUint16(0) // size, patched below
	w.WriteUint32(0)
	if postExpansion {
		w.WriteUint16(uint16(len(realms)))
	} else {
		w.WriteUint32(uint32(len(realms)))
	}

	for _, r := range realms {
		w.WriteUint8(r.Icon)
		if postExpansion {
			w.WriteUint8(boolByte(r.Locked))
		}
		w.WriteUint8(r.Flag)
		w.WriteCString(r.Name)
		w.WriteCString(r.Address)
		w.WriteFloat32(r.Population)
		w.WriteUint8(r.Characters)
		w.WriteUint8(r.Timezone)
		if postExpansion {
			w.WriteUint8(r.ID)
		} else {
			w.WriteUint8(0)
		}

		if postExpansion && r.Flag&constants.RealmFlagSpecifyBuild != 0 {
			w.WriteUint8(r.Major)
			w.WriteUint8(r.Minor)
			w.WriteUint8(r.Bugfix)
			w.WriteUint16(r.Build)
		}
	}

	if postExpansion {
		w.WriteUint8(0x10)
		w.WriteUint8(0x00)
	} else {
		w.WriteUint8(0x00)
		w.WriteUint8(0x02)
	}

	// size counts everything after the size field
	w.PutUint16At(start+1, uint16(w.Len()-start-3))
}

// DecodeRealmList parses a REALM_LIST reply the way a client does.
func DecodeRealmList(data []byte, postExpansion bool) ([]RealmEntry, error) {
	r := protocol.NewReader(data)

	cmd, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if cmd != constants.CmdRealmList {
		return nil, fmt.Errorf("realm list: unexpected command 0x%02X", cmd)
	}
	size, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if int(size) != r.Remaining() {
		return nil, fmt.Errorf("realm list: size %d, have %d", size, r.Remaining())
	}
	if err := r.Skip(4); err != nil {
		return nil, err
	}

	var count int
	if postExpansion {
		n, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		count = int(n)
	} else {
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		count = int(n)
	}

	realms := make([]RealmEntry, 0, count)
	for i := range count {
		e, err := decodeRealmEntry(r, postExpansion)
		if err != nil {
			return nil, fmt.Errorf("realm list entry %d: %w", i, err)
		}
		realms = append(realms, e)
	}

	if r.Remaining() != 2 {
		return nil, fmt.Errorf("realm list: trailer of %d bytes", r.Remaining())
	}
	return realms, nil
}

func decodeRealmEntry(r *protocol.Reader, postExpansion bool) (RealmEntry, error) {
	var e RealmEntry
	var err error

	if e.Icon, err = r.ReadUint8(); err != nil {
		return e, err
	}
	if postExpansion {
		lock, err := r.ReadUint8()
		if err != nil {
			return e, err
		}
		e.Locked = lock != 0
	}
	if e.Flag, err = r.ReadUint8(); err != nil {
		return e, err
	}
	if e.Name, err = r.ReadCString(); err != nil {
		return e, err
	}
	if e.Address, err = r.ReadCString(); err != nil {
		return e, err
	}
	if e.Population, err = r.ReadFloat32(); err != nil {
		return e, err
	}
	if e.Characters, err = r.ReadUint8(); err != nil {
		return e, err
	}
	if e.Timezone, err = r.ReadUint8(); err != nil {
		return e, err
	}
	if e.ID, err = r.ReadUint8(); err != nil {
		return e, err
	}

	if postExpansion && e.Flag&constants.RealmFlagSpecifyBuild != 0 {
		if e.Major, err = r.ReadUint8(); err != nil {
			return e, err
		}
		if e.Minor, err = r.ReadUint8(); err != nil {
			return e, err
		}
		if e.Bugfix, err = r.ReadUint8(); err != nil {
			return e, err
		}
		if e.Build, err = r.ReadUint16(); err != nil {
			return e, err
		}
	}
	return e, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
