package model

import "net/netip"

// Realm is one entry of the realm directory.
type Realm struct {
	ID              uint32
	Name            string
	ExternalAddress netip.Addr
	LocalAddress    netip.Addr
	LocalSubnetMask netip.Addr
	Port            uint16

	Icon     uint8 // realm type
	Flag     uint8
	Timezone uint8 // category

	AllowedSecurityLevel uint8
	Population           float32
	Build                uint32
}

// RealmBuildInfo describes one client build the server knows about.
type RealmBuildInfo struct {
	Build  uint32
	Major  uint8
	Minor  uint8
	Bugfix uint8
	Hotfix byte // ' ' when none
}
