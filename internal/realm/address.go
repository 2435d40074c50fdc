package realm

import (
	"net/netip"

	"github.com/udisondev/realmd/internal/model"
)

// AddressForClient picks the realm address advertised to a client at
// clientAddr.
//
// Loopback clients get their own address back when the realm also runs on
// loopback, otherwise the realm's local address. Other clients get the local
// address when they sit in the realm's local subnet, else the external one.
func AddressForClient(r model.Realm, clientAddr netip.Addr) netip.AddrPort {
	clientAddr = clientAddr.Unmap()

	var ip netip.Addr
	switch {
	case clientAddr.IsLoopback():
		if r.LocalAddress.IsLoopback() || r.ExternalAddress.IsLoopback() {
			ip = clientAddr
		} else {
			ip = r.LocalAddress
		}
	case sameSubnet(clientAddr, r.LocalAddress, r.LocalSubnetMask):
		ip = r.LocalAddress
	default:
		ip = r.ExternalAddress
	}

	return netip.AddrPortFrom(ip, r.Port)
}

func sameSubnet(client, local, mask netip.Addr) bool {
	local = local.Unmap()
	mask = mask.Unmap()
	if !client.Is4() || !local.Is4() || !mask.Is4() {
		return false
	}
	c, l, m := client.As4(), local.As4(), mask.As4()
	for i := range m {
		if c[i]&m[i] != l[i]&m[i] {
			return false
		}
	}
	return true
}
