package realm

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udisondev/realmd/internal/model"
)

func TestAddressForClient(t *testing.T) {
	lan := model.Realm{
		ExternalAddress: netip.MustParseAddr("198.51.100.7"),
		LocalAddress:    netip.MustParseAddr("10.0.0.5"),
		LocalSubnetMask: netip.MustParseAddr("255.0.0.0"),
		Port:            8085,
	}
	local := model.Realm{
		ExternalAddress: netip.MustParseAddr("127.0.0.1"),
		LocalAddress:    netip.MustParseAddr("127.0.0.1"),
		LocalSubnetMask: netip.MustParseAddr("255.255.255.0"),
		Port:            8085,
	}

	tests := []struct {
		name   string
		realm  model.Realm
		client string
		want   string
	}{
		{"loopback client, loopback realm echoes client", local, "127.0.0.1", "127.0.0.1:8085"},
		{"other loopback address is echoed as is", local, "127.0.0.2", "127.0.0.2:8085"},
		{"loopback client, LAN realm gets local address", lan, "127.0.0.1", "10.0.0.5:8085"},
		{"client inside local subnet", lan, "10.20.30.40", "10.0.0.5:8085"},
		{"client outside local subnet", lan, "203.0.113.5", "198.51.100.7:8085"},
		{"ipv4-mapped client inside subnet", lan, "::ffff:10.1.1.1", "10.0.0.5:8085"},
		{"ipv6 client gets external", lan, "2001:db8::1", "198.51.100.7:8085"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddressForClient(tt.realm, netip.MustParseAddr(tt.client))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestAddressForClient_ExternalLoopbackOnly(t *testing.T) {
	r := model.Realm{
		ExternalAddress: netip.MustParseAddr("127.0.0.1"),
		LocalAddress:    netip.MustParseAddr("192.168.1.10"),
		LocalSubnetMask: netip.MustParseAddr("255.255.255.0"),
		Port:            3725,
	}
	got := AddressForClient(r, netip.MustParseAddr("127.0.0.1"))
	assert.Equal(t, "127.0.0.1:3725", got.String())
}
