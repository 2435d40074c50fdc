// Package bignum wraps saferith with the byte conventions of the auth
// protocol: binary values travel little-endian and fixed-width, hex values
// are stored big-endian and uppercase.
//
// Modular operations run in constant time for a given operand width, so a
// secret exponent only leaks the width it was created with.
package bignum

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/cronokirby/saferith"
)

// Number is an unsigned arbitrary-precision integer.
// Arithmetic methods never mutate the receiver, they return a new Number.
type Number struct {
	v saferith.Nat
}

// New returns zero.
func New() *Number {
	return FromUint32(0)
}

// FromUint32 returns x as a Number.
func FromUint32(x uint32) *Number {
	n := &Number{}
	n.v.SetUint64(uint64(x))
	return n
}

// FromHex parses a big-endian hex string (case-insensitive, no prefix).
// An empty string yields zero.
func FromHex(s string) (*Number, error) {
	if s == "" {
		return New(), nil
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	be, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex number %q: %w", s, err)
	}
	n := &Number{}
	n.v.SetBytes(be)
	return n, nil
}

// MustFromHex is FromHex for compile-time constants.
func MustFromHex(s string) *Number {
	n, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return n
}

// FromBytesLE interprets b as a little-endian unsigned integer.
// The width of b is kept as the announced size of the number.
func FromBytesLE(b []byte) *Number {
	be := slices.Clone(b)
	slices.Reverse(be)
	n := &Number{}
	n.v.SetBytes(be)
	return n
}

// Random returns a uniformly random number in [0, 2^bits).
func Random(bits int) (*Number, error) {
	if bits <= 0 {
		return nil, fmt.Errorf("random: invalid bit count %d", bits)
	}
	buf := make([]byte, (bits+7)/8)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("random: %w", err)
	}
	if extra := len(buf)*8 - bits; extra > 0 {
		buf[len(buf)-1] &= 0xFF >> extra
	}
	return FromBytesLE(buf), nil
}

// IsZero reports whether n == 0.
func (n *Number) IsZero() bool {
	return n.v.EqZero() == 1
}

// bytesBE returns the minimal big-endian form, empty for zero.
func (n *Number) bytesBE() []byte {
	be := n.v.Bytes()
	i := 0
	for i < len(be) && be[i] == 0 {
		i++
	}
	return be[i:]
}

// NumBytes returns the minimal number of bytes needed to hold n.
func (n *Number) NumBytes() int {
	return len(n.bytesBE())
}

// BytesLE returns n as little-endian bytes, at least width bytes long.
// Missing high-order bytes are zero; width 0 means minimal length.
func (n *Number) BytesLE(width int) []byte {
	be := n.bytesBE()
	out := make([]byte, max(len(be), width))
	// big-endian -> little-endian, padding lands at the tail (most significant side)
	for i, b := range be {
		out[len(be)-1-i] = b
	}
	return out
}

// Hex returns the uppercase big-endian hex form ("0" for zero).
func (n *Number) Hex() string {
	h := strings.TrimLeft(strings.ToUpper(hex.EncodeToString(n.bytesBE())), "0")
	if h == "" {
		return "0"
	}
	return h
}

// HexPadded returns Hex left-padded with zeros to width bytes (2*width digits).
func (n *Number) HexPadded(width int) string {
	h := n.Hex()
	if n.IsZero() {
		h = ""
	}
	if pad := width*2 - len(h); pad > 0 {
		h = strings.Repeat("0", pad) + h
	}
	return h
}

// Cmp compares n and o.
func (n *Number) Cmp(o *Number) int {
	gt, eq, _ := n.v.Cmp(&o.v)
	switch {
	case gt == 1:
		return 1
	case eq == 1:
		return 0
	default:
		return -1
	}
}

// Add returns n + o.
func (n *Number) Add(o *Number) *Number {
	r := &Number{}
	r.v.Add(&n.v, &o.v, -1)
	return r
}

// Mul returns n * o.
func (n *Number) Mul(o *Number) *Number {
	r := &Number{}
	r.v.Mul(&n.v, &o.v, -1)
	return r
}

func modulus(m *Number) *saferith.Modulus {
	return saferith.ModulusFromNat(&m.v)
}

// Mod returns n mod m.
func (n *Number) Mod(m *Number) *Number {
	r := &Number{}
	r.v.Mod(&n.v, modulus(m))
	return r
}

// ModAdd returns (n + o) mod m.
func (n *Number) ModAdd(o, m *Number) *Number {
	r := &Number{}
	r.v.ModAdd(&n.v, &o.v, modulus(m))
	return r
}

// ModSub returns (n - o) mod m, always non-negative.
func (n *Number) ModSub(o, m *Number) *Number {
	r := &Number{}
	r.v.ModSub(&n.v, &o.v, modulus(m))
	return r
}

// ModMul returns n * o mod m.
func (n *Number) ModMul(o, m *Number) *Number {
	r := &Number{}
	r.v.ModMul(&n.v, &o.v, modulus(m))
	return r
}

// ModExp returns n^e mod m.
func (n *Number) ModExp(e, m *Number) *Number {
	r := &Number{}
	r.v.Exp(&n.v, &e.v, modulus(m))
	return r
}

// String implements fmt.Stringer.
func (n *Number) String() string {
	return n.Hex()
}
