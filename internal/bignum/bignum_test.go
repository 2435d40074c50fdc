package bignum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytesLE_RoundTrip(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0x04}
	n := FromBytesLE(raw)

	assert.Equal(t, "4030201", n.Hex())
	assert.Equal(t, raw, n.BytesLE(0))
}

func TestBytesLE_PadsMostSignificantSide(t *testing.T) {
	n := FromUint32(0x0102)

	got := n.BytesLE(4)
	assert.Equal(t, []byte{0x02, 0x01, 0x00, 0x00}, got)
}

func TestBytesLE_WidthSmallerThanValue(t *testing.T) {
	n := FromUint32(0x01020304)

	// width — минимальная длина, значение не обрезается
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, n.BytesLE(2))
}

func TestBytesLE_Zero(t *testing.T) {
	assert.Equal(t, make([]byte, 32), New().BytesLE(32))
	assert.Empty(t, New().BytesLE(0))
}

func TestFromHex(t *testing.T) {
	n, err := FromHex("894b645e")
	require.NoError(t, err)
	assert.Equal(t, "894B645E", n.Hex())
	assert.Equal(t, []byte{0x5e, 0x64, 0x4b, 0x89}, n.BytesLE(4))

	_, err = FromHex("zz")
	assert.Error(t, err)

	empty, err := FromHex("")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestHexPadded(t *testing.T) {
	assert.Equal(t, "000000FF", FromUint32(0xff).HexPadded(4))
	assert.Equal(t, "0000", New().HexPadded(2))
	assert.Equal(t, "01020304", FromUint32(0x01020304).HexPadded(2))
}

func TestArithmetic(t *testing.T) {
	seven := FromUint32(7)
	three := FromUint32(3)
	m := FromUint32(11)

	assert.Equal(t, "A", seven.Add(three).Hex())
	assert.Equal(t, "15", seven.Mul(three).Hex())
	assert.Equal(t, "A", seven.Mul(three).Mod(m).Hex())
	// 7^3 = 343 = 31*11 + 2
	assert.Equal(t, "2", seven.ModExp(three, m).Hex())
	// (3 - 7) mod 11 = 7
	assert.Equal(t, "7", three.ModSub(seven, m).Hex())
	assert.Equal(t, "A", seven.ModMul(three, m).Hex())
	// (7 + 7) mod 11 = 3
	assert.Equal(t, "3", seven.ModAdd(seven, m).Hex())
}

func TestModArithmetic_UnreducedOperands(t *testing.T) {
	m := FromUint32(11)
	big := FromUint32(100) // 100 mod 11 = 1

	assert.Equal(t, "1", big.Mod(m).Hex())
	assert.Equal(t, "3", big.ModMul(FromUint32(3), m).Hex())
	assert.Equal(t, "1", big.ModExp(FromUint32(5), m).Hex())
}

func TestHex_LeadingZeroBytes(t *testing.T) {
	// ширина из LE массива не влияет на текстовую форму
	n := FromBytesLE([]byte{0x0f, 0x00, 0x00, 0x00})
	assert.Equal(t, "F", n.Hex())
	assert.Equal(t, 1, n.NumBytes())
	assert.Equal(t, []byte{0x0f}, n.BytesLE(0))
	assert.Equal(t, "0", New().Hex())
}

func TestArithmetic_DoesNotMutateReceiver(t *testing.T) {
	a := FromUint32(5)
	_ = a.Add(FromUint32(1))
	_ = a.Mul(FromUint32(10))
	assert.Equal(t, "5", a.Hex())
}

func TestRandom(t *testing.T) {
	n, err := Random(128)
	require.NoError(t, err)
	assert.LessOrEqual(t, n.NumBytes(), 16)

	_, err = Random(0)
	assert.Error(t, err)
}

func TestCmpAndIsZero(t *testing.T) {
	assert.True(t, New().IsZero())
	assert.False(t, FromUint32(1).IsZero())
	assert.Equal(t, -1, FromUint32(1).Cmp(FromUint32(2)))
	assert.Equal(t, 0, FromBytesLE([]byte{2, 0, 0}).Cmp(FromUint32(2)))
}
