// Package protocol holds the byte-level codec shared by the auth packets:
// a bounds-checked little-endian Reader and an append-only Writer.
package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// Reader reads little-endian fields from a fully framed message.
// Every method checks bounds and never panics on short input.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data. data is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) need(op string, n int) error {
	if n < 0 {
		return fmt.Errorf("%s: negative count %d", op, n)
	}
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%s: not enough data (pos=%d, need=%d, len=%d)", op, r.pos, n, len(r.data))
	}
	return nil
}

// ReadUint8 читает 1 байт.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need("ReadUint8", 1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 читает uint16 (LE).
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need("ReadUint16", 2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 читает uint32 (LE).
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need("ReadUint32", 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 читает uint64 (LE).
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need("ReadUint64", 8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadFloat32 reads an IEEE 754 single (LE).
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("ReadFloat32: %w", err)
	}
	return math.Float32frombits(v), nil
}

// ReadBytes читает n байт в новый слайс.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need("ReadBytes", n); err != nil {
		return nil, err
	}
	out := slices.Clone(r.data[r.pos : r.pos+n])
	r.pos += n
	return out, nil
}

// ReadCString reads a NUL-terminated string. The terminator is consumed.
func (r *Reader) ReadCString() (string, error) {
	i := bytes.IndexByte(r.data[r.pos:], 0)
	if i < 0 {
		return "", fmt.Errorf("ReadCString: missing terminator (pos=%d, len=%d)", r.pos, len(r.data))
	}
	s := string(r.data[r.pos : r.pos+i])
	r.pos += i + 1
	return s, nil
}

// ReadFourCC reads a 4-byte tag field and returns it as the client wrote it:
// the bytes up to the first NUL, in wire order.
func (r *Reader) ReadFourCC() (string, error) {
	if err := r.need("ReadFourCC", 4); err != nil {
		return "", err
	}
	raw := r.data[r.pos : r.pos+4]
	r.pos += 4
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need("Skip", n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Remaining возвращает количество непрочитанных байт.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position возвращает текущую позицию чтения.
func (r *Reader) Position() int {
	return r.pos
}
