package common

import (
	"encoding/binary"
	"fmt"
)

// PacketBuffer is a cursored view over a segment's wire bytes. Reads and
// writes advance one shared cursor in network byte order; the first
// out-of-bounds access latches an error and turns every later call into
// a no-op, so a fixed-layout header can be decoded straight through with
// a single Err check at the end instead of one per field.
type PacketBuffer struct {
	data []byte
	pos  int
	err  error
}

// NewPacketBuffer returns a buffer viewing data. The storage is shared,
// not copied; writes go through to the caller's slice.
func NewPacketBuffer(data []byte) *PacketBuffer {
	return &PacketBuffer{data: data}
}

// window claims the next n bytes and advances the cursor, or latches an
// error and returns nil once the data runs out.
func (pb *PacketBuffer) window(n int) []byte {
	if pb.err != nil {
		return nil
	}
	if pb.pos+n > len(pb.data) {
		pb.err = fmt.Errorf("packet buffer: need %d bytes at offset %d, have %d", n, pb.pos, len(pb.data)-pb.pos)
		return nil
	}
	w := pb.data[pb.pos : pb.pos+n]
	pb.pos += n
	return w
}

// Err returns the first out-of-bounds error, if any access latched one.
func (pb *PacketBuffer) Err() error {
	return pb.err
}

// Len returns the total length of the viewed data.
func (pb *PacketBuffer) Len() int {
	return len(pb.data)
}

// Remaining returns the number of bytes between the cursor and the end.
func (pb *PacketBuffer) Remaining() int {
	return len(pb.data) - pb.pos
}

// Skip advances the cursor past n bytes.
func (pb *PacketBuffer) Skip(n int) {
	pb.window(n)
}

// ReadUint8 consumes one byte.
func (pb *PacketBuffer) ReadUint8() byte {
	if w := pb.window(1); w != nil {
		return w[0]
	}
	return 0
}

// ReadUint16 consumes a 16-bit big-endian integer.
func (pb *PacketBuffer) ReadUint16() uint16 {
	if w := pb.window(2); w != nil {
		return binary.BigEndian.Uint16(w)
	}
	return 0
}

// ReadUint32 consumes a 32-bit big-endian integer.
func (pb *PacketBuffer) ReadUint32() uint32 {
	if w := pb.window(4); w != nil {
		return binary.BigEndian.Uint32(w)
	}
	return 0
}

// Rest returns everything from the cursor to the end without consuming
// it, or nil after an error.
func (pb *PacketBuffer) Rest() []byte {
	if pb.err != nil || pb.pos >= len(pb.data) {
		return nil
	}
	return pb.data[pb.pos:]
}

// WriteUint8 emits one byte at the cursor.
func (pb *PacketBuffer) WriteUint8(b byte) {
	if w := pb.window(1); w != nil {
		w[0] = b
	}
}

// WriteUint16 emits a 16-bit big-endian integer at the cursor.
func (pb *PacketBuffer) WriteUint16(v uint16) {
	if w := pb.window(2); w != nil {
		binary.BigEndian.PutUint16(w, v)
	}
}

// WriteUint32 emits a 32-bit big-endian integer at the cursor.
func (pb *PacketBuffer) WriteUint32(v uint32) {
	if w := pb.window(4); w != nil {
		binary.BigEndian.PutUint32(w, v)
	}
}

// WriteBytes emits p at the cursor.
func (pb *PacketBuffer) WriteBytes(p []byte) {
	if w := pb.window(len(p)); w != nil {
		copy(w, p)
	}
}
